package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/nutri-agenda/internal/forms"
	"github.com/wolfman30/nutri-agenda/internal/plans"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

// Service validates patient input before it reaches the repository.
type Service struct {
	repo     Repository
	logger   *logging.Logger
	onDelete []DeleteHook
}

// DeleteHook runs after a patient record is removed.
type DeleteHook func(ctx context.Context, patientID string) error

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithDeleteHook registers fn to clean up records that reference a deleted patient.
func WithDeleteHook(fn DeleteHook) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.onDelete = append(s.onDelete, fn)
		}
	}
}

func NewService(repo Repository, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("patients: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := req.Patient()
	created, err := s.repo.Create(ctx, &p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("patient created", "patient_id", created.ID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrPatientNotFound
	}
	return s.repo.Get(ctx, id)
}

// Update merges the present fields of req into the stored patient.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := req.Apply(*current)
	return s.repo.Update(ctx, &next)
}

// Delete removes the patient, then runs the delete hooks so their appointments go too.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, hook := range s.onDelete {
		if err := hook(ctx, id); err != nil {
			s.logger.Error("patient delete cleanup failed", "patient_id", id, "error", err)
			return fmt.Errorf("patients: cleanup after delete: %w", err)
		}
	}
	s.logger.Info("patient deleted", "patient_id", id)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

// PlanPrompt returns the editable default plan prompt for the patient.
func (s *Service) PlanPrompt(ctx context.Context, id string) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return plans.DefaultPrompt(plans.PatientProfile{
		Name:          p.Name,
		WeightKg:      p.WeightKg,
		HeightCm:      p.HeightCm,
		Pathologies:   p.Pathologies,
		Allergies:     p.Allergies,
		ShortTermGoal: p.ShortTermGoal,
	}), nil
}

// IsValidationError reports whether err was caused by bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrOutOfRangeWeight) ||
		errors.Is(err, ErrOutOfRangeHeight) ||
		errors.Is(err, ErrOutOfRangeHabit) ||
		errors.Is(err, forms.ErrNotANumber)
}
