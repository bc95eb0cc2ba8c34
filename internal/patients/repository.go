package patients

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, p *Patient) (*Patient, error)
	Get(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, p *Patient) (*Patient, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Patient, error)
}

// InMemoryRepository keeps patients in a map.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		patients: make(map[string]*Patient),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, p *Patient) (*Patient, error) {
	stored := clonePatient(*p)
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now().UTC()

	r.mu.Lock()
	r.patients[stored.ID] = &stored
	r.mu.Unlock()

	out := clonePatient(stored)
	return out.withBMI(), nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	out := clonePatient(*p)
	return out.withBMI(), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.patients[p.ID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	stored := clonePatient(*p)
	stored.CreatedAt = current.CreatedAt
	r.patients[p.ID] = &stored

	out := clonePatient(stored)
	return out.withBMI(), nil
}

// Delete removes the patient. Appointments referencing it are the store's concern.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	return nil
}

// List returns every patient ordered by name.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Patient, error) {
	r.mu.RLock()
	out := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		c := clonePatient(*p)
		out = append(out, c.withBMI())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Patient) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func clonePatient(p Patient) Patient {
	p.Pathologies = slices.Clone(p.Pathologies)
	p.Likes = slices.Clone(p.Likes)
	p.Allergies = slices.Clone(p.Allergies)
	return p
}
