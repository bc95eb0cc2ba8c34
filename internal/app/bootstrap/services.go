package bootstrap

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/nutri-agenda/internal/appointments"
	appconfig "github.com/wolfman30/nutri-agenda/internal/config"
	"github.com/wolfman30/nutri-agenda/internal/observability/metrics"
	"github.com/wolfman30/nutri-agenda/internal/patients"
	"github.com/wolfman30/nutri-agenda/internal/plans"
	"github.com/wolfman30/nutri-agenda/internal/scheduling"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

// Deps are the process-wide handles the services are built on. Nil handles select the
// in-memory store or switch the optional feature off.
type Deps struct {
	Pool       *pgxpool.Pool
	SQLDB      *sql.DB
	Redis      *redis.Client
	LLM        plans.LLMClient
	S3         plans.S3API
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// Services are the domain services behind the HTTP handlers.
type Services struct {
	Patients     *patients.Service
	Appointments *appointments.Service
	// Drafter is nil when no drafting provider is configured.
	Drafter *plans.Drafter
}

// BuildServices wires stores, metrics and services from cfg and deps.
func BuildServices(cfg *appconfig.Config, deps Deps, logger *logging.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	hours, err := workingHours(cfg)
	if err != nil {
		return nil, err
	}

	var patientRepo patients.Repository
	if deps.SQLDB != nil {
		patientRepo = patients.NewPostgresRepository(deps.SQLDB)
	} else {
		logger.Warn("DATABASE_URL not set, patients kept in memory")
		patientRepo = patients.NewInMemoryRepository()
	}
	directory := NewPatientDirectory(patientRepo)

	var appointmentRepo appointments.Repository
	if deps.Pool != nil {
		appointmentRepo = appointments.NewPostgresRepository(deps.Pool)
	} else {
		appointmentRepo = appointments.NewInMemoryRepository(directory)
	}

	schedulingMetrics := metrics.NewSchedulingMetrics(deps.Registerer)
	loc := cfg.Location()

	appointmentService := appointments.NewService(appointmentRepo, logger, appointments.Options{
		Location:     loc,
		WorkingHours: hours,
		SlotMinutes:  cfg.SlotMinutes,
		Patients:     directory,
		Metrics:      schedulingMetrics,
		Projector:    scheduling.NewProjector(loc, logger, schedulingMetrics),
		Now:          deps.Now,
	})

	out := &Services{
		Patients: patients.NewService(patientRepo, logger,
			patients.WithDeleteHook(appointmentService.DeletePatientAppointments)),
		Appointments: appointmentService,
	}

	if deps.LLM != nil {
		temperature := float32(cfg.PlanTemperature)
		out.Drafter = plans.NewDrafter(
			deps.LLM,
			plans.NewDraftCache(deps.Redis, cfg.PlanCacheTTL),
			plans.NewArchive(deps.S3, cfg.PlanArchiveBucket, logger),
			metrics.NewPlanMetrics(deps.Registerer),
			logger,
			plans.DrafterConfig{
				SystemPrompt: cfg.PlanSystemPrompt,
				MaxTokens:    int32(cfg.PlanMaxTokens),
				Temperature:  &temperature,
			},
		)
	}
	return out, nil
}

func workingHours(cfg *appconfig.Config) (scheduling.WorkingHours, error) {
	start, err := scheduling.ParseClock(cfg.WorkingHoursStart)
	if err != nil {
		return scheduling.WorkingHours{}, fmt.Errorf("bootstrap: WORKING_HOURS_START: %w", err)
	}
	end, err := scheduling.ParseClock(cfg.WorkingHoursEnd)
	if err != nil {
		return scheduling.WorkingHours{}, fmt.Errorf("bootstrap: WORKING_HOURS_END: %w", err)
	}
	if end <= start {
		return scheduling.WorkingHours{}, fmt.Errorf("bootstrap: working hours end %s is not after start %s", end, start)
	}
	return scheduling.WorkingHours{Start: start, End: end}, nil
}
