package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/nutri-agenda/internal/scheduling"
)

const patientColumns = `id, name, birth_date, gender, phone, email, weight_kg, height_cm,
	pathologies, likes, allergies, meal_schedule, work_schedule, training_frequency,
	daily_water_liters, alcohol_tobacco, sleep_hours, short_term_goal, long_term_goal, notes,
	created_at`

// PostgresRepository stores patients through database/sql.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an open *sql.DB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("patients: sql db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *Patient) (*Patient, error) {
	in := clonePatient(*p)
	in.withBMI()
	id := uuid.New().String()
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO patients (id, name, birth_date, gender, phone, email, weight_kg, height_cm,
			pathologies, likes, allergies, meal_schedule, work_schedule, training_frequency,
			daily_water_liters, alcohol_tobacco, sleep_hours, short_term_goal, long_term_goal, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at`,
		id, in.Name, nullDate(in.BirthDate), in.Gender, in.Phone, in.Email, in.WeightKg, in.HeightCm,
		pq.Array(in.Pathologies), pq.Array(in.Likes), pq.Array(in.Allergies), in.MealSchedule,
		in.WorkSchedule, in.TrainingFrequency, in.DailyWaterLiters, in.AlcoholTobacco, in.SleepHours,
		in.ShortTermGoal, in.LongTermGoal, in.Notes,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}

	in.ID = id
	in.CreatedAt = createdAt
	return &in, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Patient, error) {
	key, ok := canonicalID(id)
	if !ok {
		return nil, ErrPatientNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, key)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *Patient) (*Patient, error) {
	key, ok := canonicalID(p.ID)
	if !ok {
		return nil, ErrPatientNotFound
	}
	in := clonePatient(*p)
	in.ID = key
	in.withBMI()
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE patients
		SET name = $2, birth_date = $3, gender = $4, phone = $5, email = $6, weight_kg = $7,
			height_cm = $8, pathologies = $9, likes = $10, allergies = $11, meal_schedule = $12,
			work_schedule = $13, training_frequency = $14, daily_water_liters = $15,
			alcohol_tobacco = $16, sleep_hours = $17, short_term_goal = $18, long_term_goal = $19,
			notes = $20, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at`,
		in.ID, in.Name, nullDate(in.BirthDate), in.Gender, in.Phone, in.Email, in.WeightKg, in.HeightCm,
		pq.Array(in.Pathologies), pq.Array(in.Likes), pq.Array(in.Allergies), in.MealSchedule,
		in.WorkSchedule, in.TrainingFrequency, in.DailyWaterLiters, in.AlcoholTobacco, in.SleepHours,
		in.ShortTermGoal, in.LongTermGoal, in.Notes,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: update failed: %w", err)
	}

	in.CreatedAt = createdAt
	return &in, nil
}

// Delete removes the patient and, through the foreign key, their appointments.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	key, ok := canonicalID(id)
	if !ok {
		return ErrPatientNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("patients: delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patients: delete failed: %w", err)
	}
	if n == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// List returns every patient ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// canonicalID returns id in the form the uuid column stores. Ids that do not parse cannot
// name a row.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var (
		p         Patient
		birthDate sql.NullTime
		weight    sql.NullFloat64
		height    sql.NullFloat64
		water     sql.NullFloat64
		sleep     sql.NullFloat64
	)
	if err := row.Scan(
		&p.ID, &p.Name, &birthDate, &p.Gender, &p.Phone, &p.Email, &weight, &height,
		pq.Array(&p.Pathologies), pq.Array(&p.Likes), pq.Array(&p.Allergies), &p.MealSchedule,
		&p.WorkSchedule, &p.TrainingFrequency, &water, &p.AlcoholTobacco, &sleep,
		&p.ShortTermGoal, &p.LongTermGoal, &p.Notes, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if birthDate.Valid {
		p.BirthDate = scheduling.NormalizeStoredDate(birthDate.Time)
	}
	p.WeightKg = floatPtr(weight)
	p.HeightCm = floatPtr(height)
	p.DailyWaterLiters = floatPtr(water)
	p.SleepHours = floatPtr(sleep)
	return p.withBMI(), nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullDate(d scheduling.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}
