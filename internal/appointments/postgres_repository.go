package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/nutri-agenda/internal/scheduling"
)

const (
	pgForeignKeyViolation = "23503"
	pgExclusionViolation  = "23P01"
)

const selectAppointment = `
	SELECT a.id::text, a.patient_id::text, a.appointment_date, a.time_range, a.type, a.status,
		a.weight, a.created_at, p.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id`

// appointmentsDB is the subset of pgxpool.Pool the repository uses.
type appointmentsDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores appointments in Postgres. Writes for one date are serialized
// with a transaction-scoped advisory lock, and the appointments_no_overlap exclusion
// constraint backs the same rule.
type PostgresRepository struct {
	db appointmentsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db appointmentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	tr, err := a.Range()
	if err != nil {
		return nil, err
	}
	patientID, ok := canonicalID(a.PatientID)
	if !ok {
		return nil, ErrPatientNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDay(ctx, tx, a.Date); err != nil {
		return nil, err
	}
	if a.BlocksSlot() {
		booked, err := bookedRanges(ctx, tx, a.Date, "")
		if err != nil {
			return nil, err
		}
		if err := scheduling.CheckBookable(tr, booked); err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	query := `
		WITH inserted AS (
			INSERT INTO appointments (id, patient_id, appointment_date, time_range, start_minute, end_minute, type, status, weight)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING patient_id, created_at
		)
		SELECT inserted.created_at, p.name
		FROM inserted
		JOIN patients p ON p.id = inserted.patient_id
	`
	var (
		createdAt time.Time
		name      string
	)
	if err := tx.QueryRow(ctx, query,
		id,
		patientID,
		a.Date.Time(),
		tr.String(),
		int(tr.Start),
		int(tr.End),
		a.Type,
		a.Status,
		a.Weight,
	).Scan(&createdAt, &name); err != nil {
		return nil, mapWriteError("insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapWriteError("commit", err)
	}

	out := *a
	out.ID = id
	out.TimeRange = tr.String()
	out.PatientID = patientID
	out.CreatedAt = createdAt
	out.Patient = PatientRef{ID: patientID, Name: name}
	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	key, ok := canonicalID(id)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	row := r.db.QueryRow(ctx, selectAppointment+` WHERE a.id = $1`, key)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	tr, err := a.Range()
	if err != nil {
		return nil, err
	}
	id, ok := canonicalID(a.ID)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	patientID, ok := canonicalID(a.PatientID)
	if !ok {
		return nil, ErrPatientNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDay(ctx, tx, a.Date); err != nil {
		return nil, err
	}
	if a.BlocksSlot() {
		booked, err := bookedRanges(ctx, tx, a.Date, id)
		if err != nil {
			return nil, err
		}
		if err := scheduling.CheckBookable(tr, booked); err != nil {
			return nil, err
		}
	}

	query := `
		WITH updated AS (
			UPDATE appointments
			SET patient_id = $2, appointment_date = $3, time_range = $4, start_minute = $5,
				end_minute = $6, type = $7, status = $8, weight = $9
			WHERE id = $1
			RETURNING patient_id, created_at
		)
		SELECT updated.created_at, p.name
		FROM updated
		JOIN patients p ON p.id = updated.patient_id
	`
	var (
		createdAt time.Time
		name      string
	)
	if err := tx.QueryRow(ctx, query,
		id,
		patientID,
		a.Date.Time(),
		tr.String(),
		int(tr.Start),
		int(tr.End),
		a.Type,
		a.Status,
		a.Weight,
	).Scan(&createdAt, &name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, mapWriteError("update", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapWriteError("commit", err)
	}

	out := *a
	out.ID = id
	out.PatientID = patientID
	out.TimeRange = tr.String()
	out.CreatedAt = createdAt
	out.Patient = PatientRef{ID: patientID, Name: name}
	return &out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	key, ok := canonicalID(id)
	if !ok {
		return ErrAppointmentNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// DeleteByPatient removes the patient's appointments. Deleting the patient row cascades to
// the same rows, so this usually reports zero.
func (r *PostgresRepository) DeleteByPatient(ctx context.Context, patientID string) (int, error) {
	key, ok := canonicalID(patientID)
	if !ok {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE patient_id = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("appointments: delete by patient failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// List returns matching appointments ordered by date and start time.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	var (
		where []string
		args  []any
	)
	if filter.PatientID != "" {
		patientID, ok := canonicalID(filter.PatientID)
		if !ok {
			return []*Appointment{}, nil
		}
		args = append(args, patientID)
		where = append(where, fmt.Sprintf("a.patient_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.Time())
		where = append(where, fmt.Sprintf("a.appointment_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.Time())
		where = append(where, fmt.Sprintf("a.appointment_date <= $%d", len(args)))
	}

	query := selectAppointment
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.appointment_date, a.start_minute, a.id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) BookedRanges(ctx context.Context, day scheduling.Date) ([]scheduling.TimeRange, error) {
	return bookedRanges(ctx, r.db, day, "")
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func bookedRanges(ctx context.Context, q queryer, day scheduling.Date, excludeID string) ([]scheduling.TimeRange, error) {
	rows, err := q.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE appointment_date = $1 AND status <> 'cancelada'
			AND id IS DISTINCT FROM NULLIF($2, '')::uuid
		ORDER BY start_minute
	`, day.Time(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("appointments: booked ranges failed: %w", err)
	}
	defer rows.Close()

	var ranges []scheduling.TimeRange
	for rows.Next() {
		var start, end int
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("appointments: scan booked range: %w", err)
		}
		ranges = append(ranges, scheduling.TimeRange{Start: scheduling.Clock(start), End: scheduling.Clock(end)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: booked ranges failed: %w", err)
	}
	return ranges, nil
}

// canonicalID returns id in the form the uuid columns store. Ids that do not parse cannot
// name a row.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func lockDay(ctx context.Context, tx pgx.Tx, day scheduling.Date) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, day.String()); err != nil {
		return fmt.Errorf("appointments: lock day %s: %w", day, err)
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a    Appointment
		day  time.Time
		name string
	)
	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&day,
		&a.TimeRange,
		&a.Type,
		&a.Status,
		&a.Weight,
		&a.CreatedAt,
		&name,
	); err != nil {
		return nil, err
	}
	a.Date = scheduling.NormalizeStoredDate(day)
	a.Patient = PatientRef{ID: a.PatientID, Name: name}
	return &a, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return fmt.Errorf("%w: %s", scheduling.ErrSlotConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return ErrPatientNotFound
		}
	}
	if errors.Is(err, pgx.ErrNoRows) && op == "insert" {
		return ErrPatientNotFound
	}
	return fmt.Errorf("appointments: %s failed: %w", op, err)
}
