package patients

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patientRowColumns = []string{
	"id", "name", "birth_date", "gender", "phone", "email", "weight_kg", "height_cm",
	"pathologies", "likes", "allergies", "meal_schedule", "work_schedule", "training_frequency",
	"daily_water_liters", "alcohol_tobacco", "sleep_hours", "short_term_goal", "long_term_goal", "notes",
	"created_at",
}

const (
	anaID   = "3f2c1e9a-6b1d-4c2e-9a7f-0d5b8e4a1c11"
	otherID = "8a6e0f3b-2d4c-4e1a-b7c9-5f1d2e3a4b22"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	weight, height := 80.0, 165.0

	mock.ExpectQuery(`INSERT INTO patients`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	p, err := repo.Create(context.Background(), &Patient{Name: "Ana", WeightKg: &weight, HeightCm: &height})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	require.NotNil(t, p.BMI)
	assert.Equal(t, 29.38, *p.BMI)
	assert.Equal(t, []string{}, p.Likes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// stored dates come back as UTC midnight carried in a western location
	birth := time.Date(1990, 5, 4, 0, 0, 0, 0, time.UTC).In(time.FixedZone("CST", -6*3600))

	mock.ExpectQuery(`SELECT .+ FROM patients WHERE id = \$1`).
		WithArgs(anaID).
		WillReturnRows(sqlmock.NewRows(patientRowColumns).AddRow(
			anaID, "Ana", birth, "F", "555", "ana@example.com", 80.0, 165.0,
			"{diabetes}", "{}", "{nueces,mariscos}", "", "", "",
			nil, "", 7.5, "bajar 2 kg", "", "",
			created,
		))

	p, err := repo.Get(context.Background(), strings.ToUpper(anaID))
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "1990-05-04", p.BirthDate.String())
	assert.Equal(t, []string{"diabetes"}, p.Pathologies)
	assert.Equal(t, []string{"nueces", "mariscos"}, p.Allergies)
	assert.Nil(t, p.DailyWaterLiters)
	require.NotNil(t, p.SleepHours)
	assert.Equal(t, 7.5, *p.SleepHours)
	require.NotNil(t, p.BMI)
	assert.Equal(t, 29.38, *p.BMI)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM patients`).WithArgs(otherID).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), otherID)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MalformedIDSkipsQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrPatientNotFound)
	_, err = repo.Update(ctx, &Patient{ID: "p1", Name: "X"})
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "p1"), ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`UPDATE patients .+ WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), &Patient{ID: otherID, Name: "X"})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPostgresRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM patients WHERE id = \$1`).WithArgs(anaID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM patients`).WithArgs(otherID).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), anaID))
	assert.ErrorIs(t, repo.Delete(context.Background(), otherID), ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM patients ORDER BY`).WillReturnError(errors.New("connection refused"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patients: list failed")
}

func TestPostgresRepository_ListEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM patients ORDER BY`).WillReturnRows(sqlmock.NewRows(patientRowColumns))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
