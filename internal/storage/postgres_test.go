package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hiring-pipeline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func docRow(t *testing.T, c *models.Candidate) []byte {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return raw
}

// ==========================
// Read Tests
// ==========================

func TestPostgresStore_FindOne(t *testing.T) {
	store, mock := newMockStore(t)
	c := newCandidate("c1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	c.OrgID = "org"

	mock.ExpectQuery(`SELECT doc, version FROM candidates WHERE org_id = \$1 AND id = \$2`).
		WithArgs("org", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).AddRow(docRow(t, c), 7))

	got, err := store.FindOne(context.Background(), "org", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, int64(7), got.Version)
	assert.Equal(t, models.StageApplied, got.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT doc, version FROM candidates`).
		WithArgs("org-b", "c1").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindOne(context.Background(), "org-b", "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_TransportError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT doc, version FROM candidates`).
		WithArgs("org", "c1").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := store.FindOne(context.Background(), "org", "c1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_Find_BuildsFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter models.CandidateFilter
		query  string
		args   []driver.Value
	}{
		{
			name:  "no filter",
			query: `WHERE org_id = \$1 ORDER BY created_at DESC`,
			args:  []driver.Value{"org"},
		},
		{
			name:   "stage only",
			filter: models.CandidateFilter{Stage: models.StageOffer},
			query:  `WHERE org_id = \$1 AND stage = \$2 ORDER BY created_at DESC`,
			args:   []driver.Value{"org", "offer"},
		},
		{
			name:   "job and stage",
			filter: models.CandidateFilter{JobID: "job-9", Stage: models.StageInterview},
			query:  `WHERE org_id = \$1 AND stage = \$2 AND position_applied = \$3 ORDER BY created_at DESC`,
			args:   []driver.Value{"org", "interview", "job-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectQuery(tt.query).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).
					AddRow(docRow(t, newCandidate("c2", time.Now())), 1).
					AddRow(docRow(t, newCandidate("c1", time.Now())), 1))

			got, err := store.Find(context.Background(), "org", tt.filter)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "c2", got[0].ID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Write Tests
// ==========================

func TestPostgresStore_Insert(t *testing.T) {
	store, mock := newMockStore(t)
	c := newCandidate("c1", time.Now().UTC())
	c.PositionApplied = strPtr("job-1")

	mock.ExpectExec(`INSERT INTO candidates`).
		WithArgs("c1", "org", "applied", "job-1", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := store.Insert(context.Background(), "org", c)
	require.NoError(t, err)
	assert.Equal(t, "org", got.OrgID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_UniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	_, err := store.Insert(context.Background(), "org", newCandidate("c1", time.Now()))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPostgresStore_Update_AppliesMutationInTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	current := newCandidate("c1", time.Now().UTC())
	current.OrgID = "org"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT doc, version FROM candidates WHERE org_id = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("org", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).AddRow(docRow(t, current), 3))
	mock.ExpectExec(`UPDATE candidates SET doc = \$3, stage = \$4`).
		WithArgs("org", "c1", sqlmock.AnyArg(), "screening", nil, int64(4), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stage := models.StageScreening
	got, err := store.Update(context.Background(), "org", "c1", Mutation{
		ExpectedVersion: ExpectVersion(3),
		Stage:           &stage,
		AppendTimeline: []models.TimelineEntry{{
			Action: models.ActionStatusChange, From: models.StageApplied, To: models.StageScreening,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageScreening, got.Stage)
	assert.Equal(t, int64(4), got.Version)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, models.StageApplied, got.Timeline[0].From)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_VersionMismatchRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	current := newCandidate("c1", time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("org", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).AddRow(docRow(t, current), 4))
	mock.ExpectRollback()

	stage := models.StageRejected
	_, err := store.Update(context.Background(), "org", "c1", Mutation{
		ExpectedVersion: ExpectVersion(3),
		Stage:           &stage,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_MissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("org-b", "c1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.Update(context.Background(), "org-b", "c1", Mutation{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteOne(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM candidates WHERE org_id = \$1 AND id = \$2`).
		WithArgs("org", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM candidates`).
		WithArgs("org", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.DeleteOne(context.Background(), "org", "c1"))
	assert.ErrorIs(t, store.DeleteOne(context.Background(), "org", "c1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range Schema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
