package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hiring-pipeline/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Schema creates the candidate table. The candidate document lives in doc;
// stage and position_applied are copied into columns for filtering.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS candidates (
		id               TEXT PRIMARY KEY,
		org_id           TEXT NOT NULL,
		stage            TEXT NOT NULL,
		position_applied TEXT,
		version          BIGINT NOT NULL DEFAULT 1,
		doc              JSONB NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_org_created ON candidates (org_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_org_stage ON candidates (org_id, stage)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_org_position ON candidates (org_id, position_applied)`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// PostgresStore persists candidates as JSONB documents.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresStore) FindOne(ctx context.Context, tenantID, id string) (*models.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc, version FROM candidates WHERE org_id = $1 AND id = $2`,
		tenantID, id)

	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find candidate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) Find(ctx context.Context, tenantID string, filter models.CandidateFilter) ([]*models.Candidate, error) {
	query := `SELECT doc, version FROM candidates WHERE org_id = $1`
	args := []interface{}{tenantID}

	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		query += fmt.Sprintf(" AND stage = $%d", len(args))
	}
	if filter.JobID != "" {
		args = append(args, filter.JobID)
		query += fmt.Sprintf(" AND position_applied = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, tenantID string, c *models.Candidate) (*models.Candidate, error) {
	stored := c.Clone()
	stored.OrgID = tenantID

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode candidate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, org_id, stage, position_applied, version, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stored.ID,
		tenantID,
		string(stored.Stage),
		nullable(stored.PositionApplied),
		stored.Version,
		doc,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert candidate: %w", err)
	}
	return stored, nil
}

// Update locks the row, checks the version and rewrites the document in one
// transaction, so the stage and its timeline entry commit together.
func (s *PostgresStore) Update(ctx context.Context, tenantID, id string, m Mutation) (*models.Candidate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT doc, version FROM candidates WHERE org_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock candidate: %w", err)
	}

	if err := m.CheckVersion(c.Version); err != nil {
		return nil, err
	}
	m.Apply(c, s.now())

	doc, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode candidate: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE candidates
		SET doc = $3, stage = $4, position_applied = $5, version = $6, updated_at = $7
		WHERE org_id = $1 AND id = $2`,
		tenantID, id, doc, string(c.Stage), nullable(c.PositionApplied), c.Version, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update candidate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteOne(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM candidates WHERE org_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		return nil, err
	}

	var c models.Candidate
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	c.Version = version
	return &c, nil
}

func nullable(s *string) interface{} {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return *s
}
