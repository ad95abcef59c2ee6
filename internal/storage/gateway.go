// Package storage is the tenant-scoped persistence gateway for candidates.
package storage

import (
	"context"
	"errors"
	"time"

	"hiring-pipeline/internal/models"
)

var (
	// ErrNotFound covers both absent ids and ids owned by another tenant.
	ErrNotFound = errors.New("candidate not found")
	// ErrConflict means the stored version no longer matches the expected one.
	ErrConflict = errors.New("candidate version conflict")
)

// Gateway is implemented by every candidate store. Every method filters by
// tenantID in the query itself. Transport failures are returned as-is and
// surface to callers as storage errors.
type Gateway interface {
	FindOne(ctx context.Context, tenantID, id string) (*models.Candidate, error)
	// Find returns the tenant's candidates ordered by CreatedAt descending.
	Find(ctx context.Context, tenantID string, filter models.CandidateFilter) ([]*models.Candidate, error)
	Insert(ctx context.Context, tenantID string, c *models.Candidate) (*models.Candidate, error)
	// Update applies m in one atomic write and bumps the version.
	Update(ctx context.Context, tenantID, id string, m Mutation) (*models.Candidate, error)
	DeleteOne(ctx context.Context, tenantID, id string) error
	Ping(ctx context.Context) error
}

// Mutation is a single atomic write: field sets plus list appends. When
// ExpectedVersion is set the write fails with ErrConflict on mismatch.
type Mutation struct {
	ExpectedVersion *int64
	Stage           *models.Stage
	Scores          []models.ScoreEntry
	FinalScore      *int
	Patch           *models.CandidatePatch
	AppendTimeline  []models.TimelineEntry
	AppendNotes     []models.Note
}

// ExpectVersion is shorthand for setting ExpectedVersion.
func ExpectVersion(v int64) *int64 {
	return &v
}

// Append atomically appends notes and timeline entries without a version check.
func Append(ctx context.Context, g Gateway, tenantID, id string, notes []models.Note, timeline []models.TimelineEntry) (*models.Candidate, error) {
	return g.Update(ctx, tenantID, id, Mutation{AppendNotes: notes, AppendTimeline: timeline})
}

// CheckVersion returns ErrConflict when m expects a different version than current.
func (m Mutation) CheckVersion(current int64) error {
	if m.ExpectedVersion != nil && *m.ExpectedVersion != current {
		return ErrConflict
	}
	return nil
}

// Apply writes m onto c, bumps the version and stamps UpdatedAt.
func (m Mutation) Apply(c *models.Candidate, now time.Time) {
	if m.Patch != nil {
		m.Patch.Apply(c)
	}
	if m.Stage != nil {
		c.Stage = *m.Stage
	}
	if m.Scores != nil {
		c.Scores = append([]models.ScoreEntry(nil), m.Scores...)
	}
	if m.FinalScore != nil {
		c.FinalScore = *m.FinalScore
	}
	c.Timeline = append(c.Timeline, m.AppendTimeline...)
	c.Notes = append(c.Notes, m.AppendNotes...)
	c.Version++
	c.UpdatedAt = now
}
