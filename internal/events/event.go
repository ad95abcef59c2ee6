// Package events publishes committed pipeline changes to downstream systems.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hiring-pipeline/internal/models"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeCandidateCreated   = "candidate.created"
	TypeCandidateUpdated   = "candidate.updated"
	TypeCandidateDeleted   = "candidate.deleted"
	TypeStageChanged       = "candidate.stage_changed"
	TypeScoreRecorded      = "candidate.score_recorded"
	TypeNoteAdded          = "candidate.note_added"
	TypeCandidatesImported = "candidates.imported"
)

// Event describes one committed change. Events are emitted after the write
// succeeds and never carry a full candidate document.
type Event struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	TenantID    string       `json:"tenantId"`
	CandidateID string       `json:"candidateId,omitempty"`
	ActorID     string       `json:"actorId,omitempty"`
	From        models.Stage `json:"from,omitempty"`
	To          models.Stage `json:"to,omitempty"`
	FinalScore  *int         `json:"finalScore,omitempty"`
	Count       int          `json:"count,omitempty"`
	OccurredAt  time.Time    `json:"occurredAt"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType, tenantID, candidateID, actorID string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		TenantID:    tenantID,
		CandidateID: candidateID,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e Event) Marshal() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	return raw, nil
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Recorder is notified of every delivery attempt.
type Recorder interface {
	RecordEventPublished(ctx context.Context, sink, eventType string, ok bool)
}

type namedPublisher struct {
	name string
	pub  Publisher
}

// Multi fans an event out to every registered sink. One failing sink does
// not stop delivery to the others; all failures are joined.
type Multi struct {
	sinks    []namedPublisher
	recorder Recorder
}

func NewMulti(recorder Recorder) *Multi {
	return &Multi{recorder: recorder}
}

// Add registers a sink under name.
func (m *Multi) Add(name string, p Publisher) *Multi {
	m.sinks = append(m.sinks, namedPublisher{name: name, pub: p})
	return m
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m.sinks {
		err := s.pub.Publish(ctx, e)
		if m.recorder != nil {
			m.recorder.RecordEventPublished(ctx, s.name, e.Type, err == nil)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
