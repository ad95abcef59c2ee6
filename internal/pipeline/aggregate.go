package pipeline

import (
	"fmt"
	"strings"
	"time"

	"hiring-pipeline/internal/models"
)

// Clock returns the time used to stamp timeline entries.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Changes is the set of writes an aggregate produced since it was loaded.
// Stage and its status_change entry always travel together.
type Changes struct {
	Stage          *models.Stage
	Scores         []models.ScoreEntry
	FinalScore     *int
	AppendTimeline []models.TimelineEntry
	AppendNotes    []models.Note
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return c.Stage == nil && c.FinalScore == nil && len(c.AppendTimeline) == 0 && len(c.AppendNotes) == 0
}

// Aggregate enforces the candidate invariants in memory, independent of storage.
type Aggregate struct {
	candidate *models.Candidate
	clock     Clock
	changes   Changes
}

// NewAggregate wraps a loaded candidate. The candidate is mutated in place.
func NewAggregate(c *models.Candidate, clock Clock) *Aggregate {
	if clock == nil {
		clock = SystemClock
	}
	return &Aggregate{candidate: c, clock: clock}
}

func (a *Aggregate) Candidate() *models.Candidate {
	return a.candidate
}

// Changes returns the pending writes.
func (a *Aggregate) Changes() Changes {
	return a.changes
}

// ApplyStageChange moves the candidate to requested and records exactly one
// status_change entry. On an illegal transition the candidate is untouched.
func (a *Aggregate) ApplyStageChange(requested models.Stage, actorID string) (models.TimelineEntry, error) {
	from := a.candidate.Stage
	if !ValidTransition(from, requested) {
		return models.TimelineEntry{}, &InvalidTransitionError{From: from, To: requested}
	}

	entry := buildTimelineEntryAt(models.ActionStatusChange, fmt.Sprintf("%s -> %s", from, requested), actorID, a.clock())
	entry.From = from
	entry.To = requested

	a.candidate.Stage = requested
	a.candidate.Timeline = append(a.candidate.Timeline, entry)

	stage := requested
	a.changes.Stage = &stage
	a.changes.AppendTimeline = append(a.changes.AppendTimeline, entry)

	return entry, nil
}

// AddScore appends a reviewer score and returns the recomputed aggregate.
func (a *Aggregate) AddScore(entry models.ScoreEntry) (int, error) {
	if err := validateScore(entry); err != nil {
		return a.candidate.FinalScore, err
	}

	a.candidate.Scores = append(a.candidate.Scores, entry)
	final := ComputeFinalScore(a.candidate.Scores)
	a.candidate.FinalScore = final

	details := fmt.Sprintf("rubric %s scored %g, aggregate %d", entry.RubricID, entry.FinalScore, final)
	timeline := buildTimelineEntryAt(models.ActionScore, details, entry.UserID, a.clock())
	a.candidate.Timeline = append(a.candidate.Timeline, timeline)

	a.changes.Scores = append([]models.ScoreEntry(nil), a.candidate.Scores...)
	a.changes.FinalScore = &final
	a.changes.AppendTimeline = append(a.changes.AppendTimeline, timeline)

	return final, nil
}

// AddNote appends a note and its timeline entry. Blank text fails with ErrEmptyNote.
func (a *Aggregate) AddNote(text, authorID string) (models.Note, models.TimelineEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Note{}, models.TimelineEntry{}, ErrEmptyNote
	}

	now := a.clock()
	note := models.Note{Text: text, AuthorID: authorID, CreatedAt: now}
	timeline := buildTimelineEntryAt(models.ActionNote, summarize(text, 120), authorID, now)

	a.candidate.Notes = append(a.candidate.Notes, note)
	a.candidate.Timeline = append(a.candidate.Timeline, timeline)

	a.changes.AppendNotes = append(a.changes.AppendNotes, note)
	a.changes.AppendTimeline = append(a.changes.AppendTimeline, timeline)

	return note, timeline, nil
}

func summarize(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
