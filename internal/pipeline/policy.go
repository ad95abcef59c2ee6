// Package pipeline owns candidate stage transitions, score aggregation and the
// audit timeline.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"hiring-pipeline/internal/models"
)

var (
	ErrUnknownStage = errors.New("UNKNOWN_STAGE")
	ErrEmptyNote    = errors.New("EMPTY_NOTE")
	ErrInvalidScore = errors.New("INVALID_SCORE")
)

// InvalidTransitionError is returned when the requested stage is not reachable
// from the current one.
type InvalidTransitionError struct {
	From models.Stage
	To   models.Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition from %q to %q", e.From, e.To)
}

// transitions is the closed table of legal next stages. Archived is terminal.
var transitions = map[models.Stage][]models.Stage{
	models.StageApplied:   {models.StageScreening, models.StageRejected},
	models.StageScreening: {models.StageInterview, models.StageRejected},
	models.StageInterview: {models.StageOffer, models.StageRejected},
	models.StageOffer:     {models.StageHired, models.StageRejected},
	models.StageHired:     {models.StageArchived},
	models.StageRejected:  {models.StageArchived, models.StageApplied},
	models.StageArchived:  {},
}

// ValidTransition reports whether requested is a legal next stage of current.
func ValidTransition(current, requested models.Stage) bool {
	for _, next := range transitions[current] {
		if next == requested {
			return true
		}
	}
	return false
}

// NextStages returns the stages reachable from current in one step.
func NextStages(current models.Stage) []models.Stage {
	return append([]models.Stage{}, transitions[current]...)
}

// ParseStage converts client input into a Stage, rejecting unknown values.
func ParseStage(raw string) (models.Stage, error) {
	s := models.Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	return s, nil
}

// ComputeFinalScore is the mean of every entry's FinalScore rounded to the
// nearest integer, or 0 for no entries.
func ComputeFinalScore(scores []models.ScoreEntry) int {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.FinalScore
	}
	return int(math.Round(sum / float64(len(scores))))
}

// BuildTimelineEntry stamps an audit entry with the current UTC time.
func BuildTimelineEntry(action models.TimelineAction, details, actorID string) models.TimelineEntry {
	return buildTimelineEntryAt(action, details, actorID, time.Now().UTC())
}

func buildTimelineEntryAt(action models.TimelineAction, details, actorID string, at time.Time) models.TimelineEntry {
	return models.TimelineEntry{
		Action:      action,
		Details:     details,
		PerformedBy: actorID,
		Timestamp:   at,
	}
}

func validateScore(entry models.ScoreEntry) error {
	if strings.TrimSpace(entry.UserID) == "" {
		return fmt.Errorf("%w: reviewer id is required", ErrInvalidScore)
	}
	if strings.TrimSpace(entry.RubricID) == "" {
		return fmt.Errorf("%w: rubric id is required", ErrInvalidScore)
	}
	if math.IsNaN(entry.FinalScore) || math.IsInf(entry.FinalScore, 0) || entry.FinalScore < 0 {
		return fmt.Errorf("%w: final score must be a non-negative number", ErrInvalidScore)
	}
	return nil
}
