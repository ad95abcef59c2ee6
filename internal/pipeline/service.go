package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"hiring-pipeline/internal/common/config"
	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/common/validation"
	"hiring-pipeline/internal/events"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/storage"

	"github.com/google/uuid"
)

const defaultSource = "Direct"

// Indexer keeps the search index in step with committed writes.
type Indexer interface {
	IndexCandidate(ctx context.Context, c *models.Candidate) error
	DeleteCandidate(ctx context.Context, tenantID, id string) error
	SearchCandidates(ctx context.Context, tenantID, text string, limit int) ([]string, error)
}

// Config tunes timeouts and retries for the service.
type Config struct {
	RequestTimeout time.Duration
	ReadRetries    int
	RetryBackoff   time.Duration
	MaxBulkRecords int
	SearchLimit    int
}

// ConfigFrom converts the loaded pipeline section.
func ConfigFrom(cfg config.PipelineConfig) Config {
	return Config{
		RequestTimeout: config.GetDuration(cfg.RequestTimeout),
		ReadRetries:    cfg.ReadRetries,
		RetryBackoff:   config.GetDuration(cfg.RetryBackoff),
		MaxBulkRecords: cfg.MaxBulkRecords,
		SearchLimit:    cfg.SearchLimit,
	}
}

func (c *Config) setDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.ReadRetries < 0 {
		c.ReadRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	if c.MaxBulkRecords <= 0 {
		c.MaxBulkRecords = 500
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 50
	}
}

type Option func(*Service)

func WithIndexer(ix Indexer) Option {
	return func(s *Service) { s.indexer = ix }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service orchestrates load, aggregate and commit for every pipeline operation.
// Errors returned by Service methods are always *errors.StandardError.
type Service struct {
	store     storage.Gateway
	indexer   Indexer
	publisher events.Publisher
	logger    logger.Logger
	cfg       Config
	clock     Clock
	newID     func() string
}

func NewService(store storage.Gateway, cfg Config, log logger.Logger, opts ...Option) *Service {
	cfg.setDefaults()
	s := &Service{
		store:  store,
		logger: logger.ForComponent(log, "pipeline-service"),
		cfg:    cfg,
		clock:  SystemClock,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==========================
// Reads
// ==========================

// GetCandidate returns NOT_FOUND both for absent ids and ids of another tenant.
func (s *Service) GetCandidate(ctx context.Context, tenantID, id string) (_ *models.Candidate, err error) {
	const op = "get_candidate"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID, id); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, s.translate(ctx, op, id, err)
	}
	return c, nil
}

// ListCandidates returns the tenant's candidates newest first.
func (s *Service) ListCandidates(ctx context.Context, tenantID string, filter models.CandidateFilter) (_ []*models.Candidate, err error) {
	const op = "list_candidates"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID); err != nil {
		return nil, err
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown stage %q", filter.Stage), nil)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := retryRead(ctx, s, func(ctx context.Context) ([]*models.Candidate, error) {
		return s.store.Find(ctx, tenantID, filter)
	})
	if err != nil {
		return nil, s.translate(ctx, op, "", err)
	}
	if list == nil {
		list = []*models.Candidate{}
	}
	return list, nil
}

// NextStages returns the stages the candidate can move to from where it is now.
func (s *Service) NextStages(ctx context.Context, tenantID, id string) ([]models.Stage, error) {
	c, err := s.GetCandidate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return NextStages(c.Stage), nil
}

// SearchCandidates runs a full-text query within one tenant. Without an index,
// or when the index is unavailable, it falls back to a substring scan.
func (s *Service) SearchCandidates(ctx context.Context, tenantID, query string) (_ []*models.Candidate, err error) {
	const op = "search_candidates"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("search query is required", nil)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if s.indexer != nil {
		found, err := s.searchIndexed(ctx, tenantID, query)
		if err == nil {
			return found, nil
		}
		if ctx.Err() != nil {
			return nil, s.translate(ctx, op, "", err)
		}
		s.logger.Warn("search index unavailable, scanning store", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err.Error(),
		})
	}

	list, err := retryRead(ctx, s, func(ctx context.Context) ([]*models.Candidate, error) {
		return s.store.Find(ctx, tenantID, models.CandidateFilter{})
	})
	if err != nil {
		return nil, s.translate(ctx, op, "", err)
	}

	needle := strings.ToLower(query)
	out := []*models.Candidate{}
	for _, c := range list {
		if matchesText(c, needle) {
			out = append(out, c)
			if len(out) == s.cfg.SearchLimit {
				break
			}
		}
	}
	return out, nil
}

func (s *Service) searchIndexed(ctx context.Context, tenantID, query string) ([]*models.Candidate, error) {
	ids, err := s.indexer.SearchCandidates(ctx, tenantID, query, s.cfg.SearchLimit)
	if err != nil {
		return nil, err
	}

	// Documents are re-read from the store so the result reflects committed
	// state and stale index entries for deleted candidates are dropped.
	out := make([]*models.Candidate, 0, len(ids))
	for _, id := range ids {
		c, err := s.load(ctx, tenantID, id)
		if stderrors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesText(c *models.Candidate, needle string) bool {
	fields := []string{c.Name}
	fields = append(fields, c.Emails...)
	fields = append(fields, c.Tags...)
	if c.Parsed != nil {
		fields = append(fields, c.Parsed.Skills...)
		fields = append(fields, c.Parsed.Companies...)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ==========================
// Pipeline writes
// ==========================

// UpdateStage moves a candidate to stage. The stage and its status_change
// entry are committed in one write guarded by the version that was read.
func (s *Service) UpdateStage(ctx context.Context, tenantID, id, stage, actorID string) (_ *models.Candidate, err error) {
	const op = "update_stage"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID, id); err != nil {
		return nil, err
	}
	requested, err := ParseStage(stage)
	if err != nil {
		return nil, s.translate(ctx, op, id, err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, s.translate(ctx, op, id, err)
	}

	expected := current.Version
	agg := NewAggregate(current, s.clock)
	entry, err := agg.ApplyStageChange(requested, actorID)
	if err != nil {
		metrics.StageTransitionsRejected.WithLabelValues(string(current.Stage), string(requested)).Inc()
		return nil, s.translate(ctx, op, id, err)
	}

	updated, err := s.store.Update(ctx, tenantID, id, mutationFrom(agg.Changes(), &expected))
	if err != nil {
		return nil, s.translateWrite(ctx, op, id, expected, err)
	}

	metrics.StageTransitions.WithLabelValues(string(entry.From), string(entry.To)).Inc()
	s.logger.Info("candidate stage changed", map[string]interface{}{
		"tenantId":    tenantID,
		"candidateId": id,
		"from":        entry.From,
		"to":          entry.To,
		"actorId":     actorID,
		"version":     updated.Version,
	})

	evt := events.New(events.TypeStageChanged, tenantID, id, actorID)
	evt.From, evt.To = entry.From, entry.To
	s.afterCommit(ctx, updated, evt)
	return updated, nil
}

// RecordScore appends a reviewer score and stores the recomputed aggregate.
func (s *Service) RecordScore(ctx context.Context, tenantID, id string, score models.ScoreEntry) (_ *models.Candidate, err error) {
	const op = "record_score"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID, id); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, s.translate(ctx, op, id, err)
	}

	expected := current.Version
	agg := NewAggregate(current, s.clock)
	final, err := agg.AddScore(score)
	if err != nil {
		return nil, s.translate(ctx, op, id, err)
	}

	updated, err := s.store.Update(ctx, tenantID, id, mutationFrom(agg.Changes(), &expected))
	if err != nil {
		return nil, s.translateWrite(ctx, op, id, expected, err)
	}

	evt := events.New(events.TypeScoreRecorded, tenantID, id, score.UserID)
	evt.FinalScore = &final
	s.afterCommit(ctx, updated, evt)
	return updated, nil
}

// AddNote appends a note and its timeline entry atomically. Concurrent notes
// never conflict with each other or with stage changes.
func (s *Service) AddNote(ctx context.Context, tenantID, id, text, authorID string) (_ *models.Candidate, err error) {
	const op = "add_note"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID, id); err != nil {
		return nil, err
	}

	agg := NewAggregate(&models.Candidate{ID: id, OrgID: tenantID}, s.clock)
	note, timeline, err := agg.AddNote(text, authorID)
	if err != nil {
		return nil, s.translate(ctx, op, id, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := storage.Append(ctx, s.store, tenantID, id, []models.Note{note}, []models.TimelineEntry{timeline})
	if err != nil {
		return nil, s.translateWrite(ctx, op, id, 0, err)
	}

	s.afterCommit(ctx, updated, events.New(events.TypeNoteAdded, tenantID, id, authorID))
	return updated, nil
}

// ==========================
// Profile writes
// ==========================

// CreateCandidate stores a new candidate in the applied stage. Pipeline-owned
// fields always start empty.
func (s *Service) CreateCandidate(ctx context.Context, tenantID string, input models.CandidateInput, actorID string) (_ *models.Candidate, err error) {
	const op = "create_candidate"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created, err := s.insert(ctx, op, tenantID, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("candidate created", map[string]interface{}{
		"tenantId":    tenantID,
		"candidateId": created.ID,
		"actorId":     actorID,
	})
	s.afterCommit(ctx, created, events.New(events.TypeCandidateCreated, tenantID, created.ID, actorID))
	return created, nil
}

func (s *Service) insert(ctx context.Context, op, tenantID string, input models.CandidateInput) (*models.Candidate, error) {
	if err := validateDocument(validation.SchemaCandidateInput, input); err != nil {
		return nil, err
	}

	now := s.clock()
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = defaultSource
	}

	c := &models.Candidate{
		ID:              s.newID(),
		OrgID:           tenantID,
		Name:            strings.TrimSpace(input.Name),
		Emails:          input.Emails,
		Phones:          input.Phones,
		PositionApplied: input.PositionApplied,
		Stage:           models.StageApplied,
		Source:          source,
		Tags:            input.Tags,
		Priority:        input.Priority,
		IsTalentPool:    input.IsTalentPool,
		Parsed:          input.Parsed,
		AssignedTo:      input.AssignedTo,
		NoticePeriod:    input.NoticePeriod,
		ExpectedSalary:  input.ExpectedSalary,
		LinkedIn:        input.LinkedIn,
		InterviewDate:   input.InterviewDate,
		Ratings:         input.Ratings,
		Scores:          []models.ScoreEntry{},
		Timeline:        []models.TimelineEntry{},
		Notes:           []models.Note{},
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.store.Insert(ctx, tenantID, c)
	if err != nil {
		return nil, s.translateWrite(ctx, op, c.ID, 0, err)
	}
	return created, nil
}

// UpdateCandidate applies a profile patch. Stage, scores and timeline are
// never patchable; emails and phones are appended.
func (s *Service) UpdateCandidate(ctx context.Context, tenantID, id string, patch models.CandidatePatch, actorID string) (_ *models.Candidate, err error) {
	const op = "update_candidate"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID, id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errors.NewValidationError("no fields to update", nil)
	}
	if err := validateDocument(validation.SchemaCandidatePatch, patch); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := s.store.Update(ctx, tenantID, id, storage.Mutation{Patch: &patch})
	if err != nil {
		return nil, s.translateWrite(ctx, op, id, 0, err)
	}

	s.afterCommit(ctx, updated, events.New(events.TypeCandidateUpdated, tenantID, id, actorID))
	return updated, nil
}

// DeleteCandidate removes the candidate and its search document.
func (s *Service) DeleteCandidate(ctx context.Context, tenantID, id, actorID string) (err error) {
	const op = "delete_candidate"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID, id); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.DeleteOne(ctx, tenantID, id); err != nil {
		return s.translateWrite(ctx, op, id, 0, err)
	}

	s.logger.Info("candidate deleted", map[string]interface{}{
		"tenantId":    tenantID,
		"candidateId": id,
		"actorId":     actorID,
	})

	sctx, scancel := s.sideEffectContext(ctx)
	defer scancel()
	if s.indexer != nil {
		if err := s.indexer.DeleteCandidate(sctx, tenantID, id); err != nil {
			s.sideEffectFailed("search", id, err)
		}
	}
	s.publish(sctx, events.New(events.TypeCandidateDeleted, tenantID, id, actorID))
	return nil
}

// BulkImport validates and inserts each record independently. One bad record
// never blocks the rest; each failure is reported with its input index.
func (s *Service) BulkImport(ctx context.Context, tenantID string, records []models.CandidateInput, actorID string) (_ *models.BulkImportResult, err error) {
	const op = "bulk_import"
	defer s.observe(op, time.Now(), &err)

	if err := requireIDs(tenantID); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewValidationError("at least one record is required", nil)
	}
	if len(records) > s.cfg.MaxBulkRecords {
		return nil, errors.NewValidationError(
			fmt.Sprintf("at most %d records can be imported at once", s.cfg.MaxBulkRecords), nil)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := &models.BulkImportResult{
		Created: []*models.Candidate{},
		Failed:  []models.BulkImportFailure{},
	}
	for i, rec := range records {
		if ctx.Err() != nil {
			timeout := errors.NewTimeoutError(op, s.cfg.RequestTimeout)
			for j := i; j < len(records); j++ {
				result.Failed = append(result.Failed, failureAt(j, timeout))
			}
			break
		}

		created, err := s.insert(ctx, op, tenantID, rec)
		if err != nil {
			result.Failed = append(result.Failed, failureAt(i, errors.Normalize(err)))
			continue
		}
		result.Created = append(result.Created, created)
	}

	s.logger.Info("bulk import finished", map[string]interface{}{
		"tenantId": tenantID,
		"actorId":  actorID,
		"created":  len(result.Created),
		"failed":   len(result.Failed),
	})

	if len(result.Created) > 0 {
		sctx, scancel := s.sideEffectContext(ctx)
		defer scancel()
		if s.indexer != nil {
			for _, c := range result.Created {
				if err := s.indexer.IndexCandidate(sctx, c); err != nil {
					s.sideEffectFailed("search", c.ID, err)
				}
			}
		}
		evt := events.New(events.TypeCandidatesImported, tenantID, "", actorID)
		evt.Count = len(result.Created)
		s.publish(sctx, evt)
	}
	return result, nil
}

func failureAt(index int, e *errors.StandardError) models.BulkImportFailure {
	return models.BulkImportFailure{Index: index, Code: string(e.Code), Message: e.Message}
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Ping(ctx)
}

// ==========================
// Helpers
// ==========================

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *Service) load(ctx context.Context, tenantID, id string) (*models.Candidate, error) {
	return retryRead(ctx, s, func(ctx context.Context) (*models.Candidate, error) {
		return s.store.FindOne(ctx, tenantID, id)
	})
}

// retryRead retries transient storage failures with exponential backoff.
// Not-found, conflicts and deadline errors are returned immediately.
func retryRead[T any](ctx context.Context, s *Service, fn func(context.Context) (T, error)) (T, error) {
	backoff := s.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil || !transient(ctx, err) || attempt >= s.cfg.ReadRetries {
			return v, err
		}

		s.logger.Debug("retrying read", map[string]interface{}{
			"attempt": attempt + 1,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		backoff *= 2
	}
}

func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !stderrors.Is(err, storage.ErrNotFound) &&
		!stderrors.Is(err, storage.ErrConflict) &&
		!stderrors.Is(err, context.DeadlineExceeded) &&
		!stderrors.Is(err, context.Canceled)
}

func mutationFrom(ch Changes, expected *int64) storage.Mutation {
	return storage.Mutation{
		ExpectedVersion: expected,
		Stage:           ch.Stage,
		Scores:          ch.Scores,
		FinalScore:      ch.FinalScore,
		AppendTimeline:  ch.AppendTimeline,
		AppendNotes:     ch.AppendNotes,
	}
}

// translateWrite is translate with the version a conditional write expected.
func (s *Service) translateWrite(ctx context.Context, op, id string, expected int64, err error) *errors.StandardError {
	if stderrors.Is(err, storage.ErrConflict) {
		metrics.VersionConflicts.WithLabelValues(op).Inc()
		s.logger.Warn("version conflict", map[string]interface{}{
			"operation":       op,
			"candidateId":     id,
			"expectedVersion": expected,
		})
		return errors.NewConflictError(id, expected)
	}
	return s.translate(ctx, op, id, err)
}

// translate maps domain and storage errors onto the public error taxonomy.
// Unexpected causes are logged here and nowhere else.
func (s *Service) translate(ctx context.Context, op, id string, err error) *errors.StandardError {
	var invalid *InvalidTransitionError
	var std *errors.StandardError

	switch {
	case stderrors.As(err, &std):
		return std
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NewNotFoundError("candidate", id)
	case stderrors.Is(err, storage.ErrConflict):
		return s.translateWrite(ctx, op, id, 0, err)
	case stderrors.As(err, &invalid):
		return errors.NewInvalidTransitionError(string(invalid.From), string(invalid.To))
	case stderrors.Is(err, ErrEmptyNote):
		return errors.NewEmptyNoteError()
	case stderrors.Is(err, ErrUnknownStage):
		return errors.NewValidationError(strings.TrimPrefix(err.Error(), ErrUnknownStage.Error()+": "), nil)
	case stderrors.Is(err, ErrInvalidScore):
		return errors.NewValidationError(strings.TrimPrefix(err.Error(), ErrInvalidScore.Error()+": "), nil)
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled), ctx.Err() != nil:
		return errors.NewTimeoutError(op, s.cfg.RequestTimeout)
	}

	s.logger.Error("storage operation failed", map[string]interface{}{
		"operation":   op,
		"candidateId": id,
		"error":       err.Error(),
	})
	return errors.NewStorageError(op, err)
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	code := "OK"
	if *errp != nil {
		code = string(errors.Normalize(*errp).Code)
	}
	metrics.OperationDuration.WithLabelValues(op, code).Observe(time.Since(start).Seconds())
}

// sideEffectContext outlives the caller's cancellation so a committed write
// still reaches the index and event sinks.
func (s *Service) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RequestTimeout)
}

// afterCommit indexes and publishes. Failures are logged and never undo the write.
func (s *Service) afterCommit(ctx context.Context, c *models.Candidate, evt events.Event) {
	sctx, cancel := s.sideEffectContext(ctx)
	defer cancel()

	if s.indexer != nil {
		if err := s.indexer.IndexCandidate(sctx, c); err != nil {
			s.sideEffectFailed("search", c.ID, err)
		}
	}
	s.publish(sctx, evt)
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.sideEffectFailed("events", evt.CandidateID, err)
	}
}

func (s *Service) sideEffectFailed(sink, id string, err error) {
	metrics.SideEffectFailures.WithLabelValues(sink).Inc()
	s.logger.Warn("post-commit side effect failed", map[string]interface{}{
		"sink":        sink,
		"candidateId": id,
		"error":       err.Error(),
	})
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errors.NewValidationError("tenant and candidate ids are required", nil)
		}
	}
	return nil
}

func validateDocument(schema string, doc interface{}) error {
	result, err := validation.Validate(schema, doc)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !result.Valid {
		return errors.NewValidationError("Candidate payload failed validation", result.GetErrorMessages())
	}
	return nil
}
