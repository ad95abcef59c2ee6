package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hiring-pipeline/internal/common/config"
	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/events"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

// hookedStore wraps the in-memory store and lets tests inject failures.
type hookedStore struct {
	*storage.MemoryStore
	findOneErrs  []error
	findOneCalls int32
	updateCalls  int32
	beforeUpdate func()
	updateErr    error
	block        bool
	mu           sync.Mutex
}

func newHookedStore() *hookedStore {
	return &hookedStore{MemoryStore: storage.NewMemoryStore()}
}

func (h *hookedStore) FindOne(ctx context.Context, tenantID, id string) (*models.Candidate, error) {
	atomic.AddInt32(&h.findOneCalls, 1)
	if h.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	h.mu.Lock()
	if len(h.findOneErrs) > 0 {
		err := h.findOneErrs[0]
		h.findOneErrs = h.findOneErrs[1:]
		h.mu.Unlock()
		return nil, err
	}
	h.mu.Unlock()
	return h.MemoryStore.FindOne(ctx, tenantID, id)
}

func (h *hookedStore) Update(ctx context.Context, tenantID, id string, m storage.Mutation) (*models.Candidate, error) {
	atomic.AddInt32(&h.updateCalls, 1)
	if h.beforeUpdate != nil {
		h.beforeUpdate()
	}
	if h.updateErr != nil {
		return nil, h.updateErr
	}
	return h.MemoryStore.Update(ctx, tenantID, id, m)
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
	ids     []string
	limit   int
	err     error
}

func (f *fakeIndexer) IndexCandidate(_ context.Context, c *models.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, c.ID)
	return f.err
}

func (f *fakeIndexer) DeleteCandidate(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeIndexer) SearchCandidates(_ context.Context, _, _ string, limit int) ([]string, error) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func sequentialIDs() func() string {
	var n int32
	return func() string {
		return fmt.Sprintf("cand-%d", atomic.AddInt32(&n, 1))
	}
}

func newTestService(t *testing.T, store storage.Gateway, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock), WithIDGenerator(sequentialIDs())}, opts...)
	return NewService(store, Config{
		RequestTimeout: time.Second,
		ReadRetries:    2,
		RetryBackoff:   time.Millisecond,
		MaxBulkRecords: 10,
	}, logger.NewTestLogger(t), opts...)
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) *errors.StandardError {
	t.Helper()
	require.Error(t, err)
	std, ok := errors.As(err)
	require.True(t, ok, "expected StandardError, got %T: %v", err, err)
	require.Equal(t, code, std.Code, std.Message)
	return std
}

func seed(t *testing.T, svc *Service, tenantID, name string) *models.Candidate {
	t.Helper()
	c, err := svc.CreateCandidate(context.Background(), tenantID, models.CandidateInput{Name: name}, "user-1")
	require.NoError(t, err)
	return c
}

// ==========================
// Create / read
// ==========================

func TestCreateCandidate_Defaults(t *testing.T) {
	store := storage.NewMemoryStore()
	pub := &fakePublisher{}
	ix := &fakeIndexer{}
	svc := newTestService(t, store, WithPublisher(pub), WithIndexer(ix))

	pos := "job-7"
	c, err := svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{
		Name:            "  Grace Hopper ",
		Emails:          []string{"grace@example.com"},
		PositionApplied: &pos,
	}, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "cand-1", c.ID)
	assert.Equal(t, "org-1", c.OrgID)
	assert.Equal(t, "Grace Hopper", c.Name)
	assert.Equal(t, models.StageApplied, c.Stage)
	assert.Equal(t, "Direct", c.Source)
	assert.Equal(t, 0, c.FinalScore)
	assert.Empty(t, c.Scores)
	assert.Empty(t, c.Timeline)
	assert.Equal(t, fixedNow, c.CreatedAt)

	assert.Equal(t, []string{events.TypeCandidateCreated}, pub.types())
	assert.Equal(t, []string{"cand-1"}, ix.indexed)
}

func TestCreateCandidate_Validation(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())

	_, err := svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{Name: "   "}, "user-1")
	requireCode(t, err, errors.ErrCodeValidationFailed)

	_, err = svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{
		Name:   "Ada",
		Emails: []string{"not-an-email"},
	}, "user-1")
	std := requireCode(t, err, errors.ErrCodeValidationFailed)
	assert.NotEmpty(t, std.Metadata["errors"])

	_, err = svc.CreateCandidate(context.Background(), "", models.CandidateInput{Name: "Ada"}, "user-1")
	requireCode(t, err, errors.ErrCodeValidationFailed)
}

func TestGetCandidate_TenantIsolation(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = svc.GetCandidate(context.Background(), "org-2", c.ID)
	requireCode(t, err, errors.ErrCodeNotFound)

	_, err = svc.UpdateStage(context.Background(), "org-2", c.ID, "screening", "user-9")
	requireCode(t, err, errors.ErrCodeNotFound)

	_, err = svc.AddNote(context.Background(), "org-2", c.ID, "hello", "user-9")
	requireCode(t, err, errors.ErrCodeNotFound)

	err = svc.DeleteCandidate(context.Background(), "org-2", c.ID, "user-9")
	requireCode(t, err, errors.ErrCodeNotFound)

	list, err := svc.ListCandidates(context.Background(), "org-2", models.CandidateFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListCandidates_FiltersAndOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	now := fixedNow
	clock := func() time.Time { now = now.Add(time.Minute); return now }
	svc := newTestService(t, store, WithClock(clock))

	job := "job-1"
	first, err := svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{Name: "First", PositionApplied: &job}, "u")
	require.NoError(t, err)
	second := seed(t, svc, "org-1", "Second")
	third, err := svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{Name: "Third", PositionApplied: &job}, "u")
	require.NoError(t, err)

	_, err = svc.UpdateStage(context.Background(), "org-1", second.ID, "screening", "u")
	require.NoError(t, err)

	all, err := svc.ListCandidates(context.Background(), "org-1", models.CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	byJob, err := svc.ListCandidates(context.Background(), "org-1", models.CandidateFilter{JobID: "job-1"})
	require.NoError(t, err)
	assert.Len(t, byJob, 2)

	byStage, err := svc.ListCandidates(context.Background(), "org-1", models.CandidateFilter{Stage: models.StageScreening})
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, second.ID, byStage[0].ID)

	_, err = svc.ListCandidates(context.Background(), "org-1", models.CandidateFilter{Stage: "nope"})
	requireCode(t, err, errors.ErrCodeValidationFailed)
}

// ==========================
// Stage changes
// ==========================

func TestUpdateStage_EndToEnd(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, storage.NewMemoryStore(), WithPublisher(pub))
	c := seed(t, svc, "org-1", "Ada")

	for _, next := range []string{"screening", "interview", "offer", "hired"} {
		updated, err := svc.UpdateStage(context.Background(), "org-1", c.ID, next, "recruiter-1")
		require.NoError(t, err, next)
		assert.Equal(t, models.Stage(next), updated.Stage)
	}

	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageHired, got.Stage)
	require.Len(t, got.Timeline, 4)
	last := got.Timeline[3]
	assert.Equal(t, models.ActionStatusChange, last.Action)
	assert.Equal(t, models.StageOffer, last.From)
	assert.Equal(t, models.StageHired, last.To)
	assert.Equal(t, "recruiter-1", last.PerformedBy)
	assert.Equal(t, int64(5), got.Version)

	pub.mu.Lock()
	stageEvt := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	assert.Equal(t, events.TypeStageChanged, stageEvt.Type)
	assert.Equal(t, models.StageOffer, stageEvt.From)
	assert.Equal(t, models.StageHired, stageEvt.To)
}

func TestUpdateStage_InvalidTransition(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "hired", "user-1")
	std := requireCode(t, err, errors.ErrCodeInvalidTransition)
	assert.Equal(t, "applied", std.Metadata["from"])
	assert.Equal(t, "hired", std.Metadata["to"])

	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageApplied, got.Stage)
	assert.Empty(t, got.Timeline)
	assert.Equal(t, c.Version, got.Version)
}

func TestUpdateStage_UnknownStage(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "onboarding", "user-1")
	requireCode(t, err, errors.ErrCodeValidationFailed)
}

func TestUpdateStage_RejectedCanReopen(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "rejected", "user-1")
	require.NoError(t, err)
	reopened, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "applied", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageApplied, reopened.Stage)
	assert.Len(t, reopened.Timeline, 2)
}

func TestUpdateStage_ConflictWhenChangedConcurrently(t *testing.T) {
	store := newHookedStore()
	svc := newTestService(t, store)
	c := seed(t, svc, "org-1", "Ada")

	// Another writer lands between our read and our conditional write.
	store.beforeUpdate = func() {
		store.beforeUpdate = nil
		_, err := store.MemoryStore.Update(context.Background(), "org-1", c.ID, storage.Mutation{
			AppendNotes: []models.Note{{Text: "concurrent", AuthorID: "other"}},
		})
		require.NoError(t, err)
	}

	_, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "screening", "user-1")
	requireCode(t, err, errors.ErrCodeConflict)

	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageApplied, got.Stage)
	assert.Empty(t, got.Timeline)
}

func TestUpdateStage_ConcurrentRequestsCommitOnce(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	const workers = 20
	var wg sync.WaitGroup
	var successes int32
	codes := make(chan errors.ErrorCode, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "screening", "user-1")
			if err == nil {
				atomic.AddInt32(&successes, 1)
				return
			}
			std, _ := errors.As(err)
			codes <- std.Code
		}()
	}
	wg.Wait()
	close(codes)

	assert.Equal(t, int32(1), successes)
	for code := range codes {
		assert.Contains(t, []errors.ErrorCode{errors.ErrCodeConflict, errors.ErrCodeInvalidTransition}, code)
	}

	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Timeline, 1)
}

func TestNextStages_ForCandidate(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	next, err := svc.NextStages(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Stage{models.StageScreening, models.StageRejected}, next)

	_, err = svc.NextStages(context.Background(), "org-1", "missing")
	requireCode(t, err, errors.ErrCodeNotFound)
}

// ==========================
// Scores and notes
// ==========================

func TestRecordScore(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, storage.NewMemoryStore(), WithPublisher(pub))
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.RecordScore(context.Background(), "org-1", c.ID, models.ScoreEntry{
		UserID: "r1", RubricID: "tech", FinalScore: 3, Values: map[string]interface{}{"go": 3},
	})
	require.NoError(t, err)
	updated, err := svc.RecordScore(context.Background(), "org-1", c.ID, models.ScoreEntry{
		UserID: "r2", RubricID: "tech", FinalScore: 4, Comments: "solid",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, updated.FinalScore)
	assert.Len(t, updated.Scores, 2)
	require.Len(t, updated.Timeline, 2)
	assert.Equal(t, models.ActionScore, updated.Timeline[1].Action)

	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	require.NotNil(t, last.FinalScore)
	assert.Equal(t, 4, *last.FinalScore)
}

func TestRecordScore_Invalid(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.RecordScore(context.Background(), "org-1", c.ID, models.ScoreEntry{UserID: "r1", FinalScore: 3})
	std := requireCode(t, err, errors.ErrCodeValidationFailed)
	assert.Equal(t, "rubric id is required", std.Message)
}

func TestService_AddNote(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	updated, err := svc.AddNote(context.Background(), "org-1", c.ID, "great culture fit", "user-2")
	require.NoError(t, err)

	require.Len(t, updated.Notes, 1)
	assert.Equal(t, "great culture fit", updated.Notes[0].Text)
	require.Len(t, updated.Timeline, 1)
	assert.Equal(t, models.ActionNote, updated.Timeline[0].Action)
	assert.Equal(t, "user-2", updated.Timeline[0].PerformedBy)
}

func TestService_AddNote_Empty(t *testing.T) {
	store := newHookedStore()
	svc := newTestService(t, store)
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.AddNote(context.Background(), "org-1", c.ID, "   ", "user-2")
	requireCode(t, err, errors.ErrCodeEmptyNote)
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.updateCalls))
}

func TestService_AddNote_ConcurrentAppendsAllLand(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddNote(context.Background(), "org-1", c.ID, fmt.Sprintf("note %d", i), "user-1")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Notes, writers)
	assert.Len(t, got.Timeline, writers)
}

// ==========================
// Profile updates and delete
// ==========================

func TestUpdateCandidate_AppendsContacts(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c, err := svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{
		Name:   "Ada",
		Emails: []string{"ada@example.com"},
	}, "user-1")
	require.NoError(t, err)

	name := "Ada King"
	updated, err := svc.UpdateCandidate(context.Background(), "org-1", c.ID, models.CandidatePatch{
		Name:   &name,
		Emails: []string{"ada@work.example.com"},
	}, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, []string{"ada@example.com", "ada@work.example.com"}, updated.Emails)
	assert.Equal(t, models.StageApplied, updated.Stage)
}

func TestUpdateCandidate_EmptyPatch(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	c := seed(t, svc, "org-1", "Ada")

	_, err := svc.UpdateCandidate(context.Background(), "org-1", c.ID, models.CandidatePatch{}, "user-1")
	requireCode(t, err, errors.ErrCodeValidationFailed)
}

func TestDeleteCandidate(t *testing.T) {
	ix := &fakeIndexer{}
	pub := &fakePublisher{}
	svc := newTestService(t, storage.NewMemoryStore(), WithIndexer(ix), WithPublisher(pub))
	c := seed(t, svc, "org-1", "Ada")

	require.NoError(t, svc.DeleteCandidate(context.Background(), "org-1", c.ID, "user-1"))

	_, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	requireCode(t, err, errors.ErrCodeNotFound)
	assert.Equal(t, []string{c.ID}, ix.deleted)
	assert.Contains(t, pub.types(), events.TypeCandidateDeleted)
}

// ==========================
// Bulk import
// ==========================

func TestBulkImport_PerRecordReporting(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, storage.NewMemoryStore(), WithPublisher(pub))

	result, err := svc.BulkImport(context.Background(), "org-1", []models.CandidateInput{
		{Name: "Ada"},
		{Name: ""},
		{Name: "Grace", Source: "Referral"},
	}, "user-1")
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	assert.Equal(t, "Ada", result.Created[0].Name)
	assert.Equal(t, "Referral", result.Created[1].Source)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, string(errors.ErrCodeValidationFailed), result.Failed[0].Code)

	list, err := svc.ListCandidates(context.Background(), "org-1", models.CandidateFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.Equal(t, []string{events.TypeCandidatesImported}, pub.types())
	assert.Equal(t, 2, pub.events[0].Count)
}

func TestBulkImport_Limits(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())

	_, err := svc.BulkImport(context.Background(), "org-1", nil, "user-1")
	requireCode(t, err, errors.ErrCodeValidationFailed)

	records := make([]models.CandidateInput, 11)
	for i := range records {
		records[i] = models.CandidateInput{Name: fmt.Sprintf("c%d", i)}
	}
	_, err = svc.BulkImport(context.Background(), "org-1", records, "user-1")
	requireCode(t, err, errors.ErrCodeValidationFailed)
}

func TestBulkImport_AllFailedStillReports(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, storage.NewMemoryStore(), WithPublisher(pub))

	result, err := svc.BulkImport(context.Background(), "org-1", []models.CandidateInput{{Name: ""}, {Name: " "}}, "user-1")
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Len(t, result.Failed, 2)
	assert.Empty(t, pub.types())
}

// ==========================
// Search
// ==========================

func TestSearchCandidates_FallbackScan(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	_, err := svc.CreateCandidate(context.Background(), "org-1", models.CandidateInput{
		Name:   "Ada",
		Parsed: &models.ParsedProfile{Skills: []string{"Golang", "Postgres"}},
	}, "u")
	require.NoError(t, err)
	seed(t, svc, "org-1", "Grace")
	seed(t, svc, "org-2", "Golang Gopher")

	found, err := svc.SearchCandidates(context.Background(), "org-1", "golang")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada", found[0].Name)

	_, err = svc.SearchCandidates(context.Background(), "org-1", "  ")
	requireCode(t, err, errors.ErrCodeValidationFailed)
}

func TestSearchCandidates_UsesIndexAndDropsStaleHits(t *testing.T) {
	ix := &fakeIndexer{}
	svc := newTestService(t, storage.NewMemoryStore(), WithIndexer(ix))
	a := seed(t, svc, "org-1", "Ada")
	b := seed(t, svc, "org-1", "Grace")

	ix.ids = []string{b.ID, "deleted-id", a.ID}
	found, err := svc.SearchCandidates(context.Background(), "org-1", "anything")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, b.ID, found[0].ID)
	assert.Equal(t, a.ID, found[1].ID)
}

func TestSearchCandidates_IndexDownFallsBack(t *testing.T) {
	ix := &fakeIndexer{}
	svc := newTestService(t, storage.NewMemoryStore(), WithIndexer(ix))
	seed(t, svc, "org-1", "Ada")
	ix.err = stderrors.New("cluster red")

	found, err := svc.SearchCandidates(context.Background(), "org-1", "ada")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

// ==========================
// Failure handling
// ==========================

func TestSideEffectFailuresDoNotUndoCommit(t *testing.T) {
	ix := &fakeIndexer{err: stderrors.New("index down")}
	pub := &fakePublisher{err: stderrors.New("broker down")}
	svc := newTestService(t, storage.NewMemoryStore(), WithIndexer(ix), WithPublisher(pub))
	c := seed(t, svc, "org-1", "Ada")

	updated, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "screening", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageScreening, updated.Stage)
}

func TestReadsRetryTransientStorageErrors(t *testing.T) {
	store := newHookedStore()
	svc := newTestService(t, store)
	c := seed(t, svc, "org-1", "Ada")

	store.findOneErrs = []error{stderrors.New("conn reset"), stderrors.New("conn reset")}
	got, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.findOneCalls))
}

func TestReadsGiveUpAfterRetries(t *testing.T) {
	store := newHookedStore()
	svc := newTestService(t, store)
	c := seed(t, svc, "org-1", "Ada")

	boom := stderrors.New("conn reset")
	store.findOneErrs = []error{boom, boom, boom}
	_, err := svc.GetCandidate(context.Background(), "org-1", c.ID)
	std := requireCode(t, err, errors.ErrCodeStorageError)
	assert.True(t, std.Retryable)
	assert.NotContains(t, std.Message, "conn reset")
}

func TestNotFoundIsNotRetried(t *testing.T) {
	store := newHookedStore()
	svc := newTestService(t, store)

	_, err := svc.GetCandidate(context.Background(), "org-1", "missing")
	requireCode(t, err, errors.ErrCodeNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.findOneCalls))
}

func TestWritesAreNotRetried(t *testing.T) {
	store := newHookedStore()
	svc := newTestService(t, store)
	c := seed(t, svc, "org-1", "Ada")

	store.updateErr = stderrors.New("conn reset")
	_, err := svc.UpdateStage(context.Background(), "org-1", c.ID, "screening", "user-1")
	requireCode(t, err, errors.ErrCodeStorageError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.updateCalls))
}

func TestRequestTimeout(t *testing.T) {
	store := newHookedStore()
	store.block = true
	svc := NewService(store, Config{RequestTimeout: 20 * time.Millisecond}, logger.NewNoOpLogger())

	start := time.Now()
	_, err := svc.GetCandidate(context.Background(), "org-1", "cand-1")
	requireCode(t, err, errors.ErrCodeTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCancelledContextMapsToTimeout(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ListCandidates(ctx, "org-1", models.CandidateFilter{})
	requireCode(t, err, errors.ErrCodeTimeout)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.PipelineConfig{
		RequestTimeout: 2500,
		ReadRetries:    1,
		RetryBackoff:   10,
		MaxBulkRecords: 50,
		SearchLimit:    7,
	})

	assert.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 1, cfg.ReadRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 50, cfg.MaxBulkRecords)
	assert.Equal(t, 7, cfg.SearchLimit)
}

func TestSearchCandidates_HonoursConfiguredLimit(t *testing.T) {
	ctx := context.Background()
	cfg := ConfigFrom(config.PipelineConfig{SearchLimit: 2})

	scan := NewService(storage.NewMemoryStore(), cfg, logger.NewTestLogger(t), WithClock(fixedClock), WithIDGenerator(sequentialIDs()))
	for _, name := range []string{"Ada One", "Ada Two", "Ada Three"} {
		seed(t, scan, "org-1", name)
	}
	found, err := scan.SearchCandidates(ctx, "org-1", "ada")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	ix := &fakeIndexer{}
	indexed := NewService(storage.NewMemoryStore(), cfg, logger.NewTestLogger(t), WithIndexer(ix))
	_, err = indexed.SearchCandidates(ctx, "org-1", "ada")
	require.NoError(t, err)
	assert.Equal(t, 2, ix.limit)
}
