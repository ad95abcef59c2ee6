package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"hiring-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

type fakeTransport struct {
	status   int
	respBody string
	err      error
	requests []recordedRequest
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.requests = append(f.requests, recordedRequest{method: req.Method, path: req.URL.Path, body: body})

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(f.respBody)),
	}, nil
}

func sampleCandidate() *models.Candidate {
	pos := "job-1"
	return &models.Candidate{
		ID:              "cand-1",
		OrgID:           "org-1",
		Name:            "Ada Lovelace",
		Emails:          []string{"ada@example.com"},
		Stage:           models.StageInterview,
		PositionApplied: &pos,
		Tags:            []string{"backend"},
		Parsed:          &models.ParsedProfile{Skills: []string{"go", "sql"}},
		FinalScore:      4,
	}
}

func TestIndexCandidate(t *testing.T) {
	tr := &fakeTransport{respBody: `{"result":"created"}`}
	ix := NewIndexer(tr, "candidates")

	require.NoError(t, ix.IndexCandidate(context.Background(), sampleCandidate()))
	require.Len(t, tr.requests, 1)

	req := tr.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/candidates/_doc/org-1:cand-1", req.path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.body), &doc))
	assert.Equal(t, "org-1", doc["orgId"])
	assert.Equal(t, "interview", doc["stage"])
	assert.Equal(t, "job-1", doc["positionApplied"])
	assert.Equal(t, []interface{}{"go", "sql"}, doc["skills"])
}

func TestIndexCandidate_ErrorStatus(t *testing.T) {
	tr := &fakeTransport{status: http.StatusServiceUnavailable, respBody: `{}`}

	err := NewIndexer(tr, "candidates").IndexCandidate(context.Background(), sampleCandidate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestDeleteCandidate_IgnoresMissing(t *testing.T) {
	tr := &fakeTransport{status: http.StatusNotFound, respBody: `{"result":"not_found"}`}

	require.NoError(t, NewIndexer(tr, "candidates").DeleteCandidate(context.Background(), "org-1", "cand-1"))
	require.Len(t, tr.requests, 1)
	assert.Equal(t, http.MethodDelete, tr.requests[0].method)
	assert.Equal(t, "/candidates/_doc/org-1:cand-1", tr.requests[0].path)
}

func TestDeleteCandidate_TransportError(t *testing.T) {
	tr := &fakeTransport{err: errors.New("connection refused")}

	err := NewIndexer(tr, "candidates").DeleteCandidate(context.Background(), "org-1", "cand-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBuildSearchQuery_FiltersTenant(t *testing.T) {
	q := BuildSearchQuery("org-9", "golang")

	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filter := boolQ["filter"].([]interface{})
	require.Len(t, filter, 1)
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"orgId": "org-9"}}, filter[0])

	must := boolQ["must"].([]interface{})
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "golang", mm["query"])
}

func TestSearchCandidates(t *testing.T) {
	tr := &fakeTransport{respBody: `{"hits":{"hits":[{"_source":{"id":"cand-2"}},{"_source":{"id":"cand-1"}}]}}`}
	ix := NewIndexer(tr, "candidates")

	ids, err := ix.SearchCandidates(context.Background(), "org-1", "ada", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"cand-2", "cand-1"}, ids)

	require.Len(t, tr.requests, 1)
	assert.Equal(t, "/candidates/_search", tr.requests[0].path)
	assert.Contains(t, tr.requests[0].body, `"orgId":"org-1"`)
}

func TestSearchCandidates_ErrorStatus(t *testing.T) {
	tr := &fakeTransport{status: http.StatusBadRequest, respBody: `{"error":"bad query"}`}

	_, err := NewIndexer(tr, "candidates").SearchCandidates(context.Background(), "org-1", "ada", 10)
	require.Error(t, err)
}

func TestEnsureIndex_CreatesKeywordMapping(t *testing.T) {
	tr := &fakeTransport{respBody: `{"acknowledged":true}`}

	require.NoError(t, NewIndexer(tr, "candidates").EnsureIndex(context.Background()))

	require.Len(t, tr.requests, 1)
	assert.Equal(t, http.MethodPut, tr.requests[0].method)
	assert.Equal(t, "/candidates", tr.requests[0].path)

	var body struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(tr.requests[0].body), &body))
	props := body.Mappings.Properties
	for _, field := range []string{"id", "orgId", "stage"} {
		assert.Equal(t, "keyword", props[field].Type, field)
	}
	assert.Equal(t, "text", props["name"].Type)
}

func TestIndexMapping_CoversEveryDocumentField(t *testing.T) {
	raw, err := json.Marshal(toDocument(sampleCandidate()))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	props := IndexMapping()["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	for field := range doc {
		assert.Contains(t, props, field)
	}
}

func TestEnsureIndex_ExistingIndexIsFine(t *testing.T) {
	tr := &fakeTransport{
		status:   http.StatusBadRequest,
		respBody: `{"error":{"type":"resource_already_exists_exception","reason":"index [candidates] already exists"},"status":400}`,
	}

	assert.NoError(t, NewIndexer(tr, "candidates").EnsureIndex(context.Background()))
}

func TestEnsureIndex_OtherFailures(t *testing.T) {
	tr := &fakeTransport{
		status:   http.StatusBadRequest,
		respBody: `{"error":{"type":"mapper_parsing_exception"},"status":400}`,
	}
	assert.Error(t, NewIndexer(tr, "candidates").EnsureIndex(context.Background()))

	down := &fakeTransport{err: errors.New("connection refused")}
	assert.Error(t, NewIndexer(down, "candidates").EnsureIndex(context.Background()))
}
