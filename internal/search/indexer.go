// Package search keeps a full-text index of candidates in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"hiring-pipeline/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultLimit = 20

// Indexer writes candidate documents to one index. Documents are keyed by
// tenant and candidate id, and every query filters on orgId.
type Indexer struct {
	transport esapi.Transport
	index     string
}

// NewIndexer accepts an *elasticsearch.Client or any other esapi.Transport.
func NewIndexer(transport esapi.Transport, index string) *Indexer {
	return &Indexer{transport: transport, index: index}
}

type document struct {
	ID              string   `json:"id"`
	OrgID           string   `json:"orgId"`
	Name            string   `json:"name"`
	Emails          []string `json:"emails,omitempty"`
	Stage           string   `json:"stage"`
	PositionApplied string   `json:"positionApplied,omitempty"`
	Source          string   `json:"source,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Companies       []string `json:"companies,omitempty"`
	FinalScore      int      `json:"finalScore"`
}

func toDocument(c *models.Candidate) document {
	d := document{
		ID:         c.ID,
		OrgID:      c.OrgID,
		Name:       c.Name,
		Emails:     c.Emails,
		Stage:      string(c.Stage),
		Source:     c.Source,
		Tags:       c.Tags,
		FinalScore: c.FinalScore,
	}
	if c.PositionApplied != nil {
		d.PositionApplied = *c.PositionApplied
	}
	if c.Parsed != nil {
		d.Skills = c.Parsed.Skills
		d.Companies = c.Parsed.Companies
	}
	return d
}

// IndexMapping keeps identifiers as keyword fields so the tenant filter and
// stage filters match exact values.
func IndexMapping() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	text := map[string]interface{}{"type": "text"}
	textWithRaw := map[string]interface{}{
		"type":   "text",
		"fields": map[string]interface{}{"raw": keyword},
	}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"dynamic": "strict",
			"properties": map[string]interface{}{
				"id":              keyword,
				"orgId":           keyword,
				"stage":           keyword,
				"positionApplied": keyword,
				"source":          keyword,
				"name":            text,
				"emails":          textWithRaw,
				"tags":            textWithRaw,
				"skills":          text,
				"companies":       text,
				"finalScore":      map[string]interface{}{"type": "integer"},
			},
		},
	}
}

// EnsureIndex creates the index with IndexMapping. An existing index is left as is.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	body, err := json.Marshal(IndexMapping())
	if err != nil {
		return fmt.Errorf("encode index mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: ix.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.transport)
	if err != nil {
		return fmt.Errorf("create index %s: %w", ix.index, err)
	}
	defer res.Body.Close()

	if !res.IsError() {
		return nil
	}
	var failure struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if res.StatusCode == http.StatusBadRequest &&
		json.NewDecoder(res.Body).Decode(&failure) == nil &&
		failure.Error.Type == "resource_already_exists_exception" {
		return nil
	}
	return fmt.Errorf("create index %s: %s", ix.index, res.Status())
}

// DocumentID is the index key for a candidate.
func DocumentID(tenantID, id string) string {
	return tenantID + ":" + id
}

// IndexCandidate upserts the candidate document.
func (ix *Indexer) IndexCandidate(ctx context.Context, c *models.Candidate) error {
	body, err := json.Marshal(toDocument(c))
	if err != nil {
		return fmt.Errorf("encode search document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: DocumentID(c.OrgID, c.ID),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.transport)
	if err != nil {
		return fmt.Errorf("index candidate %s: %w", c.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index candidate %s: %s", c.ID, res.Status())
	}
	return nil
}

// DeleteCandidate removes the document. A missing document is not an error.
func (ix *Indexer) DeleteCandidate(ctx context.Context, tenantID, id string) error {
	req := esapi.DeleteRequest{
		Index:      ix.index,
		DocumentID: DocumentID(tenantID, id),
	}
	res, err := req.Do(ctx, ix.transport)
	if err != nil {
		return fmt.Errorf("delete candidate %s from index: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete candidate %s from index: %s", id, res.Status())
	}
	return nil
}

// BuildSearchQuery matches text across name, emails, skills and tags within one tenant.
func BuildSearchQuery(tenantID, text string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"orgId": tenantID}},
				},
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  text,
							"fields": []string{"name^3", "emails^2", "skills", "tags", "companies"},
							"type":   "best_fields",
						},
					},
				},
			},
		},
		"_source": []string{"id"},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				ID string `json:"id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchCandidates returns matching candidate ids in relevance order.
func (ix *Indexer) SearchCandidates(ctx context.Context, tenantID, text string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	body, err := json.Marshal(BuildSearchQuery(tenantID, text))
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  strings.NewReader(string(body)),
		Size:  &limit,
	}
	res, err := req.Do(ctx, ix.transport)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, nil
}
