package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-pipeline/internal/models"
)

type recordingImporter struct {
	batches [][]models.CandidateInput
	failAt  map[string]bool
	err     error
}

func (r *recordingImporter) BulkImport(_ context.Context, _ string, records []models.CandidateInput, _ string) (*models.BulkImportResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.batches = append(r.batches, records)
	res := &models.BulkImportResult{}
	for i, rec := range records {
		if r.failAt[rec.Name] {
			res.Failed = append(res.Failed, models.BulkImportFailure{Index: i, Code: "VALIDATION_FAILED", Message: "bad"})
			continue
		}
		res.Created = append(res.Created, &models.Candidate{Name: rec.Name})
	}
	return res, nil
}

func namedRecords(n int) []models.CandidateInput {
	out := make([]models.CandidateInput, n)
	for i := range out {
		out[i] = models.CandidateInput{Name: fmt.Sprintf("c%d", i)}
	}
	return out
}

func TestImportBatches_SplitsAndOffsetsFailures(t *testing.T) {
	imp := &recordingImporter{failAt: map[string]bool{"c1": true, "c5": true}}

	res, err := importBatches(context.Background(), imp, "org-1", "u1", namedRecords(7), 3)

	require.NoError(t, err)
	require.Len(t, imp.batches, 3)
	assert.Len(t, imp.batches[2], 1)
	assert.Len(t, res.Created, 5)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, 5, res.Failed[1].Index)
}

func TestImportBatches_NoLimit(t *testing.T) {
	imp := &recordingImporter{}

	res, err := importBatches(context.Background(), imp, "org-1", "u1", namedRecords(4), 0)

	require.NoError(t, err)
	assert.Len(t, imp.batches, 1)
	assert.Len(t, res.Created, 4)
}

func TestImportBatches_ServiceError(t *testing.T) {
	imp := &recordingImporter{err: assert.AnError}

	_, err := importBatches(context.Background(), imp, "org-1", "u1", namedRecords(2), 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestParseRecords(t *testing.T) {
	yamlDoc := []byte(`
- name: Ada Lovelace
  emails: [ada@example.com]
  positionApplied: job-7
  tags: [backend]
- name: Grace Hopper
  source: Referral
`)
	records, err := parseRecords(".YML", yamlDoc)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ada Lovelace", records[0].Name)
	assert.Equal(t, []string{"ada@example.com"}, records[0].Emails)
	require.NotNil(t, records[0].PositionApplied)
	assert.Equal(t, "job-7", *records[0].PositionApplied)
	assert.Equal(t, "Referral", records[1].Source)

	records, err = parseRecords(".json", []byte(`[{"name":"Linus","isTalentPool":true}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsTalentPool)

	_, err = parseRecords(".csv", []byte("name\nx"))
	assert.Error(t, err)

	_, err = parseRecords(".json", []byte(`[]`))
	assert.Error(t, err)
}
