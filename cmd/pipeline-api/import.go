package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hiring-pipeline/internal/models"
)

var (
	importTenant string
	importActor  string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk import candidates from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := readRecords(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := importBatches(ctx, a.svc, importTenant, importActor, records, a.cfg.Pipeline.MaxBulkRecords)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d of %d candidates\n", len(result.Created), len(records))
		for _, f := range result.Failed {
			fmt.Fprintf(out, "  record %d: %s %s\n", f.Index, f.Code, f.Message)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importTenant, "org", "", "organization the candidates belong to")
	importCmd.Flags().StringVar(&importActor, "actor", "import", "user recorded as the creator")
	_ = importCmd.MarkFlagRequired("org")
}

type bulkImporter interface {
	BulkImport(ctx context.Context, tenantID string, records []models.CandidateInput, actorID string) (*models.BulkImportResult, error)
}

// importBatches splits records into service-sized batches and merges the
// results, keeping failure indexes relative to the whole file.
func importBatches(ctx context.Context, svc bulkImporter, tenantID, actorID string, records []models.CandidateInput, batchSize int) (*models.BulkImportResult, error) {
	if batchSize <= 0 {
		batchSize = len(records)
	}

	merged := &models.BulkImportResult{
		Created: []*models.Candidate{},
		Failed:  []models.BulkImportFailure{},
	}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		res, err := svc.BulkImport(ctx, tenantID, records[start:end], actorID)
		if err != nil {
			return merged, fmt.Errorf("import records %d-%d: %w", start, end-1, err)
		}
		merged.Created = append(merged.Created, res.Created...)
		for _, f := range res.Failed {
			f.Index += start
			merged.Failed = append(merged.Failed, f)
		}
	}
	return merged, nil
}

func readRecords(path string) ([]models.CandidateInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseRecords(filepath.Ext(path), raw)
}

func parseRecords(ext string, raw []byte) ([]models.CandidateInput, error) {
	var records []models.CandidateInput
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .yaml, .yml or .json", ext)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no candidates in file")
	}
	return records, nil
}
