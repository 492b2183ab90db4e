// Package bulk ingests many documents at once from CSV or JSON uploads.
// Records are validated and processed one at a time, in upload order;
// one bad record never aborts the rest of the file.
package bulk

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// DefaultBatchSize is the default for the BATCH_SIZE setting.
const DefaultBatchSize = 5

// DocumentProcessor embeds and stores a single document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, clientID uuid.UUID, title, content string, metadata map[string]any) (*store.Document, error)
}

// Record is one document to ingest.
type Record struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result summarizes a bulk ingestion run. Errors holds one message per
// failed record, prefixed with its 1-based position in the upload.
type Result struct {
	Status             string   `json:"status"`
	TotalDocuments     int      `json:"total_documents"`
	ProcessedDocuments int      `json:"processed_documents"`
	FailedDocuments    int      `json:"failed_documents"`
	Errors             []string `json:"errors"`
}

// Service runs bulk ingestion on top of the single-document pipeline.
type Service struct {
	processor DocumentProcessor
	batchSize int
	logger    log.Logger
}

func NewService(processor DocumentProcessor, batchSize int, logger log.Logger) *Service {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{processor: processor, batchSize: batchSize, logger: logger}
}

// ProcessCSV ingests a CSV stream. The header must contain title and
// content columns; a metadata column is optional and parsed as JSON,
// with non-JSON values wrapped as {"raw": value}. Any further columns
// are ignored. Rows the CSV reader cannot parse count as failed records.
func (s *Service) ProcessCSV(ctx context.Context, clientID uuid.UUID, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	titleIdx, hasTitle := cols["title"]
	contentIdx, hasContent := cols["content"]
	if !hasTitle || !hasContent {
		return nil, fmt.Errorf("CSV must have title and content columns, got %v", header)
	}
	metadataIdx, hasMetadata := cols["metadata"]

	var rows []row
	record := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		record++
		if err != nil {
			rows = append(rows, row{num: record, parseErr: err})
			continue
		}

		rec := Record{}
		if titleIdx < len(fields) {
			rec.Title = strings.TrimSpace(fields[titleIdx])
		}
		if contentIdx < len(fields) {
			rec.Content = strings.TrimSpace(fields[contentIdx])
		}
		if hasMetadata && metadataIdx < len(fields) {
			rec.Metadata = parseMetadataField(fields[metadataIdx])
		}
		rows = append(rows, row{num: record, rec: rec})
	}

	return s.processRows(ctx, clientID, rows), nil
}

// ProcessJSON ingests a JSON array of records.
func (s *Service) ProcessJSON(ctx context.Context, clientID uuid.UUID, r io.Reader) (*Result, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return s.ProcessBatch(ctx, clientID, records), nil
}

// ProcessBatch ingests records strictly in order, one at a time. Each
// record fails independently; the result reports per-record errors in
// upload order.
func (s *Service) ProcessBatch(ctx context.Context, clientID uuid.UUID, records []Record) *Result {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{num: i + 1, rec: rec}
	}
	return s.processRows(ctx, clientID, rows)
}

// row is one upload row, numbered as the caller saw it. A row the parser
// rejected carries parseErr and no record.
type row struct {
	num      int
	rec      Record
	parseErr error
}

func (s *Service) processRows(ctx context.Context, clientID uuid.UUID, rows []row) *Result {
	result := &Result{Status: "completed", TotalDocuments: len(rows), Errors: []string{}}
	for _, r := range rows {
		err := r.parseErr
		if err == nil {
			err = s.processRecord(ctx, clientID, r.rec)
		}
		if err != nil {
			result.FailedDocuments++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", r.num, err))
			continue
		}
		result.ProcessedDocuments++
	}

	s.logger.Info("bulk ingestion finished",
		"client_id", clientID,
		"total", result.TotalDocuments,
		"processed", result.ProcessedDocuments,
		"failed", result.FailedDocuments,
	)
	return result
}

func (s *Service) processRecord(ctx context.Context, clientID uuid.UUID, rec Record) error {
	if rec.Title == "" {
		return fmt.Errorf("missing title")
	}
	if rec.Content == "" {
		return fmt.Errorf("missing content")
	}
	_, err := s.processor.ProcessDocument(ctx, clientID, rec.Title, rec.Content, rec.Metadata)
	return err
}

// parseMetadataField interprets the CSV metadata cell. A JSON object is
// used as-is; anything else non-empty becomes {"raw": value}.
func parseMetadataField(field string) map[string]any {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	metadata := map[string]any{}
	if err := json.Unmarshal([]byte(field), &metadata); err != nil {
		return map[string]any{"raw": field}
	}
	return metadata
}
