// Package audit records finished assessments into Elasticsearch so support
// tooling can search past sessions. Indexing is best-effort: a failure is
// logged and never surfaces to the workflow.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/models"
)

// Indexer writes one audit document per assessment run.
type Indexer interface {
	IndexAssessment(ctx context.Context, resp *models.AssessmentResponse) error
}

// Entry is the indexed shape. Sessions are indexed once per run; the document
// id is the session id so re-runs overwrite instead of accumulating.
type Entry struct {
	SessionID         string                    `json:"session_id"`
	Response          string                    `json:"response"`
	Status            models.Status             `json:"status"`
	MissingFields     []string                  `json:"missing_fields,omitempty"`
	Warnings          []string                  `json:"warnings,omitempty"`
	AggregatedData    *models.AggregatedData    `json:"aggregated_data,omitempty"`
	CalculationResult *models.CalculationResult `json:"calculation_result,omitempty"`
	IndexedAt         time.Time                 `json:"indexed_at"`
}

type ESIndexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESIndexer(client *elasticsearch.Client, index string, log logger.Logger) *ESIndexer {
	return &ESIndexer{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{"component": "audit-indexer"}),
	}
}

func (i *ESIndexer) IndexAssessment(ctx context.Context, resp *models.AssessmentResponse) error {
	entry := Entry{
		SessionID:         resp.SessionID,
		Response:          resp.Response,
		Status:            resp.Status,
		MissingFields:     resp.MissingFields,
		Warnings:          resp.Warnings,
		AggregatedData:    resp.AggregatedData,
		CalculationResult: resp.CalculationResult,
		IndexedAt:         time.Now().UTC(),
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(resp.SessionID),
	)
	if err != nil {
		return fmt.Errorf("index audit entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit entry: status %s", res.Status())
	}

	i.logger.Debug("assessment indexed", map[string]interface{}{
		"sessionId": resp.SessionID,
		"status":    string(resp.Status),
	})

	return nil
}

// NoOpIndexer is used when auditing is disabled in config.
type NoOpIndexer struct{}

func (NoOpIndexer) IndexAssessment(ctx context.Context, resp *models.AssessmentResponse) error {
	return nil
}
