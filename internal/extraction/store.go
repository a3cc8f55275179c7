// Package extraction reads the structured results produced by the document
// intelligence pipeline. The assessment workflow only consumes its output;
// ingestion and the document-understanding service live elsewhere.
package extraction

import (
	"context"
	"database/sql"
	"fmt"

	"taxassist-workers/internal/models"
)

// Store is the document-extraction collaborator contract: all structured
// results extracted so far for one session.
type Store interface {
	ResultsBySession(ctx context.Context, sessionID string) ([]models.ExtractionRecord, error)
}

// PostgresStore reads extraction results from the ingestion pipeline's
// tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const resultsBySessionQuery = `
SELECT d.id, er.document_type, er.structured_data
FROM documents d
JOIN extraction_results er ON er.document_id = d.id
WHERE d.session_id = $1
ORDER BY d.created_at`

func (s *PostgresStore) ResultsBySession(ctx context.Context, sessionID string) ([]models.ExtractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, resultsBySessionQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query extraction results: %w", err)
	}
	defer rows.Close()

	var records []models.ExtractionRecord
	for rows.Next() {
		var rec models.ExtractionRecord
		if err := rows.Scan(&rec.DocumentID, &rec.DocumentType, &rec.StructuredData); err != nil {
			return nil, fmt.Errorf("scan extraction result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extraction results: %w", err)
	}

	return records, nil
}
