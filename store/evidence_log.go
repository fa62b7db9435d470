package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/almuwathiq/evidence-agent/pipeline"
)

// EvidenceLog is the append-only audit trail of rendered evidence
// artifacts. Rows are never updated; retention is an external concern.
type EvidenceLog struct {
	pool *pgxpool.Pool
}

func NewEvidenceLog(pool *pgxpool.Pool) *EvidenceLog {
	return &EvidenceLog{pool: pool}
}

func (l *EvidenceLog) Record(ctx context.Context, item pipeline.EvidenceItem) error {
	if _, err := l.pool.Exec(ctx, `
		INSERT INTO evidence_artifacts (id, document_id, page_number, highlighted_text, image_path, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, uuid.New(), item.SourceDocID, item.PageNumber, item.Snippet, item.ImagePath); err != nil {
		return fmt.Errorf("insert evidence artifact: %w", err)
	}
	return nil
}

var _ pipeline.EvidenceLogger = (*EvidenceLog)(nil)
