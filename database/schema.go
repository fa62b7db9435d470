package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the corpus tables. Chunks carry the page number and
// document linkage that evidence rendering depends on, so both columns are
// NOT NULL at the schema level.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS source_documents (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			authority TEXT NOT NULL,
			file_path TEXT UNIQUE NOT NULL,
			source_url TEXT,
			sha256 TEXT NOT NULL,
			is_ingested BOOLEAN NOT NULL DEFAULT FALSE,
			ingested_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES source_documents(id) ON DELETE CASCADE,
			page_number INT NOT NULL CHECK (page_number >= 1),
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, chunk_index)
		)`, dimension),
		`CREATE TABLE IF NOT EXISTS evidence_artifacts (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES source_documents(id) ON DELETE CASCADE,
			page_number INT NOT NULL,
			highlighted_text TEXT NOT NULL,
			image_path TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding ON document_chunks USING ivfflat (embedding vector_l2_ops)",
		"CREATE INDEX IF NOT EXISTS idx_evidence_artifacts_document ON evidence_artifacts(document_id, page_number)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
