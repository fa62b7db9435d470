package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/almuwathiq/evidence-agent/pipeline"
)

// SourceDocument is a registered primary-source document.
type SourceDocument struct {
	ID        uuid.UUID
	Title     string
	Authority pipeline.Authority
	FilePath  string
	SHA256    string
	Ingested  bool
}

type Documents struct {
	pool *pgxpool.Pool
}

func NewDocuments(pool *pgxpool.Pool) *Documents {
	return &Documents{pool: pool}
}

// ResolvePath maps a document ID to the absolute path of the original file.
func (d *Documents) ResolvePath(ctx context.Context, docID uuid.UUID) (string, error) {
	var path string
	err := d.pool.QueryRow(ctx, "SELECT file_path FROM source_documents WHERE id = $1", docID).Scan(&path)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("document %s is not registered", docID)
		}
		return "", fmt.Errorf("query document path: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve document path: %w", err)
	}
	return abs, nil
}

var _ pipeline.DocumentResolver = (*Documents)(nil)

// Upsert registers a document or refreshes its metadata when the file
// content changed. It reports whether the stored hash differed, which
// gates re-chunking.
func (d *Documents) Upsert(ctx context.Context, tx pgx.Tx, doc SourceDocument) (uuid.UUID, bool, error) {
	var (
		docID        uuid.UUID
		existingHash string
	)

	err := tx.QueryRow(ctx, "SELECT id, sha256 FROM source_documents WHERE file_path = $1", doc.FilePath).Scan(&docID, &existingHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			newID := uuid.New()
			_, execErr := tx.Exec(ctx, `
				INSERT INTO source_documents (id, title, authority, file_path, sha256, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			`, newID, doc.Title, string(doc.Authority), doc.FilePath, doc.SHA256)
			if execErr != nil {
				return uuid.Nil, false, fmt.Errorf("insert document: %w", execErr)
			}
			return newID, true, nil
		}
		return uuid.Nil, false, fmt.Errorf("query document: %w", err)
	}

	if existingHash == doc.SHA256 {
		return docID, false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE source_documents
		SET title = $2,
		    authority = $3,
		    sha256 = $4,
		    is_ingested = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`, docID, doc.Title, string(doc.Authority), doc.SHA256); err != nil {
		return uuid.Nil, false, fmt.Errorf("update document: %w", err)
	}

	return docID, true, nil
}

// MarkIngested records a successful ingestion pass.
func (d *Documents) MarkIngested(ctx context.Context, tx pgx.Tx, docID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		UPDATE source_documents
		SET is_ingested = TRUE,
		    ingested_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`, docID); err != nil {
		return fmt.Errorf("mark document ingested: %w", err)
	}
	return nil
}
