package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = "doc_id, type, title, url, content, author, created_at, updated_at, last_synced_at, deleted, metadata"

// GetDocument retrieves a document by its natural key.
func (s *documentStore) GetDocument(ctx context.Context, docID string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE doc_id = ?", docID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// SaveDocument inserts or updates a document by DocID.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, type, title, url, content, author, created_at, updated_at, last_synced_at, deleted, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			url = excluded.url,
			content = excluded.content,
			author = excluded.author,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			last_synced_at = excluded.last_synced_at,
			deleted = excluded.deleted,
			metadata = excluded.metadata
	`, doc.DocID, string(doc.Type), doc.Title, doc.URL, doc.Content, doc.Author,
		nullTime(doc.CreatedAt), nullTime(doc.UpdatedAt), nullTime(doc.LastSyncedAt),
		boolToInt(doc.Deleted), string(metadataJSON))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// ListDocIDs returns the natural keys of all documents of a type.
func (s *documentStore) ListDocIDs(ctx context.Context, t domain.DocumentType, includeDeleted bool) ([]string, error) {
	query := "SELECT doc_id FROM documents WHERE type = ?"
	if !includeDeleted {
		query += " AND deleted = 0"
	}
	query += " ORDER BY doc_id"

	rows, err := s.store.db.QueryContext(ctx, query, string(t))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning doc id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountDocuments returns the number of documents of a type.
func (s *documentStore) CountDocuments(ctx context.Context, t domain.DocumentType, includeDeleted bool) (int, error) {
	query := "SELECT COUNT(*) FROM documents WHERE type = ?"
	if !includeDeleted {
		query += " AND deleted = 0"
	}

	var count int
	if err := s.store.db.QueryRowContext(ctx, query, string(t)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// MarkDeleted soft-deletes the given documents in one bulk update.
func (s *documentStore) MarkDeleted(ctx context.Context, docIDs []string, at time.Time) (int, error) {
	if len(docIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(docIDs)-1) + "?"
	args := make([]any, 0, len(docIDs)+1)
	args = append(args, at.UTC())
	for _, id := range docIDs {
		args = append(args, id)
	}

	result, err := s.store.db.ExecContext(ctx,
		"UPDATE documents SET deleted = 1, last_synced_at = ? WHERE deleted = 0 AND doc_id IN ("+placeholders+")",
		args...)
	if err != nil {
		return 0, fmt.Errorf("marking deleted: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// ReplaceChunks deletes a document's chunks and stores the given ones in
// one transaction.
func (s *documentStore) ReplaceChunks(ctx context.Context, docID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	for i := range chunks {
		c := &chunks[i]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (id, doc_id, idx, text, vector_ordinal) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.DocID, c.Index, c.Text, nullInt(c.VectorOrdinal)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunk retrieves a chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, doc_id, idx, text, vector_ordinal FROM chunks WHERE id = ?", id)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return chunk, nil
}

// ChunksForDocument returns a document's chunks ordered by chunk index.
func (s *documentStore) ChunksForDocument(ctx context.Context, docID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, doc_id, idx, text, vector_ordinal FROM chunks WHERE doc_id = ? ORDER BY idx", docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

// PendingChunks returns chunks of non-deleted documents without ordinals.
func (s *documentStore) PendingChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.doc_id, c.idx, c.text, c.vector_ordinal
		FROM chunks c
		JOIN documents d ON d.doc_id = c.doc_id
		WHERE c.vector_ordinal IS NULL AND d.deleted = 0
		ORDER BY c.doc_id, c.idx`)
	if err != nil {
		return nil, fmt.Errorf("listing pending chunks: %w", err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

// DeletedChunkOrdinals returns ordinals held by chunks of deleted documents.
func (s *documentStore) DeletedChunkOrdinals(ctx context.Context) ([]int, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.vector_ordinal
		FROM chunks c
		JOIN documents d ON d.doc_id = c.doc_id
		WHERE c.vector_ordinal IS NOT NULL AND d.deleted = 1
		ORDER BY c.vector_ordinal`)
	if err != nil {
		return nil, fmt.Errorf("listing stale ordinals: %w", err)
	}
	defer rows.Close()

	var ordinals []int
	for rows.Next() {
		var ord int
		if err := rows.Scan(&ord); err != nil {
			return nil, fmt.Errorf("scanning ordinal: %w", err)
		}
		ordinals = append(ordinals, ord)
	}
	return ordinals, rows.Err()
}

// SetChunkOrdinals assigns vector ordinals to chunks by ID.
func (s *documentStore) SetChunkOrdinals(ctx context.Context, ordinals map[string]int) error {
	if len(ordinals) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for id, ord := range ordinals {
		if _, err := tx.ExecContext(ctx,
			"UPDATE chunks SET vector_ordinal = ? WHERE id = ?", ord, id); err != nil {
			return fmt.Errorf("setting ordinal for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ClearAllOrdinals detaches every chunk from the vector index.
func (s *documentStore) ClearAllOrdinals(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "UPDATE chunks SET vector_ordinal = NULL"); err != nil {
		return fmt.Errorf("clearing ordinals: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, metadataJSON string
	var createdAt, updatedAt, lastSyncedAt sql.NullTime
	var deleted int

	err := row.Scan(&doc.DocID, &docType, &doc.Title, &doc.URL, &doc.Content, &doc.Author,
		&createdAt, &updatedAt, &lastSyncedAt, &deleted, &metadataJSON)
	if err != nil {
		return nil, err
	}

	doc.Type = domain.DocumentType(docType)
	doc.CreatedAt = createdAt.Time
	doc.UpdatedAt = updatedAt.Time
	doc.LastSyncedAt = lastSyncedAt.Time
	doc.Deleted = deleted != 0
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return &doc, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var ordinal sql.NullInt64
	if err := row.Scan(&chunk.ID, &chunk.DocID, &chunk.Index, &chunk.Text, &ordinal); err != nil {
		return nil, err
	}
	if ordinal.Valid {
		ord := int(ordinal.Int64)
		chunk.VectorOrdinal = &ord
	}
	return &chunk, nil
}

func collectChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
