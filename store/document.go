package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Document is source markup imported for editing.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	HTML      string `json:"html"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// PutDocument creates or replaces a document. CreatedAt is kept on update.
func (s *Store) PutDocument(ctx context.Context, d *Document) error {
	now := time.Now().UnixMilli()
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.exec(ctx, `
		INSERT INTO documents (id, title, html, created_at, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, html=excluded.html, updated_at=excluded.updated_at`,
		d.ID, d.Title, d.HTML, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by id, or (nil, nil) if absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, title, html, created_at, updated_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.HTML, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns every document without its markup, ordered by id.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.Title, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its element mappings.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM element_mappings WHERE document_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		return err
	})
}
