package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ElementMapping binds a scene element to the stable id of the markup node
// it came from.
type ElementMapping struct {
	ElementID string `json:"element_id"`
	StableID  string `json:"stable_id"`
	Mode      string `json:"mode"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// SaveElementMappings replaces the mappings of documentID in one
// transaction.
func (s *Store) SaveElementMappings(ctx context.Context, documentID string, mappings []ElementMapping) error {
	now := time.Now().UnixMilli()
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM element_mappings WHERE document_id = ?`, documentID); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO element_mappings (document_id, element_id, stable_id, mode, updated_at)
			VALUES (?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, m := range mappings {
			if _, err := stmt.ExecContext(ctx, documentID, m.ElementID, m.StableID, m.Mode, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save mappings %s: %w", documentID, err)
	}
	return nil
}

// ListElementMappings returns the mappings of documentID ordered by element id.
func (s *Store) ListElementMappings(ctx context.Context, documentID string) ([]ElementMapping, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT element_id, stable_id, mode, updated_at FROM element_mappings
		WHERE document_id = ? ORDER BY element_id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ElementMapping
	for rows.Next() {
		var m ElementMapping
		if err := rows.Scan(&m.ElementID, &m.StableID, &m.Mode, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
