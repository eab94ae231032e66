package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// GetOrCreateGroup ensures a group with the given label exists and
// reports whether it was created.
func (s *Store) GetOrCreateGroup(ctx context.Context, label string) (bool, error) {
	exists, err := s.GroupExists(ctx, label)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := s.q.ExecContext(ctx, `INSERT INTO groups (label) VALUES (?)`, label); err != nil {
		return false, fmt.Errorf("failed to create group %s: %w", label, err)
	}
	return true, nil
}

// GroupExists reports whether a group with the given label exists.
func (s *Store) GroupExists(ctx context.Context, label string) (bool, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `SELECT id FROM groups WHERE label = ?`, label).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up group %s: %w", label, err)
	}
	return true, nil
}

// AddToGroup adds the nodes to a group. Nodes already in the group are
// ignored.
func (s *Store) AddToGroup(ctx context.Context, label string, uuids []string) error {
	var groupID int64
	err := s.q.QueryRowContext(ctx, `SELECT id FROM groups WHERE label = ?`, label).Scan(&groupID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s does not exist", label)
	}
	if err != nil {
		return fmt.Errorf("failed to look up group %s: %w", label, err)
	}

	for _, uuid := range uuids {
		_, err := s.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO group_nodes (group_id, node_uuid)
			VALUES (?, ?)`,
			groupID, uuid,
		)
		if err != nil {
			return fmt.Errorf("failed to add %s to group %s: %w", uuid, label, err)
		}
	}
	return nil
}
