package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/types"
)

// CreateRawCIFs inserts a batch of raw CIF records and returns how
// many were new. Records whose source triple already exists are left
// untouched, so re-importing a database only adds what is new.
func (s *Store) CreateRawCIFs(ctx context.Context, cifs []*types.RawCIF) (int, error) {
	inserted := 0
	for _, cif := range cifs {
		numbersJSON, err := json.Marshal(cif.SpacegroupNumbers)
		if err != nil {
			return inserted, fmt.Errorf("failed to marshal spacegroup numbers for %s: %w", cif.UUID, err)
		}
		res, err := s.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO raw_cifs (uuid, db_name, version, source_id, spacegroup_numbers)
			VALUES (?, ?, ?, ?, ?)`,
			cif.UUID, cif.DBName, cif.Version, cif.ID, string(numbersJSON),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert raw CIF %s: %w", cif.UUID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to check affected rows: %w", err)
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// GetRawCIFsByGroup returns the raw CIF records in a group, ordered by
// source id.
func (s *Store) GetRawCIFsByGroup(ctx context.Context, group string) ([]*types.RawCIF, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT raw_cifs.uuid, db_name, version, source_id, spacegroup_numbers
		FROM raw_cifs
		JOIN group_nodes ON group_nodes.node_uuid = raw_cifs.uuid
		JOIN groups ON groups.id = group_nodes.group_id
		WHERE groups.label = ?
		ORDER BY source_id`,
		group,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw CIFs in group %s: %w", group, err)
	}
	defer rows.Close()

	var cifs []*types.RawCIF
	for rows.Next() {
		var cif types.RawCIF
		var numbersJSON string
		if err := rows.Scan(&cif.UUID, &cif.DBName, &cif.Version, &cif.ID, &numbersJSON); err != nil {
			return nil, fmt.Errorf("failed to scan raw CIF: %w", err)
		}
		if err := json.Unmarshal([]byte(numbersJSON), &cif.SpacegroupNumbers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal spacegroup numbers for %s: %w", cif.UUID, err)
		}
		cifs = append(cifs, &cif)
	}
	return cifs, rows.Err()
}

// CreateCleanResults records cleaning-workflow outcomes.
func (s *Store) CreateCleanResults(ctx context.Context, results []*types.CleanResult) error {
	for _, result := range results {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO clean_results (cif_uuid, structure_uuid, exit_status)
			VALUES (?, ?, ?)`,
			result.CIFUUID, result.StructureUUID, result.ExitStatus,
		)
		if err != nil {
			return fmt.Errorf("failed to insert clean result for %s: %w", result.CIFUUID, err)
		}
	}
	return nil
}

// GetCleanJoinsByGroup returns, for every raw CIF in the group that has
// a cleaning result, the result together with the CIF and the parsed
// structure.
func (s *Store) GetCleanJoinsByGroup(ctx context.Context, group string) ([]*CleanJoin, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT clean_results.exit_status,
		       raw_cifs.uuid, raw_cifs.db_name, raw_cifs.version, raw_cifs.source_id,
		       raw_cifs.spacegroup_numbers,
		       `+prefixedStructureColumns("structures")+`
		FROM clean_results
		JOIN raw_cifs ON raw_cifs.uuid = clean_results.cif_uuid
		JOIN structures ON structures.uuid = clean_results.structure_uuid
		JOIN group_nodes ON group_nodes.node_uuid = raw_cifs.uuid
		JOIN groups ON groups.id = group_nodes.group_id
		WHERE groups.label = ?
		ORDER BY raw_cifs.source_id`,
		group,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query clean results in group %s: %w", group, err)
	}
	defer rows.Close()

	var joins []*CleanJoin
	for rows.Next() {
		join, err := scanCleanJoin(rows)
		if err != nil {
			return nil, err
		}
		joins = append(joins, join)
	}
	return joins, rows.Err()
}
