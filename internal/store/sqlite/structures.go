package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mc3d/mc3d-source/internal/source"
	"github.com/mc3d/mc3d-source/internal/types"
)

const structureColumns = `uuid, source_db, source_version, source_id, formula,
	chemical_system, cif_spacegroup, spacegroup, partial_occupancies,
	incorrect_formula, geometry, duplicates`

// CreateStructures inserts a batch of parsed structures.
func (s *Store) CreateStructures(ctx context.Context, structures []*types.Structure) error {
	for _, structure := range structures {
		geometryJSON, err := marshalNullable(structure.Geometry)
		if err != nil {
			return fmt.Errorf("failed to marshal geometry for %s: %w", structure.UUID, err)
		}
		duplicatesJSON, err := marshalNullable(structure.Duplicates)
		if err != nil {
			return fmt.Errorf("failed to marshal duplicates for %s: %w", structure.UUID, err)
		}

		_, err = s.q.ExecContext(ctx, `
			INSERT INTO structures (`+structureColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			structure.UUID,
			structure.Source.Database,
			structure.Source.Version,
			structure.Source.ID,
			structure.Formula,
			structure.ChemicalSystem,
			structure.CIFSpacegroup,
			structure.Spacegroup,
			structure.PartialOccupancies,
			structure.IncorrectFormula,
			geometryJSON,
			duplicatesJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert structure %s: %w", structure.UUID, err)
		}
	}
	return nil
}

// GetStructuresByGroups returns the structures in any of the given
// groups, narrowed by the filter, ordered by source.
func (s *Store) GetStructuresByGroups(ctx context.Context, groups []string, filter StructureFilter) ([]*types.Structure, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + structureColumns + `
		FROM structures
		JOIN group_nodes ON group_nodes.node_uuid = structures.uuid
		JOIN groups ON groups.id = group_nodes.group_id
		WHERE groups.label IN (` + placeholders(len(groups)) + `)`
	args := make([]interface{}, 0, len(groups))
	for _, label := range groups {
		args = append(args, label)
	}

	if filter.ExcludeIncorrectFormula {
		query += " AND incorrect_formula = ''"
	}
	for _, element := range filter.Contains {
		query += " AND chemical_system LIKE ?"
		args = append(args, "%-"+element+"-%")
	}
	for _, element := range filter.Skip {
		query += " AND chemical_system NOT LIKE ?"
		args = append(args, "%-"+element+"-%")
	}
	query += " ORDER BY source_db, source_version, source_id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query structures: %w", err)
	}
	defer rows.Close()

	return scanStructures(rows)
}

// GetStructuresBySources maps source strings to their structures.
// Sources without a stored structure are absent from the result.
func (s *Store) GetStructuresBySources(ctx context.Context, sources []string) (map[string]*types.Structure, error) {
	result := make(map[string]*types.Structure, len(sources))

	for _, raw := range sources {
		src, err := source.Parse(raw)
		if err != nil {
			return nil, err
		}

		rows, err := s.q.QueryContext(ctx, `
			SELECT `+structureColumns+`
			FROM structures
			WHERE source_db = ? AND source_version = ? AND source_id = ?`,
			src.Database, src.Version, src.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query structure for %s: %w", raw, err)
		}
		matches, err := scanStructures(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}

		switch len(matches) {
		case 0:
		case 1:
			result[raw] = matches[0]
		default:
			return nil, fmt.Errorf("found %d structures for source %s", len(matches), raw)
		}
	}
	return result, nil
}

// UpdateStructureCuration writes the curation extras for one structure.
func (s *Store) UpdateStructureCuration(ctx context.Context, uuid string, update CurationUpdate) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE structures
		SET source_db = ?, source_version = ?, source_id = ?,
		    cif_spacegroup = ?, partial_occupancies = ?, incorrect_formula = ?
		WHERE uuid = ?`,
		update.Source.Database,
		update.Source.Version,
		update.Source.ID,
		update.CIFSpacegroup,
		update.PartialOccupancies,
		update.IncorrectFormula,
		uuid,
	)
	if err != nil {
		return fmt.Errorf("failed to update structure %s: %w", uuid, err)
	}
	return requireOneRow(res, uuid)
}

// SetDuplicates records the duplicate list on a golden structure.
func (s *Store) SetDuplicates(ctx context.Context, uuid string, duplicates []string) error {
	duplicatesJSON, err := marshalNullable(duplicates)
	if err != nil {
		return fmt.Errorf("failed to marshal duplicates: %w", err)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE structures SET duplicates = ? WHERE uuid = ?`, duplicatesJSON, uuid)
	if err != nil {
		return fmt.Errorf("failed to set duplicates on %s: %w", uuid, err)
	}
	return requireOneRow(res, uuid)
}

// IncorrectFormulaSources returns the source strings of all structures
// flagged with a formula mismatch.
func (s *Store) IncorrectFormulaSources(ctx context.Context) ([]string, error) {
	return s.sourceStrings(ctx, `
		SELECT source_db, source_version, source_id
		FROM structures
		WHERE incorrect_formula != ''
		ORDER BY source_db, source_version, source_id`)
}

// CODHydrogenSources returns the source strings of stoichiometric COD
// structures that contain hydrogen.
func (s *Store) CODHydrogenSources(ctx context.Context) ([]string, error) {
	return s.sourceStrings(ctx, `
		SELECT source_db, source_version, source_id
		FROM structures
		WHERE source_db = 'cod'
		  AND partial_occupancies = 0
		  AND chemical_system LIKE '%-H-%'
		ORDER BY source_db, source_version, source_id`)
}

func (s *Store) sourceStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src source.Source
		if err := rows.Scan(&src.Database, &src.Version, &src.ID); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src.String())
	}
	return sources, rows.Err()
}

func scanStructures(rows *sql.Rows) ([]*types.Structure, error) {
	var structures []*types.Structure
	for rows.Next() {
		structure, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		structures = append(structures, structure)
	}
	return structures, rows.Err()
}

func scanStructure(rows *sql.Rows) (*types.Structure, error) {
	var structure types.Structure
	var geometryJSON, duplicatesJSON sql.NullString

	err := rows.Scan(
		&structure.UUID,
		&structure.Source.Database,
		&structure.Source.Version,
		&structure.Source.ID,
		&structure.Formula,
		&structure.ChemicalSystem,
		&structure.CIFSpacegroup,
		&structure.Spacegroup,
		&structure.PartialOccupancies,
		&structure.IncorrectFormula,
		&geometryJSON,
		&duplicatesJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan structure: %w", err)
	}

	if geometryJSON.Valid && geometryJSON.String != "" {
		structure.Geometry = &types.Geometry{}
		if err := json.Unmarshal([]byte(geometryJSON.String), structure.Geometry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal geometry for %s: %w", structure.UUID, err)
		}
	}
	if duplicatesJSON.Valid && duplicatesJSON.String != "" {
		if err := json.Unmarshal([]byte(duplicatesJSON.String), &structure.Duplicates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal duplicates for %s: %w", structure.UUID, err)
		}
	}
	return &structure, nil
}

func marshalNullable(v interface{}) (interface{}, error) {
	switch value := v.(type) {
	case *types.Geometry:
		if value == nil {
			return nil, nil
		}
	case []string:
		if value == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func requireOneRow(res sql.Result, uuid string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no structure with uuid %s", uuid)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
