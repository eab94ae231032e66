package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mc3d/mc3d-source/internal/types"
)

func prefixedStructureColumns(table string) string {
	columns := strings.Split(structureColumns, ",")
	for i, column := range columns {
		columns[i] = table + "." + strings.TrimSpace(column)
	}
	return strings.Join(columns, ", ")
}

func scanCleanJoin(rows *sql.Rows) (*CleanJoin, error) {
	var join CleanJoin
	var cif types.RawCIF
	var structure types.Structure
	var numbersJSON string
	var geometryJSON, duplicatesJSON sql.NullString

	err := rows.Scan(
		&join.ExitStatus,
		&cif.UUID, &cif.DBName, &cif.Version, &cif.ID, &numbersJSON,
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
		return nil, fmt.Errorf("failed to scan clean result: %w", err)
	}

	if err := json.Unmarshal([]byte(numbersJSON), &cif.SpacegroupNumbers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spacegroup numbers for %s: %w", cif.UUID, err)
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

	join.CIF = &cif
	join.Structure = &structure
	return &join, nil
}
