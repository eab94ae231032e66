package sqlite

import (
	"context"
	"fmt"

	"github.com/mc3d/mc3d-source/internal/types"
)

// ImportRawCIFs inserts one batch of raw CIF records and adds them to
// the raw-CIF group, in one transaction. Records whose source triple is
// already stored are not re-created but still end up in the group. It
// returns the number of newly created records.
func (s *Store) ImportRawCIFs(ctx context.Context, cifs []*types.RawCIF, group string) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *Store) error {
		n, err := tx.CreateRawCIFs(ctx, cifs)
		if err != nil {
			return err
		}
		inserted = n

		if _, err := tx.GetOrCreateGroup(ctx, group); err != nil {
			return err
		}

		uuids := make([]string, 0, len(cifs))
		for _, cif := range cifs {
			var uuid string
			err := tx.q.QueryRowContext(ctx, `
				SELECT uuid FROM raw_cifs
				WHERE db_name = ? AND version = ? AND source_id = ?`,
				cif.DBName, cif.Version, cif.ID,
			).Scan(&uuid)
			if err != nil {
				return fmt.Errorf("failed to resolve raw CIF %s|%s|%s: %w", cif.DBName, cif.Version, cif.ID, err)
			}
			uuids = append(uuids, uuid)
		}
		return tx.AddToGroup(ctx, group, uuids)
	})
	return inserted, err
}

// ApplyCurationBatch writes curation extras per structure UUID and adds
// the curated UUIDs to the curated group, in one transaction.
func (s *Store) ApplyCurationBatch(ctx context.Context, updates map[string]CurationUpdate, curatedGroup string, curatedUUIDs []string) error {
	return s.withTx(ctx, func(tx *Store) error {
		for uuid, update := range updates {
			if err := tx.UpdateStructureCuration(ctx, uuid, update); err != nil {
				return err
			}
		}
		if curatedGroup == "" {
			return nil
		}
		if _, err := tx.GetOrCreateGroup(ctx, curatedGroup); err != nil {
			return err
		}
		return tx.AddToGroup(ctx, curatedGroup, curatedUUIDs)
	})
}

// FinalizeGoldenBatch writes each golden structure's duplicate list and
// adds the golden UUIDs to the uniques group, in one transaction.
func (s *Store) FinalizeGoldenBatch(ctx context.Context, duplicates map[string][]string, group string, uuids []string) error {
	return s.withTx(ctx, func(tx *Store) error {
		for uuid, dups := range duplicates {
			if err := tx.SetDuplicates(ctx, uuid, dups); err != nil {
				return err
			}
		}
		if group == "" {
			return nil
		}
		if _, err := tx.GetOrCreateGroup(ctx, group); err != nil {
			return err
		}
		return tx.AddToGroup(ctx, group, uuids)
	})
}
