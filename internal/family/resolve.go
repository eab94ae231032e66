// Package family diffs a fresh clustering result against the previous
// curation cycle's golden records and selects the golden representative
// of every genuinely new family.
package family

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mc3d/mc3d-source/internal/ledger"
	"github.com/mc3d/mc3d-source/internal/source"
)

// ErrConsistency indicates an irreconcilable state during family
// resolution; the stage halts without writing anything.
var ErrConsistency = errors.New("consistency failure")

// DatabasePriority is the fixed tie-breaking order for golden
// selection: the earliest database with a family member wins.
var DatabasePriority = []string{"cod", "icsd", "mpds"}

// Resolution is the outcome of diffing new families against the prior
// cycle.
type Resolution struct {
	// NewFamilies are families not claimed by a prior stable id and
	// not fully contained in the excludable set.
	NewFamilies [][]string

	// Golden maps the selected golden source string of every new
	// family to its record.
	Golden Records

	// Migrated maps prior stable ids to the new family indexes their
	// previous members now fall into.
	Migrated map[string][]int

	// Deprecated holds prior stable ids whose previous family is
	// entirely present in the deprecation ledger.
	Deprecated map[string]Record

	// Orphaned maps prior stable ids that lost all family anchoring
	// (members neither found nor fully deprecated) to their golden
	// source string. Reported, never silently dropped.
	Orphaned map[string]string
}

// Resolve computes the incremental family changes for one curation
// cycle. excludable is a set of source strings with a disqualifying
// chemical trait; families fully contained in it are dropped before
// golden selection.
func Resolve(newFamilies [][]string, dep ledger.Ledger, prior Records, excludable map[string]struct{}) (*Resolution, error) {
	sourceToFamily := make(map[string]int)
	for index, fam := range newFamilies {
		for _, src := range fam {
			sourceToFamily[src] = index
		}
	}

	// New-family sources must have zero overlap with the deprecation
	// ledger; an overlap means the clustering ran on broken inputs.
	for src := range dep {
		if _, ok := sourceToFamily[src]; ok {
			return nil, fmt.Errorf("%w: deprecated source %s appears in a new family", ErrConsistency, src)
		}
	}

	goldenSources := prior.GoldenSources()

	res := &Resolution{
		Golden:     Records{},
		Migrated:   map[string][]int{},
		Deprecated: map[string]Record{},
		Orphaned:   map[string]string{},
	}

	for stableID, record := range prior {
		indexes := map[int]struct{}{}
		for _, src := range record.DuplicateFamily {
			if index, ok := sourceToFamily[src]; ok {
				indexes[index] = struct{}{}
			}
		}

		if len(indexes) > 0 {
			migrated := make([]int, 0, len(indexes))
			for index := range indexes {
				migrated = append(migrated, index)
			}
			sort.Ints(migrated)
			res.Migrated[stableID] = migrated
			continue
		}

		fullyDeprecated := true
		for _, src := range record.DuplicateFamily {
			if _, ok := dep[src]; !ok {
				fullyDeprecated = false
				break
			}
		}
		if fullyDeprecated {
			res.Deprecated[stableID] = record
			continue
		}

		res.Orphaned[stableID] = record.Golden.Source.String()
	}

	// Families claimed by a prior id are not new. When a prior family
	// split across several new families, only the ones holding an
	// already golden source stay with their id; the rest count as new
	// again.
	claimed := map[int]struct{}{}
	for _, indexes := range res.Migrated {
		if len(indexes) == 1 {
			claimed[indexes[0]] = struct{}{}
			continue
		}
		for _, index := range indexes {
			if familyIntersects(newFamilies[index], goldenSources) {
				claimed[index] = struct{}{}
			}
		}
	}

	for index, fam := range newFamilies {
		if _, ok := claimed[index]; ok {
			continue
		}
		if familySubset(fam, excludable) {
			continue
		}
		res.NewFamilies = append(res.NewFamilies, fam)
	}

	for _, fam := range res.NewFamilies {
		selection, err := SelectGolden(fam)
		if err != nil {
			return nil, err
		}
		src, err := source.Parse(selection)
		if err != nil {
			return nil, fmt.Errorf("%w: golden selection %q: %v", ErrConsistency, selection, err)
		}
		res.Golden[selection] = Record{
			DuplicateFamily: fam,
			Golden:          GoldenStructure{Source: src},
		}
	}
	return res, nil
}

// SelectGolden picks the representative of a family: the first member,
// in family order, from the highest-priority database that has one.
// The choice is deterministic given the member list.
func SelectGolden(fam []string) (string, error) {
	if len(fam) == 0 {
		return "", fmt.Errorf("%w: empty family", ErrConsistency)
	}
	for _, database := range DatabasePriority {
		prefix := database + "|"
		for _, src := range fam {
			if strings.HasPrefix(src, prefix) {
				return src, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no member of family %v comes from a known database", ErrConsistency, fam)
}

func familyIntersects(fam []string, set map[string]struct{}) bool {
	for _, src := range fam {
		if _, ok := set[src]; ok {
			return true
		}
	}
	return false
}

func familySubset(fam []string, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	for _, src := range fam {
		if _, ok := set[src]; !ok {
			return false
		}
	}
	return true
}
