package bucket

import (
	"context"
	"fmt"
	"testing"

	"github.com/mc3d/mc3d-source/internal/matcher"
	"github.com/mc3d/mc3d-source/internal/source"
	"github.com/mc3d/mc3d-source/internal/types"
)

type stubDetector struct {
	numbers map[string]int
	calls   int
}

func (d *stubDetector) SpacegroupNumber(_ context.Context, g *types.Geometry, symprec float64) (int, error) {
	d.calls++
	if symprec != matcher.DefaultSymprec {
		return 0, fmt.Errorf("unexpected symprec %g", symprec)
	}
	number, ok := d.numbers[g.Species[0]]
	if !ok {
		return 0, fmt.Errorf("malformed geometry")
	}
	return number, nil
}

func structure(db, id, formula string, cifSpg int, label string) *types.Structure {
	return &types.Structure{
		Source:        source.Source{Database: db, Version: "1", ID: id},
		Formula:       formula,
		CIFSpacegroup: cifSpg,
		Geometry:      &types.Geometry{Species: []string{label}, Positions: [][3]float64{{0, 0, 0}}},
	}
}

func TestPartitionByFormula(t *testing.T) {
	structures := []*types.Structure{
		structure("cod", "100", "FeO", 0, "a"),
		structure("cod", "101", "FeO", 0, "b"),
		structure("mpds", "1", "NaCl", 0, "c"),
	}

	buckets, errs := Partition(context.Background(), structures, false, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if len(buckets["FeO"]) != 2 || len(buckets["NaCl"]) != 1 {
		t.Errorf("unexpected bucket sizes: FeO=%d NaCl=%d", len(buckets["FeO"]), len(buckets["NaCl"]))
	}

	// Buckets must partition the input: every structure in exactly one
	// bucket.
	seen := map[string]int{}
	for _, entries := range buckets {
		for _, entry := range entries {
			seen[entry.Source]++
		}
	}
	if len(seen) != len(structures) {
		t.Errorf("expected %d distinct sources across buckets, got %d", len(structures), len(seen))
	}
	for src, n := range seen {
		if n != 1 {
			t.Errorf("source %s appears in %d buckets", src, n)
		}
	}
}

func TestPartitionBySpacegroupPrefersRecordedNumber(t *testing.T) {
	det := &stubDetector{numbers: map[string]int{"b": 225}}
	structures := []*types.Structure{
		structure("cod", "100", "FeO", 194, "a"),
		structure("cod", "101", "FeO", 0, "b"),
	}

	buckets, errs := Partition(context.Background(), structures, true, det)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if det.calls != 1 {
		t.Errorf("expected 1 detector call for the structure without a recorded number, got %d", det.calls)
	}
	if _, ok := buckets["FeO|194"]; !ok {
		t.Error("missing bucket FeO|194 from recorded CIF space group")
	}
	if _, ok := buckets["FeO|225"]; !ok {
		t.Error("missing bucket FeO|225 from detected space group")
	}
}

func TestPartitionCollectsDetectorErrors(t *testing.T) {
	det := &stubDetector{numbers: map[string]int{"a": 1}}
	structures := []*types.Structure{
		structure("cod", "100", "FeO", 0, "a"),
		structure("cod", "101", "FeO", 0, "broken"),
	}

	buckets, errs := Partition(context.Background(), structures, true, det)
	if len(errs) != 1 {
		t.Fatalf("expected 1 record error, got %d", len(errs))
	}
	if errs[0].Source != "cod|1|101" {
		t.Errorf("unexpected errored source %s", errs[0].Source)
	}
	// The good structure still made it into a bucket.
	total := 0
	for _, entries := range buckets {
		total += len(entries)
	}
	if total != 1 {
		t.Errorf("expected 1 bucketed structure, got %d", total)
	}
}
