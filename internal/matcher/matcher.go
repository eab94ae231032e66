package matcher

import (
	"fmt"
	"math"
	"sort"

	"github.com/mc3d/mc3d-source/internal/types"
)

// Matcher decides whether two geometries describe the same physical
// structure under a tolerance configuration.
type Matcher interface {
	// Fit reports whether a and b match. Fit is symmetric. It returns
	// an error when a geometry is malformed and cannot be compared.
	Fit(a, b *types.Geometry) (bool, error)

	// GroupStructures partitions geoms into groups of matching
	// structures, returning index groups into the input slice.
	GroupStructures(geoms []*types.Geometry) ([][]int, error)
}

// StructureMatcher is the built-in Matcher. It compares reduced
// composition, scaled lattice parameters and cell angles against the
// configured tolerances.
type StructureMatcher struct {
	settings Settings
}

// New returns a StructureMatcher with the given settings.
func New(settings Settings) *StructureMatcher {
	return &StructureMatcher{settings: settings}
}

// Fit implements Matcher.
func (m *StructureMatcher) Fit(a, b *types.Geometry) (bool, error) {
	if err := validate(a); err != nil {
		return false, err
	}
	if err := validate(b); err != nil {
		return false, err
	}

	if compositionKey(a) != compositionKey(b) {
		return false, nil
	}

	la, aa, va := cellParameters(a)
	lb, ab, vb := cellParameters(b)
	if va <= 0 || vb <= 0 {
		return false, fmt.Errorf("degenerate cell: volumes %g and %g", va, vb)
	}

	// Normalize to equal volume per site before comparing lengths.
	scale := 1.0
	if m.settings.Scale {
		scale = math.Cbrt((va / float64(a.NumSites())) / (vb / float64(b.NumSites())))
	}

	for i := 0; i < 3; i++ {
		if math.Abs(la[i]-lb[i]*scale) > m.settings.Ltol*la[i] {
			return false, nil
		}
		if math.Abs(aa[i]-ab[i]) > m.settings.AngleTol {
			return false, nil
		}
	}
	return true, nil
}

// GroupStructures implements Matcher by folding each geometry into the
// first group whose reference it fits.
func (m *StructureMatcher) GroupStructures(geoms []*types.Geometry) ([][]int, error) {
	var groups [][]int
	for i, geom := range geoms {
		placed := false
		for gi, group := range groups {
			fit, err := m.Fit(geoms[group[0]], geom)
			if err != nil {
				return nil, err
			}
			if fit {
				groups[gi] = append(groups[gi], i)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []int{i})
		}
	}
	return groups, nil
}

func validate(g *types.Geometry) error {
	if g == nil {
		return fmt.Errorf("nil geometry")
	}
	if len(g.Species) == 0 {
		return fmt.Errorf("geometry has no sites")
	}
	if len(g.Species) != len(g.Positions) {
		return fmt.Errorf("geometry has %d species but %d positions", len(g.Species), len(g.Positions))
	}
	return nil
}

// compositionKey returns a canonical string for the reduced composition.
func compositionKey(g *types.Geometry) string {
	counts := map[string]int{}
	for _, sp := range g.Species {
		counts[sp]++
	}

	divisor := 0
	for _, n := range counts {
		divisor = gcd(divisor, n)
	}

	elements := make([]string, 0, len(counts))
	for el := range counts {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	key := ""
	for _, el := range elements {
		key += fmt.Sprintf("%s%d", el, counts[el]/divisor)
	}
	return key
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// cellParameters returns the lattice vector lengths, cell angles in
// degrees and the cell volume.
func cellParameters(g *types.Geometry) (lengths [3]float64, angles [3]float64, volume float64) {
	v := g.Lattice
	for i := 0; i < 3; i++ {
		lengths[i] = math.Sqrt(dot(v[i], v[i]))
	}
	// alpha between b and c, beta between a and c, gamma between a and b
	angles[0] = angleDeg(v[1], v[2], lengths[1], lengths[2])
	angles[1] = angleDeg(v[0], v[2], lengths[0], lengths[2])
	angles[2] = angleDeg(v[0], v[1], lengths[0], lengths[1])
	volume = math.Abs(dot(v[0], cross(v[1], v[2])))
	return lengths, angles, volume
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func angleDeg(a, b [3]float64, la, lb float64) float64 {
	cos := dot(a, b) / (la * lb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
