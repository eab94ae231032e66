package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mc3d/mc3d-source/internal/types"
)

// DefaultSymprec is the numeric tolerance used for symmetry detection
// when bucketing structures without a precomputed space group.
const DefaultSymprec = 0.005

// SymmetryDetector determines the space-group number of a geometry.
// Detection is an external capability; a malformed geometry surfaces as
// an error, never a panic.
type SymmetryDetector interface {
	SpacegroupNumber(ctx context.Context, g *types.Geometry, symprec float64) (int, error)
}

// CommandDetector runs an external symmetry-detection command. The
// geometry is written to stdin as JSON together with the tolerance; the
// command must print the space-group number on stdout.
type CommandDetector struct {
	// Command is the argv of the external tool, e.g.
	// []string{"mc3d-spglib"}.
	Command []string
}

type commandDetectorInput struct {
	Geometry *types.Geometry `json:"geometry"`
	Symprec  float64         `json:"symprec"`
}

// SpacegroupNumber implements SymmetryDetector.
func (d *CommandDetector) SpacegroupNumber(ctx context.Context, g *types.Geometry, symprec float64) (int, error) {
	if len(d.Command) == 0 {
		return 0, fmt.Errorf("no symmetry command configured")
	}
	if err := validate(g); err != nil {
		return 0, fmt.Errorf("invalid geometry: %w", err)
	}

	input, err := json.Marshal(commandDetectorInput{Geometry: g, Symprec: symprec})
	if err != nil {
		return 0, fmt.Errorf("encoding geometry: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.Command[0], d.Command[1:]...)
	cmd.Stdin = bytes.NewReader(input)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("symmetry command failed: %w", err)
	}

	number, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("parsing symmetry output %q: %w", strings.TrimSpace(string(out)), err)
	}
	if number < 1 || number > 230 {
		return 0, fmt.Errorf("space-group number %d out of range", number)
	}
	return number, nil
}
