// Package weights converts a neighbor relation into a spatial weight matrix.
package weights

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
)

// Mode selects how the weight matrix is derived from the neighbor relation.
type Mode string

const (
	// ModeBinary row-standardizes binary contiguity weights: each row with
	// at least one neighbor sums to 1. Used for the global statistic.
	ModeBinary Mode = "binary"
	// ModeStar row-standardizes the off-diagonal weights as in binary mode,
	// then fixes the diagonal at 1 so each region's own value contributes to
	// its own local statistic. Used for Gi*.
	ModeStar Mode = "star"
)

// ZeroNeighborPolicy controls how rows with no neighbors are standardized.
type ZeroNeighborPolicy string

const (
	// ZeroPolicyZero leaves a zero-neighbor row as all zeros; the region is
	// flagged as having an undefined local contribution.
	ZeroPolicyZero ZeroNeighborPolicy = "zero"
	// ZeroPolicySelf falls back to a unit self-weight for zero-neighbor rows.
	ZeroPolicySelf ZeroNeighborPolicy = "self"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBinary, ModeStar:
		return Mode(s), nil
	default:
		return "", eris.Errorf("weights: unknown mode %q (valid: binary, star)", s)
	}
}

// ParseZeroNeighborPolicy validates a zero-neighbor policy string.
func ParseZeroNeighborPolicy(s string) (ZeroNeighborPolicy, error) {
	switch ZeroNeighborPolicy(s) {
	case ZeroPolicyZero, ZeroPolicySelf:
		return ZeroNeighborPolicy(s), nil
	default:
		return "", eris.Errorf("weights: unknown zero-neighbor policy %q (valid: zero, self)", s)
	}
}

// Matrix is a deterministic spatial weight matrix derived from a neighbor
// relation. Isolated lists the indices of zero-neighbor regions whose rows
// were left all-zero under ZeroPolicyZero.
type Matrix struct {
	W        *mat.Dense
	N        int
	Mode     Mode
	Policy   ZeroNeighborPolicy
	Isolated []int
}

// At returns w_ij.
func (m *Matrix) At(i, j int) float64 { return m.W.At(i, j) }

// RowSum returns the sum of row i.
func (m *Matrix) RowSum(i int) float64 {
	sum := 0.0
	for j := 0; j < m.N; j++ {
		sum += m.W.At(i, j)
	}
	return sum
}

// TotalSum returns S0, the sum of all weights.
func (m *Matrix) TotalSum() float64 {
	sum := 0.0
	for i := 0; i < m.N; i++ {
		sum += m.RowSum(i)
	}
	return sum
}

// Build derives a weight matrix from the neighbor relation in the given
// mode. The output is deterministic for identical inputs.
func Build(rel *geospatial.NeighborRelation, mode Mode, policy ZeroNeighborPolicy) (*Matrix, error) {
	if rel == nil {
		return nil, eris.New("weights: neighbor relation is required")
	}
	n := rel.N()
	m := &Matrix{
		W:      mat.NewDense(max(n, 1), max(n, 1), nil),
		N:      n,
		Mode:   mode,
		Policy: policy,
	}

	for i := 0; i < n; i++ {
		nbrs := rel.Neighbors(i)
		if len(nbrs) == 0 {
			switch policy {
			case ZeroPolicySelf:
				m.W.Set(i, i, 1)
			default:
				m.Isolated = append(m.Isolated, i)
			}
			if mode == ModeStar {
				m.W.Set(i, i, 1)
			}
			continue
		}

		w := 1.0 / float64(len(nbrs))
		for _, j := range nbrs {
			m.W.Set(i, j, w)
		}
		if mode == ModeStar {
			m.W.Set(i, i, 1)
		}
	}

	return m, nil
}
