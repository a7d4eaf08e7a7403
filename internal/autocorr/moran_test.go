package autocorr

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
	"github.com/ubd-geolab/spatial-cli/internal/weights"
)

// gridMatrix builds a row-standardized weight matrix for rook adjacency
// over a rows x cols lattice, indexed row-major.
func gridMatrix(t *testing.T, rows, cols int, mode weights.Mode) *weights.Matrix {
	t.Helper()

	var pairs [][2]int
	idx := func(r, c int) int { return r*cols + c }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				pairs = append(pairs, [2]int{idx(r, c), idx(r, c+1)})
			}
			if r+1 < rows {
				pairs = append(pairs, [2]int{idx(r, c), idx(r+1, c)})
			}
		}
	}
	rel, err := geospatial.NewNeighborRelation(rows*cols, pairs)
	require.NoError(t, err)
	m, err := weights.Build(rel, mode, weights.ZeroPolicyZero)
	require.NoError(t, err)
	return m
}

// checkerboard returns alternating 0/1 values over a rows x cols lattice.
func checkerboard(rows, cols int) []float64 {
	out := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if (r+c)%2 == 1 {
				out[r*cols+c] = 1
			}
		}
	}
	return out
}

func TestParseAssumption(t *testing.T) {
	for _, s := range []string{"normality", "randomization"} {
		a, err := ParseAssumption(s)
		assert.NoError(t, err)
		assert.Equal(t, Assumption(s), a)
	}
	_, err := ParseAssumption("permutation")
	assert.Error(t, err)
}

// Perfect alternation under row-standardized rook weights gives I = -1
// exactly: every neighbor of a cell carries the opposite deviation.
func TestMoran_CheckerboardIsMinusOne(t *testing.T) {
	w := gridMatrix(t, 4, 4, weights.ModeBinary)
	values := checkerboard(4, 4)

	for _, assumption := range []Assumption{AssumptionNormality, AssumptionRandomization} {
		res, err := Moran(values, w, assumption)
		require.NoError(t, err, assumption)

		assert.InDelta(t, -1, res.I, 1e-12)
		assert.InDelta(t, -1.0/15.0, res.Expected, 1e-12)
		assert.Greater(t, res.Variance, 0.0)
		assert.Less(t, res.ZScore, 0.0)
		assert.Less(t, res.PValue, 0.05)
		assert.Equal(t, 16, res.N)
		assert.Equal(t, assumption, res.Assumption)
	}
}

// A split lattice, high on one side and low on the other, clusters.
func TestMoran_ClusteredIsPositive(t *testing.T) {
	w := gridMatrix(t, 4, 4, weights.ModeBinary)
	values := make([]float64, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 2; c++ {
			values[r*4+c] = 10
		}
	}

	res, err := Moran(values, w, AssumptionRandomization)
	require.NoError(t, err)

	assert.Greater(t, res.I, 0.3)
	assert.Greater(t, res.ZScore, 0.0)
}

func TestMoran_ConstantValuesUndefined(t *testing.T) {
	w := gridMatrix(t, 3, 3, weights.ModeBinary)
	values := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5}

	_, err := Moran(values, w, AssumptionNormality)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUndefinedStatistic))
	assert.False(t, eris.Is(err, ErrInsufficientStructure))
}

func TestMoran_TooFewRegions(t *testing.T) {
	rel, err := geospatial.NewNeighborRelation(1, nil)
	require.NoError(t, err)
	w, err := weights.Build(rel, weights.ModeBinary, weights.ZeroPolicyZero)
	require.NoError(t, err)

	_, err = Moran([]float64{1}, w, AssumptionNormality)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientStructure))
}

func TestMoran_NoNeighborPairs(t *testing.T) {
	rel, err := geospatial.NewNeighborRelation(4, nil)
	require.NoError(t, err)
	w, err := weights.Build(rel, weights.ModeBinary, weights.ZeroPolicyZero)
	require.NoError(t, err)

	_, err = Moran([]float64{1, 2, 3, 4}, w, AssumptionNormality)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientStructure))
}

func TestMoran_SizeMismatch(t *testing.T) {
	w := gridMatrix(t, 2, 2, weights.ModeBinary)
	_, err := Moran([]float64{1, 2, 3}, w, AssumptionNormality)
	assert.Error(t, err)
}

func TestMoran_RandomizationNeedsFourRegions(t *testing.T) {
	rel, err := geospatial.NewNeighborRelation(3, [][2]int{{0, 1}, {1, 2}})
	require.NoError(t, err)
	w, err := weights.Build(rel, weights.ModeBinary, weights.ZeroPolicyZero)
	require.NoError(t, err)

	_, err = Moran([]float64{1, 5, 2}, w, AssumptionRandomization)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUndefinedStatistic))

	// The normality null is still available at n = 3.
	_, err = Moran([]float64{1, 5, 2}, w, AssumptionNormality)
	assert.NoError(t, err)
}

func TestMoran_Deterministic(t *testing.T) {
	w := gridMatrix(t, 4, 4, weights.ModeBinary)
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3}

	a, err := Moran(values, w, AssumptionRandomization)
	require.NoError(t, err)
	b, err := Moran(values, w, AssumptionRandomization)
	require.NoError(t, err)

	assert.Equal(t, a.I, b.I)
	assert.Equal(t, a.Variance, b.Variance)
	assert.Equal(t, a.PValue, b.PValue)
}

func TestMoran_VarianceDiffersByAssumption(t *testing.T) {
	w := gridMatrix(t, 4, 4, weights.ModeBinary)
	// Heavy-tailed values make the kurtosis correction bite.
	values := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 40}

	norm, err := Moran(values, w, AssumptionNormality)
	require.NoError(t, err)
	rand, err := Moran(values, w, AssumptionRandomization)
	require.NoError(t, err)

	assert.Equal(t, norm.I, rand.I)
	assert.NotEqual(t, norm.Variance, rand.Variance)
}
