package weights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubd-geolab/spatial-cli/internal/geospatial"
)

// pathRelation returns a path graph 0-1-2-...-(n-1).
func pathRelation(t *testing.T, n int) *geospatial.NeighborRelation {
	t.Helper()
	pairs := make([][2]int, 0, n-1)
	for i := 0; i+1 < n; i++ {
		pairs = append(pairs, [2]int{i, i + 1})
	}
	rel, err := geospatial.NewNeighborRelation(n, pairs)
	require.NoError(t, err)
	return rel
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"binary", "star"} {
		mode, err := ParseMode(s)
		assert.NoError(t, err)
		assert.Equal(t, Mode(s), mode)
	}
	_, err := ParseMode("queen")
	assert.Error(t, err)
}

func TestParseZeroNeighborPolicy(t *testing.T) {
	for _, s := range []string{"zero", "self"} {
		p, err := ParseZeroNeighborPolicy(s)
		assert.NoError(t, err)
		assert.Equal(t, ZeroNeighborPolicy(s), p)
	}
	_, err := ParseZeroNeighborPolicy("drop")
	assert.Error(t, err)
}

func TestBuildBinary_RowStochastic(t *testing.T) {
	rel := pathRelation(t, 5)

	m, err := Build(rel, ModeBinary, ZeroPolicyZero)
	require.NoError(t, err)

	for i := 0; i < m.N; i++ {
		assert.InDelta(t, 1, m.RowSum(i), 1e-12, "row %d", i)
	}
	assert.InDelta(t, 5, m.TotalSum(), 1e-12)
}

func TestBuildBinary_PathWeights(t *testing.T) {
	m, err := Build(pathRelation(t, 3), ModeBinary, ZeroPolicyZero)
	require.NoError(t, err)

	// Endpoints have one neighbor with full weight; the middle splits.
	assert.InDelta(t, 1, m.At(0, 1), 1e-12)
	assert.InDelta(t, 0.5, m.At(1, 0), 1e-12)
	assert.InDelta(t, 0.5, m.At(1, 2), 1e-12)
	assert.InDelta(t, 0, m.At(0, 2), 1e-12)
	for i := 0; i < m.N; i++ {
		assert.InDelta(t, 0, m.At(i, i), 1e-12, "binary diagonal %d", i)
	}
}

func TestBuildStar_Diagonal(t *testing.T) {
	m, err := Build(pathRelation(t, 3), ModeStar, ZeroPolicyZero)
	require.NoError(t, err)

	// Off-diagonal weights match binary mode; diagonal is pinned at 1.
	for i := 0; i < m.N; i++ {
		assert.InDelta(t, 1, m.At(i, i), 1e-12, "star diagonal %d", i)
	}
	assert.InDelta(t, 1, m.At(0, 1), 1e-12)
	assert.InDelta(t, 0.5, m.At(1, 0), 1e-12)
	assert.InDelta(t, 0.5, m.At(1, 2), 1e-12)
}

func TestBuild_ZeroPolicyZero(t *testing.T) {
	rel, err := geospatial.NewNeighborRelation(3, [][2]int{{0, 1}})
	require.NoError(t, err)

	m, err := Build(rel, ModeBinary, ZeroPolicyZero)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, m.Isolated)
	assert.InDelta(t, 0, m.RowSum(2), 1e-12)
}

func TestBuild_ZeroPolicySelf(t *testing.T) {
	rel, err := geospatial.NewNeighborRelation(3, [][2]int{{0, 1}})
	require.NoError(t, err)

	m, err := Build(rel, ModeBinary, ZeroPolicySelf)
	require.NoError(t, err)

	assert.Empty(t, m.Isolated)
	assert.InDelta(t, 1, m.At(2, 2), 1e-12)
	assert.InDelta(t, 1, m.RowSum(2), 1e-12)
}

func TestBuildStar_IsolatedKeepsSelfWeight(t *testing.T) {
	rel, err := geospatial.NewNeighborRelation(2, nil)
	require.NoError(t, err)

	m, err := Build(rel, ModeStar, ZeroPolicyZero)
	require.NoError(t, err)

	// Under star mode the self-weight stays even for isolated regions, so
	// the local statistic degrades to the region's own value.
	assert.InDelta(t, 1, m.At(0, 0), 1e-12)
	assert.InDelta(t, 1, m.At(1, 1), 1e-12)
	assert.Equal(t, []int{0, 1}, m.Isolated)
}

func TestBuild_NilRelation(t *testing.T) {
	_, err := Build(nil, ModeBinary, ZeroPolicyZero)
	assert.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	rel := pathRelation(t, 6)

	a, err := Build(rel, ModeStar, ZeroPolicyZero)
	require.NoError(t, err)
	b, err := Build(rel, ModeStar, ZeroPolicyZero)
	require.NoError(t, err)

	for i := 0; i < a.N; i++ {
		for j := 0; j < a.N; j++ {
			assert.Equal(t, a.At(i, j), b.At(i, j))
		}
	}
}
