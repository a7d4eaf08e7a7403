package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

func TestContains(t *testing.T) {
	square := unitSquare("a", 0, 0).Geometry

	assert.True(t, Contains(square, 0.5, 0.5))
	assert.False(t, Contains(square, 1.5, 0.5))
	assert.False(t, Contains(square, -0.5, -0.5))
	assert.False(t, Contains(nil, 0.5, 0.5))
}

func TestContains_Hole(t *testing.T) {
	// Outer 4x4 square with a 1x1 hole in the middle.
	withHole := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 4, 0, 4, 4, 0, 4, 0, 0,
		1.5, 1.5, 2.5, 1.5, 2.5, 2.5, 1.5, 2.5, 1.5, 1.5,
	}, []int{10, 20})

	assert.True(t, Contains(withHole, 0.5, 0.5))
	assert.False(t, Contains(withHole, 2, 2), "point in hole")
}

func TestContains_MultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygonFlat(geom.XY, []float64{
		0, 0, 1, 0, 1, 1, 0, 1, 0, 0,
		5, 5, 6, 5, 6, 6, 5, 6, 5, 5,
	}, [][]int{{10}, {20}})

	assert.True(t, Contains(mp, 0.5, 0.5))
	assert.True(t, Contains(mp, 5.5, 5.5))
	assert.False(t, Contains(mp, 3, 3))
}

func TestJoinSchools(t *testing.T) {
	regions := []model.Region{
		unitSquare("west", 0, 0),
		unitSquare("east", 1, 0),
	}
	schools := []model.School{
		{ID: "s1", Name: "First", Lng: 0.2, Lat: 0.2},
		{ID: "s2", Name: "Second", Lng: 0.8, Lat: 0.8},
		{ID: "s3", Name: "Third", Lng: 1.5, Lat: 0.5},
		{ID: "s4", Name: "Offshore", Lng: 9, Lat: 9},
	}

	res := JoinSchools(regions, schools)

	assert.Equal(t, []int{2, 1}, res.Counts)
	assert.Equal(t, "west", res.Assigned["s1"])
	assert.Equal(t, "west", res.Assigned["s2"])
	assert.Equal(t, "east", res.Assigned["s3"])

	if assert.Len(t, res.Unmatched, 1) {
		assert.Equal(t, "s4", res.Unmatched[0].ID)
	}
	_, ok := res.Assigned["s4"]
	assert.False(t, ok)
}

func TestJoinSchools_Empty(t *testing.T) {
	res := JoinSchools([]model.Region{unitSquare("a", 0, 0)}, nil)
	assert.Equal(t, []int{0}, res.Counts)
	assert.Empty(t, res.Unmatched)
}

func TestApplyCounts(t *testing.T) {
	regions := []model.Region{unitSquare("a", 0, 0), unitSquare("b", 1, 0)}
	res := &JoinResult{Counts: []int{3, 7}}

	out := ApplyCounts(regions, res)

	assert.Equal(t, 3, out[0].SchoolCount)
	assert.Equal(t, 7, out[1].SchoolCount)
	assert.Equal(t, 0, regions[0].SchoolCount, "input regions untouched")
}
