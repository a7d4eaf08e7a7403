package geospatial

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// sharedEdgeTol is the minimum accumulated collinear overlap, in coordinate
// units, for two boundaries to count as sharing an edge rather than a vertex.
const sharedEdgeTol = 1e-9

// NeighborRelation is a symmetric, irreflexive adjacency over a fixed
// ordering of regions (rook contiguity: shared boundary edge, not merely a
// shared vertex). Isolated regions are retained as zero-degree nodes.
type NeighborRelation struct {
	n     int
	lists [][]int
	edges int
}

// N returns the number of regions in the relation.
func (r *NeighborRelation) N() int { return r.n }

// Neighbors returns the neighbor indices of region i in ascending order.
// The returned slice must not be modified.
func (r *NeighborRelation) Neighbors(i int) []int { return r.lists[i] }

// Are reports whether regions i and j are neighbors.
func (r *NeighborRelation) Are(i, j int) bool {
	if i == j {
		return false
	}
	for _, k := range r.lists[i] {
		if k == j {
			return true
		}
	}
	return false
}

// Degree returns the number of neighbors of region i.
func (r *NeighborRelation) Degree(i int) int { return len(r.lists[i]) }

// EdgeCount returns the number of distinct neighbor pairs.
func (r *NeighborRelation) EdgeCount() int { return r.edges }

// Isolated returns the indices of regions with no neighbors.
func (r *NeighborRelation) Isolated() []int {
	var out []int
	for i, l := range r.lists {
		if len(l) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// NewNeighborRelation builds a relation from explicit neighbor pairs, for
// precomputed adjacency lists and synthetic structures. Self-pairs and
// out-of-range indices are rejected; duplicate pairs collapse.
func NewNeighborRelation(n int, pairs [][2]int) (*NeighborRelation, error) {
	if n < 0 {
		return nil, eris.Errorf("geospatial: negative region count %d", n)
	}
	rel := &NeighborRelation{n: n, lists: make([][]int, n)}
	seen := make(map[[2]int]bool, len(pairs))
	for _, p := range pairs {
		i, j := p[0], p[1]
		if i == j {
			return nil, eris.Errorf("geospatial: self-pair %d in neighbor relation", i)
		}
		if i < 0 || j < 0 || i >= n || j >= n {
			return nil, eris.Errorf("geospatial: neighbor pair (%d, %d) out of range for %d regions", i, j, n)
		}
		if i > j {
			i, j = j, i
		}
		if seen[[2]int{i, j}] {
			continue
		}
		seen[[2]int{i, j}] = true
		rel.lists[i] = append(rel.lists[i], j)
		rel.lists[j] = append(rel.lists[j], i)
		rel.edges++
	}
	for i := range rel.lists {
		sort.Ints(rel.lists[i])
	}
	return rel, nil
}

// BuildNeighbors derives the rook-contiguity relation over regions: i and j
// are neighbors iff their boundaries intersect with positive length.
// Candidate pairs are prefiltered by bounding box and tested concurrently;
// the output is independent of test order.
func BuildNeighbors(ctx context.Context, regions []model.Region) (*NeighborRelation, error) {
	n := len(regions)
	rel := &NeighborRelation{n: n, lists: make([][]int, n)}
	if n < 2 {
		return rel, nil
	}

	bounds := make([]*geom.Bounds, n)
	rings := make([][][]float64, n)
	for i := range regions {
		if regions[i].Geometry == nil {
			return nil, eris.Errorf("geospatial: region %s has no geometry", regions[i].ID)
		}
		bounds[i] = regions[i].Geometry.Bounds()
		rings[i] = ringsOf(regions[i].Geometry)
	}

	type pair struct{ i, j int }
	var candidates []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if bounds[i].Overlaps(geom.XY, bounds[j]) {
				candidates = append(candidates, pair{i, j})
			}
		}
	}

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, c := range candidates {
		g.Go(func() error {
			if sharedBoundaryLength(rings[c.i], rings[c.j]) > sharedEdgeTol {
				mu.Lock()
				rel.lists[c.i] = append(rel.lists[c.i], c.j)
				rel.lists[c.j] = append(rel.lists[c.j], c.i)
				rel.edges++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range rel.lists {
		sort.Ints(rel.lists[i])
	}

	if iso := rel.Isolated(); len(iso) > 0 {
		zap.L().Info("geospatial: isolated regions retained",
			zap.Int("count", len(iso)),
			zap.Int("regions", n),
		)
	}

	return rel, nil
}

// sharedBoundaryLength accumulates the collinear overlap length between the
// boundary segments of two ring sets. A vertex-only touch contributes zero.
func sharedBoundaryLength(a, b [][]float64) float64 {
	total := 0.0
	for _, ra := range a {
		for i := 0; i+3 < len(ra); i += 2 {
			ax1, ay1, ax2, ay2 := ra[i], ra[i+1], ra[i+2], ra[i+3]
			for _, rb := range b {
				for j := 0; j+3 < len(rb); j += 2 {
					total += segmentOverlap(ax1, ay1, ax2, ay2, rb[j], rb[j+1], rb[j+2], rb[j+3])
				}
			}
		}
	}
	return total
}

// segmentOverlap returns the length of the collinear overlap between
// segments p1p2 and q1q2, or 0 if they are not collinear.
func segmentOverlap(px1, py1, px2, py2, qx1, qy1, qx2, qy2 float64) float64 {
	dx, dy := px2-px1, py2-py1
	segLen := math.Hypot(dx, dy)
	if segLen == 0 {
		return 0
	}

	// Both q endpoints must lie on the line through p1p2.
	eps := 1e-12 * segLen
	if math.Abs(cross(dx, dy, qx1-px1, qy1-py1)) > eps {
		return 0
	}
	if math.Abs(cross(dx, dy, qx2-px1, qy2-py1)) > eps {
		return 0
	}

	// Project q endpoints onto p1p2 and intersect parameter intervals.
	t1 := ((qx1-px1)*dx + (qy1-py1)*dy) / (segLen * segLen)
	t2 := ((qx2-px1)*dx + (qy2-py1)*dy) / (segLen * segLen)
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	lo := math.Max(0, t1)
	hi := math.Min(1, t2)
	if hi <= lo {
		return 0
	}
	return (hi - lo) * segLen
}

func cross(ax, ay, bx, by float64) float64 {
	return ax*by - ay*bx
}
