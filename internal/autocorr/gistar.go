package autocorr

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/ubd-geolab/spatial-cli/internal/weights"
)

// HotspotClass classifies a cell's local statistic.
type HotspotClass string

const (
	ClassHotspot        HotspotClass = "hotspot"
	ClassColdspot       HotspotClass = "coldspot"
	ClassNotSignificant HotspotClass = "not_significant"
)

// GiStarResult holds the local Gi* outcome for one cell. Ratio is the raw
// concentration statistic sum_j w_ij x_j / sum_j x_j; ZScore and PValue come
// from the standard Getis-Ord randomization null. Defined is false for cells
// whose statistic could not be computed (isolated cell under the zero
// policy, or a degenerate null variance).
type GiStarResult struct {
	Index   int          `json:"index"`
	Ratio   float64      `json:"ratio"`
	ZScore  float64      `json:"z_score"`
	PValue  float64      `json:"p_value"`
	Class   HotspotClass `json:"class"`
	Defined bool         `json:"defined"`
}

// GiStarOptions configures significance filtering.
type GiStarOptions struct {
	Alpha     float64 // significance level, default 0.05
	TwoTailed bool    // also classify coldspots; default reports hotspots only
}

// GiStar computes the Getis-Ord Gi* statistic per cell using a star-mode
// weight matrix (self weight included). Classification follows the
// configured filter: hotspot iff z > 0 and p < alpha; coldspot only when
// two-tailed reporting is enabled.
func GiStar(values []float64, w *weights.Matrix, opts GiStarOptions) ([]GiStarResult, error) {
	n := len(values)
	if w == nil || w.N != n {
		return nil, eris.Errorf("autocorr: weight matrix size does not match %d values", n)
	}
	if w.Mode != weights.ModeStar {
		return nil, eris.Errorf("autocorr: Gi* requires a star-mode weight matrix, got %q", w.Mode)
	}
	if n < 2 {
		return nil, eris.Wrap(ErrInsufficientStructure, "fewer than 2 cells")
	}
	alpha := opts.Alpha
	if alpha <= 0 {
		alpha = 0.05
	}

	fn := float64(n)
	var total, totalSq float64
	for _, v := range values {
		total += v
		totalSq += v * v
	}
	mean := total / fn
	// Population standard deviation of x under the randomization null.
	sd := math.Sqrt(totalSq/fn - mean*mean)

	results := make([]GiStarResult, n)
	for i := 0; i < n; i++ {
		res := GiStarResult{Index: i, Class: ClassNotSignificant}

		var wSum, wSqSum, weighted float64
		for j := 0; j < n; j++ {
			wij := w.At(i, j)
			if wij == 0 {
				continue
			}
			wSum += wij
			wSqSum += wij * wij
			weighted += wij * values[j]
		}

		if total != 0 {
			res.Ratio = weighted / total
		}

		// Degenerate nulls are reported as undefined, never as NaN.
		denomVar := (fn*wSqSum - wSum*wSum) / (fn - 1)
		if sd == 0 || denomVar <= 0 || wSum == 0 {
			results[i] = res
			continue
		}

		res.ZScore = (weighted - mean*wSum) / (sd * math.Sqrt(denomVar))
		if !isFinite(res.ZScore) {
			results[i] = res
			continue
		}
		res.PValue = twoSidedP(res.ZScore)
		res.Defined = true

		switch {
		case res.ZScore > 0 && res.PValue < alpha:
			res.Class = ClassHotspot
		case opts.TwoTailed && res.ZScore < 0 && res.PValue < alpha:
			res.Class = ClassColdspot
		}
		results[i] = res
	}

	return results, nil
}

// Significant filters Gi* results down to classified hotspots (and coldspots
// when present), preserving input order.
func Significant(results []GiStarResult) []GiStarResult {
	var out []GiStarResult
	for _, r := range results {
		if r.Class == ClassHotspot || r.Class == ClassColdspot {
			out = append(out, r)
		}
	}
	return out
}
