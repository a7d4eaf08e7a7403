// Package autocorr implements the spatial-autocorrelation statistics:
// Global Moran's I and the local Getis-Ord Gi* hotspot statistic.
package autocorr

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ubd-geolab/spatial-cli/internal/weights"
)

// Terminal analysis conditions. These are reporting outcomes, not crashes:
// callers inspect them with eris.Is.
var (
	// ErrInsufficientStructure signals fewer than 2 regions or a weight
	// matrix with no neighbor pairs at all.
	ErrInsufficientStructure = eris.New("autocorr: insufficient spatial structure")
	// ErrUndefinedStatistic signals a zero denominator, e.g. all values
	// equal so the variance under the null is zero.
	ErrUndefinedStatistic = eris.New("autocorr: statistic undefined for this input")
)

// Assumption selects the null model for the Moran's I variance.
type Assumption string

const (
	AssumptionNormality     Assumption = "normality"
	AssumptionRandomization Assumption = "randomization"
)

// ParseAssumption validates an assumption string.
func ParseAssumption(s string) (Assumption, error) {
	switch Assumption(s) {
	case AssumptionNormality, AssumptionRandomization:
		return Assumption(s), nil
	default:
		return "", eris.Errorf("autocorr: unknown assumption %q (valid: normality, randomization)", s)
	}
}

// MoranResult is the immutable outcome of a global Moran's I computation.
type MoranResult struct {
	I          float64    `json:"i"`
	Expected   float64    `json:"expected"`
	Variance   float64    `json:"variance"`
	ZScore     float64    `json:"z_score"`
	PValue     float64    `json:"p_value"` // two-sided, standard normal
	Assumption Assumption `json:"assumption"`
	N          int        `json:"n"`
}

// Moran computes Global Moran's I over values with the given weight matrix
// (binary mode, row-standardized) and its significance under the chosen
// null assumption.
func Moran(values []float64, w *weights.Matrix, assumption Assumption) (*MoranResult, error) {
	n := len(values)
	if w == nil || w.N != n {
		return nil, eris.Errorf("autocorr: weight matrix size does not match %d values", n)
	}
	if n < 2 {
		return nil, eris.Wrap(ErrInsufficientStructure, "fewer than 2 regions")
	}

	s0 := w.TotalSum()
	if s0 == 0 {
		return nil, eris.Wrap(ErrInsufficientStructure, "weight matrix has no neighbor pairs")
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	// Deviations and moments.
	z := make([]float64, n)
	var m2, m4 float64
	for i, v := range values {
		z[i] = v - mean
		m2 += z[i] * z[i]
		m4 += z[i] * z[i] * z[i] * z[i]
	}
	if m2 == 0 {
		return nil, eris.Wrap(ErrUndefinedStatistic, "values have zero variance")
	}

	var crossSum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			wij := w.At(i, j)
			if wij != 0 {
				crossSum += wij * z[i] * z[j]
			}
		}
	}

	fn := float64(n)
	moranI := (fn / s0) * crossSum / m2
	expected := -1.0 / (fn - 1)

	variance, err := moranVariance(w, z, m2, m4, s0, assumption)
	if err != nil {
		return nil, err
	}
	if variance <= 0 || !isFinite(variance) {
		return nil, eris.Wrap(ErrUndefinedStatistic, "null variance is not positive")
	}

	zScore := (moranI - expected) / math.Sqrt(variance)
	return &MoranResult{
		I:          moranI,
		Expected:   expected,
		Variance:   variance,
		ZScore:     zScore,
		PValue:     twoSidedP(zScore),
		Assumption: assumption,
		N:          n,
	}, nil
}

// moranVariance computes Var[I] under the normality or randomization null.
func moranVariance(w *weights.Matrix, z []float64, m2, m4, s0 float64, assumption Assumption) (float64, error) {
	n := len(z)
	fn := float64(n)

	// S1 = 1/2 sum_ij (w_ij + w_ji)^2, S2 = sum_i (row_i + col_i)^2.
	var s1 float64
	colSums := make([]float64, n)
	rowSums := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			wij := w.At(i, j)
			if wij == 0 && w.At(j, i) == 0 {
				continue
			}
			sum := wij + w.At(j, i)
			s1 += sum * sum
			rowSums[i] += wij
			colSums[j] += wij
		}
	}
	s1 /= 2

	var s2 float64
	for i := 0; i < n; i++ {
		t := rowSums[i] + colSums[i]
		s2 += t * t
	}

	expected := -1.0 / (fn - 1)

	switch assumption {
	case AssumptionNormality:
		return (fn*fn*s1-fn*s2+3*s0*s0)/((fn*fn-1)*s0*s0) - expected*expected, nil

	case AssumptionRandomization:
		if n < 4 {
			return 0, eris.Wrap(ErrUndefinedStatistic, "randomization variance needs at least 4 regions")
		}
		b2 := fn * m4 / (m2 * m2)
		num := fn*((fn*fn-3*fn+3)*s1-fn*s2+3*s0*s0) -
			b2*((fn*fn-fn)*s1-2*fn*s2+6*s0*s0)
		den := (fn - 1) * (fn - 2) * (fn - 3) * s0 * s0
		return num/den - expected*expected, nil

	default:
		return 0, eris.Errorf("autocorr: unknown assumption %q", assumption)
	}
}

// twoSidedP returns the two-sided p-value of z under the standard normal.
func twoSidedP(z float64) float64 {
	p := 2 * distuv.UnitNormal.Survival(math.Abs(z))
	return math.Min(p, 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
