// Package regress fits the school-count versus population comparison.
package regress

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Result holds an ordinary least squares fit of y on x with its
// significance. PValue is the two-sided p-value of the slope from a
// Student's t test with n-2 degrees of freedom.
type Result struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	R2        float64 `json:"r2"`
	TStat     float64 `json:"t_stat"`
	PValue    float64 `json:"p_value"`
	N         int     `json:"n"`
}

// Fit regresses y (school counts) on x (population). It requires at least 3
// paired observations and variation in both variables.
func Fit(x, y []float64) (*Result, error) {
	if len(x) != len(y) {
		return nil, eris.Errorf("regress: mismatched lengths %d and %d", len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return nil, eris.Errorf("regress: need at least 3 observations, got %d", n)
	}
	if stat.Variance(x, nil) == 0 {
		return nil, eris.New("regress: predictor has zero variance")
	}
	if stat.Variance(y, nil) == 0 {
		return nil, eris.New("regress: response has zero variance")
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	r := stat.Correlation(x, y, nil)
	r2 := r * r

	// t statistic for the slope; guard a perfect fit.
	fn := float64(n)
	var tStat, pValue float64
	if r2 >= 1 {
		tStat = math.Inf(int(math.Copysign(1, r)))
		pValue = 0
	} else {
		tStat = r * math.Sqrt((fn-2)/(1-r2))
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: fn - 2}
		pValue = 2 * t.Survival(math.Abs(tStat))
		pValue = math.Min(pValue, 1)
	}

	return &Result{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		R2:        r2,
		TStat:     tStat,
		PValue:    pValue,
		N:         n,
	}, nil
}
