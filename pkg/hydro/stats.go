package hydro

import (
	"sort"

	"github.com/maseology/objfunc"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/geokit/pkg/errors"
)

// FlowDuration ranks q from largest to smallest and returns the exceedance
// probability of each rank in percent, using the Weibull plotting position
// i/(n+1). Non-finite flows are dropped.
func FlowDuration(q []float64) (exceed, flows []float64) {
	flows = make([]float64, 0, len(q))
	for _, v := range q {
		if finite(v) {
			flows = append(flows, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(flows)))

	n := float64(len(flows))
	exceed = make([]float64, len(flows))
	for i := range flows {
		exceed[i] = float64(i+1) / (n + 1) * 100
	}
	return exceed, flows
}

// EnsembleFDC computes the flow duration curve of every member. Members must
// cover the same time steps. A step that is non-finite in any member is
// dropped from all of them, so every curve has the same ranks.
func EnsembleFDC(members [][]float64) (exceed []float64, flows [][]float64, err error) {
	if len(members) == 0 {
		return nil, nil, nil
	}
	n := len(members[0])
	for i, m := range members {
		if len(m) != n {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "member %d has %d steps, member 0 has %d", i, len(m), n)
		}
	}

	keep := make([]int, 0, n)
	for t := 0; t < n; t++ {
		ok := true
		for _, m := range members {
			if !finite(m[t]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, t)
		}
	}

	flows = make([][]float64, len(members))
	col := make([]float64, len(keep))
	for i, m := range members {
		for j, t := range keep {
			col[j] = m[t]
		}
		var ex []float64
		ex, flows[i] = FlowDuration(col)
		if i == 0 {
			exceed = ex
		}
	}
	return exceed, flows, nil
}

// EnsembleStats reduces members to the per-step mean and the band
// mean ± 2σ, where σ is the sample standard deviation across members.
// A single member yields a zero-width band.
func EnsembleStats(members [][]float64) (mean, lower, upper []float64, err error) {
	if len(members) == 0 {
		return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "no members")
	}
	n := len(members[0])
	for i, m := range members {
		if len(m) != n {
			return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "member %d has %d steps, want %d", i, len(m), n)
		}
	}

	mean = make([]float64, n)
	lower = make([]float64, n)
	upper = make([]float64, n)
	col := make([]float64, len(members))
	for t := 0; t < n; t++ {
		for i, m := range members {
			col[i] = m[t]
		}
		mu, sd := stat.MeanStdDev(col, nil)
		if len(col) == 1 {
			sd = 0
		}
		mean[t] = mu
		lower[t] = mu - 2*sd
		upper[t] = mu + 2*sd
	}
	return mean, lower, upper, nil
}

// FitStats scores a simulated series against observations.
type FitStats struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	RMSE      float64 `json:"rmse"`
	MBE       float64 `json:"mbe"`
	Bias      float64 `json:"bias"`
	NSE       float64 `json:"nse"`
	KGE       float64 `json:"kge"`
	N         int     `json:"n"`
}

// Fit regresses sim on obs and computes the error scores. Pairs with a
// non-finite value on either side are skipped; at least two pairs must
// remain. MBE is the mean of sim−obs, so it is positive when the simulation
// overpredicts. Bias is objfunc's volume bias of sim against obs.
func Fit(obs, sim []float64) (FitStats, error) {
	if len(obs) != len(sim) {
		return FitStats{}, errors.New(errors.ErrCodeInvalidInput, "obs has %d values, sim has %d", len(obs), len(sim))
	}
	var x, y []float64
	for i := range obs {
		if finite(obs[i]) && finite(sim[i]) {
			x = append(x, obs[i])
			y = append(y, sim[i])
		}
	}
	if len(x) < 2 {
		return FitStats{}, errors.New(errors.ErrCodeInvalidInput, "need at least 2 paired values, have %d", len(x))
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	s := FitStats{
		Slope:     beta,
		Intercept: alpha,
		R2:        stat.RSquared(x, y, nil, alpha, beta),
		N:         len(x),
	}

	var sum float64
	for i := range x {
		sum += y[i] - x[i]
	}
	s.MBE = sum / float64(len(x))
	s.RMSE = objfunc.RMSE(x, y)
	s.Bias = objfunc.Bias(x, y)
	s.NSE = objfunc.NSE(x, y)
	s.KGE = objfunc.KGE(x, y)
	return s, nil
}
