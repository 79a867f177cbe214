package gbm

import (
	"math"
	"math/rand"
)

// rowSampler draws per-row bootstrap weights. A zero weight removes the
// row from histogram construction.
type rowSampler struct {
	p   *Params
	rng *rand.Rand
	bag []float64 // lightgbm bagging mask, reused between redraws
}

func newRowSampler(p *Params, rng *rand.Rand) *rowSampler {
	return &rowSampler{p: p, rng: rng}
}

func (s *rowSampler) subsample() float64 {
	if s.p.Subsample == 0 {
		return 1
	}
	return s.p.Subsample
}

// draw fills w for iteration iter. g holds the current gradients (MVS).
func (s *rowSampler) draw(w, g []float64, iter int) {
	switch s.p.Bootstrap {
	case BootstrapBernoulli:
		q := s.subsample()
		for i := range w {
			if s.rng.Float64() < q {
				w[i] = 1
			} else {
				w[i] = 0
			}
		}
	case BootstrapBayesian:
		t := s.p.BaggingTemperature
		for i := range w {
			if t == 0 {
				w[i] = 1
				continue
			}
			u := s.rng.Float64()
			for u == 0 {
				u = s.rng.Float64()
			}
			w[i] = math.Pow(-math.Log(u), t)
		}
	case BootstrapMVS:
		s.drawMVS(w, g)
	default:
		for i := range w {
			w[i] = 1
		}
	}
	s.applyBagging(w, iter)
}

// applyBagging keeps a BaggingFraction subset redrawn every BaggingFreq iterations.
func (s *rowSampler) applyBagging(w []float64, iter int) {
	if s.p.BaggingFreq <= 0 || s.p.BaggingFraction >= 1 {
		return
	}
	n := len(w)
	if s.bag == nil || iter%s.p.BaggingFreq == 0 {
		k := int(math.Round(s.p.BaggingFraction * float64(n)))
		if k < 1 {
			k = 1
		}
		s.bag = make([]float64, n)
		for _, i := range s.rng.Perm(n)[:k] {
			s.bag[i] = 1
		}
	}
	for i := range w {
		w[i] *= s.bag[i]
	}
}

// drawMVS implements minimal variance sampling: row i is kept with
// probability p_i = min(1, |g_i| / mu), mu chosen so that sum p_i equals
// subsample * n, and kept rows are reweighted by 1 / p_i.
func (s *rowSampler) drawMVS(w, g []float64) {
	n := len(w)
	target := s.subsample() * float64(n)
	abs := make([]float64, n)
	var maxAbs float64
	for i, v := range g {
		abs[i] = math.Abs(v)
		maxAbs = math.Max(maxAbs, abs[i])
	}
	if maxAbs == 0 || target >= float64(n) {
		for i := range w {
			w[i] = 1
		}
		return
	}

	expected := func(mu float64) float64 {
		var sum float64
		for _, a := range abs {
			sum += math.Min(1, a/mu)
		}
		return sum
	}
	lo, hi := 1e-300, maxAbs*float64(n)
	for it := 0; it < 100; it++ {
		mid := (lo + hi) / 2
		if expected(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	mu := hi
	for i := range w {
		p := math.Min(1, abs[i]/mu)
		if p > 0 && s.rng.Float64() < p {
			w[i] = 1 / p
		} else {
			w[i] = 0
		}
	}
}

// sampleFeatures returns a sorted subset of ceil(fraction * p) features.
func sampleFeatures(rng *rand.Rand, p int, fraction float64) []int {
	k := int(math.Ceil(fraction * float64(p)))
	if k >= p || k <= 0 {
		out := make([]int, p)
		for j := range out {
			out[j] = j
		}
		return out
	}
	perm := rng.Perm(p)[:k]
	mark := make([]bool, p)
	for _, j := range perm {
		mark[j] = true
	}
	out := make([]int, 0, k)
	for j, m := range mark {
		if m {
			out = append(out, j)
		}
	}
	return out
}
