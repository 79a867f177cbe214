package optimize

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// TPESampler is an independent Tree-structured Parzen Estimator.
//
// After nStartupTrials random trials, the completed observations of a
// parameter are split by objective value into a good set (the best
// gamma(n)) and a bad set. Each set is modelled by a Parzen mixture, l(x)
// for good and g(x) for bad, and the candidate drawn from l maximizing
// l(x) / g(x) is returned. Parameters that appear only in some trials
// (conditional branches) are fitted on the trials that sampled them.
type TPESampler struct {
	mu             sync.Mutex
	rng            *rand.Rand
	nStartupTrials int
	nCandidates    int
	priorWeight    float64
	gamma          func(n int) int
}

// TPEOption configures a TPESampler.
type TPEOption func(*TPESampler)

// WithNStartupTrials sets the number of random trials before TPE kicks in.
func WithNStartupTrials(n int) TPEOption {
	return func(s *TPESampler) { s.nStartupTrials = n }
}

// WithNEICandidates sets how many candidates are scored per suggestion.
func WithNEICandidates(n int) TPEOption {
	return func(s *TPESampler) { s.nCandidates = n }
}

// WithGamma sets the size of the good set for n observations.
func WithGamma(gamma func(n int) int) TPEOption {
	return func(s *TPESampler) { s.gamma = gamma }
}

// DefaultGamma is optuna's default: min(ceil(0.1 n), 25).
func DefaultGamma(n int) int {
	return int(math.Min(math.Ceil(0.1*float64(n)), 25))
}

// NewTPESampler creates a TPE sampler with optuna's defaults
// (10 startup trials, 24 candidates, prior weight 1).
func NewTPESampler(seed int64, opts ...TPEOption) *TPESampler {
	s := &TPESampler{
		rng:            rand.New(rand.NewSource(seed)),
		nStartupTrials: 10,
		nCandidates:    24,
		priorWeight:    1.0,
		gamma:          DefaultGamma,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type observation struct {
	x    float64
	loss float64
}

// Sample implements Sampler.
func (s *TPESampler) Sample(completed []FrozenTrial, direction Direction, name string, dist Distribution) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(completed) < s.nStartupTrials {
		return dist.sample(s.rng)
	}
	var obs []observation
	for _, t := range completed {
		v, ok := t.Params[name]
		if !ok || !sameDistribution(t.Distributions[name], dist) {
			continue
		}
		loss := t.Value
		if direction == Maximize {
			loss = -loss
		}
		obs = append(obs, observation{x: dist.toInternal(v), loss: loss})
	}
	if len(obs) == 0 {
		return dist.sample(s.rng)
	}

	// 安定ソートで同じ損失は先に観測した方を良い側に置く
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].loss < obs[j].loss })
	nBelow := s.gamma(len(obs))
	if nBelow < 1 {
		nBelow = 1
	}
	if nBelow > len(obs) {
		nBelow = len(obs)
	}
	below := xs(obs[:nBelow])
	above := xs(obs[nBelow:])

	switch d := dist.(type) {
	case CategoricalDistribution:
		return d.fromInternal(float64(s.sampleCategorical(len(d.Choices), below, above)))
	case IntDistribution:
		lo, hi := d.bounds()
		return d.fromInternal(s.sampleNumeric(lo, hi, below, above))
	case FloatDistribution:
		lo, hi := d.bounds()
		if lo == hi {
			return d.fromInternal(lo)
		}
		return d.fromInternal(s.sampleNumeric(lo, hi, below, above))
	}
	return dist.sample(s.rng)
}

func xs(obs []observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.x
	}
	return out
}

// parzen は切断正規分布の混合
type parzen struct {
	lo, hi  float64
	mus     []float64
	sigmas  []float64
	weights []float64
}

// newParzen places one kernel per observation plus a prior kernel centred
// on the domain. Bandwidths are the distance to the farther neighbour,
// clipped to [(hi-lo)/min(100, n+1), hi-lo].
func newParzen(lo, hi float64, points []float64, priorWeight float64) *parzen {
	mus := append([]float64{0.5 * (lo + hi)}, points...)
	order := make([]int, len(mus))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return mus[order[a]] < mus[order[b]] })

	width := hi - lo
	minSigma := width / math.Min(100, float64(len(mus)))
	sigmas := make([]float64, len(mus))
	for r, i := range order {
		left, right := mus[i]-lo, hi-mus[i]
		if r > 0 {
			left = mus[i] - mus[order[r-1]]
		}
		if r < len(order)-1 {
			right = mus[order[r+1]] - mus[i]
		}
		sigmas[i] = math.Min(math.Max(math.Max(left, right), minSigma), width)
	}
	sigmas[0] = width

	weights := make([]float64, len(mus))
	weights[0] = priorWeight
	for i := 1; i < len(weights); i++ {
		weights[i] = 1
	}
	total := priorWeight + float64(len(points))
	for i := range weights {
		weights[i] /= total
	}
	return &parzen{lo: lo, hi: hi, mus: mus, sigmas: sigmas, weights: weights}
}

func (p *parzen) sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	k, cum := len(p.weights)-1, 0.0
	for i, w := range p.weights {
		cum += w
		if u < cum {
			k = i
			break
		}
	}
	for attempt := 0; attempt < 100; attempt++ {
		x := p.mus[k] + p.sigmas[k]*rng.NormFloat64()
		if x >= p.lo && x <= p.hi {
			return x
		}
	}
	return math.Min(math.Max(p.mus[k], p.lo), p.hi)
}

func (p *parzen) logPDF(x float64) float64 {
	var density float64
	for i, mu := range p.mus {
		n := distuv.Normal{Mu: mu, Sigma: p.sigmas[i]}
		z := n.CDF(p.hi) - n.CDF(p.lo)
		if z <= 0 {
			continue
		}
		density += p.weights[i] * n.Prob(x) / z
	}
	return math.Log(math.Max(density, 1e-300))
}

func (s *TPESampler) sampleNumeric(lo, hi float64, below, above []float64) float64 {
	l := newParzen(lo, hi, below, s.priorWeight)
	g := newParzen(lo, hi, above, s.priorWeight)

	best, bestScore := 0.0, math.Inf(-1)
	for i := 0; i < s.nCandidates; i++ {
		x := l.sample(s.rng)
		if score := l.logPDF(x) - g.logPDF(x); score > bestScore {
			best, bestScore = x, score
		}
	}
	return best
}

// sampleCategorical は各選択肢の出現回数に事前重みを足した分布を使う
func (s *TPESampler) sampleCategorical(k int, below, above []float64) int {
	weights := func(points []float64) []float64 {
		w := make([]float64, k)
		total := 0.0
		for i := range w {
			w[i] = s.priorWeight / float64(k)
			total += w[i]
		}
		for _, x := range points {
			w[int(x)]++
			total++
		}
		for i := range w {
			w[i] /= total
		}
		return w
	}
	l, g := weights(below), weights(above)

	best, bestScore := 0, math.Inf(-1)
	for i := 0; i < s.nCandidates; i++ {
		u, c := s.rng.Float64(), k-1
		cum := 0.0
		for j, p := range l {
			cum += p
			if u < cum {
				c = j
				break
			}
		}
		if score := math.Log(l[c]) - math.Log(g[c]); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
