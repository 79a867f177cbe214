package gbm

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// Booster is a fitted or unfitted boosted ensemble.
type Booster struct {
	params Params
	state  *model.StateManager

	trees      []Tree
	initScore  float64
	importance []float64
	trainLoss  []float64

	logger log.Logger
}

// NewBooster returns an unfitted booster.
func NewBooster(p Params) *Booster {
	return &Booster{
		params: p,
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("gbm.Booster"),
	}
}

// Params returns the engine parameters.
func (b *Booster) Params() Params { return b.params }

// classWeights returns the per-row weight multiplier.
func (b *Booster) classWeights(labels []float64) []float64 {
	var pos float64
	for _, v := range labels {
		pos += v
	}
	neg := float64(len(labels)) - pos
	w := [2]float64{1, 1}
	switch {
	case b.params.ClassWeights == ClassWeightsBalanced || b.params.ClassWeights == ClassWeightsSqrtBalanced:
		maxCount := math.Max(pos, neg)
		if neg > 0 {
			w[0] = maxCount / neg
		}
		if pos > 0 {
			w[1] = maxCount / pos
		}
		if b.params.ClassWeights == ClassWeightsSqrtBalanced {
			w[0], w[1] = math.Sqrt(w[0]), math.Sqrt(w[1])
		}
	case b.params.IsUnbalance:
		if pos > 0 && neg > 0 {
			w[1] = neg / pos
		}
	}
	if b.params.ScalePosWeight > 0 {
		w[1] *= b.params.ScalePosWeight
	}
	out := make([]float64, len(labels))
	for i, v := range labels {
		out[i] = w[int(v)]
	}
	return out
}

// Fit trains the ensemble on a 0/1 label column.
func (b *Booster) Fit(X, y mat.Matrix) error {
	if err := b.params.Validate(); err != nil {
		return err
	}
	labels, err := model.CheckXY("gbm.Booster.Fit", X, y)
	if err != nil {
		return err
	}
	n, p := X.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			if math.IsInf(X.At(i, j), 0) {
				return errors.NewValueError("gbm.Booster.Fit", "input contains infinity")
			}
		}
	}
	prm := &b.params
	rng := rand.New(rand.NewSource(prm.Seed))
	cw := b.classWeights(labels)

	// boost_from_average
	var wPos, wSum float64
	for i, v := range labels {
		wPos += cw[i] * v
		wSum += cw[i]
	}
	base := errors.ClipValue(wPos/wSum, 1e-15, 1-1e-15)
	b.initScore = math.Log(base / (1 - base))

	mapper := newBinMapper(X, prm.MaxBin)
	data := mapper.transform(X)

	F := make([]float64, n)
	for i := range F {
		F[i] = b.initScore
	}
	g := make([]float64, n)
	h := make([]float64, n)
	w := make([]float64, n)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	var rank []int
	if prm.BoostingType == Ordered {
		rank = make([]int, n)
		for r, i := range rng.Perm(n) {
			rank[i] = r
		}
	}

	sampler := newRowSampler(prm, rng)
	b.trees = make([]Tree, 0, prm.NumIterations)
	b.importance = make([]float64, p)
	b.trainLoss = make([]float64, 0, prm.NumIterations)

	for iter := 0; iter < prm.NumIterations; iter++ {
		for i := range F {
			pr := errors.Sigmoid(F[i])
			g[i] = cw[i] * (pr - labels[i])
			h[i] = cw[i] * math.Max(pr*(1-pr), 1e-16)
		}
		sampler.draw(w, g, iter)

		gr := &grower{
			p:          prm,
			mapper:     mapper,
			data:       data,
			g:          g,
			h:          h,
			w:          w,
			features:   sampleFeatures(rng, p, prm.FeatureFraction),
			rng:        rng,
			noise:      gradNoise(prm, g, iter),
			importance: b.importance,
			resample:   func() { sampler.draw(w, g, iter) },
		}
		leaves := gr.grow(rows)

		if prm.BoostingType == Ordered {
			b.orderedUpdate(gr, leaves, rank, F)
		} else {
			for _, lf := range leaves {
				v := prm.LearningRate * gr.tree.Nodes[lf.node].Value
				for _, i := range lf.rows {
					F[i] += v
				}
			}
		}
		b.trees = append(b.trees, gr.tree)

		loss := 0.0
		for i := range F {
			loss += errors.Log1pExp(F[i]) - labels[i]*F[i]
		}
		b.trainLoss = append(b.trainLoss, loss/float64(n))
	}

	b.state.SetDimensions(p, n)
	b.state.SetFitted()
	b.logger.Debug("booster fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.IterationKey, len(b.trees),
		log.LossKey, b.trainLoss[len(b.trainLoss)-1],
		"grow_policy", string(prm.GrowPolicy),
	)
	return nil
}

// orderedUpdate moves the training score of each row by the leaf value
// estimated from the rows preceding it in the permutation.
func (b *Booster) orderedUpdate(gr *grower, leaves []*leafState, rank []int, F []float64) {
	for _, lf := range leaves {
		ordered := append([]int(nil), lf.rows...)
		sort.Slice(ordered, func(a, c int) bool { return rank[ordered[a]] < rank[ordered[c]] })
		var pg, ph float64
		pc := 0
		for _, i := range ordered {
			F[i] += b.params.LearningRate * gr.leafValue(pg, ph, pc, 0)
			if wi := gr.w[i]; wi > 0 {
				pg += wi * gr.g[i]
				ph += wi * gr.h[i]
				pc++
			}
		}
	}
}

// PredictRaw returns the log-odds for each row.
func (b *Booster) PredictRaw(X mat.Matrix) ([]float64, error) {
	if err := b.state.RequireFitted("gbm.Booster", "PredictRaw"); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := b.state.CheckFeatures("gbm.Booster.PredictRaw", p); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		s := b.initScore
		for t := range b.trees {
			s += b.params.LearningRate * b.trees[t].Predict(row)
		}
		out[i] = s
	}
	return out, nil
}

// PositiveProba returns P(y = 1) per row.
func (b *Booster) PositiveProba(X mat.Matrix) ([]float64, error) {
	raw, err := b.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	for i := range raw {
		raw[i] = errors.Sigmoid(raw[i])
	}
	return raw, nil
}

// PredictProba returns the n x 2 class probabilities.
func (b *Booster) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := b.PositiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaFromPositive(p), nil
}

// Predict returns 0/1 labels thresholded at 0.5.
func (b *Booster) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := b.PositiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromPositive(p), nil
}

// FeatureImportance returns the total split gain per feature normalised to sum 1.
func (b *Booster) FeatureImportance() []float64 {
	out := append([]float64(nil), b.importance...)
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// Trees returns the fitted trees.
func (b *Booster) Trees() []Tree { return b.trees }

// InitScore returns the constant log-odds the ensemble starts from.
func (b *Booster) InitScore() float64 { return b.initScore }

// TrainingLoss returns the mean training log-loss after each iteration.
func (b *Booster) TrainingLoss() []float64 {
	return append([]float64(nil), b.trainLoss...)
}

// IsFitted reports whether Fit succeeded.
func (b *Booster) IsFitted() bool { return b.state.IsFitted() }
