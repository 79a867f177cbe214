package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// node is a binary split or a leaf of the fitted tree.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	// leaf payload: P(y=1) in the node
	proba    float64
	nSamples int
	leaf     bool
}

// DecisionTreeClassifier is a CART classifier for binary targets compatible
// with scikit-learn's DecisionTreeClassifier.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // 0 = unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int   // features considered per split, 0 = all
	randomState     int64 // <0 = nondeterministic

	// Fitted state
	root                *node
	nClasses_           int
	featureImportances_ []float64
	depth_              int
	nLeaves_            int

	rng    *rand.Rand
	cols   [][]float64
	labels []float64
	logger log.Logger
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier returns a tree with scikit-learn defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	dt.logger = log.GetLoggerWithName("DecisionTreeClassifier")
	return dt
}

// WithCriterion sets the impurity measure, "gini" or "entropy".
func WithCriterion(c string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = c }
}

// WithMaxDepth limits the tree depth. 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are drawn for each split.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = n }
}

// WithRandomState seeds feature sampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.maxFeatures)
	}
	return nil
}

// Fit builds the tree on all rows of X.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	n, _ := X.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return dt.FitIndices(X, y, idx)
}

// FitIndices builds the tree on the rows listed in idx. Repeated indices
// count once per occurrence, which is how bootstrap samples are trained.
func (dt *DecisionTreeClassifier) FitIndices(X, y mat.Matrix, idx []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	labels, err := model.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "no training indices")
	}
	nSamples, nFeatures := X.Dims()

	dt.cols = make([][]float64, nFeatures)
	for j := range dt.cols {
		dt.cols[j] = mat.Col(nil, j, X)
	}
	dt.labels = labels
	seed := dt.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	dt.rng = rand.New(rand.NewSource(seed))
	dt.featureImportances_ = make([]float64, nFeatures)
	dt.depth_ = 0
	dt.nLeaves_ = 0
	dt.nClasses_ = 2

	dt.root = dt.build(append([]int(nil), idx...), 0)

	total := 0.0
	for _, v := range dt.featureImportances_ {
		total += v
	}
	if total > 0 {
		for j := range dt.featureImportances_ {
			dt.featureImportances_[j] /= total
		}
	}

	// 学習用のバッファは保持しない
	dt.cols = nil
	dt.labels = nil
	dt.rng = nil

	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	dt.logger.Debug("tree fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(idx),
		log.FeaturesKey, nFeatures,
		"depth", dt.depth_,
		"leaves", dt.nLeaves_,
	)
	return nil
}

func (dt *DecisionTreeClassifier) impurity(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	if dt.criterion == "entropy" {
		h := 0.0
		for _, q := range []float64{p, 1 - p} {
			if q > 0 {
				h -= q * math.Log2(q)
			}
		}
		return h
	}
	return 1 - p*p - (1-p)*(1-p)
}

func (dt *DecisionTreeClassifier) leaf(pos float64, n int, depth int) *node {
	dt.nLeaves_++
	if depth > dt.depth_ {
		dt.depth_ = depth
	}
	return &node{leaf: true, proba: pos / float64(n), nSamples: n}
}

// build grows the subtree over idx. Splits with zero gain are accepted
// while the node is impure so that XOR-like patterns can be separated.
func (dt *DecisionTreeClassifier) build(idx []int, depth int) *node {
	n := len(idx)
	pos := 0.0
	for _, i := range idx {
		pos += dt.labels[i]
	}
	nodeImp := dt.impurity(pos, float64(n))

	if nodeImp == 0 || n < dt.minSamplesSplit || n < 2*dt.minSamplesLeaf ||
		(dt.maxDepth > 0 && depth >= dt.maxDepth) {
		return dt.leaf(pos, n, depth)
	}

	feature, threshold, childImp, ok := dt.bestSplit(idx, pos)
	if !ok {
		return dt.leaf(pos, n, depth)
	}

	var left, right []int
	for _, i := range idx {
		if dt.cols[feature][i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	dt.featureImportances_[feature] += float64(n)*nodeImp - childImp

	return &node{
		feature:   feature,
		threshold: threshold,
		nSamples:  n,
		left:      dt.build(left, depth+1),
		right:     dt.build(right, depth+1),
	}
}

// bestSplit returns the split minimising the weighted child impurity
// (sum of n_child * impurity_child).
func (dt *DecisionTreeClassifier) bestSplit(idx []int, pos float64) (int, float64, float64, bool) {
	n := len(idx)
	nFeatures := len(dt.cols)
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	if dt.maxFeatures > 0 && dt.maxFeatures < nFeatures {
		features = dt.rng.Perm(nFeatures)[:dt.maxFeatures]
		sort.Ints(features)
	}

	bestFeature, bestThreshold := -1, 0.0
	bestImp := math.Inf(1)
	order := make([]int, n)
	for _, f := range features {
		col := dt.cols[f]
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return col[order[a]] < col[order[b]] })

		leftPos := 0.0
		for k := 0; k < n-1; k++ {
			leftPos += dt.labels[order[k]]
			nl := k + 1
			nr := n - nl
			if col[order[k]] == col[order[k+1]] {
				continue
			}
			if nl < dt.minSamplesLeaf || nr < dt.minSamplesLeaf {
				continue
			}
			imp := float64(nl)*dt.impurity(leftPos, float64(nl)) +
				float64(nr)*dt.impurity(pos-leftPos, float64(nr))
			if imp < bestImp-1e-12 {
				bestImp = imp
				bestFeature = f
				bestThreshold = (col[order[k]] + col[order[k+1]]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestImp, bestFeature >= 0
}

func (dt *DecisionTreeClassifier) positive(X mat.Matrix, method string) ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeClassifier."+method, p); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		nd := dt.root
		for !nd.leaf {
			if X.At(i, nd.feature) <= nd.threshold {
				nd = nd.left
			} else {
				nd = nd.right
			}
		}
		out[i] = nd.proba
	}
	return out, nil
}

// PositiveProba returns P(y=1) per row.
func (dt *DecisionTreeClassifier) PositiveProba(X mat.Matrix) ([]float64, error) {
	return dt.positive(X, "PredictProba")
}

// Predict returns the majority class of the leaf each row falls into.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := dt.positive(X, "Predict")
	if err != nil {
		return nil, err
	}
	return model.LabelsFromPositive(p), nil
}

// PredictProba returns the leaf class frequencies as an n x 2 matrix.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := dt.positive(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	return model.ProbaFromPositive(p), nil
}

// Score returns the mean accuracy on the given data.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// GetFeatureImportances returns the normalized impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the deepest leaf (root = 0).
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.depth_ }

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int { return dt.nLeaves_ }

// IsFitted reports whether the tree has been built.
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters by sklearn name.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			dt.criterion, err = model.ParamString(key, value)
		case "max_depth":
			dt.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			dt.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			dt.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			dt.maxFeatures, err = model.ParamInt(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			dt.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (dt *DecisionTreeClassifier) Clone() model.Estimator {
	c := NewDecisionTreeClassifier()
	_ = c.SetParams(dt.GetParams())
	return c
}
