// Package model_selection provides cross-validation splitters, scorers,
// cross_val_score and an exhaustive grid search with scikit-learn
// semantics.
package model_selection

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// Fold holds the row indices of one train/test split.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter generates cross-validation folds.
type Splitter interface {
	// Split returns NSplits folds over the rows of X. y may be nil for
	// splitters that ignore the labels.
	Split(X mat.Matrix, y mat.Vector) ([]Fold, error)
	NSplits() int
}

// KFold は連続したブロックでK分割する
type KFold struct {
	nSplits int
	shuffle bool
	seed    int64
}

// NewKFold creates a KFold splitter. seed is used only when shuffle is true.
func NewKFold(nSplits int, shuffle bool, seed int64) *KFold {
	return &KFold{nSplits: nSplits, shuffle: shuffle, seed: seed}
}

// NSplits returns the number of folds.
func (k *KFold) NSplits() int { return k.nSplits }

// Split は先頭の n % k 個のフォールドに1サンプルずつ多く割り当てる
func (k *KFold) Split(X mat.Matrix, _ mat.Vector) ([]Fold, error) {
	n, err := checkSplits("KFold.Split", X, k.nSplits)
	if err != nil {
		return nil, err
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if k.shuffle {
		rng := rand.New(rand.NewSource(k.seed))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	assign := make([]int, n)
	start := 0
	for f := 0; f < k.nSplits; f++ {
		size := n / k.nSplits
		if f < n%k.nSplits {
			size++
		}
		for _, i := range order[start : start+size] {
			assign[i] = f
		}
		start += size
	}
	return buildFolds(assign, k.nSplits), nil
}

// StratifiedKFold は各クラスのサンプルを巡回的に割り当て、
// フォールドごとのクラス比率を揃える
type StratifiedKFold struct {
	nSplits int
	shuffle bool
	seed    int64
	logger  log.Logger
}

// NewStratifiedKFold creates a StratifiedKFold splitter.
func NewStratifiedKFold(nSplits int, shuffle bool, seed int64) *StratifiedKFold {
	return &StratifiedKFold{
		nSplits: nSplits,
		shuffle: shuffle,
		seed:    seed,
		logger:  log.GetLoggerWithName("StratifiedKFold"),
	}
}

// NSplits returns the number of folds.
func (s *StratifiedKFold) NSplits() int { return s.nSplits }

// Split distributes every class over the folds round-robin. The fold
// counter carries over from one class to the next so fold sizes differ by
// at most one.
func (s *StratifiedKFold) Split(X mat.Matrix, y mat.Vector) ([]Fold, error) {
	n, err := checkSplits("StratifiedKFold.Split", X, s.nSplits)
	if err != nil {
		return nil, err
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required")
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", n, y.Len(), 0)
	}

	byClass := make(map[float64][]int)
	for i := 0; i < n; i++ {
		v := y.AtVec(i)
		byClass[v] = append(byClass[v], i)
	}
	classes := make([]float64, 0, len(byClass))
	maxCount, minCount := 0, n
	for c, idx := range byClass {
		classes = append(classes, c)
		if len(idx) > maxCount {
			maxCount = len(idx)
		}
		if len(idx) < minCount {
			minCount = len(idx)
		}
	}
	sort.Float64s(classes)

	if maxCount < s.nSplits {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of members in each class", s.nSplits)
	}
	if minCount < s.nSplits {
		s.logger.Warn("least populated class has fewer members than n_splits",
			"n_splits", s.nSplits, "min_count", minCount)
	}

	var rng *rand.Rand
	if s.shuffle {
		rng = rand.New(rand.NewSource(s.seed))
	}
	assign := make([]int, n)
	pos := 0
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		if rng != nil {
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		}
		for _, i := range idx {
			assign[i] = pos % s.nSplits
			pos++
		}
	}
	return buildFolds(assign, s.nSplits), nil
}

func checkSplits(op string, X mat.Matrix, k int) (int, error) {
	if X == nil {
		return 0, errors.NewValueError(op, "nil input")
	}
	if k < 2 {
		return 0, errors.NewValidationError("n_splits", "must be at least 2", k)
	}
	n, _ := X.Dims()
	if n < k {
		return 0, errors.NewValueError(op, "cannot have number of splits greater than the number of samples")
	}
	return n, nil
}

// buildFolds は割り当てから昇順の添字リストを作る
func buildFolds(assign []int, k int) []Fold {
	folds := make([]Fold, k)
	for i, f := range assign {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, i)
			} else {
				folds[g].Train = append(folds[g].Train, i)
			}
		}
	}
	return folds
}
