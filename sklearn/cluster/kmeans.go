// Package cluster はK-meansクラスタリングとエルボー法を提供する
package cluster

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/core/parallel"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// KMeans はLloydアルゴリズムによるK-meansクラスタリング
// scikit-learnのKMeansと互換性を持つ
type KMeans struct {
	state *model.StateManager

	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	init        string  // 初期化方法: "k-means++", "random"
	nInit       int     // 異なる初期化での実行回数
	maxIter     int     // 最大イテレーション数
	tol         float64 // 中心移動量の許容誤差（特徴量分散の平均に対する相対値）
	randomState int64   // 乱数シード
	nJobs       int     // 割り当てステップの並列数

	// 学習パラメータ
	clusterCenters_ [][]float64
	labels_         []int
	inertia_        float64
	nIter_          int

	mu     sync.RWMutex
	logger log.Logger
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// NewKMeans は新しいKMeansを作成
func NewKMeans(options ...KMeansOption) *KMeans {
	km := &KMeans{
		state:       model.NewStateManager(),
		nClusters:   8,
		init:        "k-means++",
		nInit:       10,
		maxIter:     300,
		tol:         1e-4,
		randomState: -1,
		nJobs:       1,
	}
	for _, opt := range options {
		opt(km)
	}
	km.logger = log.GetLoggerWithName("KMeans")
	return km
}

// WithNClusters はクラスタ数を設定
func WithNClusters(n int) KMeansOption {
	return func(km *KMeans) { km.nClusters = n }
}

// WithInit は初期化方法を設定
func WithInit(init string) KMeansOption {
	return func(km *KMeans) { km.init = init }
}

// WithNInit は初期化の試行回数を設定
func WithNInit(n int) KMeansOption {
	return func(km *KMeans) { km.nInit = n }
}

// WithMaxIter は最大イテレーション数を設定
func WithMaxIter(n int) KMeansOption {
	return func(km *KMeans) { km.maxIter = n }
}

// WithTol は収束判定の許容誤差を設定
func WithTol(tol float64) KMeansOption {
	return func(km *KMeans) { km.tol = tol }
}

// WithRandomState は乱数シードを設定
func WithRandomState(seed int64) KMeansOption {
	return func(km *KMeans) { km.randomState = seed }
}

// WithNJobs は割り当てステップの並列数を設定
func WithNJobs(n int) KMeansOption {
	return func(km *KMeans) { km.nJobs = n }
}

func (km *KMeans) validate(rows int) error {
	if km.nClusters < 1 {
		return errors.NewValidationError("n_clusters", "must be >= 1", km.nClusters)
	}
	if rows < km.nClusters {
		return errors.NewValueError("KMeans.Fit", "n_samples is smaller than n_clusters")
	}
	if km.init != "k-means++" && km.init != "random" {
		return errors.NewValidationError("init", "must be k-means++ or random", km.init)
	}
	if km.nInit < 1 || km.maxIter < 1 {
		return errors.NewValidationError("n_init", "n_init and max_iter must be >= 1", []int{km.nInit, km.maxIter})
	}
	return nil
}

// Fit はn_init回の初期化から慣性が最小の結果を採用する
func (km *KMeans) Fit(X mat.Matrix) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if X == nil {
		return errors.NewValueError("KMeans.Fit", "nil input")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := km.validate(rows); err != nil {
		return err
	}

	data := make([][]float64, rows)
	for i := range data {
		data[i] = mat.Row(nil, i, X)
	}

	// sklearn と同じく tol を特徴量分散の平均でスケールする
	var meanVar float64
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		meanVar += v
	}
	tol := km.tol * meanVar / float64(cols)

	seed := km.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	bestInertia := math.Inf(1)
	var bestCenters [][]float64
	var bestLabels []int
	var bestNIter int
	for run := 0; run < km.nInit; run++ {
		centers, labels, inertia, nIter := km.fitSingleRun(data, rng, tol)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestLabels = labels
			bestNIter = nIter
		}
	}

	km.clusterCenters_ = bestCenters
	km.labels_ = bestLabels
	km.inertia_ = bestInertia
	km.nIter_ = bestNIter
	km.state.SetDimensions(cols, rows)
	km.state.SetFitted()

	km.logger.Debug("KMeans fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		"n_clusters", km.nClusters,
		"inertia", bestInertia,
		log.IterationKey, bestNIter,
	)
	return nil
}

// fitSingleRun は単一回のLloyd反復を実行
func (km *KMeans) fitSingleRun(data [][]float64, rng *rand.Rand, tol float64) ([][]float64, []int, float64, int) {
	centers := km.initializeCenters(data, rng)
	labels := make([]int, len(data))
	dists := make([]float64, len(data))
	cols := len(data[0])

	nIter := 0
	for iter := 1; iter <= km.maxIter; iter++ {
		nIter = iter
		km.assign(data, centers, labels, dists)

		// 中心の更新
		next := make([][]float64, km.nClusters)
		counts := make([]int, km.nClusters)
		for c := range next {
			next[c] = make([]float64, cols)
		}
		for i, x := range data {
			c := labels[i]
			counts[c]++
			for j, v := range x {
				next[c][j] += v
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// 空クラスタは最も遠いサンプルに移す
				far := 0
				for i := range dists {
					if dists[i] > dists[far] {
						far = i
					}
				}
				copy(next[c], data[far])
				dists[far] = 0
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}

		shift := 0.0
		for c := range centers {
			d := euclideanDistance(centers[c], next[c])
			shift += d * d
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	km.assign(data, centers, labels, dists)
	inertia := 0.0
	for _, d := range dists {
		inertia += d
	}
	return centers, labels, inertia, nIter
}

// assign は各サンプルを最近傍中心に割り当て、距離の二乗を dists に書く
func (km *KMeans) assign(data, centers [][]float64, labels []int, dists []float64) {
	parallel.ParallelizeN(len(data), km.nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			c, d := findNearestCluster(data[i], centers)
			labels[i] = c
			dists[i] = d * d
		}
	})
}

// initializeCenters はクラスタ中心を初期化
func (km *KMeans) initializeCenters(data [][]float64, rng *rand.Rand) [][]float64 {
	if km.init == "random" {
		centers := make([][]float64, km.nClusters)
		for c, idx := range rng.Perm(len(data))[:km.nClusters] {
			centers[c] = append([]float64(nil), data[idx]...)
		}
		return centers
	}
	return initKMeansPlusPlus(data, km.nClusters, rng)
}

// initKMeansPlusPlus はk-means++初期化を実行
func initKMeansPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	rows := len(data)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), data[rng.Intn(rows)]...))

	minDist := make([]float64, rows)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	for len(centers) < k {
		last := centers[len(centers)-1]
		total := 0.0
		for i, x := range data {
			d := euclideanDistance(x, last)
			if d*d < minDist[i] {
				minDist[i] = d * d
			}
			total += minDist[i]
		}

		// 距離の二乗に比例した確率でサンプルを選択
		selected := rng.Intn(rows)
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, d := range minDist {
				cum += d
				if cum >= target && d > 0 {
					selected = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), data[selected]...))
	}
	return centers
}

// Predict は入力データに対するクラスタ予測を行う（n x 1）
func (km *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if err := km.state.RequireFitted("KMeans", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := km.state.CheckFeatures("KMeans.Predict", cols); err != nil {
		return nil, err
	}
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		c, _ := findNearestCluster(mat.Row(nil, i, X), km.clusterCenters_)
		predictions.Set(i, 0, float64(c))
	}
	return predictions, nil
}

// FitPredict は学習と予測を同時に行う
func (km *KMeans) FitPredict(X mat.Matrix) (mat.Matrix, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return km.Predict(X)
}

// ClusterCenters は学習されたクラスタ中心を返す
func (km *KMeans) ClusterCenters() [][]float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()

	centers := make([][]float64, len(km.clusterCenters_))
	for i := range km.clusterCenters_ {
		centers[i] = append([]float64(nil), km.clusterCenters_[i]...)
	}
	return centers
}

// Labels は学習データのクラスタラベルを返す
func (km *KMeans) Labels() []int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return append([]int(nil), km.labels_...)
}

// Inertia は慣性（クラスタ内平方和誤差）を返す
func (km *KMeans) Inertia() float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.inertia_
}

// NIter は採用された試行のイテレーション数を返す
func (km *KMeans) NIter() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.nIter_
}

// GetParams はハイパーパラメータを返す
func (km *KMeans) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_clusters":   km.nClusters,
		"init":         km.init,
		"n_init":       km.nInit,
		"max_iter":     km.maxIter,
		"tol":          km.tol,
		"random_state": km.randomState,
	}
}

// findNearestCluster は最近傍クラスタとその距離を返す
func findNearestCluster(sample []float64, centers [][]float64) (int, float64) {
	minDist := math.Inf(1)
	nearest := 0
	for c, center := range centers {
		if d := euclideanDistance(sample, center); d < minDist {
			minDist = d
			nearest = c
		}
	}
	return nearest, minDist
}

// euclideanDistance はユークリッド距離を計算
func euclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
