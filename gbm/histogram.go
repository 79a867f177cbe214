package gbm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// binMapper holds per-feature bin upper bounds. Value v falls into the
// first bin b with v <= bounds[b]; the last bound is +Inf. NaN maps to
// bin 0.
type binMapper struct {
	bounds [][]float64
}

// newBinMapper builds equal-frequency bins over the distinct values of each
// column, at most maxBin per feature.
func newBinMapper(X mat.Matrix, maxBin int) *binMapper {
	n, p := X.Dims()
	m := &binMapper{bounds: make([][]float64, p)}
	values := make([]float64, 0, n)
	for j := 0; j < p; j++ {
		values = values[:0]
		for i := 0; i < n; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		m.bounds[j] = findBinBounds(values, maxBin)
	}
	return m
}

func findBinBounds(values []float64, maxBin int) []float64 {
	if len(values) == 0 {
		return []float64{math.Inf(1)}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	// distinct values with multiplicities
	var distinct []float64
	var counts []int
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
	}

	if len(distinct) <= maxBin {
		bounds := make([]float64, len(distinct))
		for k := 0; k < len(distinct)-1; k++ {
			bounds[k] = (distinct[k] + distinct[k+1]) / 2
		}
		bounds[len(distinct)-1] = math.Inf(1)
		return bounds
	}

	// 頻度が均等になるように境界を置く
	perBin := float64(len(sorted)) / float64(maxBin)
	var bounds []float64
	acc := 0
	next := perBin
	for k := 0; k < len(distinct)-1; k++ {
		acc += counts[k]
		if float64(acc) >= next {
			bounds = append(bounds, (distinct[k]+distinct[k+1])/2)
			for next <= float64(acc) {
				next += perBin
			}
			if len(bounds) == maxBin-1 {
				break
			}
		}
	}
	return append(bounds, math.Inf(1))
}

func (m *binMapper) bin(feature int, v float64) uint16 {
	if math.IsNaN(v) {
		return 0
	}
	b := m.bounds[feature]
	return uint16(sort.SearchFloat64s(b, v))
}

// threshold returns the raw-value split point for "bin <= b".
func (m *binMapper) threshold(feature int, b int) float64 {
	return m.bounds[feature][b]
}

func (m *binMapper) numBins(feature int) int { return len(m.bounds[feature]) }

// binnedData is the column-major binned training matrix.
type binnedData struct {
	cols [][]uint16
	n    int
}

func (m *binMapper) transform(X mat.Matrix) *binnedData {
	n, p := X.Dims()
	d := &binnedData{cols: make([][]uint16, p), n: n}
	for j := 0; j < p; j++ {
		col := make([]uint16, n)
		for i := 0; i < n; i++ {
			col[i] = m.bin(j, X.At(i, j))
		}
		d.cols[j] = col
	}
	return d
}

// histBin accumulates gradient statistics of one bin.
type histBin struct {
	grad  float64
	hess  float64
	count int
}

// buildHistogram accumulates weighted gradients of rows over the bins of feature.
func buildHistogram(d *binnedData, feature, nBins int, rows []int, grad, hess []float64) []histBin {
	h := make([]histBin, nBins)
	col := d.cols[feature]
	for _, i := range rows {
		b := &h[col[i]]
		b.grad += grad[i]
		b.hess += hess[i]
		b.count++
	}
	return h
}
