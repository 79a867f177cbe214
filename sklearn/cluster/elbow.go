package cluster

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// DefaultSeed is the random_state used by KMeansFit.
const DefaultSeed = 999

// KMeansFit clusters X into k groups with seed 999 and returns the model,
// the training labels and the centroids.
func KMeansFit(X mat.Matrix, k int) (*KMeans, []int, [][]float64, error) {
	km := NewKMeans(WithNClusters(k), WithRandomState(DefaultSeed))
	if err := km.Fit(X); err != nil {
		return nil, nil, nil, err
	}
	return km, km.Labels(), km.ClusterCenters(), nil
}

// ElbowInertias fits KMeans for every k in [kMin, kMax] and returns the
// inertias in k order. kMin = 1, kMax = 10 reproduces the classic elbow chart.
func ElbowInertias(X mat.Matrix, kMin, kMax int, seed int64) ([]int, []float64, error) {
	if kMin < 1 || kMax < kMin {
		return nil, nil, errors.NewValidationError("k", "need 1 <= kMin <= kMax", []int{kMin, kMax})
	}
	ks := make([]int, 0, kMax-kMin+1)
	inertias := make([]float64, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		km := NewKMeans(WithNClusters(k), WithRandomState(seed))
		if err := km.Fit(X); err != nil {
			return nil, nil, errors.Wrapf(err, "elbow k=%d", k)
		}
		ks = append(ks, k)
		inertias = append(inertias, km.Inertia())
	}
	return ks, inertias, nil
}
