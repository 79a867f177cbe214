package optimize

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

func quietStudy(opts ...StudyOption) *Study {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewStudy(append([]StudyOption{WithLogger(logger)}, opts...)...)
}

func TestTrial_ResuggestReturnsSameValue(t *testing.T) {
	s := quietStudy(WithSampler(NewRandomSampler(1)))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		a, err := tr.SuggestFloat("x", 0, 1)
		require.NoError(t, err)
		b, err := tr.SuggestFloat("x", 0, 1)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		_, err = tr.SuggestFloat("x", 0, 2)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "conflicting distribution should be a ValidationError")

		_, err = tr.SuggestInt("x", 0, 1)
		assert.Error(t, err)
		return a, nil
	}, 3)
	require.NoError(t, err)
	assert.Len(t, s.Trials(), 3)
}

func TestTrial_InvalidRanges(t *testing.T) {
	s := quietStudy(WithSampler(NewRandomSampler(1)))
	_ = s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		_, err := tr.SuggestInt("n", 5, 1)
		assert.Error(t, err)
		_, err = tr.SuggestLogUniform("lr", 0, 1)
		assert.Error(t, err)
		_, err = tr.SuggestCategorical("c", nil)
		assert.Error(t, err)
		return 0, nil
	}, 1)
}

func TestRandomSampler_WithinBounds(t *testing.T) {
	s := quietStudy(WithSampler(NewRandomSampler(7)))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		n, _ := tr.SuggestInt("n", 150, 250)
		lr, _ := tr.SuggestLogUniform("lr", 1e-4, 0.1)
		u, _ := tr.SuggestUniform("u", 0.5, 1)
		c, _ := tr.SuggestCategorical("c", []interface{}{"Ordered", "Plain"})
		assert.True(t, n >= 150 && n <= 250)
		assert.True(t, lr >= 1e-4 && lr <= 0.1)
		assert.True(t, u >= 0.5 && u <= 1)
		assert.Contains(t, []interface{}{"Ordered", "Plain"}, c)
		return u, nil
	}, 50)
	require.NoError(t, err)
}

func TestStudy_TPEFindsOptimum(t *testing.T) {
	s := quietStudy(WithDirection(Maximize), WithSeed(1))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		x, err := tr.SuggestFloat("x", -10, 10)
		if err != nil {
			return 0, err
		}
		return -(x - 2) * (x - 2), nil
	}, 60)
	require.NoError(t, err)

	best, err := s.BestValue()
	require.NoError(t, err)
	assert.Greater(t, best, -1.0)

	params, err := s.BestParams()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, params["x"].(float64), 1.0)
}

func TestStudy_TPEPrefersGoodCategory(t *testing.T) {
	s := quietStudy(WithDirection(Maximize), WithSeed(3))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		c, err := tr.SuggestCategorical("c", []interface{}{"a", "b", "c"})
		if err != nil {
			return 0, err
		}
		if c == "b" {
			return 1, nil
		}
		return 0, nil
	}, 30)
	require.NoError(t, err)

	count := 0
	for _, tr := range s.Trials()[10:] {
		if tr.Params["c"] == "b" {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, 15)
}

func TestStudy_ConditionalParams(t *testing.T) {
	s := quietStudy(WithDirection(Maximize), WithSeed(5))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		bt, err := tr.SuggestCategorical("bootstrap_type", []interface{}{"Bayesian", "Bernoulli"})
		if err != nil {
			return 0, err
		}
		if bt == "Bayesian" {
			v, err := tr.SuggestFloat("bagging_temperature", 0, 5)
			return -v, err
		}
		v, err := tr.SuggestFloat("subsample", 0.5, 1)
		return v, err
	}, 30)
	require.NoError(t, err)

	for _, tr := range s.Trials() {
		_, hasTemp := tr.Params["bagging_temperature"]
		_, hasSub := tr.Params["subsample"]
		assert.NotEqual(t, hasTemp, hasSub, "trial %d params %v", tr.Number, tr.Params)
		if hasSub {
			assert.True(t, tr.Distributions["subsample"].Contains(tr.Params["subsample"]))
		}
	}
}

func TestStudy_SeedReproducible(t *testing.T) {
	run := func() []FrozenTrial {
		s := quietStudy(WithSeed(42))
		_ = s.Optimize(context.Background(), func(tr Trial) (float64, error) {
			x, _ := tr.SuggestFloat("x", 0, 1)
			n, _ := tr.SuggestInt("n", 1, 100, Log())
			return x + float64(n), nil
		}, 15)
		return s.Trials()
	}
	a, b := run(), run()
	require.Len(t, a, 15)
	for i := range a {
		assert.Equal(t, a[i].Params, b[i].Params)
	}
}

func TestStudy_FailedAndPrunedTrials(t *testing.T) {
	s := quietStudy(WithSampler(NewRandomSampler(1)))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		switch tr.Number() {
		case 0:
			return 0, fmt.Errorf("singular matrix")
		case 1:
			return 0, errors.Wrap(errors.ErrTrialPruned, "step 3")
		case 2:
			return math.NaN(), nil
		}
		return float64(tr.Number()), nil
	}, 5)
	require.NoError(t, err)

	trials := s.Trials()
	assert.Equal(t, TrialFail, trials[0].State)
	assert.Equal(t, TrialPruned, trials[1].State)
	assert.Equal(t, TrialFail, trials[2].State)
	assert.Equal(t, TrialComplete, trials[3].State)

	best, err := s.BestTrial()
	require.NoError(t, err)
	assert.Equal(t, 3, best.Number, "minimize keeps the smallest completed value")
}

func TestStudy_PanickingObjectiveFailsTrial(t *testing.T) {
	s := quietStudy(WithSampler(NewRandomSampler(1)))
	err := s.Optimize(context.Background(), func(tr Trial) (float64, error) {
		if tr.Number() == 0 {
			panic("mat: dimension mismatch")
		}
		return 1, nil
	}, 2)
	require.NoError(t, err)

	trials := s.Trials()
	require.Len(t, trials, 2)
	assert.Equal(t, TrialFail, trials[0].State)
	var panicErr *errors.PanicError
	assert.True(t, errors.As(trials[0].Err, &panicErr))
	assert.Equal(t, TrialComplete, trials[1].State)
}

func TestStudy_NoCompletedTrials(t *testing.T) {
	s := quietStudy()
	_ = s.Optimize(context.Background(), func(Trial) (float64, error) {
		return 0, fmt.Errorf("boom")
	}, 2)
	_, err := s.BestTrial()
	assert.True(t, errors.Is(err, errors.ErrNoCompletedTrials))
}

func TestStudy_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := quietStudy()
	err := s.Optimize(ctx, func(tr Trial) (float64, error) {
		if tr.Number() == 2 {
			cancel()
		}
		return 1, nil
	}, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, s.Trials(), 3)
}

func TestStudy_Metadata(t *testing.T) {
	s := quietStudy(WithStudyName("xgb"), WithDirection(Maximize))
	assert.Len(t, s.ID(), 36)
	assert.Equal(t, "xgb", s.Name())
	assert.Equal(t, "maximize", s.Direction().String())
	assert.Error(t, s.Optimize(context.Background(), nil, 1))
	assert.Error(t, s.Optimize(context.Background(), func(Trial) (float64, error) { return 0, nil }, 0))
}

func TestFixedTrial(t *testing.T) {
	ft := NewFixedTrial(map[string]interface{}{
		"depth":         6,
		"learning_rate": 0.05,
		"boosting_type": "Plain",
		"unused":        true,
	})
	d, err := ft.SuggestInt("depth", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 6, d)

	lr, err := ft.SuggestLogUniform("learning_rate", 1e-4, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.05, lr)

	bt, err := ft.SuggestCategorical("boosting_type", []interface{}{"Ordered", "Plain"})
	require.NoError(t, err)
	assert.Equal(t, "Plain", bt)

	_, err = ft.SuggestCategorical("boosting_type", []interface{}{"Ordered"})
	assert.Error(t, err)
	_, err = ft.SuggestFloat("missing", 0, 1)
	assert.Error(t, err)

	assert.Equal(t, map[string]interface{}{
		"depth":         6,
		"learning_rate": 0.05,
		"boosting_type": "Plain",
	}, ft.Params())
}

func TestParzen_PrefersGoodRegion(t *testing.T) {
	l := newParzen(0, 10, []float64{1, 1.2, 0.8}, 1)
	g := newParzen(0, 10, []float64{8, 9, 7, 8.5}, 1)
	assert.Greater(t, l.logPDF(1)-g.logPDF(1), l.logPDF(8)-g.logPDF(8))
}
