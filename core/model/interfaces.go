package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は 0/1 ラベルの列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は n x 1 のクラスラベルを返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines the interfaces of a binary classifier.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns an n x 2 matrix; column 1 is P(y = 1).
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// ParamGetter is implemented by models that expose their hyperparameters
// under scikit-learn style names.
type ParamGetter interface {
	GetParams() map[string]interface{}
}

// ParamSetter is implemented by models whose hyperparameters can be set
// from a name/value map.
type ParamSetter interface {
	SetParams(params map[string]interface{}) error
}

// Estimator is a classifier that model selection can configure and copy.
type Estimator interface {
	Classifier
	ParamGetter
	ParamSetter

	// Clone returns an unfitted copy with identical hyperparameters.
	Clone() Estimator
}
