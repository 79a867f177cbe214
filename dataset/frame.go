// Package dataset wraps a gota DataFrame as the tabular input of the
// selection and tuning routines: named numeric feature columns plus one
// binary target column.
package dataset

import (
	"io"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// Frame is an immutable view over a gota DataFrame.
type Frame struct {
	df dataframe.DataFrame
}

// ReadCSV loads a CSV with a header row. Column types are detected by gota;
// empty cells of numeric columns become NaN.
func ReadCSV(r io.Reader) (*Frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues([]string{"NA", "NaN", "<nil>", ""}),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataset: read csv")
	}
	if df.Nrow() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	return &Frame{df: df}, nil
}

// FromDataFrame wraps an existing DataFrame.
func FromDataFrame(df dataframe.DataFrame) (*Frame, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataset: invalid dataframe")
	}
	return &Frame{df: df}, nil
}

// FromColumns builds a Frame from float columns. order fixes the column
// order, every name in it must be a key of cols.
func FromColumns(cols map[string][]float64, order []string) (*Frame, error) {
	if len(order) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	ss := make([]series.Series, 0, len(order))
	n := -1
	for _, name := range order {
		values, ok := cols[name]
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnknownColumn, "column %q", name)
		}
		if n >= 0 && len(values) != n {
			return nil, errors.NewDimensionError("FromColumns", n, len(values), 0)
		}
		n = len(values)
		ss = append(ss, series.New(values, series.Float, name))
	}
	return FromDataFrame(dataframe.New(ss...))
}

// DataFrame returns the underlying gota DataFrame.
func (f *Frame) DataFrame() dataframe.DataFrame { return f.df }

// Names returns the column names in order.
func (f *Frame) Names() []string { return f.df.Names() }

// Nrow returns the number of rows.
func (f *Frame) Nrow() int { return f.df.Nrow() }

// Ncol returns the number of columns, target included.
func (f *Frame) Ncol() int { return f.df.Ncol() }

// HasColumn reports whether name is a column of the frame.
func (f *Frame) HasColumn(name string) bool {
	for _, n := range f.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// FeatureNames returns every column except target, in frame order.
func (f *Frame) FeatureNames(target string) []string {
	names := f.df.Names()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// CategoricalNames returns the string columns, in frame order.
func (f *Frame) CategoricalNames() []string {
	var out []string
	for _, name := range f.df.Names() {
		if f.df.Col(name).Type() == series.String {
			out = append(out, name)
		}
	}
	return out
}

// Dummies one-hot encodes the named string columns like pandas
// get_dummies(drop_first=True): each column is replaced by 0/1 columns
// named "<col>_<level>" for every level but the first in sorted order.
// Missing values encode as all zeros. The other columns keep their order
// and the dummy columns follow them. With no cols every string column is
// encoded.
func (f *Frame) Dummies(cols ...string) (*Frame, error) {
	if len(cols) == 0 {
		cols = f.CategoricalNames()
	}
	if len(cols) == 0 {
		return f, nil
	}
	for _, c := range cols {
		if !f.HasColumn(c) {
			return nil, errors.Wrapf(errors.ErrUnknownColumn, "column %q", c)
		}
		if f.df.Col(c).Type() != series.String {
			return nil, errors.NewValueError("Dummies", "column "+c+" is not categorical")
		}
	}

	rest := f.df.Drop(cols)
	ss := make([]series.Series, 0, rest.Ncol()+len(cols))
	for _, name := range rest.Names() {
		ss = append(ss, rest.Col(name))
	}
	for _, c := range cols {
		ss = append(ss, dummySeries(f.df.Col(c), c)...)
	}
	return FromDataFrame(dataframe.New(ss...))
}

func dummySeries(s series.Series, name string) []series.Series {
	records := s.Records()
	na := s.IsNaN()
	seen := make(map[string]bool)
	var levels []string
	for i, r := range records {
		if !na[i] && !seen[r] {
			seen[r] = true
			levels = append(levels, r)
		}
	}
	sort.Strings(levels)
	if len(levels) < 2 {
		return nil
	}

	out := make([]series.Series, 0, len(levels)-1)
	for _, level := range levels[1:] {
		values := make([]float64, len(records))
		for i, r := range records {
			if !na[i] && r == level {
				values[i] = 1
			}
		}
		out = append(out, series.New(values, series.Float, name+"_"+level))
	}
	return out
}

// Column returns the values of a numeric column.
func (f *Frame) Column(name string) ([]float64, error) {
	if !f.HasColumn(name) {
		return nil, errors.Wrapf(errors.ErrUnknownColumn, "column %q", name)
	}
	s := f.df.Col(name)
	switch s.Type() {
	case series.Float, series.Int, series.Bool:
		return s.Float(), nil
	default:
		return nil, errors.NewValueError("Column", "column "+name+" is not numeric")
	}
}

// Matrix returns the selected columns as an n x len(cols) matrix.
// An empty cols yields an n x 0 design, which callers treat as
// intercept-only.
func (f *Frame) Matrix(cols []string) (*mat.Dense, error) {
	n := f.df.Nrow()
	if n == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	data := make([]float64, n*len(cols))
	for j, name := range cols {
		values, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			data[i*len(cols)+j] = v
		}
	}
	if len(cols) == 0 {
		return &mat.Dense{}, nil
	}
	return mat.NewDense(n, len(cols), data), nil
}

// Target returns the target column. Every value must be 0 or 1.
func (f *Frame) Target(col string) (*mat.VecDense, error) {
	values, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v != 0 && v != 1 {
			return nil, errors.Wrapf(errors.ErrNotBinary, "column %q row %d has value %v", col, i, v)
		}
	}
	return mat.NewVecDense(len(values), values), nil
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(cols []string) (*Frame, error) {
	for _, c := range cols {
		if !f.HasColumn(c) {
			return nil, errors.Wrapf(errors.ErrUnknownColumn, "column %q", c)
		}
	}
	return FromDataFrame(f.df.Drop(cols))
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(cols []string) (*Frame, error) {
	for _, c := range cols {
		if !f.HasColumn(c) {
			return nil, errors.Wrapf(errors.ErrUnknownColumn, "column %q", c)
		}
	}
	return FromDataFrame(f.df.Select(cols))
}

// DropNA returns a frame without the rows holding a NaN in any of cols.
// With no cols every numeric column is checked.
func (f *Frame) DropNA(cols ...string) (*Frame, error) {
	if len(cols) == 0 {
		for _, name := range f.df.Names() {
			if t := f.df.Col(name).Type(); t == series.Float || t == series.Int {
				cols = append(cols, name)
			}
		}
	}
	keep := make([]bool, f.df.Nrow())
	for i := range keep {
		keep[i] = true
	}
	for _, name := range cols {
		values, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if math.IsNaN(v) {
				keep[i] = false
			}
		}
	}
	rows := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	return FromDataFrame(f.df.Subset(rows))
}
