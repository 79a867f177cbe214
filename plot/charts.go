package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/riskml/metrics"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// confusionGrid は混同行列を HeatMap 用のグリッドとして見せる。
// 実クラス0が上段に来るよう行を反転する
type confusionGrid struct {
	cm *mat.Dense
}

func (g confusionGrid) Dims() (c, r int) { return 2, 2 }
func (g confusionGrid) Z(c, r int) float64 { return g.cm.At(1-r, c) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// colors implements palette.Palette.
type colors []color.Color

func (c colors) Colors() []color.Color { return c }

// bluesPalette runs from near-white (low counts) to dark blue, like
// matplotlib's Blues.
func bluesPalette(n int) (palette.Palette, error) {
	cmap, err := moreland.NewLuminance([]color.Color{
		color.NRGBA{R: 8, G: 48, B: 107, A: 255},
		color.NRGBA{R: 247, G: 251, B: 255, A: 255},
	})
	if err != nil {
		return nil, errors.Wrap(err, "blues palette")
	}
	cmap.SetMin(0)
	cmap.SetMax(1)
	src := cmap.Palette(n).Colors()
	out := make(colors, len(src))
	for i, c := range src {
		out[len(src)-1-i] = c
	}
	return out, nil
}

// ConfusionMatrix draws a 2x2 confusion matrix (rows actual, columns
// predicted) as an annotated heatmap.
func ConfusionMatrix(cm *mat.Dense, title, path string) error {
	if cm == nil {
		return errors.NewValueError("plot.ConfusionMatrix", "nil matrix")
	}
	if r, c := cm.Dims(); r != 2 || c != 2 {
		return errors.NewDimensionError("plot.ConfusionMatrix", 2, r, 0)
	}

	pal, err := bluesPalette(256)
	if err != nil {
		return err
	}
	grid := confusionGrid{cm: cm}
	hm := plotter.NewHeatMap(grid, pal)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "predicted values"
	p.Y.Label.Text = "actual values"
	p.X.Tick.Marker = plot.ConstantTicks([]plot.Tick{{Value: 0, Label: "Class 0"}, {Value: 1, Label: "Class 1"}})
	p.Y.Tick.Marker = plot.ConstantTicks([]plot.Tick{{Value: 0, Label: "Class 1"}, {Value: 1, Label: "Class 0"}})
	p.Add(hm)

	var xys plotter.XYs
	var labels []string
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, fmt.Sprintf("%d", int(grid.Z(c, r))))
		}
	}
	annot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "confusion matrix labels")
	}
	mid := (hm.Min + hm.Max) / 2
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = text.XCenter
		annot.TextStyle[i].YAlign = text.YCenter
		annot.TextStyle[i].Font.Size = vg.Points(14)
		// 濃いセルは白文字
		if grid.Z(int(xys[i].X), int(xys[i].Y)) > mid {
			annot.TextStyle[i].Color = color.White
		}
	}
	p.Add(annot)
	return save(p, path)
}

// ROCCurve draws the ROC curve of yScore against yTrue with a dashed grey
// chance diagonal. The legend shows the AUC with three decimals.
func ROCCurve(yTrue, yScore *mat.VecDense, title, lineColor, path string) error {
	c, err := ParseColor(lineColor)
	if err != nil {
		return err
	}
	fpr, tpr, _, err := metrics.ROCCurve(yTrue, yScore)
	if err != nil {
		return err
	}
	auc, err := metrics.TrapezoidAUC(fpr, tpr)
	if err != nil {
		return err
	}

	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i] = plotter.XY{X: fpr[i], Y: tpr[i]}
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "roc line")
	}
	curve.Color = c
	curve.Width = vg.Points(2)

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "diagonal")
	}
	diag.Color = color.Gray{Y: 128}
	diag.Width = vg.Points(2)
	diag.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "true positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Add(plotter.NewGrid(), curve, diag)
	p.Legend.Add(fmt.Sprintf("ROC curve (AUC = %.3f)", auc), curve)
	p.Legend.Top = false
	p.Legend.Left = false
	return save(p, path)
}

// Elbow draws the within-cluster inertia against the number of clusters.
func Elbow(ks []int, inertias []float64, path string) error {
	if len(ks) == 0 || len(ks) != len(inertias) {
		return errors.NewDimensionError("plot.Elbow", len(ks), len(inertias), 0)
	}
	pts := make(plotter.XYs, len(ks))
	for i, k := range ks {
		pts[i] = plotter.XY{X: float64(k), Y: inertias[i]}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "elbow line")
	}
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(3)

	ticks := make([]plot.Tick, len(ks))
	for i, k := range ks {
		ticks[i] = plot.Tick{Value: float64(k), Label: fmt.Sprintf("%d", k)}
	}

	p := plot.New()
	p.Title.Text = "Elbow method"
	p.X.Label.Text = "Number of clusters"
	p.Y.Label.Text = "Within-cluster inertia"
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.Add(plotter.NewGrid(), line, points)
	return save(p, path)
}
