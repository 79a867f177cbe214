// Package plot draws evaluation charts with gonum/plot: confusion-matrix
// heatmaps, ROC curves and the k-means elbow curve. The output format
// (png, svg, pdf, ...) follows the file extension.
package plot

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

const (
	defaultWidth  = 10 * vg.Inch
	defaultHeight = 5 * vg.Inch
)

// ParseColor resolves an SVG/CSS color name ("darkorange") or a
// "#rrggbb" hex string.
func ParseColor(name string) (color.Color, error) {
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err != nil {
			return nil, errors.NewValidationError("color", "invalid hex color", name)
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}
	if c, ok := colornames.Map[strings.ToLower(name)]; ok {
		return c, nil
	}
	return nil, errors.NewValidationError("color", "unknown color name", name)
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(defaultWidth, defaultHeight, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	log.GetLoggerWithName("plot").Debug("plot written", "path", path, "title", p.Title.Text)
	return nil
}
