// Package charts renders exploratory charts from datasets and derived tables
// with gonum/plot. Every function writes a file and returns an error; nothing
// here is ever called from the statistics code.
package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/goutils"
)

var (
	// Default bar fill, the #3174A1 steel blue of the original notebooks.
	barFill    = color.RGBA{R: 0x31, G: 0x74, B: 0xA1, A: 0xFF}
	barEdge    = color.RGBA{A: 0xFF}
	royalBlue  = color.RGBA{R: 65, G: 105, B: 225, A: 0xFF}
	darkOrange = color.RGBA{R: 255, G: 140, B: 0, A: 0xFF}
	skyBlue    = color.RGBA{R: 135, G: 206, B: 235, A: 0xFF}
)

// CategoricalDistribution draws a count bar chart of one categorical column,
// one bar per observed label in order of first appearance.
func CategoricalDistribution(d *abtests.Dataset, feature string, file string) error {
	p, err := categoricalDistributionPlot(d, feature)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}

func categoricalDistributionPlot(d *abtests.Dataset, feature string) (*plot.Plot, error) {
	labels, err := d.Categorical(feature)
	if err != nil {
		return nil, err
	}

	classes := make([]string, 0)
	counts := make(map[string]float64)
	for _, label := range labels {
		if label == "" {
			continue
		}
		if _, seen := counts[label]; !seen {
			classes = append(classes, label)
		}
		counts[label]++
	}

	values := make(plotter.Values, len(classes))
	for i, class := range classes {
		values[i] = counts[class]
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("bar chart for %s: %w", feature, err)
	}
	bars.Color = barFill
	bars.LineStyle.Color = barEdge
	bars.LineStyle.Width = vg.Points(0.5)

	p := plot.New()
	p.Title.Text = goutils.GetTitleString(feature) + " Distribution"
	p.X.Label.Text = goutils.GetTitleString(feature)
	p.Y.Label.Text = "Count"
	p.Add(bars)
	p.NominalX(classes...)

	return p, nil
}

// BarOptions control bar rendering for derived tables.
type BarOptions struct {
	// ShowValues annotates each bar with its height; "N%" when the y column
	// is named percentage, plain "N" otherwise.
	ShowValues bool
	Color      color.Color
}

// BarChart draws yCol against the labels of xCol from a derived table such as
// the CountGroupTotalPercentage output.
func BarChart(d *abtests.Dataset, xCol string, yCol string, opts BarOptions, file string) error {
	labels, err := d.Categorical(xCol)
	if err != nil {
		return err
	}
	heights, err := d.Numeric(yCol)
	if err != nil {
		return err
	}

	fill := opts.Color
	if fill == nil {
		fill = barFill
	}

	bars, err := plotter.NewBarChart(plotter.Values(heights), vg.Points(25))
	if err != nil {
		return fmt.Errorf("bar chart for %s: %w", xCol, err)
	}
	bars.Color = fill
	bars.LineStyle.Color = barEdge
	bars.LineStyle.Width = vg.Points(0.5)

	p := plot.New()
	p.Title.Text = goutils.GetTitleString(xCol) + " Distribution"
	p.X.Label.Text = goutils.GetTitleString(xCol)
	p.Y.Label.Text = goutils.GetTitleString(yCol)
	p.Add(bars)
	p.NominalX(labels...)

	if opts.ShowValues {
		annotations := plotter.XYLabels{
			XYs:    make(plotter.XYs, len(heights)),
			Labels: make([]string, len(heights)),
		}
		for i, height := range heights {
			if math.IsNaN(height) {
				continue
			}
			annotations.XYs[i] = plotter.XY{X: float64(i), Y: height}
			if yCol == "percentage" {
				annotations.Labels[i] = fmt.Sprintf("%.0f%%", height)
			} else {
				annotations.Labels[i] = fmt.Sprintf("%.0f", height)
			}
		}
		texts, err := plotter.NewLabels(annotations)
		if err != nil {
			return fmt.Errorf("bar labels for %s: %w", xCol, err)
		}
		p.Add(texts)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}

// ScatterChart draws y against x with translucent points.
func ScatterChart(d *abtests.Dataset, x string, y string, file string) error {
	xs, err := d.Numeric(x)
	if err != nil {
		return err
	}
	ys, err := d.Numeric(y)
	if err != nil {
		return err
	}

	points := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		points = append(points, plotter.XY{X: xs[i], Y: ys[i]})
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return fmt.Errorf("scatter of %s vs %s: %w", x, y, err)
	}
	scatter.GlyphStyle.Color = color.NRGBA{R: 0x31, G: 0x74, B: 0xA1, A: 0xB3}
	scatter.GlyphStyle.Radius = vg.Points(2)

	p := plot.New()
	p.Title.Text = goutils.GetTitleString(x) + " vs " + goutils.GetTitleString(y)
	p.X.Label.Text = goutils.GetTitleString(x)
	p.Y.Label.Text = goutils.GetTitleString(y)
	p.Add(scatter)

	return p.Save(6*vg.Inch, 4.5*vg.Inch, file)
}
