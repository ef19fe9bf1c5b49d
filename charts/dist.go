package charts

import (
	"fmt"
	"image/color"
	"math"
	"os"

	moremath "github.com/aclements/go-moremath/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/goutils"
)

// DefaultBins is the histogram bin count used when the caller passes zero.
const DefaultBins = 20

// NumericDistribution draws a histogram of one numeric column with a kernel
// density curve overlaid, scaled to the count axis.
func NumericDistribution(d *abtests.Dataset, feature string, bins int, file string) error {
	values, err := d.Numeric(feature)
	if err != nil {
		return err
	}

	p, err := histogramWithKde(values, bins, barFill)
	if err != nil {
		return fmt.Errorf("distribution of %s: %w", feature, err)
	}

	p.Title.Text = goutils.GetTitleString(feature) + " Distribution"
	p.X.Label.Text = goutils.GetTitleString(feature)
	p.Y.Label.Text = "Count"

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}

// TwoNumericDistributions overlays two histogram plus density pairs on a
// shared density axis, the bootstrap resample means comparison chart. The
// labels name the two series in the legend.
func TwoNumericDistributions(a []float64, b []float64, labels [2]string, bins int, file string) error {
	if bins <= 0 {
		bins = 50
	}

	p := plot.New()
	p.Title.Text = "Bootstrap Resample Means"
	p.X.Label.Text = "Retention Rate"
	p.Y.Label.Text = "Density"

	series := [][]float64{a, b}
	colors := []color.RGBA{royalBlue, darkOrange}
	for i, values := range series {
		clean := dropMissing(values)
		if len(clean) == 0 {
			return fmt.Errorf("series %s has no values", labels[i])
		}

		hist, err := plotter.NewHist(plotter.Values(clean), bins)
		if err != nil {
			return fmt.Errorf("histogram of %s: %w", labels[i], err)
		}
		hist.Normalize(1)
		hist.FillColor = withAlpha(colors[i], 0x99)
		hist.LineStyle.Color = barEdge
		hist.LineStyle.Width = vg.Points(0.5)
		p.Add(hist)

		density, err := kdeLine(clean, 1)
		if err != nil {
			return fmt.Errorf("density of %s: %w", labels[i], err)
		}
		density.Color = colors[i]
		density.Width = vg.Points(1.5)
		p.Add(density)
		p.Legend.Add(labels[i], density)
	}

	p.Legend.Top = true

	return p.Save(8*vg.Inch, 4.5*vg.Inch, file)
}

// NumericDistributionByCategory draws one histogram tile per observed label
// of the categorical column, three tiles per row, x range shared across
// tiles.
func NumericDistributionByCategory(d *abtests.Dataset, catFeature string, numFeature string, bins int, file string) error {
	labels, err := d.Categorical(catFeature)
	if err != nil {
		return err
	}
	values, err := d.Numeric(numFeature)
	if err != nil {
		return err
	}

	groups := make(map[string][]float64)
	classes := make([]string, 0)
	xMin, xMax := math.Inf(1), math.Inf(-1)
	for i, label := range labels {
		if label == "" || math.IsNaN(values[i]) {
			continue
		}
		if _, seen := groups[label]; !seen {
			classes = append(classes, label)
		}
		groups[label] = append(groups[label], values[i])
		xMin = math.Min(xMin, values[i])
		xMax = math.Max(xMax, values[i])
	}

	if len(classes) == 0 {
		return fmt.Errorf("no observed categories in %s", catFeature)
	}

	const perRow = 3
	rows := (len(classes) + perRow - 1) / perRow

	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, perRow)
	}

	for i, class := range classes {
		p, err := histogramWithKde(groups[class], bins, barFill)
		if err != nil {
			return fmt.Errorf("distribution of %s for %s: %w", numFeature, class, err)
		}
		p.Title.Text = class
		p.X.Label.Text = goutils.GetTitleString(numFeature)
		p.X.Min = xMin
		p.X.Max = xMax
		plots[i/perRow][i%perRow] = p
	}

	img := vgimg.New(vg.Points(260*perRow), vg.Points(200*float64(rows)))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: perRow,
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	return writePng(img, file)
}

// TwoCategoricalDistributions draws the count charts of two categorical
// columns side by side.
func TwoCategoricalDistributions(d *abtests.Dataset, feature1 string, feature2 string, file string) error {
	left, err := categoricalDistributionPlot(d, feature1)
	if err != nil {
		return err
	}
	right, err := categoricalDistributionPlot(d, feature2)
	if err != nil {
		return err
	}

	img := vgimg.New(vg.Points(640), vg.Points(220))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1,
		Cols: 2,
		PadX: vg.Millimeter * 2,
	}

	plots := [][]*plot.Plot{{left, right}}
	canvases := plot.Align(plots, tiles, dc)
	left.Draw(canvases[0][0])
	right.Draw(canvases[0][1])

	return writePng(img, file)
}

func histogramWithKde(values []float64, bins int, fill color.Color) (*plot.Plot, error) {
	if bins <= 0 {
		bins = DefaultBins
	}

	clean := dropMissing(values)
	if len(clean) == 0 {
		return nil, fmt.Errorf("no non-missing values")
	}

	hist, err := plotter.NewHist(plotter.Values(clean), bins)
	if err != nil {
		return nil, err
	}
	hist.FillColor = fill
	hist.LineStyle.Color = barEdge
	hist.LineStyle.Width = vg.Points(0.5)

	p := plot.New()
	p.Add(hist)

	lo, hi := minMax(clean)
	if hi > lo {
		// Scale the density curve up to the count axis: pdf * n * bin width.
		scale := float64(len(clean)) * (hi - lo) / float64(bins)
		density, err := kdeLine(clean, scale)
		if err != nil {
			return nil, err
		}
		density.Color = barEdge
		density.Width = vg.Points(1.5)
		p.Add(density)
	}

	return p, nil
}

// kdeLine samples a Gaussian kernel density estimate into a line, scaled by
// the given factor so the curve can ride either a density or a count axis.
func kdeLine(values []float64, scale float64) (*plotter.Line, error) {
	kde := &moremath.KDE{Sample: moremath.Sample{Xs: values}}

	lo, hi := minMax(values)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= 0.05 * span
	hi += 0.05 * span

	const samples = 200
	points := make(plotter.XYs, samples)
	for i := range points {
		x := lo + (hi-lo)*float64(i)/float64(samples-1)
		points[i] = plotter.XY{X: x, Y: kde.PDF(x) * scale}
	}

	return plotter.NewLine(points)
}

func withAlpha(c color.RGBA, alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

func dropMissing(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func writePng(img *vgimg.Canvas, file string) error {
	w, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}
	defer w.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}
