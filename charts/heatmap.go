package charts

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/goutils"
	"github.com/dklovas/A-B-Tests/stats"
)

// matrixGrid adapts an association matrix to the heatmap grid interface.
// Masked cells are NaN and skipped by the heatmap.
type matrixGrid struct {
	values [][]float64
}

func (g matrixGrid) Dims() (int, int) { return len(g.values), len(g.values) }
func (g matrixGrid) X(c int) float64  { return float64(c) }
func (g matrixGrid) Y(r int) float64  { return float64(r) }
func (g matrixGrid) Z(c, r int) float64 {
	return g.values[r][c]
}

// AssociationHeatmap draws an association matrix as an annotated heatmap on a
// blue to red diverging palette. One triangle is masked, the upper one by
// default, since the matrix is symmetric.
func AssociationHeatmap(m *stats.AssociationMatrix, maskUpper bool, file string) error {
	size := len(m.Columns)
	if size == 0 {
		return fmt.Errorf("empty association matrix")
	}

	masked := make([][]float64, size)
	for i := range masked {
		masked[i] = make([]float64, size)
		for j := range masked[i] {
			if (maskUpper && j >= i) || (!maskUpper && j <= i) {
				masked[i][j] = math.NaN()
				continue
			}
			masked[i][j] = m.At(i, j)
		}
	}

	colorMap := moreland.SmoothBlueRed()
	colorMap.SetMin(0)
	colorMap.SetMax(1)

	heatmap := plotter.NewHeatMap(matrixGrid{values: masked}, colorMap.Palette(255))
	heatmap.Min = 0
	heatmap.Max = 1

	p := plot.New()
	p.Title.Text = "Categorical Association"
	p.Add(heatmap)

	ticks := make([]plot.Tick, size)
	for i, column := range m.Columns {
		ticks[i] = plot.Tick{Value: float64(i), Label: goutils.GetTitleString(column)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	annotations := plotter.XYLabels{}
	for i := range masked {
		for j := range masked[i] {
			if math.IsNaN(masked[i][j]) {
				continue
			}
			annotations.XYs = append(annotations.XYs, plotter.XY{X: float64(j), Y: float64(i)})
			annotations.Labels = append(annotations.Labels, fmt.Sprintf("%.2f", masked[i][j]))
		}
	}
	texts, err := plotter.NewLabels(annotations)
	if err != nil {
		return fmt.Errorf("heatmap labels: %w", err)
	}
	p.Add(texts)

	return p.Save(7*vg.Inch, 6*vg.Inch, file)
}

// BoxChart draws a horizontal box plot of one numeric column, the outlier
// inspection chart.
func BoxChart(d *abtests.Dataset, col string, file string) error {
	values, err := d.Numeric(col)
	if err != nil {
		return err
	}

	clean := dropMissing(values)
	if len(clean) == 0 {
		return fmt.Errorf("no non-missing values in %s", col)
	}

	box, err := plotter.NewBoxPlot(vg.Points(30), 0, plotter.Values(clean))
	if err != nil {
		return fmt.Errorf("box plot of %s: %w", col, err)
	}
	box.Horizontal = true
	box.FillColor = skyBlue

	p := plot.New()
	p.Title.Text = "Outliers"
	p.X.Label.Text = goutils.GetTitleString(col)
	p.Add(box)
	p.NominalY("")

	return p.Save(8*vg.Inch, 2*vg.Inch, file)
}

// BoxByCategory draws one vertical box of the numeric column per observed
// label of the categorical column.
func BoxByCategory(d *abtests.Dataset, numFeature string, catFeature string, file string) error {
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
	for i, label := range labels {
		if label == "" || math.IsNaN(values[i]) {
			continue
		}
		if _, seen := groups[label]; !seen {
			classes = append(classes, label)
		}
		groups[label] = append(groups[label], values[i])
	}

	if len(classes) == 0 {
		return fmt.Errorf("no observed categories in %s", catFeature)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Boxplot of %s by %s", goutils.GetTitleString(numFeature), goutils.GetTitleString(catFeature))
	p.X.Label.Text = goutils.GetTitleString(catFeature)
	p.Y.Label.Text = goutils.GetTitleString(numFeature)

	for i, class := range classes {
		box, err := plotter.NewBoxPlot(vg.Points(25), float64(i), plotter.Values(groups[class]))
		if err != nil {
			return fmt.Errorf("box plot of %s for %s: %w", numFeature, class, err)
		}
		box.FillColor = skyBlue
		p.Add(box)
	}
	p.NominalX(classes...)

	return p.Save(6*vg.Inch, 4.5*vg.Inch, file)
}

// PrevalenceChart draws one horizontal bar per condition with the Wilson
// interval as a whisker line with end caps, x axis fixed to [0, 1].
func PrevalenceChart(records []stats.PrevalenceRecord, file string) error {
	if len(records) == 0 {
		return fmt.Errorf("no prevalence records")
	}

	p := plot.New()
	p.Title.Text = "Prevalence Rates with 95% Confidence Intervals"
	p.X.Label.Text = "Prevalence Rate"
	p.X.Min = 0
	p.X.Max = 1

	names := make([]string, len(records))
	for i, record := range records {
		y := float64(i)
		names[i] = goutils.GetTitleString(record.Condition)

		bar, err := plotter.NewLine(plotter.XYs{{X: 0, Y: y}, {X: record.Rate, Y: y}})
		if err != nil {
			return fmt.Errorf("prevalence bar for %s: %w", record.Condition, err)
		}
		bar.Color = barFill
		bar.Width = vg.Points(12)
		p.Add(bar)

		whiskers := []plotter.XYs{
			{{X: record.Lower, Y: y}, {X: record.Upper, Y: y}},
			{{X: record.Lower, Y: y - 0.2}, {X: record.Lower, Y: y + 0.2}},
			{{X: record.Upper, Y: y - 0.2}, {X: record.Upper, Y: y + 0.2}},
		}
		for _, points := range whiskers {
			line, err := plotter.NewLine(points)
			if err != nil {
				return fmt.Errorf("interval for %s: %w", record.Condition, err)
			}
			line.Color = barEdge
			p.Add(line)
		}
	}
	p.NominalY(names...)

	return p.Save(7*vg.Inch, 4*vg.Inch, file)
}
