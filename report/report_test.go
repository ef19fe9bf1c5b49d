package report_test

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/charts"
	"github.com/dklovas/A-B-Tests/report"
	"github.com/dklovas/A-B-Tests/stats"
)

// charts.Renderer is the production drawing surface.
var _ report.Renderer = charts.NewRenderer()

type stubRenderer struct {
	calls []string
}

func (r *stubRenderer) record(name string, file string) error {
	r.calls = append(r.calls, name)
	return os.WriteFile(file, []byte(name), 0o644)
}

func (r *stubRenderer) CategoricalDistribution(d *abtests.Dataset, feature string, file string) error {
	return r.record("categorical "+feature, file)
}

func (r *stubRenderer) NumericDistribution(d *abtests.Dataset, feature string, bins int, file string) error {
	return r.record("numeric "+feature, file)
}

func (r *stubRenderer) BoxChart(d *abtests.Dataset, col string, file string) error {
	return r.record("box "+col, file)
}

func (r *stubRenderer) AssociationHeatmap(m *stats.AssociationMatrix, maskUpper bool, file string) error {
	return r.record("heatmap", file)
}

func (r *stubRenderer) PrevalenceChart(records []stats.PrevalenceRecord, file string) error {
	return r.record("prevalence", file)
}

func runDataset(t *testing.T) *abtests.Dataset {
	t.Helper()

	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("gate", []string{
		"gate_30", "gate_30", "gate_40", "gate_40", "gate_30", "gate_40", "gate_30", "gate_40",
	}))
	require.NoError(t, dataset.AddCategoricalColumn("platform", []string{
		"ios", "android", "ios", "android", "ios", "android", "android", "ios",
	}))
	require.NoError(t, dataset.AddNumericColumn("playtime", []float64{
		12, 45, 33, 27, 51, 18, 39, 24,
	}))
	require.NoError(t, dataset.AddNumericColumn("retained", []float64{
		1, 0, 1, 0, 1, 1, 0, 0,
	}))
	return dataset
}

func TestGeneratorRun(t *testing.T) {
	renderer := &stubRenderer{}
	outputFolder := t.TempDir()
	generator := report.NewGenerator(renderer, outputFolder, zerolog.Nop())

	dataset := runDataset(t)
	summary, err := generator.Run(dataset, report.Options{
		OutlierColumn: "playtime",
		OutlierLimit:  5,
		NumericTarget: "playtime",
		Conditions:    []string{"retained"},
	})
	require.NoError(t, err)

	require.NotEmpty(t, summary.RunUid)
	require.Equal(t, 8, summary.Rows)
	require.Equal(t, 4, summary.Columns)

	require.Len(t, summary.Describe, 2)
	require.NotNil(t, summary.Outliers)
	require.NotNil(t, summary.Associations)
	require.Equal(t, []string{"gate", "platform"}, summary.Associations.Columns)
	require.Len(t, summary.Anova, 2)
	require.Len(t, summary.Prevalence, 1)
	require.InDelta(t, 0.5, summary.Prevalence[0].Rate, 1e-9)

	// box, heatmap, numeric target, prevalence, two categorical columns.
	require.Len(t, summary.Artifacts, 6)
	for _, artifact := range summary.Artifacts {
		info, err := os.Stat(artifact)
		require.NoError(t, err)
		require.Greater(t, info.Size(), int64(0))
	}

	content, err := os.ReadFile(summary.ReportFile)
	require.NoError(t, err)
	html := string(content)
	require.Contains(t, html, summary.RunUid)
	require.Contains(t, html, "playtime")
	require.Contains(t, html, "Prevalence Rates")
}

func TestGeneratorRunSkipCharts(t *testing.T) {
	renderer := &stubRenderer{}
	generator := report.NewGenerator(renderer, t.TempDir(), zerolog.Nop())

	summary, err := generator.Run(runDataset(t), report.Options{
		Conditions: []string{"retained"},
		SkipCharts: true,
	})
	require.NoError(t, err)

	require.Empty(t, renderer.calls, "no rendering when charts are skipped")
	require.Empty(t, summary.Artifacts)
	require.NotEmpty(t, summary.ReportFile, "the html report is still written")
}

func TestGeneratorRunPropagatesStatErrors(t *testing.T) {
	renderer := &stubRenderer{}
	generator := report.NewGenerator(renderer, t.TempDir(), zerolog.Nop())

	dataset := runDataset(t)
	_, err := generator.Run(dataset, report.Options{
		Conditions: []string{"playtime"},
		SkipCharts: true,
	})
	require.ErrorIs(t, err, stats.ErrNotBinary)
}

func TestGeneratorRunIdsDiffer(t *testing.T) {
	generator := report.NewGenerator(&stubRenderer{}, t.TempDir(), zerolog.Nop())

	first, err := generator.Run(runDataset(t), report.Options{SkipCharts: true})
	require.NoError(t, err)
	second, err := generator.Run(runDataset(t), report.Options{SkipCharts: true})
	require.NoError(t, err)

	require.NotEqual(t, first.RunUid, second.RunUid)
}
