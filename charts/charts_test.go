package charts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/charts"
	"github.com/dklovas/A-B-Tests/stats"
)

func sampleDataset(t *testing.T) *abtests.Dataset {
	t.Helper()

	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("gate", []string{
		"gate_30", "gate_30", "gate_40", "gate_40", "gate_30", "gate_40", "gate_30", "gate_40",
	}))
	require.NoError(t, dataset.AddCategoricalColumn("retained", []string{
		"yes", "no", "yes", "no", "yes", "yes", "no", "no",
	}))
	require.NoError(t, dataset.AddNumericColumn("playtime", []float64{
		12, 45, 33, 27, 51, 18, 39, 24,
	}))
	return dataset
}

func requireRendered(t *testing.T, file string) {
	t.Helper()

	info, err := os.Stat(file)
	require.NoError(t, err, "chart file should exist")
	require.Greater(t, info.Size(), int64(0), "chart file should not be empty")
}

func TestCategoricalDistribution(t *testing.T) {
	dataset := sampleDataset(t)
	file := filepath.Join(t.TempDir(), "gate.png")

	require.NoError(t, charts.CategoricalDistribution(dataset, "gate", file))
	requireRendered(t, file)
}

func TestCategoricalDistributionUnknownColumn(t *testing.T) {
	dataset := sampleDataset(t)
	file := filepath.Join(t.TempDir(), "missing.png")

	err := charts.CategoricalDistribution(dataset, "missing", file)
	require.ErrorIs(t, err, abtests.ErrUnknownColumn)

	_, statErr := os.Stat(file)
	require.True(t, os.IsNotExist(statErr), "no file on failure")
}

func TestNumericDistribution(t *testing.T) {
	dataset := sampleDataset(t)
	file := filepath.Join(t.TempDir(), "playtime.png")

	require.NoError(t, charts.NumericDistribution(dataset, "playtime", 0, file))
	requireRendered(t, file)
}

func TestNumericDistributionByCategory(t *testing.T) {
	dataset := sampleDataset(t)
	file := filepath.Join(t.TempDir(), "facets.png")

	require.NoError(t, charts.NumericDistributionByCategory(dataset, "gate", "playtime", 5, file))
	requireRendered(t, file)
}

func TestTwoNumericDistributions(t *testing.T) {
	a := []float64{0.42, 0.44, 0.45, 0.43, 0.46, 0.44, 0.45, 0.43}
	b := []float64{0.40, 0.41, 0.42, 0.41, 0.43, 0.42, 0.40, 0.41}
	file := filepath.Join(t.TempDir(), "bootstrap.png")

	require.NoError(t, charts.TwoNumericDistributions(a, b, [2]string{"Gate 30", "Gate 40"}, 10, file))
	requireRendered(t, file)
}

func TestTwoCategoricalDistributions(t *testing.T) {
	dataset := sampleDataset(t)
	file := filepath.Join(t.TempDir(), "pair.png")

	require.NoError(t, charts.TwoCategoricalDistributions(dataset, "gate", "retained", file))
	requireRendered(t, file)
}

func TestBarChartWithValues(t *testing.T) {
	dataset := sampleDataset(t)
	table, err := abtests.CountGroupTotalPercentage(dataset, "gate", "retained")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "bars.png")
	require.NoError(t, charts.BarChart(table, "retained", "percentage", charts.BarOptions{ShowValues: true}, file))
	requireRendered(t, file)
}

func TestBoxCharts(t *testing.T) {
	dataset := sampleDataset(t)

	t.Run("horizontal box", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "box.png")
		require.NoError(t, charts.BoxChart(dataset, "playtime", file))
		requireRendered(t, file)
	})

	t.Run("box by category", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "box_by_gate.png")
		require.NoError(t, charts.BoxByCategory(dataset, "playtime", "gate", file))
		requireRendered(t, file)
	})
}

func TestScatterChart(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddNumericColumn("age", []float64{21, 34, 45, 29, 52}))
	require.NoError(t, dataset.AddNumericColumn("score", []float64{3, 5, 4, 6, 2}))

	file := filepath.Join(t.TempDir(), "scatter.png")
	require.NoError(t, charts.ScatterChart(dataset, "age", "score", file))
	requireRendered(t, file)
}

func TestAssociationHeatmap(t *testing.T) {
	s := stats.NewStats()
	dataset := sampleDataset(t)

	matrix, err := s.CategoricalCorrelationMatrix(dataset)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "heatmap.png")
	require.NoError(t, charts.AssociationHeatmap(matrix, true, file))
	requireRendered(t, file)
}

func TestPrevalenceChart(t *testing.T) {
	records := []stats.PrevalenceRecord{
		{Condition: "anxiety", Rate: 0.3, Lower: 0.2, Upper: 0.4},
		{Condition: "depression", Rate: 0.5, Lower: 0.4, Upper: 0.6},
	}

	file := filepath.Join(t.TempDir(), "prevalence.png")
	require.NoError(t, charts.PrevalenceChart(records, file))
	requireRendered(t, file)
}
