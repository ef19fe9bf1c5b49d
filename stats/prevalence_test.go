package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/stats"
)

func TestWilsonInterval(t *testing.T) {
	s := stats.NewStats()

	t.Run("known value", func(t *testing.T) {
		lower, upper, err := s.WilsonInterval(50, 100, 0.95)
		require.NoError(t, err)
		require.InDelta(t, 0.404, lower, 0.002)
		require.InDelta(t, 0.596, upper, 0.002)
	})

	t.Run("containment at the extremes", func(t *testing.T) {
		testCases := map[string]struct {
			positive int
			n        int
		}{
			"all negative": {positive: 0, n: 20},
			"all positive": {positive: 20, n: 20},
			"one of one":   {positive: 1, n: 1},
			"small sample": {positive: 2, n: 7},
		}

		for name, tc := range testCases {
			t.Run(name, func(t *testing.T) {
				lower, upper, err := s.WilsonInterval(tc.positive, tc.n, 0.95)
				require.NoError(t, err)

				rate := float64(tc.positive) / float64(tc.n)
				require.LessOrEqual(t, lower, rate)
				require.GreaterOrEqual(t, upper, rate)
				require.GreaterOrEqual(t, lower, 0.0)
				require.LessOrEqual(t, upper, 1.0)

				if tc.positive == 0 {
					require.Zero(t, lower, "lower bound sits exactly on a zero rate")
				}
				if tc.positive == tc.n {
					require.Equal(t, 1.0, upper, "upper bound sits exactly on a full rate")
				}
			})
		}
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, _, err := s.WilsonInterval(0, 0, 0.95)
		require.ErrorIs(t, err, stats.ErrEmptyDataset)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, _, err := s.WilsonInterval(5, 3, 0.95)
		require.Error(t, err)

		_, _, err = s.WilsonInterval(1, 3, 1.5)
		require.Error(t, err)
	})
}

func TestCountPrevalenceRate(t *testing.T) {
	s := stats.NewStats()

	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddNumericColumn("anxiety", []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 0}))
	require.NoError(t, dataset.AddNumericColumn("depression", []float64{1, 1, 1, 0, math.NaN(), 0, 0, 0, 0, 0}))

	records, err := s.CountPrevalenceRate(dataset, []string{"anxiety", "depression"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "anxiety", records[0].Condition, "output order matches input order")
	require.InDelta(t, 0.5, records[0].Rate, 1e-9)

	require.Equal(t, "depression", records[1].Condition)
	require.InDelta(t, 3.0/9.0, records[1].Rate, 1e-9, "missing cells leave the denominator")

	for _, record := range records {
		require.LessOrEqual(t, record.Lower, record.Rate)
		require.GreaterOrEqual(t, record.Upper, record.Rate)
		require.GreaterOrEqual(t, record.Lower, 0.0)
		require.LessOrEqual(t, record.Upper, 1.0)
	}
}

func TestCountPrevalenceRateErrors(t *testing.T) {
	s := stats.NewStats()

	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddNumericColumn("score", []float64{0, 1, 2}))
	require.NoError(t, dataset.AddCategoricalColumn("label", []string{"a", "b", "c"}))

	t.Run("non binary column", func(t *testing.T) {
		_, err := s.CountPrevalenceRate(dataset, []string{"score"})
		require.ErrorIs(t, err, stats.ErrNotBinary)
	})

	t.Run("categorical column", func(t *testing.T) {
		_, err := s.CountPrevalenceRate(dataset, []string{"label"})
		require.ErrorIs(t, err, abtests.ErrColumnKind)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := s.CountPrevalenceRate(dataset, []string{"missing"})
		require.ErrorIs(t, err, abtests.ErrUnknownColumn)
	})

	t.Run("all cells missing", func(t *testing.T) {
		empty := abtests.NewDataset()
		require.NoError(t, empty.AddNumericColumn("condition", []float64{math.NaN(), math.NaN()}))

		_, err := s.CountPrevalenceRate(empty, []string{"condition"})
		require.ErrorIs(t, err, stats.ErrEmptyDataset)
	})
}
