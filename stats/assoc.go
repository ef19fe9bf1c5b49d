package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	abtests "github.com/dklovas/A-B-Tests"
)

// ContingencyTable holds the cross tabulated counts of two categorical
// variables. Labels keep their order of first appearance; rows where either
// value is missing are excluded.
type ContingencyTable struct {
	RowLabels []string
	ColLabels []string
	Counts    [][]float64
	N         int
}

func (s *Stats) GetContingencyTable(x []string, y []string) (*ContingencyTable, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("column length mismatch: %d vs %d", len(x), len(y))
	}

	rowIndex := make(map[string]int)
	colIndex := make(map[string]int)
	table := &ContingencyTable{}

	for i := range x {
		if x[i] == "" || y[i] == "" {
			continue
		}

		if _, ok := rowIndex[x[i]]; !ok {
			rowIndex[x[i]] = len(table.RowLabels)
			table.RowLabels = append(table.RowLabels, x[i])
		}
		if _, ok := colIndex[y[i]]; !ok {
			colIndex[y[i]] = len(table.ColLabels)
			table.ColLabels = append(table.ColLabels, y[i])
		}
	}

	if len(table.RowLabels) == 0 {
		return nil, ErrEmptyDataset
	}

	table.Counts = make([][]float64, len(table.RowLabels))
	for i := range table.Counts {
		table.Counts[i] = make([]float64, len(table.ColLabels))
	}

	for i := range x {
		if x[i] == "" || y[i] == "" {
			continue
		}
		table.Counts[rowIndex[x[i]]][colIndex[y[i]]]++
		table.N++
	}

	return table, nil
}

// GetChiSquared computes Pearson's chi squared statistic over the table.
// No continuity correction is applied, not even for 2x2 tables.
func (s *Stats) GetChiSquared(table *ContingencyTable) float64 {
	rows := len(table.RowLabels)
	cols := len(table.ColLabels)

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rowTotals[i] += table.Counts[i][j]
			colTotals[j] += table.Counts[i][j]
		}
	}

	observed := make([]float64, 0, rows*cols)
	expected := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			observed = append(observed, table.Counts[i][j])
			expected = append(expected, rowTotals[i]*colTotals[j]/float64(table.N))
		}
	}

	return stat.ChiSquare(observed, expected)
}

// CramersV measures the association between two categorical variables:
// sqrt(chi2 / (n * (min(r, k) - 1))), in [0, 1].
func (s *Stats) CramersV(x []string, y []string) (float64, error) {
	table, err := s.GetContingencyTable(x, y)
	if err != nil {
		return 0, err
	}

	r := len(table.RowLabels)
	k := len(table.ColLabels)
	smaller := r
	if k < smaller {
		smaller = k
	}
	if smaller < 2 {
		return 0, fmt.Errorf("%w: %dx%d", ErrDegenerateTable, r, k)
	}

	chi2 := s.GetChiSquared(table)
	v := math.Sqrt(chi2 / (float64(table.N) * float64(smaller-1)))
	if v > 1 {
		v = 1
	}

	return v, nil
}

// AssociationMatrix is a symmetric matrix of pairwise Cramér's V values over
// the categorical columns of a dataset, diagonal fixed at 1.
type AssociationMatrix struct {
	Columns []string
	Values  [][]float64
}

func (m *AssociationMatrix) At(i int, j int) float64 {
	return m.Values[i][j]
}

// CategoricalCorrelationMatrix computes Cramér's V for every pair of
// categorical columns, in dataset column order. The upper triangle is
// computed and mirrored, so symmetry holds exactly.
func (s *Stats) CategoricalCorrelationMatrix(d *abtests.Dataset) (*AssociationMatrix, error) {
	columns := d.CategoricalColumns()

	matrix := &AssociationMatrix{
		Columns: columns,
		Values:  make([][]float64, len(columns)),
	}
	for i := range matrix.Values {
		matrix.Values[i] = make([]float64, len(columns))
		matrix.Values[i][i] = 1.0
	}

	for i := 0; i < len(columns); i++ {
		x, err := d.Categorical(columns[i])
		if err != nil {
			return nil, err
		}
		for j := i + 1; j < len(columns); j++ {
			y, err := d.Categorical(columns[j])
			if err != nil {
				return nil, err
			}

			v, err := s.CramersV(x, y)
			if err != nil {
				return nil, fmt.Errorf("cramers v of %s and %s: %w", columns[i], columns[j], err)
			}

			matrix.Values[i][j] = v
			matrix.Values[j][i] = v
		}
	}

	return matrix, nil
}

// OneWayAnova runs a one way ANOVA F test across the groups and returns the
// F statistic with its p-value. Empty groups are dropped first.
func (s *Stats) OneWayAnova(groups [][]float64) (float64, float64, error) {
	kept := make([][]float64, 0, len(groups))
	total := 0
	for _, group := range groups {
		clean := nonMissing(group)
		if len(clean) == 0 {
			continue
		}
		kept = append(kept, clean)
		total += len(clean)
	}

	if len(kept) < 2 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInsufficientGroups, len(kept))
	}

	all := make([]float64, 0, total)
	for _, group := range kept {
		all = append(all, group...)
	}
	grandMean := stat.Mean(all, nil)

	var ssBetween, ssWithin float64
	for _, group := range kept {
		groupMean := stat.Mean(group, nil)
		ssBetween += float64(len(group)) * (groupMean - grandMean) * (groupMean - grandMean)
		for _, value := range group {
			ssWithin += (value - groupMean) * (value - groupMean)
		}
	}

	if ssWithin == 0 {
		return 0, 0, ErrZeroVariance
	}

	dfBetween := float64(len(kept) - 1)
	dfWithin := float64(total - len(kept))
	fstat := (ssBetween / dfBetween) / (ssWithin / dfWithin)

	fdist := distuv.F{D1: dfBetween, D2: dfWithin}
	return fstat, fdist.Survival(fstat), nil
}

// AnovaResult is the p-value of a numeric column tested against the groups of
// one categorical column.
type AnovaResult struct {
	Feature string
	PValue  float64
}

// CategoricalNumericCorrelation partitions the numeric column by each
// categorical column's observed labels and records the one way ANOVA p-value
// per column, in input order.
func (s *Stats) CategoricalNumericCorrelation(d *abtests.Dataset, numericFeature string, categoricalColumns []string) ([]AnovaResult, error) {
	values, err := d.Numeric(numericFeature)
	if err != nil {
		return nil, err
	}

	results := make([]AnovaResult, 0, len(categoricalColumns))
	for _, column := range categoricalColumns {
		labels, err := d.Categorical(column)
		if err != nil {
			return nil, err
		}
		if len(labels) != len(values) {
			return nil, fmt.Errorf("column length mismatch: %s vs %s", column, numericFeature)
		}

		groupIndex := make(map[string]int)
		groups := make([][]float64, 0)
		for i, label := range labels {
			if label == "" || math.IsNaN(values[i]) {
				continue
			}
			position, ok := groupIndex[label]
			if !ok {
				position = len(groups)
				groupIndex[label] = position
				groups = append(groups, nil)
			}
			groups[position] = append(groups[position], values[i])
		}

		_, p, err := s.OneWayAnova(groups)
		if err != nil {
			return nil, fmt.Errorf("anova of %s by %s: %w", numericFeature, column, err)
		}

		results = append(results, AnovaResult{Feature: column, PValue: p})
	}

	return results, nil
}
