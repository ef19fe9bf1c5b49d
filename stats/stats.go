package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	abtests "github.com/dklovas/A-B-Tests"
)

var (
	// ErrEmptyInput is returned when a column has too few non-missing values
	// for quartiles to be defined.
	ErrEmptyInput = errors.New("not enough values")
	// ErrDegenerateTable is returned when a contingency table has a single
	// observed category on either axis.
	ErrDegenerateTable = errors.New("degenerate contingency table")
	// ErrInsufficientGroups is returned when fewer than two non-empty groups
	// are available for a group comparison.
	ErrInsufficientGroups = errors.New("fewer than two non-empty groups")
	// ErrEmptyDataset is returned when an estimate is requested over zero rows.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrZeroVariance is returned when every group is internally constant and
	// the within-group sum of squares vanishes.
	ErrZeroVariance = errors.New("zero variance within groups")
	// ErrNotBinary is returned when a prevalence condition column holds values
	// other than 0 and 1.
	ErrNotBinary = errors.New("condition column is not binary")
)

// Stats is the main struct for statistical calculations
type Stats struct{}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// GetMean calculates the arithmetic mean, skipping missing values
func (s *Stats) GetMean(values []float64) float64 {
	clean := nonMissing(values)
	if len(clean) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range clean {
		sum += v
	}
	return sum / float64(len(clean))
}

// GetMedian calculates the median value, skipping missing values
func (s *Stats) GetMedian(values []float64) float64 {
	clean := nonMissing(values)
	if len(clean) == 0 {
		return math.NaN()
	}

	sort.Float64s(clean)

	middleIndex := len(clean) / 2
	if len(clean)%2 == 0 {
		return (clean[middleIndex-1] + clean[middleIndex]) / 2
	}
	return clean[middleIndex]
}

// GetMode returns the most frequent value; ties resolve to the smallest value
func (s *Stats) GetMode(values []float64) float64 {
	clean := nonMissing(values)
	if len(clean) == 0 {
		return math.NaN()
	}

	// Create a map to count occurrences
	counter := make(map[float64]int)
	for _, v := range clean {
		counter[v]++
	}

	mode := math.Inf(1)
	maxCount := 0
	for value, count := range counter {
		if count > maxCount || (count == maxCount && value < mode) {
			maxCount = count
			mode = value
		}
	}

	return mode
}

// GetStandardDeviation returns the sample standard deviation, skipping
// missing values
func (s *Stats) GetStandardDeviation(values []float64) float64 {
	clean := nonMissing(values)
	if len(clean) < 2 {
		return math.NaN()
	}
	return stat.StdDev(clean, nil)
}

// GetQuantile computes the q-th quantile with linear interpolation between
// closest ranks, the definition quartile-based outlier bounds rely on.
func (s *Stats) GetQuantile(values []float64, q float64) (float64, error) {
	if q < 0 || q > 1 {
		return 0, fmt.Errorf("quantile %v outside [0, 1]", q)
	}

	clean := nonMissing(values)
	if len(clean) == 0 {
		return 0, ErrEmptyInput
	}

	sort.Float64s(clean)

	position := q * float64(len(clean)-1)
	lower := int(math.Floor(position))
	if lower >= len(clean)-1 {
		return clean[len(clean)-1], nil
	}

	fraction := position - float64(lower)
	return clean[lower] + fraction*(clean[lower+1]-clean[lower]), nil
}

// OutlierBounds holds the quartiles and the 1.5*IQR fences of a column.
type OutlierBounds struct {
	Q1    float64
	Q3    float64
	Iqr   float64
	Lower float64
	Upper float64
}

// GetOutlierBounds computes the interquartile outlier fences. At least four
// non-missing values are required for the quartiles to be meaningful.
func (s *Stats) GetOutlierBounds(values []float64) (OutlierBounds, error) {
	clean := nonMissing(values)
	if len(clean) < 4 {
		return OutlierBounds{}, fmt.Errorf("%w: need at least 4 values, got %d", ErrEmptyInput, len(clean))
	}

	q1, err := s.GetQuantile(clean, 0.25)
	if err != nil {
		return OutlierBounds{}, err
	}
	q3, err := s.GetQuantile(clean, 0.75)
	if err != nil {
		return OutlierBounds{}, err
	}

	iqr := q3 - q1
	return OutlierBounds{
		Q1:    q1,
		Q3:    q3,
		Iqr:   iqr,
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}, nil
}

// FindOutliers returns the rows whose column value falls outside the IQR
// fences, sorted ascending by that column and cut to the last limit rows.
// A limit of zero or less returns every flagged row.
func (s *Stats) FindOutliers(d *abtests.Dataset, column string, limit int) (*abtests.Dataset, error) {
	values, err := d.Numeric(column)
	if err != nil {
		return nil, err
	}

	bounds, err := s.GetOutlierBounds(values)
	if err != nil {
		return nil, fmt.Errorf("outlier bounds for %s: %w", column, err)
	}

	flagged := make([]int, 0)
	for i, value := range values {
		if math.IsNaN(value) {
			continue
		}
		if value < bounds.Lower || value > bounds.Upper {
			flagged = append(flagged, i)
		}
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return values[flagged[i]] < values[flagged[j]]
	})

	if limit > 0 && len(flagged) > limit {
		flagged = flagged[len(flagged)-limit:]
	}

	return d.Select(flagged)
}

func nonMissing(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}
