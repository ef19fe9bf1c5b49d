package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	abtests "github.com/dklovas/A-B-Tests"
)

// PrevalenceRecord is the point prevalence of one binary condition together
// with its Wilson confidence interval. Lower <= Rate <= Upper, all in [0, 1].
type PrevalenceRecord struct {
	Condition string
	Rate      float64
	Lower     float64
	Upper     float64
}

// WilsonInterval computes the two sided Wilson score interval for positive
// successes out of n trials at the given confidence level, e.g. 0.95. The
// closed form needs no iteration and stays inside [0, 1] even for extreme
// proportions.
func (s *Stats) WilsonInterval(positive int, n int, confidence float64) (float64, float64, error) {
	if n == 0 {
		return 0, 0, ErrEmptyDataset
	}
	if positive < 0 || positive > n {
		return 0, 0, fmt.Errorf("positive count %d outside [0, %d]", positive, n)
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, fmt.Errorf("confidence %v outside (0, 1)", confidence)
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	z := normal.Quantile(1 - (1-confidence)/2)

	p := float64(positive) / float64(n)
	nf := float64(n)

	denominator := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denominator
	halfWidth := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denominator

	lower := center - halfWidth
	upper := center + halfWidth
	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	// Rounding in the closed form can push a bound a few ulps past the point
	// estimate at p = 0 or p = 1; the interval must always contain p.
	if lower > p {
		lower = p
	}
	if upper < p {
		upper = p
	}

	return lower, upper, nil
}

// CountPrevalenceRate estimates the prevalence of each binary condition
// column together with its 95% Wilson interval, in input order. Missing cells
// are excluded from both the numerator and the denominator.
func (s *Stats) CountPrevalenceRate(d *abtests.Dataset, conditions []string) ([]PrevalenceRecord, error) {
	records := make([]PrevalenceRecord, 0, len(conditions))
	for _, condition := range conditions {
		values, err := d.Numeric(condition)
		if err != nil {
			return nil, err
		}

		positive := 0
		total := 0
		for i, value := range values {
			if math.IsNaN(value) {
				continue
			}
			if value != 0 && value != 1 {
				return nil, fmt.Errorf("%w: column %s has value %v at row %d", ErrNotBinary, condition, value, i)
			}
			total++
			if value == 1 {
				positive++
			}
		}

		lower, upper, err := s.WilsonInterval(positive, total, 0.95)
		if err != nil {
			return nil, fmt.Errorf("prevalence of %s: %w", condition, err)
		}

		records = append(records, PrevalenceRecord{
			Condition: condition,
			Rate:      float64(positive) / float64(total),
			Lower:     lower,
			Upper:     upper,
		})
	}

	return records, nil
}
