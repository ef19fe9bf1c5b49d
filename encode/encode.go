package encode

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	abtests "github.com/dklovas/A-B-Tests"
)

var missingValue = math.NaN()

// ParseError reports a cell that could not be parsed as a label list.
type ParseError struct {
	Column string
	Row    int
	Cell   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse list in %s row %d: %s", e.Column, e.Row, e.Reason)
}

// ParseList splits a cell into labels. A cell is either a JSON array of
// strings or a plain delimiter separated list; the two formats are the only
// ones accepted, nothing in the cell is ever evaluated as code. An empty cell
// yields no labels.
func ParseList(cell string, delimiter string) ([]string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	if strings.HasPrefix(cell, "[") {
		var labels []string
		if err := json.Unmarshal([]byte(cell), &labels); err != nil {
			return nil, fmt.Errorf("invalid json array: %w", err)
		}
		return trimLabels(labels), nil
	}

	if delimiter == "" {
		return nil, fmt.Errorf("empty delimiter for plain list")
	}

	return trimLabels(strings.Split(cell, delimiter)), nil
}

func trimLabels(labels []string) []string {
	trimmed := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label != "" {
			trimmed = append(trimmed, label)
		}
	}
	return trimmed
}

// EncodeFeatureFromList binarizes a categorical column whose cells hold label
// lists: one 0/1 numeric column per distinct label, named column_label with
// labels in lexical order, source column dropped. Missing cells produce all
// zero rows, matching an empty list.
func EncodeFeatureFromList(d *abtests.Dataset, column string, delimiter string) (*abtests.Dataset, error) {
	cells, err := d.Categorical(column)
	if err != nil {
		return nil, err
	}

	parsed := make([][]string, len(cells))
	distinct := make(map[string]bool)
	for i, cell := range cells {
		labels, err := ParseList(cell, delimiter)
		if err != nil {
			return nil, &ParseError{Column: column, Row: i, Cell: cell, Reason: err.Error()}
		}
		parsed[i] = labels
		for _, label := range labels {
			distinct[label] = true
		}
	}

	classes := make([]string, 0, len(distinct))
	for label := range distinct {
		classes = append(classes, label)
	}
	sort.Strings(classes)

	result, err := copyWithout(d, map[string]bool{column: true})
	if err != nil {
		return nil, err
	}

	for _, class := range classes {
		values := make([]float64, len(parsed))
		for i, labels := range parsed {
			for _, label := range labels {
				if label == class {
					values[i] = 1
					break
				}
			}
		}
		if err := result.AddNumericColumn(column+"_"+class, values); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// EncodeCategoricalFeatures one hot encodes the given categorical columns
// with the first label dropped: per column, labels sort lexically, the first
// is the implicit baseline and every remaining label becomes a 0/1 column
// named column_label. Source columns are dropped, everything else is kept in
// place.
func EncodeCategoricalFeatures(d *abtests.Dataset, columns []string) (*abtests.Dataset, error) {
	drop := make(map[string]bool, len(columns))
	for _, column := range columns {
		if _, err := d.Categorical(column); err != nil {
			return nil, err
		}
		drop[column] = true
	}

	result, err := copyWithout(d, drop)
	if err != nil {
		return nil, err
	}

	for _, column := range columns {
		labels, err := d.Categorical(column)
		if err != nil {
			return nil, err
		}

		classes := sortedClasses(labels)
		if len(classes) == 0 {
			continue
		}

		for _, class := range classes[1:] {
			values := make([]float64, len(labels))
			for i, label := range labels {
				if label == class {
					values[i] = 1
				}
			}
			if err := result.AddNumericColumn(column+"_"+class, values); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// LabelEncode replaces a categorical column with ordinal codes: labels sort
// lexically and map to 0, 1, 2, ... Missing cells stay missing.
func LabelEncode(d *abtests.Dataset, column string) (*abtests.Dataset, error) {
	labels, err := d.Categorical(column)
	if err != nil {
		return nil, err
	}

	classes := sortedClasses(labels)
	codes := make(map[string]float64, len(classes))
	for i, class := range classes {
		codes[class] = float64(i)
	}

	return replaceWithNumeric(d, column, labels, func(label string) float64 {
		return codes[label]
	})
}

// FrequencyEncode replaces a categorical column with each label's occurrence
// count. Missing cells stay missing.
func FrequencyEncode(d *abtests.Dataset, column string) (*abtests.Dataset, error) {
	labels, err := d.Categorical(column)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]float64)
	for _, label := range labels {
		if label != "" {
			counts[label]++
		}
	}

	return replaceWithNumeric(d, column, labels, func(label string) float64 {
		return counts[label]
	})
}

func sortedClasses(labels []string) []string {
	distinct := make(map[string]bool)
	for _, label := range labels {
		if label != "" {
			distinct[label] = true
		}
	}

	classes := make([]string, 0, len(distinct))
	for label := range distinct {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	return classes
}

func copyWithout(d *abtests.Dataset, drop map[string]bool) (*abtests.Dataset, error) {
	result := abtests.NewDataset()
	for _, name := range d.ColumnNames() {
		if drop[name] {
			continue
		}
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}

		if col.Kind == abtests.Numeric {
			err = result.AddNumericColumn(name, col.Floats)
		} else {
			err = result.AddCategoricalColumn(name, col.Labels)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func replaceWithNumeric(d *abtests.Dataset, column string, labels []string, code func(string) float64) (*abtests.Dataset, error) {
	result := abtests.NewDataset()
	for _, name := range d.ColumnNames() {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}

		if name == column {
			values := make([]float64, len(labels))
			for i, label := range labels {
				if label == "" {
					values[i] = missingValue
					continue
				}
				values[i] = code(label)
			}
			err = result.AddNumericColumn(name, values)
		} else if col.Kind == abtests.Numeric {
			err = result.AddNumericColumn(name, col.Floats)
		} else {
			err = result.AddCategoricalColumn(name, col.Labels)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
