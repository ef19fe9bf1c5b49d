package encode_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/encode"
)

func TestParseList(t *testing.T) {
	testCases := map[string]struct {
		cell      string
		delimiter string
		expected  []string
		fails     bool
	}{
		"json array":            {cell: `["Engineer", "Manager"]`, delimiter: ";", expected: []string{"Engineer", "Manager"}},
		"plain delimited":       {cell: "Engineer;Manager", delimiter: ";", expected: []string{"Engineer", "Manager"}},
		"single label":          {cell: "Engineer", delimiter: ";", expected: []string{"Engineer"}},
		"empty cell":            {cell: "", delimiter: ";", expected: nil},
		"whitespace trimmed":    {cell: " Engineer ; Manager ", delimiter: ";", expected: []string{"Engineer", "Manager"}},
		"malformed json":        {cell: `["Engineer"`, delimiter: ";", fails: true},
		"json of wrong type":    {cell: `[1, 2]`, delimiter: ";", fails: true},
		"plain list no delim":   {cell: "Engineer,Manager", delimiter: "", fails: true},
		"empty entries dropped": {cell: "Engineer;;Manager;", delimiter: ";", expected: []string{"Engineer", "Manager"}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, err := encode.ParseList(tc.cell, tc.delimiter)
			if tc.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestEncodeFeatureFromList(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("roles", []string{
		`["Engineer", "Manager"]`,
		"Engineer",
		"",
		"Manager;Designer",
	}))
	require.NoError(t, dataset.AddNumericColumn("age", []float64{30, 40, 50, 60}))

	result, err := encode.EncodeFeatureFromList(dataset, "roles", ";")
	require.NoError(t, err)

	require.Equal(t, []string{"age", "roles_Designer", "roles_Engineer", "roles_Manager"}, result.ColumnNames())
	require.False(t, result.HasColumn("roles"), "source column is dropped")

	engineer, err := result.Numeric("roles_Engineer")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 1, 0, 0}, engineer)

	manager, err := result.Numeric("roles_Manager")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0, 0, 1}, manager)

	designer, err := result.Numeric("roles_Designer")
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 1}, designer)
}

func TestEncodeFeatureFromListParseError(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("roles", []string{`["broken`}))

	_, err := encode.EncodeFeatureFromList(dataset, "roles", ";")
	require.Error(t, err)

	var parseErr *encode.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "roles", parseErr.Column)
	require.Equal(t, 0, parseErr.Row)
}

func TestEncodeCategoricalFeatures(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("gender", []string{"Male", "Female", "Male", "Other"}))
	require.NoError(t, dataset.AddNumericColumn("age", []float64{30, 40, 50, 60}))

	result, err := encode.EncodeCategoricalFeatures(dataset, []string{"gender"})
	require.NoError(t, err)

	// Female sorts first and becomes the dropped baseline.
	require.Equal(t, []string{"age", "gender_Male", "gender_Other"}, result.ColumnNames())

	male, err := result.Numeric("gender_Male")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0, 1, 0}, male)

	other, err := result.Numeric("gender_Other")
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 1}, other)
}

func TestEncodeCategoricalFeaturesUnknownColumn(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("gender", []string{"Male"}))

	_, err := encode.EncodeCategoricalFeatures(dataset, []string{"missing"})
	require.ErrorIs(t, err, abtests.ErrUnknownColumn)
}

func TestLabelEncode(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("size", []string{"small", "large", "medium", "", "small"}))

	result, err := encode.LabelEncode(dataset, "size")
	require.NoError(t, err)

	codes, err := result.Numeric("size")
	require.NoError(t, err)

	// large=0, medium=1, small=2 in lexical order.
	require.Equal(t, 2.0, codes[0])
	require.Equal(t, 0.0, codes[1])
	require.Equal(t, 1.0, codes[2])
	require.True(t, math.IsNaN(codes[3]), "missing stays missing")
	require.Equal(t, 2.0, codes[4])
}

func TestFrequencyEncode(t *testing.T) {
	dataset := abtests.NewDataset()
	require.NoError(t, dataset.AddCategoricalColumn("city", []string{"Vilnius", "Kaunas", "Vilnius", "Vilnius", ""}))

	result, err := encode.FrequencyEncode(dataset, "city")
	require.NoError(t, err)

	counts, err := result.Numeric("city")
	require.NoError(t, err)

	require.Equal(t, 3.0, counts[0])
	require.Equal(t, 1.0, counts[1])
	require.Equal(t, 3.0, counts[2])
	require.True(t, math.IsNaN(counts[4]))
}
