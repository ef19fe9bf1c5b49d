package abtests

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	mstats "github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/dklovas/A-B-Tests/goutils"
)

var (
	// ErrUnknownColumn is returned when a column name is not present in the dataset.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnKind is returned when a column exists but has the wrong kind for the operation.
	ErrColumnKind = errors.New("wrong column kind")
	// ErrRowCountMismatch is returned when a new column does not match the dataset row count.
	ErrRowCountMismatch = errors.New("row count mismatch")
	// ErrDuplicateColumn is returned when a column with the same name already exists.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrEmptyCsv is returned when a CSV source has no header row.
	ErrEmptyCsv = errors.New("csv source is empty")
)

type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

func (k ColumnKind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a single named column. Numeric cells live in Floats with NaN as
// missing, categorical cells live in Labels with "" as missing.
type Column struct {
	Name   string
	Kind   ColumnKind
	Floats []float64
	Labels []string
}

func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Labels)
}

func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Labels[i] == ""
}

// DistinctLabels returns the observed labels of a categorical column in order
// of first appearance, skipping missing cells.
func (c *Column) DistinctLabels() []string {
	seen := make(map[string]bool)
	distinct := make([]string, 0)
	for _, label := range c.Labels {
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		distinct = append(distinct, label)
	}

	return distinct
}

// Dataset is an ordered collection of equally sized columns. Core statistics
// treat it as read only; transformations return fresh datasets.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

func NewDataset() *Dataset {
	return &Dataset{
		columns: make([]*Column, 0),
		index:   make(map[string]int),
	}
}

func (d *Dataset) NumRows() int {
	return d.rows
}

func (d *Dataset) NumCols() int {
	return len(d.columns)
}

func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name
	}
	return names
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

func (d *Dataset) Column(name string) (*Column, error) {
	position, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return d.columns[position], nil
}

// Numeric returns the float values of a numeric column.
func (d *Dataset) Numeric(name string) ([]float64, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != Numeric {
		return nil, fmt.Errorf("%w: %s is %s", ErrColumnKind, name, col.Kind)
	}
	return col.Floats, nil
}

// Categorical returns the labels of a categorical column.
func (d *Dataset) Categorical(name string) ([]string, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != Categorical {
		return nil, fmt.Errorf("%w: %s is %s", ErrColumnKind, name, col.Kind)
	}
	return col.Labels, nil
}

func (d *Dataset) NumericColumns() []string {
	names := make([]string, 0)
	for _, col := range d.columns {
		if col.Kind == Numeric {
			names = append(names, col.Name)
		}
	}
	return names
}

func (d *Dataset) CategoricalColumns() []string {
	names := make([]string, 0)
	for _, col := range d.columns {
		if col.Kind == Categorical {
			names = append(names, col.Name)
		}
	}
	return names
}

func (d *Dataset) addColumn(col *Column) error {
	if _, ok := d.index[col.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
	}

	if len(d.columns) == 0 {
		d.rows = col.Len()
	} else if col.Len() != d.rows {
		return fmt.Errorf("%w: column %s has %d rows, dataset has %d", ErrRowCountMismatch, col.Name, col.Len(), d.rows)
	}

	d.index[col.Name] = len(d.columns)
	d.columns = append(d.columns, col)
	return nil
}

func (d *Dataset) AddNumericColumn(name string, values []float64) error {
	copied := make([]float64, len(values))
	copy(copied, values)
	return d.addColumn(&Column{Name: name, Kind: Numeric, Floats: copied})
}

func (d *Dataset) AddCategoricalColumn(name string, values []string) error {
	copied := make([]string, len(values))
	copy(copied, values)
	return d.addColumn(&Column{Name: name, Kind: Categorical, Labels: copied})
}

func (d *Dataset) DropColumn(name string) error {
	position, ok := d.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}

	d.columns = append(d.columns[:position], d.columns[position+1:]...)
	delete(d.index, name)
	for i, col := range d.columns {
		d.index[col.Name] = i
	}

	if len(d.columns) == 0 {
		d.rows = 0
	}
	return nil
}

// Select returns a new dataset containing the given rows, in the given order.
func (d *Dataset) Select(rows []int) (*Dataset, error) {
	for _, row := range rows {
		if row < 0 || row >= d.rows {
			return nil, fmt.Errorf("row index %d out of range (%d rows)", row, d.rows)
		}
	}

	selected := NewDataset()
	for _, col := range d.columns {
		if col.Kind == Numeric {
			values := make([]float64, len(rows))
			for i, row := range rows {
				values[i] = col.Floats[row]
			}
			if err := selected.AddNumericColumn(col.Name, values); err != nil {
				return nil, err
			}
		} else {
			values := make([]string, len(rows))
			for i, row := range rows {
				values[i] = col.Labels[row]
			}
			if err := selected.AddCategoricalColumn(col.Name, values); err != nil {
				return nil, err
			}
		}
	}

	return selected, nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	cloned := NewDataset()
	for _, col := range d.columns {
		if col.Kind == Numeric {
			cloned.AddNumericColumn(col.Name, col.Floats)
		} else {
			cloned.AddCategoricalColumn(col.Name, col.Labels)
		}
	}
	return cloned
}

func ReadCsv(fileName string) (*Dataset, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	return ReadCsvFrom(file)
}

// ReadCsvFrom loads a dataset from CSV content with a header row. A column is
// numeric when every non-empty cell parses as a float and at least one cell is
// non-empty; everything else is categorical. Empty cells become missing values.
func ReadCsvFrom(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrEmptyCsv
	}

	header := records[0]
	rows := records[1:]

	dataset := NewDataset()
	for j, name := range header {
		if isNumericColumn(rows, j) {
			values := make([]float64, len(rows))
			for i, row := range rows {
				if j >= len(row) || row[j] == "" {
					values[i] = math.NaN()
					continue
				}
				value, err := goutils.GetNumberColValue(row, j, float64(0))
				if err != nil {
					values[i] = math.NaN()
					continue
				}
				values[i] = value
			}
			if err := dataset.AddNumericColumn(name, values); err != nil {
				return nil, err
			}
			continue
		}

		values := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				values[i] = strings.TrimSpace(row[j])
			}
		}
		if err := dataset.AddCategoricalColumn(name, values); err != nil {
			return nil, err
		}
	}

	return dataset, nil
}

func isNumericColumn(rows [][]string, position int) bool {
	nonEmpty := 0
	for _, row := range rows {
		if position >= len(row) || row[position] == "" {
			continue
		}
		nonEmpty++
		if _, err := goutils.GetNumberColValue(row, position, float64(0)); err != nil {
			return false
		}
	}

	return nonEmpty > 0
}

// ColumnSummary holds the describe output for a single numeric column. The
// standard deviation is the sample standard deviation.
type ColumnSummary struct {
	Column  string
	Count   int
	Missing int
	Mean    float64
	Median  float64
	StdDev  float64
	Min     float64
	Max     float64
}

// Describe summarizes every numeric column of the dataset.
func Describe(d *Dataset) ([]ColumnSummary, error) {
	summaries := make([]ColumnSummary, 0)
	for _, name := range d.NumericColumns() {
		values, err := d.Numeric(name)
		if err != nil {
			return nil, err
		}

		clean := make([]float64, 0, len(values))
		for _, value := range values {
			if !math.IsNaN(value) {
				clean = append(clean, value)
			}
		}

		summary := ColumnSummary{
			Column:  name,
			Count:   len(clean),
			Missing: len(values) - len(clean),
			Mean:    math.NaN(),
			Median:  math.NaN(),
			StdDev:  math.NaN(),
			Min:     math.NaN(),
			Max:     math.NaN(),
		}

		if len(clean) > 0 {
			data := mstats.Float64Data(clean)
			if summary.Mean, err = data.Mean(); err != nil {
				return nil, fmt.Errorf("describe %s: %w", name, err)
			}
			if summary.Median, err = data.Median(); err != nil {
				return nil, fmt.Errorf("describe %s: %w", name, err)
			}
			if summary.Min, err = data.Min(); err != nil {
				return nil, fmt.Errorf("describe %s: %w", name, err)
			}
			if summary.Max, err = data.Max(); err != nil {
				return nil, fmt.Errorf("describe %s: %w", name, err)
			}
			if len(clean) > 1 {
				if summary.StdDev, err = data.StandardDeviationSample(); err != nil {
					return nil, fmt.Errorf("describe %s: %w", name, err)
				}
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// CountGroupTotalPercentage cross tabulates two categorical columns and
// returns a dataset with one row per observed pair: the pair count, the total
// for the primary group and the percentage (one decimal) of the total.
func CountGroupTotalPercentage(d *Dataset, feature1 string, feature2 string) (*Dataset, error) {
	labels1, err := d.Categorical(feature1)
	if err != nil {
		return nil, err
	}
	labels2, err := d.Categorical(feature2)
	if err != nil {
		return nil, err
	}

	type pair struct {
		first  string
		second string
	}

	counts := make(map[pair]int)
	totals := make(map[string]int)
	for i := range labels1 {
		if labels1[i] == "" || labels2[i] == "" {
			continue
		}
		counts[pair{labels1[i], labels2[i]}]++
		totals[labels1[i]]++
	}

	pairs := make([]pair, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].first != pairs[j].first {
			return pairs[i].first < pairs[j].first
		}
		return pairs[i].second < pairs[j].second
	})

	first := make([]string, len(pairs))
	second := make([]string, len(pairs))
	count := make([]float64, len(pairs))
	total := make([]float64, len(pairs))
	percentage := make([]float64, len(pairs))
	for i, p := range pairs {
		first[i] = p.first
		second[i] = p.second
		count[i] = float64(counts[p])
		total[i] = float64(totals[p.first])
		percentage[i] = math.Round(count[i]/total[i]*1000) / 10
	}

	result := NewDataset()
	if err := result.AddCategoricalColumn(feature1, first); err != nil {
		return nil, err
	}
	if err := result.AddCategoricalColumn(feature2, second); err != nil {
		return nil, err
	}
	if err := result.AddNumericColumn("count", count); err != nil {
		return nil, err
	}
	if err := result.AddNumericColumn("total", total); err != nil {
		return nil, err
	}
	if err := result.AddNumericColumn("percentage", percentage); err != nil {
		return nil, err
	}

	return result, nil
}

type FoldersData struct {
	DataFolder   string `toml:"datafolder" validate:"required"`
	OutputFolder string `toml:"outputfolder" validate:"required"`
}

type DatabaseData struct {
	Driver         string `toml:"driver" validate:"omitempty,oneof=mysql postgres"`
	Username       string
	Password       string
	Server         string
	Port           int
	Dbname         string
	Ssl            bool
	SslCertificate string `toml:"sslcertificate"`
}

type S3Data struct {
	AwsAccessKeyId     string `toml:"aws_access_key_id"`
	AwsSecretAccessKey string `toml:"aws_secret_access_key"`
	AwsRegionName      string `toml:"aws_region_name"`
	AwsBucketName      string `toml:"aws_bucket_name"`
}

type TelegramData struct {
	Token  string
	ChatId string `toml:"chatid"`
}

type SmtpData struct {
	Server   string
	Port     string
	User     string
	Password string
	From     string
	To       []string
}

type LoggingData struct {
	Level string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

type ConfigData struct {
	Title    string
	Folders  FoldersData  `toml:"folders"`
	Database DatabaseData `toml:"database"`
	S3       S3Data       `toml:"s3"`
	Telegram TelegramData `toml:"telegram"`
	Smtp     SmtpData     `toml:"smtp"`
	Logging  LoggingData  `toml:"logging"`
}

func (c ConfigData) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func ReadConfig[T any](fileName string, conf T) (T, error) {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return conf, err
	}

	err = toml.Unmarshal(content, &conf)

	if err != nil {
		return conf, err
	}

	return conf, nil
}

// InitConfig loads and validates config.toml from the given folder.
func InitConfig(configFolder string) (ConfigData, error) {
	var conf ConfigData
	conf, err := ReadConfig(configFolder+"config.toml", conf)
	if err != nil {
		return ConfigData{}, err
	}

	if err := conf.Validate(); err != nil {
		return ConfigData{}, err
	}

	return conf, nil
}

// InitLogger builds the library logger at the given level; an empty or
// unknown level falls back to info.
func InitLogger(level string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}

	logWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(logWriter).Level(logLevel).With().Timestamp().Logger()
}
