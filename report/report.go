// Package report runs a full exploratory pass over a dataset and collects
// the results into chart artifacts and a single HTML report file.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/notify"
	s3client "github.com/dklovas/A-B-Tests/s3"
	"github.com/dklovas/A-B-Tests/stats"
	"github.com/dklovas/A-B-Tests/uids"
)

// Renderer is the drawing surface the generator needs. charts.Renderer
// satisfies it; tests substitute a stub.
type Renderer interface {
	CategoricalDistribution(d *abtests.Dataset, feature string, file string) error
	NumericDistribution(d *abtests.Dataset, feature string, bins int, file string) error
	BoxChart(d *abtests.Dataset, col string, file string) error
	AssociationHeatmap(m *stats.AssociationMatrix, maskUpper bool, file string) error
	PrevalenceChart(records []stats.PrevalenceRecord, file string) error
}

// Options select what one run computes and renders.
type Options struct {
	// OutlierColumn enables outlier detection over the named numeric column.
	OutlierColumn string
	OutlierLimit  int
	// NumericTarget enables the ANOVA table of this column against every
	// categorical column.
	NumericTarget string
	// Conditions enables prevalence estimation over these binary columns.
	Conditions []string
	// Bins for histogram artifacts, default 20.
	Bins int
	// SkipCharts computes the tables without rendering artifacts.
	SkipCharts bool
}

// Summary is the outcome of one run: the derived tables plus the artifact
// paths written under the output folder.
type Summary struct {
	RunUid       string
	Rows         int
	Columns      int
	Describe     []abtests.ColumnSummary
	Outliers     *abtests.Dataset
	Associations *stats.AssociationMatrix
	Anova        []stats.AnovaResult
	Prevalence   []stats.PrevalenceRecord
	Artifacts    []string
	ReportFile   string
}

type Generator struct {
	stats        *stats.Stats
	renderer     Renderer
	logger       zerolog.Logger
	outputFolder string
}

func NewGenerator(renderer Renderer, outputFolder string, logger zerolog.Logger) *Generator {
	return &Generator{
		stats:        stats.NewStats(),
		renderer:     renderer,
		logger:       logger,
		outputFolder: outputFolder,
	}
}

// Run computes the summaries, core statistics and artifacts for one dataset.
// Artifact files get a fresh ulid prefix so repeated runs never overwrite
// each other.
func (g *Generator) Run(d *abtests.Dataset, opts Options) (*Summary, error) {
	summary := &Summary{
		RunUid:  uids.GetUlid(),
		Rows:    d.NumRows(),
		Columns: d.NumCols(),
	}

	g.logger.Info().Str("run", summary.RunUid).Int("rows", summary.Rows).Int("columns", summary.Columns).Msg("starting eda run")

	described, err := abtests.Describe(d)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	summary.Describe = described

	if opts.OutlierColumn != "" {
		outliers, err := g.stats.FindOutliers(d, opts.OutlierColumn, opts.OutlierLimit)
		if err != nil {
			return nil, fmt.Errorf("outliers: %w", err)
		}
		summary.Outliers = outliers
		g.logger.Debug().Str("column", opts.OutlierColumn).Int("flagged", outliers.NumRows()).Msg("outliers detected")

		if !opts.SkipCharts {
			if err := g.render(summary, "box.png", func(file string) error {
				return g.renderer.BoxChart(d, opts.OutlierColumn, file)
			}); err != nil {
				return nil, err
			}
		}
	}

	if len(d.CategoricalColumns()) >= 2 {
		matrix, err := g.stats.CategoricalCorrelationMatrix(d)
		if err != nil {
			return nil, fmt.Errorf("association matrix: %w", err)
		}
		summary.Associations = matrix

		if !opts.SkipCharts {
			if err := g.render(summary, "associations.png", func(file string) error {
				return g.renderer.AssociationHeatmap(matrix, true, file)
			}); err != nil {
				return nil, err
			}
		}
	}

	if opts.NumericTarget != "" {
		anova, err := g.stats.CategoricalNumericCorrelation(d, opts.NumericTarget, d.CategoricalColumns())
		if err != nil {
			return nil, fmt.Errorf("anova table: %w", err)
		}
		summary.Anova = anova

		if !opts.SkipCharts {
			if err := g.render(summary, "target.png", func(file string) error {
				return g.renderer.NumericDistribution(d, opts.NumericTarget, opts.Bins, file)
			}); err != nil {
				return nil, err
			}
		}
	}

	if len(opts.Conditions) > 0 {
		prevalence, err := g.stats.CountPrevalenceRate(d, opts.Conditions)
		if err != nil {
			return nil, fmt.Errorf("prevalence: %w", err)
		}
		summary.Prevalence = prevalence

		if !opts.SkipCharts {
			if err := g.render(summary, "prevalence.png", func(file string) error {
				return g.renderer.PrevalenceChart(prevalence, file)
			}); err != nil {
				return nil, err
			}
		}
	}

	if !opts.SkipCharts {
		for _, column := range d.CategoricalColumns() {
			column := column
			if err := g.render(summary, column+".png", func(file string) error {
				return g.renderer.CategoricalDistribution(d, column, file)
			}); err != nil {
				return nil, err
			}
		}
	}

	reportFile, err := g.writeHtml(summary)
	if err != nil {
		return nil, err
	}
	summary.ReportFile = reportFile

	g.logger.Info().Str("run", summary.RunUid).Int("artifacts", len(summary.Artifacts)).Str("report", reportFile).Msg("eda run finished")

	return summary, nil
}

func (g *Generator) render(summary *Summary, name string, draw func(file string) error) error {
	file := filepath.Join(g.outputFolder, summary.RunUid+"_"+name)
	if err := draw(file); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	summary.Artifacts = append(summary.Artifacts, file)
	return nil
}

func (g *Generator) writeHtml(summary *Summary) (string, error) {
	fileName := filepath.Join(g.outputFolder, summary.RunUid+"_report.html")
	file, err := os.Create(fileName)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	if err := reportTemplate.Execute(file, summary); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	return fileName, nil
}

// Deliver publishes the report to object storage and announces it. Every
// delivery channel with configuration present is used; an empty section is
// skipped.
func (g *Generator) Deliver(conf abtests.ConfigData, summary *Summary) error {
	if conf.S3.AwsBucketName != "" {
		key := filepath.Base(summary.ReportFile)
		if err := s3client.UploadArtifact(conf.S3, summary.ReportFile, key); err != nil {
			return fmt.Errorf("upload report: %w", err)
		}
		g.logger.Info().Str("key", key).Msg("report uploaded")
	}

	message := fmt.Sprintf("EDA run %s finished: %d rows, %d artifacts", summary.RunUid, summary.Rows, len(summary.Artifacts))

	if conf.Telegram.Token != "" {
		telegram, err := notify.NewTelegram(conf.Telegram)
		if err != nil {
			return err
		}
		if err := telegram.SendMessage(message); err != nil {
			return fmt.Errorf("telegram notice: %w", err)
		}
	}

	if conf.Smtp.Server != "" {
		if err := notify.SendEmailReport(conf.Smtp, message, summary.ReportFile); err != nil {
			return fmt.Errorf("email notice: %w", err)
		}
	}

	return nil
}
