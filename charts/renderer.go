package charts

import (
	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/stats"
)

// Renderer bundles the chart functions behind a value the report generator
// can hold as an interface, keeping rendering out of the statistics code.
type Renderer struct{}

func NewRenderer() Renderer {
	return Renderer{}
}

func (Renderer) CategoricalDistribution(d *abtests.Dataset, feature string, file string) error {
	return CategoricalDistribution(d, feature, file)
}

func (Renderer) NumericDistribution(d *abtests.Dataset, feature string, bins int, file string) error {
	return NumericDistribution(d, feature, bins, file)
}

func (Renderer) BoxChart(d *abtests.Dataset, col string, file string) error {
	return BoxChart(d, col, file)
}

func (Renderer) AssociationHeatmap(m *stats.AssociationMatrix, maskUpper bool, file string) error {
	return AssociationHeatmap(m, maskUpper, file)
}

func (Renderer) PrevalenceChart(records []stats.PrevalenceRecord, file string) error {
	return PrevalenceChart(records, file)
}
