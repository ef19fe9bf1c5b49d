// Package geomap writes self contained Leaflet choropleth maps as static
// HTML files, shading regions of a GeoJSON boundary file by a count per
// region name and labelling each matched region at its centroid.
package geomap

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"sort"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/dklovas/A-B-Tests/goutils"
)

// The 6 class YlOrRd scale the original choropleths used.
var fillScale = []string{"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b2e", "#b10026"}

type regionLabel struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Text string  `json:"text"`
}

type legendStep struct {
	Color string  `json:"color"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

type mapData struct {
	Title      string
	CenterLat  float64
	CenterLon  float64
	Zoom       float64
	LegendName string
	GeoJson    template.JS
	Fills      template.JS
	Labels     template.JS
	Legend     template.JS
}

// Options tune a choropleth beyond the world and US presets.
type Options struct {
	Title      string
	LegendName string
	CenterLat  float64
	CenterLon  float64
	Zoom       float64
	// LabelLonShift moves centroid labels east or west, in degrees.
	LabelLonShift float64
}

// LoadGeometry reads a GeoJSON feature collection from a boundary file.
func LoadGeometry(path string) (*geojson.FeatureCollection, error) {
	content, err := goutils.GetJsonFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("open geometry: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(content)
	if err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}

	return fc, nil
}

// CreateWorldMap writes a world choropleth of per country counts, keyed by
// each feature's name property.
func CreateWorldMap(geoPath string, counts map[string]float64, outputFile string) error {
	labels := func(name string, count float64) string {
		return fmt.Sprintf("%v", count)
	}
	return CreateMap(geoPath, counts, labels, Options{
		Title:      "Country Distribution",
		LegendName: "Country Distribution",
		CenterLat:  20,
		CenterLon:  0,
		Zoom:       3,
	}, outputFile)
}

// CreateUsMap writes a US state choropleth with count and percentage labels.
// Labels shift one degree west so they clear the state borders.
func CreateUsMap(geoPath string, counts map[string]float64, percentages map[string]float64, outputFile string) error {
	labels := func(name string, count float64) string {
		return fmt.Sprintf("%v (%v%%)", count, percentages[name])
	}
	return CreateMap(geoPath, counts, labels, Options{
		Title:         "US States Distribution",
		LegendName:    "US States Distribution",
		CenterLat:     36.7783,
		CenterLon:     -97,
		Zoom:          4.5,
		LabelLonShift: -1,
	}, outputFile)
}

// CreateMap writes one choropleth: regions with a count get a fill from a six
// bin linear scale over the observed counts and a centroid label, the rest
// stay unfilled with a black border.
func CreateMap(geoPath string, counts map[string]float64, labelText func(string, float64) string, opts Options, outputFile string) error {
	fc, err := LoadGeometry(geoPath)
	if err != nil {
		return err
	}

	if len(counts) == 0 {
		return fmt.Errorf("no region counts")
	}

	fills := make(map[string]string)
	labels := make([]regionLabel, 0)
	for _, feature := range fc.Features {
		name := feature.Properties.MustString("name", "")
		count, ok := counts[name]
		if name == "" || !ok {
			continue
		}

		fills[name] = fillColor(count, counts)

		centroid, _ := planar.CentroidArea(feature.Geometry)
		labels = append(labels, regionLabel{
			Name: name,
			Lat:  centroid.Lat(),
			Lon:  centroid.Lon() + opts.LabelLonShift,
			Text: labelText(name, count),
		})
	}

	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

	geoContent, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode geometry: %w", err)
	}
	fillContent, err := json.Marshal(fills)
	if err != nil {
		return fmt.Errorf("encode fills: %w", err)
	}
	labelContent, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	legendContent, err := json.Marshal(legendSteps(counts))
	if err != nil {
		return fmt.Errorf("encode legend: %w", err)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}
	defer file.Close()

	data := mapData{
		Title:      opts.Title,
		CenterLat:  opts.CenterLat,
		CenterLon:  opts.CenterLon,
		Zoom:       opts.Zoom,
		LegendName: opts.LegendName,
		GeoJson:    template.JS(geoContent),
		Fills:      template.JS(fillContent),
		Labels:     template.JS(labelContent),
		Legend:     template.JS(legendContent),
	}

	if err := mapTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("render map: %w", err)
	}

	return nil
}

// fillColor bins a count into the six class scale between the observed
// minimum and maximum.
func fillColor(count float64, counts map[string]float64) string {
	lo, hi := countRange(counts)
	if hi == lo {
		return fillScale[0]
	}

	bin := int(float64(len(fillScale)) * (count - lo) / (hi - lo))
	if bin >= len(fillScale) {
		bin = len(fillScale) - 1
	}
	return fillScale[bin]
}

func legendSteps(counts map[string]float64) []legendStep {
	lo, hi := countRange(counts)
	width := (hi - lo) / float64(len(fillScale))

	steps := make([]legendStep, len(fillScale))
	for i, color := range fillScale {
		steps[i] = legendStep{
			Color: color,
			From:  lo + width*float64(i),
			To:    lo + width*float64(i+1),
		}
	}
	return steps
}

func countRange(counts map[string]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, count := range counts {
		lo = math.Min(lo, count)
		hi = math.Max(hi, count)
	}
	return lo, hi
}
