package geomap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dklovas/A-B-Tests/geomap"
)

const testGeoJson = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"name": "Wonderland"},
      "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [10, 0], [10, 10], [0, 10], [0, 0]]]}
    },
    {
      "type": "Feature",
      "properties": {"name": "Oz"},
      "geometry": {"type": "Polygon", "coordinates": [[[20, 0], [30, 0], [30, 10], [20, 10], [20, 0]]]}
    }
  ]
}`

func writeGeoFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "geo.json")
	require.NoError(t, os.WriteFile(path, []byte(testGeoJson), 0o644))
	return path
}

func TestLoadGeometry(t *testing.T) {
	fc, err := geomap.LoadGeometry(writeGeoFile(t))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	require.Equal(t, "Wonderland", fc.Features[0].Properties.MustString("name", ""))
}

func TestLoadGeometryBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.json")
	require.NoError(t, os.WriteFile(path, []byte("not geojson"), 0o644))

	_, err := geomap.LoadGeometry(path)
	require.Error(t, err)
}

func TestCreateWorldMap(t *testing.T) {
	geoPath := writeGeoFile(t)
	outputFile := filepath.Join(t.TempDir(), "world.html")

	counts := map[string]float64{"Wonderland": 12, "Oz": 3}
	require.NoError(t, geomap.CreateWorldMap(geoPath, counts, outputFile))

	content, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	html := string(content)
	require.Contains(t, html, "Wonderland")
	require.Contains(t, html, "Oz")
	require.Contains(t, html, "Country Distribution")
	require.Contains(t, html, "leaflet", "map should be a leaflet page")
}

func TestCreateUsMap(t *testing.T) {
	geoPath := writeGeoFile(t)
	outputFile := filepath.Join(t.TempDir(), "us.html")

	counts := map[string]float64{"Wonderland": 10}
	percentages := map[string]float64{"Wonderland": 62.5}
	require.NoError(t, geomap.CreateUsMap(geoPath, counts, percentages, outputFile))

	content, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	html := string(content)
	require.Contains(t, html, "US States Distribution")
	require.Contains(t, html, "10 (62.5%)", "labels carry count and percentage")
}

func TestCreateMapNoCounts(t *testing.T) {
	geoPath := writeGeoFile(t)
	outputFile := filepath.Join(t.TempDir(), "empty.html")

	err := geomap.CreateWorldMap(geoPath, map[string]float64{}, outputFile)
	require.Error(t, err)
}
