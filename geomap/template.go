package geomap

import "html/template"

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .region-label { font-size: 10pt; color: black; white-space: nowrap; }
  .legend { background: white; padding: 6px 8px; line-height: 18px; }
  .legend i { width: 18px; height: 18px; float: left; margin-right: 8px; opacity: 0.7; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var geoData = {{.GeoJson}};
var fills = {{.Fills}};
var labels = {{.Labels}};
var legendSteps = {{.Legend}};

L.geoJson(geoData, {
  style: function (feature) {
    var fill = fills[feature.properties.name];
    return {
      fillColor: fill || 'transparent',
      fillOpacity: fill ? 0.7 : 0,
      color: 'black',
      weight: 1,
      opacity: 0.2
    };
  }
}).addTo(map);

labels.forEach(function (label) {
  L.marker([label.lat, label.lon], {
    icon: L.divIcon({ className: 'region-label', html: label.text })
  }).addTo(map);
});

var legend = L.control({ position: 'bottomright' });
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  div.innerHTML = '<strong>{{.LegendName}}</strong><br>';
  legendSteps.forEach(function (step) {
    div.innerHTML += '<i style="background:' + step.color + '"></i> ' +
      step.from.toFixed(0) + ' &ndash; ' + step.to.toFixed(0) + '<br>';
  });
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))
