// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package main

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/derat/covidtraj/analysis"
)

// defaultLocations are selected when the page is first loaded.
var defaultLocations = []string{"United States"}

type pageData struct {
	Locations   []string
	Selected    map[string]bool
	Variables   []analysis.Variable
	Resolutions []analysis.Resolution
	Scales      []analysis.Scale
	Scatter     analysis.ScatterOptions
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowGet(w, r) {
		return
	}
	_, names := s.snapshot()
	d := pageData{
		Locations:   names,
		Selected:    make(map[string]bool),
		Variables:   analysis.Variables,
		Resolutions: analysis.Resolutions,
		Scales:      analysis.Scales,
		Scatter:     analysis.DefaultScatterOptions(),
	}
	for _, n := range defaultLocations {
		d.Selected[n] = true
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, d); err != nil {
		slog.Error("failed rendering page", "err", err)
	}
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Analysis of Covid-19 trajectories</title>
<script src="https://cdn.plot.ly/plotly-2.27.0.min.js"></script>
<style>
  body { font-family: sans-serif; margin: 0 2em; }
  h1 { text-align: center; font-size: 30px; }
  #controls { display: inline-block; vertical-align: top; width: 28%; padding-top: 40px; font-size: 14px; }
  #controls label { display: block; margin-top: 1em; }
  #controls select, #controls input { width: 100%; }
  #figures { display: inline-block; width: 68%; }
</style>
</head>
<body>
<h1>Analysis of Covid-19 trajectories</h1>
<div id="controls">
  <label for="locations">Country</label>
  <select id="locations" multiple size="10">
    {{- range .Locations}}
    <option value="{{.}}"{{if index $.Selected .}} selected{{end}}>{{.}}</option>
    {{- end}}
  </select>
  <label for="var">Variable</label>
  <select id="var">
    {{- range .Variables}}
    <option>{{.}}</option>
    {{- end}}
  </select>
  <label for="res">Resolution</label>
  <select id="res">
    {{- range .Resolutions}}
    <option>{{.}}</option>
    {{- end}}
  </select>
  <label for="scale">Scale</label>
  <select id="scale">
    {{- range .Scales}}
    <option>{{.}}</option>
    {{- end}}
  </select>
  <label for="days">Days of deaths: <span id="days-val">{{.Scatter.Days}}</span></label>
  <input id="days" type="range" min="1" max="90" value="{{.Scatter.Days}}">
  <label for="delay">Delay (days): <span id="delay-val">{{.Scatter.Delay}}</span></label>
  <input id="delay" type="range" min="0" max="60" value="{{.Scatter.Delay}}">
  <label for="start">Start date</label>
  <input id="start" type="date" value="{{.Scatter.Start.Format "2006-01-02"}}">
  <label for="r">Contact rate</label>
  <select id="r">
    <option value="reported">Reported</option>
    <option value="estimated">Estimated</option>
  </select>
</div>
<div id="figures">
  <div id="fig-traj"></div>
  <div id="fig-grid"></div>
  <div id="fig-scatter"></div>
</div>
<script>
const $ = (id) => document.getElementById(id);

function query(extra) {
  const p = new URLSearchParams(extra);
  for (const o of $('locations').selectedOptions) p.append('location', o.value);
  return p.toString();
}

async function fetchFigure(path, extra) {
  const resp = await fetch(path + '?' + query(extra));
  if (!resp.ok) throw new Error(path + ': ' + resp.status);
  return resp.json();
}

function draw(el, fig, mode) {
  const traces = [];
  const layout = { height: 300 * fig.panels.length, margin: { l: 60, r: 0, b: 40, t: 20 }, showlegend: true };
  fig.panels.forEach((p, i) => {
    const axis = i ? String(i + 1) : '';
    layout['yaxis' + axis] = { title: p.y_title, domain: [1 - (i + 1) / fig.panels.length + 0.02, 1 - i / fig.panels.length] };
    p.traces.forEach((t, j) => traces.push({
      x: t.x || t.dates, y: t.y, text: t.dates, name: t.name, mode: mode,
      type: 'scatter', xaxis: 'x', yaxis: 'y' + axis, legendgroup: t.name,
      showlegend: i === 0,
    }));
  });
  layout.xaxis = { title: fig.x_title, anchor: 'y' + (fig.panels.length > 1 ? fig.panels.length : '') };
  Plotly.react(el, traces, layout);
}

async function update() {
  $('days-val').textContent = $('days').value;
  $('delay-val').textContent = $('delay').value;
  try {
    draw('fig-traj', await fetchFigure('/api/v1/trajectory', { var: $('var').value, res: $('res').value }), 'lines');
    draw('fig-grid', await fetchFigure('/api/v1/grid', { res: $('res').value, scale: $('scale').value }), 'lines');
    draw('fig-scatter', await fetchFigure('/api/v1/scatter', {
      days: $('days').value, delay: $('delay').value, scale: $('scale').value,
      start: $('start').value, r: $('r').value,
    }), 'markers');
  } catch (e) {
    console.error(e);
  }
}

for (const id of ['locations', 'var', 'res', 'scale', 'days', 'delay', 'start', 'r']) {
  $(id).addEventListener('change', update);
}

function connect() {
  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws/stream');
  let digest = null;
  ws.onmessage = (ev) => {
    const msg = JSON.parse(ev.data);
    if (digest !== null && msg.data.digest !== digest) update();
    digest = msg.data.digest;
  };
  ws.onclose = () => setTimeout(connect, 5000);
}

update();
connect();
</script>
</body>
</html>
`))
