// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package analysis

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/derat/covidtraj/infect"
	"github.com/derat/covidtraj/owid"
)

// Resolution selects raw or smoothed series.
type Resolution string

const (
	Daily    Resolution = "Daily"
	Average7 Resolution = "7 day average"
)

// Scale selects how values are normalized before plotting.
type Scale string

const (
	Raw        Scale = "Raw"
	PerMillion Scale = "Per million habitants"
	MaxValue   Scale = "Max value"
)

// Variable selects the series shown by Trajectory.
type Variable string

const (
	NewCases  Variable = "New cases"
	NewDeaths Variable = "New deaths"
)

// Resolutions, Scales and Variables list the accepted values in display order.
var (
	Resolutions = []Resolution{Daily, Average7}
	Scales      = []Scale{Raw, PerMillion, MaxValue}
	Variables   = []Variable{NewCases, NewDeaths}
)

// ParseResolution, ParseScale and ParseVariable validate user-supplied values.
func ParseResolution(s string) (Resolution, error) {
	for _, r := range Resolutions {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid resolution %q", s)
}

func ParseScale(s string) (Scale, error) {
	for _, sc := range Scales {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("invalid scale %q", s)
}

func ParseVariable(s string) (Variable, error) {
	for _, v := range Variables {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid variable %q", s)
}

// Trace is one location's series within a Panel.
// Points are plotted against Dates unless X is set.
type Trace struct {
	Name  string         `json:"name"`
	Dates []string       `json:"dates"`
	X     []infect.Value `json:"x,omitempty"`
	Y     []infect.Value `json:"y"`
}

// Panel is a single set of axes.
type Panel struct {
	YTitle string  `json:"y_title"`
	Traces []Trace `json:"traces"`
}

// Figure is a stack of panels sharing an x axis.
type Figure struct {
	XTitle string  `json:"x_title"`
	Panels []Panel `json:"panels"`
}

const dateLayout = "2006-01-02"

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(dateLayout)
	}
	return out
}

// selectFrames returns frames for the named locations in the supplied order,
// skipping unknown names.
func selectFrames(frames map[string]*Frame, names []string) []*Frame {
	var out []*Frame
	for _, n := range names {
		if f, ok := frames[n]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Trajectory returns a single-panel figure of v for the named locations.
func Trajectory(frames map[string]*Frame, names []string, v Variable, res Resolution) Figure {
	p := Panel{YTitle: string(v), Traces: []Trace{}}
	for _, f := range selectFrames(frames, names) {
		var y []infect.Value
		switch {
		case v == NewCases && res == Average7:
			y = f.Cases7
		case v == NewCases:
			y = infect.Values(f.Cases)
		case res == Average7:
			y = f.Deaths7
		default:
			y = infect.Values(f.Deaths)
		}
		p.Traces = append(p.Traces, Trace{Name: f.Location, Dates: formatDates(f.Dates), Y: y})
	}
	return Figure{XTitle: "Date", Panels: []Panel{p}}
}

// Grid returns a four-panel figure with new cases, new deaths, the infected estimate,
// and the contact ratio for the named locations. The contact ratio is never scaled.
func Grid(frames map[string]*Frame, names []string, res Resolution, sc Scale) Figure {
	panels := []Panel{
		{YTitle: "New cases", Traces: []Trace{}},
		{YTitle: "New deaths", Traces: []Trace{}},
		{YTitle: "Infected", Traces: []Trace{}},
		{YTitle: "Contact ratio", Traces: []Trace{}},
	}
	for _, f := range selectFrames(frames, names) {
		cases, deaths, r := infect.Values(f.Cases), infect.Values(f.Deaths), f.R
		if res == Average7 {
			cases, deaths, r = f.Cases7, f.Deaths7, f.R7
		}
		dates := formatDates(f.Dates)
		for i, y := range [][]infect.Value{
			scale(cases, sc, f.Population),
			scale(deaths, sc, f.Population),
			scale(infect.Values(f.I), sc, f.Population),
			r,
		} {
			panels[i].Traces = append(panels[i].Traces, Trace{Name: f.Location, Dates: dates, Y: y})
		}
	}
	return Figure{XTitle: "Date", Panels: panels}
}

// RSource selects which reproduction rate Scatter plots.
type RSource string

const (
	ReportedR  RSource = "reported"  // OWID's reproduction_rate column
	EstimatedR RSource = "estimated" // R computed from the infected estimate
)

// ScatterOptions configures Scatter.
type ScatterOptions struct {
	Days  int       // deaths are summed over this many days
	Delay int       // days to delay the summed deaths by
	Scale Scale     // applied to the summed deaths
	Start time.Time // only days after Start are included
	R     RSource
}

// DefaultScatterOptions matches the dashboard's initial controls.
func DefaultScatterOptions() ScatterOptions {
	return ScatterOptions{
		Days:  30,
		Scale: Raw,
		Start: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		R:     ReportedR,
	}
}

// Scatter returns a figure plotting the reproduction rate against the number of
// deaths over the preceding opts.Days days for the named locations.
func Scatter(frames map[string]*Frame, names []string, opts ScatterOptions) Figure {
	p := Panel{YTitle: "Contact rate", Traces: []Trace{}}
	for _, f := range selectFrames(frames, names) {
		x := owid.Shift(owid.RollingSum(f.Deaths, opts.Days), opts.Delay)
		x = scale(x, opts.Scale, f.Population)
		y := f.ReportedR
		if opts.R == EstimatedR {
			y = f.R
		}

		tr := Trace{Name: f.Location, Dates: []string{}, X: []infect.Value{}, Y: []infect.Value{}}
		for i, d := range f.Dates {
			if !d.After(opts.Start) {
				continue
			}
			tr.Dates = append(tr.Dates, d.Format(dateLayout))
			tr.X = append(tr.X, x[i])
			tr.Y = append(tr.Y, y[i])
		}
		p.Traces = append(p.Traces, tr)
	}
	return Figure{
		XTitle: fmt.Sprintf("Cumulative deaths over %d days", opts.Days),
		Panels: []Panel{p},
	}
}

// scale returns vals normalized according to sc.
// Per-million values are undefined when the population is unknown, and
// max-value scaling leaves everything undefined if the maximum isn't positive.
func scale(vals []infect.Value, sc Scale, pop float64) []infect.Value {
	out := make([]infect.Value, len(vals))
	switch sc {
	case PerMillion:
		if pop <= 0 {
			return out
		}
		for i, v := range vals {
			if v.Valid {
				out[i] = infect.Defined(v.V * 1e6 / pop)
			}
		}
	case MaxValue:
		valid := make([]float64, 0, len(vals))
		for _, v := range vals {
			if v.Valid {
				valid = append(valid, v.V)
			}
		}
		if len(valid) == 0 {
			return out
		}
		max := floats.Max(valid)
		if max <= 0 {
			return out
		}
		for i, v := range vals {
			if v.Valid {
				out[i] = infect.Defined(v.V / max)
			}
		}
	default:
		copy(out, vals)
	}
	return out
}
