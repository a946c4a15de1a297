// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/derat/covidtraj/analysis"
	"github.com/derat/covidtraj/filewriter"
	"github.com/derat/covidtraj/gnuplot"
	"github.com/derat/covidtraj/infect"
)

// writeFigure writes one data file per location in fig to dir.
// Each line holds a date followed by the location's value in every panel,
// or its x and y values for scatter figures.
func writeFigure(dir string, fig analysis.Figure) ([]gnuplot.Series, error) {
	if len(fig.Panels) == 0 {
		return nil, nil
	}
	var series []gnuplot.Series
	for i, tr := range fig.Panels[0].Traces {
		p := filepath.Join(dir, fmt.Sprintf("%02d.data", i))
		fw, err := filewriter.New(p)
		if err != nil {
			return nil, err
		}

		cols := []string{"Date"}
		scatter := tr.X != nil
		if scatter {
			cols = append(cols, fig.XTitle)
		}
		for _, pn := range fig.Panels {
			cols = append(cols, pn.YTitle)
		}
		fw.Header(cols...)

		for j, date := range tr.Dates {
			vals := make([]infect.Value, 0, len(cols)-1)
			if scatter {
				vals = append(vals, tr.X[j])
			}
			for _, pn := range fig.Panels {
				vals = append(vals, pn.Traces[i].Y[j])
			}
			fw.Row(date, vals...)
		}
		if err := fw.Close(); err != nil {
			return nil, err
		}
		series = append(series, gnuplot.Series{Name: tr.Name, Path: p})
	}
	return series, nil
}

// summarize writes a human-readable summary of the latest estimates to w.
func summarize(w io.Writer, frames map[string]*analysis.Frame, names []string) error {
	var writeErr error
	writef := func(format string, args ...interface{}) {
		if writeErr == nil {
			_, writeErr = fmt.Fprintf(w, format, args...)
		}
	}

	const dl = "2006-01-02"

	for _, n := range names {
		f, ok := frames[n]
		if !ok || len(f.Dates) == 0 {
			continue
		}
		writef("%s\n%s\n", n, strings.Repeat("-", len(n)))

		// Show the last two weeks. R is always undefined on the final day.
		last := len(f.Dates) - 1
		first := last - 14
		if first < 0 {
			first = 0
		}
		writef("%-10s  %8s  %8s  %10s  %6s  %6s\n", "Date", "Cases", "Deaths", "Infected", "R", "R7")
		for i := first; i <= last; i++ {
			writef("%-10s  %8.0f  %8.0f  %10.0f  %6s  %6s\n", f.Dates[i].Format(dl),
				f.Cases[i], f.Deaths[i], f.I[i], fmtRate(f.R[i]), fmtRate(f.R7[i]))
		}
		writef("\n")
	}

	return writeErr
}

func fmtRate(v infect.Value) string {
	if !v.Valid {
		return "?"
	}
	return fmt.Sprintf("%.2f", v.V)
}
