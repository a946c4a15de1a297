// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package gnuplot makes it slightly easier to generate plots using gnuplot.
package gnuplot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"text/template"
)

// Series is a data file plotted as one line (or set of points) per panel.
type Series struct {
	Name string // legend title
	Path string // tab-separated data file written by filewriter
}

// Data is passed to the templates in this package.
type Data struct {
	Title  string
	XTitle string
	Output string // PNG path; empty for an interactive window
	Series []Series
}

var funcs = template.FuncMap{
	// quote escapes s for use within a single-quoted gnuplot string.
	"quote": func(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" },
	// col returns the 1-based data column holding the i-th value after the date.
	"col": func(i int) int { return i + 2 },
	"inc": func(i int) int { return i + 1 },
	"panelTitles": func() []string {
		return []string{"New cases", "New deaths", "Infected", "Contact ratio"}
	},
}

// Render executes the supplied Go template with data and writes the resulting
// gnuplot commands to w.
func Render(w io.Writer, tmpl string, data interface{}) error {
	t, err := template.New("").Funcs(funcs).Parse(tmpl)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}

// Exec renders tmpl with data to a temporary .gnuplot file, which it then passes to gnuplot.
// If persist is true, gnuplot's window stays open after the command exits.
func Exec(ctx context.Context, tmpl string, data interface{}, persist bool) error {
	gf, err := os.CreateTemp("", "gnuplot.")
	if err != nil {
		return err
	}
	defer os.Remove(gf.Name())

	terr := Render(gf, tmpl, data)
	cerr := gf.Close()
	if terr != nil {
		return terr
	}
	if cerr != nil {
		return cerr
	}

	var args []string
	if persist {
		args = append(args, "-p")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "gnuplot", append(args, gf.Name())...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%v: %q", err, msg)
		}
		return err
	}
	return nil
}
