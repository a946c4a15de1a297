// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package filewriter safely writes tab-separated data files for gnuplot.
package filewriter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/derat/covidtraj/infect"
)

// FileWriter writes to a temp file and later atomically renames it.
// If a write error occurs, it is saved internally and future writes become no-ops.
type FileWriter struct {
	p    string   // target filename
	f    *os.File // temp file
	werr error    // first error encountered while writing
	cols int      // number of columns declared by Header, 0 if unknown
}

// New returns a new FileWriter that will write to the supplied path.
func New(p string) (*FileWriter, error) {
	f, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".*")
	if err != nil {
		return nil, err
	}
	return &FileWriter{p: p, f: f}, nil
}

// Printf writes the supplied formatted data and returns the number of bytes written.
func (fw *FileWriter) Printf(format string, args ...interface{}) int {
	var n int
	if fw.werr == nil {
		n, fw.werr = fmt.Fprintf(fw.f, format, args...)
	}
	return n
}

// Header writes a comment line naming the columns. gnuplot skips it.
func (fw *FileWriter) Header(cols ...string) {
	fw.cols = len(cols)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + strings.ReplaceAll(c, `"`, `'`) + `"`
	}
	fw.Printf("# %s\n", strings.Join(quoted, "\t"))
}

// Row writes a line starting with label and followed by vals.
// Undefined values are written as "?", which gnuplot treats as missing.
func (fw *FileWriter) Row(label string, vals ...infect.Value) {
	if fw.cols > 0 && len(vals)+1 != fw.cols && fw.werr == nil {
		fw.werr = fmt.Errorf("row %q has %d column(s); header has %d", label, len(vals)+1, fw.cols)
		return
	}
	parts := make([]string, 0, len(vals)+1)
	parts = append(parts, label)
	for _, v := range vals {
		parts = append(parts, v.String())
	}
	fw.Printf("%s\n", strings.Join(parts, "\t"))
}

// Close renames the temp file to the path originally supplied to New.
// If a write error occurred earlier, it is returned and no other action is taken.
func (fw *FileWriter) Close() error {
	defer os.Remove(fw.f.Name()) // no-op on success
	cerr := fw.f.Close()
	if fw.werr != nil {
		return fw.werr
	}
	if cerr != nil {
		return cerr
	}
	return os.Rename(fw.f.Name(), fw.p)
}
