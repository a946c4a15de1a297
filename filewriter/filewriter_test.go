// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package filewriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/derat/covidtraj/infect"
)

func TestFileWriter(t *testing.T) {
	p := filepath.Join(t.TempDir(), "italy.data")
	fw, err := New(p)
	if err != nil {
		t.Fatal("New failed: ", err)
	}
	fw.Header("Date", "Infected", `Contact "ratio"`)
	fw.Row("2020-03-01", infect.Defined(100), infect.Defined(1.5))
	fw.Row("2020-03-02", infect.Defined(99.25), infect.Undefined)

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Errorf("%v exists before Close", p)
	}
	if err := fw.Close(); err != nil {
		t.Fatal("Close failed: ", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	const want = "# \"Date\"\t\"Infected\"\t\"Contact 'ratio'\"\n" +
		"2020-03-01\t100\t1.5\n" +
		"2020-03-02\t99.25\t?\n"
	if string(b) != want {
		t.Errorf("File contains %q; want %q", string(b), want)
	}
}

func TestFileWriter_ColumnMismatch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.data")
	fw, err := New(p)
	if err != nil {
		t.Fatal("New failed: ", err)
	}
	fw.Header("Date", "Infected")
	fw.Row("2020-03-01", infect.Defined(1), infect.Defined(2))
	if err := fw.Close(); err == nil {
		t.Error("Close unexpectedly succeeded after mismatched row")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Errorf("%v was created despite write error", p)
	}
	if ents, _ := os.ReadDir(dir); len(ents) != 0 {
		t.Errorf("%d temp file(s) left behind", len(ents))
	}
}
