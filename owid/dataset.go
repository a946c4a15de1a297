// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package owid reads Our World in Data's COVID-19 dataset
// (https://covid.ourworldindata.org/data/owid-covid-data.csv).
package owid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/derat/covidtraj/infect"
)

// DateLayout is the layout of the dataset's "date" column.
const DateLayout = "2006-01-02"

// ErrUnknownLocation is returned by Dataset.Get for locations not in the dataset.
var ErrUnknownLocation = errors.New("unknown location")

// Location holds one location's daily series. All slices are indexed by day and have
// the same length as Dates, which contains every calendar day between the first
// and last reported dates.
type Location struct {
	Name       string
	Population float64 // 0 if unknown
	Dates      []time.Time
	NewCases   []float64      // missing days are zero
	NewDeaths  []float64      // missing days are zero
	ReportedR  []infect.Value // OWID's own "reproduction_rate" estimate
}

// Days returns the number of days in l's series.
func (l *Location) Days() int { return len(l.Dates) }

// Index returns the index of the day d in l's series, or -1 if it's out of range.
func (l *Location) Index(d time.Time) int {
	if len(l.Dates) == 0 {
		return -1
	}
	i := int(math.Round(d.Sub(l.Dates[0]).Hours() / 24))
	if i < 0 || i >= len(l.Dates) {
		return -1
	}
	return i
}

// Dataset holds the series for all locations in a dataset.
type Dataset struct {
	Locations map[string]*Location // keyed by name, e.g. "United Kingdom"
	Digest    string               // hex SHA-256 of the source data; set by Load
}

// Names returns the names of all locations in ds in ascending order.
func (ds *Dataset) Names() []string {
	names := make([]string, 0, len(ds.Locations))
	for n := range ds.Locations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the named location.
func (ds *Dataset) Get(name string) (*Location, error) {
	if l, ok := ds.Locations[name]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownLocation, name)
}

// row is a single parsed line from the CSV file.
type row struct {
	date       time.Time
	cases      float64
	deaths     float64
	reportedR  infect.Value
	population float64
}

// Read parses OWID CSV data from r.
// Rows are grouped by location and sorted by date, and days missing from the
// data are filled in with zero cases and deaths.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	// Find the positions of columns that we care about.
	cols, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed reading header: %v", err)
	}
	var locCol, dateCol, casesCol, deathsCol, rCol, popCol int
	for name, dst := range map[string]*int{
		"location":          &locCol,
		"date":              &dateCol,
		"new_cases":         &casesCol,
		"new_deaths":        &deathsCol,
		"reproduction_rate": &rCol,
		"population":        &popCol,
	} {
		found := false
		for i, s := range cols {
			if strings.TrimLeft(strings.TrimSpace(s), "\ufeff") == name {
				*dst = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	rows := make(map[string][]row)
	pops := make(map[string]float64)
	for line := 2; ; line++ {
		vals, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		loc := vals[locCol]
		if loc == "" {
			continue
		}
		var rw row
		if rw.date, err = time.Parse(DateLayout, vals[dateCol]); err != nil {
			return nil, fmt.Errorf("line %d: bad date %q: %v", line, vals[dateCol], err)
		}
		if rw.cases, err = parseCount(vals[casesCol]); err != nil {
			return nil, fmt.Errorf("line %d: bad new_cases: %v", line, err)
		}
		if rw.deaths, err = parseCount(vals[deathsCol]); err != nil {
			return nil, fmt.Errorf("line %d: bad new_deaths: %v", line, err)
		}
		if rw.reportedR, err = parseValue(vals[rCol]); err != nil {
			return nil, fmt.Errorf("line %d: bad reproduction_rate: %v", line, err)
		}
		pop, err := parseValue(vals[popCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad population: %v", line, err)
		}
		if pop.Valid && pop.V > 0 {
			pops[loc] = pop.V
		}
		rows[loc] = append(rows[loc], rw)
	}

	ds := &Dataset{Locations: make(map[string]*Location, len(rows))}
	for name, rs := range rows {
		ds.Locations[name] = newLocation(name, pops[name], rs)
	}
	return ds, nil
}

// newLocation returns a Location with a zero-filled daily series built from rs.
func newLocation(name string, pop float64, rs []row) *Location {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].date.Before(rs[j].date) })
	first, last := rs[0].date, rs[len(rs)-1].date
	n := int(math.Round(last.Sub(first).Hours()/24)) + 1

	l := &Location{
		Name:       name,
		Population: pop,
		Dates:      make([]time.Time, n),
		NewCases:   make([]float64, n),
		NewDeaths:  make([]float64, n),
		ReportedR:  make([]infect.Value, n),
	}
	for i := range l.Dates {
		l.Dates[i] = first.AddDate(0, 0, i)
	}
	// Later rows for the same day replace earlier ones.
	for _, r := range rs {
		i := l.Index(r.date)
		l.NewCases[i] = r.cases
		l.NewDeaths[i] = r.deaths
		l.ReportedR[i] = r.reportedR
	}
	return l
}

// parseCount parses a daily count. Empty and negative values become zero.
func parseCount(s string) (float64, error) {
	v, err := parseValue(s)
	if err != nil || !v.Valid || v.V < 0 {
		return 0, err
	}
	return v.V, nil
}

// parseValue parses an optional number. Empty strings are undefined.
func parseValue(s string) (infect.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return infect.Undefined, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return infect.Undefined, err
	}
	return infect.Defined(v), nil
}
