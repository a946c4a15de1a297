// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package owid

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/derat/covidtraj/infect"
)

const testCSV = "\ufeffiso_code,location,date,new_cases,new_deaths,new_cases_per_million,new_deaths_per_million,reproduction_rate,population\n" +
	"GBR,United Kingdom,2020-03-03,10.0,1.0,,,1.5,67886004.0\n" +
	"GBR,United Kingdom,2020-03-01,4.0,,,,,67886004.0\n" +
	"GBR,United Kingdom,2020-03-05,-3.0,2.0,,,1.25,67886004.0\n" +
	"ITA,Italy,2020-02-28,100,5,,,,60461828\n" +
	"ITA,Italy,2020-02-29,,7,,,0.9,60461828\n" +
	"OWID_WRL,,2020-03-01,5,5,,,,\n"

func makeDate(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRead(t *testing.T) {
	ds, err := Read(strings.NewReader(testCSV))
	if err != nil {
		t.Fatal("Read failed: ", err)
	}
	if diff := cmp.Diff([]string{"Italy", "United Kingdom"}, ds.Names()); diff != "" {
		t.Error("Names() differs:\n" + diff)
	}

	uk, err := ds.Get("United Kingdom")
	if err != nil {
		t.Fatal("Get failed: ", err)
	}
	want := &Location{
		Name:       "United Kingdom",
		Population: 67886004,
		Dates: []time.Time{
			makeDate("2020-03-01"), makeDate("2020-03-02"), makeDate("2020-03-03"),
			makeDate("2020-03-04"), makeDate("2020-03-05"),
		},
		NewCases:  []float64{4, 0, 10, 0, 0},
		NewDeaths: []float64{0, 0, 1, 0, 2},
		ReportedR: []infect.Value{infect.Undefined, infect.Undefined, infect.Defined(1.5),
			infect.Undefined, infect.Defined(1.25)},
	}
	if diff := cmp.Diff(want, uk); diff != "" {
		t.Error("United Kingdom differs:\n" + diff)
	}

	it, _ := ds.Get("Italy")
	if diff := cmp.Diff([]float64{100, 0}, it.NewCases); diff != "" {
		t.Error("Italy cases differ:\n" + diff)
	}

	if _, err := ds.Get("Atlantis"); !errors.Is(err, ErrUnknownLocation) {
		t.Errorf("Get(%q) = %v; want ErrUnknownLocation", "Atlantis", err)
	}
}

func TestRead_Errors(t *testing.T) {
	for _, tc := range []struct {
		name, data string
	}{
		{"missing column", "location,date,new_cases\nItaly,2020-03-01,4\n"},
		{"bad date", "location,date,new_cases,new_deaths,reproduction_rate,population\nItaly,03/01/2020,4,0,,1\n"},
		{"bad count", "location,date,new_cases,new_deaths,reproduction_rate,population\nItaly,2020-03-01,four,0,,1\n"},
		{"empty", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.data)); err == nil {
				t.Error("Read unexpectedly succeeded")
			}
		})
	}
}

func TestLocation_Index(t *testing.T) {
	ds, err := Read(strings.NewReader(testCSV))
	if err != nil {
		t.Fatal("Read failed: ", err)
	}
	uk := ds.Locations["United Kingdom"]
	for _, tc := range []struct {
		date string
		want int
	}{
		{"2020-02-29", -1},
		{"2020-03-01", 0},
		{"2020-03-04", 3},
		{"2020-03-05", 4},
		{"2020-03-06", -1},
	} {
		if got := uk.Index(makeDate(tc.date)); got != tc.want {
			t.Errorf("Index(%v) = %v; want %v", tc.date, got, tc.want)
		}
	}
}
