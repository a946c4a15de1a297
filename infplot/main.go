// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// infplot plots estimated COVID-19 infections and contact rates from the OWID dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/derat/covidtraj/analysis"
	"github.com/derat/covidtraj/cache"
	"github.com/derat/covidtraj/config"
	"github.com/derat/covidtraj/gnuplot"
	"github.com/derat/covidtraj/infect"
	"github.com/derat/covidtraj/owid"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %v [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	action := flag.String("action", "plot", `Action to perform ("plot", "scatter", "summarize")`)
	configPath := flag.String("config", "", "YAML config file (defaults are used if empty)")
	data := flag.String("data", "", "Dataset path or URL (overrides config)")
	locations := flag.String("locations", "United States", "Comma-separated locations as they appear in the dataset")
	res := flag.String("res", string(analysis.Daily), `Resolution ("Daily", "7 day average")`)
	scale := flag.String("scale", string(analysis.Raw), `Scale ("Raw", "Per million habitants", "Max value")`)
	days := flag.Int("days", 30, "Days of deaths to sum for scatter plots")
	delay := flag.Int("delay", 0, "Days to delay summed deaths by for scatter plots")
	start := flag.String("start", "2020-03-01", "Only show days after this date in scatter plots")
	estR := flag.Bool("estimated", false, "Use estimated rather than reported contact rate in scatter plots")
	out := flag.String("out", "", "PNG file to write (interactive window if empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed loading config: ", err)
	}
	if *data != "" {
		cfg.Dataset.Location = *data
	}
	resolution, err := analysis.ParseResolution(*res)
	if err != nil {
		log.Fatal(err)
	}
	sc, err := analysis.ParseScale(*scale)
	if err != nil {
		log.Fatal(err)
	}
	startDate, err := time.Parse(owid.DateLayout, *start)
	if err != nil {
		log.Fatalf("Bad -start date %q: %v", *start, err)
	}
	names := splitList(*locations)

	// Invalid model parameters are fatal; nothing useful can be plotted without them.
	est, err := infect.NewEstimator(cfg.Model.Params(), cfg.Model.Horizon)
	if err != nil {
		log.Fatal("Bad model parameters: ", err)
	}

	ctx := context.Background()
	ds, err := owid.Load(ctx, cfg.Dataset.Source())
	if err != nil {
		log.Fatalf("Failed loading %v: %v", cfg.Dataset.Location, err)
	}
	for _, n := range names {
		if _, err := ds.Get(n); err != nil {
			log.Fatal(err)
		}
	}
	sub := &owid.Dataset{Locations: make(map[string]*owid.Location), Digest: ds.Digest}
	for _, n := range names {
		sub.Locations[n] = ds.Locations[n]
	}

	opts := analysis.Options{Workers: cfg.Server.Workers}
	if cfg.Cache.Path != "" {
		c, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			log.Fatal("Failed opening cache: ", err)
		}
		defer c.Close()
		opts.Store = c
	}
	frames, err := analysis.Compute(ctx, est, sub, opts)
	if err != nil {
		log.Fatal("Failed computing estimates: ", err)
	}

	switch *action {
	case "plot":
		fig := analysis.Grid(frames, names, resolution, sc)
		title := fmt.Sprintf("COVID-19 trajectories (%v, %v)", resolution, sc)
		if err := plot(ctx, gnuplot.GridTemplate, title, fig, *out); err != nil {
			log.Fatal("Failed plotting: ", err)
		}
	case "scatter":
		so := analysis.ScatterOptions{Days: *days, Delay: *delay, Scale: sc, Start: startDate, R: analysis.ReportedR}
		if *estR {
			so.R = analysis.EstimatedR
		}
		fig := analysis.Scatter(frames, names, so)
		if err := plot(ctx, gnuplot.ScatterTemplate, "Contact rate vs. deaths", fig, *out); err != nil {
			log.Fatal("Failed plotting: ", err)
		}
	case "summarize":
		if err := summarize(os.Stdout, frames, names); err != nil {
			log.Fatal("Failed writing summary: ", err)
		}
	default:
		log.Fatalf("Invalid action %q", *action)
	}
}

// plot writes fig's data to temp files and passes them to gnuplot using tmpl.
func plot(ctx context.Context, tmpl, title string, fig analysis.Figure, out string) error {
	dir, err := os.MkdirTemp("", "infplot.")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	series, err := writeFigure(dir, fig)
	if err != nil {
		return err
	}
	return gnuplot.Exec(ctx, tmpl, gnuplot.Data{
		Title:  title,
		XTitle: fig.XTitle,
		Output: out,
		Series: series,
	}, out == "")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
