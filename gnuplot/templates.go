// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package gnuplot

// GridTemplate plots new cases, new deaths, the infected estimate and the
// contact ratio in four stacked panels. Each series' data file has columns
// date, cases, deaths, infected, contact ratio.
const GridTemplate = `
{{- if .Output}}
set terminal pngcairo size 1000,1100
set output {{quote .Output}}
{{- end}}
set multiplot layout 4,1 title {{quote .Title}}

set xdata time
set timefmt '%Y-%m-%d'
set format x '%m/%d'
set grid xtics ytics
set datafile missing '?'
set key outside top right

# https://stackoverflow.com/a/57239036
set linetype  1 lc rgb "#1f77b4" lw 1
set linetype  2 lc rgb "#ff7f0e" lw 1
set linetype  3 lc rgb "#2ca02c" lw 1
set linetype  4 lc rgb "#d62728" lw 1
set linetype  5 lc rgb "#9467bd" lw 1
set linetype  6 lc rgb "#8c564b" lw 1
set linetype  7 lc rgb "#e377c2" lw 1
set linetype  8 lc rgb "#7f7f7f" lw 1
set linetype  9 lc rgb "#bcbd22" lw 1
set linetype 10 lc rgb "#17becf" lw 1
set linetype cycle 10
{{range $i, $title := panelTitles}}
set ylabel {{quote $title}}
{{- if eq $i 3}}
set xlabel {{quote $.XTitle}}
{{- end}}
plot {{range $j, $s := $.Series}}{{if $j}}, \
     {{end}}{{quote $s.Path}} using 1:{{col $i}} with lines lt {{inc $j}} title {{quote $s.Name}}{{end}}
{{end}}
unset multiplot
`

// ScatterTemplate plots the contact rate against recent deaths.
// Each series' data file has columns date, deaths, contact rate.
const ScatterTemplate = `
{{- if .Output}}
set terminal pngcairo size 1000,700
set output {{quote .Output}}
{{- end}}
set title {{quote .Title}}
set xlabel {{quote .XTitle}}
set ylabel 'Contact rate'
set grid xtics ytics
set datafile missing '?'
set key outside top right

plot {{range $j, $s := .Series}}{{if $j}}, \
     {{end}}{{quote $s.Path}} using 2:3 with points pt 7 ps 0.6 title {{quote $s.Name}}{{end}}
`
