// Command pkplot renders a saved power spectrum archive as an HTML chart.
//
// Usage:
//
//	pkplot [flags] archive
//
// Examples:
//
//	pkplot pk.zst
//	pkplot -out spectrum.html -title "mock survey" pk.zst
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cwbudde/algo-lss/power"
)

func main() {
	out := flag.String("out", "pk.html", "HTML output path")
	title := flag.String("title", "Power spectrum", "chart title")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pkplot [flags] archive\n\n")
		fmt.Fprintf(os.Stderr, "Renders every spectrum in the archive as a line chart.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	spectra, err := power.LoadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: *title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "k"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "P(k)"}),
	)

	for is, s := range spectra {
		line.SetXAxis(axisLabels(s.KAvg()))
		for _, sr := range seriesOf(s) {
			name := sr.name
			if len(spectra) > 1 {
				name = fmt.Sprintf("%s #%d", name, is)
			}
			line.AddSeries(name, lineData(sr.values))
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := line.Render(f); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "error: render: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
}

type series struct {
	name   string
	values []float64
}

// seriesOf flattens a spectrum into named real-valued series, one per
// multipole order or mu wedge.
func seriesOf(s *power.Spectrum) []series {
	var out []series
	if s.Kind == power.Multipole {
		for _, ell := range s.Ells {
			values, err := s.Pole(ell)
			if err != nil {
				continue
			}
			out = append(out, series{fmt.Sprintf("P%d", ell), realParts(values)})
		}
		return out
	}
	for im := 0; im < s.NumMu(); im++ {
		values, err := s.AtMu(im)
		if err != nil {
			continue
		}
		lo, hi := s.MuEdges[im], s.MuEdges[im+1]
		out = append(out, series{fmt.Sprintf("mu %.2f..%.2f", lo, hi), realParts(values)})
	}
	return out
}

func realParts(values []complex128) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = real(v)
	}
	return out
}

func axisLabels(k []float64) []string {
	out := make([]string, len(k))
	for i, v := range k {
		out[i] = fmt.Sprintf("%.4g", v)
	}
	return out
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}
