// Package diagnostics renders an HTML debug chart of per-frame cache depth
// and staleness using go-echarts, mounted as a /debug/ route by cmd/tfserver.
package diagnostics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tfgraph/tf"
)

// Handler renders a bar chart of every frame's cache depth (sample count)
// and a second series for its age (seconds since the newest sample).
func Handler(buf *tf.BufferCore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := buf.Stats()
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		names := make([]string, len(stats))
		depth := make([]opts.BarData, len(stats))
		age := make([]opts.BarData, len(stats))
		for i, s := range stats {
			names[i] = s.Name
			depth[i] = opts.BarData{Value: s.Samples}
			age[i] = opts.BarData{Value: s.Age.Seconds()}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "tf frame cache depth", Theme: "dark", Width: "900px", Height: "500px"}),
			charts.WithTitleOpts(opts.Title{Title: "Frame cache depth and age", Subtitle: fmt.Sprintf("%d frames", len(stats))}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "samples / seconds"}),
		)
		bar.SetXAxis(names).
			AddSeries("cached samples", depth).
			AddSeries("age (s)", age)

		var buf2 bytes.Buffer
		if err := bar.Render(&buf2); err != nil {
			http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf2.Bytes())
	}
}
