// Package report renders training progress charts.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// DefaultWindow is the moving-average width of the smoothed score line.
const DefaultWindow = 100

// RenderScores writes an HTML page with the episode scores, their moving
// average and the mean loss per episode.
func RenderScores(w io.Writer, title string, episodes []rl.EpisodeRecord) error {
	if len(episodes) == 0 {
		return fmt.Errorf("no episodes to plot")
	}

	x := make([]int, len(episodes))
	scores := make([]float64, len(episodes))
	losses := make([]opts.LineData, len(episodes))
	for i, ep := range episodes {
		x[i] = ep.Episode
		scores[i] = ep.Score
		losses[i] = opts.LineData{Value: ep.MeanLoss}
	}

	scoreChart := charts.NewLine()
	scoreChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "score per episode"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score"}),
	)
	scoreChart.SetXAxis(x).
		AddSeries("score", lineData(scores)).
		AddSeries(fmt.Sprintf("mean of last %d", DefaultWindow), lineData(MovingAverage(scores, DefaultWindow)))

	lossChart := charts.NewLine()
	lossChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "loss", Subtitle: "mean update loss per episode"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "loss"}),
	)
	lossChart.SetXAxis(x).AddSeries("loss", losses)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(scoreChart, lossChart)
	return page.Render(w)
}

// MovingAverage returns the trailing mean over at most window values.
func MovingAverage(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	var sum float64
	for i, v := range xs {
		sum += v
		if i >= window {
			sum -= xs[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

func lineData(xs []float64) []opts.LineData {
	out := make([]opts.LineData, len(xs))
	for i, v := range xs {
		out[i] = opts.LineData{Value: v}
	}
	return out
}
