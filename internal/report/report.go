// Package report renders session history into an HTML dashboard and an
// optional static plot image.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/formcoach-app/engine/internal/session"
	"github.com/formcoach-app/engine/internal/trend"
)

// RenderHTML writes a full dashboard page for the given history: score
// trajectory, issue leaderboard and time-of-day breakdown.
func RenderHTML(w io.Writer, title string, records []session.Record) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		scoreTrendChart(records),
		issueFrequencyChart(records),
		timeOfDayChart(records),
	)
	return page.Render(w)
}

func scoreTrendChart(records []session.Record) *charts.Line {
	st := trend.AnalyzeScoreTrend(records)

	line := charts.NewLine()
	subtitle := fmt.Sprintf("%d sessions, %+.1f%% per session", st.Sessions, st.ImprovementRate)
	if st.Plateau {
		subtitle += " (plateaued)"
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "macarons"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Form Score Trend",
			Subtitle: subtitle,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Average score",
			Max:  100,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	labels := make([]string, len(st.Scores))
	items := make([]opts.LineData, len(st.Scores))
	for i, score := range st.Scores {
		labels[i] = fmt.Sprintf("#%d", i+1)
		items[i] = opts.LineData{Value: score}
	}
	line.SetXAxis(labels)
	line.AddSeries("score", items)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func issueFrequencyChart(records []session.Record) *charts.Bar {
	rows := trend.AnalyzeIssueFrequency(records)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "macarons"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Most Frequent Form Issues",
			Subtitle: "top issue codes across the selected sessions",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Rotate: 30},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger:     "axis",
			AxisPointer: &opts.AxisPointer{Type: "shadow"},
		}),
	)

	labels := make([]string, len(rows))
	items := make([]opts.BarData, len(rows))
	for i, row := range rows {
		labels[i] = fmt.Sprintf("%s (%s)", row.Code, row.Direction)
		items[i] = opts.BarData{Value: row.Count}
	}
	bar.SetXAxis(labels)
	bar.AddSeries("occurrences", items)
	return bar
}

// bucketOrder fixes the display order of time-of-day columns.
var bucketOrder = []trend.DayBucket{
	trend.BucketMorning,
	trend.BucketAfternoon,
	trend.BucketEvening,
	trend.BucketNight,
}

func timeOfDayChart(records []session.Record) *charts.Bar {
	buckets := trend.AnalyzeTimeOfDay(records)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "macarons"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Score by Time of Day",
			Subtitle: "average form score per session start window",
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Average score", Max: 100}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger:     "axis",
			AxisPointer: &opts.AxisPointer{Type: "shadow"},
		}),
	)

	var labels []string
	var items []opts.BarData
	for _, b := range bucketOrder {
		stats, ok := buckets[b]
		if !ok {
			continue
		}
		labels = append(labels, fmt.Sprintf("%s (%d)", b, stats.Sessions))
		items = append(items, opts.BarData{Value: stats.AverageScore})
	}
	bar.SetXAxis(labels)
	bar.AddSeries("score", items)
	return bar
}

// Summary is the text companion to the charts, printed by the CLIs.
type Summary struct {
	Trend       trend.ScoreTrend
	Issues      []trend.IssueFrequency
	TimeOfDay   map[trend.DayBucket]trend.BucketStats
	Fatigue     trend.Fatigue
	Correlation float64
	Correlated  bool
}

// Summarize runs every analysis over the history.
func Summarize(records []session.Record) Summary {
	s := Summary{
		Trend:     trend.AnalyzeScoreTrend(records),
		Issues:    trend.AnalyzeIssueFrequency(records),
		TimeOfDay: trend.AnalyzeTimeOfDay(records),
		Fatigue:   trend.AnalyzeFatigue(records),
	}
	s.Correlation, s.Correlated = trend.CorrelateRepsScore(records)
	return s
}

// WriteText prints the summary in a fixed, diff-friendly order.
func (s Summary) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Sessions analyzed: %d\n", s.Trend.Sessions)
	if s.Trend.Sessions > 1 {
		fmt.Fprintf(w, "Improvement rate:  %+.1f%% per session (slope %+.2f)\n",
			s.Trend.ImprovementRate, s.Trend.Slope)
	}
	if s.Trend.Plateau {
		fmt.Fprintln(w, "Progress has plateaued over the last five sessions.")
	}

	if len(s.Issues) > 0 {
		fmt.Fprintln(w, "Top issues:")
		for _, row := range s.Issues {
			fmt.Fprintf(w, "  %-20s %4d  (%s)\n", row.Code, row.Count, row.Direction)
		}
	}

	if len(s.TimeOfDay) > 0 {
		fmt.Fprintln(w, "Score by time of day:")
		buckets := make([]trend.DayBucket, 0, len(s.TimeOfDay))
		for b := range s.TimeOfDay {
			buckets = append(buckets, b)
		}
		sort.Slice(buckets, func(i, j int) bool { return bucketRank(buckets[i]) < bucketRank(buckets[j]) })
		for _, b := range buckets {
			stats := s.TimeOfDay[b]
			fmt.Fprintf(w, "  %-10s %5.1f  (%d sessions)\n", b, stats.AverageScore, stats.Sessions)
		}
	}

	if s.Fatigue.SessionsConsidered > 0 {
		fmt.Fprintf(w, "Fatigue: %+.1f%% first-set to last-set (%d sessions)\n",
			s.Fatigue.MeanDeltaPct, s.Fatigue.SessionsConsidered)
	}
	if s.Correlated {
		fmt.Fprintf(w, "Reps/score correlation: %+.2f\n", s.Correlation)
	} else {
		fmt.Fprintln(w, "Reps/score correlation: not enough history")
	}
}

func bucketRank(b trend.DayBucket) int {
	for i, candidate := range bucketOrder {
		if b == candidate {
			return i
		}
	}
	return len(bucketOrder)
}
