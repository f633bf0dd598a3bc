package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/formcoach-app/engine/internal/session"
	"github.com/formcoach-app/engine/internal/trend"
)

// SaveScorePlot writes a static PNG of the score trajectory, one point
// per session in chronological order, with the regression line overlaid.
func SaveScorePlot(path string, records []session.Record) error {
	st := trend.AnalyzeScoreTrend(records)
	if st.Sessions == 0 {
		return fmt.Errorf("no sessions to plot")
	}

	p := plot.New()
	p.Title.Text = "Form Score Trend"
	p.X.Label.Text = "Session"
	p.Y.Label.Text = "Average score"
	p.Y.Min = 0
	p.Y.Max = 100

	pts := make(plotter.XYs, len(st.Scores))
	for i, score := range st.Scores {
		pts[i] = plotter.XY{X: float64(i + 1), Y: score}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("failed to build score series: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	points.Color = line.Color
	p.Add(line, points)

	if st.Sessions > 1 {
		// Regression overlay from the fitted slope through the mean.
		meanX := float64(st.Sessions+1) / 2
		meanY := 0.0
		for _, s := range st.Scores {
			meanY += s
		}
		meanY /= float64(st.Sessions)

		fit := plotter.XYs{
			{X: 1, Y: meanY + st.Slope*(1-meanX)},
			{X: float64(st.Sessions), Y: meanY + st.Slope*(float64(st.Sessions)-meanX)},
		}
		fitLine, err := plotter.NewLine(fit)
		if err != nil {
			return fmt.Errorf("failed to build fit line: %w", err)
		}
		fitLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		fitLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(fitLine)
		p.Legend.Add("fit", fitLine)
	}
	p.Legend.Add("score", line)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
