package tuning

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// GridScoresPlot draws the mean cross-validated score against the number of
// selected features.
func GridScoresPlot(res *EliminationResult) (*plot.Plot, error) {
	if res == nil || res.CVResults == nil || len(res.CVResults.NFeatures) == 0 {
		return nil, errors.NewValueError("GridScoresPlot", "no grid scores to plot")
	}
	cv := res.CVResults
	pts := make(plotter.XYs, len(cv.NFeatures))
	for i, n := range cv.NFeatures {
		pts[i].X = float64(n)
		pts[i].Y = cv.MeanTestScore[i]
	}

	p := plot.New()
	p.Title.Text = "Recursive feature elimination"
	p.X.Label.Text = "Number of features selected"
	p.Y.Label.Text = "Cross validation score (" + res.Scoring + ")"

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, errors.Wrap(err, "grid scores plot")
	}
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}

// PlotGridScores renders the grid scores chart to w in the given image
// format ("png", "svg", "pdf", ...).
func PlotGridScores(w io.Writer, res *EliminationResult, format string) error {
	p, err := GridScoresPlot(res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return errors.Wrap(err, "grid scores plot")
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveGridScoresPlot writes the grid scores chart to path; the format follows
// the file extension.
func SaveGridScoresPlot(path string, res *EliminationResult) error {
	p, err := GridScoresPlot(res)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
