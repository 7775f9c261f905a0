package experiment

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/priceml/pkg/errors"
)

// SaveChart writes a bar chart of the comparison's mean CV MAE per
// experiment. The output format follows the file extension (.png, .svg,
// .pdf).
func (c Comparison) SaveChart(path string) error {
	if len(c.Records) == 0 {
		return errors.NewValueError("Comparison.SaveChart", "no records to plot")
	}

	p := plot.New()
	p.Title.Text = "Cross-validated MAE by experiment"
	p.Y.Label.Text = "mean CV MAE"

	values := make(plotter.Values, len(c.Records))
	labels := make([]string, len(c.Records))
	for i, r := range c.Records {
		values[i] = r.MeanMAE
		labels[i] = r.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	p.Add(bars)
	p.NominalX(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save chart")
	}
	return nil
}
