// HCTRA: HCT Recovery Analysis Library
// Copyright (c) 2026 HCTRA contributors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see
// <https://www.gnu.org/licenses/>.

package plot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/valyala/fastrand"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"hctra/compare"
	"hctra/study"
	"hctra/warning"
)

// Figures for the recovery analysis, rendered with gonum/plot. All figures are
// written as PNG files; rendering panics on I/O errors like the CSV writers.

var (
	patientColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	caregiverColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	barColorA      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	barColorB      = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// maLine builds the smoothed line points of a cohort's daily means, skipping
// positions where the moving average is not available.
func maLine(points []study.DailyPoint, smoothed []float64) plotter.XYs {
	xys := plotter.XYs{}
	for i, p := range points {
		if math.IsNaN(smoothed[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: p.Day, Y: smoothed[i]})
	}
	return xys
}

// RecoveryPlot renders the recovery trajectory of one metric: the patients'
// smoothed daily mean as a colored curve, with the caregivers' smoothed daily
// mean as a gray dashed baseline. Caregivers have no transplant, so their curve
// is a same-calendar reference, not a recovery curve.
func RecoveryPlot(ds *study.Dataset, metric string, minN, maWindow, maMinPoints int, path string) {
	pPoints := study.DailyMeans(ds, metric, study.PatientFilter(), minN)
	cPoints := study.DailyMeans(ds, metric, study.CaregiverFilter(), minN)
	p := plot.New()
	p.Title.Text = fmt.Sprint("Recovery trajectory: ", metric)
	p.X.Label.Text = "Days From Transplant"
	p.Y.Label.Text = metric
	pLine, err := plotter.NewLine(maLine(pPoints, study.MovingAverage(pPoints, maWindow, maMinPoints)))
	if err != nil {
		panic(err)
	}
	pLine.Color = patientColor
	p.Add(pLine)
	p.Legend.Add(fmt.Sprint("Patients (", maWindow, "-day MA)"), pLine)
	if len(cPoints) > 0 {
		cLine, err := plotter.NewLine(maLine(cPoints, study.MovingAverage(cPoints, maWindow, maMinPoints)))
		if err != nil {
			panic(err)
		}
		cLine.Color = caregiverColor
		cLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(cLine)
		p.Legend.Add("Caregivers baseline", cLine)
	}
	p.Legend.Top = true
	if err := p.Save(8*vg.Inch, 4.5*vg.Inch, path); err != nil {
		panic(err)
	}
}

// SampleParticipants picks up to n distinct participant IDs at random. Sampling
// does not need to be reproducible; the figure is illustrative.
func SampleParticipants(ds *study.Dataset, n int) []string {
	ids := ds.ParticipantIDs()
	if n >= len(ids) {
		return ids
	}
	picked := map[int]bool{}
	sample := []string{}
	for len(sample) < n {
		i := int(fastrand.Uint32n(uint32(len(ids))))
		if picked[i] {
			continue
		}
		picked[i] = true
		sample = append(sample, ids[i])
	}
	return sample
}

// ParticipantPlot renders the raw day series of one metric for a handful of
// randomly sampled participants, one line per participant.
func ParticipantPlot(ds *study.Dataset, metric string, n int, path string) {
	p := plot.New()
	p.Title.Text = fmt.Sprint(metric, " over days (sample participants)")
	p.X.Label.Text = "Days From Transplant"
	p.Y.Label.Text = metric
	for _, pid := range SampleParticipants(ds, n) {
		xys := plotter.XYs{}
		for _, sample := range ds.SeriesOf(metric, pid) {
			if math.IsNaN(sample.Value) {
				continue
			}
			xys = append(xys, plotter.XY{X: sample.Day, Y: sample.Value})
		}
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			panic(err)
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprint("ID ", pid), line)
	}
	p.Legend.Top = true
	if err := p.Save(8*vg.Inch, 4.5*vg.Inch, path); err != nil {
		panic(err)
	}
}

// GroupMeansBar renders the cohort means of a batch of comparison results as a
// grouped bar chart, one pair of bars per metric.
func GroupMeansBar(results []*compare.Result, path string) {
	if len(results) == 0 {
		return
	}
	meansA := make(plotter.Values, len(results))
	meansB := make(plotter.Values, len(results))
	names := make([]string, len(results))
	for i, r := range results {
		meansA[i] = r.MeanA
		meansB[i] = r.MeanB
		names[i] = r.Metric
	}
	p := plot.New()
	p.Title.Text = fmt.Sprint("Cohort means: ", results[0].LabelA, " vs ", results[0].LabelB)
	p.Y.Label.Text = "mean"
	w := vg.Points(15)
	barsA, err := plotter.NewBarChart(meansA, w)
	if err != nil {
		panic(err)
	}
	barsA.Color = barColorA
	barsA.Offset = -w / 2
	barsB, err := plotter.NewBarChart(meansB, w)
	if err != nil {
		panic(err)
	}
	barsB.Color = barColorB
	barsB.Offset = w / 2
	p.Add(barsA, barsB)
	p.Legend.Add(results[0].LabelA, barsA)
	p.Legend.Add(results[0].LabelB, barsB)
	p.Legend.Top = true
	p.NominalX(names...)
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		panic(err)
	}
}

// verticalGuide builds a vertical line spanning [lo, hi] at day x.
func verticalGuide(x, lo, hi float64) plotter.XYs {
	return plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}}
}

// EventTimeline renders one participant's raw series for a metric around an
// event: the series as a line, the event day as a solid vertical guide, and the
// baseline and pre-event window bounds as dashed guides.
func EventTimeline(ds *study.Dataset, metric string, ev study.Event, w warning.Windows, path string) {
	xys := plotter.XYs{}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, sample := range ds.SeriesOf(metric, ev.PID) {
		if math.IsNaN(sample.Value) {
			continue
		}
		xys = append(xys, plotter.XY{X: sample.Day, Y: sample.Value})
		lo = math.Min(lo, sample.Value)
		hi = math.Max(hi, sample.Value)
	}
	if len(xys) == 0 {
		return
	}
	p := plot.New()
	p.Title.Text = fmt.Sprint(metric, " around event of ", ev.PID)
	p.X.Label.Text = "Days From Transplant"
	p.Y.Label.Text = metric
	line, err := plotter.NewLine(xys)
	if err != nil {
		panic(err)
	}
	line.Color = patientColor
	p.Add(line)
	eventLine, err := plotter.NewLine(verticalGuide(ev.Day, lo, hi))
	if err != nil {
		panic(err)
	}
	eventLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	p.Add(eventLine)
	p.Legend.Add("event day", eventLine)
	for _, bound := range []float64{ev.Day + w.BaseStart, ev.Day + w.BaseEnd, ev.Day + w.PreStart, ev.Day + w.PreEnd} {
		guide, err := plotter.NewLine(verticalGuide(bound, lo, hi))
		if err != nil {
			panic(err)
		}
		guide.Color = caregiverColor
		guide.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(guide)
	}
	p.Legend.Top = true
	if err := p.Save(8*vg.Inch, 4.5*vg.Inch, path); err != nil {
		panic(err)
	}
}

// DeltaHistogram renders the distribution of pre-event drift for one metric
// across all summarized events. A no-op when the metric has no events.
func DeltaHistogram(summaries []*warning.EventSummary, metric string, path string) {
	deltas := plotter.Values{}
	for _, s := range summaries {
		if s.Metric == metric {
			deltas = append(deltas, s.Delta)
		}
	}
	if len(deltas) == 0 {
		return
	}
	p := plot.New()
	p.Title.Text = fmt.Sprint("Pre-event drift: ", metric)
	p.X.Label.Text = "pre mean - baseline mean"
	p.Y.Label.Text = "events"
	hist, err := plotter.NewHist(deltas, 20)
	if err != nil {
		panic(err)
	}
	p.Add(hist)
	if err := p.Save(8*vg.Inch, 4.5*vg.Inch, path); err != nil {
		panic(err)
	}
}
