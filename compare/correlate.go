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

package compare

import (
	"math"

	"hctra/stats"
	"hctra/study"
)

// Same-day correlation screen between physiological and psychological metrics.
// Observations are paired on (participant, day) across the two datasets.

// CorrelationResult is the Pearson correlation of one physiological metric with
// one psychological metric over same-day paired observations.
type CorrelationResult struct {
	PhysMetric  string
	PsychMetric string
	N           int
	R           float64
}

// pairedValues collects same-day (x, y) value pairs of a physiological and a
// psychological metric for one cohort, dropping days where either is missing.
func pairedValues(physio, psych *study.Dataset, physMetric, psychMetric, attribute, label string) ([]float64, []float64) {
	xs := []float64{}
	ys := []float64{}
	for _, pid := range physio.ParticipantIDs() {
		p := physio.Participants[pid]
		if p.GroupLabel(attribute) != label {
			continue
		}
		byDay := map[float64]float64{}
		for _, sample := range psych.SeriesOf(psychMetric, pid) {
			if !math.IsNaN(sample.Value) {
				byDay[sample.Day] = sample.Value
			}
		}
		for _, sample := range physio.SeriesOf(physMetric, pid) {
			if math.IsNaN(sample.Value) {
				continue
			}
			if y, ok := byDay[sample.Day]; ok {
				xs = append(xs, sample.Value)
				ys = append(ys, y)
			}
		}
	}
	return xs, ys
}

// RunCorrelations computes the Pearson correlation for every physiological x
// psychological metric pair over same-day observations of one cohort. Pairs
// with fewer than minN same-day observations are skipped; so are metrics absent
// from either dataset.
func RunCorrelations(physio, psych *study.Dataset, physMetrics, psychMetrics []string, attribute, label string, minN int) []*CorrelationResult {
	results := []*CorrelationResult{}
	for _, pm := range physMetrics {
		if !physio.HasMetric(pm) {
			continue
		}
		for _, qm := range psychMetrics {
			if !psych.HasMetric(qm) {
				continue
			}
			xs, ys := pairedValues(physio, psych, pm, qm, attribute, label)
			if len(xs) < minN {
				continue
			}
			r, ok := stats.PearsonR(xs, ys)
			if !ok {
				continue
			}
			results = append(results, &CorrelationResult{PhysMetric: pm, PsychMetric: qm, N: len(xs), R: r})
		}
	}
	return results
}
