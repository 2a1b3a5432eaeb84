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

package study

import (
	"math"
	"sort"
)

// Daily aggregation of a metric across a cohort, for recovery trajectory
// curves: per-day mean with per-day sample counts, smoothed with a centered
// moving average.

// DailyPoint is the aggregate of one metric over all selected participants on
// one day: the mean value and the number of non-missing observations.
type DailyPoint struct {
	Day  float64
	Mean float64
	N    int
}

// DailyMeans aggregates a metric by day over the participants passing the given
// filter. Days with fewer than minN non-missing observations are dropped, to
// avoid distortion from tiny daily samples. The result is ordered by day.
func DailyMeans(ds *Dataset, metric string, filter ParticipantFilter, minN int) []DailyPoint {
	sums := map[float64]float64{}
	counts := map[float64]int{}
	series, ok := ds.Values[metric]
	if !ok {
		return []DailyPoint{}
	}
	for _, pid := range ds.ParticipantIDs() {
		if filter != nil && !filter(ds.Participants[pid]) {
			continue
		}
		for _, sample := range series[pid] {
			if math.IsNaN(sample.Value) {
				continue
			}
			sums[sample.Day] = sums[sample.Day] + sample.Value
			counts[sample.Day] = counts[sample.Day] + 1
		}
	}
	days := make([]float64, 0, len(sums))
	for day := range sums {
		days = append(days, day)
	}
	sort.Float64s(days)
	points := []DailyPoint{}
	for _, day := range days {
		if counts[day] < minN {
			continue
		}
		points = append(points, DailyPoint{Day: day, Mean: sums[day] / float64(counts[day]), N: counts[day]})
	}
	return points
}

// MovingAverage smooths the daily means with a centered moving average over
// window points. Positions where fewer than minPoints values are available get
// NaN instead of a forced average. The result is aligned with the input.
func MovingAverage(points []DailyPoint, window, minPoints int) []float64 {
	half := window / 2
	smoothed := make([]float64, len(points))
	for i := range points {
		lo := i - half
		hi := i + half
		if lo < 0 {
			lo = 0
		}
		if hi > len(points)-1 {
			hi = len(points) - 1
		}
		sum := 0.0
		ctr := 0
		for j := lo; j <= hi; j++ {
			sum = sum + points[j].Mean
			ctr++
		}
		if ctr < minPoints {
			smoothed[i] = math.NaN()
		} else {
			smoothed[i] = sum / float64(ctr)
		}
	}
	return smoothed
}
