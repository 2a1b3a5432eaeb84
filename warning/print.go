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

package warning

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteOverview saves the per-metric early warning overview as a CSV table.
func WriteOverview(overview []*Overview, path string) {
	file, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(err)
		}
	}()
	writer := csv.NewWriter(file)
	defer writer.Flush()
	header := []string{"metric", "n_events", "share_events_flagged_by_pct", "share_events_flagged_by_sd",
		"delta_pre_minus_base", "pct_change", "sd_change"}
	if err := writer.Write(header); err != nil {
		panic(err)
	}
	for _, o := range overview {
		record := []string{
			o.Metric, strconv.Itoa(o.NofEvents),
			formatFloat(o.SharePct), formatFloat(o.ShareSD),
			formatFloat(o.MeanDelta), formatFloat(o.MeanPctChange), formatFloat(o.MeanSDChange),
		}
		if err := writer.Write(record); err != nil {
			panic(err)
		}
	}
}

// WriteEventSummaries saves the per-event drift rows as a CSV table, for
// inspection of individual events behind the overview.
func WriteEventSummaries(summaries []*EventSummary, path string) {
	file, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(err)
		}
	}()
	writer := csv.NewWriter(file)
	defer writer.Flush()
	header := []string{"participant", "event_day", "metric", "baseline_mean", "baseline_sd", "pre_mean",
		"delta_pre_minus_base", "pct_change", "sd_change", "warn_pct", "warn_sd"}
	if err := writer.Write(header); err != nil {
		panic(err)
	}
	for _, s := range summaries {
		pct := math.NaN()
		if s.PctOK {
			pct = s.PctChange
		}
		sd := math.NaN()
		if s.SDOK {
			sd = s.SDChange
		}
		record := []string{
			s.PID, formatFloat(s.EventDay), s.Metric,
			formatFloat(s.BaselineMean), formatFloat(s.BaselineSD), formatFloat(s.PreMean),
			formatFloat(s.Delta), formatFloat(pct), formatFloat(sd),
			strconv.FormatBool(s.WarnPct), strconv.FormatBool(s.WarnSD),
		}
		if err := writer.Write(record); err != nil {
			panic(err)
		}
	}
}
