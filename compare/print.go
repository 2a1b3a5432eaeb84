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
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
)

// Writing result tables to CSV files for the external plotting/reporting step.

// formatFloat renders a value for the result tables, with NA for absent values.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteResults saves a corrected batch of comparison results as a flat CSV
// table, one row per metric tested.
func WriteResults(results []*Result, path string) {
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
	header := []string{"metric", "group_col", "group1", "group2", "n1", "n2", "mean1", "sd1", "mean2", "sd2",
		"t_stat", "p_value", "cohens_d", "p_adj_fdr", "reject_fdr"}
	if err := writer.Write(header); err != nil {
		panic(err)
	}
	for _, r := range results {
		tStat := math.NaN()
		pValue := math.NaN()
		if r.TestOK {
			tStat = r.TStat
			pValue = r.PValue
		}
		effect := math.NaN()
		if r.EffectOK {
			effect = r.EffectSize
		}
		record := []string{
			r.Metric, r.Attribute, r.LabelA, r.LabelB,
			strconv.Itoa(r.NA), strconv.Itoa(r.NB),
			formatFloat(r.MeanA), formatFloat(r.SDA),
			formatFloat(r.MeanB), formatFloat(r.SDB),
			formatFloat(tStat), formatFloat(pValue), formatFloat(effect),
			formatFloat(r.AdjustedP), fmt.Sprint(r.Significant),
		}
		if err := writer.Write(record); err != nil {
			panic(err)
		}
	}
}

// WriteCorrelations saves a correlation screen as a CSV table.
func WriteCorrelations(results []*CorrelationResult, path string) {
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
	if err := writer.Write([]string{"x_phys", "y_psych", "n", "r"}); err != nil {
		panic(err)
	}
	for _, r := range results {
		record := []string{r.PhysMetric, r.PsychMetric, strconv.Itoa(r.N), formatFloat(r.R)}
		if err := writer.Write(record); err != nil {
			panic(err)
		}
	}
}
