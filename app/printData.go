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

package app

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"hctra/study"
)

// Saving built day-level datasets back to CSV, so a rebuilt dataset can be fed
// into later runs without the raw export.

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveDayDataset writes a dataset as a day-level CSV with one row per
// (participant, day) carrying every metric and the demographic columns. Missing
// observations are written as empty cells.
func SaveDayDataset(ds *study.Dataset, path string) {
	fmt.Println("Saving day-level dataset to file: ", path)
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
	header := []string{pidColumn, dayColumn}
	header = append(header, ds.Metrics...)
	header = append(header, "role", "gender", "transplant_type", "arm", "age")
	if err := writer.Write(header); err != nil {
		panic(err)
	}
	for _, pid := range ds.ParticipantIDs() {
		p := ds.Participants[pid]
		//union of days over all metrics of this participant
		byDay := map[float64]map[string]float64{}
		for _, metric := range ds.Metrics {
			for _, sample := range ds.SeriesOf(metric, pid) {
				row, ok := byDay[sample.Day]
				if !ok {
					row = map[string]float64{}
					byDay[sample.Day] = row
				}
				if !math.IsNaN(sample.Value) {
					row[metric] = sample.Value
				}
			}
		}
		days := make([]float64, 0, len(byDay))
		for day := range byDay {
			days = append(days, day)
		}
		sort.Float64s(days)
		for _, day := range days {
			record := []string{pid, formatCell(day)}
			for _, metric := range ds.Metrics {
				if v, ok := byDay[day][metric]; ok {
					record = append(record, formatCell(v))
				} else {
					record = append(record, "")
				}
			}
			record = append(record, p.Role, p.Gender, p.TransplantType, p.Arm, formatCell(p.Age))
			if err := writer.Write(record); err != nil {
				panic(err)
			}
		}
	}
}

// SaveEvents writes an event table as a CSV with the standardized day column.
func SaveEvents(events []study.Event, path string) {
	fmt.Println("Saving events to file: ", path)
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
	if err := writer.Write([]string{pidColumn, dayColumn}); err != nil {
		panic(err)
	}
	for _, ev := range events {
		if err := writer.Write([]string{ev.PID, formatCell(ev.Day)}); err != nil {
			panic(err)
		}
	}
}
