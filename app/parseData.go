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
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"hctra/study"
)

//The hctra program has 3 data inputs, all day-level CSV exports of the study:
//A physiological dataset with wearable-derived metrics (steps, activity, sleep, heart rate).
//A psychological/behavioral dataset with daily mood and PROMIS t-scores.
//An event table with infection anchor days.
//Every observation is keyed by (STUDY_PRTCPT_ID, DaysFromTransplant); the day
//index is relative to the transplant, so it can be negative. Alternatively the
//three inputs can be rebuilt from the raw study export directory.

// Column names of the study export.
const (
	pidColumn      = "STUDY_PRTCPT_ID"
	dayColumn      = "DaysFromTransplant"
	eventDayColumn = "date_culture_drawn" //infections table names the day differently
)

// demoColumns are the demographic columns attached to the day-level datasets.
// They describe the participant, not the day, and are not metrics.
var demoColumns = map[string]bool{
	"age": true, "gender": true, "role": true, "arm": true,
	"monthly_income": true, "cg_hours": true, "transplant_type": true,
}

// adminColumns are bookkeeping columns of the export that are neither
// demographics nor metrics.
var adminColumns = map[string]bool{
	"Group": true, "Timestamp": true,
	"DaysFromTransplant_PROMIS": true, "is_promis_day": true,
}

// parseFloatOrNaN parses a value cell. Anything that does not parse as a number
// is a missing observation, stored as NaN. Missing is never coerced to 0.
func parseFloatOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// readHeader reads the header record and returns a column name -> index map.
// Column names are trimmed because the raw exports carry stray whitespace.
func readHeader(reader *csv.Reader) map[string]int {
	record, err := reader.Read()
	if err != nil {
		panic(err)
	}
	header := map[string]int{}
	for i, name := range record {
		header[strings.TrimSpace(name)] = i
	}
	return header
}

// participantFromRecord builds a participant from the demographic columns of a
// record. Columns absent from the file leave zero values ("" / NaN).
func participantFromRecord(record []string, header map[string]int, pid string) *study.Participant {
	p := &study.Participant{ID: pid, Age: math.NaN()}
	if i, ok := header["role"]; ok {
		p.Role = strings.TrimSpace(record[i])
	}
	if i, ok := header["gender"]; ok {
		p.Gender = strings.TrimSpace(record[i])
	}
	if i, ok := header["transplant_type"]; ok {
		p.TransplantType = strings.TrimSpace(record[i])
	}
	if i, ok := header["arm"]; ok {
		p.Arm = strings.TrimSpace(record[i])
	}
	if i, ok := header["age"]; ok {
		p.Age = parseFloatOrNaN(record[i])
	}
	return p
}

// ParseDayDataset parses a day-level dataset CSV into a Dataset. Every column
// that is not a key, demographic, or bookkeeping column is treated as a metric,
// in file order. Rows without a participant ID or a numeric day index are
// skipped. The sleep_efficiency metric is derived when the export does not
// already carry it.
func ParseDayDataset(file, name string) *study.Dataset {
	fmt.Println("Parsing day-level dataset from file: ", file)
	csvFile, err := os.Open(file)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	reader := csv.NewReader(csvFile)
	header := readHeader(reader)
	pidIdx, ok := header[pidColumn]
	if !ok {
		panic(fmt.Sprint("day-level dataset ", file, " lacks a ", pidColumn, " column"))
	}
	dayIdx, ok := header[dayColumn]
	if !ok {
		panic(fmt.Sprint("day-level dataset ", file, " lacks a ", dayColumn, " column"))
	}
	//metric columns in file order
	metricIdx := make([]int, 0, len(header))
	metricName := map[int]string{}
	for name, i := range header {
		if i == pidIdx || i == dayIdx || demoColumns[name] || adminColumns[name] {
			continue
		}
		metricIdx = append(metricIdx, i)
		metricName[i] = name
	}
	sort.Ints(metricIdx)
	ds := study.NewDataset(name)
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		pid := strings.TrimSpace(record[pidIdx])
		if pid == "" {
			continue
		}
		day := parseFloatOrNaN(record[dayIdx])
		if math.IsNaN(day) {
			continue //skip rows without a usable day index
		}
		ds.AddParticipant(participantFromRecord(record, header, pid))
		for _, i := range metricIdx {
			ds.AddSample(metricName[i], pid, day, parseFloatOrNaN(record[i]))
		}
		rows++
	}
	ds.SortSamples()
	if !ds.HasMetric("sleep_efficiency") {
		ds.AddSleepEfficiency()
	}
	fmt.Println("Parsed ", rows, " day rows for ", len(ds.Participants), " participants and ",
		len(ds.Metrics), " metrics.")
	return ds
}

// ParseEvents parses the infection event table. The day index comes from the
// DaysFromTransplant column, or from date_culture_drawn in the raw export.
// Rows without a numeric day index are skipped.
func ParseEvents(file string) []study.Event {
	fmt.Println("Parsing events from file: ", file)
	csvFile, err := os.Open(file)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	reader := csv.NewReader(csvFile)
	header := readHeader(reader)
	pidIdx, ok := header[pidColumn]
	if !ok {
		panic(fmt.Sprint("event table ", file, " lacks a ", pidColumn, " column"))
	}
	dayIdx, ok := header[dayColumn]
	if !ok {
		if dayIdx, ok = header[eventDayColumn]; !ok {
			panic(fmt.Sprint("event table ", file, " lacks a ", dayColumn, " or ", eventDayColumn, " column"))
		}
	}
	events := []study.Event{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		pid := strings.TrimSpace(record[pidIdx])
		day := parseFloatOrNaN(record[dayIdx])
		if pid == "" || math.IsNaN(day) {
			continue
		}
		events = append(events, study.Event{PID: pid, Day: day})
	}
	fmt.Println("Parsed ", len(events), " events.")
	return events
}

//Rebuilding the day-level datasets from the raw study export. The raw export
//splits the wearable signals over one file per source (steps, activity, two
//sleep exports, heart rate); these are merged into a single physiological
//dataset on (participant, day). Mood and PROMIS form the psychological dataset;
//PROMIS rows carry a named timepoint instead of a day index.

// promisDays maps PROMIS timepoint names to day indices.
var promisDays = map[string]float64{
	"Baseline": 0, "Day30": 30, "Day120": 120,
}

// rawMetrics lists, per raw daily file, the metric columns to merge. Metrics
// repeated across files (time_coverage) are taken from the first file carrying
// them.
var rawMetrics = []struct {
	file    string
	metrics []string
}{
	{"daily_steps.csv", []string{"total_steps", "n_measurements", "time_coverage"}},
	{"daily_activity.csv", []string{"percent_active", "sedentary", "lightly_active",
		"moderately_active", "very_active"}},
	{"sleep_classic.csv", []string{"sleep_duration", "ASLEEP_MIN", "INBED_VALUE"}},
	{"sleep_stages.csv", []string{"DEEP_MIN", "LIGHT_MIN", "REM_MIN", "WAKE_MIN",
		"DEEP_COUNT", "LIGHT_COUNT", "REM_COUNT", "WAKE_COUNT"}},
	{"daily_hr.csv", []string{"mean_hr", "median_hr", "min_hr", "max_hr", "sd_hr",
		"morning_hr", "afternoon_hr", "evening_hr", "night_hr"}},
}

// parseDemographics parses the demographic table into participants keyed by ID.
func parseDemographics(file string) map[string]*study.Participant {
	csvFile, err := os.Open(file)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	reader := csv.NewReader(csvFile)
	header := readHeader(reader)
	pidIdx, ok := header[pidColumn]
	if !ok {
		panic(fmt.Sprint("demographic table ", file, " lacks a ", pidColumn, " column"))
	}
	participants := map[string]*study.Participant{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		pid := strings.TrimSpace(record[pidIdx])
		if pid == "" {
			continue
		}
		if _, ok := participants[pid]; !ok {
			participants[pid] = participantFromRecord(record, header, pid)
		}
	}
	return participants
}

// addRawSamples merges the listed metric columns of one raw daily file into a
// dataset. Metrics already present in the dataset, and metric columns absent
// from the file, are skipped. A missing file is skipped entirely, like an empty
// raw export table.
func addRawSamples(ds *study.Dataset, demographics map[string]*study.Participant, file string, metrics []string) {
	csvFile, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Raw file ", file, " not found; skipped.")
			return
		}
		panic(err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	reader := csv.NewReader(csvFile)
	header := readHeader(reader)
	pidIdx, ok1 := header[pidColumn]
	dayIdx, ok2 := header[dayColumn]
	if !ok1 || !ok2 {
		fmt.Println("Raw file ", file, " lacks the day keys; skipped.")
		return
	}
	cols := []string{}
	for _, m := range metrics {
		if _, ok := header[m]; ok && !ds.HasMetric(m) {
			cols = append(cols, m)
		}
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		pid := strings.TrimSpace(record[pidIdx])
		day := parseFloatOrNaN(record[dayIdx])
		if pid == "" || math.IsNaN(day) {
			continue
		}
		registerParticipant(ds, demographics, pid)
		for _, m := range cols {
			ds.AddSample(m, pid, day, parseFloatOrNaN(record[header[m]]))
		}
	}
}

// addPromisSamples merges the PROMIS t-score columns into the psychological
// dataset. PROMIS rows carry a timepoint name; rows with an unknown timepoint
// are skipped.
func addPromisSamples(ds *study.Dataset, demographics map[string]*study.Participant, file string) {
	csvFile, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Raw file ", file, " not found; skipped.")
			return
		}
		panic(err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	reader := csv.NewReader(csvFile)
	header := readHeader(reader)
	pidIdx, ok1 := header[pidColumn]
	tsIdx, ok2 := header["Timestamp"]
	if !ok1 || !ok2 {
		fmt.Println("Raw file ", file, " lacks the PROMIS keys; skipped.")
		return
	}
	tCols := []string{}
	for name := range header {
		if strings.HasPrefix(name, "t_") {
			tCols = append(tCols, name)
		}
	}
	sortStringsByIndex(tCols, header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		pid := strings.TrimSpace(record[pidIdx])
		day, ok := promisDays[strings.TrimSpace(record[tsIdx])]
		if pid == "" || !ok {
			continue
		}
		registerParticipant(ds, demographics, pid)
		for _, m := range tCols {
			ds.AddSample(m, pid, day, parseFloatOrNaN(record[header[m]]))
		}
	}
}

func registerParticipant(ds *study.Dataset, demographics map[string]*study.Participant, pid string) {
	if p, ok := demographics[pid]; ok {
		ds.AddParticipant(p)
	} else {
		ds.AddParticipant(&study.Participant{ID: pid, Age: math.NaN()})
	}
}

// BuildDayDatasets rebuilds the physiological dataset, the psychological
// dataset, and the infection event table from a raw study export directory.
func BuildDayDatasets(rawDir string) (physio, psych *study.Dataset, events []study.Event) {
	fmt.Println("Building day-level datasets from raw directory: ", rawDir)
	demographics := parseDemographics(filepath.Join(rawDir, "demographic_data.csv"))
	physio = study.NewDataset("physiological")
	for _, raw := range rawMetrics {
		addRawSamples(physio, demographics, filepath.Join(rawDir, raw.file), raw.metrics)
	}
	physio.SortSamples()
	physio.AddSleepEfficiency()
	psych = study.NewDataset("psych_behavioral")
	addRawSamples(psych, demographics, filepath.Join(rawDir, "mood.csv"), moodMetrics(filepath.Join(rawDir, "mood.csv")))
	addPromisSamples(psych, demographics, filepath.Join(rawDir, "PROMIS_tscore.csv"))
	psych.SortSamples()
	events = ParseEvents(filepath.Join(rawDir, "infections.csv"))
	fmt.Println("Built physiological dataset with ", len(physio.Metrics), " metrics and ",
		len(physio.Participants), " participants.")
	fmt.Println("Built psychological dataset with ", len(psych.Metrics), " metrics and ",
		len(psych.Participants), " participants.")
	return physio, psych, events
}

// moodMetrics reads the mood file header and returns every non-key,
// non-demographic column as a metric. The mood export has no fixed column list.
func moodMetrics(file string) []string {
	csvFile, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		panic(err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	header := readHeader(csv.NewReader(csvFile))
	metrics := []string{}
	for name := range header {
		if name == pidColumn || name == dayColumn || demoColumns[name] || adminColumns[name] {
			continue
		}
		metrics = append(metrics, name)
	}
	sortStringsByIndex(metrics, header)
	return metrics
}

// sortStringsByIndex orders column names by their position in the header, so
// metric order follows file order rather than map iteration order.
func sortStringsByIndex(names []string, header map[string]int) {
	sort.Slice(names, func(i, j int) bool {
		return header[names[i]] < header[names[j]]
	})
}
