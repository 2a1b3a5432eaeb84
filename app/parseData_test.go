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
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDayDataset(t *testing.T) {
	dir := t.TempDir()
	file := writeTestFile(t, dir, "physio.csv",
		"STUDY_PRTCPT_ID,DaysFromTransplant,total_steps,mean_hr,Group,role,gender,age\n"+
			"P1,0,1000,70,A,Patients,Male,54\n"+
			"P1,1,,72,A,Patients,Male,54\n"+
			"C1,0,5000,65,A,Caregivers,Female,51\n"+
			"C1,abc,4000,66,A,Caregivers,Female,51\n")
	ds := ParseDayDataset(file, "physiological")
	if len(ds.Participants) != 2 {
		t.Errorf("participants: got %d, want 2", len(ds.Participants))
	}
	// Group is bookkeeping, role/gender/age are demographics; neither is a metric
	if ds.HasMetric("Group") || ds.HasMetric("role") || ds.HasMetric("age") {
		t.Errorf("non-metric columns leaked into metrics: %v", ds.Metrics)
	}
	if len(ds.Metrics) != 2 {
		t.Errorf("metrics: got %v, want total_steps and mean_hr", ds.Metrics)
	}
	p1 := ds.Participants["P1"]
	if p1.Role != "Patients" || p1.Gender != "Male" || p1.Age != 54 {
		t.Errorf("demographics: got %+v", p1)
	}
	// the empty total_steps cell is a missing observation, not zero
	series := ds.SeriesOf("total_steps", "P1")
	if len(series) != 2 || !math.IsNaN(series[1].Value) {
		t.Errorf("missing cell: got %v, want NaN on day 1", series)
	}
	// the row with a non-numeric day index is skipped entirely
	if got := len(ds.SeriesOf("total_steps", "C1")); got != 1 {
		t.Errorf("bad day row: got %d samples for C1, want 1", got)
	}
}

func TestParseDayDatasetDerivesSleepEfficiency(t *testing.T) {
	dir := t.TempDir()
	file := writeTestFile(t, dir, "sleep.csv",
		"STUDY_PRTCPT_ID,DaysFromTransplant,ASLEEP_MIN,INBED_VALUE,role\n"+
			"P1,0,400,500,Patients\n")
	ds := ParseDayDataset(file, "physiological")
	series := ds.SeriesOf("sleep_efficiency", "P1")
	if len(series) != 1 || math.Abs(series[0].Value-0.8) > 1e-12 {
		t.Errorf("sleep efficiency: got %v, want one sample of 0.8", series)
	}
}

func TestParseEvents(t *testing.T) {
	dir := t.TempDir()
	file := writeTestFile(t, dir, "events.csv",
		"STUDY_PRTCPT_ID,date_culture_drawn,organism\n"+
			"P1,35,E. coli\n"+
			"P2,,S. aureus\n"+
			"P3,-4,E. coli\n")
	events := ParseEvents(file)
	if len(events) != 2 {
		t.Fatalf("events: got %d, want 2 (row without a day skipped)", len(events))
	}
	if events[0].PID != "P1" || events[0].Day != 35 {
		t.Errorf("first event: got %+v", events[0])
	}
	if events[1].Day != -4 {
		t.Errorf("negative day index: got %v, want -4", events[1].Day)
	}
}

func TestBuildDayDatasets(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "demographic_data.csv",
		"STUDY_PRTCPT_ID,age,gender,role,arm,transplant_type\n"+
			"P1,54,Male,Patients,1,Allogeneic\n"+
			"C1,51,Female,Caregivers,1,\n")
	writeTestFile(t, dir, "daily_steps.csv",
		"STUDY_PRTCPT_ID,DaysFromTransplant,total_steps,n_measurements,time_coverage,Group\n"+
			"P1,0,1000,12,0.9,A\n"+
			"C1,0,5000,12,0.9,A\n")
	writeTestFile(t, dir, "daily_hr.csv",
		"STUDY_PRTCPT_ID,DaysFromTransplant,mean_hr,sd_hr,time_coverage\n"+
			"P1,0,70,5,0.8\n")
	writeTestFile(t, dir, "sleep_classic.csv",
		"STUDY_PRTCPT_ID,DaysFromTransplant,sleep_duration,ASLEEP_MIN,INBED_VALUE\n"+
			"P1,0,480,400,500\n")
	writeTestFile(t, dir, "mood.csv",
		"STUDY_PRTCPT_ID,DaysFromTransplant,MOOD,Group\n"+
			"P1,0,7,A\n")
	writeTestFile(t, dir, "PROMIS_tscore.csv",
		"STUDY_PRTCPT_ID,Group,Timestamp,t_anxiety,t_fatigue\n"+
			"P1,A,Baseline,55,60\n"+
			"P1,A,Day30,50,58\n"+
			"P1,A,Unscheduled,49,57\n")
	writeTestFile(t, dir, "infections.csv",
		"STUDY_PRTCPT_ID,date_culture_drawn\n"+
			"P1,35\n")
	physio, psych, events := BuildDayDatasets(dir)
	// time_coverage comes from the first file carrying it
	if !physio.HasMetric("total_steps") || !physio.HasMetric("mean_hr") || !physio.HasMetric("time_coverage") {
		t.Errorf("physio metrics: got %v", physio.Metrics)
	}
	if !physio.HasMetric("sleep_efficiency") {
		t.Error("expected derived sleep_efficiency metric")
	}
	if physio.Participants["P1"].Role != "Patients" {
		t.Errorf("demographics not attached: %+v", physio.Participants["P1"])
	}
	if !psych.HasMetric("MOOD") || !psych.HasMetric("t_anxiety") {
		t.Errorf("psych metrics: got %v", psych.Metrics)
	}
	// PROMIS timepoints map to day indices; unknown timepoints are skipped
	anxiety := psych.SeriesOf("t_anxiety", "P1")
	if len(anxiety) != 2 || anxiety[0].Day != 0 || anxiety[1].Day != 30 {
		t.Errorf("promis series: got %v", anxiety)
	}
	if len(events) != 1 || events[0].Day != 35 {
		t.Errorf("events: got %v", events)
	}
	// a missing raw file is tolerated
	if physio.HasMetric("percent_active") {
		t.Error("metrics from an absent raw file must not appear")
	}
}
