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
	"testing"

	"hctra/study"
)

var patientsVsCaregivers = Contrast{
	Attribute: study.RoleAttribute, LabelA: "Patients", LabelB: "Caregivers",
}

// makeComparisonDataset builds a dataset with one well separated metric, one
// metric with too few caregiver values, and one metric with missing values.
func makeComparisonDataset() *study.Dataset {
	ds := study.NewDataset("test")
	ds.AddParticipant(&study.Participant{ID: "P1", Role: "Patients"})
	ds.AddParticipant(&study.Participant{ID: "C1", Role: "Caregivers"})
	patientSteps := []float64{10, 12, 11, 13, 9}
	caregiverSteps := []float64{5, 6, 4, 7, 5}
	for i := range patientSteps {
		ds.AddSample("steps", "P1", float64(i), patientSteps[i])
		ds.AddSample("steps", "C1", float64(i), caregiverSteps[i])
	}
	// too few caregiver observations: must be skipped, not reported
	ds.AddSample("sparse", "P1", 0, 1)
	ds.AddSample("sparse", "P1", 1, 2)
	ds.AddSample("sparse", "C1", 0, 3)
	// missing values must be dropped before counting
	ds.AddSample("gappy", "P1", 0, 1)
	ds.AddSample("gappy", "P1", 1, math.NaN())
	ds.AddSample("gappy", "P1", 2, 2)
	ds.AddSample("gappy", "C1", 0, 3)
	ds.AddSample("gappy", "C1", 1, 4)
	ds.SortSamples()
	return ds
}

func TestRunComparesSeparatedGroups(t *testing.T) {
	ds := makeComparisonDataset()
	results, err := Run(ds, []string{"steps"}, patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.NA != 5 || r.NB != 5 {
		t.Errorf("cohort sizes: got %d and %d, want 5 and 5", r.NA, r.NB)
	}
	if math.Abs(r.MeanA-11.0) > 1e-12 || math.Abs(r.MeanB-5.4) > 1e-12 {
		t.Errorf("cohort means: got %v and %v, want 11 and 5.4", r.MeanA, r.MeanB)
	}
	if !r.TestOK || r.PValue >= 0.01 {
		t.Errorf("test: ok=%v p=%v, want a computable p < 0.01", r.TestOK, r.PValue)
	}
	if !r.EffectOK || r.EffectSize <= 2.0 {
		t.Errorf("effect: ok=%v d=%v, want a large positive effect", r.EffectOK, r.EffectSize)
	}
	if !r.Significant {
		t.Error("expected rejection after correction for a single strong test")
	}
}

func TestRunSkipsUncomputableMetrics(t *testing.T) {
	ds := makeComparisonDataset()
	results, err := Run(ds, []string{"steps", "sparse", "absent"}, patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	// sparse has one caregiver value, absent is not a column; neither gets a row
	if len(results) != 1 || results[0].Metric != "steps" {
		t.Errorf("got %d results, want only the steps row", len(results))
	}
}

func TestRunDropsMissingBeforeCounting(t *testing.T) {
	ds := makeComparisonDataset()
	results, err := Run(ds, []string{"gappy"}, patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].NA != 2 || results[0].NB != 2 {
		t.Errorf("cohort sizes: got %d and %d, want 2 and 2 after dropping NaN", results[0].NA, results[0].NB)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	ds := makeComparisonDataset()
	if _, err := Run(ds, []string{"steps"}, patientsVsCaregivers, Config{Alpha: 0, MinSamples: 2}); err == nil {
		t.Error("expected an error for alpha 0")
	}
	if _, err := Run(ds, []string{"steps"}, patientsVsCaregivers, Config{Alpha: 0.05, MinSamples: 1}); err == nil {
		t.Error("expected an error for minimum cohort size 1")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ds := makeComparisonDataset()
	metrics := []string{"steps", "gappy"}
	first, err := Run(ds, metrics, patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(ds, metrics, patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Metric != second[i].Metric ||
			first[i].TStat != second[i].TStat ||
			first[i].AdjustedP != second[i].AdjustedP {
			t.Errorf("row %d differs between identical runs", i)
		}
	}
}

func TestBatchCorrectionSpansDatasets(t *testing.T) {
	ds := makeComparisonDataset()
	batch, err := NewBatch(patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	batch.Add(ds, []string{"steps"})
	batch.Add(ds, []string{"gappy"})
	results := batch.Correct()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// both tests belong to one correction family: the strong test's adjusted
	// p-value reflects a batch of two, not a batch of one
	if math.IsNaN(results[0].AdjustedP) {
		t.Error("expected an adjusted p-value for the first test")
	}
}

func TestBatchSealsAfterCorrect(t *testing.T) {
	ds := makeComparisonDataset()
	batch, err := NewBatch(patientsVsCaregivers, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	batch.Add(ds, []string{"steps"})
	batch.Correct()
	defer func() {
		if recover() == nil {
			t.Error("expected a panic when adding to a corrected batch")
		}
	}()
	batch.Add(ds, []string{"gappy"})
}

func TestRunCorrelations(t *testing.T) {
	physio := study.NewDataset("physio")
	psych := study.NewDataset("psych")
	p := &study.Participant{ID: "P1", Role: "Patients"}
	physio.AddParticipant(p)
	psych.AddParticipant(p)
	for day := 0; day < 25; day++ {
		physio.AddSample("steps", "P1", float64(day), float64(day))
		psych.AddSample("MOOD", "P1", float64(day), float64(2*day))
	}
	// a day present in only one dataset must not pair
	physio.AddSample("steps", "P1", 100, 42)
	physio.SortSamples()
	psych.SortSamples()
	results := RunCorrelations(physio, psych, []string{"steps"}, []string{"MOOD"},
		study.RoleAttribute, "Patients", 20)
	if len(results) != 1 {
		t.Fatalf("got %d correlations, want 1", len(results))
	}
	if results[0].N != 25 {
		t.Errorf("pair count: got %d, want 25", results[0].N)
	}
	if math.Abs(results[0].R-1.0) > 1e-12 {
		t.Errorf("correlation: got %v, want 1", results[0].R)
	}
	// below the pair threshold nothing is reported
	short := RunCorrelations(physio, psych, []string{"steps"}, []string{"MOOD"},
		study.RoleAttribute, "Patients", 50)
	if len(short) != 0 {
		t.Errorf("got %d correlations below the threshold, want 0", len(short))
	}
}
