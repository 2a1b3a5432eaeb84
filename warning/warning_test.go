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
	"math"
	"testing"

	"hctra/study"
)

// makeEventDataset builds one participant with a stable baseline around day
// [-30,-14] relative to the event at day 40 and a clear drop in [-7,-1].
func makeEventDataset() (*study.Dataset, []study.Event) {
	ds := study.NewDataset("test")
	ds.AddParticipant(&study.Participant{ID: "P1", Role: "Patients"})
	baseline := []float64{100, 102, 98, 101, 99}
	for i, v := range baseline {
		// days 10..14 fall in the baseline window [10, 26] of an event at day 40
		ds.AddSample("hr", "P1", float64(10+i), v)
	}
	pre := []float64{80, 82, 78}
	for i, v := range pre {
		// days 33..35 fall in the pre window [33, 39]
		ds.AddSample("hr", "P1", float64(33+i), v)
	}
	ds.SortSamples()
	return ds, []study.Event{{PID: "P1", Day: 40}}
}

func TestSummarizeEventsFlagsDrop(t *testing.T) {
	ds, events := makeEventDataset()
	summaries, err := SummarizeEvents(ds, events, []string{"hr"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	if math.Abs(s.BaselineMean-100.0) > 1e-12 {
		t.Errorf("baseline mean: got %v, want 100", s.BaselineMean)
	}
	if math.Abs(s.PreMean-80.0) > 1e-12 {
		t.Errorf("pre mean: got %v, want 80", s.PreMean)
	}
	if math.Abs(s.Delta-(-20.0)) > 1e-12 {
		t.Errorf("delta: got %v, want -20", s.Delta)
	}
	if !s.PctOK || math.Abs(s.PctChange-(-0.20)) > 1e-12 {
		t.Errorf("pct change: got %v (ok=%v), want -0.2", s.PctChange, s.PctOK)
	}
	// baseline sd is sqrt(2.5), so the drop is about -12.65 baseline sds
	if !s.SDOK || math.Abs(s.SDChange-(-20.0/math.Sqrt(2.5))) > 1e-9 {
		t.Errorf("sd change: got %v (ok=%v)", s.SDChange, s.SDOK)
	}
	if !s.WarnPct || !s.WarnSD {
		t.Errorf("expected both warning flags, got pct=%v sd=%v", s.WarnPct, s.WarnSD)
	}
}

func TestThresholdEqualityFlags(t *testing.T) {
	// a drop exactly at the threshold must flag; comparison is inclusive
	ds := study.NewDataset("test")
	ds.AddParticipant(&study.Participant{ID: "P1"})
	ds.AddSample("m", "P1", 10, 99)
	ds.AddSample("m", "P1", 11, 101)
	ds.AddSample("m", "P1", 34, 84)
	ds.AddSample("m", "P1", 35, 86)
	ds.SortSamples()
	cfg := DefaultConfig()
	summaries, err := SummarizeEvents(ds, []study.Event{{PID: "P1", Day: 40}}, []string{"m"}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	// baseline mean 100, pre mean 85: pct change exactly -0.15
	if math.Abs(s.PctChange-cfg.Thresholds.PctDrop) > 1e-12 {
		t.Fatalf("pct change: got %v, want exactly %v", s.PctChange, cfg.Thresholds.PctDrop)
	}
	if !s.WarnPct {
		t.Error("expected a flag at exact threshold equality")
	}
}

func TestInsufficientWindowSkipsEvent(t *testing.T) {
	ds := study.NewDataset("test")
	ds.AddParticipant(&study.Participant{ID: "P1"})
	// one baseline value only
	ds.AddSample("m", "P1", 12, 100)
	ds.AddSample("m", "P1", 34, 80)
	ds.AddSample("m", "P1", 35, 82)
	ds.SortSamples()
	summaries, err := SummarizeEvents(ds, []study.Event{{PID: "P1", Day: 40}}, []string{"m"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d summaries for a 1-value baseline, want 0", len(summaries))
	}
}

func TestZeroBaselineMeanLeavesPctAbsent(t *testing.T) {
	ds := study.NewDataset("test")
	ds.AddParticipant(&study.Participant{ID: "P1"})
	ds.AddSample("m", "P1", 12, -1)
	ds.AddSample("m", "P1", 13, 1)
	ds.AddSample("m", "P1", 34, -5)
	ds.AddSample("m", "P1", 35, -3)
	ds.SortSamples()
	summaries, err := SummarizeEvents(ds, []study.Event{{PID: "P1", Day: 40}}, []string{"m"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	if s.PctOK || s.WarnPct {
		t.Error("pct change must be absent and unflagged for a zero baseline mean")
	}
	// the sd criterion still applies
	if !s.SDOK || !s.WarnSD {
		t.Errorf("sd criterion: got ok=%v warn=%v, want a flagged drop", s.SDOK, s.WarnSD)
	}
}

func TestValidateWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows.PreStart = -1
	cfg.Windows.PreEnd = -7
	if _, err := SummarizeEvents(study.NewDataset("t"), nil, nil, cfg); err == nil {
		t.Error("expected an error for an inverted pre window")
	}
	cfg = DefaultConfig()
	cfg.MinSamples = 1
	if _, err := SummarizeEvents(study.NewDataset("t"), nil, nil, cfg); err == nil {
		t.Error("expected an error for minimum window size 1")
	}
}

func TestFirstSummaryForSkipsUnusableEvents(t *testing.T) {
	ds, events := makeEventDataset()
	// a participant with an event but no data for the metric comes first
	ds.AddParticipant(&study.Participant{ID: "P0"})
	events = append([]study.Event{{PID: "P0", Day: 40}}, events...)
	summaries, err := SummarizeEvents(ds, events, []string{"hr"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s := FirstSummaryFor(summaries, "hr")
	if s == nil {
		t.Fatal("expected a summary for the metric")
	}
	// the dataless first event must not be picked
	if s.PID != "P1" || s.EventDay != 40 {
		t.Errorf("first summary: got %s at day %v, want P1 at day 40", s.PID, s.EventDay)
	}
	if FirstSummaryFor(summaries, "absent") != nil {
		t.Error("expected nil for a metric without summarized events")
	}
}

func TestBuildOverview(t *testing.T) {
	ds, events := makeEventDataset()
	// second event for the same participant with no usable windows
	events = append(events, study.Event{PID: "P1", Day: 200})
	overview, err := Analyze(ds, events, []string{"hr"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(overview) != 1 {
		t.Fatalf("got %d overview rows, want 1", len(overview))
	}
	o := overview[0]
	if o.NofEvents != 1 {
		t.Errorf("event count: got %d, want 1 (unusable event skipped)", o.NofEvents)
	}
	if math.Abs(o.SharePct-1.0) > 1e-12 || math.Abs(o.ShareSD-1.0) > 1e-12 {
		t.Errorf("flag shares: got %v and %v, want 1 and 1", o.SharePct, o.ShareSD)
	}
	if math.Abs(o.MeanDelta-(-20.0)) > 1e-12 {
		t.Errorf("mean delta: got %v, want -20", o.MeanDelta)
	}
}

func TestOverviewExcludesAbsentChangesFromMeans(t *testing.T) {
	ds := study.NewDataset("test")
	ds.AddParticipant(&study.Participant{ID: "P1"})
	// event A: zero baseline mean, pct change absent
	ds.AddSample("m", "P1", 12, -1)
	ds.AddSample("m", "P1", 13, 1)
	ds.AddSample("m", "P1", 34, -2)
	ds.AddSample("m", "P1", 35, -2)
	// event B: normal baseline around day 140
	ds.AddSample("m", "P1", 112, 10)
	ds.AddSample("m", "P1", 113, 10)
	ds.AddSample("m", "P1", 134, 8)
	ds.AddSample("m", "P1", 135, 8)
	ds.SortSamples()
	events := []study.Event{{PID: "P1", Day: 40}, {PID: "P1", Day: 140}}
	summaries, err := SummarizeEvents(ds, events, []string{"m"}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	overview := BuildOverview(summaries, []string{"m"})
	if len(overview) != 1 || overview[0].NofEvents != 2 {
		t.Fatalf("overview: got %+v", overview)
	}
	// only event B contributes a pct change: (8-10)/10 = -0.2
	if math.Abs(overview[0].MeanPctChange-(-0.2)) > 1e-12 {
		t.Errorf("mean pct change: got %v, want -0.2 from the single defined change", overview[0].MeanPctChange)
	}
}
