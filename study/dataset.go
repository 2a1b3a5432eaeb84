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

// Grouping attributes known to the day-level datasets.
const (
	RoleAttribute           = "role"
	GenderAttribute         = "gender"
	TransplantTypeAttribute = "transplant_type"
	ArmAttribute            = "arm"
)

// Participant represents the demographic information of a study participant.
type Participant struct {
	ID             string  //participant ID from the study export
	Role           string  //"Patients" or "Caregivers"
	Gender         string  //"Male" or "Female"
	TransplantType string  //e.g. allogeneic or autologous
	Arm            string  //study arm
	Age            float64 //age in years, NaN when unknown
}

// GroupLabel returns the value of a named categorical grouping attribute for a
// participant, or "" when the attribute is unknown.
func (p *Participant) GroupLabel(attribute string) string {
	switch attribute {
	case RoleAttribute:
		return p.Role
	case GenderAttribute:
		return p.Gender
	case TransplantTypeAttribute:
		return p.TransplantType
	case ArmAttribute:
		return p.Arm
	default:
		return ""
	}
}

// Sample is one observation of a metric for a participant on a day relative to
// transplant. The day index may be negative or fractional; a missing
// observation is stored as NaN.
type Sample struct {
	Day   float64
	Value float64
}

// Series is a participant's observations for one metric, ordered by day. Day
// indices need not be contiguous.
type Series []Sample

// Event is a single clinical anchor point, e.g. an infection date, expressed in
// the same day-index space as the observations.
type Event struct {
	PID string
	Day float64
}

// Dataset is a day-level dataset: participants with demographic attributes and
// per-metric, per-participant observation series.
type Dataset struct {
	Name         string
	Participants map[string]*Participant
	Metrics      []string                     //metric column names in input order
	Values       map[string]map[string]Series //metric -> participant -> series
}

// NewDataset creates an empty day-level dataset.
func NewDataset(name string) *Dataset {
	return &Dataset{
		Name:         name,
		Participants: map[string]*Participant{},
		Metrics:      []string{},
		Values:       map[string]map[string]Series{},
	}
}

// AddParticipant registers a participant, unless a participant with the same ID
// was already registered.
func (ds *Dataset) AddParticipant(p *Participant) {
	if _, ok := ds.Participants[p.ID]; !ok {
		ds.Participants[p.ID] = p
	}
}

// AddSample appends one observation for a metric and participant. Metrics are
// registered in the order they first appear.
func (ds *Dataset) AddSample(metric, pid string, day, value float64) {
	series, ok := ds.Values[metric]
	if !ok {
		series = map[string]Series{}
		ds.Values[metric] = series
		ds.Metrics = append(ds.Metrics, metric)
	}
	series[pid] = append(series[pid], Sample{Day: day, Value: value})
}

// SortSamples orders every series by day. Must be called once after loading and
// before any window or aggregation query.
func (ds *Dataset) SortSamples() {
	for _, series := range ds.Values {
		for _, s := range series {
			sort.SliceStable(s, func(i, j int) bool {
				return s[i].Day < s[j].Day
			})
		}
	}
}

// HasMetric reports whether a metric column is present in the dataset.
func (ds *Dataset) HasMetric(metric string) bool {
	_, ok := ds.Values[metric]
	return ok
}

// ParticipantIDs returns the participant IDs in sorted order, so that derived
// value vectors are deterministic regardless of map iteration order.
func (ds *Dataset) ParticipantIDs() []string {
	ids := make([]string, 0, len(ds.Participants))
	for id := range ds.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SeriesOf returns a participant's series for a metric, or nil when absent.
func (ds *Dataset) SeriesOf(metric, pid string) Series {
	series, ok := ds.Values[metric]
	if !ok {
		return nil
	}
	return series[pid]
}

// CohortValues collects the non-missing values of a metric for the cohort of
// participants whose grouping attribute equals the given label. Cohorts are
// derived views; membership is re-evaluated on every call.
func (ds *Dataset) CohortValues(metric, attribute, label string) []float64 {
	values := []float64{}
	series, ok := ds.Values[metric]
	if !ok {
		return values
	}
	for _, pid := range ds.ParticipantIDs() {
		p := ds.Participants[pid]
		if p.GroupLabel(attribute) != label {
			continue
		}
		for _, sample := range series[pid] {
			if !math.IsNaN(sample.Value) {
				values = append(values, sample.Value)
			}
		}
	}
	return values
}

// WindowValues collects the non-missing values of a participant's metric series
// whose day index falls within [lo, hi].
func (ds *Dataset) WindowValues(metric, pid string, lo, hi float64) []float64 {
	values := []float64{}
	for _, sample := range ds.SeriesOf(metric, pid) {
		if sample.Day < lo || sample.Day > hi {
			continue
		}
		if !math.IsNaN(sample.Value) {
			values = append(values, sample.Value)
		}
	}
	return values
}

// AddSleepEfficiency derives the sleep_efficiency metric as
// ASLEEP_MIN / INBED_VALUE on days where both are observed and the time in bed
// is non-zero. A no-op when either source column is absent.
func (ds *Dataset) AddSleepEfficiency() {
	asleep, ok1 := ds.Values["ASLEEP_MIN"]
	inbed, ok2 := ds.Values["INBED_VALUE"]
	if !ok1 || !ok2 {
		return
	}
	for _, pid := range ds.ParticipantIDs() {
		inbedByDay := map[float64]float64{}
		for _, sample := range inbed[pid] {
			inbedByDay[sample.Day] = sample.Value
		}
		for _, sample := range asleep[pid] {
			total, ok := inbedByDay[sample.Day]
			if !ok || math.IsNaN(sample.Value) || math.IsNaN(total) || total == 0.0 {
				continue
			}
			ds.AddSample("sleep_efficiency", pid, sample.Day, sample.Value/total)
		}
	}
}
