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

// ParticipantFilter prescribes a function type for implementing filters on
// study participants, to be able to restrict an analysis to specific cohorts.
// E.g. patients only, caregivers only, one transplant type, etc.
type ParticipantFilter func(p *Participant) bool

// ApplyParticipantFilters returns a new dataset restricted to the participants
// that pass all given filters. Series are shared with the input dataset, not
// copied; the filtered dataset must be treated as a read-only view.
func ApplyParticipantFilters(ds *Dataset, filters []ParticipantFilter) *Dataset {
	filtered := NewDataset(ds.Name)
	for _, pid := range ds.ParticipantIDs() {
		p := ds.Participants[pid]
		keep := true
		for _, filter := range filters {
			if !filter(p) {
				keep = false
				break
			}
		}
		if keep {
			filtered.Participants[pid] = p
		}
	}
	for _, metric := range ds.Metrics {
		series := map[string]Series{}
		for pid := range filtered.Participants {
			if s, ok := ds.Values[metric][pid]; ok {
				series[pid] = s
			}
		}
		filtered.Values[metric] = series
		filtered.Metrics = append(filtered.Metrics, metric)
	}
	return filtered
}

// RoleFilter keeps only participants with the given role.
func RoleFilter(role string) ParticipantFilter {
	return func(p *Participant) bool {
		return p.Role == role
	}
}

// GenderFilter keeps only participants with the given gender.
func GenderFilter(gender string) ParticipantFilter {
	return func(p *Participant) bool {
		return p.Gender == gender
	}
}

// TransplantTypeFilter keeps only participants with the given transplant type.
func TransplantTypeFilter(ttype string) ParticipantFilter {
	return func(p *Participant) bool {
		return p.TransplantType == ttype
	}
}

// PatientFilter keeps only participants with the Patients role.
func PatientFilter() ParticipantFilter {
	return RoleFilter("Patients")
}

// CaregiverFilter keeps only participants with the Caregivers role.
func CaregiverFilter() ParticipantFilter {
	return RoleFilter("Caregivers")
}
