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
	"fmt"
	"math"

	"github.com/exascience/pargo/parallel"

	"hctra/stats"
	"hctra/study"
)

// Infection early warning analysis. For every (participant, event day) pair,
// a pre-event window of the participant's own series is compared against a
// historical baseline window of the same participant; anomalous drops are
// flagged by relative and standardized drift thresholds. The baseline is
// per-participant and dynamic, never a population-level reference: the two
// produce materially different flag rates.

// Windows are day intervals relative to the event day.
type Windows struct {
	PreStart, PreEnd   float64 //window immediately before the event
	BaseStart, BaseEnd float64 //historical baseline window
}

// Thresholds are the drop thresholds that flag an event; comparisons are
// inclusive (<=).
type Thresholds struct {
	PctDrop float64 //threshold on (preMean-baseMean)/baseMean
	SDDrop  float64 //threshold on (preMean-baseMean)/baseSD
}

// Config holds the caller-supplied early warning parameters.
type Config struct {
	Windows    Windows
	Thresholds Thresholds
	MinSamples int //minimum non-missing values required per window
}

// DefaultConfig returns the default early warning configuration: pre window
// [-7,-1], baseline window [-30,-14], 15% drop and 0.5 SD drop thresholds, at
// least 2 values per window.
func DefaultConfig() Config {
	return Config{
		Windows:    Windows{PreStart: -7, PreEnd: -1, BaseStart: -30, BaseEnd: -14},
		Thresholds: Thresholds{PctDrop: -0.15, SDDrop: -0.50},
		MinSamples: 2,
	}
}

func (cfg Config) validate() error {
	if cfg.Windows.PreStart > cfg.Windows.PreEnd {
		return fmt.Errorf("early warning config: pre window start %g after end %g", cfg.Windows.PreStart, cfg.Windows.PreEnd)
	}
	if cfg.Windows.BaseStart > cfg.Windows.BaseEnd {
		return fmt.Errorf("early warning config: baseline window start %g after end %g", cfg.Windows.BaseStart, cfg.Windows.BaseEnd)
	}
	if cfg.MinSamples < 2 {
		return fmt.Errorf("early warning config: minimum window size must be at least 2, got %d", cfg.MinSamples)
	}
	return nil
}

// EventSummary is the drift of one metric before one event. PctChange and
// SDChange carry ok flags because they are undefined for a zero baseline mean
// or a non-positive baseline SD; an absent change never raises a flag.
type EventSummary struct {
	PID          string
	EventDay     float64
	Metric       string
	BaselineMean float64
	BaselineSD   float64
	PreMean      float64
	Delta        float64
	PctChange    float64
	PctOK        bool
	SDChange     float64
	SDOK         bool
	WarnPct      bool
	WarnSD       bool
}

// Overview aggregates the event summaries of one metric across all events: the
// share of events flagged by each criterion and the mean drift statistics.
// Absent changes are excluded from the means, not counted as zero.
type Overview struct {
	Metric        string
	NofEvents     int
	SharePct      float64
	ShareSD       float64
	MeanDelta     float64
	MeanPctChange float64
	MeanSDChange  float64
}

// summarizeEvent computes the drift of every candidate metric before one event.
// Metrics with fewer than the minimum number of non-missing values in either
// window are skipped; no placeholder rows are emitted.
func summarizeEvent(ds *study.Dataset, ev study.Event, metrics []string, cfg Config) []*EventSummary {
	rows := []*EventSummary{}
	w := cfg.Windows
	for _, metric := range metrics {
		if !ds.HasMetric(metric) {
			continue
		}
		base := ds.WindowValues(metric, ev.PID, ev.Day+w.BaseStart, ev.Day+w.BaseEnd)
		pre := ds.WindowValues(metric, ev.PID, ev.Day+w.PreStart, ev.Day+w.PreEnd)
		if len(base) < cfg.MinSamples || len(pre) < cfg.MinSamples {
			continue
		}
		baseMean := stats.Mean(base)
		baseSD := stats.SampleSD(base)
		preMean := stats.Mean(pre)
		row := &EventSummary{
			PID:          ev.PID,
			EventDay:     ev.Day,
			Metric:       metric,
			BaselineMean: baseMean,
			BaselineSD:   baseSD,
			PreMean:      preMean,
			Delta:        preMean - baseMean,
			PctChange:    math.NaN(),
			SDChange:     math.NaN(),
		}
		if !math.IsNaN(baseMean) && baseMean != 0.0 {
			row.PctChange = row.Delta / baseMean
			row.PctOK = true
		}
		if !math.IsNaN(baseSD) && baseSD > 0.0 {
			row.SDChange = row.Delta / baseSD
			row.SDOK = true
		}
		row.WarnPct = row.PctOK && row.PctChange <= cfg.Thresholds.PctDrop
		row.WarnSD = row.SDOK && row.SDChange <= cfg.Thresholds.SDDrop
		rows = append(rows, row)
	}
	return rows
}

// SummarizeEvents computes per-event drift summaries for all events. Events are
// processed independently and in parallel; the result keeps the event input
// order, with metrics in candidate order within an event.
func SummarizeEvents(ds *study.Dataset, events []study.Event, metrics []string, cfg Config) ([]*EventSummary, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	result := parallel.RangeReduce(0, len(events), 0, func(low, high int) interface{} {
		rows := []*EventSummary{}
		for _, ev := range events[low:high] {
			rows = append(rows, summarizeEvent(ds, ev, metrics, cfg)...)
		}
		return rows
	}, func(result1, result2 interface{}) interface{} {
		r1 := result1.([]*EventSummary)
		r2 := result2.([]*EventSummary)
		return append(r1, r2...)
	})
	return result.([]*EventSummary), nil
}

// BuildOverview groups event summaries by metric and reports, per metric, the
// fraction of events flagged by each criterion and the mean drift statistics.
// Metrics without any summarized event are omitted. The overview is the durable
// output of the analysis; the per-event rows are intermediate.
func BuildOverview(summaries []*EventSummary, metrics []string) []*Overview {
	byMetric := map[string][]*EventSummary{}
	for _, s := range summaries {
		byMetric[s.Metric] = append(byMetric[s.Metric], s)
	}
	overview := []*Overview{}
	for _, metric := range metrics {
		rows := byMetric[metric]
		if len(rows) == 0 {
			continue
		}
		o := &Overview{Metric: metric, NofEvents: len(rows)}
		pctFlagged := 0
		sdFlagged := 0
		deltaSum := 0.0
		pctSum, sdSum := 0.0, 0.0
		pctCtr, sdCtr := 0, 0
		for _, s := range rows {
			deltaSum = deltaSum + s.Delta
			if s.WarnPct {
				pctFlagged++
			}
			if s.WarnSD {
				sdFlagged++
			}
			if s.PctOK {
				pctSum = pctSum + s.PctChange
				pctCtr++
			}
			if s.SDOK {
				sdSum = sdSum + s.SDChange
				sdCtr++
			}
		}
		o.SharePct = float64(pctFlagged) / float64(len(rows))
		o.ShareSD = float64(sdFlagged) / float64(len(rows))
		o.MeanDelta = deltaSum / float64(len(rows))
		o.MeanPctChange = math.NaN()
		if pctCtr > 0 {
			o.MeanPctChange = pctSum / float64(pctCtr)
		}
		o.MeanSDChange = math.NaN()
		if sdCtr > 0 {
			o.MeanSDChange = sdSum / float64(sdCtr)
		}
		overview = append(overview, o)
	}
	return overview
}

// FirstSummaryFor returns the first event summary of a metric, or nil when the
// metric has no summarized event. Useful for picking an example event that is
// guaranteed to have usable windows.
func FirstSummaryFor(summaries []*EventSummary, metric string) *EventSummary {
	for _, s := range summaries {
		if s.Metric == metric {
			return s
		}
	}
	return nil
}

// Analyze runs the full early warning pass: summarize every event, then
// aggregate into the per-metric overview.
func Analyze(ds *study.Dataset, events []study.Event, metrics []string, cfg Config) ([]*Overview, error) {
	summaries, err := SummarizeEvents(ds, events, metrics, cfg)
	if err != nil {
		return nil, err
	}
	return BuildOverview(summaries, metrics), nil
}
