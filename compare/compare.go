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
	"fmt"
	"math"

	"github.com/exascience/pargo/parallel"

	"hctra/stats"
	"hctra/study"
)

// Group comparison engine. One batch covers one family of simultaneous
// comparisons, e.g. all physiological + psychological metrics for the
// Patients vs Caregivers contrast. Tests are collected first and corrected
// once, because Benjamini-Hochberg couples every test in the batch: correcting
// a partial or overlapping batch changes every adjusted value.

// Contrast names the two cohorts of a comparison: a grouping attribute and the
// two label values that select cohort A and cohort B.
type Contrast struct {
	Attribute string
	LabelA    string
	LabelB    string
}

// Config holds the caller-supplied comparison parameters.
type Config struct {
	Alpha      float64 //significance level for rejection after correction
	MinSamples int     //minimum non-missing values required per cohort
}

// DefaultConfig returns the default comparison configuration: alpha 0.05 and at
// least 2 values per cohort.
func DefaultConfig() Config {
	return Config{Alpha: 0.05, MinSamples: 2}
}

func (cfg Config) validate() error {
	if cfg.Alpha <= 0.0 {
		return fmt.Errorf("comparison config: significance level must be positive, got %g", cfg.Alpha)
	}
	if cfg.MinSamples < 2 {
		return fmt.Errorf("comparison config: minimum cohort size must be at least 2, got %d", cfg.MinSamples)
	}
	return nil
}

// Result is the outcome of one two-cohort, one-metric comparison. TStat,
// PValue, and EffectSize are only meaningful when the corresponding ok flag is
// set; AdjustedP and Significant are populated by Correct, never per test.
type Result struct {
	Metric      string
	Attribute   string
	LabelA      string
	LabelB      string
	NA, NB      int
	MeanA, SDA  float64
	MeanB, SDB  float64
	TStat       float64
	PValue      float64
	TestOK      bool
	EffectSize  float64
	EffectOK    bool
	AdjustedP   float64
	Significant bool
}

// Batch collects comparison results for one family of simultaneous tests and
// corrects them in a single pass. The two phases are explicit: Add computes
// descriptive statistics and per-test p-values, Correct runs the
// Benjamini-Hochberg procedure over everything collected so far.
type Batch struct {
	contrast  Contrast
	cfg       Config
	results   []*Result
	corrected bool
}

// NewBatch creates a comparison batch for one contrast. It fails fast on an
// invalid configuration, before any computation.
func NewBatch(contrast Contrast, cfg Config) (*Batch, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Batch{contrast: contrast, cfg: cfg}, nil
}

// Add runs the batch's contrast for the given candidate metrics on a dataset
// and collects one result per computable metric. Metrics absent from the
// dataset, or with fewer than the minimum number of non-missing values in
// either cohort, are silently skipped; absence of a row is the "not computable"
// signal. Metrics are computed in parallel, results keep the input order.
func (b *Batch) Add(ds *study.Dataset, metrics []string) {
	if b.corrected {
		panic("comparison batch already corrected; collect all tests before correcting")
	}
	slots := make([]*Result, len(metrics))
	parallel.Range(0, len(metrics), 0, func(low, high int) {
		for i := low; i < high; i++ {
			slots[i] = b.compareMetric(ds, metrics[i])
		}
	})
	for _, r := range slots {
		if r != nil {
			b.results = append(b.results, r)
		}
	}
}

// compareMetric computes descriptive statistics, Welch's t-test, and Cohen's d
// for one metric, or nil when the metric is skipped.
func (b *Batch) compareMetric(ds *study.Dataset, metric string) *Result {
	if !ds.HasMetric(metric) {
		return nil
	}
	a := ds.CohortValues(metric, b.contrast.Attribute, b.contrast.LabelA)
	c := ds.CohortValues(metric, b.contrast.Attribute, b.contrast.LabelB)
	if len(a) < b.cfg.MinSamples || len(c) < b.cfg.MinSamples {
		return nil
	}
	r := &Result{
		Metric:    metric,
		Attribute: b.contrast.Attribute,
		LabelA:    b.contrast.LabelA,
		LabelB:    b.contrast.LabelB,
		NA:        len(a),
		NB:        len(c),
		MeanA:     stats.Mean(a),
		SDA:       stats.SampleSD(a),
		MeanB:     stats.Mean(c),
		SDB:       stats.SampleSD(c),
		AdjustedP: math.NaN(),
	}
	r.TStat, r.PValue, r.TestOK = stats.WelchTTest(a, c)
	r.EffectSize, r.EffectOK = stats.CohenD(a, c)
	return r
}

// Correct applies Benjamini-Hochberg correction once over the complete batch
// and returns the results. Tests whose p-value was not computable keep an
// absent adjusted p-value and are excluded from correction. After Correct the
// batch is sealed; adding more tests would silently change already-reported
// adjusted values and is therefore a programming error.
func (b *Batch) Correct() []*Result {
	if b.corrected {
		panic("comparison batch already corrected")
	}
	b.corrected = true
	indices := []int{}
	pvals := []float64{}
	for i, r := range b.results {
		if r.TestOK {
			indices = append(indices, i)
			pvals = append(pvals, r.PValue)
		}
	}
	if len(pvals) > 0 {
		rejected, adjusted := stats.BenjaminiHochberg(pvals, b.cfg.Alpha)
		for k, i := range indices {
			b.results[i].AdjustedP = adjusted[k]
			b.results[i].Significant = rejected[k]
		}
	}
	return b.results
}

// Run compares two cohorts on a list of candidate metrics in a single batch:
// collect every computable test, then correct once. Callers that need one
// correction family spanning several datasets should use NewBatch/Add/Correct
// directly.
func Run(ds *study.Dataset, metrics []string, contrast Contrast, cfg Config) ([]*Result, error) {
	batch, err := NewBatch(contrast, cfg)
	if err != nil {
		return nil, err
	}
	batch.Add(ds, metrics)
	return batch.Correct(), nil
}
