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

package stats

import (
	"math"
	"sort"
)

// Statistical primitives for the group comparison and early warning analyses:
// descriptive statistics, Cohen's d, Welch's t-test, and Benjamini-Hochberg
// correction. Quantities that cannot be computed from the given samples are
// reported as absent through an ok flag, never as zero.

// DropMissing returns the values of a sample that are not missing (NaN).
func DropMissing(xs []float64) []float64 {
	result := []float64{}
	for _, x := range xs {
		if !math.IsNaN(x) {
			result = append(result, x)
		}
	}
	return result
}

// Mean computes the arithmetic mean of a sample.
func Mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum = sum + x
	}
	return sum / float64(len(xs))
}

// SampleVariance computes the variance of a sample with Bessel's correction.
func SampleVariance(xs []float64) float64 {
	mean := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum = sum + (x-mean)*(x-mean)
	}
	return sum / float64(len(xs)-1)
}

// SampleSD computes the standard deviation of a sample with Bessel's correction.
func SampleSD(xs []float64) float64 {
	return math.Sqrt(SampleVariance(xs))
}

// CohenD computes the standardized mean difference of two samples using the
// pooled standard deviation: sp2 = ((n1-1)s1^2 + (n2-1)s2^2) / (n1+n2-2) and
// d = (mean(x)-mean(y)) / sqrt(sp2). Missing values are dropped per sample
// before computation. It returns ok = false when either sample has fewer than
// 2 non-missing values or when the pooled variance is not positive.
func CohenD(x, y []float64) (float64, bool) {
	x = DropMissing(x)
	y = DropMissing(y)
	n1 := len(x)
	n2 := len(y)
	if n1 < 2 || n2 < 2 {
		return math.NaN(), false
	}
	s1 := SampleVariance(x)
	s2 := SampleVariance(y)
	sp2 := (float64(n1-1)*s1 + float64(n2-1)*s2) / float64(n1+n2-2)
	if sp2 <= 0.0 || math.IsNaN(sp2) {
		return math.NaN(), false
	}
	return (Mean(x) - Mean(y)) / math.Sqrt(sp2), true
}

// WelchTTest computes the two-sample t-test on means without assuming equal
// variances. The degrees of freedom follow the Welch-Satterthwaite
// approximation and the two-sided p-value is derived from the Student's t
// distribution. Missing values are dropped per sample before computation, and
// the counts after dropping are what enter the test. It returns ok = false
// when either sample has fewer than 2 non-missing values or when both sample
// variances are zero; this is a defined "not computable" result, not an error.
func WelchTTest(x, y []float64) (float64, float64, bool) {
	x = DropMissing(x)
	y = DropMissing(y)
	n1 := len(x)
	n2 := len(y)
	if n1 < 2 || n2 < 2 {
		return math.NaN(), math.NaN(), false
	}
	v1 := SampleVariance(x) / float64(n1)
	v2 := SampleVariance(y) / float64(n2)
	se2 := v1 + v2
	if se2 <= 0.0 || math.IsNaN(se2) {
		return math.NaN(), math.NaN(), false
	}
	t := (Mean(x) - Mean(y)) / math.Sqrt(se2)
	df := se2 * se2 / (v1*v1/float64(n1-1) + v2*v2/float64(n2-1))
	p := studentTPValue(t, df)
	return t, p, true
}

// BenjaminiHochberg applies the Benjamini-Hochberg step-up procedure to a batch
// of p-values. It returns, in the order of the input, a rejection flag per test
// and the adjusted p-values: sort ascending, rank-scale by n/rank, take the
// reverse cumulative minimum, and clip to [0,1]. The adjusted values couple
// every test in the batch, so correction must always run over the complete set
// of simultaneous comparisons.
func BenjaminiHochberg(pvals []float64, alpha float64) ([]bool, []float64) {
	n := len(pvals)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return pvals[order[i]] < pvals[order[j]]
	})
	adjusted := make([]float64, n)
	cumMin := math.Inf(1)
	for i := n - 1; i >= 0; i-- {
		scaled := pvals[order[i]] * float64(n) / float64(i+1)
		if scaled < cumMin {
			cumMin = scaled
		}
		adj := cumMin
		if adj > 1.0 {
			adj = 1.0
		}
		if adj < 0.0 {
			adj = 0.0
		}
		adjusted[order[i]] = adj
	}
	rejected := make([]bool, n)
	for i := 0; i < n; i++ {
		rejected[i] = adjusted[i] <= alpha
	}
	return rejected, adjusted
}

// PearsonR computes the Pearson correlation coefficient of two paired samples.
// It returns ok = false when fewer than 2 pairs are given or when either sample
// has zero variance.
func PearsonR(x, y []float64) (float64, bool) {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN(), false
	}
	mx := Mean(x)
	my := Mean(y)
	sxy := 0.0
	sxx := 0.0
	syy := 0.0
	for i := 0; i < n; i++ {
		sxy = sxy + (x[i]-mx)*(y[i]-my)
		sxx = sxx + (x[i]-mx)*(x[i]-mx)
		syy = syy + (y[i]-my)*(y[i]-my)
	}
	if sxx <= 0.0 || syy <= 0.0 {
		return math.NaN(), false
	}
	return sxy / math.Sqrt(sxx*syy), true
}
