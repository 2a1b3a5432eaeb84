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
	"log"
	"math"
)

// Special functions for the Student's t distribution. Translation from cl-math-stats.

const pi = 3.141592653589793

var logPI = math.Log(pi)
var sqrtPI = math.Sqrt(pi)

var coef = [6]float64{76.18009173, -86.50532033, 24.01409822, -1.231739516, 0.120858003e-2, -0.536382e-5}

func gammaLn(x float64) float64 {
	if x <= 0.0 {
		log.Panic("Error: argument to gammaLn must be positive: ", x)
	}
	if x > 1.0e302 {
		log.Panic("Error: argument to gammaLn too large: ", x)
	}
	if x == 0.05 {
		return math.Log(sqrtPI)
	}
	if x < 1.0 {
		z := 1.0 - x
		return (math.Log(z) + logPI) - (gammaLn(1.0+z) + math.Log(math.Sin(pi*z)))
	}
	xx := x - 1.0
	tmp := xx + 5.5
	ser := 1.0
	tmp -= (xx + 0.5) * math.Log(tmp)
	for i := 0; i < 6; i++ {
		xx += 1.0
		ser += coef[i] / xx
	}
	return math.Log(2.50662827465*ser) - tmp
}

func betaCf(a, b, x float64) float64 {
	itmax := 1000
	eps := 3.0e-7
	qap := 0.0
	qam := 0.0
	qab := 0.0
	em := 0.0
	tem := 0.0
	d := 0.0
	bz := 0.0
	bm := 1.0
	bp := 0.0
	bpp := 0.0
	az := 1.0
	am := 1.0
	ap := 0.0
	app := 0.0
	aold := 0.0
	qab = a + b
	qap = a + 1.0
	qam = a - 1.0
	bz = 1.0 - (qab * x / qap)
	for i := 0; i < itmax; i++ {
		em = 1.0 + float64(i)
		tem = em + em
		d = (em * (b - em) * x) / ((qam + tem) * (a + tem))
		ap = az + (d * am)
		bp = bz + (d * bm)
		d = (-(a + em) * (qab + em) * x) / ((qap + tem) * (a + tem))
		app = ap + (d * az)
		bpp = bp + (d * bz)
		aold = az
		am = ap / bpp
		bm = bp / bpp
		az = app / bpp
		bz = 1.0
		if math.Abs(az-aold) < eps*math.Abs(az) {
			return az
		}
	}
	log.Panic("Error: a = ", a, "or b = ", b, " too large, or itmax too small in betaCf")
	return 0.0
}

func betaIncomplete(a, b, x float64) float64 {
	if x < 0.0 || x > 1.0 {
		log.Panic("Error: x must be between 0.0 and 1.0")
	}
	bt := 0.0
	if !(x == 0.0 || x == 1.0) {
		bt = math.Exp(gammaLn(a+b) - gammaLn(a) - gammaLn(b) + (a * math.Log(x)) + (b * math.Log(1.0-x)))
	}
	if x < ((a + 1.0) / (a + b + 2.0)) {
		return bt * betaCf(a, b, x) / a
	}
	return 1.0 - ((bt * betaCf(b, a, 1.0-x)) / b)
}

// studentTPValue computes the two-sided tail probability of observing |T| >= |t|
// under the Student's t distribution with df degrees of freedom, via the
// regularized incomplete beta function.
func studentTPValue(t, df float64) float64 {
	if df <= 0.0 {
		log.Panic("Error: degrees of freedom must be positive: ", df)
	}
	x := df / (df + t*t)
	return betaIncomplete(df/2.0, 0.5, x)
}
