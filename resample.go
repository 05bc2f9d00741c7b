/*
Copyright © 2021 the Heliocat authors.
This file is part of Heliocat.

Heliocat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Heliocat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Heliocat.  If not, see <http://www.gnu.org/licenses/>.
*/

package heliocat

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Resample returns a copy of t linearly interpolated onto a uniform time
// grid with the given period, starting at the table's first sample and not
// extending past its last. It is a pure transformation: t is not modified.
// Samples bracketed by a missing value remain missing. Resampling a table
// to its own native period reproduces the original values.
func Resample(t *Table, period time.Duration) (*Table, error) {
	if period <= 0 {
		return nil, fmt.Errorf("heliocat: resampling period must be positive, got %v", period)
	}
	if t.Rows() == 0 {
		return NewTable(t.Columns, nil), nil
	}

	start := t.Time[0]
	span := t.Time[len(t.Time)-1].Sub(start)
	n := int(span/period) + 1

	// Sample offsets from the table start, in seconds.
	src := make([]float64, t.Rows())
	for i, tm := range t.Time {
		src[i] = tm.Sub(start).Seconds()
	}
	dst := make([]float64, n)
	if n > 1 {
		floats.Span(dst, 0, float64(n-1)*period.Seconds())
	}

	times := make([]time.Time, n)
	for i, off := range dst {
		times[i] = start.Add(time.Duration(off * float64(time.Second)))
	}
	o := NewTable(t.Columns, times)

	lo := 0
	for i, x := range dst {
		for lo+1 < len(src) && src[lo+1] <= x {
			lo++
		}
		for j := range t.Columns {
			o.Set(interpolate(src, x, lo, t, j), i, j)
		}
	}
	return o, nil
}

// interpolate linearly interpolates column j of t at offset x, where
// src[lo] <= x and lo is the greatest such index.
func interpolate(src []float64, x float64, lo int, t *Table, j int) float64 {
	v0 := t.Value(lo, j)
	if src[lo] == x || lo == len(src)-1 {
		return v0
	}
	v1 := t.Value(lo+1, j)
	if math.IsNaN(v0) || math.IsNaN(v1) {
		return math.NaN()
	}
	frac := (x - src[lo]) / (src[lo+1] - src[lo])
	return v0 + frac*(v1-v0)
}
