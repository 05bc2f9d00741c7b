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

	"github.com/ctessum/sparse"
)

// A Table is a materialized time-series payload: rows indexed by time,
// one value column per parameter component. It is the contract surface
// handed to downstream plotting and transformation collaborators.
type Table struct {
	// Time holds the row index. It is strictly increasing.
	Time []time.Time

	// Columns are the value column names, in provider order. The time
	// index is not listed here.
	Columns []string

	// Data holds the values with shape [len(Time), len(Columns)].
	// Missing samples are stored as NaN.
	Data *sparse.DenseArray
}

// NewTable creates a table with the given columns and time index and all
// values initialized to NaN.
func NewTable(columns []string, times []time.Time) *Table {
	t := &Table{
		Time:    times,
		Columns: columns,
		Data:    sparse.ZerosDense(len(times), len(columns)),
	}
	for i := range t.Data.Elements {
		t.Data.Elements[i] = math.NaN()
	}
	return t
}

// Rows returns the number of time steps in the table.
func (t *Table) Rows() int { return len(t.Time) }

// Set sets the value in row i of column j.
func (t *Table) Set(v float64, i, j int) { t.Data.Set(v, i, j) }

// Value returns the value in row i of column j.
func (t *Table) Value(i, j int) float64 { return t.Data.Get(i, j) }

// ColumnIndex returns the index of the named column, or -1 if the table
// has no such column.
func (t *Table) ColumnIndex(name string) int {
	for j, c := range t.Columns {
		if c == name {
			return j
		}
	}
	return -1
}

// Column returns a copy of the values in the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("heliocat: table has no column %q", name)
	}
	v := make([]float64, t.Rows())
	for i := range v {
		v[i] = t.Data.Get(i, j)
	}
	return v, nil
}

// Select returns a new table holding only the named columns, sharing the
// time index with the receiver but copying the values.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for k, name := range columns {
		j := t.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("heliocat: table has no column %q", name)
		}
		idx[k] = j
	}
	o := NewTable(columns, t.Time)
	for i := 0; i < t.Rows(); i++ {
		for k, j := range idx {
			o.Set(t.Data.Get(i, j), i, k)
		}
	}
	return o, nil
}

// Window returns a new table restricted to rows whose times fall within r.
func (t *Table) Window(r TimeRange) *Table {
	var lo, hi int
	for lo = 0; lo < len(t.Time) && t.Time[lo].Before(r.Start); lo++ {
	}
	for hi = lo; hi < len(t.Time) && t.Time[hi].Before(r.Stop); hi++ {
	}
	o := NewTable(t.Columns, t.Time[lo:hi])
	for i := lo; i < hi; i++ {
		for j := range t.Columns {
			o.Set(t.Data.Get(i, j), i-lo, j)
		}
	}
	return o
}

// Range returns the time range covered by the table. The stop bound is one
// native period past the last sample so the final row is included.
func (t *Table) Range() TimeRange {
	if len(t.Time) == 0 {
		return TimeRange{}
	}
	return TimeRange{Start: t.Time[0], Stop: t.Time[len(t.Time)-1].Add(t.NativePeriod())}
}

// NativePeriod returns the median time step between consecutive rows, or
// zero if the table has fewer than two rows.
func (t *Table) NativePeriod() time.Duration {
	if len(t.Time) < 2 {
		return 0
	}
	steps := make([]time.Duration, len(t.Time)-1)
	for i := 1; i < len(t.Time); i++ {
		steps[i-1] = t.Time[i].Sub(t.Time[i-1])
	}
	// Insertion sort; the slice is almost always tiny and already uniform.
	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j] < steps[j-1]; j-- {
			steps[j], steps[j-1] = steps[j-1], steps[j]
		}
	}
	return steps[len(steps)/2]
}
