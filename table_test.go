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
	"math"
	"reflect"
	"testing"
	"time"
)

func testTable() *Table {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour), start.Add(3 * time.Hour)}
	t := NewTable([]string{"density", "velocity_r", "velocity_t"}, times)
	for i := 0; i < 4; i++ {
		t.Set(float64(i), i, 0)
		t.Set(float64(i)*10, i, 1)
		t.Set(float64(i)*100, i, 2)
	}
	return t
}

func TestTableNewIsMissing(t *testing.T) {
	table := NewTable([]string{"a", "b"}, []time.Time{time.Now()})
	if !math.IsNaN(table.Value(0, 0)) || !math.IsNaN(table.Value(0, 1)) {
		t.Error("new table values are not NaN")
	}
}

func TestTableColumn(t *testing.T) {
	table := testTable()
	v, err := table.Column("velocity_r")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 10, 20, 30}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("Column(velocity_r) = %v, want %v", v, want)
	}
	if _, err := table.Column("pressure"); err == nil {
		t.Error("Column on a missing name succeeded, want error")
	}
}

func TestTableSelect(t *testing.T) {
	table := testTable()
	sel, err := table.Select("velocity_t", "density")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sel.Columns, []string{"velocity_t", "density"}) {
		t.Errorf("selected columns = %v", sel.Columns)
	}
	if sel.Value(2, 0) != 200 || sel.Value(2, 1) != 2 {
		t.Errorf("row 2 = (%g, %g), want (200, 2)", sel.Value(2, 0), sel.Value(2, 1))
	}
	// The original is untouched.
	if table.Value(2, 0) != 2 {
		t.Errorf("source table modified: %g", table.Value(2, 0))
	}
	if _, err := table.Select("density", "pressure"); err == nil {
		t.Error("Select with a missing name succeeded, want error")
	}
}

func TestTableWindow(t *testing.T) {
	table := testTable()
	start := table.Time[0]
	w := table.Window(TimeRange{Start: start.Add(time.Hour), Stop: start.Add(3 * time.Hour)})
	if w.Rows() != 2 {
		t.Fatalf("window rows = %d, want 2", w.Rows())
	}
	if !w.Time[0].Equal(start.Add(time.Hour)) {
		t.Errorf("window start = %v", w.Time[0])
	}
	if w.Value(0, 0) != 1 || w.Value(1, 0) != 2 {
		t.Errorf("window density = (%g, %g), want (1, 2)", w.Value(0, 0), w.Value(1, 0))
	}
}

func TestTableNativePeriod(t *testing.T) {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		offsets []time.Duration
		want    time.Duration
	}{
		{[]time.Duration{0, time.Hour, 2 * time.Hour}, time.Hour},
		// One gap does not move the median.
		{[]time.Duration{0, time.Minute, 2 * time.Minute, 3 * time.Minute, 30 * time.Minute}, time.Minute},
		{[]time.Duration{0}, 0},
		{nil, 0},
	}
	for _, test := range tests {
		times := make([]time.Time, len(test.offsets))
		for i, off := range test.offsets {
			times[i] = start.Add(off)
		}
		table := NewTable([]string{"x"}, times)
		if got := table.NativePeriod(); got != test.want {
			t.Errorf("NativePeriod() with offsets %v = %v, want %v", test.offsets, got, test.want)
		}
	}
}
