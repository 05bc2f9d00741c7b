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
	"testing"
	"time"
)

// Resampling a table onto its own native period must reproduce the
// original values.
func TestResampleNativePeriodRoundTrip(t *testing.T) {
	table := testTable()
	out, err := Resample(table, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows() != table.Rows() {
		t.Fatalf("rows = %d, want %d", out.Rows(), table.Rows())
	}
	for i := 0; i < table.Rows(); i++ {
		if !out.Time[i].Equal(table.Time[i]) {
			t.Errorf("time[%d] = %v, want %v", i, out.Time[i], table.Time[i])
		}
		for j := range table.Columns {
			got, want := out.Value(i, j), table.Value(i, j)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("value[%d][%d] = %g, want %g", i, j, got, want)
			}
		}
	}
}

func TestResampleDownsample(t *testing.T) {
	table := testTable() // hourly over 3 hours
	out, err := Resample(table, 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", out.Rows())
	}
	if out.Value(1, 0) != 2 {
		t.Errorf("value at +2h = %g, want 2", out.Value(1, 0))
	}
}

func TestResampleInterpolates(t *testing.T) {
	table := testTable()
	out, err := Resample(table, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows() != 7 {
		t.Fatalf("rows = %d, want 7", out.Rows())
	}
	// Halfway between rows 1 and 2 of the velocity_r column (10 and 20).
	if got := out.Value(3, 1); math.Abs(got-15) > 1e-9 {
		t.Errorf("interpolated value = %g, want 15", got)
	}
}

func TestResampleMissingStaysMissing(t *testing.T) {
	table := testTable()
	table.Set(math.NaN(), 1, 0)
	out, err := Resample(table, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	// Both grid points bracketed by the missing sample are missing.
	if !math.IsNaN(out.Value(1, 0)) || !math.IsNaN(out.Value(3, 0)) {
		t.Errorf("interpolation through a gap produced values %g, %g",
			out.Value(1, 0), out.Value(3, 0))
	}
	// The untouched columns are unaffected.
	if math.IsNaN(out.Value(1, 1)) {
		t.Error("unrelated column went missing")
	}
}

func TestResampleInvalidPeriod(t *testing.T) {
	if _, err := Resample(testTable(), 0); err == nil {
		t.Error("zero period accepted, want error")
	}
	if _, err := Resample(testTable(), -time.Second); err == nil {
		t.Error("negative period accepted, want error")
	}
}

// Pure transformation: the source table is unchanged.
func TestResampleDoesNotModifySource(t *testing.T) {
	table := testTable()
	before := make([]float64, table.Rows())
	for i := range before {
		before[i] = table.Value(i, 0)
	}
	if _, err := Resample(table, 20*time.Minute); err != nil {
		t.Fatal(err)
	}
	for i := range before {
		if table.Value(i, 0) != before[i] {
			t.Fatalf("source value[%d] changed from %g to %g", i, before[i], table.Value(i, 0))
		}
	}
}
