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

package httpindex

import (
	"strings"
	"testing"
)

const labelFixture = `PDS_VERSION_ID        = PDS3
RECORD_TYPE           = FIXED_LENGTH
START_TIME            = 1986-01-24T00:00:00.000Z
STOP_TIME             = 1986-01-26T00:00:00.000Z
/* table columns */
OBJECT                = COLUMN
  NAME                = TIME
  DATA_TYPE           = TIME
END_OBJECT            = COLUMN
OBJECT                = COLUMN
  NAME                = DENSITY
  UNIT                = "CM**-3"
  DATA_TYPE           = ASCII_REAL
  MISSING_CONSTANT    = -9999.0
END_OBJECT            = COLUMN
OBJECT                = COLUMN
  NAME                = B_MAG
  UNIT                = "nT"
  DATA_TYPE           = ASCII_REAL
END_OBJECT            = COLUMN
END
trailing garbage after END is ignored
`

func TestParseLabel(t *testing.T) {
	lbl, err := parseLabel(strings.NewReader(labelFixture))
	if err != nil {
		t.Fatal(err)
	}
	if len(lbl.Columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(lbl.Columns))
	}
	if lbl.StartTime != "1986-01-24T00:00:00.000Z" || lbl.StopTime != "1986-01-26T00:00:00.000Z" {
		t.Errorf("coverage = %q .. %q", lbl.StartTime, lbl.StopTime)
	}
	if lbl.timeColumn() != 0 {
		t.Errorf("timeColumn() = %d, want 0", lbl.timeColumn())
	}

	density := lbl.Columns[1]
	if density.Name != "DENSITY" || density.Unit != "CM**-3" || density.DataType != "ASCII_REAL" {
		t.Errorf("density column = %+v", density)
	}
	if density.FillValue == nil || *density.FillValue != -9999 {
		t.Errorf("density fill = %v, want -9999", density.FillValue)
	}
	if lbl.Columns[2].FillValue != nil {
		t.Errorf("b_mag fill = %v, want none", lbl.Columns[2].FillValue)
	}
}

func TestParseLabelNoColumns(t *testing.T) {
	in := "PDS_VERSION_ID = PDS3\nEND\n"
	if _, err := parseLabel(strings.NewReader(in)); err == nil {
		t.Error("label without columns accepted, want error")
	}
}

func TestLabelNoTimeColumn(t *testing.T) {
	in := `OBJECT = COLUMN
NAME = DENSITY
DATA_TYPE = ASCII_REAL
END_OBJECT = COLUMN
END
`
	lbl, err := parseLabel(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if lbl.timeColumn() != -1 {
		t.Errorf("timeColumn() = %d, want -1", lbl.timeColumn())
	}
}

func TestSplitAssignment(t *testing.T) {
	tests := []struct {
		in         string
		key, value string
		ok         bool
	}{
		{"NAME = DENSITY", "NAME", "DENSITY", true},
		{`UNIT = "CM**-3"`, "UNIT", "CM**-3", true},
		{"KEY=VALUE", "KEY", "VALUE", true},
		{"END", "", "", false},
	}
	for _, test := range tests {
		key, value, ok := splitAssignment(test.in)
		if key != test.key || value != test.value || ok != test.ok {
			t.Errorf("splitAssignment(%q) = (%q, %q, %v), want (%q, %q, %v)",
				test.in, key, value, ok, test.key, test.value, test.ok)
		}
	}
}
