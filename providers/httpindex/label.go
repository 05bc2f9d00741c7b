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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PDS-style ASCII labels: `KEY = VALUE` assignments, column descriptions
// in OBJECT = COLUMN ... END_OBJECT blocks, the whole label terminated by
// an END line. Only the column attributes needed to type the data table
// are read.

const (
	labelEnd       = "END"
	labelObject    = "OBJECT"
	labelEndObject = "END_OBJECT"
	labelColumn    = "COLUMN"
	labelName      = "NAME"
	labelUnit      = "UNIT"
	labelDataType  = "DATA_TYPE"
	labelFillValue = "MISSING_CONSTANT"
	labelStartTime = "START_TIME"
	labelStopTime  = "STOP_TIME"
	labelTimeType  = "TIME"
)

// labelColumnDesc describes one column of a labeled data table.
type labelColumnDesc struct {
	Name      string
	Unit      string
	DataType  string
	FillValue *float64
}

// label is the parsed subset of a PDS label.
type label struct {
	Columns   []labelColumnDesc
	StartTime string
	StopTime  string
}

// timeColumn returns the index of the time column, or -1 if the label
// declares none.
func (l *label) timeColumn() int {
	for i, c := range l.Columns {
		if c.DataType == labelTimeType {
			return i
		}
	}
	return -1
}

// parseLabel reads a PDS-style label.
func parseLabel(r io.Reader) (*label, error) {
	l := new(label)
	var col *labelColumnDesc

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "/*") {
			continue
		}
		if line == labelEnd {
			break
		}
		key, value, ok := splitAssignment(line)
		if !ok {
			continue
		}
		switch key {
		case labelObject:
			if value == labelColumn {
				col = new(labelColumnDesc)
			}
		case labelEndObject:
			if col != nil && (value == labelColumn || value == "") {
				l.Columns = append(l.Columns, *col)
				col = nil
			}
		case labelName:
			if col != nil {
				col.Name = value
			}
		case labelUnit:
			if col != nil {
				col.Unit = value
			}
		case labelDataType:
			if col != nil {
				col.DataType = value
			}
		case labelFillValue:
			if col != nil {
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					col.FillValue = &f
				}
			}
		case labelStartTime:
			l.StartTime = value
		case labelStopTime:
			l.StopTime = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("httpindex: reading label: %v", err)
	}
	if len(l.Columns) == 0 {
		return nil, fmt.Errorf("httpindex: label describes no columns")
	}
	return l, nil
}

// splitAssignment splits a `KEY = VALUE` label line, stripping quotes
// around the value.
func splitAssignment(line string) (key, value string, ok bool) {
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	value = strings.Trim(value, "\"")
	return key, value, true
}
