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

package amda

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spacephys/heliocat"
)

// Result files are whitespace-separated ASCII tables: `#` comment lines,
// one `# DATA_COLUMNS : ` header naming the columns (AMDA_TIME first),
// then one row per sample with an ISO8601 time followed by the values.

const dataColumnsPrefix = "# DATA_COLUMNS : "

var payloadTimeFormats = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
}

// parsePayload reads a result file into a table. columns, when non-nil,
// overrides the column names found in the DATA_COLUMNS header (the time
// column is implied and not listed). fill, when non-nil, is the provider's
// missing-sample sentinel; matching values become NaN.
func parsePayload(r io.Reader, columns []string, fill *float64) (*heliocat.Table, error) {
	var times []time.Time
	var rows [][]float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if columns == nil && strings.HasPrefix(line, dataColumnsPrefix) {
				columns = headerColumns(line)
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("amda: payload row %q has no values", line)
		}
		t, err := parsePayloadTime(fields[0])
		if err != nil {
			return nil, fmt.Errorf("amda: payload row has bad time %q: %v", fields[0], err)
		}
		row := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("amda: payload row has bad value %q: %v", f, err)
			}
			if fill != nil && v == *fill {
				v = math.NaN()
			}
			row[i] = v
		}
		times = append(times, t)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("amda: reading payload: %v", err)
	}

	if columns == nil {
		return nil, fmt.Errorf("amda: payload carries no DATA_COLUMNS header and no column names were supplied")
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("amda: payload row %d has %d values for %d columns", i, len(row), len(columns))
		}
	}

	table := heliocat.NewTable(columns, times)
	for i, row := range rows {
		for j, v := range row {
			table.Set(v, i, j)
		}
	}
	return table, nil
}

// headerColumns parses the DATA_COLUMNS comment into value column names,
// dropping the leading time column.
func headerColumns(line string) []string {
	names := strings.Split(strings.TrimPrefix(line, dataColumnsPrefix), ", ")
	var columns []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "AMDA_TIME" || n == "Time" || n == "" {
			continue
		}
		columns = append(columns, n)
	}
	return columns
}

func parsePayloadTime(s string) (time.Time, error) {
	var err error
	for _, f := range payloadTimeFormats {
		var t time.Time
		if t, err = time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
