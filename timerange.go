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
	"time"
)

// A TimeRange is a half-open time interval [Start, Stop).
type TimeRange struct {
	Start, Stop time.Time
}

// NewTimeRange returns the range [start, stop), or an error if
// start is not before stop.
func NewTimeRange(start, stop time.Time) (TimeRange, error) {
	r := TimeRange{Start: start, Stop: stop}
	if err := r.Valid(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// Valid returns an error if the range start is not strictly before its stop.
func (r TimeRange) Valid() error {
	if !r.Start.Before(r.Stop) {
		return fmt.Errorf("heliocat: invalid time range: start %v is not before stop %v", r.Start, r.Stop)
	}
	return nil
}

// Span returns the duration covered by the range.
func (r TimeRange) Span() time.Duration { return r.Stop.Sub(r.Start) }

// IsZero reports whether both endpoints are unset.
func (r TimeRange) IsZero() bool { return r.Start.IsZero() && r.Stop.IsZero() }

// Contains reports whether t lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.Stop)
}

// ContainsRange reports whether o lies entirely within the range.
func (r TimeRange) ContainsRange(o TimeRange) bool {
	return !o.Start.Before(r.Start) && !r.Stop.Before(o.Stop)
}

func (r TimeRange) String() string {
	const f = "2006-01-02T15:04:05"
	return fmt.Sprintf("[%s, %s)", r.Start.UTC().Format(f), r.Stop.UTC().Format(f))
}
