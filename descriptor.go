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

// Descriptor types mirror the provider catalog: metadata only, no
// time-series values. They are built once per session by the Catalog and
// must not be mutated afterwards.

// A Mission describes a space mission or observatory in the catalog.
type Mission struct {
	ID          string
	Name        string
	Description string
	Instruments []*Instrument
}

// An Instrument describes one instrument of a mission. Its ID is unique
// only within the owning mission.
type Instrument struct {
	ID        string
	Name      string
	MissionID string
	Datasets  []*Dataset
}

// A Dataset describes one dataset: an ordered sequence of parameters
// sharing a time axis. Dataset IDs are unique across the whole catalog.
type Dataset struct {
	ID           string
	Name         string
	MissionID    string
	InstrumentID string

	// Start and Stop bound the available data. A zero Stop means the
	// dataset is still being extended (mission-dependent coverage).
	Start, Stop time.Time

	// Sampling is the native sampling period, or zero if the catalog
	// does not state one.
	Sampling time.Duration

	Parameters []*Parameter
}

// Coverage returns the time range over which data is available. When the
// catalog leaves the stop open, the range extends to the present.
func (d *Dataset) Coverage() TimeRange {
	stop := d.Stop
	if stop.IsZero() {
		stop = time.Now().UTC()
	}
	return TimeRange{Start: d.Start, Stop: stop}
}

func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(id:%s, start:%v, stop:%v, parameters:%d)", d.ID, d.Start, d.Stop, len(d.Parameters))
}

// A Component names one element of a vector or tensor parameter.
type Component struct {
	ID    string
	Name  string
	Index int
}

// A Parameter describes one physical quantity within a dataset. Scalar
// parameters have no components; vector and tensor parameters carry one
// component per column of the materialized payload.
type Parameter struct {
	ID          string
	Name        string
	Units       string
	Description string
	DisplayType string
	DatasetID   string
	Components  []Component

	// FillValue is the provider's missing-sample sentinel, if declared.
	FillValue *float64
}

// Size returns the number of payload columns the parameter occupies: 1 for
// scalars, the component count otherwise.
func (p *Parameter) Size() int {
	if len(p.Components) == 0 {
		return 1
	}
	return len(p.Components)
}

// ColumnNames returns the payload column names for the parameter: its name
// for scalars, name_component for each component otherwise.
func (p *Parameter) ColumnNames() []string {
	if len(p.Components) == 0 {
		return []string{p.Name}
	}
	names := make([]string, len(p.Components))
	for i, c := range p.Components {
		names[i] = fmt.Sprintf("%s_%s", p.Name, c.Name)
	}
	return names
}

func (p *Parameter) String() string {
	return fmt.Sprintf("Parameter(id:%s, name:%s, units:%s, size:%d)", p.ID, p.Name, p.Units, p.Size())
}

// A DerivedParameter is a parameter computed and stored server-side in a
// user's private workspace. It is identified by (UserID, ID) and never
// appears in the public catalog.
type DerivedParameter struct {
	Parameter
	UserID string

	// Timestep is the sampling period declared for the derived series.
	Timestep time.Duration

	// BuildChain is the provider-side expression the parameter is
	// computed from, when the provider reports it.
	BuildChain string
}
