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
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

// fakeProvider serves a small fixed catalog and synthesized hourly
// payloads, counting calls so tests can assert how often the network
// would have been hit.
type fakeProvider struct {
	mx         sync.Mutex
	listCalls  int
	fetchCalls int
	authCalls  int

	listErr  error
	fetchErr error
	maxSpan  time.Duration

	// payloadColumns, if non-nil, overrides the column names of
	// synthesized payloads to provoke schema mismatches.
	payloadColumns []string

	derived []*DerivedParameter
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) MaxTimeSpan() time.Duration {
	if f.maxSpan == 0 {
		return 10 * 365 * 24 * time.Hour
	}
	return f.maxSpan
}

func (f *fakeProvider) ListCatalog(ctx context.Context) ([]*Mission, error) {
	f.mx.Lock()
	f.listCalls++
	f.mx.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return testMissions(), nil
}

func (f *fakeProvider) FetchPayload(ctx context.Context, kind Kind, id string, r TimeRange, columns []string, auth *Token) (*Table, error) {
	f.mx.Lock()
	f.fetchCalls++
	f.mx.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.payloadColumns != nil {
		columns = f.payloadColumns
	}
	return hourlyTable(columns, r), nil
}

func (f *fakeProvider) Authenticate(ctx context.Context, creds Credentials) (Token, error) {
	f.mx.Lock()
	f.authCalls++
	n := f.authCalls
	f.mx.Unlock()
	if creds.Password == "wrong" {
		return Token{}, &AuthenticationError{Provider: f.Name(), UserID: creds.UserID, Err: errors.New("bad password")}
	}
	return Token{Value: fmt.Sprintf("token-%d", n), Expires: time.Now().Add(time.Hour)}, nil
}

func (f *fakeProvider) ListDerived(ctx context.Context, creds Credentials, auth Token) ([]*DerivedParameter, error) {
	return f.derived, nil
}

func (f *fakeProvider) FetchDerived(ctx context.Context, creds Credentials, auth Token, id string, r TimeRange, columns []string) (*Table, error) {
	f.mx.Lock()
	f.fetchCalls++
	f.mx.Unlock()
	return hourlyTable(columns, r), nil
}

/// testMissions builds a catalog containing the tao-ura-sw dataset: seven
// parameters, one of them a two-component vector.
func testMissions() []*Mission {
	params := []*Parameter{
		{ID: "ura_sw_n", Name: "density", Units: "cm^-3", DatasetID: "tao-ura-sw"},
		{ID: "ura_sw_v", Name: "velocity", Units: "km/s", DatasetID: "tao-ura-sw",
			Components: []Component{{Name: "r", Index: 0}, {Name: "t", Index: 1}}},
		{ID: "ura_sw_t", Name: "temperature", Units: "eV", DatasetID: "tao-ura-sw"},
		{ID: "ura_sw_pdyn", Name: "dynamic pressure", Units: "nPa", DatasetID: "tao-ura-sw"},
		{ID: "ura_sw_b", Name: "b tangential", Units: "nT", DatasetID: "tao-ura-sw"},
		{ID: "ura_sw_bx", Name: "b radial", Units: "nT", DatasetID: "tao-ura-sw"},
		{ID: "ura_sw_da", Name: "angle Uranus-Sun-Earth", Units: "deg", DatasetID: "tao-ura-sw"},
	}
	ds := &Dataset{
		ID:           "tao-ura-sw",
		Name:         "SW / Input OMNI",
		MissionID:    "Uranus",
		InstrumentID: "SW",
		Start:        time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		Stop:         time.Date(2021, 2, 19, 0, 0, 0, 0, time.UTC),
		Sampling:     time.Hour,
		Parameters:   params,
	}
	in := &Instrument{ID: "SW", Name: "SW", MissionID: "Uranus", Datasets: []*Dataset{ds}}
	ace := &Instrument{ID: "MAG", Name: "MAG", MissionID: "ACE", Datasets: []*Dataset{
		{
			ID: "ace-mag-all", Name: "MAG", MissionID: "ACE", InstrumentID: "MAG",
			Start: time.Date(1997, 9, 2, 0, 0, 0, 0, time.UTC),
			Parameters: []*Parameter{
				{ID: "imf_mag", Name: "|b|", Units: "nT", DatasetID: "ace-mag-all"},
			},
		},
	}}
	return []*Mission{
		{ID: "Uranus", Name: "Uranus", Instruments: []*Instrument{in}},
		{ID: "ACE", Name: "ACE", Instruments: []*Instrument{ace}},
	}
}

// hourlyTable synthesizes an hourly payload over r with the given
// columns.
func hourlyTable(columns []string, r TimeRange) *Table {
	var times []time.Time
	for t := r.Start; t.Before(r.Stop) || t.Equal(r.Stop); t = t.Add(time.Hour) {
		times = append(times, t)
	}
	table := NewTable(columns, times)
	for i := range times {
		for j := range columns {
			table.Set(float64(i)+float64(j)/10, i, j)
		}
	}
	return table
}

func testRange() TimeRange {
	return TimeRange{
		Start: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		Stop:  time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestGetDataset(t *testing.T) {
	p := new(fakeProvider)
	c := New(p, nil)

	series, err := c.GetDataset(context.Background(), "tao-ura-sw", testRange())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(series.Descriptor.Parameters); got != 7 {
		t.Errorf("got %d parameters, want 7", got)
	}
	n, err := series.Parameter("ura_sw_n")
	if err != nil {
		t.Fatal(err)
	}
	if n.Descriptor.Units != "cm^-3" {
		t.Errorf("ura_sw_n units = %q, want cm^-3", n.Descriptor.Units)
	}
	wantColumns := []string{"density", "velocity_r", "velocity_t", "temperature",
		"dynamic pressure", "b tangential", "b radial", "angle Uranus-Sun-Earth"}
	if !reflect.DeepEqual(series.Table.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", series.Table.Columns, wantColumns)
	}
	if series.Table.Rows() != 25 {
		t.Errorf("rows = %d, want 25", series.Table.Rows())
	}
}

func TestGetDatasetLargeTimePeriod(t *testing.T) {
	p := new(fakeProvider)
	c := New(p, nil)

	r := TimeRange{
		Start: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		Stop:  time.Date(2060, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := c.GetDataset(context.Background(), "tao-ura-sw", r)
	var lpErr *LargeTimePeriodError
	if !errors.As(err, &lpErr) {
		t.Fatalf("got %v, want LargeTimePeriodError", err)
	}
	if lpErr.ID != "tao-ura-sw" {
		t.Errorf("error id = %q, want tao-ura-sw", lpErr.ID)
	}
	if p.fetchCalls != 0 {
		t.Errorf("provider fetch was called %d times, want 0", p.fetchCalls)
	}
}

func TestGetDatasetUnknownID(t *testing.T) {
	c := New(new(fakeProvider), nil)
	_, err := c.GetDataset(context.Background(), "no-such-dataset", testRange())
	var uErr *UnknownIdentifierError
	if !errors.As(err, &uErr) {
		t.Fatalf("got %v, want UnknownIdentifierError", err)
	}
}

func TestGetDatasetSchemaMismatch(t *testing.T) {
	p := &fakeProvider{payloadColumns: []string{"density", "bogus"}}
	c := New(p, nil)
	_, err := c.GetDataset(context.Background(), "tao-ura-sw", testRange())
	var sErr *SchemaMismatchError
	if !errors.As(err, &sErr) {
		t.Fatalf("got %v, want SchemaMismatchError", err)
	}
}

func TestGetDatasetDefaultWindow(t *testing.T) {
	p := new(fakeProvider)
	c := New(p, nil)
	series, err := c.GetDataset(context.Background(), "tao-ura-sw", TimeRange{})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	if !series.Table.Time[0].Equal(want) {
		t.Errorf("first sample at %v, want %v", series.Table.Time[0], want)
	}
	if got := series.Table.Time[len(series.Table.Time)-1]; got.After(want.Add(24 * time.Hour)) {
		t.Errorf("last sample at %v, want within one day of %v", got, want)
	}
}

func TestGetParameter(t *testing.T) {
	p := new(fakeProvider)
	c := New(p, nil)
	series, err := c.GetParameter(context.Background(), "ura_sw_v", testRange())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"velocity_r", "velocity_t"}
	if !reflect.DeepEqual(series.Table.Columns, want) {
		t.Errorf("columns = %v, want %v", series.Table.Columns, want)
	}
}

func TestGetParameterDownloadError(t *testing.T) {
	p := new(fakeProvider)
	p.fetchErr = &ParameterDownloadError{ID: "ura_sw_n", Err: errors.New("connection reset")}
	c := New(p, nil)
	_, err := c.GetParameter(context.Background(), "ura_sw_n", testRange())
	var dErr *ParameterDownloadError
	if !errors.As(err, &dErr) {
		t.Fatalf("got %v, want ParameterDownloadError", err)
	}
}

func TestPayloadCacheAvoidsRefetch(t *testing.T) {
	p := new(fakeProvider)
	c := New(p, nil)
	for i := 0; i < 3; i++ {
		if _, err := c.GetDataset(context.Background(), "tao-ura-sw", testRange()); err != nil {
			t.Fatal(err)
		}
	}
	if p.fetchCalls != 1 {
		t.Errorf("provider fetch was called %d times, want 1", p.fetchCalls)
	}
}

func TestStageString(t *testing.T) {
	stages := map[Stage]string{
		StageRequested:    "REQUESTED",
		StageResolved:     "RESOLVED",
		StageRangeChecked: "RANGE_CHECKED",
		StageFetching:     "FETCHING",
		StageAssembled:    "ASSEMBLED",
		StageDone:         "DONE",
		StageFailed:       "FAILED",
	}
	for s, want := range stages {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
