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

// Package heliocat retrieves heliophysics time-series data from remote
// catalog-based providers such as AMDA. It mirrors a provider's
// mission → instrument → dataset → parameter hierarchy in an in-memory
// catalog, resolves identifiers against it, and assembles downloaded
// payloads into time-indexed tables, caching along the way to avoid
// redundant network retrieval.
package heliocat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Stage enumerates the states a retrieval request moves through. Requests
// advance strictly forward; any stage may instead end at StageFailed,
// which is terminal.
type Stage int

const (
	StageRequested Stage = iota
	StageResolved
	StageRangeChecked
	StageFetching
	StageAssembled
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageRequested:
		return "REQUESTED"
	case StageResolved:
		return "RESOLVED"
	case StageRangeChecked:
		return "RANGE_CHECKED"
	case StageFetching:
		return "FETCHING"
	case StageAssembled:
		return "ASSEMBLED"
	case StageDone:
		return "DONE"
	case StageFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Config holds client construction options.
type Config struct {
	// MemCacheSize is the maximum number of payloads cached in memory.
	// Zero means 100.
	MemCacheSize int

	// DiskCachePath, if non-empty, is a directory where payloads are
	// persisted across sessions.
	DiskCachePath string

	// Log receives stage transition and retrieval logging. Nil means the
	// logrus standard logger.
	Log *logrus.Logger
}

// A Client orchestrates retrieval from one provider: it resolves
// identifiers through the catalog, validates time ranges against the
// provider's limits, delegates downloads to the provider through the
// payload cache, and cross-checks assembled results against their catalog
// descriptors. A Client is safe for concurrent use; independent retrievals
// may run concurrently.
type Client struct {
	provider Provider
	catalog  *Catalog
	payloads *PayloadCache
	log      *logrus.Logger
}

// New creates a client for p. cfg may be nil for defaults.
func New(p Provider, cfg *Config) *Client {
	if cfg == nil {
		cfg = new(Config)
	}
	memSize := cfg.MemCacheSize
	if memSize == 0 {
		memSize = 100
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		provider: p,
		catalog:  NewCatalog(p),
		payloads: NewPayloadCache(p, memSize, cfg.DiskCachePath),
		log:      log,
	}
}

// Catalog returns the client's catalog cache.
func (c *Client) Catalog() *Catalog { return c.catalog }

// Provider returns the provider the client retrieves from.
func (c *Client) Provider() Provider { return c.provider }

// A DatasetSeries is a materialized dataset: its catalog descriptor plus
// the time-indexed values for the requested range. The caller owns the
// table; the client keeps no reference to it beyond the payload cache.
type DatasetSeries struct {
	Descriptor *Dataset
	Table      *Table
}

// Parameter returns the materialized series of one parameter of the
// dataset, looked up by parameter id or name.
func (d *DatasetSeries) Parameter(idOrName string) (*ParameterSeries, error) {
	for _, p := range d.Descriptor.Parameters {
		if p.ID == idOrName || p.Name == idOrName {
			t, err := d.Table.Select(p.ColumnNames()...)
			if err != nil {
				return nil, err
			}
			return &ParameterSeries{Descriptor: p, Table: t}, nil
		}
	}
	return nil, &UnknownIdentifierError{Kind: KindParameter, ID: idOrName}
}

// Resample returns a copy of the series resampled to the given period.
// A zero period means the dataset's native period.
func (d *DatasetSeries) Resample(period time.Duration) (*DatasetSeries, error) {
	if period == 0 {
		period = d.nativePeriod()
	}
	t, err := Resample(d.Table, period)
	if err != nil {
		return nil, err
	}
	return &DatasetSeries{Descriptor: d.Descriptor, Table: t}, nil
}

func (d *DatasetSeries) nativePeriod() time.Duration {
	if d.Descriptor.Sampling > 0 {
		return d.Descriptor.Sampling
	}
	return d.Table.NativePeriod()
}

// A ParameterSeries is a materialized parameter: its catalog descriptor
// plus one value column per component.
type ParameterSeries struct {
	Descriptor *Parameter
	Table      *Table
}

// Resample returns a copy of the series resampled to the given period.
// A zero period means the native period of the underlying table. Vector
// components are resampled independently with the same period.
func (p *ParameterSeries) Resample(period time.Duration) (*ParameterSeries, error) {
	if period == 0 {
		period = p.Table.NativePeriod()
	}
	t, err := Resample(p.Table, period)
	if err != nil {
		return nil, err
	}
	return &ParameterSeries{Descriptor: p.Descriptor, Table: t}, nil
}

// retrieval tracks one staged request through the orchestrator state
// machine, logging each transition.
type retrieval struct {
	id    string
	kind  Kind
	stage Stage
	log   *logrus.Logger
}

func (r *retrieval) advance(s Stage) {
	r.stage = s
	r.log.WithFields(logrus.Fields{
		"id":    r.id,
		"kind":  r.kind.String(),
		"stage": s.String(),
	}).Debug("retrieval stage")
}

func (r *retrieval) fail(err error) error {
	r.stage = StageFailed
	r.log.WithFields(logrus.Fields{
		"id":    r.id,
		"kind":  r.kind.String(),
		"stage": StageFailed.String(),
	}).Debug(err)
	return err
}

// GetDataset retrieves the dataset with the given id over r and assembles
// it into a DatasetSeries. A zero r requests the first day of the
// dataset's coverage. The request fails with LargeTimePeriodError before
// any network call if r exceeds the provider's maximum span, and with
// SchemaMismatchError if the downloaded payload does not carry the columns
// the catalog describes. The client never retries a failed request; any
// retrying happens inside the provider's transport logic.
func (c *Client) GetDataset(ctx context.Context, id string, r TimeRange) (*DatasetSeries, error) {
	req := &retrieval{id: id, kind: KindDataset, log: c.log}
	req.advance(StageRequested)

	ds, err := c.catalog.FindDataset(ctx, id)
	if err != nil {
		return nil, req.fail(err)
	}
	req.advance(StageResolved)

	r, err = c.checkRange(req, ds.Coverage(), r)
	if err != nil {
		return nil, err
	}

	req.advance(StageFetching)
	columns := datasetColumns(ds)
	table, err := c.payloads.FetchPayload(ctx, KindDataset, id, r, columns, nil)
	if err != nil {
		return nil, req.fail(err)
	}

	if err := checkSchema(id, columns, table); err != nil {
		return nil, req.fail(err)
	}
	req.advance(StageAssembled)
	req.advance(StageDone)
	return &DatasetSeries{Descriptor: ds, Table: table}, nil
}

// GetParameter retrieves the parameter with the given id over r. A zero r
// requests the first day of the owning dataset's coverage.
func (c *Client) GetParameter(ctx context.Context, id string, r TimeRange) (*ParameterSeries, error) {
	req := &retrieval{id: id, kind: KindParameter, log: c.log}
	req.advance(StageRequested)

	p, err := c.catalog.FindParameter(ctx, id)
	if err != nil {
		return nil, req.fail(err)
	}
	req.advance(StageResolved)

	coverage := TimeRange{}
	if ds, err := c.catalog.FindDataset(ctx, p.DatasetID); err == nil {
		coverage = ds.Coverage()
	}
	r, err = c.checkRange(req, coverage, r)
	if err != nil {
		return nil, err
	}

	req.advance(StageFetching)
	columns := p.ColumnNames()
	table, err := c.payloads.FetchPayload(ctx, KindParameter, id, r, columns, nil)
	if err != nil {
		return nil, req.fail(err)
	}

	if err := checkSchema(id, columns, table); err != nil {
		return nil, req.fail(err)
	}
	req.advance(StageAssembled)
	req.advance(StageDone)
	return &ParameterSeries{Descriptor: p, Table: table}, nil
}

// checkRange validates r against the provider's span limit, substituting
// the first day of coverage when r is zero. It advances the request to
// RANGE_CHECKED on success.
func (c *Client) checkRange(req *retrieval, coverage, r TimeRange) (TimeRange, error) {
	if r.IsZero() {
		if coverage.Start.IsZero() {
			return TimeRange{}, req.fail(&UnknownIdentifierError{Kind: req.kind, ID: req.id})
		}
		r = TimeRange{Start: coverage.Start, Stop: coverage.Start.Add(24 * time.Hour)}
	}
	if err := r.Valid(); err != nil {
		return TimeRange{}, req.fail(err)
	}
	if max := c.provider.MaxTimeSpan(); max > 0 && r.Span() > max {
		return TimeRange{}, req.fail(&LargeTimePeriodError{ID: req.id, Range: r, Max: max})
	}
	req.advance(StageRangeChecked)
	return r, nil
}

// datasetColumns returns the value column names a dataset payload must
// carry, in catalog order.
func datasetColumns(d *Dataset) []string {
	var columns []string
	for _, p := range d.Parameters {
		columns = append(columns, p.ColumnNames()...)
	}
	return columns
}

// checkSchema verifies that the materialized payload carries exactly the
// columns the catalog descriptor promises, in order.
func checkSchema(id string, want []string, t *Table) error {
	if len(t.Columns) != len(want) {
		return &SchemaMismatchError{ID: id, Want: want, Got: t.Columns}
	}
	for i := range want {
		if t.Columns[i] != want[i] {
			return &SchemaMismatchError{ID: id, Want: want, Got: t.Columns}
		}
	}
	return nil
}
