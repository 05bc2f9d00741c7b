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
	"sync"
)

// A Catalog mirrors a provider's catalog tree in memory. It is built by a
// single full traversal of the provider's listing on first access and then
// queried repeatedly without re-fetching. Construction is atomic under
// concurrent first access: exactly one ListCatalog call is issued, and no
// caller ever observes a partially built tree. After construction the
// catalog is read-only and safe for concurrent readers.
type Catalog struct {
	provider Provider

	once     sync.Once
	buildErr error
	missions []*Mission
	registry *Registry
	byID     map[string]interface{} // dataset and parameter descriptors
}

// NewCatalog creates a catalog backed by p. No network traffic happens
// until the first query.
func NewCatalog(p Provider) *Catalog {
	return &Catalog{provider: p}
}

// build performs the one-time catalog fetch and indexing.
func (c *Catalog) build(ctx context.Context) error {
	c.once.Do(func() {
		missions, err := c.provider.ListCatalog(ctx)
		if err != nil {
			c.buildErr = err
			return
		}
		c.buildErr = c.index(missions)
	})
	return c.buildErr
}

// index registers every descriptor in the tree and records the id lookup
// table. Identifier collisions surface as DuplicateIdentifierError wrapped
// in a CollectionRetrievalError, since they indicate a malformed catalog.
func (c *Catalog) index(missions []*Mission) error {
	reg := NewRegistry()
	byID := make(map[string]interface{})
	for _, m := range missions {
		if err := reg.Register(KindMission, m.ID, "", m); err != nil {
			return &CollectionRetrievalError{Provider: c.provider.Name(), Err: err}
		}
		for _, in := range m.Instruments {
			if err := reg.Register(KindInstrument, in.ID, m.ID, in); err != nil {
				return &CollectionRetrievalError{Provider: c.provider.Name(), Err: err}
			}
			for _, d := range in.Datasets {
				if err := reg.Register(KindDataset, d.ID, "", d); err != nil {
					return &CollectionRetrievalError{Provider: c.provider.Name(), Err: err}
				}
				byID[d.ID] = d
				for _, p := range d.Parameters {
					if err := reg.Register(KindParameter, p.ID, "", p); err != nil {
						return &CollectionRetrievalError{Provider: c.provider.Name(), Err: err}
					}
					byID[p.ID] = p
				}
			}
		}
	}
	c.missions = missions
	c.registry = reg
	c.byID = byID
	return nil
}

// Missions returns the catalog's missions in provider order. The order is
// stable across calls within a session.
func (c *Catalog) Missions(ctx context.Context) ([]*Mission, error) {
	if err := c.build(ctx); err != nil {
		return nil, err
	}
	return c.missions, nil
}

// Instruments returns the instruments of the named mission.
func (c *Catalog) Instruments(ctx context.Context, missionID string) ([]*Instrument, error) {
	if err := c.build(ctx); err != nil {
		return nil, err
	}
	m, err := c.registry.Resolve(KindMission, missionID)
	if err != nil {
		return nil, &UnknownMissionError{ID: missionID}
	}
	return m.(*Mission).Instruments, nil
}

// Datasets returns an iterator over dataset descriptors, optionally
// filtered by mission and/or instrument id. Empty filter strings match
// everything. Each call produces a fresh iteration position.
func (c *Catalog) Datasets(ctx context.Context, missionID, instrumentID string) (*DatasetIter, error) {
	if err := c.build(ctx); err != nil {
		return nil, err
	}
	if missionID != "" {
		if _, err := c.registry.Resolve(KindMission, missionID); err != nil {
			return nil, &UnknownMissionError{ID: missionID}
		}
	}
	return &DatasetIter{missions: c.missions, missionID: missionID, instrumentID: instrumentID}, nil
}

// Find returns the dataset or parameter descriptor with the given id,
// bypassing hierarchy filters.
func (c *Catalog) Find(ctx context.Context, id string) (interface{}, error) {
	if err := c.build(ctx); err != nil {
		return nil, err
	}
	if d, ok := c.byID[id]; ok {
		return d, nil
	}
	return nil, &UnknownIdentifierError{Kind: KindDataset, ID: id}
}

// FindDataset returns the dataset descriptor with the given id.
func (c *Catalog) FindDataset(ctx context.Context, id string) (*Dataset, error) {
	desc, err := c.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	d, ok := desc.(*Dataset)
	if !ok {
		return nil, &UnknownIdentifierError{Kind: KindDataset, ID: id}
	}
	return d, nil
}

// FindParameter returns the parameter descriptor with the given id.
func (c *Catalog) FindParameter(ctx context.Context, id string) (*Parameter, error) {
	desc, err := c.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	p, ok := desc.(*Parameter)
	if !ok {
		return nil, &UnknownIdentifierError{Kind: KindParameter, ID: id}
	}
	return p, nil
}

// Registry exposes the identifier registry built from the catalog, for
// callers that resolve identifiers directly.
func (c *Catalog) Registry(ctx context.Context) (*Registry, error) {
	if err := c.build(ctx); err != nil {
		return nil, err
	}
	return c.registry, nil
}

// A DatasetIter walks dataset descriptors lazily in catalog order. It is
// not safe for concurrent use; create one iterator per goroutine.
type DatasetIter struct {
	missions     []*Mission
	missionID    string
	instrumentID string
	mi, ii, di   int
}

// Next returns the next matching dataset descriptor, or nil when the
// iteration is exhausted.
func (it *DatasetIter) Next() *Dataset {
	for ; it.mi < len(it.missions); it.mi, it.ii, it.di = it.mi+1, 0, 0 {
		m := it.missions[it.mi]
		if it.missionID != "" && m.ID != it.missionID {
			continue
		}
		for ; it.ii < len(m.Instruments); it.ii, it.di = it.ii+1, 0 {
			in := m.Instruments[it.ii]
			if it.instrumentID != "" && in.ID != it.instrumentID {
				continue
			}
			if it.di < len(in.Datasets) {
				d := in.Datasets[it.di]
				it.di++
				return d
			}
		}
	}
	return nil
}

// All drains the iterator into a slice.
func (it *DatasetIter) All() []*Dataset {
	var out []*Dataset
	for d := it.Next(); d != nil; d = it.Next() {
		out = append(out, d)
	}
	return out
}
