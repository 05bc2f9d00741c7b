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

// Package httpindex implements a heliocat provider for data archives
// published as plain HTML directory indexes, such as the PDS Planetary
// Plasma Interactions node. The archive layout is assumed to be
// mission/instrument/dataset directories, each dataset directory holding
// one PDS-style label file describing the columns of its data tables.
// Retrieval is synchronous: files are downloaded directly, with transport
// retries but no server-side jobs.
package httpindex

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spacephys/heliocat"
)

// DefaultRoot is the PDS Planetary Plasma Interactions data index.
const DefaultRoot = "https://pds-ppi.igpp.ucla.edu/data"

var dataTimeFormats = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// Config holds provider options. The zero value reads the PDS index.
type Config struct {
	// Root is the index root URL.
	Root string

	// ProviderName labels the provider in errors and logs. The default
	// is "PDS".
	ProviderName string

	// MaxTimeSpan is the longest range accepted for one payload request.
	// The default is five years.
	MaxTimeSpan time.Duration

	// MaxRetries bounds transport-level retries per request. The default
	// is 3.
	MaxRetries int

	// Log receives provider logging. Nil means the logrus standard
	// logger.
	Log *logrus.Logger
}

// Provider implements heliocat.Provider over an HTML data index.
type Provider struct {
	cfg   Config
	index *indexClient
	log   *logrus.Logger

	mx     sync.Mutex
	dirs   map[string]string // dataset id -> directory URL
	labels map[string]*label // dataset id -> parsed label
}

var _ heliocat.Provider = (*Provider)(nil)

// New creates a provider for the index at cfg.Root. cfg may be nil for
// defaults.
func New(cfg *Config) *Provider {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.ProviderName == "" {
		c.ProviderName = "PDS"
	}
	if c.MaxTimeSpan == 0 {
		c.MaxTimeSpan = 5 * 365 * 24 * time.Hour
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return &Provider{
		cfg:    c,
		index:  &indexClient{hc: http.DefaultClient, maxRetries: uint64(c.MaxRetries)},
		log:    c.Log,
		dirs:   make(map[string]string),
		labels: make(map[string]*label),
	}
}

// Name implements heliocat.Provider.
func (p *Provider) Name() string { return p.cfg.ProviderName }

// MaxTimeSpan implements heliocat.Provider.
func (p *Provider) MaxTimeSpan() time.Duration { return p.cfg.MaxTimeSpan }

// Authenticate implements heliocat.Provider. Index archives are public;
// there is no credential exchange.
func (p *Provider) Authenticate(ctx context.Context, creds heliocat.Credentials) (heliocat.Token, error) {
	return heliocat.Token{}, &heliocat.AuthenticationError{
		Provider: p.Name(),
		UserID:   creds.UserID,
		Err:      fmt.Errorf("httpindex: the archive is public and has no authentication endpoint"),
	}
}

// ListCatalog implements heliocat.Provider. The first index level names
// missions, the second instruments, the third datasets. Each dataset
// directory's label is read to describe its parameters and coverage.
func (p *Provider) ListCatalog(ctx context.Context) ([]*heliocat.Mission, error) {
	missionLinks, err := p.index.links(ctx, p.cfg.Root)
	if err != nil {
		return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
	}
	var missions []*heliocat.Mission
	for _, ml := range missionLinks {
		if !isDir(ml) {
			continue
		}
		mission := &heliocat.Mission{ID: strings.TrimRight(ml, "/"), Name: strings.TrimRight(ml, "/")}
		missionURL := joinURL(p.cfg.Root, ml)
		instrumentLinks, err := p.index.links(ctx, missionURL)
		if err != nil {
			return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
		}
		for _, il := range instrumentLinks {
			if !isDir(il) {
				continue
			}
			instrument := &heliocat.Instrument{
				ID:        strings.TrimRight(il, "/"),
				Name:      strings.TrimRight(il, "/"),
				MissionID: mission.ID,
			}
			instrumentURL := joinURL(missionURL, il)
			datasetLinks, err := p.index.links(ctx, instrumentURL)
			if err != nil {
				return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
			}
			for _, dl := range datasetLinks {
				if !isDir(dl) {
					continue
				}
				ds, err := p.describeDataset(ctx, mission.ID, instrument.ID, strings.TrimRight(dl, "/"), joinURL(instrumentURL, dl))
				if err != nil {
					return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
				}
				if ds != nil {
					instrument.Datasets = append(instrument.Datasets, ds)
				}
			}
			mission.Instruments = append(mission.Instruments, instrument)
		}
		missions = append(missions, mission)
	}
	p.log.WithFields(logrus.Fields{
		"provider": p.Name(),
		"missions": len(missions),
	}).Debug("catalog listed")
	return missions, nil
}

// describeDataset reads a dataset directory's label and builds its
// descriptor. Directories without a label file hold no tabular data and
// are skipped.
func (p *Provider) describeDataset(ctx context.Context, missionID, instrumentID, dirName, dirURL string) (*heliocat.Dataset, error) {
	labelURL, _, err := p.datasetFiles(ctx, dirURL)
	if err != nil {
		return nil, err
	}
	if labelURL == "" {
		return nil, nil
	}
	body, err := p.index.get(ctx, labelURL)
	if err != nil {
		return nil, err
	}
	lbl, err := parseLabel(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpindex: label %s: %v", labelURL, err)
	}

	// Path-joined ids keep dataset ids globally unique even when archive
	// directory names repeat across instruments.
	id := missionID + "/" + instrumentID + "/" + dirName
	ds := &heliocat.Dataset{
		ID:           id,
		Name:         dirName,
		MissionID:    missionID,
		InstrumentID: instrumentID,
	}
	if t, err := parseDataTime(lbl.StartTime); err == nil {
		ds.Start = t
	}
	if t, err := parseDataTime(lbl.StopTime); err == nil {
		ds.Stop = t
	}
	timeCol := lbl.timeColumn()
	for i, col := range lbl.Columns {
		if i == timeCol {
			continue
		}
		ds.Parameters = append(ds.Parameters, &heliocat.Parameter{
			ID:        id + ":" + col.Name,
			Name:      col.Name,
			Units:     col.Unit,
			DatasetID: id,
			FillValue: col.FillValue,
		})
	}

	p.mx.Lock()
	p.dirs[id] = dirURL
	p.labels[id] = lbl
	p.mx.Unlock()
	return ds, nil
}

// datasetFiles lists a dataset directory, returning its label URL (empty
// if none) and its data file URLs.
func (p *Provider) datasetFiles(ctx context.Context, dirURL string) (labelURL string, dataURLs []string, err error) {
	links, err := p.index.links(ctx, dirURL)
	if err != nil {
		return "", nil, err
	}
	for _, l := range links {
		switch {
		case isDir(l):
		case strings.HasSuffix(strings.ToLower(l), ".lbl"):
			if labelURL == "" {
				labelURL = joinURL(dirURL, l)
			}
		case strings.HasSuffix(strings.ToLower(l), ".tab"):
			dataURLs = append(dataURLs, joinURL(dirURL, l))
		}
	}
	return labelURL, dataURLs, nil
}

// FetchPayload implements heliocat.Provider. Dataset payloads concatenate
// every data file in the dataset directory and keep the rows within r;
// parameter payloads additionally reduce to the parameter's column.
func (p *Provider) FetchPayload(ctx context.Context, kind heliocat.Kind, id string, r heliocat.TimeRange, columns []string, auth *heliocat.Token) (*heliocat.Table, error) {
	if err := r.Valid(); err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	if r.Span() > p.cfg.MaxTimeSpan {
		return nil, &heliocat.LargeTimePeriodError{ID: id, Range: r, Max: p.cfg.MaxTimeSpan}
	}

	datasetID := id
	if kind == heliocat.KindParameter {
		if i := strings.LastIndex(id, ":"); i >= 0 {
			datasetID = id[:i]
		}
	}
	dirURL, lbl, err := p.datasetInfo(ctx, datasetID)
	if err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}

	_, dataURLs, err := p.datasetFiles(ctx, dirURL)
	if err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	if len(dataURLs) == 0 {
		return nil, p.downloadError(kind, id, r, fmt.Errorf("httpindex: dataset %s has no data files", datasetID))
	}

	table, err := p.readTable(ctx, lbl, dataURLs, r)
	if err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	if kind == heliocat.KindParameter && columns != nil {
		table, err = table.Select(columns...)
		if err != nil {
			return nil, p.downloadError(kind, id, r, err)
		}
	}
	p.log.WithFields(logrus.Fields{
		"provider": p.Name(),
		"id":       id,
		"rows":     table.Rows(),
	}).Debug("payload fetched")
	return table, nil
}

// datasetInfo returns the directory URL and label for a dataset id,
// listing the catalog first if this provider instance has not yet seen
// the id.
func (p *Provider) datasetInfo(ctx context.Context, datasetID string) (string, *label, error) {
	p.mx.Lock()
	dirURL, ok := p.dirs[datasetID]
	lbl := p.labels[datasetID]
	p.mx.Unlock()
	if ok {
		return dirURL, lbl, nil
	}
	if _, err := p.ListCatalog(ctx); err != nil {
		return "", nil, err
	}
	p.mx.Lock()
	dirURL, ok = p.dirs[datasetID]
	lbl = p.labels[datasetID]
	p.mx.Unlock()
	if !ok {
		return "", nil, &heliocat.UnknownIdentifierError{Kind: heliocat.KindDataset, ID: datasetID}
	}
	return dirURL, lbl, nil
}

// readTable downloads and parses data files, keeping rows within r.
func (p *Provider) readTable(ctx context.Context, lbl *label, dataURLs []string, r heliocat.TimeRange) (*heliocat.Table, error) {
	timeCol := lbl.timeColumn()
	if timeCol < 0 {
		return nil, fmt.Errorf("httpindex: label declares no TIME column")
	}
	var columns []string
	var fills []*float64
	for i, c := range lbl.Columns {
		if i == timeCol {
			continue
		}
		columns = append(columns, c.Name)
		fills = append(fills, c.FillValue)
	}

	var times []time.Time
	var rows [][]float64
	for _, u := range dataURLs {
		body, err := p.index.get(ctx, u)
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(bytes.NewReader(body))
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		for scanner.Scan() {
			fields := strings.Fields(strings.TrimSpace(scanner.Text()))
			if len(fields) != len(lbl.Columns) {
				continue
			}
			t, err := parseDataTime(fields[timeCol])
			if err != nil || !r.Contains(t) {
				continue
			}
			row := make([]float64, 0, len(columns))
			bad := false
			k := 0
			for i, f := range fields {
				if i == timeCol {
					continue
				}
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					bad = true
					break
				}
				if fills[k] != nil && v == *fills[k] {
					v = math.NaN()
				}
				row = append(row, v)
				k++
			}
			if bad {
				continue
			}
			times = append(times, t)
			rows = append(rows, row)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("httpindex: reading %s: %v", u, err)
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

func (p *Provider) downloadError(kind heliocat.Kind, id string, r heliocat.TimeRange, err error) error {
	if kind == heliocat.KindDataset {
		return &heliocat.DatasetDownloadError{ID: id, Range: r, Err: err}
	}
	return &heliocat.ParameterDownloadError{ID: id, Range: r, Err: err}
}

func parseDataTime(s string) (time.Time, error) {
	var err error
	for _, f := range dataTimeFormats {
		var t time.Time
		if t, err = time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("httpindex: empty time")
	}
	return time.Time{}, err
}
