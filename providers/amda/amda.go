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

// Package amda implements the heliocat provider adapter for the AMDA
// heliophysics database operated by CDPP/IRAP
// (http://amda.irap.omp.eu/help/apidoc/). Short extractions are served
// synchronously; long ones run as server-side batch jobs that the adapter
// polls to completion behind a single blocking FetchPayload call.
package amda

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/spacephys/heliocat"
)

// DefaultEntryPoint is the public AMDA REST entry point.
const DefaultEntryPoint = "http://amda.irap.omp.eu/php/rest/"

const requestDateFormat = "2006-01-02T15:04:05"

// Config holds AMDA adapter options. The zero value uses the public entry
// point with the defaults below.
type Config struct {
	// EntryPoint overrides the REST entry point, e.g. for a mirror or a
	// test server.
	EntryPoint string

	// MaxTimeSpan is the longest range accepted for one payload request.
	// AMDA has no published limit; the default is ten years.
	MaxTimeSpan time.Duration

	// TokenLifetime is how long an acquired API token is reused before a
	// new one is requested. The default is one hour.
	TokenLifetime time.Duration

	// PollInterval is the initial interval between batch job status
	// polls; the interval backs off exponentially. The default is five
	// seconds.
	PollInterval time.Duration

	// MaxPollAttempts bounds the number of status polls before the job
	// is reported failed. The default is 20.
	MaxPollAttempts int

	// MaxRetries bounds transport-level retries per request. The default
	// is 3.
	MaxRetries int

	// Log receives adapter logging. Nil means the logrus standard
	// logger.
	Log *logrus.Logger
}

// Provider implements heliocat.Provider and heliocat.DerivedProvider
// against AMDA.
type Provider struct {
	cfg  Config
	rest *restClient
	log  *logrus.Logger
}

var _ heliocat.DerivedProvider = (*Provider)(nil)

// New creates an AMDA provider. cfg may be nil for defaults.
func New(cfg *Config) *Provider {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.EntryPoint == "" {
		c.EntryPoint = DefaultEntryPoint
	}
	if c.MaxTimeSpan == 0 {
		c.MaxTimeSpan = 10 * 365 * 24 * time.Hour
	}
	if c.TokenLifetime == 0 {
		c.TokenLifetime = time.Hour
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPollAttempts == 0 {
		c.MaxPollAttempts = 20
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return &Provider{
		cfg:  c,
		rest: &restClient{entryPoint: c.EntryPoint, hc: http.DefaultClient, maxRetries: uint64(c.MaxRetries)},
		log:  c.Log,
	}
}

// Name implements heliocat.Provider.
func (p *Provider) Name() string { return "AMDA" }

// MaxTimeSpan implements heliocat.Provider.
func (p *Provider) MaxTimeSpan() time.Duration { return p.cfg.MaxTimeSpan }

// IsAlive reports whether the AMDA web services respond.
func (p *Provider) IsAlive(ctx context.Context) (bool, error) {
	return p.rest.isAlive(ctx)
}

// ListCatalog implements heliocat.Provider. The observatory tree document
// is fetched and parsed in full; failures of either step are reported as
// CollectionRetrievalError.
func (p *Provider) ListCatalog(ctx context.Context) ([]*heliocat.Mission, error) {
	treeURL, err := p.rest.obsDataTreeURL(ctx)
	if err != nil {
		return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
	}
	doc, err := p.rest.getURL(ctx, treeURL)
	if err != nil {
		return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
	}
	missions, err := parseObsTree(doc)
	if err != nil {
		return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
	}
	p.log.WithFields(logrus.Fields{
		"provider": p.Name(),
		"missions": len(missions),
	}).Debug("catalog listed")
	return missions, nil
}

// Authenticate implements heliocat.Provider. AMDA issues API tokens
// without credentials; when credentials are supplied they are verified by
// requesting the user's parameter listing, so that bad credentials
// surface here rather than on the first data request.
func (p *Provider) Authenticate(ctx context.Context, creds heliocat.Credentials) (heliocat.Token, error) {
	value, err := p.rest.authToken(ctx)
	if err != nil {
		return heliocat.Token{}, &heliocat.AuthenticationError{Provider: p.Name(), UserID: creds.UserID, Err: err}
	}
	if creds.UserID != "" {
		if _, err := p.rest.parameterListURL(ctx, creds.UserID, creds.Password, false); err != nil {
			return heliocat.Token{}, &heliocat.AuthenticationError{Provider: p.Name(), UserID: creds.UserID, Err: err}
		}
	}
	return heliocat.Token{Value: value, Expires: time.Now().Add(p.cfg.TokenLifetime)}, nil
}

// FetchPayload implements heliocat.Provider.
func (p *Provider) FetchPayload(ctx context.Context, kind heliocat.Kind, id string, r heliocat.TimeRange, columns []string, auth *heliocat.Token) (*heliocat.Table, error) {
	return p.fetch(ctx, kind, id, r, columns, auth, heliocat.Credentials{}, nil)
}

// ListDerived implements heliocat.DerivedProvider.
func (p *Provider) ListDerived(ctx context.Context, creds heliocat.Credentials, auth heliocat.Token) ([]*heliocat.DerivedParameter, error) {
	listURL, err := p.rest.parameterListURL(ctx, creds.UserID, creds.Password, false)
	if err != nil {
		return nil, &heliocat.AuthenticationError{Provider: p.Name(), UserID: creds.UserID, Err: err}
	}
	doc, err := p.rest.getURL(ctx, listURL)
	if err != nil {
		return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
	}
	return parseDerivedList(doc, creds.UserID)
}

// FetchDerived implements heliocat.DerivedProvider.
func (p *Provider) FetchDerived(ctx context.Context, creds heliocat.Credentials, auth heliocat.Token, id string, r heliocat.TimeRange, columns []string) (*heliocat.Table, error) {
	return p.fetch(ctx, heliocat.KindParameter, id, r, columns, &auth, creds, nil)
}

/// fetch drives one extraction: request, optional status polling, result
// download, parse. fill overrides the missing-sample sentinel.
func (p *Provider) fetch(ctx context.Context, kind heliocat.Kind, id string, r heliocat.TimeRange, columns []string, auth *heliocat.Token, creds heliocat.Credentials, fill *float64) (*heliocat.Table, error) {
	if err := r.Valid(); err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	if r.Span() > p.cfg.MaxTimeSpan {
		return nil, &heliocat.LargeTimePeriodError{ID: id, Range: r, Max: p.cfg.MaxTimeSpan}
	}

	token := ""
	if auth != nil {
		token = auth.Value
	} else {
		t, err := p.rest.authToken(ctx)
		if err != nil {
			return nil, p.downloadError(kind, id, r, err)
		}
		token = t
	}

	params := url.Values{
		"token":     {token},
		"startTime": {r.Start.UTC().Format(requestDateFormat)},
		"stopTime":  {r.Stop.UTC().Format(requestDateFormat)},
	}
	method := "getParameter.php"
	if kind == heliocat.KindDataset {
		method = "getDataset.php"
		params.Set("datasetID", id)
	} else {
		params.Set("parameterID", id)
	}
	if creds.UserID != "" {
		params.Set("userID", creds.UserID)
		params.Set("password", creds.Password)
	}

	resp, err := p.rest.getJSON(ctx, method, params)
	if err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	if !resp.Success {
		return nil, p.downloadError(kind, id, r, fmt.Errorf("amda: server refused the request: %s", resp.Message))
	}

	fileURL := resp.DataFileURLs
	if resp.Status == statusInProgress {
		fileURL, err = p.pollStatus(ctx, id, resp.ID)
		if err != nil {
			var psErr *heliocat.ProcessStatusError
			if errors.As(err, &psErr) {
				return nil, err
			}
			return nil, p.downloadError(kind, id, r, err)
		}
	}
	if fileURL == "" {
		return nil, p.downloadError(kind, id, r, fmt.Errorf("amda: server returned no result file URL"))
	}

	body, err := p.rest.getURL(ctx, fileURL)
	if err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	table, err := parsePayload(bytes.NewReader(body), columns, fill)
	if err != nil {
		return nil, p.downloadError(kind, id, r, err)
	}
	p.log.WithFields(logrus.Fields{
		"provider": p.Name(),
		"id":       id,
		"rows":     table.Rows(),
	}).Debug("payload fetched")
	return table, nil
}

// errJobInProgress marks a status poll that found the job still running.
var errJobInProgress = errors.New("amda: extraction job still in progress")

// pollStatus polls getStatus.php for a batch job until it yields a result
// file URL. Poll intervals back off exponentially; the caller's context
// deadline is honored at every iteration, and a job that does not finish
// within the bounded attempts ends in ProcessStatusError. Transport
// failures while polling are returned unchanged for the caller to
// classify; ProcessStatusError is reserved for what the server reports
// about the job itself.
func (p *Provider) pollStatus(ctx context.Context, id, processID string) (string, error) {
	var fileURL string
	attempts := 0
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		resp, err := p.rest.getJSON(ctx, "getStatus.php", url.Values{"id": {processID}})
		if err != nil {
			return backoff.Permanent(err)
		}
		if !resp.Success {
			return backoff.Permanent(&heliocat.ProcessStatusError{ID: id, ProcessID: processID, Status: resp.Message})
		}
		if resp.Status == statusInProgress {
			p.log.WithFields(logrus.Fields{
				"id":      id,
				"process": processID,
				"attempt": attempts,
			}).Debug("extraction job still in progress")
			return errJobInProgress
		}
		if resp.DataFileURLs == "" {
			return backoff.Permanent(&heliocat.ProcessStatusError{ID: id, ProcessID: processID, Status: resp.Status})
		}
		fileURL = resp.DataFileURLs
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.PollInterval
	b.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.MaxPollAttempts)), ctx))
	var psErr *heliocat.ProcessStatusError
	switch {
	case err == nil:
		return fileURL, nil
	case errors.As(err, &psErr):
		return "", psErr
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, errJobInProgress):
		// The bounded attempts ran out with the job still running.
		return "", &heliocat.ProcessStatusError{ID: id, ProcessID: processID, Status: statusInProgress}
	default:
		return "", err
	}
}

// GetTimeTable retrieves the contents of a time table (a list of named
// time intervals). creds may be zero to search the shared tables.
func (p *Provider) GetTimeTable(ctx context.Context, ttID string, creds heliocat.Credentials) ([]heliocat.TimeRange, error) {
	doc, err := p.rest.timeTable(ctx, ttID, creds.UserID, creds.Password)
	if err != nil {
		return nil, &heliocat.CollectionRetrievalError{Provider: p.Name(), Err: err}
	}
	return parseTimeTable(doc)
}

func (p *Provider) downloadError(kind heliocat.Kind, id string, r heliocat.TimeRange, err error) error {
	if kind == heliocat.KindDataset {
		return &heliocat.DatasetDownloadError{ID: id, Range: r, Err: err}
	}
	return &heliocat.ParameterDownloadError{ID: id, Range: r, Err: err}
}

// derivedListDoc is the XML document listing a user's derived parameters.
type derivedListDoc struct {
	XMLName xml.Name       `xml:"ws"`
	Params  []derivedParam `xml:"paramList>param"`
}

type derivedParam struct {
	ID         string `xml:"id,attr"`
	Name       string `xml:"name,attr"`
	Units      string `xml:"units,attr"`
	BuildChain string `xml:"buildchain,attr"`
	Timestep   string `xml:"timestep,attr"`
}

func parseDerivedList(doc []byte, userID string) ([]*heliocat.DerivedParameter, error) {
	list := new(derivedListDoc)
	if err := xml.Unmarshal(doc, list); err != nil {
		return nil, fmt.Errorf("amda: parsing derived parameter list: %v", err)
	}
	out := make([]*heliocat.DerivedParameter, 0, len(list.Params))
	for _, dp := range list.Params {
		p := &heliocat.DerivedParameter{
			Parameter: heliocat.Parameter{
				ID:    dp.ID,
				Name:  dp.Name,
				Units: dp.Units,
			},
			UserID:     userID,
			BuildChain: dp.BuildChain,
			Timestep:   parseSampling(dp.Timestep),
		}
		if p.ID == "" {
			p.ID = "ws_" + dp.Name
		}
		out = append(out, p)
	}
	return out, nil
}

// timeTableDoc is the XML document behind getTimeTable.php: a list of
// intervals with ISO start and stop attributes.
type timeTableDoc struct {
	XMLName   xml.Name `xml:"timetable"`
	Intervals []struct {
		Start string `xml:"start,attr"`
		Stop  string `xml:"stop,attr"`
	} `xml:"interval"`
}

func parseTimeTable(doc []byte) ([]heliocat.TimeRange, error) {
	tt := new(timeTableDoc)
	if err := xml.Unmarshal(doc, tt); err != nil {
		return nil, fmt.Errorf("amda: parsing time table: %v", err)
	}
	out := make([]heliocat.TimeRange, 0, len(tt.Intervals))
	for _, iv := range tt.Intervals {
		start, err := time.Parse(requestDateFormat, iv.Start)
		if err != nil {
			return nil, fmt.Errorf("amda: time table interval has bad start %q", iv.Start)
		}
		stop, err := time.Parse(requestDateFormat, iv.Stop)
		if err != nil {
			return nil, fmt.Errorf("amda: time table interval has bad stop %q", iv.Stop)
		}
		out = append(out, heliocat.TimeRange{Start: start, Stop: stop})
	}
	return out, nil
}
