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
	"time"
)

// Credentials identify a provider user account.
type Credentials struct {
	UserID   string
	Password string
}

// A Token is a bearer token with a finite lifetime, attached to requests
// for private data.
type Token struct {
	Value   string
	Expires time.Time
}

// Valid reports whether the token exists and has not expired at time now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.Expires)
}

// A Provider is a remote data source exposing a hierarchical catalog and
// payload retrieval. Implementations hide whether retrieval is a direct
// download or an asynchronous job behind a single blocking call; transport
// retries and job polling happen inside the implementation and nowhere
// above it. All methods honor cancellation of the passed context.
type Provider interface {
	// Name identifies the provider, e.g. "AMDA".
	Name() string

	// ListCatalog retrieves the full catalog tree: metadata only, no
	// time-series values.
	ListCatalog(ctx context.Context) ([]*Mission, error)

	// FetchPayload retrieves the time-indexed values for the dataset or
	// parameter with the given identifier. kind selects between dataset
	// and parameter retrieval. auth may be nil for public data. columns
	// gives the expected value column names in order; the provider may
	// use it when the payload itself does not carry names.
	FetchPayload(ctx context.Context, kind Kind, id string, r TimeRange, columns []string, auth *Token) (*Table, error)

	// Authenticate exchanges credentials for a bearer token.
	Authenticate(ctx context.Context, creds Credentials) (Token, error)

	// MaxTimeSpan returns the longest time range the provider accepts in
	// a single payload request.
	MaxTimeSpan() time.Duration
}

// A DerivedProvider additionally exposes a user's private derived
// parameters. The token must come from Authenticate on the same provider.
type DerivedProvider interface {
	Provider

	// ListDerived retrieves the descriptors of the user's derived
	// parameters.
	ListDerived(ctx context.Context, creds Credentials, auth Token) ([]*DerivedParameter, error)

	// FetchDerived retrieves the payload of one derived parameter.
	FetchDerived(ctx context.Context, creds Credentials, auth Token, id string, r TimeRange, columns []string) (*Table, error)
}
