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
	"time"

	"github.com/sirupsen/logrus"
)

// A Session wraps a user's credentials and an acquired bearer token for
// access to private derived parameters. Token refresh is serialized: at
// most one authentication request is in flight at a time, and concurrent
// callers reuse the token it produces.
type Session struct {
	provider DerivedProvider
	creds    Credentials
	log      *logrus.Logger

	mx    sync.Mutex
	token Token

	// now is replaceable for tests.
	now func() time.Time
}

// NewSession creates a session for the given user on p. log may be nil.
func NewSession(p DerivedProvider, creds Credentials, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{provider: p, creds: creds, log: log, now: time.Now}
}

// UserID returns the user identifier the session authenticates as.
func (s *Session) UserID() string { return s.creds.UserID }

// EnsureToken returns the cached token if it has not expired, otherwise
// authenticates and caches the new token. AuthenticationError from the
// provider propagates unchanged.
func (s *Session) EnsureToken(ctx context.Context) (Token, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.token.Valid(s.now()) {
		return s.token, nil
	}
	s.log.WithFields(logrus.Fields{
		"provider": s.provider.Name(),
		"user":     s.creds.UserID,
	}).Debug("requesting authentication token")
	token, err := s.provider.Authenticate(ctx, s.creds)
	if err != nil {
		return Token{}, err
	}
	s.token = token
	return token, nil
}

// ListDerived lists the descriptors of the user's derived parameters.
func (s *Session) ListDerived(ctx context.Context) ([]*DerivedParameter, error) {
	token, err := s.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.provider.ListDerived(ctx, s.creds, token)
}

// FetchDerived retrieves the payload of the derived parameter with the
// given id over r. The derived parameter's descriptor supplies the
// expected column names.
func (s *Session) FetchDerived(ctx context.Context, id string, r TimeRange) (*Table, error) {
	if err := r.Valid(); err != nil {
		return nil, err
	}
	if max := s.provider.MaxTimeSpan(); max > 0 && r.Span() > max {
		return nil, &LargeTimePeriodError{ID: id, Range: r, Max: max}
	}
	token, err := s.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}
	var columns []string
	derived, err := s.provider.ListDerived(ctx, s.creds, token)
	if err != nil {
		return nil, err
	}
	for _, d := range derived {
		if d.ID == id {
			columns = d.ColumnNames()
			break
		}
	}
	if columns == nil {
		return nil, &UnknownIdentifierError{Kind: KindParameter, ID: id}
	}
	return s.provider.FetchDerived(ctx, s.creds, token, id, r, columns)
}
