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
	"reflect"
	"sync"
	"testing"
	"time"
)

func derivedFixture() []*DerivedParameter {
	return []*DerivedParameter{
		{
			Parameter: Parameter{ID: "ws_0", Name: "dst_smoothed", Units: "nT"},
			UserID:    "testuser",
			Timestep:  time.Hour,
		},
		{
			Parameter: Parameter{ID: "ws_b_avg", Name: "b_avg", Units: "nT",
				Components: []Component{{Name: "x", Index: 0}, {Name: "y", Index: 1}}},
			UserID:   "testuser",
			Timestep: time.Minute,
		},
	}
}

func TestSessionTokenReuse(t *testing.T) {
	p := &fakeProvider{derived: derivedFixture()}
	s := NewSession(p, Credentials{UserID: "testuser", Password: "pw"}, nil)
	ctx := context.Background()

	tok1, err := s.EnsureToken(ctx)
	if err != nil {
		t.Fatal(err)
	}
	tok2, err := s.EnsureToken(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok1.Value != tok2.Value {
		t.Errorf("token changed from %q to %q within its lifetime", tok1.Value, tok2.Value)
	}
	if p.authCalls != 1 {
		t.Errorf("authenticate was called %d times, want 1", p.authCalls)
	}
}

func TestSessionTokenExpiry(t *testing.T) {
	p := &fakeProvider{derived: derivedFixture()}
	s := NewSession(p, Credentials{UserID: "testuser", Password: "pw"}, nil)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	tok1, err := s.EnsureToken(ctx)
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Hour) // past the fake token lifetime
	tok2, err := s.EnsureToken(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok1.Value == tok2.Value {
		t.Error("expired token was reused")
	}
	if p.authCalls != 2 {
		t.Errorf("authenticate was called %d times, want 2", p.authCalls)
	}
}

func TestSessionConcurrentEnsureToken(t *testing.T) {
	p := &fakeProvider{derived: derivedFixture()}
	s := NewSession(p, Credentials{UserID: "testuser", Password: "pw"}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.EnsureToken(ctx); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if p.authCalls != 1 {
		t.Errorf("authenticate was called %d times, want 1", p.authCalls)
	}
}

func TestSessionBadCredentials(t *testing.T) {
	p := &fakeProvider{derived: derivedFixture()}
	s := NewSession(p, Credentials{UserID: "testuser", Password: "wrong"}, nil)
	_, err := s.ListDerived(context.Background())
	var aErr *AuthenticationError
	if !errors.As(err, &aErr) {
		t.Fatalf("got %v, want AuthenticationError", err)
	}
	if aErr.UserID != "testuser" {
		t.Errorf("error user = %q, want testuser", aErr.UserID)
	}
}

func TestSessionFetchDerived(t *testing.T) {
	p := &fakeProvider{derived: derivedFixture()}
	s := NewSession(p, Credentials{UserID: "testuser", Password: "pw"}, nil)
	ctx := context.Background()

	table, err := s.FetchDerived(ctx, "ws_b_avg", testRange())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b_avg_x", "b_avg_y"}
	if !reflect.DeepEqual(table.Columns, want) {
		t.Errorf("columns = %v, want %v", table.Columns, want)
	}

	var uErr *UnknownIdentifierError
	if _, err := s.FetchDerived(ctx, "ws_missing", testRange()); !errors.As(err, &uErr) {
		t.Fatalf("got %v, want UnknownIdentifierError", err)
	}

	longRange := TimeRange{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Stop:  time.Date(2060, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	var lErr *LargeTimePeriodError
	if _, err := s.FetchDerived(ctx, "ws_0", longRange); !errors.As(err, &lErr) {
		t.Fatalf("got %v, want LargeTimePeriodError", err)
	}
}
