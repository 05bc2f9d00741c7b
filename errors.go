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

// AuthenticationError is returned when a provider rejects the supplied
// credentials or its authentication endpoint cannot be reached. It records
// the user identifier but never the credential secret.
type AuthenticationError struct {
	Provider string
	UserID   string
	Err      error
}

func (e *AuthenticationError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("heliocat: authentication with provider %s failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("heliocat: authentication of user %s with provider %s failed: %v", e.UserID, e.Provider, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// CollectionRetrievalError is returned when the provider's catalog listing
// cannot be retrieved or parsed.
type CollectionRetrievalError struct {
	Provider string
	Err      error
}

func (e *CollectionRetrievalError) Error() string {
	return fmt.Sprintf("heliocat: retrieving catalog from provider %s: %v", e.Provider, e.Err)
}

func (e *CollectionRetrievalError) Unwrap() error { return e.Err }

// DatasetDownloadError is returned when a dataset payload cannot be
// downloaded from the provider.
type DatasetDownloadError struct {
	ID    string
	Range TimeRange
	Err   error
}

func (e *DatasetDownloadError) Error() string {
	return fmt.Sprintf("heliocat: downloading dataset %s for %v: %v", e.ID, e.Range, e.Err)
}

func (e *DatasetDownloadError) Unwrap() error { return e.Err }

// ParameterDownloadError is returned when a parameter payload cannot be
// downloaded from the provider.
type ParameterDownloadError struct {
	ID    string
	Range TimeRange
	Err   error
}

func (e *ParameterDownloadError) Error() string {
	return fmt.Sprintf("heliocat: downloading parameter %s for %v: %v", e.ID, e.Range, e.Err)
}

func (e *ParameterDownloadError) Unwrap() error { return e.Err }

// LargeTimePeriodError is returned before any network call when the
// requested time range exceeds the provider's maximum span.
type LargeTimePeriodError struct {
	ID    string
	Range TimeRange
	Max   time.Duration
}

func (e *LargeTimePeriodError) Error() string {
	return fmt.Sprintf("heliocat: requested range %v for %s spans %v which exceeds the provider maximum of %v",
		e.Range, e.ID, e.Range.Span(), e.Max)
}

// ProcessStatusError is returned when a server-side extraction job reports
// failure or does not finish within the allowed number of status polls.
type ProcessStatusError struct {
	ID        string
	ProcessID string
	Status    string
}

func (e *ProcessStatusError) Error() string {
	return fmt.Sprintf("heliocat: extraction job %s for %s ended with status %q", e.ProcessID, e.ID, e.Status)
}

// UnknownIdentifierError is returned when an identifier cannot be resolved
// in the registry or catalog.
type UnknownIdentifierError struct {
	Kind Kind
	ID   string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("heliocat: unknown %s identifier %q", e.Kind, e.ID)
}

// UnknownMissionError is returned when a mission identifier is not present
// in the catalog.
type UnknownMissionError struct {
	ID string
}

func (e *UnknownMissionError) Error() string {
	return fmt.Sprintf("heliocat: unknown mission %q", e.ID)
}

// DuplicateIdentifierError is returned when an identifier is registered
// twice within the same scope.
type DuplicateIdentifierError struct {
	Kind  Kind
	Scope string
	ID    string
}

func (e *DuplicateIdentifierError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("heliocat: duplicate %s identifier %q", e.Kind, e.ID)
	}
	return fmt.Sprintf("heliocat: duplicate %s identifier %q in %s", e.Kind, e.ID, e.Scope)
}

// SchemaMismatchError is returned when a materialized payload's columns do
// not match the catalog descriptor it was requested for.
type SchemaMismatchError struct {
	ID   string
	Want []string
	Got  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("heliocat: payload for %s has columns %v but the catalog describes %v", e.ID, e.Got, e.Want)
}
