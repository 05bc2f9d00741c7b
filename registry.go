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

import "sync"

// Kind enumerates the levels of the catalog hierarchy.
type Kind int

const (
	KindMission Kind = iota
	KindInstrument
	KindDataset
	KindParameter
)

func (k Kind) String() string {
	switch k {
	case KindMission:
		return "mission"
	case KindInstrument:
		return "instrument"
	case KindDataset:
		return "dataset"
	case KindParameter:
		return "parameter"
	}
	return "unknown"
}

// scoped reports whether identifiers of this kind are unique only within
// their parent scope. Instrument ids repeat across missions; all other
// kinds are globally unique.
func (k Kind) scoped() bool { return k == KindInstrument }

type registryKey struct {
	kind  Kind
	scope string
	id    string
}

// A Registry is the canonical table mapping catalog identifiers to their
// descriptors. It detects duplicate registrations within a scope.
type Registry struct {
	mx      sync.RWMutex
	entries map[registryKey]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]interface{})}
}

// Register records desc under the given identifier. parentID scopes the
// identifier for kinds that are only unique within their parent (it is
// ignored for globally unique kinds). Registering an identifier that is
// already present in the same scope returns a DuplicateIdentifierError.
func (r *Registry) Register(kind Kind, id, parentID string, desc interface{}) error {
	key := registryKey{kind: kind, id: id}
	if kind.scoped() {
		key.scope = parentID
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, ok := r.entries[key]; ok {
		return &DuplicateIdentifierError{Kind: kind, Scope: key.scope, ID: id}
	}
	r.entries[key] = desc
	return nil
}

// Resolve returns the descriptor registered for a globally unique
// identifier, or an UnknownIdentifierError if it is absent. Use
// ResolveIn for scoped kinds.
func (r *Registry) Resolve(kind Kind, id string) (interface{}, error) {
	return r.ResolveIn(kind, id, "")
}

// ResolveIn returns the descriptor registered for id within the scope of
// parentID, or an UnknownIdentifierError if it is absent.
func (r *Registry) ResolveIn(kind Kind, id, parentID string) (interface{}, error) {
	key := registryKey{kind: kind, id: id}
	if kind.scoped() {
		key.scope = parentID
	}
	r.mx.RLock()
	defer r.mx.RUnlock()
	desc, ok := r.entries[key]
	if !ok {
		return nil, &UnknownIdentifierError{Kind: kind, ID: id}
	}
	return desc, nil
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.entries)
}
