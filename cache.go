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
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"runtime"
	"strings"

	"github.com/ctessum/requestcache"
)

func init() {
	gob.Register(&Table{})
}

// A PayloadCache avoids redundant payload downloads by caching provider
// responses keyed by provider, identifier, time range, and column set.
// Concurrent identical requests are deduplicated into one provider call.
// Cached payloads are evicted when the session ends unless a disk cache
// directory is configured.
type PayloadCache struct {
	provider Provider
	cache    *requestcache.Cache
}

type payloadRequest struct {
	kind    Kind
	id      string
	r       TimeRange
	columns []string
	auth    *Token
}

// NewPayloadCache creates a payload cache in front of p. memCacheSize is the
// maximum number of payloads held in memory. If diskCachePath is non-empty,
// payloads are additionally persisted there as gob files and survive the
// session.
func NewPayloadCache(p Provider, memCacheSize int, diskCachePath string) *PayloadCache {
	processor := func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(payloadRequest)
		return p.FetchPayload(ctx, req.kind, req.id, req.r, req.columns, req.auth)
	}
	nprocs := runtime.GOMAXPROCS(-1)
	if diskCachePath == "" {
		return &PayloadCache{
			provider: p,
			cache: requestcache.NewCache(processor, nprocs,
				requestcache.Deduplicate(), requestcache.Memory(memCacheSize)),
		}
	}
	return &PayloadCache{
		provider: p,
		cache: requestcache.NewCache(processor, nprocs,
			requestcache.Deduplicate(), requestcache.Memory(memCacheSize),
			requestcache.Disk(diskCachePath, requestcache.MarshalGob, requestcache.UnmarshalGob)),
	}
}

// FetchPayload retrieves the payload through the cache, delegating to the
// wrapped provider on a miss.
func (c *PayloadCache) FetchPayload(ctx context.Context, kind Kind, id string, r TimeRange, columns []string, auth *Token) (*Table, error) {
	// Identifiers and column names can contain separators and path
	// characters, so they enter the key hashed to keep it usable as a
	// disk cache file name.
	sum := sha256.Sum256([]byte(id + "\x00" + strings.Join(columns, "\x00")))
	key := fmt.Sprintf("%s_%s_%d_%d_%x", c.provider.Name(), kind,
		r.Start.UTC().Unix(), r.Stop.UTC().Unix(), sum[:8])
	req := c.cache.NewRequest(ctx, payloadRequest{kind: kind, id: id, r: r, columns: columns, auth: auth}, key)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*Table), nil
}
