// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package dedupe collapses bursts of identical requests.
//
// This is a request-collapsing mechanism, not a semantic cache: entries
// live for seconds, writes are last-writer-wins, and losing one under
// race is acceptable. A cache failure must never fail the request it was
// trying to remember.
package dedupe

import (
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/answerit/core"
)

// DefaultTTL is the default response retention window.
const DefaultTTL = 10 * time.Second

// Cache holds final responses keyed by request fingerprint for a short
// TTL. Safe for concurrent use.
type Cache struct {
	cache  *ristretto.Cache[string, *core.QAResult]
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a dedupe cache. A non-positive ttl uses DefaultTTL.
func NewCache(ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	inner, err := ristretto.NewCache(&ristretto.Config[string, *core.QAResult]{
		NumCounters: 10_000, // ~10x expected live entries
		MaxCost:     1_000,  // cost 1 per entry
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache:  inner,
		ttl:    ttl,
		logger: slog.Default().With("component", "dedupe-cache"),
	}, nil
}

// Lookup returns the cached response for a fingerprint, if present and
// unexpired.
func (c *Cache) Lookup(fingerprint string) (*core.QAResult, bool) {
	result, ok := c.cache.Get(fingerprint)
	if !ok || result == nil {
		return nil, false
	}
	return result, true
}

// Store remembers a response for the TTL window. Best-effort: an entry
// the cache declines to admit is simply not collapsed against.
func (c *Cache) Store(fingerprint string, result *core.QAResult) {
	if result == nil {
		return
	}
	if !c.cache.SetWithTTL(fingerprint, result, 1, c.ttl) {
		c.logger.Debug("dedupe entry not admitted", "fingerprint", fingerprint)
	}
}

// Wait blocks until buffered writes are applied. Tests use this to make
// Store synchronous; production callers never need it.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *Cache) Close() {
	c.cache.Close()
}
