// Package cache provides the content-addressed parse cache. Results of
// expensive LLM extractions are stored under a hash of the normalized input
// text plus the schema and model versions that produced them, so any change
// to input or processing logic yields a new key and stale entries age out
// via TTL instead of manual purging.
//
// Supports a SQLite backend (default) and a Redis backend for setups that
// already run one.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"jobscout/internal/core"
)

// Entry is one cached parse result.
type Entry struct {
	Key string `json:"key"`
	// Value is the parsed structured result, stored verbatim.
	Value json.RawMessage `json:"value"`
	// Provider/Model/Usage record the invocation that produced the value.
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Usage     core.Usage `json:"usage"`
	CreatedAt time.Time  `json:"created_at"`
}

// Stats describes cache occupancy. Gathering stats never mutates state.
type Stats struct {
	Entries      int64 `json:"entries"`
	TotalBytes   int64 `json:"total_bytes"`
	ExpiredCount int64 `json:"expired_count"`
}

// Cache is the content-addressed result cache. Implementations must treat
// entries older than the configured TTL as absent (lazy expiry; Cleanup
// reclaims the space). Storage errors are plain wrapped errors, never
// classified provider failures.
type Cache interface {
	// Get returns the entry for key, or nil if no live entry exists.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put durably upserts the entry, overwriting any prior value for its key.
	Put(ctx context.Context, entry *Entry) error

	// Stats reports occupancy without mutating state.
	Stats(ctx context.Context) (Stats, error)

	// Cleanup removes entries older than the TTL and returns the count
	// removed. Safe to run concurrently with reads.
	Cleanup(ctx context.Context) (int64, error)

	// Close releases any resources held by the cache.
	Close() error
}

// Key derives the content address for a piece of source text processed with
// a given extraction schema version and model version. The text is
// normalized first so formatting-only differences (re-downloaded postings,
// re-extracted PDFs) hit the same entry.
func Key(text, schemaVersion, modelVersion string) string {
	h := xxhash.New()
	_, _ = h.WriteString(Normalize(text))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(schemaVersion)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(modelVersion)
	return strconv.FormatUint(h.Sum64(), 16)
}

// Normalize lowercases text and collapses all runs of whitespace to a
// single space.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
