// Package jobstore persists crawled job postings keyed by their external
// identifier. It is the dedup substrate for the crawl pipeline: re-observing
// a known posting is an update, never a second record.
package jobstore

import (
	"context"
	"time"
)

// Job statuses.
const (
	StatusNew      = "new"
	StatusAnalyzed = "analyzed"
	StatusApplied  = "applied"
	StatusIgnored  = "ignored"
)

// Job is one stored job posting. ExternalID is the board-assigned
// identifier and the primary key; FirstSeen is set on creation and never
// changes afterwards.
type Job struct {
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Salary      string    `json:"salary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Status      string    `json:"status"`
	FirstSeen   time.Time `json:"first_seen"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store is the crawl dedup store. Storage errors are plain wrapped errors.
type Store interface {
	// Exists reports whether a record with the external id is stored.
	Exists(ctx context.Context, externalID string) (bool, error)

	// Upsert creates the record if its external id is new, otherwise
	// updates the mutable fields while preserving the original FirstSeen.
	// Returns true when a new record was created.
	Upsert(ctx context.Context, job *Job) (bool, error)

	// Touch refreshes LastUpdated on an existing record, leaving every
	// other field as stored. Fails when the external id is unknown.
	Touch(ctx context.Context, externalID string, at time.Time) error

	// ListAll returns all stored records, newest first by FirstSeen.
	ListAll(ctx context.Context) ([]*Job, error)

	// ListSince returns records first seen at or after the given time.
	ListSince(ctx context.Context, since time.Time) ([]*Job, error)

	// Purge removes records first seen before the cutoff, returning the
	// count removed. Age-based retention; nothing else deletes records.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
