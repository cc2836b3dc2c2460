// Package crawler defines the job-board crawler contract and the ingest
// pipeline that feeds crawled postings through the dedup store and the
// cache-backed analyzer.
package crawler

import (
	"context"

	"jobscout/internal/jobstore"
)

// Crawler produces job records from a job board. Implementations own all
// page interaction; this package only consumes the records.
type Crawler interface {
	// CrawlJobs returns postings matching the keywords and location,
	// visiting at most pageLimit result pages.
	CrawlJobs(ctx context.Context, keywords []string, location string, pageLimit int) ([]*jobstore.Job, error)

	// EnrichJobDetails fills in the record's full description by visiting
	// its detail page.
	EnrichJobDetails(ctx context.Context, job *jobstore.Job) error
}
