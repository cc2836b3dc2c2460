package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobscout/internal/analyze"
	"jobscout/internal/jobstore"
)

// Report summarizes one crawl cycle.
type Report struct {
	Seen    int `json:"seen"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Ingestor runs crawl cycles: crawl, dedup, enrich and analyze new
// postings, persist everything. Known postings only get their last-updated
// refreshed; they are never enriched or re-analyzed.
type Ingestor struct {
	crawler  Crawler
	store    jobstore.Store
	analyzer *analyze.Analyzer
}

// NewIngestor wires a crawl pipeline. analyzer may be nil to skip analysis
// (crawl-only mode).
func NewIngestor(c Crawler, store jobstore.Store, analyzer *analyze.Analyzer) *Ingestor {
	return &Ingestor{crawler: c, store: store, analyzer: analyzer}
}

// Run executes one crawl cycle. Per-job failures are logged and counted but
// never abort the cycle; only the crawl itself failing is fatal.
func (i *Ingestor) Run(ctx context.Context, keywords []string, location string, pageLimit int) (*Report, error) {
	jobs, err := i.crawler.CrawlJobs(ctx, keywords, location, pageLimit)
	if err != nil {
		return nil, fmt.Errorf("crawl failed: %w", err)
	}

	report := &Report{Seen: len(jobs)}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		created, err := i.ingestOne(ctx, job)
		if err != nil {
			report.Failed++
			slog.Warn("failed to ingest job",
				"external_id", job.ExternalID, "title", job.Title, "error", err)
			continue
		}
		if created {
			report.New++
		} else {
			report.Updated++
		}
	}

	slog.Info("crawl cycle finished",
		"seen", report.Seen, "new", report.New,
		"updated", report.Updated, "failed", report.Failed)
	return report, nil
}

// ingestOne handles a single crawled posting. Returns whether it was new.
func (i *Ingestor) ingestOne(ctx context.Context, job *jobstore.Job) (bool, error) {
	known, err := i.store.Exists(ctx, job.ExternalID)
	if err != nil {
		return false, err
	}

	if known {
		// Enriched and analyzed on first sight. The crawled record is a
		// sparse listing-page stub, so only the observation time moves;
		// the stored status and description stay as they are.
		return false, i.store.Touch(ctx, job.ExternalID, time.Now().UTC())
	}

	if err := i.crawler.EnrichJobDetails(ctx, job); err != nil {
		return false, fmt.Errorf("enrich failed: %w", err)
	}

	job.Status = jobstore.StatusNew
	if i.analyzer != nil && job.Description != "" {
		if _, _, err := i.analyzer.ParseJob(ctx, job.Description); err != nil {
			// Analysis failures leave the record stored as unanalyzed; a
			// later cycle can retry via the cache-backed parser.
			slog.Warn("job analysis failed",
				"external_id", job.ExternalID, "error", err)
		} else {
			job.Status = jobstore.StatusAnalyzed
		}
	}

	created, err := i.store.Upsert(ctx, job)
	if err != nil {
		return false, err
	}
	return created, nil
}
