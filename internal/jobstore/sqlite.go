package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore implements Store over a shared SQLite handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates the jobs table if needed. The handle is owned by the
// storage layer.
func NewSQLite(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			external_id TEXT PRIMARY KEY,
			title TEXT,
			company TEXT,
			location TEXT,
			description TEXT,
			salary TEXT,
			published_at DATETIME,
			status TEXT NOT NULL DEFAULT 'new',
			first_seen DATETIME NOT NULL,
			last_updated DATETIME NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_jobs_first_seen ON jobs(first_seen)"); err != nil {
		return nil, fmt.Errorf("failed to create jobs index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Exists reports whether a record with the external id is stored.
func (s *SQLiteStore) Exists(ctx context.Context, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM jobs WHERE external_id = ?", externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check job existence: %w", err)
	}
	return true, nil
}

// Upsert inserts the job or, on external-id conflict, updates the mutable
// fields. first_seen is never touched by the update branch, so the second
// observation of an id is observably an update. Returns true on insert.
func (s *SQLiteStore) Upsert(ctx context.Context, job *Job) (bool, error) {
	if job.ExternalID == "" {
		return false, fmt.Errorf("job external id is required")
	}

	now := time.Now().UTC()
	firstSeen := job.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = now
	}
	lastUpdated := job.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = now
	}
	status := job.Status
	if status == "" {
		status = StatusNew
	}

	// The created flag comes from a read before the atomic upsert, so two
	// writers racing on the same id may both report creation. The stored
	// row still converges; only report counts can skew.
	existed, err := s.Exists(ctx, job.ExternalID)
	if err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (external_id, title, company, location, description,
			salary, published_at, status, first_seen, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			description = excluded.description,
			salary = excluded.salary,
			published_at = excluded.published_at,
			status = excluded.status,
			last_updated = excluded.last_updated`,
		job.ExternalID, job.Title, job.Company, job.Location, job.Description,
		job.Salary, job.PublishedAt.UTC().Format(time.RFC3339), status,
		firstSeen.UTC().Format(time.RFC3339), lastUpdated.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert job %s: %w", job.ExternalID, err)
	}
	return !existed, nil
}

// Touch refreshes last_updated on an existing record. Everything else
// stays as stored, so enrichment and analysis results survive re-crawls.
func (s *SQLiteStore) Touch(ctx context.Context, externalID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET last_updated = ? WHERE external_id = ?",
		at.UTC().Format(time.RFC3339), externalID)
	if err != nil {
		return fmt.Errorf("failed to touch job %s: %w", externalID, err)
	}
	touched, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count touched jobs: %w", err)
	}
	if touched == 0 {
		return fmt.Errorf("no job with external id %s", externalID)
	}
	return nil
}

// ListAll returns all stored records, newest first by first_seen.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*Job, error) {
	return s.list(ctx,
		`SELECT external_id, title, company, location, description, salary,
		        published_at, status, first_seen, last_updated
		 FROM jobs ORDER BY first_seen DESC`)
}

// ListSince returns records first seen at or after the given time.
func (s *SQLiteStore) ListSince(ctx context.Context, since time.Time) ([]*Job, error) {
	return s.list(ctx,
		`SELECT external_id, title, company, location, description, salary,
		        published_at, status, first_seen, last_updated
		 FROM jobs WHERE first_seen >= ? ORDER BY first_seen DESC`,
		since.UTC().Format(time.RFC3339))
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...interface{}) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job := &Job{}
		var publishedAt, firstSeen, lastUpdated string
		if err := rows.Scan(&job.ExternalID, &job.Title, &job.Company,
			&job.Location, &job.Description, &job.Salary,
			&publishedAt, &job.Status, &firstSeen, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		if job.PublishedAt, err = time.Parse(time.RFC3339, publishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse job timestamp: %w", err)
		}
		if job.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
			return nil, fmt.Errorf("failed to parse job timestamp: %w", err)
		}
		if job.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to parse job timestamp: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return jobs, nil
}

// Purge removes records first seen before the cutoff. The cutoff is fixed
// up front, so records observed while the delete runs survive.
func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE first_seen < ?",
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged jobs: %w", err)
	}
	return removed, nil
}
