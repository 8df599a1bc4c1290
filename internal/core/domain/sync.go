package domain

import "time"

// SyncSource selects which source systems a sync run covers.
type SyncSource string

// Sync sources.
const (
	SyncJira       SyncSource = "jira"
	SyncConfluence SyncSource = "confluence"
	SyncAll        SyncSource = "all"
)

// Valid reports whether the sync source is recognised.
func (s SyncSource) Valid() bool {
	return s == SyncJira || s == SyncConfluence || s == SyncAll
}

// SyncStatus is the lifecycle state of one sync run.
type SyncStatus string

// Sync run statuses.
const (
	SyncRunning SyncStatus = "running"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// SyncRecord is one row of sync history: exactly one per run attempt.
// The latest successful record per source doubles as the watermark for the
// next incremental fetch.
type SyncRecord struct {
	ID          int64
	Source      SyncSource
	Status      SyncStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Added       int
	Updated     int
	Deleted     int
	ErrorText   string
}

// SyncStats accumulates per-run counters. A single item failure increments
// Errors and the run continues; only a whole-run fetch failure aborts.
type SyncStats struct {
	Added   int
	Updated int
	Skipped int
	Deleted int
	Errors  int
}

// Merge adds another stats block into this one.
func (s *SyncStats) Merge(other SyncStats) {
	s.Added += other.Added
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Deleted += other.Deleted
	s.Errors += other.Errors
}

// IndexStats describes the state of the vector index after a build or
// rebuild run.
type IndexStats struct {
	VectorsAdded   int
	VectorsRemoved int
	TotalVectors   int
	Errors         int
}
