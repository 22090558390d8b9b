package domain

import "time"

// HarvestStats holds statistics about a harvest run.
type HarvestStats struct {
	SourceID   string
	Categories int
	Fetched    int
	New        int
	Skipped    int
	Errors     int
	Published  int
	Duration   time.Duration
}
