package domain

import "time"

// RunStats holds statistics about one categories or prices run.
type RunStats struct {
	RunID      string
	Affiliates int
	Failed     int
	Records    int
	Created    int
	Updated    int
	Published  int
	Duration   time.Duration
}

// CatalogStats holds statistics about a catalog replacement.
type CatalogStats struct {
	Deleted  int64
	Added    int
	Updated  int
	Duration time.Duration
}
