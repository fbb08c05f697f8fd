package domain

import "time"

// Snapshot is the committed state of engagement records for one source kind.
type Snapshot struct {
	Kind        SourceKind
	GeneratedAt time.Time
	NextUpdate  time.Time
	SourceLabel string
	Records     []EngagementRecord
}

// Totals sums every metric across the snapshot records.
func (s Snapshot) Totals() map[string]int64 {
	totals := make(map[string]int64)
	for _, rec := range s.Records {
		for name, value := range rec.Metrics {
			totals[name] += value
		}
	}
	return totals
}

// EstimatedCount reports how many records carry inferred data.
func (s Snapshot) EstimatedCount() int {
	count := 0
	for _, rec := range s.Records {
		if rec.Estimated {
			count++
		}
	}
	return count
}
