package usecase

import (
	"time"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/extract"
)

// SourcePlan is everything a cycle needs to know about one configured source.
type SourcePlan struct {
	Name          string
	Kind          domain.SourceKind
	Extractor     *extract.Extractor
	MinInterval   time.Duration
	FetchTimeout  time.Duration
	MaxCandidates int
	// RetainMissing keeps records of the previous snapshot that the new fetch no longer returned.
	RetainMissing bool
	// Author fills records whose payload names no author.
	Author string
}
