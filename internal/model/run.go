package model

import "time"

// RunStatus represents the state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// LinkOutcome is the terminal state of one candidate link in a run.
type LinkOutcome string

const (
	OutcomeSaved           LinkOutcome = "saved"
	OutcomeExists          LinkOutcome = "exists"
	OutcomeDuplicateRace   LinkOutcome = "duplicate_race"
	OutcomeEmpty           LinkOutcome = "empty"
	OutcomeURLTooLong      LinkOutcome = "url_too_long"
	OutcomeFetchFailed     LinkOutcome = "fetch_failed"
	OutcomeStoreFailed     LinkOutcome = "store_failed"
	OutcomeTransformFailed LinkOutcome = "transform_failed"
	OutcomeCanceled        LinkOutcome = "canceled"
)

// Run is a recorded ingestion run.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	Stats      *RunStats  `json:"stats,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SourceStats summarises one source within a run.
type SourceStats struct {
	Source     string              `json:"source"`
	LinksFound int                 `json:"links_found"`
	Attempted  int                 `json:"attempted"`
	Outcomes   map[LinkOutcome]int `json:"outcomes"`
	Categories map[Category]int    `json:"categories,omitempty"`
	Error      string              `json:"error,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// NewSourceStats returns zeroed stats for the named source.
func NewSourceStats(name string) *SourceStats {
	return &SourceStats{
		Source:     name,
		Outcomes:   make(map[LinkOutcome]int),
		Categories: make(map[Category]int),
	}
}

// Record counts one link outcome.
func (s *SourceStats) Record(o LinkOutcome) {
	s.Outcomes[o]++
}

// TokenUsage tracks language-model token consumption.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	Calls            int64 `json:"calls"`
}

// RunStats is the summary of an ingestion run.
type RunStats struct {
	RunID      string         `json:"run_id"`
	Sources    []*SourceStats `json:"sources"`
	Saved      int            `json:"saved"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Usage      TokenUsage     `json:"usage"`
	CostUSD    float64        `json:"cost_usd"`
	TimedOut   bool           `json:"timed_out,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// Tally recomputes the run totals from the per-source stats.
func (r *RunStats) Tally() {
	r.Saved, r.Failed, r.Skipped = 0, 0, 0
	for _, s := range r.Sources {
		for o, n := range s.Outcomes {
			switch o {
			case OutcomeSaved:
				r.Saved += n
			case OutcomeFetchFailed, OutcomeStoreFailed, OutcomeTransformFailed:
				r.Failed += n
			case OutcomeExists, OutcomeDuplicateRace, OutcomeEmpty, OutcomeURLTooLong, OutcomeCanceled:
				r.Skipped += n
			}
		}
	}
}
