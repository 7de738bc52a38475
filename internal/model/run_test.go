package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatsTally(t *testing.T) {
	t.Parallel()

	a := NewSourceStats("A")
	a.Record(OutcomeSaved)
	a.Record(OutcomeSaved)
	a.Record(OutcomeExists)
	a.Record(OutcomeFetchFailed)

	b := NewSourceStats("B")
	b.Record(OutcomeTransformFailed)
	b.Record(OutcomeEmpty)
	b.Record(OutcomeDuplicateRace)
	b.Record(OutcomeURLTooLong)
	b.Record(OutcomeCanceled)

	stats := &RunStats{Sources: []*SourceStats{a, b}}
	stats.Tally()

	assert.Equal(t, 2, stats.Saved)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 5, stats.Skipped)

	// Tally is repeatable.
	stats.Tally()
	assert.Equal(t, 2, stats.Saved)
}

func TestSourceKindDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, SourceKindHTML, Source{}.EffectiveKind())
	assert.Equal(t, SourceKindRSS, Source{Kind: SourceKindRSS}.EffectiveKind())
}
