package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foundAt(seg int, value any, evidence string) candidate {
	return candidate{segment: seg, outcome: FieldOutcome{Kind: OutcomeFound, Value: value, Evidence: evidence}}
}

func TestEvidenceStrength(t *testing.T) {
	seg := Segment{Text: "This Agreement is effective as of January 1, 2024."}

	assert.Equal(t, 2, evidenceStrength(foundAt(0, "2024-01-01", "effective as of January 1, 2024"), seg))
	assert.Equal(t, 2, evidenceStrength(foundAt(0, "January 1, 2024", ""), seg))
	assert.Equal(t, 1, evidenceStrength(foundAt(0, "january 1 2024", ""), seg))
	assert.Equal(t, 0, evidenceStrength(foundAt(0, "2024-01-01", "commences on signing"), seg))
}

func TestPickCandidate(t *testing.T) {
	segs := []Segment{
		{Index: 0, Text: "Governing law: New York."},
		{Index: 1, Text: "The laws of Delaware apply to this annex."},
		{Index: 2, Text: "The laws of Delaware apply to all disputes."},
	}

	t.Run("first found wins on equal evidence", func(t *testing.T) {
		c, ok := pickCandidate([]candidate{
			foundAt(0, "New York", ""),
			foundAt(1, "Delaware", ""),
		}, segs)
		require.True(t, ok)
		assert.Equal(t, 0, c.segment)
	})

	t.Run("stronger later evidence wins", func(t *testing.T) {
		c, ok := pickCandidate([]candidate{
			foundAt(0, "Delaware", ""),
			foundAt(1, "Delaware", ""),
			foundAt(2, "Delaware", ""),
		}, segs)
		require.True(t, ok)
		assert.Equal(t, 1, c.segment)
	})

	t.Run("not found candidates are skipped", func(t *testing.T) {
		c, ok := pickCandidate([]candidate{
			{segment: 0, outcome: FieldOutcome{Kind: OutcomeNotFound}},
			{segment: 1, outcome: FieldOutcome{Kind: OutcomeMalformed}},
			foundAt(2, "Delaware", ""),
		}, segs)
		require.True(t, ok)
		assert.Equal(t, 2, c.segment)
	})

	t.Run("nothing found", func(t *testing.T) {
		_, ok := pickCandidate([]candidate{{segment: 0, outcome: FieldOutcome{Kind: OutcomeNotFound}}}, segs)
		assert.False(t, ok)
		_, ok = pickCandidate(nil, segs)
		assert.False(t, ok)
	})
}
