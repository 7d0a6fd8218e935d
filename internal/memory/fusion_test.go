package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hits(ids ...string) []ScoredRecord {
	out := make([]ScoredRecord, len(ids))
	for i, id := range ids {
		out[i] = ScoredRecord{Record: Record{ID: id, Text: "text " + id}}
	}
	return out
}

func ids(recs []ScoredRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestFuseRRF_ExactScores(t *testing.T) {
	dense := hits("A", "B", "C")
	sparse := hits("B", "A", "D")

	got := FuseRRF(60, 10, dense, sparse)
	require.Len(t, got, 4)

	// A and B tie on 1/61 + 1/62, so ID breaks the tie
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids(got))
	assert.InDelta(t, 1.0/61+1.0/62, got[0].Score, 1e-12)
	assert.InDelta(t, 1.0/61+1.0/62, got[1].Score, 1e-12)
	assert.InDelta(t, 1.0/63, got[2].Score, 1e-12)
	assert.InDelta(t, 1.0/63, got[3].Score, 1e-12)
}

func TestFuseRRF_OrderBAC(t *testing.T) {
	dense := hits("A", "B", "C")
	sparse := hits("B", "C", "A")

	got := FuseRRF(60, 3, dense, sparse)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "A", "C"}, ids(got))
	assert.InDelta(t, 1.0/62+1.0/61, got[0].Score, 1e-12)
	assert.InDelta(t, 1.0/61+1.0/63, got[1].Score, 1e-12)
	assert.InDelta(t, 1.0/63+1.0/62, got[2].Score, 1e-12)
}

func TestFuseRRF_EqualScoresOrderedByID(t *testing.T) {
	dense := hits("B", "C", "A")
	sparse := hits("B", "A", "C")

	// A and C both score 1/62 + 1/63
	got := FuseRRF(60, 3, dense, sparse)
	assert.Equal(t, []string{"B", "A", "C"}, ids(got))
	assert.InDelta(t, 2.0/61, got[0].Score, 1e-12)
	assert.InDelta(t, got[1].Score, got[2].Score, 1e-12)
}

func TestFuseRRF_SmallK(t *testing.T) {
	got := FuseRRF(1, 0, hits("X", "Y"), hits("Y"))
	assert.Equal(t, []string{"Y", "X"}, ids(got))
	assert.InDelta(t, 1.0/3+1.0/2, got[0].Score, 1e-12)
	assert.InDelta(t, 1.0/2, got[1].Score, 1e-12)
}

func TestFuseRRF_Truncates(t *testing.T) {
	got := FuseRRF(60, 2, hits("A", "B", "C", "D"))
	assert.Equal(t, []string{"A", "B"}, ids(got))
}

func TestFuseRRF_DuplicateWithinListCountsOnce(t *testing.T) {
	got := FuseRRF(60, 10, hits("A", "A", "B"))
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0/61, got[0].Score, 1e-12)
	assert.InDelta(t, 1.0/63, got[1].Score, 1e-12)
}

func TestFuseRRF_Empty(t *testing.T) {
	got := FuseRRF(60, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = FuseRRF(60, 5, nil, []ScoredRecord{})
	assert.Empty(t, got)
}

func TestFuseRRF_KeepsRecordPayload(t *testing.T) {
	got := FuseRRF(60, 1, hits("A"))
	require.Len(t, got, 1)
	assert.Equal(t, "text A", got[0].Text)
}
