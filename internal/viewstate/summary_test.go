package viewstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

func TestSummarize(t *testing.T) {
	ranked := Rank([]nobelapi.PredictionRecord{
		prediction(1, "A", 0.81),
		prediction(2, "B", 0.64),
		prediction(3, "C", 0.30),
	})

	s := Summarize(ranked)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.5833, s.Mean, 1e-3)
	assert.InDelta(t, 0.64, s.Median, 1e-9)
	assert.InDelta(t, 0.81, s.Max, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestCompareRanks(t *testing.T) {
	previous := []model.SnapshotEntry{
		{CandidateID: 1, Name: "A", Rank: 1},
		{CandidateID: 2, Name: "B", Rank: 2},
		{CandidateID: 3, Name: "C", Rank: 3},
	}
	current := []model.SnapshotEntry{
		{CandidateID: 2, Name: "B", Rank: 1},
		{CandidateID: 1, Name: "A", Rank: 2},
		{CandidateID: 4, Name: "D", Rank: 3},
	}

	got := CompareRanks(previous, current)
	assert.Equal(t, []RankChange{
		{CandidateID: 2, Name: "B", Previous: 2, Current: 1},
		{CandidateID: 1, Name: "A", Previous: 1, Current: 2},
		{CandidateID: 4, Name: "D", Previous: 0, Current: 3},
		{CandidateID: 3, Name: "C", Previous: 3, Current: 0},
	}, got)

	assert.Equal(t, 1, got[0].Delta())
	assert.Equal(t, -1, got[1].Delta())
	assert.True(t, got[2].Entered())
	assert.True(t, got[3].Dropped())
	assert.Zero(t, got[3].Delta())
}

func TestSnapshotEntries(t *testing.T) {
	ranked := Rank([]nobelapi.PredictionRecord{prediction(5, "E", 0.4), prediction(6, "F", 0.2)})
	assert.Equal(t, []model.SnapshotEntry{
		{CandidateID: 5, Name: "E", Rank: 1, Probability: 0.4},
		{CandidateID: 6, Name: "F", Rank: 2, Probability: 0.2},
	}, SnapshotEntries(ranked))
}
