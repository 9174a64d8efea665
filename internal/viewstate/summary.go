package viewstate

import (
	"github.com/montanaflynn/stats"

	"github.com/gauguri/NobelPrediction/internal/model"
)

// Summary describes the probability distribution of a shortlist.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Summarize computes probability statistics over a ranked shortlist. An empty
// shortlist yields the zero Summary.
func Summarize(ranked []RankedPrediction) Summary {
	if len(ranked) == 0 {
		return Summary{}
	}

	data := make(stats.Float64Data, len(ranked))
	for i, r := range ranked {
		data[i] = r.Probability
	}

	// The inputs are non-empty, the only error condition stats reports.
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	maxP, _ := stats.Max(data)

	return Summary{Count: len(ranked), Mean: mean, Median: median, Max: maxP}
}

// RankChange is a candidate's movement between two snapshots. Previous is 0
// for a new entrant; Current is 0 for a candidate that dropped out.
type RankChange struct {
	CandidateID int    `json:"candidate_id"`
	Name        string `json:"name"`
	Previous    int    `json:"previous"`
	Current     int    `json:"current"`
}

// Delta is positive when the candidate moved up.
func (c RankChange) Delta() int {
	if c.Previous == 0 || c.Current == 0 {
		return 0
	}
	return c.Previous - c.Current
}

// Entered reports whether the candidate is new to the shortlist.
func (c RankChange) Entered() bool { return c.Previous == 0 && c.Current > 0 }

// Dropped reports whether the candidate left the shortlist.
func (c RankChange) Dropped() bool { return c.Current == 0 && c.Previous > 0 }

// CompareRanks lists every candidate of current in rank order, followed by
// candidates of previous that no longer appear, in their previous order.
func CompareRanks(previous, current []model.SnapshotEntry) []RankChange {
	prevByID := make(map[int]model.SnapshotEntry, len(previous))
	for _, e := range previous {
		prevByID[e.CandidateID] = e
	}

	seen := make(map[int]bool, len(current))
	changes := make([]RankChange, 0, len(current))
	for _, e := range current {
		seen[e.CandidateID] = true
		changes = append(changes, RankChange{
			CandidateID: e.CandidateID,
			Name:        e.Name,
			Previous:    prevByID[e.CandidateID].Rank,
			Current:     e.Rank,
		})
	}
	for _, e := range previous {
		if seen[e.CandidateID] {
			continue
		}
		changes = append(changes, RankChange{CandidateID: e.CandidateID, Name: e.Name, Previous: e.Rank})
	}
	return changes
}

// SnapshotEntries projects a ranked shortlist into history entries.
func SnapshotEntries(ranked []RankedPrediction) []model.SnapshotEntry {
	entries := make([]model.SnapshotEntry, len(ranked))
	for i, r := range ranked {
		entries[i] = model.SnapshotEntry{
			CandidateID: r.Candidate.ID,
			Name:        r.Candidate.Name,
			Rank:        r.Rank,
			Probability: r.Probability,
		}
	}
	return entries
}
