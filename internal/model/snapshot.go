package model

import "time"

// SnapshotEntry is one ranked candidate as it stood when a snapshot was taken.
type SnapshotEntry struct {
	CandidateID int     `json:"candidate_id"`
	Name        string  `json:"name"`
	Rank        int     `json:"rank"`
	Probability float64 `json:"probability"`
}

// Snapshot is a recorded shortlist for one filter.
type Snapshot struct {
	ID      string          `json:"id"`
	Filter  Filter          `json:"filter"`
	TakenAt time.Time       `json:"taken_at"`
	Entries []SnapshotEntry `json:"entries"`
}
