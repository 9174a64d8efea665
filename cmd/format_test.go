package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

func sampleState() viewstate.ViewState {
	return viewstate.ViewState{
		Filter: model.Filter{Field: "Physics", Horizon: "one_year"},
		Shortlist: viewstate.Rank([]nobelapi.PredictionRecord{
			{
				Candidate:   nobelapi.Candidate{ID: 7, Name: "Ada Lovelace", Affiliation: "Analytical Engines"},
				Probability: 0.81,
				Attributions: []nobelapi.FeatureAttribution{
					{Name: "h_index", Contribution: 0.2},
					{Name: "awards", Contribution: -0.35},
				},
			},
			{Candidate: nobelapi.Candidate{ID: 9, Name: "Grace Hopper"}, Probability: 0.3},
		}),
		Backtests: []nobelapi.BacktestMetric{{Field: "Physics", K: 10, HitAtK: 0.6, AUCPR: 0.412, BrierScore: 0.081, YearsCovered: nobelapi.YearRange{From: 2000, To: 2020}}},
	}
}

func TestFormatShortlist(t *testing.T) {
	var buf bytes.Buffer
	formatShortlist(&buf, sampleState())
	out := buf.String()

	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "81.0%")
	assert.Contains(t, out, "awards (-0.350), h_index (+0.200)")
	assert.Contains(t, out, "Backtest: Hit@10 60.0%, AUC-PR 0.412, Brier 0.081 (2000-2020)")
}

func TestFormatShortlist_NoBacktest(t *testing.T) {
	s := sampleState()
	s.Backtests = nil
	var buf bytes.Buffer
	formatShortlist(&buf, s)
	assert.Contains(t, buf.String(), "No backtest available for this field.")
}

func TestFormatCandidate(t *testing.T) {
	s := sampleState()
	s.SelectedID = 7
	s.SelectedCandidate = &nobelapi.CandidateDetail{Field: "Physics", Country: "United Kingdom", TotalCitations: 1200, HIndex: 41}
	s.ProvenanceLoaded = true
	s.Provenance = []nobelapi.ProvenanceRecord{{FeatureName: "h_index", Source: "OpenAlex", AsOf: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), LatencyDays: 3}}

	var buf bytes.Buffer
	formatCandidate(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "Ada Lovelace (#1, 81.0%)")
	assert.Contains(t, out, "United Kingdom")
	assert.Contains(t, out, "OpenAlex")
	assert.Contains(t, out, "2025-01-02")
}

func TestFormatCandidate_NoProvenance(t *testing.T) {
	s := sampleState()
	s.SelectedID = 9
	s.SelectedCandidate = &nobelapi.CandidateDetail{Field: "Physics"}
	s.ProvenanceLoaded = true

	var buf bytes.Buffer
	formatCandidate(&buf, s)
	assert.Contains(t, buf.String(), viewstate.NoProvenanceText)
}

func TestFormatCandidate_DetailError(t *testing.T) {
	s := sampleState()
	s.SelectedID = 42
	s.DetailError = viewstate.DetailError

	var buf bytes.Buffer
	formatCandidate(&buf, s)
	assert.Contains(t, buf.String(), "Unable to load candidate details.")
	assert.NotContains(t, buf.String(), "Provenance")
}

func TestFormatRankChanges(t *testing.T) {
	changes := []viewstate.RankChange{
		{CandidateID: 1, Name: "Up", Previous: 3, Current: 1},
		{CandidateID: 2, Name: "Down", Previous: 1, Current: 2},
		{CandidateID: 3, Name: "Same", Previous: 2, Current: 2},
		{CandidateID: 4, Name: "New", Current: 3},
		{CandidateID: 5, Name: "Gone", Previous: 4},
	}
	var buf bytes.Buffer
	formatRankChanges(&buf, changes)
	out := buf.String()

	assert.Contains(t, out, "up 2")
	assert.Contains(t, out, "down 1")
	assert.Contains(t, out, "=")
	assert.Contains(t, out, "new")
	assert.Contains(t, out, "dropped")
}

func TestMovement(t *testing.T) {
	assert.Equal(t, "new", movement(viewstate.RankChange{Current: 1}))
	assert.Equal(t, "dropped", movement(viewstate.RankChange{Previous: 1}))
	assert.Equal(t, "up 4", movement(viewstate.RankChange{Previous: 5, Current: 1}))
	assert.Equal(t, "-", rankOrDash(0))
	assert.Equal(t, "3", rankOrDash(3))
}
