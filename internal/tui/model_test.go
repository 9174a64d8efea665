package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/explorer"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

type stubSource struct {
	mu       sync.Mutex
	fail     bool
	requests []string
}

func (s *stubSource) GetShortlist(_ context.Context, field, horizon string) ([]nobelapi.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, field+"/"+horizon)
	if s.fail {
		return nil, errors.New("backend down")
	}
	return []nobelapi.PredictionRecord{
		{
			Candidate:    nobelapi.Candidate{ID: 1, Name: "Lise Meitner"},
			Field:        field,
			Horizon:      horizon,
			Probability:  0.81,
			Attributions: []nobelapi.FeatureAttribution{{Name: "h_index", Contribution: 0.3}},
		},
		{Candidate: nobelapi.Candidate{ID: 2, Name: "Chien-Shiung Wu"}, Field: field, Horizon: horizon, Probability: 0.64},
	}, nil
}

func (s *stubSource) GetBacktests(_ context.Context, field string) ([]nobelapi.BacktestMetric, error) {
	return []nobelapi.BacktestMetric{{Field: field, K: 10, HitAtK: 0.5, YearsCovered: nobelapi.YearRange{From: 2001, To: 2020}}}, nil
}

func (s *stubSource) GetCandidateDetail(_ context.Context, id int) (*nobelapi.CandidateDetail, error) {
	return &nobelapi.CandidateDetail{Candidate: nobelapi.Candidate{ID: id}, Country: "Austria", TotalCitations: 900}, nil
}

func (s *stubSource) GetProvenance(context.Context, int) ([]nobelapi.ProvenanceRecord, error) {
	return nil, nil
}

func (s *stubSource) lastRequest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ""
	}
	return s.requests[len(s.requests)-1]
}

func newTestModel(t *testing.T, src *stubSource) Model {
	t.Helper()
	ex := explorer.New(src, explorer.WithLogger(zap.NewNop()))
	return New(context.Background(), ex)
}

// press sends a key and runs the resulting command, if any, to completion.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	msg := cmd()
	if _, ok := msg.(triggerDoneMsg); !ok {
		return m
	}
	next, _ = m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, src *stubSource) Model {
	t.Helper()
	return press(t, newTestModel(t, src), runes("r"))
}

func TestModel_ReloadRendersShortlist(t *testing.T) {
	m := loaded(t, &stubSource{})

	require.Len(t, m.state.Shortlist, 2)
	assert.Zero(t, m.pending)
	view := m.View()
	assert.Contains(t, view, "Lise Meitner")
	assert.Contains(t, view, "81.0%")
	assert.Contains(t, view, "h_index")
	assert.Contains(t, view, "Hit@10")
	assert.Contains(t, view, "Physics · This year")
}

func TestModel_LoadErrorBanner(t *testing.T) {
	m := loaded(t, &stubSource{fail: true})
	assert.Contains(t, m.View(), "Unable to load predictions. Ensure the backend is seeded.")
	assert.Contains(t, m.View(), "No predictions loaded.")
}

func TestModel_CursorMovement(t *testing.T) {
	m := loaded(t, &stubSource{})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor, "cursor stays at top")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor, "cursor stays at bottom")

	m = press(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestModel_SelectAndClose(t *testing.T) {
	m := loaded(t, &stubSource{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 2, m.state.SelectedID)
	view := m.View()
	assert.Contains(t, view, "Country: Austria")
	assert.Contains(t, view, "No provenance metadata available for this candidate yet.")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Zero(t, m.state.SelectedID)
	assert.NotContains(t, m.View(), "Austria")
}

func TestModel_CycleFilter(t *testing.T) {
	src := &stubSource{}
	m := loaded(t, src)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m = press(t, m, runes("h"))
	assert.Equal(t, "three_year", m.state.Filter.Horizon)
	assert.Equal(t, "Physics/three_year", src.lastRequest())
	assert.Equal(t, 0, m.cursor, "cursor resets on filter change")

	m = press(t, m, runes("f"))
	assert.Equal(t, "Chemistry", m.state.Filter.Field)
	assert.Equal(t, "Chemistry/three_year", src.lastRequest())
}

func TestModel_CycleAfterFailedLoad(t *testing.T) {
	src := &stubSource{}
	m := loaded(t, src)

	src.mu.Lock()
	src.fail = true
	src.mu.Unlock()
	m = press(t, m, runes("f"))
	assert.Equal(t, "Physics", m.state.Filter.Field, "header keeps the shown shortlist's field")
	assert.Equal(t, "Chemistry", m.state.Requested.Field)
	assert.Contains(t, m.View(), "Lise Meitner")

	src.mu.Lock()
	src.fail = false
	src.mu.Unlock()
	m = press(t, m, runes("f"))
	want := m.catalog.NextField("Chemistry")
	assert.Equal(t, want, m.state.Filter.Field, "cycling continues from the last request")
	assert.Equal(t, want+"/one_year", src.lastRequest())
}

func TestModel_EnterOnEmptyShortlist(t *testing.T) {
	m := newTestModel(t, &stubSource{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, next.(Model).pending)
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &stubSource{})
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_StateMsgClampsCursor(t *testing.T) {
	m := loaded(t, &stubSource{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})

	st := m.state
	st.Shortlist = st.Shortlist[:1]
	next, _ := m.Update(stateMsg{state: st})
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestModel_LiveIgnoresDoneSnapshot(t *testing.T) {
	m := newTestModel(t, &stubSource{})
	m.live = true
	m.pending = 1

	next, _ := m.Update(triggerDoneMsg{op: "reload"})
	got := next.(Model)
	assert.Zero(t, got.pending)
	assert.Nil(t, got.state.Shortlist)
}
