// Package tui is the terminal front end of the explorer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/explorer"
	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
)

// stateMsg carries a snapshot published by the explorer.
type stateMsg struct {
	state viewstate.ViewState
}

// triggerDoneMsg reports the end of a trigger started from a key press.
type triggerDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea model for one explorer session.
type Model struct {
	ctx     context.Context
	ex      *explorer.Explorer
	catalog *model.Catalog
	logger  *zap.Logger

	state   viewstate.ViewState
	cursor  int
	pending int
	live    bool

	spinner spinner.Model
	styles  Styles
	width   int
}

// New builds a Model around ex. Triggers run under ctx.
func New(ctx context.Context, ex *explorer.Explorer) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:     ctx,
		ex:      ex,
		catalog: ex.Catalog(),
		logger:  zap.L().Named("tui"),
		state:   ex.State(),
		spinner: sp,
		styles:  DefaultStyles(),
		width:   80,
	}
}

// Init starts the spinner and loads the initial filter.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.trigger("reload", m.ex.Reload))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.setState(msg.state)
		return m, nil

	case triggerDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil && !eris.Is(msg.err, explorer.ErrSuperseded) {
			m.logger.Debug("trigger failed", zap.String("op", msg.op), zap.Error(msg.err))
		}
		// With live updates the subscription already delivered the newest
		// snapshot; reading State here could overtake one still in flight.
		if !m.live {
			m.setState(m.ex.State())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.state.Shortlist)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if len(m.state.Shortlist) == 0 {
			return m, nil
		}
		id := m.state.Shortlist[m.cursor].Candidate.ID
		ex := m.ex
		m.pending++
		return m, m.trigger("select", func(ctx context.Context) error { return ex.Select(ctx, id) })

	case "esc":
		if m.state.SelectedID == 0 {
			return m, nil
		}
		ex := m.ex
		m.pending++
		return m, m.trigger("deselect", func(context.Context) error {
			ex.Deselect()
			return nil
		})

	case "h":
		f := m.state.Requested
		f.Horizon = m.catalog.NextHorizon(f.Horizon)
		return m.setFilter(f)

	case "f":
		f := m.state.Requested
		f.Field = m.catalog.NextField(f.Field)
		return m.setFilter(f)

	case "r":
		m.pending++
		return m, m.trigger("reload", m.ex.Reload)
	}
	return m, nil
}

func (m Model) setFilter(f model.Filter) (tea.Model, tea.Cmd) {
	ex := m.ex
	m.pending++
	m.cursor = 0
	return m, m.trigger("set_filter", func(ctx context.Context) error { return ex.SetFilter(ctx, f) })
}

// trigger wraps a blocking explorer call in a command.
func (m Model) trigger(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return triggerDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m *Model) setState(s viewstate.ViewState) {
	m.state = s
	if m.cursor >= len(s.Shortlist) {
		m.cursor = max(len(s.Shortlist)-1, 0)
	}
}

func (m Model) busy() bool {
	return m.pending > 0 || m.state.Loading || m.state.DetailLoading
}

// View renders the explorer.
func (m Model) View() string {
	var sb strings.Builder
	s := m.styles

	sb.WriteString(s.Title.Render("Nobel Prize Predictions"))
	sb.WriteString("  ")
	sb.WriteString(s.Filter.Render(m.filterLabel()))
	if m.busy() {
		sb.WriteString("  " + m.spinner.View())
	}
	sb.WriteString("\n\n")

	if msg := m.state.Error.Message(); msg != "" {
		sb.WriteString(s.Banner.Render(msg))
		sb.WriteString("\n\n")
	}

	if len(m.state.Shortlist) == 0 {
		if !m.state.Loading {
			sb.WriteString(s.Muted.Render("No predictions loaded."))
			sb.WriteString("\n")
		}
	} else {
		for i, r := range m.state.Shortlist {
			sb.WriteString(m.renderRow(i, r))
			sb.WriteString("\n")
		}
		sum := viewstate.Summarize(m.state.Shortlist)
		sb.WriteString(s.Muted.Render(fmt.Sprintf("%d candidates, mean %s, median %s",
			sum.Count, viewstate.FormatProbability(sum.Mean), viewstate.FormatProbability(sum.Median))))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if bt := m.state.CanonicalBacktest(); bt != nil {
		sb.WriteString(fmt.Sprintf("Backtest  Hit@%d %s  AUC-PR %.3f  Brier %.3f  (%d-%d)\n",
			bt.K, viewstate.FormatProbability(bt.HitAtK), bt.AUCPR, bt.BrierScore,
			bt.YearsCovered.From, bt.YearsCovered.To))
	} else {
		sb.WriteString(s.Muted.Render("No backtest available for this field."))
		sb.WriteString("\n")
	}

	if m.state.SelectedID != 0 {
		sb.WriteString("\n")
		sb.WriteString(s.Panel.Width(max(m.width-4, 20)).Render(m.renderDetail()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(s.Help.Render("↑/↓ move • enter details • esc close • f field • h horizon • r reload • q quit"))
	return sb.String()
}

func (m Model) filterLabel() string {
	field, horizon := m.state.Filter.Field, m.state.Filter.Horizon
	if o, ok := m.catalog.Field(field); ok {
		field = o.Label
	}
	if o, ok := m.catalog.Horizon(horizon); ok {
		horizon = o.Label
	}
	return field + " · " + horizon
}

func (m Model) renderRow(i int, r viewstate.RankedPrediction) string {
	s := m.styles
	marker := "  "
	if i == m.cursor {
		marker = s.Cursor.Render("› ")
	}
	name := r.Candidate.Name
	if r.Candidate.ID == m.state.SelectedID {
		name = s.Selected.Render(name)
	}

	drivers := viewstate.TopDrivers(r.PredictionRecord, 3)
	parts := make([]string, 0, len(drivers))
	for _, d := range drivers {
		style := s.Positive
		if d.Contribution < 0 {
			style = s.Negative
		}
		parts = append(parts, style.Render(fmt.Sprintf("%+.3f", d.Contribution))+" "+d.Name)
	}
	return fmt.Sprintf("%s%2d. %-28s %7s  %s", marker, r.Rank, name,
		viewstate.FormatProbability(r.Probability), strings.Join(parts, ", "))
}

func (m Model) renderDetail() string {
	var sb strings.Builder
	s := m.styles
	st := m.state

	if r, ok := st.Ranked(st.SelectedID); ok {
		sb.WriteString(s.Title.Render(r.Candidate.Name))
		sb.WriteString("\n")
	}
	if st.DetailLoading {
		sb.WriteString(s.Muted.Render("Loading candidate…"))
		sb.WriteString("\n")
	}
	if msg := st.DetailError.Message(); msg != "" {
		sb.WriteString(s.Banner.Render(msg))
		sb.WriteString("\n")
	}
	if d := st.SelectedCandidate; d != nil {
		if d.Country != "" {
			sb.WriteString(fmt.Sprintf("Country: %s\n", d.Country))
		}
		sb.WriteString(fmt.Sprintf("Citations: %d  h-index: %.0f  Awards: %d\n", d.TotalCitations, d.HIndex, d.AwardCount))
		sb.WriteString(fmt.Sprintf("Trend: %.2f  Seminal: %.2f\n", d.TrendScore, d.SeminalScore))
	}
	if st.ProvenanceLoaded {
		sb.WriteString("\nProvenance\n")
		if st.NoProvenance() {
			sb.WriteString(s.Muted.Render(st.ProvenanceMessage()))
			sb.WriteString("\n")
		}
		for _, p := range st.Provenance {
			sb.WriteString(fmt.Sprintf("  %s: %s as of %s\n", p.FeatureName, p.Source, p.AsOf.Format("2006-01-02")))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Run starts the interactive explorer and blocks until the user quits.
func Run(ctx context.Context, ex *explorer.Explorer) error {
	m := New(ctx, ex)
	m.live = true

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	cancel := ex.Subscribe(func(s viewstate.ViewState) {
		p.Send(stateMsg{state: s})
	})
	defer cancel()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return eris.Wrap(err, "tui: run")
	}
	return nil
}
