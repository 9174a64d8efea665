package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/explorer"
	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

type reportLink struct {
	Label string
	URL   string
}

type pageData struct {
	State    viewstate.ViewState
	Catalog  *model.Catalog
	Backtest *nobelapi.BacktestMetric
	Summary  viewstate.Summary
	Selected *viewstate.RankedPrediction
	Reports  []reportLink
}

// stateResponse is the JSON shape of GET /api/state.
type stateResponse struct {
	State    viewstate.ViewState      `json:"state"`
	Backtest *nobelapi.BacktestMetric `json:"canonical_backtest"`
	Summary  viewstate.Summary        `json:"summary"`
	Message  string                   `json:"message,omitempty"`
	Detail   string                   `json:"detail_message,omitempty"`
	NoProv   string                   `json:"provenance_message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backend := "ok"
	if err := s.client.Health(r.Context()); err != nil {
		s.logger.Warn("dashboard: backend health check failed", zap.Error(err))
		backend = "unreachable"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": backend})
}

// handleIndex renders the explorer page. Query parameters field and horizon
// switch the filter, and a filter whose load failed is retried on the next
// request for it. The first visit of a session loads the default filter.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ex := explorerFrom(r)
	st := ex.State()

	want := st.Filter
	if f := r.URL.Query().Get("field"); f != "" {
		want.Field = f
	}
	if h := r.URL.Query().Get("horizon"); h != "" {
		want.Horizon = h
	}
	want, err := ex.Catalog().Resolve(want)
	if err != nil {
		http.Error(w, "unknown field or horizon", http.StatusBadRequest)
		return
	}

	switch {
	case want != st.Filter:
		s.logTrigger("set_filter", ex.SetFilter(r.Context(), want))
	case st.Shortlist == nil && !st.Loading && st.Error == viewstate.NoError:
		s.logTrigger("initial_load", ex.Reload(r.Context()))
	}

	s.render(w, "index.html", s.buildPage(ex.State(), ex.Catalog()))
}

func (s *Server) handleSelectForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid candidate id", http.StatusBadRequest)
		return
	}
	s.logTrigger("select", explorerFrom(r).Select(r.Context(), id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeselectForm(w http.ResponseWriter, r *http.Request) {
	explorerFrom(r).Deselect()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := explorerFrom(r).State()
	writeJSON(w, http.StatusOK, stateResponse{
		State:    st,
		Backtest: st.CanonicalBacktest(),
		Summary:  viewstate.Summarize(st.Shortlist),
		Message:  st.Error.Message(),
		Detail:   st.DetailError.Message(),
		NoProv:   st.ProvenanceMessage(),
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req model.Filter
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ex := explorerFrom(r)
	current := ex.State().Requested
	if req.Field == "" {
		req.Field = current.Field
	}
	if req.Horizon == "" {
		req.Horizon = current.Horizon
	}
	resolved, err := ex.Catalog().Resolve(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.async("set_filter", func(ctx context.Context) error { return ex.SetFilter(ctx, resolved) })
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"field":   resolved.Field,
		"horizon": resolved.Horizon,
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid candidate id")
		return
	}

	ex := explorerFrom(r)
	s.async("select", func(ctx context.Context) error { return ex.Select(ctx, id) })
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "candidate_id": id})
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	ex := explorerFrom(r)
	ex.Deselect()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdmin(name string, trigger func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trigger(r.Context()); err != nil {
			s.logger.Error("dashboard: admin trigger failed", zap.String("trigger", name), zap.Error(err))
			writeError(w, http.StatusBadGateway, fmt.Sprintf("%s trigger failed", name))
			return
		}
		s.logger.Info("dashboard: admin trigger accepted", zap.String("trigger", name))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "trigger": name})
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := nobelapi.ReportFormat(chi.URLParam(r, "format"))
	u, err := s.client.ReportURL(format, r.URL.Query().Get("field"), r.URL.Query().Get("horizon"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) buildPage(st viewstate.ViewState, catalog *model.Catalog) pageData {
	data := pageData{
		State:    st,
		Catalog:  catalog,
		Backtest: st.CanonicalBacktest(),
		Summary:  viewstate.Summarize(st.Shortlist),
	}
	if st.SelectedID != 0 {
		if rp, ok := st.Ranked(st.SelectedID); ok {
			data.Selected = &rp
		}
	}
	for _, f := range []nobelapi.ReportFormat{nobelapi.ReportCSV, nobelapi.ReportPDF} {
		u, err := s.client.ReportURL(f, st.Filter.Field, st.Filter.Horizon)
		if err != nil {
			continue
		}
		data.Reports = append(data.Reports, reportLink{Label: string(f), URL: u})
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("dashboard: template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) logTrigger(op string, err error) {
	if err == nil || eris.Is(err, explorer.ErrSuperseded) {
		return
	}
	s.logger.Warn("dashboard: trigger failed", zap.String("op", op), zap.Error(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func formatSigned(v float64) string {
	return fmt.Sprintf("%+.3f", v)
}
