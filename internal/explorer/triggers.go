package explorer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/resilience"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

// SetFilter requests f and loads its shortlist and backtests concurrently.
// Both results are committed together with f as the state's Filter, or not at
// all; on failure the previous filter, shortlist and backtests stay in place
// and the state carries LoadError.
func (e *Explorer) SetFilter(ctx context.Context, f model.Filter) error {
	resolved, err := e.catalog.Resolve(f)
	if err != nil {
		return eris.Wrapf(ErrInvalidFilter, "%s: %v", f, err)
	}

	var seq uint64
	e.mutate(func(s *viewstate.ViewState) bool {
		e.loadSeq++
		seq = e.loadSeq
		s.Requested = resolved
		s.Loading = true
		s.Error = viewstate.NoError
		return true
	})

	log := e.logger.With(zap.Stringer("filter", resolved), zap.Uint64("seq", seq))
	log.Debug("explorer: loading shortlist")

	var (
		preds     []nobelapi.PredictionRecord
		backtests []nobelapi.BacktestMetric
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		preds, err = resilience.DoVal(gctx, e.policy("shortlist"), func(ctx context.Context) ([]nobelapi.PredictionRecord, error) {
			return e.src.GetShortlist(ctx, resolved.Field, resolved.Horizon)
		})
		return err
	})
	g.Go(func() error {
		var err error
		backtests, err = resilience.DoVal(gctx, e.policy("backtests"), func(ctx context.Context) ([]nobelapi.BacktestMetric, error) {
			return e.src.GetBacktests(ctx, resolved.Field)
		})
		return err
	})
	fetchErr := g.Wait()

	committed := e.mutate(func(s *viewstate.ViewState) bool {
		if seq != e.loadSeq {
			return false
		}
		s.Loading = false
		if fetchErr != nil {
			s.Error = viewstate.LoadError
			return true
		}
		s.Filter = resolved
		s.Shortlist = viewstate.Rank(preds)
		s.Backtests = append([]nobelapi.BacktestMetric{}, backtests...)
		s.Error = viewstate.NoError
		return true
	})
	if !committed {
		log.Debug("explorer: discarding superseded shortlist")
		return ErrSuperseded
	}
	if fetchErr != nil {
		log.Warn("explorer: shortlist load failed", zap.Error(fetchErr))
		return eris.Wrapf(fetchErr, "explorer: load %s", resolved)
	}
	log.Debug("explorer: shortlist loaded", zap.Int("predictions", len(preds)), zap.Int("backtests", len(backtests)))
	return nil
}

// Select makes candidateID the selected candidate and loads its detail,
// then its provenance. The previous candidate's detail and provenance are
// cleared before anything is fetched.
func (e *Explorer) Select(ctx context.Context, candidateID int) error {
	if candidateID <= 0 {
		return eris.Wrapf(ErrInvalidCandidate, "id %d", candidateID)
	}

	var gen uint64
	e.mutate(func(s *viewstate.ViewState) bool {
		e.selectSeq++
		gen = e.selectSeq
		clearSelection(s)
		s.SelectedID = candidateID
		s.DetailLoading = true
		return true
	})

	// Must be called with e.mu held, which mutate guarantees.
	current := func(s *viewstate.ViewState) bool {
		return gen == e.selectSeq && s.SelectedID == candidateID
	}
	log := e.logger.With(zap.Int("candidate_id", candidateID), zap.Uint64("gen", gen))

	detail, err := resilience.DoVal(ctx, e.policy("candidate_detail"), func(ctx context.Context) (*nobelapi.CandidateDetail, error) {
		return e.src.GetCandidateDetail(ctx, candidateID)
	})
	if err == nil && detail == nil {
		err = eris.Errorf("explorer: candidate %d: empty detail", candidateID)
	}
	ok := e.mutate(func(s *viewstate.ViewState) bool {
		if !current(s) {
			return false
		}
		if err != nil {
			s.DetailLoading = false
			s.DetailError = viewstate.DetailError
			return true
		}
		d := *detail
		s.SelectedCandidate = &d
		return true
	})
	if !ok {
		log.Debug("explorer: discarding superseded candidate detail")
		return ErrSuperseded
	}
	if err != nil {
		log.Warn("explorer: candidate detail failed", zap.Error(err))
		return eris.Wrapf(err, "explorer: candidate %d detail", candidateID)
	}

	provenance, err := resilience.DoVal(ctx, e.policy("provenance"), func(ctx context.Context) ([]nobelapi.ProvenanceRecord, error) {
		return e.src.GetProvenance(ctx, candidateID)
	})
	ok = e.mutate(func(s *viewstate.ViewState) bool {
		if !current(s) {
			return false
		}
		s.DetailLoading = false
		if err != nil {
			s.DetailError = viewstate.DetailError
			return true
		}
		s.Provenance = viewstate.SortProvenance(provenance)
		s.ProvenanceLoaded = true
		return true
	})
	if !ok {
		log.Debug("explorer: discarding superseded provenance")
		return ErrSuperseded
	}
	if err != nil {
		log.Warn("explorer: provenance failed", zap.Error(err))
		return eris.Wrapf(err, "explorer: candidate %d provenance", candidateID)
	}
	return nil
}

// Deselect clears the selection. Any in-flight Select chain is invalidated
// and its results are discarded when they arrive.
func (e *Explorer) Deselect() {
	e.mutate(func(s *viewstate.ViewState) bool {
		e.selectSeq++
		clearSelection(s)
		return true
	})
}

func clearSelection(s *viewstate.ViewState) {
	s.SelectedID = 0
	s.SelectedCandidate = nil
	s.Provenance = nil
	s.ProvenanceLoaded = false
	s.DetailLoading = false
	s.DetailError = viewstate.NoError
}
