package viewstate

import (
	"fmt"
	"time"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

// ErrorKind is the error signal surfaced to presentation.
type ErrorKind int

const (
	// NoError means nothing to show.
	NoError ErrorKind = iota
	// LoadError means the shortlist/backtest fetch failed; shown as a page banner.
	LoadError
	// DetailError means the candidate detail or provenance fetch failed; shown
	// in the detail panel only.
	DetailError
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "none"
	case LoadError:
		return "load_error"
	case DetailError:
		return "detail_error"
	default:
		return "unknown"
	}
}

// Message is the user-facing text for k.
func (k ErrorKind) Message() string {
	switch k {
	case LoadError:
		return "Unable to load predictions. Ensure the backend is seeded."
	case DetailError:
		return "Unable to load candidate details."
	default:
		return ""
	}
}

// MarshalText encodes k by name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (k *ErrorKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*k = NoError
	case "load_error":
		*k = LoadError
	case "detail_error":
		*k = DetailError
	default:
		return fmt.Errorf("viewstate: unknown error kind %q", b)
	}
	return nil
}

// NoProvenanceText is shown when a selected candidate has no provenance records.
const NoProvenanceText = "No provenance metadata available for this candidate yet."

// ViewState is everything presentation needs to render the explorer. Values
// handed out by the explorer are deep copies.
type ViewState struct {
	// Filter is the filter Shortlist and Backtests were loaded for.
	// Requested is the newest filter asked for; it differs from Filter while
	// a load is in flight or after one failed.
	Filter    model.Filter              `json:"filter"`
	Requested model.Filter              `json:"requested"`
	Shortlist []RankedPrediction        `json:"shortlist"`
	Backtests []nobelapi.BacktestMetric `json:"backtests"`
	Loading   bool                      `json:"loading"`
	Error     ErrorKind                 `json:"error"`

	SelectedID        int                         `json:"selected_id,omitempty"`
	SelectedCandidate *nobelapi.CandidateDetail   `json:"selected_candidate"`
	Provenance        []nobelapi.ProvenanceRecord `json:"provenance"`
	ProvenanceLoaded  bool                        `json:"provenance_loaded"`
	DetailLoading     bool                        `json:"detail_loading"`
	DetailError       ErrorKind                   `json:"detail_error"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of v.
func (v ViewState) Clone() ViewState {
	out := v
	if v.Shortlist != nil {
		out.Shortlist = make([]RankedPrediction, len(v.Shortlist))
		for i, r := range v.Shortlist {
			r.Attributions = cloneAttributions(r.Attributions)
			out.Shortlist[i] = r
		}
	}
	if v.Backtests != nil {
		out.Backtests = make([]nobelapi.BacktestMetric, len(v.Backtests))
		copy(out.Backtests, v.Backtests)
	}
	if v.SelectedCandidate != nil {
		d := *v.SelectedCandidate
		out.SelectedCandidate = &d
	}
	if v.Provenance != nil {
		out.Provenance = make([]nobelapi.ProvenanceRecord, len(v.Provenance))
		copy(out.Provenance, v.Provenance)
	}
	return out
}

// CanonicalBacktest is the backtest record the panel displays.
func (v ViewState) CanonicalBacktest() *nobelapi.BacktestMetric {
	return SelectCanonicalBacktest(v.Backtests)
}

// NoProvenance reports whether the provenance fetch for the selected
// candidate completed with zero records.
func (v ViewState) NoProvenance() bool {
	return v.SelectedCandidate != nil && v.ProvenanceLoaded && EmptyProvenanceMessage(v.Provenance)
}

// ProvenanceMessage returns the fallback text when NoProvenance is true.
func (v ViewState) ProvenanceMessage() string {
	if v.NoProvenance() {
		return NoProvenanceText
	}
	return ""
}

// Ranked returns the shortlist entry for a candidate.
func (v ViewState) Ranked(candidateID int) (RankedPrediction, bool) {
	for _, r := range v.Shortlist {
		if r.Candidate.ID == candidateID {
			return r, true
		}
	}
	return RankedPrediction{}, false
}
