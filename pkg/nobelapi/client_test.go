package nobelapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauguri/NobelPrediction/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithRateLimit(0, 0)}, opts...)
	return NewClient(opts...)
}

func TestGetShortlist_V1Routes(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/predictions/shortlist", r.URL.Path)
		assert.Equal(t, "Physics", r.URL.Query().Get("field"))
		assert.Equal(t, "one_year", r.URL.Query().Get("horizon"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"candidate_id": 1, "candidate_name": "Ada Author", "affiliation": "MIT", "field": "Physics",
			 "headshot_url": null, "probability": 0.81, "horizon": "one_year", "year": 2025,
			 "shap_values": [{"feature_name": "h_index", "feature_value": 92, "shap_value": 0.21}]},
			{"candidate_id": 2, "candidate_name": "Bo Baker", "affiliation": "ETH", "field": "Physics",
			 "probability": 0.64, "horizon": "one_year", "year": 2025, "shap_values": []}
		]`))
	})

	got, err := client.GetShortlist(context.Background(), "Physics", "one_year")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Candidate.ID)
	assert.Equal(t, "Ada Author", got[0].Candidate.Name)
	assert.Equal(t, "MIT", got[0].Candidate.Affiliation)
	assert.Empty(t, got[0].Candidate.HeadshotURL)
	assert.Equal(t, 2025, got[0].TargetYear)
	assert.InDelta(t, 0.81, got[0].Probability, 1e-9)
	require.Len(t, got[0].Attributions, 1)
	assert.Equal(t, FeatureAttribution{Name: "h_index", Value: 92, Contribution: 0.21}, got[0].Attributions[0])
	assert.Equal(t, "Bo Baker", got[1].Candidate.Name)
}

func TestGetShortlist_LegacyRoutes(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/Physics", r.URL.Path)
		assert.Equal(t, "three_year", r.URL.Query().Get("horizon"))
		assert.Empty(t, r.URL.Query().Get("field"))

		w.Write([]byte(`{"field": "Physics", "horizon": "three_year", "generated_at": "2025-09-01T10:00:00Z",
			"predictions": [{"candidate": {"id": 7, "full_name": "Cy Chen", "affiliation": null, "clarivate_laureate": true},
			"prediction_year": 2027, "horizon": "three_year", "probability": 0.3,
			"top_features": {"total_citations": 0.2}, "shap_values": {}, "created_at": "2025-09-01T09:00:00Z"}]}`))
	}, WithRoutes(RoutesLegacy))

	got, err := client.GetShortlist(context.Background(), "Physics", "three_year")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Candidate.ID)
	assert.Equal(t, "Cy Chen", got[0].Candidate.Name)
	assert.Equal(t, "Physics", got[0].Field)
	assert.Equal(t, 2027, got[0].TargetYear)
	assert.Equal(t, []FeatureAttribution{{Name: "total_citations", Contribution: 0.2}}, got[0].Attributions)
	assert.Equal(t, 9, got[0].GeneratedAt.Hour())
}

func TestGetShortlist_EmptyFieldRejectedWithoutRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.GetShortlist(context.Background(), "  ", "one_year")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Zero(t, calls.Load())
}

func TestGetShortlist_HTTPError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"not seeded"}`))
	})

	_, err := client.GetShortlist(context.Background(), "Physics", "one_year")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, FailureStatus, te.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.True(t, te.Retryable())
	assert.Contains(t, err.Error(), "503")
}

func TestTransportError_Retryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *TransportError
		want bool
	}{
		{"network", &TransportError{Kind: FailureNetwork}, true},
		{"timeout status", &TransportError{Kind: FailureStatus, StatusCode: http.StatusRequestTimeout}, true},
		{"rate limited", &TransportError{Kind: FailureStatus, StatusCode: http.StatusTooManyRequests}, true},
		{"bad gateway", &TransportError{Kind: FailureStatus, StatusCode: http.StatusBadGateway}, true},
		{"not implemented", &TransportError{Kind: FailureStatus, StatusCode: http.StatusNotImplemented}, false},
		{"bad request", &TransportError{Kind: FailureStatus, StatusCode: http.StatusBadRequest}, false},
		{"decode", &TransportError{Kind: FailureDecode}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
			assert.Equal(t, tt.want, resilience.IsTransient(fmt.Errorf("wrap: %w", tt.err)))
		})
	}
}

func TestGetShortlist_MalformedJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := client.GetShortlist(context.Background(), "Physics", "one_year")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, FailureDecode, te.Kind)
	assert.False(t, IsRetryable(err))
}

func TestGetShortlist_ProbabilityOutOfRange(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"candidate_id": 1, "candidate_name": "X", "probability": 1.4}]`))
	})

	_, err := client.GetShortlist(context.Background(), "Physics", "one_year")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestGetShortlist_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(WithBaseURL(url), WithRateLimit(0, 0))
	_, err := client.GetShortlist(context.Background(), "Physics", "one_year")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, FailureNetwork, te.Kind)
	assert.True(t, IsRetryable(err))
}

func TestGetShortlist_ContextCancellation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetShortlist(ctx, "Physics", "one_year")
	require.Error(t, err)
}

func TestGetCandidateDetail_Success(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/candidates/42", r.URL.Path)
		w.Write([]byte(`{"candidate_id": 42, "candidate_name": "Dee Doe", "affiliation": "CERN", "country": "CH",
			"headshot_url": null, "field": "Physics", "total_citations": 12000, "h_index": 61.0,
			"recent_trend": 0.7, "seminal_score": 0.9, "award_count": 5}`))
	})

	got, err := client.GetCandidateDetail(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Candidate.ID)
	assert.Equal(t, "Dee Doe", got.Candidate.Name)
	assert.Equal(t, "CH", got.Country)
	assert.Equal(t, 12000, got.TotalCitations)
	assert.InDelta(t, 61.0, got.HIndex, 1e-9)
	assert.InDelta(t, 0.7, got.TrendScore, 1e-9)
	assert.Equal(t, 5, got.AwardCount)
}

func TestGetCandidateDetail_NotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Candidate not found"}`, http.StatusNotFound)
	})

	_, err := client.GetCandidateDetail(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.False(t, IsRetryable(err))
}

func TestGetCandidateDetail_InvalidID(t *testing.T) {
	t.Parallel()

	client := NewClient()
	_, err := client.GetCandidateDetail(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = client.GetProvenance(context.Background(), -3)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetBacktests_Routes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		routes Routes
		path   string
	}{
		{"v1", RoutesV1, "/predictions/backtests"},
		{"legacy", RoutesLegacy, "/predictions/Physics/backtests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "Physics", r.URL.Query().Get("field"))
				w.Write([]byte(`[{"field": "Physics", "hit_at_10": 0.6, "auc_pr": 0.42, "brier_score": 0.11, "years_covered": [2000, 2020]}]`))
			}, WithRoutes(tt.routes))

			got, err := client.GetBacktests(context.Background(), "Physics")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, YearRange{From: 2000, To: 2020}, got[0].YearsCovered)
			assert.Equal(t, 10, got[0].K)
		})
	}
}

func TestGetProvenance_Success(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/provenance/9", r.URL.Path)
		w.Write([]byte(`{"candidate_id": 9, "records": [
			{"feature_name": "total_citations", "source": "OpenAlex", "as_of_date": "2025-08-30T00:00:00", "latency_days": 3}
		]}`))
	})

	got, err := client.GetProvenance(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OpenAlex", got[0].Source)
	assert.Equal(t, 3, got[0].LatencyDays)
	assert.Equal(t, "2025-08-30", got[0].AsOf.Format("2006-01-02"))
}

func TestTriggers(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, client.TriggerETL(context.Background()))
	require.NoError(t, client.TriggerTraining(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/training/etl", "/training/model"}, paths)
}

func TestHealth_Failure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Error(t, client.Health(context.Background()))
}

func TestReportURL(t *testing.T) {
	t.Parallel()

	client := NewClient(WithReportsURL("http://reports.local/"))

	got, err := client.ReportURL(ReportCSV, "Physics", "one_year")
	require.NoError(t, err)
	assert.Equal(t, "http://reports.local/reports/csv/Physics?horizon=one_year", got)

	got, err = client.ReportURL(ReportPDF, "Physiology Medicine", "")
	require.NoError(t, err)
	assert.Equal(t, "http://reports.local/reports/pdf/Physiology%20Medicine", got)

	_, err = client.ReportURL("docx", "Physics", "one_year")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	custom := &http.Client{}
	c := NewClient(WithHTTPClient(custom))
	hc := c.(*httpClient)
	assert.Equal(t, custom, hc.http)
}
