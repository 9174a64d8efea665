// Package nobelapi provides a client for the Nobel prediction backend.
package nobelapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the prediction backend operations.
type Client interface {
	// GetShortlist returns the predictions for a field and horizon in backend order.
	GetShortlist(ctx context.Context, field, horizon string) ([]PredictionRecord, error)
	// GetCandidateDetail returns the extended profile for one candidate.
	GetCandidateDetail(ctx context.Context, candidateID int) (*CandidateDetail, error)
	// GetBacktests returns the historical accuracy records for a field.
	GetBacktests(ctx context.Context, field string) ([]BacktestMetric, error)
	// GetProvenance returns the per-feature provenance records for a candidate.
	GetProvenance(ctx context.Context, candidateID int) ([]ProvenanceRecord, error)
	// TriggerETL asks the backend to refresh its source data.
	TriggerETL(ctx context.Context) error
	// TriggerTraining asks the backend to retrain its models.
	TriggerTraining(ctx context.Context) error
	// Health checks that the backend is reachable.
	Health(ctx context.Context) error
	// ReportURL builds the download link for a backend-rendered report.
	ReportURL(format ReportFormat, field, horizon string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithReportsURL sets the host serving report downloads.
func WithReportsURL(u string) Option {
	return func(c *httpClient) {
		c.reportsURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the transport timeout for each request.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps the request rate to the backend.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *httpClient) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithRoutes selects the shortlist/backtest path layout.
func WithRoutes(r Routes) Option {
	return func(c *httpClient) {
		if r != "" {
			c.routes = r
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	baseURL    string
	reportsURL string
	routes     Routes
	userAgent  string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a prediction backend client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:    "http://localhost:8000/api/v1",
		reportsURL: "http://localhost:8000",
		routes:     RoutesV1,
		userAgent:  "nobel-dash/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one request and returns the body of a 2xx response. Every
// failure is reported as a *TransportError.
func (c *httpClient) do(ctx context.Context, op, method, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: op, URL: reqURL, Kind: FailureNetwork, Err: eris.Wrap(err, "rate limiter wait")}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, &TransportError{Op: op, URL: reqURL, Kind: FailureNetwork, Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: reqURL, Kind: FailureNetwork, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: reqURL, Kind: FailureNetwork, StatusCode: resp.StatusCode, Err: eris.Wrap(err, "read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Op:         op,
			URL:        reqURL,
			Kind:       FailureStatus,
			StatusCode: resp.StatusCode,
			Err:        eris.New(truncate(string(body), 200)),
		}
	}

	return body, nil
}

func decodeFailure(op, reqURL string, err error) error {
	return &TransportError{Op: op, URL: reqURL, Kind: FailureDecode, StatusCode: http.StatusOK, Err: err}
}

func (c *httpClient) GetShortlist(ctx context.Context, field, horizon string) ([]PredictionRecord, error) {
	if strings.TrimSpace(field) == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "shortlist: field is required")
	}

	var path string
	query := url.Values{}
	switch c.routes {
	case RoutesLegacy:
		path = "/predictions/" + url.PathEscape(field)
	default:
		path = "/predictions/shortlist"
		query.Set("field", field)
	}
	if horizon != "" {
		query.Set("horizon", horizon)
	}

	body, err := c.do(ctx, "shortlist", http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}

	records, err := normalizeShortlist(body, field, horizon)
	if err != nil {
		return nil, decodeFailure("shortlist", c.baseURL+path, err)
	}
	return records, nil
}

func (c *httpClient) GetCandidateDetail(ctx context.Context, candidateID int) (*CandidateDetail, error) {
	if candidateID <= 0 {
		return nil, eris.Wrapf(ErrInvalidArgument, "candidate detail: id %d", candidateID)
	}

	path := "/predictions/candidates/" + strconv.Itoa(candidateID)
	body, err := c.do(ctx, "candidate detail", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	detail, err := normalizeCandidateDetail(body)
	if err != nil {
		return nil, decodeFailure("candidate detail", c.baseURL+path, err)
	}
	return detail, nil
}

func (c *httpClient) GetBacktests(ctx context.Context, field string) ([]BacktestMetric, error) {
	if strings.TrimSpace(field) == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "backtests: field is required")
	}

	path := "/predictions/backtests"
	if c.routes == RoutesLegacy {
		path = "/predictions/" + url.PathEscape(field) + "/backtests"
	}
	query := url.Values{"field": {field}}

	body, err := c.do(ctx, "backtests", http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}

	metrics, err := normalizeBacktests(body)
	if err != nil {
		return nil, decodeFailure("backtests", c.baseURL+path, err)
	}
	return metrics, nil
}

func (c *httpClient) GetProvenance(ctx context.Context, candidateID int) ([]ProvenanceRecord, error) {
	if candidateID <= 0 {
		return nil, eris.Wrapf(ErrInvalidArgument, "provenance: id %d", candidateID)
	}

	path := "/predictions/provenance/" + strconv.Itoa(candidateID)
	body, err := c.do(ctx, "provenance", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	records, err := normalizeProvenance(body)
	if err != nil {
		return nil, decodeFailure("provenance", c.baseURL+path, err)
	}
	return records, nil
}

func (c *httpClient) TriggerETL(ctx context.Context) error {
	_, err := c.do(ctx, "trigger etl", http.MethodPost, "/training/etl", nil)
	return err
}

func (c *httpClient) TriggerTraining(ctx context.Context) error {
	_, err := c.do(ctx, "trigger training", http.MethodPost, "/training/model", nil)
	return err
}

func (c *httpClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, "/health", nil)
	return err
}

func (c *httpClient) ReportURL(format ReportFormat, field, horizon string) (string, error) {
	if format != ReportCSV && format != ReportPDF {
		return "", eris.Wrapf(ErrInvalidArgument, "report: unknown format %q", format)
	}
	if strings.TrimSpace(field) == "" {
		return "", eris.Wrap(ErrInvalidArgument, "report: field is required")
	}

	u := fmt.Sprintf("%s/reports/%s/%s", c.reportsURL, format, url.PathEscape(field))
	if horizon != "" {
		u += "?" + url.Values{"horizon": {horizon}}.Encode()
	}
	return u, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
