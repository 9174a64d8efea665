package nobelapi

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// The backend has shipped two response layouts for most resources. Both are
// decoded into the wire structs below and folded into the canonical types so
// callers only ever see one shape.

type wireShortlistEnvelope struct {
	Field       string           `json:"field"`
	Horizon     string           `json:"horizon"`
	GeneratedAt string           `json:"generated_at"`
	Predictions []wirePrediction `json:"predictions"`
}

type wireCandidate struct {
	ID          int     `json:"id"`
	FullName    string  `json:"full_name"`
	Field       string  `json:"field"`
	Affiliation *string `json:"affiliation"`
	HeadshotURL *string `json:"headshot_url"`
}

type wirePrediction struct {
	// Flat layout.
	CandidateID   int     `json:"candidate_id"`
	CandidateName string  `json:"candidate_name"`
	Affiliation   *string `json:"affiliation"`
	Field         string  `json:"field"`
	HeadshotURL   *string `json:"headshot_url"`
	Year          int     `json:"year"`

	// Nested layout.
	Candidate      *wireCandidate     `json:"candidate"`
	PredictionYear int                `json:"prediction_year"`
	TopFeatures    map[string]float64 `json:"top_features"`
	CreatedAt      string             `json:"created_at"`

	// Shared. ShapValues is a list in the flat layout and a map in the nested one.
	Probability *float64        `json:"probability"`
	Horizon     string          `json:"horizon"`
	ShapValues  json.RawMessage `json:"shap_values"`
}

type wireAttribution struct {
	FeatureName  string  `json:"feature_name"`
	FeatureValue float64 `json:"feature_value"`
	ShapValue    float64 `json:"shap_value"`
}

type wireCandidateDetail struct {
	CandidateID    int     `json:"candidate_id"`
	CandidateName  string  `json:"candidate_name"`
	Affiliation    *string `json:"affiliation"`
	Country        *string `json:"country"`
	HeadshotURL    *string `json:"headshot_url"`
	Field          string  `json:"field"`
	TotalCitations int     `json:"total_citations"`
	HIndex         float64 `json:"h_index"`
	RecentTrend    float64 `json:"recent_trend"`
	SeminalScore   float64 `json:"seminal_score"`
	AwardCount     int     `json:"award_count"`
}

type wireBacktest struct {
	Field        string   `json:"field"`
	HitAt10      *float64 `json:"hit_at_10"`
	AUCPR        *float64 `json:"auc_pr"`
	BrierScore   *float64 `json:"brier_score"`
	YearsCovered []int    `json:"years_covered"`

	// Long layout: one row per metric.
	Metric  string         `json:"metric"`
	Value   float64        `json:"value"`
	Details map[string]any `json:"details"`
}

type wireBacktestEnvelope struct {
	Field   string         `json:"field"`
	Metrics []wireBacktest `json:"metrics"`
}

type wireProvenance struct {
	FeatureName string `json:"feature_name"`
	Source      string `json:"source"`
	AsOfDate    string `json:"as_of_date"`
	LatencyDays int    `json:"latency_days"`
}

type wireProvenanceEnvelope struct {
	CandidateID int              `json:"candidate_id"`
	Records     []wireProvenance `json:"records"`
}

const hitAtK = 10

// isArray reports whether the JSON document is a top-level array.
func isArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func normalizeShortlist(body []byte, field, horizon string) ([]PredictionRecord, error) {
	var env wireShortlistEnvelope
	if isArray(body) {
		if err := json.Unmarshal(body, &env.Predictions); err != nil {
			return nil, eris.Wrap(err, "unmarshal shortlist")
		}
	} else {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, eris.Wrap(err, "unmarshal shortlist envelope")
		}
	}

	if env.Field == "" {
		env.Field = field
	}
	if env.Horizon == "" {
		env.Horizon = horizon
	}

	records := make([]PredictionRecord, 0, len(env.Predictions))
	for i, p := range env.Predictions {
		rec, err := p.canonical(env)
		if err != nil {
			return nil, eris.Wrapf(err, "prediction %d", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p wirePrediction) canonical(env wireShortlistEnvelope) (PredictionRecord, error) {
	if p.Probability == nil {
		return PredictionRecord{}, eris.New("missing probability")
	}
	if *p.Probability < 0 || *p.Probability > 1 {
		return PredictionRecord{}, eris.Errorf("probability %v outside [0,1]", *p.Probability)
	}

	rec := PredictionRecord{
		Field:       firstNonEmpty(p.Field, env.Field),
		Horizon:     firstNonEmpty(p.Horizon, env.Horizon),
		TargetYear:  p.Year,
		Probability: *p.Probability,
	}

	if p.Candidate != nil {
		rec.Candidate = Candidate{
			ID:          p.Candidate.ID,
			Name:        p.Candidate.FullName,
			Affiliation: deref(p.Candidate.Affiliation),
			HeadshotURL: deref(p.Candidate.HeadshotURL),
		}
		if p.Field == "" && p.Candidate.Field != "" {
			rec.Field = p.Candidate.Field
		}
	} else {
		rec.Candidate = Candidate{
			ID:          p.CandidateID,
			Name:        p.CandidateName,
			Affiliation: deref(p.Affiliation),
			HeadshotURL: deref(p.HeadshotURL),
		}
	}
	if rec.Candidate.ID <= 0 {
		return PredictionRecord{}, eris.New("missing candidate id")
	}

	if rec.TargetYear == 0 {
		rec.TargetYear = p.PredictionYear
	}

	generated, err := parseTimestamp(firstNonEmpty(p.CreatedAt, env.GeneratedAt))
	if err != nil {
		return PredictionRecord{}, eris.Wrap(err, "generated_at")
	}
	rec.GeneratedAt = generated

	attrs, err := decodeAttributions(p.ShapValues)
	if err != nil {
		return PredictionRecord{}, err
	}
	if len(attrs) == 0 && len(p.TopFeatures) > 0 {
		attrs = attributionsFromMap(p.TopFeatures)
	}
	rec.Attributions = attrs

	return rec, nil
}

// decodeAttributions accepts either the list or the name→value map form.
func decodeAttributions(raw json.RawMessage) ([]FeatureAttribution, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if isArray(trimmed) {
		var list []wireAttribution
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, eris.Wrap(err, "unmarshal shap_values list")
		}
		attrs := make([]FeatureAttribution, 0, len(list))
		for _, a := range list {
			attrs = append(attrs, FeatureAttribution{
				Name:         a.FeatureName,
				Value:        a.FeatureValue,
				Contribution: a.ShapValue,
			})
		}
		return attrs, nil
	}

	var m map[string]float64
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, eris.Wrap(err, "unmarshal shap_values map")
	}
	return attributionsFromMap(m), nil
}

// attributionsFromMap emits map entries in name order so repeated decodes of
// the same payload are identical.
func attributionsFromMap(m map[string]float64) []FeatureAttribution {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]FeatureAttribution, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, FeatureAttribution{Name: name, Contribution: m[name]})
	}
	return attrs
}

func normalizeCandidateDetail(body []byte) (*CandidateDetail, error) {
	var w wireCandidateDetail
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, eris.Wrap(err, "unmarshal candidate detail")
	}
	if w.CandidateID <= 0 {
		return nil, eris.New("candidate detail: missing candidate_id")
	}
	return &CandidateDetail{
		Candidate: Candidate{
			ID:          w.CandidateID,
			Name:        w.CandidateName,
			Affiliation: deref(w.Affiliation),
			HeadshotURL: deref(w.HeadshotURL),
		},
		Field:          w.Field,
		Country:        deref(w.Country),
		TotalCitations: w.TotalCitations,
		HIndex:         w.HIndex,
		TrendScore:     w.RecentTrend,
		SeminalScore:   w.SeminalScore,
		AwardCount:     w.AwardCount,
	}, nil
}

func normalizeBacktests(body []byte) ([]BacktestMetric, error) {
	var env wireBacktestEnvelope
	if isArray(body) {
		if err := json.Unmarshal(body, &env.Metrics); err != nil {
			return nil, eris.Wrap(err, "unmarshal backtests")
		}
	} else {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, eris.Wrap(err, "unmarshal backtests envelope")
		}
	}

	var (
		out   []BacktestMetric
		index = make(map[string]int)
	)
	for _, w := range env.Metrics {
		field := firstNonEmpty(w.Field, env.Field)

		if w.Metric == "" {
			m := BacktestMetric{Field: field, K: hitAtK}
			m.HitAtK = derefFloat(w.HitAt10)
			m.AUCPR = derefFloat(w.AUCPR)
			m.BrierScore = derefFloat(w.BrierScore)
			if len(w.YearsCovered) == 2 {
				m.YearsCovered = YearRange{From: w.YearsCovered[0], To: w.YearsCovered[1]}
			}
			out = append(out, m)
			continue
		}

		// Long rows for the same field fold into one record, kept at the
		// position of the field's first row.
		i, ok := index[field]
		if !ok {
			out = append(out, BacktestMetric{Field: field, K: hitAtK})
			i = len(out) - 1
			index[field] = i
		}
		applyLongMetric(&out[i], w)
	}
	return out, nil
}

func applyLongMetric(m *BacktestMetric, w wireBacktest) {
	switch strings.ToLower(w.Metric) {
	case "hit_at_10", "hit@10":
		m.HitAtK = w.Value
	case "auc_pr", "average_precision":
		m.AUCPR = w.Value
	case "brier_score", "brier":
		m.BrierScore = w.Value
	}
	if m.YearsCovered != (YearRange{}) {
		return
	}
	if yr, ok := yearsFromDetails(w.Details); ok {
		m.YearsCovered = yr
	}
}

func yearsFromDetails(details map[string]any) (YearRange, bool) {
	if raw, ok := details["years_covered"].([]any); ok && len(raw) == 2 {
		from, ok1 := raw[0].(float64)
		to, ok2 := raw[1].(float64)
		if ok1 && ok2 {
			return YearRange{From: int(from), To: int(to)}, true
		}
	}
	if tf, ok := details["timeframe"].(string); ok {
		parts := strings.SplitN(tf, "-", 2)
		if len(parts) == 2 {
			from, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			to, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 == nil && err2 == nil {
				return YearRange{From: from, To: to}, true
			}
		}
	}
	return YearRange{}, false
}

func normalizeProvenance(body []byte) ([]ProvenanceRecord, error) {
	var env wireProvenanceEnvelope
	if isArray(body) {
		if err := json.Unmarshal(body, &env.Records); err != nil {
			return nil, eris.Wrap(err, "unmarshal provenance")
		}
	} else {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, eris.Wrap(err, "unmarshal provenance envelope")
		}
	}

	records := make([]ProvenanceRecord, 0, len(env.Records))
	for _, w := range env.Records {
		asOf, err := parseTimestamp(w.AsOfDate)
		if err != nil {
			return nil, eris.Wrapf(err, "provenance %s", w.FeatureName)
		}
		records = append(records, ProvenanceRecord{
			FeatureName: w.FeatureName,
			Source:      w.Source,
			AsOf:        asOf,
			LatencyDays: w.LatencyDays,
		})
	}
	return records, nil
}

// Timestamps arrive either zoned or naive; naive values are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized timestamp %q", s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
