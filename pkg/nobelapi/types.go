package nobelapi

import "time"

// Candidate identifies a nominee.
type Candidate struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	HeadshotURL string `json:"headshot_url,omitempty"`
}

// FeatureAttribution is the signed contribution of one feature to a
// candidate's predicted probability.
type FeatureAttribution struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// PredictionRecord is one candidate's prediction for a field and horizon.
type PredictionRecord struct {
	Candidate    Candidate            `json:"candidate"`
	Field        string               `json:"field"`
	Horizon      string               `json:"horizon"`
	TargetYear   int                  `json:"target_year"`
	Probability  float64              `json:"probability"`
	Attributions []FeatureAttribution `json:"attributions"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// CandidateDetail is the extended profile of a single candidate.
type CandidateDetail struct {
	Candidate      Candidate `json:"candidate"`
	Field          string    `json:"field"`
	Country        string    `json:"country,omitempty"`
	TotalCitations int       `json:"total_citations"`
	HIndex         float64   `json:"h_index"`
	TrendScore     float64   `json:"trend_score"`
	SeminalScore   float64   `json:"seminal_score"`
	AwardCount     int       `json:"award_count"`
}

// YearRange is an inclusive range of award years.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// BacktestMetric summarizes historical accuracy of a field's model.
type BacktestMetric struct {
	Field        string    `json:"field"`
	HitAtK       float64   `json:"hit_at_k"`
	K            int       `json:"k"`
	AUCPR        float64   `json:"auc_pr"`
	BrierScore   float64   `json:"brier_score"`
	YearsCovered YearRange `json:"years_covered"`
}

// ProvenanceRecord describes the source and freshness of one feature's data.
type ProvenanceRecord struct {
	FeatureName string    `json:"feature_name"`
	Source      string    `json:"source"`
	AsOf        time.Time `json:"as_of"`
	LatencyDays int       `json:"latency_days"`
}

// ReportFormat selects a backend report download.
type ReportFormat string

// Report formats served by the backend.
const (
	ReportCSV ReportFormat = "csv"
	ReportPDF ReportFormat = "pdf"
)

// Routes selects the backend's path layout for shortlist and backtests.
type Routes string

const (
	// RoutesV1 uses /predictions/shortlist and /predictions/backtests with query parameters.
	RoutesV1 Routes = "v1"
	// RoutesLegacy uses /predictions/{field} and /predictions/{field}/backtests.
	RoutesLegacy Routes = "legacy"
)
