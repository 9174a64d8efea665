// Package viewstate derives display state from raw backend results. Every
// function here is pure: identical inputs give identical outputs and inputs
// are never mutated.
package viewstate

import (
	"fmt"
	"math"
	"sort"

	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

// RankedPrediction is a prediction with its 1-based position in the shortlist.
type RankedPrediction struct {
	nobelapi.PredictionRecord
	Rank int `json:"rank"`
}

// Rank assigns rank index+1 in the order given. The backend's ordering is
// trusted; predictions are not re-sorted by probability.
func Rank(predictions []nobelapi.PredictionRecord) []RankedPrediction {
	ranked := make([]RankedPrediction, len(predictions))
	for i, p := range predictions {
		p.Attributions = cloneAttributions(p.Attributions)
		ranked[i] = RankedPrediction{PredictionRecord: p, Rank: i + 1}
	}
	return ranked
}

// Records strips ranks, returning the underlying predictions in order.
func Records(ranked []RankedPrediction) []nobelapi.PredictionRecord {
	out := make([]nobelapi.PredictionRecord, len(ranked))
	for i, r := range ranked {
		out[i] = r.PredictionRecord
		out[i].Attributions = cloneAttributions(r.Attributions)
	}
	return out
}

// OrderAttributions sorts a record's attributions by descending absolute
// contribution, breaking ties by feature name.
func OrderAttributions(record nobelapi.PredictionRecord) []nobelapi.FeatureAttribution {
	attrs := cloneAttributions(record.Attributions)
	sort.SliceStable(attrs, func(i, j int) bool {
		ai, aj := math.Abs(attrs[i].Contribution), math.Abs(attrs[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return attrs[i].Name < attrs[j].Name
	})
	return attrs
}

// TopDrivers returns at most n attributions in display order.
func TopDrivers(record nobelapi.PredictionRecord, n int) []nobelapi.FeatureAttribution {
	ordered := OrderAttributions(record)
	if n >= 0 && len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

// SelectCanonicalBacktest returns a copy of the first metric, or nil when
// there are none. Entries are never aggregated.
func SelectCanonicalBacktest(metrics []nobelapi.BacktestMetric) *nobelapi.BacktestMetric {
	if len(metrics) == 0 {
		return nil
	}
	m := metrics[0]
	return &m
}

// EmptyProvenanceMessage reports whether the fallback "no provenance" message
// should be shown instead of a list.
func EmptyProvenanceMessage(provenance []nobelapi.ProvenanceRecord) bool {
	return len(provenance) == 0
}

// SortProvenance orders records by feature name, then source.
func SortProvenance(records []nobelapi.ProvenanceRecord) []nobelapi.ProvenanceRecord {
	out := make([]nobelapi.ProvenanceRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FeatureName != out[j].FeatureName {
			return out[i].FeatureName < out[j].FeatureName
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// FormatProbability renders p as a percentage with one decimal.
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func cloneAttributions(in []nobelapi.FeatureAttribution) []nobelapi.FeatureAttribution {
	if in == nil {
		return nil
	}
	out := make([]nobelapi.FeatureAttribution, len(in))
	copy(out, in)
	return out
}
