package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gauguri/NobelPrediction/internal/viewstate"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

func formatShortlist(w io.Writer, s viewstate.ViewState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RANK\tCANDIDATE\tAFFILIATION\tPROBABILITY\tTOP DRIVERS\n")
	for _, r := range s.Shortlist {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.Rank, r.Candidate.Name, r.Candidate.Affiliation,
			viewstate.FormatProbability(r.Probability), formatDrivers(r.PredictionRecord, 3))
	}
	tw.Flush() //nolint:errcheck

	if bt := s.CanonicalBacktest(); bt != nil {
		fmt.Fprintf(w, "\nBacktest: Hit@%d %s, AUC-PR %.3f, Brier %.3f (%d-%d)\n",
			bt.K, viewstate.FormatProbability(bt.HitAtK), bt.AUCPR, bt.BrierScore,
			bt.YearsCovered.From, bt.YearsCovered.To)
	} else {
		fmt.Fprintln(w, "\nNo backtest available for this field.")
	}
}

func formatDrivers(r nobelapi.PredictionRecord, n int) string {
	drivers := viewstate.TopDrivers(r, n)
	parts := make([]string, len(drivers))
	for i, d := range drivers {
		parts[i] = fmt.Sprintf("%s (%+.3f)", d.Name, d.Contribution)
	}
	return strings.Join(parts, ", ")
}

func formatCandidate(w io.Writer, s viewstate.ViewState) {
	if r, ok := s.Ranked(s.SelectedID); ok {
		fmt.Fprintf(w, "%s (#%d, %s)\n", r.Candidate.Name, r.Rank, viewstate.FormatProbability(r.Probability))
	}
	if d := s.SelectedCandidate; d != nil {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Field:\t%s\n", d.Field)
		if d.Country != "" {
			fmt.Fprintf(tw, "Country:\t%s\n", d.Country)
		}
		fmt.Fprintf(tw, "Total citations:\t%d\n", d.TotalCitations)
		fmt.Fprintf(tw, "h-index:\t%.0f\n", d.HIndex)
		fmt.Fprintf(tw, "Trend score:\t%.2f\n", d.TrendScore)
		fmt.Fprintf(tw, "Seminal score:\t%.2f\n", d.SeminalScore)
		fmt.Fprintf(tw, "Awards:\t%d\n", d.AwardCount)
		tw.Flush() //nolint:errcheck
	}
	if msg := s.DetailError.Message(); msg != "" {
		fmt.Fprintln(w, msg)
	}
	if !s.ProvenanceLoaded {
		return
	}
	fmt.Fprintln(w, "\nProvenance:")
	if s.NoProvenance() {
		fmt.Fprintln(w, "  "+s.ProvenanceMessage())
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range s.Provenance {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d days\n", p.FeatureName, p.Source, p.AsOf.Format("2006-01-02"), p.LatencyDays)
	}
	tw.Flush() //nolint:errcheck
}

func formatRankChanges(w io.Writer, changes []viewstate.RankChange) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CANDIDATE\tPREVIOUS\tCURRENT\tMOVE\n")
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, rankOrDash(c.Previous), rankOrDash(c.Current), movement(c))
	}
	tw.Flush() //nolint:errcheck
}

func rankOrDash(rank int) string {
	if rank == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", rank)
}

func movement(c viewstate.RankChange) string {
	switch {
	case c.Entered():
		return "new"
	case c.Dropped():
		return "dropped"
	case c.Delta() > 0:
		return fmt.Sprintf("up %d", c.Delta())
	case c.Delta() < 0:
		return fmt.Sprintf("down %d", -c.Delta())
	default:
		return "="
	}
}
