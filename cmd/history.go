package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show rank movement between the two latest recorded shortlists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		catalog, err := initCatalog(cfg)
		if err != nil {
			return err
		}
		filter, err := catalog.Resolve(filterFromFlags(cmd, cfg.Explorer.DefaultFilter()))
		if err != nil {
			return eris.Wrap(err, "history")
		}

		s, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		snaps, err := s.LatestSnapshots(ctx, filter, 2)
		if err != nil {
			return eris.Wrap(err, "history")
		}

		switch len(snaps) {
		case 0:
			fmt.Fprintf(os.Stderr, "No snapshots recorded for %s. Run `nobel-dash shortlist --record` first.\n", filter)
			return nil
		case 1:
			fmt.Fprintf(os.Stdout, "Only one snapshot for %s (taken %s).\n", filter, snaps[0].TakenAt.Format("2006-01-02 15:04"))
			formatRankChanges(os.Stdout, viewstate.CompareRanks(nil, snaps[0].Entries))
			return nil
		}

		printHistoryHeader(snaps[1], snaps[0])
		formatRankChanges(os.Stdout, viewstate.CompareRanks(snaps[1].Entries, snaps[0].Entries))
		return nil
	},
}

func printHistoryHeader(previous, current model.Snapshot) {
	fmt.Fprintf(os.Stdout, "%s: %s -> %s\n\n", current.Filter,
		previous.TakenAt.Format("2006-01-02 15:04"), current.TakenAt.Format("2006-01-02 15:04"))
}

func init() {
	filterFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}
