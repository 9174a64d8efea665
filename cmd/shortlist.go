package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
)

var shortlistCmd = &cobra.Command{
	Use:   "shortlist",
	Short: "Print the ranked shortlist for a field and horizon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ex, _, err := initExplorer(cfg)
		if err != nil {
			return err
		}
		if err := ex.SetFilter(ctx, filterFromFlags(cmd, ex.State().Filter)); err != nil {
			return eris.Wrap(err, "shortlist")
		}
		st := ex.State()
		formatShortlist(os.Stdout, st)

		if record, _ := cmd.Flags().GetBool("record"); record {
			if err := recordSnapshot(cmd, st); err != nil {
				return err
			}
		}
		return nil
	},
}

func recordSnapshot(cmd *cobra.Command, st viewstate.ViewState) error {
	ctx := cmd.Context()
	s, err := initStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	snap := &model.Snapshot{
		Filter:  st.Filter,
		Entries: viewstate.SnapshotEntries(st.Shortlist),
	}
	if err := saveSnapshot(ctx, s, snap, cfg.Explorer.RetryPolicy()); err != nil {
		return eris.Wrap(err, "shortlist: record snapshot")
	}
	zap.L().Info("recorded shortlist snapshot",
		zap.String("id", snap.ID),
		zap.Stringer("filter", snap.Filter),
		zap.Int("entries", len(snap.Entries)),
	)
	return nil
}

func init() {
	filterFlags(shortlistCmd)
	shortlistCmd.Flags().Bool("record", false, "save the shortlist to the history store")
	rootCmd.AddCommand(shortlistCmd)
}
