package main

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var candidateCmd = &cobra.Command{
	Use:   "candidate <id>",
	Short: "Show a candidate's profile and data provenance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("invalid candidate id %q", args[0])
		}

		ex, _, err := initExplorer(cfg)
		if err != nil {
			return err
		}
		selectErr := ex.Select(cmd.Context(), id)
		formatCandidate(os.Stdout, ex.State())
		if selectErr != nil {
			return eris.Wrap(selectErr, "candidate")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(candidateCmd)
}
