package main

import (
	"github.com/spf13/cobra"

	"github.com/gauguri/NobelPrediction/internal/tui"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse shortlists interactively in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ex, _, err := initExplorer(cfg)
		if err != nil {
			return err
		}
		return tui.Run(cmd.Context(), ex)
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
