package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the prediction backend is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := initClient(cfg)
		if err := client.Health(cmd.Context()); err != nil {
			return eris.Wrapf(err, "backend %s unreachable", cfg.API.BaseURL)
		}
		fmt.Fprintf(os.Stdout, "backend %s ok\n", cfg.API.BaseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
