package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Trigger backend maintenance jobs",
}

var adminETLCmd = &cobra.Command{
	Use:   "etl",
	Short: "Start the backend data refresh",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := initClient(cfg)
		return runAdmin(cmd.Context(), "etl", client.TriggerETL)
	},
}

var adminTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Start backend model training",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := initClient(cfg)
		return runAdmin(cmd.Context(), "train", client.TriggerTraining)
	},
}

func runAdmin(ctx context.Context, name string, trigger func(context.Context) error) error {
	if err := trigger(ctx); err != nil {
		return eris.Wrapf(err, "admin %s", name)
	}
	zap.L().Info("admin trigger accepted", zap.String("trigger", name))
	fmt.Fprintf(os.Stdout, "%s accepted\n", name)
	return nil
}

func init() {
	adminCmd.AddCommand(adminETLCmd, adminTrainCmd)
	rootCmd.AddCommand(adminCmd)
}
