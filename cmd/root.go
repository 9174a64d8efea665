package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/config"
)

var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:     "nobel-dash",
	Short:   "Nobel Prize prediction explorer",
	Long:    "Dashboard, terminal UI and scripting commands over the prediction backend: ranked shortlists, attributions, backtests and provenance.",
	Version: version,

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyRootFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		return eris.Wrap(config.InitLogger(cfg.Log), "init logger")
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

// applyRootFlags lets --backend, --routes and --log-level win over the file
// and environment.
func applyRootFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.API.BaseURL, _ = flags.GetString("backend")
	}
	if flags.Changed("routes") {
		c.API.Routes, _ = flags.GetString("routes")
	}
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
}

// rootFlags registers the config override flags on cmd.
func rootFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("backend", "", "prediction backend base URL (overrides api.base_url)")
	pf.String("routes", "", "backend route set: v1 or legacy")
	pf.String("log-level", "", "log level: debug, info, warn or error")
}

func init() {
	rootFlags(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
