package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/export"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Download a backend report or export the shortlist to XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ex, client, err := initExplorer(cfg)
		if err != nil {
			return err
		}
		filter, err := ex.Catalog().Resolve(filterFromFlags(cmd, ex.State().Filter))
		if err != nil {
			return eris.Wrap(err, "report")
		}
		out, _ := cmd.Flags().GetString("out")

		if xlsxPath, _ := cmd.Flags().GetString("xlsx"); xlsxPath != "" {
			if err := ex.SetFilter(ctx, filter); err != nil {
				return eris.Wrap(err, "report")
			}
			if err := export.SaveXLSX(xlsxPath, ex.State()); err != nil {
				return err
			}
			zap.L().Info("wrote shortlist workbook", zap.String("path", xlsxPath))
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		u, err := client.ReportURL(nobelapi.ReportFormat(format), filter.Field, filter.Horizon)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		if out == "" {
			out = fmt.Sprintf("%s-%s.%s", filter.Field, filter.Horizon, format)
		}

		n, err := downloadReport(ctx, &http.Client{Timeout: cfg.API.Timeout()}, u, out)
		if err != nil {
			return err
		}
		zap.L().Info("downloaded report", zap.String("url", u), zap.String("path", out), zap.Int64("bytes", n))
		return nil
	},
}

// downloadReport copies the response body to path unchanged.
func downloadReport(ctx context.Context, hc *http.Client, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, eris.Wrap(err, "report: build request")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "report: download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, eris.Errorf("report: unexpected status %d from %s", resp.StatusCode, url)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "report: create %s", path)
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close() //nolint:errcheck
		return n, eris.Wrapf(err, "report: write %s", path)
	}
	return n, eris.Wrapf(f.Close(), "report: close %s", path)
}

func init() {
	filterFlags(reportCmd)
	reportCmd.Flags().String("format", string(nobelapi.ReportCSV), "backend report format: csv or pdf")
	reportCmd.Flags().String("out", "", "output path (default <field>-<horizon>.<format>)")
	reportCmd.Flags().String("xlsx", "", "write a local XLSX export of the shortlist to this path instead")
	rootCmd.AddCommand(reportCmd)
}
