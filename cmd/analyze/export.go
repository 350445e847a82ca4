package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"labreport-backend/internal/reports"
)

var exportOutDir string

var exportFormats []string

var exportCmd = &cobra.Command{
	Use:   "export <record.json>",
	Short: "Render exports for a stored report record",
	Long:  "Reads a report record as returned by the API, including older rows that only carry the legacy columns, and writes the requested exports.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var report reports.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return eris.Wrapf(err, "decode %s", args[0])
		}
		return writeExports(exportOutDir, exportFormats, reports.ExportDocument(report, time.Now().UTC()))
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", ".", "directory for rendered exports")
	exportCmd.Flags().StringSliceVar(&exportFormats, "format", []string{"csv"}, "export formats")
	rootCmd.AddCommand(exportCmd)
}
