package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"labreport-backend/internal/labdata"
	"labreport-backend/internal/reports"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text-file> <model-output-file>",
	Short: "Normalize a saved model reply without calling a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		output, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[1])
		}

		cat := reports.DefaultCatalogue()
		if runCatalogue != "" {
			if cat, err = loadCatalogue(runCatalogue); err != nil {
				return err
			}
		}

		frag := reports.NormalizeWith(cat, string(text), string(output))
		return printJSON(cmd.OutOrStdout(), normalizedFragment{
			Parameters:   frag.Parameters,
			Predictions:  frag.Predictions,
			PatientInfo:  frag.PatientInfo,
			Source:       frag.Source,
			BackfillRows: frag.BackfillRows,
		})
	},
}

type normalizedFragment struct {
	Parameters   []labdata.Parameter  `json:"analysis_table"`
	Predictions  []labdata.Prediction `json:"prediction_table"`
	PatientInfo  labdata.PatientInfo  `json:"patient_info"`
	Source       labdata.Provenance   `json:"source"`
	BackfillRows int                  `json:"backfill_rows"`
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
