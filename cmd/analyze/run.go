package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"labreport-backend/internal/bootstrap"
	"labreport-backend/internal/presentation"
	"labreport-backend/internal/reports"
	"labreport-backend/internal/shared/storage/object/local"
)

const cliOwner = "cli"

var (
	runOutDir    string
	runFormats   []string
	runCatalogue string
)

var runCmd = &cobra.Command{
	Use:   "run <text-file>",
	Short: "Analyze one extracted report text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		svc, repo, cleanup, err := newLocalService()
		if err != nil {
			return err
		}
		defer cleanup()

		report := reports.Report{
			ID:               uuid.NewString(),
			UserID:           cliOwner,
			ProfileID:        cliOwner,
			FileName:         filepath.Base(args[0]),
			FilePath:         args[0],
			FileType:         "text/plain",
			ValidationStatus: reports.ValidationPending,
			ProcessingStatus: reports.StatusPending,
		}
		if err := repo.Create(ctx, report); err != nil {
			return eris.Wrap(err, "seed report")
		}

		outcome, err := svc.Analyze(ctx, report.ID, string(text))
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis complete",
			zap.String("report_id", report.ID),
			zap.Bool("success", outcome.Success),
			zap.Int("parameters", len(outcome.AnalysisTable)),
			zap.Int("predictions", len(outcome.PredictionTable)),
		)

		if runOutDir != "" && outcome.Success {
			stored, err := repo.GetByID(ctx, report.ID)
			if err != nil {
				return eris.Wrap(err, "reload report")
			}
			if err := writeExports(runOutDir, runFormats, reports.ExportDocument(stored, time.Now().UTC())); err != nil {
				return err
			}
		}

		return printJSON(cmd.OutOrStdout(), outcome)
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text-file>",
	Short: "Decide whether a text is a medical lab report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		svc, _, cleanup, err := newLocalService()
		if err != nil {
			return err
		}
		defer cleanup()

		c := svc.Classify(cmd.Context(), string(text))
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"is_medical":             c.IsMedical,
			"confidence":             c.Confidence,
			"medical_keywords_found": c.KeywordsFound,
			"reason":                 c.Reason,
			"source":                 c.Source,
		})
	},
}

// newLocalService wires the pipeline to an in-memory repo and a temporary
// object store. The returned func removes the store directory.
func newLocalService() (*reports.Service, *reports.MemoryRepo, func(), error) {
	client, err := bootstrap.NewLLM(cfg.LLM)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "init llm")
	}
	dir, err := os.MkdirTemp("", "labreport-analyze-")
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "create temp dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	repo := reports.NewMemoryRepo()
	svc := &reports.Service{
		Repo:       repo,
		LLM:        client,
		Store:      local.New(dir),
		LLMTimeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	}
	if runCatalogue != "" {
		cat, err := loadCatalogue(runCatalogue)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		svc.Catalogue = &cat
	}
	return svc, repo, cleanup, nil
}

func loadCatalogue(path string) (reports.Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reports.Catalogue{}, eris.Wrapf(err, "read catalogue %s", path)
	}
	cat, err := reports.ParseCatalogue(data)
	if err != nil {
		return reports.Catalogue{}, eris.Wrapf(err, "parse catalogue %s", path)
	}
	return cat, nil
}

func writeExports(dir string, formats []string, doc presentation.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "create %s", dir)
	}
	for _, format := range formats {
		exp, err := presentation.Render(format, doc)
		if err != nil {
			return eris.Wrapf(err, "render %s", format)
		}
		path := filepath.Join(dir, filepath.Base(exp.FileName))
		if err := os.WriteFile(path, exp.Body, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		zap.L().Info("export written", zap.String("path", path), zap.String("format", format))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "directory for rendered exports")
	runCmd.Flags().StringSliceVar(&runFormats, "format", []string{"csv"}, "export formats ("+strings.Join(presentation.Formats, ", ")+")")
	rootCmd.PersistentFlags().StringVar(&runCatalogue, "catalogue", "", "YAML parameter catalogue overriding the built-in one")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
}
