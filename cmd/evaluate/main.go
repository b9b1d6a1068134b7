package main

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ransomguard/internal/config"
	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/domain/services"
	"ransomguard/pkg/logger"
)

var (
	cfgFile     string
	artifactDir string
	logFile     string
	strict      bool
	outputJSON  bool
)

var errMismatch = errors.New("one or more evaluation cases did not match the expected label")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the trained ransomware model against labelled samples",
	Long: `evaluate loads the model artifacts and scores the built-in benign,
suspicious and malware samples, reporting each verdict and whether it
matches the expected label.`,
	SilenceUsage: true,
	RunE:         runEvaluate,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.Flags().StringVar(&artifactDir, "artifacts", "", "model artifact directory (default model.artifact_dir from config)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "logs/test_results.log", "file receiving a copy of the log, empty to disable")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any case does not match its expected label")
	rootCmd.Flags().BoolVar(&outputJSON, "json", false, "print the report as JSON on stdout")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	dir := artifactDir
	if dir == "" {
		dir = cfg.Model.ArtifactDir
	}

	root := logger.New(logger.Config{
		Level:  cfg.Logger.Level,
		Format: "console",
		File:   logFile,
	})
	defer root.Close()
	log := root.WithComponent("evaluate")

	log.Info().Str("dir", dir).Msg("loading model artifacts")
	bundle, err := scoring.LoadArtifacts(dir)
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to load model artifacts")
		return err
	}
	log.Info().Str("bundle", bundle.Describe()).Msg("model artifacts loaded")

	report := services.Evaluate(bundle, services.EvaluationProfiles())

	for _, c := range report.Cases {
		if c.Verdict == nil {
			log.Error().Str("case", c.Profile.Name).Str("error", c.Error).Msg("case failed to score")
			continue
		}
		event := log.Info()
		if !c.Passed {
			event = log.Warn()
		}
		event.
			Str("case", c.Profile.Name).
			Str("expected", c.Profile.Expected).
			Str("prediction", c.Verdict.Prediction).
			Float64("confidence", c.Verdict.Confidence).
			Float64("malware_probability", c.Verdict.MalwareProbability).
			Str("risk_level", string(c.Verdict.RiskLevel)).
			Str("recommendation", string(c.Verdict.Recommendation)).
			Bool("passed", c.Passed).
			Msg("case evaluated")
	}

	log.Info().
		Int("passed", report.Passed).
		Int("failed", report.Failed).
		Int("total", len(report.Cases)).
		Float64("accuracy", report.Accuracy()).
		Dur("duration", time.Since(start)).
		Str("model_version", report.ModelVersion).
		Msg("evaluation complete")

	if outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	if strict && !report.AllPassed() {
		return errMismatch
	}
	return nil
}
