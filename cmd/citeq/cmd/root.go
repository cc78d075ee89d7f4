// Package cmd provides the CLI commands for citeq.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/citeq/citeq/internal/config"
	"github.com/citeq/citeq/internal/obslog"
)

// Root flags, resolved in PersistentPreRunE the way amanmcp's root
// command resolves its own debug/profiling flags.
var (
	configPath string
	debugFlag  bool
	dataDir    string

	appConfig      *config.Config
	appLogger      *slog.Logger
	loggingCleanup func()
)

// NewRootCmd creates the root command for the citeq CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "citeq",
		Short: "Citation-grounded question answering over a fixed technical corpus",
		Long: `citeq answers questions against a fixed corpus of indexed technical
documents, returning either a cited answer or an explicit refusal when the
corpus doesn't support one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (optional; defaults + env vars apply otherwise)")
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging to <data-dir>/logs/citeq.log")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "directory holding the chunk store, BM25 artifact, and HNSW index")

	root.PersistentPreRunE = setupConfigAndLogging
	root.PersistentPostRunE = teardownLogging

	root.AddCommand(newSearchCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newAgentAskCmd())
	root.AddCommand(newEvalRunCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func setupConfigAndLogging(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	appConfig = cfg

	logCfg := obslog.StderrOnlyConfig()
	if debugFlag {
		logCfg = obslog.DebugConfig(dataDir)
	}
	logger, cleanup, err := obslog.Setup(logCfg)
	if err != nil {
		return err
	}
	appLogger = logger
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
