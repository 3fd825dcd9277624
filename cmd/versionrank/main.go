// Package main implements the versionrank CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"versionrank/internal/logging"
)

var (
	cfgPath string
	version = "dev"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		logger, lerr := logging.New("error", "console")
		if lerr != nil {
			logger = zap.NewExample()
		}
		reportError(logger, err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func reportError(logger *zap.Logger, err error) {
	logger.Error("command failed", zap.Error(err))
}

var rootCmd = &cobra.Command{
	Use:   "versionrank",
	Short: "Rank stored chapter versions and learn from feedback",
	Long: `versionrank stores rewritten versions of book chapters, retrieves the ones
relevant to a query and learns from yes/no feedback which version to show first.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Path to YAML config file (optional; uses ./versionrank.yaml or ~/.config/versionrank/config.yaml)")
	rootCmd.AddCommand(addCmd, searchCmd, feedbackCmd, reviewCmd, rewriteCmd, tuiCmd, valuesCmd)
}
