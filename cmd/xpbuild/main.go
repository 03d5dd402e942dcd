// xpbuild compiles one developer-authored experience module into a
// server-executable artifact and a browser-loadable artifact, extracts the
// experience's tool surface from the server artifact, and verifies it
// against the module's declared test suite.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xpbuild/internal/config"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Logger
	logger *zap.Logger
)

// Output styles for the result lines.
var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	findingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

var rootCmd = &cobra.Command{
	Use:   "xpbuild",
	Short: "xpbuild - experience build & verification pipeline",
	Long: `xpbuild turns one experience source module into two deployable artifacts:
a server-executable representation and a browser-loadable representation.

The server artifact is evaluated in an isolated scope to extract the
experience's tools, state schema and declared tests; the test suite then
runs against the extracted tool handlers with a mock execution context.
The client artifact receives static pre-flight validation only.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; absence is not an error.
		_ = godotenv.Load()

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			// Keep structured logs off the result lines unless asked.
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default xpbuild.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the project config honoring the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

// entryPath resolves the entry source: positional argument first, config
// value otherwise.
func entryPath(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Entry
}
