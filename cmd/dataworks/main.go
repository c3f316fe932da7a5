// dataworks is an autonomous task agent: it plans with an LLM, acts
// through sandboxed tools, and records every step of the run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dataworks/internal/config"
	"dataworks/internal/logging"
)

var (
	configPath string
	verbose    bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dataworks",
	Short: "dataworks - autonomous task agent over sandboxed tools",
	Long: `dataworks executes natural language tasks through a Think-Act-Observe
loop: an LLM decides the next action, a sandboxed tool executes it, and
the observation feeds the next decision. Runs terminate on a final
answer or on one of the safety budgets.

Tasks can be submitted from the command line (dataworks run) or over
HTTP (dataworks serve).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(verbose); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if !verbose {
			if err := logging.SetLevel(cfg.Logging.Level); err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dataworks.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
