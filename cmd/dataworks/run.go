package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dataworks/internal/logging"
	"dataworks/internal/store"
	"dataworks/internal/trace"
)

var (
	runPlain   bool
	runPersist bool

	runAPIKey   string
	runModel    string
	runBaseURL  string
	runProvider string
	runDataRoot string
	runMaxIter  int
	runTimeout  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [task...]",
	Short: "Execute a single task and print the final answer",
	Long: `Runs one task through the agent loop and prints the final answer.
The full trace is persisted to the run store for later inspection.

Example:
  dataworks run "count the number of rows in /data/sales.csv"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Print the answer without markdown rendering")
	runCmd.Flags().BoolVar(&runPersist, "persist", true, "Persist the run to the run store")
	runCmd.Flags().StringVar(&runAPIKey, "api-key", "", "API key for the completion provider")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model name override")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "Completion endpoint override")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "Completion provider (openai, gemini)")
	runCmd.Flags().StringVar(&runDataRoot, "data-root", "", "Sandbox root directory override")
	runCmd.Flags().IntVar(&runMaxIter, "max-iterations", 0, "Iteration budget override")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Run timeout override")
}

func applyRunOverrides() {
	if runAPIKey != "" {
		cfg.LLM.APIKey = runAPIKey
	}
	if runModel != "" {
		cfg.LLM.Model = runModel
	}
	if runBaseURL != "" {
		cfg.LLM.BaseURL = runBaseURL
	}
	if runProvider != "" {
		cfg.LLM.Provider = runProvider
	}
	if runDataRoot != "" {
		cfg.Sandbox.Root = runDataRoot
	}
	if runMaxIter > 0 {
		cfg.Execution.MaxIterations = runMaxIter
	}
	if runTimeout > 0 {
		cfg.Execution.RunTimeout = runTimeout.String()
	}
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyRunOverrides()
	registry, _, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	loop, err := buildLoop(ctx, cfg, registry)
	if err != nil {
		return err
	}
	task := trace.NewTask(strings.Join(args, " "))
	result := loop.Run(ctx, task)

	if runPersist {
		runs, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer runs.Close()
		if err := runs.Save(context.Background(), result); err != nil {
			logging.Boot("failed to persist run %s: %v", task.ID, err)
		}
	}

	if result.State == trace.StateAborted {
		return fmt.Errorf("run %s aborted after %d steps: %s", task.ID, len(result.Steps), result.AbortReason)
	}

	fmt.Println(renderAnswer(result.FinalAnswer))
	return nil
}

func renderAnswer(answer string) string {
	if runPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return answer
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return answer
	}
	out, err := renderer.Render(answer)
	if err != nil {
		return answer
	}
	return strings.TrimRight(out, "\n")
}
