package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"dataworks/internal/logging"
	"dataworks/internal/tools"
)

// RunCommandTool returns a tool for executing shell commands. wd pins the
// working directory so commands start from the sandbox root; behavior is
// fully determined by arguments, never by leftover state from another run.
func RunCommandTool(wd string) *tools.Tool {
	return &tools.Tool{
		Name:        "run_command",
		Description: "Execute a shell command and return its combined stdout and stderr",
		SideEffect:  tools.SideEffectMutating,
		Timeout:     120 * time.Second,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeRunCommand(ctx, wd, args)
		},
		Schema: tools.Schema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute (passed to sh -c)",
				},
				"env": {
					Type:        "object",
					Description: "Additional environment variables",
				},
			},
		},
	}
}

func executeRunCommand(ctx context.Context, wd string, args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	logging.ToolsDebug("run_command: cmd=%s dir=%s", command, wd)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = wd

	cmd.Env = os.Environ()
	if envMap, ok := args["env"].(map[string]any); ok {
		for k, v := range envMap {
			if vs, ok := v.(string); ok {
				cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, vs))
			}
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}

	if err != nil {
		if ctx.Err() != nil {
			// Let the registry classify the deadline; the process has
			// already been killed by CommandContext.
			return output, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Nonzero exit is the target failing, not a fault of ours.
			return output, tools.NewTargetError(exitErr.ExitCode(), "exit status %d", exitErr.ExitCode())
		}
		return output, fmt.Errorf("%w: cannot run command: %v", tools.ErrToolExecution, err)
	}

	logging.ToolsDebug("run_command completed (%d bytes output)", len(output))
	return output, nil
}
