package fileio

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dataworks/internal/logging"
	"dataworks/internal/tools"
)

// ReadFileTool returns a tool for reading file contents inside the sandbox.
func ReadFileTool(sb *Sandbox) *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file inside the data root",
		SideEffect:  tools.SideEffectReadOnly,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeReadFile(sb, args)
		},
		Schema: tools.Schema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to read, relative to the data root",
				},
			},
		},
	}
}

func executeReadFile(sb *Sandbox, args map[string]any) (string, error) {
	requested, _ := args["path"].(string)
	path, err := sb.Resolve(requested)
	if err != nil {
		return "", err
	}

	logging.ToolsDebug("read_file: %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", tools.NewTargetError(1, "file not found: %s", requested)
		}
		return "", fmt.Errorf("%w: cannot read %s: %v", tools.ErrToolExecution, requested, err)
	}
	return string(content), nil
}

// WriteFileTool returns a tool for writing content to a file inside the
// sandbox. Existing data is never deleted: overwriting a file with empty
// content is rejected, and there is no removal tool at all.
func WriteFileTool(sb *Sandbox) *tools.Tool {
	return &tools.Tool{
		Name:        "write_file",
		Description: "Write content to a file inside the data root, creating parent directories as needed",
		SideEffect:  tools.SideEffectMutating,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeWriteFile(sb, args)
		},
		Schema: tools.Schema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to write, relative to the data root",
				},
				"content": {
					Type:        "string",
					Description: "The content to write",
				},
				"allow_truncate": {
					Type:        "boolean",
					Description: "Permit replacing an existing file with empty content",
					Default:     false,
				},
			},
		},
	}
}

func executeWriteFile(sb *Sandbox, args map[string]any) (string, error) {
	requested, _ := args["path"].(string)
	path, err := sb.Resolve(requested)
	if err != nil {
		return "", err
	}

	content, _ := args["content"].(string)
	allowTruncate, _ := args["allow_truncate"].(bool)
	if content == "" && !allowTruncate {
		if _, statErr := os.Stat(path); statErr == nil {
			return "", tools.NewTargetError(1, "refusing to overwrite %s with empty content", requested)
		}
	}

	logging.ToolsDebug("write_file: %s (%d bytes)", path, len(content))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: cannot create directories for %s: %v", tools.ErrToolExecution, requested, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot write %s: %v", tools.ErrToolExecution, requested, err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), sb.Rel(path)), nil
}

// AppendFileTool returns a tool that appends content to a file.
func AppendFileTool(sb *Sandbox) *tools.Tool {
	return &tools.Tool{
		Name:        "append_file",
		Description: "Append content to a file inside the data root",
		SideEffect:  tools.SideEffectMutating,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeAppendFile(sb, args)
		},
		Schema: tools.Schema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to append to, relative to the data root",
				},
				"content": {
					Type:        "string",
					Description: "The content to append",
				},
			},
		},
	}
}

func executeAppendFile(sb *Sandbox, args map[string]any) (string, error) {
	requested, _ := args["path"].(string)
	path, err := sb.Resolve(requested)
	if err != nil {
		return "", err
	}
	content, _ := args["content"].(string)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: cannot create directories for %s: %v", tools.ErrToolExecution, requested, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: cannot open %s: %v", tools.ErrToolExecution, requested, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("%w: cannot append to %s: %v", tools.ErrToolExecution, requested, err)
	}
	return fmt.Sprintf("appended %d bytes to %s", len(content), sb.Rel(path)), nil
}

// ListFilesTool returns a tool that lists files under a directory.
func ListFilesTool(sb *Sandbox) *tools.Tool {
	return &tools.Tool{
		Name:        "list_files",
		Description: "List files under a directory inside the data root",
		SideEffect:  tools.SideEffectReadOnly,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeListFiles(sb, args)
		},
		Schema: tools.Schema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "Directory to list, relative to the data root (default: the root)",
				},
				"recursive": {
					Type:        "boolean",
					Description: "Walk subdirectories (default: false)",
					Default:     false,
				},
			},
		},
	}
}

func executeListFiles(sb *Sandbox, args map[string]any) (string, error) {
	requested, _ := args["path"].(string)
	if requested == "" {
		requested = "."
	}
	dir, err := sb.Resolve(requested)
	if err != nil {
		return "", err
	}

	recursive, _ := args["recursive"].(bool)

	var names []string
	if recursive {
		err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() {
				names = append(names, sb.Rel(p))
			}
			return nil
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(dir)
		for _, e := range entries {
			name := sb.Rel(filepath.Join(dir, e.Name()))
			if e.IsDir() {
				name += string(filepath.Separator)
			}
			names = append(names, name)
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return "", tools.NewTargetError(1, "directory not found: %s", requested)
		}
		return "", fmt.Errorf("%w: cannot list %s: %v", tools.ErrToolExecution, requested, err)
	}

	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}
