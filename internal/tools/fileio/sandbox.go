package fileio

import (
	"fmt"
	"path/filepath"
	"strings"

	"dataworks/internal/tools"
)

// Sandbox confines file access to a root directory. Every path an argument
// names is resolved through Resolve before any filesystem call; the guard is
// enforced here, never assumed from arguments.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at the given directory. The root is
// made absolute so later comparisons are stable regardless of cwd.
func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve sandbox root %q: %w", root, err)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve maps a requested path to an absolute path inside the sandbox.
// Relative paths are taken relative to the root. Any path that resolves
// outside the root fails with ErrPathEscape, including dot-dot traversal
// of an in-root prefix such as root/../etc/passwd.
func (s *Sandbox) Resolve(requested string) (string, error) {
	if requested == "" {
		return "", fmt.Errorf("%w: empty path", tools.ErrPathEscape)
	}

	p := requested
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", tools.ErrPathEscape, requested)
	}
	return p, nil
}

// Rel returns the path relative to the root for presentation.
func (s *Sandbox) Rel(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return rel
}
