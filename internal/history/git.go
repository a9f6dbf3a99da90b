// ABOUTME: Git runner backed by the git binary.
// ABOUTME: One subprocess per invocation against the state checkout.

package history

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLIGit runs git against a fixed working directory.
type CLIGit struct {
	dir string
}

// NewCLIGit creates a git runner for the state checkout at dir.
func NewCLIGit(dir string) *CLIGit {
	return &CLIGit{dir: dir}
}

// Run executes git with the given args. The combined output is returned
// on success and folded into the error on failure, so callers can match
// on rejection messages.
func (g *CLIGit) Run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", g.dir}, args...)
	out, err := exec.CommandContext(ctx, "git", full...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
