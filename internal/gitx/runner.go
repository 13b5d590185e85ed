// Package gitx runs git commands for the repository mirror and classifies
// their failures into the small set of conditions the sync protocols know how
// to recover from.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/skovand/scribesync/internal/redact"
)

// Runner executes git commands in one working directory.
type Runner struct {
	// gitPath is the resolved path to the git executable.
	gitPath string

	// Dir is the directory commands run in. Callers may repoint it after a
	// clone creates the target directory.
	Dir string

	// masker strips credentials from captured output before it is stored
	// in an error. Never nil.
	masker *redact.Masker
}

// NewRunner returns a Runner for the given directory. The masker may be nil
// when no credential is configured.
func NewRunner(dir string, masker *redact.Masker) (*Runner, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("no 'git' program on path: %w", err)
	}
	if masker == nil {
		masker = redact.NewMasker("")
	}
	return &Runner{gitPath: p, Dir: dir, masker: masker}, nil
}

// RunResult holds the captured output of a successful command.
type RunResult struct {
	Stdout string
	Stderr string
}

// Run executes a git command, omitting the leading "git". On failure the
// returned error is an *ExecError carrying the (credential-masked) output.
func (r *Runner) Run(ctx context.Context, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return RunResult{}, &ExecError{
			Args:   args,
			Err:    err,
			Stdout: r.masker.MaskString(stdout.String()),
			Stderr: r.masker.MaskString(stderr.String()),
		}
	}
	return RunResult{
		Stdout: r.masker.MaskString(stdout.String()),
		Stderr: r.masker.MaskString(stderr.String()),
	}, nil
}

// ExecError is a failed git invocation. Stdout and Stderr are already
// credential-masked; the error text is safe to log or surface as-is.
type ExecError struct {
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Output returns the combined command output used for failure classification.
func (e *ExecError) Output() string {
	return e.Stdout + "\n" + e.Stderr
}
