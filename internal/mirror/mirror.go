package mirror

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/skovand/scribesync/internal/gitx"
	"github.com/skovand/scribesync/internal/redact"
)

// Mirror is the handle to the local working copy. All git-facing operations
// of the engine go through one Mirror instance; callers are responsible for
// not interleaving operations (see the engine's in-flight guard).
type Mirror struct {
	runner        *gitx.Runner
	path          string
	remote        string
	defaultBranch string
	masker        *redact.Masker
	logger        *log.Logger
}

// Path returns the mirror's working directory.
func (m *Mirror) Path() string {
	return m.path
}

// DefaultBranch returns the configured main line branch name.
func (m *Mirror) DefaultBranch() string {
	return m.defaultBranch
}

// CurrentBranch returns the checked-out branch name, or "" for detached HEAD.
func (m *Mirror) CurrentBranch(ctx context.Context) (string, error) {
	res, err := m.runner.Run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		if strings.Contains(err.Error(), "not a symbolic ref") {
			return "", nil
		}
		return "", m.masker.Mask(err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// BranchExists reports whether a local branch exists.
func (m *Mirror) BranchExists(ctx context.Context, name string) bool {
	_, err := m.runner.Run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// Checkout switches to an existing branch.
func (m *Mirror) Checkout(ctx context.Context, branch string) error {
	if _, err := m.runner.Run(ctx, "checkout", branch); err != nil {
		return m.masker.Mask(fmt.Errorf("failed to checkout %s: %w", branch, err))
	}
	return nil
}

// CheckoutOrCreate switches to the branch, creating it at HEAD when absent.
// Creating a branch on an unborn HEAD (fresh init) is supported by git.
func (m *Mirror) CheckoutOrCreate(ctx context.Context, branch string) error {
	if m.BranchExists(ctx, branch) {
		return m.Checkout(ctx, branch)
	}
	if _, err := m.runner.Run(ctx, "checkout", "-b", branch); err != nil {
		return m.masker.Mask(fmt.Errorf("failed to create branch %s: %w", branch, err))
	}
	return nil
}

// CheckoutNewFrom creates the branch at base and switches to it.
func (m *Mirror) CheckoutNewFrom(ctx context.Context, branch, base string) error {
	if _, err := m.runner.Run(ctx, "checkout", "-b", branch, base); err != nil {
		return m.masker.Mask(fmt.Errorf("failed to create branch %s from %s: %w", branch, base, err))
	}
	return nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func (m *Mirror) IsClean(ctx context.Context) (bool, error) {
	res, err := m.runner.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, m.masker.Mask(err)
	}
	return strings.TrimSpace(res.Stdout) == "", nil
}

// CommitAll stages everything (including deletions) and commits.
func (m *Mirror) CommitAll(ctx context.Context, message string) error {
	if _, err := m.runner.Run(ctx, "add", "-A"); err != nil {
		return m.masker.Mask(err)
	}
	if _, err := m.runner.Run(ctx, "commit", "-m", message); err != nil {
		return m.masker.Mask(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// Push pushes the branch to the remote, retrying once with upstream-tracking
// setup when the first attempt fails (fresh branches have no upstream yet).
func (m *Mirror) Push(ctx context.Context, branch string) error {
	_, err := m.runner.Run(ctx, "push", m.remote, branch)
	if err == nil {
		return nil
	}
	m.logger.Printf("push %s failed, retrying with upstream setup: %v", branch, m.masker.Mask(err))
	if _, err := m.runner.Run(ctx, "push", "-u", m.remote, branch); err != nil {
		return m.masker.Mask(fmt.Errorf("failed to push %s: %w", branch, err))
	}
	return nil
}

// AbortMerge aborts any merge in progress. Absence of an in-progress merge is
// not an error; this is the recovery step for runs that died mid-merge.
func (m *Mirror) AbortMerge(ctx context.Context) {
	if _, err := m.runner.Run(ctx, "merge", "--abort"); err == nil {
		m.logger.Printf("aborted leftover in-progress merge")
	}
}

// MergeInProgress reports whether a merge is currently in progress.
func (m *Mirror) MergeInProgress(ctx context.Context) bool {
	res, err := m.runner.Run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	gitDir := strings.TrimSpace(res.Stdout)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(m.path, gitDir)
	}
	_, statErr := os.Stat(filepath.Join(gitDir, "MERGE_HEAD"))
	return statErr == nil
}

// RemoveFile deletes a file from the working tree. Missing files are fine.
func (m *Mirror) RemoveFile(rel string) error {
	err := os.Remove(filepath.Join(m.path, rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// ListDir returns the plain-file names under a mirror-relative directory.
// A missing directory yields an empty list.
func (m *Mirror) ListDir(rel string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.path, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", rel, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
