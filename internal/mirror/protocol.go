package mirror

import (
	"context"
	"fmt"

	"github.com/skovand/scribesync/internal/gitx"
)

// conflictCommitMessage is the fixed message for synthetic resolution commits.
const conflictCommitMessage = "Auto-resolve sync conflicts (remote wins)"

// resolution is one named recovery strategy. Strategies for a failure are
// tried in order; the first one to succeed ends the ladder.
type resolution struct {
	name  string
	apply func(ctx context.Context, m *Mirror, branch string) error
}

// pullResolutions recover a conflicted pull. When taking the remote side of
// every conflicting path fails, the branch is reset to the remote tip: the
// mirror is a staging copy and must converge with the remote.
var pullResolutions = []resolution{
	{name: "take-theirs", apply: takeTheirs},
	{name: "reset-to-remote", apply: resetToRemote},
}

// mergeResolutions recover a conflicted merge into a review branch. The
// branch's own commits must survive, so the last resort is aborting the
// merge, never resetting.
var mergeResolutions = []resolution{
	{name: "take-theirs", apply: takeTheirs},
	{name: "abort-merge", apply: abortInProgressMerge},
}

// SafePull pulls branch from the remote, recovering every classified failure.
// It returns true when the branch is consistent with the remote afterward,
// and errors only on unclassified failures (which the caller must treat as
// fatal for the run; the mirror stays recoverable via the next call's
// leading merge abort).
func (m *Mirror) SafePull(ctx context.Context, branch string) (bool, error) {
	// A previous run may have died mid-merge.
	m.AbortMerge(ctx)

	err := m.pull(ctx, branch)
	if err == nil {
		return true, nil
	}

	class := gitx.Classify(err)
	m.logger.Printf("pull %s failed (%s): %v", branch, class, err)

	switch class {
	case gitx.EmptyRemote:
		// Nothing to pull yet.
		return true, nil

	case gitx.Conflict:
		if rerr := m.resolveConflict(ctx, branch, pullResolutions); rerr != nil {
			return false, rerr
		}
		return true, nil

	case gitx.DirtyTree:
		return m.retryWithStash(ctx, branch)

	default:
		return false, m.masker.Mask(err)
	}
}

// SafeMerge merges branch into the current branch. Conflicts are resolved by
// taking the incoming side; an unresolvable conflict aborts the merge so the
// current branch's commits survive. Non-conflict failures (already up to
// date, unrelated trees) are not error conditions for this protocol's caller
// and are swallowed with a log line.
func (m *Mirror) SafeMerge(ctx context.Context, branch string) error {
	_, err := m.runner.Run(ctx, "merge", "--no-edit", branch)
	if err == nil {
		return nil
	}

	class := gitx.Classify(err)
	m.logger.Printf("merge of %s failed (%s): %v", branch, class, err)

	if class == gitx.Conflict {
		if rerr := m.resolveConflict(ctx, branch, mergeResolutions); rerr != nil {
			m.logger.Printf("merge of %s abandoned: %v", branch, rerr)
		}
		return nil
	}

	m.logger.Printf("merge of %s skipped", branch)
	return nil
}

func (m *Mirror) pull(ctx context.Context, branch string) error {
	// --no-rebase pins the merge strategy regardless of host git config;
	// --no-edit keeps merge commits non-interactive.
	_, err := m.runner.Run(ctx, "pull", "--no-rebase", "--no-edit", m.remote, branch)
	return err
}

// resolveConflict walks the strategy ladder, logging the outcome of each
// attempt, and returns the (masked) last failure when no strategy succeeds.
func (m *Mirror) resolveConflict(ctx context.Context, branch string, strategies []resolution) error {
	var lastErr error
	for _, s := range strategies {
		if err := s.apply(ctx, m, branch); err != nil {
			m.logger.Printf("resolution %q on %s failed: %v", s.name, branch, m.masker.Mask(err))
			lastErr = err
			continue
		}
		m.logger.Printf("conflict on %s resolved via %q", branch, s.name)
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no resolution strategy configured")
	}
	return m.masker.Mask(lastErr)
}

// retryWithStash handles the dirty-working-tree case: stash, retry the pull,
// pop the stash. A pop that conflicts drops the stash; uncommitted mirror
// changes are expendable, a half-merged repository is not.
func (m *Mirror) retryWithStash(ctx context.Context, branch string) (bool, error) {
	if _, err := m.runner.Run(ctx, "stash", "--include-untracked"); err != nil {
		return false, m.masker.Mask(fmt.Errorf("failed to stash local changes: %w", err))
	}

	pullErr := m.pull(ctx, branch)

	if _, err := m.runner.Run(ctx, "stash", "pop"); err != nil {
		m.logger.Printf("stash pop conflicted, dropping stash: %v", m.masker.Mask(err))
		if _, dropErr := m.runner.Run(ctx, "stash", "drop"); dropErr != nil {
			m.logger.Printf("stash drop failed: %v", m.masker.Mask(dropErr))
		}
		// A conflicted pop leaves unmerged paths behind; clear them.
		if _, resetErr := m.runner.Run(ctx, "reset", "--hard", "HEAD"); resetErr != nil {
			m.logger.Printf("reset after dropped stash failed: %v", m.masker.Mask(resetErr))
		}
	}

	if pullErr == nil {
		return true, nil
	}

	// The retried pull can still hit the remaining classified cases.
	switch gitx.Classify(pullErr) {
	case gitx.EmptyRemote:
		return true, nil
	case gitx.Conflict:
		if rerr := m.resolveConflict(ctx, branch, pullResolutions); rerr != nil {
			return false, rerr
		}
		return true, nil
	default:
		return false, m.masker.Mask(pullErr)
	}
}

// takeTheirs keeps the remote version of every conflicting path, stages the
// result and commits with the fixed resolution message.
func takeTheirs(ctx context.Context, m *Mirror, _ string) error {
	if _, err := m.runner.Run(ctx, "checkout", "--theirs", "--", "."); err != nil {
		return err
	}
	if _, err := m.runner.Run(ctx, "add", "-A"); err != nil {
		return err
	}
	_, err := m.runner.Run(ctx, "commit", "-m", conflictCommitMessage)
	return err
}

// resetToRemote abandons local divergence entirely: abort the merge and hard
// reset the branch to the remote tip.
func resetToRemote(ctx context.Context, m *Mirror, branch string) error {
	m.AbortMerge(ctx)
	if _, err := m.runner.Run(ctx, "fetch", m.remote, branch); err != nil {
		return err
	}
	if _, err := m.runner.Run(ctx, "reset", "--hard", m.remote+"/"+branch); err != nil {
		// A fetch without a configured refspec still updates FETCH_HEAD.
		_, fhErr := m.runner.Run(ctx, "reset", "--hard", "FETCH_HEAD")
		if fhErr != nil {
			return err
		}
	}
	return nil
}

// abortInProgressMerge is the terminal strategy for review-branch merges.
func abortInProgressMerge(ctx context.Context, m *Mirror, _ string) error {
	_, err := m.runner.Run(ctx, "merge", "--abort")
	return err
}
