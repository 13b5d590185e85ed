package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/skovand/scribesync/internal/codec"
	"github.com/skovand/scribesync/internal/hosting"
	"github.com/skovand/scribesync/internal/item"
	"github.com/skovand/scribesync/internal/mirror"
)

// PushDirect places one item into the mirror and pushes it straight to the
// main line. Returns a Skipped result when another operation is in flight.
func (e *Engine) PushDirect(ctx context.Context, account string, it *item.Item) (res *Result, err error) {
	if !e.begin() {
		return &Result{Skipped: true}, nil
	}
	defer func() { e.finish(err != nil) }()

	dir, err := e.cfg.AccountDir(account)
	if err != nil {
		return nil, err
	}

	m, err := e.mirrors.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}

	main := m.DefaultBranch()
	if err := m.CheckoutOrCreate(ctx, main); err != nil {
		return nil, err
	}
	if _, err := m.SafePull(ctx, main); err != nil {
		return nil, err
	}

	if _, err := codec.Place(m.Path(), dir, it, time.Now().UTC()); err != nil {
		return nil, err
	}

	clean, err := m.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if clean {
		e.logger.Printf("push %s/%s: nothing changed", account, it.Filename)
		return &Result{NoChanges: true}, nil
	}

	msg := fmt.Sprintf("%s: %s", it.Status.Label(), it.Title())
	if err := m.CommitAll(ctx, msg); err != nil {
		return nil, err
	}
	if err := m.Push(ctx, main); err != nil {
		return nil, err
	}

	e.logger.Printf("pushed %s/%s to %s", account, it.Filename, main)
	return &Result{Pushed: 1}, nil
}

// PushForReview places one item on the account's date-scoped review branch
// and ensures exactly one open review request exists for it. The mirror is
// always returned to the main line before completing, whatever the outcome.
func (e *Engine) PushForReview(ctx context.Context, account string, it *item.Item) (res *Result, err error) {
	if !e.begin() {
		return &Result{Skipped: true}, nil
	}
	defer func() { e.finish(err != nil) }()

	dir, err := e.cfg.AccountDir(account)
	if err != nil {
		return nil, err
	}

	m, err := e.mirrors.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}

	main := m.DefaultBranch()
	if err := m.CheckoutOrCreate(ctx, main); err != nil {
		return nil, err
	}
	if _, err := m.SafePull(ctx, main); err != nil {
		return nil, err
	}

	// Leave the mirror in a known state for the next caller.
	defer func() {
		if cerr := m.Checkout(ctx, main); cerr != nil {
			e.logger.Printf("failed to return to %s: %v", main, cerr)
		}
	}()

	branch := reviewBranch(account, time.Now())
	if err := e.checkoutReviewBranch(ctx, m, branch); err != nil {
		return nil, err
	}

	if _, err := codec.Place(m.Path(), dir, it, time.Now().UTC()); err != nil {
		return nil, err
	}

	pushed := 0
	clean, err := m.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		msg := fmt.Sprintf("%s: %s", it.Status.Label(), it.Title())
		if err := m.CommitAll(ctx, msg); err != nil {
			return nil, err
		}
		if err := m.Push(ctx, branch); err != nil {
			return nil, err
		}
		pushed = 1
	}

	names, err := m.ListDir(filepath.Join(dir, it.Status.Dir()))
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Automated review request for account %s.\n\n%d item(s) in %s.",
		account, len(names), it.Status.Dir())
	pr, err := e.ensureReviewRequest(ctx, m, account, branch, body)
	if err != nil {
		return nil, err
	}

	return &Result{Pushed: pushed, PullRequest: pr}, nil
}

// checkoutReviewBranch switches to the review branch. An existing branch gets
// the main line folded in so it does not diverge from concurrent direct
// pushes; a new one starts fresh from main.
func (e *Engine) checkoutReviewBranch(ctx context.Context, m *mirror.Mirror, branch string) error {
	if m.BranchExists(ctx, branch) {
		if err := m.Checkout(ctx, branch); err != nil {
			return err
		}
		return m.SafeMerge(ctx, m.DefaultBranch())
	}
	return m.CheckoutNewFrom(ctx, branch, m.DefaultBranch())
}

// ensureReviewRequest returns the open review request for the branch,
// creating it when absent. Never creates a duplicate.
func (e *Engine) ensureReviewRequest(ctx context.Context, m *mirror.Mirror, account, branch, body string) (*hosting.PullRequest, error) {
	pr, err := e.hosting.FindOpenPull(ctx, branch)
	if err != nil {
		return nil, err
	}
	if pr != nil {
		e.logger.Printf("reusing review request #%d for %s", pr.Number, branch)
		return pr, nil
	}

	title := fmt.Sprintf("Review %s content for %s",
		time.Now().UTC().Format("2006-01-02"), account)
	return e.hosting.CreatePull(ctx, title, branch, m.DefaultBranch(), body)
}
