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

// Sync reconciles the full local item set of an account against the mirror:
// local deletions propagate outward, local adds/changes are placed, one
// count-bearing commit is pushed (directly or behind a review request), and
// remote changes flow back into the local store.
func (e *Engine) Sync(ctx context.Context, account string, mode Mode) (res *Result, err error) {
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

	mirrorSet, err := e.mirrorFileSet(m, dir)
	if err != nil {
		return nil, err
	}
	items, err := e.store.List(account)
	if err != nil {
		return nil, err
	}

	// Reflect remote deletions into the local store: an item that has been
	// synced before but no longer exists anywhere in the mirror was deleted
	// remotely. A first run against an empty mirror must never mass-delete
	// the local set, hence the non-empty guard.
	pulled := 0
	if len(mirrorSet) > 0 {
		kept := items[:0]
		for _, it := range items {
			if !it.SyncedAt.IsZero() && !mirrorSet[it.Filename] {
				if derr := e.store.Delete(account, it.Filename); derr != nil {
					return nil, derr
				}
				e.logger.Printf("removed %s/%s (deleted remotely)", account, it.Filename)
				pulled++
				continue
			}
			kept = append(kept, it)
		}
		items = kept
	}

	workBranch := main
	var pr *hosting.PullRequest
	if mode == ModeReview {
		branch := reviewBranch(account, time.Now())
		if err := e.checkoutReviewBranch(ctx, m, branch); err != nil {
			return nil, err
		}
		workBranch = branch
		defer func() {
			if cerr := m.Checkout(ctx, main); cerr != nil {
				e.logger.Printf("failed to return to %s: %v", main, cerr)
			}
		}()
	}

	// Propagate local deletions outward. A mirror file absent from the
	// local set is only a local deletion if this engine placed it, which
	// the synced_at stamp records; an unstamped file was authored remotely
	// and is left in place for the pull-back step to import.
	local := make(map[string]bool, len(items))
	for _, it := range items {
		local[it.Filename] = true
	}
	pushed := 0
	for _, d := range item.StatusDirs() {
		rel := filepath.Join(dir, d)
		names, lerr := m.ListDir(rel)
		if lerr != nil {
			return nil, lerr
		}
		for _, name := range names {
			if local[name] {
				continue
			}
			mit, derr := codec.DecodeFile(filepath.Join(m.Path(), rel, name))
			if derr != nil || mit.SyncedAt.IsZero() {
				continue
			}
			if rerr := m.RemoveFile(filepath.Join(rel, name)); rerr != nil {
				return nil, rerr
			}
			pushed++
		}
	}

	// Place local adds and changes; unchanged items cost nothing.
	now := time.Now().UTC()
	for _, it := range items {
		wrote, perr := codec.Place(m.Path(), dir, it, now)
		if perr != nil {
			return nil, perr
		}
		if wrote {
			pushed++
		}
	}

	if pushed > 0 {
		msg := fmt.Sprintf("Sync %d change(s) for %s", pushed, account)
		if err := m.CommitAll(ctx, msg); err != nil {
			return nil, err
		}
		if err := m.Push(ctx, workBranch); err != nil {
			return nil, err
		}
		e.logger.Printf("synced %d change(s) for %s to %s", pushed, account, workBranch)
	}

	if mode == ModeReview && pushed > 0 {
		body := fmt.Sprintf("Automated review request for account %s.\n\n%d change(s) staged for review.",
			account, pushed)
		pr, err = e.ensureReviewRequest(ctx, m, account, workBranch, body)
		if err != nil {
			return nil, err
		}
	}

	// Pull remote changes back into the local store. The directory a file
	// sits in is authoritative for its status.
	backPulled, err := e.pullBack(m, dir, account)
	if err != nil {
		return nil, err
	}
	pulled += backPulled

	return &Result{Pushed: pushed, Pulled: pulled, PullRequest: pr}, nil
}

// mirrorFileSet returns the filenames present across the account's status
// directories in the mirror.
func (e *Engine) mirrorFileSet(m *mirror.Mirror, dir string) (map[string]bool, error) {
	set := map[string]bool{}
	for _, d := range item.StatusDirs() {
		names, err := m.ListDir(filepath.Join(dir, d))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			set[name] = true
		}
	}
	return set, nil
}

// pullBack decodes every mirror-side item into the local store, writing only
// where content differs, and returns the number of changed items.
func (e *Engine) pullBack(m *mirror.Mirror, dir, account string) (int, error) {
	changed := 0
	for _, d := range item.StatusDirs() {
		status, ok := item.StatusForDir(d)
		if !ok {
			continue
		}
		names, err := m.ListDir(filepath.Join(dir, d))
		if err != nil {
			return 0, err
		}
		for _, name := range names {
			it, err := codec.DecodeFile(filepath.Join(m.Path(), dir, d, name))
			if err != nil {
				return 0, fmt.Errorf("failed to decode mirror item %s: %w", name, err)
			}
			it.Status = status
			wrote, err := e.store.Put(account, it)
			if err != nil {
				return 0, err
			}
			if wrote {
				changed++
			}
		}
	}
	return changed, nil
}
