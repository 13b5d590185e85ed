// Package watch provides the daemon that watches the local item store and
// triggers synchronization runs when items change on disk.
//
// The daemon:
// 1. Watches every account directory under the store root
// 2. Debounces bursts of file events into one sync per account
// 3. Optionally resyncs all accounts on a fixed interval
// 4. Handles graceful shutdown
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SyncFunc runs one synchronization for the given account.
type SyncFunc func(ctx context.Context, account string) error

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long to wait after the last file event
	// before syncing an account. This batches rapid edits together.
	DebounceInterval time.Duration

	// ResyncInterval triggers a sync of every watched account even
	// without file events, to pick up remote-side changes. Zero disables
	// periodic resync.
	ResyncInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 2 * time.Second,
		ResyncInterval:   5 * time.Minute,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Daemon watches the item store and schedules debounced sync runs.
type Daemon struct {
	root     string
	accounts []string
	sync     SyncFunc
	config   *Config

	watcher *fsnotify.Watcher

	// dirty maps an account to the time of its most recent file event.
	dirty   map[string]time.Time
	dirtyMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon watching the given accounts under the store root.
func New(root string, accounts []string, fn SyncFunc) (*Daemon, error) {
	return NewWithConfig(root, accounts, fn, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(root string, accounts []string, fn SyncFunc, config *Config) (*Daemon, error) {
	if root == "" {
		return nil, errors.New("store root cannot be empty")
	}
	if len(accounts) == 0 {
		return nil, errors.New("no accounts to watch")
	}
	if fn == nil {
		return nil, errors.New("sync function cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		root:     root,
		accounts: accounts,
		sync:     fn,
		config:   config,
		watcher:  watcher,
		dirty:    make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching and blocks until ctx is cancelled or a fatal error
// occurs. Every watched account is synced once at startup so the daemon
// never sits on stale state waiting for the first edit.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("starting watch daemon")

	for _, account := range d.accounts {
		dir := filepath.Join(d.root, account)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create account directory %s: %w", dir, err)
		}
		if err := d.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		d.markDirty(account)
	}
	d.config.Logger.Printf("watching %d account(s) under %s", len(d.accounts), d.root)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processDirty()

	if d.config.ResyncInterval > 0 {
		d.wg.Add(1)
		go d.periodicResync()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("error closing watcher: %v", err)
	}
	d.wg.Wait()
	d.config.Logger.Println("watch daemon stopped")
	return nil
}

// watchFileEvents monitors filesystem events and marks accounts dirty.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			account, ok := d.accountFor(event.Name)
			if !ok {
				continue
			}
			d.config.Logger.Printf("file event: %s %s", event.Op, event.Name)
			d.markDirty(account)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("watcher error: %v", err)
		}
	}
}

// markDirty records a pending change for an account.
func (d *Daemon) markDirty(account string) {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()

	d.dirty[account] = time.Now()
}

// processDirty syncs accounts whose debounce window has elapsed.
func (d *Daemon) processDirty() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			for _, account := range d.takeSettled() {
				d.runSync(account)
			}
		}
	}
}

// takeSettled removes and returns the accounts whose last event is older
// than the debounce interval.
func (d *Daemon) takeSettled() []string {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()

	cutoff := time.Now().Add(-d.config.DebounceInterval)
	var settled []string
	for account, last := range d.dirty {
		if last.Before(cutoff) || last.Equal(cutoff) {
			settled = append(settled, account)
			delete(d.dirty, account)
		}
	}
	return settled
}

// periodicResync marks every account dirty on a fixed interval.
func (d *Daemon) periodicResync() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.config.Logger.Println("periodic resync")
			for _, account := range d.accounts {
				d.markDirty(account)
			}
		}
	}
}

// runSync invokes the sync callback for one account. Failures are logged,
// not fatal: the account stays clean until its next event or resync tick.
func (d *Daemon) runSync(account string) {
	d.config.Logger.Printf("syncing %s", account)
	if err := d.sync(d.ctx, account); err != nil {
		d.config.Logger.Printf("warning: sync %s failed: %v", account, err)
	}
}

// accountFor resolves the account owning a path inside the store root.
func (d *Daemon) accountFor(path string) (string, bool) {
	rel, err := filepath.Rel(d.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 || parts[0] == "." || parts[0] == "" {
		return "", false
	}
	// Editor temp files never settle into the store format; skip them.
	if strings.HasPrefix(filepath.Base(path), ".") || strings.HasSuffix(path, "~") {
		return "", false
	}
	return parts[0], true
}
