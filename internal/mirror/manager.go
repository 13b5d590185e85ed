// Package mirror owns the local on-disk clone of the remote repository and
// the conflict-safe pull/merge protocols that keep it converged with the
// remote.
//
// The mirror is a disposable staging copy: whenever local divergence cannot
// be merged cleanly, the remote side wins. The primary data lives in the
// local item store and is reconciled separately by the engine.
package mirror

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/skovand/scribesync/internal/gitx"
	"github.com/skovand/scribesync/internal/redact"
)

const defaultRemote = "origin"

// Options configures a Manager.
type Options struct {
	// RemoteURL is the token-bearing clone URL.
	RemoteURL string

	// Owner and Repo identify the remote repository and determine the
	// mirror path under BaseDir.
	Owner string
	Repo  string

	// BaseDir is the root under which mirrors are created.
	BaseDir string

	// DefaultBranch is the main line. Defaults to "main".
	DefaultBranch string

	// CommitterName and CommitterEmail are set as the mirror's local git
	// identity so that auto-generated commits never depend on global
	// configuration.
	CommitterName  string
	CommitterEmail string

	// Token is the credential embedded in RemoteURL, used for masking.
	Token string

	// Logger receives protocol decisions. Defaults to stderr.
	Logger *log.Logger
}

// Manager lazily initializes the mirror and hands out the process-wide
// handle. The mirror is created on first use and reused for the process
// lifetime; it is never deleted automatically.
type Manager struct {
	opts   Options
	masker *redact.Masker
	logger *log.Logger

	mu     sync.Mutex
	handle *Mirror
}

// NewManager returns a Manager for the configured remote.
func NewManager(opts Options) *Manager {
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = "main"
	}
	if opts.CommitterName == "" {
		opts.CommitterName = "scribesync"
	}
	if opts.CommitterEmail == "" {
		opts.CommitterEmail = "scribesync@localhost"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[mirror] ", log.LstdFlags)
	}
	return &Manager{
		opts:   opts,
		masker: redact.NewMasker(opts.Token),
		logger: logger,
	}
}

// Path returns the computed mirror location for the configured remote.
func (m *Manager) Path() string {
	return filepath.Join(m.opts.BaseDir, m.opts.Owner, m.opts.Repo)
}

// EnsureReady returns the mirror handle, initializing it on first call.
//
// An existing repository gets its remote URL refreshed (credentials rotate);
// otherwise the remote is cloned. A clone that fails because the remote is
// empty or uninitialized falls back to a local init plus remote registration.
// Any other clone failure is a fatal configuration error.
func (m *Manager) EnsureReady(ctx context.Context) (*Mirror, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return m.handle, nil
	}

	if m.opts.Owner == "" || m.opts.Repo == "" {
		return nil, fmt.Errorf("remote repository is not configured")
	}

	path := m.Path()
	runner, err := gitx.NewRunner(path, m.masker)
	if err != nil {
		return nil, err
	}

	switch {
	case m.isRepo(ctx, runner):
		// Credentials may have rotated since the clone.
		if _, err := runner.Run(ctx, "remote", "set-url", defaultRemote, m.opts.RemoteURL); err != nil {
			if _, err := runner.Run(ctx, "remote", "add", defaultRemote, m.opts.RemoteURL); err != nil {
				return nil, m.masker.Mask(fmt.Errorf("failed to register remote: %w", err))
			}
		}
	default:
		if err := m.cloneOrInit(ctx, path); err != nil {
			return nil, err
		}
	}

	if _, err := runner.Run(ctx, "config", "user.name", m.opts.CommitterName); err != nil {
		return nil, m.masker.Mask(err)
	}
	if _, err := runner.Run(ctx, "config", "user.email", m.opts.CommitterEmail); err != nil {
		return nil, m.masker.Mask(err)
	}

	m.handle = &Mirror{
		runner:        runner,
		path:          path,
		remote:        defaultRemote,
		defaultBranch: m.opts.DefaultBranch,
		masker:        m.masker,
		logger:        m.logger,
	}
	m.logger.Printf("mirror ready at %s", path)
	return m.handle, nil
}

// isRepo reports whether the mirror path already holds a valid repository.
func (m *Manager) isRepo(ctx context.Context, runner *gitx.Runner) bool {
	if _, err := os.Stat(runner.Dir); err != nil {
		return false
	}
	_, err := runner.Run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// cloneOrInit clones the remote into path, falling back to init plus remote
// registration when the remote exists but has no commits yet.
func (m *Manager) cloneOrInit(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}

	// Clone runs from the parent so the target directory need not exist.
	cloneRunner, err := gitx.NewRunner(filepath.Dir(path), m.masker)
	if err != nil {
		return err
	}

	_, cloneErr := cloneRunner.Run(ctx, "clone", m.opts.RemoteURL, path)
	if cloneErr == nil {
		return nil
	}

	if gitx.Classify(cloneErr) != gitx.EmptyRemote {
		return m.masker.Mask(fmt.Errorf("failed to clone remote repository: %w", cloneErr))
	}

	m.logger.Printf("remote is empty, initializing mirror locally")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}
	initRunner, err := gitx.NewRunner(path, m.masker)
	if err != nil {
		return err
	}
	if _, err := initRunner.Run(ctx, "init"); err != nil {
		return m.masker.Mask(err)
	}
	// First commit should land on the configured main line.
	if _, err := initRunner.Run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+m.opts.DefaultBranch); err != nil {
		return m.masker.Mask(err)
	}
	if _, err := initRunner.Run(ctx, "remote", "add", defaultRemote, m.opts.RemoteURL); err != nil {
		return m.masker.Mask(err)
	}
	return nil
}
