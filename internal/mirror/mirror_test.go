package mirror

import (
	"context"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// gitRun executes git in dir, failing the test on error.
func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// setupBareRemote creates a bare repository whose HEAD points at main.
func setupBareRemote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init", "--bare")
	gitRun(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	return dir
}

// setupWorkClone clones the remote into a fresh directory with a configured
// committer identity, on branch main.
func setupWorkClone(t *testing.T, remote string) string {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "clone", remote, ".")
	gitRun(t, dir, "config", "user.name", "Work Clone")
	gitRun(t, dir, "config", "user.email", "work@example.com")
	gitRun(t, dir, "checkout", "-B", "main")
	return dir
}

// commitFile writes content and commits it in dir.
func commitFile(t *testing.T, dir, rel, content, message string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, dir, "add", "-A")
	gitRun(t, dir, "commit", "-m", message)
}

func newTestManager(t *testing.T, remote string) *Manager {
	t.Helper()
	return NewManager(Options{
		RemoteURL:     remote,
		Owner:         "acme",
		Repo:          "content",
		BaseDir:       t.TempDir(),
		DefaultBranch: "main",
		Logger:        log.New(io.Discard, "", 0),
	})
}

func TestEnsureReadyClonesRemote(t *testing.T) {
	remote := setupBareRemote(t)
	work := setupWorkClone(t, remote)
	commitFile(t, work, "README.md", "seed\n", "initial")
	gitRun(t, work, "push", "-u", "origin", "main")

	mgr := newTestManager(t, remote)
	m, err := mgr.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.Path(), "README.md")); err != nil {
		t.Errorf("clone missing seeded file: %v", err)
	}

	// The handle is created once and reused.
	m2, err := mgr.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("second EnsureReady() failed: %v", err)
	}
	if m != m2 {
		t.Error("EnsureReady() created a second handle")
	}
}

func TestEnsureReadyEmptyRemote(t *testing.T) {
	remote := setupBareRemote(t)

	mgr := newTestManager(t, remote)
	m, err := mgr.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady() failed against empty remote: %v", err)
	}

	ctx := context.Background()
	if err := m.CheckoutOrCreate(ctx, "main"); err != nil {
		t.Fatalf("CheckoutOrCreate(main) failed: %v", err)
	}
	commitFile(t, m.Path(), "first.md", "hello\n", "first commit")
	if err := m.Push(ctx, "main"); err != nil {
		t.Fatalf("Push() to empty remote failed: %v", err)
	}

	out := gitRun(t, remote, "show", "main:first.md")
	if out != "hello\n" {
		t.Errorf("remote content = %q, want hello", out)
	}
}

func TestEnsureReadyRefreshesRemoteURL(t *testing.T) {
	remote := setupBareRemote(t)
	work := setupWorkClone(t, remote)
	commitFile(t, work, "README.md", "seed\n", "initial")
	gitRun(t, work, "push", "-u", "origin", "main")

	mgr := newTestManager(t, remote)
	m, err := mgr.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady() failed: %v", err)
	}

	// Simulate credential rotation: point origin elsewhere, then re-ensure
	// with a fresh manager over the same base dir.
	gitRun(t, m.Path(), "remote", "set-url", "origin", "https://example.invalid/stale.git")

	mgr2 := NewManager(Options{
		RemoteURL:     remote,
		Owner:         "acme",
		Repo:          "content",
		BaseDir:       filepath.Dir(filepath.Dir(m.Path())),
		DefaultBranch: "main",
		Logger:        log.New(io.Discard, "", 0),
	})
	if _, err := mgr2.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() over existing mirror failed: %v", err)
	}

	url := strings.TrimSpace(gitRun(t, m.Path(), "remote", "get-url", "origin"))
	if url != remote {
		t.Errorf("origin url = %q, want %q", url, remote)
	}
}

func TestEnsureReadyFatalOnUnreachableRemote(t *testing.T) {
	mgr := newTestManager(t, filepath.Join(t.TempDir(), "definitely", "missing.git"))
	if _, err := mgr.EnsureReady(context.Background()); err == nil {
		t.Error("EnsureReady() succeeded against a nonexistent remote")
	}
}

func TestEnsureReadyRequiresRemoteIdentity(t *testing.T) {
	mgr := NewManager(Options{BaseDir: t.TempDir(), Logger: log.New(io.Discard, "", 0)})
	if _, err := mgr.EnsureReady(context.Background()); err == nil {
		t.Error("EnsureReady() accepted missing owner/repo")
	}
}
