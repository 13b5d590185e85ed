package hosting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v48/github"
)

func TestBlobSHA(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		// Vectors match `git hash-object` output.
		{"empty blob", "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{"hello newline", "hello\n", "ce013625030ba8dba906f756967f9e9ca394464a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlobSHA([]byte(tt.content)); got != tt.want {
				t.Errorf("BlobSHA(%q) = %s, want %s", tt.content, got, tt.want)
			}
		})
	}
}

// newTestClient points a Client at a local HTTP server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	gh.BaseURL = base
	return NewFromGitHub(gh, "acme", "content", "tok", log.New(io.Discard, "", 0))
}

func TestFindOpenPull(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/content/pulls" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("head"); got != "acme:edit/acct/2026-08-26" {
			t.Errorf("head filter = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"number": 7, "title": "Review", "html_url": "http://x/7", "head": {"ref": "edit/acct/2026-08-26"}}]`)
	}))

	pr, err := c.FindOpenPull(context.Background(), "edit/acct/2026-08-26")
	if err != nil {
		t.Fatalf("FindOpenPull() failed: %v", err)
	}
	if pr == nil || pr.Number != 7 || pr.HeadRef != "edit/acct/2026-08-26" {
		t.Errorf("FindOpenPull() = %+v", pr)
	}
}

func TestFindOpenPullNone(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))

	pr, err := c.FindOpenPull(context.Background(), "edit/acct/2026-08-26")
	if err != nil {
		t.Fatalf("FindOpenPull() failed: %v", err)
	}
	if pr != nil {
		t.Errorf("FindOpenPull() = %+v, want nil", pr)
	}
}

func TestGetFileSHAMissingPath(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))

	sha, err := c.GetFileSHA(context.Background(), ".automation/rules.yml")
	if err != nil {
		t.Fatalf("GetFileSHA() on missing path = %v, want nil error", err)
	}
	if sha != "" {
		t.Errorf("sha = %q, want empty", sha)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidToken},
		{http.StatusConflict, ErrUpdateRace},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message": "nope"}`, tt.status)
			}))
			err := c.UploadFile(context.Background(), "a.yml", []byte("x"), "", "deploy")
			if !errors.Is(err, tt.want) {
				t.Errorf("UploadFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProbeRepoNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))
	if err := c.ProbeRepo(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("ProbeRepo() = %v, want ErrNotFound", err)
	}
}
