// Package hosting talks to the repository hosting service's REST API: review
// requests (pull requests) for the branch workflow and direct content
// reads/writes for artifact deployment.
//
// Deployment deliberately bypasses clone/commit/push: static automation files
// are uploaded through the contents API, skipped when the canonical git blob
// hash of the new content matches what is already at the path.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"

	"github.com/skovand/scribesync/internal/redact"
)

// Sentinel errors for the HTTP status classes callers act on.
var (
	// ErrInvalidToken maps 401: the configured credential was rejected.
	ErrInvalidToken = errors.New("hosting rejected the access token")

	// ErrNotFound maps 404: missing repository or path.
	ErrNotFound = errors.New("repository or path not found")

	// ErrUpdateRace maps 409 on a content update: someone changed the file
	// between read and write. The caller may retry the whole operation.
	ErrUpdateRace = errors.New("concurrent update, retry the operation")
)

// PullRequest is the engine-facing view of an open review request.
type PullRequest struct {
	Number  int
	Title   string
	URL     string
	HeadRef string
}

// Client wraps the hosting REST API for one repository.
type Client struct {
	gh     *github.Client
	owner  string
	repo   string
	masker *redact.Masker
	logger *log.Logger
}

// New returns a Client authenticating with the given bearer token.
func New(ctx context.Context, owner, repo, token string, logger *log.Logger) *Client {
	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return NewFromGitHub(github.NewClient(httpClient), owner, repo, token, logger)
}

// NewFromGitHub wraps an existing API client. Used by tests to point the
// client at a local server.
func NewFromGitHub(gh *github.Client, owner, repo, token string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[hosting] ", log.LstdFlags)
	}
	return &Client{
		gh:     gh,
		owner:  owner,
		repo:   repo,
		masker: redact.NewMasker(token),
		logger: logger,
	}
}

// ProbeRepo checks connectivity and repository access.
func (c *Client) ProbeRepo(ctx context.Context) error {
	_, _, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
	return c.mapError(err)
}

// FindOpenPull returns the open review request whose source is the given
// branch, or nil when there is none.
func (c *Client) FindOpenPull(ctx context.Context, head string) (*PullRequest, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  c.owner + ":" + head,
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return fromGitHubPull(prs[0]), nil
}

// CreatePull opens a review request from head into base.
func (c *Client) CreatePull(ctx context.Context, title, head, base, body string) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	c.logger.Printf("opened review request #%d for %s", pr.GetNumber(), head)
	return fromGitHubPull(pr), nil
}

// GetFileSHA returns the git blob hash of the file currently at path on the
// default branch, or "" when the path does not exist.
func (c *Client) GetFileSHA(ctx context.Context, path string) (string, error) {
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", c.mapError(err)
	}
	if file == nil {
		return "", fmt.Errorf("path %s is a directory", path)
	}
	return file.GetSHA(), nil
}

// UploadFile creates or updates the file at path. prevSHA is the blob hash of
// the current remote content and must be empty for a create.
func (c *Client) UploadFile(ctx context.Context, path string, content []byte, prevSHA, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	var err error
	if prevSHA == "" {
		_, _, err = c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts)
	} else {
		opts.SHA = github.String(prevSHA)
		_, _, err = c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts)
	}
	return c.mapError(err)
}

// mapError classifies API failures into the sentinel errors of this package,
// masking anything that could carry the credential.
func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return ErrInvalidToken
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict:
			return ErrUpdateRace
		}
	}
	return c.masker.Mask(err)
}

func fromGitHubPull(pr *github.PullRequest) *PullRequest {
	return &PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		URL:     pr.GetHTMLURL(),
		HeadRef: pr.GetHead().GetRef(),
	}
}
