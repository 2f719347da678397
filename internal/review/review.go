// Package review is a thin typed wrapper over GitHub's pull request
// API, scoped to a single owner/repo pair.
package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"
)

// delim is the literal sentinel that separates a pull request's
// human-authored body from the rendered stack footer.
const delim = "[#]:fel"

// PullRequest is the subset of a GitHub pull request this package's
// callers need.
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	Base    string
	HTMLURL string
}

// NewPR describes a pull request to create or fully replace.
type NewPR struct {
	Title  string
	Body   string
	Base   string
	Branch string
}

// PartialUpdate carries the fields of a pull request update. Nil
// fields are left unchanged.
type PartialUpdate struct {
	Title  *string
	Body   *string
	Footer *string
	Base   *string
}

// Client wraps the pull-request operations this package exposes,
// scoped to a single repository.
type Client struct {
	pulls       pullRequestsService
	owner, repo string
}

// pullRequestsService is the subset of github.PullRequestsService this
// package uses, so it can be faked in tests.
type pullRequestsService interface {
	Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error)
	Create(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error)
	Edit(ctx context.Context, owner, repo string, number int, pr *github.PullRequest) (*github.PullRequest, *github.Response, error)
}

// Options configures a Client beyond the owner/repo/token it is
// scoped to.
type Options struct {
	// APIURL overrides the GitHub API base URL.
	// Used in tests to point the client at a fake server.
	APIURL string

	// Transport overrides the HTTP transport used to authenticate
	// and send requests. Used in tests to record or replay
	// requests instead of hitting the network.
	Transport http.RoundTripper
}

// ErrUnsupportedRemote is returned by ParseGitHubRemote when the given
// URL does not identify a github.com repository.
var ErrUnsupportedRemote = errors.New("not a github.com remote URL")

var _gitProtocols = []string{"ssh://", "git://", "git+ssh://", "git+https://", "git+http://", "https://", "http://"}

func hasGitProtocol(url string) bool {
	for _, proto := range _gitProtocols {
		if strings.HasPrefix(url, proto) {
			return true
		}
	}
	return false
}

// ParseGitHubRemote extracts the owner and repository name from a
// github.com remote URL, recognizing both
// "https://github.com/OWNER/REPO.git" and "git@github.com:OWNER/REPO.git"
// forms.
func ParseGitHubRemote(remoteURL string) (owner, repo string, err error) {
	normalized := remoteURL
	if !hasGitProtocol(normalized) && strings.Contains(normalized, ":") {
		normalized = "ssh://" + strings.Replace(normalized, ":", "/", 1)
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", "", fmt.Errorf("parse remote URL: %w", err)
	}
	if u.Host != "github.com" {
		return "", "", fmt.Errorf("%s: %w", remoteURL, ErrUnsupportedRemote)
	}

	s := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".git")
	owner, repo, ok := strings.Cut(s, "/")
	if !ok {
		return "", "", fmt.Errorf("path %q does not contain a repository", s)
	}
	return owner, repo, nil
}

// New builds a Client authenticated with token, scoped to owner/repo.
func New(ctx context.Context, owner, repo, token string, opts Options) (*Client, error) {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport}),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
	)

	gh := github.NewClient(httpClient)
	if opts.APIURL != "" {
		apiURL, err := url.Parse(opts.APIURL)
		if err != nil {
			return nil, fmt.Errorf("parse API URL: %w", err)
		}
		gh.BaseURL = apiURL
	}

	return &Client{pulls: gh.PullRequests, owner: owner, repo: repo}, nil
}

func newFromService(owner, repo string, pulls pullRequestsService) *Client {
	return &Client{pulls: pulls, owner: owner, repo: repo}
}

func toPullRequest(pr *github.PullRequest) *PullRequest {
	out := &PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HTMLURL: pr.GetHTMLURL(),
	}
	if pr.Base != nil {
		out.Base = pr.Base.GetRef()
	}
	return out
}

// Get fetches the pull request with the given number.
func (c *Client) Get(ctx context.Context, number int) (*PullRequest, error) {
	pr, _, err := c.pulls.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request #%d: %w", number, err)
	}
	return toPullRequest(pr), nil
}

// Create opens a new pull request.
func (c *Client) Create(ctx context.Context, req NewPR) (*PullRequest, error) {
	pr, _, err := c.pulls.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
		Base:  github.String(req.Base),
		Head:  github.String(req.Branch),
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request: %w", err)
	}
	return toPullRequest(pr), nil
}

// Replace sets the title, base, and body (spliced with footer) of an
// existing pull request, overwriting whatever was there before.
func (c *Client) Replace(ctx context.Context, number int, footer string, req NewPR) (*PullRequest, error) {
	pr, _, err := c.pulls.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		Title: github.String(req.Title),
		Body:  github.String(JoinFooter(req.Body, footer)),
		Base:  &github.PullRequestBranch{Ref: github.String(req.Base)},
	})
	if err != nil {
		return nil, fmt.Errorf("replace pull request #%d: %w", number, err)
	}
	return toPullRequest(pr), nil
}

// Update applies a partial update to an existing pull request,
// sending only the fields the caller set. If exactly one of
// Body/Footer is set, the other half is preserved from the existing
// pull request's body.
func (c *Client) Update(ctx context.Context, pr *PullRequest, req PartialUpdate) (*PullRequest, error) {
	edit := &github.PullRequest{}

	if req.Title != nil {
		edit.Title = req.Title
	}

	switch {
	case req.Body != nil && req.Footer != nil:
		edit.Body = github.String(JoinFooter(*req.Body, *req.Footer))
	case req.Body != nil:
		_, footer := SplitFooter(pr.Body)
		edit.Body = github.String(JoinFooter(*req.Body, footer))
	case req.Footer != nil:
		body, _ := SplitFooter(pr.Body)
		edit.Body = github.String(JoinFooter(body, *req.Footer))
	}

	if req.Base != nil {
		edit.Base = &github.PullRequestBranch{Ref: req.Base}
	}

	updated, _, err := c.pulls.Edit(ctx, c.owner, c.repo, pr.Number, edit)
	if err != nil {
		return nil, fmt.Errorf("update pull request #%d: %w", pr.Number, err)
	}
	return toPullRequest(updated), nil
}

// JoinFooter splices body and footer together with the delimiter
// sentinel between them.
func JoinFooter(body, footer string) string {
	return body + "\n\n" + delim + "\n\n" + footer
}

// SplitFooter splits full on the first occurrence of the delimiter
// sentinel, returning the body and footer halves, each trimmed of
// surrounding whitespace. If full contains no delimiter, all of it is
// the body and the footer is empty.
func SplitFooter(full string) (body, footer string) {
	before, after, ok := strings.Cut(full, delim)
	if !ok {
		return strings.TrimSpace(full), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
