package review

import (
	"context"
	"testing"

	"github.com/google/go-github/v32/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakePullRequests struct {
	get    func(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error)
	create func(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error)
	edit   func(ctx context.Context, owner, repo string, number int, pr *github.PullRequest) (*github.PullRequest, *github.Response, error)
}

func (f *fakePullRequests) Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error) {
	return f.get(ctx, owner, repo, number)
}

func (f *fakePullRequests) Create(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error) {
	return f.create(ctx, owner, repo, pr)
}

func (f *fakePullRequests) Edit(ctx context.Context, owner, repo string, number int, pr *github.PullRequest) (*github.PullRequest, *github.Response, error) {
	return f.edit(ctx, owner, repo, number, pr)
}

func TestClient_Get(t *testing.T) {
	fake := &fakePullRequests{
		get: func(_ context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error) {
			assert.Equal(t, "octo", owner)
			assert.Equal(t, "demo", repo)
			assert.Equal(t, 7, number)
			return &github.PullRequest{
				Number:  github.Int(7),
				Title:   github.String("add widgets"),
				Body:    github.String("body text"),
				HTMLURL: github.String("https://github.com/octo/demo/pull/7"),
				Base:    &github.PullRequestBranch{Ref: github.String("main")},
			}, nil, nil
		},
	}

	c := newFromService("octo", "demo", fake)
	pr, err := c.Get(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, &PullRequest{
		Number:  7,
		Title:   "add widgets",
		Body:    "body text",
		Base:    "main",
		HTMLURL: "https://github.com/octo/demo/pull/7",
	}, pr)
}

func TestClient_Create(t *testing.T) {
	var captured *github.NewPullRequest
	fake := &fakePullRequests{
		create: func(_ context.Context, _, _ string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error) {
			captured = pr
			return &github.PullRequest{Number: github.Int(1)}, nil, nil
		},
	}

	c := newFromService("octo", "demo", fake)
	pr, err := c.Create(context.Background(), NewPR{
		Title:  "title",
		Body:   "body",
		Base:   "main",
		Branch: "fel/stack/0",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pr.Number)

	require.NotNil(t, captured)
	assert.Equal(t, "title", captured.GetTitle())
	assert.Equal(t, "body", captured.GetBody())
	assert.Equal(t, "main", captured.GetBase())
	assert.Equal(t, "fel/stack/0", captured.GetHead())
}

func TestClient_Replace(t *testing.T) {
	var captured *github.PullRequest
	fake := &fakePullRequests{
		edit: func(_ context.Context, _, _ string, number int, pr *github.PullRequest) (*github.PullRequest, *github.Response, error) {
			assert.Equal(t, 5, number)
			captured = pr
			return &github.PullRequest{Number: github.Int(5)}, nil, nil
		},
	}

	c := newFromService("octo", "demo", fake)
	_, err := c.Replace(context.Background(), 5, "footer text", NewPR{
		Title: "new title",
		Body:  "new body",
		Base:  "main",
	})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "new title", captured.GetTitle())
	assert.Equal(t, "new body\n\n"+delim+"\n\nfooter text", captured.GetBody())
	assert.Equal(t, "main", captured.Base.GetRef())
}

func TestClient_Update_bodyOnlyPreservesFooter(t *testing.T) {
	var captured *github.PullRequest
	fake := &fakePullRequests{
		edit: func(_ context.Context, _, _ string, _ int, pr *github.PullRequest) (*github.PullRequest, *github.Response, error) {
			captured = pr
			return &github.PullRequest{Number: github.Int(3)}, nil, nil
		},
	}

	c := newFromService("octo", "demo", fake)
	existing := &PullRequest{
		Number: 3,
		Body:   JoinFooter("old body", "old footer"),
	}

	newBody := "updated body"
	_, err := c.Update(context.Background(), existing, PartialUpdate{Body: &newBody})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, JoinFooter("updated body", "old footer"), captured.GetBody())
}

func TestClient_Update_footerOnlyPreservesBody(t *testing.T) {
	var captured *github.PullRequest
	fake := &fakePullRequests{
		edit: func(_ context.Context, _, _ string, _ int, pr *github.PullRequest) (*github.PullRequest, *github.Response, error) {
			captured = pr
			return &github.PullRequest{Number: github.Int(3)}, nil, nil
		},
	}

	c := newFromService("octo", "demo", fake)
	existing := &PullRequest{
		Number: 3,
		Body:   JoinFooter("old body", "old footer"),
	}

	newFooter := "updated footer"
	_, err := c.Update(context.Background(), existing, PartialUpdate{Footer: &newFooter})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, JoinFooter("old body", "updated footer"), captured.GetBody())
}

func TestSplitFooter_noDelimiter(t *testing.T) {
	body, footer := SplitFooter("just a body, no footer")
	assert.Equal(t, "just a body, no footer", body)
	assert.Equal(t, "", footer)
}

func TestRapid_footerRoundTrip(t *testing.T) {
	notDelim := func(s string) bool {
		return !containsDelim(s)
	}

	rapid.Check(t, func(rt *rapid.T) {
		body := rapid.StringMatching(`[a-zA-Z0-9]*`).Filter(notDelim).Draw(rt, "body")
		footer := rapid.StringMatching(`[a-zA-Z0-9]*`).Draw(rt, "footer")

		full := JoinFooter(body, footer)
		gotBody, gotFooter := SplitFooter(full)

		if gotBody != body {
			rt.Fatalf("body = %q, want %q", gotBody, body)
		}
		if gotFooter != footer {
			rt.Fatalf("footer = %q, want %q", gotFooter, footer)
		}
	})
}

func TestParseGitHubRemote(t *testing.T) {
	tests := []struct {
		url         string
		owner, repo string
	}{
		{"https://github.com/octo/demo.git", "octo", "demo"},
		{"https://github.com/octo/demo", "octo", "demo"},
		{"git@github.com:octo/demo.git", "octo", "demo"},
		{"ssh://git@github.com/octo/demo.git", "octo", "demo"},
	}

	for _, tt := range tests {
		owner, repo, err := ParseGitHubRemote(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.owner, owner, tt.url)
		assert.Equal(t, tt.repo, repo, tt.url)
	}
}

func TestParseGitHubRemote_rejectsOtherHosts(t *testing.T) {
	_, _, err := ParseGitHubRemote("https://gitlab.com/octo/demo.git")
	assert.ErrorIs(t, err, ErrUnsupportedRemote)
}

func containsDelim(s string) bool {
	for i := 0; i+len(delim) <= len(s); i++ {
		if s[i:i+len(delim)] == delim {
			return true
		}
	}
	return false
}
