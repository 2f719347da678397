package git_test

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.fel.dev/fel/internal/git"
	"go.fel.dev/fel/internal/git/gittest"
)

func TestIntegrationCommitListing(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(`
as 'Test <test@example.com>'

at '2024-08-27T21:48:32Z'
git init
git add init.txt
git commit -m 'Initial commit'

at '2024-08-27T21:52:12Z'
git add feature1.txt
git commit -F input/feature1-commit.txt

at '2024-08-27T22:10:11Z'
git add feature2.txt
git commit -F input/feature2-commit.txt

-- init.txt --
-- feature1.txt --
feature 1
-- feature2.txt --
feature 2
-- input/feature1-commit.txt --
Add feature1

This is the first feature.
-- input/feature2-commit.txt --
Add feature2

This is the second feature.
`))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	ctx := t.Context()
	repo, err := git.Open(ctx, fixture.Dir(), git.OpenOptions{
		Log: log.New(io.Discard),
	})
	require.NoError(t, err)

	t.Run("RevList", func(t *testing.T) {
		ctx := t.Context()
		revs, err := repo.RevList(ctx, "HEAD~2", "HEAD")
		require.NoError(t, err)

		var commits []string
		for revs.Next() {
			commits = append(commits, revs.Commit())
		}
		require.NoError(t, revs.Err())
		assert.Len(t, commits, 2)
	})

	t.Run("CommitSubject", func(t *testing.T) {
		ctx := t.Context()
		subject, err := repo.CommitSubject(ctx, "HEAD")
		require.NoError(t, err)
		assert.Equal(t, "Add feature2", subject)

		subject, err = repo.CommitSubject(ctx, "HEAD^")
		require.NoError(t, err)
		assert.Equal(t, "Add feature1", subject)
	})

	t.Run("CommitMessageRange", func(t *testing.T) {
		ctx := t.Context()
		msgs, err := repo.CommitMessageRange(ctx, "HEAD", "HEAD~2")
		require.NoError(t, err)

		assert.Equal(t, []git.CommitMessage{
			{
				Subject: "Add feature2",
				Body:    "This is the second feature.",
			},
			{
				Subject: "Add feature1",
				Body:    "This is the first feature.",
			},
		}, msgs)
	})
}
