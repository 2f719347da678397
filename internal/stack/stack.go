// Package stack builds an ordered view of the commits a submission
// run should act on.
package stack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.fel.dev/fel/internal/git"
	"go.fel.dev/fel/internal/metadata"
)

// Commit is a single entry in a Stack, bottom to top.
type Commit struct {
	// ID is the commit's hash.
	ID git.Hash

	// Parent is the hash of this commit's sole parent.
	// For the bottommost commit this is the merge base with the
	// upstream, which lies outside the stack. Empty only for a
	// root commit.
	Parent git.Hash

	// Title is the first line of the commit message.
	Title string

	// Body is the remainder of the commit message.
	Body string

	// AuthorTime is when the commit was authored, used only for
	// diagnostic logging.
	AuthorTime time.Time

	// Metadata is the previously recorded submission state for
	// this commit, or a default-valued Metadata if it has never
	// been submitted.
	Metadata metadata.Metadata
}

// RenderInfo is the per-commit view exposed to the footer renderer.
type RenderInfo struct {
	// Number is the review request number.
	Number int

	// Title is the commit's title, used as the review request's
	// display text.
	Title string

	// CommitHex is the hex of the commit hash this entry reflects.
	CommitHex string
}

// Stack is an ordered sequence of commits, bottom (oldest) to top
// (newest).
type Stack struct {
	// Name is the local branch name, or a generated
	// "dev-<short-hash>" name if the head was detached and a
	// branch was created for it.
	Name string

	// Upstream is the bare name of the default branch, e.g. "main".
	// This is the PR base for the bottommost commit and the base
	// named in the rendered footer; it is not a remote-tracking ref.
	Upstream string

	// Commits holds the stack's commits, bottom first.
	Commits []Commit
}

// Config carries the subset of submission configuration the builder
// needs.
type Config struct {
	DefaultRemote   string
	DefaultUpstream string

	// AutoCreateBranches enables creating a branch for a detached
	// HEAD instead of failing.
	AutoCreateBranches bool
}

// ErrMergeCommit is returned when a commit in the stack has more than
// one parent. Merge commits are not supported.
var ErrMergeCommit = errors.New("merge commits are not supported")

// ErrDetachedHead is returned when the head is detached and
// Config.AutoCreateBranches is false.
var ErrDetachedHead = errors.New("HEAD is detached and auto branch creation is disabled")

// Build assembles the Stack of commits between the repository's
// upstream and its current head.
func Build(ctx context.Context, repo *git.Repository, cfg Config) (*Stack, error) {
	head, err := repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	name, err := repo.CurrentBranch(ctx)
	if err != nil {
		if !errors.Is(err, git.ErrDetachedHead) {
			return nil, fmt.Errorf("resolve current branch: %w", err)
		}

		if !cfg.AutoCreateBranches {
			return nil, ErrDetachedHead
		}

		name = "dev-" + head.Short()[:4]
		if err := repo.CreateBranch(ctx, git.CreateBranchRequest{
			Name: name,
			Head: string(head),
		}); err != nil {
			return nil, fmt.Errorf("create branch %s: %w", name, err)
		}
		if err := repo.Checkout(ctx, name); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", name, err)
		}
	}

	upstreamName := cfg.DefaultRemote + "/" + cfg.DefaultUpstream
	upstream, err := repo.PeelToCommit(ctx, upstreamName)
	if err != nil {
		return nil, fmt.Errorf("resolve upstream %s: %w", upstreamName, err)
	}

	base, err := repo.MergeBase(ctx, string(upstream), string(head))
	if err != nil {
		return nil, fmt.Errorf("merge base of %s and %s: %w", upstreamName, name, err)
	}
	if base.IsZero() || base == "" {
		return nil, fmt.Errorf("no merge base between %s and %s", upstreamName, name)
	}

	revs, err := repo.RevList(ctx, string(base), string(head))
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	var commits []Commit
	for revs.Next() {
		hash := revs.Commit()

		obj, err := repo.ReadCommit(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("read commit %s: %w", hash, err)
		}
		if len(obj.Parents) > 1 {
			return nil, fmt.Errorf("%s: %w", hash, ErrMergeCommit)
		}

		var parent git.Hash
		if len(obj.Parents) == 1 {
			parent = obj.Parents[0]
		}

		m, err := metadata.Load(ctx, repo, hash)
		if err != nil {
			return nil, fmt.Errorf("load metadata for %s: %w", hash, err)
		}

		commits = append(commits, Commit{
			ID:         obj.Hash,
			Parent:     parent,
			Title:      obj.Subject,
			Body:       obj.Body,
			AuthorTime: obj.Author.Time,
			Metadata:   m,
		})
	}
	if err := revs.Err(); err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	return &Stack{
		Name:     name,
		Upstream: cfg.DefaultUpstream,
		Commits:  commits,
	}, nil
}
