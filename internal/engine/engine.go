// Package engine orchestrates one submission run: building a stack,
// pushing its commits, and creating or updating their review
// requests.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"go.fel.dev/fel/internal/awaitmap"
	"go.fel.dev/fel/internal/footer"
	"go.fel.dev/fel/internal/git"
	"go.fel.dev/fel/internal/metadata"
	"go.fel.dev/fel/internal/review"
	"go.fel.dev/fel/internal/stack"
)

// Config carries the submission settings the engine needs beyond the
// repository and remote clients it's constructed with.
type Config struct {
	DefaultRemote        string
	DefaultUpstream      string
	BranchPrefix         string
	UseIndexedBranches   bool
	AutoCreateBranches   bool
	AuthoritativeCommits bool
}

// Pusher is the subset of [*push.Pusher] the engine depends on.
type Pusher interface {
	Push(ctx context.Context, commit git.Hash, branch string, force bool) error
	WaitFor(ctx context.Context, count int, remote string) error
}

// Reviews is the subset of [*review.Client] the engine depends on.
type Reviews interface {
	Get(ctx context.Context, number int) (*review.PullRequest, error)
	Create(ctx context.Context, req review.NewPR) (*review.PullRequest, error)
	Replace(ctx context.Context, number int, footer string, req review.NewPR) (*review.PullRequest, error)
	Update(ctx context.Context, pr *review.PullRequest, req review.PartialUpdate) (*review.PullRequest, error)
}

// Engine wires together a repository, a batched pusher, and a
// review-request client to run submissions.
type Engine struct {
	Log     *log.Logger
	Repo    *git.Repository
	Pusher  Pusher
	Reviews Reviews
	Config  Config
}

type taskOutcome struct {
	index    int
	id       git.Hash
	metadata metadata.Metadata
	err      error
}

// Run builds the stack rooted at the repository's current head and
// submits each of its commits, creating or updating one review
// request per commit. It returns the first failure encountered, by
// stack position, and otherwise persists the run's metadata back to
// the repository's notes.
func (e *Engine) Run(ctx context.Context) error {
	st, err := stack.Build(ctx, e.Repo, stack.Config{
		DefaultRemote:      e.Config.DefaultRemote,
		DefaultUpstream:    e.Config.DefaultUpstream,
		AutoCreateBranches: e.Config.AutoCreateBranches,
	})
	if err != nil {
		return fmt.Errorf("build stack: %w", err)
	}

	if len(st.Commits) == 0 {
		e.Log.Info("Nothing to submit", "stack", st.Name)
		return nil
	}

	branchNames := awaitmap.New[git.Hash, string]()
	prInfos := awaitmap.New[git.Hash, stack.RenderInfo]()
	for _, c := range st.Commits {
		if c.Metadata.Branch != "" {
			branchNames.Insert(c.ID, c.Metadata.Branch)
		}
	}

	// taskCtx is cancelled as soon as any task fails, so that
	// siblings blocked waiting on branchNames or prInfos for the
	// failed commit don't hang forever.
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := make(chan struct{})

	pushErrc := make(chan error, 1)
	go func() {
		pushErrc <- e.Pusher.WaitFor(taskCtx, len(st.Commits), e.Config.DefaultRemote)
	}()

	results := make(chan taskOutcome, len(st.Commits))
	var wg sync.WaitGroup
	for i, c := range st.Commits {
		wg.Add(1)
		go func(i int, c stack.Commit) {
			defer wg.Done()

			select {
			case <-start:
			case <-taskCtx.Done():
				results <- taskOutcome{index: i, err: taskCtx.Err()}
				return
			}

			id, md, err := e.runTask(taskCtx, st, i, c, branchNames, prInfos)
			results <- taskOutcome{index: i, id: id, metadata: md, err: err}
		}(i, c)
	}

	// The pusher's drain loop is already running; tasks may begin
	// issuing I/O immediately.
	close(start)

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]taskOutcome, 0, len(st.Commits))
	for r := range results {
		outcomes = append(outcomes, r)
		if r.err != nil {
			cancel()
		}
	}
	pushErr := <-pushErrc

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	for _, o := range outcomes {
		if o.err != nil {
			return fmt.Errorf("submit commit %d: %w", o.index, o.err)
		}
	}
	if pushErr != nil {
		return fmt.Errorf("push: %w", pushErr)
	}

	for _, o := range outcomes {
		if err := metadata.Write(ctx, e.Repo, string(o.id), o.metadata); err != nil {
			return fmt.Errorf("write metadata for %s: %w", o.id, err)
		}
	}

	return nil
}

func (e *Engine) runTask(
	ctx context.Context,
	st *stack.Stack,
	i int,
	c stack.Commit,
	branchNames *awaitmap.Map[git.Hash, string],
	prInfos *awaitmap.Map[git.Hash, stack.RenderInfo],
) (git.Hash, metadata.Metadata, error) {
	md := c.Metadata

	if !c.AuthorTime.IsZero() {
		e.Log.Debug("submitting commit",
			"commit", c.ID.Short(),
			"title", c.Title,
			"authored", humanize.RelTime(c.AuthorTime, time.Now(), "ago", "from now"),
		)
	}

	branch := md.Branch
	force := branch != ""
	if branch == "" {
		branch = e.synthesizeBranchName(st.Name, i, c.ID)
	}

	if err := e.Pusher.Push(ctx, c.ID, branch, force); err != nil {
		return "", metadata.Metadata{}, fmt.Errorf("push %s: %w", c.ID.Short(), err)
	}
	branchNames.Insert(c.ID, branch)

	base := st.Upstream
	if i > 0 {
		b, err := branchNames.Get(ctx, c.Parent)
		if err != nil {
			return "", metadata.Metadata{}, fmt.Errorf("resolve base for %s: %w", c.ID.Short(), err)
		}
		base = b
	}

	pr, created, err := e.fetchOrCreateReview(ctx, st, md, c, base, branch, prInfos)
	if err != nil {
		return "", metadata.Metadata{}, err
	}

	prInfos.Insert(c.ID, stack.RenderInfo{
		Number:    pr.Number,
		Title:     c.Title,
		CommitHex: string(c.ID),
	})

	if !(e.Config.AuthoritativeCommits && !created) {
		infos, err := collectRenderInfos(ctx, st, prInfos, true)
		if err != nil {
			return "", metadata.Metadata{}, fmt.Errorf("collect render info: %w", err)
		}

		text := footer.Render(infos, st.Name, st.Upstream, string(c.ID))
		if _, err := e.Reviews.Update(ctx, pr, review.PartialUpdate{
			Base:   &base,
			Footer: &text,
		}); err != nil {
			return "", metadata.Metadata{}, fmt.Errorf("update pull request #%d: %w", pr.Number, err)
		}
	}

	return c.ID, nextMetadata(md, c.ID, branch, pr), nil
}

func (e *Engine) synthesizeBranchName(stackName string, i int, commit git.Hash) string {
	var branch string
	if e.Config.UseIndexedBranches {
		branch = fmt.Sprintf("fel/%s/%d", stackName, i)
	} else {
		branch = fmt.Sprintf("fel/%s/%s", stackName, commit.Short()[:4])
	}
	if e.Config.BranchPrefix != "" {
		branch = e.Config.BranchPrefix + "/" + branch
	}
	return branch
}

func (e *Engine) fetchOrCreateReview(
	ctx context.Context,
	st *stack.Stack,
	md metadata.Metadata,
	c stack.Commit,
	base, branch string,
	prInfos *awaitmap.Map[git.Hash, stack.RenderInfo],
) (pr *review.PullRequest, created bool, err error) {
	switch {
	case md.PR != 0 && e.Config.AuthoritativeCommits:
		infos, ierr := collectRenderInfos(ctx, st, prInfos, false)
		if ierr != nil {
			return nil, false, fmt.Errorf("collect render info: %w", ierr)
		}
		text := footer.Render(infos, st.Name, st.Upstream, string(c.ID))

		pr, err = e.Reviews.Replace(ctx, md.PR, text, review.NewPR{
			Title: c.Title, Body: c.Body, Base: base, Branch: branch,
		})
		if err != nil {
			return nil, false, fmt.Errorf("replace pull request #%d: %w", md.PR, err)
		}
		return pr, false, nil

	case md.PR != 0:
		pr, err = e.Reviews.Get(ctx, md.PR)
		if err != nil {
			return nil, false, fmt.Errorf("get pull request #%d: %w", md.PR, err)
		}
		return pr, false, nil

	default:
		pr, err = e.Reviews.Create(ctx, review.NewPR{
			Title: c.Title, Body: c.Body, Base: base, Branch: branch,
		})
		if err != nil {
			return nil, false, fmt.Errorf("create pull request for %s: %w", c.ID.Short(), err)
		}
		return pr, true, nil
	}
}

func nextMetadata(md metadata.Metadata, id git.Hash, branch string, pr *review.PullRequest) metadata.Metadata {
	history := md.History
	if md.Commit != string(id) {
		history = append(append([]string(nil), history...), string(id))
	}

	return metadata.Metadata{
		Branch:   branch,
		PR:       pr.Number,
		Revision: md.Revision + 1,
		Commit:   string(id),
		History:  history,
		PRURL:    pr.HTMLURL,
	}
}

// collectRenderInfos assembles the RenderInfo for every commit in the
// stack. If blocking is true, it waits for every commit's entry to be
// inserted; otherwise it returns a snapshot of whatever is already
// available.
func collectRenderInfos(
	ctx context.Context,
	st *stack.Stack,
	prInfos *awaitmap.Map[git.Hash, stack.RenderInfo],
	blocking bool,
) ([]stack.RenderInfo, error) {
	infos := make([]stack.RenderInfo, 0, len(st.Commits))
	for _, c := range st.Commits {
		if blocking {
			info, err := prInfos.Get(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			infos = append(infos, info)
			continue
		}

		if info, ok := prInfos.Peek(c.ID); ok {
			infos = append(infos, info)
		}
	}
	return infos, nil
}
