// Package push batches concurrent push requests from a stack
// submission into a single "git push --porcelain" transport
// operation.
package push

import (
	"context"
	"fmt"
	"sync"

	"go.abhg.dev/container/ring"
	"go.fel.dev/fel/internal/git"
)

// RejectedError is returned by [Pusher.Push] when the remote rejects
// a single refspec within an otherwise successful transport
// operation.
type RejectedError = git.RejectedError

type pending struct {
	refspec git.Refspec
	reply   chan outcome
}

type outcome struct {
	err error
}

// Pusher collects push requests from any number of concurrent
// producers and executes them as one batched "git push --porcelain"
// invocation per call to [Pusher.WaitFor].
//
// The zero value is not usable; construct with [New].
type Pusher struct {
	repo *git.Repository

	mu     sync.Mutex
	queue  ring.Q[pending]
	signal chan struct{}

	// sem limits the blocking git push invocation to a single
	// dedicated worker, so callers of WaitFor never block the
	// rest of the engine's goroutines on child-process I/O
	// directly.
	sem chan struct{}
}

// New builds a Pusher over repo.
func New(repo *git.Repository) *Pusher {
	return &Pusher{
		repo:   repo,
		signal: make(chan struct{}, 1),
		sem:    make(chan struct{}, 1),
	}
}

// Push enqueues a pending push for commit to branch, and blocks until
// the transport reports its outcome: nil on acceptance, a
// [RejectedError] if the remote rejected the ref, or the context's
// error if ctx is cancelled first.
func (p *Pusher) Push(ctx context.Context, commit git.Hash, branch string, force bool) error {
	reply := make(chan outcome, 1)

	p.mu.Lock()
	p.queue.Push(pending{
		refspec: git.Refspec{Hash: commit, Branch: branch, Force: force},
		reply:   reply,
	})
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}

	select {
	case o, ok := <-reply:
		if !ok {
			return context.Canceled
		}
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitFor blocks until at least count refspecs are pending, then
// drains exactly count of them and performs a single
// "git push --porcelain" to remote, resolving each caller's Push via
// its per-ref outcome. The returned error is non-nil only when the
// transport itself failed; per-ref rejections are delivered through
// Push's return value.
//
// The caller must invoke WaitFor exactly once per submission run,
// with count equal to the number of Push calls it expects, so the
// queue never grows past the threshold nor falls short.
func (p *Pusher) WaitFor(ctx context.Context, count int, remote string) error {
	batch, err := p.drain(ctx, count)
	if err != nil {
		return err
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.failAll(batch, ctx.Err())
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	refs := make([]git.Refspec, len(batch))
	replies := make(map[string]chan outcome, len(batch))
	for i, pend := range batch {
		refs[i] = pend.refspec
		replies[pend.refspec.Branch] = pend.reply
	}

	// Once started, the push runs to completion even if ctx is
	// cancelled; callers that stopped waiting discard the result.
	results, err := p.repo.BatchPush(context.WithoutCancel(ctx), remote, refs)
	if err != nil {
		p.failAll(batch, err)
		return fmt.Errorf("git push: %w", err)
	}

	for branch, reply := range replies {
		result, ok := results[branch]
		if !ok {
			// No outcome was reported for this ref; leave the
			// caller to see a cancellation-shaped error.
			close(reply)
			continue
		}

		if result.OK {
			reply <- outcome{}
		} else {
			reply <- outcome{err: result.Err}
		}
		close(reply)
	}

	return nil
}

func (p *Pusher) drain(ctx context.Context, count int) ([]pending, error) {
	for {
		p.mu.Lock()
		if p.queue.Len() >= count {
			batch := make([]pending, count)
			for i := range batch {
				batch[i] = p.queue.Pop()
			}
			p.mu.Unlock()
			return batch, nil
		}
		p.mu.Unlock()

		select {
		case <-p.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pusher) failAll(batch []pending, err error) {
	for _, pend := range batch {
		pend.reply <- outcome{err: err}
		close(pend.reply)
	}
}
