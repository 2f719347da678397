package git

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// defaultSSHKeyPath returns the path to the default SSH identity file
// if it exists, so it can be wired into GIT_SSH_COMMAND for push
// invocations. Returns "" if $HOME is unset or the key is absent.
func defaultSSHKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}

	key := filepath.Join(home, ".ssh", "id_rsa")
	if _, err := os.Stat(key); err != nil {
		return ""
	}
	return key
}

// Refspec is a request to update a single remote branch
// to point at a specific commit.
type Refspec struct {
	// Hash is the commit the remote branch should point to.
	Hash Hash

	// Branch is the name of the remote branch to update,
	// without the "refs/heads/" prefix.
	Branch string

	// Force indicates the update should be allowed
	// even if it is not a fast-forward.
	Force bool
}

// String renders the refspec in Git's wire format:
// "[+]<hash>:refs/heads/<branch>".
func (r Refspec) String() string {
	branch := strings.TrimPrefix(r.Branch, "/")
	spec := r.Hash.String() + ":refs/heads/" + branch
	if r.Force {
		spec = "+" + spec
	}
	return spec
}

// LogValue reports how the refspec should be logged.
func (r Refspec) LogValue() slog.Value {
	return slog.StringValue(r.String())
}

// RejectedError indicates that the remote rejected an update
// to one of the refs in a [Repository.BatchPush] call.
type RejectedError struct {
	// Branch is the name of the branch that was rejected.
	Branch string

	// Reason is the text following the summary in the porcelain
	// status line, if any.
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("branch %q rejected by remote: %s", e.Branch, e.Reason)
	}
	return fmt.Sprintf("branch %q rejected by remote", e.Branch)
}

// PushResult is the outcome of pushing a single ref
// as part of a [Repository.BatchPush] call.
type PushResult struct {
	// OK reports whether the remote accepted the update.
	OK bool

	// Err holds the reason the update was rejected.
	// It is a *[RejectedError] when OK is false.
	Err error
}

// BatchPush pushes all of the given refspecs to remote in a single
// "git push --porcelain" invocation, returning the per-branch
// outcome of each one.
//
// The returned error is non-nil only when the push itself could not
// be attempted or its output could not be parsed (e.g. a transport or
// authentication failure). Per-ref rejections are reported through
// the returned map, not through the error.
func (r *Repository) BatchPush(ctx context.Context, remote string, refs []Refspec) (map[string]PushResult, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	args := make([]string, 0, 3+len(refs))
	args = append(args, "push", "--porcelain", remote)
	for _, ref := range refs {
		args = append(args, ref.String())
	}

	var sshEnv []string
	if key := defaultSSHKeyPath(); key != "" {
		sshEnv = append(sshEnv, "GIT_SSH_COMMAND=ssh -i "+key)
	}

	cmd := r.gitCmd(ctx, args...).AppendEnv(sshEnv...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start push: %w", err)
	}

	results := make(map[string]PushResult, len(refs))
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "Done" {
			continue
		}

		result, branch, ok := parsePorcelainLine(line)
		if !ok {
			continue
		}
		results[branch] = result
	}

	if err := scanner.Err(); err != nil {
		_ = cmd.Kill(r.exec)
		return nil, fmt.Errorf("read push output: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	return results, nil
}

// parsePorcelainLine parses a single line of "git push --porcelain"
// output: "<flag>\t<from>:<to>\t<summary> (<reason>)?".
func parsePorcelainLine(line string) (result PushResult, branch string, ok bool) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) < 2 {
		return PushResult{}, "", false
	}

	flag := fields[0]
	refs := fields[1]

	_, to, found := strings.Cut(refs, ":")
	if !found {
		return PushResult{}, "", false
	}
	branch = strings.TrimPrefix(to, "refs/heads/")

	var reason string
	if len(fields) == 3 {
		if _, r, ok := strings.Cut(fields[2], "("); ok {
			reason = strings.TrimSuffix(r, ")")
		}
	}

	switch flag {
	case " ", "+", "*", "=":
		return PushResult{OK: true}, branch, true
	case "!":
		return PushResult{
			OK: false,
			Err: &RejectedError{
				Branch: branch,
				Reason: reason,
			},
		}, branch, true
	case "-":
		return PushResult{OK: true}, branch, true
	default:
		return PushResult{}, "", false
	}
}
