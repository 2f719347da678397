// Package metadata stores and retrieves per-commit submission state in
// Git notes.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"go.fel.dev/fel/internal/git"
)

// Ref is the notes ref that this package reads and writes.
const Ref = "refs/notes/fel"

// Metadata records what is known about a commit's previous
// submissions. All fields are optional; the zero value describes a
// commit that has never been submitted.
type Metadata struct {
	// Branch is the remote branch name previously chosen for this
	// commit.
	Branch string `toml:"branch,omitempty"`

	// PR is the review-request number, if one has been opened.
	PR int `toml:"pr,omitempty"`

	// Revision is a monotonically increasing counter of how many
	// times this commit has been submitted. Starts at 1.
	Revision int `toml:"revision,omitempty"`

	// Commit is the hex of the commit hash last submitted, used to
	// detect no-op submits.
	Commit string `toml:"commit,omitempty"`

	// History is the ordered sequence of previously submitted
	// commit hashes.
	History []string `toml:"history,omitempty"`

	// PRURL is a display-only URL for the review request.
	PRURL string `toml:"pr_url,omitempty"`
}

// Load looks up the note attached to commit in the reserved
// namespace. If no note exists, it returns a default-valued Metadata
// and no error. If a note exists but cannot be parsed, Load returns
// an error rather than risk overwriting a note it does not
// understand.
func Load(ctx context.Context, repo *git.Repository, commit string) (Metadata, error) {
	raw, err := repo.Notes(Ref).Show(ctx, commit)
	if err != nil {
		// git notes show exits non-zero both when the note is
		// missing and on other errors; the wrapper collapses
		// these to a single opaque error, so a miss is treated
		// the same as "no note yet".
		return Metadata{}, nil
	}

	var m Metadata
	if err := toml.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata note for %s: %w", commit, err)
	}
	return m, nil
}

// Write serializes metadata to TOML and overwrites the note attached
// to commit, creating it if absent.
func Write(ctx context.Context, repo *git.Repository, commit string, m Metadata) error {
	b, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", commit, err)
	}

	err = repo.Notes(Ref).Add(ctx, commit, string(b), &git.AddNoteOptions{Force: true})
	if err != nil {
		return fmt.Errorf("write metadata note for %s: %w", commit, err)
	}
	return nil
}

// ErrRewriteRefNotConfigured is returned by CheckRewriteRef when the
// repository is not configured to copy notes across amends and
// rebases.
var ErrRewriteRefNotConfigured = errors.New("notes.rewriteRef must include " + Ref)

// CheckRewriteRef verifies the repository's notes.rewriteRef
// configuration includes Ref, so that amending or rebasing a commit
// carries its metadata note forward. Callers should run this once at
// startup and refuse to proceed on failure.
func CheckRewriteRef(ctx context.Context, repo *git.Repository) error {
	values, err := repo.ConfigGetAll(ctx, "notes.rewriteRef")
	if err != nil {
		return fmt.Errorf("read notes.rewriteRef: %w", err)
	}

	for _, v := range values {
		if v == Ref {
			return nil
		}
	}
	return ErrRewriteRefNotConfigured
}
