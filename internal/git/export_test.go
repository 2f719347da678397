package git

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// NewFakeRepository builds a [Repository] backed by the given execer,
// without touching the filesystem or running real Git commands.
// It is exported for use by external test packages exercising
// execer-mocked behavior.
func NewFakeRepository(t testing.TB, root string, exec execer) *Repository {
	t.Helper()
	if root == "" {
		root = t.TempDir()
	}
	return newRepository(root, root+"/.git", log.New(io.Discard), exec)
}
