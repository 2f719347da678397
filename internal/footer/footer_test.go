package footer_test

import (
	"testing"

	"github.com/hexops/autogold/v2"
	"go.fel.dev/fel/internal/footer"
	"go.fel.dev/fel/internal/stack"
)

func TestRender(t *testing.T) {
	infos := []stack.RenderInfo{
		{Number: 10, Title: "Add foo", CommitHex: "aaaa"},
		{Number: 11, Title: "Add bar", CommitHex: "bbbb"},
		{Number: 12, Title: "Add baz", CommitHex: "cccc"},
	}

	got := footer.Render(infos, "feature", "main", "bbbb")

	autogold.Expect(`This stack of pull requests is managed by fel.
Stack **feature**, based on ` + "`main`" + `:

- #12 Add baz
- #11 Add bar ◀
- #10 Add foo
`).Equal(t, got)
}

func TestRender_noCurrentMarked(t *testing.T) {
	infos := []stack.RenderInfo{
		{Number: 1, Title: "Only commit", CommitHex: "aaaa"},
	}

	got := footer.Render(infos, "solo", "main", "")

	autogold.Expect(`This stack of pull requests is managed by fel.
Stack **solo**, based on ` + "`main`" + `:

- #1 Only commit
`).Equal(t, got)
}

func TestRender_empty(t *testing.T) {
	got := footer.Render(nil, "empty", "main", "")

	autogold.Expect("This stack of pull requests is managed by fel.\nStack **empty**, based on `main`:\n\n").Equal(t, got)
}
