// Package footer renders the Markdown footer appended to every pull
// request in a stack, listing the stack's review requests in order.
package footer

import (
	"fmt"
	"strings"

	"go.fel.dev/fel/internal/stack"
)

// Render produces the footer text for a stack: a Markdown itemized
// list with one bullet per review request, top of the stack first
// (infos is given bottom first), with the entry whose CommitHex
// matches current marked.
func Render(infos []stack.RenderInfo, name, upstream, current string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "This stack of pull requests is managed by fel.\n")
	fmt.Fprintf(&sb, "Stack **%s**, based on `%s`:\n\n", name, upstream)

	for i := len(infos) - 1; i >= 0; i-- {
		info := infos[i]

		marker := ""
		if info.CommitHex == current {
			marker = " ◀"
		}

		fmt.Fprintf(&sb, "- #%d %s%s\n", info.Number, info.Title, marker)
	}

	return sb.String()
}
