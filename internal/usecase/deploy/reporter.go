package deploy

import (
	"fmt"
	"io"
)

// reporter writes the human-facing progress log of a run.
type reporter struct {
	w io.Writer
}

func (r reporter) banner(format string, args ...any) {
	fmt.Fprintf(r.w, "\n--- "+format+" ---\n", args...)
}

func (r reporter) step(n int, title string) {
	r.banner("%d. %s", n, title)
}

func (r reporter) info(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r reporter) success(format string, args ...any) {
	fmt.Fprintf(r.w, "✅ "+format+"\n", args...)
}

func (r reporter) warn(format string, args ...any) {
	fmt.Fprintf(r.w, "⚠️  "+format+"\n", args...)
}
