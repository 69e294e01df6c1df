package stdlib

import (
	"os"

	"github.com/mattn/go-isatty"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

// BindTerm registers terminal queries.
func BindTerm(state *tiny.State) error {
	return state.BindFunction("istty", termIstty)
}

// istty() reports whether standard output is a terminal, so scripts
// can decide between interactive and plain output.
func termIstty(t *tiny.Thread, args []tiny.Value) tiny.Value {
	fd := os.Stdout.Fd()
	return tiny.NewBool(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}
