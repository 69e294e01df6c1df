package stdlib

import (
	"fmt"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

var modules = map[string]func(*tiny.State) error{
	"core":  BindCore,
	"term":  BindTerm,
	"ident": BindIdent,
	"db":    BindDB,
	"rpc":   BindRPC,
}

// Bind registers the named modules into state. With no names it binds
// every module.
func Bind(state *tiny.State, names ...string) error {
	if len(names) == 0 {
		names = []string{"core", "term", "ident", "db", "rpc"}
	}

	for _, name := range names {
		bind, ok := modules[name]
		if !ok {
			return fmt.Errorf("unknown stdlib module '%s'", name)
		}
		if err := bind(state); err != nil {
			return err
		}
	}
	return nil
}
