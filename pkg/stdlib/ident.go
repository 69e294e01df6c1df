package stdlib

import (
	"github.com/google/uuid"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

// BindIdent registers identifier generation.
func BindIdent(state *tiny.State) error {
	return state.BindFunction("uuid", identUUID)
}

// uuid() returns a fresh random UUID as an owned string. The server
// host uses it to key sessions and routes.
func identUUID(t *tiny.Thread, args []tiny.Value) tiny.Value {
	return tiny.NewString(t, uuid.NewString())
}
