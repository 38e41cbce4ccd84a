package identity

import "errors"

// ErrNotAdministrator is returned by guards that require the administrator role.
var ErrNotAdministrator = errors.New("identity: administrator role required")

// Principal carries the verified claims of the caller. The HTTP layer builds it
// from the identity provider's token; core operations receive it explicitly and
// never reach back into ambient request state.
type Principal struct {
	UserID int64
	Admin  bool
}

// Anonymous reports whether no authenticated user is attached.
func (p Principal) Anonymous() bool {
	return p.UserID == 0
}
