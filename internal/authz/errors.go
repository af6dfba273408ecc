package authz

import "fmt"

// DeniedError is returned when a resolved check denies an action. It names
// the missing capability so the caller can show an actionable message.
type DeniedError struct {
	Capability string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("missing the %s capability; ask a team leader or administrator to grant it", e.Capability)
}

// Deny builds a DeniedError for the named capability.
func Deny(capability string) error {
	return &DeniedError{Capability: capability}
}
