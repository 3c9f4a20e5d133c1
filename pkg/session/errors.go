package session

import "fmt"

// NotFoundError is returned when no session exists for the given identifier,
// either because it never existed or because the reaper removed it.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}
