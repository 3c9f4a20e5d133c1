package engine

import "fmt"

// UpstreamError is returned when the engine answers with a non-2xx status.
// It is not retried at this layer.
type UpstreamError struct {
	Status int
	Body   string
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("engine returned status %d", e.Status)
}
