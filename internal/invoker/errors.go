package invoker

import (
	"fmt"
	"net/http"
)

// TransportError is returned when the remote function could not be reached or its response could not be decoded
type TransportError struct {
	Op  string // "build request", "send request", "read response" or "decode response"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is returned when the remote function answered with a non-2xx status and no usable reply. The decoded
// payload is still returned alongside it.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote function returned status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote function returned status %d: %s", e.StatusCode, e.Message)
}
