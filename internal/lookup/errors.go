package lookup

import "fmt"

// Kind classifies an upstream lookup failure.
type Kind string

const (
	KindNetwork  Kind = "network"   // transport error, timeout
	KindStatus   Kind = "status"    // non-2xx response
	KindDecode   Kind = "decode"    // payload did not match the schema
	KindNotFound Kind = "not_found" // entity absent upstream
)

// Error is a typed lookup failure. It stops at the Context Provider boundary:
// callers degrade the dependent filter or signal, they never crash on it.
// Failed lookups are never cached, so the next trade retries.
type Error struct {
	Endpoint string // e.g. "gamma:profile"
	Kind     Kind
	Status   int // http status when Kind == KindStatus
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("lookup %s: %s (%d): %v", e.Endpoint, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("lookup %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func netErr(endpoint string, err error) *Error {
	return &Error{Endpoint: endpoint, Kind: KindNetwork, Err: err}
}

func statusErr(endpoint string, status int, err error) *Error {
	return &Error{Endpoint: endpoint, Kind: KindStatus, Status: status, Err: err}
}

func decodeErr(endpoint string, err error) *Error {
	return &Error{Endpoint: endpoint, Kind: KindDecode, Err: err}
}

func notFoundErr(endpoint string, err error) *Error {
	return &Error{Endpoint: endpoint, Kind: KindNotFound, Err: err}
}
