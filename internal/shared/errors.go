package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates the request carried no acting identity.
	ErrUnauthenticated = errors.New("acting identity required")
)
