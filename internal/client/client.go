// Package client talks to the remotely started MGAPI job-control server.
// The batch orchestrator only depends on the Dispatcher interface; the
// HTTP implementation lives in http.go.
package client

import (
	"context"
	"errors"
	"fmt"

	"mgapi/internal/model"
)

// Dispatcher sends one structured command to the server and returns its
// answer. Transport-level failures (connect, timeout, bad status) are
// reported as *TransportError; a returned RemoteResult means the server
// processed the command and answered, even if with a non-zero exit code.
type Dispatcher interface {
	Send(ctx context.Context, query model.RemoteQuery) (model.RemoteResult, error)
}

// TransportError marks failures where the server never produced an
// answer. These are the only errors the retry policy retries.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
