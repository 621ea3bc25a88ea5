package batch

import (
	"context"
	"fmt"
	"time"

	"mgapi/internal/client"
	"mgapi/internal/model"
)

// dispatch sends one query with the configured retry policy: up to
// RetryCount attempts total, RetryDelay between them (multiplied by the
// attempt number when RetryBackoff is set). Only transport failures are
// retried; a server that answered — even with an error code — is
// terminal, since it already processed the command.
//
// recorded is false when the run was cancelled before the server
// answered. The caller must not ledger the row then: an interrupted row
// stays absent from the result file so a resumed run retries it.
func (r *Runner) dispatch(ctx context.Context, query model.RemoteQuery) (code int, msg string, recorded bool) {
	attempts := r.opts.RetryCount
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		result, err := r.dispatcher.Send(callCtx, query)
		cancel()

		if err == nil {
			return result.ExitCode, result.Message, true
		}
		if ctx.Err() != nil {
			// Run cancelled, not server silence.
			return 0, "", false
		}
		if !client.IsTransport(err) {
			return model.ExitException, fmt.Sprintf("Exception: %v", err), true
		}

		lastErr = err
		r.log.Warn("dispatch attempt %d/%d failed: %v", attempt, attempts, err)

		if attempt < attempts {
			delay := r.opts.RetryDelay
			if r.opts.RetryBackoff {
				delay = r.opts.RetryDelay * time.Duration(attempt)
			}
			select {
			case <-ctx.Done():
				return 0, "", false
			case <-time.After(delay):
			}
		}
	}

	return model.ExitNoResponse, fmt.Sprintf("No response from server: %v", lastErr), true
}
