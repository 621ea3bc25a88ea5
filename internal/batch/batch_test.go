package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mgapi/internal/client"
	"mgapi/internal/ledger"
	"mgapi/internal/model"
)

// stubDispatcher records every Send and answers via a configurable
// respond function.
type stubDispatcher struct {
	mu      sync.Mutex
	calls   int
	queries []model.RemoteQuery
	respond func(model.RemoteQuery) (model.RemoteResult, error)
}

func (s *stubDispatcher) Send(ctx context.Context, q model.RemoteQuery) (model.RemoteResult, error) {
	s.mu.Lock()
	s.calls++
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.respond == nil {
		return model.RemoteResult{ExitCode: 0, Message: "ok"}, nil
	}
	return s.respond(q)
}

func (s *stubDispatcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readResult(t *testing.T, inputPath string) [][]string {
	t.Helper()
	f, err := os.Open(ledger.ResultPath(inputPath))
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func defaultOptions(files ...string) Options {
	return Options{
		SpecType:        "user_spec",
		Files:           files,
		ContinueOnError: true,
		Workers:         1,
		RetryCount:      1,
		RetryDelay:      time.Millisecond,
		Timeout:         time.Second,
	}
}

func TestEndToEndSuccess(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\n")

	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		return model.RemoteResult{ExitCode: 0, Message: "User 'john' created successfully"}, nil
	}}

	runner, err := NewRunner(defaultOptions(input), stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 1, stats.Rows.Total)
	assert.Equal(t, 1, stats.Rows.Success)
	assert.Equal(t, 0, stats.ExitCode())
	assert.Equal(t, 1, stub.callCount())

	q := stub.queries[0]
	assert.Equal(t, "user_manager", q.Tool)
	assert.Equal(t, "create", q.Action)
	assert.Equal(t, "john", q.Params["username"])

	recs := readResult(t, input)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"username", "email", "role", "action", "exit_code", "message", "processed_at"}, recs[0])
	assert.Equal(t, "john", recs[1][0])
	assert.Equal(t, "0", recs[1][4])
	assert.Equal(t, "User 'john' created successfully", recs[1][5])
}

func TestValidationFailureNeverDispatches(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,,admin,create\njane,not-an-email,user,create\n")

	stub := &stubDispatcher{}
	runner, err := NewRunner(defaultOptions(input), stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 2, stats.Rows.Total)
	assert.Equal(t, 2, stats.Rows.ValidationFailed)
	assert.Equal(t, 0, stub.callCount(), "dispatch is never invoked for invalid rows")
	assert.Equal(t, 1, stats.ExitCode())

	recs := readResult(t, input)
	require.Len(t, recs, 3)
	assert.Equal(t, "-2", recs[1][4])
	assert.Contains(t, recs[1][5], "Missing required field: email")
	assert.Equal(t, "-2", recs[2][4])
	assert.Contains(t, recs[2][5], "Invalid email format: not-an-email")
}

func TestDryRunNeverDispatches(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\njane,jane@x.com,user,delete\n")

	stub := &stubDispatcher{}
	opts := defaultOptions(input)
	opts.DryRun = true
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 2, stats.Rows.DryRun)
	assert.Equal(t, 0, stub.callCount(), "send() is never called in dry-run mode")
	assert.Equal(t, 0, stats.ExitCode(), "dry-run rows count as success for the process exit code")

	for _, rec := range readResult(t, input)[1:] {
		assert.Equal(t, "-4", rec[4])
		assert.Equal(t, "Dry run - not executed", rec[5])
	}
}

func TestRetryBound(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\n")

	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		return model.RemoteResult{}, &client.TransportError{Op: "POST /execute", Err: errors.New("connection refused")}
	}}

	opts := defaultOptions(input)
	opts.RetryCount = 3
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 3, stub.callCount(), "send() is called exactly retry_count times")
	assert.Equal(t, 1, stats.Rows.NoResponse)
	assert.Equal(t, 1, stats.ExitCode())

	recs := readResult(t, input)
	assert.Equal(t, "-1", recs[1][4])
	assert.Contains(t, recs[1][5], "No response from server")
	assert.Contains(t, recs[1][5], "connection refused")
}

func TestServerErrorIsNeverRetried(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\n")

	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		return model.RemoteResult{ExitCode: 2, Message: "User already exists"}, nil
	}}

	opts := defaultOptions(input)
	opts.RetryCount = 5
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 1, stub.callCount(), "server answered, so no retry")
	assert.Equal(t, 1, stats.Rows.Failed)

	recs := readResult(t, input)
	assert.Equal(t, "2", recs[1][4])
	assert.Equal(t, "User already exists", recs[1][5])
}

func TestFilterCorrectness(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, `username,email,role,action
a,a@x.com,user,create
b,b@x.com,user,update
c,c@x.com,user,create
d,d@x.com,user,delete
e,e@x.com,user,update
`)

	stub := &stubDispatcher{}
	opts := defaultOptions(input)
	opts.Filter = "action = 'create'"
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 2, stats.Rows.Total)
	assert.Equal(t, 2, stats.Rows.Success)
	assert.Equal(t, 2, stub.callCount())

	recs := readResult(t, input)
	require.Len(t, recs, 3, "exactly 2 data rows")
	assert.Equal(t, "a", recs[1][0])
	assert.Equal(t, "c", recs[2][0])
}

func TestBadFilterFailsFast(t *testing.T) {
	_, err := NewRunner(Options{
		SpecType: "user_spec",
		Filter:   "action = = 'create'",
	}, &stubDispatcher{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter syntax error")
}

func TestFilterUnknownColumnIsFileError(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\n")

	opts := defaultOptions(input)
	opts.Filter = "missing_col = 'x'"
	runner, err := NewRunner(opts, &stubDispatcher{}, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 2, stats.ExitCode())
}

func TestResumeIdempotence(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\njane,jane@x.com,user,create\n")

	stub := &stubDispatcher{}
	runner, err := NewRunner(defaultOptions(input), stub, nil)
	require.NoError(t, err)
	stats := runner.Run(context.Background())
	require.Equal(t, 2, stats.Rows.Success)
	require.Equal(t, 2, stub.callCount())

	firstResult, err := os.ReadFile(ledger.ResultPath(input))
	require.NoError(t, err)

	// Second run with --resume: nothing is reprocessed or duplicated.
	opts := defaultOptions(input)
	opts.Resume = true
	runner, err = NewRunner(opts, stub, nil)
	require.NoError(t, err)
	stats = runner.Run(context.Background())

	assert.Equal(t, 2, stats.Rows.Skipped)
	assert.Equal(t, 0, stats.Rows.Success)
	assert.Equal(t, 2, stub.callCount(), "no additional dispatches on resume")

	secondResult, err := os.ReadFile(ledger.ResultPath(input))
	require.NoError(t, err)
	assert.Equal(t, string(firstResult), string(secondResult), "result file unchanged after resumed rerun")
}

func TestResumeReprocessesOnlyUnfinishedRows(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\njane,jane@x.com,user,create\n")

	// First run: jane fails with no response.
	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		if q.Params["username"] == "jane" {
			return model.RemoteResult{}, &client.TransportError{Op: "POST /execute", Err: errors.New("timeout")}
		}
		return model.RemoteResult{ExitCode: 0, Message: "ok"}, nil
	}}
	runner, err := NewRunner(defaultOptions(input), stub, nil)
	require.NoError(t, err)
	runner.Run(context.Background())

	// -1 is terminal: the server may have seen the command. A resumed run
	// skips both rows.
	stub2 := &stubDispatcher{}
	opts := defaultOptions(input)
	opts.Resume = true
	runner, err = NewRunner(opts, stub2, nil)
	require.NoError(t, err)
	stats := runner.Run(context.Background())

	assert.Equal(t, 2, stats.Rows.Skipped)
	assert.Equal(t, 0, stub2.callCount())
}

func TestInterruptedDispatchIsRetriedOnResume(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\n")

	// First run: the user interrupts while the dispatch is in flight, so
	// Send comes back with a transport error after the context dies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		cancel()
		return model.RemoteResult{}, &client.TransportError{Op: "POST /execute", Err: context.Canceled}
	}}
	runner, err := NewRunner(defaultOptions(input), stub, nil)
	require.NoError(t, err)
	runner.Run(ctx)

	recs := readResult(t, input)
	require.Len(t, recs, 1, "an interrupted row must stay out of the result file")

	// Resumed run against a healthy server: the row is dispatched, not
	// skipped as a -1.
	stub2 := &stubDispatcher{}
	opts := defaultOptions(input)
	opts.Resume = true
	runner, err = NewRunner(opts, stub2, nil)
	require.NoError(t, err)
	stats := runner.Run(context.Background())

	assert.Equal(t, 0, stats.Rows.Skipped)
	assert.Equal(t, 1, stats.Rows.Success)
	assert.Equal(t, 1, stub2.callCount())

	recs = readResult(t, input)
	require.Len(t, recs, 2)
	assert.Equal(t, "0", recs[1][4])
}

func TestCancellationDuringRetryWaitDropsRow(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	writeCSV(t, input, "username,email,role,action\njohn,john@x.com,admin,create\n")

	// The server is down and the interrupt arrives during the retry delay.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		go cancel()
		return model.RemoteResult{}, &client.TransportError{Op: "POST /execute", Err: errors.New("connection refused")}
	}}
	opts := defaultOptions(input)
	opts.RetryCount = 3
	opts.RetryDelay = time.Hour // cancellation must cut the wait short
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	done := make(chan model.BatchStats, 1)
	go func() { done <- runner.Run(ctx) }()

	select {
	case stats := <-done:
		assert.Equal(t, 0, stats.Rows.NoResponse)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop on cancellation")
	}

	recs := readResult(t, input)
	assert.Len(t, recs, 1, "no -1 entry for a row the user interrupted")
}

func TestMissingRequiredColumnAbortsFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	writeCSV(t, bad, "username,role,action\njohn,admin,create\n")

	stub := &stubDispatcher{}
	runner, err := NewRunner(defaultOptions(bad), stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 0, stats.Rows.Total, "no rows processed")
	assert.Equal(t, 0, stub.callCount())
	assert.Equal(t, 2, stats.ExitCode(), "file-level failure outranks row-level")

	_, err = os.Stat(ledger.ResultPath(bad))
	assert.True(t, os.IsNotExist(err), "no result file for an aborted file")
}

func TestFileErrorContinuesToNextFileByDefault(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	good := filepath.Join(dir, "good.csv")
	writeCSV(t, bad, "username,role,action\njohn,admin,create\n")
	writeCSV(t, good, "username,email,role,action\njane,jane@x.com,user,create\n")

	stub := &stubDispatcher{}
	runner, err := NewRunner(defaultOptions(bad, good), stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 1, stats.Rows.Success)
}

func TestOnFileErrorCallback(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	good := filepath.Join(dir, "good.csv")
	writeCSV(t, bad, "username,role,action\njohn,admin,create\n")
	writeCSV(t, good, "username,email,role,action\njane,jane@x.com,user,create\n")

	var failedFile string
	var failedErr error
	opts := defaultOptions(bad, good)
	opts.OnFileError = func(file string, err error) {
		failedFile = file
		failedErr = err
	}
	runner, err := NewRunner(opts, &stubDispatcher{}, nil)
	require.NoError(t, err)

	runner.Run(context.Background())
	assert.Equal(t, bad, failedFile)
	require.Error(t, failedErr)
	assert.Contains(t, failedErr.Error(), "missing required columns")
}

func TestStopOnFileError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	good := filepath.Join(dir, "good.csv")
	writeCSV(t, bad, "username,role,action\njohn,admin,create\n")
	writeCSV(t, good, "username,email,role,action\njane,jane@x.com,user,create\n")

	stub := &stubDispatcher{}
	opts := defaultOptions(bad, good)
	opts.StopOnFileError = true
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 0, stats.FilesProcessed, "remaining files are not processed")
	assert.Equal(t, 0, stub.callCount())
}

func TestWorkerPoolKeepsRowOrder(t *testing.T) {
	input := filepath.Join(t.TempDir(), "users.csv")
	var sb []byte
	sb = append(sb, []byte("username,email,role,action\n")...)
	for i := 0; i < 20; i++ {
		sb = append(sb, []byte(fmt.Sprintf("user%02d,user%02d@x.com,user,create\n", i, i))...)
	}
	writeCSV(t, input, string(sb))

	stub := &stubDispatcher{respond: func(q model.RemoteQuery) (model.RemoteResult, error) {
		time.Sleep(time.Duration(len(fmt.Sprint(q.Params["username"]))) * time.Microsecond)
		return model.RemoteResult{ExitCode: 0, Message: "ok"}, nil
	}}

	opts := defaultOptions(input)
	opts.Workers = 4
	runner, err := NewRunner(opts, stub, nil)
	require.NoError(t, err)

	stats := runner.Run(context.Background())
	require.Equal(t, 20, stats.Rows.Success)

	recs := readResult(t, input)
	require.Len(t, recs, 21)
	for i, rec := range recs[1:] {
		assert.Equal(t, fmt.Sprintf("user%02d", i), rec[0], "row order is stable despite concurrent dispatch")
	}
}

func TestUnknownSpecType(t *testing.T) {
	_, err := NewRunner(Options{SpecType: "bogus"}, &stubDispatcher{}, nil)
	require.Error(t, err)
}
