package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/downfa11-org/mapped-queue/pkg/types"
)

// Process exit codes of the mfq tool.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the store could not be read or written, or consume timed out
	ExitCommandError = 2 // flags, config or payload rejected before touching the store
)

// ExitError is a command error with the exit code the process should end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode picks the exit code for an error returned by a command. Queue errors that
// reached main without an ExitError are classified by their sentinel.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if isUsageError(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// isUsageError reports whether the queue refused the request itself rather than failing
// to carry it out.
func isUsageError(err error) bool {
	return errors.Is(err, types.ErrConfiguration) ||
		errors.Is(err, types.ErrOutOfRange) ||
		errors.Is(err, types.ErrInvalidState)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// CLIResponse is the JSON envelope of every command's output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success writes data as a JSON envelope, or calls text for the human readable form.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Failure reports err in the configured format and returns it for the exit code.
func (f *OutputFormatter) Failure(err error) error {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: err.Error()})
		return err
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return err
}
