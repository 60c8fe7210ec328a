package ubigen

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// BuildError is the error type returned by every fallible operation in this
// module. It supports chaining with errors.Is so callers can test for the
// sentinel values below regardless of how much context was layered on top.
type BuildError interface {
	error
	WithMessage(message string) BuildError
	Wrap(err error) BuildError
}

type baseBuildError string

const rootError = baseBuildError("")

// Configuration errors, detected when a session is constructed. No output is
// produced if construction fails with one of these.
var ErrBadGeometry = rootError.WithMessage("Invalid flash geometry")
var ErrBadVolumeParams = rootError.WithMessage("Invalid volume parameters")

// Runtime errors, detected inside the write loop. Output already written
// before the failure is left as-is; the caller owns truncation and cleanup.
var ErrInputTooShort = rootError.WithMessage("Input shorter than declared volume size")
var ErrIOFailed = rootError.WithMessage("Input/output error")
var ErrSessionFinished = rootError.WithMessage("Image session already finished")

func (e baseBuildError) Error() string {
	return string(e)
}

func (e baseBuildError) WithMessage(message string) BuildError {
	return customBuildError{
		message:       message,
		originalError: e,
	}
}

func (e baseBuildError) Wrap(err error) BuildError {
	return customBuildError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customBuildError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customBuildError) Error() string {
	return e.message
}

func (e customBuildError) WithMessage(message string) BuildError {
	return customBuildError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customBuildError) Wrap(err error) BuildError {
	return customBuildError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customBuildError) Unwrap() error {
	return e.originalError
}

// Process exit codes for the three possible outcomes of an image build.
const (
	ExitOK            = 0
	ExitConfigFailure = 1
	ExitWriteFailure  = 2
)

// ExitCode maps an error returned by this module to a process exit code:
// 0 for success, 1 for a construction-time configuration failure, 2 for a
// failure during the write loop.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrBadGeometry), errors.Is(err, ErrBadVolumeParams):
		return ExitConfigFailure
	default:
		return ExitWriteFailure
	}
}
