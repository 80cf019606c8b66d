package request

import (
	"errors"
	"fmt"
)

// UsageError reports an invalid combination of command line flags. Commands
// surface it through the CLI's usage error path.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// PreconditionError reports a condition the user can fix, such as a missing
// file or an unconfigured repository. It is printed as "Error: <msg>" and the
// command still exits successfully.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

func preconditionf(format string, args ...any) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// ErrDirtyWorkingTree aborts a local run whose working tree has uncommitted
// changes. The offending paths have already been printed.
var ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")
