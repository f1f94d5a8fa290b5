package error

import (
	"fmt"
	"runtime"
	"strings"

	goerrors "github.com/go-faster/errors"
)

// ErrorCategory classifies an error by what the caller can do about it:
// fix the request, retry, page an operator, repair data, or retry the
// whole transaction.
type ErrorCategory int

const (
	// ErrCategoryUser: the request itself is wrong (bad argument, schema
	// mismatch); fixable by the caller, pointless to retry.
	ErrCategoryUser ErrorCategory = iota

	// ErrCategoryTransient: likely to succeed if retried with backoff.
	ErrCategoryTransient

	// ErrCategorySystem: needs operator intervention (disk full, missing
	// file, bad configuration).
	ErrCategorySystem

	// ErrCategoryData: corruption or integrity damage; may need repair or
	// recovery.
	ErrCategoryData

	// ErrCategoryConcurrency: transaction conflict (lock timeout,
	// deadlock); resolved by retrying the whole transaction.
	ErrCategoryConcurrency
)

// DBError is the structured error every storage-core failure surfaces as:
// a stable code, a category steering retry behavior, human-readable
// message/detail/hint, the operation and component it came from, an
// optional cause chain, and the call stack captured at creation.
type DBError struct {
	Code      string
	Category  ErrorCategory
	Message   string
	Detail    string // instance-specific context under the generic Message
	Hint      string // optional suggestion for working around the error
	Operation string // e.g. "InsertTuple", "AcquireLock"
	Component string // e.g. "storage", "LockManager"
	Cause     error
	Stack     []uintptr
}

// New creates a new DBError with the specified code, category, and message.
func New(category ErrorCategory, code, message string) *DBError {
	err := &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
	return err
}

// Wrap wraps an existing error with database-specific context information.
// If the error is already a DBError, it enriches the existing error with
// operation and component context (only if not already set).
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	if dbErr, ok := err.(*DBError); ok {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  ErrCategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		// go-faster/errors.Wrap attaches its own stack frame to the cause in
		// addition to the one captureStack records on the DBError itself, and
		// remains unwrappable with errors.Is/errors.As since it implements
		// the standard Unwrap contract.
		Cause: goerrors.Wrap(err, operation),
		Stack: captureStack(),
	}
}

// captureStack captures the current call stack for debugging purposes.
// It skips the first 3 frames (runtime.Callers, captureStack and New/Wrap),
// so the first recorded frame is the code that called New/Wrap.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error implements the standard Go error interface
//
// The format follows the pattern:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *DBError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error, enabling error chain traversal
// with Go's standard error handling functions like errors.Is and errors.As.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// FormatStack returns a human-readable stack trace for debugging purposes.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		b.WriteString(fmt.Sprintf("  %s\n    %s:%d\n",
			f.Function, f.File, f.Line))
		if !more {
			break
		}
	}

	return b.String()
}
