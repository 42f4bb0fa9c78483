package app

import (
	"errors"
	"fmt"

	"github.com/agis/mocal/internal/contract"
)

// Process exit codes. Scripts rely on these staying stable.
const (
	exitOK               = 0
	exitGeneric          = 1
	exitUsage            = 2
	exitNotFound         = 4
	exitStoreUnavailable = 6
)

// AppError carries the exit code for err. Printed is set once the error
// has already been rendered, so the top level stays silent.
type AppError struct {
	Code    int
	Err     error
	Printed bool
}

func (e AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e AppError) Unwrap() error { return e.Err }

func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return AppError{Code: code, Err: err}
}

func WrapPrinted(code int, err error) error {
	if err == nil {
		return nil
	}
	return AppError{Code: code, Err: err, Printed: true}
}

func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var e AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return exitGeneric
}

func errorCodeForExit(code int) contract.ErrorCode {
	switch code {
	case exitUsage:
		return contract.ErrInvalidUsage
	case exitNotFound:
		return contract.ErrNotFound
	case exitStoreUnavailable:
		return contract.ErrStoreUnavailable
	default:
		return contract.ErrGeneric
	}
}
