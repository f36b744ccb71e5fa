package session

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"

	"ftpsession/protocols"
)

const (
	CodeNone         = 0
	CodeNotConnected = -1
	CodeGeneric      = -2
)

// TransferError is an operation failure carrying a numeric code and a
// message. Server faults echo the server's reply code; faults with no
// server code use CodeGeneric.
type TransferError struct {
	Code    int
	Message string
	Err     error
}

func (e *TransferError) Error() string { return e.Message }

func (e *TransferError) Unwrap() error { return e.Err }

var (
	// ErrNotConnected is returned by DeleteFile when no connection is open.
	ErrNotConnected = &TransferError{Code: CodeNotConnected, Message: "No available connection."}
	// ErrUnsupported is returned by OpenFile for any access other than
	// read-only or write-only.
	ErrUnsupported = &TransferError{Code: CodeGeneric, Message: "File access is restricted to read or write only"}
)

// ConfigError reports an invalid setting, raised before any network I/O.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Code extracts the numeric error code of err: 0 for nil, the carried code
// for transfer and protocol errors, CodeGeneric otherwise.
func Code(err error) int {
	if err == nil {
		return CodeNone
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Code
	}
	var pe *protocols.ProtocolError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeGeneric
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var te *TransferError
	if errors.As(err, &te) {
		return err
	}
	var pe *protocols.ProtocolError
	if errors.As(err, &pe) {
		return &TransferError{Code: pe.Code, Message: pe.Message, Err: err}
	}
	return &TransferError{Code: CodeGeneric, Message: err.Error(), Err: err}
}

// flatten returns the single error of errs unwrapped, or errs itself with
// its messages joined on one line.
func flatten(errs *multierror.Error) error {
	if errs == nil || len(errs.Errors) == 0 {
		return nil
	}
	if len(errs.Errors) == 1 {
		return errs.Errors[0]
	}
	errs.ErrorFormat = func(es []error) string {
		msgs := make([]string, len(es))
		for i, e := range es {
			msgs[i] = e.Error()
		}
		return strings.Join(msgs, "; ")
	}
	return errs
}
