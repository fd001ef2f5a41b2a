package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable category of a failure reported at the service boundary
type ErrorKind string

// Error kinds
const (
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindConfiguration         ErrorKind = "ConfigurationError"
	KindRPC                   ErrorKind = "RpcFailure"
	KindQuote                 ErrorKind = "QuoteFailure"
	KindTransaction           ErrorKind = "TransactionFailure"
	KindDeploymentDataMissing ErrorKind = "DeploymentDataMissing"
	KindBlockchain            ErrorKind = "BlockchainFailure"
	KindInternal              ErrorKind = "InternalError"
)

// Error carries a kind, the operation that failed and the underlying cause
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds an *Error. A nil cause is replaced with the kind name.
func NewError(kind ErrorKind, op string, err error) *Error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error with a formatted cause
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause returns the human readable cause without the kind prefix
func (e *Error) Cause() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// KindOf returns the kind of the outermost *Error in the chain, or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether any *Error in the chain has the given kind
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
