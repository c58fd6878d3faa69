package engine

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vexec/index"
)

// Kind classifies engine failures.
type Kind int

const (
	KindUnknown Kind = iota
	UnsupportedEngineType
	UnsupportedOperation
	SelfMergeForbidden
	IncompatibleMergeSource
	StorageReadFailure
	StorageWriteFailure
	// BuildRequiresFlatSource is a specialization of IncompatibleMergeSource:
	// errors of this kind also match ErrIncompatibleMergeSource.
	BuildRequiresFlatSource
	InvalidArgument
	SearchFailure
	BuildFailure
)

var kindNames = [...]string{
	KindUnknown:             "unknown",
	UnsupportedEngineType:   "unsupported engine type",
	UnsupportedOperation:    "unsupported operation",
	SelfMergeForbidden:      "self merge forbidden",
	IncompatibleMergeSource: "incompatible merge source",
	StorageReadFailure:      "storage read failure",
	StorageWriteFailure:     "storage write failure",
	BuildRequiresFlatSource: "build requires flat source",
	InvalidArgument:         "invalid argument",
	SearchFailure:           "search failure",
	BuildFailure:            "build failure",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned by every Engine operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnsupportedEngineType   = &Error{Kind: UnsupportedEngineType}
	ErrUnsupportedOperation    = &Error{Kind: UnsupportedOperation}
	ErrSelfMergeForbidden      = &Error{Kind: SelfMergeForbidden}
	ErrIncompatibleMergeSource = &Error{Kind: IncompatibleMergeSource}
	ErrStorageReadFailure      = &Error{Kind: StorageReadFailure}
	ErrStorageWriteFailure     = &Error{Kind: StorageWriteFailure}
	ErrBuildRequiresFlatSource = &Error{Kind: BuildRequiresFlatSource}
	ErrInvalidArgument         = &Error{Kind: InvalidArgument}
	ErrSearchFailure           = &Error{Kind: SearchFailure}
	ErrBuildFailure            = &Error{Kind: BuildFailure}
)

func (e *Error) Error() string {
	msg := "engine: " + e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality with another *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == BuildRequiresFlatSource && t.Kind == IncompatibleMergeSource
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// classify maps index-layer errors onto engine kinds, falling back to def.
func classify(err error, def Kind) Kind {
	var dm *index.ErrDimensionMismatch
	switch {
	case errors.Is(err, index.ErrUnsupportedOperation):
		return UnsupportedOperation
	case errors.Is(err, index.ErrUnsupportedEngineType):
		return UnsupportedEngineType
	case errors.As(err, &dm),
		errors.Is(err, index.ErrInvalidK),
		errors.Is(err, index.ErrInvalidDimension),
		errors.Is(err, index.ErrShortBuffer):
		return InvalidArgument
	default:
		return def
	}
}
