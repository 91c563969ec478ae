package examine

import "errors"

// Kind classifies why examining a buffer failed.
type Kind int

const (
	// KindRead means the input could not be read.
	KindRead Kind = iota + 1
	// KindDecode means the input is not a loadable change history.
	KindDecode
	// KindRender means the decoded changes could not be serialized.
	KindRender
	// KindWrite means the destination rejected the output.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "error reading input"
	case KindDecode:
		return "error loading changes"
	case KindRender:
		return "error rendering changes"
	case KindWrite:
		return "error writing to output"
	default:
		return "unknown error"
	}
}

// Error is the error returned by every failing operation of this package.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsRead reports whether err is an *Error raised while reading input.
func IsRead(err error) bool { return isKind(err, KindRead) }

// IsDecode reports whether err is an *Error raised while loading changes.
func IsDecode(err error) bool { return isKind(err, KindDecode) }

// IsRender reports whether err is an *Error raised while rendering changes.
func IsRender(err error) bool { return isKind(err, KindRender) }

// IsWrite reports whether err is an *Error raised while writing output.
func IsWrite(err error) bool { return isKind(err, KindWrite) }
