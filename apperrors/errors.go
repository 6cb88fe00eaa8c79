// Package apperrors defines the error kinds surfaced by the services layer.
package apperrors

import "errors"

// Kind classifies an application error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnauthorized
	KindStorage
	KindTooLarge
)

// Kind sentinels, matched by errors.Is against any *Error of that kind.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage error")
	ErrTooLarge     = errors.New("payload too large")
)

// Specific causes, wrapped inside an *Error so callers can tell them apart.
var (
	ErrPostNotFound       = errors.New("post not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("user with that email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindStorage:
		return "storage"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindForbidden:
		return ErrForbidden
	case KindConflict:
		return ErrConflict
	case KindUnauthorized:
		return ErrUnauthorized
	case KindStorage:
		return ErrStorage
	case KindTooLarge:
		return ErrTooLarge
	}
	return nil
}

// Error is a typed application error.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "posts.upvote"
	Msg  string // client-safe message
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil && e.Msg != "" && e.Kind == KindStorage {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel; the wrapped cause is reached through Unwrap.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Validation reports a missing or malformed input field.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// NotFound wraps one of the specific not-found causes.
func NotFound(op string, cause error) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: cause.Error(), Err: cause}
}

// Forbidden reports an actor acting on a resource it does not own.
func Forbidden(op, msg string) error {
	return &Error{Kind: KindForbidden, Op: op, Msg: msg}
}

// Conflict wraps a uniqueness violation.
func Conflict(op string, cause error) error {
	return &Error{Kind: KindConflict, Op: op, Msg: cause.Error(), Err: cause}
}

// Unauthorized wraps an authentication failure.
func Unauthorized(op string, cause error) error {
	return &Error{Kind: KindUnauthorized, Op: op, Msg: cause.Error(), Err: cause}
}

// Storage wraps a persistence failure.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Msg: "storage failure", Err: err}
}

// TooLarge reports an upload over the size limit.
func TooLarge(op, msg string) error {
	return &Error{Kind: KindTooLarge, Op: op, Msg: msg}
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Message returns the client-safe message of err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return "internal server error"
}
