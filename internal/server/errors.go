package server

import "fmt"

type Kind int

const (
	KindValidation Kind = iota + 1
	// KindDomain is a validation failure caused by an email outside the institutional domain.
	KindDomain
	KindNotFound
	KindConflict
	KindAuth
	KindContentRejected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDomain:
		return "domain"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindContentRejected:
		return "content rejected"
	}
	return "unknown"
}

// Error is the failure type of every public operation. Match it with errors.Is
// against the sentinels below.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindValidation && e.Kind == KindDomain
}

// Sentinel errors for errors.Is. A domain error also matches ErrValidation.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrDomain          = &Error{Kind: KindDomain}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrAuth            = &Error{Kind: KindAuth}
	ErrContentRejected = &Error{Kind: KindContentRejected}
)

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

func DomainError(format string, args ...interface{}) error {
	return newError(KindDomain, format, args...)
}

func NotFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func ConflictError(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

func AuthError(format string, args ...interface{}) error {
	return newError(KindAuth, format, args...)
}

func ContentRejectedError(format string, args ...interface{}) error {
	return newError(KindContentRejected, format, args...)
}
