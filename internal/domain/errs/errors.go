// Package errs is the error taxonomy shared by every forecast pipeline stage.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindServer     Kind = "server"
	KindProtocol   Kind = "protocol"
	KindBusy       Kind = "busy"
	KindCanceled   Kind = "canceled"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrServer     = &Error{Kind: KindServer}
	ErrProtocol   = &Error{Kind: KindProtocol}
	ErrBusy       = &Error{Kind: KindBusy}
	ErrCanceled   = &Error{Kind: KindCanceled}
)

type Error struct {
	Kind   Kind
	Op     string
	Detail string
	// Status is the upstream HTTP status for server errors.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func Validation(op, format string, a ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Detail: fmt.Sprintf(format, a...)}
}

func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func Timeout(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

func Server(op string, status int, body string) *Error {
	return &Error{Kind: KindServer, Op: op, Status: status, Detail: fmt.Sprintf("HTTP %d: %s", status, body)}
}

func Protocol(op, format string, a ...interface{}) *Error {
	return &Error{Kind: KindProtocol, Op: op, Detail: fmt.Sprintf(format, a...)}
}

func Busy(op string) *Error {
	return &Error{Kind: KindBusy, Op: op, Detail: "a request is already in progress"}
}

func Canceled(op string, err error) *Error {
	return &Error{Kind: KindCanceled, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message is the user-facing text for err.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindValidation:
		return e.Detail
	case KindTimeout:
		return "Превышено время ожидания ответа сервера"
	case KindNetwork:
		return "Сервер недоступен"
	case KindServer:
		return e.Detail
	case KindBusy:
		return "Запрос уже выполняется"
	default:
		return e.Error()
	}
}
