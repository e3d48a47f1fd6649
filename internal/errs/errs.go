// Package errs provides a structured error envelope shared by checkers, notifiers and config loading.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code classifies where a failure happened.
type Code string

const (
	CodeConfig         Code = "config"
	CodeInvalid        Code = "invalid"
	CodeNetwork        Code = "network"
	CodeUpstreamStatus Code = "upstream_status"
	CodeParse          Code = "parse"
	CodeNotify         Code = "notify"
)

// E is the error envelope. Source names the component (a retailer key, "discord", "config").
type E struct {
	Source  string
	Code    Code
	HTTP    int
	Message string

	cause error
}

// Option configures an envelope.
type Option func(*E)

// New constructs an envelope for source and code.
func New(source string, code Code, opts ...Option) *E {
	e := &E{Source: strings.TrimSpace(source), Code: code}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message.
func WithMessage(msg string) Option {
	trimmed := strings.TrimSpace(msg)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the upstream HTTP status.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithCause sets the wrapped error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	source := e.Source
	if source == "" {
		source = "unknown"
	}
	code := string(e.Code)
	if code == "" {
		code = "unknown"
	}
	parts := []string{"source=" + source, "code=" + code}
	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}
	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf returns the code of the first envelope in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
