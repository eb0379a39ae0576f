package parser

import (
	"errors"
	"fmt"
)

var (
	ErrNoMatch           = errors.New("line does not match access log format")
	ErrInvalidEncoding   = errors.New("line is not valid UTF-8")
	ErrInvalidAddress    = errors.New("invalid remote address")
	ErrInvalidTimestamp  = errors.New("invalid local time")
	ErrInvalidStatusCode = errors.New("invalid status code")
	ErrInvalidInteger    = errors.New("invalid integer")
)

// ParseError описывает причину, по которой строка не была разобрана.
//
// Err содержит одну из ошибок-вариантов пакета. Для ErrNoMatch и ErrInvalidEncoding остальные поля пусты.
// Status заполняется только для ErrInvalidStatusCode и содержит разобранное значение.
type ParseError struct {
	Err    error
	Field  string
	Value  string
	Status uint16
	Cause  error
}

func newFieldError(kind error, field, value string, cause error) *ParseError {
	return &ParseError{
		Err:   kind,
		Field: field,
		Value: value,
		Cause: cause,
	}
}

func (e *ParseError) Error() string {
	switch {
	case e.Field == "":
		return e.Err.Error()
	case errors.Is(e.Err, ErrInvalidStatusCode):
		return fmt.Sprintf("%s: %d", e.Err, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("%s %q in %s: %v", e.Err, e.Value, e.Field, e.Cause)
	default:
		return fmt.Sprintf("%s %q in %s", e.Err, e.Value, e.Field)
	}
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}
