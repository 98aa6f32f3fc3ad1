package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrInvalidInput       = sterrors.New("avroflow: invalid input")
	ErrDecode             = sterrors.New("avroflow: decode failed")
	ErrRender             = sterrors.New("avroflow: render failed")
	ErrSchemaRequired     = sterrors.New("avroflow: schema is required")
	ErrTopicRequired      = sterrors.New("avroflow: topic is required")
	ErrPublisherRequired  = sterrors.New("avroflow: publisher is required")
	ErrSubscriberRequired = sterrors.New("avroflow: subscriber is required")
	ErrRendererRequired   = sterrors.New("avroflow: renderer is required")
	ErrLoggerRequired     = sterrors.New("avroflow: logger is required")
	ErrConfigRequired     = sterrors.New("avroflow: configuration is required")
	ErrDecoderRequired    = sterrors.New("avroflow: decoder is required")
	ErrProcessorRequired  = sterrors.New("avroflow: processor is required")
	ErrEncoderRequired    = sterrors.New("avroflow: encoder is required")
)

// InvalidInputError reports a value a field normalizer could not interpret.
// Value holds the offending input exactly as it was received.
type InvalidInputError struct {
	Kind  string
	Value any
	Err   error
}

// NewInvalidInput builds an InvalidInputError for the given value kind.
func NewInvalidInput(kind string, value any, cause error) *InvalidInputError {
	return &InvalidInputError{Kind: kind, Value: value, Err: cause}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("avroflow: invalid %s: %v", e.Kind, e.Value)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// DecodeError reports raw bytes that could not be decoded against the schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return ErrDecode.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDecode.Error(), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// RenderError reports a template lookup or substitution failure.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrRender.Error(), e.Template, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// ConfigValidationError wraps the joined problems returned by Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "avroflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// ErrorKind groups errors into the categories callers use for skip decisions
// and metric labels.
type ErrorKind string

const (
	KindNone         ErrorKind = "none"
	KindInvalidInput ErrorKind = "invalid_input"
	KindDecode       ErrorKind = "decode"
	KindRender       ErrorKind = "render"
	KindOther        ErrorKind = "other"
)

// Kind classifies err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case sterrors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case sterrors.Is(err, ErrDecode):
		return KindDecode
	case sterrors.Is(err, ErrRender):
		return KindRender
	default:
		return KindOther
	}
}
