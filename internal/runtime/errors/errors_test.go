package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrInvalidInput", ErrInvalidInput, "avroflow: invalid input"},
		{"ErrDecode", ErrDecode, "avroflow: decode failed"},
		{"ErrRender", ErrRender, "avroflow: render failed"},
		{"ErrSchemaRequired", ErrSchemaRequired, "avroflow: schema is required"},
		{"ErrTopicRequired", ErrTopicRequired, "avroflow: topic is required"},
		{"ErrPublisherRequired", ErrPublisherRequired, "avroflow: publisher is required"},
		{"ErrSubscriberRequired", ErrSubscriberRequired, "avroflow: subscriber is required"},
		{"ErrRendererRequired", ErrRendererRequired, "avroflow: renderer is required"},
		{"ErrLoggerRequired", ErrLoggerRequired, "avroflow: logger is required"},
		{"ErrConfigRequired", ErrConfigRequired, "avroflow: configuration is required"},
		{"ErrDecoderRequired", ErrDecoderRequired, "avroflow: decoder is required"},
		{"ErrProcessorRequired", ErrProcessorRequired, "avroflow: processor is required"},
		{"ErrEncoderRequired", ErrEncoderRequired, "avroflow: encoder is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestInvalidInputError(t *testing.T) {
	err := NewInvalidInput("money value", "sup", nil)

	if got, want := err.Error(), "avroflow: invalid money value: sup"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected errors.Is to match ErrInvalidInput")
	}

	wrapped := fmt.Errorf("history.last_login: %w", err)
	var target *InvalidInputError
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to find InvalidInputError through wrapping")
	}
	if target.Value != "sup" {
		t.Errorf("Value = %v, want sup", target.Value)
	}
}

func TestInvalidInputUnwrap(t *testing.T) {
	cause := errors.New("parse failure")
	err := NewInvalidInput("datetime string", "nope", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
}

func TestDecodeError(t *testing.T) {
	cause := errors.New("short buffer")
	err := &DecodeError{Err: cause}

	if got, want := err.Error(), "avroflow: decode failed: short buffer"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrDecode) || !errors.Is(err, cause) {
		t.Error("expected DecodeError to match both sentinel and cause")
	}
	if got := (&DecodeError{}).Error(); got != ErrDecode.Error() {
		t.Errorf("empty DecodeError = %q", got)
	}
}

func TestRenderError(t *testing.T) {
	err := &RenderError{Template: "profile.yaml", Err: errors.New("not found")}
	if got, want := err.Error(), "avroflow: render failed (profile.yaml): not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrRender) {
		t.Error("expected errors.Is to match ErrRender")
	}
}

func TestConfigValidationError(t *testing.T) {
	inner := errors.New("invalid port")
	err := ConfigValidationError{Err: inner}

	want := "avroflow: invalid configuration: invalid port"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if unwrapped := err.Unwrap(); unwrapped != inner {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, inner)
	}
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if err := NewConfigValidationError(nil); err != nil {
			t.Errorf("NewConfigValidationError(nil) = %v, want nil", err)
		}
	})

	t.Run("errors.Is works with wrapped error", func(t *testing.T) {
		inner := errors.New("specific error")
		err := NewConfigValidationError(inner)

		var cfgErr ConfigValidationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigValidationError, got %T", err)
		}
		if !errors.Is(err, inner) {
			t.Error("errors.Is should match wrapped error")
		}
	})
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"invalid input", NewInvalidInput("string", 123, nil), KindInvalidInput},
		{"wrapped invalid input", fmt.Errorf("field: %w", NewInvalidInput("string", 1, nil)), KindInvalidInput},
		{"decode", &DecodeError{Err: errors.New("x")}, KindDecode},
		{"render", &RenderError{Template: "t", Err: errors.New("x")}, KindRender},
		{"other", errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}
