package util

import (
	"errors"
	"strings"
	"testing"
)

func TestConnectionExistsError(t *testing.T) {
	err := NewConnectionExistsError("abc123def456")
	if !strings.Contains(err.Error(), "abc123def456") {
		t.Errorf("Error message should contain connection id: %s", err.Error())
	}
	if !errors.Is(err, ErrConnectionExists) {
		t.Error("ConnectionExistsError should unwrap to ErrConnectionExists")
	}
}

func TestConnectionNonExistentError(t *testing.T) {
	err := NewConnectionNonExistentError("nope")
	if !errors.Is(err, ErrConnectionNonExistent) {
		t.Error("ConnectionNonExistentError should unwrap to ErrConnectionNonExistent")
	}
}

func TestConnectionGoneError(t *testing.T) {
	err := NewConnectionGoneError("abc123def456")
	if !errors.Is(err, ErrConnectionGone) {
		t.Error("ConnectionGoneError should unwrap to ErrConnectionGone")
	}
}

func TestPermissionError(t *testing.T) {
	err := NewPermissionError("urn:ogf:network:nsa:requester", "urn:ogf:network:example.net")
	msg := err.Error()
	if !strings.Contains(msg, "urn:ogf:network:nsa:requester") || !strings.Contains(msg, "urn:ogf:network:example.net") {
		t.Errorf("Error message should name requester and resource: %s", msg)
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("PermissionError should unwrap to ErrPermissionDenied")
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("field is required")
		msg := err.Error()
		if !strings.Contains(msg, "field is required") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("field1 is required", "field2 is invalid", "field3 out of range")
		msg := err.Error()
		if !strings.Contains(msg, "field1") || !strings.Contains(msg, "field2") || !strings.Contains(msg, "field3") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")
		v.Add(true, "neither should this")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.Add(false, "second error")
		v.AddErrorf("formatted error: %d", 42)

		if !v.HasErrors() {
			t.Error("Should have errors")
		}

		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return error")
		}

		validationErr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 3 {
			t.Errorf("Expected 3 errors, got %d", len(validationErr.Errors))
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(false, "error2").
			AddErrorf("error%d", 3).
			Build()

		if err == nil {
			t.Fatal("Expected error")
		}
		if !strings.Contains(err.Error(), "error1") {
			t.Errorf("Missing error1 in: %s", err.Error())
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrConnectionExists,
		ErrConnectionNonExistent,
		ErrConnectionGone,
		ErrPermissionDenied,
		ErrValidationFailed,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"ConnectionExistsError", NewConnectionExistsError("id"), ErrConnectionExists},
		{"ConnectionNonExistentError", NewConnectionNonExistentError("id"), ErrConnectionNonExistent},
		{"ConnectionGoneError", NewConnectionGoneError("id"), ErrConnectionGone},
		{"PermissionError", NewPermissionError("req", "res"), ErrPermissionDenied},
		{"ValidationError", NewValidationError("msg"), ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}
