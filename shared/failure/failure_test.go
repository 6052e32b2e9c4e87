package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"glow/shared/failure"
)

func TestFailure_Error(t *testing.T) {
	f := &failure.Failure{
		Code:    http.StatusBadRequest,
		Message: "test error message",
	}

	if f.Error() != "test error message" {
		t.Errorf("expected error message to be 'test error message', got %s", f.Error())
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "BadRequestFromString", err: failure.BadRequestFromString("bad"), code: http.StatusBadRequest},
		{name: "Unauthorized", err: failure.Unauthorized("no"), code: http.StatusUnauthorized},
		{name: "Forbidden", err: failure.Forbidden("no"), code: http.StatusForbidden},
		{name: "NotFound", err: failure.NotFound("slot not found"), code: http.StatusNotFound},
		{name: "Conflict", err: failure.Conflict("slot already booked"), code: http.StatusConflict},
		{name: "UnprocessableEntity", err: failure.UnprocessableEntity("invalid transition"), code: http.StatusUnprocessableEntity},
		{name: "BadGateway", err: failure.BadGateway("processor unreachable"), code: http.StatusBadGateway},
		{name: "InternalError", err: failure.InternalError(errors.New("boom")), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failure.GetCode(tt.err); got != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, got)
			}
		})
	}
}

func TestGetCode_WrappedError(t *testing.T) {
	inner := failure.Conflict("taken")
	wrapped := fmt.Errorf("reserving slot: %w", inner)

	if got := failure.GetCode(wrapped); got != http.StatusConflict {
		t.Errorf("expected wrapped failure code %d, got %d", http.StatusConflict, got)
	}

	if got := failure.GetCode(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("expected plain error to map to %d, got %d", http.StatusInternalServerError, got)
	}

	if !failure.IsCode(inner, http.StatusConflict) {
		t.Error("expected IsCode to match conflict")
	}
}
