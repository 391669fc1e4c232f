package platformerrors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

func TestNewCarriesRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), platformerrors.RequestIDKey, "req-123")

	err := platformerrors.New(ctx, platformerrors.LayerStore, platformerrors.ErrorTypeNotFound, "thread not found", nil)
	if err.RequestID != "req-123" {
		t.Errorf("request id = %q, want req-123", err.RequestID)
	}

	bare := platformerrors.New(context.Background(), platformerrors.LayerStore, platformerrors.ErrorTypeNotFound, "thread not found", nil)
	if bare.RequestID != "" {
		t.Errorf("request id should be empty without middleware, got %q", bare.RequestID)
	}
}

func TestTypeOfUnwrapsThroughWrapping(t *testing.T) {
	inner := platformerrors.New(context.Background(), platformerrors.LayerStore, platformerrors.ErrorTypeNotFound, "missing", nil)
	wrapped := fmt.Errorf("load thread: %w", inner)

	if platformerrors.TypeOf(wrapped) != platformerrors.ErrorTypeNotFound {
		t.Errorf("type through wrapping = %s", platformerrors.TypeOf(wrapped))
	}
	if !platformerrors.IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if platformerrors.TypeOf(errors.New("plain")) != platformerrors.ErrorTypeInternal {
		t.Error("plain errors default to INTERNAL")
	}
}

func TestAsErrorPreservesCategory(t *testing.T) {
	ctx := context.Background()
	inner := platformerrors.New(ctx, platformerrors.LayerStore, platformerrors.ErrorTypeValidation, "bad cursor", nil)

	wrapped := platformerrors.AsError(ctx, platformerrors.LayerDomain, inner, "list items")
	if wrapped.Type != platformerrors.ErrorTypeValidation {
		t.Errorf("category = %s, want VALIDATION", wrapped.Type)
	}
	if wrapped.Layer != platformerrors.LayerDomain {
		t.Errorf("layer = %s, want domain", wrapped.Layer)
	}

	if platformerrors.AsError(ctx, platformerrors.LayerDomain, nil, "noop") != nil {
		t.Error("AsError(nil) should be nil")
	}
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errorType platformerrors.ErrorType
		want      int
	}{
		{platformerrors.ErrorTypeNotFound, http.StatusNotFound},
		{platformerrors.ErrorTypeValidation, http.StatusBadRequest},
		{platformerrors.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{platformerrors.ErrorTypeStream, http.StatusInternalServerError},
		{platformerrors.ErrorTypeDatabaseError, http.StatusInternalServerError},
		{platformerrors.ErrorType("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := platformerrors.ErrorTypeToHTTPStatus(tt.errorType); got != tt.want {
			t.Errorf("status(%s) = %d, want %d", tt.errorType, got, tt.want)
		}
	}
}
