package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError_Auth(t *testing.T) {
	err := ClassifyError(errors.New("401 Unauthorized"))
	if err.Type != ErrorTypeAuth {
		t.Errorf("expected ErrorTypeAuth, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("auth errors should not be retryable")
	}
}

func TestClassifyError_ModelNotFound(t *testing.T) {
	err := ClassifyError(errors.New(`model "gpt-nope" not found`))
	if err.Type != ErrorTypeModel {
		t.Errorf("expected ErrorTypeModel, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("model errors should not be retryable")
	}
}

func TestClassifyError_EndpointNotFound(t *testing.T) {
	err := ClassifyError(errors.New("404 page not found"))
	if err.Type != ErrorTypeEndpoint {
		t.Errorf("expected ErrorTypeEndpoint, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("404 errors should not be retryable")
	}
}

func TestClassifyError_ConnectionRefused(t *testing.T) {
	err := ClassifyError(errors.New("dial tcp 127.0.0.1:11434: connection refused"))
	if err.Type != ErrorTypeEndpoint {
		t.Errorf("expected ErrorTypeEndpoint, got %v", err.Type)
	}
	if !err.Retryable {
		t.Error("connection errors should be retryable")
	}
}

func TestClassifyError_Timeout(t *testing.T) {
	err := ClassifyError(errors.New("context deadline exceeded"))
	if !err.Retryable {
		t.Error("timeout errors should be retryable")
	}
}

func TestClassifyError_RateLimit(t *testing.T) {
	err := ClassifyError(errors.New("429 Too Many Requests"))
	if !err.Retryable {
		t.Error("rate limit errors should be retryable")
	}
	if err.StatusCode != 429 {
		t.Errorf("expected status code 429, got %d", err.StatusCode)
	}
}

func TestClassifyError_ServerError(t *testing.T) {
	err := ClassifyError(errors.New("503 Service Unavailable"))
	if err.Type != ErrorTypeEndpoint {
		t.Errorf("expected ErrorTypeEndpoint, got %v", err.Type)
	}
	if !err.Retryable {
		t.Error("5xx errors should be retryable")
	}
}

func TestClassifyError_Unknown(t *testing.T) {
	err := ClassifyError(errors.New("something odd happened"))
	if err.Type != ErrorTypeUnknown {
		t.Errorf("expected ErrorTypeUnknown, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("unknown errors should not be retryable")
	}
}

func TestClassifyError_PreservesExistingError(t *testing.T) {
	orig := NewError(ErrorTypeAuth, "bad key", false, nil)
	wrapped := fmt.Errorf("generate: %w", orig)

	got := ClassifyError(wrapped)
	if got != orig {
		t.Error("expected existing *Error to be returned unchanged")
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError(nil); got != nil {
		t.Errorf("expected nil for nil error, got %v", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewError(ErrorTypeEndpoint, "wrapped", true, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := NewError(ErrorTypeEndpoint, "conn", true, nil)
	if !IsRetryable(fmt.Errorf("call: %w", retryable)) {
		t.Error("expected wrapped retryable error to report retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error to report not retryable")
	}
}
