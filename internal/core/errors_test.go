package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_IsMatchesCategoryAndCode(t *testing.T) {
	err := ErrAlreadyQueued("run-1")

	if !errors.Is(err, ErrAlreadyQueued("run-2")) {
		t.Error("errors with same category and code should match regardless of message")
	}
	if errors.Is(err, ErrStore("boom")) {
		t.Error("errors with different category should not match")
	}
}

func TestDomainError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrStore("scanning queue table").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("WithCause should make the cause reachable via errors.Is")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var domErr *DomainError
	if !errors.As(wrapped, &domErr) {
		t.Fatal("DomainError should be extractable through wrapping")
	}
	if domErr.Code != CodeStoreFailure {
		t.Errorf("Code = %q, want %q", domErr.Code, CodeStoreFailure)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrStore("throttled")) {
		t.Error("store errors are retryable")
	}
	if IsRetryable(ErrWaitCeiling("gave up")) {
		t.Error("wait ceiling is fatal")
	}
	if IsRetryable(ErrQueueState(CodeQueueEmpty, "empty")) {
		t.Error("queue state violations are fatal")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(ErrWaitCeiling("x")); got != ErrCatTimeout {
		t.Errorf("GetCategory() = %q, want %q", got, ErrCatTimeout)
	}
	if got := GetCategory(errors.New("plain")); got != ErrCatInternal {
		t.Errorf("GetCategory(plain) = %q, want %q", got, ErrCatInternal)
	}
}
