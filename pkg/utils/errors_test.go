package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfDirect(t *testing.T) {
	err := NewRateLimitedError("too many requests")
	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("expected KindOf to recognize a *ScrapeError")
	}
	if kind != ErrKindRateLimited {
		t.Errorf("kind = %q, want %q", kind, ErrKindRateLimited)
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := NewBlockedError("captcha page")
	wrapped := fmt.Errorf("fetch failed: %w", inner)
	kind, ok := KindOf(wrapped)
	if !ok {
		t.Fatal("expected KindOf to walk the Unwrap chain")
	}
	if kind != ErrKindBlocked {
		t.Errorf("kind = %q, want %q", kind, ErrKindBlocked)
	}
}

func TestKindOfNoMatch(t *testing.T) {
	if _, ok := KindOf(errors.New("plain error")); ok {
		t.Fatal("expected KindOf to report false for a non-ScrapeError")
	}
	if _, ok := KindOf(nil); ok {
		t.Fatal("expected KindOf to report false for nil")
	}
}

func TestScrapeErrorMessage(t *testing.T) {
	err := NewTransientNetworkError("dns lookup failed", errors.New("cause"))
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
	if errors.Unwrap(err).Error() != "cause" {
		t.Errorf("expected Unwrap to return the cause")
	}
}

func TestScrapeErrorIsMatchesOnKindOnly(t *testing.T) {
	specific := NewRateLimitedError("detail here")
	sentinel := &ScrapeError{Kind: ErrKindRateLimited}
	if !errors.Is(specific, sentinel) {
		t.Fatal("expected errors.Is to match same-kind sentinel")
	}

	otherSentinel := &ScrapeError{Kind: ErrKindBlocked}
	if errors.Is(specific, otherSentinel) {
		t.Fatal("expected errors.Is to reject a different-kind sentinel")
	}
}
