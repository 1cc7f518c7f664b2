package engine

import (
	"testing"
	"time"

	"jobscraper/pkg/models"
)

func TestParseDateAbsoluteFormats(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"2026-03-05": time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		"03/05/2026": time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		"05-03-2026": time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got := ParseDate(input, now)
		if got == nil {
			t.Errorf("ParseDate(%q) = nil, want %v", input, want)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseDateRelativeKeywords(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	if got := ParseDate("today", now); got == nil || !got.Equal(now) {
		t.Errorf("ParseDate(today) = %v, want %v", got, now)
	}
	if got := ParseDate("Yesterday", now); got == nil || !got.Equal(now.AddDate(0, 0, -1)) {
		t.Errorf("ParseDate(Yesterday) = %v, want %v", got, now.AddDate(0, 0, -1))
	}
}

func TestParseDateRelativeOffsets(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	got := ParseDate("3 days ago", now)
	want := now.AddDate(0, 0, -3)
	if got == nil || !sameDay(*got, want) {
		t.Errorf("ParseDate(3 days ago) = %v, want same day as %v", got, want)
	}
}

func TestParseDateUnparseableReturnsNil(t *testing.T) {
	now := time.Now()
	if got := ParseDate("not a date at all", now); got != nil {
		t.Errorf("expected nil for unparseable input, got %v", got)
	}
	if got := ParseDate("", now); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func TestResolveSelectorPrefersBoardOverGeneric(t *testing.T) {
	board := models.SelectorMap{models.SelectorJobTitle: {".board-title"}}
	generic := models.SelectorMap{models.SelectorJobTitle: {".generic-title"}, models.SelectorCompany: {".generic-company"}}

	got := ResolveSelector(board, generic, models.SelectorJobTitle)
	if len(got) != 1 || got[0] != ".board-title" {
		t.Errorf("expected board selector to take priority, got %v", got)
	}
}

func TestResolveSelectorFallsBackToGeneric(t *testing.T) {
	board := models.SelectorMap{}
	generic := models.SelectorMap{models.SelectorCompany: {".generic-company"}}

	got := ResolveSelector(board, generic, models.SelectorCompany)
	if len(got) != 1 || got[0] != ".generic-company" {
		t.Errorf("expected fallback to the generic selector, got %v", got)
	}
}

func TestResolveSelectorEmptyWhenNeitherDefinesField(t *testing.T) {
	got := ResolveSelector(models.SelectorMap{}, models.SelectorMap{}, models.SelectorLocation)
	if len(got) != 0 {
		t.Errorf("expected empty result when neither map defines the field, got %v", got)
	}
}
