package utils

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"", 50, ""},
		{"plain text", 50, "plain text"},
		{"  padded  ", 50, "padded"},
		{"line1\nline2\r\n\tline3", 50, "line1 line2 line3"},
		{"abcdef", 4, "abcd…"},
		{"anything", 0, ""},
		{"anything", -1, ""},
	}
	for _, tc := range cases {
		if got := SanitizeText(tc.in, tc.maxLen); got != tc.want {
			t.Fatalf("SanitizeText(%q, %d) = %q; want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}

func TestSanitizeText_RuneSafeTruncation(t *testing.T) {
	got := SanitizeText("日记内容很长", 3)
	if got != "日记内…" {
		t.Fatalf("got %q", got)
	}
}

type timeoutError struct{ msg string }

func (e *timeoutError) Error() string { return e.msg }

func TestErrorSummary(t *testing.T) {
	if got := ErrorSummary(nil, 100); got != "" {
		t.Fatalf("nil error: got %q", got)
	}

	got := ErrorSummary(errors.New("boom"), 100)
	if got != "errorString: boom" {
		t.Fatalf("got %q", got)
	}

	// Pointer receivers lose their '*' and package path.
	got = ErrorSummary(&timeoutError{msg: "dial tcp: timeout"}, 100)
	if got != "timeoutError: dial tcp: timeout" {
		t.Fatalf("got %q", got)
	}

	// Multi-line messages collapse to one line and get capped.
	long := fmt.Errorf("first\nsecond %s", strings.Repeat("x", 300))
	got = ErrorSummary(long, 20)
	if strings.Contains(got, "\n") {
		t.Fatalf("summary contains newline: %q", got)
	}
	if !strings.HasPrefix(got, "errorString: first second") {
		t.Fatalf("got %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
}

func TestErrorSummary_UnwrapsToRootCause(t *testing.T) {
	cause := &timeoutError{msg: "dial tcp: timeout"}
	got := ErrorSummary(pkgerrors.Wrap(cause, "upsert owner profile"), 100)
	if got != "timeoutError: upsert owner profile: dial tcp: timeout" {
		t.Fatalf("got %q", got)
	}

	std := fmt.Errorf("sync account 7: %w", errors.New("boom"))
	if got := ErrorSummary(std, 100); got != "errorString: sync account 7: boom" {
		t.Fatalf("got %q", got)
	}
}

func TestErrorSummary_EmptyMessageFallsBackToType(t *testing.T) {
	if got := ErrorSummary(&timeoutError{msg: "\n\t "}, 50); got != "timeoutError" {
		t.Fatalf("got %q", got)
	}
}
