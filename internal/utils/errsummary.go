package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// controlRE matches runs of control whitespace that would break single-line
// log and sync-log storage.
var controlRE = regexp.MustCompile(`[\r\n\t]+`)

// SanitizeText compresses arbitrary text into a short, single-line string
// safe for log rows: control characters collapse to spaces and the result
// is truncated to maxLen with an ellipsis.
func SanitizeText(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	cleaned := strings.TrimSpace(controlRE.ReplaceAllString(text, " "))
	runes := []rune(cleaned)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "…"
	}
	return cleaned
}

// ErrorSummary renders an error as "Type: message" with the message
// sanitized and capped, keeping sync-log rows human-readable instead of
// storing full stack traces. The type is the root cause's, so wrapper types
// never hide what actually failed; the message keeps the full wrap context.
func ErrorSummary(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	name := fmt.Sprintf("%T", root)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	msg := SanitizeText(err.Error(), maxLen)
	if msg == "" {
		return name
	}
	return name + ": " + msg
}
