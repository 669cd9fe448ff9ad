// Smart search-query parsing for the diary query endpoint.
//
// Supported syntax:
//   - plain keywords:  foo bar
//   - quoted phrases:  "foo bar"
//   - exclusions:      -foo or -"foo bar"
//
// Positive terms and exclusions are deduplicated case-insensitively and
// capped so user input cannot blow up the SQL condition list.
package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var wsRE = regexp.MustCompile(`\s+`)

// SmartQuery is the normalized form of a raw search string.
type SmartQuery struct {
	Terms    []string `json:"terms"`
	Phrases  []string `json:"phrases"`
	Excludes []string `json:"excludes"`
}

// Positive returns all must-match tokens (terms then phrases).
func (q SmartQuery) Positive() []string {
	out := make([]string, 0, len(q.Terms)+len(q.Phrases))
	out = append(out, q.Terms...)
	out = append(out, q.Phrases...)
	return out
}

// SplitSearchTerms tokenizes a plain (non-smart) query on whitespace,
// deduplicating while preserving order, capped at maxTerms.
func SplitSearchTerms(raw string, maxTerms int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range wsRE.Split(strings.TrimSpace(raw), -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if len(out) >= maxTerms {
			break
		}
	}
	return out
}

// ParseSmartQuery parses the smart search syntax (quoted phrases and
// exclusion tokens) into a SmartQuery.
func ParseSmartQuery(raw string, maxPositive, maxExcludes int) SmartQuery {
	var q SmartQuery
	s := []rune(strings.TrimSpace(raw))
	if len(s) == 0 {
		return q
	}

	posSeen := make(map[string]struct{})
	excSeen := make(map[string]struct{})
	i, n := 0, len(s)

	for i < n {
		for i < n && unicode.IsSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}

		neg := false
		if s[i] == '-' {
			neg = true
			i++
			for i < n && unicode.IsSpace(s[i]) {
				i++
			}
			if i >= n {
				break
			}
		}

		quoted := false
		var token string
		if s[i] == '"' {
			quoted = true
			i++
			start := i
			for i < n && s[i] != '"' {
				i++
			}
			token = strings.TrimSpace(string(s[start:i]))
			if i < n {
				i++ // closing quote
			}
		} else {
			start := i
			for i < n && !unicode.IsSpace(s[i]) {
				i++
			}
			token = strings.TrimSpace(string(s[start:i]))
		}

		if token == "" {
			continue
		}
		key := strings.ToLower(token)

		if neg {
			if len(q.Excludes) >= maxExcludes {
				continue
			}
			if _, ok := excSeen[key]; ok {
				continue
			}
			excSeen[key] = struct{}{}
			q.Excludes = append(q.Excludes, token)
			continue
		}

		if len(q.Terms)+len(q.Phrases) >= maxPositive {
			continue
		}
		if _, ok := posSeen[key]; ok {
			continue
		}
		posSeen[key] = struct{}{}
		if quoted {
			q.Phrases = append(q.Phrases, token)
		} else {
			q.Terms = append(q.Terms, token)
		}
	}
	return q
}

// CountNoWhitespace counts the runes of text excluding all whitespace; the
// word-count stat the dashboard shows.
func CountNoWhitespace(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

// BuildMatchSnippet builds a preview of at most previewLen runes centered
// near the earliest match of any term, with ellipses marking truncation.
// Without a match (or terms) it falls back to a plain prefix preview.
func BuildMatchSnippet(text string, previewLen int, matchTerms []string) string {
	if previewLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}

	lower := strings.ToLower(text)
	best := -1
	for _, t := range matchTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		idx := strings.Index(lower, t)
		if idx < 0 {
			continue
		}
		runeIdx := len([]rune(lower[:idx]))
		if best < 0 || runeIdx < best {
			best = runeIdx
		}
	}
	if best < 0 {
		return string(runes[:previewLen]) + "…"
	}

	// Leave ~25% of the preview as context before the hit.
	start := best - previewLen/4
	if start < 0 {
		start = 0
	}
	end := start + previewLen
	if end > len(runes) {
		end = len(runes)
	}
	prefix, suffix := "", ""
	if start > 0 {
		prefix = "…"
	}
	if end < len(runes) {
		suffix = "…"
	}
	return prefix + string(runes[start:end]) + suffix
}
