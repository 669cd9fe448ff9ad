// Package sysutil holds process-level helpers that do not belong to any
// domain package.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config string. The value
// is matched case-insensitively and "warning" is accepted as an alias for
// "warn". Unknown values fall back to info rather than failing startup.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}
