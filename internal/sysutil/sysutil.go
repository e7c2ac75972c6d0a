// Package sysutil holds process-level helpers shared by config and the
// entrypoint: log-level selection and lenient env-string parsing.
package sysutil

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config string. The
// "warning" alias maps to warn; empty or unknown values fall back to info.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	if s != "" {
		if l, err := zerolog.ParseLevel(s); err == nil {
			zerolog.SetGlobalLevel(l)
			return
		}
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// IsTruthy reports whether an env-style string means true. On top of the
// strconv.ParseBool forms it accepts "yes", "y", and "on".
func IsTruthy(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	switch s {
	case "yes", "y", "on":
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// FirstNonEmpty returns the first value that is not empty after trimming
// whitespace, or "" when none qualifies.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
