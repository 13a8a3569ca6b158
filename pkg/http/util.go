package http

import (
	"time"

	xutil "FxCast/pkg/util"
)

// ParseDateDefault parses YYYY-MM-DD or returns def when empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if s == "" {
		return def
	}
	t, err := xutil.ParseDate(s)
	if err != nil {
		return def
	}
	return t
}
