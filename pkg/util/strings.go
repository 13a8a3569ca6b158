package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault returns def when s, trimmed, is empty or not an integer.
func ParseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
