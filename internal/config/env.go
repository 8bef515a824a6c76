package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var osGetenv = os.Getenv

// getRequired returns the value of name, or ErrMissingEnv when the
// variable is missing or empty.
func getRequired(name string) (string, error) {
	val := osGetenv(name)
	if val == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, name)
	}
	return val, nil
}

// get returns the value of name, or fallback when missing or empty.
func get(name, fallback string) string {
	if val := osGetenv(name); val != "" {
		return val
	}
	return fallback
}

// getBool parses a truthy string: 1, true, t, yes, y, on (any case).
func getBool(name string, fallback bool) bool {
	val := osGetenv(name)
	if val == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// getInt parses an integer, allowing underscore digit separators.
func getInt(name string, fallback int) int {
	val := osGetenv(name)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.ReplaceAll(val, "_", ""))
	if err != nil {
		return fallback
	}
	return n
}

// getDuration parses "30s", "5m", "2h" or "1d"; a bare integer is taken
// as seconds.
func getDuration(name string, fallback time.Duration) time.Duration {
	val := strings.ToLower(strings.TrimSpace(osGetenv(name)))
	if val == "" {
		return fallback
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	// time.ParseDuration has no day unit.
	if days, ok := strings.CutSuffix(val, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return fallback
}

// getList splits a comma-separated value, trimming blanks.
func getList(name string) []string {
	val := osGetenv(name)
	if val == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
