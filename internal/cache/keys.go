package cache

import (
	"fmt"
	"strings"
	"time"
)

const prefix = "pricing"

// Key joins parts into a namespaced cache key.
func Key(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, prefix)
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// KeyActiveBundles is the key for the active bundle deal list.
func KeyActiveBundles() string {
	return Key("bundles", "active")
}

// KeyOrderGroups is the key for a cached order-group report. Zero times render as "-".
func KeyOrderGroups(status string, from, to time.Time) string {
	if status == "" {
		status = "all"
	}
	return Key("report", "order-groups", status, stamp(from), stamp(to))
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
