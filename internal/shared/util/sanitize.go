package util

import (
	"errors"
	"path"
	"strings"
)

const maxErrorLen = 500

// SanitizeError flattens an error to a single line capped for storage in a task row.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}

// CleanStorageKey normalizes an object key and rejects traversal.
func CleanStorageKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("empty storage key")
	}
	clean := path.Clean(strings.ReplaceAll(trimmed, "\\", "/"))
	clean = strings.TrimLeft(clean, "/")
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New("invalid storage key")
	}
	return clean, nil
}
