package utils

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a unique id for tasks, sessions, and alerts.
func GenerateID() string {
	return uuid.New().String()
}

// GenerateIDWithPrefix generates a unique id with a type prefix, e.g.
// "task_20260731_<uuid>".
func GenerateIDWithPrefix(kind string) string {
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s_%s", kind, timestamp, uuid.New().String())
}

// FormatDuration formats a duration to a human-readable string for logs
// and dashboard output.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// Contains checks if a string slice contains a specific string.
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetStringOrDefault returns value if non-empty, otherwise defaultValue.
func GetStringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// FindRegexMatch finds the first match of a regex pattern in text.
func FindRegexMatch(text, pattern string) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re.FindStringSubmatch(text)
}

// IsDevelopment checks if the application is running in development mode.
func IsDevelopment() bool {
	env := os.Getenv("GO_ENV")
	return env == "development" || env == "dev" || env == ""
}
