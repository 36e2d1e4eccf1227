package logger

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitivePatterns match credentials embedded in free-form values such as DSNs and broker URLs.
var sensitivePatterns = []*regexp.Regexp{
	// user:password@ in connection strings
	regexp.MustCompile(`(://[^/\s:@]+:)([^/\s@]+)(@)`),
	// key=value secrets in DSN query strings and messages
	regexp.MustCompile(`(?i)((?:password|passwd|token|secret|api[_-]?key)=)([^&;,\s]+)()`),
}

// sensitiveKeywords mark field keys whose string values are always redacted
var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "api_key", "apikey", "dsn"}

// RedactSensitiveData replaces credentials inside input with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range sensitivePatterns {
		input = pattern.ReplaceAllString(input, "${1}"+redacted+"${3}")
	}
	return input
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
