package errs

import (
	"fmt"
	"regexp"
	"strings"
)

// secretKeyMarkers are substrings that, when present (case-insensitively)
// in a metadata key, mark the value as secret-like.
var secretKeyMarkers = []string{
	"token", "secret", "password", "authorization", "bearer",
}

// apiKeyPattern matches the "*api*key*" glob from the redaction policy,
// tolerating any separator between "api" and "key" (api_key, apikey, api-key...).
var apiKeyPattern = regexp.MustCompile(`api.*key`)

// contentLikeKeys are keys whose values are replaced with a length-only
// marker rather than dropped outright, so log lines stay useful without
// leaking source text or user queries.
var contentLikeKeys = map[string]bool{
	"query":   true,
	"content": true,
}

// Redact returns a copy of metadata with secret-like and content-like
// values replaced per the redaction policy. A nil map returns nil.
func Redact(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch {
		case isSecretKey(k):
			out[k] = "[REDACTED]"
		case contentLikeKeys[strings.ToLower(k)]:
			out[k] = fmt.Sprintf("[REDACTED,len=%d]", len(v))
		default:
			out[k] = v
		}
	}
	return out
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return apiKeyPattern.MatchString(lower)
}
