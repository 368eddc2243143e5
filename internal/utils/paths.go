package utils

import (
	"net/url"
	"strings"
)

// UserPath builds /users/{username} followed by suffix, escaping username as a single path segment.
func UserPath(username string, suffix ...string) string {
	return "/users/" + url.PathEscape(username) + strings.Join(suffix, "")
}

// UnescapeSegment decodes a percent-encoded path segment. Malformed input is returned unchanged.
func UnescapeSegment(segment string) string {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return segment
	}
	return decoded
}
