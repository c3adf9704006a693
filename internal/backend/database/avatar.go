package database

import (
	"net/url"
	"strings"
)

// DefaultAvatarURL returns the generated initials avatar used when a user has none
func DefaultAvatarURL(username string) string {
	// encodeURIComponent encodes spaces as %20, QueryEscape as '+'
	name := strings.ReplaceAll(url.QueryEscape(username), "+", "%20")
	return "https://ui-avatars.com/api/?name=" + name + "&background=3f51b5&color=fff&size=200"
}
