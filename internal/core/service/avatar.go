package service

import (
	"net/url"
	"strings"
)

// DefaultAvatarBaseURL renders initials into a placeholder image.
const DefaultAvatarBaseURL = "https://ui-avatars.com/api/"

// AvatarURL returns the placeholder avatar for name. The result depends only on
// the first two characters of the trimmed name.
func AvatarURL(baseURL, name string) string {
	if baseURL == "" {
		baseURL = DefaultAvatarBaseURL
	}
	initials := []rune(strings.TrimSpace(name))
	if len(initials) > 2 {
		initials = initials[:2]
	}

	q := url.Values{}
	q.Set("name", strings.ToUpper(string(initials)))
	q.Set("background", "0D8ABC")
	q.Set("color", "fff")
	return baseURL + "?" + q.Encode()
}
