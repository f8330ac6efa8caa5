package session

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

var avatarColors = []string{"4285f4", "34a853", "fbbc05", "ea4335", "9c27b0", "00bcd4"}

// AvatarURL builds a generated avatar from the initials of name.
func AvatarURL(name string) string {
	var initials strings.Builder
	for _, word := range strings.Split(name, " ") {
		if r, _ := utf8.DecodeRuneInString(word); r != utf8.RuneError {
			initials.WriteRune(unicode.ToUpper(r))
		}
	}
	color := avatarColors[utf8.RuneCountInString(name)%len(avatarColors)]

	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff&size=128",
		url.QueryEscape(initials.String()), color)
}
