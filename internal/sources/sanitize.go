package sources

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlStripper = bluemonday.StrictPolicy()

const maxTitleLength = 200

// cleanTitle strips markup and entities from catalog titles before they are
// placed into Discord embeds.
func cleanTitle(s string) string {
	s = htmlStripper.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")

	if len([]rune(s)) > maxTitleLength {
		s = string([]rune(s)[:maxTitleLength-3]) + "..."
	}

	return s
}
