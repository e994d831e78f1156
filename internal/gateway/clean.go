package gateway

import (
	"regexp"
	"strings"

	"github.com/alexivanou/roamai/internal/model"
)

// DefaultLinkTitle is used for citations that come without a title
const DefaultLinkTitle = "Info"

var (
	emphasisMarkers = strings.NewReplacer("**", "")
	markdownLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// CleanText strips emphasis markers and turns markdown links into their text
func CleanText(text string) string {
	text = emphasisMarkers.Replace(text)
	text = markdownLink.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// DedupLinks drops citations without a URL and repeated URLs; the first title wins
func DedupLinks(links []model.Link) []model.Link {
	seen := make(map[string]bool, len(links))
	var out []model.Link
	for _, l := range links {
		if l.URL == "" || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		if strings.TrimSpace(l.Title) == "" {
			l.Title = DefaultLinkTitle
		}
		out = append(out, l)
	}
	return out
}
