package mailbox

import (
	"html"
	"regexp"
	"strings"
)

var (
	breakTags     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphOpen = regexp.MustCompile(`(?i)<p[^>]*>`)
	paragraphEnd  = regexp.MustCompile(`(?i)</p>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// htmlToText is a lightweight conversion for email bodies: line breaks and
// paragraphs become newlines, remaining tags are stripped, entities decoded.
func htmlToText(raw string) string {
	text := breakTags.ReplaceAllString(raw, "\n")
	text = paragraphOpen.ReplaceAllString(text, "\n")
	text = paragraphEnd.ReplaceAllString(text, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
