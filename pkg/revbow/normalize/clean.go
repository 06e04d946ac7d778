package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Markup selects how tags are stripped from review text.
type Markup string

const (
	// MarkupRegex removes anything between angle brackets on one line.
	MarkupRegex Markup = "regex"
	// MarkupHTML keeps only text nodes of a real HTML tokenization.
	MarkupHTML Markup = "html"
)

var (
	tagPattern = regexp.MustCompile(`<[^>\n]*>`)

	// Emoticons, pictographs, transport, flags, box drawing to misc symbols,
	// dingbats, and enclosed characters.
	emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2500}-\x{2BEF}\x{2702}-\x{27B0}\x{24C2}-\x{1F251}]+`)

	// Newlines survive so that a tag never spans two source lines, before or
	// after cleaning.
	nonASCIIPattern = regexp.MustCompile(`[^\n\x20-\x7F]+`)
)

// Cleaner strips markup, emoji and non-ASCII bytes from free text.
type Cleaner struct {
	markup Markup
}

// NewCleaner returns a cleaner using the given markup mode.
// Unknown modes fall back to MarkupRegex.
func NewCleaner(markup Markup) *Cleaner {
	if markup != MarkupHTML {
		markup = MarkupRegex
	}
	return &Cleaner{markup: markup}
}

// Clean applies tag removal, emoji removal, non-ASCII removal and trimming,
// in that order.
func (c *Cleaner) Clean(s string) string {
	if c.markup == MarkupHTML {
		s = stripHTML(s)
	} else {
		s = tagPattern.ReplaceAllString(s, "")
	}
	s = emojiPattern.ReplaceAllString(s, "")
	s = nonASCIIPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// stripHTML concatenates the text nodes of s, dropping script and style bodies.
func stripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

// IsASCII reports whether every byte of s is 7-bit ASCII.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
