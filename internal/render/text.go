package render

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxDescription is the embed description limit.
const MaxDescription = 4096

var (
	tagRe      = regexp.MustCompile(`<[^<]+?>`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)

	markdownEscaper = strings.NewReplacer(
		`\`, `\\`,
		`*`, `\*`,
		`_`, `\_`,
		"`", "\\`",
		`#`, `\#`,
		`-`, `\-`,
	)
)

// CleanDescription turns an AniList HTML description into escaped markdown no
// longer than MaxDescription runes.
func CleanDescription(s string) string {
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = newlinesRe.ReplaceAllString(s, "\n\n")
	return Truncate(EscapeMarkdown(s), MaxDescription)
}

// EscapeMarkdown backslash-escapes characters Discord treats as formatting.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Truncate cuts s to at most max runes, ending in "..." when shortened.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// Codewrap renders s as an inline code block.
func Codewrap(s string) string {
	return "```" + strings.ReplaceAll(s, "`", "\\`") + "```"
}

// Season maps a date onto the approximate broadcast season using fixed
// day-of-year boundaries. It returns "spring", "summer", "fall" or "winter".
func Season(t time.Time) string {
	switch d := t.YearDay(); {
	case d >= 80 && d <= 171:
		return "spring"
	case d >= 172 && d <= 263:
		return "summer"
	case d >= 264 && d <= 354:
		return "fall"
	default:
		return "winter"
	}
}
