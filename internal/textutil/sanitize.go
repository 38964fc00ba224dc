package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// Slug folds accents and reduces a title to a lowercase dash-separated token
// suitable for output filenames. Returns "untitled" when nothing survives.
func Slug(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// TitleCase capitalizes each word of value.
func TitleCase(value string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(value))
}

var (
	markupPattern   = regexp.MustCompile(`<[^>]*>`)
	bracketPattern  = regexp.MustCompile(`\[.*?\]`)
	spacePattern    = regexp.MustCompile(`\s+`)
	speakerTagRegex = regexp.MustCompile(`\[(\w+)\]`)
)

// SanitizeCaption strips inline markup and bracketed annotations (speaker
// tags, stage directions) and collapses whitespace. Aligners receive only the
// spoken words.
func SanitizeCaption(text string) string {
	text = markupPattern.ReplaceAllString(text, "")
	text = bracketPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// BracketTag returns the first `[Name]` token in text, without brackets.
func BracketTag(text string) (string, bool) {
	m := speakerTagRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// WordCount returns the number of whitespace-separated tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
