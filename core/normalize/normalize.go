// Package normalize turns raw taxonomy text into stable identifier fragments.
//
// Normalization is language aware: accented languages are folded to ASCII,
// everything is lower-cased, punctuation collapses to a replacement character,
// and registered stopwords are dropped. The step order is fixed; changing it
// changes the identifiers of every entry in an existing taxonomy.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLanguage is used when no language code is given.
const DefaultLanguage = "default"

// DefaultReplacement is the character punctuation and separators collapse to.
const DefaultReplacement = '-'

// LowComma (U+201A) stands in for commas that are not list separators.
const LowComma = "‚"

// accentedLanguages are folded to ASCII before lower-casing.
var accentedLanguages = map[string]bool{
	"fr": true, "ca": true, "es": true, "it": true,
	"nl": true, "pt": true, "sk": true, "en": true,
}

// caseSensitiveLanguages keep their case. Currently none.
var caseSensitiveLanguages = map[string]bool{}

var (
	romanNumeralRe = regexp.MustCompile(`\(([ivx]+)\)`)
	entityRe       = regexp.MustCompile(`&\w+;`)
)

// symbols replaced by the replacement character before ASCII folding in accented languages.
const foldedSymbols = "¢£¤¥§©ª®°²³µ¶¹º¼½¾×‰€™"

// punctuation replaced by the replacement character for every language.
const punctuation = " \t\n\r\f\v!\"#$%&'()*+,/:;<=>?@[\\]^_`{|}~¡¢£¤¥¦§¨©ª«¬®¯°±²³´µ¶·¸¹º»¼½¾¿×ˆ˜–—‘’‚“”„†‡•…‰‹›€™"

// ligatures that do not decompose under NFD.
var ligatures = strings.NewReplacer(
	"œ", "oe", "Œ", "OE",
	"æ", "ae", "Æ", "AE",
	"ß", "ss", "ẞ", "SS",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH",
	"ð", "d", "Ð", "D",
	"ı", "i",
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Option configures Text.
type Option func(*options)

type options struct {
	replacement rune
	stopwords   Stopwords
}

// WithReplacement sets the replacement character (default '-').
func WithReplacement(r rune) Option {
	return func(o *options) { o.replacement = r }
}

// WithStopwords sets the stopword table consulted in the last step.
func WithStopwords(s Stopwords) Option {
	return func(o *options) { o.stopwords = s }
}

// Text normalizes text for the given language code.
func Text(text, lang string, opts ...Option) string {
	o := options{replacement: DefaultReplacement}
	for _, opt := range opts {
		opt(&o)
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	char := string(o.replacement)

	text = strings.ReplaceAll(text, "’", "'")
	text = romanNumeralRe.ReplaceAllString(text, "$1")
	text = norm.NFC.String(text)

	if accentedLanguages[lang] {
		text = replaceRunes(text, foldedSymbols, o.replacement)
		text = foldASCII(text)
	}

	if !caseSensitiveLanguages[lang] {
		text = strings.ToLower(text)
	}

	text = strings.Map(func(r rune) rune {
		if r <= 0x1F || r == '\u200B' {
			return o.replacement
		}
		return r
	}, text)
	text = entityRe.ReplaceAllString(text, char)
	text = replaceRunes(text, punctuation, o.replacement)

	text = collapse(text, o.replacement)

	if words, ok := o.stopwords[lang]; ok && len(words) > 0 {
		parts := strings.Split(text, char)
		kept := parts[:0]
		for _, p := range parts {
			if _, stop := words[p]; !stop {
				kept = append(kept, p)
			}
		}
		text = strings.Join(kept, char)
	}
	return text
}

// EntryID normalizes a raw "lc:name" reference into "lc:normalized-name".
// The language code is trimmed and its hyphens folded to underscores.
// ok is false when raw has no colon.
func EntryID(raw string, stopwords Stopwords) (string, bool) {
	lc, name, found := strings.Cut(raw, ":")
	if !found {
		return "", false
	}
	lc = LangKey(lc)
	return lc + ":" + Text(name, lc, WithStopwords(stopwords)), true
}

// LangKey is the map key form of a language code: trimmed, '-' folded to '_'.
func LangKey(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "-", "_")
}

func foldASCII(s string) string {
	s = ligatures.Replace(s)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

func replaceRunes(s, set string, with rune) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(set, r) {
			return with
		}
		return r
	}, s)
}

// collapse squeezes runs of c into one and trims c from both ends.
func collapse(s string, c rune) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := false
	for _, r := range s {
		if r == c {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), string(c))
}
