package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/normalize"
)

var (
	digitCommaRe   = regexp.MustCompile(`(\d),(\d)`)
	digitLowRe     = regexp.MustCompile(`(\d)` + normalize.LowComma + `(\d)`)
	romanNumeralRe = regexp.MustCompile(`(?i)\(([ivx]+)\)`)
)

// Line is one sanitized source line.
type Line struct {
	// Number is the 1-based line number in the source.
	Number int
	// Raw is the line with trailing whitespace removed and nothing else changed.
	Raw string
	// Text is the sanitized line the harvester classifies and splits.
	Text string
	// Sentinel marks the empty line yielded once after the last real line.
	Sentinel bool
}

// Lines streams sanitized lines from a reader. It yields every line from the
// start offset, then a single sentinel. A Lines value cannot be restarted:
// once drained, Next keeps returning false and a fresh one must be created
// to scan again.
type Lines struct {
	name   string
	reader *bufio.Reader
	number int
	start  int
	done   bool
	err    error
}

// NewLines returns a line stream over r that skips the first start lines.
// name is only used in errors. Lines have no length limit.
func NewLines(name string, r io.Reader, start int) *Lines {
	return &Lines{name: name, reader: bufio.NewReader(r), start: start}
}

// Next returns the next line. ok is false once the sentinel has been
// returned or an error stopped the stream; check Err afterwards.
func (l *Lines) Next() (Line, bool) {
	if l.done {
		return Line{}, false
	}
	for {
		raw, err := l.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			l.done = true
			l.err = taxerrors.NewIO("read", l.name, err)
			return Line{}, false
		}
		if raw == "" && err == io.EOF {
			break
		}
		l.number++
		raw = strings.TrimSuffix(raw, "\n")
		if !utf8.ValidString(raw) {
			l.done = true
			l.err = &taxerrors.DecodeError{Path: l.name, Line: l.number}
			return Line{}, false
		}
		if l.number <= l.start {
			continue
		}
		raw = strings.TrimRightFunc(raw, unicode.IsSpace)
		return Line{Number: l.number, Raw: raw, Text: Sanitize(raw)}, true
	}
	l.done = true
	return Line{Number: l.number + 1, Sentinel: true}, true
}

// Err returns the error that stopped the stream, if any.
func (l *Lines) Err() error {
	return l.err
}

// Sanitize applies the line-level substitutions that must happen before any
// comma splitting: typographic apostrophes, decimal commas, escaped commas
// and parenthesized roman numerals.
func Sanitize(line string) string {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	line = strings.ReplaceAll(line, "’", "'")
	line = digitCommaRe.ReplaceAllString(line, "${1}"+normalize.LowComma+"${2}")
	line = strings.ReplaceAll(line, `\,`, `\`+normalize.LowComma)
	line = romanNumeralRe.ReplaceAllString(line, "$1")
	return line
}

// RestoreCommas reverts the comma substitutions of Sanitize on a value.
func RestoreCommas(s string) string {
	s = strings.ReplaceAll(s, `\`+normalize.LowComma, `\,`)
	return digitLowRe.ReplaceAllString(s, "${1},${2}")
}

// SplitLines splits text into lines the way Lines does, without sanitizing.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
