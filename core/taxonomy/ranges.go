package taxonomy

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
)

// LineRange is an inclusive range of 1-based source lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Len is the number of lines in the range.
func (r LineRange) Len() int {
	return r.End - r.Start + 1
}

func (r LineRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// rangesGrammar parses stored line ranges such as "3-7,9".
//
//nolint:govet // participle grammar tags are not standard struct tags
type rangesGrammar struct {
	Items []*rangeItem `parser:"@@ ( \",\" @@ )*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rangeItem struct {
	Start int  `parser:"@Int"`
	End   *int `parser:"( \"-\" @Int )?"`
}

var rangesLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[,\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var rangesParser = participle.MustBuild[rangesGrammar](
	participle.Lexer(rangesLexer),
	participle.Elide("Whitespace"),
)

// ParseLineRanges parses the stored form of a list of line ranges.
// An empty string yields no ranges.
func ParseLineRanges(s string) ([]LineRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parsed, err := rangesParser.ParseString("", s)
	if err != nil {
		return nil, taxerrors.Wrapf(err, "invalid line ranges %q", s)
	}
	out := make([]LineRange, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		r := LineRange{Start: it.Start, End: it.Start}
		if it.End != nil {
			r.End = *it.End
		}
		if r.Start < 1 || r.End < r.Start {
			return nil, taxerrors.NewParse("line ranges", s, "range "+r.String()+" is empty or starts before line 1")
		}
		out = append(out, r)
	}
	return out, nil
}

// FormatLineRanges is the inverse of ParseLineRanges.
func FormatLineRanges(ranges []LineRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
