package parser

import (
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/normalize"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

var (
	langPrefixRe   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z][a-zA-Z]?([-_][a-zA-Z][a-zA-Z][a-zA-Z]?)?:`)
	propertyNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

const (
	stopwordsPrefix = "stopwords:"
	synonymsPrefix  = "synonyms:"
)

// block is the record being harvested.
type block struct {
	node *taxonomy.Node
	// precedingAt holds the line number of each preceding line.
	precedingAt []int
	lastLine    int
	// err poisons the block: its remaining lines are ignored and it is
	// dropped at the next boundary.
	err     error
	errLine int
}

func newBlock() *block {
	return &block{node: &taxonomy.Node{}}
}

func (b *block) identified() bool {
	return b.node.ID != ""
}

func (b *block) hasContent() bool {
	return b.node.SrcPosition > 0
}

// session holds the state of one parse. A session is never shared: the
// stopword table fills up as stopwords lines are read and only affects the
// lines after them.
type session struct {
	name          string
	stopwords     normalize.Stopwords
	stopwordIndex int
	synonymIndex  int
	// prevType is the type of the last emitted block.
	prevType taxonomy.NodeType
	diags    taxonomy.Diagnostics
	logger   *slog.Logger
}

func newSession(name string, logger *slog.Logger) *session {
	return &session{
		name:      name,
		stopwords: normalize.Stopwords{},
		logger:    logger,
	}
}

// harvestHeader collects the leading run of blank and comment lines. Trailing
// comments are handed back to the first block, and the blank line before them
// is consumed as the separator. start is the number of lines consumed.
func harvestHeader(lines []string) (header []string, start int) {
	for _, l := range lines {
		if l != "" && !strings.HasPrefix(l, "#") {
			break
		}
		header = append(header, l)
	}
	start = len(header)
	for len(header) > 0 {
		last := header[len(header)-1]
		header = header[:len(header)-1]
		if last == "" {
			break
		}
		start--
	}
	return header, start
}

func (s *session) header(lines []string) (*taxonomy.Node, int) {
	text, start := harvestHeader(lines)
	n := taxonomy.NewNode(taxonomy.HeaderID, taxonomy.TypeText)
	n.PrecedingLines = text
	if len(text) > 0 {
		n.SrcPosition = 1
		n.SrcLines = []taxonomy.LineRange{{Start: 1, End: len(text)}}
	}
	s.prevType = taxonomy.TypeText
	return n, start
}

func isBoundary(text string) bool {
	return text == "" || strings.HasPrefix(text, "stopwords") || strings.HasPrefix(text, "synonyms")
}

func isLanguageLine(text string) bool {
	loc := langPrefixRe.FindStringIndex(text)
	return loc != nil && !langPrefixRe.MatchString(text[loc[1]:])
}

// records harvests blocks from lines, one node per closed block, and ends
// with the footer. Iteration stops early if lines fail; check lines.Err.
func (s *session) records(lines *Lines) iter.Seq[*taxonomy.Node] {
	return func(yield func(*taxonomy.Node) bool) {
		cur := newBlock()
		for {
			line, ok := lines.Next()
			if !ok {
				return
			}
			if isBoundary(line.Text) {
				switch {
				case cur.identified():
					if n := s.close(cur); n != nil && !yield(n) {
						return
					}
					cur = newBlock()
				case cur.hasContent():
					s.discard(cur)
					cur = newBlock()
				}
			}
			if line.Sentinel {
				yield(s.footer(cur, line.Number-1))
				return
			}
			s.consume(cur, line)
		}
	}
}

func (s *session) consume(b *block, line Line) {
	if b.err != nil {
		return
	}
	text := line.Text
	if text == "" || strings.HasPrefix(text, "#") {
		b.node.PrecedingLines = append(b.node.PrecedingLines, line.Raw)
		b.precedingAt = append(b.precedingAt, line.Number)
		return
	}
	if b.identified() && b.node.Type.IsOneLiner() {
		s.poison(b, line)
		return
	}
	switch {
	case strings.HasPrefix(text, stopwordsPrefix):
		s.oneLiner(b, line, taxonomy.TypeStopwords)
	case strings.HasPrefix(text, synonymsPrefix):
		s.oneLiner(b, line, taxonomy.TypeSynonyms)
	case strings.HasPrefix(text, "<"):
		s.parent(b, line)
	case isLanguageLine(text):
		s.tags(b, line)
	default:
		s.property(b, line)
	}
}

func (s *session) mark(b *block, line Line) {
	if b.node.SrcPosition == 0 {
		b.node.SrcPosition = line.Number
	}
	b.lastLine = line.Number
}

func (s *session) oneLiner(b *block, line Line, t taxonomy.NodeType) {
	rest := strings.TrimPrefix(line.Text, t.Prefix()+":")
	code, csv, found := strings.Cut(rest, ":")
	code = strings.TrimSpace(code)
	if !found || code == "" {
		s.fail(line.Number, "", &taxerrors.MissingLanguageCodeError{Line: line.Number, Text: line.Raw})
		return
	}
	lang := normalize.LangKey(code)
	tokens := splitList(csv)

	var normalized []string
	var id string
	if t == taxonomy.TypeStopwords {
		normalized = normalizeTokens(tokens, lang, nil)
		s.stopwords.Add(lang, normalized...)
		id = fmt.Sprintf("stopwords:%d", s.stopwordIndex)
		s.stopwordIndex++
	} else {
		normalized = normalizeTokens(tokens, lang, s.stopwords)
		id = fmt.Sprintf("synonyms:%d", s.synonymIndex)
		s.synonymIndex++
	}

	s.mark(b, line)
	b.node.ID = id
	b.node.Type = t
	b.node.SetTags(lang, code, restoreAll(tokens), normalized)
}

func (s *session) parent(b *block, line Line) {
	ref, ok := normalize.EntryID(line.Text[1:], s.stopwords)
	if !ok {
		s.fail(line.Number, b.node.ID, &taxerrors.MissingLanguageCodeError{Line: line.Number, Text: line.Raw})
		return
	}
	s.mark(b, line)
	b.node.ParentTags = append(b.node.ParentTags, ref)
}

func (s *session) tags(b *block, line Line) {
	code, csv, _ := strings.Cut(line.Text, ":")
	lang := normalize.LangKey(code)
	if b.identified() && b.node.TagsFor(lang) != nil {
		s.poison(b, line)
		return
	}
	tokens := splitList(csv)
	normalized := normalizeTokens(tokens, lang, s.stopwords)
	if len(normalized) == 0 {
		s.fail(line.Number, b.node.ID, &taxerrors.MalformedPropertyError{Line: line.Number, Text: line.Raw})
		return
	}

	s.mark(b, line)
	if !b.identified() {
		b.node.ID = lang + ":" + normalized[0]
		b.node.Type = taxonomy.TypeEntry
		b.node.MainLanguage = lang
	}
	b.node.SetTags(lang, strings.TrimSpace(code), restoreAll(tokens), normalized)
}

func (s *session) property(b *block, line Line) {
	name, rest, ok := strings.Cut(line.Text, ":")
	lc, value, ok2 := strings.Cut(rest, ":")
	if !ok || !ok2 || !propertyNameRe.MatchString(name) || !propertyNameRe.MatchString(lc) ||
		langPrefixRe.MatchString(value) {
		s.fail(line.Number, b.node.ID, &taxerrors.MalformedPropertyError{Line: line.Number, Text: line.Raw})
		return
	}
	// name and lc survive sanitizing unchanged, so the raw value starts at
	// the same two colons
	_, rawRest, _ := strings.Cut(line.Raw, ":")
	_, rawValue, _ := strings.Cut(rawRest, ":")

	s.mark(b, line)
	b.node.SetProperty(name, lc, strings.TrimSpace(rawValue))
}

// poison marks a block that swallowed the start of the next entry.
func (s *session) poison(b *block, line Line) {
	b.err = &taxerrors.DuplicateIDError{Line: line.Number, ID: b.node.ID}
	b.errLine = line.Number
}

// discard drops a block that has content but never got an id.
func (s *session) discard(b *block) {
	s.fail(b.node.SrcPosition, "", &taxerrors.MissingLanguageCodeError{
		Line: b.node.SrcPosition,
		Text: "block has no language tag line",
	})
}

// close finishes a block and returns its node, or nil when it is dropped.
func (s *session) close(b *block) *taxonomy.Node {
	if b.err != nil {
		s.fail(b.errLine, b.node.ID, b.err)
		return nil
	}
	n := b.node
	s.elide(b, n.Type)

	start := n.SrcPosition
	if len(b.precedingAt) > 0 && b.precedingAt[0] < start {
		start = b.precedingAt[0]
	}
	n.SrcLines = []taxonomy.LineRange{{Start: start, End: b.lastLine}}
	s.prevType = n.Type
	return n
}

// elide drops the leading blank separator of a block. The blank is kept
// between two one-liners of the same kind, since those are rendered without
// a separator.
func (s *session) elide(b *block, t taxonomy.NodeType) {
	lines := b.node.PrecedingLines
	if len(lines) == 0 || lines[0] != "" {
		return
	}
	if t.IsOneLiner() && t == s.prevType {
		return
	}
	b.node.PrecedingLines = lines[1:]
	b.precedingAt = b.precedingAt[1:]
}

func (s *session) footer(b *block, lineCount int) *taxonomy.Node {
	if b.hasContent() {
		s.discard(b)
		b = newBlock()
	}
	s.elide(b, taxonomy.TypeText)
	n := taxonomy.NewNode(taxonomy.FooterID, taxonomy.TypeText)
	if len(b.node.PrecedingLines) > 0 {
		n.PrecedingLines = b.node.PrecedingLines
		n.SrcLines = []taxonomy.LineRange{{Start: b.precedingAt[0], End: lineCount}}
	}
	n.SrcPosition = lineCount - len(n.PrecedingLines) + 1
	return n
}

func (s *session) fail(line int, nodeID string, err error) {
	s.diags.AddError(line, nodeID, err)
	s.logger.Error("taxonomy parse error", "source", s.name, "line", line, "node", nodeID, "error", err)
}

// splitList splits a comma separated list, trimming tokens and dropping
// empty ones.
func splitList(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func restoreAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = RestoreCommas(t)
	}
	return out
}

// normalizeTokens normalizes tokens and removes duplicates and empty results,
// keeping the first occurrence.
func normalizeTokens(tokens []string, lang string, stopwords normalize.Stopwords) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		n := normalize.Text(tok, lang, normalize.WithStopwords(stopwords))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
