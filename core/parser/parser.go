// Package parser compiles taxonomy source text into a taxonomy.Taxonomy.
//
// Parsing runs in three stages over one source: Lines sanitizes the raw
// lines, the harvester turns them into one node per block and the assembler
// derives ordering and child links. Problems with single lines or blocks are
// collected as diagnostics; only read and decode failures abort a parse.
package parser

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/taxonomist/core/cas"
	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
)

// Option configures a parse.
type Option func(*options)

type options struct {
	logger *slog.Logger
	ctx    context.Context
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithContext sets the context whose values are attached to the parse summary.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Parse reads and parses the taxonomy file at path.
func Parse(path string, opts ...Option) (*taxonomy.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, taxerrors.NewNotFound("taxonomy file", path)
		}
		return nil, taxerrors.NewIO("read", path, err)
	}
	return ParseBytes(path, data, opts...)
}

// ParseReader reads r to the end and parses it. name labels diagnostics.
func ParseReader(name string, r io.Reader, opts ...Option) (*taxonomy.Taxonomy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, taxerrors.NewIO("read", name, err)
	}
	return ParseBytes(name, data, opts...)
}

// ParseBytes parses a taxonomy held in memory.
func ParseBytes(name string, data []byte, opts ...Option) (*taxonomy.Taxonomy, error) {
	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	parseID := uuid.NewString()
	ctx := logging.WithParseID(o.ctx, parseID)
	if o.logger == nil {
		o.logger = logging.LoggerFromContext(ctx)
	}

	started := time.Now()
	s := newSession(name, o.logger)

	raw := SplitLines(string(data))
	for i, l := range raw {
		raw[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	header, start := s.header(raw)

	lines := NewLines(name, bytes.NewReader(data), start)
	tax := s.assemble(header, s.records(lines))
	if err := lines.Err(); err != nil {
		return nil, err
	}

	tax.SourceName = name
	tax.SourceKey = cas.Key(data)
	tax.ParseID = parseID
	tax.Source = string(data)

	logging.ParseSummary(ctx, name, len(tax.Entries), len(tax.Others),
		len(tax.Diagnostics.Warnings()), len(tax.Diagnostics.Errors()), time.Since(started))
	return tax, nil
}
