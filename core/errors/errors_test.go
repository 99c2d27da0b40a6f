package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "node", ID: "en:apples"},
			wantMsg:  "node not found: en:apples",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "project"},
			wantMsg:  "project not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "original text", ID: "abc", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestValidationError(t *testing.T) {
	err := NewValidation("log.level", "must be one of debug, info, warn, error")
	if got := err.Error(); got != "validation failed for log.level: must be one of debug, info, warn, error" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}

	noField := &ValidationError{Message: "invalid format"}
	if got := noField.Error(); got != "validation failed: invalid format" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIOError(t *testing.T) {
	base := fmt.Errorf("permission denied")
	err := NewIO("open", "/tmp/x.txt", base)
	if got := err.Error(); got != "failed to open /tmp/x.txt: permission denied" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("IOError should unwrap to its underlying error")
	}

	noPath := &IOError{Operation: "read", Err: base}
	if got := noPath.Error(); got != "failed to read: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("line ranges", "", "unexpected token")
	if got := err.Error(); got != "failed to parse line ranges: unexpected token" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}

	withPath := &ParseError{Format: "taxonomy", Path: "a.txt", Message: "bad"}
	if got := withPath.Error(); got != "failed to parse taxonomy at a.txt: bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTaxonomyErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantBase error
	}{
		{
			name:     "duplicate id with line",
			err:      &DuplicateIDError{Line: 12},
			wantMsg:  "duplicate id at line 12, missing blank line between entries?",
			wantBase: ErrDuplicateID,
		},
		{
			name:     "duplicate id with id",
			err:      &DuplicateIDError{ID: "en:apples"},
			wantMsg:  "duplicate id en:apples",
			wantBase: ErrDuplicateID,
		},
		{
			name:     "duplicate id with both",
			err:      &DuplicateIDError{ID: "en:apples", Line: 3},
			wantMsg:  "duplicate id en:apples at line 3",
			wantBase: ErrDuplicateID,
		},
		{
			name:     "malformed property",
			err:      &MalformedPropertyError{Line: 4, Text: "na:me:fr: value"},
			wantMsg:  `reading error at line 4, unexpected format: "na:me:fr: value"`,
			wantBase: ErrMalformedProperty,
		},
		{
			name:     "missing language code",
			err:      &MissingLanguageCodeError{Line: 2, Text: "stopwords: a, b"},
			wantMsg:  `missing language code at line 2: "stopwords: a, b"`,
			wantBase: ErrMissingLanguageCode,
		},
		{
			name:     "dangling parent",
			err:      &DanglingParentError{ParentID: "en:fruits", ChildID: "en:apples"},
			wantMsg:  "parent en:fruits of en:apples not found",
			wantBase: ErrDanglingParent,
		},
		{
			name:     "link count mismatch",
			err:      &LinkCountMismatchError{Kind: "child", Expected: 3, Actual: 2},
			wantMsg:  "created 2 child links, expected 3",
			wantBase: ErrLinkCountMismatch,
		},
		{
			name:     "broken chain",
			err:      &BrokenChainError{NodeID: "en:a", Reason: "cycle"},
			wantMsg:  "ordering chain broken at en:a: cycle",
			wantBase: ErrBrokenChain,
		},
		{
			name:     "decode",
			err:      &DecodeError{Path: "x.txt", Line: 9},
			wantMsg:  "invalid UTF-8 in x.txt at line 9",
			wantBase: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantBase) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.wantBase)
			}
		})
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("render mode", "only canonical and patch")
	if got := err.Error(); got != "unsupported render mode: only canonical and patch" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
	if got := (&UnsupportedError{Feature: "xml"}).Error(); got != "unsupported xml" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	base := ErrNotFound
	err := Wrap(base, "loading node")
	if got := err.Error(); got != "loading node: not found" {
		t.Errorf("Wrap() = %q", got)
	}
	if !Is(err, ErrNotFound) {
		t.Error("wrapped error should match sentinel")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	err := Wrapf(ErrInternal, "link %d of %d", 2, 5)
	if got := err.Error(); got != "link 2 of 5: internal error" {
		t.Errorf("Wrapf() = %q", got)
	}
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("harvest: %w", &DuplicateIDError{Line: 7})
	var dup *DuplicateIDError
	if !As(err, &dup) {
		t.Fatal("As should find DuplicateIDError")
	}
	if dup.Line != 7 {
		t.Errorf("Line = %d, want 7", dup.Line)
	}
}
