package parser

import (
	"reflect"
	"strings"
	"testing"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing whitespace", "en: Apple \t ", "en: Apple"},
		{"apostrophe", "fr: jus d’orange", "fr: jus d'orange"},
		{"decimal comma", "en: 1,5 kg, 2 kg", "en: 1‚5 kg, 2 kg"},
		{"escaped comma", `en: salt\, pepper`, `en: salt\‚ pepper`},
		{"roman numeral", "en: vitamin (IV), vitamin (ii)", "en: vitamin IV, vitamin ii"},
		{"other parentheses", "en: apple (fruit)", "en: apple (fruit)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRestoreCommas(t *testing.T) {
	for _, in := range []string{"1,5 kg", `salt\, pepper`, "plain"} {
		if got := RestoreCommas(Sanitize(in)); got != in {
			t.Errorf("RestoreCommas(Sanitize(%q)) = %q", in, got)
		}
	}
}

func TestLines(t *testing.T) {
	l := NewLines("test", strings.NewReader("skip\nen: A  \n\n# c’est\n"), 1)

	var got []Line
	for {
		line, ok := l.Next()
		if !ok {
			break
		}
		got = append(got, line)
	}
	want := []Line{
		{Number: 2, Raw: "en: A", Text: "en: A"},
		{Number: 3, Raw: "", Text: ""},
		{Number: 4, Raw: "# c’est", Text: "# c'est"},
		{Number: 5, Sentinel: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %+v, want %+v", got, want)
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v", l.Err())
	}
	if _, ok := l.Next(); ok {
		t.Error("drained Lines returned another line")
	}
}

func TestLinesInvalidUTF8(t *testing.T) {
	l := NewLines("bad.txt", strings.NewReader("ok\n\xff\xfe\n"), 0)
	if line, ok := l.Next(); !ok || line.Text != "ok" {
		t.Fatalf("first line = %+v, %v", line, ok)
	}
	if _, ok := l.Next(); ok {
		t.Fatal("expected the stream to stop on invalid UTF-8")
	}
	var decErr *taxerrors.DecodeError
	if !taxerrors.As(l.Err(), &decErr) || decErr.Line != 2 || decErr.Path != "bad.txt" {
		t.Errorf("Err() = %v", l.Err())
	}
}

func TestLinesLongLine(t *testing.T) {
	long := "en: " + strings.Repeat("a", 3<<20)
	l := NewLines("long.txt", strings.NewReader(long+"\nfr: b"), 0)
	first, ok := l.Next()
	if !ok || first.Raw != long || first.Number != 1 {
		t.Fatalf("first line = %d bytes, ok %v", len(first.Raw), ok)
	}
	second, ok := l.Next()
	if !ok || second.Raw != "fr: b" || second.Number != 2 {
		t.Errorf("second line = %+v, %v", second, ok)
	}
	if end, ok := l.Next(); !ok || !end.Sentinel {
		t.Errorf("expected sentinel, got %+v", end)
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v", l.Err())
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\n\nb\n", []string{"a", "", "b"}},
		{"a\n\n", []string{"a", ""}},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
