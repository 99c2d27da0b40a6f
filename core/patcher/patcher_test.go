package patcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/parser"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/core/unparser"
)

func sampleText(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "parser", "testdata", "sample.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return string(data)
}

func load(t *testing.T, src string) graph.Store {
	t.Helper()
	tax, err := parser.ParseReader("test.txt", strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	store := graph.NewMemoryStore()
	if _, err := graph.Load(context.Background(), store, tax, "test"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store
}

func update(t *testing.T, store graph.Store, fn func(tx graph.Tx) error) {
	t.Helper()
	if err := store.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func patch(t *testing.T, store graph.Store) *Result {
	t.Helper()
	res, err := RenderStore(context.Background(), store)
	if err != nil {
		t.Fatalf("RenderStore() error = %v", err)
	}
	return res
}

func entry(id, raw string) *taxonomy.Node {
	lang, norm, _ := strings.Cut(id, ":")
	n := taxonomy.NewNode(id, taxonomy.TypeEntry)
	n.MainLanguage = lang
	n.SetTags(lang, lang, []string{raw}, []string{norm})
	return n
}

// lines returns the 1-based lines from..to of s, newline terminated.
func lines(s string, from, to int) string {
	all := strings.SplitAfter(s, "\n")
	return strings.Join(all[from-1:to], "")
}

func TestRenderUnchangedIsIdentity(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"sample", sampleText(t)},
		{"no trailing newline", "en: A\n\nen: B"},
		{"carriage returns", "# h\r\n\r\nen: A\r\n"},
		{"trailing blanks", "en: A\n\n\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := patch(t, load(t, tt.src))
			if res.Text != tt.src {
				t.Errorf("Render() = %q, want %q", res.Text, tt.src)
			}
			if len(res.Edits) != 0 {
				t.Errorf("Edits = %v, want none", res.Edits)
			}
			if d, err := res.UnifiedDiff("a", "b"); err != nil || d != "" {
				t.Errorf("UnifiedDiff() = %q, %v", d, err)
			}
		})
	}
}

func TestRenderUntouchedModifiedIsIdentity(t *testing.T) {
	src := sampleText(t)
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		n, err := tx.Node("en:pink-lady")
		if err != nil {
			return err
		}
		return graph.MarkModified(tx, n)
	})
	// Parent lines are rewritten to the parents' current names.
	want := strings.Replace(src, "< fr: pommes\n", "< en:Apples\n", 1)
	res := patch(t, store)
	if res.Text != want {
		t.Errorf("Render() =\n%s\nwant\n%s", res.Text, want)
	}
	if len(res.Edits) != 1 || res.Edits[0].Line != 22 {
		t.Errorf("Edits = %+v", res.Edits)
	}
}

func TestRenderAppendsOrphanAtEOF(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sample", sampleText(t), sampleText(t) + "\nen: Potatoes\n"},
		{"ends with blank", "en: A\n\n", "en: A\n\nen: Potatoes\n"},
		{"no trailing newline", "en: A", "en: A\n\nen: Potatoes\n"},
		{"empty", "", "en: Potatoes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := load(t, tt.src)
			update(t, store, func(tx graph.Tx) error {
				return graph.AddEntry(tx, entry("en:potatoes", "Potatoes"), nil)
			})
			if got := patch(t, store).Text; got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderModifiedInPlace(t *testing.T) {
	src := sampleText(t)
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		n, err := tx.Node("en:apples")
		if err != nil {
			return err
		}
		n.SetTags("en", "en", []string{"Apples"}, []string{"apples"})
		return graph.MarkModified(tx, n)
	})

	want := lines(src, 1, 15) +
		"< en:Fruits\nen: Apples\nfr: Pommes\ncarbon_footprint_fr_foodges_value:fr: 0,5\ncolor:en: red\n" +
		lines(src, 21, 27)
	res := patch(t, store)
	if res.Text != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", res.Text, want)
	}
	if len(res.Edits) != 1 {
		t.Fatalf("Edits = %+v", res.Edits)
	}
	if e := res.Edits[0]; e.Line != 16 || len(e.Removed) != 5 || len(e.Added) != 5 {
		t.Errorf("edit = %+v", e)
	}

	text, err := res.UnifiedDiff("a/sample.txt", "b/sample.txt")
	if err != nil {
		t.Fatalf("UnifiedDiff() error = %v", err)
	}
	fd, err := diff.ParseFileDiff([]byte(text))
	if err != nil {
		t.Fatalf("ParseFileDiff() error = %v\n%s", err, text)
	}
	if len(fd.Hunks) != 1 {
		t.Fatalf("hunks = %d, want 1", len(fd.Hunks))
	}
	h := fd.Hunks[0]
	if h.OrigStartLine != 13 || h.OrigLines != 11 || h.NewStartLine != 13 || h.NewLines != 11 {
		t.Errorf("hunk = -%d,%d +%d,%d", h.OrigStartLine, h.OrigLines, h.NewStartLine, h.NewLines)
	}
	for _, want := range []string{"-en: Apples, apple\n", "+en: Apples\n", "-< en:fruits\n", "+< en:Fruits\n"} {
		if !strings.Contains(string(h.Body), want) {
			t.Errorf("hunk body missing %q:\n%s", want, h.Body)
		}
	}
}

func TestRenderRemoved(t *testing.T) {
	src := sampleText(t)
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		return graph.RemoveNode(tx, "en:pink-lady")
	})
	want := lines(src, 1, 21) + lines(src, 26, 27)
	if got := patch(t, store).Text; got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderRemovedLastBlock(t *testing.T) {
	store := load(t, "en: A\n\nen: B\n")
	update(t, store, func(tx graph.Tx) error {
		return graph.RemoveNode(tx, "en:b")
	})
	if got, want := patch(t, store).Text, "en: A\n"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderRemovedWithComments(t *testing.T) {
	src := sampleText(t)
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		return graph.RemoveNode(tx, "en:fruits")
	})
	// The children lose their parent line to the removed entry.
	want := lines(src, 1, 10) +
		"en: Apples, apple\nfr: Pommes\ncarbon_footprint_fr_foodges_value:fr: 0,5\ncolor:en: red\n" +
		lines(src, 21, 21) +
		"< en:Apples\nen: Pink lady\n" +
		lines(src, 25, 27)
	if got := patch(t, store).Text; got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderRemovedOneLiner(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		remove string
		want   string
	}{
		{"second of adjacent stopwords", "stopwords:en: a\nstopwords:en: b\n\nen: X\n", "stopwords:1", "stopwords:en: a\n\nen: X\n"},
		{"second of separated synonyms", "synonyms:en: a, b\n\nsynonyms:en: c, d\n\nen: X\n", "synonyms:1", "synonyms:en: a, b\n\nen: X\n"},
		{"first of run after entry", "en: X\n\nstopwords:en: a\n\nstopwords:en: b\n", "stopwords:0", "en: X\n\nstopwords:en: b\n"},
		{"first of run at start", "synonyms:en: a, b\n\nsynonyms:en: c, d\n\nen: X\n", "synonyms:0", "synonyms:en: c, d\n\nen: X\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := load(t, tt.src)
			update(t, store, func(tx graph.Tx) error {
				return graph.RemoveNode(tx, tt.remove)
			})
			res := patch(t, store)
			if res.Text != tt.want {
				t.Errorf("Render() = %q, want %q", res.Text, tt.want)
			}
			tax, err := parser.ParseReader("patched.txt", strings.NewReader(res.Text))
			if err != nil || tax.Diagnostics.HasErrors() {
				t.Errorf("reparse: %v, %v", err, tax.Diagnostics.Errors())
			}
		})
	}
}

func TestRenderSeparatorsMatchCanonical(t *testing.T) {
	remove := func(ids ...string) func(graph.Tx) error {
		return func(tx graph.Tx) error {
			for _, id := range ids {
				if err := graph.RemoveNode(tx, id); err != nil {
					return err
				}
			}
			return nil
		}
	}
	retag := func(id, word string) func(graph.Tx) error {
		return func(tx graph.Tx) error {
			n, err := tx.Node(id)
			if err != nil {
				return err
			}
			n.SetTags("en", "en", []string{word}, []string{word})
			return graph.MarkModified(tx, n)
		}
	}
	add := func(id, raw, parent string) func(graph.Tx) error {
		return func(tx graph.Tx) error {
			return graph.AddEntry(tx, entry(id, raw), []string{parent})
		}
	}
	all := func(fns ...func(graph.Tx) error) func(graph.Tx) error {
		return func(tx graph.Tx) error {
			for _, fn := range fns {
				if err := fn(tx); err != nil {
					return err
				}
			}
			return nil
		}
	}

	tests := []struct {
		name string
		src  string
		edit func(graph.Tx) error
		want string
	}{
		{
			name: "remove second of adjacent one-liners",
			src:  "stopwords:en: a\nstopwords:en: b\n\nen: X\n",
			edit: remove("stopwords:1"),
			want: "stopwords:en: a\n\nen: X\n",
		},
		{
			name: "remove second of separated one-liners",
			src:  "synonyms:en: a, b\n\nsynonyms:en: c, d\n\nen: X\n",
			edit: remove("synonyms:1"),
			want: "synonyms:en: a, b\n\nen: X\n",
		},
		{
			name: "remove first of run after entry",
			src:  "en: X\n\nstopwords:en: a\n\nstopwords:en: b\n",
			edit: remove("stopwords:0"),
			want: "en: X\n\nstopwords:en: b\n",
		},
		{
			name: "remove first of run at start",
			src:  "synonyms:en: a, b\n\nsynonyms:en: c, d\n\nen: X\n",
			edit: remove("synonyms:0"),
			want: "synonyms:en: c, d\n\nen: X\n",
		},
		{
			name: "remove middle of run",
			src:  "stopwords:en: a\n\nstopwords:en: b\n\nstopwords:en: c\n",
			edit: remove("stopwords:1"),
			want: "stopwords:en: a\n\nstopwords:en: c\n",
		},
		{
			name: "remove whole run",
			src:  "en: A\n\nstopwords:en: a\nstopwords:en: b\n\nen: B\n",
			edit: remove("stopwords:0", "stopwords:1"),
			want: "en: A\n\nen: B\n",
		},
		{
			name: "remove entry between kinds",
			src:  "stopwords:en: a\n\nen: X\n\nsynonyms:en: b, c\n",
			edit: remove("en:x"),
			want: "stopwords:en: a\n\nsynonyms:en: b, c\n",
		},
		{
			name: "remove entry between same kind",
			src:  "stopwords:en: a\n\nen: X\n\nstopwords:en: b\n",
			edit: remove("en:x"),
			want: "stopwords:en: a\nstopwords:en: b\n",
		},
		{
			name: "modify second of run",
			src:  "stopwords:en: a\n\nstopwords:en: b\n",
			edit: retag("stopwords:1", "z"),
			want: "stopwords:en: a\n\nstopwords:en: z\n",
		},
		{
			name: "remove first and modify second",
			src:  "en: X\n\nstopwords:en: a\n\nstopwords:en: b\n",
			edit: all(remove("stopwords:0"), retag("stopwords:1", "z")),
			want: "en: X\n\nstopwords:en: z\n",
		},
		{
			name: "create after last entry",
			src:  "stopwords:en: a\n\nen: X\n",
			edit: add("en:y", "Y", "en:x"),
			want: "stopwords:en: a\n\nen: X\n\n< en:X\nen: Y\n",
		},
		{
			name: "remove and create",
			src:  "stopwords:en: a\nstopwords:en: b\n\nen: X\n",
			edit: all(remove("stopwords:1"), add("en:y", "Y", "en:x")),
			want: "stopwords:en: a\n\nen: X\n\n< en:X\nen: Y\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := load(t, tt.src)
			update(t, store, tt.edit)

			got := patch(t, store).Text
			if got != tt.want {
				t.Errorf("patch = %q, want %q", got, tt.want)
			}
			canonical, err := unparser.RenderStore(context.Background(), store)
			if err != nil {
				t.Fatalf("unparser.RenderStore() error = %v", err)
			}
			if canonical.Text != got {
				t.Errorf("canonical = %q, patch = %q", canonical.Text, got)
			}
			tax, err := parser.ParseReader("patched.txt", strings.NewReader(got))
			if err != nil {
				t.Fatalf("ParseReader() error = %v", err)
			}
			if tax.Diagnostics.HasErrors() {
				t.Errorf("reparse errors = %v", tax.Diagnostics.Errors())
			}
		})
	}
}

func TestRenderCreatedAfterParent(t *testing.T) {
	src := sampleText(t)
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		return graph.AddEntry(tx, entry("en:green-apples", "Green apples"), []string{"en:apples"})
	})
	want := lines(src, 1, 20) + "\n< en:Apples\nen: Green apples\n" + lines(src, 21, 27)
	res := patch(t, store)
	if res.Text != want {
		t.Errorf("Render() =\n%s\nwant\n%s", res.Text, want)
	}
	if len(res.Edits) != 1 || res.Edits[0].Line != 21 || len(res.Edits[0].Removed) != 0 {
		t.Errorf("Edits = %+v", res.Edits)
	}
}

func TestRenderCreatedChain(t *testing.T) {
	src := sampleText(t)
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		if err := graph.AddEntry(tx, entry("en:berries", "Berries"), []string{"en:fruits"}); err != nil {
			return err
		}
		return graph.AddEntry(tx, entry("en:strawberries", "Strawberries"), []string{"en:berries"})
	})

	var changed []graph.NodeWithParents
	err := store.View(context.Background(), func(r graph.Reader) error {
		var err error
		changed, err = r.NodesWithParents(graph.Changed)
		return err
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	// The child comes first so placing it has to wait for its parent.
	changed[0], changed[1] = changed[1], changed[0]

	res, err := Render(src, changed)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := lines(src, 1, 14) +
		"\n< en:Fruits\nen: Berries\n\n< en:Berries\nen: Strawberries\n" +
		lines(src, 15, 27)
	if res.Text != want {
		t.Errorf("Render() =\n%s\nwant\n%s", res.Text, want)
	}
	if res.Diagnostics.Len() != 0 {
		t.Errorf("diagnostics = %v", res.Diagnostics.Items)
	}
}

func TestRenderCreatedCycleGoesToEOF(t *testing.T) {
	a, b := entry("en:a", "A"), entry("en:b", "B")
	a.Status, b.Status = taxonomy.StatusCreated, taxonomy.StatusCreated
	a.ParentTags, b.ParentTags = []string{"en:b"}, []string{"en:a"}
	changed := []graph.NodeWithParents{
		{Node: a, Parents: []*taxonomy.Node{b}},
		{Node: b, Parents: []*taxonomy.Node{a}},
	}
	res, err := Render("en: X\n", changed)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "en: X\n\n< en:B\nen: A\n\n< en:A\nen: B\n"
	if res.Text != want {
		t.Errorf("Render() = %q, want %q", res.Text, want)
	}
	if len(res.Diagnostics.Warnings()) != 2 {
		t.Errorf("diagnostics = %v", res.Diagnostics.Items)
	}
}

func TestRenderCreatedThenRemoved(t *testing.T) {
	src := "en: A\n"
	store := load(t, src)
	update(t, store, func(tx graph.Tx) error {
		if err := graph.AddEntry(tx, entry("en:b", "B"), nil); err != nil {
			return err
		}
		return graph.RemoveNode(tx, "en:b")
	})
	if got := patch(t, store).Text; got != src {
		t.Errorf("Render() = %q, want %q", got, src)
	}
}
