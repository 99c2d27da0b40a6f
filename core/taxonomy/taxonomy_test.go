package taxonomy

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
)

func TestParseLineRanges(t *testing.T) {
	tests := []struct {
		in      string
		want    []LineRange
		wantErr bool
	}{
		{"", nil, false},
		{"9", []LineRange{{9, 9}}, false},
		{"3-7,9", []LineRange{{3, 7}, {9, 9}}, false},
		{" 1 - 2 , 4-4 ", []LineRange{{1, 2}, {4, 4}}, false},
		{"7-3", nil, true},
		{"0", nil, true},
		{"3-", nil, true},
		{"a-b", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLineRanges(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLineRanges(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLineRanges(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLineRangesErrorTypes(t *testing.T) {
	_, err := ParseLineRanges("7-3")
	var pe *taxerrors.ParseError
	if !errors.As(err, &pe) || pe.Format != "line ranges" || pe.Path != "7-3" {
		t.Errorf("ParseLineRanges(7-3) error = %#v, want a line ranges ParseError", err)
	}

	_, err = ParseLineRanges("a-b")
	if err == nil || !strings.Contains(err.Error(), `invalid line ranges "a-b"`) {
		t.Errorf("ParseLineRanges(a-b) error = %v, want wrapped syntax error", err)
	}
}

func TestFormatLineRanges(t *testing.T) {
	ranges := []LineRange{{3, 7}, {9, 9}}
	s := FormatLineRanges(ranges)
	if s != "3-7,9" {
		t.Fatalf("FormatLineRanges() = %q", s)
	}
	back, err := ParseLineRanges(s)
	if err != nil || !reflect.DeepEqual(back, ranges) {
		t.Errorf("ParseLineRanges(%q) = %v, %v", s, back, err)
	}
	if !ranges[0].Contains(7) || ranges[0].Contains(8) || ranges[0].Len() != 5 {
		t.Error("LineRange helpers returned unexpected results")
	}
}

func TestParseNodeType(t *testing.T) {
	for _, nt := range NodeTypes {
		got, err := ParseNodeType(string(nt))
		if err != nil || got != nt {
			t.Errorf("ParseNodeType(%q) = %v, %v", nt, got, err)
		}
	}
	if _, err := ParseNodeType("entry"); err == nil {
		t.Error("ParseNodeType should be case sensitive")
	}
	if !TypeSynonyms.IsOneLiner() || !TypeStopwords.IsOneLiner() || TypeEntry.IsOneLiner() || TypeText.IsOneLiner() {
		t.Error("IsOneLiner returned unexpected results")
	}
	if TypeStopwords.Prefix() != "stopwords" || TypeEntry.Prefix() != "" {
		t.Error("Prefix returned unexpected results")
	}
}

func TestNodeTagsAndProperties(t *testing.T) {
	n := NewNode("en:apple", TypeEntry)
	n.MainLanguage = "en"
	n.SetTags("en", "en", []string{"Apple", "Apples"}, []string{"apple", "apples"})
	n.SetTags("zh_hant", "zh-hant", []string{"蘋果"}, []string{"蘋果"})
	n.SetTags("de", "de", []string{"Apfel"}, []string{"apfel"})

	if n.MainTags().Raw[0] != "Apple" {
		t.Errorf("MainTags() = %+v", n.MainTags())
	}
	if got := n.FirstTagLang(); got != "de" {
		t.Errorf("FirstTagLang() = %q", got)
	}
	if n.TagsFor("zh_hant").DisplayCode() != "zh-hant" {
		t.Error("DisplayCode should keep the written code")
	}

	n.SetTags("en", "en", []string{"Apple"}, []string{"apple"})
	if len(n.Tags) != 3 || len(n.Tags[0].Raw) != 1 {
		t.Errorf("SetTags should replace in place, got %+v", n.Tags)
	}
	n.RemoveTags("de")
	if n.TagsFor("de") != nil || len(n.Tags) != 2 {
		t.Error("RemoveTags did not remove the tag set")
	}

	n.SetProperty("wikidata", "en", "Q89")
	n.SetProperty("color", "en", "red")
	n.SetProperty("wikidata", "en", "Q89x")
	if v, ok := n.Property("wikidata", "en"); !ok || v != "Q89x" {
		t.Errorf("Property() = %q, %v", v, ok)
	}
	sorted := n.SortedProperties()
	if sorted[0].Name != "color" || n.Properties[0].Name != "wikidata" {
		t.Errorf("SortedProperties() = %+v, original %+v", sorted, n.Properties)
	}
}

func TestNodeClone(t *testing.T) {
	n := NewNode("en:apple", TypeEntry)
	n.PrecedingLines = []string{"# fruit"}
	n.SetTags("en", "en", []string{"Apple"}, []string{"apple"})
	n.SetProperty("color", "en", "red")

	c := n.Clone()
	c.PrecedingLines[0] = "changed"
	c.Tags[0].Raw[0] = "changed"
	c.Properties[0].Value = "changed"

	if n.PrecedingLines[0] != "# fruit" || n.Tags[0].Raw[0] != "Apple" || n.Properties[0].Value != "red" {
		t.Error("Clone shares state with the original")
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	n := NewNode("en:apple", TypeEntry)
	n.MainLanguage = "en"
	n.ParentTags = []string{"en:fruits"}
	n.SrcPosition = 4
	n.SrcLines = []LineRange{{3, 6}}
	n.SetTags("fr", "fr", []string{"Pomme"}, []string{"pomme"})
	n.SetTags("en", "en", []string{"Apple"}, []string{"apple"})
	n.SetTags("zh_hant", "zh_hant", []string{"蘋果"}, []string{"蘋果"})
	n.SetProperty("wikidata", "en", "Q89")
	n.SetProperty("food_groups", "en", "en:fruits")
	n.SetProperty("note", "zh_hant", "x")

	flat := n.Flatten()
	if _, ok := flat["tags_ids_fr"]; !ok {
		t.Fatalf("Flatten() missing tags_ids_fr: %v", flat)
	}
	if flat["prop_food_groups_en"] != "en:fruits" {
		t.Errorf("Flatten() prop key: %v", flat)
	}

	back, err := FromFlat(flat)
	if err != nil {
		t.Fatalf("FromFlat() error = %v", err)
	}
	if back.Tags[0].Lang != "en" || back.Tags[1].Lang != "fr" || back.Tags[2].Lang != "zh_hant" {
		t.Errorf("tag order = %+v", back.Tags)
	}
	if v, _ := back.Property("food_groups", "en"); v != "en:fruits" {
		t.Errorf("food_groups = %q", v)
	}
	if v, _ := back.Property("note", "zh_hant"); v != "x" {
		t.Errorf("note = %q", v)
	}
	if back.SrcPosition != 4 || FormatLineRanges(back.SrcLines) != "3-6" || back.ParentTags[0] != "en:fruits" {
		t.Errorf("FromFlat() = %+v", back)
	}
}

func TestFromFlatErrors(t *testing.T) {
	if _, err := FromFlat(map[string]any{"type": "ENTRY"}); err == nil {
		t.Error("expected error for missing id")
	}
	if _, err := FromFlat(map[string]any{"id": "x", "type": "NOPE"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDiagnostics(t *testing.T) {
	var d Diagnostics
	d.AddWarning(3, "en:a", errors.New("dangling"))
	if d.HasErrors() {
		t.Error("HasErrors() with only warnings")
	}
	var other Diagnostics
	other.AddError(7, "", errors.New("duplicate"))
	d.Merge(other)

	if d.Len() != 2 || len(d.Warnings()) != 1 || len(d.Errors()) != 1 || !d.HasErrors() {
		t.Errorf("unexpected diagnostics %+v", d)
	}
	if s := d.Items[0].String(); s != "warning line 3 [en:a]: dangling" {
		t.Errorf("String() = %q", s)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"message":"duplicate"`) {
		t.Errorf("JSON = %s", data)
	}
}

func TestTaxonomyNodes(t *testing.T) {
	header := NewNode(HeaderID, TypeText)
	a := NewNode("en:a", TypeEntry)
	sw := NewNode("stopwords:0", TypeStopwords)
	footer := NewNode(FooterID, TypeText)
	stray := NewNode("en:stray", TypeEntry)

	tax := &Taxonomy{
		Entries: []*Node{a, stray},
		Others:  []*Node{header, sw, footer},
		OrderingLinks: []OrderingLink{
			{HeaderID, "stopwords:0"},
			{"stopwords:0", "en:a"},
			{"en:a", FooterID},
		},
	}
	var ids []string
	for _, n := range tax.Nodes() {
		ids = append(ids, n.ID)
	}
	want := []string{HeaderID, "stopwords:0", "en:a", FooterID, "en:stray"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Nodes() = %v, want %v", ids, want)
	}
	if tax.Node("en:a") != a || tax.Node("missing") != nil {
		t.Error("Node() lookup failed")
	}
}
