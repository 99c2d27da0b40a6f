// Package taxonomy defines the node/relationship model a taxonomy text file
// compiles into and the graph store reads back from.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
)

// Synthetic ids of the header and footer text blocks.
const (
	HeaderID = "__header__"
	FooterID = "__footer__"
)

// NodeType identifies the kind of block a node was parsed from.
// It is assigned once when the node is created.
type NodeType string

const (
	// TypeText is the header or footer block.
	TypeText NodeType = "TEXT"
	// TypeSynonyms is a synonyms:<lang>: one-liner.
	TypeSynonyms NodeType = "SYNONYMS"
	// TypeStopwords is a stopwords:<lang>: one-liner.
	TypeStopwords NodeType = "STOPWORDS"
	// TypeEntry is a taxonomy entry.
	TypeEntry NodeType = "ENTRY"
)

// NodeTypes lists every node type in store creation order.
var NodeTypes = []NodeType{TypeText, TypeSynonyms, TypeStopwords, TypeEntry}

// ParseNodeType parses the stored form of a node type.
func ParseNodeType(s string) (NodeType, error) {
	for _, t := range NodeTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown node type %q", s)
}

// IsOneLiner reports whether blocks of this type are a single declaration line.
func (t NodeType) IsOneLiner() bool {
	return t == TypeSynonyms || t == TypeStopwords
}

// Prefix is the keyword that starts a one-liner of this type.
func (t NodeType) Prefix() string {
	switch t {
	case TypeSynonyms:
		return "synonyms"
	case TypeStopwords:
		return "stopwords"
	}
	return ""
}

// Status marks a node in a live graph.
type Status string

const (
	StatusUnchanged Status = ""
	StatusModified  Status = "modified"
	StatusCreated   Status = "created"
	StatusRemoved   Status = "removed"
)

// Changed reports whether the status requires re-rendering.
func (s Status) Changed() bool {
	return s == StatusModified || s == StatusCreated || s == StatusRemoved
}

// TagSet holds the tags of one language on a node.
type TagSet struct {
	// Lang is the map key form of the language code ('-' folded to '_').
	Lang string `json:"lang"`
	// Code is the language code as written in the source.
	Code string `json:"code,omitempty"`
	// Raw tags in source order.
	Raw []string `json:"raw"`
	// Normalized tags, de-duplicated, first occurrence wins.
	Normalized []string `json:"normalized"`
}

// DisplayCode is the language code to write back out.
func (t *TagSet) DisplayCode() string {
	if t.Code != "" {
		return t.Code
	}
	return t.Lang
}

// Property is a name:lang: value line of an entry.
type Property struct {
	Name  string `json:"name"`
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Node is one parsed block.
type Node struct {
	ID             string      `json:"id"`
	Type           NodeType    `json:"type"`
	MainLanguage   string      `json:"main_language,omitempty"`
	PrecedingLines []string    `json:"preceding_lines,omitempty"`
	ParentTags     []string    `json:"parent_tags,omitempty"`
	SrcPosition    int         `json:"src_position,omitempty"`
	SrcLines       []LineRange `json:"src_lines,omitempty"`
	Tags           []TagSet    `json:"tags,omitempty"`
	Properties     []Property  `json:"properties,omitempty"`
	Status         Status      `json:"status,omitempty"`

	// Before is the id of the node preceding this one in the source.
	Before string `json:"-"`
}

// NewNode returns an empty node of the given type.
func NewNode(id string, t NodeType) *Node {
	return &Node{ID: id, Type: t}
}

// TagsFor returns the tag set for a language key, or nil.
func (n *Node) TagsFor(lang string) *TagSet {
	for i := range n.Tags {
		if n.Tags[i].Lang == lang {
			return &n.Tags[i]
		}
	}
	return nil
}

// MainTags returns the tag set of the main language, or nil.
func (n *Node) MainTags() *TagSet {
	if n.MainLanguage == "" {
		return nil
	}
	return n.TagsFor(n.MainLanguage)
}

// SetTags replaces the tag set for lang, or appends a new one.
func (n *Node) SetTags(lang, code string, raw, normalized []string) {
	if ts := n.TagsFor(lang); ts != nil {
		ts.Code, ts.Raw, ts.Normalized = code, raw, normalized
		return
	}
	n.Tags = append(n.Tags, TagSet{Lang: lang, Code: code, Raw: raw, Normalized: normalized})
}

// RemoveTags deletes the tag set for lang.
func (n *Node) RemoveTags(lang string) {
	for i := range n.Tags {
		if n.Tags[i].Lang == lang {
			n.Tags = append(n.Tags[:i], n.Tags[i+1:]...)
			return
		}
	}
}

// FirstTagLang returns the lexicographically first language key present.
func (n *Node) FirstTagLang() string {
	first := ""
	for _, ts := range n.Tags {
		if first == "" || ts.Lang < first {
			first = ts.Lang
		}
	}
	return first
}

// Property returns the value of a property.
func (n *Node) Property(name, lang string) (string, bool) {
	for _, p := range n.Properties {
		if p.Name == name && p.Lang == lang {
			return p.Value, true
		}
	}
	return "", false
}

// SetProperty sets a property, replacing an existing value in place.
func (n *Node) SetProperty(name, lang, value string) {
	for i := range n.Properties {
		if n.Properties[i].Name == name && n.Properties[i].Lang == lang {
			n.Properties[i].Value = value
			return
		}
	}
	n.Properties = append(n.Properties, Property{Name: name, Lang: lang, Value: value})
}

// SortedProperties returns the properties ordered by (name, lang).
func (n *Node) SortedProperties() []Property {
	props := append([]Property(nil), n.Properties...)
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].Name != props[j].Name {
			return props[i].Name < props[j].Name
		}
		return props[i].Lang < props[j].Lang
	})
	return props
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.PrecedingLines = cloneStrings(n.PrecedingLines)
	c.ParentTags = cloneStrings(n.ParentTags)
	c.SrcLines = append([]LineRange(nil), n.SrcLines...)
	if n.Tags != nil {
		c.Tags = make([]TagSet, len(n.Tags))
		for i, ts := range n.Tags {
			ts.Raw = cloneStrings(ts.Raw)
			ts.Normalized = cloneStrings(ts.Normalized)
			c.Tags[i] = ts
		}
	}
	c.Properties = append([]Property(nil), n.Properties...)
	return &c
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Type, n.ID)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Flattened key prefixes used by stores that keep one column per tag language.
const (
	flatTags    = "tags_"
	flatTagsIDs = "tags_ids_"
	flatProp    = "prop_"
)

// Flatten converts the node to the flat key convention:
// tags_<lang>, tags_ids_<lang> and prop_<name>_<lang>.
func (n *Node) Flatten() map[string]any {
	m := map[string]any{
		"id":   n.ID,
		"type": string(n.Type),
	}
	if n.MainLanguage != "" {
		m["main_language"] = n.MainLanguage
	}
	if len(n.PrecedingLines) > 0 {
		m["preceding_lines"] = cloneStrings(n.PrecedingLines)
	}
	if len(n.ParentTags) > 0 {
		m["parent_tags"] = cloneStrings(n.ParentTags)
	}
	if n.SrcPosition > 0 {
		m["src_position"] = n.SrcPosition
	}
	if len(n.SrcLines) > 0 {
		m["src_lines"] = FormatLineRanges(n.SrcLines)
	}
	if n.Status != StatusUnchanged {
		m["status"] = string(n.Status)
	}
	for _, ts := range n.Tags {
		m[flatTags+ts.Lang] = cloneStrings(ts.Raw)
		m[flatTagsIDs+ts.Lang] = cloneStrings(ts.Normalized)
	}
	for _, p := range n.Properties {
		m[flatProp+p.Name+"_"+p.Lang] = p.Value
	}
	return m
}

// FromFlat rebuilds a node from its flat form. Tag languages come back with
// the main language first, then ascending. A prop_ key is split on the
// longest tag language suffix it carries, else on its last underscore.
func FromFlat(m map[string]any) (*Node, error) {
	id, _ := m["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("flat node has no id")
	}
	typ, _ := m["type"].(string)
	t, err := ParseNodeType(typ)
	if err != nil {
		return nil, err
	}
	n := NewNode(id, t)
	n.MainLanguage, _ = m["main_language"].(string)
	n.PrecedingLines = flatStrings(m["preceding_lines"])
	n.ParentTags = flatStrings(m["parent_tags"])
	switch v := m["src_position"].(type) {
	case int:
		n.SrcPosition = v
	case int64:
		n.SrcPosition = int(v)
	case float64:
		n.SrcPosition = int(v)
	}
	if s, ok := m["src_lines"].(string); ok && s != "" {
		if n.SrcLines, err = ParseLineRanges(s); err != nil {
			return nil, err
		}
	}
	if s, ok := m["status"].(string); ok {
		n.Status = Status(s)
	}

	var langs []string
	for k := range m {
		if strings.HasPrefix(k, flatTagsIDs) {
			langs = append(langs, strings.TrimPrefix(k, flatTagsIDs))
		}
	}
	sort.Slice(langs, func(i, j int) bool {
		if (langs[i] == n.MainLanguage) != (langs[j] == n.MainLanguage) {
			return langs[i] == n.MainLanguage
		}
		return langs[i] < langs[j]
	})
	for _, lang := range langs {
		n.SetTags(lang, "", flatStrings(m[flatTags+lang]), flatStrings(m[flatTagsIDs+lang]))
	}

	bySuffix := append([]string(nil), langs...)
	sort.Slice(bySuffix, func(i, j int) bool { return len(bySuffix[i]) > len(bySuffix[j]) })
	var props []string
	for k := range m {
		if strings.HasPrefix(k, flatProp) {
			props = append(props, k)
		}
	}
	sort.Strings(props)
	for _, k := range props {
		value, _ := m[k].(string)
		rest := strings.TrimPrefix(k, flatProp)
		name, lang := splitFlatProp(rest, bySuffix)
		if name == "" {
			return nil, fmt.Errorf("invalid property key %q", k)
		}
		n.SetProperty(name, lang, value)
	}
	return n, nil
}

func splitFlatProp(rest string, langs []string) (string, string) {
	for _, lang := range langs {
		if strings.HasSuffix(rest, "_"+lang) && len(rest) > len(lang)+1 {
			return rest[:len(rest)-len(lang)-1], lang
		}
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return "", ""
	}
	return rest[:i], rest[i+1:]
}

func flatStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return cloneStrings(s)
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
