// Package unparser renders taxonomy text back from graph nodes, ignoring
// the original source bytes.
package unparser

import (
	"context"
	"sort"
	"strings"

	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
)

// Result is a canonical rendering.
type Result struct {
	Text        string
	Nodes       int
	Lines       int
	Diagnostics taxonomy.Diagnostics
}

// Render renders nodes that are already in chain order. Removed nodes are
// skipped. A blank line separates consecutive blocks, except before the
// first block with content and between two one-liners of the same kind.
func Render(nodes []graph.NodeWithParents) Result {
	var out []string
	var prev, orig *taxonomy.Node
	emitted := 0
	for _, it := range nodes {
		before := orig
		if it.Node.Status != taxonomy.StatusCreated {
			orig = it.Node
		}
		if it.Node.Status == taxonomy.StatusRemoved {
			continue
		}
		lines := BlockAfter(prev, before, it)
		if len(lines) == 0 {
			continue
		}
		if Separated(prev, it.Node) {
			out = append(out, "")
		}
		out = append(out, lines...)
		prev = it.Node
		emitted++
	}
	return Result{Text: Join(out), Nodes: emitted, Lines: len(out)}
}

// Separated reports whether a blank line goes between prev and n. prev is
// nil for the first emitted block.
func Separated(prev, n *taxonomy.Node) bool {
	if prev == nil {
		return false
	}
	return !(n.Type.IsOneLiner() && n.Type == prev.Type)
}

// Join joins rendered lines with a trailing newline.
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Block renders the lines of one node: its preceding lines verbatim, then
// its content. The separator is not included.
func Block(it graph.NodeWithParents) []string {
	n := it.Node
	lines := append([]string(nil), n.PrecedingLines...)
	switch n.Type {
	case taxonomy.TypeStopwords, taxonomy.TypeSynonyms:
		if ts := n.TagsFor(n.FirstTagLang()); ts != nil {
			lines = append(lines, n.Type.Prefix()+":"+ts.DisplayCode()+": "+strings.Join(ts.Raw, ", "))
		}
	case taxonomy.TypeEntry:
		lines = append(lines, parentLines(n, it.Parents)...)
		for _, ts := range orderedTags(n) {
			lines = append(lines, ts.DisplayCode()+": "+strings.Join(ts.Raw, ", "))
		}
		for _, p := range n.SortedProperties() {
			lines = append(lines, p.Name+":"+p.Lang+": "+p.Value)
		}
	}
	return lines
}

// BlockAfter renders it as the block written after prev. orig is the node
// that preceded it in the source. The blank a one-liner kept after orig is
// dropped once prev is no longer a one-liner of the same kind, since the
// separator then takes its place.
func BlockAfter(prev, orig *taxonomy.Node, it graph.NodeWithParents) []string {
	lines := Block(it)
	if KeptSeparator(orig, it.Node) && (prev == nil || Separated(prev, it.Node)) {
		lines = lines[1:]
	}
	return lines
}

// KeptSeparator reports whether the first preceding line of n is the blank
// that separated it from orig, a one-liner of the same kind.
func KeptSeparator(orig, n *taxonomy.Node) bool {
	return orig != nil && n.Type.IsOneLiner() && n.Type == orig.Type &&
		len(n.PrecedingLines) > 0 && n.PrecedingLines[0] == ""
}

// parentLines renders one line per parent ref. Refs are matched to the
// resolved parents so a renamed parent is written under its current name;
// refs that resolve to nothing are written as they were normalized. Removed
// parents are left out.
func parentLines(n *taxonomy.Node, parents []*taxonomy.Node) []string {
	used := make([]bool, len(parents))
	var lines []string
	for _, ref := range n.ParentTags {
		i := matchParent(ref, parents, used)
		if i < 0 {
			lines = append(lines, "< "+ref)
			continue
		}
		used[i] = true
		if parents[i].Status != taxonomy.StatusRemoved {
			lines = append(lines, parentLine(parents[i]))
		}
	}
	for i, p := range parents {
		if !used[i] && p.Status != taxonomy.StatusRemoved {
			lines = append(lines, parentLine(p))
		}
	}
	return lines
}

func matchParent(ref string, parents []*taxonomy.Node, used []bool) int {
	for i, p := range parents {
		if !used[i] && p.ID == ref {
			return i
		}
	}
	lang, tag, _ := strings.Cut(ref, ":")
	for i, p := range parents {
		if used[i] {
			continue
		}
		if ts := p.TagsFor(lang); ts != nil {
			for _, norm := range ts.Normalized {
				if norm == tag {
					return i
				}
			}
		}
	}
	return -1
}

func parentLine(p *taxonomy.Node) string {
	ts := p.MainTags()
	if ts == nil || len(ts.Raw) == 0 {
		return "< " + p.ID
	}
	return "< " + ts.DisplayCode() + ":" + ts.Raw[0]
}

// orderedTags returns the main language tags first, then the others by
// language key.
func orderedTags(n *taxonomy.Node) []taxonomy.TagSet {
	var out []taxonomy.TagSet
	if main := n.MainTags(); main != nil {
		out = append(out, *main)
	}
	var rest []taxonomy.TagSet
	for _, ts := range n.Tags {
		if ts.Lang != n.MainLanguage {
			rest = append(rest, ts)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Lang < rest[j].Lang })
	return append(out, rest...)
}

// RenderStore renders the whole graph held by store in one read transaction.
func RenderStore(ctx context.Context, store graph.Store) (Result, error) {
	var res Result
	err := store.View(ctx, func(r graph.Reader) error {
		items, err := r.NodesWithParents(graph.Filter{})
		if err != nil {
			return err
		}
		links, err := r.OrderingLinks()
		if err != nil {
			return err
		}
		ordered, diags := Chain(items, links)
		res = Render(ordered)
		res.Diagnostics = diags
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	for _, d := range res.Diagnostics.Items {
		logging.Diagnostic(ctx, "render", d)
	}
	logging.RenderSummary(ctx, "canonical", res.Nodes, res.Lines, "warnings", res.Diagnostics.Len())
	return res, nil
}
