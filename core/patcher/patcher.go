// Package patcher renders an edited graph back onto its original source text
// with the smallest change: lines owned by untouched nodes are copied byte
// for byte, and only the ranges of modified, created and removed nodes are
// rewritten.
package patcher

import (
	"context"
	"sort"
	"strings"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/core/unparser"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
)

// Edit is one contiguous change against the original lines.
type Edit struct {
	// Line is the 1-based original line the edit starts at. For a pure
	// insertion it is the line the new lines are inserted before.
	Line    int      `json:"line"`
	Removed []string `json:"removed,omitempty"`
	Added   []string `json:"added,omitempty"`
}

// Result is a patch rendering.
type Result struct {
	Text        string               `json:"text"`
	Edits       []Edit               `json:"edits"`
	Diagnostics taxonomy.Diagnostics `json:"diagnostics"`

	original []string
}

type insert struct {
	lines   []string
	created bool
}

type plan struct {
	lines   []string
	owned   map[int]bool
	skip    map[int]bool
	anchors map[int][]insert
	eof     []insert
	diags   taxonomy.Diagnostics
}

// Render patches original with the changed nodes. Unchanged nodes may be
// passed along too: they are copied verbatim, but the blank lines around
// removed nodes can only be settled when their surviving neighbours are
// known. Created nodes are placed in the order they are given.
func Render(original string, nodes []graph.NodeWithParents) (*Result, error) {
	p := &plan{
		lines:   splitOriginal(original),
		owned:   make(map[int]bool),
		skip:    make(map[int]bool),
		anchors: make(map[int][]insert),
	}

	var created, placed []graph.NodeWithParents
	for _, it := range nodes {
		n := it.Node
		switch {
		case n.Status == taxonomy.StatusCreated:
			created = append(created, it)
		case len(n.SrcLines) > 0:
			placed = append(placed, it)
		case n.Status == taxonomy.StatusModified:
			p.eof = append(p.eof, insert{lines: unparser.Block(it), created: true})
		}
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Node.SrcLines[0].Start < placed[j].Node.SrcLines[0].Start
	})
	p.positioned(placed)
	p.place(created)

	res := p.stream()
	if strings.HasSuffix(original, "\n") || len(p.eof) > 0 {
		if res.Text != "" {
			res.Text += "\n"
		}
	}
	res.Diagnostics = p.diags
	return res, nil
}

// splitOriginal splits on newlines only, so carriage returns and trailing
// whitespace come back out untouched.
func splitOriginal(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// positioned marks the lines the nodes own, walking them in source order.
// A modified node is re-rendered at the start of its first range. Each run
// of removed nodes is cut out together with the blank lines it leaves over.
func (p *plan) positioned(placed []graph.NodeWithParents) {
	for _, it := range placed {
		changed := it.Node.Status != taxonomy.StatusUnchanged
		for _, r := range it.Node.SrcLines {
			for l := r.Start; l <= r.End; l++ {
				p.owned[l] = true
				if changed {
					p.skip[l] = true
				}
			}
		}
	}

	var kept, orig *taxonomy.Node
	removed := false
	for _, it := range placed {
		n := it.Node
		before := orig
		orig = n
		if n.Status == taxonomy.StatusRemoved {
			removed = true
			continue
		}
		if removed {
			p.reseparate(kept, before, n)
			removed = false
		}
		if n.Status == taxonomy.StatusModified {
			start := n.SrcLines[0].Start
			p.anchors[start] = append(p.anchors[start], insert{lines: unparser.BlockAfter(kept, before, it)})
		}
		kept = n
	}
	if removed {
		p.reseparate(kept, orig, nil)
	}
}

// reseparate settles the gap a run of removed nodes leaves between the
// survivors kept and next, either of which is nil at an end of the file.
// orig is the last removed node. The gap keeps one blank line when the
// survivors are separated and none otherwise, counting a separator blank
// next owns.
func (p *plan) reseparate(kept, orig, next *taxonomy.Node) {
	from, to := 0, len(p.lines)+1
	if kept != nil {
		from = kept.SrcLines[len(kept.SrcLines)-1].End
	}
	want := 0
	if next != nil {
		to = next.SrcLines[0].Start
		separated := kept == nil || unparser.Separated(kept, next)
		if next.Status == taxonomy.StatusUnchanged && separated && unparser.KeptSeparator(orig, next) {
			p.skip[to] = true
		}
		if kept != nil && separated {
			want = 1
		}
	}
	for l := from + 1; l < to; l++ {
		if p.owned[l] || p.skip[l] || strings.TrimSpace(p.lines[l-1]) != "" {
			continue
		}
		if want > 0 {
			want--
			continue
		}
		p.skip[l] = true
	}
	if want > 0 {
		p.anchors[to] = append(p.anchors[to], insert{lines: []string{""}})
	}
}

// place anchors created nodes right after their highest-positioned parent.
// A created parent counts once it has been anchored itself, so the work
// list is swept until a pass places nothing. Whatever is left goes to the
// end of the file.
func (p *plan) place(pending []graph.NodeWithParents) {
	anchored := make(map[string]int)
	for pass := 0; len(pending) > 0 && pass <= len(pending); pass++ {
		var next []graph.NodeWithParents
		for _, it := range pending {
			at, ready := p.anchorFor(it, anchored)
			if !ready {
				next = append(next, it)
				continue
			}
			anchored[it.Node.ID] = at
			p.anchors[at] = append(p.anchors[at], insert{lines: unparser.Block(it), created: true})
		}
		progress := len(next) < len(pending)
		pending = next
		if !progress {
			break
		}
	}
	for _, it := range pending {
		p.diags.AddWarning(0, it.Node.ID, &taxerrors.BrokenChainError{
			NodeID: it.Node.ID,
			Reason: "parents never placed, appended at end of file",
		})
		p.eof = append(p.eof, insert{lines: unparser.Block(it), created: true})
	}
}

// anchorFor returns the original line a created node is inserted before.
// A node with no usable parent is appended at the end of the file.
func (p *plan) anchorFor(it graph.NodeWithParents, anchored map[string]int) (int, bool) {
	at := 0
	for _, parent := range it.Parents {
		if parent.Status == taxonomy.StatusCreated {
			a, ok := anchored[parent.ID]
			if !ok {
				return 0, false
			}
			at = max(at, a)
			continue
		}
		if len(parent.SrcLines) == 0 {
			continue
		}
		at = max(at, parent.SrcLines[len(parent.SrcLines)-1].End+1)
	}
	if at == 0 || at > len(p.lines) {
		return len(p.lines) + 1, true
	}
	return at, true
}

// stream copies the original, applying skips and inserts, and records the
// edits it makes.
func (p *plan) stream() *Result {
	res := &Result{original: p.lines}
	var out []string
	var cur *Edit
	needBlank := false

	add := func(l string) {
		out = append(out, l)
		if cur != nil {
			cur.Added = append(cur.Added, l)
		}
	}
	open := func(line int) {
		if cur == nil {
			cur = &Edit{Line: line}
		}
	}
	flush := func() {
		if cur != nil && !equal(cur.Removed, cur.Added) {
			res.Edits = append(res.Edits, *cur)
		}
		cur = nil
	}
	emit := func(line int, ins insert) {
		open(line)
		if len(ins.lines) == 0 {
			return
		}
		endsText := len(out) > 0 && out[len(out)-1] != ""
		if endsText && (ins.created || (needBlank && ins.lines[0] != "")) {
			add("")
		}
		for _, l := range ins.lines {
			add(l)
		}
		needBlank = ins.created
	}

	for line := 1; line <= len(p.lines)+1; line++ {
		for _, ins := range p.anchors[line] {
			emit(line, ins)
		}
		if line > len(p.lines) {
			break
		}
		text := p.lines[line-1]
		if p.skip[line] {
			open(line)
			cur.Removed = append(cur.Removed, text)
			continue
		}
		if needBlank && text != "" {
			add("")
		}
		needBlank = false
		flush()
		out = append(out, text)
	}
	for _, ins := range p.eof {
		emit(len(p.lines)+1, ins)
	}
	flush()
	res.Text = strings.Join(out, "\n")
	return res
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RenderStore patches the original text held by store with its changed
// nodes, in one read transaction. The unchanged nodes are read as well to
// settle the separators around removals.
func RenderStore(ctx context.Context, store graph.Store) (*Result, error) {
	var res *Result
	err := store.View(ctx, func(r graph.Reader) error {
		meta, err := r.Meta()
		if err != nil {
			return err
		}
		original, err := r.OriginalText(meta.SourceKey)
		if err != nil {
			return err
		}
		nodes, err := r.NodesWithParents(graph.Filter{})
		if err != nil {
			return err
		}
		changed := 0
		for _, it := range nodes {
			if graph.Changed.Match(it.Node) {
				changed++
			}
		}
		res, err = Render(original, nodes)
		if err == nil {
			logging.RenderSummary(ctx, "patch", changed, strings.Count(res.Text, "\n"),
				"edits", len(res.Edits), "project", meta.Project)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics.Items {
		logging.Diagnostic(ctx, "patch", d)
	}
	return res, nil
}
