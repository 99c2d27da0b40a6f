package patcher

import (
	"github.com/sourcegraph/go-diff/diff"
)

// contextLines is the number of unchanged lines shown around each change.
const contextLines = 3

// UnifiedDiff prints the edits as a unified diff of origName against newName.
// It returns an empty string when nothing changed.
func (r *Result) UnifiedDiff(origName, newName string) (string, error) {
	if len(r.Edits) == 0 {
		return "", nil
	}
	fd := &diff.FileDiff{OrigName: origName, NewName: newName}
	for _, group := range r.groups() {
		fd.Hunks = append(fd.Hunks, r.hunk(group))
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type editGroup struct {
	edits []Edit
	// offset is the line count difference of all edits before the group.
	offset int
}

// groups splits the edits into hunks whose context would overlap.
func (r *Result) groups() []editGroup {
	var groups []editGroup
	offset := 0
	for i, e := range r.Edits {
		if i > 0 {
			prev := r.Edits[i-1]
			prevEnd := prev.Line - 1 + len(prev.Removed)
			if e.Line-1-prevEnd <= 2*contextLines {
				g := &groups[len(groups)-1]
				g.edits = append(g.edits, e)
				offset += len(e.Added) - len(e.Removed)
				continue
			}
		}
		groups = append(groups, editGroup{edits: []Edit{e}, offset: offset})
		offset += len(e.Added) - len(e.Removed)
	}
	return groups
}

func (r *Result) hunk(g editGroup) *diff.Hunk {
	first, last := g.edits[0], g.edits[len(g.edits)-1]
	start := max(0, first.Line-1-contextLines)
	end := min(len(r.original), last.Line-1+len(last.Removed)+contextLines)

	var body []byte
	line := func(prefix byte, text string) {
		body = append(body, prefix)
		body = append(body, text...)
		body = append(body, '\n')
	}
	h := &diff.Hunk{}
	cur := start
	for _, e := range g.edits {
		for ; cur < e.Line-1; cur++ {
			line(' ', r.original[cur])
		}
		for _, l := range e.Removed {
			line('-', l)
		}
		for _, l := range e.Added {
			line('+', l)
		}
		cur += len(e.Removed)
		h.NewLines += int32(len(e.Added) - len(e.Removed))
	}
	for ; cur < end; cur++ {
		line(' ', r.original[cur])
	}

	h.OrigLines = int32(end - start)
	h.NewLines += h.OrigLines
	h.OrigStartLine = startLine(start, int(h.OrigLines))
	h.NewStartLine = startLine(start+g.offset, int(h.NewLines))
	h.Body = body
	return h
}

// startLine follows the unified diff convention that an empty side names
// the line before it.
func startLine(start, count int) int32 {
	if count == 0 {
		return int32(start)
	}
	return int32(start + 1)
}
