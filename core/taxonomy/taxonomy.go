package taxonomy

// OrderingLink records that ID directly followed BeforeID in the source.
type OrderingLink struct {
	BeforeID string `json:"before_id"`
	ID       string `json:"id"`
}

// ChildLink links an entry to a declared parent. Position is the index of the
// parent in the child's ParentTags.
type ChildLink struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Position int    `json:"position"`
}

// Taxonomy is the result of parsing one source file. It is built once and
// handed to a store; later edits happen in the store.
type Taxonomy struct {
	SourceName    string         `json:"source_name,omitempty"`
	SourceKey     string         `json:"source_key,omitempty"`
	ParseID       string         `json:"parse_id,omitempty"`
	Entries       []*Node        `json:"entries"`
	Others        []*Node        `json:"others"`
	OrderingLinks []OrderingLink `json:"ordering_links"`
	ChildLinks    []ChildLink    `json:"child_links"`
	Diagnostics   Diagnostics    `json:"diagnostics"`

	// Source is the raw text the taxonomy was parsed from.
	Source string `json:"-"`
}

// Node returns the node with the given id, or nil.
func (t *Taxonomy) Node(id string) *Node {
	for _, list := range [][]*Node{t.Entries, t.Others} {
		for _, n := range list {
			if n.ID == id {
				return n
			}
		}
	}
	return nil
}

// Nodes returns every node in source order by following the ordering links
// from the header. Nodes the chain does not reach are appended at the end.
func (t *Taxonomy) Nodes() []*Node {
	byID := make(map[string]*Node, len(t.Entries)+len(t.Others))
	for _, list := range [][]*Node{t.Others, t.Entries} {
		for _, n := range list {
			byID[n.ID] = n
		}
	}
	next := make(map[string]string, len(t.OrderingLinks))
	for _, l := range t.OrderingLinks {
		next[l.BeforeID] = l.ID
	}

	out := make([]*Node, 0, len(byID))
	seen := make(map[string]bool, len(byID))
	for id := HeaderID; id != "" && !seen[id]; id = next[id] {
		n, ok := byID[id]
		if !ok {
			break
		}
		seen[id] = true
		out = append(out, n)
	}
	for _, list := range [][]*Node{t.Others, t.Entries} {
		for _, n := range list {
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n)
			}
		}
	}
	return out
}
