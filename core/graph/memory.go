package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/FocuswithJustin/taxonomist/core/cas"
	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// MemoryStore is an in-process Store. Update works on a copy of the state
// and swaps it in on success, so readers never see a partial write.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memNode struct {
	node        *taxonomy.Node
	seq         int
	fingerprint string
}

type memText struct {
	name string
	text string
}

type memState struct {
	meta          Meta
	nodes         map[string]*memNode
	seq           int
	orderingLinks []taxonomy.OrderingLink
	childLinks    []taxonomy.ChildLink
	texts         map[string]memText
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		nodes: make(map[string]*memNode),
		texts: make(map[string]memText),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		meta:          s.meta,
		nodes:         make(map[string]*memNode, len(s.nodes)),
		seq:           s.seq,
		orderingLinks: append([]taxonomy.OrderingLink(nil), s.orderingLinks...),
		childLinks:    append([]taxonomy.ChildLink(nil), s.childLinks...),
		texts:         make(map[string]memText, len(s.texts)),
	}
	for id, n := range s.nodes {
		c.nodes[id] = &memNode{node: n.node.Clone(), seq: n.seq, fingerprint: n.fingerprint}
	}
	for k, v := range s.texts {
		c.texts[k] = v
	}
	return c
}

// View implements Store.
func (m *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{state: m.state})
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.state.clone()
	if err := fn(&memTx{state: next, writable: true}); err != nil {
		return err
	}
	m.state = next
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

type memTx struct {
	state    *memState
	writable bool
}

func (t *memTx) checkWritable() error {
	if !t.writable {
		return taxerrors.NewUnsupported("write", "read-only transaction")
	}
	return nil
}

func (t *memTx) Meta() (Meta, error) {
	return t.state.meta, nil
}

func (t *memTx) Node(id string) (*taxonomy.Node, error) {
	n, ok := t.state.nodes[id]
	if !ok {
		return nil, taxerrors.NewNotFound("node", id)
	}
	return n.node.Clone(), nil
}

func (t *memTx) NodesWithParents(f Filter) ([]NodeWithParents, error) {
	parents := make(map[string][]taxonomy.ChildLink)
	for _, l := range t.state.childLinks {
		parents[l.ChildID] = append(parents[l.ChildID], l)
	}

	seq := make(map[string]int, len(t.state.nodes))
	var out []NodeWithParents
	for id, n := range t.state.nodes {
		if !f.Match(n.node) {
			continue
		}
		seq[id] = n.seq
		links := parents[id]
		sort.SliceStable(links, func(i, j int) bool { return links[i].Position < links[j].Position })
		item := NodeWithParents{Node: n.node.Clone()}
		for _, l := range links {
			if p, ok := t.state.nodes[l.ParentID]; ok {
				item.Parents = append(item.Parents, p.node.Clone())
			}
		}
		out = append(out, item)
	}
	SortByPosition(out, seq)
	return out, nil
}

func (t *memTx) OrderingLinks() ([]taxonomy.OrderingLink, error) {
	return append([]taxonomy.OrderingLink(nil), t.state.orderingLinks...), nil
}

func (t *memTx) ChildLinks() ([]taxonomy.ChildLink, error) {
	return append([]taxonomy.ChildLink(nil), t.state.childLinks...), nil
}

func (t *memTx) OriginalText(key string) (string, error) {
	v, ok := t.state.texts[key]
	if !ok {
		return "", taxerrors.NewNotFound("original text", key)
	}
	return v.text, nil
}

func (t *memTx) Fingerprints() (map[string]string, error) {
	out := make(map[string]string, len(t.state.nodes))
	for id, n := range t.state.nodes {
		out[id] = n.fingerprint
	}
	return out, nil
}

func (t *memTx) SetMeta(m Meta) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.state.meta = m
	return nil
}

func (t *memTx) CreateNodes(nodes []*taxonomy.Node, typ taxonomy.NodeType) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	created := 0
	for _, n := range nodes {
		if _, exists := t.state.nodes[n.ID]; exists {
			return created, &taxerrors.ValidationError{Field: "id", Message: "node " + n.ID + " already exists", Err: taxerrors.ErrAlreadyExists}
		}
		c := n.Clone()
		c.Type = typ
		t.state.seq++
		t.state.nodes[c.ID] = &memNode{node: c, seq: t.state.seq, fingerprint: cas.Fingerprint(c)}
		created++
	}
	return created, nil
}

func (t *memTx) CreateOrderingLinks(links []taxonomy.OrderingLink) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	created := 0
	for _, l := range links {
		if t.state.nodes[l.BeforeID] == nil || t.state.nodes[l.ID] == nil {
			continue
		}
		t.state.orderingLinks = append(t.state.orderingLinks, l)
		created++
	}
	return created, nil
}

func (t *memTx) CreateChildLinks(links []taxonomy.ChildLink) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	created := 0
	for _, l := range links {
		if t.state.nodes[l.ParentID] == nil || t.state.nodes[l.ChildID] == nil {
			continue
		}
		t.state.childLinks = append(t.state.childLinks, l)
		created++
	}
	return created, nil
}

func (t *memTx) SaveOriginalText(key, name, text string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.state.texts[key] = memText{name: name, text: text}
	return nil
}

func (t *memTx) UpdateNode(n *taxonomy.Node) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	cur, ok := t.state.nodes[n.ID]
	if !ok {
		return taxerrors.NewNotFound("node", n.ID)
	}
	c := n.Clone()
	c.Type = cur.node.Type
	cur.node = c
	return nil
}

func (t *memTx) RemoveOrderingLink(beforeID, id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	for i, l := range t.state.orderingLinks {
		if l.BeforeID == beforeID && l.ID == id {
			t.state.orderingLinks = append(t.state.orderingLinks[:i], t.state.orderingLinks[i+1:]...)
			return nil
		}
	}
	return taxerrors.NewNotFound("ordering link", beforeID+" -> "+id)
}

func (t *memTx) RemoveChildLinks(childID string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	kept := t.state.childLinks[:0]
	for _, l := range t.state.childLinks {
		if l.ChildID != childID {
			kept = append(kept, l)
		}
	}
	t.state.childLinks = kept
	return nil
}
