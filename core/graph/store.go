// Package graph defines the transactional graph store a parsed taxonomy is
// loaded into and rendered back from, plus the loader and editing helpers
// that work against any store.
package graph

import (
	"context"
	"sort"
	"time"

	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// Meta describes the taxonomy held by a store.
type Meta struct {
	Project    string    `json:"project"`
	SourceName string    `json:"source_name"`
	SourceKey  string    `json:"source_key"`
	ImportID   string    `json:"import_id"`
	ImportedAt time.Time `json:"imported_at"`
}

// NodeWithParents is a node together with its resolved parents, ordered by
// child link position.
type NodeWithParents struct {
	Node    *taxonomy.Node
	Parents []*taxonomy.Node
}

// Filter selects nodes. Empty fields match everything.
type Filter struct {
	Statuses []taxonomy.Status
	Types    []taxonomy.NodeType
}

// Changed selects the nodes a patch rendering has to deal with.
var Changed = Filter{Statuses: []taxonomy.Status{
	taxonomy.StatusModified, taxonomy.StatusCreated, taxonomy.StatusRemoved,
}}

// Match reports whether n is selected.
func (f Filter) Match(n *taxonomy.Node) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, n.Status) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, n.Type) {
		return false
	}
	return true
}

func containsStatus(list []taxonomy.Status, s taxonomy.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(list []taxonomy.NodeType, t taxonomy.NodeType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

// Reader is the read side of a store transaction.
type Reader interface {
	Meta() (Meta, error)
	// Node returns a copy of one node, or a NotFoundError.
	Node(id string) (*taxonomy.Node, error)
	// NodesWithParents returns the selected nodes ordered by source position;
	// nodes without a position come last in creation order.
	NodesWithParents(f Filter) ([]NodeWithParents, error)
	OrderingLinks() ([]taxonomy.OrderingLink, error)
	ChildLinks() ([]taxonomy.ChildLink, error)
	OriginalText(key string) (string, error)
	// Fingerprints returns the fingerprint of every node taken when it was created.
	Fingerprints() (map[string]string, error)
}

// Writer is the write side of a store transaction.
type Writer interface {
	SetMeta(m Meta) error
	// CreateNodes stores nodes as type t and returns how many were created.
	CreateNodes(nodes []*taxonomy.Node, t taxonomy.NodeType) (int, error)
	// CreateOrderingLinks returns how many links were created. Links whose
	// ends do not exist are skipped.
	CreateOrderingLinks(links []taxonomy.OrderingLink) (int, error)
	// CreateChildLinks returns how many links were created. Links whose
	// ends do not exist are skipped.
	CreateChildLinks(links []taxonomy.ChildLink) (int, error)
	SaveOriginalText(key, name, text string) error
	UpdateNode(n *taxonomy.Node) error
	RemoveOrderingLink(beforeID, id string) error
	RemoveChildLinks(childID string) error
}

// Tx is a read-write transaction.
type Tx interface {
	Reader
	Writer
}

// Store runs transactions. View gives a consistent snapshot for the whole
// callback; Update commits only when the callback returns nil.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// SortByPosition orders nodes the way NodesWithParents returns them. seq
// gives the creation order of each node id.
func SortByPosition(items []NodeWithParents, seq map[string]int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Node, items[j].Node
		if (a.SrcPosition == 0) != (b.SrcPosition == 0) {
			return b.SrcPosition == 0
		}
		if a.SrcPosition != b.SrcPosition {
			return a.SrcPosition < b.SrcPosition
		}
		return seq[a.ID] < seq[b.ID]
	})
}
