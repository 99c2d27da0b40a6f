package parser

import (
	"iter"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// assemble sorts harvested nodes into entries and other nodes and derives
// the ordering and child links. A node whose id was already emitted is
// dropped, and the chain links the next node to the last emitted one.
func (s *session) assemble(header *taxonomy.Node, records iter.Seq[*taxonomy.Node]) *taxonomy.Taxonomy {
	tax := &taxonomy.Taxonomy{}
	seen := make(map[string]bool)
	last := ""

	add := func(n *taxonomy.Node) {
		if seen[n.ID] {
			s.fail(n.SrcPosition, n.ID, &taxerrors.DuplicateIDError{Line: n.SrcPosition, ID: n.ID})
			return
		}
		seen[n.ID] = true

		n.Before = last
		if last != "" {
			tax.OrderingLinks = append(tax.OrderingLinks, taxonomy.OrderingLink{BeforeID: last, ID: n.ID})
		}
		last = n.ID

		if n.Type == taxonomy.TypeEntry {
			tax.Entries = append(tax.Entries, n)
		} else {
			tax.Others = append(tax.Others, n)
		}
		for i, parent := range n.ParentTags {
			tax.ChildLinks = append(tax.ChildLinks, taxonomy.ChildLink{ParentID: parent, ChildID: n.ID, Position: i})
		}
	}

	add(header)
	for n := range records {
		add(n)
	}
	tax.Diagnostics = s.diags
	return tax
}
