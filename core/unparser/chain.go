package unparser

import (
	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// Chain orders nodes by walking the ordering links from the header. Nodes
// the walk does not reach, including those cut off by a cycle, are
// reported and placed before the footer in their input order.
func Chain(nodes []graph.NodeWithParents, links []taxonomy.OrderingLink) ([]graph.NodeWithParents, taxonomy.Diagnostics) {
	var diags taxonomy.Diagnostics
	byID := make(map[string]int, len(nodes))
	for i, it := range nodes {
		byID[it.Node.ID] = i
	}
	next := make(map[string]string, len(links))
	for _, l := range links {
		if cur, ok := next[l.BeforeID]; ok && cur != l.ID {
			diags.AddWarning(0, l.ID, &taxerrors.BrokenChainError{NodeID: l.ID, Reason: "second successor of " + l.BeforeID})
			continue
		}
		next[l.BeforeID] = l.ID
	}

	out := make([]graph.NodeWithParents, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	if _, ok := byID[taxonomy.HeaderID]; !ok {
		diags.AddWarning(0, taxonomy.HeaderID, &taxerrors.BrokenChainError{NodeID: taxonomy.HeaderID, Reason: "missing header"})
	} else {
		for id := taxonomy.HeaderID; id != ""; id = next[id] {
			if seen[id] {
				diags.AddWarning(0, id, &taxerrors.BrokenChainError{NodeID: id, Reason: "cycle"})
				break
			}
			i, ok := byID[id]
			if !ok {
				diags.AddWarning(0, id, &taxerrors.BrokenChainError{NodeID: id, Reason: "link to unknown node"})
				break
			}
			seen[id] = true
			if id != taxonomy.FooterID {
				out = append(out, nodes[i])
			}
		}
	}

	for _, it := range nodes {
		id := it.Node.ID
		if seen[id] || id == taxonomy.FooterID {
			continue
		}
		diags.AddWarning(it.Node.SrcPosition, id, &taxerrors.BrokenChainError{NodeID: id, Reason: "not reachable from header"})
		seen[id] = true
		out = append(out, it)
	}
	if i, ok := byID[taxonomy.FooterID]; ok {
		out = append(out, nodes[i])
	}
	return out, diags
}
