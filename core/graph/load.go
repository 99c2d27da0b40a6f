package graph

import (
	"context"
	"time"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
)

// Load writes a parsed taxonomy into the store in one transaction: the
// original text, the nodes per type, the ordering links and the child links.
// Parent refs are resolved through every entry's lang:normalized tags; refs
// that match nothing are reported as warnings. Short link counts are
// reported as errors and do not roll back the links already created.
func Load(ctx context.Context, store Store, tax *taxonomy.Taxonomy, project string) (taxonomy.Diagnostics, error) {
	var diags taxonomy.Diagnostics
	ctx = logging.WithProject(logging.WithParseID(ctx, tax.ParseID), project)

	err := store.Update(ctx, func(tx Tx) error {
		diags = taxonomy.Diagnostics{}
		if err := tx.SaveOriginalText(tax.SourceKey, tax.SourceName, tax.Source); err != nil {
			return taxerrors.Wrap(err, "save original text")
		}
		meta := Meta{
			Project:    project,
			SourceName: tax.SourceName,
			SourceKey:  tax.SourceKey,
			ImportID:   tax.ParseID,
			ImportedAt: time.Now().UTC(),
		}
		if err := tx.SetMeta(meta); err != nil {
			return taxerrors.Wrap(err, "save meta")
		}

		for _, t := range taxonomy.NodeTypes {
			nodes := nodesOfType(tax, t)
			if len(nodes) == 0 {
				continue
			}
			created, err := tx.CreateNodes(nodes, t)
			if err != nil {
				return taxerrors.Wrapf(err, "create %s nodes", t)
			}
			logging.StoreOperation(ctx, "create_nodes", len(nodes), created, "type", string(t))
			if created != len(nodes) {
				diags.AddError(0, "", &taxerrors.LinkCountMismatchError{Kind: "node", Expected: len(nodes), Actual: created})
			}
		}

		created, err := tx.CreateOrderingLinks(tax.OrderingLinks)
		if err != nil {
			return taxerrors.Wrap(err, "create ordering links")
		}
		logging.StoreOperation(ctx, "create_ordering_links", len(tax.OrderingLinks), created)
		if created != len(tax.OrderingLinks) {
			diags.AddError(0, "", &taxerrors.LinkCountMismatchError{Kind: "ordering", Expected: len(tax.OrderingLinks), Actual: created})
		}

		links := ResolveParents(tax, &diags)
		created, err = tx.CreateChildLinks(links)
		if err != nil {
			return taxerrors.Wrap(err, "create child links")
		}
		logging.StoreOperation(ctx, "create_child_links", len(links), created)
		if created != len(links) {
			diags.AddError(0, "", &taxerrors.LinkCountMismatchError{Kind: "child", Expected: len(links), Actual: created})
		}
		return nil
	})
	if err != nil {
		return diags, err
	}

	for _, d := range diags.Items {
		logging.Diagnostic(ctx, "load", d)
	}
	return diags, nil
}

func nodesOfType(tax *taxonomy.Taxonomy, t taxonomy.NodeType) []*taxonomy.Node {
	src := tax.Others
	if t == taxonomy.TypeEntry {
		src = tax.Entries
	}
	var out []*taxonomy.Node
	for _, n := range src {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ResolveParents maps the parent refs of the child links to entry ids.
// Unresolved refs are recorded in diags as DanglingParentError warnings.
func ResolveParents(tax *taxonomy.Taxonomy, diags *taxonomy.Diagnostics) []taxonomy.ChildLink {
	index := TagIndex(tax.Entries)
	links := make([]taxonomy.ChildLink, 0, len(tax.ChildLinks))
	for _, l := range tax.ChildLinks {
		parent, ok := index[l.ParentID]
		if !ok {
			line := 0
			if child := tax.Node(l.ChildID); child != nil {
				line = child.SrcPosition
			}
			diags.AddWarning(line, l.ChildID, &taxerrors.DanglingParentError{ParentID: l.ParentID, ChildID: l.ChildID})
			continue
		}
		links = append(links, taxonomy.ChildLink{ParentID: parent, ChildID: l.ChildID, Position: l.Position})
	}
	return links
}

// TagIndex maps every lang:normalized tag of the entries to the entry id.
// The first entry to claim a tag keeps it.
func TagIndex(entries []*taxonomy.Node) map[string]string {
	index := make(map[string]string)
	for _, n := range entries {
		index[n.ID] = n.ID
	}
	for _, n := range entries {
		for _, ts := range n.Tags {
			for _, tag := range ts.Normalized {
				key := ts.Lang + ":" + tag
				if _, taken := index[key]; !taken {
					index[key] = n.ID
				}
			}
		}
	}
	return index
}
