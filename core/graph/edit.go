package graph

import (
	"fmt"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// MarkModified stores an edited node and flags it for re-rendering. Created
// nodes stay created.
func MarkModified(tx Tx, n *taxonomy.Node) error {
	if n.Status != taxonomy.StatusCreated {
		n.Status = taxonomy.StatusModified
	}
	return tx.UpdateNode(n)
}

// AddEntry creates a new entry, links it into the chain just before the
// footer and attaches it to parentIDs in order.
func AddEntry(tx Tx, n *taxonomy.Node, parentIDs []string) error {
	n.Type = taxonomy.TypeEntry
	n.Status = taxonomy.StatusCreated
	n.SrcPosition = 0
	n.SrcLines = nil
	n.ParentTags = append([]string(nil), parentIDs...)

	created, err := tx.CreateNodes([]*taxonomy.Node{n}, taxonomy.TypeEntry)
	if err != nil {
		return err
	}
	if created != 1 {
		return &taxerrors.LinkCountMismatchError{Kind: "node", Expected: 1, Actual: created}
	}

	links, err := tx.OrderingLinks()
	if err != nil {
		return err
	}
	before := ""
	for _, l := range links {
		if l.ID == taxonomy.FooterID {
			before = l.BeforeID
			break
		}
	}
	if before == "" {
		return &taxerrors.BrokenChainError{NodeID: taxonomy.FooterID, Reason: "footer has no predecessor"}
	}
	if err := tx.RemoveOrderingLink(before, taxonomy.FooterID); err != nil {
		return err
	}
	if _, err := tx.CreateOrderingLinks([]taxonomy.OrderingLink{
		{BeforeID: before, ID: n.ID},
		{BeforeID: n.ID, ID: taxonomy.FooterID},
	}); err != nil {
		return err
	}
	return createParentLinks(tx, n.ID, parentIDs)
}

// RemoveNode flags a node as removed. It stays in the chain so a patch
// rendering knows which lines it owned. Its children are marked modified
// so their parent lines are rewritten without it.
func RemoveNode(tx Tx, id string) error {
	n, err := tx.Node(id)
	if err != nil {
		return err
	}
	if n.Type == taxonomy.TypeText {
		return taxerrors.NewValidation("id", fmt.Sprintf("%s cannot be removed", id))
	}
	n.Status = taxonomy.StatusRemoved
	if err := tx.UpdateNode(n); err != nil {
		return err
	}

	links, err := tx.ChildLinks()
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.ParentID != id {
			continue
		}
		child, err := tx.Node(l.ChildID)
		if err != nil {
			return err
		}
		if child.Status == taxonomy.StatusRemoved {
			continue
		}
		if err := MarkModified(tx, child); err != nil {
			return err
		}
	}
	return nil
}

// SetParents replaces the parents of an entry and marks it modified.
func SetParents(tx Tx, childID string, parentIDs []string) error {
	n, err := tx.Node(childID)
	if err != nil {
		return err
	}
	if err := tx.RemoveChildLinks(childID); err != nil {
		return err
	}
	if err := createParentLinks(tx, childID, parentIDs); err != nil {
		return err
	}
	n.ParentTags = append([]string(nil), parentIDs...)
	return MarkModified(tx, n)
}

func createParentLinks(tx Tx, childID string, parentIDs []string) error {
	if len(parentIDs) == 0 {
		return nil
	}
	links := make([]taxonomy.ChildLink, len(parentIDs))
	for i, p := range parentIDs {
		links[i] = taxonomy.ChildLink{ParentID: p, ChildID: childID, Position: i}
	}
	created, err := tx.CreateChildLinks(links)
	if err != nil {
		return err
	}
	if created != len(links) {
		return &taxerrors.LinkCountMismatchError{Kind: "child", Expected: len(links), Actual: created}
	}
	return nil
}
