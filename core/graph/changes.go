package graph

import (
	"context"

	"github.com/FocuswithJustin/taxonomist/core/cas"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// DetectChanges marks unchanged nodes whose content no longer matches the
// fingerprint taken at creation as modified, for stores edited by tools
// that do not set the status themselves. It returns the ids it marked.
func DetectChanges(ctx context.Context, store Store) ([]string, error) {
	var marked []string
	err := store.Update(ctx, func(tx Tx) error {
		marked = nil
		prints, err := tx.Fingerprints()
		if err != nil {
			return err
		}
		items, err := tx.NodesWithParents(Filter{Statuses: []taxonomy.Status{taxonomy.StatusUnchanged}})
		if err != nil {
			return err
		}
		for _, it := range items {
			if want, ok := prints[it.Node.ID]; ok && cas.Fingerprint(it.Node) == want {
				continue
			}
			if err := MarkModified(tx, it.Node); err != nil {
				return err
			}
			marked = append(marked, it.Node.ID)
		}
		return nil
	})
	return marked, err
}
