package catalog

import (
	"fmt"
	"sort"

	"platesync/internal/models"
)

// BuildTree turns the flat category list into an ordered forest. Modifier
// groups never appear in the tree. A category whose parent is missing or is a
// modifier group is orphaned and appears nowhere; re-rooting orphans would
// change what the vendor published, so they are dropped as-is.
func BuildTree(categories []models.CategorySnapshot) []*models.CategoryNode {
	if len(categories) == 0 {
		return nil
	}

	sorted := make([]models.CategorySnapshot, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	const rootKey = ""

	nodes := make([]*models.CategoryNode, 0, len(sorted))
	children := make(map[string][]*models.CategoryNode)

	for i := range sorted {
		if sorted[i].IsModifierGroup {
			continue
		}

		node := &models.CategoryNode{CategorySnapshot: sorted[i]}
		nodes = append(nodes, node)

		parent := rootKey
		if sorted[i].ParentID != nil {
			parent = *sorted[i].ParentID
		}
		children[parent] = append(children[parent], node)
	}

	for _, node := range nodes {
		node.Children = children[node.ID]
	}

	return children[rootKey]
}

// ValidateForImport checks one chosen category against the snapshot rules.
// The returned error message is user-facing; it ends up in the run log.
func ValidateForImport(c models.CategorySnapshot) error {
	switch {
	case c.Name == "":
		return fmt.Errorf("category %s has no name", c.ID)
	case c.IsModifierGroup:
		return fmt.Errorf("category %s is a modifier group", c.Name)
	case c.IsDeleted:
		return fmt.Errorf("category %s is deleted upstream", c.Name)
	case !c.IsPublished:
		return fmt.Errorf("category %s is excluded from the menu", c.Name)
	}
	return nil
}
