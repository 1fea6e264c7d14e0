package navtree

// BuildCategoryForest assembles the nested category forest from a flat,
// depth-ascending category listing. Root categories (Parent == 0) become
// top-level trees; every other record is attached under the node whose
// CategoryID equals its Parent, found by depth-first search over the
// forest built so far.
//
// A single top-to-bottom pass is not enough: a record's parent may itself
// still be pending when the record is visited, so placement runs in
// rounds over the remaining records until a full round places nothing.
// With depth-sorted input this terminates after at most depth rounds; the
// per-node parent search makes it quadratic in the worst case, which is
// fine for the small category counts a site actually has.
//
// Records whose parent never appears are dropped and their ids returned,
// so the caller can log them. This mirrors the host platform's behavior:
// an orphaned category is a data-quality wrinkle, not an error.
func BuildCategoryForest(categories []CategoryRecord) (forest []*Node, dropped []int64) {
	forest = make([]*Node, 0, len(categories))
	pending := make([]CategoryRecord, len(categories))
	copy(pending, categories)

	for len(pending) > 0 {
		placed := false
		var remaining []CategoryRecord
		for _, rec := range pending {
			node := categoryNode(rec)
			if rec.Parent == 0 {
				forest = append(forest, node)
				placed = true
				continue
			}
			if parent := findByCategoryID(forest, rec.Parent); parent != nil {
				parent.Children = append(parent.Children, node)
				placed = true
				continue
			}
			remaining = append(remaining, rec)
		}
		pending = remaining
		if !placed {
			break
		}
	}

	for _, rec := range pending {
		dropped = append(dropped, rec.ID)
	}
	return forest, dropped
}

func categoryNode(rec CategoryRecord) *Node {
	node := NewNode(rec.Name)
	node.CategoryID = rec.ID
	node.ContextID = rec.ContextID
	if rec.CourseCount > 0 {
		// Placeholder child so the UI offers to fetch the courses.
		child := NewNode("")
		child.ExpandElement = ExpandCourse
		child.ExpandContextID = rec.ContextID
		node.Children = append(node.Children, child)
	}
	return node
}

func findByCategoryID(nodes []*Node, categoryID int64) *Node {
	for _, n := range nodes {
		if n.CategoryID == categoryID {
			return n
		}
		if found := findByCategoryID(n.Children, categoryID); found != nil {
			return found
		}
	}
	return nil
}
