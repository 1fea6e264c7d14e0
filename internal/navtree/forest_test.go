package navtree

import "testing"

func TestBuildCategoryForestNesting(t *testing.T) {
	categories := []CategoryRecord{
		{ID: 1, Parent: 0, Name: "Science", ContextID: 101},
		{ID: 2, Parent: 1, Name: "Physics", ContextID: 102},
		{ID: 3, Parent: 1, Name: "Biology", ContextID: 103},
		{ID: 4, Parent: 2, Name: "Quantum", ContextID: 104},
	}

	forest, dropped := BuildCategoryForest(categories)
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped categories: %v", dropped)
	}
	if len(forest) != 1 {
		t.Fatalf("expected one root, got %d", len(forest))
	}
	root := forest[0]
	if root.CategoryID != 1 || len(root.Children) != 2 {
		t.Fatalf("root: categoryid=%d children=%d, want 1 and 2", root.CategoryID, len(root.Children))
	}
	physics := root.Children[0]
	if physics.CategoryID != 2 || len(physics.Children) != 1 {
		t.Fatalf("physics: categoryid=%d children=%d, want 2 and 1", physics.CategoryID, len(physics.Children))
	}
	if physics.Children[0].CategoryID != 4 {
		t.Fatalf("expected quantum under physics, got categoryid=%d", physics.Children[0].CategoryID)
	}
	if root.Children[1].CategoryID != 3 {
		t.Fatalf("expected biology as second child, got categoryid=%d", root.Children[1].CategoryID)
	}
}

func TestBuildCategoryForestCoursePlaceholder(t *testing.T) {
	forest, _ := BuildCategoryForest([]CategoryRecord{
		{ID: 1, Parent: 0, Name: "Languages", CourseCount: 3, ContextID: 201},
	})

	root := forest[0]
	if len(root.Children) != 1 {
		t.Fatalf("expected exactly one placeholder child, got %d", len(root.Children))
	}
	placeholder := root.Children[0]
	if placeholder.ExpandElement != ExpandCourse {
		t.Fatalf("placeholder expandelement = %q, want %q", placeholder.ExpandElement, ExpandCourse)
	}
	if placeholder.ExpandContextID != 201 {
		t.Fatalf("placeholder expandcontextid = %d, want 201", placeholder.ExpandContextID)
	}

	completed := Complete(root, Target{})
	child := completed.Children[0]
	if child.Expanded != 0 {
		t.Fatalf("normalized placeholder expanded = %d, want 0", child.Expanded)
	}
	if child.Children == nil || len(child.Children) != 0 {
		t.Fatalf("normalized placeholder must carry an empty children slice")
	}
}

func TestBuildCategoryForestDropsOrphans(t *testing.T) {
	forest, dropped := BuildCategoryForest([]CategoryRecord{
		{ID: 1, Parent: 0, Name: "Root"},
		{ID: 9, Parent: 7, Name: "Orphan"}, // parent 7 never appears
	})

	if len(forest) != 1 || forest[0].CategoryID != 1 {
		t.Fatalf("orphan must not surface in the forest")
	}
	if len(dropped) != 1 || dropped[0] != 9 {
		t.Fatalf("dropped = %v, want [9]", dropped)
	}
}

func TestBuildCategoryForestPlacesLateParents(t *testing.T) {
	// Same depth but the child record precedes its sibling-branch parent;
	// the pending rounds must still converge.
	forest, dropped := BuildCategoryForest([]CategoryRecord{
		{ID: 1, Parent: 0, Name: "A"},
		{ID: 3, Parent: 2, Name: "A.B.C"},
		{ID: 2, Parent: 1, Name: "A.B"},
	})
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped categories: %v", dropped)
	}
	if len(forest) != 1 {
		t.Fatalf("expected one root, got %d", len(forest))
	}
	ab := forest[0].Children[0]
	if ab.CategoryID != 2 || len(ab.Children) != 1 || ab.Children[0].CategoryID != 3 {
		t.Fatalf("out-of-order child was not re-attempted on a later round")
	}
}

func TestBuildCategoryForestEmptyInput(t *testing.T) {
	forest, dropped := BuildCategoryForest(nil)
	if forest == nil || len(forest) != 0 {
		t.Fatalf("empty input must yield an empty, non-nil forest")
	}
	if len(dropped) != 0 {
		t.Fatalf("empty input must drop nothing")
	}
}
