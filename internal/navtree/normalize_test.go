package navtree

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCompletePopulatesEveryField(t *testing.T) {
	raw := NewNode("Users")
	raw.ContextLevel = LevelUser

	got := Complete(raw, Target{})

	payload, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal completed node: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal completed node: %v", err)
	}
	for _, key := range []string{"text", "active", "children", "expandelement", "expandcontextid", "contextid", "contextlevel", "expanded"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("completed node missing field %q", key)
		}
	}
	if got.Children == nil {
		t.Fatalf("children must default to an empty slice")
	}
	if got.Expanded != 0 {
		t.Fatalf("leaf node expanded = %d, want 0", got.Expanded)
	}
}

func TestCompleteExpandedFollowsChildren(t *testing.T) {
	parent := NewNode("parent")
	parent.Children = []*Node{NewNode("child")}

	got := Complete(parent, Target{})
	if got.Expanded != 1 {
		t.Fatalf("node with children: expanded = %d, want 1", got.Expanded)
	}
	if got.Children[0].Expanded != 0 {
		t.Fatalf("childless child: expanded = %d, want 0", got.Children[0].Expanded)
	}
}

func TestCompleteKeepsExplicitExpanded(t *testing.T) {
	parent := NewNode("parent")
	parent.Children = []*Node{NewNode("child")}
	parent.Expanded = 0 // explicitly collapsed despite having children

	got := Complete(parent, Target{})
	if got.Expanded != 0 {
		t.Fatalf("explicit expanded not preserved: got %d", got.Expanded)
	}
}

func TestCompleteMatchesTargetByLevel(t *testing.T) {
	root := NewNode("root")
	root.ContextLevel = LevelSystem
	module := NewNode("modules")
	module.ContextLevel = LevelModule
	plain := NewNode("categories") // carries no level; must never match
	root.Children = []*Node{plain, module}

	got := Complete(root, Target{Level: LevelModule})

	if got.Active != nil {
		t.Fatalf("root should not be active, got %v", *got.Active)
	}
	if got.Children[0].Active != nil {
		t.Fatalf("level-less node should not be active")
	}
	if got.Children[1].Active == nil || !*got.Children[1].Active {
		t.Fatalf("module node should be the single active node")
	}
}

func TestCompleteMatchesTargetByContextID(t *testing.T) {
	root := NewNode("root")
	root.ContextLevel = LevelSystem
	root.ContextID = 1
	child := NewNode("course")
	child.ContextID = 42
	// Same level as target would suggest, but context id must win.
	decoy := NewNode("decoy")
	decoy.ContextLevel = LevelSystem
	root.Children = []*Node{child, decoy}

	got := Complete(root, Target{Level: LevelSystem, ContextID: 42})

	if got.Active != nil {
		t.Fatalf("root must not be active on a contextid target")
	}
	if got.Children[1].Active != nil {
		t.Fatalf("level match must be ignored while a contextid target is set")
	}
	if got.Children[0].Active == nil || !*got.Children[0].Active {
		t.Fatalf("node with contextid 42 should be active")
	}
}

func TestCompleteNoMatchMarksNothing(t *testing.T) {
	root := NewNode("root")
	root.ContextID = 1
	root.Children = []*Node{NewNode("a"), NewNode("b")}

	got := Complete(root, Target{ContextID: 42})

	var walk func(*Node)
	walk = func(n *Node) {
		if n.Active != nil {
			t.Fatalf("no node should be active, %q is", n.Text)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(got)
}

func TestCompletePreservesExplicitActive(t *testing.T) {
	explicit := false
	raw := NewNode("course")
	raw.ContextID = 42
	raw.Active = &explicit

	got := Complete(raw, Target{ContextID: 42})
	if got.Active == nil || *got.Active {
		t.Fatalf("explicit active=false must survive normalization")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	root := NewNode("root")
	root.ContextLevel = LevelSystem
	child := NewNode("modules")
	child.ContextLevel = LevelModule
	root.Children = []*Node{child}
	target := Target{Level: LevelModule}

	once := Complete(root, target)
	twice := Complete(once, target)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("completing a completed tree changed it:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
