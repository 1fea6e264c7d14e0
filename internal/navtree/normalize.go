package navtree

// Complete returns a fully-populated copy of n and its descendants. An
// explicit Active value is preserved verbatim; otherwise the node is
// marked active iff it matches the target (nil when it does not, so the
// serialized tree carries boolean-or-null). Children are completed before
// the expanded default is derived, since that default inspects them.
func Complete(n *Node, target Target) *Node {
	out := &Node{
		Text:            n.Text,
		ContextLevel:    n.ContextLevel,
		ContextID:       n.ContextID,
		CategoryID:      n.CategoryID,
		ExpandElement:   n.ExpandElement,
		ExpandContextID: n.ExpandContextID,
		Expanded:        n.Expanded,
	}

	if n.Active != nil {
		active := *n.Active
		out.Active = &active
	} else if target.matches(n) {
		active := true
		out.Active = &active
	}

	out.Children = make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		out.Children = append(out.Children, Complete(child, target))
	}

	if out.Expanded == ExpandedUnset {
		if len(out.Children) > 0 {
			out.Expanded = 1
		} else {
			out.Expanded = 0
		}
	}

	return out
}
