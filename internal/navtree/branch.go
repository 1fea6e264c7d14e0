package navtree

import "fmt"

// CourseRecord is one course under a category context.
type CourseRecord struct {
	ContextID int64
	Name      string
}

// ModuleRecord is one activity-module instance in a course, along with
// its module type's display name.
type ModuleRecord struct {
	ContextID int64
	Name      string
	TypeName  string
}

// BlockRecord is one block instance in a course.
type BlockRecord struct {
	ContextID int64
	Title     string
}

// CourseBranch maps a category's courses to a flat list of completed
// nodes. No target is involved, so Active stays null on every node.
func CourseBranch(courses []CourseRecord) []*Node {
	nodes := make([]*Node, 0, len(courses))
	for _, course := range courses {
		node := NewNode(course.Name)
		node.ContextLevel = LevelCourse
		node.ContextID = course.ContextID
		nodes = append(nodes, Complete(node, Target{}))
	}
	return nodes
}

// ModuleBranch maps a course's activity modules to completed nodes. The
// display string combines the instance name with its type's name.
func ModuleBranch(modules []ModuleRecord) []*Node {
	nodes := make([]*Node, 0, len(modules))
	for _, mod := range modules {
		node := NewNode(fmt.Sprintf("%s (%s)", mod.Name, mod.TypeName))
		node.ContextLevel = LevelModule
		node.ContextID = mod.ContextID
		nodes = append(nodes, Complete(node, Target{}))
	}
	return nodes
}

// BlockBranch maps a course's blocks to completed nodes.
func BlockBranch(blocks []BlockRecord) []*Node {
	nodes := make([]*Node, 0, len(blocks))
	for _, block := range blocks {
		node := NewNode(block.Title)
		node.ContextLevel = LevelBlock
		node.ContextID = block.ContextID
		nodes = append(nodes, Complete(node, Target{}))
	}
	return nodes
}
