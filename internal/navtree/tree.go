package navtree

// BuildDefaultTree assembles and normalizes the whole navigation tree:
// one system root carrying four static children in fixed order: a user
// leaf, the category forest branch, a module leaf and a block leaf. The
// returned slice always has length one; the UI contract is an array of
// roots even though there is exactly one. Dropped category ids are passed
// through from BuildCategoryForest.
func BuildDefaultTree(target Target, systemContextID int64, categories []CategoryRecord, labels Labels) (tree []*Node, dropped []int64) {
	root := NewNode(labels.Site)
	root.ContextLevel = LevelSystem
	root.ContextID = systemContextID

	users := NewNode(labels.Users)
	users.ContextLevel = LevelUser

	forest, dropped := BuildCategoryForest(categories)
	cats := NewNode(labels.Categories)
	cats.ExpandElement = ExpandCategory
	cats.ExpandContextID = systemContextID
	cats.Children = forest

	modules := NewNode(labels.Modules)
	modules.ContextLevel = LevelModule

	blocks := NewNode(labels.Blocks)
	blocks.ContextLevel = LevelBlock

	root.Children = []*Node{users, cats, modules, blocks}

	return []*Node{Complete(root, target)}, dropped
}
