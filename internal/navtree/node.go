// Package navtree builds the data-registry navigation tree shown in the
// admin UI: one synthetic system root with user/category/module/block
// branches, plus lazily-expanded course-level branches.
package navtree

// ContextLevel identifies the kind of context a node points at.
type ContextLevel int

const (
	LevelSystem    ContextLevel = 10
	LevelUser      ContextLevel = 30
	LevelCourseCat ContextLevel = 40
	LevelCourse    ContextLevel = 50
	LevelModule    ContextLevel = 70
	LevelBlock     ContextLevel = 80
)

// Expand markers telling the UI which kind of children to fetch lazily
// for a node instead of pre-populating them.
const (
	ExpandCategory = "category"
	ExpandCourse   = "course"
	ExpandModule   = "module"
	ExpandBlock    = "block"
)

// ExpandedUnset marks a raw node whose expanded state has not been
// decided yet; Complete replaces it with 0 or 1.
const ExpandedUnset = -1

// Node is a navigation tree entry. Before Complete runs, any field may be
// at its zero value; after Complete every field is populated, Children is
// never nil and Expanded is 0 or 1.
type Node struct {
	Text            string       `json:"text"`
	ContextLevel    ContextLevel `json:"contextlevel"`
	ContextID       int64        `json:"contextid"`
	CategoryID      int64        `json:"categoryid"`
	Children        []*Node      `json:"children"`
	ExpandElement   string       `json:"expandelement"`
	ExpandContextID int64        `json:"expandcontextid"`
	Active          *bool        `json:"active"`
	Expanded        int          `json:"expanded"`
}

// NewNode returns a raw node with its expanded state undecided.
func NewNode(text string) *Node {
	return &Node{Text: text, Expanded: ExpandedUnset}
}

// Target selects the node to mark active: a context id when a specific
// instance is selected, or a bare context level for the static branches.
// Both fields are optional; the zero Target matches nothing.
type Target struct {
	Level     ContextLevel
	ContextID int64
}

// matches reports whether n is the node the target points at. A context
// id match takes priority: level-only matching applies only when the
// target carries no context id, and only to nodes that carry a level.
func (t Target) matches(n *Node) bool {
	if t.ContextID != 0 {
		return n.ContextID == t.ContextID
	}
	return n.ContextLevel != 0 && n.ContextLevel == t.Level
}

// CategoryRecord is one course category as supplied by the listing
// provider, already sorted by ascending depth and with its context id
// resolved.
type CategoryRecord struct {
	ID          int64
	Parent      int64
	Name        string
	CourseCount int
	ContextID   int64
}

// Labels carries the display strings for the static tree branches. The
// caller formats them for the current locale.
type Labels struct {
	Site       string
	Users      string
	Categories string
	Modules    string
	Blocks     string
}

// DefaultLabels returns the untranslated branch labels.
func DefaultLabels() Labels {
	return Labels{
		Site:       "Site",
		Users:      "Users",
		Categories: "Course categories",
		Modules:    "Activity modules",
		Blocks:     "Blocks",
	}
}
