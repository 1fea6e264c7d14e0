package store

import (
	"time"

	"privacyreg/api/internal/navtree"
)

// Context is one row of the mirrored context table: a scope in the host
// platform's hierarchy (system, user, category, course, module, block).
type Context struct {
	ID         int64
	Level      navtree.ContextLevel
	InstanceID int64
}

// Category is a course category mirrored from the host platform. Depth
// is stored so listings can be served parents-first.
type Category struct {
	ID          int64
	Parent      int64
	Name        string
	Depth       int
	SortOrder   int
	ContextID   int64
	CourseCount int
}

// Course is a course inside a category.
type Course struct {
	ID         int64
	CategoryID int64
	ContextID  int64
	FullName   string
}

// Module is an activity-module instance inside a course, carrying its
// type's display name for the composed label.
type Module struct {
	ID        int64
	CourseID  int64
	ContextID int64
	Name      string
	TypeName  string
}

// Block is a block instance inside a course.
type Block struct {
	ID        int64
	CourseID  int64
	ContextID int64
	Title     string
}

// Purpose describes why data is held at a context, with an ISO 8601
// retention period.
type Purpose struct {
	ID              int64
	Name            string
	Description     string
	RetentionPeriod string
	ProtectedFlag   bool
}

// DataCategory classifies the kind of data held at a context.
type DataCategory struct {
	ID          int64
	Name        string
	Description string
}

// Assignment binds a purpose and a data category to a context. Zero ids
// mean "not set" (the UI resolves inheritance from the parent context).
type Assignment struct {
	ContextID  int64
	PurposeID  int64
	CategoryID int64
	UpdatedBy  string
	UpdatedAt  time.Time
}

// AdminUser is a provisioned registry administrator.
type AdminUser struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// ExportJob records a generated registry report and where its artifact
// ended up.
type ExportJob struct {
	ID          string
	Format      string
	ObjectKey   string
	RequestedBy string
	CreatedAt   time.Time
}
