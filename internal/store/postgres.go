package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"privacyreg/api/internal/navtree"
)

// PostgresStore implements the service's data access over the mirrored
// site structure and the registry tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSystemContext returns the single system-level context row.
func (s *PostgresStore) GetSystemContext(ctx context.Context) (Context, error) {
	var c Context
	err := s.db.QueryRowContext(ctx, `
		SELECT id, contextlevel, instanceid FROM contexts WHERE contextlevel=$1
	`, navtree.LevelSystem).Scan(&c.ID, &c.Level, &c.InstanceID)
	if err != nil {
		return Context{}, fmt.Errorf("system context: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetContext(ctx context.Context, contextID int64) (Context, error) {
	var c Context
	err := s.db.QueryRowContext(ctx, `
		SELECT id, contextlevel, instanceid FROM contexts WHERE id=$1
	`, contextID).Scan(&c.ID, &c.Level, &c.InstanceID)
	if err != nil {
		return Context{}, err
	}
	return c, nil
}

// ListCategories returns all course categories, hidden ones included,
// sorted parents-first. The depth ordering is what makes single-pass
// forest assembly in the tree builder converge quickly.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cc.id, cc.parent, cc.name, cc.depth, cc.sortorder, ctx.id,
			(SELECT COUNT(*) FROM courses c WHERE c.category_id = cc.id)
		FROM course_categories cc
		JOIN contexts ctx ON ctx.contextlevel = $1 AND ctx.instanceid = cc.id
		ORDER BY cc.depth ASC, cc.sortorder ASC
	`, navtree.LevelCourseCat)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := make([]Category, 0)
	for rows.Next() {
		var item Category
		if err := rows.Scan(&item.ID, &item.Parent, &item.Name, &item.Depth, &item.SortOrder, &item.ContextID, &item.CourseCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return items, nil
}

// ListCourses returns the courses of the category a context points at.
func (s *PostgresStore) ListCourses(ctx context.Context, categoryContextID int64) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.category_id, ctx.id, c.fullname
		FROM courses c
		JOIN contexts cat ON cat.id = $1
		JOIN contexts ctx ON ctx.contextlevel = $2 AND ctx.instanceid = c.id
		WHERE c.category_id = cat.instanceid
		ORDER BY c.sortorder ASC
	`, categoryContextID, navtree.LevelCourse)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	items := make([]Course, 0)
	for rows.Next() {
		var item Course
		if err := rows.Scan(&item.ID, &item.CategoryID, &item.ContextID, &item.FullName); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return items, nil
}

// ListModules returns the activity-module instances of the course a
// context points at, grouped by module type.
func (s *PostgresStore) ListModules(ctx context.Context, courseContextID int64) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.course_id, ctx.id, m.name, m.type_name
		FROM course_modules m
		JOIN contexts course ON course.id = $1
		JOIN contexts ctx ON ctx.contextlevel = $2 AND ctx.instanceid = m.id
		WHERE m.course_id = course.instanceid
		ORDER BY m.type_name ASC, m.sortorder ASC
	`, courseContextID, navtree.LevelModule)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	items := make([]Module, 0)
	for rows.Next() {
		var item Module
		if err := rows.Scan(&item.ID, &item.CourseID, &item.ContextID, &item.Name, &item.TypeName); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return items, nil
}

// ListBlocks returns the block instances of the course a context points at.
func (s *PostgresStore) ListBlocks(ctx context.Context, courseContextID int64) ([]Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.course_id, ctx.id, b.title
		FROM course_blocks b
		JOIN contexts course ON course.id = $1
		JOIN contexts ctx ON ctx.contextlevel = $2 AND ctx.instanceid = b.id
		WHERE b.course_id = course.instanceid
		ORDER BY b.sortorder ASC
	`, courseContextID, navtree.LevelBlock)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	items := make([]Block, 0)
	for rows.Next() {
		var item Block
		if err := rows.Scan(&item.ID, &item.CourseID, &item.ContextID, &item.Title); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListPurposes(ctx context.Context) ([]Purpose, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, retention_period, protected
		FROM purposes
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list purposes: %w", err)
	}
	defer rows.Close()

	items := make([]Purpose, 0)
	for rows.Next() {
		var item Purpose
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.RetentionPeriod, &item.ProtectedFlag); err != nil {
			return nil, fmt.Errorf("scan purpose: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purposes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListDataCategories(ctx context.Context) ([]DataCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description
		FROM data_categories
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list data categories: %w", err)
	}
	defer rows.Close()

	items := make([]DataCategory, 0)
	for rows.Next() {
		var item DataCategory
		if err := rows.Scan(&item.ID, &item.Name, &item.Description); err != nil {
			return nil, fmt.Errorf("scan data category: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data categories: %w", err)
	}
	return items, nil
}

// GetAssignment returns the purpose/category assignment of a context.
// A context with no row yet gets the zero assignment (everything unset).
func (s *PostgresStore) GetAssignment(ctx context.Context, contextID int64) (Assignment, error) {
	var a Assignment
	err := s.db.QueryRowContext(ctx, `
		SELECT context_id, purpose_id, category_id, updated_by, updated_at
		FROM context_assignments
		WHERE context_id=$1
	`, contextID).Scan(&a.ContextID, &a.PurposeID, &a.CategoryID, &a.UpdatedBy, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{ContextID: contextID}, nil
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) SetAssignment(ctx context.Context, a Assignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_assignments (context_id, purpose_id, category_id, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (context_id) DO UPDATE
			SET purpose_id=EXCLUDED.purpose_id,
			    category_id=EXCLUDED.category_id,
			    updated_by=EXCLUDED.updated_by,
			    updated_at=NOW()
	`, a.ContextID, a.PurposeID, a.CategoryID, a.UpdatedBy)
	if err != nil {
		return fmt.Errorf("set assignment: %w", err)
	}
	return nil
}

// ListAssignments returns every explicit assignment, for the audit
// snapshot and the registry report.
func (s *PostgresStore) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT context_id, purpose_id, category_id, updated_by, updated_at
		FROM context_assignments
		ORDER BY context_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]Assignment, 0)
	for rows.Next() {
		var item Assignment
		if err := rows.Scan(&item.ContextID, &item.PurposeID, &item.CategoryID, &item.UpdatedBy, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return items, nil
}

// ContextName resolves the display name of a context instance for the
// search index and the report.
func (s *PostgresStore) ContextName(ctx context.Context, contextID int64) (string, error) {
	c, err := s.GetContext(ctx, contextID)
	if err != nil {
		return "", err
	}
	switch c.Level {
	case navtree.LevelSystem:
		return "Site", nil
	case navtree.LevelCourseCat:
		var name string
		err = s.db.QueryRowContext(ctx, `SELECT name FROM course_categories WHERE id=$1`, c.InstanceID).Scan(&name)
		return name, err
	case navtree.LevelCourse:
		var name string
		err = s.db.QueryRowContext(ctx, `SELECT fullname FROM courses WHERE id=$1`, c.InstanceID).Scan(&name)
		return name, err
	case navtree.LevelModule:
		var name string
		err = s.db.QueryRowContext(ctx, `SELECT name FROM course_modules WHERE id=$1`, c.InstanceID).Scan(&name)
		return name, err
	case navtree.LevelBlock:
		var title string
		err = s.db.QueryRowContext(ctx, `SELECT title FROM course_blocks WHERE id=$1`, c.InstanceID).Scan(&title)
		return title, err
	default:
		return fmt.Sprintf("context %d", contextID), nil
	}
}

func (s *PostgresStore) GetAdminByEmail(ctx context.Context, email string) (AdminUser, error) {
	var u AdminUser
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at
		FROM admin_users WHERE email=$1
	`, email).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return AdminUser{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetAdminByID(ctx context.Context, id string) (AdminUser, error) {
	var u AdminUser
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at
		FROM admin_users WHERE id=$1
	`, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return AdminUser{}, err
	}
	return u, nil
}

func (s *PostgresStore) InsertAdmin(ctx context.Context, u AdminUser) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Role)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertExportJob(ctx context.Context, job ExportJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, format, object_key, requested_by)
		VALUES ($1, $2, $3, $4)
	`, job.ID, job.Format, job.ObjectKey, job.RequestedBy)
	if err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

