package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"privacyreg/api/internal/audit"
	"privacyreg/api/internal/config"
	"privacyreg/api/internal/navtree"
	"privacyreg/api/internal/session"
	"privacyreg/api/internal/store"
)

type fakeStore struct {
	getSystemContextFn   func(context.Context) (store.Context, error)
	getContextFn         func(context.Context, int64) (store.Context, error)
	listCategoriesFn     func(context.Context) ([]store.Category, error)
	listCoursesFn        func(context.Context, int64) ([]store.Course, error)
	listModulesFn        func(context.Context, int64) ([]store.Module, error)
	listBlocksFn         func(context.Context, int64) ([]store.Block, error)
	listPurposesFn       func(context.Context) ([]store.Purpose, error)
	listDataCategoriesFn func(context.Context) ([]store.DataCategory, error)
	getAssignmentFn      func(context.Context, int64) (store.Assignment, error)
	setAssignmentFn      func(context.Context, store.Assignment) error
	listAssignmentsFn    func(context.Context) ([]store.Assignment, error)
	contextNameFn        func(context.Context, int64) (string, error)
	getAdminByEmailFn    func(context.Context, string) (store.AdminUser, error)
	getAdminByIDFn       func(context.Context, string) (store.AdminUser, error)
	insertAdminFn        func(context.Context, store.AdminUser) error
	insertExportJobFn    func(context.Context, store.ExportJob) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) GetSystemContext(ctx context.Context) (store.Context, error) {
	if f.getSystemContextFn != nil {
		return f.getSystemContextFn(ctx)
	}
	return store.Context{ID: 1, Level: navtree.LevelSystem}, nil
}
func (f *fakeStore) GetContext(ctx context.Context, contextID int64) (store.Context, error) {
	if f.getContextFn != nil {
		return f.getContextFn(ctx, contextID)
	}
	return store.Context{}, sql.ErrNoRows
}
func (f *fakeStore) ListCategories(ctx context.Context) ([]store.Category, error) {
	if f.listCategoriesFn != nil {
		return f.listCategoriesFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ListCourses(ctx context.Context, contextID int64) ([]store.Course, error) {
	if f.listCoursesFn != nil {
		return f.listCoursesFn(ctx, contextID)
	}
	return nil, nil
}
func (f *fakeStore) ListModules(ctx context.Context, contextID int64) ([]store.Module, error) {
	if f.listModulesFn != nil {
		return f.listModulesFn(ctx, contextID)
	}
	return nil, nil
}
func (f *fakeStore) ListBlocks(ctx context.Context, contextID int64) ([]store.Block, error) {
	if f.listBlocksFn != nil {
		return f.listBlocksFn(ctx, contextID)
	}
	return nil, nil
}
func (f *fakeStore) ListPurposes(ctx context.Context) ([]store.Purpose, error) {
	if f.listPurposesFn != nil {
		return f.listPurposesFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ListDataCategories(ctx context.Context) ([]store.DataCategory, error) {
	if f.listDataCategoriesFn != nil {
		return f.listDataCategoriesFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) GetAssignment(ctx context.Context, contextID int64) (store.Assignment, error) {
	if f.getAssignmentFn != nil {
		return f.getAssignmentFn(ctx, contextID)
	}
	return store.Assignment{ContextID: contextID}, nil
}
func (f *fakeStore) SetAssignment(ctx context.Context, a store.Assignment) error {
	if f.setAssignmentFn != nil {
		return f.setAssignmentFn(ctx, a)
	}
	return nil
}
func (f *fakeStore) ListAssignments(ctx context.Context) ([]store.Assignment, error) {
	if f.listAssignmentsFn != nil {
		return f.listAssignmentsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ContextName(ctx context.Context, contextID int64) (string, error) {
	if f.contextNameFn != nil {
		return f.contextNameFn(ctx, contextID)
	}
	return "", sql.ErrNoRows
}
func (f *fakeStore) GetAdminByEmail(ctx context.Context, email string) (store.AdminUser, error) {
	if f.getAdminByEmailFn != nil {
		return f.getAdminByEmailFn(ctx, email)
	}
	return store.AdminUser{}, sql.ErrNoRows
}
func (f *fakeStore) GetAdminByID(ctx context.Context, id string) (store.AdminUser, error) {
	if f.getAdminByIDFn != nil {
		return f.getAdminByIDFn(ctx, id)
	}
	return store.AdminUser{}, sql.ErrNoRows
}
func (f *fakeStore) InsertAdmin(ctx context.Context, u store.AdminUser) error {
	if f.insertAdminFn != nil {
		return f.insertAdminFn(ctx, u)
	}
	return nil
}
func (f *fakeStore) InsertExportJob(ctx context.Context, job store.ExportJob) error {
	if f.insertExportJobFn != nil {
		return f.insertExportJobFn(ctx, job)
	}
	return nil
}

type fakeSessions struct {
	saved map[string]session.TokenData
}

func (f *fakeSessions) Save(_ context.Context, hash string, data session.TokenData, _ time.Time) error {
	if f.saved == nil {
		f.saved = map[string]session.TokenData{}
	}
	f.saved[hash] = data
	return nil
}
func (f *fakeSessions) Lookup(_ context.Context, hash string) (session.TokenData, error) {
	data, ok := f.saved[hash]
	if !ok {
		return session.TokenData{}, errors.New("refresh session not found")
	}
	return data, nil
}
func (f *fakeSessions) Revoke(_ context.Context, hash string) error {
	delete(f.saved, hash)
	return nil
}

type fakeHistory struct {
	messages  []string
	snapshots []audit.Snapshot
}

func (f *fakeHistory) Ensure() error { return nil }
func (f *fakeHistory) Commit(snapshot audit.Snapshot, author, message string) (audit.Entry, error) {
	f.messages = append(f.messages, message)
	f.snapshots = append(f.snapshots, snapshot)
	return audit.Entry{Hash: "abc123", Author: author, Message: message}, nil
}
func (f *fakeHistory) History(int) ([]audit.Entry, error)       { return []audit.Entry{}, nil }
func (f *fakeHistory) SnapshotAt(string) (audit.Snapshot, error) { return audit.Snapshot{}, nil }

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		store:    fs,
		sessions: &fakeSessions{},
		history:  &fakeHistory{},
		labels:   navtree.DefaultLabels(),
	}
}

func TestContextTreeShape(t *testing.T) {
	svc := newTestService(&fakeStore{
		listCategoriesFn: func(context.Context) ([]store.Category, error) {
			return []store.Category{
				{ID: 1, Parent: 0, Name: "Science", CourseCount: 2, ContextID: 11},
				{ID: 2, Parent: 1, Name: "Physics", CourseCount: 0, ContextID: 12},
			}, nil
		},
	})

	tree, err := svc.ContextTree(context.Background(), navtree.Target{})
	if err != nil {
		t.Fatalf("ContextTree: %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("expected single root, got %d", len(tree))
	}
	root := tree[0]
	if root.Text != "Site" || root.ContextLevel != navtree.LevelSystem || root.ContextID != 1 {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.Children) != 4 {
		t.Fatalf("expected 4 static children, got %d", len(root.Children))
	}
	if root.Expanded != 1 {
		t.Fatalf("root with children should be expanded, got %d", root.Expanded)
	}

	cats := root.Children[1]
	if cats.Text != "Course categories" || cats.ExpandElement != navtree.ExpandCategory {
		t.Fatalf("unexpected categories branch: %+v", cats)
	}
	if len(cats.Children) != 1 {
		t.Fatalf("expected one top-level category, got %d", len(cats.Children))
	}
	science := cats.Children[0]
	if science.CategoryID != 1 || science.ContextID != 11 {
		t.Fatalf("unexpected category node: %+v", science)
	}
	// Physics nests under Science, next to the course placeholder.
	if len(science.Children) != 2 {
		t.Fatalf("expected placeholder + nested category, got %d children", len(science.Children))
	}
}

func TestContextTreeMarksLevelTarget(t *testing.T) {
	svc := newTestService(&fakeStore{})

	tree, err := svc.ContextTree(context.Background(), navtree.Target{Level: navtree.LevelModule})
	if err != nil {
		t.Fatalf("ContextTree: %v", err)
	}
	root := tree[0]
	active := 0
	for _, child := range root.Children {
		if child.Active != nil && *child.Active {
			active++
			if child.ContextLevel != navtree.LevelModule {
				t.Fatalf("wrong node marked active: %+v", child)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active node, got %d", active)
	}
	if root.Active != nil {
		t.Fatalf("root should not be marked active, got %v", *root.Active)
	}
}

func TestCourseBranchRejectsWrongLevel(t *testing.T) {
	svc := newTestService(&fakeStore{
		getContextFn: func(_ context.Context, contextID int64) (store.Context, error) {
			return store.Context{ID: contextID, Level: navtree.LevelCourse}, nil
		},
	})

	_, err := svc.CourseBranch(context.Background(), 42)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 422 || domainErr.Code != "WRONG_CONTEXT_LEVEL" {
		t.Fatalf("unexpected error: %+v", domainErr)
	}
}

func TestCourseBranchUnknownContext(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CourseBranch(context.Background(), 999)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 404 {
		t.Fatalf("expected 404, got %d", domainErr.Status)
	}
}

func TestModuleBranchComposesTypeName(t *testing.T) {
	svc := newTestService(&fakeStore{
		getContextFn: func(_ context.Context, contextID int64) (store.Context, error) {
			return store.Context{ID: contextID, Level: navtree.LevelCourse}, nil
		},
		listModulesFn: func(context.Context, int64) ([]store.Module, error) {
			return []store.Module{{ContextID: 70, Name: "Week 1 quiz", TypeName: "Quiz"}}, nil
		},
	})

	nodes, err := svc.ModuleBranch(context.Background(), 50)
	if err != nil {
		t.Fatalf("ModuleBranch: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Text != "Week 1 quiz (Quiz)" {
		t.Fatalf("unexpected module nodes: %+v", nodes)
	}
	if nodes[0].Active != nil {
		t.Fatalf("branch nodes should not carry an active flag")
	}
}

func TestPurposeOptionsPrependNotSet(t *testing.T) {
	svc := newTestService(&fakeStore{
		listPurposesFn: func(context.Context) ([]store.Purpose, error) {
			return []store.Purpose{{ID: 3, Name: "Contract"}}, nil
		},
	})

	options, err := svc.PurposeOptions(context.Background())
	if err != nil {
		t.Fatalf("PurposeOptions: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	if options[0].ID != 0 || options[0].Name != "Not set" {
		t.Fatalf("first option must be the synthetic Not set entry, got %+v", options[0])
	}
	if options[1].ID != 3 || options[1].Name != "Contract" {
		t.Fatalf("unexpected second option: %+v", options[1])
	}
}

func TestPurposeOptionsEmptyStore(t *testing.T) {
	svc := newTestService(&fakeStore{})

	options, err := svc.PurposeOptions(context.Background())
	if err != nil {
		t.Fatalf("PurposeOptions: %v", err)
	}
	if len(options) != 1 || options[0].ID != 0 {
		t.Fatalf("empty store should still yield the Not set option, got %+v", options)
	}
}

func TestAssignRecordsHistory(t *testing.T) {
	var saved store.Assignment
	fs := &fakeStore{
		getContextFn: func(_ context.Context, contextID int64) (store.Context, error) {
			return store.Context{ID: contextID, Level: navtree.LevelCourse}, nil
		},
		setAssignmentFn: func(_ context.Context, a store.Assignment) error {
			saved = a
			return nil
		},
		contextNameFn: func(context.Context, int64) (string, error) {
			return "Algebra 101", nil
		},
		listAssignmentsFn: func(context.Context) ([]store.Assignment, error) {
			return []store.Assignment{{ContextID: 42, PurposeID: 3, CategoryID: 7}}, nil
		},
	}
	history := &fakeHistory{}
	svc := newTestService(fs)
	svc.history = history

	payload, err := svc.Assign(context.Background(), 42, AssignInput{PurposeID: 3, CategoryID: 7}, "Dana")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if saved.ContextID != 42 || saved.PurposeID != 3 || saved.CategoryID != 7 || saved.UpdatedBy != "Dana" {
		t.Fatalf("unexpected stored assignment: %+v", saved)
	}
	if payload["purposeId"] != int64(3) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(history.messages) != 1 || !strings.Contains(history.messages[0], "Algebra 101") {
		t.Fatalf("expected one history commit naming the context, got %v", history.messages)
	}
	if len(history.snapshots[0].Assignments) != 1 {
		t.Fatalf("snapshot should carry the assignment list: %+v", history.snapshots[0])
	}
}

func TestAssignRejectsNegativeIDs(t *testing.T) {
	svc := newTestService(&fakeStore{
		getContextFn: func(_ context.Context, contextID int64) (store.Context, error) {
			return store.Context{ID: contextID, Level: navtree.LevelCourse}, nil
		},
	})

	_, err := svc.Assign(context.Background(), 42, AssignInput{PurposeID: -1}, "Dana")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	admin := store.AdminUser{ID: "adm-1", Email: "dpo@example.com", DisplayName: "Dana", PasswordHash: string(hash), Role: "dpo"}
	svc := newTestService(&fakeStore{
		getAdminByEmailFn: func(_ context.Context, email string) (store.AdminUser, error) {
			if email != "dpo@example.com" {
				return store.AdminUser{}, sql.ErrNoRows
			}
			return admin, nil
		},
		getAdminByIDFn: func(context.Context, string) (store.AdminUser, error) {
			return admin, nil
		},
	})

	if _, err := svc.Login(context.Background(), "dpo@example.com", "wrong"); err == nil {
		t.Fatalf("expected login failure with wrong password")
	}

	sess, err := svc.Login(context.Background(), "DPO@example.com ", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Role != "dpo" || sess.Token == "" || sess.RefreshToken == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	parsed, err := svc.SessionFromToken(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.AdminID != "adm-1" {
		t.Fatalf("unexpected parsed session: %+v", parsed)
	}

	rotated, err := svc.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == sess.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	// The old refresh token is single use.
	if _, err := svc.Refresh(context.Background(), sess.RefreshToken); err == nil {
		t.Fatalf("expected reused refresh token to be rejected")
	}
}
