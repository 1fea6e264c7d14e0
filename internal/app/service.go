package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"privacyreg/api/internal/audit"
	"privacyreg/api/internal/auth"
	"privacyreg/api/internal/cache"
	"privacyreg/api/internal/config"
	"privacyreg/api/internal/email"
	"privacyreg/api/internal/export"
	"privacyreg/api/internal/navtree"
	"privacyreg/api/internal/rbac"
	"privacyreg/api/internal/search"
	"privacyreg/api/internal/session"
	"privacyreg/api/internal/store"
	"privacyreg/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	AdminID      string
	AdminName    string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type AssignInput struct {
	PurposeID  int64 `json:"purposeId"`
	CategoryID int64 `json:"categoryId"`
}

type dataStore interface {
	Ping(context.Context) error
	GetSystemContext(context.Context) (store.Context, error)
	GetContext(context.Context, int64) (store.Context, error)
	ListCategories(context.Context) ([]store.Category, error)
	ListCourses(context.Context, int64) ([]store.Course, error)
	ListModules(context.Context, int64) ([]store.Module, error)
	ListBlocks(context.Context, int64) ([]store.Block, error)
	ListPurposes(context.Context) ([]store.Purpose, error)
	ListDataCategories(context.Context) ([]store.DataCategory, error)
	GetAssignment(context.Context, int64) (store.Assignment, error)
	SetAssignment(context.Context, store.Assignment) error
	ListAssignments(context.Context) ([]store.Assignment, error)
	ContextName(context.Context, int64) (string, error)
	GetAdminByEmail(context.Context, string) (store.AdminUser, error)
	GetAdminByID(context.Context, string) (store.AdminUser, error)
	InsertAdmin(context.Context, store.AdminUser) error
	InsertExportJob(context.Context, store.ExportJob) error
}

type refreshStore interface {
	Save(context.Context, string, session.TokenData, time.Time) error
	Lookup(context.Context, string) (session.TokenData, error)
	Revoke(context.Context, string) error
}

type historyService interface {
	Ensure() error
	Commit(audit.Snapshot, string, string) (audit.Entry, error)
	History(int) ([]audit.Entry, error)
	SnapshotAt(string) (audit.Snapshot, error)
}

type exportService interface {
	Generate(context.Context, export.Report, export.Format) (*export.Result, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	history  historyService
	cache    *cache.Cache
	search   *search.Service
	export   exportService
	email    *email.Service
	labels   navtree.Labels
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, history *audit.Service, optionCache *cache.Cache, searchService *search.Service, exporter *export.Service, mailer *email.Service) *Service {
	var exp exportService
	if exporter != nil {
		exp = exporter
	}
	var hist historyService
	if history != nil {
		hist = history
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		history:  hist,
		cache:    optionCache,
		search:   searchService,
		export:   exp,
		email:    mailer,
		labels:   navtree.DefaultLabels(),
	}
}

// Bootstrap prepares the side systems: the audit repository, the search
// index, and a first DPO account when the admin table is empty.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.history != nil {
		if err := s.history.Ensure(); err != nil {
			return fmt.Errorf("ensure audit repository: %w", err)
		}
	}
	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}

	_, err := s.store.GetAdminByEmail(ctx, "dpo@example.com")
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("privacyreg-dev"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.InsertAdmin(ctx, store.AdminUser{
		ID:           util.NewID("adm"),
		Email:        "dpo@example.com",
		DisplayName:  "Data Protection Officer",
		PasswordHash: string(hash),
		Role:         string(rbac.RoleDPO),
	})
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Login(ctx context.Context, emailAddr, password string) (Session, error) {
	admin, err := s.store.GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, admin.ID, admin.DisplayName, admin.Role)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	data, err := s.sessions.Lookup(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, data.AdminID, data.DisplayName, data.Role)
}

func (s *Service) issueSession(ctx context.Context, adminID, displayName, role string) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  adminID,
		Name: displayName,
		Role: role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), session.TokenData{
		AdminID:     adminID,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now,
	}, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		AdminID:      adminID,
		AdminName:    displayName,
		Role:         role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	admin, err := s.store.GetAdminByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return Session{
		Token:     token,
		AdminID:   admin.ID,
		AdminName: admin.DisplayName,
		Role:      admin.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ContextTree builds the full navigation tree for the given target. The
// category listing comes from the cache when warm; categories whose
// parent never appears are dropped from the tree and logged.
func (s *Service) ContextTree(ctx context.Context, target navtree.Target) ([]*navtree.Node, error) {
	system, err := s.store.GetSystemContext(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]navtree.CategoryRecord, 0, len(categories))
	for _, cat := range categories {
		records = append(records, navtree.CategoryRecord{
			ID:          cat.ID,
			Parent:      cat.Parent,
			Name:        cat.Name,
			CourseCount: cat.CourseCount,
			ContextID:   cat.ContextID,
		})
	}

	tree, dropped := navtree.BuildDefaultTree(target, system.ID, records, s.labels)
	if len(dropped) > 0 {
		log.Printf("navtree: dropped categories with unknown parents: %v", dropped)
	}
	return tree, nil
}

func (s *Service) categories(ctx context.Context) ([]store.Category, error) {
	if s.cache != nil {
		if items, ok := s.cache.Categories(ctx); ok {
			return items, nil
		}
	}
	items, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetCategories(ctx, items)
	}
	return items, nil
}

// CourseBranch lists the course nodes under a category context. The
// context must exist and be a course-category context.
func (s *Service) CourseBranch(ctx context.Context, contextID int64) ([]*navtree.Node, error) {
	if err := s.requireLevel(ctx, contextID, navtree.LevelCourseCat); err != nil {
		return nil, err
	}
	courses, err := s.store.ListCourses(ctx, contextID)
	if err != nil {
		return nil, err
	}
	records := make([]navtree.CourseRecord, 0, len(courses))
	for _, course := range courses {
		records = append(records, navtree.CourseRecord{ContextID: course.ContextID, Name: course.FullName})
	}
	return navtree.CourseBranch(records), nil
}

// ModuleBranch lists the activity-module nodes under a course context.
func (s *Service) ModuleBranch(ctx context.Context, contextID int64) ([]*navtree.Node, error) {
	if err := s.requireLevel(ctx, contextID, navtree.LevelCourse); err != nil {
		return nil, err
	}
	modules, err := s.store.ListModules(ctx, contextID)
	if err != nil {
		return nil, err
	}
	records := make([]navtree.ModuleRecord, 0, len(modules))
	for _, mod := range modules {
		records = append(records, navtree.ModuleRecord{ContextID: mod.ContextID, Name: mod.Name, TypeName: mod.TypeName})
	}
	return navtree.ModuleBranch(records), nil
}

// BlockBranch lists the block nodes under a course context.
func (s *Service) BlockBranch(ctx context.Context, contextID int64) ([]*navtree.Node, error) {
	if err := s.requireLevel(ctx, contextID, navtree.LevelCourse); err != nil {
		return nil, err
	}
	blocks, err := s.store.ListBlocks(ctx, contextID)
	if err != nil {
		return nil, err
	}
	records := make([]navtree.BlockRecord, 0, len(blocks))
	for _, block := range blocks {
		records = append(records, navtree.BlockRecord{ContextID: block.ContextID, Title: block.Title})
	}
	return navtree.BlockBranch(records), nil
}

func (s *Service) requireLevel(ctx context.Context, contextID int64, level navtree.ContextLevel) error {
	target, err := s.store.GetContext(ctx, contextID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Context not found", nil)
		}
		return err
	}
	if target.Level != level {
		return domainError(http.StatusUnprocessableEntity, "WRONG_CONTEXT_LEVEL",
			fmt.Sprintf("Context %d has level %d, expected %d", contextID, target.Level, level), nil)
	}
	return nil
}

// PurposeOptions returns the purpose selector entries, "Not set" first.
func (s *Service) PurposeOptions(ctx context.Context) ([]navtree.Option, error) {
	var purposes []store.Purpose
	hit := false
	if s.cache != nil {
		purposes, hit = s.cache.Purposes(ctx)
	}
	if !hit {
		var err error
		purposes, err = s.store.ListPurposes(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetPurposes(ctx, purposes)
		}
	}
	options := make([]navtree.Option, 0, len(purposes))
	for _, p := range purposes {
		options = append(options, navtree.Option{ID: p.ID, Name: p.Name})
	}
	return navtree.PurposeOptions(options), nil
}

// CategoryOptions returns the data-category selector entries, "Not set"
// first.
func (s *Service) CategoryOptions(ctx context.Context) ([]navtree.Option, error) {
	var categories []store.DataCategory
	hit := false
	if s.cache != nil {
		categories, hit = s.cache.DataCategories(ctx)
	}
	if !hit {
		var err error
		categories, err = s.store.ListDataCategories(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetDataCategories(ctx, categories)
		}
	}
	options := make([]navtree.Option, 0, len(categories))
	for _, c := range categories {
		options = append(options, navtree.Option{ID: c.ID, Name: c.Name})
	}
	return navtree.CategoryOptions(options), nil
}

func (s *Service) Assignment(ctx context.Context, contextID int64) (map[string]any, error) {
	if _, err := s.store.GetContext(ctx, contextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Context not found", nil)
		}
		return nil, err
	}
	assignment, err := s.store.GetAssignment(ctx, contextID)
	if err != nil {
		return nil, err
	}
	return assignmentPayload(assignment), nil
}

// Assign binds a purpose and data category to a context, records the
// change in the audit history, and invalidates the option caches.
func (s *Service) Assign(ctx context.Context, contextID int64, input AssignInput, actor string) (map[string]any, error) {
	if _, err := s.store.GetContext(ctx, contextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Context not found", nil)
		}
		return nil, err
	}
	if input.PurposeID < 0 || input.CategoryID < 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "purposeId and categoryId must not be negative", nil)
	}

	assignment := store.Assignment{
		ContextID:  contextID,
		PurposeID:  input.PurposeID,
		CategoryID: input.CategoryID,
		UpdatedBy:  actor,
		UpdatedAt:  time.Now(),
	}
	if err := s.store.SetAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}

	if s.history != nil {
		contextName, err := s.store.ContextName(ctx, contextID)
		if err != nil {
			contextName = fmt.Sprintf("context %d", contextID)
		}
		snapshot, err := s.buildSnapshot(ctx)
		if err != nil {
			log.Printf("audit: snapshot build failed: %v", err)
		} else if _, err := s.history.Commit(snapshot, actor, fmt.Sprintf("Assign %s", contextName)); err != nil {
			log.Printf("audit: commit failed: %v", err)
		}
		if s.email != nil && s.email.IsConfigured() {
			if err := s.email.NotifyAssignmentChanged(actor, contextName); err != nil {
				log.Printf("email: assignment notification failed: %v", err)
			}
		}
	}

	return assignmentPayload(assignment), nil
}

func (s *Service) buildSnapshot(ctx context.Context) (audit.Snapshot, error) {
	purposes, err := s.store.ListPurposes(ctx)
	if err != nil {
		return audit.Snapshot{}, err
	}
	categories, err := s.store.ListDataCategories(ctx)
	if err != nil {
		return audit.Snapshot{}, err
	}
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return audit.Snapshot{}, err
	}

	snapshot := audit.Snapshot{
		Purposes:    make([]audit.SnapshotPurpose, 0, len(purposes)),
		Categories:  make([]audit.SnapshotCategory, 0, len(categories)),
		Assignments: make([]audit.SnapshotAssignment, 0, len(assignments)),
	}
	for _, p := range purposes {
		snapshot.Purposes = append(snapshot.Purposes, audit.SnapshotPurpose{ID: p.ID, Name: p.Name, RetentionPeriod: p.RetentionPeriod})
	}
	for _, c := range categories {
		snapshot.Categories = append(snapshot.Categories, audit.SnapshotCategory{ID: c.ID, Name: c.Name})
	}
	for _, a := range assignments {
		snapshot.Assignments = append(snapshot.Assignments, audit.SnapshotAssignment{ContextID: a.ContextID, PurposeID: a.PurposeID, CategoryID: a.CategoryID})
	}
	return snapshot, nil
}

func (s *Service) History(limit int) ([]audit.Entry, error) {
	if s.history == nil {
		return []audit.Entry{}, nil
	}
	entries, err := s.history.History(limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}

func (s *Service) HistorySnapshot(hash string) (audit.Snapshot, error) {
	if s.history == nil {
		return audit.Snapshot{}, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return s.history.SnapshotAt(hash)
}

func (s *Service) Search(q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.search.Search(q), nil
}

// ExportReport renders the full registry report, records the job, and
// notifies the DPO when email is configured.
func (s *Service) ExportReport(ctx context.Context, format string, requestedBy string) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	parsed, err := parseFormat(format)
	if err != nil {
		return nil, err
	}

	report, err := s.buildReport(ctx, requestedBy)
	if err != nil {
		return nil, err
	}

	result, err := s.export.Generate(ctx, report, parsed)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_DEPENDENCY_MISSING", "Report renderer is not available on this host", nil)
		}
		return nil, err
	}

	if err := s.store.InsertExportJob(ctx, store.ExportJob{
		ID:          util.NewID("exp"),
		Format:      string(parsed),
		ObjectKey:   result.ObjectKey,
		RequestedBy: requestedBy,
	}); err != nil {
		log.Printf("export: job record failed: %v", err)
	}

	if s.email != nil && s.email.IsConfigured() {
		if err := s.email.NotifyReportReady(requestedBy, string(parsed), result.ObjectKey); err != nil {
			log.Printf("email: report notification failed: %v", err)
		}
	}
	return result, nil
}

func (s *Service) buildReport(ctx context.Context, requestedBy string) (export.Report, error) {
	purposes, err := s.store.ListPurposes(ctx)
	if err != nil {
		return export.Report{}, err
	}
	categories, err := s.store.ListDataCategories(ctx)
	if err != nil {
		return export.Report{}, err
	}
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return export.Report{}, err
	}

	purposeNames := make(map[int64]string, len(purposes))
	report := export.Report{
		Title:       "Data registry report",
		GeneratedAt: time.Now(),
		GeneratedBy: requestedBy,
	}
	for _, p := range purposes {
		purposeNames[p.ID] = p.Name
		report.Purposes = append(report.Purposes, export.ReportPurpose{
			Name:            p.Name,
			Description:     p.Description,
			RetentionPeriod: p.RetentionPeriod,
			Protected:       p.ProtectedFlag,
		})
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
		report.Categories = append(report.Categories, export.ReportCategory{Name: c.Name, Description: c.Description})
	}
	for _, a := range assignments {
		name, err := s.store.ContextName(ctx, a.ContextID)
		if err != nil {
			name = fmt.Sprintf("context %d", a.ContextID)
		}
		level := ""
		if target, err := s.store.GetContext(ctx, a.ContextID); err == nil {
			level = levelName(target.Level)
		}
		report.Assignments = append(report.Assignments, export.ReportAssignment{
			ContextName:  name,
			ContextLevel: level,
			Purpose:      optionName(purposeNames, a.PurposeID),
			Category:     optionName(categoryNames, a.CategoryID),
			UpdatedBy:    a.UpdatedBy,
			UpdatedAt:    a.UpdatedAt,
		})
	}
	return report, nil
}

func optionName(names map[int64]string, id int64) string {
	if id == 0 {
		return navtree.NotSetLabel
	}
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func levelName(level navtree.ContextLevel) string {
	switch level {
	case navtree.LevelSystem:
		return "system"
	case navtree.LevelUser:
		return "user"
	case navtree.LevelCourseCat:
		return "category"
	case navtree.LevelCourse:
		return "course"
	case navtree.LevelModule:
		return "module"
	case navtree.LevelBlock:
		return "block"
	default:
		return "unknown"
	}
}

func parseFormat(raw string) (export.Format, error) {
	switch export.Format(strings.ToLower(strings.TrimSpace(raw))) {
	case export.FormatPDF:
		return export.FormatPDF, nil
	case export.FormatDOCX:
		return export.FormatDOCX, nil
	default:
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf or docx", nil)
	}
}

func assignmentPayload(a store.Assignment) map[string]any {
	payload := map[string]any{
		"contextId":  a.ContextID,
		"purposeId":  a.PurposeID,
		"categoryId": a.CategoryID,
		"updatedBy":  a.UpdatedBy,
	}
	if !a.UpdatedAt.IsZero() {
		payload["updatedAt"] = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}
