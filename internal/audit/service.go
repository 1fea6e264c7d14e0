// Package audit keeps a git-backed history of the registry
// configuration. Every assignment change commits the full snapshot, so
// the admin UI can show who changed what and when, and any past state
// can be recovered from the commit log.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const snapshotFile = "registry.json"

// Snapshot is the full registry configuration at a point in time.
type Snapshot struct {
	Purposes    []SnapshotPurpose    `json:"purposes"`
	Categories  []SnapshotCategory   `json:"categories"`
	Assignments []SnapshotAssignment `json:"assignments"`
}

type SnapshotPurpose struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	RetentionPeriod string `json:"retentionPeriod"`
}

type SnapshotCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SnapshotAssignment struct {
	ContextID  int64  `json:"contextId"`
	PurposeID  int64  `json:"purposeId"`
	CategoryID int64  `json:"categoryId"`
}

// Entry is one commit of the registry history.
type Entry struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service owns a single local repository; commits are serialized by the
// mutex since every change rewrites the same snapshot file.
type Service struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Service {
	return &Service{dir: dir}
}

// Ensure initializes the repository with an empty snapshot if it does
// not exist yet.
func (s *Service) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.dir, ".git")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat audit repo: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	repo, err := git.PlainInit(s.dir, false)
	if err != nil {
		return fmt.Errorf("init audit repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := s.writeSnapshot(Snapshot{}); err != nil {
		return err
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return fmt.Errorf("git add snapshot: %w", err)
	}
	hash, err := worktree.Commit("Initialize registry history", &git.CommitOptions{
		Author: signature("system"),
	})
	if err != nil {
		return fmt.Errorf("commit initial snapshot: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// Commit records a new snapshot. A snapshot identical to HEAD produces
// no commit and no error.
func (s *Service) Commit(snapshot Snapshot, author, message string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return Entry{}, fmt.Errorf("open audit repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Entry{}, fmt.Errorf("open worktree: %w", err)
	}

	if err := s.writeSnapshot(snapshot); err != nil {
		return Entry{}, err
	}

	status, err := worktree.Status()
	if err != nil {
		return Entry{}, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return s.head(repo)
	}

	if _, err := worktree.Add(snapshotFile); err != nil {
		return Entry{}, fmt.Errorf("git add snapshot: %w", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{Author: signature(author)})
	if err != nil {
		return Entry{}, fmt.Errorf("commit snapshot: %w", err)
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return Entry{}, fmt.Errorf("read commit: %w", err)
	}
	return toEntry(commit), nil
}

// History lists the most recent commits, newest first.
func (s *Service) History(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open audit repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("read HEAD: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	entries := make([]Entry, 0, limit)
	for len(entries) < limit {
		commit, err := iter.Next()
		if err != nil {
			break
		}
		entries = append(entries, toEntry(commit))
	}
	return entries, nil
}

// SnapshotAt returns the snapshot recorded by a given commit.
func (s *Service) SnapshotAt(hash string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open audit repo: %w", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return Snapshot{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commit.File(snapshotFile)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot missing in %s: %w", hash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot in %s: %w", hash, err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(contents), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot in %s: %w", hash, err)
	}
	return snapshot, nil
}

func (s *Service) writeSnapshot(snapshot Snapshot) error {
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Service) head(repo *git.Repository) (Entry, error) {
	head, err := repo.Head()
	if err != nil {
		return Entry{}, fmt.Errorf("read HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Entry{}, fmt.Errorf("read HEAD commit: %w", err)
	}
	return toEntry(commit), nil
}

func toEntry(commit *object.Commit) Entry {
	return Entry{
		Hash:      commit.Hash.String(),
		Author:    commit.Author.Name,
		Message:   commit.Message,
		CreatedAt: commit.Author.When,
	}
}

func signature(author string) *object.Signature {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ' ':
			return '.'
		default:
			return -1
		}
	}, strings.ToLower(author))
	if cleaned == "" {
		cleaned = "system"
	}
	return &object.Signature{
		Name:  author,
		Email: cleaned + "@registry.local",
		When:  time.Now(),
	}
}
