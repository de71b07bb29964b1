// Package archive keeps a git-versioned local copy of every generated
// document, organized by sector folder.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrFileNotFound is returned when a requested archive file is missing.
var ErrFileNotFound = errors.New("archive file not found")

// Service owns one git repository rooted at baseDir. Every saved
// document becomes a commit, so the archive doubles as an audit trail.
type Service struct {
	baseDir string
	mu      sync.Mutex
}

// New opens or initializes the archive repository at baseDir.
func New(baseDir string) (*Service, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	if _, err := git.PlainOpen(baseDir); err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open archive repo: %w", err)
		}
		if _, err := git.PlainInit(baseDir, false); err != nil {
			return nil, fmt.Errorf("init archive repo: %w", err)
		}
	}
	return &Service{baseDir: baseDir}, nil
}

// SaveDocument writes the file under the folder's directory and commits
// it with the author's name.
func (s *Service) SaveDocument(folderName, fileName string, data []byte, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.baseDir, folderName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), data, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}

	repo, err := git.PlainOpen(s.baseDir)
	if err != nil {
		return fmt.Errorf("open archive repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(filepath.Join(folderName, fileName)); err != nil {
		return fmt.Errorf("git add %s: %w", fileName, err)
	}

	if author == "" {
		author = "psgdocs"
	}
	_, err = worktree.Commit(fmt.Sprintf("Registrar %s", fileName), &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.psgdocs.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", fileName, err)
	}
	return nil
}

// ListFiles returns the file names stored for a folder. Folder matching
// is case-insensitive so callers can pass names as typed by users.
func (s *Service) ListFiles(folderName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(folderName)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile returns the stored bytes for a folder's file.
func (s *Service) ReadFile(folderName, fileName string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(folderName)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, ErrFileNotFound
	}

	// No path traversal through user-supplied names.
	if fileName != filepath.Base(fileName) {
		return nil, ErrFileNotFound
	}

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return data, nil
}

// History lists the most recent archive commits, newest first.
func (s *Service) History(limit int) ([]CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("open archive repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		// Empty repository: no commits yet.
		return []CommitInfo{}, nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0, limit)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, CommitInfo{
			Hash:      commitObj.Hash.String()[:7],
			Message:   strings.TrimSpace(commitObj.Message),
			Author:    commitObj.Author.Name,
			CreatedAt: commitObj.Author.When,
		})
		if limit > 0 && len(items) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

var errStopIteration = errors.New("stop iteration")

// CommitInfo describes one archive commit.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// resolveFolder finds the on-disk directory whose name matches
// folderName case-insensitively. Empty result means no such folder.
func (s *Service) resolveFolder(folderName string) (string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("read archive dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == ".git" {
			continue
		}
		if strings.EqualFold(entry.Name(), folderName) {
			return filepath.Join(s.baseDir, entry.Name()), nil
		}
	}
	return "", nil
}

func sanitizeEmail(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			runes = append(runes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			runes = append(runes, '.')
		}
	}
	if len(runes) == 0 {
		return "user"
	}
	return string(runes)
}
