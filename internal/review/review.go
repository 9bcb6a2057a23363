// Package review is the per-branch JSON-backed line-comment store described
// in spec.md §3/§4.3. It is deliberately simple — no external store library
// is warranted for a small, infrequently-written JSON document (see
// DESIGN.md).
package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Comment is one (file, line) review comment, scoped to a (repo, branch).
type Comment struct {
	ID         string `json:"id"`
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	LineType   string `json:"line_type"`
	Comment    string `json:"comment"`
	CreatedAt  int64  `json:"created_at"`
}

// NotFoundError reports that no comment with the given id exists under any
// scanned repo/branch.
type NotFoundError struct{ ID string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("comment %s not found", e.ID) }

// Store persists comments under <root>/<repo>/<branch>/comments.json.
type Store struct {
	root string
}

func NewStore(root string) *Store { return &Store{root: root} }

func (s *Store) path(repoID, branch string) string {
	return filepath.Join(s.root, repoID, branch, "comments.json")
}

func (s *Store) load(repoID, branch string) ([]Comment, error) {
	data, err := os.ReadFile(s.path(repoID, branch))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("review: read %s/%s: %w", repoID, branch, err)
	}
	var comments []Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		return nil, fmt.Errorf("review: corrupt comments for %s/%s: %w", repoID, branch, err)
	}
	return comments, nil
}

func (s *Store) save(repoID, branch string, comments []Comment) error {
	path := s.path(repoID, branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("review: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(comments, "", "  ")
	if err != nil {
		return fmt.Errorf("review: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) List(repoID, branch string) ([]Comment, error) {
	return s.load(repoID, branch)
}

func (s *Store) Create(repoID, branch string, c Comment) (Comment, error) {
	comments, err := s.load(repoID, branch)
	if err != nil {
		return Comment{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().Unix()
	comments = append(comments, c)
	if err := s.save(repoID, branch, comments); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// allRepoBranches walks the store root to enumerate every (repo, branch)
// pair that has a comments file, for the scan-all-repos lookup spec.md §9
// calls out as an explicit open seam (the wire protocol omits repo_id on
// update/delete).
func (s *Store) allRepoBranches() ([]struct{ repoID, branch string }, error) {
	var pairs []struct{ repoID, branch string }
	repoDirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, rd := range repoDirs {
		if !rd.IsDir() {
			continue
		}
		// Branch names may contain '/', so walk the whole repo directory.
		repoDir := filepath.Join(s.root, rd.Name())
		_ = filepath.WalkDir(repoDir, func(p string, e os.DirEntry, err error) error {
			if err == nil && !e.IsDir() && e.Name() == "comments.json" {
				if branch, rerr := filepath.Rel(repoDir, filepath.Dir(p)); rerr == nil && branch != "." {
					pairs = append(pairs, struct{ repoID, branch string }{rd.Name(), filepath.ToSlash(branch)})
				}
			}
			return nil
		})
	}
	return pairs, nil
}

// UpdateByID scans all repos/branches to find the comment (see
// allRepoBranches), updates its text, and returns it plus the (repo,
// branch) it was found under so the caller can build a full wire response.
func (s *Store) UpdateByID(id, text string) (Comment, string, string, error) {
	pairs, err := s.allRepoBranches()
	if err != nil {
		return Comment{}, "", "", fmt.Errorf("review: scan: %w", err)
	}
	for _, pair := range pairs {
		comments, err := s.load(pair.repoID, pair.branch)
		if err != nil {
			continue
		}
		for i := range comments {
			if comments[i].ID == id {
				comments[i].Comment = text
				if err := s.save(pair.repoID, pair.branch, comments); err != nil {
					return Comment{}, "", "", err
				}
				return comments[i], pair.repoID, pair.branch, nil
			}
		}
	}
	return Comment{}, "", "", &NotFoundError{ID: id}
}

func (s *Store) DeleteByID(id string) error {
	pairs, err := s.allRepoBranches()
	if err != nil {
		return fmt.Errorf("review: scan: %w", err)
	}
	for _, pair := range pairs {
		comments, err := s.load(pair.repoID, pair.branch)
		if err != nil {
			continue
		}
		for i, c := range comments {
			if c.ID == id {
				comments = append(comments[:i], comments[i+1:]...)
				return s.save(pair.repoID, pair.branch, comments)
			}
		}
	}
	return &NotFoundError{ID: id}
}
