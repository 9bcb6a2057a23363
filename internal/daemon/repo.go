package daemon

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
)

// Repo is a registered Git repository. Id is a stable 16-hex digest of the
// canonical path, computed with hash/fnv — the Go analogue of
// original_source/ccm-daemon/src/repo.rs's DefaultHasher-based id: the shape
// of the id (a short stable hex digest of the path) is the contract, not the
// specific hash algorithm.
type Repo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

func repoID(path string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return fmt.Sprintf("%016x", h.Sum64())
}

func (d *Daemon) reposPath() string {
	return filepath.Join(d.dataDir, "repos.json")
}

func (d *Daemon) loadRepos() error {
	data, err := os.ReadFile(d.reposPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loadRepos: %w", err)
	}
	var repos []Repo
	if err := json.Unmarshal(data, &repos); err != nil {
		d.log.Warn("repos.json corrupt, starting empty", "error", err)
		return nil
	}
	for i := range repos {
		d.repos[repos[i].ID] = &repos[i]
	}
	return nil
}

// persistRepos must be called with d.mu held (read or write; it only reads).
func (d *Daemon) persistRepos() {
	repos := make([]Repo, 0, len(d.repos))
	for _, r := range d.repos {
		repos = append(repos, *r)
	}
	data, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		d.log.Error("marshal repos.json", "error", err)
		return
	}
	if err := os.WriteFile(d.reposPath(), data, 0o644); err != nil {
		d.log.Error("write repos.json", "error", err)
	}
}

// AddRepo registers path as a repository, resolving it to its main checkout
// if it is itself a worktree.
func (d *Daemon) AddRepo(path string) (Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Repo{}, ErrInvalidArgument("resolve path %q: %v", path, err)
	}

	if !d.git.IsGitRepo(abs) {
		return Repo{}, ErrInvalidArgument("%s is not a git repository", abs)
	}
	mainPath, _ := d.git.FindMainRepoPath(abs)

	id := repoID(mainPath)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.repos[id]; exists {
		return Repo{}, ErrAlreadyExists("repo at %s is already registered", mainPath)
	}

	repo := &Repo{ID: id, Name: filepath.Base(mainPath), Path: mainPath}
	d.repos[id] = repo
	d.persistRepos()
	return *repo, nil
}

// ListRepos returns all registered repos, order not significant.
func (d *Daemon) ListRepos() []Repo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Repo, 0, len(d.repos))
	for _, r := range d.repos {
		out = append(out, *r)
	}
	return out
}

// RemoveRepo unregisters a repo. Fails if any session still references it.
func (d *Daemon) RemoveRepo(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.repos[id]; !ok {
		return ErrNotFound("repo %s", id)
	}
	for _, s := range d.sessions {
		if s.RepoID == id {
			return ErrFailedPrecondition("repo %s has active sessions", id)
		}
	}
	delete(d.repos, id)
	d.persistRepos()
	return nil
}

func (d *Daemon) getRepo(id string) (*Repo, error) {
	r, ok := d.repos[id]
	if !ok {
		return nil, ErrNotFound("repo %s", id)
	}
	return r, nil
}
