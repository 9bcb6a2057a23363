package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amux-dev/amux/internal/provider"
)

// SessionMeta is the on-disk record for one session, per spec.md §4.3.
type SessionMeta struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RepoID       string `json:"repo_id"`
	Branch       string `json:"branch"`
	WorktreePath string `json:"worktree_path"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	NameFromLog  bool   `json:"name_from_log"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

func (d *Daemon) sessionDir(id string) string {
	return filepath.Join(d.dataDir, "sessions", id)
}

func (d *Daemon) metaPath(id string) string {
	return filepath.Join(d.sessionDir(id), "meta.json")
}

func (d *Daemon) historyPath(id string) string {
	return filepath.Join(d.sessionDir(id), "history.bin")
}

func toMeta(s *Session) SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		Name:         s.Name,
		RepoID:       s.RepoID,
		Branch:       s.Branch,
		WorktreePath: s.WorktreePath,
		Provider:     s.providerRef.Name,
		Model:        s.providerRef.Model,
		NameFromLog:  s.NameAlreadyFromLog(),
		CreatedAt:    s.CreatedAt.Unix(),
		UpdatedAt:    s.UpdatedAt.Unix(),
	}
}

// persistSessionMeta must be called without d.mu held by the caller's
// critical section extending across the file write.
func (d *Daemon) persistSessionMeta(s *Session) {
	if err := os.MkdirAll(d.sessionDir(s.ID), 0o755); err != nil {
		d.log.Error("mkdir session dir", "session", s.ID, "error", err)
		return
	}
	meta := toMeta(s)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		d.log.Error("marshal session meta", "session", s.ID, "error", err)
		return
	}
	if err := os.WriteFile(d.metaPath(s.ID), data, 0o644); err != nil {
		d.log.Error("write session meta", "session", s.ID, "error", err)
	}
}

// flushHistory writes the current ring snapshot to history.bin.
func (d *Daemon) flushHistory(s *Session) {
	data := s.RingSnapshot()
	if err := os.WriteFile(d.historyPath(s.ID), data, 0o644); err != nil {
		d.log.Warn("write session history", "session", s.ID, "error", err)
	}
}

// loadSessions scans <data>/sessions/ at startup; parse failures are logged
// and skipped (spec.md §4.3). Restored sessions enter Stopped.
func (d *Daemon) loadSessions() error {
	root := filepath.Join(d.dataDir, "sessions")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loadSessions: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		data, err := os.ReadFile(filepath.Join(root, id, "meta.json"))
		if err != nil {
			d.log.Warn("skipping session: cannot read meta", "session", id, "error", err)
			continue
		}
		var meta SessionMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			d.log.Warn("skipping session: corrupt meta", "session", id, "error", err)
			continue
		}

		ref := provider.Ref{Name: meta.Provider, Model: meta.Model}
		s := newSession(meta.ID, meta.RepoID, meta.Branch, meta.WorktreePath, ref)
		s.Name = meta.Name
		s.nameFromLog = meta.NameFromLog
		s.CreatedAt = time.Unix(meta.CreatedAt, 0)
		s.UpdatedAt = time.Unix(meta.UpdatedAt, 0)

		if hist, err := os.ReadFile(filepath.Join(root, id, "history.bin")); err == nil {
			s.LoadRing(hist)
		}

		d.sessions[id] = s
	}
	return nil
}

// deleteSessionData removes the whole per-session directory.
func (d *Daemon) deleteSessionData(id string) {
	if err := os.RemoveAll(d.sessionDir(id)); err != nil {
		d.log.Warn("remove session directory", "session", id, "error", err)
	}
}
