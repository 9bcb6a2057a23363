package daemon

import (
	"github.com/amux-dev/amux/internal/proto"
	"github.com/amux-dev/amux/internal/provider"
)

func (d *Daemon) sessionInfo(s *Session) proto.SessionInfo {
	status := string(StatusStopped)
	if s.Status() == StatusRunning {
		status = string(StatusRunning)
	}
	return proto.SessionInfo{
		ID:           s.ID,
		Name:         s.Name,
		RepoID:       s.RepoID,
		Branch:       s.Branch,
		WorktreePath: s.WorktreePath,
		Status:       status,
		CreatedAt:    s.CreatedAt.Unix(),
		UpdatedAt:    s.UpdatedAt.Unix(),
	}
}

// createSession resolves the repo/branch to a worktree path, validates the
// provider+model, assigns a unique name, spawns the PTY, and emits
// SessionCreated on success.
func (d *Daemon) createSession(req proto.Request) (proto.SessionInfo, error) {
	d.mu.Lock()
	repo, err := d.getRepo(req.RepoID)
	if err != nil {
		d.mu.Unlock()
		return proto.SessionInfo{}, err
	}
	existing := sortedSessionNames(d.sessions, req.RepoID)
	d.mu.Unlock()

	worktreePath, err := d.resolveWorktreePath(req.RepoID, req.Branch)
	if err != nil {
		// Branch may be the main checkout itself.
		if req.Branch == "" {
			worktreePath = repo.Path
		} else {
			return proto.SessionInfo{}, err
		}
	}

	var ref provider.Ref
	mode := provider.ModeNew
	switch req.Mode {
	case "", "new":
		mode = provider.ModeNew
	case "resume":
		mode = provider.ModeResume
	case "oneshot":
		mode = provider.ModeOneShot
	case "shell":
		mode = provider.ModeShell
	}

	if req.Mode == "shell" {
		ref = provider.Shell()
	} else {
		ref, err = provider.NewRef(d.registry, req.Provider, req.Model)
		if err != nil {
			return proto.SessionInfo{}, ErrInvalidArgument("%v", err)
		}
	}

	id := newSessionID()
	name := generateSessionName(req.Branch, existing)

	s := newSession(id, req.RepoID, req.Branch, worktreePath, ref)
	s.Name = name

	if !ref.IsShell() {
		cfg := provider.Config{Mode: mode, Model: ref.Model, Prompt: req.Prompt, SessionID: req.ResumeID}
		if err := d.startSessionWithConfig(s, cfg); err != nil {
			return proto.SessionInfo{}, err
		}
	} else if err := s.Start(d.registry); err != nil {
		return proto.SessionInfo{}, err
	}

	d.mu.Lock()
	d.sessions[id] = s
	d.mu.Unlock()

	d.persistSessionMeta(s)
	info := d.sessionInfo(s)
	d.bus.EmitSessionCreated(info)
	return info, nil
}

// startSessionWithConfig spawns the PTY using an explicit provider Config
// (mode/prompt/resume id) rather than Session.Start's always-ModeNew
// default, so CreateSession can honor the requested New/Resume/OneShot mode,
// model, prompt and resume id. Shell sessions go through Session.Start.
func (d *Daemon) startSessionWithConfig(s *Session, cfg provider.Config) error {
	command, args, err := func() (string, []string, error) {
		p, ok := d.registry.Get(s.providerRef.Name)
		if !ok {
			return "", nil, ErrInvalidArgument("unknown provider %q", s.providerRef.Name)
		}
		return p.BuildCommand(cfg)
	}()
	if err != nil {
		return ErrInvalidArgument("%v", err)
	}

	return s.startWithCommand(command, args)
}

func (d *Daemon) destroySession(id string) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	if !ok {
		d.mu.Unlock()
		return ErrNotFound("session %s", id)
	}
	delete(d.sessions, id)
	d.mu.Unlock()

	s.Stop()
	d.deleteSessionData(id)
	d.bus.EmitSessionDestroyed(id, s.RepoID, s.Branch)
	return nil
}

func (d *Daemon) renameSession(id, name string) (proto.SessionInfo, error) {
	d.mu.RLock()
	s, ok := d.sessions[id]
	d.mu.RUnlock()
	if !ok {
		return proto.SessionInfo{}, ErrNotFound("session %s", id)
	}

	old := s.Name
	s.Name = name
	d.persistSessionMeta(s)
	d.bus.EmitSessionNameUpdated(id, old, name)
	return d.sessionInfo(s), nil
}

func (d *Daemon) listSessions(repoID string) []proto.SessionInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []proto.SessionInfo
	for _, s := range d.sessions {
		if repoID != "" && s.RepoID != repoID {
			continue
		}
		out = append(out, d.sessionInfo(s))
	}
	return out
}

func (d *Daemon) getSessionInfo(id string) (proto.SessionInfo, error) {
	d.mu.RLock()
	s, ok := d.sessions[id]
	d.mu.RUnlock()
	if !ok {
		return proto.SessionInfo{}, ErrNotFound("session %s", id)
	}
	return d.sessionInfo(s), nil
}

func (d *Daemon) stopSession(id string) error {
	d.mu.RLock()
	s, ok := d.sessions[id]
	d.mu.RUnlock()
	if !ok {
		return ErrNotFound("session %s", id)
	}
	old := d.sessionInfo(s).Status
	s.Stop()
	d.persistSessionMeta(s)
	d.bus.EmitSessionStatusChanged(id, old, string(StatusStopped))
	return nil
}

func (d *Daemon) lookupSession(id string) (*Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[id]
	if !ok {
		return nil, ErrNotFound("session %s", id)
	}
	return s, nil
}
