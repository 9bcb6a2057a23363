package daemon

import (
	"path/filepath"

	"github.com/amux-dev/amux/internal/proto"
)

// listWorktrees merges worktree-bearing branches (main first) with
// branch-only entries, per spec.md §4.6.
func (d *Daemon) listWorktrees(repoID string) ([]proto.WorktreeInfo, error) {
	d.mu.RLock()
	repo, err := d.getRepo(repoID)
	d.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	wts, err := d.git.ListWorktrees(repo.Path)
	if err != nil {
		return nil, ErrInternal(err, "list worktrees")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]proto.WorktreeInfo, len(wts))
	for i, wt := range wts {
		count := 0
		for _, s := range d.sessions {
			if s.RepoID == repoID && s.Branch == wt.Branch {
				count++
			}
		}
		out[i] = proto.WorktreeInfo{
			RepoID:       repoID,
			Branch:       wt.Branch,
			Path:         wt.Path,
			IsMain:       wt.IsMain,
			SessionCount: count,
		}
	}
	return out, nil
}

// createWorktree creates a new worktree for repoID/branch off baseBranch
// (default: the repo's current HEAD via an empty baseBranch).
func (d *Daemon) createWorktree(repoID, branch, baseBranch string) (proto.WorktreeInfo, error) {
	d.mu.RLock()
	repo, err := d.getRepo(repoID)
	d.mu.RUnlock()
	if err != nil {
		return proto.WorktreeInfo{}, err
	}

	worktreePath := filepath.Join(filepath.Dir(repo.Path), filepath.Base(repo.Path)+"-"+branch)
	if err := d.git.CreateWorktree(repo.Path, worktreePath, branch, baseBranch); err != nil {
		return proto.WorktreeInfo{}, ErrInternal(err, "create worktree")
	}

	info := proto.WorktreeInfo{RepoID: repoID, Branch: branch, Path: worktreePath, IsMain: false}
	d.bus.EmitWorktreeAdded(info)
	return info, nil
}

// removeWorktree fails with FailedPrecondition if any session references it
// (spec.md §4.6).
func (d *Daemon) removeWorktree(repoID, branch string) error {
	d.mu.RLock()
	repo, err := d.getRepo(repoID)
	if err == nil {
		for _, s := range d.sessions {
			if s.RepoID == repoID && s.Branch == branch {
				err = ErrFailedPrecondition("worktree %s/%s has active sessions", repoID, branch)
				break
			}
		}
	}
	d.mu.RUnlock()
	if err != nil {
		return err
	}

	path, err := d.resolveWorktreePath(repoID, branch)
	if err != nil {
		return err
	}
	if err := d.git.RemoveWorktree(repo.Path, path); err != nil {
		return ErrInternal(err, "remove worktree")
	}
	d.bus.EmitWorktreeRemoved(repoID, branch)
	return nil
}

func (d *Daemon) deleteBranch(repoID, branch string) error {
	d.mu.RLock()
	repo, err := d.getRepo(repoID)
	d.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := d.git.DeleteBranch(repo.Path, branch); err != nil {
		return ErrInternal(err, "delete branch")
	}
	return nil
}
