package daemon

import (
	"github.com/amux-dev/amux/internal/proto"
	"github.com/amux-dev/amux/internal/review"
	"github.com/amux-dev/amux/internal/todo"
)

// dispatch routes one unary Request to its handler and converts the result
// (or error) to a Response. Each state-mutating handler emits its event
// exactly once, on success only (spec.md §4.6).
func (d *Daemon) dispatch(req proto.Request) proto.Response {
	switch req.Type {
	case proto.ReqPing:
		return proto.Response{OK: true}

	case proto.ReqAddRepo:
		repo, err := d.AddRepo(req.Path)
		if err != nil {
			return errResponse(err)
		}
		info := repoInfo(d, repo)
		return proto.Response{OK: true, Repo: &info}

	case proto.ReqListRepos:
		repos := d.ListRepos()
		out := make([]proto.RepoInfo, len(repos))
		for i, r := range repos {
			out[i] = repoInfo(d, r)
		}
		return proto.Response{OK: true, Repos: out}

	case proto.ReqRemoveRepo:
		if err := d.RemoveRepo(req.RepoID); err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true}

	case proto.ReqListWorktrees:
		wts, err := d.listWorktrees(req.RepoID)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, Worktrees: wts}

	case proto.ReqCreateWorktree:
		wt, err := d.createWorktree(req.RepoID, req.Branch, req.BaseBranch)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, Worktree: &wt}

	case proto.ReqRemoveWorktree:
		if err := d.removeWorktree(req.RepoID, req.Branch); err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true}

	case proto.ReqDeleteBranch:
		if err := d.deleteBranch(req.RepoID, req.Branch); err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true}

	case proto.ReqCreateSession:
		info, err := d.createSession(req)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, Session: &info}

	case proto.ReqDestroySession:
		if err := d.destroySession(req.SessionID); err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true}

	case proto.ReqRenameSession:
		info, err := d.renameSession(req.SessionID, req.Name)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, Session: &info}

	case proto.ReqListSessions:
		return proto.Response{OK: true, Sessions: d.listSessions(req.RepoID)}

	case proto.ReqGetSession:
		info, err := d.getSessionInfo(req.SessionID)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, Session: &info}

	case proto.ReqStopSession:
		if err := d.stopSession(req.SessionID); err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true}

	case proto.ReqCreateComment:
		c, err := d.reviews.Create(req.RepoID, req.Branch, review.Comment{
			FilePath:   req.FilePath,
			LineNumber: req.LineNumber,
			LineType:   req.LineType,
			Comment:    req.Comment,
		})
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true, Comment: toCommentInfo(req.RepoID, req.Branch, c)}

	case proto.ReqUpdateComment:
		c, repoID, branch, err := d.reviews.UpdateByID(req.CommentID, req.Comment)
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true, Comment: toCommentInfo(repoID, branch, c)}

	case proto.ReqDeleteComment:
		if err := d.reviews.DeleteByID(req.CommentID); err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true}

	case proto.ReqListComments:
		comments, err := d.reviews.List(req.RepoID, req.Branch)
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		out := make([]proto.LineCommentInfo, len(comments))
		for i, c := range comments {
			out[i] = *toCommentInfo(req.RepoID, req.Branch, c)
		}
		return proto.Response{OK: true, Comments: out}

	case proto.ReqCreateTodo:
		t, err := d.todos.Create(req.RepoID, todo.Item{
			Title:       req.Title,
			Description: req.Description,
			ParentID:    req.ParentID,
		})
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true, Todo: toTodoInfo(req.RepoID, t)}

	case proto.ReqUpdateTodo:
		t, repoID, err := d.todos.Update(req.TodoID, todo.Update{
			Title:       req.Title,
			Description: req.Description,
			Completed:   req.Completed,
		})
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true, Todo: toTodoInfo(repoID, t)}

	case proto.ReqDeleteTodo:
		if err := d.todos.Delete(req.TodoID); err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true}

	case proto.ReqToggleTodo:
		t, repoID, err := d.todos.Toggle(req.TodoID)
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true, Todo: toTodoInfo(repoID, t)}

	case proto.ReqReorderTodo:
		if err := d.todos.Reorder(req.TodoID, req.NewOrder, req.NewParentID); err != nil {
			return errResponse(translateStoreErr(err))
		}
		return proto.Response{OK: true}

	case proto.ReqListTodos:
		items, err := d.todos.List(req.RepoID)
		if err != nil {
			return errResponse(translateStoreErr(err))
		}
		out := make([]proto.TodoItem, len(items))
		for i, t := range items {
			out[i] = *toTodoInfo(req.RepoID, t)
		}
		return proto.Response{OK: true, Todos: out}

	case proto.ReqGetDiffFiles:
		files, err := d.getDiffFiles(req.RepoID, req.Branch)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, DiffFiles: files}

	case proto.ReqGetFileDiff:
		lines, err := d.getFileDiff(req.RepoID, req.Branch, req.FilePath)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, DiffLines: lines}

	case proto.ReqGetGitStatus:
		status, err := d.getGitStatus(req.RepoID, req.Branch)
		if err != nil {
			return errResponse(err)
		}
		return proto.Response{OK: true, GitStatus: status}

	case proto.ReqStageFile:
		if err := d.withWorktreePath(req.RepoID, req.Branch, func(p string) error { return d.git.StageFile(p, req.FilePath) }); err != nil {
			return errResponse(err)
		}
		d.bus.EmitGitStatusChanged(req.RepoID, req.Branch)
		return proto.Response{OK: true}

	case proto.ReqUnstageFile:
		if err := d.withWorktreePath(req.RepoID, req.Branch, func(p string) error { return d.git.UnstageFile(p, req.FilePath) }); err != nil {
			return errResponse(err)
		}
		d.bus.EmitGitStatusChanged(req.RepoID, req.Branch)
		return proto.Response{OK: true}

	case proto.ReqStageAll:
		if err := d.withWorktreePath(req.RepoID, req.Branch, d.git.StageAll); err != nil {
			return errResponse(err)
		}
		d.bus.EmitGitStatusChanged(req.RepoID, req.Branch)
		return proto.Response{OK: true}

	case proto.ReqUnstageAll:
		if err := d.withWorktreePath(req.RepoID, req.Branch, d.git.UnstageAll); err != nil {
			return errResponse(err)
		}
		d.bus.EmitGitStatusChanged(req.RepoID, req.Branch)
		return proto.Response{OK: true}

	case proto.ReqListProviders:
		return proto.Response{OK: true, Providers: d.listProviders()}

	default:
		return errResponse(ErrInvalidArgument("unknown request type %q", req.Type))
	}
}

func translateStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*review.NotFoundError); ok {
		return ErrNotFound("%v", err)
	}
	if _, ok := err.(*todo.NotFoundError); ok {
		return ErrNotFound("%v", err)
	}
	return ErrInternal(err, "store operation failed")
}

func repoInfo(d *Daemon, r Repo) proto.RepoInfo {
	count := 0
	d.mu.RLock()
	for _, s := range d.sessions {
		if s.RepoID == r.ID {
			count++
		}
	}
	d.mu.RUnlock()
	return proto.RepoInfo{ID: r.ID, Name: r.Name, Path: r.Path, SessionCount: count}
}

func toCommentInfo(repoID, branch string, c review.Comment) *proto.LineCommentInfo {
	return &proto.LineCommentInfo{
		ID:         c.ID,
		RepoID:     repoID,
		Branch:     branch,
		FilePath:   c.FilePath,
		LineNumber: c.LineNumber,
		LineType:   c.LineType,
		Comment:    c.Comment,
		CreatedAt:  c.CreatedAt,
	}
}

func toTodoInfo(repoID string, t todo.Item) *proto.TodoItem {
	return &proto.TodoItem{
		ID:          t.ID,
		RepoID:      repoID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		ParentID:    t.ParentID,
		Order:       t.Order,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d *Daemon) listProviders() []proto.ProviderInfo {
	var out []proto.ProviderInfo
	for _, p := range d.registry.List() {
		out = append(out, proto.ProviderInfo{
			Name:         p.Name(),
			DisplayName:  p.DisplayName(),
			Models:       p.AvailableModels(),
			DefaultModel: p.DefaultModel(),
		})
	}
	return out
}

func (d *Daemon) withWorktreePath(repoID, branch string, fn func(path string) error) error {
	path, err := d.resolveWorktreePath(repoID, branch)
	if err != nil {
		return err
	}
	return fn(path)
}

// resolveWorktreePath looks up a (repo, branch)'s filesystem path via Git.
func (d *Daemon) resolveWorktreePath(repoID, branch string) (string, error) {
	d.mu.RLock()
	repo, err := d.getRepo(repoID)
	d.mu.RUnlock()
	if err != nil {
		return "", err
	}

	wts, err := d.git.ListWorktrees(repo.Path)
	if err != nil {
		return "", ErrInternal(err, "list worktrees")
	}
	for _, wt := range wts {
		if wt.Branch == branch && wt.Path != "" {
			return wt.Path, nil
		}
	}
	return "", ErrNotFound("worktree for branch %q", branch)
}

func (d *Daemon) getDiffFiles(repoID, branch string) ([]proto.DiffFileInfo, error) {
	path, err := d.resolveWorktreePath(repoID, branch)
	if err != nil {
		return nil, err
	}
	files, err := d.git.GetDiffFiles(path)
	if err != nil {
		return nil, ErrInternal(err, "diff files")
	}
	out := make([]proto.DiffFileInfo, len(files))
	for i, f := range files {
		out[i] = proto.DiffFileInfo{Path: f.Path, Status: string(f.Status), Additions: f.Additions, Deletions: f.Deletions}
	}
	return sortDiffFiles(out), nil
}

// sortDiffFiles applies the fixed wire-enum ordering from spec.md §4.6:
// Modified, Added, Deleted, Renamed, Untracked.
func sortDiffFiles(files []proto.DiffFileInfo) []proto.DiffFileInfo {
	rank := map[string]int{
		proto.FileStatusModified:  0,
		proto.FileStatusAdded:     1,
		proto.FileStatusDeleted:   2,
		proto.FileStatusRenamed:   3,
		proto.FileStatusUntracked: 4,
	}
	out := append([]proto.DiffFileInfo(nil), files...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && rank[out[j].Status] < rank[out[j-1].Status]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (d *Daemon) getFileDiff(repoID, branch, path string) ([]proto.DiffLine, error) {
	wtPath, err := d.resolveWorktreePath(repoID, branch)
	if err != nil {
		return nil, err
	}
	lines, err := d.git.GetFileDiff(wtPath, path)
	if err != nil {
		return nil, ErrInternal(err, "file diff")
	}
	out := make([]proto.DiffLine, len(lines))
	for i, l := range lines {
		out[i] = proto.DiffLine{LineType: l.Kind, Content: l.Content, OldLineNo: l.OldLineNo, NewLineNo: l.NewLineNo}
	}
	return out, nil
}

func (d *Daemon) getGitStatus(repoID, branch string) ([]proto.GitFileStatus, error) {
	path, err := d.resolveWorktreePath(repoID, branch)
	if err != nil {
		return nil, err
	}
	entries, err := d.git.GetStatus(path)
	if err != nil {
		return nil, ErrInternal(err, "git status")
	}
	out := make([]proto.GitFileStatus, len(entries))
	for i, e := range entries {
		out[i] = proto.GitFileStatus{Path: e.Path, Status: string(e.Status), Staged: e.Staged}
	}
	return out, nil
}
