// Package gitops is the Git collaborator behind repo/worktree/diff/status
// RPC handlers: go-git for branch enumeration, repository detection and
// working-tree status; the git binary shelled out for worktree listing,
// worktree add/remove, branch delete, staging and diffs, the way the
// teacher's project.go and the richer trybotster git manager both do.
package gitops

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Worktree describes one (repo, branch) working directory.
type Worktree struct {
	Branch string
	Path   string
	IsMain bool
}

// FileStatus wire enum ordering per spec.md §4.6.
type FileStatus string

const (
	FileModified  FileStatus = "modified"
	FileAdded     FileStatus = "added"
	FileDeleted   FileStatus = "deleted"
	FileRenamed   FileStatus = "renamed"
	FileUntracked FileStatus = "untracked"
)

// DiffFile summarizes one changed file between HEAD and the working tree.
type DiffFile struct {
	Path      string
	Status    FileStatus
	Additions int
	Deletions int
}

// DiffLine is one line of a unified diff.
type DiffLine struct {
	Kind      string // "header" | "context" | "addition" | "deletion"
	Content   string
	OldLineNo int
	NewLineNo int
}

// StatusEntry is one working-tree status row.
type StatusEntry struct {
	Path   string
	Status FileStatus
	Staged bool
}

// Ops is the Git collaborator. It holds no state beyond the binary's PATH
// resolution; every call takes the repository path it operates on.
type Ops struct{}

func New() *Ops { return &Ops{} }

// IsGitRepo reports whether path is inside a Git working tree (main checkout
// or worktree).
func (o *Ops) IsGitRepo(path string) bool {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// FindMainRepoPath resolves path (which may itself be a worktree) to the
// path of its main checkout, per spec.md §4.6's AddRepo rule.
func (o *Ops) FindMainRepoPath(path string) (string, bool) {
	gitFile := filepath.Join(path, ".git")
	info, err := os.Stat(gitFile)
	if err != nil {
		return path, false
	}
	if info.IsDir() {
		// Already a main checkout.
		return path, true
	}

	data, err := os.ReadFile(gitFile)
	if err != nil {
		return path, false
	}
	content := strings.TrimSpace(string(data))
	const prefix = "gitdir: "
	if !strings.HasPrefix(content, prefix) {
		return path, false
	}
	// content: /path/to/main/.git/worktrees/<name>
	gitDir := strings.TrimPrefix(content, prefix)
	mainDotGit := filepath.Dir(filepath.Dir(gitDir)) // .git
	return filepath.Dir(mainDotGit), true
}

// ListBranches returns every local branch name.
func (o *Ops) ListBranches(repoPath string) ([]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("gitops: open %s: %w", repoPath, err)
	}
	iter, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("gitops: list branches: %w", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitops: iterate branches: %w", err)
	}
	return names, nil
}

// ListWorktrees enumerates worktrees via `git worktree list --porcelain`
// (go-git has no worktree-enumeration API) and merges in branch-only
// entries so the result matches spec.md §4.6's ordering rule: main first,
// then worktree-bearing branches, then branch-only entries with empty path.
func (o *Ops) ListWorktrees(repoPath string) ([]Worktree, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gitops: worktree list: %w", err)
	}

	var result []Worktree
	present := map[string]bool{}

	var curPath, curBranch string
	flush := func() {
		if curPath == "" {
			return
		}
		isMain := len(result) == 0
		result = append(result, Worktree{Branch: curBranch, Path: curPath, IsMain: isMain})
		if curBranch != "" {
			present[curBranch] = true
		}
		curPath, curBranch = "", ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			curPath = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			curBranch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "":
			flush()
		}
	}
	flush()

	branches, err := o.ListBranches(repoPath)
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		if !present[b] {
			result = append(result, Worktree{Branch: b, Path: "", IsMain: false})
		}
	}
	return result, nil
}

// CreateWorktree shells out to `git worktree add`, creating baseBranch's
// descendant branch if it does not already exist.
func (o *Ops) CreateWorktree(repoPath, worktreePath, branch, baseBranch string) error {
	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return fmt.Errorf("gitops: mkdir: %w", err)
	}

	args := []string{"worktree", "add"}
	if !o.branchExists(repoPath, branch) {
		args = append(args, "-b", branch, worktreePath)
		if baseBranch != "" {
			args = append(args, baseBranch)
		}
	} else {
		args = append(args, worktreePath, branch)
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gitops: worktree add: %s (%w)", strings.TrimSpace(string(out)), err)
	}
	return nil
}

func (o *Ops) branchExists(repoPath, branch string) bool {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoPath
	return cmd.Run() == nil
}

// RemoveWorktree shells out to `git worktree remove --force`.
func (o *Ops) RemoveWorktree(repoPath, worktreePath string) error {
	cmd := exec.Command("git", "worktree", "remove", "--force", worktreePath)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gitops: worktree remove: %s (%w)", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// DeleteBranch shells out to `git branch -D`.
func (o *Ops) DeleteBranch(repoPath, branch string) error {
	cmd := exec.Command("git", "branch", "-D", branch)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gitops: branch delete: %s (%w)", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// GetStatus returns the working tree status for worktreePath via go-git.
func (o *Ops) GetStatus(worktreePath string) ([]StatusEntry, error) {
	repo, err := git.PlainOpen(worktreePath)
	if err != nil {
		return nil, fmt.Errorf("gitops: open: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitops: worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("gitops: status: %w", err)
	}

	var entries []StatusEntry
	for path, fs := range st {
		staged := fs.Staging != git.Unmodified && fs.Staging != git.Untracked
		entries = append(entries, StatusEntry{
			Path:   path,
			Status: translateStatusCode(fs),
			Staged: staged,
		})
	}
	return entries, nil
}

func translateStatusCode(fs *git.FileStatus) FileStatus {
	code := fs.Staging
	if code == git.Unmodified {
		code = fs.Worktree
	}
	switch code {
	case git.Added:
		return FileAdded
	case git.Deleted:
		return FileDeleted
	case git.Renamed:
		return FileRenamed
	case git.Untracked:
		return FileUntracked
	default:
		return FileModified
	}
}

// StageFile and UnstageFile shell out to `git add`/`git reset`; go-git's
// Worktree.Add/UnStaged APIs cover single-file add but not a clean "restore
// staged file to HEAD" reset, so both go through the binary for symmetry.
func (o *Ops) StageFile(worktreePath, path string) error {
	return o.runGit(worktreePath, "add", "--", path)
}

func (o *Ops) UnstageFile(worktreePath, path string) error {
	return o.runGit(worktreePath, "reset", "HEAD", "--", path)
}

func (o *Ops) StageAll(worktreePath string) error {
	return o.runGit(worktreePath, "add", "-A")
}

func (o *Ops) UnstageAll(worktreePath string) error {
	return o.runGit(worktreePath, "reset", "HEAD")
}

func (o *Ops) runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gitops: git %s: %s (%w)", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}

// GetDiffFiles lists files changed in the working tree relative to HEAD,
// combining tracked changes (via `git diff --numstat`) and untracked files.
func (o *Ops) GetDiffFiles(worktreePath string) ([]DiffFile, error) {
	cmd := exec.Command("git", "diff", "--numstat", "HEAD")
	cmd.Dir = worktreePath
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gitops: diff numstat: %w", err)
	}

	nameStatus := exec.Command("git", "diff", "--name-status", "HEAD")
	nameStatus.Dir = worktreePath
	nsOut, err := nameStatus.Output()
	if err != nil {
		return nil, fmt.Errorf("gitops: diff name-status: %w", err)
	}
	statusByPath := map[string]FileStatus{}
	for _, line := range strings.Split(string(nsOut), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		statusByPath[fields[len(fields)-1]] = translateNameStatus(fields[0])
	}

	var files []DiffFile
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		path := fields[2]
		add := parseNumstat(fields[0])
		del := parseNumstat(fields[1])
		status := statusByPath[path]
		if status == "" {
			status = FileModified
		}
		files = append(files, DiffFile{Path: path, Status: status, Additions: add, Deletions: del})
	}

	untracked, err := o.listUntracked(worktreePath)
	if err != nil {
		return nil, err
	}
	for _, path := range untracked {
		files = append(files, DiffFile{Path: path, Status: FileUntracked})
	}

	return files, nil
}

func (o *Ops) listUntracked(worktreePath string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--others", "--exclude-standard")
	cmd.Dir = worktreePath
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gitops: ls-files: %w", err)
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

func parseNumstat(s string) int {
	if s == "-" {
		return 0
	}
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

func translateNameStatus(code string) FileStatus {
	switch {
	case strings.HasPrefix(code, "A"):
		return FileAdded
	case strings.HasPrefix(code, "D"):
		return FileDeleted
	case strings.HasPrefix(code, "R"):
		return FileRenamed
	default:
		return FileModified
	}
}

// GetFileDiff returns the unified diff hunk lines for one file, parsed from
// `git diff` output (go-git exposes no line-level hunk API).
func (o *Ops) GetFileDiff(worktreePath, filePath string) ([]DiffLine, error) {
	cmd := exec.Command("git", "diff", "HEAD", "--", filePath)
	cmd.Dir = worktreePath
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gitops: diff: %w", err)
	}
	if len(out) == 0 {
		// Possibly untracked; show it as all additions.
		data, rerr := os.ReadFile(filepath.Join(worktreePath, filePath))
		if rerr != nil {
			return nil, nil
		}
		var lines []DiffLine
		for i, l := range strings.Split(string(data), "\n") {
			lines = append(lines, DiffLine{Kind: "addition", Content: l, NewLineNo: i + 1})
		}
		return lines, nil
	}
	return parseUnifiedDiff(string(out)), nil
}

func parseUnifiedDiff(text string) []DiffLine {
	var lines []DiffLine
	oldLine, newLine := 0, 0
	for _, raw := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(raw, "@@"):
			lines = append(lines, DiffLine{Kind: "header", Content: raw})
			oldLine, newLine = parseHunkHeader(raw)
		case strings.HasPrefix(raw, "+++") || strings.HasPrefix(raw, "---") || strings.HasPrefix(raw, "diff ") || strings.HasPrefix(raw, "index "):
			continue
		case strings.HasPrefix(raw, "+"):
			lines = append(lines, DiffLine{Kind: "addition", Content: raw[1:], NewLineNo: newLine})
			newLine++
		case strings.HasPrefix(raw, "-"):
			lines = append(lines, DiffLine{Kind: "deletion", Content: raw[1:], OldLineNo: oldLine})
			oldLine++
		case raw == "":
			// trailing newline artifact; skip
		default:
			content := raw
			if strings.HasPrefix(raw, " ") {
				content = raw[1:]
			}
			lines = append(lines, DiffLine{Kind: "context", Content: content, OldLineNo: oldLine, NewLineNo: newLine})
			oldLine++
			newLine++
		}
	}
	return lines
}

func parseHunkHeader(header string) (oldStart, newStart int) {
	// Format: @@ -oldStart,oldCount +newStart,newCount @@
	var oldPart, newPart string
	parts := strings.Fields(header)
	for _, p := range parts {
		if strings.HasPrefix(p, "-") {
			oldPart = strings.TrimPrefix(p, "-")
		} else if strings.HasPrefix(p, "+") {
			newPart = strings.TrimPrefix(p, "+")
		}
	}
	oldStart = firstIntField(oldPart)
	newStart = firstIntField(newPart)
	return
}

func firstIntField(s string) int {
	s = strings.Split(s, ",")[0]
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
