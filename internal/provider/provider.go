// Package provider abstracts the AI CLI tools (and the plain shell) that a
// Session can spawn: building their argv and, where supported, mining a
// short description out of the provider's own local session log.
package provider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SessionMode selects how a provider's command is assembled.
type SessionMode int

const (
	ModeShell SessionMode = iota
	ModeNew
	ModeResume
	ModeOneShot
)

// Config parameterizes a single BuildCommand call.
type Config struct {
	Mode      SessionMode
	Model     string
	Prompt    string
	SessionID string // used by ModeNew (optional) and ModeResume (required)
}

// SessionInfo is mined from a provider's own session log.
type SessionInfo struct {
	Description string
}

// AiProvider is the capability set every concrete provider implementation
// satisfies — the registry stores these as interface values rather than a
// closed enum, so a new provider needs no registry changes beyond adding it.
type AiProvider interface {
	Name() string
	DisplayName() string
	BuildCommand(cfg Config) (string, []string, error)
	ReadSessionInfo(sessionID, worktreePath string) (*SessionInfo, error)
	AvailableModels() []string
	DefaultModel() string
	SupportsResume() bool
	HasLocalSessions() bool
}

// Ref is a validated (provider, model) pair. Shell sessions use Shell() and
// bypass the registry entirely.
type Ref struct {
	Name  string
	Model string
}

func Shell() Ref { return Ref{Name: "shell"} }

func (r Ref) IsShell() bool { return r.Name == "shell" }

// NotFoundError / InvalidModelError are returned by NewRef; the daemon translates
// them to InvalidArgument at the RPC boundary.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("provider %q not found. available: %s", e.Name, strings.Join(e.Available, ", "))
}

type InvalidModelError struct {
	Provider  string
	Model     string
	Available []string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("invalid model %q for provider %q. available: %s", e.Model, e.Provider, strings.Join(e.Available, ", "))
}

// Registry holds the set of named providers and a configured default.
type Registry struct {
	providers map[string]AiProvider
	order     []string
	defaultName string
}

// NewRegistry builds the default registry (claude, codex). includeMock adds
// the mock provider for tests; it never ships enabled by default (spec.md §9).
func NewRegistry(includeMock bool) *Registry {
	r := &Registry{providers: map[string]AiProvider{}}
	r.register(NewClaudeProvider())
	r.register(NewCodexProvider())
	r.defaultName = "claude"
	if includeMock {
		r.register(NewMockProvider("mock"))
	}
	return r
}

func (r *Registry) register(p AiProvider) {
	r.providers[p.Name()] = p
	r.order = append(r.order, p.Name())
}

func (r *Registry) Get(name string) (AiProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) DefaultName() string { return r.defaultName }

// List returns providers in registration order.
func (r *Registry) List() []AiProvider {
	out := make([]AiProvider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

func (r *Registry) availableNames() []string {
	return append([]string(nil), r.order...)
}

// NewRef validates provider and model up front, defaulting either when the
// caller omits it, per spec.md §4.8's ProviderRef::new.
func NewRef(reg *Registry, providerName, model string) (Ref, error) {
	name := providerName
	if name == "" {
		name = reg.DefaultName()
	}
	p, ok := reg.Get(name)
	if !ok {
		return Ref{}, &NotFoundError{Name: name, Available: reg.availableNames()}
	}

	m := model
	if m == "" {
		m = p.DefaultModel()
	}
	valid := false
	for _, am := range p.AvailableModels() {
		if am == m {
			valid = true
			break
		}
	}
	if !valid {
		return Ref{}, &InvalidModelError{Provider: name, Model: m, Available: p.AvailableModels()}
	}

	return Ref{Name: name, Model: m}, nil
}

// BuildCommand resolves ref to a ModeNew argv (model only, no prompt or
// session id) via the registry, or the $SHELL / /bin/sh fallback for shell
// sessions.
func (reg *Registry) BuildCommand(ref Ref) (string, []string, error) {
	if ref.IsShell() {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		return shell, nil, nil
	}
	p, ok := reg.Get(ref.Name)
	if !ok {
		return "", nil, &NotFoundError{Name: ref.Name, Available: reg.availableNames()}
	}
	return p.BuildCommand(Config{Mode: ModeNew, Model: ref.Model})
}

// ─── Claude ─────────────────────────────────────────────────────────────

type ClaudeProvider struct {
	commandPath string
}

func NewClaudeProvider() *ClaudeProvider { return &ClaudeProvider{commandPath: "claude"} }

func (p *ClaudeProvider) Name() string        { return "claude" }
func (p *ClaudeProvider) DisplayName() string { return "Claude" }
func (p *ClaudeProvider) AvailableModels() []string {
	return []string{"opus", "sonnet", "haiku"}
}
func (p *ClaudeProvider) DefaultModel() string   { return "sonnet" }
func (p *ClaudeProvider) SupportsResume() bool   { return true }
func (p *ClaudeProvider) HasLocalSessions() bool { return true }

func (p *ClaudeProvider) BuildCommand(cfg Config) (string, []string, error) {
	var args []string
	switch cfg.Mode {
	case ModeShell:
		return "", nil, fmt.Errorf("claude: shell mode should not use AiProvider")
	case ModeNew:
		if cfg.Model != "" {
			args = append(args, "--model", cfg.Model)
		}
		if cfg.SessionID != "" {
			args = append(args, "--session-id", cfg.SessionID)
		}
		if cfg.Prompt != "" {
			args = append(args, cfg.Prompt)
		}
	case ModeResume:
		args = append(args, "--resume", cfg.SessionID)
	case ModeOneShot:
		if cfg.Model != "" {
			args = append(args, "--model", cfg.Model)
		}
		if cfg.Prompt != "" {
			args = append(args, cfg.Prompt)
		}
	}
	return p.commandPath, args, nil
}

// ReadSessionInfo mines ~/.claude/projects/<slug>/<id>.jsonl for the first
// meaningful user message, per spec.md §4.8.
func (p *ClaudeProvider) ReadSessionInfo(sessionID, worktreePath string) (*SessionInfo, error) {
	desc, ok := firstUserMessage(worktreePath, sessionID)
	if !ok {
		return nil, nil
	}
	return &SessionInfo{Description: desc}, nil
}

func claudeProjectSlug(worktreePath string) string {
	trimmed := strings.TrimSuffix(worktreePath, "/")
	return strings.ReplaceAll(trimmed, "/", "-")
}

type claudeSessionEntry struct {
	Type    string `json:"type"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
}

func firstUserMessage(worktreePath, sessionID string) (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	slug := claudeProjectSlug(worktreePath)
	path := filepath.Join(home, ".claude", "projects", slug, sessionID+".jsonl")

	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry claudeSessionEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Type != "user" || entry.Message == nil {
			continue
		}
		content := entry.Message.Content
		if content == "" || strings.HasPrefix(content, "<system-reminder>") {
			continue
		}
		line := content
		if idx := strings.IndexByte(content, '\n'); idx >= 0 {
			line = content[:idx]
		}
		return truncateCodePoints(line, 35), true
	}
	return "", false
}

func truncateCodePoints(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// ─── Codex ──────────────────────────────────────────────────────────────

type CodexProvider struct {
	commandPath string
}

func NewCodexProvider() *CodexProvider { return &CodexProvider{commandPath: "codex"} }

func (p *CodexProvider) Name() string        { return "codex" }
func (p *CodexProvider) DisplayName() string { return "OpenAI Codex" }
func (p *CodexProvider) AvailableModels() []string {
	return []string{"o4-mini", "o3", "gpt-4.1", "gpt-4o"}
}
func (p *CodexProvider) DefaultModel() string   { return "o4-mini" }
func (p *CodexProvider) SupportsResume() bool   { return true }
func (p *CodexProvider) HasLocalSessions() bool { return true }

func (p *CodexProvider) BuildCommand(cfg Config) (string, []string, error) {
	var args []string
	switch cfg.Mode {
	case ModeShell:
		return "", nil, fmt.Errorf("codex: shell mode should not use AiProvider")
	case ModeNew:
		if cfg.Model != "" {
			args = append(args, "--model", cfg.Model)
		}
		if cfg.Prompt != "" {
			args = append(args, cfg.Prompt)
		}
	case ModeResume:
		args = append(args, "resume", cfg.SessionID)
	case ModeOneShot:
		args = append(args, "exec")
		if cfg.Model != "" {
			args = append(args, "--model", cfg.Model)
		}
		if cfg.Prompt != "" {
			args = append(args, cfg.Prompt)
		}
	}
	return p.commandPath, args, nil
}

// ReadSessionInfo: Codex stores sessions in a platform-specific layout this
// implementation does not mine yet. This is an intentional open seam
// (spec.md §9), not a bug — implementations should fill it in rather than
// work around its absence.
func (p *CodexProvider) ReadSessionInfo(sessionID, worktreePath string) (*SessionInfo, error) {
	return nil, nil
}

// ─── Mock ───────────────────────────────────────────────────────────────

// MockProvider spawns a canned /bin/sh script instead of a real AI CLI, so
// session lifecycle and attach/replay can be exercised end-to-end in tests.
// It is never the registry's default.
type MockProvider struct {
	name         string
	displayName  string
	models       []string
	defaultModel string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:         name,
		displayName:  "Mock " + name,
		models:       []string{"mock-model-1", "mock-model-2"},
		defaultModel: "mock-model-1",
	}
}

func (p *MockProvider) Name() string               { return p.name }
func (p *MockProvider) DisplayName() string         { return p.displayName }
func (p *MockProvider) AvailableModels() []string   { return p.models }
func (p *MockProvider) DefaultModel() string        { return p.defaultModel }
func (p *MockProvider) SupportsResume() bool        { return true }
func (p *MockProvider) HasLocalSessions() bool      { return false }

func (p *MockProvider) BuildCommand(cfg Config) (string, []string, error) {
	model := cfg.Model
	if model == "" {
		model = p.defaultModel
	}
	promptMsg := "No prompt"
	if cfg.Prompt != "" {
		promptMsg = "Prompt: " + cfg.Prompt
	}
	script := fmt.Sprintf(`
echo "[MockProvider: %s]"
echo "Model: %s"
echo "%s"
echo "---"
echo "Mock AI ready. Type 'exit' to quit."
while read -r line; do
    if [ "$line" = "exit" ]; then
        exit 0
    fi
    echo "Mock response to: $line"
done
`, p.name, model, promptMsg)
	return "/bin/sh", []string{"-c", script}, nil
}

func (p *MockProvider) ReadSessionInfo(sessionID, worktreePath string) (*SessionInfo, error) {
	return &SessionInfo{Description: "Mock session"}, nil
}
