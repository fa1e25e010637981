// Package providers discovers and parses transcripts from AI coding
// assistant harnesses (Claude Code, Cursor, Factory Droid, OpenCode) into
// the shared session model.
package providers

import (
	"time"

	"github.com/ovachiever/agent-sessions/internal/model"
)

// ChildLinkWindow is the fallback time window used when matching an
// unlinked child session to a candidate parent by modification time and
// project path, rather than by an exact task-invocation timestamp.
// It is a package variable; nothing in this module assigns it from
// Config.Providers, so the 2-hour default applies.
var ChildLinkWindow = 2 * time.Hour

// TaskInvocation records a single sub-agent dispatch observed in a parent
// session's transcript, used to link child sessions to the parent that
// spawned them.
type TaskInvocation struct {
	SubagentType string
	Timestamp    time.Time
	Description  string
}

// Provider discovers and parses sessions for one AI coding harness.
type Provider interface {
	// Name is the unique harness identifier, e.g. "claude-code".
	Name() string

	// DisplayName is the human-readable harness name.
	DisplayName() string

	// IsAvailable reports whether this harness's session storage exists
	// on the local machine.
	IsAvailable() bool

	// DiscoverSessionFiles lists every session file (or virtual path, for
	// providers backed by a database) this harness currently has.
	DiscoverSessionFiles() ([]string, error)

	// DiscoverSessionsFast returns session ID -> last-modified unix time
	// without fully parsing each session, for incremental-index change
	// detection.
	DiscoverSessionsFast() (map[string]int64, error)

	// FastDiscovery reports whether DiscoverSessionsFast/DiscoverSessionFiles
	// can bound their cost by recency rather than walking this harness's
	// entire session history every call. An incremental update with a
	// MaxAge cutoff skips providers that report false here, since doing
	// the full-history walk would defeat the point of asking for a bounded
	// pass.
	FastDiscovery() bool

	// ParseSession parses one session file into a Session and its
	// ordered Messages. Returns (nil, nil, nil) for an empty/skippable
	// session rather than an error.
	ParseSession(path string) (*model.Session, []model.Message, error)

	// ResumeCommand returns the shell command that resumes this session
	// in its native harness, if one exists.
	ResumeCommand(sess model.Session) string

	// TaskInvocations returns sub-agent dispatches found in sess's
	// transcript. Returns an empty slice for providers/sessions with no
	// such concept.
	TaskInvocations(sess model.Session) ([]TaskInvocation, error)

	// FindChildren returns the sessions in all that are sub-agent
	// children of parent, using whatever linking strategy this harness
	// supports (explicit parent ID, task-invocation timing, or none).
	FindChildren(parent model.Session, all []model.Session) []model.Session
}

// Registry holds the set of known providers, keyed by Name().
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns the provider with the given name, if registered.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// All returns every registered provider in registration order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Available returns every registered provider whose IsAvailable is true.
func (r *Registry) Available() []Provider {
	var out []Provider
	for _, p := range r.All() {
		if p.IsAvailable() {
			out = append(out, p)
		}
	}
	return out
}

// DefaultRegistry returns a Registry with all built-in providers
// registered: Claude Code, Cursor, Factory Droid, OpenCode.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewClaudeCodeProvider())
	r.Register(NewCursorProvider())
	r.Register(NewDroidProvider())
	r.Register(NewOpenCodeProvider())
	return r
}
