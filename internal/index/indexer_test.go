package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/providers"
	"github.com/ovachiever/agent-sessions/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a fully in-memory Provider for exercising the Indexer
// without touching any real harness's on-disk storage.
type stubProvider struct {
	name     string
	sessions map[string]*model.Session
	messages map[string][]model.Message
	children func(parent model.Session, all []model.Session) []model.Session
}

func (p *stubProvider) Name() string        { return p.name }
func (p *stubProvider) DisplayName() string { return p.name }
func (p *stubProvider) IsAvailable() bool   { return true }
func (p *stubProvider) FastDiscovery() bool { return true }

func (p *stubProvider) DiscoverSessionFiles() ([]string, error) {
	var out []string
	for id := range p.sessions {
		out = append(out, "/virtual/"+id+".json")
	}
	return out, nil
}

func (p *stubProvider) DiscoverSessionsFast() (map[string]int64, error) {
	out := make(map[string]int64)
	for id, s := range p.sessions {
		out[id] = s.SourceMtime
	}
	return out, nil
}

func (p *stubProvider) ParseSession(path string) (*model.Session, []model.Message, error) {
	id := filepath.Base(path)
	id = id[:len(id)-len(filepath.Ext(id))]
	sess, ok := p.sessions[id]
	if !ok {
		return nil, nil, nil
	}
	cp := *sess
	return &cp, p.messages[id], nil
}

func (p *stubProvider) ResumeCommand(sess model.Session) string { return "" }

func (p *stubProvider) TaskInvocations(sess model.Session) ([]providers.TaskInvocation, error) {
	return nil, nil
}

func (p *stubProvider) FindChildren(parent model.Session, all []model.Session) []model.Session {
	if p.children != nil {
		return p.children(parent, all)
	}
	return nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path, store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFullReindexIndexesSessionsMessagesAndChunks(t *testing.T) {
	s := openTestStore(t)
	reg := providers.NewRegistry()
	reg.Register(&stubProvider{
		name: "claude-code",
		sessions: map[string]*model.Session{
			"s1": {ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", CreatedAt: 100, ModifiedAt: 200, SourceMtime: 200},
		},
		messages: map[string][]model.Message{
			"s1": {{ID: "m0", SessionID: "s1", Role: model.RoleUser, Content: "fix the bug", Sequence: 0}},
		},
	})

	ix := New(Config{Store: s, Registry: reg})
	stats, err := ix.FullReindex(context.Background(), ReindexOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionsIndexed)
	assert.Equal(t, 1, stats.MessagesIndexed)
	assert.Positive(t, stats.ChunksCreated)

	got, err := s.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.MessageCount)

	msgs, err := s.GetSessionMessages("s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestFullReindexMetadataOnlySkipsMessagesAndChunks(t *testing.T) {
	s := openTestStore(t)
	reg := providers.NewRegistry()
	reg.Register(&stubProvider{
		name: "claude-code",
		sessions: map[string]*model.Session{
			"s1": {ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p"},
		},
		messages: map[string][]model.Message{
			"s1": {{ID: "m0", SessionID: "s1", Role: model.RoleUser, Content: "hello", Sequence: 0}},
		},
	})

	ix := New(Config{Store: s, Registry: reg})
	stats, err := ix.FullReindex(context.Background(), ReindexOptions{MetadataOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionsIndexed)
	assert.Equal(t, 0, stats.MessagesIndexed)

	msgs, err := s.GetSessionMessages("s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestIndexSessionClearsDanglingParentID(t *testing.T) {
	s := openTestStore(t)
	reg := providers.NewRegistry()
	reg.Register(&stubProvider{
		name: "claude-code",
		sessions: map[string]*model.Session{
			"child": {ID: "child", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", IsChild: true, ParentID: "missing-parent", ChildType: "worker"},
		},
	})

	ix := New(Config{Store: s, Registry: reg})
	_, err := ix.FullReindex(context.Background(), ReindexOptions{})
	require.NoError(t, err)

	got, err := s.GetSession("child")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsChild)
	assert.Empty(t, got.ParentID)
}

func TestIncrementalUpdateSkipsUnchangedSessions(t *testing.T) {
	s := openTestStore(t)
	reg := providers.NewRegistry()
	p := &stubProvider{
		name: "claude-code",
		sessions: map[string]*model.Session{
			"s1": {ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", SourceMtime: 100},
		},
	}
	reg.Register(p)

	ix := New(Config{Store: s, Registry: reg})
	_, err := ix.FullReindex(context.Background(), ReindexOptions{})
	require.NoError(t, err)

	stats, err := ix.IncrementalUpdate(context.Background(), IncrementalOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SessionsIndexed)
}

func TestIncrementalUpdateReindexesChangedSessions(t *testing.T) {
	s := openTestStore(t)
	reg := providers.NewRegistry()
	p := &stubProvider{
		name: "claude-code",
		sessions: map[string]*model.Session{
			"s1": {ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", SourceMtime: 100},
		},
	}
	reg.Register(p)

	ix := New(Config{Store: s, Registry: reg})
	_, err := ix.FullReindex(context.Background(), ReindexOptions{})
	require.NoError(t, err)

	got, err := s.GetSession("s1")
	require.NoError(t, err)
	p.sessions["s1"].SourceMtime = got.IndexedAt + 1000

	stats, err := ix.IncrementalUpdate(context.Background(), IncrementalOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionsIndexed)
}

func TestLinkOrphanedChildrenAssignsParentID(t *testing.T) {
	s := openTestStore(t)
	reg := providers.NewRegistry()
	reg.Register(&stubProvider{
		name: "claude-code",
		sessions: map[string]*model.Session{
			"parent": {ID: "parent", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p"},
			"child":  {ID: "child", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", IsChild: true, ChildType: "worker"},
		},
		children: func(parent model.Session, all []model.Session) []model.Session {
			if parent.ID != "parent" {
				return nil
			}
			var kids []model.Session
			for _, s := range all {
				if s.ID == "child" {
					kids = append(kids, s)
				}
			}
			return kids
		},
	})

	ix := New(Config{Store: s, Registry: reg})
	_, err := ix.FullReindex(context.Background(), ReindexOptions{})
	require.NoError(t, err)

	child, err := s.GetSession("child")
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, "parent", child.ParentID)
}
