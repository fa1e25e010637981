// Package model defines the normalized session/message/chunk shapes shared
// by every provider, the store, the chunker, the tagger, and search.
package model

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleOther     Role = "other"
)

// ChunkType identifies the origin of a Chunk.
type ChunkType string

const (
	ChunkTypeSummary   ChunkType = "summary"
	ChunkTypeTurn      ChunkType = "turn"
	ChunkTypeToolUsage ChunkType = "tool_usage"
)

// FirstPromptPreviewLimit is the maximum length of Session.FirstPromptPreview
// before ellipsizing.
const FirstPromptPreviewLimit = 200

// Session is one transcript, normalized from whichever harness produced it.
type Session struct {
	ID                 string
	Harness            string
	ProjectPath        string
	ProjectName        string
	Title              string
	CreatedAt          int64
	ModifiedAt         int64
	IsChild            bool
	ChildType          string
	ParentID           string
	MessageCount       int
	TurnCount          int
	FirstPromptPreview string
	SourcePath         string
	SourceMtime        int64
	IndexedAt          int64
	AutoTags           []string
}

// Message is one turn within a Session.
type Message struct {
	ID           string
	SessionID    string
	Role         Role
	Content      string
	Timestamp    int64
	Sequence     int
	HasCode      bool
	ToolMentions []string
}

// Chunk is a piece of a session's content produced by the Chunker, the unit
// the Embedder operates over.
type Chunk struct {
	ID             int64
	SessionID      string
	MessageID      string
	ChunkIndex     int
	ChunkType      ChunkType
	Content        string
	Metadata       map[string]string
	Embedding      []float32
	EmbeddingModel string
	CreatedAt      int64
}

// Summary is an externally-generated short description of a Session.
type Summary struct {
	SessionID   string
	Text        string
	ModelName   string
	ContentHash string
	CreatedAt   int64
}

// ProjectStats are derived counters for one project path.
type ProjectStats struct {
	ProjectPath    string
	ProjectName    string
	SessionCount   int
	MessageCount   int
	LastActivityAt int64
}

// SearchLogEntry records one search query for the append-only search log.
type SearchLogEntry struct {
	ID           int64
	Query        string
	ResultCount  int
	TopSessionID []string
	DurationMS   int64
	CreatedAt    int64
}

// SessionFilter narrows get_sessions queries.
type SessionFilter struct {
	Harness string
	Project string
	IsChild *bool
}
