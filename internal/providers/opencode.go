package providers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ovachiever/agent-sessions/internal/model"
)

func opencodeDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "opencode")
}

func opencodeStorageDir(dataDir string) string  { return filepath.Join(dataDir, "storage") }
func opencodeMessageDir(dataDir string) string  { return filepath.Join(opencodeStorageDir(dataDir), "message") }
func opencodePartDir(dataDir string) string     { return filepath.Join(opencodeStorageDir(dataDir), "part") }
func opencodeSessionMetaDir(dataDir string) string {
	return filepath.Join(opencodeStorageDir(dataDir), "session")
}

// OpenCodeProvider reads OpenCode's message/part-file session storage.
// Unlike the other harnesses, OpenCode records an explicit parentID in its
// session metadata, so child linking needs no heuristic.
type OpenCodeProvider struct {
	dataDir string
}

var _ Provider = (*OpenCodeProvider)(nil)

// NewOpenCodeProvider returns an OpenCodeProvider rooted at the default
// OpenCode XDG data directory.
func NewOpenCodeProvider() *OpenCodeProvider {
	return &OpenCodeProvider{dataDir: opencodeDataDir()}
}

func (p *OpenCodeProvider) Name() string        { return "opencode" }
func (p *OpenCodeProvider) DisplayName() string  { return "OpenCode" }

// FastDiscovery is false: discovering sessions means enumerating every
// ses_* directory under the message store and globbing each one, a cost
// that scales with total history rather than recency.
func (p *OpenCodeProvider) FastDiscovery() bool { return false }

func (p *OpenCodeProvider) IsAvailable() bool {
	if p.dataDir == "" {
		return false
	}
	info, err := os.Stat(opencodeMessageDir(p.dataDir))
	return err == nil && info.IsDir()
}

func (p *OpenCodeProvider) DiscoverSessionFiles() ([]string, error) {
	messageDir := opencodeMessageDir(p.dataDir)
	if !p.IsAvailable() {
		return nil, nil
	}
	entries, err := os.ReadDir(messageDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "ses_") {
			files = append(files, filepath.Join(opencodeStorageDir(p.dataDir), "sessions", e.Name()+".opencode"))
		}
	}
	return files, nil
}

func (p *OpenCodeProvider) DiscoverSessionsFast() (map[string]int64, error) {
	messageDir := opencodeMessageDir(p.dataDir)
	if !p.IsAvailable() {
		return nil, nil
	}
	entries, err := os.ReadDir(messageDir)
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "ses_") {
			continue
		}
		msgFiles, err := filepath.Glob(filepath.Join(messageDir, e.Name(), "*.json"))
		if err != nil || len(msgFiles) == 0 {
			continue
		}
		var maxMtime int64
		for _, f := range msgFiles {
			if info, err := os.Stat(f); err == nil && info.ModTime().Unix() > maxMtime {
				maxMtime = info.ModTime().Unix()
			}
		}
		result[e.Name()] = maxMtime
	}
	return result, nil
}

type opencodeMessageFile struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Time  struct {
		Created   int64 `json:"created"`
		Completed int64 `json:"completed"`
	} `json:"time"`
	Path struct {
		Root string `json:"root"`
		CWD  string `json:"cwd"`
	} `json:"path"`
	ModelID string `json:"modelID"`
	Agent   string `json:"agent"`
}

type opencodePartFile struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type opencodeSessionMeta struct {
	ParentID  string `json:"parentID"`
	Title     string `json:"title"`
	Directory string `json:"directory"`
}

func (p *OpenCodeProvider) messageContent(messageID string) string {
	if messageID == "" {
		return ""
	}
	partDir := filepath.Join(opencodePartDir(p.dataDir), messageID)
	partFiles, err := filepath.Glob(filepath.Join(partDir, "*.json"))
	if err != nil {
		return ""
	}
	sort.Strings(partFiles)

	var parts []string
	for _, pf := range partFiles {
		raw, err := os.ReadFile(pf)
		if err != nil {
			continue
		}
		var part opencodePartFile
		if json.Unmarshal(raw, &part) != nil {
			continue
		}
		if part.Type == "text" && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (p *OpenCodeProvider) sessionMetadata(sessionID string) *opencodeSessionMeta {
	metaDir := opencodeSessionMetaDir(p.dataDir)
	projectDirs, err := os.ReadDir(metaDir)
	if err != nil {
		return nil
	}
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		metaPath := filepath.Join(metaDir, pd.Name(), sessionID+".json")
		raw, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var meta opencodeSessionMeta
		if json.Unmarshal(raw, &meta) == nil {
			return &meta
		}
	}
	return nil
}

// detectChildType classifies a sub-agent session from its opening prompt,
// for display purposes only; linking itself relies on parentID.
func detectChildType(firstPrompt string) string {
	if firstPrompt == "" {
		return "worker"
	}
	start := firstPrompt
	if len(start) > 500 {
		start = start[:500]
	}
	upper := strings.ToUpper(start)

	switch {
	case strings.Contains(upper, "SINGLE TASK ONLY"):
		return "single-task"
	case strings.Contains(upper, "FILE-ANALYSIS"):
		return "file-analysis"
	case len(firstPrompt) >= 16 && strings.Contains(strings.ToLower(firstPrompt[:16]), "analyze this file"):
		return "file-analysis"
	}
	return "worker"
}

func (p *OpenCodeProvider) ParseSession(path string) (*model.Session, []model.Message, error) {
	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	messageSessionDir := filepath.Join(opencodeMessageDir(p.dataDir), sessionID)

	msgFiles, err := filepath.Glob(filepath.Join(messageSessionDir, "*.json"))
	if err != nil || len(msgFiles) == 0 {
		return nil, nil, nil
	}
	sort.Strings(msgFiles)

	var (
		projectPath string
		projectName = "OpenCode"
		modelName   = "unknown"
		agent       string
		createdAt   time.Time
		modifiedAt  time.Time
	)

	var messages []model.Message
	seq := 0
	for _, mf := range msgFiles {
		raw, err := os.ReadFile(mf)
		if err != nil {
			continue
		}
		var msg opencodeMessageFile
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}

		if msg.Time.Created > 0 {
			ts := time.UnixMilli(msg.Time.Created)
			if createdAt.IsZero() || ts.Before(createdAt) {
				createdAt = ts
			}
		}
		if msg.Time.Completed > 0 {
			ts := time.UnixMilli(msg.Time.Completed)
			if ts.After(modifiedAt) {
				modifiedAt = ts
			}
		}

		if msg.Path.Root != "" {
			projectPath = msg.Path.Root
			projectName = filepath.Base(projectPath)
		} else if msg.Path.CWD != "" {
			projectPath = msg.Path.CWD
			projectName = filepath.Base(projectPath)
		}

		if msg.Role == "assistant" {
			if msg.ModelID != "" {
				modelName = msg.ModelID
			}
			if msg.Agent != "" {
				agent = msg.Agent
			}
		}

		content := p.messageContent(msg.ID)
		if content == "" {
			continue
		}

		role := model.RoleOther
		switch msg.Role {
		case "user":
			role = model.RoleUser
		case "assistant":
			role = model.RoleAssistant
		}

		var ts int64
		if msg.Time.Created > 0 {
			ts = msg.Time.Created / 1000
		}

		messages = append(messages, model.Message{
			ID:        msg.ID,
			SessionID: sessionID,
			Role:      role,
			Content:   content,
			Timestamp: ts,
			Sequence:  seq,
		})
		seq++
	}

	if len(messages) == 0 {
		return nil, nil, nil
	}

	var firstPrompt string
	for _, m := range messages {
		if m.Role == model.RoleUser {
			firstPrompt = m.Content
			break
		}
	}

	meta := p.sessionMetadata(sessionID)
	var parentID, sessionTitle string
	if meta != nil {
		parentID = meta.ParentID
		sessionTitle = meta.Title
		if projectPath == "" && meta.Directory != "" {
			projectPath = meta.Directory
			projectName = filepath.Base(projectPath)
		}
	}
	if projectPath == "" {
		home, _ := os.UserHomeDir()
		projectPath = home
		projectName = "OpenCode"
	}

	isChild := parentID != ""
	childType := ""
	if isChild {
		childType = detectChildType(firstPrompt)
	}

	title := sessionTitle
	if title == "" {
		title = titleFromPrompt(firstPrompt)
	}

	var maxMtime int64
	for _, f := range msgFiles {
		if info, err := os.Stat(f); err == nil && info.ModTime().Unix() > maxMtime {
			maxMtime = info.ModTime().Unix()
		}
	}
	if !modifiedAt.IsZero() {
		if modifiedAt.Unix() > maxMtime {
			maxMtime = modifiedAt.Unix()
		}
	}

	sess := &model.Session{
		ID:                 sessionID,
		Harness:            p.Name(),
		ProjectPath:        projectPath,
		ProjectName:        projectName,
		Title:              title,
		CreatedAt:          createdAt.Unix(),
		ModifiedAt:         maxMtime,
		IsChild:            isChild,
		ChildType:          childType,
		ParentID:           parentID,
		MessageCount:       len(messages),
		FirstPromptPreview: model.TruncatePreview(firstPrompt),
		SourcePath:         path,
		SourceMtime:        maxMtime,
	}
	_ = modelName
	_ = agent
	return sess, messages, nil
}

// titleFromPrompt derives a display title from a prompt's first
// non-tag line, skipping an opening XML-ish tag line if present.
func titleFromPrompt(prompt string) string {
	if prompt == "" {
		return "OpenCode Session"
	}
	lines := strings.Split(prompt, "\n")
	first := strings.TrimSpace(lines[0])
	if strings.HasPrefix(first, "<") && strings.Contains(first, ">") {
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "<") {
				first = line
				break
			}
		}
	}
	if len(first) > 80 {
		first = first[:80]
	}
	if first == "" {
		return "OpenCode Session"
	}
	return first
}

func (p *OpenCodeProvider) ResumeCommand(sess model.Session) string {
	return fmt.Sprintf("opencode --resume %s", sess.ID)
}

func (p *OpenCodeProvider) TaskInvocations(sess model.Session) ([]TaskInvocation, error) {
	return nil, nil
}

// FindChildren relies on OpenCode's explicit parentID rather than timing
// heuristics.
func (p *OpenCodeProvider) FindChildren(parent model.Session, all []model.Session) []model.Session {
	if parent.IsChild {
		return nil
	}
	var children []model.Session
	for _, s := range all {
		if s.Harness == p.Name() && s.ParentID == parent.ID {
			children = append(children, s)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		a, b := children[i].CreatedAt, children[j].CreatedAt
		if a == 0 {
			a = children[i].ModifiedAt
		}
		if b == 0 {
			b = children[j].ModifiedAt
		}
		return a < b
	})
	return children
}
