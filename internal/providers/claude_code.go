package providers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ovachiever/agent-sessions/internal/model"
)

// claudeCodeSessionsDir is where Claude Code stores one JSONL file per
// session, grouped into per-project directories whose names are the
// project path with "/" replaced by "-".
func claudeCodeSessionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// ClaudeCodeProvider parses Claude Code's JSONL transcripts.
type ClaudeCodeProvider struct {
	dir string
}

var _ Provider = (*ClaudeCodeProvider)(nil)

// NewClaudeCodeProvider returns a ClaudeCodeProvider rooted at the default
// Claude Code session directory.
func NewClaudeCodeProvider() *ClaudeCodeProvider {
	return &ClaudeCodeProvider{dir: claudeCodeSessionsDir()}
}

func (p *ClaudeCodeProvider) Name() string        { return "claude-code" }
func (p *ClaudeCodeProvider) DisplayName() string  { return "Claude Code" }

// FastDiscovery is false: discovering sessions means reading every project
// directory under the sessions root and globbing each one, a cost that
// scales with total history rather than recency.
func (p *ClaudeCodeProvider) FastDiscovery() bool { return false }
func (p *ClaudeCodeProvider) IsAvailable() bool {
	if p.dir == "" {
		return false
	}
	info, err := os.Stat(p.dir)
	return err == nil && info.IsDir()
}

func (p *ClaudeCodeProvider) DiscoverSessionFiles() ([]string, error) {
	if !p.IsAvailable() {
		return nil, nil
	}
	var files []string
	projectDirs, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(p.dir, pd.Name(), "*.jsonl"))
		files = append(files, matches...)
	}
	return files, nil
}

func (p *ClaudeCodeProvider) DiscoverSessionsFast() (map[string]int64, error) {
	files, err := p.DiscoverSessionFiles()
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		result[id] = info.ModTime().Unix()
	}
	return result, nil
}

type claudeCodeLine struct {
	Type         string          `json:"type"`
	CWD          string          `json:"cwd"`
	Version      string          `json:"version"`
	GitBranch    string          `json:"gitBranch"`
	SessionID    string          `json:"sessionId"`
	IsSidechain  bool            `json:"isSidechain"`
	Timestamp    string          `json:"timestamp"`
	UUID         string          `json:"uuid"`
	Message      json.RawMessage `json:"message"`
}

type claudeCodeMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

func (p *ClaudeCodeProvider) ParseSession(path string) (*model.Session, []model.Message, error) {
	projectDir := filepath.Base(filepath.Dir(path))

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var (
		model_      = "unknown"
		cwd         string
		version     string
		gitBranch   string
		sessionID   = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		isSidechain bool
		createdAt   time.Time
	)

	var messages []model.Message
	seq := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry claudeCodeLine
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type == "file-history-snapshot" || entry.Type == "progress" {
			continue
		}

		if entry.Type == "user" {
			if cwd == "" {
				cwd = entry.CWD
			}
			if version == "" {
				version = entry.Version
			}
			if gitBranch == "" {
				gitBranch = entry.GitBranch
			}
			if entry.SessionID != "" {
				sessionID = entry.SessionID
			}
			if entry.IsSidechain {
				isSidechain = true
			}
		}

		if entry.Type != "user" && entry.Type != "assistant" {
			continue
		}

		var msg claudeCodeMessage
		if len(entry.Message) == 0 || json.Unmarshal(entry.Message, &msg) != nil {
			continue
		}

		if entry.Type == "assistant" && msg.Model != "" && model_ == "unknown" {
			model_ = msg.Model
		}

		if msg.Role != "user" && msg.Role != "assistant" {
			continue
		}

		if createdAt.IsZero() && entry.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, normalizeRFC3339(entry.Timestamp)); err == nil {
				createdAt = ts
			}
		}

		textOnly := msg.Role == "user"
		content := extractJSONContent(msg.Content, textOnly)
		if content == "" || isSystemReminder(content) {
			continue
		}

		var ts int64
		if entry.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, normalizeRFC3339(entry.Timestamp)); err == nil {
				ts = parsed.Unix()
			}
		}
		msgID := entry.UUID
		if msgID == "" {
			msgID = fmt.Sprintf("%s_%d", sessionID, seq)
		}

		role := model.RoleUser
		if msg.Role == "assistant" {
			role = model.RoleAssistant
		}

		messages = append(messages, model.Message{
			ID:        msgID,
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

	var firstUserPrompt, lastAssistantResponse string
	for _, m := range messages {
		if m.Role == model.RoleUser && firstUserPrompt == "" {
			firstUserPrompt = m.Content
		}
		if m.Role == model.RoleAssistant {
			lastAssistantResponse = m.Content
		}
	}

	isChild := isSidechain
	childType := ""
	if isChild {
		childType = "sidechain"
	} else {
		isChild, childType = detectWorkerSession(firstUserPrompt, projectDir)
	}

	title := firstLine(firstUserPrompt, 80)
	if title == "" {
		title = "Claude Code Session"
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	projectPath := cwd
	if projectPath == "" {
		projectPath = decodeProjectDir(projectDir)
	}

	sess := &model.Session{
		ID:                 sessionID,
		Harness:            p.Name(),
		ProjectPath:        projectPath,
		ProjectName:        filepath.Base(projectPath),
		Title:              title,
		CreatedAt:          createdAt.Unix(),
		ModifiedAt:         info.ModTime().Unix(),
		IsChild:            isChild,
		ChildType:          childType,
		MessageCount:       len(messages),
		FirstPromptPreview: model.TruncatePreview(firstUserPrompt),
		SourcePath:         path,
		SourceMtime:        info.ModTime().Unix(),
	}
	_ = lastAssistantResponse
	_ = version
	_ = gitBranch
	return sess, messages, nil
}

func (p *ClaudeCodeProvider) ResumeCommand(sess model.Session) string {
	return fmt.Sprintf("claude --resume %s", sess.ID)
}

func (p *ClaudeCodeProvider) TaskInvocations(sess model.Session) ([]TaskInvocation, error) {
	if sess.IsChild {
		return nil, nil
	}

	file, err := os.Open(sess.SourcePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var invocations []TaskInvocation
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, `"name":"Task"`) && !strings.Contains(line, `"name": "Task"`) {
			continue
		}
		var entry claudeCodeLine
		if json.Unmarshal([]byte(line), &entry) != nil || entry.Type != "assistant" {
			continue
		}
		var msg struct {
			Content []struct {
				Name  string `json:"name"`
				Input struct {
					SubagentType string `json:"subagent_type"`
					Description  string `json:"description"`
				} `json:"input"`
			} `json:"content"`
		}
		if json.Unmarshal(entry.Message, &msg) != nil {
			continue
		}
		var ts time.Time
		if entry.Timestamp != "" {
			ts, _ = time.Parse(time.RFC3339, normalizeRFC3339(entry.Timestamp))
		}
		for _, item := range msg.Content {
			if item.Name == "Task" && item.Input.SubagentType != "" {
				invocations = append(invocations, TaskInvocation{
					SubagentType: item.Input.SubagentType,
					Timestamp:    ts,
					Description:  item.Input.Description,
				})
			}
		}
	}
	return invocations, nil
}

func (p *ClaudeCodeProvider) FindChildren(parent model.Session, all []model.Session) []model.Session {
	if parent.IsChild {
		return nil
	}
	invocations, err := p.TaskInvocations(parent)
	if err != nil || len(invocations) == 0 {
		return nil
	}

	var subagents []model.Session
	for _, s := range all {
		if s.Harness == p.Name() && s.IsChild {
			subagents = append(subagents, s)
		}
	}

	var related []model.Session
	for _, sub := range subagents {
		if sub.ChildType == "" {
			continue
		}
		matched := false
		for _, inv := range invocations {
			if inv.SubagentType != sub.ChildType {
				continue
			}
			if !inv.Timestamp.IsZero() && sub.CreatedAt != 0 {
				if withinSeconds(time.Unix(sub.CreatedAt, 0), inv.Timestamp, 60*time.Second) {
					matched = true
					break
				}
			} else if sub.ModifiedAt != 0 && parent.ModifiedAt != 0 {
				if sub.ModifiedAt >= parent.ModifiedAt-int64(ChildLinkWindow.Seconds()) && sub.ProjectPath == parent.ProjectPath {
					matched = true
					break
				}
			}
		}
		if matched {
			related = append(related, sub)
		}
	}

	sort.Slice(related, func(i, j int) bool { return related[i].CreatedAt < related[j].CreatedAt })
	return related
}

// extractJSONContent normalizes a Claude Code message's content field,
// which is either a plain string or a list of typed content blocks, into
// flat text. When textOnly is true (user messages), tool_result blocks are
// dropped instead of summarized.
func extractJSONContent(raw json.RawMessage, textOnly bool) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if json.Unmarshal(raw, &asString) == nil {
		if isSystemReminder(asString) {
			return ""
		}
		return asString
	}

	var items []struct {
		Type    string          `json:"type"`
		Text    string          `json:"text"`
		Content json.RawMessage `json:"content"`
	}
	if json.Unmarshal(raw, &items) != nil {
		return ""
	}

	var parts []string
	for _, item := range items {
		switch item.Type {
		case "text":
			if item.Text != "" && !isSystemReminder(item.Text) {
				parts = append(parts, item.Text)
			}
		case "tool_result":
			if !textOnly {
				snippet := string(item.Content)
				if len(snippet) > 50 {
					snippet = snippet[:50]
				}
				parts = append(parts, fmt.Sprintf("(tool_result: %s...)", snippet))
			}
		}
	}
	return strings.Join(parts, " ")
}

// normalizeRFC3339 converts a trailing "Z" to an explicit UTC offset so
// time.RFC3339 parses timestamps as emitted by every harness here.
func normalizeRFC3339(ts string) string {
	if strings.HasSuffix(ts, "Z") {
		return strings.TrimSuffix(ts, "Z") + "+00:00"
	}
	return ts
}
