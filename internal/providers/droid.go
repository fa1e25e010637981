package providers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ovachiever/agent-sessions/internal/model"
)

const subagentTitlePrefix = "# Task Tool Invocation"

var droidSubagentTypePattern = regexp.MustCompile(`Subagent type: ([a-zA-Z0-9_-]+)`)

func droidSessionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".factory", "sessions")
}

// DroidProvider parses Factory Droid's JSONL transcripts.
type DroidProvider struct {
	dir string
}

var _ Provider = (*DroidProvider)(nil)

// NewDroidProvider returns a DroidProvider rooted at the default Factory
// Droid session directory.
func NewDroidProvider() *DroidProvider {
	return &DroidProvider{dir: droidSessionsDir()}
}

func (p *DroidProvider) Name() string       { return "droid" }
func (p *DroidProvider) DisplayName() string { return "Factory Droid" }

// FastDiscovery is false: discovering sessions means reading every project
// directory under the sessions root and globbing each one, a cost that
// scales with total history rather than recency.
func (p *DroidProvider) FastDiscovery() bool { return false }
func (p *DroidProvider) IsAvailable() bool {
	if p.dir == "" {
		return false
	}
	info, err := os.Stat(p.dir)
	return err == nil && info.IsDir()
}

func (p *DroidProvider) DiscoverSessionFiles() ([]string, error) {
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

func (p *DroidProvider) DiscoverSessionsFast() (map[string]int64, error) {
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

type droidLine struct {
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	SessionTitle string         `json:"sessionTitle"`
	CWD         string          `json:"cwd"`
	Timestamp   string          `json:"timestamp"`
	Message     json.RawMessage `json:"message"`
}

type droidMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type droidSettings struct {
	Model string `json:"model"`
}

func (p *DroidProvider) ParseSession(path string) (*model.Session, []model.Message, error) {
	projectDir := filepath.Base(filepath.Dir(path))
	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	settingsPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".settings.json"
	modelName := "unknown"
	if raw, err := os.ReadFile(settingsPath); err == nil {
		var settings droidSettings
		if json.Unmarshal(raw, &settings) == nil && settings.Model != "" {
			modelName = settings.Model
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var (
		title       = "Untitled Session"
		cwd         string
		isSubagent  bool
		subagentType string
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
		var entry droidLine
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}

		switch entry.Type {
		case "session_start":
			t := entry.Title
			if t == "" {
				t = entry.SessionTitle
			}
			if t == "" {
				t = "Untitled"
			}
			if len(t) > 80 {
				t = t[:80]
			}
			title = t
			if entry.CWD != "" {
				cwd = entry.CWD
			} else {
				cwd = decodeProjectDir(projectDir)
			}
			if strings.HasPrefix(title, subagentTitlePrefix) {
				isSubagent = true
				if m := droidSubagentTypePattern.FindStringSubmatch(title); m != nil {
					subagentType = m[1]
				}
			}

		case "message":
			var msg droidMessage
			if len(entry.Message) == 0 || json.Unmarshal(entry.Message, &msg) != nil {
				continue
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

			role := model.RoleUser
			if msg.Role == "assistant" {
				role = model.RoleAssistant
			}

			messages = append(messages, model.Message{
				ID:        fmt.Sprintf("%s_%d", sessionID, seq),
				SessionID: sessionID,
				Role:      role,
				Content:   content,
				Timestamp: ts,
				Sequence:  seq,
			})
			seq++
		}
	}

	if len(messages) == 0 {
		return nil, nil, nil
	}

	var firstUserPrompt string
	for _, m := range messages {
		if m.Role == model.RoleUser {
			firstUserPrompt = m.Content
			break
		}
	}

	childType := subagentType
	isChild := isSubagent
	if !isChild {
		isChild, childType = detectWorkerSession(firstUserPrompt, projectDir)
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
	_ = modelName
	return sess, messages, nil
}

func (p *DroidProvider) ResumeCommand(sess model.Session) string {
	return fmt.Sprintf("droid --resume %s", sess.ID)
}

func (p *DroidProvider) TaskInvocations(sess model.Session) ([]TaskInvocation, error) {
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
		var entry droidLine
		if json.Unmarshal([]byte(line), &entry) != nil || entry.Type != "message" {
			continue
		}
		var msg struct {
			Role    string `json:"role"`
			Content []struct {
				Name  string `json:"name"`
				Input struct {
					SubagentType string `json:"subagent_type"`
					Description  string `json:"description"`
				} `json:"input"`
			} `json:"content"`
		}
		if json.Unmarshal(entry.Message, &msg) != nil || msg.Role != "assistant" {
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

func (p *DroidProvider) FindChildren(parent model.Session, all []model.Session) []model.Session {
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
