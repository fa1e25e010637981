package providers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ovachiever/agent-sessions/internal/model"
)

// Cursor stores its sessions in a VS Code-style SQLite key-value store
// rather than one file per session.
func cursorDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Application Support", "Cursor")
}

func cursorGlobalStorageDB(dataDir string) string {
	return filepath.Join(dataDir, "User", "globalStorage", "state.vscdb")
}

// CursorProvider reads Cursor's composer sessions out of its globalStorage
// SQLite database. Cursor has no sub-agent concept, so FindChildren always
// returns nothing.
type CursorProvider struct {
	dataDir string
}

var _ Provider = (*CursorProvider)(nil)

// NewCursorProvider returns a CursorProvider rooted at the default Cursor
// application support directory.
func NewCursorProvider() *CursorProvider {
	return &CursorProvider{dataDir: cursorDataDir()}
}

func (p *CursorProvider) Name() string        { return "cursor" }
func (p *CursorProvider) DisplayName() string  { return "Cursor" }

// FastDiscovery is true: discovery is one indexed SQL query against the
// global storage database, not a directory walk over every session ever
// created.
func (p *CursorProvider) FastDiscovery() bool { return true }

func (p *CursorProvider) dbPath() string {
	return cursorGlobalStorageDB(p.dataDir)
}

func (p *CursorProvider) IsAvailable() bool {
	if p.dataDir == "" {
		return false
	}
	_, err := os.Stat(p.dbPath())
	return err == nil
}

// openReadOnly opens the global storage database read-only. Cursor keeps
// an exclusive handle on it while running; callers should tolerate
// "database is locked" errors from concurrent writers rather than treating
// them as fatal.
func (p *CursorProvider) openReadOnly() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", p.dbPath())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (p *CursorProvider) DiscoverSessionFiles() ([]string, error) {
	if !p.IsAvailable() {
		return nil, nil
	}
	db, err := p.openReadOnly()
	if err != nil {
		return nil, nil
	}
	defer db.Close()

	rows, err := db.Query(`SELECT key FROM cursorDiskKV WHERE key LIKE 'backgroundComposerModalInputData:%'`)
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var key string
		if rows.Scan(&key) != nil {
			continue
		}
		sessionID := strings.TrimPrefix(key, "backgroundComposerModalInputData:")
		files = append(files, filepath.Join(p.dataDir, "sessions", sessionID+".cursor"))
	}
	return files, nil
}

func (p *CursorProvider) DiscoverSessionsFast() (map[string]int64, error) {
	files, err := p.DiscoverSessionFiles()
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p.dbPath())
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(files))
	for _, f := range files {
		id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		result[id] = info.ModTime().Unix()
	}
	return result, nil
}

var cursorFsPathPattern = regexp.MustCompile(`"fsPath":"([^"]+)"`)

type cursorLexicalNode struct {
	Type        string               `json:"type"`
	Text        string               `json:"text"`
	MentionName string               `json:"mentionName"`
	Children    []cursorLexicalNode  `json:"children"`
}

type cursorLexicalDoc struct {
	Root cursorLexicalNode `json:"root"`
}

// extractRichText walks Cursor's Lexical editor JSON tree into flat text.
func extractRichText(raw string) string {
	var doc cursorLexicalDoc
	if json.Unmarshal([]byte(raw), &doc) != nil {
		return ""
	}
	var parts []string
	var walk func(n cursorLexicalNode)
	walk = func(n cursorLexicalNode) {
		switch n.Type {
		case "text":
			if n.Text != "" {
				parts = append(parts, n.Text)
			}
		case "mention":
			parts = append(parts, "@"+n.MentionName)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(doc.Root)
	return strings.TrimSpace(strings.Join(parts, " "))
}

type cursorComposerData struct {
	ComposerData struct {
		RichText string `json:"richText"`
	} `json:"composerData"`
}

type cursorCachedDetails struct {
	Model        string `json:"model"`
	LastResponse string `json:"lastResponse"`
}

func (p *CursorProvider) ParseSession(path string) (*model.Session, []model.Message, error) {
	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	db, err := p.openReadOnly()
	if err != nil {
		return nil, nil, nil
	}
	defer db.Close()

	var firstPrompt, lastResponse, modelName string
	modelName = "unknown"
	projectPath := ""

	var composerJSON string
	row := db.QueryRow(`SELECT value FROM cursorDiskKV WHERE key = ?`, "backgroundComposerModalInputData:"+sessionID)
	if row.Scan(&composerJSON) == nil && composerJSON != "" {
		var data cursorComposerData
		if json.Unmarshal([]byte(composerJSON), &data) == nil {
			firstPrompt = extractRichText(data.ComposerData.RichText)
			if m := cursorFsPathPattern.FindStringSubmatch(data.ComposerData.RichText); m != nil {
				projectPath = findProjectRoot(m[1])
			}
		}
	}

	var detailsJSON string
	row = db.QueryRow(`SELECT value FROM cursorDiskKV WHERE key = ?`, "bcCachedDetails:"+sessionID)
	if row.Scan(&detailsJSON) == nil && detailsJSON != "" {
		var details cursorCachedDetails
		if json.Unmarshal([]byte(detailsJSON), &details) == nil {
			if details.Model != "" {
				modelName = details.Model
			}
			if details.LastResponse != "" {
				lastResponse = details.LastResponse
				if len(lastResponse) > 2000 {
					lastResponse = lastResponse[:2000]
				}
			}
		}
	}

	if firstPrompt == "" {
		return nil, nil, nil
	}

	if projectPath == "" {
		home, _ := os.UserHomeDir()
		projectPath = home
	}

	dbInfo, err := os.Stat(p.dbPath())
	if err != nil {
		return nil, nil, err
	}

	title := firstLine(firstPrompt, 80)
	if title == "" {
		title = "Cursor Session"
	}

	var messages []model.Message
	messages = append(messages, model.Message{
		ID:        sessionID + "_0",
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   firstPrompt,
		Timestamp: dbInfo.ModTime().Unix(),
		Sequence:  0,
	})
	if lastResponse != "" {
		messages = append(messages, model.Message{
			ID:        sessionID + "_1",
			SessionID: sessionID,
			Role:      model.RoleAssistant,
			Content:   lastResponse,
			Timestamp: dbInfo.ModTime().Unix(),
			Sequence:  1,
		})
	}

	sess := &model.Session{
		ID:                 sessionID,
		Harness:            p.Name(),
		ProjectPath:        projectPath,
		ProjectName:        filepath.Base(projectPath),
		Title:              title,
		ModifiedAt:         dbInfo.ModTime().Unix(),
		MessageCount:       len(messages),
		FirstPromptPreview: model.TruncatePreview(firstPrompt),
		SourcePath:         path,
		SourceMtime:        dbInfo.ModTime().Unix(),
	}
	_ = modelName
	return sess, messages, nil
}

// findProjectRoot walks up from a referenced file path looking for a
// project marker (.git or package.json), falling back to the file's
// immediate parent directory when none is found.
func findProjectRoot(filePath string) string {
	dir := filepath.Dir(filePath)
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return filepath.Dir(filePath)
}

func (p *CursorProvider) ResumeCommand(sess model.Session) string {
	return fmt.Sprintf("# Open Cursor and restore session %s", sess.ID)
}

func (p *CursorProvider) TaskInvocations(sess model.Session) ([]TaskInvocation, error) {
	return nil, nil
}

// FindChildren always returns nothing: Cursor has no sub-agent concept.
func (p *CursorProvider) FindChildren(parent model.Session, all []model.Session) []model.Session {
	return nil
}
