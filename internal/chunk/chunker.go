// Package chunk splits a parsed session into the summary/turn/tool_usage
// chunks that the Embedder and Search operate over.
package chunk

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ovachiever/agent-sessions/internal/model"
)

// TargetTokens is the greedy turn-chunk packing target (§4.3).
const TargetTokens = 400

// SummaryPreviewChars is how much of the first prompt the summary chunk quotes.
const SummaryPreviewChars = 200

// ToolContextChars is how much surrounding context a tool-usage chunk keeps
// on each side of the matched invocation.
const ToolContextChars = 200

// agentDoPattern recognizes an `agent-do <name> [args]` invocation in
// message text, the reference tool-invocation pattern named in §4.3.
var agentDoPattern = regexp.MustCompile(`(?m)agent-do\s+(\S+)(?:\s+(.+?))?(?:\n|$)`)

// estimateTokens approximates token count as characters / 4, matching the
// rest of the pipeline's cheap estimator (no tokenizer dependency).
func estimateTokens(s string) int {
	return len(s) / 4
}

// Chunker splits (Session, []Message) into Chunks.
type Chunker struct{}

// New returns a Chunker. It carries no state: determinism (§4.4 companion
// requirement for the Tagger) applies here too — same inputs, same output.
func New() *Chunker {
	return &Chunker{}
}

// Chunk runs the full policy: summary chunk first, then turn chunks, then
// tool-usage chunks, with contiguous chunk indices.
func (c *Chunker) Chunk(sess model.Session, messages []model.Message) []model.Chunk {
	var chunks []model.Chunk

	chunks = append(chunks, c.summaryChunk(sess, messages))
	chunks = append(chunks, c.turnChunks(messages)...)
	chunks = append(chunks, c.toolUsageChunks(messages)...)

	for i := range chunks {
		chunks[i].ChunkIndex = i
	}
	return chunks
}

// summaryChunk builds the always-first, chunk_index=0 descriptor.
func (c *Chunker) summaryChunk(sess model.Session, messages []model.Message) model.Chunk {
	tools := detectedToolMentions(messages)

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", sess.ProjectName)
	fmt.Fprintf(&b, "Path: %s\n", sess.ProjectPath)
	if sess.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", sess.Title)
	}
	fmt.Fprintf(&b, "First prompt: %s\n", truncate(firstUserPrompt(messages), SummaryPreviewChars))
	if len(tools) > 0 {
		fmt.Fprintf(&b, "Tools used: %s\n", strings.Join(tools, ", "))
	}

	return model.Chunk{
		SessionID: sess.ID,
		ChunkType: model.ChunkTypeSummary,
		Content:   b.String(),
		Metadata: map[string]string{
			"chunk_type":   string(model.ChunkTypeSummary),
			"session_id":   sess.ID,
			"project_name": sess.ProjectName,
			"harness":      sess.Harness,
			"tools":        strings.Join(tools, ","),
		},
	}
}

// turnChunks greedily packs formatted "[role]: content" messages into
// chunks of at most TargetTokens estimated tokens. A message is never
// split; an oversized single message becomes its own chunk.
func (c *Chunker) turnChunks(messages []model.Message) []model.Chunk {
	var chunks []model.Chunk
	var current []string
	var currentIDs []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, model.Chunk{
			ChunkType: model.ChunkTypeTurn,
			Content:   strings.Join(current, "\n\n"),
			Metadata: map[string]string{
				"chunk_type":  string(model.ChunkTypeTurn),
				"message_ids": strings.Join(currentIDs, ","),
				"token_count": fmt.Sprint(currentTokens),
			},
		})
		current = nil
		currentIDs = nil
		currentTokens = 0
	}

	for _, m := range messages {
		formatted := fmt.Sprintf("[%s]: %s", m.Role, m.Content)
		tokens := estimateTokens(formatted)

		if currentTokens+tokens > TargetTokens && len(current) > 0 {
			flush()
		}

		current = append(current, formatted)
		currentIDs = append(currentIDs, m.ID)
		currentTokens += tokens
	}
	flush()

	return chunks
}

// toolUsageChunks emits one chunk per tool-invocation match in each
// message's text, each carrying ±ToolContextChars of context from that
// same message.
func (c *Chunker) toolUsageChunks(messages []model.Message) []model.Chunk {
	var chunks []model.Chunk

	for _, m := range messages {
		matches := agentDoPattern.FindAllStringSubmatchIndex(m.Content, -1)
		for _, loc := range matches {
			name := m.Content[loc[2]:loc[3]]
			args := ""
			if loc[4] >= 0 {
				args = m.Content[loc[4]:loc[5]]
			}

			start := loc[0] - ToolContextChars
			if start < 0 {
				start = 0
			}
			end := loc[1] + ToolContextChars
			if end > len(m.Content) {
				end = len(m.Content)
			}
			context := m.Content[start:end]

			content := fmt.Sprintf("Tool: agent-do %s %s\n\n%s", name, args, context)
			chunks = append(chunks, model.Chunk{
				MessageID: m.ID,
				ChunkType: model.ChunkTypeToolUsage,
				Content:   content,
				Metadata: map[string]string{
					"chunk_type": string(model.ChunkTypeToolUsage),
					"tool":       "agent-do " + name,
					"message_id": m.ID,
				},
			})
		}
	}

	return chunks
}

func firstUserPrompt(messages []model.Message) string {
	for _, m := range messages {
		if m.Role == model.RoleUser {
			return m.Content
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// detectedToolMentions collects, deduplicates and sorts every normalized
// tool mention seen across the session's messages.
func detectedToolMentions(messages []model.Message) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range messages {
		for _, t := range m.ToolMentions {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
