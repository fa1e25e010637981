package providers

import "strings"

// DetectAutomatedSession recognizes system-generated or bot-dispatched
// sessions from the shape of their first prompt, shared across every
// provider so each harness-specific worker-detection heuristic only has to
// handle what's actually harness-specific.
func DetectAutomatedSession(firstPrompt string) (isAutomated bool, automationType string) {
	trimmed := strings.TrimSpace(firstPrompt)
	if trimmed == "" {
		return false, ""
	}

	start := trimmed
	if len(start) > 500 {
		start = start[:500]
	}
	lower := strings.ToLower(start)

	switch {
	case strings.HasPrefix(start, "<system-notification>"):
		return true, "system-notification"
	case strings.HasPrefix(start, "<command-message>"):
		return true, "command-message"
	case strings.HasPrefix(start, "<command-instruction>"):
		return true, "command-instruction"
	case strings.HasPrefix(start, "<local-command-caveat>"):
		return true, "command-caveat"
	case strings.HasPrefix(lower, "[search-mode]"):
		return true, "search-mode"
	case strings.HasPrefix(lower, "[analyze-mode]"):
		return true, "analyze-mode"
	case strings.HasPrefix(strings.ToUpper(start), "[SYSTEM DIRECTIVE"):
		return true, "system-directive"
	case strings.HasPrefix(strings.ToUpper(start), "[COMPACTION CONTEXT"):
		return true, "compaction-context"
	case strings.HasPrefix(lower, "summarize the task tool output above"):
		return true, "subagent-continuation"
	}

	return false, ""
}
