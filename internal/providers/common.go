package providers

import (
	"regexp"
	"strings"
	"time"
)

// decodeProjectDir turns a harness's encoded project directory name (dashes
// standing in for path separators) back into a filesystem path.
func decodeProjectDir(encoded string) string {
	return strings.ReplaceAll(encoded, "-", "/")
}

// firstLine returns the first non-empty line of s, truncated to maxLen.
func firstLine(s string, maxLen int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > maxLen {
				return line[:maxLen]
			}
			return line
		}
	}
	return ""
}

// isSystemReminder reports whether content opens with a system-injected
// reminder tag that should be excluded from the human-visible transcript.
func isSystemReminder(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "<system-reminder>")
}

var subagentTypePattern = regexp.MustCompile(`subagent_type["\s:]+([a-zA-Z0-9_-]+)`)
var workerNumberPattern = regexp.MustCompile(`worker-(\d+)`)

// detectWorkerSession recognizes generic sub-agent/worker conventions
// observed across harnesses: an explicit subagent_type reference, a
// "# Worker Prompt" header, a numbered "workers" directory segment in the
// project path, or a bare "warmup" prompt used to pre-load a model.
func detectWorkerSession(firstPrompt, projectDir string) (isChild bool, childType string) {
	if isAuto, autoType := DetectAutomatedSession(firstPrompt); isAuto {
		return true, autoType
	}

	trimmed := strings.TrimSpace(firstPrompt)
	if strings.EqualFold(trimmed, "warmup") {
		return true, "warmup"
	}

	promptStart := trimmed
	if len(promptStart) > 800 {
		promptStart = promptStart[:800]
	}
	lower := strings.ToLower(promptStart)

	if strings.HasPrefix(promptStart, "# Worker Prompt") {
		return true, "worker"
	}

	pathLower := strings.ToLower(projectDir)
	if strings.Contains(pathLower, "workers") {
		if m := workerNumberPattern.FindStringSubmatch(pathLower); m != nil {
			return true, "worker-" + m[1]
		}
		return true, "worker"
	}

	if strings.Contains(lower, "subagent_type") {
		if m := subagentTypePattern.FindStringSubmatch(promptStart); m != nil {
			return true, m[1]
		}
		return true, "task-subagent"
	}

	return false, ""
}

// withinSeconds reports whether a and b are within window of each other.
func withinSeconds(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
