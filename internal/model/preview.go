package model

// TruncatePreview ellipsizes s to at most FirstPromptPreviewLimit runes,
// appending "..." when truncation occurs.
func TruncatePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= FirstPromptPreviewLimit {
		return s
	}
	return string(runes[:FirstPromptPreviewLimit-3]) + "..."
}
