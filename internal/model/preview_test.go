package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncatePreviewShort(t *testing.T) {
	assert.Equal(t, "hello", TruncatePreview("hello"))
}

func TestTruncatePreviewLong(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := TruncatePreview(long)
	assert.Len(t, []rune(got), FirstPromptPreviewLimit)
	assert.True(t, strings.HasSuffix(got, "..."))
}
