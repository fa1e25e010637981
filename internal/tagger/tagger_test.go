package tagger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovachiever/agent-sessions/internal/model"
)

func TestTagsIncludesProjectAndHarness(t *testing.T) {
	tg := New()
	sess := model.Session{ProjectName: "Widget", Harness: "claude-code"}
	tags := tg.Tags(sess, nil)

	assert.Contains(t, tags, "project:widget")
	assert.Contains(t, tags, "harness:claude-code")
}

func TestTagsDetectsAgentDoInvocation(t *testing.T) {
	tg := New()
	sess := model.Session{ProjectName: "p", Harness: "h"}
	messages := []model.Message{
		{ID: "m0", Role: model.RoleUser, Content: "please run agent-do lint src/"},
	}

	tags := tg.Tags(sess, messages)
	assert.Contains(t, tags, "tool:agent-do")
	assert.Contains(t, tags, "tool:agent-do-lint")
}

func TestTagsDetectsActivityAndTechnology(t *testing.T) {
	tg := New()
	sess := model.Session{ProjectName: "p", Harness: "h"}
	messages := []model.Message{
		{ID: "m0", Role: model.RoleUser, Content: "let's debug this python flask endpoint"},
	}

	tags := tg.Tags(sess, messages)
	assert.Contains(t, tags, "activity:debugging")
	assert.Contains(t, tags, "tech:python")
	assert.Contains(t, tags, "tech:flask")
}

func TestTagsCappedAtMaxTags(t *testing.T) {
	tg := New()
	sess := model.Session{ProjectName: "p", Harness: "h"}
	var content string
	for _, pat := range technologyPatterns {
		content += " " + pat.tag
	}
	// Use representative keywords instead of tag names so patterns actually match.
	content = "react vue angular svelte nextjs nuxt python typescript javascript go rust java kotlin swift ruby php postgresql mysql sqlite mongodb redis"
	messages := []model.Message{{ID: "m0", Role: model.RoleUser, Content: content}}

	tags := tg.Tags(sess, messages)
	require.LessOrEqual(t, len(tags), MaxTags)
}

func TestTagsDeterministic(t *testing.T) {
	tg := New()
	sess := model.Session{ProjectName: "p", Harness: "h"}
	messages := []model.Message{
		{ID: "m0", Role: model.RoleUser, Content: "debugging a go test with git commit"},
	}

	first := tg.Tags(sess, messages)
	second := tg.Tags(sess, messages)
	assert.Equal(t, first, second)
}

func TestTagsEmptySession(t *testing.T) {
	tg := New()
	tags := tg.Tags(model.Session{}, nil)
	assert.Empty(t, tags)
}
