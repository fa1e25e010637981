// Package tagger implements the pattern-scored classifier that produces a
// session's activity/tool/technology tags.
package tagger

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ovachiever/agent-sessions/internal/model"
)

// MaxTags is the maximum number of tags a session keeps (§4.4).
const MaxTags = 15

const (
	toolScore       = 2.0
	activityScore   = 1.5
	technologyScore = 1.0
	projectScore    = 0.5
	harnessScore    = 0.5
)

type pattern struct {
	re  *regexp.Regexp
	tag string
}

func p(expr, tag string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)` + expr), tag: tag}
}

// toolPatterns recognize invocation verbs over a closed set of developer
// tools. Each match adds toolScore, once per occurrence (finditer-style).
var toolPatterns = []pattern{
	p(`agent-do\s+(\S+)`, "tool:agent-do"),
	p(`\bgit\s+(commit|push|pull|merge|rebase|checkout|branch|status|diff|log)\b`, "tool:git"),
	p(`\bnpm\s+(install|run|test|build)\b`, "tool:npm"),
	p(`\byarn\s+(install|run|test|build)\b`, "tool:yarn"),
	p(`\bdocker\s+(build|run|compose|ps|exec)\b`, "tool:docker"),
	p(`\bkubectl\s+\w+`, "tool:kubectl"),
	p(`\bpytest\b`, "tool:pytest"),
	p(`\bgo\s+(test|build|run|vet|mod)\b`, "tool:go"),
	p(`\bripgrep\b|\brg\s+`, "tool:ripgrep"),
	p(`\blsp\b`, "tool:lsp"),
	p(`\bast-grep\b`, "tool:ast-grep"),
	p(`\bgrep\s+`, "tool:grep"),
	p(`\bfind\s+`, "tool:find"),
	p(`\bls\s+`, "tool:ls"),
	p(`\bcat\s+`, "tool:cat"),
	p(`\bsed\s+`, "tool:sed"),
	p(`\bawk\s+`, "tool:awk"),
	p(`\bjq\s+`, "tool:jq"),
	p(`\bcurl\s+`, "tool:curl"),
	p(`\bwget\s+`, "tool:wget"),
	p(`\bvim\s+|\bnvim\s+`, "tool:vim"),
	p(`\btmux\s+`, "tool:tmux"),
	p(`\bvscode\b|\bcode\s+\.`, "tool:vscode"),
}

// activityPatterns recognize the task's general activity. Each pattern
// class contributes activityScore once, regardless of match count.
var activityPatterns = []pattern{
	p(`\b(debug|debugging|fix|fixing|bug)\b`, "activity:debugging"),
	p(`\b(implement|implementing|add|adding|build|building|create|creating)\b`, "activity:implementing"),
	p(`\b(refactor|refactoring|restructure|cleanup|clean up)\b`, "activity:refactoring"),
	p(`\b(test|testing|unit test|integration test)\b`, "activity:testing"),
	p(`\b(document|documenting|documentation|docstring|readme)\b`, "activity:documenting"),
	p(`\b(review|reviewing|code review|pr review)\b`, "activity:reviewing"),
	p(`\b(optimize|optimizing|performance|speed up)\b`, "activity:optimizing"),
	p(`\b(deploy|deploying|deployment|release)\b`, "activity:deploying"),
	p(`\b(migrate|migrating|migration)\b`, "activity:migrating"),
	p(`\b(integrate|integrating|integration)\b`, "activity:integrating"),
}

// technologyPatterns cover languages, frameworks, databases, cloud
// platforms, and other recognizable technology mentions. Each occurrence
// adds technologyScore (finditer-style).
var technologyPatterns = []pattern{
	p(`\breact\b`, "tech:react"),
	p(`\bvue\b`, "tech:vue"),
	p(`\bangular\b`, "tech:angular"),
	p(`\bsvelte\b`, "tech:svelte"),
	p(`\bnext\.?js\b`, "tech:nextjs"),
	p(`\bnuxt\b`, "tech:nuxt"),
	p(`\bpython\b`, "tech:python"),
	p(`\btypescript\b`, "tech:typescript"),
	p(`\bjavascript\b`, "tech:javascript"),
	p(`\bgolang\b|\bgo\b`, "tech:go"),
	p(`\brust\b`, "tech:rust"),
	p(`\bjava\b`, "tech:java"),
	p(`\bkotlin\b`, "tech:kotlin"),
	p(`\bswift\b`, "tech:swift"),
	p(`\bruby\b`, "tech:ruby"),
	p(`\bphp\b`, "tech:php"),
	p(`\bc\+\+\b`, "tech:cpp"),
	p(`\bc#\b`, "tech:csharp"),
	p(`\bpostgres(ql)?\b`, "tech:postgresql"),
	p(`\bmysql\b`, "tech:mysql"),
	p(`\bsqlite\b`, "tech:sqlite"),
	p(`\bmongodb\b`, "tech:mongodb"),
	p(`\bredis\b`, "tech:redis"),
	p(`\belasticsearch\b`, "tech:elasticsearch"),
	p(`\bdynamodb\b`, "tech:dynamodb"),
	p(`\bprisma\b`, "tech:prisma"),
	p(`\bsqlalchemy\b`, "tech:sqlalchemy"),
	p(`\bgorm\b`, "tech:gorm"),
	p(`\bjest\b`, "tech:jest"),
	p(`\bvitest\b`, "tech:vitest"),
	p(`\bpytest\b`, "tech:pytest"),
	p(`\bwebpack\b`, "tech:webpack"),
	p(`\bvite\b`, "tech:vite"),
	p(`\besbuild\b`, "tech:esbuild"),
	p(`\bturborepo\b`, "tech:turborepo"),
	p(`\baws\b`, "tech:aws"),
	p(`\bgcp\b|\bgoogle cloud\b`, "tech:gcp"),
	p(`\bazure\b`, "tech:azure"),
	p(`\bterraform\b`, "tech:terraform"),
	p(`\bkubernetes\b|\bk8s\b`, "tech:kubernetes"),
	p(`\bdocker\b`, "tech:docker"),
	p(`\bfastapi\b`, "tech:fastapi"),
	p(`\bdjango\b`, "tech:django"),
	p(`\bflask\b`, "tech:flask"),
	p(`\bexpress\b`, "tech:express"),
	p(`\bgraphql\b`, "tech:graphql"),
	p(`\bgrpc\b`, "tech:grpc"),
	p(`\brest api\b|\brestful\b`, "tech:api"),
	p(`\boauth\b|\bauthentication\b|\bauth\b`, "tech:auth"),
	p(`\bcaching\b|\bcache\b`, "tech:caching"),
	p(`\bsearch\b`, "tech:search"),
	p(`\bindexing\b|\bindex\b`, "tech:indexing"),
	p(`\bgit\b`, "tech:git"),
	p(`\bai\b|\bllm\b`, "tech:ai"),
	p(`\bwebsocket\b`, "tech:websocket"),
	p(`\btailwind\b`, "tech:tailwindcss"),
	p(`\bnode\.?js\b`, "tech:nodejs"),
	p(`\bdeno\b`, "tech:deno"),
	p(`\bbun\b`, "tech:bun"),
	p(`\bflutter\b`, "tech:flutter"),
	p(`\bandroid\b`, "tech:android"),
	p(`\bios\b`, "tech:ios"),
}

// Tagger is a pure function from (Session, []Message) to tags. It is
// stateless: same inputs always produce the same output.
type Tagger struct{}

// New returns a Tagger.
func New() *Tagger {
	return &Tagger{}
}

// Tags scores and ranks the session, returning at most MaxTags tags in
// descending score order, ties broken by insertion order.
func (t *Tagger) Tags(sess model.Session, messages []model.Message) []string {
	scores := make(map[string]float64)
	order := make(map[string]int)
	next := 0

	add := func(tag string, delta float64) {
		if _, seen := order[tag]; !seen {
			order[tag] = next
			next++
		}
		scores[tag] += delta
	}

	var text strings.Builder
	for _, m := range messages {
		text.WriteString(m.Content)
		text.WriteString("\n")
	}
	body := text.String()

	for _, pat := range toolPatterns {
		if matches := pat.re.FindAllStringIndex(body, -1); len(matches) > 0 {
			add(pat.tag, toolScore*float64(len(matches)))
		}
	}
	for _, pat := range activityPatterns {
		if pat.re.MatchString(body) {
			add(pat.tag, activityScore)
		}
	}
	for _, pat := range technologyPatterns {
		if matches := pat.re.FindAllStringIndex(body, -1); len(matches) > 0 {
			add(pat.tag, technologyScore*float64(len(matches)))
		}
	}

	if sess.ProjectName != "" {
		add("project:"+strings.ToLower(sess.ProjectName), projectScore)
	}
	if sess.Harness != "" {
		add("harness:"+sess.Harness, harnessScore)
	}

	// Tool-invocation tags also get a specific tool:agent-do-<name> tag
	// per §8 scenario 3.
	for _, m := range messages {
		for _, match := range agentDoNamePattern.FindAllStringSubmatch(m.Content, -1) {
			add("tool:agent-do-"+strings.ToLower(match[1]), toolScore)
		}
	}

	tags := make([]string, 0, len(scores))
	for tag := range scores {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if scores[tags[i]] != scores[tags[j]] {
			return scores[tags[i]] > scores[tags[j]]
		}
		return order[tags[i]] < order[tags[j]]
	})

	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

var agentDoNamePattern = regexp.MustCompile(`agent-do\s+(\S+)`)
