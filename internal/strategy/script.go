package strategy

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/resolvd/resolvd/internal/notification"
)

// ScriptEntry is one known question→answer pair. AgentContext scopes the
// entry to notifications whose abstract carries a matching [agent:<tag>]
// marker; an empty AgentContext entry only matches unscoped notifications.
type ScriptEntry struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	AgentContext string `json:"agentContext,omitempty"`
}

// ScriptMatcher answers notifications by fuzzy-matching them against a
// small table of scripted question→answer pairs.
type ScriptMatcher struct {
	admission
	entries  []ScriptEntry
	minScore float64
}

var agentContextRe = regexp.MustCompile(`\[agent:([A-Za-z0-9_-]+)\]`)

// ParseAgentContext extracts the agent-context tag from a free-text
// abstract. Returns "" when no marker is present.
func ParseAgentContext(abstract string) string {
	m := agentContextRe.FindStringSubmatch(abstract)
	if m == nil {
		return ""
	}
	return m[1]
}

// NewScriptMatcher creates a script matcher. minScore defaults to 0.6.
func NewScriptMatcher(entries []ScriptEntry, acceptedSenders []string, minScore float64) *ScriptMatcher {
	if minScore <= 0 {
		minScore = 0.6
	}
	return &ScriptMatcher{
		admission: admission{available: len(entries) > 0, acceptedSenders: acceptedSenders},
		entries:   entries,
		minScore:  minScore,
	}
}

func (m *ScriptMatcher) Name() string { return TierScript }

func (m *ScriptMatcher) CanHandle(n *notification.Notification) bool {
	return m.admits(n)
}

// Respond matches the notification against the script table. For batch
// response types every numbered sub-question must resolve, and the result
// is a single structured payload.
func (m *ScriptMatcher) Respond(_ context.Context, n *notification.Notification) (string, error) {
	tag := ParseAgentContext(n.Abstract)

	if n.ResponseType == notification.ResponseOpenEndedBatch {
		return m.respondBatch(n.Message, tag)
	}

	if answer, ok := m.match(n.Message, tag); ok {
		return answer, nil
	}
	// Fall back to the title for terse notifications.
	if answer, ok := m.match(n.Title, tag); ok {
		return answer, nil
	}
	return "", nil
}

var batchItemRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+)$`)

// respondBatch answers all sub-questions in one call. If any sub-question
// has no scripted match the whole batch abstains; a partial payload would
// be worse than falling through to the next tier.
func (m *ScriptMatcher) respondBatch(message, tag string) (string, error) {
	items := batchItemRe.FindAllStringSubmatch(message, -1)
	if len(items) == 0 {
		return "", nil
	}
	answers := make([]string, 0, len(items))
	for _, item := range items {
		answer, ok := m.match(item[1], tag)
		if !ok {
			return "", nil
		}
		answers = append(answers, answer)
	}
	payload, err := json.Marshal(map[string]any{"answers": answers})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (m *ScriptMatcher) match(text, tag string) (string, bool) {
	textTokens := tokenize(text)
	if len(textTokens) == 0 {
		return "", false
	}

	best := ""
	bestScore := 0.0
	for _, e := range m.entries {
		// Scoped entries answer only their tag; unscoped entries answer
		// only unscoped notifications.
		if e.AgentContext != tag {
			continue
		}
		score := overlapScore(tokenize(e.Question), textTokens)
		if score > bestScore {
			bestScore = score
			best = e.Answer
		}
	}
	if bestScore >= m.minScore {
		return best, true
	}
	return "", false
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(nonWordRe.ReplaceAllString(strings.ToLower(s), " ")) {
		if len(tok) > 1 {
			out[tok] = true
		}
	}
	return out
}

// overlapScore is the fraction of the scripted question's tokens present
// in the notification text.
func overlapScore(question, text map[string]bool) float64 {
	if len(question) == 0 {
		return 0
	}
	hits := 0
	for tok := range question {
		if text[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(question))
}
