package strategy

import (
	"context"
	"regexp"
	"strings"

	"github.com/resolvd/resolvd/internal/notification"
)

// Rule is a deterministic keyword/regexp rule. The first rule that matches
// the notification message wins.
type Rule struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Answer   string   `json:"answer"`
}

type compiledRule struct {
	name     string
	patterns []*regexp.Regexp
	keywords []string
	answer   string
}

// RuleTable answers notifications from a static rule set, fully offline.
type RuleTable struct {
	admission
	rules []compiledRule
}

// NewRuleTable compiles the rule set. Invalid patterns are dropped.
func NewRuleTable(rules []Rule, acceptedSenders []string) *RuleTable {
	t := &RuleTable{
		admission: admission{available: len(rules) > 0, acceptedSenders: acceptedSenders},
	}
	for _, r := range rules {
		cr := compiledRule{name: r.Name, keywords: r.Keywords, answer: r.Answer}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				continue
			}
			cr.patterns = append(cr.patterns, re)
		}
		t.rules = append(t.rules, cr)
	}
	return t
}

func (t *RuleTable) Name() string { return TierRules }

func (t *RuleTable) CanHandle(n *notification.Notification) bool {
	return t.admits(n)
}

func (t *RuleTable) Respond(_ context.Context, n *notification.Notification) (string, error) {
	text := n.Message
	if text == "" {
		text = n.Title
	}
	for _, r := range t.rules {
		if ruleMatches(text, r) {
			return r.answer, nil
		}
	}
	return "", nil
}

func ruleMatches(text string, r compiledRule) bool {
	for _, re := range r.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range r.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
