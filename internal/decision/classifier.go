package decision

import (
	"context"
	"regexp"
	"strings"
)

// CategoryRule declares one decision category: keyword/regexp triggers,
// the proposed value, and the action the rule itself is comfortable with.
type CategoryRule struct {
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords,omitempty"`
	Patterns   []string `json:"patterns,omitempty"`
	Value      string   `json:"value,omitempty"`
	Action     string   `json:"action,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

type compiledCategory struct {
	category   string
	keywords   []string
	patterns   []*regexp.Regexp
	value      string
	action     string
	confidence float64
}

// KeywordClassifier is the built-in domain strategy: deterministic
// keyword/regexp classification, first match wins.
type KeywordClassifier struct {
	domain string
	rules  []compiledCategory
}

// NewKeywordClassifier builds a classifier. Invalid patterns are dropped.
func NewKeywordClassifier(domain string, rules []CategoryRule) *KeywordClassifier {
	c := &KeywordClassifier{domain: domain}
	for _, r := range rules {
		cc := compiledCategory{
			category:   r.Category,
			keywords:   r.Keywords,
			value:      r.Value,
			action:     r.Action,
			confidence: r.Confidence,
		}
		if cc.action == "" {
			cc.action = ActionAct
		}
		if cc.confidence <= 0 {
			cc.confidence = 0.9
		}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				continue
			}
			cc.patterns = append(cc.patterns, re)
		}
		c.rules = append(c.rules, cc)
	}
	return c
}

func (c *KeywordClassifier) Domain() string { return c.domain }

// Evaluate classifies the message. An unmatched message defers with a
// reason rather than guessing.
func (c *KeywordClassifier) Evaluate(_ context.Context, message, _ string, _ map[string]any) (*Result, error) {
	lower := strings.ToLower(message)
	for _, r := range c.rules {
		if categoryMatches(lower, message, r) {
			return &Result{
				Category:   r.category,
				Action:     r.action,
				Confidence: r.confidence,
				Value:      r.value,
			}, nil
		}
	}
	return &Result{
		Action: ActionDefer,
		Reason: "no category rule matched",
	}, nil
}

func categoryMatches(lower, original string, r compiledCategory) bool {
	for _, re := range r.patterns {
		if re.MatchString(original) {
			return true
		}
	}
	for _, kw := range r.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
