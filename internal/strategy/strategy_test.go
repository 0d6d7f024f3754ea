package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/resolvd/resolvd/internal/notification"
)

func pending(msg string) *notification.Notification {
	return &notification.Notification{
		ID:                "n1",
		SenderID:          "alice",
		Message:           msg,
		ResponseRequested: true,
		ResponseType:      notification.ResponseYesNo,
	}
}

func TestParseAgentContext(t *testing.T) {
	if got := ParseAgentContext("session notes [agent:build-bot] more text"); got != "build-bot" {
		t.Errorf("got %q", got)
	}
	if got := ParseAgentContext("no marker here"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestScriptMatcherFuzzyMatch(t *testing.T) {
	m := NewScriptMatcher([]ScriptEntry{
		{Question: "proceed with the deploy", Answer: "yes"},
		{Question: "delete production data", Answer: "no"},
	}, nil, 0)

	n := pending("Should we proceed with the deploy to staging?")
	got, err := m.Respond(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if got != "yes" {
		t.Errorf("answer = %q, want yes", got)
	}

	// Unrelated question abstains.
	got, err = m.Respond(context.Background(), pending("What color should the bikeshed be?"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("expected abstain, got %q", got)
	}
}

func TestScriptMatcherAgentContextScope(t *testing.T) {
	m := NewScriptMatcher([]ScriptEntry{
		{Question: "proceed with the deploy", Answer: "yes", AgentContext: "build-bot"},
	}, nil, 0)

	n := pending("proceed with the deploy?")
	if got, _ := m.Respond(context.Background(), n); got != "" {
		t.Errorf("scoped entry answered unscoped notification: %q", got)
	}

	n.Abstract = "run log [agent:build-bot]"
	if got, _ := m.Respond(context.Background(), n); got != "yes" {
		t.Errorf("scoped entry did not answer its tag: %q", got)
	}

	n.Abstract = "[agent:other-bot]"
	if got, _ := m.Respond(context.Background(), n); got != "" {
		t.Errorf("scoped entry answered a different tag: %q", got)
	}
}

func TestScriptMatcherBatch(t *testing.T) {
	m := NewScriptMatcher([]ScriptEntry{
		{Question: "proceed with the deploy", Answer: "yes"},
		{Question: "overwrite the config file", Answer: "no"},
	}, nil, 0)

	n := pending("1. proceed with the deploy?\n2. overwrite the config file?")
	n.ResponseType = notification.ResponseOpenEndedBatch

	got, err := m.Respond(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	var payload struct {
		Answers []string `json:"answers"`
	}
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("batch payload not JSON: %v (%q)", err, got)
	}
	if len(payload.Answers) != 2 || payload.Answers[0] != "yes" || payload.Answers[1] != "no" {
		t.Errorf("answers = %v", payload.Answers)
	}

	// One unanswerable sub-question abstains the whole batch.
	n.Message = "1. proceed with the deploy?\n2. what is the meaning of life?"
	if got, _ := m.Respond(context.Background(), n); got != "" {
		t.Errorf("partial batch should abstain, got %q", got)
	}
}

func TestRuleTable(t *testing.T) {
	tbl := NewRuleTable([]Rule{
		{Name: "proceed", Keywords: []string{"proceed"}, Answer: "yes"},
		{Name: "force-push", Patterns: []string{`(?i)force[- ]push`}, Answer: "no"},
		{Name: "broken", Patterns: []string{`([`}, Answer: "never"},
	}, nil)

	cases := []struct {
		msg  string
		want string
	}{
		{"Proceed with rollout?", "yes"},
		{"OK to force-push main?", "no"},
		{"Unknown question", ""},
	}
	for _, c := range cases {
		got, err := tbl.Respond(context.Background(), pending(c.msg))
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("Respond(%q) = %q, want %q", c.msg, got, c.want)
		}
	}
}

func TestCanHandleAdmission(t *testing.T) {
	tbl := NewRuleTable([]Rule{{Keywords: []string{"x"}, Answer: "yes"}}, []string{"alice"})

	n := pending("x")
	if !tbl.CanHandle(n) {
		t.Error("alice should be admitted")
	}
	n.SenderID = "alice#cli"
	if !tbl.CanHandle(n) {
		t.Error("alice#cli should be admitted regardless of suffix")
	}
	n.SenderID = "eve"
	if tbl.CanHandle(n) {
		t.Error("eve should be rejected")
	}
	n.SenderID = "alice"
	n.ResponseRequested = false
	if tbl.CanHandle(n) {
		t.Error("no admission without response_requested")
	}

	empty := NewRuleTable(nil, nil)
	if empty.CanHandle(pending("x")) {
		t.Error("empty rule table is not available")
	}
}

type stubStrategy struct {
	name   string
	can    bool
	answer string
	err    error
	calls  int
}

func (s *stubStrategy) Name() string                                    { return s.name }
func (s *stubStrategy) CanHandle(*notification.Notification) bool       { return s.can }
func (s *stubStrategy) Respond(context.Context, *notification.Notification) (string, error) {
	s.calls++
	return s.answer, s.err
}

func TestChainFirstAnswerWins(t *testing.T) {
	first := &stubStrategy{name: "first", can: true, answer: ""}
	second := &stubStrategy{name: "second", can: true, answer: "yes"}
	third := &stubStrategy{name: "third", can: true, answer: "no"}

	answer, tier := NewChain(first, second, third).Resolve(context.Background(), pending("q"))
	if answer != "yes" || tier != "second" {
		t.Errorf("got (%q, %q)", answer, tier)
	}
	if third.calls != 0 {
		t.Error("chain continued past the first answer")
	}
}

func TestChainSkipsFailingTier(t *testing.T) {
	bad := &stubStrategy{name: "bad", can: true, err: errors.New("backend down")}
	good := &stubStrategy{name: "good", can: true, answer: "cancel"}

	answer, tier := NewChain(bad, good).Resolve(context.Background(), pending("q"))
	if answer != "cancel" || tier != "good" {
		t.Errorf("got (%q, %q)", answer, tier)
	}
}

func TestChainAllAbstain(t *testing.T) {
	a := &stubStrategy{name: "a", can: true}
	b := &stubStrategy{name: "b", can: false, answer: "never"}

	answer, tier := NewChain(a, b).Resolve(context.Background(), pending("q"))
	if answer != "" || tier != "" {
		t.Errorf("got (%q, %q), want abstain", answer, tier)
	}
	if b.calls != 0 {
		t.Error("ineligible tier was invoked")
	}
}

func TestForMode(t *testing.T) {
	script := NewScriptMatcher([]ScriptEntry{{Question: "q", Answer: "a"}}, nil, 0)
	rules := NewRuleTable([]Rule{{Keywords: []string{"q"}, Answer: "a"}}, nil)
	fallback := NewCloudFallback(nil, "", nil)

	if got := ForMode(ModeRulesOnly, script, rules, fallback).Tiers(); len(got) != 1 || got[0] != TierRules {
		t.Errorf("rules_only tiers = %v", got)
	}
	if got := ForMode(ModeScriptMatcherOnly, script, rules, fallback).Tiers(); len(got) != 1 || got[0] != TierScript {
		t.Errorf("script_matcher_only tiers = %v", got)
	}
	if got := ForMode(ModeAuto, script, rules, fallback).Tiers(); len(got) != 3 {
		t.Errorf("auto tiers = %v", got)
	}
}
