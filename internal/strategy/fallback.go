package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/resolvd/resolvd/internal/notification"
	"github.com/resolvd/resolvd/internal/provider"
)

// CloudFallback is the last tier: an unconstrained general-purpose
// responder backed by an LLM provider. Used only when the script matcher
// and the rule table both abstain.
type CloudFallback struct {
	admission
	provider provider.LLMProvider
	model    string
}

// NewCloudFallback creates the fallback tier. A nil provider leaves the
// strategy unavailable.
func NewCloudFallback(p provider.LLMProvider, model string, acceptedSenders []string) *CloudFallback {
	return &CloudFallback{
		admission: admission{available: p != nil, acceptedSenders: acceptedSenders},
		provider:  p,
		model:     model,
	}
}

func (f *CloudFallback) Name() string { return TierFallback }

func (f *CloudFallback) CanHandle(n *notification.Notification) bool {
	return f.admits(n)
}

func (f *CloudFallback) Respond(ctx context.Context, n *notification.Notification) (string, error) {
	resp, err := f.provider.Chat(ctx, &provider.ChatRequest{
		Model:       f.model,
		MaxTokens:   256,
		Temperature: 0,
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt(n)},
			{Role: "user", Content: userPrompt(n)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("fallback chat: %w", err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", nil
	}
	if n.ResponseType == notification.ResponseYesNo {
		return coerceYesNo(answer), nil
	}
	return answer, nil
}

func systemPrompt(n *notification.Notification) string {
	switch n.ResponseType {
	case notification.ResponseYesNo:
		return "You answer pending operational questions. Reply with exactly one word: yes or no. If you are not confident, reply with nothing."
	case notification.ResponseMultipleChoice:
		return fmt.Sprintf("You answer pending operational questions. Reply with exactly one of these options and nothing else: %s. If you are not confident, reply with nothing.",
			strings.Join(n.ResponseOptions, ", "))
	default:
		return "You answer pending operational questions. Reply with a short, direct answer. If you are not confident, reply with nothing."
	}
}

func userPrompt(n *notification.Notification) string {
	var b strings.Builder
	if n.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", n.Title)
	}
	if n.Abstract != "" {
		fmt.Fprintf(&b, "Context: %s\n", n.Abstract)
	}
	fmt.Fprintf(&b, "Question: %s", n.Message)
	return b.String()
}

// coerceYesNo maps free-form model output onto the yes/no contract.
// Anything else abstains rather than submitting garbage.
func coerceYesNo(answer string) string {
	first := strings.ToLower(strings.Trim(strings.Fields(answer)[0], ".,!"))
	switch first {
	case "yes", "y":
		return "yes"
	case "no", "n":
		return "no"
	}
	return ""
}
