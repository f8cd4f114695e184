package engine

import (
	"context"
	"strings"

	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/pkg/types"
)

// Classifier routes content to one of the three kinds: profile, memory, or
// experience.
type Classifier interface {
	Classify(ctx context.Context, content string, contentContext types.Context) (*types.Classification, error)
}

// LLMClassifier classifies content with a single model completion. A
// malformed or invalid response becomes a *ClassificationError — the content
// is never silently routed to a default kind, because a wrong PROFILE route
// would corrupt the owner's structured profile.
type LLMClassifier struct {
	generator llm.TextGenerator
	retry     llm.RetryConfig
}

// NewLLMClassifier creates a classifier backed by the given text generator.
func NewLLMClassifier(generator llm.TextGenerator) *LLMClassifier {
	return &LLMClassifier{generator: generator, retry: llm.DefaultRetryConfig}
}

// Classify sends the classification prompt and parses the strict-JSON reply.
func (c *LLMClassifier) Classify(ctx context.Context, content string, contentContext types.Context) (*types.Classification, error) {
	prompt := llm.ClassificationPrompt(content, contentContext)

	var completion *llm.Completion
	err := llm.Retry(ctx, c.retry, func() error {
		var callErr error
		completion, callErr = c.generator.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		return nil, &ClassificationError{Reason: "model call failed", Err: err}
	}

	parsed, err := llm.ParseClassificationResponse(completion.Text)
	if err != nil {
		return nil, &ClassificationError{Reason: "unparseable model response", Err: err}
	}

	return &types.Classification{
		Kind:       types.ContentKind(parsed.Kind),
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
		Subtype:    parsed.Subtype,
	}, nil
}

// RuleClassifier is a deterministic classifier for offline operation and
// tests. Durable "my X is"-style statements route to profile, content with a
// detectable future schedule routes to experience, everything else to memory.
type RuleClassifier struct{}

// profileMarkers are lowercase phrases that signal a durable self-description.
var profileMarkers = []string{
	"my name is", "i was born", "my birthday", "i live in", "i moved to",
	"i work at", "i work for", "i started working", "i'm married to",
	"my wife", "my husband", "my spouse", "my daughter", "my son",
	"my dentist", "my doctor", "my mechanic",
}

// Classify applies the rule table. Confidence reflects how specific the
// matched signal is.
func (c *RuleClassifier) Classify(_ context.Context, content string, _ types.Context) (*types.Classification, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	lower := strings.ToLower(content)
	for _, marker := range profileMarkers {
		if strings.Contains(lower, marker) {
			return &types.Classification{
				Kind:       types.KindProfile,
				Confidence: 0.8,
				Reasoning:  "durable self-description marker: " + marker,
			}, nil
		}
	}

	if sched := DetectSchedule(content); sched != nil && sched.DueDate != nil {
		return &types.Classification{
			Kind:       types.KindExperience,
			Confidence: 0.7,
			Reasoning:  "future date reference detected",
			Subtype:    sched.EventType,
		}, nil
	}

	// Ambiguous tense breaks toward memory, the safe default.
	return &types.Classification{
		Kind:       types.KindMemory,
		Confidence: 0.5,
		Reasoning:  "no profile or schedule signal",
	}, nil
}

// Compile-time assertions.
var (
	_ Classifier = (*LLMClassifier)(nil)
	_ Classifier = (*RuleClassifier)(nil)
)
