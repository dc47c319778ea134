package provider

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kairei-project/kairei/kaireierr"
)

// SimpleExpertBackend is a deterministic, pattern-matching Backend: it
// answers with the response registered for the first knowledge-base
// pattern found as a substring of the prompt, grounded on
// provider/llms/simple_expert.rs's SimpleExpertProviderLLM. It exists so
// the provider pipeline is exercisable and testable without any concrete
// LLM SDK (§1 Non-goals).
type SimpleExpertBackend struct {
	Name      string
	Knowledge map[string]string
}

func NewSimpleExpertBackend(name string, knowledge map[string]string) *SimpleExpertBackend {
	return &SimpleExpertBackend{Name: name, Knowledge: knowledge}
}

func (b *SimpleExpertBackend) Send(_ context.Context, prompt string, _ CommonConfig) (LLMResponse, error) {
	patterns := make([]string, 0, len(b.Knowledge))
	for p := range b.Knowledge {
		patterns = append(patterns, p)
	}
	// Longest pattern first: a more specific match should win over a
	// shorter one that happens to also appear in the prompt.
	sort.Slice(patterns, func(i, j int) bool { return len(patterns[i]) > len(patterns[j]) })

	for _, pattern := range patterns {
		if strings.Contains(prompt, pattern) {
			return LLMResponse{Content: b.Knowledge[pattern], Model: b.Name, Created: time.Now()}, nil
		}
	}
	return LLMResponse{}, kaireierr.New(kaireierr.KindProvider, "send", "no response found for prompt")
}

var _ Backend = (*SimpleExpertBackend)(nil)
