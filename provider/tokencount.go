package provider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is loaded lazily and cached: tiktoken-go ships its encoder
// tables as data, so construction isn't free and every caller wants the
// same cl100k_base encoding.
var (
	tokenEncOnce sync.Once
	tokenEnc     *tiktoken.Tiktoken
	tokenEncErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	tokenEncOnce.Do(func() {
		tokenEnc, tokenEncErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tokenEnc, tokenEncErr
}

// EstimateTokens approximates the token count of text using the same
// cl100k_base encoding most chat models use. Falls back to a byte/4
// heuristic if the encoder tables fail to load, so a token-budget check
// never hard-fails on encoder unavailability.
func EstimateTokens(text string) int {
	enc, err := encoding()
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// FitsBudget reports whether prompt's estimated token count stays within
// cfg.MaxTokens (§4.10 step 3's "common_config ... max_tokens" check run
// before dispatch); no completion budget is reserved on top of the prompt.
// A MaxTokens of 0 means no budget is configured and everything fits.
func FitsBudget(prompt string, cfg CommonConfig) bool {
	if cfg.MaxTokens <= 0 {
		return true
	}
	return EstimateTokens(prompt) <= cfg.MaxTokens
}
