package memstore

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncOnce/tokenEnc/tokenEncErr mirror provider's own lazy cl100k_base
// cache (provider can't be imported here: provider already imports memstore
// for the shared-memory plugin's backing store).
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

// estimateSize approximates a value's footprint in tokens rather than bytes,
// so Metadata.Size (§6 "Persisted state" get_metadata) speaks the same unit
// as a provider's prompt budget; store capacity counts entries, not tokens.
// Falls back to a byte/4 heuristic if the encoder tables fail to load.
func estimateSize(display string) int {
	enc, err := encoding()
	if err != nil {
		return (len(display) + 3) / 4
	}
	return len(enc.Encode(display, nil, nil))
}
