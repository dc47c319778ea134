package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kairei-project/kairei/memstore"
	"github.com/kairei-project/kairei/value"
)

// SharedMemoryPlugin reads a namespaced key from a memstore.Store and
// contributes it as a prompt section, then (optionally) writes the LLM's
// response back — the side-effecting half of §4.10's shared-memory plugin.
// Priority is configurable per §4.10 ("priority varies"). Delete/Exists/
// GetMetadata/ListKeys proxy the remaining four operations of the
// shared-memory contract (spec.md "Shared-memory plugin contract": get,
// set, delete, exists, get_metadata, list_keys) for callers holding a
// plugin reference directly, beyond the two ProviderPlugin hooks Execute
// drives.
type SharedMemoryPlugin struct {
	Store           memstore.Store
	Namespace       string
	ReadKey         string
	WriteKey        string // empty disables the post-response write
	WriteTTL        time.Duration
	SectionPriority int
}

func (p *SharedMemoryPlugin) Priority() int              { return p.SectionPriority }
func (p *SharedMemoryPlugin) Capability() CapabilityType { return CapSharedMemory }

func (p *SharedMemoryPlugin) key(k string) string { return p.Namespace + "/" + k }

func (p *SharedMemoryPlugin) GenerateSection(ctx context.Context, _ *PluginContext) (Section, error) {
	if p.ReadKey == "" {
		return Section{Priority: p.SectionPriority}, nil
	}
	v, meta, err := p.Store.Get(ctx, p.key(p.ReadKey))
	if err == memstore.ErrNotFound {
		return Section{Priority: p.SectionPriority}, nil
	}
	if err != nil {
		return Section{}, err
	}
	return Section{
		Content:  fmt.Sprintf("Shared memory (%s):\n%s", p.ReadKey, v.Display()),
		Priority: p.SectionPriority,
		Metadata: map[string]string{"content_type": meta.ContentType},
	}, nil
}

// ProcessResponse writes the LLM's response back to WriteKey. When the
// response content decodes as a JSON object, it's stored as a structured
// map (content_type "application/json") and also surfaced on resp so
// Execute can hand the caller a structured Value instead of plain text
// (§4.9 "a structured map when a plugin post-processor yielded one"),
// grounded on shared_memory.rs's serde_json::Value-typed content.
func (p *SharedMemoryPlugin) ProcessResponse(ctx context.Context, _ *PluginContext, resp *LLMResponse) error {
	if p.WriteKey == "" {
		return nil
	}
	if structured, ok := decodeJSONObject(resp.Content); ok {
		if resp.Structured == nil {
			resp.Structured = structured
		}
		return p.Store.Set(ctx, p.key(p.WriteKey), value.OfMap(structured), p.WriteTTL, "application/json", nil)
	}
	return p.Store.Set(ctx, p.key(p.WriteKey), value.OfString(resp.Content), p.WriteTTL, "text/plain", nil)
}

// Delete removes key from the store (shared-memory contract's `delete`).
func (p *SharedMemoryPlugin) Delete(ctx context.Context, key string) error {
	return p.Store.Delete(ctx, p.key(key))
}

// Exists reports whether key is present and unexpired (`exists`).
func (p *SharedMemoryPlugin) Exists(ctx context.Context, key string) (bool, error) {
	return p.Store.Exists(ctx, p.key(key))
}

// GetMetadata returns key's envelope without its value (`get_metadata`).
func (p *SharedMemoryPlugin) GetMetadata(ctx context.Context, key string) (memstore.Metadata, error) {
	return p.Store.GetMetadata(ctx, p.key(key))
}

// ListKeys matches pattern (glob: `*` and `?`) within this plugin's
// namespace and strips the namespace prefix back off (`list_keys`).
func (p *SharedMemoryPlugin) ListKeys(ctx context.Context, pattern string) ([]string, error) {
	namespaced, err := p.Store.Keys(ctx, p.key(pattern))
	if err != nil {
		return nil, err
	}
	prefix := p.Namespace + "/"
	out := make([]string, len(namespaced))
	for i, k := range namespaced {
		out[i] = strings.TrimPrefix(k, prefix)
	}
	return out, nil
}

var _ ProviderPlugin = (*SharedMemoryPlugin)(nil)

// decodeJSONObject decodes s as a JSON object into a value.Value map; ok is
// false for anything that isn't a top-level JSON object (plain text,
// arrays, scalars, or malformed JSON all fall through to plain-text
// storage).
func decodeJSONObject(s string) (map[string]value.Value, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false
	}
	out := make(map[string]value.Value, len(raw))
	for k, v := range raw {
		out[k] = jsonToValue(v)
	}
	return out, true
}

func jsonToValue(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.OfBool(t)
	case float64:
		if t == float64(int64(t)) {
			return value.OfInt(int64(t))
		}
		return value.OfFloat(t)
	case string:
		return value.OfString(t)
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, item := range t {
			items[i] = jsonToValue(item)
		}
		return value.OfList(items)
	case map[string]interface{}:
		m := make(map[string]value.Value, len(t))
		for k, item := range t {
			m[k] = jsonToValue(item)
		}
		return value.OfMap(m)
	default:
		return value.Null()
	}
}

// WebSearchPlugin fetches and summarises external pages at ~priority 100
// (§4.10). KAIREI ships no concrete search backend (out of scope per the
// same reasoning as LLM SDKs); Search is the injection point a real
// deployment wires up.
type WebSearchPlugin struct {
	Search func(ctx context.Context, query string) (string, error)
	Rank   int
}

func (p *WebSearchPlugin) Priority() int              { return p.Rank }
func (p *WebSearchPlugin) Capability() CapabilityType { return CapSearch }

func (p *WebSearchPlugin) GenerateSection(ctx context.Context, pc *PluginContext) (Section, error) {
	if p.Search == nil {
		return Section{Priority: p.Rank}, nil
	}
	summary, err := p.Search(ctx, pc.Request.Input.Query)
	if err != nil {
		return Section{}, err
	}
	return Section{Content: "Web search results:\n" + summary, Priority: p.Rank}, nil
}

func (p *WebSearchPlugin) ProcessResponse(context.Context, *PluginContext, *LLMResponse) error {
	return nil
}

var _ ProviderPlugin = (*WebSearchPlugin)(nil)
