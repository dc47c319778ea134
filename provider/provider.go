// Package provider implements the KAIREI provider/plugin orchestration layer
// (§4.10): a Provider executes a ProviderRequest by assembling a prompt from
// registered plugin Sections, dispatching to an LLM back-end abstraction,
// then running every plugin's post-processing hook.
package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kairei-project/kairei/value"
)

// CapabilityType is one kind of contribution a plugin or provider supports
// (§3 "Capability & Plugin").
type CapabilityType string

const (
	CapGenerate      CapabilityType = "Generate"
	CapSystemPrompt  CapabilityType = "SystemPrompt"
	CapMemory        CapabilityType = "Memory"
	CapSearch        CapabilityType = "Search"
	CapPolicyPrompt  CapabilityType = "PolicyPrompt"
	CapSharedMemory  CapabilityType = "SharedMemory"
	CapGeneralPrompt CapabilityType = "GeneralPrompt"
)

// Capabilities is a set of CapabilityType.
type Capabilities map[CapabilityType]struct{}

func NewCapabilities(caps ...CapabilityType) Capabilities {
	c := make(Capabilities, len(caps))
	for _, k := range caps {
		c[k] = struct{}{}
	}
	return c
}

func (c Capabilities) Has(cap CapabilityType) bool {
	_, ok := c[cap]
	return ok
}

// CommonConfig carries the model-agnostic dispatch knobs (§4.10 step 3).
type CommonConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Policy is one policy string scoped to the world, an agent, or a single
// think block (§"Policy" glossary entry).
type PolicyScope int

const (
	PolicyScopeWorld PolicyScope = iota
	PolicyScopeAgent
	PolicyScopeThink
)

type Policy struct {
	Scope PolicyScope
	Text  string
}

// RequestInput is the query plus named parameters a Think expression sends.
type RequestInput struct {
	Query      string
	Parameters map[string]value.Value
}

// RequestState carries the agent state visible to plugins while assembling
// a prompt (e.g. the policy plugin reads Policies).
type RequestState struct {
	AgentName string
	State     map[string]value.Value
	Policies  []Policy
}

// ProviderRequest is what a Think expression builds and a Provider executes.
type ProviderRequest struct {
	Input  RequestInput
	State  RequestState
	Config CommonConfig
}

// ResponseMetadata accompanies every ProviderResponse.
type ResponseMetadata struct {
	Timestamp time.Time
	Model     string
}

// ProviderResponse is a Provider's result; Structured is set when a plugin's
// post-processing produced a structured map instead of plain text (§4.9
// "Value::String (or a structured map...)").
type ProviderResponse struct {
	Output     string
	Structured map[string]value.Value
	Metadata   ResponseMetadata
}

// Section is one plugin's prompt contribution (§3 "Capability & Plugin").
type Section struct {
	Content  string
	Priority int
	Metadata map[string]string
}

// PluginContext is passed to every ProviderPlugin hook.
type PluginContext struct {
	Request ProviderRequest
}

// ProviderPlugin contributes a prompt Section and may post-process the LLM
// response (§4.10).
type ProviderPlugin interface {
	Priority() int
	Capability() CapabilityType
	GenerateSection(ctx context.Context, pc *PluginContext) (Section, error)
	ProcessResponse(ctx context.Context, pc *PluginContext, resp *LLMResponse) error
}

// LLMResponse is what the back-end abstraction returns before plugin
// post-processing runs. A plugin's ProcessResponse may set Structured to
// contribute the structured map a Think expression sees instead of plain
// text (§4.9); the first plugin to set it wins, later plugins leave it
// alone.
type LLMResponse struct {
	Content    string
	Model      string
	Created    time.Time
	Structured map[string]value.Value
}

// Backend abstracts the actual LLM call a Provider makes after prompt
// assembly. KAIREI ships no concrete LLM SDK integration (§1 Non-goals);
// callers supply their own Backend, or use the bundled deterministic
// SimpleExpertBackend for tests and examples.
type Backend interface {
	Send(ctx context.Context, prompt string, cfg CommonConfig) (LLMResponse, error)
}

// Provider executes ProviderRequests against a Backend, composing prompt
// sections from its attached plugins (§4.10).
type Provider struct {
	name         string
	capabilities Capabilities
	backend      Backend
	plugins      []ProviderPlugin
}

// NewProvider constructs a Provider. Attach plugins with AttachPlugin, which
// enforces capability negotiation at registration time (§4.10).
func NewProvider(name string, caps Capabilities, backend Backend) *Provider {
	return &Provider{name: name, capabilities: caps, backend: backend}
}

func (p *Provider) Name() string              { return p.name }
func (p *Provider) Capabilities() Capabilities { return p.capabilities }

// CapabilityMismatchError reports a plugin attached to a provider that never
// declared the plugin's capability.
type CapabilityMismatchError struct {
	Provider   string
	Capability CapabilityType
}

func (e *CapabilityMismatchError) Error() string {
	return "provider " + e.Provider + " does not declare capability " + string(e.Capability)
}

// BudgetExceededError is returned when an assembled prompt's estimated
// token count exceeds CommonConfig.MaxTokens before dispatch.
type BudgetExceededError struct {
	MaxTokens int
	Estimated int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("provider: prompt estimated at %d tokens exceeds max_tokens budget %d", e.Estimated, e.MaxTokens)
}

// AttachPlugin registers plugin with p, rejecting it up-front if p's
// declared Capabilities doesn't include the plugin's capability (§4.10
// "Capability negotiation at registration time").
func (p *Provider) AttachPlugin(plugin ProviderPlugin) error {
	if !p.capabilities.Has(plugin.Capability()) {
		return &CapabilityMismatchError{Provider: p.name, Capability: plugin.Capability()}
	}
	p.plugins = append(p.plugins, plugin)
	return nil
}

// Execute runs one ProviderRequest through the full pipeline (§4.10 steps
// 1-5): gather sections from every attached plugin, sort by descending
// priority (stable — ties keep registration order), concatenate into one
// prompt, dispatch to the backend, then run every plugin's post-processing
// hook in attachment order.
func (p *Provider) Execute(ctx context.Context, req ProviderRequest) (ProviderResponse, error) {
	pc := &PluginContext{Request: req}

	type scored struct {
		section Section
		order   int
	}
	var sections []scored
	for i, plugin := range p.plugins {
		sec, err := plugin.GenerateSection(ctx, pc)
		if err != nil {
			return ProviderResponse{}, err
		}
		sections = append(sections, scored{section: sec, order: i})
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].section.Priority > sections[j].section.Priority
	})

	prompt := ""
	for i, s := range sections {
		if i > 0 {
			prompt += "\n\n"
		}
		prompt += s.section.Content
	}

	if !FitsBudget(prompt, req.Config) {
		return ProviderResponse{}, &BudgetExceededError{MaxTokens: req.Config.MaxTokens, Estimated: EstimateTokens(prompt)}
	}

	llmResp, err := p.backend.Send(ctx, prompt, req.Config)
	if err != nil {
		return ProviderResponse{}, err
	}

	for _, plugin := range p.plugins {
		if err := plugin.ProcessResponse(ctx, pc, &llmResp); err != nil {
			return ProviderResponse{}, err
		}
	}

	return ProviderResponse{
		Output:     llmResp.Content,
		Structured: llmResp.Structured,
		Metadata:   ResponseMetadata{Timestamp: llmResp.Created, Model: llmResp.Model},
	}, nil
}
