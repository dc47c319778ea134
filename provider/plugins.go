package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// GeneralPromptPlugin always contributes the raw query at the lowest
// priority (§4.10) — grounded on provider/plugins/general_prompt.rs: when
// the request carries extra parameters they're appended as a "parameters:"
// line, mirroring that file's params_str behaviour.
type GeneralPromptPlugin struct{}

func (GeneralPromptPlugin) Priority() int                 { return 0 }
func (GeneralPromptPlugin) Capability() CapabilityType    { return CapGeneralPrompt }

func (GeneralPromptPlugin) GenerateSection(_ context.Context, pc *PluginContext) (Section, error) {
	query := pc.Request.Input.Query
	if len(pc.Request.Input.Parameters) == 0 {
		return Section{Content: query, Priority: 0}, nil
	}
	keys := make([]string, 0, len(pc.Request.Input.Parameters))
	for k := range pc.Request.Input.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s: %s", k, pc.Request.Input.Parameters[k].Display())
	}
	content := fmt.Sprintf("%s\n\nparameters:(%s)", query, strings.Join(pairs, ", "))
	return Section{Content: content, Priority: 0}, nil
}

func (GeneralPromptPlugin) ProcessResponse(context.Context, *PluginContext, *LLMResponse) error {
	return nil
}

// PolicyPlugin concatenates world/agent/think-scope policies at priority 10
// (§4.10, §"Policy"), grounded on provider/plugins/policy.rs's three-section
// PromptSection builder (Global Policies / Agent-Specific Policies /
// Think-Specific Policies, one "- text" line per policy).
type PolicyPlugin struct{}

func (PolicyPlugin) Priority() int              { return 10 }
func (PolicyPlugin) Capability() CapabilityType { return CapPolicyPrompt }

func (PolicyPlugin) GenerateSection(_ context.Context, pc *PluginContext) (Section, error) {
	var b strings.Builder
	writeGroup(&b, "Global Policies:", pc.Request.State.Policies, PolicyScopeWorld)
	writeGroup(&b, "Agent-Specific Policies:", pc.Request.State.Policies, PolicyScopeAgent)
	writeGroup(&b, "Think-Specific Policies:", pc.Request.State.Policies, PolicyScopeThink)
	return Section{Content: b.String(), Priority: 10}, nil
}

func writeGroup(b *strings.Builder, header string, policies []Policy, scope PolicyScope) {
	var matched []Policy
	for _, p := range policies {
		if p.Scope == scope {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(header)
	for _, p := range matched {
		b.WriteString("\n- ")
		b.WriteString(p.Text)
	}
}

func (PolicyPlugin) ProcessResponse(context.Context, *PluginContext, *LLMResponse) error {
	return nil
}
