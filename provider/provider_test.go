package provider_test

import (
	"context"
	"testing"

	"github.com/kairei-project/kairei/memstore"
	"github.com/kairei-project/kairei/provider"
	"github.com/kairei-project/kairei/value"
	"github.com/stretchr/testify/require"
)

func TestProviderExecutesWithGeneralAndPolicyPlugins(t *testing.T) {
	backend := provider.NewSimpleExpertBackend("expert", map[string]string{
		"weather": "It's sunny.",
	})
	p := provider.NewProvider("expert", provider.NewCapabilities(provider.CapGeneralPrompt, provider.CapPolicyPrompt), backend)
	require.NoError(t, p.AttachPlugin(provider.GeneralPromptPlugin{}))
	require.NoError(t, p.AttachPlugin(provider.PolicyPlugin{}))

	req := provider.ProviderRequest{
		Input: provider.RequestInput{Query: "what's the weather"},
		State: provider.RequestState{
			Policies: []provider.Policy{{Scope: provider.PolicyScopeWorld, Text: "be nice"}},
		},
	}
	resp, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "It's sunny.", resp.Output)
}

func TestCapabilityMismatchRejectedAtRegistration(t *testing.T) {
	backend := provider.NewSimpleExpertBackend("expert", nil)
	p := provider.NewProvider("expert", provider.NewCapabilities(provider.CapGeneralPrompt), backend)
	err := p.AttachPlugin(provider.PolicyPlugin{})
	require.Error(t, err)
	var mismatch *provider.CapabilityMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestBudgetExceededBeforeDispatch(t *testing.T) {
	backend := provider.NewSimpleExpertBackend("expert", map[string]string{"hello": "hi"})
	p := provider.NewProvider("expert", provider.NewCapabilities(provider.CapGeneralPrompt), backend)
	require.NoError(t, p.AttachPlugin(provider.GeneralPromptPlugin{}))

	req := provider.ProviderRequest{
		Input:  provider.RequestInput{Query: "hello there, this is a very long query meant to exceed a tiny token budget"},
		Config: provider.CommonConfig{MaxTokens: 1},
	}
	_, err := p.Execute(context.Background(), req)
	require.Error(t, err)
	var budgetErr *provider.BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
}

func TestSharedMemoryPluginReadsAndWrites(t *testing.T) {
	store := memstore.NewInMemory(10)
	plugin := &provider.SharedMemoryPlugin{
		Store: store, Namespace: "agentA", ReadKey: "notes", WriteKey: "notes", SectionPriority: 50,
	}
	backend := provider.NewSimpleExpertBackend("expert", map[string]string{"hi": "hello back"})
	p := provider.NewProvider("expert", provider.NewCapabilities(provider.CapGeneralPrompt, provider.CapSharedMemory), backend)
	require.NoError(t, p.AttachPlugin(provider.GeneralPromptPlugin{}))
	require.NoError(t, p.AttachPlugin(plugin))

	req := provider.ProviderRequest{Input: provider.RequestInput{Query: "hi"}}
	resp, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "hello back", resp.Output)

	v, _, err := store.Get(context.Background(), "agentA/notes")
	require.NoError(t, err)
	s, _ := v.String()
	require.Equal(t, "hello back", s)
}

func TestSharedMemoryPluginStructuredResponse(t *testing.T) {
	store := memstore.NewInMemory(10)
	plugin := &provider.SharedMemoryPlugin{
		Store: store, Namespace: "agentA", WriteKey: "result", SectionPriority: 50,
	}
	backend := provider.NewSimpleExpertBackend("expert", map[string]string{
		"classify": `{"label": "positive", "confidence": 1}`,
	})
	p := provider.NewProvider("expert", provider.NewCapabilities(provider.CapGeneralPrompt, provider.CapSharedMemory), backend)
	require.NoError(t, p.AttachPlugin(provider.GeneralPromptPlugin{}))
	require.NoError(t, p.AttachPlugin(plugin))

	req := provider.ProviderRequest{Input: provider.RequestInput{Query: "classify"}}
	resp, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Structured)
	label, _ := resp.Structured["label"].String()
	require.Equal(t, "positive", label)

	meta, err := plugin.GetMetadata(context.Background(), "result")
	require.NoError(t, err)
	require.Equal(t, "application/json", meta.ContentType)
}

func TestSharedMemoryPluginDeleteExistsAndListKeys(t *testing.T) {
	store := memstore.NewInMemory(10)
	plugin := &provider.SharedMemoryPlugin{Store: store, Namespace: "agentA", SectionPriority: 50}
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "agentA/one", value.OfInt(1), 0, "", nil))
	require.NoError(t, store.Set(ctx, "agentA/two", value.OfInt(2), 0, "", nil))

	exists, err := plugin.Exists(ctx, "one")
	require.NoError(t, err)
	require.True(t, exists)

	keys, err := plugin.ListKeys(ctx, "*")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"one", "two"}, keys)

	require.NoError(t, plugin.Delete(ctx, "one"))
	exists, err = plugin.Exists(ctx, "one")
	require.NoError(t, err)
	require.False(t, exists)
}
