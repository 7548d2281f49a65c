// Package azopenai provides an LLM provider backed by an Azure OpenAI
// deployment, using github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai with an
// API key credential.
//
// The model name passed to [New] is the deployment name configured in the
// Azure resource, not the underlying model family.
package azopenai

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/MrWong99/aiagentdata/pkg/provider/llm"
)

// Provider implements llm.Provider for one Azure OpenAI deployment.
type Provider struct {
	client     *azopenai.Client
	deployment string
	caps       llm.ModelCapabilities
}

// New creates a Provider for the deployment at endpoint
// (e.g. "https://my-resource.openai.azure.com/").
func New(endpoint, apiKey, deployment string) (*Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("azopenai: endpoint must not be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("azopenai: apiKey must not be empty")
	}
	if deployment == "" {
		return nil, fmt.Errorf("azopenai: deployment must not be empty")
	}

	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("azopenai: create client: %w", err)
	}
	return &Provider{
		client:     client,
		deployment: deployment,
		caps: llm.ModelCapabilities{
			ContextWindow:   128_000,
			MaxOutputTokens: 4_096,
		},
	}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	opts, err := p.buildOptions(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return nil, fmt.Errorf("azopenai: chat completions: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("azopenai: %w", llm.ErrEmptyResponse)
	}

	result := &llm.CompletionResponse{Content: *resp.Choices[0].Message.Content}
	if u := resp.Usage; u != nil {
		result.Usage = llm.Usage{
			PromptTokens:     int32Value(u.PromptTokens),
			CompletionTokens: int32Value(u.CompletionTokens),
			TotalTokens:      int32Value(u.TotalTokens),
		}
	}
	return result, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.caps
}

func (p *Provider) buildOptions(req llm.CompletionRequest) (azopenai.ChatCompletionsOptions, error) {
	msgs := llm.BuildMessages(req)
	messages := make([]azopenai.ChatRequestMessageClassification, 0, len(msgs))
	for _, m := range msgs {
		msg, err := convertMessage(m)
		if err != nil {
			return azopenai.ChatCompletionsOptions{}, err
		}
		messages = append(messages, msg)
	}

	opts := azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(p.deployment),
		Messages:       messages,
	}
	if req.Temperature != 0 {
		opts.Temperature = to.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = to.Ptr(int32(req.MaxTokens))
	}
	return opts, nil
}

// convertMessage supports the system and user roles; the default agent never
// sends prior assistant turns.
func convertMessage(m llm.Message) (azopenai.ChatRequestMessageClassification, error) {
	switch m.Role {
	case llm.RoleSystem:
		return &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(m.Content),
		}, nil
	case llm.RoleUser:
		return &azopenai.ChatRequestUserMessage{
			Content: azopenai.NewChatRequestUserMessageContent(m.Content),
		}, nil
	default:
		return nil, fmt.Errorf("azopenai: unsupported message role %q", m.Role)
	}
}

func int32Value(p *int32) int {
	if p == nil {
		return 0
	}
	return int(*p)
}

var _ llm.Provider = (*Provider)(nil)
