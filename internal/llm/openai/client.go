package openai

import (
	"context"
	"errors"
	"math"
	"net/http"

	"arxivagent/internal/llm"

	openai "github.com/sashabaranov/go-openai"
)

// Options configures the go-openai client
type Options struct {
	APIKey  string
	Model   string
	BaseURL string // Empty for api.openai.com; any OpenAI-compatible endpoint otherwise

	// Azure switches to Azure OpenAI request signing; BaseURL is then the
	// resource endpoint and Model the deployment name.
	Azure           bool
	AzureAPIVersion string

	HTTPClient *http.Client
}

type Client struct {
	client   *openai.Client
	model    string
	provider string
}

// NewClient creates a completion client. With an empty BaseURL it talks to
// the default OpenAI endpoint; otherwise to the given OpenAI-compatible API.
func NewClient(opts Options) *Client {
	var config openai.ClientConfig
	provider := "openai"

	switch {
	case opts.Azure:
		config = openai.DefaultAzureConfig(opts.APIKey, opts.BaseURL)
		if opts.AzureAPIVersion != "" {
			config.APIVersion = opts.AzureAPIVersion
		}
		// Model is the deployment name; use it verbatim
		config.AzureModelMapperFunc = func(model string) string { return model }
		provider = "azure"
	case opts.BaseURL != "":
		config = openai.DefaultConfig(opts.APIKey)
		config.BaseURL = opts.BaseURL
	default:
		config = openai.DefaultConfig(opts.APIKey)
	}

	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}

	return &Client{
		client:   openai.NewClientWithConfig(config),
		model:    opts.Model,
		provider: provider,
	}
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	request := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    c.convertMessages(req.Messages),
		Temperature: req.Temperature,
	}
	// temperature is omitempty in go-openai; the smallest non-zero value
	// stands in for 0 so the request still carries it
	if request.Temperature == 0 {
		request.Temperature = math.SmallestNonzeroFloat32
	}

	// tool_choice is only meaningful when tools are attached; some
	// OpenAI-compatible servers reject it otherwise.
	if len(req.Tools) > 0 {
		request.Tools = c.convertTools(req.Tools)
		if req.ToolChoice != "" {
			request.ToolChoice = req.ToolChoice
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, &llm.CompletionError{Provider: c.provider, Model: model, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &llm.CompletionError{Provider: c.provider, Model: model, Err: errors.New("response contained no choices")}
	}

	return c.convertResponse(resp), nil
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) Model() string {
	return c.model
}

// Helper method: message format conversion
func (c *Client) convertMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		ocMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			ocMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				ocMsg.ToolCalls[j] = openai.ToolCall{ID: tc.ID, Type: openai.ToolTypeFunction}
				if tc.Function != nil {
					ocMsg.ToolCalls[j].Function = openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					}
				}
			}
		}

		if msg.Role == llm.RoleTool {
			ocMsg.ToolCallID = msg.ToolCallID
			ocMsg.Name = msg.Name
		}

		result[i] = ocMsg
	}
	return result
}

// Helper method: tool definition conversion
func (c *Client) convertTools(tools []*llm.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		}
	}
	return result
}

// Helper method: response conversion
func (c *Client) convertResponse(resp openai.ChatCompletionResponse) *llm.ChatResponse {
	choice := resp.Choices[0]
	msg := choice.Message

	result := &llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: msg.Content,
		},
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(msg.ToolCalls) > 0 {
		result.Message.ToolCalls = make([]*llm.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			result.Message.ToolCalls[i] = &llm.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: &llm.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
		result.StopReason = llm.StopReasonToolCalls
	} else {
		result.StopReason = llm.StopReason(choice.FinishReason)
	}

	return result
}
