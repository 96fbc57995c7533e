package openai

import (
	"context"
	"errors"
	"net"
	"time"

	"backend/pkg/aiinterface"

	openai "github.com/sashabaranov/go-openai"
)

// Client OpenAI 客户端适配器
type Client struct {
	client     *openai.Client
	modelID    string
	maxRetries int
}

// NewClient 创建 OpenAI 客户端
func NewClient(config *aiinterface.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, &aiinterface.ClientError{
			Type:    aiinterface.ErrorTypeAuth,
			Message: "OpenAI API Key 不能为空",
		}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}

	// 瞬时失败最多重试一次；负值表示关闭重试
	maxRetries := 1
	if config.MaxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientConfig),
		modelID:    config.Model,
		maxRetries: maxRetries,
	}, nil
}

// ChatCompletion 对话补全（非流式）
func (c *Client) ChatCompletion(ctx context.Context, req *aiinterface.ChatCompletionRequest) (*aiinterface.ChatCompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:       c.modelID,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()

	// 调用 API，瞬时错误按 ClientError.Transient 判断是否重试
	var resp openai.ChatCompletionResponse
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.client.CreateChatCompletion(ctx, openaiReq)
		if err == nil {
			break
		}
		err = wrapError(err)

		var clientErr *aiinterface.ClientError
		if !errors.As(err, &clientErr) || !clientErr.Transient() {
			break
		}

		// 指数退避
		if i < c.maxRetries {
			backoff := time.Duration(1<<uint(i)) * time.Second
			select {
			case <-ctx.Done():
				return nil, wrapError(ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &aiinterface.ClientError{
			Type:    aiinterface.ErrorTypeServerError,
			Message: "API 返回空响应",
		}
	}

	return &aiinterface.ChatCompletionResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
		Usage: aiinterface.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// wrapError 转换为统一的客户端错误
func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		errType := aiinterface.ErrorTypeUnknown
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			errType = aiinterface.ErrorTypeAuth
		case apiErr.HTTPStatusCode == 429:
			errType = aiinterface.ErrorTypeRateLimit
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			errType = aiinterface.ErrorTypeInvalidParams
		case apiErr.HTTPStatusCode >= 500:
			errType = aiinterface.ErrorTypeServerError
		}
		return &aiinterface.ClientError{
			Type:    errType,
			Message: apiErr.Message,
			Cause:   err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &aiinterface.ClientError{
			Type:    aiinterface.ErrorTypeNetwork,
			Message: "网络错误",
			Cause:   err,
		}
	}

	return &aiinterface.ClientError{
		Type:    aiinterface.ErrorTypeUnknown,
		Message: "模型调用失败",
		Cause:   err,
	}
}
