package aiinterface

import (
	"context"
	"fmt"
)

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest 对话补全请求
type ChatCompletionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// JSONMode 要求模型返回合法 JSON 对象（存在 json_extractor 模块时开启）
	JSONMode bool `json:"json_mode,omitempty"`
}

// Usage Token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse 对话补全响应
type ChatCompletionResponse struct {
	ID        string `json:"id"`
	Model     string `json:"model"`
	Content   string `json:"content"`
	Usage     Usage  `json:"usage"`
	LatencyMs int64  `json:"latency_ms"`
}

// ModelClient 模型客户端接口
type ModelClient interface {
	ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ClientConfig 客户端配置
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	OrgID      string
	Model      string
	MaxRetries int
}

// ErrorType 客户端错误类型
type ErrorType string

const (
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeInvalidParams ErrorType = "invalid_params"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// ClientError 模型调用错误
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Transient 判断错误是否是瞬时错误（流水线允许重试一次）
func (e *ClientError) Transient() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}
