package ai

import (
	"context"

	"backend/pkg/aiinterface"
)

// 重新导出 aiinterface 包的类型，避免子包对父包的依赖
type (
	Message                = aiinterface.Message
	ChatCompletionRequest  = aiinterface.ChatCompletionRequest
	ChatCompletionResponse = aiinterface.ChatCompletionResponse
	Usage                  = aiinterface.Usage
	ModelClient            = aiinterface.ModelClient
	ClientConfig           = aiinterface.ClientConfig
	ClientError            = aiinterface.ClientError
	ErrorType              = aiinterface.ErrorType
)

// 重新导出常量
const (
	ErrorTypeAuth          = aiinterface.ErrorTypeAuth
	ErrorTypeRateLimit     = aiinterface.ErrorTypeRateLimit
	ErrorTypeInvalidParams = aiinterface.ErrorTypeInvalidParams
	ErrorTypeServerError   = aiinterface.ErrorTypeServerError
	ErrorTypeNetwork       = aiinterface.ErrorTypeNetwork
	ErrorTypeUnknown       = aiinterface.ErrorTypeUnknown
)

// Provider 按模型 ID 提供客户端
// 流水线执行器依赖此接口，测试时替换为假客户端
type Provider interface {
	GetClient(ctx context.Context, modelID string) (ModelClient, error)
}
