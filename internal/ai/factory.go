package ai

import (
	"context"
	"sync"

	"backend/internal/ai/openai"
	"backend/internal/config"
	"backend/pkg/aiinterface"
)

// ClientFactory 按模型 ID 构建并缓存模型客户端
// 所有模型走 OpenAI 兼容接口，模型 ID 即接口的 model 参数
type ClientFactory struct {
	cfg config.OpenAIConfig

	mu      sync.Mutex
	clients map[string]ModelClient
}

// NewClientFactory 创建客户端工厂
func NewClientFactory(cfg config.OpenAIConfig) *ClientFactory {
	return &ClientFactory{
		cfg:     cfg,
		clients: make(map[string]ModelClient),
	}
}

// GetClient 获取指定模型的客户端（实现 Provider 接口）
func (f *ClientFactory) GetClient(ctx context.Context, modelID string) (ModelClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[modelID]; ok {
		return c, nil
	}

	c, err := openai.NewClient(&aiinterface.ClientConfig{
		APIKey:     f.cfg.APIKey,
		BaseURL:    f.cfg.BaseURL,
		OrgID:      f.cfg.OrgID,
		Model:      modelID,
		MaxRetries: f.cfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	f.clients[modelID] = c
	return c, nil
}
