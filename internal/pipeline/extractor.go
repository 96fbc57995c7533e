package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"backend/internal/agent"
	"backend/internal/logger"
)

// ParseModelOutput 把模型原始输出解析为 JSON 值，先做修复清理
func ParseModelOutput(output string) (any, error) {
	cleaned := RepairJSON(output)
	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("模型输出不是有效 JSON: %w", err)
	}
	return parsed, nil
}

// ExtractVariables 按提取规则从解析后的输出中取值。
// 单条规则失败只记录并置 nil，不影响其余规则。
func ExtractVariables(vars []agent.ExtractVariable, parsed any) map[string]any {
	values := make(map[string]any, len(vars))
	for _, v := range vars {
		value, err := jsonpath.Get(v.Path, parsed)
		if err != nil {
			logger.Warn(fmt.Sprintf("变量 %s 提取失败 (%s): %v", v.Name, v.Path, err))
			values[v.Name] = nil
			continue
		}
		values[v.Name] = value
	}
	return values
}
