package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderPrompt 把模板中的 {{key}} 占位符替换为输入值。
// 非标量值以 JSON 编码后注入；无对应输入的占位符原样保留。
func RenderPrompt(template string, inputs map[string]any) string {
	if template == "" || len(inputs) == 0 {
		return template
	}
	rendered := template
	for key, value := range inputs {
		placeholder := "{{" + key + "}}"
		if !strings.Contains(rendered, placeholder) {
			continue
		}
		rendered = strings.ReplaceAll(rendered, placeholder, stringifyInput(value))
	}
	return rendered
}

func stringifyInput(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, float32, int, int64, int32, bool:
		return fmt.Sprintf("%v", t)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(encoded)
	}
}
