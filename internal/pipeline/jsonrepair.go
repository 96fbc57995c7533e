package pipeline

import "strings"

// RepairJSON 清理模型输出中常见的 JSON 包装。
// 1. 剥离 Markdown 代码块标记（```json ... ```）
// 2. 截取首个 JSON 对象/数组之前的导语文本
// 3. 去除首尾空白
func RepairJSON(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			cleaned = strings.Join(lines, "\n")
		}
	}

	// 模型偶尔在 JSON 前加一句说明，定位到首个结构起始符
	if idx := strings.IndexAny(cleaned, "{["); idx > 0 {
		cleaned = cleaned[idx:]
	}

	return strings.TrimSpace(cleaned)
}
