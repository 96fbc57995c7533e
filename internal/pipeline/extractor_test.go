package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/agent"
	"backend/internal/pipeline"
)

func TestExtractVariables(t *testing.T) {
	parsed, err := pipeline.ParseModelOutput(`{"a": {"b": 42}, "summary": "概要文本", "tags": ["x", "y"]}`)
	require.NoError(t, err)

	t.Run("嵌套路径", func(t *testing.T) {
		values := pipeline.ExtractVariables([]agent.ExtractVariable{
			{Name: "v", Path: "$.a.b"},
		}, parsed)
		assert.Equal(t, float64(42), values["v"])
	})

	t.Run("缺失路径置 nil 且不影响其他变量", func(t *testing.T) {
		values := pipeline.ExtractVariables([]agent.ExtractVariable{
			{Name: "missing", Path: "$.does.not.exist"},
			{Name: "summary", Path: "$.summary"},
		}, parsed)
		assert.Nil(t, values["missing"])
		assert.Equal(t, "概要文本", values["summary"])
	})

	t.Run("数组下标", func(t *testing.T) {
		values := pipeline.ExtractVariables([]agent.ExtractVariable{
			{Name: "first", Path: "$.tags[0]"},
		}, parsed)
		assert.Equal(t, "x", values["first"])
	})
}

func TestParseModelOutput(t *testing.T) {
	t.Run("解析代码块包裹的 JSON", func(t *testing.T) {
		parsed, err := pipeline.ParseModelOutput("```json\n{\"ok\": true}\n```")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, parsed)
	})

	t.Run("非 JSON 输出报错", func(t *testing.T) {
		_, err := pipeline.ParseModelOutput("这不是 JSON")
		assert.Error(t, err)
	})
}
