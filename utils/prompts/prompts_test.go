package prompts

import (
	"strings"
	"testing"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstInstruction(t *testing.T) {
	prompt := FirstInstruction([]dataset.Example{
		{Instruction: "介紹台北", Input: dataset.NoInput},
		{Instruction: "翻譯這段文字", Input: "hello"},
	})

	assert.Contains(t, prompt, "指示範例: 介紹台北\n\n指示範例: 翻譯這段文字")
	assert.True(t, strings.HasSuffix(prompt, "新的指示：\n"))
	assert.NotContains(t, prompt, "hello", "example inputs are not shown")
}

func TestNextInstruction(t *testing.T) {
	prompt := NextInstruction(dataset.Dialogue{
		{Instruction: "Q1", Output: "A1"},
		{Instruction: "Q2", Output: "A2"},
	})

	assert.Contains(t, prompt, "我:\nQ1\n\nAI System:\nA1\n\n我:\nQ2\n\nAI System:\nA2")
	assert.True(t, strings.HasSuffix(prompt, "下一輪的指示："))
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		method   Method
		contains []string
	}{
		{Constraints, []string{"add one more constraints", "#The Given Prompt#: \r\n 寫一首詩 \r\n#Rewritten Prompt#:\r\n"}},
		{Deepen, []string{"depth and breadth", "寫一首詩"}},
		{Concretizing, []string{"more specific concepts"}},
		{Reasoning, []string{"multiple-step reasoning"}},
		{DeepenZH, []string{"我想請你擔任提示重寫員", "增加詢問的深度和廣度", "＃給定提示＃:\n寫一首詩\n＃重寫提示＃:\n"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			prompt, err := Rewrite(tt.method, "寫一首詩")
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, prompt, want)
			}
			assert.NotContains(t, prompt, "%s")
		})
	}

	_, err := Rewrite(Method("shorten"), "x")
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Deepen-ZH ")
	require.NoError(t, err)
	assert.Equal(t, DeepenZH, m)

	_, err = ParseMethod("nope")
	assert.Error(t, err)

	assert.Len(t, Methods(), 5)
	assert.Equal(t, Concretizing, Methods()[0])
}
