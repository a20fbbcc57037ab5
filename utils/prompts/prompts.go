// Package prompts holds the prompt templates sent to the chat backends.
package prompts

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/dialogen/utils/dataset"
)

// FirstInstruction asks the model for a brand-new Traditional Chinese
// instruction modeled on the given examples.
func FirstInstruction(examples []dataset.Example) string {
	samples := make([]string, 0, len(examples))
	for _, e := range examples {
		samples = append(samples, "指示範例: "+e.Instruction)
	}

	var b strings.Builder
	b.WriteString("我要你創造出一個能夠輸入給 AI Systems (e.g., GPT4 and Antropic) 的指示\n")
	b.WriteString("以下為一些範例的指示：\n\n")
	b.WriteString(strings.Join(samples, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString("請仿造這些指示範例，生成一個全新的指令。\n")
	b.WriteString("這個指示必須要是繁體中文。我會把你的回應直接貼給對方，請不要在回應中與我互動，也不要將 '範例指示' 和 '新的指示' 加入在你的回應中。\n\n")
	b.WriteString("新的指示：\n")
	return b.String()
}

// NextInstruction asks the model for the follow-up instruction of a
// dialogue whose turns are all complete.
func NextInstruction(dialogue dataset.Dialogue) string {
	turns := make([]string, 0, len(dialogue))
	for _, t := range dialogue {
		turns = append(turns, fmt.Sprintf("我:\n%s\n\nAI System:\n%s", t.Instruction, t.Output))
	}

	var b strings.Builder
	b.WriteString("我要你創造出一個能夠輸入給 AI Systems (e.g., GPT4 and Antropic) 的指示\n")
	b.WriteString("以下是我和 AI System 的對話：\n\n")
	b.WriteString(strings.Join(turns, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString("請基於我們的對話內容，幫我構思下一輪的指示。這個指示必須和我們的對話主題相關，或者是針對 AI System 的回覆做進一步詢問。這個指示裡面最多只能有一個問題。\n")
	b.WriteString("這個指示必須要是繁體中文。而你的回應不需要包含針對對話內容的評論，也不要將 '下一輪的指示' 加入到回應中。我會把你的回應直接貼給對方。\n\n")
	b.WriteString("下一輪的指示：")
	return b.String()
}
