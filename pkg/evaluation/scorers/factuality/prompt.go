// Package factuality 实现 LLM 评委事实性分类
//
// 每个问题独立经历 构建提示词 → 发送请求 → 收到回复 → 解析 四个阶段，
// 评委回复被约束为最后一行只包含 A-F 中的一个字母。
package factuality

import (
	"fmt"
	"strings"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// SystemPrompt 评委系统提示词
const SystemPrompt = "You are comparing a submitted answer to an expert answer on a given question."

const promptTemplate = `You are comparing a submitted answer to an expert answer on a given question. Here is the data:
[BEGIN DATA]
************
[Question]: %s
************
[Expert]: %s
************
[Submission]: %s
************
[END DATA]

Compare the factual content of the submitted answer with the expert answer. Ignore any differences in style, grammar, or punctuation.
The submitted answer may either be a subset or superset of the expert answer, or it may conflict with it. Determine which case applies. Answer the question by selecting one of the following options:
%s
First, write out in a step by step manner your reasoning to be sure that your conclusion is correct. Avoid simply stating the correct answer at the outset.
Then print only the single letter (%s) corresponding to the correct answer, with nothing else, on its own line.
At the end, repeat just the letter again by itself on a new line.`

// BuildPrompt 构建评委提示词
//
// 纯函数：相同输入总是得到相同输出。
func BuildPrompt(question, expert, submission string) string {
	var options strings.Builder
	letters := make([]string, 0, len(evaluation.Categories()))
	for _, c := range evaluation.Categories() {
		fmt.Fprintf(&options, "(%s) %s\n", c, c.Description())
		letters = append(letters, string(c))
	}
	return fmt.Sprintf(promptTemplate, question, expert, submission, options.String(), strings.Join(letters, ", "))
}
