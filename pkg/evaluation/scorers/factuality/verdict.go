package factuality

import (
	"strings"
	"unicode"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// ParseVerdict 将评委原始输出解析为类别
//
// 规范格式：最后一个非空行恰好是 A-F 之一。否则取最后一个非空行中第一个
// 独立出现的 A-F 字母并标记 Malformed；仍找不到时类别为 MALFORMED。
// Raw 始终保存去除首尾空白的原始输出。
func ParseVerdict(raw string) evaluation.Verdict {
	stripped := strings.TrimSpace(raw)
	v := evaluation.Verdict{Raw: stripped}

	last := lastNonEmptyLine(stripped)
	if c := evaluation.Category(last); c.Valid() {
		v.Choice = c
		return v
	}

	v.Malformed = true
	if c, ok := firstStandaloneChoice(last); ok {
		v.Choice = c
		return v
	}
	v.Choice = evaluation.CategoryMalformed
	return v
}

func lastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// firstStandaloneChoice 查找两侧不是字母或数字的 A-F
func firstStandaloneChoice(line string) (evaluation.Category, bool) {
	runes := []rune(line)
	for i, r := range runes {
		c := evaluation.Category(string(r))
		if !c.Valid() {
			continue
		}
		if i > 0 && isAlnum(runes[i-1]) {
			continue
		}
		if i+1 < len(runes) && isAlnum(runes[i+1]) {
			continue
		}
		return c, true
	}
	return "", false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
