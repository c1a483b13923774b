package rouge

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
)

// minStemLength 只有长度超过该值的词才做词干化
const minStemLength = 3

// tokenize 按 ROUGE 参考分词规则切分文本
//
// 转小写，非字母数字替换为空格，按空白切分；启用词干化时对长度大于 3 的词做词干化。
// 与参考实现不同，非 ASCII 字母数字会被保留。
func tokenize(text string, stem bool) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return ' '
	}, lowered)

	tokens := strings.Fields(cleaned)
	if !stem {
		return tokens
	}
	for i, tok := range tokens {
		if utf8.RuneCountInString(tok) > minStemLength {
			if stemmed := english.Stem(tok, false); stemmed != "" {
				tokens[i] = stemmed
			}
		}
	}
	return tokens
}

// ngrams 统计 n-gram 出现次数
func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// lcsLength 计算两个词序列的最长公共子序列长度
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
