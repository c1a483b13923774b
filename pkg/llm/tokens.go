package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding 模型未知时使用的编码
const fallbackEncoding = "cl100k_base"

// TokenCounter 基于 tiktoken 的 token 计数器
//
// 编码表在首次 Count 时加载（可能需要下载），之后复用。
type TokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTokenCounter 创建 token 计数器
//
// 参数:
//   - model: 模型名称，无法识别时回退到 cl100k_base
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

// Count 统计文本 token 数
func (c *TokenCounter) Count(text string) (int, error) {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(fallbackEncoding)
		}
		if err != nil {
			c.err = fmt.Errorf("failed to load tokenizer: %w", err)
			return
		}
		c.enc = enc
	})
	if c.err != nil {
		return 0, c.err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}
