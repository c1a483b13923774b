// Package textnorm 将任意文本规范化为可比较的形式
//
// 规范化步骤依次为：编码修复（乱码还原）、转小写、去除首尾空白、
// 删除所有非单词字符（保留内部空白）。所有比较两段文本的地方都必须
// 使用同一个规范化函数，保证分数可复现。
package textnorm

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ErrUnrepairable 文本包含无法无损还原的字节
var ErrUnrepairable = errors.New("text cannot be encoding-repaired")

// maxRepairPasses 乱码还原的最大轮数（处理多重编码错误）
const maxRepairPasses = 3

// maxNormalizePasses 规范化收敛的最大轮数
const maxNormalizePasses = 4

// Normalize 规范化文本
//
// 编码修复失败时使用尽力修复后的文本继续，不会报错；需要感知失败时使用 NormalizeStrict。
func Normalize(text string) string {
	normalized, _ := NormalizeStrict(text)
	return normalized
}

// NormalizeStrict 与 Normalize 相同，同时返回编码修复错误
//
// 返回 ErrUnrepairable 时文本仍是完整规范化后的结果，调用方可以继续使用。
func NormalizeStrict(text string) (string, error) {
	normalized, err := normalizeOnce(text)
	// 转小写可能让残留的乱码重新成为可还原序列，重复到结果不再变化
	for pass := 1; pass < maxNormalizePasses; pass++ {
		next, _ := normalizeOnce(normalized)
		if next == normalized {
			break
		}
		normalized = next
	}
	return normalized, err
}

func normalizeOnce(text string) (string, error) {
	fixed, err := Repair(text)
	lowered := strings.ToLower(fixed)
	trimmed := strings.TrimSpace(lowered)
	stripped := strings.Map(func(r rune) rune {
		if IsWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, trimmed)
	// 删除标点后可能留下首尾空白
	return strings.TrimSpace(stripped), err
}

// IsWordRune 判断是否为单词字符（字母、数字或下划线）
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Repair 修复编码错误
//
// 非法 UTF-8 字节按 Windows-1252 解码；被错误按 Windows-1252/Latin-1 解码的
// UTF-8 文本（乱码）会被还原；最后做 NFC 和全角折叠。
//
// 返回:
//   - string: 修复后的文本（始终是合法 UTF-8）
//   - error: 存在无法还原为可打印字符的字节，或文本中已有 U+FFFD 替换字符
//     （上游解码时丢失的字节）时返回 ErrUnrepairable
func Repair(text string) (string, error) {
	fixed, err := decodeInvalidBytes(text)
	if err == nil {
		if i := strings.IndexRune(fixed, utf8.RuneError); i >= 0 {
			err = fmt.Errorf("%w: replacement character at offset %d", ErrUnrepairable, i)
		}
	}

	for pass := 0; pass < maxRepairPasses; pass++ {
		next, ok := fixMojibake(fixed)
		if !ok {
			break
		}
		fixed = next
	}

	fixed = norm.NFC.String(fixed)
	fixed = width.Fold.String(fixed)
	return fixed, err
}

// RepairBytes 将非法 UTF-8 字节按 Windows-1252 解码，无法解码的字节替换为 U+FFFD
//
// 用于在 JSON/YAML 解析前处理原始文件：解析器会把非法字节静默替换掉，
// 先在这里还原，剩下的 U+FFFD 由 Repair 报告为 ErrUnrepairable。
func RepairBytes(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	out := make([]byte, 0, len(data)+8)
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if decoded, ok := decodeLegacyByte(data[i]); ok {
				r = decoded
			}
		}
		out = utf8.AppendRune(out, r)
		i += size
	}
	return out
}

// decodeLegacyByte 按 Windows-1252 解码单个字节，未定义或控制字符返回 false
func decodeLegacyByte(c byte) (rune, bool) {
	decoded := charmap.Windows1252.DecodeByte(c)
	if unicode.IsControl(decoded) || decoded == utf8.RuneError {
		return 0, false
	}
	return decoded, true
}

// decodeInvalidBytes 将非法 UTF-8 字节逐个按 Windows-1252 解码
func decodeInvalidBytes(text string) (string, error) {
	if utf8.ValidString(text) {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	var firstBad = -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			if decoded, ok := decodeLegacyByte(text[i]); ok {
				b.WriteRune(decoded)
			} else if firstBad < 0 {
				firstBad = i
			}
			i++
			continue
		}
		b.WriteRune(r)
		i += size
	}

	if firstBad >= 0 {
		return b.String(), fmt.Errorf("%w: undecodable byte at offset %d", ErrUnrepairable, firstBad)
	}
	return b.String(), nil
}

// fixMojibake 尝试一轮乱码还原
//
// 逐段处理：每个可由 Windows-1252/Latin-1 编码的字符序列，若其字节恰好组成
// 一个合法的多字节 UTF-8 字符且可疑字符减少，就替换为该字符；其余字符
// （正常的重音字母、€、中日韩文字等）原样保留。
func fixMojibake(text string) (string, bool) {
	if badness(text) == 0 {
		return text, false
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	changed := false
	for i := 0; i < len(runes); {
		if r, size, ok := decodeSequence(runes[i:]); ok {
			b.WriteRune(r)
			i += size
			changed = true
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	if !changed {
		return text, false
	}
	return b.String(), true
}

// decodeSequence 尝试把 runes 开头的若干字符当作一个 UTF-8 字符的字节还原
func decodeSequence(runes []rune) (rune, int, bool) {
	lead, ok := encodeLegacy(runes[0])
	if !ok {
		return 0, 0, false
	}
	var size int
	switch {
	case lead >= 0xC2 && lead <= 0xDF:
		size = 2
	case lead >= 0xE0 && lead <= 0xEF:
		size = 3
	case lead >= 0xF0 && lead <= 0xF4:
		size = 4
	default:
		return 0, 0, false
	}
	if len(runes) < size {
		return 0, 0, false
	}

	buf := make([]byte, 0, size)
	buf = append(buf, lead)
	for _, c := range runes[1:size] {
		cb, ok := encodeLegacy(c)
		if !ok || cb < 0x80 || cb > 0xBF {
			return 0, 0, false
		}
		buf = append(buf, cb)
	}

	r, n := utf8.DecodeRune(buf)
	if r == utf8.RuneError || n != size {
		return 0, 0, false
	}
	if badness(string(r)) >= badness(string(runes[:size])) {
		return 0, 0, false
	}
	return r, size, true
}

// encodeLegacy 按 Windows-1252 编码单个字符，失败时退回 Latin-1
func encodeLegacy(r rune) (byte, bool) {
	if b, ok := charmap.Windows1252.EncodeRune(r); ok {
		return b, true
	}
	return charmap.ISO8859_1.EncodeRune(r)
}

// badness 统计典型乱码字符数量（Latin-1 补充区和 Windows-1252 专有标点）
func badness(text string) int {
	n := 0
	for _, r := range text {
		switch {
		case r >= 0x80 && r <= 0xFF:
			n++
		case strings.ContainsRune("€‚ƒ„…†‡ˆ‰Š‹ŒŽ‘’“”•–—˜™š›œžŸ", r):
			n++
		}
	}
	return n
}
