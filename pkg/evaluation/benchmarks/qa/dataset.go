// Package qa 实现问答答案评估流程
//
// 读取参考数据集与模型生成结果，逐题计算词汇准确率、n-gram 重叠、
// 语义相似度和事实性评判，汇总为语料级指标并导出报告。
package qa

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/textnorm"
)

var (
	//go:embed schema/questions.json
	questionsSchemaJSON string

	//go:embed schema/results.json
	resultsSchemaJSON string
)

var (
	schemaOnce      sync.Once
	questionsSchema *jsonschema.Schema
	resultsSchema   *jsonschema.Schema
	schemaErr       error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		questionsSchema, schemaErr = jsonschema.CompileString("questions.json", questionsSchemaJSON)
		if schemaErr != nil {
			return
		}
		resultsSchema, schemaErr = jsonschema.CompileString("results.json", resultsSchemaJSON)
	})
	return questionsSchema, resultsSchema, schemaErr
}

// LoadQuestions 加载参考数据集
//
// 支持 .json（数组）、.jsonl 和 .yaml/.yml，数字 ID 转为字符串。
func LoadQuestions(ctx context.Context, path string) ([]evaluation.Question, error) {
	qs, _, err := compiledSchemas()
	if err != nil {
		return nil, fmt.Errorf("编译数据集 schema 失败: %w", err)
	}
	records, err := readRecords(ctx, path, qs)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, evaluation.ErrEmptyDataset)
	}

	questions := make([]evaluation.Question, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		q := evaluation.Question{
			ID:       idString(rec["id"]),
			Question: rec["question"].(string),
			Answer:   rec["answer"].(string),
		}
		if prev, ok := seen[q.ID]; ok {
			return nil, fmt.Errorf("%s: 问题 ID %q 重复（第 %d 条与第 %d 条）", path, q.ID, prev+1, i+1)
		}
		seen[q.ID] = i
		questions = append(questions, q)
	}
	return questions, nil
}

// LoadResults 加载模型生成结果
//
// 多余字段会被忽略；重复 ID 保留全部记录，由匹配阶段按后者覆盖处理。
func LoadResults(ctx context.Context, path string) ([]evaluation.Result, error) {
	_, rs, err := compiledSchemas()
	if err != nil {
		return nil, fmt.Errorf("编译数据集 schema 失败: %w", err)
	}
	records, err := readRecords(ctx, path, rs)
	if err != nil {
		return nil, err
	}

	results := make([]evaluation.Result, 0, len(records))
	for _, rec := range records {
		results = append(results, evaluation.Result{
			ID:     idString(rec["id"]),
			Answer: rec["answer"].(string),
		})
	}
	return results, nil
}

// readRecords 读取文件并按 schema 校验，返回 JSON 形式的记录
func readRecords(ctx context.Context, path string, schema *jsonschema.Schema) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据集失败: %w", err)
	}
	// 解析器会静默替换非法字节，先按 Windows-1252 还原，无法还原的留下 U+FFFD 供规范化时标记
	data = textnorm.RepairBytes(data)

	var doc any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		doc, err = decodeJSON(data)
	case ".jsonl", ".ndjson":
		doc, err = decodeJSONL(ctx, data)
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("不支持的数据集格式: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("解析数据集 %s 失败: %w", path, err)
	}

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("数据集 %s 校验失败: %w", path, err)
	}

	items := doc.([]any)
	records := make([]map[string]any, len(items))
	for i, item := range items {
		records[i] = item.(map[string]any)
	}
	return records, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeJSONL(ctx context.Context, data []byte) (any, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	items := make([]any, 0)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		item, err := decodeJSON([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		items = append(items, item)
	}
	return items, scanner.Err()
}

// decodeYAML 解析 YAML 并转换为与 JSON 解码一致的值类型
func decodeYAML(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return decodeJSON(raw)
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
