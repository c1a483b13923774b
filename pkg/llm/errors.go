package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// 大模型调用相关错误
var (
	// ErrEmptyPrompt 提示词为空
	ErrEmptyPrompt = errors.New("invalid prompt: prompt cannot be empty")

	// ErrEmptyInput 向量化输入为空串
	ErrEmptyInput = errors.New("invalid input: embedding text cannot be empty")

	// ErrRateLimited 配额或速率限制超出
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey API 密钥无效
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrProviderUnavailable 提供商不可用
	ErrProviderUnavailable = errors.New("llm provider unavailable")

	// ErrTimeout 请求超时
	ErrTimeout = errors.New("request timeout")

	// ErrInvalidResponse 响应无效
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrModelNotSupported 模型不支持
	ErrModelNotSupported = errors.New("model not supported")

	// ErrBadRequest 请求被提供商拒绝
	ErrBadRequest = errors.New("request rejected by provider")
)

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderUnavailable)
}

// IsFatal 判断错误是否为致命错误（不可恢复）
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidAPIKey) ||
		errors.Is(err, ErrEmptyPrompt) ||
		errors.Is(err, ErrModelNotSupported)
}

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		context: context,
		err:     err,
	}
}

type wrappedError struct {
	context string
	err     error
}

func (e *wrappedError) Error() string {
	return e.context + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}

// classifyStatus 将 HTTP 状态码映射为错误哨兵
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrInvalidAPIKey
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status == http.StatusNotFound:
		return ErrModelNotSupported
	case status >= 500:
		return ErrProviderUnavailable
	case status >= 400:
		return ErrBadRequest
	default:
		return ErrInvalidResponse
	}
}

// statusError 生成带提供商上下文、可被 errors.Is 识别的错误
func statusError(provider string, status int, err error) error {
	return WrapError(fmt.Errorf("%w: %w", classifyStatus(status), err), provider)
}

// contextError 将上下文超时/取消映射为 ErrTimeout
func contextError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(fmt.Errorf("%w: %w", ErrTimeout, err), provider)
	}
	return WrapError(err, provider)
}
