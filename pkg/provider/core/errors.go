package core

import (
	"errors"
	"fmt"
)

// 定义核心错误
var (
	// ErrProviderNotFound 提供商未找到错误
	ErrProviderNotFound = errors.New("provider not found")

	// ErrCapabilityNotSupported 提供商未声明所需能力错误
	ErrCapabilityNotSupported = errors.New("capability not supported by provider")

	// ErrEmptyResponse 提供商返回空数据错误
	ErrEmptyResponse = errors.New("provider returned empty response")
)

// ErrorKind 提供商错误分类
// 由各提供商客户端在边界处打标，核心管道不再对错误文本做模式匹配。
type ErrorKind string

const (
	KindRateLimited    ErrorKind = "RATE_LIMITED"     // 频率限制（HTTP 429 等价信号）
	KindSymbolNotFound ErrorKind = "SYMBOL_NOT_FOUND" // 股票代码不存在
	KindTimeout        ErrorKind = "TIMEOUT"          // 请求超时
	KindAuth           ErrorKind = "AUTH_FAILED"      // 认证失败
	KindNetwork        ErrorKind = "NETWORK"          // 其他网络错误
	KindUnknown        ErrorKind = "UNKNOWN"          // 未知错误
)

// ProviderError 带分类标签的提供商错误
type ProviderError struct {
	Provider string    `json:"provider"` // 提供商名称
	Op       string    `json:"op"`       // 失败的操作，如 "FetchHistoricalBars"
	Kind     ErrorKind `json:"kind"`     // 错误分类
	Err      error     `json:"-"`        // 底层错误
}

// Error 实现 error 接口
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s [%s]: %v", e.Provider, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s.%s [%s]", e.Provider, e.Op, e.Kind)
}

// Unwrap 返回底层错误
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError 创建带分类标签的提供商错误
func NewProviderError(provider, op string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Kind:     kind,
		Err:      err,
	}
}

// KindOf 提取错误的分类标签
// 非 ProviderError 统一归为 KindUnknown。
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
