// Package provider 管理数据提供商客户端的注册与优先级解析。
package provider

import (
	"fmt"
	"sync"

	"stockprep/pkg/provider/core"
)

// Registry 提供商客户端注册表
// 按名称管理客户端实例，通过构造注入传递给管道各组件。
type Registry struct {
	mu      sync.RWMutex
	clients map[string]core.Client
}

// NewRegistry 创建新的提供商注册表
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]core.Client),
	}
}

// Register 注册提供商客户端
func (r *Registry) Register(client core.Client) error {
	if client == nil {
		return fmt.Errorf("client cannot be nil")
	}
	if client.Name() == "" {
		return fmt.Errorf("client name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client.Name()] = client
	return nil
}

// Get 按名称获取提供商客户端
func (r *Registry) Get(name string) (core.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if client, exists := r.clients[name]; exists {
		return client, nil
	}
	return nil, fmt.Errorf("provider '%s': %w", name, core.ErrProviderNotFound)
}

// List 列出所有已注册的提供商名称
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Unregister 注销提供商客户端
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[name]; !exists {
		return fmt.Errorf("provider '%s': %w", name, core.ErrProviderNotFound)
	}
	delete(r.clients, name)
	return nil
}

// Close 关闭注册表，清理所有提供商资源
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, client := range r.clients {
		if closable, ok := client.(core.Closable); ok {
			if err := closable.Close(); err != nil {
				errs = append(errs, fmt.Errorf("error closing provider '%s': %w", name, err))
			}
		}
	}

	r.clients = make(map[string]core.Client)

	if len(errs) > 0 {
		return fmt.Errorf("errors occurred while closing providers: %v", errs)
	}
	return nil
}
