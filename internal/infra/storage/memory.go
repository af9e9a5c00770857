package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"socialvibe/internal/domain"
)

// Memory хранит состояние в памяти процесса.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load читает пространство имён.
func (m *Memory) Load(_ context.Context, namespace string, v any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[namespace]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", namespace, err)
	}
	return true, nil
}

// Save записывает пространство имён.
func (m *Memory) Save(_ context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	m.mu.Lock()
	m.data[namespace] = raw
	m.mu.Unlock()
	return nil
}

// Clear стирает все пространства имён.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// Len возвращает число сохранённых пространств имён.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

var _ domain.StateStorage = (*Memory)(nil)
