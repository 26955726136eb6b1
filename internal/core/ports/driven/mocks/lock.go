package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockLock)(nil)

// MockLock is an in-process DistributedLock whose Acquire can be overridden.
type MockLock struct {
	AcquireFn func(name string) (bool, error)

	mu       sync.Mutex
	held     map[string]time.Time
	acquired map[string]int
	extended map[string]int
}

// NewMockLock creates a new mock lock.
func NewMockLock() *MockLock {
	return &MockLock{held: make(map[string]time.Time), acquired: make(map[string]int), extended: make(map[string]int)}
}

func (m *MockLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, ok := m.held[name]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	m.held[name] = time.Now().Add(ttl)
	m.acquired[name]++
	return true, nil
}

func (m *MockLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

func (m *MockLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[name]; ok {
		m.held[name] = time.Now().Add(ttl)
		m.extended[name]++
	}
	return nil
}

func (m *MockLock) Ping(ctx context.Context) error {
	return nil
}

// Hold marks name as held by someone else.
func (m *MockLock) Hold(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = time.Now().Add(ttl)
}

// IsHeld reports whether name is currently held.
func (m *MockLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.held[name]
	return ok && time.Now().Before(expiry)
}

// Acquisitions returns how often name was acquired.
func (m *MockLock) Acquisitions(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired[name]
}

// Extensions returns how often a held name was extended.
func (m *MockLock) Extensions(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extended[name]
}
