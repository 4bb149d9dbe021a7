package auth

import "sync"

// MockStore is an in-memory auth store for testing.
type MockStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]string)}
}

func (m *MockStore) SetToken(provider string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[NormalizeProvider(provider)] = token
	return nil
}

func (m *MockStore) GetToken(provider string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[NormalizeProvider(provider)]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (m *MockStore) DeleteToken(provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := NormalizeProvider(provider)
	if _, ok := m.tokens[key]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, key)
	return nil
}
