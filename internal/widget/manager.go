package widget

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// Manager hands out widget instances keyed by (chatbotID, sessionID),
// creating and initializing them lazily.
type Manager struct {
	mu        sync.Mutex
	deps      Deps
	instances map[string]*Instance
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:      deps,
		instances: make(map[string]*Instance),
	}
}

func instanceKey(chatbotID, sessionID string) string {
	return chatbotID + "|" + sessionID
}

// Get returns the instance for (chatbotID, sessionID), building it on
// first use.
func (m *Manager) Get(ctx context.Context, chatbotID, sessionID string) (*Instance, error) {
	if chatbotID == "" || sessionID == "" {
		return nil, domain.ErrValidationFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := instanceKey(chatbotID, sessionID)
	if inst, ok := m.instances[key]; ok {
		return inst, nil
	}

	inst, err := NewInstance(ctx, m.deps, chatbotID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chatbot %s: build widget instance: %w", chatbotID, err)
	}
	m.instances[key] = inst
	return inst, nil
}

// EnsureSessionID returns the stable per-browser session id, creating and
// persisting one on first use. The id is never destroyed programmatically.
func (m *Manager) EnsureSessionID(ctx context.Context) (string, error) {
	id, err := m.deps.Store.Get(ctx, domain.KeySessionID)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := m.deps.Store.Set(ctx, domain.KeySessionID, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	return id, nil
}

// Close tears down every live instance.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, inst := range m.instances {
		inst.Close()
		delete(m.instances, key)
	}
}
