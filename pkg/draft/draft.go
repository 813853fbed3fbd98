// Package draft durably stores and restores the in-progress authoring state
// for create-mode sessions. One record occupies a single well-known key in a
// per-profile key-value store; writes are debounced and failures are logged,
// never surfaced — losing a draft write must not interrupt authoring.
package draft

import (
	"sync"
	"time"

	"github.com/goliatone/go-formsession/pkg/section"
)

// DefaultKey is the single draft slot per browser profile.
const DefaultKey = "form_builder_draft"

// Store is the durable key-value contract. GetItem reports presence
// explicitly so an empty stored string is distinguishable from no record.
type Store interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Record is the serialized snapshot of one authoring workflow: the document
// metadata, the ordered sections, the active section pointer, and when the
// snapshot was taken.
type Record struct {
	TemplateName  string            `json:"template_name"`
	CustomerID    int               `json:"customer_id,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty"`
	SheetURL      string            `json:"sheet_url,omitempty"`
	Description   string            `json:"description,omitempty"`
	Status        string            `json:"status"`
	FormType      section.FormType  `json:"form_type"`
	Sections      []section.Section `json:"sections"`
	ActiveSection string            `json:"selected_section_id"`
	SavedAt       time.Time         `json:"saved_at"`
}

// MemoryStore is an in-memory Store. Used by tests and as a fallback when no
// durable backend is configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]string

	// FailWrites makes SetItem return ErrWriteFailed, simulating quota
	// exhaustion.
	FailWrites bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

// GetItem implements Store.
func (m *MemoryStore) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem implements Store.
func (m *MemoryStore) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrWriteFailed
	}
	m.items[key] = value
	return nil
}

// RemoveItem implements Store.
func (m *MemoryStore) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len reports how many keys the store currently holds.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
