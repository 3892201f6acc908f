package model

import (
	"sync"
	"sync/atomic"
)

// Holder owns the process-wide model. Readers call Current; Load replaces
// the whole model atomically and leaves the previous one in place on failure.
type Holder struct {
	path   string
	schema Schema

	current atomic.Pointer[Model]

	mu       sync.Mutex
	onReload []func(*Model, error)
}

func NewHolder(path string, schema Schema) *Holder {
	return &Holder{path: path, schema: schema}
}

// Path is the artifact location the holder loads from.
func (h *Holder) Path() string { return h.path }

// Current returns the active model, or nil before the first successful Load.
func (h *Holder) Current() *Model {
	return h.current.Load()
}

// Swap installs m and returns the model it replaced.
func (h *Holder) Swap(m *Model) *Model {
	return h.current.Swap(m)
}

// Load reads the artifact and, on success, makes it current. Registered
// reload callbacks see every attempt, successful or not.
func (h *Holder) Load() (*Model, error) {
	m, err := Load(h.path, h.schema)
	if err == nil {
		h.current.Store(m)
	}

	h.mu.Lock()
	callbacks := h.onReload
	h.mu.Unlock()
	for _, fn := range callbacks {
		fn(m, err)
	}

	if err != nil {
		return nil, err
	}
	return m, nil
}

// OnReload registers fn to run after every Load attempt.
func (h *Holder) OnReload(fn func(*Model, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}
