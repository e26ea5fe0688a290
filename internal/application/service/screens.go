package service

import "sync"

// ScreenElement is one identifier from a screen definition file.
type ScreenElement struct {
	Type        string
	Content     string
	Description string
}

// ScreenDefinition describes one named screen of the app under test.
type ScreenDefinition struct {
	Name        string
	Identifiers []ScreenElement
}

// ScreenRegistry holds screen definitions and the current-screen hint.
// It is an explicitly constructed registry threaded through DI; the engine
// consults it as a cheap pre-pass before involving the oracle.
type ScreenRegistry struct {
	mu      sync.RWMutex
	screens map[string]ScreenDefinition
	current string
}

func NewScreenRegistry() *ScreenRegistry {
	return &ScreenRegistry{screens: make(map[string]ScreenDefinition)}
}

func (r *ScreenRegistry) Register(def ScreenDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens[def.Name] = def
}

func (r *ScreenRegistry) Get(name string) (ScreenDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.screens[name]
	return def, ok
}

func (r *ScreenRegistry) All() []ScreenDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ScreenDefinition, 0, len(r.screens))
	for _, def := range r.screens {
		out = append(out, def)
	}
	return out
}

func (r *ScreenRegistry) SetCurrent(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = name
}

func (r *ScreenRegistry) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *ScreenRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.screens)
}
