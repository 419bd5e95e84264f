package scene

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/yummydirtx/open-gamalta/internal/protocol"
)

// Registry owns every Scene in the process, keyed by mode ID. Built-ins are
// seeded at startup; the custom slots may be registered and unregistered at
// runtime and are written through to the attached store.
type Registry struct {
	logger *log.Logger

	mu     sync.RWMutex
	scenes map[protocol.Mode]*Scene
	store  *Store
}

func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		logger: logger,
		scenes: make(map[protocol.Mode]*Scene),
	}
}

// Seed installs built-in scenes without touching the store.
func (r *Registry) Seed(scenes ...*Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range scenes {
		r.scenes[s.Mode()] = s
		r.logger.Debug("Seeded built-in scene", "name", s.Name(), "mode", s.Mode())
	}
}

// AttachStore loads persisted custom scenes and enables write-through for
// future registrations.
func (r *Registry) AttachStore(store *Store) error {
	persisted, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading persisted scenes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
	for _, s := range persisted {
		r.scenes[s.Mode()] = s
		r.logger.Info("Loaded custom scene", "name", s.Name(), "mode", s.Mode())
	}
	return nil
}

// Register installs a scene. Custom-slot scenes are persisted when a store is
// attached; built-in mode IDs may also be overridden in memory.
func (r *Registry) Register(s *Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil && isCustomSlot(s.Mode()) {
		if err := r.store.Save(s); err != nil {
			return fmt.Errorf("persisting scene %q: %w", s.Name(), err)
		}
	}
	r.scenes[s.Mode()] = s
	r.logger.Info("Registered scene", "name", s.Name(), "mode", s.Mode())
	return nil
}

// Unregister removes the scene for a mode ID. Removing an unknown mode is a
// no-op.
func (r *Registry) Unregister(mode protocol.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil && isCustomSlot(mode) {
		if err := r.store.Delete(mode); err != nil {
			return fmt.Errorf("removing persisted scene for mode %s: %w", mode, err)
		}
	}
	delete(r.scenes, mode)
	return nil
}

// Get returns the scene registered for a mode ID.
func (r *Registry) Get(mode protocol.Mode) (*Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[mode]
	return s, ok
}

// List returns all registered scenes ordered by mode ID.
func (r *Registry) List() []*Scene {
	r.mu.RLock()
	scenes := lo.Values(r.scenes)
	r.mu.RUnlock()

	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Mode() < scenes[j].Mode() })
	return scenes
}

func isCustomSlot(mode protocol.Mode) bool {
	return mode == protocol.ModeCustomBasic || mode == protocol.ModeCustomPro
}
