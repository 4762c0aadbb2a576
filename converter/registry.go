package converter

import (
	"fmt"
	"sort"
	"sync"

	"docConverter/models"
)

// Builder constructs a converter instance. Construction may be expensive
// (external engines, model loading) and may fail; a failed construction is
// never cached, so the next Get retries it.
type Builder func() (Converter, error)

type entry struct {
	inputExt  string
	outputExt string
	build     Builder

	// mu serializes construction for this mode only, so one mode's slow
	// construction never blocks callers of another mode.
	mu       sync.Mutex
	instance Converter
}

// Registry maps conversion modes to lazily constructed, process-lifetime
// converter instances.
type Registry struct {
	mu      sync.RWMutex
	entries map[models.ConversionMode]*entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[models.ConversionMode]*entry),
	}
}

// Register adds a mode with its static extension metadata and builder.
// Registration happens during wiring, before any Get.
func (r *Registry) Register(mode models.ConversionMode, inputExt, outputExt string, build Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[mode] = &entry{
		inputExt:  inputExt,
		outputExt: outputExt,
		build:     build,
	}
}

func (r *Registry) lookup(mode models.ConversionMode) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	return e, nil
}

// Get returns the shared converter instance for mode, constructing it on
// first use. Concurrent callers for the same unconstructed mode block until
// the single construction finishes and then share the result.
func (r *Registry) Get(mode models.ConversionMode) (Converter, error) {
	e, err := r.lookup(mode)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.instance != nil {
		return e.instance, nil
	}

	inst, err := e.build()
	if err != nil {
		return nil, err
	}
	e.instance = inst
	return inst, nil
}

// AcceptedExtension returns the input extension a mode expects. Pure
// metadata lookup; never triggers construction.
func (r *Registry) AcceptedExtension(mode models.ConversionMode) (string, error) {
	e, err := r.lookup(mode)
	if err != nil {
		return "", err
	}
	return e.inputExt, nil
}

// OutputExtension returns the extension a mode produces.
func (r *Registry) OutputExtension(mode models.ConversionMode) (string, error) {
	e, err := r.lookup(mode)
	if err != nil {
		return "", err
	}
	return e.outputExt, nil
}

// SupportedModes lists registered modes in stable order.
func (r *Registry) SupportedModes() []models.ConversionMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes := make([]models.ConversionMode, 0, len(r.entries))
	for mode := range r.entries {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
