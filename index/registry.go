package index

import (
	"fmt"
	"slices"
	"sync"
)

// Constructor creates an empty index of the given dimension.
type Constructor func(dim int) (Index, error)

var (
	registryMu   sync.RWMutex
	constructors = map[EngineType]Constructor{}
)

// Register installs the constructor for an engine type.
//
// Index implementations should typically call this from an init() function.
func Register(t EngineType, ctor Constructor) {
	if t == Invalid {
		panic("index: cannot register Invalid engine type")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	constructors[t] = ctor
}

// New returns a fresh empty index of type t sized to dim.
func New(t EngineType, dim int) (Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	registryMu.RLock()
	ctor, ok := constructors[t]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngineType, t)
	}
	return ctor(dim)
}

// Registered lists the engine types with a constructor, in ascending order.
func Registered() []EngineType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]EngineType, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
