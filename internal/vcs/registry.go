package vcs

import (
	"fmt"
	"slices"
	"sync"
)

// VCSConstructor opens or creates a change log rooted at repoRoot.
type VCSConstructor func(repoRoot string) (VCS, error)

// Backend bundles the constructors of one change log implementation.
type Backend struct {
	// Open attaches to an existing change log.
	Open VCSConstructor

	// Init creates a new, empty change log in an existing directory.
	Init VCSConstructor

	// Marker is the path, relative to the repository root, whose
	// presence identifies a change log of this type.
	Marker string
}

// registry maps backend types to their constructors
var (
	registry      = make(map[Type]Backend)
	registryMutex sync.RWMutex
)

// Register registers a change log implementation.
// This is called from init() functions in implementation packages.
//
// Example:
//
//	func init() {
//	    vcs.Register(vcs.TypeGit, vcs.Backend{Open: Open, Init: Init, Marker: ".git"})
//	}
func Register(t Type, b Backend) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if b.Open == nil || b.Init == nil {
		panic(fmt.Sprintf("vcs: Register constructor is nil for type %s", t))
	}

	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("vcs: Register called twice for type %s", t))
	}

	registry[t] = b
}

// getBackend retrieves the backend for a type.
func getBackend(t Type) (Backend, bool) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	b, ok := registry[t]
	return b, ok
}

// IsRegistered returns true if a backend is registered for the given type.
func IsRegistered(t Type) bool {
	_, ok := getBackend(t)
	return ok
}

// RegisteredTypes returns all registered backend types in sorted order.
func RegisteredTypes() []Type {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Open detects the backend of the change log at root and opens it.
func Open(root string) (VCS, error) {
	result, err := Detect(root)
	if err != nil {
		return nil, err
	}

	b, ok := getBackend(result.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, result.Type)
	}
	return b.Open(result.RepoRoot)
}

// Init creates a change log of type t at root. The directory must exist.
func Init(t Type, root string) (VCS, error) {
	b, ok := getBackend(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}

	if result, err := Detect(root); err == nil {
		return nil, fmt.Errorf("%w: %s at %s", ErrAlreadyInitialized, result.Type, result.RepoRoot)
	}

	return b.Init(root)
}

// ParseType converts a configuration string into a registered Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !IsRegistered(t) {
		return "", fmt.Errorf("%w: %q (registered: %v)", ErrUnknownType, s, RegisteredTypes())
	}
	return t, nil
}
