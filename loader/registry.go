// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownType is returned when a type name cannot be resolved.
var ErrUnknownType = errors.New("unknown type name")

var (
	anyType   = reflect.TypeFor[any]()
	bytesType = reflect.TypeFor[[]byte]()
)

var builtinTypes = map[string]reflect.Type{
	"bool":      reflect.TypeFor[bool](),
	"int":       reflect.TypeFor[int64](),
	"uint":      reflect.TypeFor[uint64](),
	"double":    reflect.TypeFor[float64](),
	"string":    reflect.TypeFor[string](),
	"bytes":     bytesType,
	"timestamp": reflect.TypeFor[time.Time](),
	"duration":  reflect.TypeFor[time.Duration](),
	"dyn":       anyType,
	"any":       anyType,
	"null":      anyType,
	"list":      reflect.TypeFor[[]any](),
	"map":       reflect.TypeFor[map[string]any](),
}

// Registry is the resource context expressions are compiled against. It
// resolves type names and owns the runtime artifacts backends generate for it.
//
// A Registry is safe for concurrent use.
type Registry struct {
	id string

	mu        sync.RWMutex
	types     map[string]reflect.Type
	artifacts map[string]any
}

// New creates an empty Registry that knows the built-in type names.
func New() *Registry {
	return &Registry{
		id:        uuid.NewString(),
		types:     make(map[string]reflect.Type),
		artifacts: make(map[string]any),
	}
}

// ID returns the unique identifier of the registry.
func (r *Registry) ID() string {
	return r.id
}

// Register makes a custom type resolvable by name. Custom names take
// precedence over built-in ones.
func (r *Registry) Register(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	if t == nil {
		return fmt.Errorf("type for %q cannot be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
	return nil
}

// ResolveType resolves a type name. Besides registered and built-in names, it
// understands the parameterized forms list<T> and map<K,V>.
func (r *Registry) ResolveType(name string) (reflect.Type, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	if t, ok := builtinTypes[name]; ok {
		return t, nil
	}

	base, params, ok := splitParameterized(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	switch {
	case base == "list" && len(params) == 1:
		elem, err := r.ResolveType(params[0])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case base == "map" && len(params) == 2:
		key, err := r.ResolveType(params[0])
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, fmt.Errorf("%w: map key type %q is not comparable", ErrUnknownType, params[0])
		}
		val, err := r.ResolveType(params[1])
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, val), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// splitParameterized splits "map<string, list<int>>" into "map" and its
// top-level parameters.
func splitParameterized(name string) (string, []string, bool) {
	open := strings.IndexByte(name, '<')
	if open <= 0 || !strings.HasSuffix(name, ">") {
		return "", nil, false
	}
	base := strings.TrimSpace(name[:open])
	inner := name[open+1 : len(name)-1]

	var params []string
	depth, last := 0, 0
	for i, c := range inner {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return "", nil, false
			}
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(inner[last:i]))
				last = i + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, false
	}
	params = append(params, strings.TrimSpace(inner[last:]))
	for _, p := range params {
		if p == "" {
			return "", nil, false
		}
	}
	return base, params, true
}

// LoadArtifact returns the artifact stored under key.
func (r *Registry) LoadArtifact(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[key]
	return a, ok
}

// StoreArtifact stores artifact under key unless an artifact is already
// present, and returns the one held by the registry.
func (r *Registry) StoreArtifact(key string, artifact any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.artifacts[key]; ok {
		return existing
	}
	r.artifacts[key] = artifact
	return artifact
}

// Artifacts returns the number of artifacts owned by the registry.
func (r *Registry) Artifacts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts)
}
