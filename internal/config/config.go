// Package config implements NanoDB's property registry (spec §6).
//
// The SQL grammar, CLI, and client/server that normally parse "SET PROPERTY"
// statements are out of scope for this module; Registry is the thin,
// in-scope adapter those external collaborators would drive. Core
// components are constructed from plain values read from a Registry (a
// buffer.Config for the buffer cache; a page-size argument for a heap
// file), rather than consulting global state themselves.
//
// Grounded on internal/storage/catalog.go's CatalogManager shape
// (mutex-guarded maps of typed metadata) from the teacher repository.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Policy is the buffer-cache eviction policy.
type Policy string

const (
	PolicyFIFO Policy = "FIFO"
	PolicyLRU  Policy = "LRU"
)

// Validator checks a proposed new value for a property, returning an error
// if it is invalid.
type Validator func(v any) error

// entry is one registered property.
type entry struct {
	value              any
	validator          Validator
	readOnlyAfterStart bool
}

// Registry is a concurrent-safe property table.
type Registry struct {
	mu      sync.RWMutex
	started bool
	props   map[string]*entry
}

// NewRegistry returns a Registry pre-populated with NanoDB's recognized
// properties and their defaults (spec §6).
func NewRegistry() *Registry {
	r := &Registry{props: make(map[string]*entry)}
	r.register("nanodb.baseDirectory", ".", true, nil)
	r.register("nanodb.pagecache.size", 32*1024*1024, false, validateRange(4096, 1<<30))
	r.register("nanodb.pagecache.policy", PolicyFIFO, true, validatePolicy)
	r.register("nanodb.pagesize", 8192, false, validatePageSize)
	r.register("nanodb.enableTransactions", false, true, nil)
	r.register("nanodb.enforceKeyConstraints", true, false, nil)
	r.register("nanodb.enableIndexes", false, true, nil)
	r.register("nanodb.createIndexesOnKeys", false, false, nil)
	r.register("nanodb.plannerClass", "dp", false, nil)
	r.register("nanodb.flushAfterCmd", false, false, nil)
	return r
}

func (r *Registry) register(name string, def any, readOnly bool, v Validator) {
	r.props[name] = &entry{value: def, validator: v, readOnlyAfterStart: readOnly}
}

func validateRange(lo, hi int) Validator {
	return func(v any) error {
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("expected int, got %T", v)
		}
		if n < lo || n > hi {
			return fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
		}
		return nil
	}
}

func validatePolicy(v any) error {
	p, ok := v.(Policy)
	if !ok {
		s, ok2 := v.(string)
		if !ok2 {
			return fmt.Errorf("expected Policy, got %T", v)
		}
		p = Policy(s)
	}
	if p != PolicyFIFO && p != PolicyLRU {
		return fmt.Errorf("unknown eviction policy %q", p)
	}
	return nil
}

func validatePageSize(v any) error {
	n, ok := v.(int)
	if !ok {
		return fmt.Errorf("expected int, got %T", v)
	}
	if n < 512 || n > 65536 || n&(n-1) != 0 {
		return fmt.Errorf("page size %d must be a power of two in [512, 65536]", n)
	}
	return nil
}

// MarkStarted freezes all read-only-after-startup properties against
// further mutation.
func (r *Registry) MarkStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
}

// Set validates and assigns a property, failing if the property is unknown,
// the value doesn't validate, or the property is frozen post-startup.
func (r *Registry) Set(name string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.props[name]
	if !ok {
		return fmt.Errorf("unknown property %q", name)
	}
	if e.readOnlyAfterStart && r.started {
		return fmt.Errorf("property %q is read-only after startup", name)
	}
	if e.validator != nil {
		if err := e.validator(v); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	e.value = v
	return nil
}

// Get returns a property's current value.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.props[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetInt is a typed convenience wrapper over Get.
func (r *Registry) GetInt(name string) int {
	v, _ := r.Get(name)
	if n, ok := v.(int); ok {
		return n
	}
	return 0
}

// GetBool is a typed convenience wrapper over Get.
func (r *Registry) GetBool(name string) bool {
	v, _ := r.Get(name)
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// GetString is a typed convenience wrapper over Get.
func (r *Registry) GetString(name string) string {
	v, _ := r.Get(name)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// GetPolicy is a typed convenience wrapper over Get.
func (r *Registry) GetPolicy(name string) Policy {
	v, _ := r.Get(name)
	switch p := v.(type) {
	case Policy:
		return p
	case string:
		return Policy(p)
	default:
		return PolicyFIFO
	}
}

// snapshot is the YAML-serializable form of the registry.
type snapshot map[string]any

// DumpYAML serializes the current property values to a YAML document.
func (r *Registry) DumpYAML() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(snapshot, len(r.props))
	for k, e := range r.props {
		snap[k] = e.value
	}
	return yaml.Marshal(snap)
}

// LoadYAML applies property values from a YAML document, validating each
// one through Set.
func (r *Registry) LoadYAML(data []byte) error {
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse property YAML: %w", err)
	}
	for k, v := range snap {
		if err := r.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadYAMLFile reads and applies a YAML property file.
func (r *Registry) LoadYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read property file: %w", err)
	}
	return r.LoadYAML(data)
}
