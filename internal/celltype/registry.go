// Package celltype maps semantic column types to renderer capabilities.
package celltype

import (
	"maps"
	"strings"
)

// Registry resolves a column's alias or its data's native type to a
// Capability. Resolution never fails: unknown types fall through to
// CapabilityRaw. A Registry is immutable once built; Register and Without
// return modified copies so a registry can be shared across render passes.
type Registry struct {
	entries map[string]Capability
}

// builtins mirror the DataManager cell views.
var builtins = map[string]Capability{
	"string":      CapabilityText,
	"text":        CapabilityText,
	"number":      CapabilityNumber,
	"boolean":     CapabilityBoolean,
	"date":        CapabilityDate,
	"datetime":    CapabilityDate,
	"image":       CapabilityImage,
	"audio":       CapabilityAudio,
	"list":        CapabilityList,
	"object":      CapabilityObject,
	"annotators":  CapabilityUserList,
	"users":       CapabilityUserList,
	"select":      CapabilitySelector,
	"show-source": CapabilitySource,
}

// NewRegistry returns a registry with the built-in entries.
func NewRegistry() *Registry {
	return &Registry{entries: maps.Clone(builtins)}
}

// Empty returns a registry with no entries; everything resolves to raw.
func Empty() *Registry {
	return &Registry{entries: map[string]Capability{}}
}

// Register returns a copy of r with name mapped to c.
func (r *Registry) Register(name string, c Capability) *Registry {
	entries := maps.Clone(r.entries)
	entries[Normalize(name)] = c
	return &Registry{entries: entries}
}

// Without returns a copy of r with the named entries removed.
func (r *Registry) Without(names ...string) *Registry {
	entries := maps.Clone(r.entries)
	for _, n := range names {
		delete(entries, Normalize(n))
	}
	return &Registry{entries: entries}
}

// Lookup returns the capability registered for name, if any.
func (r *Registry) Lookup(name string) (Capability, bool) {
	if r == nil || name == "" {
		return CapabilityRaw, false
	}
	c, ok := r.entries[Normalize(name)]
	return c, ok
}

// Resolve picks the capability for a cell: exact alias match first, then the
// declared or native type of the data, then CapabilityRaw.
func (r *Registry) Resolve(alias, nativeType string) Capability {
	if c, ok := r.Lookup(alias); ok {
		return c
	}
	if c, ok := r.Lookup(nativeType); ok {
		return c
	}
	return CapabilityRaw
}

// Normalize lower-cases a type name and strips a namespace prefix
// ("task:completed_at" -> "completed_at").
func Normalize(name string) string {
	if _, after, found := strings.Cut(name, ":"); found {
		name = after
	}
	return strings.ToLower(strings.TrimSpace(name))
}
