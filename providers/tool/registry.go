package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leofalp/aigw/providers/backend"
)

// Registry holds the tools available to a gateway, keyed by
// case-insensitive name. Two tools can never share a name: registering a
// duplicate is an error, not a replacement.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]GenericTool)}
}

// Register adds tools to the registry. It fails on the first tool whose
// name is empty or already taken; earlier tools in the call remain
// registered.
func (r *Registry) Register(tools ...GenericTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		name := strings.ToLower(t.Describe().Name)
		if name == "" {
			return fmt.Errorf("tool: cannot register a tool with an empty name")
		}
		if _, taken := r.tools[name]; taken {
			return fmt.Errorf("tool: name %q is already registered", name)
		}
		r.tools[name] = t
	}
	return nil
}

// Get retrieves a tool by name, case-insensitively.
func (r *Registry) Get(name string) (GenericTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.ToLower(name)]
	return t, ok
}

// Descriptions returns the advertised metadata of every registered tool,
// sorted by name for deterministic request payloads.
func (r *Registry) Descriptions() []backend.ToolDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptions := make([]backend.ToolDescription, 0, len(r.tools))
	for _, t := range r.tools {
		descriptions = append(descriptions, t.Describe())
	}
	sort.Slice(descriptions, func(i, j int) bool {
		return descriptions[i].Name < descriptions[j].Name
	})
	return descriptions
}

// Size returns the number of registered tools.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
