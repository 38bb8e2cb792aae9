package agent

import (
	"fmt"
	"sort"
)

// Registry holds the agents a deployment routes between. It is populated at
// startup and read-only afterwards.
type Registry struct {
	agents   map[string]*Agent
	fallback string
}

// NewRegistry creates a registry whose Resolve falls back to the named agent
// when asked for an unknown one.
func NewRegistry(fallback string) *Registry {
	return &Registry{agents: map[string]*Agent{}, fallback: fallback}
}

// Register adds an agent. Duplicate names are an error.
func (r *Registry) Register(a *Agent) error {
	if a == nil || a.Name == "" {
		return fmt.Errorf("agent must have a name")
	}
	if _, exists := r.agents[a.Name]; exists {
		return fmt.Errorf("agent %q already registered", a.Name)
	}
	r.agents[a.Name] = a
	return nil
}

// Get returns the agent with the given name.
func (r *Registry) Get(name string) (*Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Resolve returns the named agent, or the fallback agent when the name is
// empty or unknown. Resolving with no registered fallback returns nil.
func (r *Registry) Resolve(name string) *Agent {
	if a, ok := r.agents[name]; ok {
		return a
	}
	return r.agents[r.fallback]
}

// Fallback returns the fallback agent's name.
func (r *Registry) Fallback() string { return r.fallback }

// Names returns registered agent names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the topology: the fallback must be registered and every
// handoff target must name a registered agent. Run once at startup.
func (r *Registry) Validate() error {
	if _, ok := r.agents[r.fallback]; !ok {
		return fmt.Errorf("fallback agent %q is not registered", r.fallback)
	}
	for _, a := range r.agents {
		for _, target := range a.Handoffs {
			if target == a.Name {
				return fmt.Errorf("agent %q lists itself as a handoff target", a.Name)
			}
			if _, ok := r.agents[target]; !ok {
				return fmt.Errorf("agent %q hands off to unregistered agent %q", a.Name, target)
			}
		}
	}
	return nil
}
