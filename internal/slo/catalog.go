// Package slo implements the objective catalog, observation recording and
// compliance evaluation for service level objectives.
package slo

import (
	"fmt"
	"time"

	"sloscope/internal/config"
)

// Definition is one validated, immutable service level objective.
type Definition struct {
	Name          string
	Description   string
	Target        float64
	LatencyTarget time.Duration
	ErrorBudget   float64
	Windows       []string
	Endpoints     []string

	endpointSet map[string]struct{}
	windowSet   map[string]struct{}
}

// HasEndpoint reports whether the endpoint is covered by this objective.
func (d *Definition) HasEndpoint(endpoint string) bool {
	_, ok := d.endpointSet[endpoint]
	return ok
}

// HasWindow reports whether the window is a declared evaluation window.
func (d *Definition) HasWindow(window string) bool {
	_, ok := d.windowSet[window]
	return ok
}

// Catalog is the read-only registry of objective definitions. It is built
// once at startup and needs no synchronization afterwards.
type Catalog struct {
	defs  map[string]*Definition
	names []string
}

// NewCatalog validates the configured objectives and builds the registry.
// Malformed definitions are rejected here rather than defaulting silently.
func NewCatalog(cfgs []config.SLOConfig) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(cfgs))}

	for _, sc := range cfgs {
		def, err := buildDefinition(sc)
		if err != nil {
			return nil, fmt.Errorf("slo %q: %w", sc.Name, err)
		}
		if _, exists := c.defs[def.Name]; exists {
			return nil, fmt.Errorf("slo %q: duplicate definition", def.Name)
		}
		c.defs[def.Name] = def
		c.names = append(c.names, def.Name)
	}

	return c, nil
}

func buildDefinition(sc config.SLOConfig) (*Definition, error) {
	if sc.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if sc.Target <= 0 || sc.Target > 1 {
		return nil, fmt.Errorf("target %v outside (0,1]", sc.Target)
	}
	if sc.ErrorBudget <= 0 || sc.ErrorBudget > 1 {
		return nil, fmt.Errorf("error_budget %v outside (0,1]", sc.ErrorBudget)
	}

	latency, err := time.ParseDuration(sc.LatencyTarget)
	if err != nil {
		return nil, fmt.Errorf("latency_target %q: %w", sc.LatencyTarget, err)
	}
	if latency <= 0 {
		return nil, fmt.Errorf("latency_target must be positive, got %v", latency)
	}

	if len(sc.Windows) == 0 {
		return nil, fmt.Errorf("at least one evaluation window is required")
	}
	windowSet := make(map[string]struct{}, len(sc.Windows))
	for _, w := range sc.Windows {
		if _, err := time.ParseDuration(w); err != nil {
			return nil, fmt.Errorf("window %q: %w", w, err)
		}
		windowSet[w] = struct{}{}
	}

	endpointSet := make(map[string]struct{}, len(sc.Endpoints))
	for _, e := range sc.Endpoints {
		endpointSet[e] = struct{}{}
	}

	return &Definition{
		Name:          sc.Name,
		Description:   sc.Description,
		Target:        sc.Target,
		LatencyTarget: latency,
		ErrorBudget:   sc.ErrorBudget,
		Windows:       append([]string(nil), sc.Windows...),
		Endpoints:     append([]string(nil), sc.Endpoints...),
		endpointSet:   endpointSet,
		windowSet:     windowSet,
	}, nil
}

// Lookup returns the definition for the named objective.
func (c *Catalog) Lookup(name string) (*Definition, error) {
	def, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSLO, name)
	}
	return def, nil
}

// EndpointsFor returns the endpoints covered by the named objective.
func (c *Catalog) EndpointsFor(name string) ([]string, error) {
	def, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return def.Endpoints, nil
}

// Names returns objective names in declaration order.
func (c *Catalog) Names() []string {
	return c.names
}
