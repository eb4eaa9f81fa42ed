// Package tool defines the contract between the job queue and the pluggable
// tools whose work it schedules.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
)

// Result is what a tool run produced and what it cost in credits.
type Result struct {
	Output  json.RawMessage
	Credits int64
}

// Tool executes one kind of work against an opaque input payload. Run must
// honor ctx cancellation; the returned error text is stored verbatim on the
// failed job row.
type Tool interface {
	Name() string
	Run(ctx context.Context, input json.RawMessage) (Result, error)
}

// Registry maps tool slugs to implementations.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds or replaces a tool under its own name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Lookup resolves a slug, or domain.ErrUnknownTool.
func (r *Registry) Lookup(slug string) (Tool, error) {
	t, ok := r.tools[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTool, slug)
	}
	return t, nil
}

// Slugs lists the registered tool names.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.tools))
	for slug := range r.tools {
		slugs = append(slugs, slug)
	}
	return slugs
}
