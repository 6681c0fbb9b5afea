package pipeline

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/internal/acquire"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
)

// Factory builds a pipeline bound to one acquirer. The API layer passes a
// file acquirer wrapping the staged multipart upload.
type Factory func(acq acquire.Acquirer) *Pipeline

type entry struct {
	pipeline *Pipeline
	owner    uuid.UUID
}

// Registry tracks live pipeline instances by upload ID so progress and
// results can be polled across requests. Entries are owner-scoped.
type Registry struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]entry
	factory Factory
}

// NewRegistry builds an empty registry around the factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		items:   map[uuid.UUID]entry{},
		factory: factory,
	}
}

// Create makes a new pipeline owned by the given user and registers it.
func (r *Registry) Create(owner uuid.UUID, acq acquire.Acquirer) *Pipeline {
	p := r.factory(acq)
	r.mu.Lock()
	r.items[p.ID()] = entry{pipeline: p, owner: owner}
	r.mu.Unlock()
	return p
}

// Get returns the pipeline for an upload ID, enforcing ownership. A foreign
// upload ID reads as not found rather than forbidden.
func (r *Registry) Get(id, owner uuid.UUID) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok || item.owner != owner {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	return item.pipeline, nil
}

// Remove drops a pipeline from the registry.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
}

// Len reports the number of live pipelines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
