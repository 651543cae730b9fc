package session

import (
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pscheid92/wagate/internal/domain"
)

// Registry maps session ids to their controllers. Safe for concurrent use.
type Registry struct {
	controllers cmap.ConcurrentMap[string, *Controller]
}

func NewRegistry() *Registry {
	return &Registry{controllers: cmap.New[*Controller]()}
}

// Add registers c unless its id is taken.
func (r *Registry) Add(c *Controller) bool {
	return r.controllers.SetIfAbsent(c.ID(), c)
}

func (r *Registry) Resolve(id string) (*Controller, bool) {
	return r.controllers.Get(id)
}

// ResolveClient returns the current client of a session. It reports false
// while the session is unknown or between two client instances.
func (r *Registry) ResolveClient(id string) (domain.Client, bool) {
	c, ok := r.controllers.Get(id)
	if !ok {
		return nil, false
	}
	client := c.Client()
	return client, client != nil
}

func (r *Registry) Remove(id string) (*Controller, bool) {
	return r.controllers.Pop(id)
}

func (r *Registry) Len() int {
	return r.controllers.Count()
}

// Controllers returns a point-in-time list of all controllers.
func (r *Registry) Controllers() []*Controller {
	out := make([]*Controller, 0, r.controllers.Count())
	for item := range r.controllers.IterBuffered() {
		out = append(out, item.Val)
	}
	return out
}
