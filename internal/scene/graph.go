package scene

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is the name registry of live objects.
type Graph struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

func NewGraph() *Graph {
	return &Graph{objects: make(map[string]*Object)}
}

func (g *Graph) Add(o *Object) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.objects[o.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, o.Name())
	}
	g.objects[o.Name()] = o
	return nil
}

func (g *Graph) Get(name string) (*Object, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	o, ok := g.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return o, nil
}

// Remove drops name from the graph and returns the object, nil if absent.
func (g *Graph) Remove(name string) *Object {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.objects[name]
	delete(g.objects, name)
	return o
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

// List returns the live objects sorted by name.
func (g *Graph) List() []*Object {
	g.mu.RLock()
	out := make([]*Object, 0, len(g.objects))
	for _, o := range g.objects {
		out = append(out, o)
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
