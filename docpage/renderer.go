package docpage

// RenderObserver is notified after every render with whether the slot
// already held a tree.
type RenderObserver interface {
	ObserveRender(name string, hit bool)
}

// Renderer turns a Fragment into a ContentTree at most once per Slot
// lifetime.
type Renderer struct {
	name     string
	fragment Fragment
	observer RenderObserver
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithObserver attaches a RenderObserver.
func WithObserver(o RenderObserver) RendererOption {
	return func(r *Renderer) {
		r.observer = o
	}
}

// NewRenderer constructs a Renderer for the given fragment. name identifies
// the page in observer callbacks.
func NewRenderer(name string, fragment Fragment, opts ...RendererOption) *Renderer {
	r := &Renderer{name: name, fragment: fragment}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Render returns the tree cached in slot, building and storing it first when
// the slot is empty. The fragment is only read on a miss.
func (r *Renderer) Render(slot *Slot) *ContentTree {
	tree, computed := slot.GetOrCompute(func() *ContentTree {
		return buildTree(r.fragment)
	})
	if r.observer != nil {
		r.observer.ObserveRender(r.name, !computed)
	}
	return tree
}
