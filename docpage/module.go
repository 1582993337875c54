// Package docpage implements the per-page contract of a generated
// documentation site: an immutable metadata record and a renderer that
// builds the page body once per page instance.
package docpage

import (
	"time"

	"github.com/google/uuid"
)

// Module is the build-time constant for a single page.
type Module struct {
	name     string
	meta     Metadata
	fragment Fragment
	renderer *Renderer
}

// NewModule builds a page module. The metadata is copied so later changes to
// meta by the caller are not visible through the module.
func NewModule(meta Metadata, fragment Fragment, opts ...RendererOption) *Module {
	name := meta.RelativePath
	return &Module{
		name:     name,
		meta:     meta.Clone(),
		fragment: fragment,
		renderer: NewRenderer(name, fragment, opts...),
	}
}

// Name returns the module identity, the page's relative path.
func (m *Module) Name() string {
	return m.name
}

// Metadata returns the page metadata.
func (m *Module) Metadata() Metadata {
	return m.meta.Clone()
}

// Fragment returns the page body segments.
func (m *Module) Fragment() Fragment {
	return m.fragment
}

// Render returns the content tree cached in slot, filling it on first use.
func (m *Module) Render(slot *Slot) *ContentTree {
	return m.renderer.Render(slot)
}

// Instance is one lifetime of a mounted page. It owns the render cache slot.
type Instance struct {
	id        string
	module    *Module
	slot      Slot
	mountedAt time.Time
}

// Mount creates a new page instance with an empty cache slot.
func Mount(m *Module) *Instance {
	return &Instance{
		id:        uuid.NewString(),
		module:    m,
		mountedAt: time.Now(),
	}
}

// ID returns the instance identifier, unique per lifetime.
func (i *Instance) ID() string {
	return i.id
}

// Module returns the mounted module.
func (i *Instance) Module() *Module {
	return i.module
}

// MountedAt reports when the instance was created.
func (i *Instance) MountedAt() time.Time {
	return i.mountedAt
}

// Metadata returns the page metadata.
func (i *Instance) Metadata() Metadata {
	return i.module.Metadata()
}

// Render returns the page content tree.
func (i *Instance) Render() *ContentTree {
	return i.module.Render(&i.slot)
}

// Cached reports whether the instance has rendered since mount or the last
// Destroy.
func (i *Instance) Cached() bool {
	return !i.slot.Empty()
}

// Destroy discards the cached tree.
func (i *Instance) Destroy() {
	i.slot.Reset()
}
