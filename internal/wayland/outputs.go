package wayland

import "sync"

// wl_output.mode flags
const (
	OutputModeCurrent   = 0x1
	OutputModePreferred = 0x2
)

// Output is one display as reported by wl_output.
type Output struct {
	Handle uint32 `json:"handle"`
	Name   string `json:"name,omitempty"`
	X      int32  `json:"x"`
	Y      int32  `json:"y"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
}

// OutputRegistry collects outputs in announcement order. Outputs are never
// removed; hotplug is not tracked.
type OutputRegistry struct {
	mu      sync.RWMutex
	outputs []*Output
	index   map[uint32]*Output
}

// NewOutputRegistry returns an empty registry.
func NewOutputRegistry() *OutputRegistry {
	return &OutputRegistry{index: make(map[uint32]*Output)}
}

// Add registers a newly announced output. Adding a known handle is a no-op.
func (r *OutputRegistry) Add(handle uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[handle]; ok {
		return
	}
	o := &Output{Handle: handle}
	r.outputs = append(r.outputs, o)
	r.index[handle] = o
}

// SetGeometry records the output position in the compositor space.
func (r *OutputRegistry) SetGeometry(handle uint32, x, y int32) {
	r.update(handle, func(o *Output) {
		o.X, o.Y = x, y
	})
}

// SetMode records the output size. Only the current mode counts.
func (r *OutputRegistry) SetMode(handle uint32, flags uint32, width, height int32) {
	if flags&OutputModeCurrent == 0 {
		return
	}
	r.update(handle, func(o *Output) {
		o.Width, o.Height = width, height
	})
}

// SetName records the connector name (wl_output v4).
func (r *OutputRegistry) SetName(handle uint32, name string) {
	r.update(handle, func(o *Output) {
		o.Name = name
	})
}

func (r *OutputRegistry) update(handle uint32, fn func(*Output)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o, ok := r.index[handle]; ok {
		fn(o)
	}
}

// Outputs returns a copy of the outputs in announcement order.
func (r *OutputRegistry) Outputs() []Output {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Output, len(r.outputs))
	for i, o := range r.outputs {
		out[i] = *o
	}
	return out
}

// Len returns the number of known outputs.
func (r *OutputRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outputs)
}

// BoundingExtent returns the width and height of the box from the origin to
// the far corner of every output. It is (0, 0) when no output is known.
func (r *OutputRegistry) BoundingExtent() (uint32, uint32) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var w, h int64
	for _, o := range r.outputs {
		if right := int64(o.X) + int64(o.Width); right > w {
			w = right
		}
		if bottom := int64(o.Y) + int64(o.Height); bottom > h {
			h = bottom
		}
	}
	return uint32(w), uint32(h)
}
