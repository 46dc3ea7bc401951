package device

import (
	"github.com/bnema/waydo/internal/wayland"
)

// WaylandCompositor adapts a compositor connection to Compositor.
type WaylandCompositor struct {
	Conn *wayland.Conn
}

func (w WaylandCompositor) NewKeyboardProxy() (KeyboardProxy, error) {
	kb, err := w.Conn.CreateVirtualKeyboard()
	if err != nil {
		return nil, err
	}
	return kb, nil
}

func (w WaylandCompositor) NewPointerProxy() (PointerProxy, error) {
	ptr, err := w.Conn.CreateVirtualPointer()
	if err != nil {
		return nil, err
	}
	return ptr, nil
}

func (w WaylandCompositor) BoundingExtent() (uint32, uint32) {
	return w.Conn.BoundingExtent()
}

func (w WaylandCompositor) Roundtrip() error {
	return w.Conn.Roundtrip()
}
