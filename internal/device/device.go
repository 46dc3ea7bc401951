// Package device provides the virtual keyboard and pointer. Each is a closed
// variant over two backends: the compositor's native virtual-input protocols
// or a RemoteDesktop portal session.
package device

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/waydo/internal/capture"
	"github.com/bnema/waydo/internal/portal"
)

// ErrBackendUnavailable means neither the native nor the portal backend
// could be built for a device class.
var ErrBackendUnavailable = errors.New("virtual device unavailable")

// Backend names the mechanism behind a device.
type Backend int

const (
	BackendNative Backend = iota
	BackendPortal
)

func (b Backend) String() string {
	switch b {
	case BackendNative:
		return "native"
	case BackendPortal:
		return "portal"
	}
	return "unknown"
}

// KeyboardProxy is a zwp_virtual_keyboard_v1 object.
type KeyboardProxy interface {
	Keymap(format uint32, fd int, size uint32) error
	Key(time, key, state uint32) error
	Modifiers(depressed, latched, locked, group uint32) error
	Destroy() error
}

// PointerProxy is a zwlr_virtual_pointer_v1 object.
type PointerProxy interface {
	Motion(time uint32, dx, dy float64) error
	MotionAbsolute(time, x, y, xExtent, yExtent uint32) error
	Button(time, button, state uint32) error
	Axis(time, axis uint32, value float64) error
	AxisSource(source uint32) error
	Frame() error
	Destroy() error
}

// Compositor creates native devices. BoundingExtent is the output layout size.
type Compositor interface {
	NewKeyboardProxy() (KeyboardProxy, error)
	NewPointerProxy() (PointerProxy, error)
	BoundingExtent() (uint32, uint32)
	Roundtrip() error
}

// PortalSession is a started RemoteDesktop session.
type PortalSession interface {
	Has(d portal.DeviceType) bool
	ScreenCast() bool
	RestoreToken() string
	NotifyKeyboardKeycode(ctx context.Context, keycode uint32, pressed bool) error
	NotifyPointerButton(ctx context.Context, button uint32, pressed bool) error
	NotifyPointerAxis(ctx context.Context, dx, dy float64) error
	NotifyPointerMotion(ctx context.Context, dx, dy float64) error
	NotifyPointerMotionAbsolute(ctx context.Context, stream uint32, x, y float64) error
	capture.Session
	Close(ctx context.Context)
}

// PortalOpener negotiates a new portal session.
type PortalOpener func(ctx context.Context, opts portal.Options) (PortalSession, error)

// locator finds the capture stream for portal absolute motion.
type locator interface {
	Locate(ctx context.Context) (capture.Stream, error)
	Close() error
}

// clock returns protocol timestamps in milliseconds since the device was created.
type clock struct {
	start time.Time
}

func newClock() clock {
	return clock{start: time.Now()}
}

func (c clock) now() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}
