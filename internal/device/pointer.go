package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/waydo/internal/protocols"
)

// ErrNoOutputs is returned for native absolute motion without any output.
var ErrNoOutputs = errors.New("no outputs to scale absolute motion against")

// Pointer is a virtual pointer.
type Pointer struct {
	backend Backend

	native PointerProxy
	extent func() (uint32, uint32)
	clock  clock

	portal  PortalSession
	locator locator
}

func newNativePointer(proxy PointerProxy, extent func() (uint32, uint32)) *Pointer {
	return &Pointer{
		backend: BackendNative,
		native:  proxy,
		extent:  extent,
		clock:   newClock(),
	}
}

func newPortalPointer(session PortalSession, loc locator) *Pointer {
	return &Pointer{
		backend: BackendPortal,
		portal:  session,
		locator: loc,
	}
}

// Backend reports which backend drives the pointer.
func (p *Pointer) Backend() Backend { return p.backend }

// Button presses or releases an evdev button code (BTN_LEFT and up).
func (p *Pointer) Button(ctx context.Context, button uint32, pressed bool) error {
	if p.backend == BackendPortal {
		return p.portal.NotifyPointerButton(ctx, button, pressed)
	}

	state := uint32(protocols.ButtonStateReleased)
	if pressed {
		state = protocols.ButtonStatePressed
	}
	if err := p.native.Button(p.clock.now(), button, state); err != nil {
		return fmt.Errorf("failed to send button: %w", err)
	}
	return p.native.Frame()
}

// Scroll scrolls by dx, dy in the compositor's scroll units.
func (p *Pointer) Scroll(ctx context.Context, dx, dy float64) error {
	if p.backend == BackendPortal {
		return p.portal.NotifyPointerAxis(ctx, dx, dy)
	}

	if err := p.native.AxisSource(protocols.AxisSourceWheel); err != nil {
		return fmt.Errorf("failed to send axis source: %w", err)
	}
	t := p.clock.now()
	if dy != 0 {
		if err := p.native.Axis(t, protocols.AxisVerticalScroll, dy); err != nil {
			return fmt.Errorf("failed to send vertical axis: %w", err)
		}
	}
	if dx != 0 {
		if err := p.native.Axis(t, protocols.AxisHorizontalScroll, dx); err != nil {
			return fmt.Errorf("failed to send horizontal axis: %w", err)
		}
	}
	return p.native.Frame()
}

// Motion moves the pointer by dx, dy.
func (p *Pointer) Motion(ctx context.Context, dx, dy float64) error {
	if p.backend == BackendPortal {
		return p.portal.NotifyPointerMotion(ctx, dx, dy)
	}

	if err := p.native.Motion(p.clock.now(), dx, dy); err != nil {
		return fmt.Errorf("failed to send motion: %w", err)
	}
	return p.native.Frame()
}

// MotionAbsolute moves the pointer to x, y in layout pixels. The native
// backend scales against the bounding extent of all outputs; the portal
// backend targets the capture stream, negotiated on first use.
func (p *Pointer) MotionAbsolute(ctx context.Context, x, y uint32) error {
	if p.backend == BackendPortal {
		stream, err := p.locator.Locate(ctx)
		if err != nil {
			return err
		}
		return p.portal.NotifyPointerMotionAbsolute(ctx, stream.ID, float64(x), float64(y))
	}

	width, height := p.extent()
	if width == 0 || height == 0 {
		return ErrNoOutputs
	}
	if err := p.native.MotionAbsolute(p.clock.now(), x, y, width, height); err != nil {
		return fmt.Errorf("failed to send absolute motion: %w", err)
	}
	return p.native.Frame()
}

// Close destroys the native pointer or stops the capture stream.
func (p *Pointer) Close() error {
	if p.locator != nil {
		return p.locator.Close()
	}
	if p.native == nil {
		return nil
	}
	err := p.native.Destroy()
	p.native = nil
	return err
}
