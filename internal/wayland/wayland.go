// Package wayland holds the compositor connection: registry globals, the
// seat, the output layout and the virtual input managers.
package wayland

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/waydo/internal/logger"
	"github.com/bnema/waydo/internal/protocols"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// ErrGlobalMissing is returned when the compositor does not advertise a global.
var ErrGlobalMissing = errors.New("global not advertised by the compositor")

// Global is one entry of the wl_registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Conn is a connection to the compositor with the globals it announced.
type Conn struct {
	display  *client.Display
	registry *client.Registry

	globals map[string]Global
	seat    *client.Seat
	outputs *OutputRegistry
	wlOuts  []*client.Output

	keyboardManager *protocols.VirtualKeyboardManager
	pointerManager  *protocols.VirtualPointerManager
}

// Connect opens the display named by WAYLAND_DISPLAY and collects globals,
// the seat and the output layout.
func Connect(ctx context.Context) (*Conn, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}

	c := &Conn{
		display: display,
		globals: make(map[string]Global),
		outputs: NewOutputRegistry(),
	}

	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		logger.Errorf("[WAYLAND] protocol error on object %d: code %d: %s", e.ObjectId.ID(), e.Code, e.Message)
	})

	fail := func(err error) (*Conn, error) {
		if derr := display.Destroy(); derr != nil {
			logger.Debugf("[WAYLAND] failed to destroy display: %v", derr)
		}
		return nil, err
	}

	registry, err := display.GetRegistry()
	if err != nil {
		return fail(fmt.Errorf("failed to get registry: %w", err))
	}
	c.registry = registry
	registry.SetGlobalHandler(c.handleGlobal)

	// First roundtrip collects the globals, the second the output events
	// triggered by binding them.
	for i := 0; i < 2; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := c.Roundtrip(); err != nil {
			return fail(err)
		}
	}

	logger.Debugf("[WAYLAND] %d globals, %d outputs, seat bound: %v", len(c.globals), c.outputs.Len(), c.seat != nil)
	return c, nil
}

func (c *Conn) handleGlobal(e client.RegistryGlobalEvent) {
	if _, seen := c.globals[e.Interface]; !seen {
		c.globals[e.Interface] = Global{Name: e.Name, Interface: e.Interface, Version: e.Version}
	}

	switch e.Interface {
	case "wl_seat":
		if c.seat != nil {
			return
		}
		seat := client.NewSeat(c.display.Context())
		if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 5), seat); err != nil {
			logger.Warnf("[WAYLAND] failed to bind seat: %v", err)
			return
		}
		c.seat = seat
	case "wl_output":
		c.bindOutput(e)
	}
}

func (c *Conn) bindOutput(e client.RegistryGlobalEvent) {
	handle := e.Name
	output := client.NewOutput(c.display.Context())

	output.SetGeometryHandler(func(ev client.OutputGeometryEvent) {
		c.outputs.SetGeometry(handle, ev.X, ev.Y)
	})
	output.SetModeHandler(func(ev client.OutputModeEvent) {
		c.outputs.SetMode(handle, ev.Flags, ev.Width, ev.Height)
	})
	output.SetNameHandler(func(ev client.OutputNameEvent) {
		c.outputs.SetName(handle, ev.Name)
	})

	if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 4), output); err != nil {
		logger.Warnf("[WAYLAND] failed to bind output %d: %v", e.Name, err)
		return
	}
	c.outputs.Add(handle)
	c.wlOuts = append(c.wlOuts, output)
}

// Roundtrip flushes pending requests and processes events until the
// compositor has answered a wl_display.sync.
func (c *Conn) Roundtrip() error {
	callback, err := c.display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync display: %w", err)
	}
	defer func() {
		if err := callback.Destroy(); err != nil {
			logger.Debugf("[WAYLAND] failed to destroy sync callback: %v", err)
		}
	}()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})

	for !done {
		if err := c.display.Context().Dispatch(); err != nil {
			return fmt.Errorf("failed to dispatch events: %w", err)
		}
	}
	return nil
}

// HasGlobal reports whether the compositor advertised an interface.
func (c *Conn) HasGlobal(iface string) bool {
	_, ok := c.globals[iface]
	return ok
}

// Globals returns the advertised globals keyed by interface.
func (c *Conn) Globals() map[string]Global {
	out := make(map[string]Global, len(c.globals))
	for k, v := range c.globals {
		out[k] = v
	}
	return out
}

// Outputs returns the output layout.
func (c *Conn) Outputs() *OutputRegistry {
	return c.outputs
}

// BoundingExtent is the size of the whole output layout.
func (c *Conn) BoundingExtent() (uint32, uint32) {
	return c.outputs.BoundingExtent()
}

// CreateVirtualKeyboard binds the keyboard manager on first use and creates a
// virtual keyboard on the seat.
func (c *Conn) CreateVirtualKeyboard() (*protocols.VirtualKeyboard, error) {
	if c.seat == nil {
		return nil, fmt.Errorf("wl_seat: %w", ErrGlobalMissing)
	}
	if c.keyboardManager == nil {
		g, ok := c.globals[protocols.VirtualKeyboardManagerInterface]
		if !ok {
			return nil, fmt.Errorf("%s: %w", protocols.VirtualKeyboardManagerInterface, ErrGlobalMissing)
		}
		manager := protocols.NewVirtualKeyboardManager(c.display.Context())
		if err := c.registry.Bind(g.Name, g.Interface, 1, manager); err != nil {
			return nil, fmt.Errorf("failed to bind virtual keyboard manager: %w", err)
		}
		c.keyboardManager = manager
	}

	keyboard, err := c.keyboardManager.CreateVirtualKeyboard(c.seat)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return keyboard, nil
}

// CreateVirtualPointer binds the pointer manager on first use and creates a
// virtual pointer, on the seat when one is bound.
func (c *Conn) CreateVirtualPointer() (*protocols.VirtualPointer, error) {
	if c.pointerManager == nil {
		g, ok := c.globals[protocols.VirtualPointerManagerInterface]
		if !ok {
			return nil, fmt.Errorf("%s: %w", protocols.VirtualPointerManagerInterface, ErrGlobalMissing)
		}
		manager := protocols.NewVirtualPointerManager(c.display.Context())
		if err := c.registry.Bind(g.Name, g.Interface, min(g.Version, 2), manager); err != nil {
			return nil, fmt.Errorf("failed to bind virtual pointer manager: %w", err)
		}
		c.pointerManager = manager
	}

	pointer, err := c.pointerManager.CreateVirtualPointer(c.seat)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual pointer: %w", err)
	}
	return pointer, nil
}

// Close destroys the managers and disconnects.
func (c *Conn) Close() {
	if c.display == nil {
		return
	}
	if c.pointerManager != nil {
		if err := c.pointerManager.Destroy(); err != nil {
			logger.Debugf("[WAYLAND] failed to destroy pointer manager: %v", err)
		}
	}
	if c.keyboardManager != nil {
		_ = c.keyboardManager.Destroy()
	}
	// let the destroy requests reach the compositor before hanging up
	if err := c.Roundtrip(); err != nil {
		logger.Debugf("[WAYLAND] final roundtrip failed: %v", err)
	}
	if err := c.display.Destroy(); err != nil {
		logger.Debugf("[WAYLAND] failed to destroy display: %v", err)
	}
	c.display = nil
	c.registry = nil
}
