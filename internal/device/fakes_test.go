package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/waydo/internal/capture"
	"github.com/bnema/waydo/internal/portal"
	"golang.org/x/sys/unix"
)

type fakeKeyboardProxy struct {
	keymapSize uint32
	keymapText string
	events     []string
	keyErr     error
	destroyed  bool
}

func (k *fakeKeyboardProxy) Keymap(format uint32, fd int, size uint32) error {
	buf := make([]byte, size)
	if _, err := unix.Pread(fd, buf, 0); err != nil {
		return err
	}
	k.keymapSize = size
	k.keymapText = string(buf)
	return nil
}

func (k *fakeKeyboardProxy) Key(_ uint32, key, state uint32) error {
	k.events = append(k.events, fmt.Sprintf("key %d %d", key, state))
	return k.keyErr
}

func (k *fakeKeyboardProxy) Modifiers(depressed, latched, locked, group uint32) error {
	k.events = append(k.events, fmt.Sprintf("mods %d %d %d %d", depressed, latched, locked, group))
	return nil
}

func (k *fakeKeyboardProxy) Destroy() error {
	k.destroyed = true
	return nil
}

type fakePointerProxy struct {
	events    []string
	destroyed bool
}

func (p *fakePointerProxy) Motion(_ uint32, dx, dy float64) error {
	p.events = append(p.events, fmt.Sprintf("motion %g %g", dx, dy))
	return nil
}

func (p *fakePointerProxy) MotionAbsolute(_ uint32, x, y, xExtent, yExtent uint32) error {
	p.events = append(p.events, fmt.Sprintf("motion_absolute %d %d %d %d", x, y, xExtent, yExtent))
	return nil
}

func (p *fakePointerProxy) Button(_ uint32, button, state uint32) error {
	p.events = append(p.events, fmt.Sprintf("button %#x %d", button, state))
	return nil
}

func (p *fakePointerProxy) Axis(_ uint32, axis uint32, value float64) error {
	p.events = append(p.events, fmt.Sprintf("axis %d %g", axis, value))
	return nil
}

func (p *fakePointerProxy) AxisSource(source uint32) error {
	p.events = append(p.events, fmt.Sprintf("axis_source %d", source))
	return nil
}

func (p *fakePointerProxy) Frame() error {
	p.events = append(p.events, "frame")
	return nil
}

func (p *fakePointerProxy) Destroy() error {
	p.destroyed = true
	return nil
}

// fakeCompositor advertises the virtual keyboard and pointer globals as
// configured.
type fakeCompositor struct {
	keyboard, pointer bool
	width, height     uint32

	keyboards  []*fakeKeyboardProxy
	pointers   []*fakePointerProxy
	roundtrips int
}

func (c *fakeCompositor) NewKeyboardProxy() (KeyboardProxy, error) {
	if !c.keyboard {
		return nil, errors.New("zwp_virtual_keyboard_manager_v1: global not advertised by the compositor")
	}
	kb := &fakeKeyboardProxy{}
	c.keyboards = append(c.keyboards, kb)
	return kb, nil
}

func (c *fakeCompositor) NewPointerProxy() (PointerProxy, error) {
	if !c.pointer {
		return nil, errors.New("zwlr_virtual_pointer_manager_v1: global not advertised by the compositor")
	}
	ptr := &fakePointerProxy{}
	c.pointers = append(c.pointers, ptr)
	return ptr, nil
}

func (c *fakeCompositor) BoundingExtent() (uint32, uint32) { return c.width, c.height }

func (c *fakeCompositor) Roundtrip() error {
	c.roundtrips++
	return nil
}

type fakeSession struct {
	devices    portal.DeviceType
	screenCast bool
	token      string
	streams    []portal.Stream

	events []string
	closed bool
	// err fails NotifyKeyboardKeycode
	err error
}

func (s *fakeSession) Has(d portal.DeviceType) bool { return s.devices&d == d }
func (s *fakeSession) ScreenCast() bool             { return s.screenCast }
func (s *fakeSession) RestoreToken() string         { return s.token }
func (s *fakeSession) Streams() []portal.Stream     { return s.streams }

func (s *fakeSession) NotifyKeyboardKeycode(_ context.Context, keycode uint32, pressed bool) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, fmt.Sprintf("keycode %d %t", keycode, pressed))
	return nil
}

func (s *fakeSession) NotifyPointerButton(_ context.Context, button uint32, pressed bool) error {
	s.events = append(s.events, fmt.Sprintf("button %#x %t", button, pressed))
	return nil
}

func (s *fakeSession) NotifyPointerAxis(_ context.Context, dx, dy float64) error {
	s.events = append(s.events, fmt.Sprintf("axis %g %g", dx, dy))
	return nil
}

func (s *fakeSession) NotifyPointerMotion(_ context.Context, dx, dy float64) error {
	s.events = append(s.events, fmt.Sprintf("motion %g %g", dx, dy))
	return nil
}

func (s *fakeSession) NotifyPointerMotionAbsolute(_ context.Context, stream uint32, x, y float64) error {
	s.events = append(s.events, fmt.Sprintf("motion_absolute %d %g %g", stream, x, y))
	return nil
}

func (s *fakeSession) OpenPipeWireRemote(context.Context) (int, error) {
	// any valid fd will do; the fake transport closes it
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return -1, err
	}
	_ = unix.Close(fds[1])
	return fds[0], nil
}

func (s *fakeSession) Close(context.Context) { s.closed = true }

// fakePortal opens fake sessions, or fails with err.
type fakePortal struct {
	err error

	// grant limits the devices a session ends up with; zero grants all
	grant    portal.DeviceType
	token    string
	opened   []portal.Options
	sessions []*fakeSession
}

func (p *fakePortal) open(_ context.Context, opts portal.Options) (PortalSession, error) {
	p.opened = append(p.opened, opts)
	if p.err != nil {
		return nil, p.err
	}
	devices := opts.Devices
	if p.grant != 0 {
		devices &= p.grant
	}
	s := &fakeSession{devices: devices, screenCast: opts.ScreenCast, token: p.token}
	p.sessions = append(p.sessions, s)
	return s, nil
}

// fakeTransport reaches streaming at once and reports node.
type fakeTransport struct {
	node uint32
	stop chan struct{}
}

func newFakeTransport(node uint32) func() capture.Transport {
	return func() capture.Transport {
		return &fakeTransport{node: node, stop: make(chan struct{})}
	}
}

func (t *fakeTransport) Run(fd int, _, _ uint32, onStreaming func()) error {
	_ = unix.Close(fd)
	onStreaming()
	<-t.stop
	return nil
}

func (t *fakeTransport) NodeID() uint32 { return t.node }
func (t *fakeTransport) Stop()          { close(t.stop) }
