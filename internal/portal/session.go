// Package portal negotiates xdg-desktop-portal RemoteDesktop sessions, with an
// optional ScreenCast sub-session, and forwards input notifications to them.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/waydo/internal/logger"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	RemoteDesktopInterface = "org.freedesktop.portal.RemoteDesktop"
	ScreenCastInterface    = "org.freedesktop.portal.ScreenCast"
)

var (
	// ErrSessionRejected means Start answered with a non-zero code, usually
	// because the user declined the consent dialog.
	ErrSessionRejected = errors.New("remote desktop session rejected")
	// ErrNoSupportedDevices means none of the requested device types is offered.
	ErrNoSupportedDevices = errors.New("portal offers none of the requested device types")
	// ErrSessionClosed is returned by calls on a session that is not started.
	ErrSessionClosed = errors.New("remote desktop session is not usable")
	// ErrDeviceNotSelected is returned when notifying a device the session lacks.
	ErrDeviceNotSelected = errors.New("device type not selected for this session")
)

// DeviceType is the RemoteDesktop device bitmask.
type DeviceType uint32

const (
	DeviceKeyboard    DeviceType = 1
	DevicePointer     DeviceType = 2
	DeviceTouchscreen DeviceType = 4
)

func (d DeviceType) String() string {
	var parts []string
	if d&DeviceKeyboard != 0 {
		parts = append(parts, "keyboard")
	}
	if d&DevicePointer != 0 {
		parts = append(parts, "pointer")
	}
	if d&DeviceTouchscreen != 0 {
		parts = append(parts, "touchscreen")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// PersistMode asks the portal to remember the grant.
type PersistMode uint32

const (
	PersistModeNone      PersistMode = 0
	PersistModeTransient PersistMode = 1
	PersistModePermanent PersistMode = 2
)

// ScreenCast source types
const sourceMonitor uint32 = 1

// Response codes of org.freedesktop.portal.Request
const (
	ResponseSuccess   uint32 = 0
	ResponseCancelled uint32 = 1
	ResponseOther     uint32 = 2
)

// State of the session negotiation.
type State int

const (
	StateInit State = iota
	StateSessionCreated
	StateDevicesSelected
	StateSourcesSelected
	StateStarted
	StateRejected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSessionCreated:
		return "session-created"
	case StateDevicesSelected:
		return "devices-selected"
	case StateSourcesSelected:
		return "sources-selected"
	case StateStarted:
		return "started"
	case StateRejected:
		return "rejected"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options selects what the session asks for.
type Options struct {
	Devices      DeviceType
	ScreenCast   bool
	PersistMode  PersistMode
	RestoreToken string
}

// Stream is one screen-cast stream advertised by Start.
type Stream struct {
	NodeID uint32
	X, Y   int32
	Width  int32
	Height int32
}

// Session is a started RemoteDesktop session. Its selection never changes
// after Open returns.
type Session struct {
	bus    Bus
	handle dbus.ObjectPath
	state  State

	devices      DeviceType
	screenCast   bool
	streams      []Stream
	restoreToken string
}

// Open negotiates a session: CreateSession, SelectDevices, optionally
// ScreenCast.SelectSources, then Start. Each step waits for its Response.
func Open(ctx context.Context, bus Bus, opts Options) (*Session, error) {
	s := &Session{bus: bus, state: StateInit}

	if err := s.create(ctx); err != nil {
		return nil, err
	}

	available, err := s.availableDevices(ctx)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.devices = opts.Devices & available
	if s.devices == 0 {
		s.Close(ctx)
		return nil, fmt.Errorf("%w: requested %s, available %s", ErrNoSupportedDevices, opts.Devices, available)
	}

	if err := s.selectDevices(ctx, opts); err != nil {
		s.Close(ctx)
		return nil, err
	}

	if opts.ScreenCast {
		if err := s.selectSources(ctx); err != nil {
			s.Close(ctx)
			return nil, err
		}
	}

	if err := s.start(ctx); err != nil {
		if !errors.Is(err, ErrSessionRejected) {
			s.Close(ctx)
		}
		return nil, err
	}

	logger.Debugf("[PORTAL] session %s started with %s, %d stream(s)", s.handle, s.devices, len(s.streams))
	return s, nil
}

func newToken() string {
	return "waydo_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Session) availableDevices(ctx context.Context) (DeviceType, error) {
	v, err := s.bus.Property(ctx, RemoteDesktopInterface, "AvailableDeviceTypes")
	if err != nil {
		return 0, err
	}
	types, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("AvailableDeviceTypes has unexpected type %s", v.Signature())
	}
	return DeviceType(types), nil
}

func (s *Session) create(ctx context.Context) error {
	token := newToken()
	options := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(token),
		"session_handle_token": dbus.MakeVariant(newToken()),
	}

	code, results, err := s.bus.Request(ctx, RemoteDesktopInterface+".CreateSession", token, options)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if code != ResponseSuccess {
		return fmt.Errorf("CreateSession answered %d", code)
	}

	handle, err := sessionHandle(results)
	if err != nil {
		return err
	}
	s.handle = handle
	s.state = StateSessionCreated
	return nil
}

// sessionHandle accepts both the documented string and an object path.
func sessionHandle(results map[string]dbus.Variant) (dbus.ObjectPath, error) {
	v, ok := results["session_handle"]
	if !ok {
		return "", errors.New("CreateSession response has no session_handle")
	}
	switch h := v.Value().(type) {
	case string:
		return dbus.ObjectPath(h), nil
	case dbus.ObjectPath:
		return h, nil
	}
	return "", fmt.Errorf("session_handle has unexpected type %s", v.Signature())
}

func (s *Session) selectDevices(ctx context.Context, opts Options) error {
	token := newToken()
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"types":        dbus.MakeVariant(uint32(s.devices)),
	}
	if opts.PersistMode != PersistModeNone {
		options["persist_mode"] = dbus.MakeVariant(uint32(opts.PersistMode))
	}
	if opts.RestoreToken != "" {
		options["restore_token"] = dbus.MakeVariant(opts.RestoreToken)
	}

	code, _, err := s.bus.Request(ctx, RemoteDesktopInterface+".SelectDevices", token, s.handle, options)
	if err != nil {
		return fmt.Errorf("failed to select devices: %w", err)
	}
	if code != ResponseSuccess {
		return fmt.Errorf("SelectDevices answered %d", code)
	}
	s.state = StateDevicesSelected
	return nil
}

func (s *Session) selectSources(ctx context.Context) error {
	token := newToken()
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"types":        dbus.MakeVariant(sourceMonitor),
		"multiple":     dbus.MakeVariant(true),
	}

	code, _, err := s.bus.Request(ctx, ScreenCastInterface+".SelectSources", token, s.handle, options)
	if err != nil {
		return fmt.Errorf("failed to select screen-cast sources: %w", err)
	}
	if code != ResponseSuccess {
		return fmt.Errorf("SelectSources answered %d", code)
	}
	s.screenCast = true
	s.state = StateSourcesSelected
	return nil
}

func (s *Session) start(ctx context.Context) error {
	token := newToken()
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
	}

	code, results, err := s.bus.Request(ctx, RemoteDesktopInterface+".Start", token, s.handle, "", options)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	if code != ResponseSuccess {
		s.state = StateRejected
		return fmt.Errorf("%w (response %d)", ErrSessionRejected, code)
	}

	if v, ok := results["devices"]; ok {
		if granted, ok := v.Value().(uint32); ok {
			s.devices &= DeviceType(granted)
		}
	}
	if v, ok := results["streams"]; ok {
		s.streams = parseStreams(v)
	}
	if v, ok := results["restore_token"]; ok {
		if token, ok := v.Value().(string); ok {
			s.restoreToken = token
		}
	}

	s.state = StateStarted
	return nil
}

// parseStreams decodes a(ua{sv}). godbus hands structs inside variants back
// as []interface{}.
func parseStreams(v dbus.Variant) []Stream {
	raw, ok := v.Value().([][]interface{})
	if !ok {
		logger.Debugf("[PORTAL] streams has unexpected type %s", v.Signature())
		return nil
	}

	var streams []Stream
	for _, entry := range raw {
		if len(entry) != 2 {
			continue
		}
		node, ok := entry[0].(uint32)
		if !ok {
			continue
		}
		st := Stream{NodeID: node}
		if props, ok := entry[1].(map[string]dbus.Variant); ok {
			st.X, st.Y = pair(props["position"])
			st.Width, st.Height = pair(props["size"])
		}
		streams = append(streams, st)
	}
	return streams
}

func pair(v dbus.Variant) (int32, int32) {
	values, ok := v.Value().([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0
	}
	a, _ := values[0].(int32)
	b, _ := values[1].(int32)
	return a, b
}

// Handle returns the session object path.
func (s *Session) Handle() dbus.ObjectPath { return s.handle }

// State returns the negotiation state.
func (s *Session) State() State { return s.state }

// Devices returns the device types the session drives.
func (s *Session) Devices() DeviceType { return s.devices }

// Has reports whether every type in d was selected.
func (s *Session) Has(d DeviceType) bool { return s.devices&d == d }

// ScreenCast reports whether a screen-cast sub-session was negotiated.
func (s *Session) ScreenCast() bool { return s.screenCast }

// Streams returns the screen-cast streams listed by Start.
func (s *Session) Streams() []Stream { return append([]Stream(nil), s.streams...) }

// RestoreToken returns the token to reuse the grant, if the portal sent one.
func (s *Session) RestoreToken() string { return s.restoreToken }

func (s *Session) ready(d DeviceType) error {
	if s.state != StateStarted {
		return fmt.Errorf("%w (%s)", ErrSessionClosed, s.state)
	}
	if d != 0 && !s.Has(d) {
		return fmt.Errorf("%w: %s", ErrDeviceNotSelected, d)
	}
	return nil
}

func noOptions() map[string]dbus.Variant {
	return map[string]dbus.Variant{}
}

// NotifyKeyboardKeycode sends an evdev key code. pressed selects the state.
func (s *Session) NotifyKeyboardKeycode(ctx context.Context, keycode uint32, pressed bool) error {
	if err := s.ready(DeviceKeyboard); err != nil {
		return err
	}
	return s.bus.Call(ctx, RemoteDesktopInterface+".NotifyKeyboardKeycode", s.handle, noOptions(), int32(keycode), boolState(pressed))
}

// NotifyPointerButton sends an evdev button code.
func (s *Session) NotifyPointerButton(ctx context.Context, button uint32, pressed bool) error {
	if err := s.ready(DevicePointer); err != nil {
		return err
	}
	return s.bus.Call(ctx, RemoteDesktopInterface+".NotifyPointerButton", s.handle, noOptions(), int32(button), boolState(pressed))
}

// NotifyPointerAxis sends a smooth scroll of dx, dy and ends the scroll sequence.
func (s *Session) NotifyPointerAxis(ctx context.Context, dx, dy float64) error {
	if err := s.ready(DevicePointer); err != nil {
		return err
	}
	options := map[string]dbus.Variant{"finish": dbus.MakeVariant(true)}
	return s.bus.Call(ctx, RemoteDesktopInterface+".NotifyPointerAxis", s.handle, options, dx, dy)
}

// NotifyPointerMotion moves the pointer by dx, dy.
func (s *Session) NotifyPointerMotion(ctx context.Context, dx, dy float64) error {
	if err := s.ready(DevicePointer); err != nil {
		return err
	}
	return s.bus.Call(ctx, RemoteDesktopInterface+".NotifyPointerMotion", s.handle, noOptions(), dx, dy)
}

// NotifyPointerMotionAbsolute moves the pointer to x, y in the pixel space of
// a screen-cast stream.
func (s *Session) NotifyPointerMotionAbsolute(ctx context.Context, stream uint32, x, y float64) error {
	if err := s.ready(DevicePointer); err != nil {
		return err
	}
	if !s.screenCast {
		return fmt.Errorf("absolute motion needs a screen-cast session: %w", ErrDeviceNotSelected)
	}
	return s.bus.Call(ctx, RemoteDesktopInterface+".NotifyPointerMotionAbsolute", s.handle, noOptions(), stream, x, y)
}

// OpenPipeWireRemote returns a PipeWire connection fd scoped to the session
// streams. The caller owns the fd.
func (s *Session) OpenPipeWireRemote(ctx context.Context) (int, error) {
	if err := s.ready(0); err != nil {
		return -1, err
	}
	if !s.screenCast {
		return -1, fmt.Errorf("no screen-cast session: %w", ErrDeviceNotSelected)
	}
	return s.bus.CallFD(ctx, ScreenCastInterface+".OpenPipeWireRemote", s.handle, noOptions())
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	switch s.state {
	case StateInit, StateRejected, StateClosed:
		s.state = StateClosed
		return
	}
	if err := s.bus.CloseSession(ctx, s.handle); err != nil {
		logger.Debugf("[PORTAL] %v", err)
	}
	s.state = StateClosed
}

func boolState(pressed bool) uint32 {
	if pressed {
		return 1
	}
	return 0
}
