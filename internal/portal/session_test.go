package portal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	code    uint32
	results map[string]dbus.Variant
	err     error
}

type call struct {
	method string
	args   []interface{}
}

// fakeBus answers requests from a table keyed by method name and records
// every call it sees.
type fakeBus struct {
	available uint32
	responses map[string]response
	calls     []call
	closed    []dbus.ObjectPath
	fd        int
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		available: uint32(DeviceKeyboard | DevicePointer),
		responses: map[string]response{
			"CreateSession": {results: map[string]dbus.Variant{
				"session_handle": dbus.MakeVariant("/org/freedesktop/portal/desktop/session/1_42/waydo"),
			}},
			"SelectDevices": {},
			"SelectSources": {},
			"Start": {results: map[string]dbus.Variant{
				"devices": dbus.MakeVariant(uint32(DeviceKeyboard | DevicePointer)),
			}},
		},
		fd: 9,
	}
}

func shortName(method string) string {
	return method[strings.LastIndex(method, ".")+1:]
}

func (b *fakeBus) methods() []string {
	var names []string
	for _, c := range b.calls {
		names = append(names, shortName(c.method))
	}
	return names
}

func (b *fakeBus) last() call {
	return b.calls[len(b.calls)-1]
}

func (b *fakeBus) Property(_ context.Context, iface, name string) (dbus.Variant, error) {
	b.calls = append(b.calls, call{method: iface + "." + name})
	return dbus.MakeVariant(b.available), nil
}

func (b *fakeBus) Request(_ context.Context, method, token string, args ...interface{}) (uint32, map[string]dbus.Variant, error) {
	b.calls = append(b.calls, call{method: method, args: args})
	r := b.responses[shortName(method)]
	return r.code, r.results, r.err
}

func (b *fakeBus) Call(_ context.Context, method string, args ...interface{}) error {
	b.calls = append(b.calls, call{method: method, args: args})
	return nil
}

func (b *fakeBus) CallFD(_ context.Context, method string, args ...interface{}) (int, error) {
	b.calls = append(b.calls, call{method: method, args: args})
	return b.fd, nil
}

func (b *fakeBus) CloseSession(_ context.Context, session dbus.ObjectPath) error {
	b.closed = append(b.closed, session)
	return nil
}

func TestOpen(t *testing.T) {
	bus := newFakeBus()

	s, err := Open(context.Background(), bus, Options{Devices: DeviceKeyboard | DevicePointer})
	require.NoError(t, err)

	assert.Equal(t, StateStarted, s.State())
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1_42/waydo"), s.Handle())
	assert.True(t, s.Has(DeviceKeyboard|DevicePointer))
	assert.False(t, s.ScreenCast())
	assert.Equal(t, []string{"CreateSession", "AvailableDeviceTypes", "SelectDevices", "Start"}, bus.methods())

	s.Close(context.Background())
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, []dbus.ObjectPath{s.Handle()}, bus.closed)

	// second close does not reach the bus again
	s.Close(context.Background())
	assert.Len(t, bus.closed, 1)
}

func TestOpenSelectDevicesOptions(t *testing.T) {
	bus := newFakeBus()

	_, err := Open(context.Background(), bus, Options{
		Devices:      DeviceKeyboard | DeviceTouchscreen,
		PersistMode:  PersistModePermanent,
		RestoreToken: "tok",
	})
	require.NoError(t, err)

	var selectCall call
	for _, c := range bus.calls {
		if shortName(c.method) == "SelectDevices" {
			selectCall = c
		}
	}
	require.Len(t, selectCall.args, 2)
	options, ok := selectCall.args[1].(map[string]dbus.Variant)
	require.True(t, ok)

	// touchscreen is not offered so only the keyboard is requested
	assert.Equal(t, uint32(DeviceKeyboard), options["types"].Value())
	assert.Equal(t, uint32(PersistModePermanent), options["persist_mode"].Value())
	assert.Equal(t, "tok", options["restore_token"].Value())
	assert.Contains(t, options, "handle_token")
}

func TestOpenNoSupportedDevices(t *testing.T) {
	bus := newFakeBus()
	bus.available = uint32(DeviceTouchscreen)

	_, err := Open(context.Background(), bus, Options{Devices: DeviceKeyboard})
	require.ErrorIs(t, err, ErrNoSupportedDevices)

	assert.NotContains(t, bus.methods(), "SelectDevices")
	assert.Len(t, bus.closed, 1, "created session must be closed")
}

func TestOpenRejected(t *testing.T) {
	bus := newFakeBus()
	bus.responses["Start"] = response{code: ResponseCancelled}

	s, err := Open(context.Background(), bus, Options{Devices: DevicePointer})
	require.ErrorIs(t, err, ErrSessionRejected)
	assert.Nil(t, s)

	assert.Equal(t, "Start", shortName(bus.last().method), "no call may follow a rejected Start")
	assert.Empty(t, bus.closed)
}

func TestOpenCreateSessionFails(t *testing.T) {
	bus := newFakeBus()
	bus.responses["CreateSession"] = response{err: errors.New("no portal")}

	_, err := Open(context.Background(), bus, Options{Devices: DeviceKeyboard})
	require.Error(t, err)
	assert.Equal(t, []string{"CreateSession"}, bus.methods())
	assert.Empty(t, bus.closed)
}

func TestSessionHandleAsObjectPath(t *testing.T) {
	bus := newFakeBus()
	bus.responses["CreateSession"] = response{results: map[string]dbus.Variant{
		"session_handle": dbus.MakeVariant(dbus.ObjectPath("/session/x")),
	}}

	s, err := Open(context.Background(), bus, Options{Devices: DeviceKeyboard})
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/session/x"), s.Handle())
}

func TestOpenWithScreenCast(t *testing.T) {
	bus := newFakeBus()
	bus.responses["Start"] = response{results: map[string]dbus.Variant{
		"devices": dbus.MakeVariant(uint32(DevicePointer)),
		"streams": dbus.MakeVariant([][]interface{}{
			{uint32(57), map[string]dbus.Variant{
				"position": dbus.MakeVariant([]interface{}{int32(1920), int32(0)}),
				"size":     dbus.MakeVariant([]interface{}{int32(2560), int32(1440)}),
			}},
		}),
		"restore_token": dbus.MakeVariant("restore-me"),
	}}

	s, err := Open(context.Background(), bus, Options{Devices: DevicePointer, ScreenCast: true, PersistMode: PersistModePermanent})
	require.NoError(t, err)

	methods := bus.methods()
	assert.Less(t, indexOf(methods, "SelectDevices"), indexOf(methods, "SelectSources"))
	assert.Less(t, indexOf(methods, "SelectSources"), indexOf(methods, "Start"))

	assert.True(t, s.ScreenCast())
	assert.Equal(t, []Stream{{NodeID: 57, X: 1920, Y: 0, Width: 2560, Height: 1440}}, s.Streams())
	assert.Equal(t, "restore-me", s.RestoreToken())

	fd, err := s.OpenPipeWireRemote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, fd)

	require.NoError(t, s.NotifyPointerMotionAbsolute(context.Background(), 57, 10, 20))
	assert.Equal(t, []interface{}{s.Handle(), map[string]dbus.Variant{}, uint32(57), 10.0, 20.0}, bus.last().args)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestNotify(t *testing.T) {
	bus := newFakeBus()
	ctx := context.Background()

	s, err := Open(ctx, bus, Options{Devices: DeviceKeyboard | DevicePointer})
	require.NoError(t, err)

	tests := []struct {
		name   string
		notify func() error
		method string
		args   []interface{}
	}{
		{
			name:   "keycode press",
			notify: func() error { return s.NotifyKeyboardKeycode(ctx, 30, true) },
			method: "NotifyKeyboardKeycode",
			args:   []interface{}{int32(30), uint32(1)},
		},
		{
			name:   "button release",
			notify: func() error { return s.NotifyPointerButton(ctx, 0x110, false) },
			method: "NotifyPointerButton",
			args:   []interface{}{int32(0x110), uint32(0)},
		},
		{
			name:   "relative motion",
			notify: func() error { return s.NotifyPointerMotion(ctx, 5, -3) },
			method: "NotifyPointerMotion",
			args:   []interface{}{5.0, -3.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.notify())
			c := bus.last()
			assert.Equal(t, tt.method, shortName(c.method))
			require.Len(t, c.args, 2+len(tt.args))
			assert.Equal(t, s.Handle(), c.args[0])
			assert.Equal(t, tt.args, c.args[2:])
		})
	}

	t.Run("axis finishes", func(t *testing.T) {
		require.NoError(t, s.NotifyPointerAxis(ctx, 0, 15))
		options := bus.last().args[1].(map[string]dbus.Variant)
		assert.Equal(t, true, options["finish"].Value())
	})

	t.Run("absolute without screen cast", func(t *testing.T) {
		err := s.NotifyPointerMotionAbsolute(ctx, 1, 0, 0)
		assert.ErrorIs(t, err, ErrDeviceNotSelected)
	})
}

func TestNotifyUnselectedDevice(t *testing.T) {
	bus := newFakeBus()
	s, err := Open(context.Background(), bus, Options{Devices: DevicePointer})
	require.NoError(t, err)

	err = s.NotifyKeyboardKeycode(context.Background(), 30, true)
	assert.ErrorIs(t, err, ErrDeviceNotSelected)
}

func TestNotifyAfterClose(t *testing.T) {
	bus := newFakeBus()
	s, err := Open(context.Background(), bus, Options{Devices: DeviceKeyboard})
	require.NoError(t, err)
	s.Close(context.Background())

	n := len(bus.calls)
	err = s.NotifyKeyboardKeycode(context.Background(), 30, true)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Len(t, bus.calls, n)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "keyboard|pointer", (DeviceKeyboard | DevicePointer).String())
	assert.Equal(t, "none", DeviceType(0).String())
}
