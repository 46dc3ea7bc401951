package device

import (
	"context"
	"strings"
	"testing"

	"github.com/bnema/waydo/internal/xkb"
	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usKeymap(t *testing.T) *xkb.Keymap {
	t.Helper()
	km, err := xkb.NewKeymap("us")
	require.NoError(t, err)
	return km
}

func TestNativeKeyboard(t *testing.T) {
	proxy := &fakeKeyboardProxy{}
	kb, err := newNativeKeyboard(proxy, usKeymap(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(proxy.keymapText, "xkb_keymap {"))
	assert.True(t, strings.HasSuffix(proxy.keymapText, "\x00"))
	assert.Equal(t, uint32(len(proxy.keymapText)), proxy.keymapSize)

	ctx := context.Background()
	require.NoError(t, kb.Key(ctx, uint32(evdev.KEY_LEFTSHIFT), xkb.Down))
	require.NoError(t, kb.Key(ctx, uint32(evdev.KEY_A), xkb.Down))
	require.NoError(t, kb.Key(ctx, uint32(evdev.KEY_A), xkb.Up))
	require.NoError(t, kb.Key(ctx, uint32(evdev.KEY_LEFTSHIFT), xkb.Up))

	assert.Equal(t, []string{
		"key 42 1", "mods 1 0 0 0",
		"key 30 1", "mods 1 0 0 0",
		"key 30 0", "mods 1 0 0 0",
		"key 42 0", "mods 0 0 0 0",
	}, proxy.events)
}

func TestNativeKeyboardPropagatesErrors(t *testing.T) {
	proxy := &fakeKeyboardProxy{keyErr: assert.AnError}
	kb, err := newNativeKeyboard(proxy, usKeymap(t))
	require.NoError(t, err)

	err = kb.Key(context.Background(), uint32(evdev.KEY_A), xkb.Down)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestKeyFailureKeepsModifierState(t *testing.T) {
	proxy := &fakeKeyboardProxy{keyErr: assert.AnError}
	native, err := newNativeKeyboard(proxy, usKeymap(t))
	require.NoError(t, err)

	require.Error(t, native.Key(context.Background(), uint32(evdev.KEY_LEFTSHIFT), xkb.Down))
	assert.Equal(t, xkb.Mods{}, native.Mods(), "a key the compositor never saw is not held")
	assert.Equal(t, []string{"key 42 1"}, proxy.events, "no modifiers after a failed key")

	session := &fakeSession{err: assert.AnError}
	remote := newPortalKeyboard(session, usKeymap(t))
	require.Error(t, remote.Key(context.Background(), uint32(evdev.KEY_CAPSLOCK), xkb.Down))
	assert.Equal(t, xkb.Mods{}, remote.Mods())
}

func TestPortalKeyboard(t *testing.T) {
	session := &fakeSession{}
	kb := newPortalKeyboard(session, usKeymap(t))

	require.NoError(t, kb.Key(context.Background(), uint32(evdev.KEY_CAPSLOCK), xkb.Down))
	require.NoError(t, kb.Key(context.Background(), uint32(evdev.KEY_CAPSLOCK), xkb.Up))

	assert.Equal(t, []string{"keycode 58 true", "keycode 58 false"}, session.events)
	assert.Equal(t, uint32(xkb.ModLock), kb.Mods().Locked, "state is tracked for the portal too")
}

func TestCharToKeyEvent(t *testing.T) {
	kb := newPortalKeyboard(&fakeSession{}, usKeymap(t))

	code, shift, ok := kb.CharToKeyEvent('A')
	require.True(t, ok)
	assert.Equal(t, uint32(evdev.KEY_A), code)
	assert.True(t, shift)

	code, shift, ok = kb.CharToKeyEvent('a')
	require.True(t, ok)
	assert.Equal(t, uint32(evdev.KEY_A), code)
	assert.False(t, shift)

	_, _, ok = kb.CharToKeyEvent('☃')
	assert.False(t, ok)
}

func TestNativePointer(t *testing.T) {
	proxy := &fakePointerProxy{}
	ptr := newNativePointer(proxy, func() (uint32, uint32) { return 3840, 1080 })
	ctx := context.Background()

	require.NoError(t, ptr.MotionAbsolute(ctx, 3840, 1080))
	require.NoError(t, ptr.Motion(ctx, 10, -5))
	require.NoError(t, ptr.Button(ctx, uint32(evdev.BTN_LEFT), true))
	require.NoError(t, ptr.Button(ctx, uint32(evdev.BTN_LEFT), false))
	require.NoError(t, ptr.Scroll(ctx, 0, 15))

	assert.Equal(t, []string{
		"motion_absolute 3840 1080 3840 1080", "frame",
		"motion 10 -5", "frame",
		"button 0x110 1", "frame",
		"button 0x110 0", "frame",
		"axis_source 0", "axis 0 15", "frame",
	}, proxy.events)

	require.NoError(t, ptr.Close())
	assert.True(t, proxy.destroyed)
}

func TestNativePointerNoOutputs(t *testing.T) {
	ptr := newNativePointer(&fakePointerProxy{}, func() (uint32, uint32) { return 0, 0 })
	assert.ErrorIs(t, ptr.MotionAbsolute(context.Background(), 1, 1), ErrNoOutputs)
}

func TestPortalPointer(t *testing.T) {
	session := &fakeSession{}
	ptr := newPortalPointer(session, nil)
	ctx := context.Background()

	require.NoError(t, ptr.Motion(ctx, 1.5, 2))
	require.NoError(t, ptr.Button(ctx, uint32(evdev.BTN_RIGHT), true))
	require.NoError(t, ptr.Scroll(ctx, -1, 0))

	assert.Equal(t, []string{"motion 1.5 2", "button 0x111 true", "axis -1 0"}, session.events)
}
