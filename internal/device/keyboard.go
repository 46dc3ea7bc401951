package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/waydo/internal/logger"
	"github.com/bnema/waydo/internal/protocols"
	"github.com/bnema/waydo/internal/xkb"
	"golang.org/x/sys/unix"
)

// Keyboard is a virtual keyboard. The symbol state is shared by both
// backends so character lookup behaves the same on either.
type Keyboard struct {
	backend Backend
	state   *xkb.State

	native KeyboardProxy
	clock  clock

	portal PortalSession
}

// newNativeKeyboard uploads the keymap text to a fresh virtual keyboard.
func newNativeKeyboard(proxy KeyboardProxy, km *xkb.Keymap) (*Keyboard, error) {
	fd, size, err := protocols.CreateKeymapFile(km.Text())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unix.Close(fd); err != nil {
			logger.Debugf("[DEVICE] failed to close keymap fd: %v", err)
		}
	}()

	if err := proxy.Keymap(protocols.KeymapFormatXkbV1, fd, size); err != nil {
		return nil, fmt.Errorf("failed to upload keymap: %w", err)
	}

	return &Keyboard{
		backend: BackendNative,
		state:   xkb.NewState(km),
		native:  proxy,
		clock:   newClock(),
	}, nil
}

func newPortalKeyboard(session PortalSession, km *xkb.Keymap) *Keyboard {
	return &Keyboard{
		backend: BackendPortal,
		state:   xkb.NewState(km),
		portal:  session,
	}
}

// Backend reports which backend drives the keyboard.
func (k *Keyboard) Backend() Backend { return k.backend }

// Layout is the keymap layout used for lookups.
func (k *Keyboard) Layout() string { return k.state.Keymap().Layout() }

// Key sends one transition of a logical (evdev) key code. The native backend
// follows it with the resulting modifier state; the portal derives modifiers
// from the key codes itself. The local state only changes once the key was sent.
func (k *Keyboard) Key(ctx context.Context, code uint32, dir xkb.Direction) error {
	switch k.backend {
	case BackendNative:
		if err := k.native.Key(k.clock.now(), code, uint32(dir)); err != nil {
			return fmt.Errorf("failed to send key %d: %w", code, err)
		}
		mods := k.state.Apply(code, dir)
		if err := k.native.Modifiers(uint32(mods.Depressed), uint32(mods.Latched), uint32(mods.Locked), mods.Group); err != nil {
			return fmt.Errorf("failed to send modifiers: %w", err)
		}
		return nil
	case BackendPortal:
		if err := k.portal.NotifyKeyboardKeycode(ctx, code, dir == xkb.Down); err != nil {
			return fmt.Errorf("failed to send key %d: %w", code, err)
		}
		k.state.Apply(code, dir)
		return nil
	}
	return errors.New("keyboard has no backend")
}

// CharToKeyEvent returns the key code producing r and whether Shift must be
// held. ok is false when no key in the layout produces r.
func (k *Keyboard) CharToKeyEvent(r rune) (code uint32, needsShift bool, ok bool) {
	return k.state.ReverseLookup(r)
}

// Mods returns the current modifier state.
func (k *Keyboard) Mods() xkb.Mods { return k.state.Mods() }

// Close destroys the native keyboard. Portal sessions are closed by their owner.
func (k *Keyboard) Close() error {
	if k.native == nil {
		return nil
	}
	err := k.native.Destroy()
	k.native = nil
	return err
}
