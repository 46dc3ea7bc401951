// Package protocols implements the client side of the virtual input protocol
// extensions on top of go-wayland proxies.
package protocols

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"
)

// Protocol interface names for virtual keyboard
const (
	VirtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"
	VirtualKeyboardInterface        = "zwp_virtual_keyboard_v1"
)

// KeymapFormatXkbV1 is wl_keyboard.keymap_format.xkb_v1
const KeymapFormatXkbV1 = 1

// VirtualKeyboardManager manages virtual keyboard objects
type VirtualKeyboardManager struct {
	client.BaseProxy
}

// NewVirtualKeyboardManager registers a manager proxy; bind it through the registry.
func NewVirtualKeyboardManager(ctx *client.Context) *VirtualKeyboardManager {
	manager := &VirtualKeyboardManager{}
	ctx.Register(manager)
	return manager
}

// CreateVirtualKeyboard creates a new virtual keyboard for the seat
func (m *VirtualKeyboardManager) CreateVirtualKeyboard(seat *client.Seat) (*VirtualKeyboard, error) {
	if seat == nil {
		return nil, fmt.Errorf("virtual keyboard requires a seat")
	}
	keyboard := &VirtualKeyboard{}
	m.Context().Register(keyboard)

	// Opcode 0: create_virtual_keyboard(seat, id)
	const opcode = 0
	const reqLen = 8 + 4 + 4
	var buf [reqLen]byte
	putHeader(buf[:], m.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], seat.ID())
	client.PutUint32(buf[12:16], keyboard.ID())

	if err := m.Context().WriteMsg(buf[:], nil); err != nil {
		m.Context().Unregister(keyboard)
		return nil, err
	}
	return keyboard, nil
}

// Destroy releases the manager proxy (the protocol has no destructor)
func (m *VirtualKeyboardManager) Destroy() error {
	m.Context().Unregister(m)
	return nil
}

// Dispatch handles incoming events (manager has no events)
func (m *VirtualKeyboardManager) Dispatch(opcode uint16, fd int, data []byte) {}

// VirtualKeyboard represents a virtual keyboard device
type VirtualKeyboard struct {
	client.BaseProxy
}

// Keymap uploads the keymap. The compositor ignores keys until this is sent.
func (k *VirtualKeyboard) Keymap(format uint32, fd int, size uint32) error {
	if fd < 0 {
		return fmt.Errorf("invalid file descriptor: %d", fd)
	}

	// Opcode 0: keymap(format, fd, size), the fd travels out of band
	const opcode = 0
	const reqLen = 8 + 4 + 4
	var buf [reqLen]byte
	putHeader(buf[:], k.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], format)
	client.PutUint32(buf[12:16], size)

	return k.Context().WriteMsg(buf[:], unix.UnixRights(fd))
}

// Key sends a key press/release event. key is an evdev code, without the xkb offset.
func (k *VirtualKeyboard) Key(time, key, state uint32) error {
	// Opcode 1: key
	const opcode = 1
	return k.send3(opcode, time, key, state)
}

// Modifiers updates modifier state
func (k *VirtualKeyboard) Modifiers(modsDepressed, modsLatched, modsLocked, group uint32) error {
	// Opcode 2: modifiers
	const opcode = 2
	const reqLen = 8 + 4*4
	var buf [reqLen]byte
	putHeader(buf[:], k.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], modsDepressed)
	client.PutUint32(buf[12:16], modsLatched)
	client.PutUint32(buf[16:20], modsLocked)
	client.PutUint32(buf[20:24], group)
	return k.Context().WriteMsg(buf[:], nil)
}

// Destroy destroys the virtual keyboard
func (k *VirtualKeyboard) Destroy() error {
	// Opcode 3: destroy
	const opcode = 3
	var buf [8]byte
	putHeader(buf[:], k.ID(), opcode, len(buf))
	err := k.Context().WriteMsg(buf[:], nil)
	k.Context().Unregister(k)
	return err
}

func (k *VirtualKeyboard) send3(opcode uint32, a, b, c uint32) error {
	const reqLen = 8 + 4*3
	var buf [reqLen]byte
	putHeader(buf[:], k.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], a)
	client.PutUint32(buf[12:16], b)
	client.PutUint32(buf[16:20], c)
	return k.Context().WriteMsg(buf[:], nil)
}

// Dispatch handles incoming events (virtual keyboard has no events)
func (k *VirtualKeyboard) Dispatch(opcode uint16, fd int, data []byte) {}

// putHeader writes the object id and the size/opcode word of a request.
func putHeader(buf []byte, id uint32, opcode uint32, size int) {
	client.PutUint32(buf[0:4], id)
	client.PutUint32(buf[4:8], uint32(size)<<16|opcode&0xffff)
}
