package protocols

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Protocol interface names
const (
	VirtualPointerManagerInterface = "zwlr_virtual_pointer_manager_v1"
	VirtualPointerInterface        = "zwlr_virtual_pointer_v1"
)

// wl_pointer enums reused by the virtual pointer
const (
	ButtonStateReleased = 0
	ButtonStatePressed  = 1

	AxisVerticalScroll   = 0
	AxisHorizontalScroll = 1

	AxisSourceWheel = 0
)

// VirtualPointerManager manages virtual pointer objects
type VirtualPointerManager struct {
	client.BaseProxy
}

// NewVirtualPointerManager registers a manager proxy; bind it through the registry.
func NewVirtualPointerManager(ctx *client.Context) *VirtualPointerManager {
	manager := &VirtualPointerManager{}
	ctx.Register(manager)
	return manager
}

// CreateVirtualPointer creates a new virtual pointer. seat may be nil, in
// which case the compositor picks one.
func (m *VirtualPointerManager) CreateVirtualPointer(seat *client.Seat) (*VirtualPointer, error) {
	pointer := &VirtualPointer{}
	m.Context().Register(pointer)

	// Opcode 0: create_virtual_pointer(seat?, id)
	const opcode = 0
	const reqLen = 8 + 4 + 4
	var buf [reqLen]byte
	putHeader(buf[:], m.ID(), opcode, reqLen)
	if seat != nil {
		client.PutUint32(buf[8:12], seat.ID())
	}
	client.PutUint32(buf[12:16], pointer.ID())

	if err := m.Context().WriteMsg(buf[:], nil); err != nil {
		m.Context().Unregister(pointer)
		return nil, err
	}
	return pointer, nil
}

// Destroy destroys the virtual pointer manager
func (m *VirtualPointerManager) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1
	var buf [8]byte
	putHeader(buf[:], m.ID(), opcode, len(buf))
	err := m.Context().WriteMsg(buf[:], nil)
	m.Context().Unregister(m)
	return err
}

// Dispatch handles incoming events (virtual pointer manager has no events)
func (m *VirtualPointerManager) Dispatch(opcode uint16, fd int, data []byte) {}

// VirtualPointer represents a virtual pointer device
type VirtualPointer struct {
	client.BaseProxy
}

// Motion sends a relative pointer motion event
func (p *VirtualPointer) Motion(time uint32, dx, dy float64) error {
	// Opcode 0: motion
	const opcode = 0
	const reqLen = 8 + 4*3
	var buf [reqLen]byte
	putHeader(buf[:], p.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], time)
	client.PutFixed(buf[12:16], dx)
	client.PutFixed(buf[16:20], dy)
	return p.Context().WriteMsg(buf[:], nil)
}

// MotionAbsolute sends an absolute pointer motion event. x and y are
// interpreted against the xExtent by yExtent box.
func (p *VirtualPointer) MotionAbsolute(time, x, y, xExtent, yExtent uint32) error {
	// Opcode 1: motion_absolute
	const opcode = 1
	const reqLen = 8 + 4*5
	var buf [reqLen]byte
	putHeader(buf[:], p.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], time)
	client.PutUint32(buf[12:16], x)
	client.PutUint32(buf[16:20], y)
	client.PutUint32(buf[20:24], xExtent)
	client.PutUint32(buf[24:28], yExtent)
	return p.Context().WriteMsg(buf[:], nil)
}

// Button sends a button press/release event
func (p *VirtualPointer) Button(time, button, state uint32) error {
	// Opcode 2: button
	const opcode = 2
	const reqLen = 8 + 4*3
	var buf [reqLen]byte
	putHeader(buf[:], p.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], time)
	client.PutUint32(buf[12:16], button)
	client.PutUint32(buf[16:20], state)
	return p.Context().WriteMsg(buf[:], nil)
}

// Axis sends a scroll event
func (p *VirtualPointer) Axis(time, axis uint32, value float64) error {
	// Opcode 3: axis
	const opcode = 3
	const reqLen = 8 + 4*3
	var buf [reqLen]byte
	putHeader(buf[:], p.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], time)
	client.PutUint32(buf[12:16], axis)
	client.PutFixed(buf[16:20], value)
	return p.Context().WriteMsg(buf[:], nil)
}

// Frame indicates the end of a pointer event sequence
func (p *VirtualPointer) Frame() error {
	// Opcode 4: frame
	const opcode = 4
	var buf [8]byte
	putHeader(buf[:], p.ID(), opcode, len(buf))
	return p.Context().WriteMsg(buf[:], nil)
}

// AxisSource sets the source of the axis events that follow in the same frame.
func (p *VirtualPointer) AxisSource(axisSource uint32) error {
	// Opcode 5: axis_source
	const opcode = 5
	const reqLen = 8 + 4
	var buf [reqLen]byte
	putHeader(buf[:], p.ID(), opcode, reqLen)
	client.PutUint32(buf[8:12], axisSource)
	return p.Context().WriteMsg(buf[:], nil)
}

// Destroy destroys the virtual pointer
func (p *VirtualPointer) Destroy() error {
	// Opcode 8: destroy
	const opcode = 8
	var buf [8]byte
	putHeader(buf[:], p.ID(), opcode, len(buf))
	err := p.Context().WriteMsg(buf[:], nil)
	p.Context().Unregister(p)
	return err
}

// Dispatch handles incoming events (virtual pointer has no events)
func (p *VirtualPointer) Dispatch(opcode uint16, fd int, data []byte) {}
