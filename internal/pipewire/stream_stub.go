//go:build linux && !cgo

package pipewire

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrUnsupported is returned when the binary was built without cgo.
var ErrUnsupported = errors.New("PipeWire capture needs a cgo build")

// ErrStopped is returned by Run when Stop came first.
var ErrStopped = errors.New("stream stopped before it ran")

// Stream is unavailable in this build; Run always fails.
type Stream struct{}

func NewStream() *Stream {
	return &Stream{}
}

func (s *Stream) Run(fd int, maxWidth, maxHeight uint32, onStreaming func()) error {
	_ = unix.Close(fd)
	return ErrUnsupported
}

func (s *Stream) NodeID() uint32 { return 0 }

func (s *Stream) Stop() {}
