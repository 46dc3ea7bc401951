// Package capture locates a screen-cast stream id for portal absolute pointer
// motion. The capture loop runs on its own goroutine and hands readiness back
// through a one-shot channel.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/waydo/internal/logger"
	"github.com/bnema/waydo/internal/portal"
)

// ErrCaptureNegotiationFailed means the stream never reached the streaming state.
var ErrCaptureNegotiationFailed = errors.New("capture stream negotiation failed")

// Transport runs one capture stream. Run owns fd, blocks until Stop or a
// stream error and calls onStreaming from the loop whenever the stream starts
// streaming. maxWidth and maxHeight bound the declared video size; zero
// leaves it unbounded.
type Transport interface {
	Run(fd int, maxWidth, maxHeight uint32, onStreaming func()) error
	NodeID() uint32
	Stop()
}

// Session is the part of a portal session the locator needs.
type Session interface {
	OpenPipeWireRemote(ctx context.Context) (int, error)
	Streams() []portal.Stream
}

// Stream is a negotiated capture stream.
type Stream struct {
	ID     uint32
	Width  uint32
	Height uint32
}

// Locator negotiates the capture stream once and keeps it running so the id
// stays valid for later calls.
type Locator struct {
	session      Session
	newTransport func() Transport
	extent       func() (uint32, uint32)
	timeout      time.Duration

	mu        sync.Mutex
	stream    *Stream
	transport Transport
	done      <-chan error
}

// NewLocator returns a locator. extent reports the size the stream must
// cover; it may be nil, in which case the portal stream layout is used.
// A zero timeout waits for the context only.
func NewLocator(session Session, newTransport func() Transport, extent func() (uint32, uint32), timeout time.Duration) *Locator {
	return &Locator{
		session:      session,
		newTransport: newTransport,
		extent:       extent,
		timeout:      timeout,
	}
}

// Locate returns the stream, negotiating it on first use.
func (l *Locator) Locate(ctx context.Context) (Stream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream != nil {
		return *l.stream, nil
	}

	width, height := l.bounds()

	fd, err := l.session.OpenPipeWireRemote(ctx)
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %w", ErrCaptureNegotiationFailed, err)
	}

	transport := l.newTransport()
	ready := make(chan struct{})
	var once sync.Once
	signal := func() {
		once.Do(func() { close(ready) })
	}

	errc := make(chan error, 1)
	go func() {
		errc <- transport.Run(fd, width, height, signal)
	}()

	var timeout <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ready:
	case err := <-errc:
		if err == nil {
			err = errors.New("capture loop exited before streaming")
		}
		return Stream{}, fmt.Errorf("%w: %w", ErrCaptureNegotiationFailed, err)
	case <-ctx.Done():
		l.abort(transport, errc)
		return Stream{}, fmt.Errorf("%w: %w", ErrCaptureNegotiationFailed, ctx.Err())
	case <-timeout:
		l.abort(transport, errc)
		return Stream{}, fmt.Errorf("%w: no streaming state after %s", ErrCaptureNegotiationFailed, l.timeout)
	}

	id := transport.NodeID()
	if streams := l.session.Streams(); len(streams) > 0 {
		id = streams[0].NodeID
	}

	l.stream = &Stream{ID: id, Width: width, Height: height}
	l.transport = transport
	l.done = errc
	logger.Debugf("[CAPTURE] stream %d streaming, envelope %dx%d", id, width, height)
	return *l.stream, nil
}

// abort stops a transport and waits for its loop to exit.
func (l *Locator) abort(t Transport, errc <-chan error) {
	t.Stop()
	if err := <-errc; err != nil {
		logger.Debugf("[CAPTURE] capture loop: %v", err)
	}
}

func (l *Locator) bounds() (uint32, uint32) {
	if l.extent != nil {
		if w, h := l.extent(); w > 0 && h > 0 {
			return w, h
		}
	}

	var w, h uint32
	for _, s := range l.session.Streams() {
		if right := s.X + s.Width; right > 0 && uint32(right) > w {
			w = uint32(right)
		}
		if bottom := s.Y + s.Height; bottom > 0 && uint32(bottom) > h {
			h = uint32(bottom)
		}
	}
	return w, h
}

// Close stops the capture loop if one is running.
func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.transport == nil {
		return nil
	}
	l.transport.Stop()
	err := <-l.done
	l.transport = nil
	l.stream = nil
	return err
}
