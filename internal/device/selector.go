package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/waydo/internal/capture"
	"github.com/bnema/waydo/internal/logger"
	"github.com/bnema/waydo/internal/portal"
	"github.com/bnema/waydo/internal/xkb"
	"golang.org/x/sys/unix"
)

var errNativeSkipped = errors.New("native backend skipped: portal forced")

// Options configures a Selector.
type Options struct {
	// Layout is the keyboard layout for the keymap and character lookup.
	Layout string
	// Portal carries persist mode and restore token for new sessions.
	Portal portal.Options
	// NewTransport creates the capture transport for portal absolute motion.
	NewTransport func() capture.Transport
	// CaptureTimeout bounds capture negotiation; zero waits for the context.
	CaptureTimeout time.Duration
}

// Selector builds each device class once per process, native first and the
// portal as the only fallback. It is not safe for concurrent use.
type Selector struct {
	compositor Compositor
	openPortal PortalOpener
	opts       Options

	keyboard *Keyboard
	pointer  *Pointer
	sessions []PortalSession
}

// NewSelector returns a selector. compositor may be nil when no Wayland
// connection could be made; only the portal backend is available then.
func NewSelector(compositor Compositor, openPortal PortalOpener, opts Options) *Selector {
	if opts.Layout == "" {
		opts.Layout = "us"
	}
	return &Selector{
		compositor: compositor,
		openPortal: openPortal,
		opts:       opts,
	}
}

// SelectKeyboard returns the virtual keyboard, building it on first call.
func (s *Selector) SelectKeyboard(ctx context.Context, forcePortal bool) (*Keyboard, error) {
	if s.keyboard != nil {
		return s.keyboard, nil
	}

	km, err := xkb.NewKeymap(s.opts.Layout)
	if err != nil {
		return nil, err
	}

	nativeErr := errNativeSkipped
	if !forcePortal {
		kb, err := s.nativeKeyboard(km)
		if err == nil {
			logger.Debug("[DEVICE] using native virtual keyboard")
			s.keyboard = kb
			return kb, nil
		}
		logger.Debugf("[DEVICE] native keyboard unavailable: %v", err)
		nativeErr = err
	}

	session, err := s.portalSession(ctx, portal.DeviceKeyboard, false)
	if err != nil {
		return nil, fmt.Errorf("%w: keyboard: %w", ErrBackendUnavailable, errors.Join(nativeErr, err))
	}

	logger.Debug("[DEVICE] using portal virtual keyboard")
	s.keyboard = newPortalKeyboard(session, km)
	return s.keyboard, nil
}

func (s *Selector) nativeKeyboard(km *xkb.Keymap) (*Keyboard, error) {
	if s.compositor == nil {
		return nil, errors.New("no Wayland connection")
	}
	proxy, err := s.compositor.NewKeyboardProxy()
	if err != nil {
		return nil, err
	}
	kb, err := newNativeKeyboard(proxy, km)
	if err != nil {
		_ = proxy.Destroy()
		return nil, err
	}
	return kb, nil
}

// SelectPointer returns the virtual pointer, building it on first call. A
// portal pointer asks for screen-cast sources too, since they cannot be
// added once the session has started.
func (s *Selector) SelectPointer(ctx context.Context, forcePortal bool) (*Pointer, error) {
	if s.pointer != nil {
		return s.pointer, nil
	}

	nativeErr := errNativeSkipped
	if !forcePortal {
		ptr, err := s.nativePointer()
		if err == nil {
			logger.Debug("[DEVICE] using native virtual pointer")
			s.pointer = ptr
			return ptr, nil
		}
		logger.Debugf("[DEVICE] native pointer unavailable: %v", err)
		nativeErr = err
	}

	session, err := s.portalSession(ctx, portal.DevicePointer, true)
	if err != nil {
		return nil, fmt.Errorf("%w: pointer: %w", ErrBackendUnavailable, errors.Join(nativeErr, err))
	}

	var extent func() (uint32, uint32)
	if s.compositor != nil {
		extent = s.compositor.BoundingExtent
	}
	newTransport := s.opts.NewTransport
	if newTransport == nil {
		newTransport = func() capture.Transport { return unavailableTransport{} }
	}
	loc := capture.NewLocator(session, newTransport, extent, s.opts.CaptureTimeout)

	logger.Debug("[DEVICE] using portal virtual pointer")
	s.pointer = newPortalPointer(session, loc)
	return s.pointer, nil
}

func (s *Selector) nativePointer() (*Pointer, error) {
	if s.compositor == nil {
		return nil, errors.New("no Wayland connection")
	}
	proxy, err := s.compositor.NewPointerProxy()
	if err != nil {
		return nil, err
	}
	return newNativePointer(proxy, s.compositor.BoundingExtent), nil
}

// portalSession reuses a session that already drives the device class, or
// opens one asking for that class only.
func (s *Selector) portalSession(ctx context.Context, device portal.DeviceType, screenCast bool) (PortalSession, error) {
	for _, session := range s.sessions {
		if session.Has(device) && (!screenCast || session.ScreenCast()) {
			return session, nil
		}
	}

	if s.openPortal == nil {
		return nil, errors.New("portal backend not configured")
	}

	opts := s.opts.Portal
	opts.Devices = device
	opts.ScreenCast = screenCast

	session, err := s.openPortal(ctx, opts)
	if err != nil {
		return nil, err
	}
	// Start may grant less than was selected
	if !session.Has(device) {
		session.Close(ctx)
		return nil, fmt.Errorf("%w: %s not granted", portal.ErrNoSupportedDevices, device)
	}
	s.sessions = append(s.sessions, session)
	return session, nil
}

// RestoreToken returns the newest restore token handed out by a portal
// session, if any.
func (s *Selector) RestoreToken() string {
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if token := s.sessions[i].RestoreToken(); token != "" {
			return token
		}
	}
	return ""
}

// Flush sends pending native requests and waits for the compositor to
// process them. It does nothing when no native device is in use.
func (s *Selector) Flush() error {
	native := (s.keyboard != nil && s.keyboard.Backend() == BackendNative) ||
		(s.pointer != nil && s.pointer.Backend() == BackendNative)
	if !native {
		return nil
	}
	return s.compositor.Roundtrip()
}

// Close releases every device and closes the portal sessions.
func (s *Selector) Close(ctx context.Context) error {
	var errs []error
	if s.keyboard != nil {
		errs = append(errs, s.keyboard.Close())
	}
	if s.pointer != nil {
		errs = append(errs, s.pointer.Close())
	}
	if s.compositor != nil && (s.keyboard != nil || s.pointer != nil) {
		if err := s.compositor.Roundtrip(); err != nil {
			logger.Debugf("[DEVICE] roundtrip on close failed: %v", err)
		}
	}
	for _, session := range s.sessions {
		session.Close(ctx)
	}
	s.keyboard, s.pointer, s.sessions = nil, nil, nil
	return errors.Join(errs...)
}

// unavailableTransport stands in when no capture transport was configured.
type unavailableTransport struct{}

func (unavailableTransport) Run(fd int, _, _ uint32, _ func()) error {
	_ = unix.Close(fd)
	return errors.New("no capture transport configured")
}

func (unavailableTransport) NodeID() uint32 { return 0 }

func (unavailableTransport) Stop() {}
