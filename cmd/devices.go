package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/waydo/internal/capture"
	"github.com/bnema/waydo/internal/config"
	"github.com/bnema/waydo/internal/device"
	"github.com/bnema/waydo/internal/logger"
	"github.com/bnema/waydo/internal/pipewire"
	"github.com/bnema/waydo/internal/portal"
	"github.com/bnema/waydo/internal/ui"
	"github.com/bnema/waydo/internal/wayland"
	"github.com/spf13/cobra"
)

// devices ties the compositor connection, the portal bus and the selector
// together for one command run.
type devices struct {
	*device.Selector

	conn *wayland.Conn
	bus  *portal.DBusBus
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// openDevices connects to the compositor if it can. A missing compositor
// connection is not fatal; the portal may still serve.
func openDevices(ctx context.Context) *devices {
	cfg := config.Get()
	d := &devices{}

	var compositor device.Compositor
	conn, err := wayland.Connect(ctx)
	if err != nil {
		logger.Debugf("[CMD] no compositor connection: %v", err)
	} else {
		d.conn = conn
		compositor = device.WaylandCompositor{Conn: conn}
	}

	opts := device.Options{
		Layout:         cfg.Keyboard.Layout,
		NewTransport:   func() capture.Transport { return pipewire.NewStream() },
		CaptureTimeout: time.Duration(cfg.Capture.NegotiationTimeout) * time.Second,
	}
	if cfg.Portal.Persist {
		opts.Portal.PersistMode = portal.PersistModePermanent
		opts.Portal.RestoreToken = cfg.Portal.RestoreToken
	}

	d.Selector = device.NewSelector(compositor, d.openPortal, opts)
	return d
}

// openPortal negotiates a session, with a spinner while the consent dialog
// is up.
func (d *devices) openPortal(ctx context.Context, opts portal.Options) (device.PortalSession, error) {
	if d.bus == nil {
		bus, err := portal.ConnectSessionBus()
		if err != nil {
			return nil, err
		}
		d.bus = bus
	}

	session, err := ui.Wait(ctx, "Waiting for remote desktop permission...", func(ctx context.Context) (*portal.Session, error) {
		return portal.Open(ctx, d.bus, opts)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// close releases everything and stores a new restore token.
func (d *devices) close(ctx context.Context) {
	if token := d.RestoreToken(); token != "" && config.Get().Portal.Persist {
		if err := config.SaveRestoreToken(token); err != nil {
			logger.Warnf("failed to save portal restore token: %v", err)
		}
	}

	if err := d.Close(ctx); err != nil {
		logger.Debugf("[CMD] closing devices: %v", err)
	}
	if d.conn != nil {
		d.conn.Close()
	}
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			logger.Debugf("[CMD] closing session bus: %v", err)
		}
	}
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
