package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/waydo/internal/logger"
	"github.com/godbus/dbus/v5"
)

const (
	portalDest   = "org.freedesktop.portal.Desktop"
	portalPath   = "/org/freedesktop/portal/desktop"
	requestIface = "org.freedesktop.portal.Request"
	sessionIface = "org.freedesktop.portal.Session"
	propsGet     = "org.freedesktop.DBus.Properties.Get"
)

// Bus is the part of the session bus a portal session talks to.
type Bus interface {
	// Property reads a property of the portal object.
	Property(ctx context.Context, iface, name string) (dbus.Variant, error)
	// Request calls a method that returns a Request handle and waits for the
	// handle's Response signal. token must be the handle_token passed in args.
	Request(ctx context.Context, method, token string, args ...interface{}) (uint32, map[string]dbus.Variant, error)
	// Call calls a method that answers directly.
	Call(ctx context.Context, method string, args ...interface{}) error
	// CallFD calls a method that answers with a single file descriptor.
	CallFD(ctx context.Context, method string, args ...interface{}) (int, error)
	// CloseSession closes a portal session object.
	CloseSession(ctx context.Context, session dbus.ObjectPath) error
}

// DBusBus implements Bus over a godbus connection.
type DBusBus struct {
	conn   *dbus.Conn
	portal dbus.BusObject
	owned  bool
}

// ConnectSessionBus opens a private session bus connection for the portal.
func ConnectSessionBus() (*DBusBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	b := NewDBusBus(conn)
	b.owned = true
	return b, nil
}

// NewDBusBus wraps an existing connection. The caller keeps ownership.
func NewDBusBus(conn *dbus.Conn) *DBusBus {
	return &DBusBus{
		conn:   conn,
		portal: conn.Object(portalDest, portalPath),
	}
}

// Close closes the connection if ConnectSessionBus opened it.
func (b *DBusBus) Close() error {
	if !b.owned {
		return nil
	}
	return b.conn.Close()
}

func (b *DBusBus) Property(ctx context.Context, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	if err := b.portal.CallWithContext(ctx, propsGet, 0, iface, name).Store(&v); err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s.%s: %w", iface, name, err)
	}
	return v, nil
}

// requestPath is where the portal will create the Request object for token.
func (b *DBusBus) requestPath(token string) dbus.ObjectPath {
	names := b.conn.Names()
	sender := ""
	if len(names) > 0 {
		sender = strings.ReplaceAll(strings.TrimPrefix(names[0], ":"), ".", "_")
	}
	return dbus.ObjectPath("/org/freedesktop/portal/desktop/request/" + sender + "/" + token)
}

func (b *DBusBus) Request(ctx context.Context, method, token string, args ...interface{}) (uint32, map[string]dbus.Variant, error) {
	path := b.requestPath(token)

	// Subscribe before calling so a fast Response is not lost
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	}
	if err := b.conn.AddMatchSignal(match...); err != nil {
		return 0, nil, fmt.Errorf("failed to subscribe to %s: %w", path, err)
	}
	defer func() {
		if err := b.conn.RemoveMatchSignal(match...); err != nil {
			logger.Debugf("[PORTAL] failed to remove signal match: %v", err)
		}
	}()

	signals := make(chan *dbus.Signal, 8)
	b.conn.Signal(signals)
	defer b.conn.RemoveSignal(signals)

	var handle dbus.ObjectPath
	if err := b.portal.CallWithContext(ctx, method, 0, args...).Store(&handle); err != nil {
		return 0, nil, fmt.Errorf("%s failed: %w", method, err)
	}
	if handle != path {
		// portals older than 0.9 ignore handle_token
		logger.Debugf("[PORTAL] request handle %s differs from expected %s", handle, path)
	}

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return 0, nil, errors.New("session bus connection closed")
			}
			if sig.Name != requestIface+".Response" || (sig.Path != path && sig.Path != handle) {
				continue
			}
			return decodeResponse(sig.Body)
		case <-ctx.Done():
			if err := b.conn.Object(portalDest, handle).Call(requestIface+".Close", 0).Err; err != nil {
				logger.Debugf("[PORTAL] failed to close request %s: %v", handle, err)
			}
			return 0, nil, ctx.Err()
		}
	}
}

func decodeResponse(body []interface{}) (uint32, map[string]dbus.Variant, error) {
	if len(body) != 2 {
		return 0, nil, fmt.Errorf("malformed Response signal: %d values", len(body))
	}
	code, ok := body[0].(uint32)
	if !ok {
		return 0, nil, fmt.Errorf("malformed Response signal: code is %T", body[0])
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, nil, fmt.Errorf("malformed Response signal: results are %T", body[1])
	}
	return code, results, nil
}

func (b *DBusBus) Call(ctx context.Context, method string, args ...interface{}) error {
	if err := b.portal.CallWithContext(ctx, method, 0, args...).Err; err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	return nil
}

func (b *DBusBus) CallFD(ctx context.Context, method string, args ...interface{}) (int, error) {
	var fd dbus.UnixFD
	if err := b.portal.CallWithContext(ctx, method, 0, args...).Store(&fd); err != nil {
		return -1, fmt.Errorf("%s failed: %w", method, err)
	}
	return int(fd), nil
}

func (b *DBusBus) CloseSession(ctx context.Context, session dbus.ObjectPath) error {
	if err := b.conn.Object(portalDest, session).CallWithContext(ctx, sessionIface+".Close", 0).Err; err != nil {
		return fmt.Errorf("failed to close session %s: %w", session, err)
	}
	return nil
}
