package device

import (
	"context"
	"time"

	"github.com/bnema/waydo/internal/logger"
	"github.com/bnema/waydo/internal/xkb"
	evdev "github.com/holoplot/go-evdev"
)

// Flusher pushes pending events to the compositor and waits for them.
type Flusher interface {
	Flush() error
}

// Typer types text on a keyboard one character at a time, wrapping shifted
// characters in Shift and flushing after each one.
type Typer struct {
	Keyboard *Keyboard
	Flusher  Flusher
	// KeyHold is how long each key stays down.
	KeyHold time.Duration
	// KeyDelay is the pause after each character.
	KeyDelay time.Duration

	sleep func(time.Duration)
}

func (t *Typer) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	if t.sleep != nil {
		t.sleep(d)
		return
	}
	time.Sleep(d)
}

// Type types s. Characters the layout cannot produce are skipped.
// It returns the number of characters typed.
func (t *Typer) Type(ctx context.Context, s string) (int, error) {
	typed := 0
	for _, r := range s {
		if err := ctx.Err(); err != nil {
			return typed, err
		}

		// a newline is the Return key, not Linefeed
		if r == '\n' {
			r = '\r'
		}

		code, shift, ok := t.Keyboard.CharToKeyEvent(r)
		if !ok {
			logger.Debugf("[TYPE] no key produces %q, skipped", r)
			continue
		}

		if err := t.stroke(ctx, code, shift); err != nil {
			return typed, err
		}
		typed++
		t.pause(t.KeyDelay)
	}
	return typed, nil
}

func (t *Typer) stroke(ctx context.Context, code uint32, shift bool) error {
	if shift {
		if err := t.Keyboard.Key(ctx, uint32(evdev.KEY_LEFTSHIFT), xkb.Down); err != nil {
			return err
		}
	}
	if err := t.Keyboard.Key(ctx, code, xkb.Down); err != nil {
		return err
	}
	t.pause(t.KeyHold)
	if err := t.Keyboard.Key(ctx, code, xkb.Up); err != nil {
		return err
	}
	if shift {
		if err := t.Keyboard.Key(ctx, uint32(evdev.KEY_LEFTSHIFT), xkb.Up); err != nil {
			return err
		}
	}
	if t.Flusher != nil {
		return t.Flusher.Flush()
	}
	return nil
}
