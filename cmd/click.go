package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/spf13/cobra"
)

const (
	clickDown = 0x40
	clickUp   = 0x80
)

var (
	clickRepeat    int
	clickNextDelay int
)

var clickCmd = &cobra.Command{
	Use:   "click <button>...",
	Short: "Click pointer buttons",
	Long: `Click pointer buttons using ydotool's encoding.

The low nibble selects the button (0 left, 1 right, 2 middle, 3 side, 4 extra,
5 forward, 6 back, 7 task), 0x40 presses it and 0x80 releases it:
  waydo click 0xC0      left click
  waydo click 0x41      press the right button
  waydo click 0x81      release the right button`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clicks := make([]click, 0, len(args))
		for _, arg := range args {
			c, err := parseClick(arg)
			if err != nil {
				return err
			}
			clicks = append(clicks, c)
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		d := openDevices(ctx)
		defer d.close(ctx)

		ptr, err := d.SelectPointer(ctx, usePortal(cmd))
		if err != nil {
			return err
		}

		for i := 0; i < clickRepeat; i++ {
			for _, c := range clicks {
				if c.down {
					if err := ptr.Button(ctx, c.button, true); err != nil {
						return err
					}
				}
				if c.up {
					if err := ptr.Button(ctx, c.button, false); err != nil {
						return err
					}
				}
				if err := d.Flush(); err != nil {
					return err
				}
				if !c.down && !c.up {
					if err := sleepCtx(ctx, time.Duration(clickNextDelay)*time.Millisecond); err != nil {
						return err
					}
				}
			}
		}
		return nil
	},
}

type click struct {
	button   uint32
	down, up bool
}

// parseClick decodes a ydotool button value, hexadecimal with 0x or decimal.
func parseClick(s string) (click, error) {
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 8)
	} else {
		v, err = strconv.ParseUint(s, 10, 8)
	}
	if err != nil {
		return click{}, fmt.Errorf("invalid button %q: %w", s, err)
	}

	return click{
		button: uint32(v&0x0f) | uint32(evdev.BTN_LEFT),
		down:   v&clickDown != 0,
		up:     v&clickUp != 0,
	}, nil
}

func init() {
	clickCmd.Flags().IntVarP(&clickRepeat, "repeat", "r", 1, "Repeat the sequence N times")
	clickCmd.Flags().IntVarP(&clickNextDelay, "next-delay", "D", 0, "Delay in ms after a button value that neither presses nor releases")
	rootCmd.AddCommand(clickCmd)
}
