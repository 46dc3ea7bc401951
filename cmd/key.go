package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/waydo/internal/xkb"
	"github.com/spf13/cobra"
)

var keyDelay int

var keyCmd = &cobra.Command{
	Use:   "key <code:state>...",
	Short: "Press and release keys by evdev code",
	Long: `Send raw key transitions. Each argument is an evdev key code and a state,
1 for press and 0 for release:
  waydo key 29:1 46:1 46:0 29:0     Ctrl+C`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var presses []keyPress
		for _, arg := range args {
			// a quoted "29:1 46:1" counts as several presses
			for _, field := range strings.Fields(arg) {
				kp, err := parseKeyPress(field)
				if err != nil {
					return err
				}
				presses = append(presses, kp)
			}
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		d := openDevices(ctx)
		defer d.close(ctx)

		kb, err := d.SelectKeyboard(ctx, usePortal(cmd))
		if err != nil {
			return err
		}

		for _, kp := range presses {
			if err := kb.Key(ctx, kp.code, kp.dir); err != nil {
				return err
			}
			if err := d.Flush(); err != nil {
				return err
			}
			if err := sleepCtx(ctx, time.Duration(keyDelay)*time.Millisecond); err != nil {
				return err
			}
		}
		return nil
	},
}

type keyPress struct {
	code uint32
	dir  xkb.Direction
}

func parseKeyPress(s string) (keyPress, error) {
	codeStr, stateStr, ok := strings.Cut(s, ":")
	if !ok {
		return keyPress{}, fmt.Errorf("invalid key %q: expected <code>:<state>", s)
	}

	code, err := strconv.ParseUint(codeStr, 10, 32)
	if err != nil {
		return keyPress{}, fmt.Errorf("invalid keycode %q", codeStr)
	}
	if code > xkb.MaxKeycode-xkb.Offset {
		return keyPress{}, fmt.Errorf("keycode %d out of range", code)
	}

	var dir xkb.Direction
	switch stateStr {
	case "0":
		dir = xkb.Up
	case "1":
		dir = xkb.Down
	default:
		return keyPress{}, fmt.Errorf("key state must be 0 or 1, got %q", stateStr)
	}

	return keyPress{code: uint32(code), dir: dir}, nil
}

func init() {
	keyCmd.Flags().IntVarP(&keyDelay, "key-delay", "d", 0, "Delay in ms after each key event")
	rootCmd.AddCommand(keyCmd)
}
