package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	moveX, moveY float64
	moveAbsolute bool
	moveWheel    bool
)

var mousemoveCmd = &cobra.Command{
	Use:   "mousemove",
	Short: "Move the pointer or the wheel",
	Long: `Move the pointer relatively, to an absolute position, or scroll.

Absolute positions are pixels in the layout of all outputs; pointer
acceleration should be disabled for exact placement.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if moveWheel && moveAbsolute {
			return fmt.Errorf("--absolute does not apply to --wheel")
		}
		if moveAbsolute && (moveX < 0 || moveY < 0) {
			return fmt.Errorf("absolute position must not be negative: %g,%g", moveX, moveY)
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		d := openDevices(ctx)
		defer d.close(ctx)

		ptr, err := d.SelectPointer(ctx, usePortal(cmd))
		if err != nil {
			return err
		}

		switch {
		case moveWheel:
			err = ptr.Scroll(ctx, moveX, moveY)
		case moveAbsolute:
			err = ptr.MotionAbsolute(ctx, uint32(moveX), uint32(moveY))
		default:
			err = ptr.Motion(ctx, moveX, moveY)
		}
		if err != nil {
			return err
		}
		return d.Flush()
	},
}

func init() {
	mousemoveCmd.Flags().Float64VarP(&moveX, "xpos", "x", 0, "X position or delta")
	mousemoveCmd.Flags().Float64VarP(&moveY, "ypos", "y", 0, "Y position or delta")
	mousemoveCmd.Flags().BoolVarP(&moveAbsolute, "absolute", "a", false, "Use an absolute position")
	mousemoveCmd.Flags().BoolVarP(&moveWheel, "wheel", "w", false, "Scroll the wheel instead of moving")
	rootCmd.AddCommand(mousemoveCmd)
}
