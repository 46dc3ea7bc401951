package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bnema/waydo/internal/config"
	"github.com/bnema/waydo/internal/device"
	"github.com/bnema/waydo/internal/logger"
	"github.com/spf13/cobra"
)

var (
	typeKeyDelay  int
	typeKeyHold   int
	typeNextDelay int
	typeFile      string
	typeEscape    int
)

var typeCmd = &cobra.Command{
	Use:   "type [string]...",
	Short: "Type text through the virtual keyboard",
	Long: `Type each argument as text. Characters the keyboard layout cannot produce
are skipped. With --file the text is read from a file, or from stdin for "-".

Backslash escapes (\n, \t, \r, \b, \e, \\) are expanded in arguments. --escape 0
turns that off, --escape 1 expands them in file input too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if typeEscape < 0 || typeEscape > 1 {
			return fmt.Errorf("--escape must be 0 or 1, got %d", typeEscape)
		}
		escapeArgs := typeEscape == 1
		// file input is taken literally unless escapes are asked for
		escapeFile := escapeArgs && cmd.Flags().Changed("escape")

		texts := make([]string, 0, len(args)+1)
		for _, arg := range args {
			if escapeArgs {
				arg = unescape(arg)
			}
			texts = append(texts, arg)
		}
		if typeFile != "" {
			text, err := readTypeInput(cmd.InOrStdin(), typeFile)
			if err != nil {
				return err
			}
			if escapeFile {
				text = unescape(text)
			}
			texts = append(texts, text)
		}
		if len(texts) == 0 {
			return fmt.Errorf("nothing to type: pass a string or --file")
		}

		cfg := config.Get()
		hold := cfg.Keyboard.KeyHold
		if cmd.Flags().Changed("key-hold") {
			hold = typeKeyHold
		}
		delay := cfg.Keyboard.KeyDelay
		if cmd.Flags().Changed("key-delay") {
			delay = typeKeyDelay
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		d := openDevices(ctx)
		defer d.close(ctx)

		kb, err := d.SelectKeyboard(ctx, usePortal(cmd))
		if err != nil {
			return err
		}
		logger.Debugf("[CMD] typing with %s keyboard, layout %s", kb.Backend(), kb.Layout())

		typer := &device.Typer{
			Keyboard: kb,
			Flusher:  d,
			KeyHold:  time.Duration(hold) * time.Millisecond,
			KeyDelay: time.Duration(delay) * time.Millisecond,
		}

		for i, text := range texts {
			n, err := typer.Type(ctx, text)
			if err != nil {
				return err
			}
			if skipped := len([]rune(text)) - n; skipped > 0 {
				logger.Warnf("skipped %d character(s) not on the %s layout", skipped, kb.Layout())
			}
			if i < len(texts)-1 {
				if err := sleepCtx(ctx, time.Duration(typeNextDelay)*time.Millisecond); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

// readTypeInput reads the whole of path, or of stdin for "-", keeping line breaks.
func readTypeInput(stdin io.Reader, path string) (string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var b strings.Builder
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		b.WriteString(line)
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
}

// unescape expands backslash escapes. Unknown sequences are kept as typed.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i == len(runes)-1 {
			b.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		case 'b':
			b.WriteRune('\b')
		case 'e':
			b.WriteRune(0x1b)
		case '\\':
			b.WriteRune('\\')
		default:
			b.WriteRune('\\')
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

func init() {
	typeCmd.Flags().IntVarP(&typeKeyDelay, "key-delay", "d", 20, "Delay in ms between characters (default from config)")
	typeCmd.Flags().IntVarP(&typeKeyHold, "key-hold", "H", 20, "Time in ms each key is held (default from config)")
	typeCmd.Flags().IntVarP(&typeNextDelay, "next-delay", "D", 0, "Delay in ms between strings")
	// -f belongs to the global --force-portal
	typeCmd.Flags().StringVarP(&typeFile, "file", "F", "", `Read text from a file, "-" for stdin`)
	typeCmd.Flags().IntVarP(&typeEscape, "escape", "e", 1, "Expand backslash escapes: 1 enable, 0 disable")
	rootCmd.AddCommand(typeCmd)
}
