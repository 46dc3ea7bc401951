package main

import (
	"fmt"
	"os"

	"github.com/bnema/waydo/cmd"
	"github.com/bnema/waydo/internal/ui"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err.Error()))
		os.Exit(1)
	}
}
