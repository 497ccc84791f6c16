//go:build !linux && !darwin

package tty

import (
	"fmt"
	"os"
	"runtime"
)

// Terminal switches a terminal between canonical and raw mode.
type Terminal struct{}

// Open always fails on this platform.
func Open(input *os.File) (*Terminal, error) {
	return nil, fmt.Errorf("tty: raw terminal not supported on %s", runtime.GOOS)
}

func (t *Terminal) RawMode() {}

func (t *Terminal) CanonicalMode() {}
