//go:build linux || darwin

package tty

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pkg/term/termios"
)

// Terminal switches a terminal between canonical and raw mode.
type Terminal struct {
	input *os.File

	canAttr unix.Termios
	rawAttr unix.Termios
}

// Open prepares the terminal attached to input. The terminal is not changed
// until RawMode is called.
func Open(input *os.File) (*Terminal, error) {
	if input == nil {
		return nil, fmt.Errorf("tty: terminal requires an input file")
	}
	t := &Terminal{input: input}
	termios.Tcgetattr(t.input.Fd(), &t.canAttr)
	t.rawAttr = t.canAttr
	termios.Cfmakeraw(&t.rawAttr)
	return t, nil
}

// RawMode delivers every key press immediately and without echo.
func (t *Terminal) RawMode() {
	termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.rawAttr)
}

// CanonicalMode restores the terminal to the mode it was in when opened.
func (t *Terminal) CanonicalMode() {
	termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.canAttr)
}
