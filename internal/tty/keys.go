package tty

import (
	"bufio"
	"fmt"
	"unicode"
)

// control codes and escape sequences sent by terminals in raw mode
const (
	keyCtrlC     = 0x03
	keyTab       = 0x09
	keyLineFeed  = 0x0a
	keyReturn    = 0x0d
	keyEsc       = 0x1b
	keyBackspace = 0x7f
	escCursor    = '['
)

// key names. the cursor keys, Enter and Tab use the names ebiten gives
// them so that the same keymap works for both front ends
const (
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyEnter      = "Enter"
	KeyTab        = "Tab"
	KeyEscape     = "Escape"
	KeyBackspace  = "Backspace"
	KeyCtrlC      = "CtrlC"
)

// ReadKey reads one key press. Printable keys are returned as the character
// itself.
func ReadKey(r *bufio.Reader) (string, error) {
	c, _, err := r.ReadRune()
	if err != nil {
		return "", err
	}

	switch c {
	case keyCtrlC:
		return KeyCtrlC, nil
	case keyTab:
		return KeyTab, nil
	case keyReturn, keyLineFeed:
		return KeyEnter, nil
	case keyBackspace:
		return KeyBackspace, nil
	case keyEsc:
		// a lone escape is the Escape key. anything already buffered behind
		// it is part of a sequence
		if r.Buffered() == 0 {
			return KeyEscape, nil
		}
		c, _, err := r.ReadRune()
		if err != nil {
			return "", err
		}
		if c != escCursor {
			return KeyEscape, nil
		}
		c, _, err = r.ReadRune()
		if err != nil {
			return "", err
		}
		switch c {
		case 'A':
			return KeyArrowUp, nil
		case 'B':
			return KeyArrowDown, nil
		case 'C':
			return KeyArrowRight, nil
		case 'D':
			return KeyArrowLeft, nil
		}
		return fmt.Sprintf("Esc[%c", c), nil
	}

	if unicode.IsPrint(c) {
		return string(c), nil
	}
	return fmt.Sprintf("0x%02x", c), nil
}
