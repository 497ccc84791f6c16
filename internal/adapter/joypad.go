package adapter

import "strings"

// Button identifies one of the eight Game Boy inputs.
type Button int

// List of valid Button values.
const (
	Up Button = iota
	Down
	Left
	Right
	A
	B
	Start
	Select
	NumButtons
)

var buttonNames = [NumButtons]string{"Up", "Down", "Left", "Right", "A", "B", "Start", "Select"}

func (b Button) String() string {
	if b < 0 || b >= NumButtons {
		return "Unknown"
	}
	return buttonNames[b]
}

// ParseButton accepts button names in any case.
func ParseButton(s string) (Button, bool) {
	for i, n := range buttonNames {
		if strings.EqualFold(n, s) {
			return Button(i), true
		}
	}
	return 0, false
}

// Joypad is the complete state of the joypad. It is always sent to the
// runtime whole.
type Joypad struct {
	Up, Down, Left, Right bool
	A, B, Start, Select   bool
}

// With returns a copy of the joypad with a single button changed.
func (j Joypad) With(b Button, pressed bool) Joypad {
	switch b {
	case Up:
		j.Up = pressed
	case Down:
		j.Down = pressed
	case Left:
		j.Left = pressed
	case Right:
		j.Right = pressed
	case A:
		j.A = pressed
	case B:
		j.B = pressed
	case Start:
		j.Start = pressed
	case Select:
		j.Select = pressed
	}
	return j
}

// Pressed reports the state of a single button.
func (j Joypad) Pressed(b Button) bool {
	switch b {
	case Up:
		return j.Up
	case Down:
		return j.Down
	case Left:
		return j.Left
	case Right:
		return j.Right
	case A:
		return j.A
	case B:
		return j.B
	case Start:
		return j.Start
	case Select:
		return j.Select
	}
	return false
}

func (j Joypad) String() string {
	var s strings.Builder
	for b := Up; b < NumButtons; b++ {
		if j.Pressed(b) {
			if s.Len() > 0 {
				s.WriteByte('+')
			}
			s.WriteString(b.String())
		}
	}
	if s.Len() == 0 {
		return "-"
	}
	return s.String()
}
