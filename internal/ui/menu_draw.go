package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const romMenuBaseY = 40

func (a *App) drawMainMenu(screen *ebiten.Image) {
	lines := []string{
		"Menu:",
		fmt.Sprintf("  Save state (slot %d)", a.currentSlot+1),
		fmt.Sprintf("  Load state (slot %d)", a.currentSlot+1),
		"  Select Slot",
		"  Switch ROM",
		"  Keybindings",
		"  Close",
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
	}
	// quick hints, keep on-screen
	hint := fmt.Sprintf("F5: Save  F9: Load  %s: Slot  F11: Fullscreen  Backspace: Back", a.slotKeyRange())
	ebitenutil.DebugPrintAt(screen, a.truncateText(hint, a.maxCharsForText(10)), 10, 10+len(lines)*14)
}

func (a *App) drawSlotMenu(screen *ebiten.Image) {
	used := make(map[int]string)
	if st := a.opts.Session.Status(); a.opts.Slots != nil && st.Cartridge != nil {
		if slots, err := a.opts.Slots.List(st.Cartridge.FullPath); err == nil {
			for _, s := range slots {
				used[s.Slot] = s.Timestamp.Local().Format("2006-01-02 15:04")
			}
		}
	}

	lines := []string{"Select Slot:"}
	for i := 0; i < a.cfg.Slots; i++ {
		state := "[empty]"
		if ts, ok := used[i]; ok {
			state = ts
		}
		lines = append(lines, fmt.Sprintf("  %d %s", i+1, state))
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
	}
}

func (a *App) drawRomMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, a.truncateText("Select ROM (Enter to load, Backspace/Esc to return)", a.maxCharsForText(10)), 10, 10)
	// show configured ROMs directory
	ebitenutil.DebugPrintAt(screen, a.truncateText("Dir: "+a.cfg.ROMsDir, a.maxCharsForText(10)), 10, 24)
	if len(a.romList) == 0 {
		ebitenutil.DebugPrintAt(screen, "No ROMs found", 10, romMenuBaseY)
		return
	}
	maxRows := a.romMenuRows()
	end := min(a.romOff+maxRows, len(a.romList))
	maxChars := a.maxCharsForText(10) - 2 // account for "> " prefix
	if maxChars < 1 {
		maxChars = 1
	}
	for i, s := range a.romList[a.romOff:end] {
		prefix := "  "
		if a.romOff+i == a.romSel {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+a.truncateText(s.DisplayName(), maxChars), 10, romMenuBaseY+i*14)
	}
	// scroll indicators
	if a.romOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, romMenuBaseY)
	}
	if end < len(a.romList) {
		ebitenutil.DebugPrintAt(screen, "v", 2, romMenuBaseY+(maxRows-1)*14)
	}
}

// keyRows lists the joypad bindings followed by the fixed hotkeys.
func (a *App) keyRows() []string {
	byButton := make(map[string][]string)
	for key, button := range a.opts.Keymap.Bindings() {
		byButton[button] = append(byButton[button], key)
	}
	buttons := make([]string, 0, len(byButton))
	for b := range byButton {
		buttons = append(buttons, b)
	}
	sort.Strings(buttons)

	var rows []string
	for _, b := range buttons {
		keys := byButton[b]
		sort.Strings(keys)
		rows = append(rows, fmt.Sprintf("%s: %s", strings.Join(keys, ", "), b))
	}
	return append(rows,
		"P: Play/Pause",
		"Tab: Fast-forward",
		"R: Reset",
		"F12: Screenshot",
		"Esc: Open/Close Menu",
	)
}

func (a *App) drawKeysMenu(screen *ebiten.Image) {
	title := "Keybindings (Up/Down to scroll, Backspace/Esc to return)"
	cursorY := 10
	for _, w := range a.wrapText(title, a.maxCharsForText(10)) {
		ebitenutil.DebugPrintAt(screen, w, 10, cursorY)
		cursorY += 14
	}
	rows := a.keyRows()
	baseY := cursorY + 4
	maxRows := (a.curH - baseY) / 14
	if maxRows < 1 {
		maxRows = 1
	}
	if a.keysOff > len(rows)-1 {
		a.keysOff = len(rows) - 1
	}
	end := min(a.keysOff+maxRows, len(rows))
	maxChars := a.maxCharsForText(10)
	for i := a.keysOff; i < end; i++ {
		ebitenutil.DebugPrintAt(screen, a.truncateText(rows[i], maxChars), 10, baseY+(i-a.keysOff)*14)
	}
	// scroll indicators
	if a.keysOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(rows) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*14)
	}
}
