package ui

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const mainMenuItems = 6

func (a *App) updateMainMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < mainMenuItems-1 {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		switch a.menuIdx {
		case 0:
			a.saveSlotWithToast()
		case 1:
			a.loadSlotWithToast()
		case 2:
			a.menuMode = "slot"
			a.menuIdx = a.currentSlot
		case 3:
			a.openRomMenu()
		case 4:
			a.menuMode = "keys"
			a.keysOff = 0
		case 5:
			a.showMenu = false
		}
	}
	// Back with Backspace
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.showMenu = false
	}
}

func (a *App) updateSlotMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < a.cfg.Slots-1 {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.currentSlot = a.menuIdx
		a.toast(fmt.Sprintf("Slot set to %d", a.currentSlot+1))
		a.menuMode = "main"
		a.menuIdx = 2
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.menuMode = "main"
		a.menuIdx = 2
	}
}

// openRomMenu rescans the ROM directory. A failed scan still lists whatever
// was found last time.
func (a *App) openRomMenu() {
	list, err := a.opts.Catalog.Rescan(a.ctx)
	if err != nil {
		a.toast("ROM scan failed: " + err.Error())
	}
	a.romList = list
	a.romSel = 0
	a.romOff = 0
	a.menuMode = "rom"
}

func (a *App) romMenuRows() int {
	maxRows := (a.curH - romMenuBaseY) / 14
	if maxRows < 1 {
		maxRows = 1
	}
	return maxRows
}

func (a *App) updateRomMenu() {
	n := len(a.romList)
	if n == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			a.menuMode = "main"
		}
		return
	}
	// compute window to maintain selection visibility
	maxRows := a.romMenuRows()
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.romSel > 0 {
		a.romSel--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.romSel < n-1 {
		a.romSel++
	}
	if a.romSel < a.romOff {
		a.romOff = a.romSel
	}
	if a.romSel >= a.romOff+maxRows {
		a.romOff = a.romSel - maxRows + 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		path := a.romList[a.romSel].FullPath
		if a.opts.Load == nil {
			a.toast("ROM loading unavailable")
		} else if err := a.opts.Load(a.ctx, path); err != nil {
			a.toast("ROM load failed: " + err.Error())
		} else {
			a.showMenu = false
		}
		a.menuMode = "main"
		a.menuIdx = 0
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.menuMode = "main"
	}
}

func (a *App) updateKeysMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.keysOff > 0 {
		a.keysOff--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		a.keysOff++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.menuMode = "main"
	}
}
