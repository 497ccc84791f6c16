package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/catalog"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/input"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/saves"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/session"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/snapshot"
)

// Stepper is implemented by runtimes that only produce a frame when asked
// to. The window steps them once per tick.
type Stepper interface {
	StepFrame() bool
}

// Loader mounts the cartridge at path and starts it.
type Loader func(ctx context.Context, path string) error

// Options are the collaborators of the window.
type Options struct {
	Session *session.Manager
	Router  *input.Router
	Keymap  input.Keymap
	Frames  *adapter.FrameBuffer
	Catalog *catalog.Catalog
	Slots   *saves.Store // nil disables save slots
	Load    Loader
	Stepper Stepper // nil if the runtime has its own clock
}

const toastDuration = 2500 * time.Millisecond

// slotKeys select save slots 1 to 10, in order
var slotKeys = [saves.MaxSlots]ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4, ebiten.KeyDigit5,
	ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9, ebiten.KeyDigit0,
}

type toastMsg struct {
	msg   string
	until time.Time
}

type App struct {
	cfg  Config
	opts Options
	ctx  context.Context

	tex   *ebiten.Image
	shade *ebiten.Image
	fast  bool

	curW, curH int

	// overlay/menu
	showMenu    bool
	menuMode    string // "main", "slot", "rom", "keys"
	menuIdx     int
	currentSlot int
	romList     []cart.Summary
	romSel      int
	romOff      int
	keysOff     int

	// scratch space for key events
	keys []ebiten.Key

	toastCrit sync.Mutex
	toasts    []toastMsg
}

func NewApp(ctx context.Context, cfg Config, opts Options) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(adapter.ScreenWidth*cfg.Scale, adapter.ScreenHeight*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return &App{
		cfg:      cfg,
		opts:     opts,
		ctx:      ctx,
		menuMode: "main",
		curW:     adapter.ScreenWidth * cfg.Scale,
		curH:     adapter.ScreenHeight * cfg.Scale,
	}
}

func (a *App) Run() error { return ebiten.RunGame(a) }

// Notify implements session.Notifier and turns session events into toasts.
func (a *App) Notify(n session.Notice, s session.Status) {
	switch n.Kind {
	case session.NoticeROMLoaded:
		a.toast("Loaded ROM: " + n.Detail)
		ebiten.SetWindowTitle(a.cfg.Title + " - [" + n.Detail + "]")
	case session.NoticeROMError:
		a.toast("ROM error: " + n.Detail)
	case session.NoticeSaveCreated:
		a.toast("Save memory captured")
	case session.NoticeStateChanged:
		if s.State == session.Faulted {
			a.toast("Faulted: " + s.LastError)
		}
	}
}

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && (!a.showMenu || a.menuMode == "main") {
		a.showMenu = !a.showMenu
		a.menuMode = "main"
		a.menuIdx = 0
		// buttons held when the menu opened must not stay pressed
		a.opts.Router.Release()
	} else if a.showMenu {
		switch a.menuMode {
		case "slot":
			a.updateSlotMenu()
		case "rom":
			a.updateRomMenu()
		case "keys":
			a.updateKeysMenu()
		default:
			a.updateMainMenu()
		}
	} else {
		a.routeKeys()
		a.hotkeys()
	}

	// Fast-forward (Tab): while held, run multiple frames per Ebiten update
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if a.opts.Stepper != nil && !a.showMenu {
		n := 1
		if a.fast {
			n = 5
		}
		for i := 0; i < n; i++ {
			a.opts.Stepper.StepFrame()
		}
	}
	return nil
}

// routeKeys sends key presses and releases to the input router. The router
// decides whether they reach the runtime.
func (a *App) routeKeys() {
	a.keys = inpututil.AppendJustPressedKeys(a.keys[:0])
	for _, k := range a.keys {
		a.opts.Router.Route(k.String(), true)
	}
	a.keys = inpututil.AppendJustReleasedKeys(a.keys[:0])
	for _, k := range a.keys {
		a.opts.Router.Route(k.String(), false)
	}
}

func (a *App) hotkeys() {
	// Pause toggle (P)
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.togglePlay()
	}

	// Reset (R)
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.reset()
	}

	// Quick save/load to the current slot
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.saveSlotWithToast()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.loadSlotWithToast()
	}
	for i, k := range slotKeys[:a.cfg.Slots] {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot set to %d", i+1))
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	// Screenshot (F12)
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if path, err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		} else {
			a.toast("Wrote " + filepath.Base(path))
		}
	}
}

func (a *App) togglePlay() {
	sess := a.opts.Session
	var err error
	if sess.State() == session.Running {
		err = sess.Pause(a.ctx)
	} else {
		err = sess.Start(a.ctx)
	}
	if err != nil {
		a.toast(err.Error())
	}
}

func (a *App) reset() {
	sess := a.opts.Session
	wasRunning := sess.State() == session.Running
	if err := sess.Reset(a.ctx); err != nil {
		a.toast("Reset failed: " + err.Error())
		return
	}
	if wasRunning {
		if err := sess.Start(a.ctx); err != nil {
			a.toast(err.Error())
		}
	}
}

func (a *App) saveSlot(slot int) error {
	st := a.opts.Session.Status()
	if a.opts.Slots == nil || st.Cartridge == nil {
		return fmt.Errorf("save slots unavailable")
	}
	data, ok, err := a.opts.Session.CaptureSave(a.ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cartridge has no save memory")
	}
	_, err = a.opts.Slots.Put(st.Cartridge.FullPath, slot, data)
	return err
}

func (a *App) loadSlot(slot int) error {
	st := a.opts.Session.Status()
	if a.opts.Slots == nil || st.Cartridge == nil {
		return fmt.Errorf("save slots unavailable")
	}
	rec, err := a.opts.Slots.Get(st.Cartridge.FullPath, slot)
	if err != nil {
		return err
	}
	return a.opts.Session.RestoreSave(a.ctx, rec.Data)
}

func (a *App) saveSlotWithToast() {
	if err := a.saveSlot(a.currentSlot); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
}

func (a *App) loadSlotWithToast() {
	if err := a.loadSlot(a.currentSlot); err != nil {
		a.toast("Load failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
}

func (a *App) toast(msg string) {
	logger.Log("ui", msg)
	a.toastCrit.Lock()
	defer a.toastCrit.Unlock()
	a.toasts = append(a.toasts, toastMsg{msg: msg, until: time.Now().Add(toastDuration)})
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(adapter.ScreenWidth, adapter.ScreenHeight)
		a.shade = ebiten.NewImage(1, 1)
		a.shade.Fill(color.RGBA{0, 0, 0, 0xA0})
	}
	a.opts.Frames.Take(func(frame *image.RGBA) {
		a.tex.WritePixels(frame.Pix)
	})

	// largest integer scale that fits, centred
	scale := min(a.curW/adapter.ScreenWidth, a.curH/adapter.ScreenHeight)
	if scale < 1 {
		scale = 1
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	op.GeoM.Translate(float64(a.curW-adapter.ScreenWidth*scale)/2, float64(a.curH-adapter.ScreenHeight*scale)/2)
	screen.DrawImage(a.tex, op)

	if a.showMenu {
		a.drawShade(screen)
		switch a.menuMode {
		case "slot":
			a.drawSlotMenu(screen)
		case "rom":
			a.drawRomMenu(screen)
		case "keys":
			a.drawKeysMenu(screen)
		default:
			a.drawMainMenu(screen)
		}
	} else {
		a.drawStatus(screen)
	}
	a.drawToasts(screen)
}

func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = outW, outH
	return outW, outH
}

func (a *App) drawShade(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.curW), float64(a.curH))
	screen.DrawImage(a.shade, op)
}

// drawStatus shows the session state whenever the game is not running.
func (a *App) drawStatus(screen *ebiten.Image) {
	st := a.opts.Session.Status()
	if st.State == session.Running {
		return
	}
	a.drawShade(screen)

	lines := []string{st.State.String()}
	if st.Cartridge != nil {
		lines = append(lines, st.Cartridge.DisplayName())
	} else {
		lines = append(lines, "No ROM loaded. Esc: Menu")
	}
	if st.LastError != "" {
		lines = append(lines, a.wrapText(st.LastError, a.maxCharsForText(10))...)
	}
	if st.State == session.Loaded || st.State == session.Paused {
		lines = append(lines, "P: Play  Esc: Menu")
	}
	for i, s := range lines {
		ebitenutil.DebugPrintAt(screen, a.truncateText(s, a.maxCharsForText(10)), 10, 10+i*14)
	}
}

func (a *App) drawToasts(screen *ebiten.Image) {
	a.toastCrit.Lock()
	defer a.toastCrit.Unlock()

	now := time.Now()
	live := a.toasts[:0]
	for _, t := range a.toasts {
		if now.Before(t.until) {
			live = append(live, t)
		}
	}
	a.toasts = live

	y := a.curH - 18
	for i := len(a.toasts) - 1; i >= 0 && y > 0; i-- {
		ebitenutil.DebugPrintAt(screen, a.truncateText(a.toasts[i].msg, a.maxCharsForText(10)), 10, y)
		y -= 14
	}
}

func (a *App) saveScreenshot() (string, error) {
	ts := time.Now().Format("20060102_150405")
	path := filepath.Join(a.cfg.ScreenshotDir, fmt.Sprintf("screenshot_%s.png", ts))
	return path, snapshot.WritePNG(path, a.opts.Frames.Snapshot(), a.cfg.Scale)
}
