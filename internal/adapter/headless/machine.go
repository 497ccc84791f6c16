// Package headless is an in-process emulator runtime that implements the
// adapter contract without executing any cartridge code. It mounts and
// validates images, keeps battery RAM sized from the header and renders a
// deterministic test card that responds to the joypad. It is what the CLI
// runs when no external runtime is wired in, and what integration tests drive.
package headless

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
)

var (
	errNoSurface   = errors.New("headless: no surface")
	errNoCartridge = errors.New("headless: no cartridge mounted")
	errNoSaveRAM   = errors.New("headless: cartridge has no save memory")
)

// the four DMG shades, lightest first
var palette = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

const cursorSize = 8

// Machine is the headless runtime. The zero value is not usable; use New.
type Machine struct {
	cfg Config

	crit sync.Mutex

	surface adapter.Surface
	fb      *image.RGBA

	rom    []byte
	header *cart.Header
	ram    []byte

	running bool
	frame   uint64

	cursorX, cursorY int
	cursorShade      int
	prevButtons      adapter.Joypad

	buttons atomic.Value // adapter.Joypad

	// frame clock, only used when cfg.Clocked is true
	clockStop chan struct{}
	clockDone chan struct{}
}

var _ adapter.Runtime = (*Machine)(nil)

func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg}
	m.buttons.Store(adapter.Joypad{})
	return m
}

func (m *Machine) AttachSurface(ctx context.Context, s adapter.Surface) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errNoSurface
	}
	m.crit.Lock()
	defer m.crit.Unlock()
	m.surface = s
	m.fb = image.NewRGBA(image.Rect(0, 0, adapter.ScreenWidth, adapter.ScreenHeight))
	return nil
}

func (m *Machine) LoadImage(ctx context.Context, rom []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cart.Validate(rom); err != nil {
		return fmt.Errorf("headless: %w", err)
	}
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return fmt.Errorf("headless: %w", err)
	}

	m.stopClock()

	m.crit.Lock()
	defer m.crit.Unlock()

	if m.fb == nil {
		return errNoSurface
	}

	m.rom = append([]byte(nil), rom...)
	m.header = h
	m.ram = nil
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	m.running = false
	m.powerOn()

	logger.Logf("headless", "mounted %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	return nil
}

func (m *Machine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.crit.Lock()
	if m.rom == nil {
		m.crit.Unlock()
		return errNoCartridge
	}
	m.running = true
	m.crit.Unlock()

	if m.cfg.Clocked {
		m.startClock()
	}
	return nil
}

func (m *Machine) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.stopClock()

	m.crit.Lock()
	defer m.crit.Unlock()
	m.running = false
	return nil
}

// ResetCore returns the test card to its power-on state. Cartridge RAM is
// battery backed and survives.
func (m *Machine) ResetCore(ctx context.Context) error {
	if err := m.Stop(ctx); err != nil {
		return err
	}
	m.crit.Lock()
	defer m.crit.Unlock()
	m.powerOn()
	return nil
}

func (m *Machine) CoreLoaded() bool {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.rom != nil
}

// ReadSaveMemory returns nil for cartridges without battery backed RAM.
func (m *Machine) ReadSaveMemory() ([]byte, error) {
	m.crit.Lock()
	defer m.crit.Unlock()
	if m.header == nil {
		return nil, errNoCartridge
	}
	if !m.header.HasBattery() || len(m.ram) == 0 {
		return nil, nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out, nil
}

// WriteSaveMemory copies as much of data as fits into cartridge RAM.
func (m *Machine) WriteSaveMemory(data []byte) error {
	m.crit.Lock()
	defer m.crit.Unlock()
	if m.header == nil {
		return errNoCartridge
	}
	if len(m.ram) == 0 {
		return errNoSaveRAM
	}
	copy(m.ram, data)
	m.loadCursor()
	return nil
}

func (m *Machine) SetInputState(j adapter.Joypad) {
	m.buttons.Store(j)
}

// Close stops the frame clock and drops the surface and cartridge.
func (m *Machine) Close() error {
	m.stopClock()
	m.crit.Lock()
	defer m.crit.Unlock()
	m.running = false
	m.surface = nil
	m.rom = nil
	m.header = nil
	m.ram = nil
	return nil
}

// StepFrame advances one frame and delivers it to the surface. It does
// nothing unless a cartridge is mounted and running. Returns true if a frame
// was delivered.
func (m *Machine) StepFrame() bool {
	m.crit.Lock()
	defer m.crit.Unlock()
	if !m.running || m.rom == nil || m.fb == nil {
		return false
	}
	m.frame++
	m.applyInput(m.buttons.Load().(adapter.Joypad))
	m.render()
	if m.cfg.Trace {
		logger.Logf("headless", "frame %d cursor=(%d,%d)", m.frame, m.cursorX, m.cursorY)
	}
	if m.surface != nil {
		m.surface.Present(m.fb)
	}
	return true
}

// Framebuffer returns a copy of the most recent frame.
func (m *Machine) Framebuffer() *image.RGBA {
	m.crit.Lock()
	defer m.crit.Unlock()
	if m.fb == nil {
		return nil
	}
	out := image.NewRGBA(m.fb.Rect)
	copy(out.Pix, m.fb.Pix)
	return out
}

// Frame returns the number of frames delivered since the last power on.
func (m *Machine) Frame() uint64 {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.frame
}

// Running reports whether the core has been started.
func (m *Machine) Running() bool {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.running
}

// powerOn must be called with the critical section held.
func (m *Machine) powerOn() {
	m.frame = 0
	m.cursorX = (adapter.ScreenWidth - cursorSize) / 2
	m.cursorY = (adapter.ScreenHeight - cursorSize) / 2
	m.cursorShade = 3
	m.prevButtons = adapter.Joypad{}
	m.loadCursor()
}

// the cursor is mirrored into the first bytes of battery RAM so that saves
// carry observable state.
func (m *Machine) loadCursor() {
	if len(m.ram) < 3 || m.header == nil || !m.header.HasBattery() {
		return
	}
	if m.ram[0] == 0 && m.ram[1] == 0 && m.ram[2] == 0 {
		return
	}
	m.cursorX = int(m.ram[0]) % (adapter.ScreenWidth - cursorSize + 1)
	m.cursorY = int(m.ram[1]) % (adapter.ScreenHeight - cursorSize + 1)
	m.cursorShade = int(m.ram[2]) % len(palette)
}

func (m *Machine) storeCursor() {
	if len(m.ram) < 3 {
		return
	}
	m.ram[0] = byte(m.cursorX)
	m.ram[1] = byte(m.cursorY)
	m.ram[2] = byte(m.cursorShade)
}

func (m *Machine) applyInput(j adapter.Joypad) {
	if j.Left && m.cursorX > 0 {
		m.cursorX--
	}
	if j.Right && m.cursorX < adapter.ScreenWidth-cursorSize {
		m.cursorX++
	}
	if j.Up && m.cursorY > 0 {
		m.cursorY--
	}
	if j.Down && m.cursorY < adapter.ScreenHeight-cursorSize {
		m.cursorY++
	}

	// A and B cycle the cursor shade on press, not while held
	if j.A && !m.prevButtons.A {
		m.cursorShade = (m.cursorShade + 1) % len(palette)
	}
	if j.B && !m.prevButtons.B {
		m.cursorShade = (m.cursorShade + len(palette) - 1) % len(palette)
	}
	m.prevButtons = j

	m.storeCursor()
}

func (m *Machine) render() {
	seed := int(m.header.HeaderChecksum)
	scroll := int(m.frame / 2)
	for y := 0; y < adapter.ScreenHeight; y++ {
		for x := 0; x < adapter.ScreenWidth; x++ {
			shade := ((x + y + scroll + seed) / 8) % 2
			if x >= m.cursorX && x < m.cursorX+cursorSize && y >= m.cursorY && y < m.cursorY+cursorSize {
				shade = m.cursorShade
			}
			m.fb.SetRGBA(x, y, palette[shade])
		}
	}
}

func (m *Machine) startClock() {
	m.crit.Lock()
	if m.clockStop != nil {
		m.crit.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.clockStop, m.clockDone = stop, done
	m.crit.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(FrameInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				m.StepFrame()
			}
		}
	}()
}

func (m *Machine) stopClock() {
	m.crit.Lock()
	stop, done := m.clockStop, m.clockDone
	m.clockStop, m.clockDone = nil, nil
	m.crit.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
