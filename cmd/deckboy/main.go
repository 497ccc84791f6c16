package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter/headless"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/catalog"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/input"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/saves"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/session"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/settings"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/snapshot"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/statsview"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/tty"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/ui"
)

type CLIFlags struct {
	ROMPath   string
	ROMDir    string
	Settings  string
	Scale     int
	Title     string
	SaveRAM   bool // persist battery RAM next to ROM (.sav)
	List      bool
	TTY       bool
	Log       bool
	Trace     bool
	Stats     bool
	StatsAddr string

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb, .gbc)")
	flag.StringVar(&f.ROMDir, "romdir", "", "ROM directory (overrides settings)")
	flag.StringVar(&f.Settings, "settings", "", "settings file (default: user config dir)")
	flag.IntVar(&f.Scale, "scale", 0, "window scale (overrides settings)")
	flag.StringVar(&f.Title, "title", "DeckBoy", "window title")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")
	flag.BoolVar(&f.List, "list", false, "list the ROM directory and exit")
	flag.BoolVar(&f.TTY, "tty", false, "run in the terminal instead of a window")
	flag.BoolVar(&f.Log, "log", false, "echo log entries to stderr")
	flag.BoolVar(&f.Trace, "trace", false, "log every frame")
	flag.BoolVar(&f.Stats, "statsview", false, "serve runtime statistics (statsview builds only)")
	flag.StringVar(&f.StatsAddr, "statsaddr", statsview.DefaultAddress, "address of the statistics server")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.Log {
		logger.SetEcho(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		// entries were not echoed as they were made
		if !f.Log {
			logger.Tail(os.Stderr, 10)
		}
		fmt.Fprintf(os.Stderr, "* error: %v\n", err)
		os.Exit(10)
	}
}

func loadSettings(f CLIFlags) settings.Settings {
	path := f.Settings
	if path == "" {
		var err error
		if path, err = settings.DefaultPath(); err != nil {
			logger.Logf("deckboy", "settings: %v", err)
			return settings.Defaults()
		}
	}
	// a malformed file still yields usable defaults
	st, err := settings.Load(path)
	if err != nil {
		logger.Logf("deckboy", "settings: %v", err)
	}
	if f.ROMDir != "" {
		st.ROMDirectory = f.ROMDir
	}
	if f.Scale > 0 {
		st.DisplayScale = f.Scale
	}
	return st
}

func run(ctx context.Context, f CLIFlags) error {
	st := loadSettings(f)

	keys, err := st.Keymap()
	if err != nil {
		logger.Logf("deckboy", "key mappings: %v (using defaults)", err)
		keys = nil
	}

	cat := catalog.New(catalog.DirLister{Dir: st.ROMDirectory}, catalog.FileReader{Root: st.ROMDirectory})
	if f.List {
		return listROMs(ctx, cat, st.ROMDirectory, os.Stdout)
	}

	if f.Stats {
		if statsview.Available() {
			statsview.Launch(ctx, f.StatsAddr, os.Stdout)
		} else {
			fmt.Fprintln(os.Stderr, "* statsview not available in this build")
		}
	}

	rt := headless.New(headless.Config{Clocked: f.TTY, Trace: f.Trace})
	sess := session.New(rt)
	router := input.NewRouter(sess, keys)

	slots, err := saves.NewStore(st.SaveDirectory)
	if err != nil {
		logger.Logf("deckboy", "save slots disabled: %v", err)
		slots = nil
	}

	frames := adapter.NewFrameBuffer()
	if err := sess.AttachSurface(ctx, frames); err != nil {
		return err
	}

	// files passed with -rom may live outside the ROM directory
	d := &deck{sess: sess, reader: catalog.FileReader{}, battery: f.SaveRAM && st.AutoSave}
	defer d.close(context.Background())

	if f.ROMPath != "" {
		if err := d.load(ctx, f.ROMPath); err != nil {
			return fmt.Errorf("load %s: %w", f.ROMPath, err)
		}
		if h := sess.Status().Header; h != nil {
			logger.Logf("deckboy", "ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
		}
	}

	switch {
	case f.Headless:
		return runHeadless(rt, f.Frames, f.PNGOut, f.Expect)
	case f.TTY:
		return runTTY(ctx, sess, router, slots)
	}

	uiCfg := ui.Config{Title: f.Title, Scale: st.DisplayScale, ROMsDir: st.ROMDirectory, Slots: saves.MaxSlots}
	app := ui.NewApp(ctx, uiCfg, ui.Options{
		Session: sess,
		Router:  router,
		Keymap:  keymapOrDefault(keys),
		Frames:  frames,
		Catalog: cat,
		Slots:   slots,
		Load:    d.load,
		Stepper: rt,
	})
	sess.SetNotifier(app)
	return app.Run()
}

func keymapOrDefault(k input.Keymap) input.Keymap {
	if k == nil {
		return input.DefaultKeymap()
	}
	return k
}

func runHeadless(m *headless.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.Framebuffer()
	if fb == nil {
		return errors.New("headless: no frame was rendered")
	}
	crc := snapshot.CRC32(fb)
	fps := float64(frames) / dur.Seconds()

	fmt.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x\n",
		m.Frame(), dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := snapshot.WritePNG(pngPath, fb, 1); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		fmt.Printf("wrote %s\n", pngPath)
	}

	if expectCRC != "" {
		return snapshot.MatchCRC(crc, expectCRC)
	}
	return nil
}

func runTTY(ctx context.Context, sess *session.Manager, router *input.Router, slots *saves.Store) error {
	term, err := tty.Open(os.Stdin)
	if err != nil {
		return err
	}
	term.RawMode()
	defer term.CanonicalMode()

	c := tty.NewController(sess, router, slots, os.Stdout)
	sess.SetNotifier(c)
	defer fmt.Fprint(os.Stdout, "\r\n")
	return c.Run(ctx, os.Stdin)
}

func listROMs(ctx context.Context, cat *catalog.Catalog, dir string, out io.Writer) error {
	heading := lipgloss.NewStyle().Bold(true)
	title := lipgloss.NewStyle().Foreground(lipgloss.Color("#56b6c2")).Width(18)
	detail := lipgloss.NewStyle().Foreground(lipgloss.Color("#7f848e"))

	list, err := cat.Rescan(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, heading.Render(fmt.Sprintf("%s (%d)", dir, len(list))))
	for _, s := range list {
		hw := "DMG"
		if isCGB(ctx, s.FullPath) {
			hw = "CGB"
		}
		fmt.Fprintln(out, title.Render(s.DisplayName())+" "+
			detail.Render(fmt.Sprintf("%-24s %s %6d KiB", filepath.Base(s.FullPath), hw, s.SizeBytes/1024)))
	}
	return nil
}

// isCGB reads the header of the cartridge at path.
func isCGB(ctx context.Context, path string) bool {
	rom, err := catalog.FileReader{}.Read(ctx, path)
	if err != nil {
		return false
	}
	h, err := cart.ParseHeader(rom)
	return err == nil && h.IsCGB()
}
