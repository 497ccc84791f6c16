package tty

import (
	"bytes"
	"context"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter/headless"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart/carttest"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/input"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/saves"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/session"
)

func newController(t *testing.T, rom []byte) (*Controller, *session.Manager, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	sess := session.New(headless.New(headless.Config{}))
	if err := sess.AttachSurface(ctx, adapter.SurfaceFunc(func(*image.RGBA) {})); err != nil {
		t.Fatalf("AttachSurface: %v", err)
	}
	if err := sess.LoadCartridge(ctx, rom, "/roms/game.gb"); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	store, err := saves.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var out bytes.Buffer
	c := NewController(sess, input.NewRouter(sess, nil), store, &out)
	sess.SetNotifier(c)
	return c, sess, &out
}

func TestController_PlayPause(t *testing.T) {
	c, sess, out := newController(t, carttest.BuildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024))
	ctx := context.Background()

	c.Handle(ctx, "p")
	if sess.State() != session.Running {
		t.Fatalf("state got %s want %s", sess.State(), session.Running)
	}
	c.Handle(ctx, "P")
	if sess.State() != session.Paused {
		t.Fatalf("state got %s want %s", sess.State(), session.Paused)
	}
	if !strings.Contains(out.String(), "Paused") || !strings.Contains(out.String(), "TETRIS") {
		t.Fatalf("status line got %q", out.String())
	}

	c.Handle(ctx, "p")
	c.Handle(ctx, "r")
	if sess.State() != session.Running {
		t.Fatalf("reset while running left state %s", sess.State())
	}

	if !c.Handle(ctx, "q") || !c.Handle(ctx, KeyCtrlC) {
		t.Fatalf("quit keys not recognised")
	}
}

func TestController_HoldAndRelease(t *testing.T) {
	c, _, _ := newController(t, carttest.BuildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024))
	c.Hold = 20 * time.Millisecond
	ctx := context.Background()
	c.Handle(ctx, "p")

	c.Handle(ctx, KeyArrowUp)
	if !c.router.Held().Up {
		t.Fatalf("button not pressed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.router.Held().Up {
		if time.Now().After(deadline) {
			t.Fatalf("button never released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestController_Slots(t *testing.T) {
	c, sess, _ := newController(t, carttest.BuildROM("ZELDA", 0x03, 0x01, 0x02, 64*1024))
	ctx := context.Background()

	c.Handle(ctx, "p")
	c.Handle(ctx, "3")
	c.Handle(ctx, "s")

	list, err := c.slots.List("/roms/game.gb")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Slot != 3 {
		t.Fatalf("slots got %+v", list)
	}

	c.Handle(ctx, "l")
	data, ok, err := sess.CaptureSave(ctx)
	if err != nil || !ok || !bytes.Equal(data, list[0].Data) {
		t.Fatalf("save memory after loading slot got %v %v", ok, err)
	}
}

func TestController_Run(t *testing.T) {
	c, sess, _ := newController(t, carttest.BuildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024))
	if err := c.Run(context.Background(), strings.NewReader("pq")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.State() != session.Running {
		t.Fatalf("state got %s want %s", sess.State(), session.Running)
	}
}

func TestController_StatusLine(t *testing.T) {
	rom := carttest.BuildROM("GOLD", 0x00, 0x00, 0x00, 32*1024)
	rom[0x0143] = 0x80
	carttest.Fix(rom)

	c, sess, _ := newController(t, rom)
	if line := c.StatusLine(sess.Status(), ""); !strings.Contains(line, "CGB") || !strings.Contains(line, "GOLD") {
		t.Fatalf("status line for colour cartridge got %q", line)
	}

	c, sess, _ = newController(t, carttest.BuildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024))
	if line := c.StatusLine(sess.Status(), ""); strings.Contains(line, "CGB") {
		t.Fatalf("status line for DMG cartridge got %q", line)
	}
}

func TestController_ShowLog(t *testing.T) {
	c, _, out := newController(t, carttest.BuildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024))
	logger.Log("tty test", "most recent entry")
	out.Reset()
	c.Handle(context.Background(), "v")
	if !strings.Contains(out.String(), "tty test: most recent entry") {
		t.Fatalf("status line got %q", out.String())
	}
}
