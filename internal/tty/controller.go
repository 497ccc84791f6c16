// Package tty is a terminal front end. Key presses read from a terminal in
// raw mode drive the session and the joypad, and a single status line shows
// the session state.
//
// Terminals report key presses but not releases, so a joypad button is
// released automatically a short time after the last press of its key. Key
// repeat keeps it held.
package tty

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/input"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/saves"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/session"
)

// DefaultHold is how long a button stays pressed after its key was last
// seen. It is a little longer than the usual initial key repeat delay.
const DefaultHold = 550 * time.Millisecond

const help = "p play/pause  r reset  s save  l load  0-9 slot  v last log  q quit"

// Controller connects a terminal to a session.
type Controller struct {
	sess   *session.Manager
	router *input.Router
	slots  *saves.Store

	// Hold is how long a button stays pressed after its key was last seen.
	Hold time.Duration

	styles styles

	crit   sync.Mutex
	out    io.Writer
	slot   int
	timers map[string]*time.Timer
}

// NewController writes its status line to out. The slots store may be nil,
// in which case saving to slots is unavailable.
func NewController(sess *session.Manager, router *input.Router, slots *saves.Store, out io.Writer) *Controller {
	return &Controller{
		sess:   sess,
		router: router,
		slots:  slots,
		Hold:   DefaultHold,
		styles: newStyles(),
		out:    out,
		timers: make(map[string]*time.Timer),
	}
}

// Notify implements session.Notifier and redraws the status line.
func (c *Controller) Notify(n session.Notice, s session.Status) {
	c.draw(s, noticeText(n))
}

// Run reads keys from in until the quit key is pressed, in returns an error
// or ctx is cancelled.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	keys := make(chan string)
	errs := make(chan error, 1)
	go func() {
		r := bufio.NewReader(in)
		for {
			k, err := ReadKey(r)
			if err != nil {
				errs <- err
				return
			}
			select {
			case keys <- k:
			case <-ctx.Done():
				return
			}
		}
	}()

	c.draw(c.sess.Status(), help)
	defer c.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("tty: %w", err)
		case k := <-keys:
			if c.Handle(ctx, k) {
				return nil
			}
		}
	}
}

// Handle acts on a single key. It returns true if the key asks to quit.
func (c *Controller) Handle(ctx context.Context, key string) bool {
	switch strings.ToLower(key) {
	case strings.ToLower(KeyCtrlC), "q":
		return true
	case "p":
		c.togglePlay(ctx)
		return false
	case "r":
		c.reset(ctx)
		return false
	case "s":
		c.saveSlot(ctx)
		return false
	case "l":
		c.loadSlot(ctx)
		return false
	case "v":
		c.showLog()
		return false
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		slot := int(key[0] - '0')
		c.crit.Lock()
		c.slot = slot
		c.crit.Unlock()
		c.draw(c.sess.Status(), fmt.Sprintf("slot %d", slot))
		return false
	}

	if c.router.Bound(key) {
		c.press(key)
	}
	return false
}

// press forwards a key press and (re)schedules its release.
func (c *Controller) press(key string) {
	c.router.Route(key, true)

	c.crit.Lock()
	defer c.crit.Unlock()
	if t, ok := c.timers[key]; ok {
		t.Reset(c.Hold)
		return
	}
	c.timers[key] = time.AfterFunc(c.Hold, func() {
		c.crit.Lock()
		delete(c.timers, key)
		c.crit.Unlock()
		c.router.Route(key, false)
	})
}

func (c *Controller) stopTimers() {
	c.crit.Lock()
	defer c.crit.Unlock()
	for k, t := range c.timers {
		t.Stop()
		delete(c.timers, k)
	}
	c.router.Release()
}

func (c *Controller) togglePlay(ctx context.Context) {
	var err error
	if c.sess.State() == session.Running {
		err = c.sess.Pause(ctx)
	} else {
		err = c.sess.Start(ctx)
	}
	if err != nil {
		c.draw(c.sess.Status(), err.Error())
	}
}

func (c *Controller) reset(ctx context.Context) {
	wasRunning := c.sess.State() == session.Running
	if err := c.sess.Reset(ctx); err != nil {
		c.draw(c.sess.Status(), err.Error())
		return
	}
	if wasRunning {
		if err := c.sess.Start(ctx); err != nil {
			c.draw(c.sess.Status(), err.Error())
		}
	}
}

func (c *Controller) saveSlot(ctx context.Context) {
	st := c.sess.Status()
	if c.slots == nil || st.Cartridge == nil {
		c.draw(st, "save slots unavailable")
		return
	}
	data, ok, err := c.sess.CaptureSave(ctx)
	if err != nil {
		c.draw(st, err.Error())
		return
	}
	if !ok {
		c.draw(st, "cartridge has no save memory")
		return
	}

	c.crit.Lock()
	slot := c.slot
	c.crit.Unlock()

	if _, err := c.slots.Put(st.Cartridge.FullPath, slot, data); err != nil {
		logger.Logf("tty", "save slot %d: %v", slot, err)
		c.draw(st, err.Error())
		return
	}
	c.draw(st, fmt.Sprintf("saved to slot %d", slot))
}

func (c *Controller) loadSlot(ctx context.Context) {
	st := c.sess.Status()
	if c.slots == nil || st.Cartridge == nil {
		c.draw(st, "save slots unavailable")
		return
	}

	c.crit.Lock()
	slot := c.slot
	c.crit.Unlock()

	rec, err := c.slots.Get(st.Cartridge.FullPath, slot)
	if err != nil {
		c.draw(st, err.Error())
		return
	}
	if err := c.sess.RestoreSave(ctx, rec.Data); err != nil {
		c.draw(st, err.Error())
		return
	}
	c.draw(st, fmt.Sprintf("loaded slot %d (%s)", slot, rec.Timestamp.Local().Format(time.DateTime)))
}

// showLog puts the most recent log entry on the status line.
func (c *Controller) showLog() {
	msg := "log is empty"
	if e := logger.Recent(1); len(e) > 0 {
		msg = e[0].Tag + ": " + e[0].Detail
	}
	c.draw(c.sess.Status(), msg)
}

// StatusLine renders the session status and an optional message.
func (c *Controller) StatusLine(s session.Status, msg string) string {
	var state string
	switch s.State {
	case session.Running:
		state = c.styles.running.Render(s.State.String())
	case session.Paused:
		state = c.styles.paused.Render(s.State.String())
	case session.Faulted:
		state = c.styles.faulted.Render(s.State.String())
	default:
		state = c.styles.idle.Render(s.State.String())
	}

	parts := []string{state}
	if s.Cartridge != nil {
		parts = append(parts, c.styles.title.Render(s.Cartridge.DisplayName()))
	}
	if s.Header != nil {
		parts = append(parts, c.styles.detail.Render(s.Header.CartTypeStr))
		if s.Header.IsCGB() {
			parts = append(parts, c.styles.detail.Render("CGB"))
		}
	}

	c.crit.Lock()
	parts = append(parts, c.styles.detail.Render(fmt.Sprintf("slot %d", c.slot)))
	c.crit.Unlock()

	if s.LastError != "" {
		parts = append(parts, c.styles.err.Render(s.LastError))
	} else if msg != "" {
		parts = append(parts, c.styles.help.Render(msg))
	}
	return strings.Join(parts, " ")
}

// clears the line and returns the cursor to column zero. raw mode does not
// translate newlines so the status line is always redrawn in place
const clearLine = "\r\033[2K"

func (c *Controller) draw(s session.Status, msg string) {
	line := c.StatusLine(s, msg)
	c.crit.Lock()
	defer c.crit.Unlock()
	io.WriteString(c.out, clearLine+line)
}

func noticeText(n session.Notice) string {
	switch n.Kind {
	case session.NoticeROMLoaded:
		return "loaded " + n.Detail
	case session.NoticeROMError:
		return n.Detail
	case session.NoticeSaveCreated:
		return "save memory captured"
	}
	return help
}
