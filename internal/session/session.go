// Package session sequences a single emulator runtime through its lifecycle:
// attaching the frame surface, loading a cartridge, playback control and
// save memory.
//
// The Manager is the only writer of session state. Its lock is only held
// while state is inspected or updated and never while the runtime is being
// called, so Status() never blocks behind a slow load. Instead, the
// operation currently driving the runtime is recorded and any conflicting
// operation is refused rather than queued.
//
// Teardown must not be called while a LoadCartridge is in progress. The
// runtime has no way of abandoning a load and the outcome is undefined.
package session

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
)

// names of operations, used for in-flight tracking and in error messages
const (
	opAttach  = "attach"
	opLoad    = "load"
	opStart   = "start"
	opPause   = "pause"
	opReset   = "reset"
	opCapture = "capture save"
	opRestore = "restore save"
)

// Manager owns the session and the runtime driving it.
type Manager struct {
	rt adapter.Runtime

	crit sync.Mutex

	state    State
	inflight string
	lastErr  string
	notifier Notifier

	// the active cartridge. image is retained so that a reset can replay it
	summary *cart.Summary
	header  *cart.Header
	image   []byte
}

// New returns a Manager in the Uninitialized state. A Manager that has
// reached Faulted or Disposed cannot be reused; create a new one with a
// fresh runtime.
func New(rt adapter.Runtime) *Manager {
	return &Manager{rt: rt}
}

// SetNotifier registers the receiver of session events. A nil notifier
// disables notices.
func (m *Manager) SetNotifier(n Notifier) {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.notifier = n
}

// Status returns a snapshot of the session.
func (m *Manager) Status() Status {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.statusLocked()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.state
}

// LastError returns the cause of the most recent failure. It is empty after
// any successful transition.
func (m *Manager) LastError() string {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.lastErr
}

func (m *Manager) statusLocked() Status {
	s := Status{
		State:     m.state,
		Header:    m.header,
		LastError: m.lastErr,
	}
	if m.summary != nil {
		c := *m.summary
		s.Cartridge = &c
	}
	return s
}

// AttachSurface initialises the runtime with the surface that will receive
// frames.
func (m *Manager) AttachSurface(ctx context.Context, s adapter.Surface) error {
	if _, err := m.begin(opAttach, Initializing, Uninitialized); err != nil {
		return m.refuse(err)
	}

	if s == nil {
		m.end(Faulted, ErrNoSurface)
		return ErrNoSurface
	}

	if err := m.rt.AttachSurface(ctx, s); err != nil {
		err = &AdapterError{Op: opAttach, Err: err}
		m.end(Faulted, err)
		return err
	}

	m.end(Ready, nil)
	return nil
}

// LoadCartridge validates rom and mounts it in the runtime. The name is the
// path the image was read from and is used for display and for naming save
// files.
//
// A rejected image leaves the session in the state it was in before the
// call. The caller is expected to pick another cartridge.
func (m *Manager) LoadCartridge(ctx context.Context, rom []byte, name string) error {
	prior, err := m.begin(opLoad, Loading, Ready, Loaded, Paused)
	if err != nil {
		return m.refuse(err)
	}

	if err := cart.Validate(rom); err != nil {
		logger.Logf("session", "rejected %s: %v", name, err)
		m.end(prior, err, Notice{Kind: NoticeROMError, Detail: err.Error()})
		return err
	}

	// cannot fail once the image has been validated
	h, err := cart.ParseHeader(rom)
	if err != nil {
		m.end(prior, err, Notice{Kind: NoticeROMError, Detail: err.Error()})
		return err
	}

	image := append([]byte(nil), rom...)
	if err := m.rt.LoadImage(ctx, image); err != nil {
		err = &AdapterError{Op: opLoad, Err: err}
		logger.Logf("session", "load %s: %v", name, err)
		m.end(prior, err, Notice{Kind: NoticeROMError, Detail: err.Error()})
		return err
	}

	summary := cart.Summarize(name, rom)

	m.crit.Lock()
	m.summary = &summary
	m.header = h
	m.image = image
	m.crit.Unlock()

	logger.Logf("session", "loaded %s (%s, %s)", summary.DisplayName(), h.CartTypeStr, summary.Name)
	m.end(Loaded, nil, Notice{Kind: NoticeROMLoaded, Detail: summary.DisplayName()})
	return nil
}

// Start begins or resumes execution of the loaded cartridge.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := m.begin(opStart, noChange, Loaded, Paused); err != nil {
		return m.refuse(err)
	}

	if !m.rt.CoreLoaded() {
		err := &AdapterError{Op: opStart, Err: errCoreNotLoaded}
		m.end(Faulted, err)
		return err
	}

	if err := m.rt.Start(ctx); err != nil {
		err = &AdapterError{Op: opStart, Err: err}
		m.end(Faulted, err)
		return err
	}

	m.end(Running, nil)
	return nil
}

// Pause stops execution. Start resumes it.
func (m *Manager) Pause(ctx context.Context) error {
	if _, err := m.begin(opPause, noChange, Running); err != nil {
		return m.refuse(err)
	}

	if err := m.rt.Stop(ctx); err != nil {
		err = &AdapterError{Op: opPause, Err: err}
		m.end(Faulted, err)
		return err
	}

	m.end(Paused, nil)
	return nil
}

// Reset returns the loaded cartridge to its power-on state. The runtime is
// reset and the retained image is loaded into it again so the reset does not
// rely on the runtime's own reset being complete. Battery backed RAM survives
// the reset, as it does on hardware. The session is left Loaded.
func (m *Manager) Reset(ctx context.Context) error {
	prior, err := m.begin(opReset, noChange, Running, Paused, Loaded)
	if err != nil {
		return m.refuse(err)
	}

	m.crit.Lock()
	image, h := m.image, m.header
	m.crit.Unlock()

	var sram []byte
	if h != nil && h.HasBattery() {
		sram, err = m.rt.ReadSaveMemory()
		if err != nil {
			// the reset still goes ahead. only the save memory is lost
			logger.Logf("session", "reset: reading save memory: %v", err)
			sram = nil
		}
	}

	fail := func(err error) error {
		err = &AdapterError{Op: opReset, Err: err}
		m.end(Faulted, err)
		return err
	}

	if prior == Running {
		if err := m.rt.Stop(ctx); err != nil {
			return fail(err)
		}
	}
	if err := m.rt.ResetCore(ctx); err != nil {
		return fail(err)
	}
	if err := m.rt.LoadImage(ctx, image); err != nil {
		return fail(err)
	}
	if sram != nil {
		if err := m.rt.WriteSaveMemory(sram); err != nil {
			return fail(err)
		}
	}

	logger.Log("session", "reset")
	m.end(Loaded, nil)
	return nil
}

// CaptureSave returns a copy of the cartridge's battery backed RAM. The
// boolean is false when the cartridge declares no battery, in which case the
// runtime is not consulted. Failures are returned to the caller and do not
// affect the session.
func (m *Manager) CaptureSave(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if _, err := m.begin(opCapture, noChange, Running, Paused); err != nil {
		return nil, false, err
	}
	defer m.release()

	m.crit.Lock()
	h := m.header
	m.crit.Unlock()

	if h == nil || !h.HasBattery() {
		return nil, false, nil
	}

	data, err := m.rt.ReadSaveMemory()
	if err != nil {
		return nil, false, &AdapterError{Op: opCapture, Err: err}
	}
	if data == nil {
		return nil, false, nil
	}

	m.notify(Notice{Kind: NoticeSaveCreated, Detail: h.Title})
	return data, true, nil
}

// RestoreSave replaces the cartridge's battery backed RAM with data, which is
// passed to the runtime verbatim. Failures are returned to the caller and do
// not affect the session.
func (m *Manager) RestoreSave(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.begin(opRestore, noChange, Loaded, Running, Paused); err != nil {
		return err
	}
	defer m.release()

	m.crit.Lock()
	h := m.header
	m.crit.Unlock()

	if h == nil || !h.HasBattery() {
		return ErrNoSaveMemory
	}

	if err := m.rt.WriteSaveMemory(data); err != nil {
		return &AdapterError{Op: opRestore, Err: err}
	}

	logger.Logf("session", "restored %d bytes of save memory", len(data))
	return nil
}

// Teardown stops the runtime and releases it. The session ends Disposed
// whatever happens; runtime errors are logged and not returned. Calling
// Teardown on a disposed session does nothing.
func (m *Manager) Teardown(ctx context.Context) {
	m.crit.Lock()
	if m.state == Disposed {
		m.crit.Unlock()
		return
	}
	prior := m.state
	m.state = Disposed
	m.inflight = ""
	m.lastErr = ""
	m.summary = nil
	m.header = nil
	m.image = nil
	st := m.statusLocked()
	n := m.notifier
	m.crit.Unlock()

	if prior == Running {
		if err := m.rt.Stop(ctx); err != nil {
			logger.Logf("session", "teardown: stop: %v", err)
		}
	}
	if c, ok := m.rt.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Logf("session", "teardown: close: %v", err)
		}
	}

	logger.Logf("session", "%s -> %s", prior, Disposed)
	if n != nil {
		n.Notify(Notice{Kind: NoticeStateChanged, Detail: Disposed.String()}, st)
	}
}

// SetInput forwards the joypad state to the runtime if the session is
// Running. It returns false, and the state is dropped, otherwise. It never
// blocks on an in-progress operation.
func (m *Manager) SetInput(j adapter.Joypad) bool {
	m.crit.Lock()
	running := m.state == Running
	m.crit.Unlock()

	if !running {
		return false
	}
	m.rt.SetInputState(j)
	return true
}

// begin claims the runtime for op. It fails if a load is in progress, if
// any other operation is in progress or if the current state is not in
// allowed. On success the state is changed to during, unless during is
// noChange, and the state prior to the change is returned.
func (m *Manager) begin(op string, during State, allowed ...State) (State, error) {
	m.crit.Lock()

	if m.state == Loading {
		m.crit.Unlock()
		if op == opLoad {
			return Loading, inProgress(op, opLoad)
		}
		return Loading, notReady(op, Loading)
	}
	if m.inflight != "" {
		current, s := m.inflight, m.state
		m.crit.Unlock()
		return s, inProgress(op, current)
	}
	if !slices.Contains(allowed, m.state) {
		s := m.state
		m.crit.Unlock()
		return s, notReady(op, s)
	}

	prior := m.state
	m.inflight = op
	if during == noChange || during == prior {
		m.crit.Unlock()
		return prior, nil
	}
	m.state = during
	st := m.statusLocked()
	n := m.notifier
	m.crit.Unlock()

	m.announce(n, prior, during, st)
	return prior, nil
}

// end releases the runtime and moves the session to state to. A nil err
// clears the last error. A session that was disposed while the operation was
// in progress stays disposed.
func (m *Manager) end(to State, err error, notices ...Notice) {
	m.crit.Lock()
	m.inflight = ""
	if m.state == Disposed {
		m.crit.Unlock()
		return
	}
	from := m.state
	m.state = to
	if err != nil {
		m.lastErr = err.Error()
	} else {
		m.lastErr = ""
	}
	st := m.statusLocked()
	n := m.notifier
	m.crit.Unlock()

	m.announce(n, from, to, st)
	if n == nil {
		return
	}
	for _, e := range notices {
		n.Notify(e, st)
	}
}

// release gives up the runtime without changing state.
func (m *Manager) release() {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.inflight = ""
}

// refuse records a rejected operation.
func (m *Manager) refuse(err error) error {
	m.crit.Lock()
	defer m.crit.Unlock()
	if m.state != Disposed {
		m.lastErr = err.Error()
	}
	return err
}

func (m *Manager) announce(n Notifier, from, to State, st Status) {
	if from == to {
		return
	}
	logger.Logf("session", "%s -> %s", from, to)
	if n != nil {
		n.Notify(Notice{Kind: NoticeStateChanged, Detail: to.String()}, st)
	}
}

func (m *Manager) notify(e Notice) {
	m.crit.Lock()
	st := m.statusLocked()
	n := m.notifier
	m.crit.Unlock()
	if n != nil {
		n.Notify(e, st)
	}
}
