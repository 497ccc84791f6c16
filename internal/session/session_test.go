package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart/carttest"
)

var nullSurface = adapter.SurfaceFunc(func(*image.RGBA) {})

func romOnly() []byte {
	return carttest.BuildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024)
}

func batteryROM() []byte {
	return carttest.BuildROM("POKEMON RED", 0x13, 0x05, 0x03, 1024*1024)
}

func attached(t *testing.T, rt *fakeRuntime) *Manager {
	t.Helper()
	m := New(rt)
	if err := m.AttachSurface(context.Background(), nullSurface); err != nil {
		t.Fatalf("AttachSurface: %v", err)
	}
	if s := m.State(); s != Ready {
		t.Fatalf("state after attach got %s want %s", s, Ready)
	}
	return m
}

func loaded(t *testing.T, rt *fakeRuntime, rom []byte) *Manager {
	t.Helper()
	m := attached(t, rt)
	if err := m.LoadCartridge(context.Background(), rom, "/roms/game.gb"); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	return m
}

func running(t *testing.T, rt *fakeRuntime, rom []byte) *Manager {
	t.Helper()
	m := loaded(t, rt, rom)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return m
}

func TestAttachSurface(t *testing.T) {
	ctx := context.Background()

	m := attached(t, &fakeRuntime{})
	if err := m.AttachSurface(ctx, nullSurface); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("second attach got %v want %v", err, ErrSessionNotReady)
	}
	if m.State() != Ready {
		t.Fatalf("state changed by rejected attach: %s", m.State())
	}

	m = New(&fakeRuntime{})
	if err := m.AttachSurface(ctx, nil); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("nil surface got %v want %v", err, ErrNoSurface)
	}
	if m.State() != Faulted {
		t.Fatalf("nil surface state got %s want %s", m.State(), Faulted)
	}

	m = New(&fakeRuntime{failAttach: true})
	err := m.AttachSurface(ctx, nullSurface)
	if !errors.Is(err, ErrAdapterFailure) || !errors.Is(err, errFake) {
		t.Fatalf("adapter failure got %v", err)
	}
	var aerr *AdapterError
	if !errors.As(err, &aerr) || aerr.Op != opAttach {
		t.Fatalf("adapter error not wrapped: %v", err)
	}
	if m.State() != Faulted || m.LastError() == "" {
		t.Fatalf("failed attach got state %s last error %q", m.State(), m.LastError())
	}
}

func TestLoadCartridge(t *testing.T) {
	rt := &fakeRuntime{}
	m := loaded(t, rt, romOnly())

	st := m.Status()
	if st.State != Loaded {
		t.Fatalf("state got %s want %s", st.State, Loaded)
	}
	if st.Cartridge == nil || st.Cartridge.Name != "game.gb" || st.Cartridge.Title != "TETRIS" {
		t.Fatalf("cartridge got %+v", st.Cartridge)
	}
	if st.Header == nil || st.Header.Title != "TETRIS" {
		t.Fatalf("header got %+v", st.Header)
	}
	if st.LastError != "" {
		t.Fatalf("last error not cleared: %q", st.LastError)
	}
	if rt.count("load") != 1 {
		t.Fatalf("runtime loads got %d want 1", rt.count("load"))
	}
}

func TestLoadCartridge_NotReady(t *testing.T) {
	m := New(&fakeRuntime{})
	err := m.LoadCartridge(context.Background(), romOnly(), "game.gb")
	if !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("load before attach got %v want %v", err, ErrSessionNotReady)
	}
	if m.State() != Uninitialized {
		t.Fatalf("state got %s", m.State())
	}
}

func TestLoadCartridge_Invalid(t *testing.T) {
	ctx := context.Background()
	rt := &fakeRuntime{}

	// from Ready
	m := attached(t, rt)
	bad := romOnly()
	bad[0x14D]++
	err := m.LoadCartridge(ctx, bad, "bad.gb")
	if !errors.Is(err, cart.ErrInvalidCartridge) {
		t.Fatalf("invalid load got %v want %v", err, cart.ErrInvalidCartridge)
	}
	if m.State() != Ready || m.LastError() == "" {
		t.Fatalf("after invalid load got state %s last error %q", m.State(), m.LastError())
	}
	if rt.count("load") != 0 {
		t.Fatalf("invalid image reached the runtime")
	}

	// from Paused, the previous cartridge stays
	m = running(t, rt, romOnly())
	if err := m.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := m.LoadCartridge(ctx, make([]byte, 0x100), "short.gb"); !errors.Is(err, cart.ErrInvalidCartridge) {
		t.Fatalf("undersized load got %v", err)
	}
	st := m.Status()
	if st.State != Paused || st.Cartridge == nil || st.Cartridge.Title != "TETRIS" {
		t.Fatalf("after invalid load got %+v", st)
	}
}

func TestLoadCartridge_AdapterFailure(t *testing.T) {
	rt := &fakeRuntime{failLoad: true}
	m := attached(t, rt)
	err := m.LoadCartridge(context.Background(), romOnly(), "game.gb")
	if !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("load got %v want %v", err, ErrAdapterFailure)
	}
	if m.State() != Ready || m.LastError() == "" {
		t.Fatalf("after failed load got state %s last error %q", m.State(), m.LastError())
	}
}

func TestLoadCartridge_Concurrent(t *testing.T) {
	ctx := context.Background()
	rt := &fakeRuntime{
		loadEntered: make(chan struct{}),
		loadRelease: make(chan struct{}),
	}
	m := attached(t, rt)

	done := make(chan error)
	go func() {
		done <- m.LoadCartridge(ctx, romOnly(), "first.gb")
	}()
	<-rt.loadEntered

	if m.State() != Loading {
		t.Fatalf("state during load got %s want %s", m.State(), Loading)
	}
	if err := m.LoadCartridge(ctx, batteryROM(), "second.gb"); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("second load got %v want %v", err, ErrOperationInProgress)
	}
	if err := m.Start(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("start during load got %v want %v", err, ErrSessionNotReady)
	}
	if err := m.Pause(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("pause during load got %v want %v", err, ErrSessionNotReady)
	}
	if m.SetInput(adapter.Joypad{A: true}) {
		t.Fatalf("input forwarded during load")
	}

	close(rt.loadRelease)
	if err := <-done; err != nil {
		t.Fatalf("first load: %v", err)
	}

	st := m.Status()
	if st.State != Loaded || st.Cartridge == nil || st.Cartridge.Name != "first.gb" {
		t.Fatalf("after load got %+v", st)
	}
	if st.LastError != "" {
		t.Fatalf("last error not cleared: %q", st.LastError)
	}
	if rt.count("load") != 1 {
		t.Fatalf("runtime loads got %d want 1", rt.count("load"))
	}
}

func TestStartPause(t *testing.T) {
	ctx := context.Background()
	rt := &fakeRuntime{}
	m := attached(t, rt)

	if err := m.Start(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("start in Ready got %v want %v", err, ErrSessionNotReady)
	}
	if m.State() != Ready {
		t.Fatalf("state changed by rejected start: %s", m.State())
	}
	if err := m.Pause(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("pause in Ready got %v", err)
	}

	if err := m.LoadCartridge(ctx, romOnly(), "game.gb"); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	for _, step := range []struct {
		op   func(context.Context) error
		want State
	}{
		{m.Start, Running},
		{m.Pause, Paused},
		{m.Start, Running},
	} {
		if err := step.op(ctx); err != nil {
			t.Fatalf("transition to %s: %v", step.want, err)
		}
		if m.State() != step.want {
			t.Fatalf("state got %s want %s", m.State(), step.want)
		}
	}

	if err := m.Start(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("start while running got %v", err)
	}
}

func TestStart_Faults(t *testing.T) {
	ctx := context.Background()

	m := loaded(t, &fakeRuntime{notLoaded: true}, romOnly())
	if err := m.Start(ctx); !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("start without core got %v", err)
	}
	if m.State() != Faulted {
		t.Fatalf("state got %s want %s", m.State(), Faulted)
	}

	m = loaded(t, &fakeRuntime{failStart: true}, romOnly())
	if err := m.Start(ctx); !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("failing start got %v", err)
	}
	if m.State() != Faulted {
		t.Fatalf("state got %s want %s", m.State(), Faulted)
	}

	// nothing but teardown leaves Faulted
	if err := m.LoadCartridge(ctx, romOnly(), "game.gb"); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("load while faulted got %v", err)
	}
	m.Teardown(ctx)
	if m.State() != Disposed {
		t.Fatalf("state got %s want %s", m.State(), Disposed)
	}
}

func TestPause_Fault(t *testing.T) {
	rt := &fakeRuntime{}
	m := running(t, rt, romOnly())
	rt.failStop = true
	if err := m.Pause(context.Background()); !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("pause got %v", err)
	}
	if m.State() != Faulted {
		t.Fatalf("state got %s want %s", m.State(), Faulted)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	rt := &fakeRuntime{ram: make([]byte, 32*1024)}
	m := running(t, rt, batteryROM())

	rt.ram[0] = 0x42
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if m.State() != Loaded {
		t.Fatalf("state after reset got %s want %s", m.State(), Loaded)
	}

	// stop, reset, replay, restore save memory
	if rt.count("stop") != 1 || rt.count("reset") != 1 || rt.count("load") != 2 || rt.count("write") != 1 {
		t.Fatalf("runtime calls got %v", rt.calls)
	}
	if !bytes.Equal(rt.image, batteryROM()) {
		t.Fatalf("reset did not replay the cartridge image")
	}
	if rt.ram[0] != 0x42 {
		t.Fatalf("save memory lost across reset")
	}

	// reset from Loaded does not stop
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if rt.count("stop") != 1 {
		t.Fatalf("reset from Loaded stopped the runtime")
	}

	if err := attached(t, &fakeRuntime{}).Reset(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("reset without cartridge got %v", err)
	}
}

func TestReset_Fault(t *testing.T) {
	rt := &fakeRuntime{}
	m := running(t, rt, romOnly())
	rt.failReset = true
	if err := m.Reset(context.Background()); !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("reset got %v", err)
	}
	if m.State() != Faulted || m.LastError() == "" {
		t.Fatalf("after failed reset got state %s last error %q", m.State(), m.LastError())
	}
}

func TestCaptureSave(t *testing.T) {
	ctx := context.Background()

	// no battery: absent, runtime not consulted
	rt := &fakeRuntime{}
	m := running(t, rt, romOnly())
	data, ok, err := m.CaptureSave(ctx)
	if err != nil || ok || data != nil {
		t.Fatalf("capture without battery got %v %v %v", data, ok, err)
	}
	if rt.count("read") != 0 {
		t.Fatalf("runtime consulted for a cartridge without battery")
	}

	rt = &fakeRuntime{ram: []byte{1, 2, 3}}
	m = running(t, rt, batteryROM())
	rt.ram = []byte{1, 2, 3}
	data, ok, err = m.CaptureSave(ctx)
	if err != nil || !ok || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("capture got %v %v %v", data, ok, err)
	}

	// failures go to the caller only
	rt.failRead = true
	if _, _, err := m.CaptureSave(ctx); !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("failing capture got %v", err)
	}
	if m.State() != Running || m.LastError() != "" {
		t.Fatalf("failed capture changed session: %s %q", m.State(), m.LastError())
	}

	if _, _, err := loaded(t, &fakeRuntime{}, batteryROM()).CaptureSave(ctx); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("capture in Loaded got %v", err)
	}
}

func TestRestoreSave(t *testing.T) {
	ctx := context.Background()

	rt := &fakeRuntime{}
	m := loaded(t, rt, batteryROM())
	if err := m.RestoreSave(ctx, []byte{9, 8, 7}); err != nil {
		t.Fatalf("RestoreSave: %v", err)
	}
	if !bytes.Equal(rt.ram, []byte{9, 8, 7}) {
		t.Fatalf("save memory got %v", rt.ram)
	}
	if m.State() != Loaded {
		t.Fatalf("state changed by restore: %s", m.State())
	}

	m = loaded(t, &fakeRuntime{}, romOnly())
	if err := m.RestoreSave(ctx, []byte{1}); !errors.Is(err, ErrNoSaveMemory) {
		t.Fatalf("restore without battery got %v", err)
	}

	rt = &fakeRuntime{failWrite: true}
	m = loaded(t, rt, batteryROM())
	if err := m.RestoreSave(ctx, []byte{1}); !errors.Is(err, ErrAdapterFailure) {
		t.Fatalf("failing restore got %v", err)
	}
	if m.State() != Loaded || m.LastError() != "" {
		t.Fatalf("failed restore changed session: %s %q", m.State(), m.LastError())
	}
}

func TestTeardown(t *testing.T) {
	ctx := context.Background()
	rt := &fakeRuntime{failStop: true, failClose: true}
	m := running(t, rt, romOnly())

	m.Teardown(ctx)
	st := m.Status()
	if st.State != Disposed || st.Cartridge != nil {
		t.Fatalf("after teardown got %+v", st)
	}
	if rt.count("stop") != 1 || !rt.closed {
		t.Fatalf("teardown calls got %v", rt.calls)
	}

	// terminal
	m.Teardown(ctx)
	if rt.count("close") != 1 {
		t.Fatalf("second teardown released the runtime again")
	}
	if err := m.AttachSurface(ctx, nullSurface); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("attach after teardown got %v", err)
	}
	if m.State() != Disposed {
		t.Fatalf("state got %s want %s", m.State(), Disposed)
	}

	// teardown from Uninitialized
	m = New(&fakeRuntime{})
	m.Teardown(ctx)
	if m.State() != Disposed {
		t.Fatalf("state got %s want %s", m.State(), Disposed)
	}
}

func TestSetInput(t *testing.T) {
	ctx := context.Background()
	rt := &fakeRuntime{}
	m := loaded(t, rt, romOnly())

	if m.SetInput(adapter.Joypad{Up: true}) {
		t.Fatalf("input forwarded while Loaded")
	}
	_ = m.Start(ctx)
	if !m.SetInput(adapter.Joypad{Up: true}) {
		t.Fatalf("input not forwarded while Running")
	}
	_ = m.Pause(ctx)
	if m.SetInput(adapter.Joypad{Down: true}) {
		t.Fatalf("input forwarded while Paused")
	}
	if len(rt.input) != 1 || !rt.input[0].Up {
		t.Fatalf("runtime input got %v", rt.input)
	}
}

func TestNotices(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var got []Notice
	rt := &fakeRuntime{ram: make([]byte, 16)}
	m := New(rt)
	m.SetNotifier(NotifierFunc(func(n Notice, s Status) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n)
	}))

	_ = m.AttachSurface(ctx, nullSurface)
	bad := romOnly()
	bad[0x14D]++
	_ = m.LoadCartridge(ctx, bad, "bad.gb")
	_ = m.LoadCartridge(ctx, batteryROM(), "red.gb")
	_ = m.Start(ctx)
	_, _, _ = m.CaptureSave(ctx)
	m.Teardown(ctx)

	want := []Notice{
		{NoticeStateChanged, "Initializing"},
		{NoticeStateChanged, "Ready"},
		{NoticeStateChanged, "Loading"},
		{NoticeStateChanged, "Ready"},
		{NoticeROMError, ""},
		{NoticeStateChanged, "Loading"},
		{NoticeStateChanged, "Loaded"},
		{NoticeROMLoaded, "POKEMON RED"},
		{NoticeStateChanged, "Running"},
		{NoticeSaveCreated, "POKEMON RED"},
		{NoticeStateChanged, "Disposed"},
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("notices got %v want %v", got, want)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind {
			t.Fatalf("notice %d got %s want %s", i, got[i].Kind, want[i].Kind)
		}
		// rom error details carry the cause, which is not compared
		if want[i].Kind != NoticeROMError && got[i].Detail != want[i].Detail {
			t.Fatalf("notice %d got %q want %q", i, got[i].Detail, want[i].Detail)
		}
	}
}
