package session

import (
	"context"
	"errors"
	"sync"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/adapter"
)

var errFake = errors.New("fake runtime failure")

// fakeRuntime records calls and fails on request. When loadEntered is set,
// LoadImage signals on it and then waits for loadRelease.
type fakeRuntime struct {
	mu sync.Mutex

	calls  []string
	loaded bool
	image  []byte
	ram    []byte
	input  []adapter.Joypad
	closed bool

	failAttach, failLoad, failStart, failStop, failReset, failRead, failWrite, failClose bool
	notLoaded                                                                            bool

	loadEntered chan struct{}
	loadRelease chan struct{}
}

func (f *fakeRuntime) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRuntime) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeRuntime) AttachSurface(ctx context.Context, s adapter.Surface) error {
	f.record("attach")
	if f.failAttach {
		return errFake
	}
	return nil
}

func (f *fakeRuntime) LoadImage(ctx context.Context, rom []byte) error {
	f.record("load")
	if f.loadEntered != nil {
		f.loadEntered <- struct{}{}
		<-f.loadRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad {
		return errFake
	}
	f.loaded = !f.notLoaded
	f.image = rom
	// a freshly mounted cartridge starts with cleared RAM
	if f.ram != nil {
		f.ram = make([]byte, len(f.ram))
	}
	return nil
}

func (f *fakeRuntime) Start(ctx context.Context) error {
	f.record("start")
	if f.failStart {
		return errFake
	}
	return nil
}

func (f *fakeRuntime) Stop(ctx context.Context) error {
	f.record("stop")
	if f.failStop {
		return errFake
	}
	return nil
}

func (f *fakeRuntime) ResetCore(ctx context.Context) error {
	f.record("reset")
	if f.failReset {
		return errFake
	}
	return nil
}

func (f *fakeRuntime) CoreLoaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *fakeRuntime) ReadSaveMemory() ([]byte, error) {
	f.record("read")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return nil, errFake
	}
	if f.ram == nil {
		return nil, nil
	}
	return append([]byte(nil), f.ram...), nil
}

func (f *fakeRuntime) WriteSaveMemory(data []byte) error {
	f.record("write")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errFake
	}
	f.ram = append([]byte(nil), data...)
	return nil
}

func (f *fakeRuntime) SetInputState(j adapter.Joypad) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = append(f.input, j)
}

func (f *fakeRuntime) Close() error {
	f.record("close")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.failClose {
		return errFake
	}
	return nil
}
