// Package adapter defines the contract between the session manager and an
// emulator runtime. The runtime owns instruction execution, video and audio;
// the session manager only sequences it.
//
// Runtimes are not expected to be internally synchronised. The session
// manager guarantees that at most one of AttachSurface, LoadImage, Start,
// Stop and ResetCore is in progress at any time. SetInputState may be called
// concurrently with any of them and must never block.
package adapter

import (
	"context"
	"image"
)

// Screen dimensions of the DMG LCD.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Surface receives completed frames from the runtime. Present is called once
// per frame from whatever goroutine the runtime renders on; implementations
// decide whether to drop a frame when they are still busy with the previous
// one. The frame is only valid for the duration of the call.
type Surface interface {
	Present(frame *image.RGBA)
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func(frame *image.RGBA)

func (f SurfaceFunc) Present(frame *image.RGBA) { f(frame) }

// Runtime is the emulator runtime as seen by the session manager.
type Runtime interface {
	// AttachSurface initialises the runtime and registers the frame sink.
	AttachSurface(ctx context.Context, s Surface) error

	// LoadImage mounts a cartridge image, replacing any previous one. The
	// core is left stopped.
	LoadImage(ctx context.Context, rom []byte) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// ResetCore returns the core to its power-on state. Runtimes without a
	// native reset may implement this as a no-op; the session manager always
	// follows it with a LoadImage of the same cartridge.
	ResetCore(ctx context.Context) error

	// CoreLoaded reports whether a cartridge is mounted and ready to run.
	CoreLoaded() bool

	// ReadSaveMemory returns a copy of cartridge RAM, or nil if the mounted
	// cartridge has none.
	ReadSaveMemory() ([]byte, error)

	// WriteSaveMemory replaces cartridge RAM. The data is opaque.
	WriteSaveMemory(data []byte) error

	// SetInputState replaces the complete joypad state.
	SetInputState(j Joypad)
}
