package adapter

import (
	"image"
	"sync"
)

// FrameBuffer is a Surface that keeps the most recent frame for a consumer
// running on another goroutine. A frame presented while the consumer is
// copying the previous one is dropped.
type FrameBuffer struct {
	crit  sync.Mutex
	frame *image.RGBA
	fresh bool
	count uint64
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		frame: image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
	}
}

// Present implements the Surface interface.
func (fb *FrameBuffer) Present(frame *image.RGBA) {
	if !fb.crit.TryLock() {
		return
	}
	defer fb.crit.Unlock()
	if frame.Rect != fb.frame.Rect {
		fb.frame = image.NewRGBA(frame.Rect)
	}
	copy(fb.frame.Pix, frame.Pix)
	fb.fresh = true
	fb.count++
}

// Take calls f with the latest frame if one has arrived since the last call.
// Frames presented while f runs are dropped. Returns false if there was no
// new frame.
func (fb *FrameBuffer) Take(f func(frame *image.RGBA)) bool {
	fb.crit.Lock()
	defer fb.crit.Unlock()
	if !fb.fresh {
		return false
	}
	fb.fresh = false
	f(fb.frame)
	return true
}

// Snapshot returns a copy of the latest frame.
func (fb *FrameBuffer) Snapshot() *image.RGBA {
	fb.crit.Lock()
	defer fb.crit.Unlock()
	out := image.NewRGBA(fb.frame.Rect)
	copy(out.Pix, fb.frame.Pix)
	return out
}

// Presented returns the number of frames accepted.
func (fb *FrameBuffer) Presented() uint64 {
	fb.crit.Lock()
	defer fb.crit.Unlock()
	return fb.count
}
