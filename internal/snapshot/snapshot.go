// Package snapshot writes frames to disk and fingerprints them.
package snapshot

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"
)

// CRC32 is the IEEE checksum of the frame's pixel data. Headless runs print
// it and compare it against an expected value.
func CRC32(frame *image.RGBA) uint32 {
	if frame == nil {
		return 0
	}
	return crc32.ChecksumIEEE(frame.Pix)
}

// MatchCRC compares a frame checksum with one given as hex, with or without
// a 0x prefix.
func MatchCRC(crc uint32, expect string) error {
	want := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(expect)), "0x")
	got := fmt.Sprintf("%08x", crc)
	if got != want {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
	}
	return nil
}

// Scale returns the frame enlarged by an integer factor with square pixels.
// A factor of one or less returns a copy.
func Scale(frame *image.RGBA, factor int) *image.RGBA {
	if factor < 1 {
		factor = 1
	}
	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(out, out.Bounds(), frame, b, draw.Src, nil)
	return out
}

// WritePNG saves the frame, scaled by factor, to path.
func WritePNG(path string, frame *image.RGBA, factor int) error {
	if frame == nil {
		return fmt.Errorf("snapshot: no frame")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, Scale(frame, factor)); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}
