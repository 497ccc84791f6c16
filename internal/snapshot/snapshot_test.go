package snapshot

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func checker() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{0xFF, 0, 0, 0xFF})
			} else {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0xFF, 0xFF})
			}
		}
	}
	return img
}

func TestScale(t *testing.T) {
	src := checker()
	out := Scale(src, 3)
	if out.Bounds().Dx() != 12 || out.Bounds().Dy() != 6 {
		t.Fatalf("scaled size got %v", out.Bounds())
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 12; x++ {
			if got, want := out.RGBAAt(x, y), src.RGBAAt(x/3, y/3); got != want {
				t.Fatalf("pixel (%d,%d) got %v want %v", x, y, got, want)
			}
		}
	}
}

func TestCRC32(t *testing.T) {
	a, b := checker(), checker()
	if CRC32(a) != CRC32(b) {
		t.Fatalf("identical frames have different checksums")
	}
	b.SetRGBA(0, 0, color.RGBA{})
	if CRC32(a) == CRC32(b) {
		t.Fatalf("different frames have the same checksum")
	}

	if err := MatchCRC(0x1a2b3c4d, "1a2b3c4e"); err == nil {
		t.Fatalf("MatchCRC accepted a different checksum")
	}
	if err := MatchCRC(0x1a2b3c4d, "0x1A2B3C4D"); err != nil {
		t.Fatalf("MatchCRC: %v", err)
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := WritePNG(path, checker(), 2); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Fatalf("png size got %v", img.Bounds())
	}
}
