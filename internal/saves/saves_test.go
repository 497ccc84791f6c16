package saves

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSavPath(t *testing.T) {
	for in, want := range map[string]string{
		"/roms/tetris.gb":       "/roms/tetris.sav",
		"/roms/crystal.GBC":     "/roms/crystal.sav",
		"/roms/no extension":    "/roms/no extension.sav",
		"/roms/dotted.name.gbc": "/roms/dotted.name.sav",
	} {
		if got := SavPath(in); got != want {
			t.Fatalf("SavPath(%q) got %q want %q", in, got, want)
		}
	}
}

func TestBattery(t *testing.T) {
	rom := filepath.Join(t.TempDir(), "red.gb")

	data, ok, err := ReadBattery(rom)
	if err != nil || ok || data != nil {
		t.Fatalf("missing save got %v %v %v", data, ok, err)
	}

	if err := WriteBattery(rom, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBattery: %v", err)
	}
	if err := WriteBattery(rom, []byte{4, 5}); err != nil {
		t.Fatalf("WriteBattery: %v", err)
	}
	data, ok, err = ReadBattery(rom)
	if err != nil || !ok || !bytes.Equal(data, []byte{4, 5}) {
		t.Fatalf("ReadBattery got %v %v %v", data, ok, err)
	}

	// no temporary files left behind
	entries, _ := os.ReadDir(filepath.Dir(rom))
	if len(entries) != 1 {
		t.Fatalf("directory holds %d files want 1", len(entries))
	}
}

func TestStore(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "slots"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return when }

	if _, err := st.Get("/roms/red.gb", 0); !errors.Is(err, ErrEmptySlot) {
		t.Fatalf("empty slot got %v want %v", err, ErrEmptySlot)
	}
	for _, slot := range []int{-1, MaxSlots} {
		if _, err := st.Put("/roms/red.gb", slot, nil); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("slot %d got %v want %v", slot, err, ErrInvalidSlot)
		}
	}

	if _, err := st.Put("/roms/red.gb", 3, []byte{3, 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := st.Put("/roms/red.gb", 1, []byte{1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := st.Put("/roms/blue.gb", 2, []byte{2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := st.Get("/roms/red.gb", 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got.Data, []byte{3, 3}) || got.Slot != 3 || got.ROMName != "/roms/red.gb" || !got.Timestamp.Equal(when) {
		t.Fatalf("Get got %+v", got)
	}

	list, err := st.List("/roms/red.gb")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Slot != 1 || list[1].Slot != 3 {
		t.Fatalf("List got %+v", list)
	}
}

func TestSlotPrefix(t *testing.T) {
	if got := slotPrefix("/roms/Zelda: Link's Awakening.gbc"); got != "Zelda%3A%20Link%27s%20Awakening.gbc.slot" {
		t.Fatalf("slotPrefix got %q", got)
	}

	// names that differ only in extension or punctuation keep separate slots
	for _, pair := range [][2]string{
		{"/roms/game.gb", "/roms/game.gbc"},
		{"/roms/a b.gb", "/roms/a_b.gb"},
		{"/roms/a%20b.gb", "/roms/a b.gb"},
	} {
		if slotPrefix(pair[0]) == slotPrefix(pair[1]) {
			t.Fatalf("%s and %s share slot prefix %q", pair[0], pair[1], slotPrefix(pair[0]))
		}
	}
}

func TestStore_SimilarNames(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := st.Put("/roms/game.gb", 0, []byte{1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := st.Put("/roms/game.gbc", 0, []byte{2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	for rom, want := range map[string]byte{"/roms/game.gb": 1, "/roms/game.gbc": 2} {
		rec, err := st.Get(rom, 0)
		if err != nil || len(rec.Data) != 1 || rec.Data[0] != want {
			t.Fatalf("Get(%s) got %v %v want data [%d]", rom, rec.Data, err, want)
		}
		list, err := st.List(rom)
		if err != nil || len(list) != 1 {
			t.Fatalf("List(%s) got %v %v", rom, list, err)
		}
	}
}
