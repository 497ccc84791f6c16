package saves

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
)

// MaxSlots is the number of save slots per cartridge.
const MaxSlots = 10

var (
	ErrInvalidSlot = errors.New("invalid save slot")
	ErrEmptySlot   = errors.New("save slot is empty")
)

// Slot is a saved copy of cartridge RAM.
type Slot struct {
	Timestamp time.Time `json:"timestamp"`
	ROMName   string    `json:"rom_name"`
	Slot      int       `json:"slot"`
	Data      []byte    `json:"data"`
}

// Store keeps save slots as one JSON file per cartridge and slot.
type Store struct {
	dir string

	// for tests
	now func() time.Time
}

// NewStore creates the directory if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("saves: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Put stores data in a slot, replacing its previous contents.
func (s *Store) Put(romName string, slot int, data []byte) (Slot, error) {
	if err := checkSlot(slot); err != nil {
		return Slot{}, err
	}
	rec := Slot{
		Timestamp: s.now().UTC(),
		ROMName:   romName,
		Slot:      slot,
		Data:      append([]byte(nil), data...),
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Slot{}, fmt.Errorf("saves: %w", err)
	}
	if err := writeAtomic(s.path(romName, slot), b); err != nil {
		return Slot{}, err
	}
	logger.Logf("saves", "%s slot %d: %d bytes", romName, slot, len(data))
	return rec, nil
}

// Get returns the contents of a slot.
func (s *Store) Get(romName string, slot int) (Slot, error) {
	if err := checkSlot(slot); err != nil {
		return Slot{}, err
	}
	b, err := os.ReadFile(s.path(romName, slot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Slot{}, fmt.Errorf("%w: %s slot %d", ErrEmptySlot, romName, slot)
		}
		return Slot{}, fmt.Errorf("saves: %w", err)
	}
	var rec Slot
	if err := json.Unmarshal(b, &rec); err != nil {
		return Slot{}, fmt.Errorf("saves: slot %d: %w", slot, err)
	}
	return rec, nil
}

// List returns the used slots for a cartridge in slot order. Slot files that
// cannot be read are skipped.
func (s *Store) List(romName string) ([]Slot, error) {
	prefix := slotPrefix(romName)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("saves: %w", err)
	}

	var slots []Slot
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
		if err != nil {
			continue
		}
		rec, err := s.Get(romName, n)
		if err != nil {
			logger.Logf("saves", "skipping %s: %v", name, err)
			continue
		}
		slots = append(slots, rec)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	return slots, nil
}

func (s *Store) path(romName string, slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d.json", slotPrefix(romName), slot))
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= MaxSlots {
		return fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidSlot, slot, MaxSlots-1)
	}
	return nil
}

// slot files are named after the cartridge file name, extension included.
// bytes that are awkward in a file name are written as %XX so that no two
// cartridge names share a prefix
func slotPrefix(romName string) string {
	base := filepath.Base(romName)
	var b strings.Builder
	for i := 0; i < len(base); i++ {
		c := base[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	b.WriteString(".slot")
	return b.String()
}
