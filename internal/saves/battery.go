// Package saves persists cartridge save memory. Battery RAM is written next
// to the cartridge image, as other emulators do, so that it can be shared
// with them. Save slots are kept in a separate directory.
package saves

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SavPath returns the battery save file for the cartridge at romPath.
func SavPath(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
}

// ReadBattery loads the battery save for the cartridge at romPath. The
// boolean is false if there is no save file.
func ReadBattery(romPath string) ([]byte, bool, error) {
	data, err := os.ReadFile(SavPath(romPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("saves: %w", err)
	}
	return data, true, nil
}

// WriteBattery stores the battery save for the cartridge at romPath. The
// previous file is only replaced once the new one has been written
// completely.
func WriteBattery(romPath string, data []byte) error {
	return writeAtomic(SavPath(romPath), data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("saves: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saves: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saves: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saves: %w", err)
	}
	return nil
}
