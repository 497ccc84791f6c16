// Package settings loads and stores the user's preferences.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/input"
)

// name of the directory under the user configuration directory
const appDir = "deckboy"

// Settings are the user's preferences. Zero values are replaced by defaults
// when loaded.
type Settings struct {
	ROMDirectory  string            `json:"rom_directory"`
	SaveDirectory string            `json:"save_directory"`
	DisplayScale  int               `json:"display_scale"`
	AutoSave      bool              `json:"auto_save"`
	KeyMappings   map[string]string `json:"key_mappings,omitempty"` // key name -> button name
}

// Defaults returns the settings used when there is no settings file.
func Defaults() Settings {
	s := Settings{AutoSave: true}
	s.fill()
	return s
}

// fill replaces missing or out of range values.
func (s *Settings) fill() {
	if s.ROMDirectory == "" {
		if home, err := os.UserHomeDir(); err == nil {
			s.ROMDirectory = filepath.Join(home, "Downloads")
		} else {
			s.ROMDirectory = "roms"
		}
	}
	if s.SaveDirectory == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			s.SaveDirectory = filepath.Join(dir, appDir, "saves")
		} else {
			s.SaveDirectory = "saves"
		}
	}
	if s.DisplayScale <= 0 {
		s.DisplayScale = 3
	}
	if s.DisplayScale > 8 {
		s.DisplayScale = 8
	}
}

// Keymap returns the key bindings. The default bindings are used if none
// are set.
func (s Settings) Keymap() (input.Keymap, error) {
	if len(s.KeyMappings) == 0 {
		return input.DefaultKeymap(), nil
	}
	return input.NewKeymap(s.KeyMappings)
}

// DefaultPath is the settings file in the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: %w", err)
	}
	return filepath.Join(dir, appDir, "settings.json"), nil
}

// Load reads the settings file at path. A missing file is not an error and
// gives the defaults.
func Load(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("settings: %w", err)
	}

	s := Defaults()
	if err := json.Unmarshal(b, &s); err != nil {
		return Defaults(), fmt.Errorf("settings: %s: %w", path, err)
	}
	s.fill()
	return s, nil
}

// Save writes the settings file at path, creating its directory.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o600); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
