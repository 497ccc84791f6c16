package ui

import "github.com/FabianRolfMatthiasNoll/DeckBoy/internal/saves"

// Config contains window related settings.
type Config struct {
	Title         string // window title
	Scale         int    // integer upscaling factor
	ROMsDir       string // directory shown in the ROM menu
	ScreenshotDir string // where F12 writes screenshots
	Slots         int    // number of save slots offered, at most saves.MaxSlots
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "DeckBoy"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = "."
	}
	if c.Slots <= 0 {
		c.Slots = 4
	}
	if c.Slots > saves.MaxSlots {
		c.Slots = saves.MaxSlots
	}
}
