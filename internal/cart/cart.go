package cart

import (
	"path/filepath"
	"strings"
)

// Summary describes a cartridge image found on disk. Summaries are values;
// a rescan replaces them rather than updating them.
type Summary struct {
	Name      string // file name
	FullPath  string
	SizeBytes int
	Title     string // empty when the image could not be parsed
}

// Summarize builds the catalog entry for an image read from path.
func Summarize(path string, rom []byte) Summary {
	s := Summary{
		Name:      filepath.Base(path),
		FullPath:  path,
		SizeBytes: len(rom),
	}
	if len(rom) >= MinParseLen {
		s.Title = ExtractMetadata(rom).Title
	}
	return s
}

// DisplayName is the label shown in ROM lists: the header title, or the
// upper-cased file stem when the header carries no usable title.
func (s Summary) DisplayName() string {
	if s.Title != "" && s.Title != UnknownTitle {
		return s.Title
	}
	stem := strings.TrimSuffix(s.Name, filepath.Ext(s.Name))
	if stem == "" {
		return UnknownTitle
	}
	return strings.ToUpper(stem)
}

// Stem returns the full path without its extension. Battery saves and save
// slots are named after it.
func (s Summary) Stem() string {
	return strings.TrimSuffix(s.FullPath, filepath.Ext(s.FullPath))
}
