package cart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	headerStart = 0x0100
	headerEnd   = 0x014F

	titleStart    = 0x0134
	titleEnd      = 0x0143
	titleMaxChars = 11

	checksumStart = 0x0134
	checksumEnd   = 0x014C
	checksumAddr  = 0x014D

	// MinParseLen is the shortest buffer ParseHeader accepts (through 0x014D).
	MinParseLen = 0x014E
	// MinImageLen is the smallest valid cartridge: one 32 KiB bank pair.
	MinImageLen = 0x8000

	// UnknownTitle is reported when the title field holds no printable text.
	UnknownTitle = "Unknown Game"
)

var (
	ErrTruncatedBuffer  = errors.New("buffer too short to contain a cartridge header")
	ErrInvalidCartridge = errors.New("invalid cartridge image")
)

type Header struct {
	EntryPoint     [4]byte // 0x0100-0x0103
	Title          string  // printable ASCII, trimmed
	CGBFlag        byte    // 0x0143
	SGBFlag        byte    // 0x0146
	CartType       byte    // 0x0147
	ROMSizeCode    byte    // 0x0148
	RAMSizeCode    byte    // 0x0149
	Destination    byte    // 0x014A
	OldLicensee    byte    // 0x014B
	ROMVersion     byte    // 0x014C
	HeaderChecksum byte    // 0x014D, as stored
	GlobalChecksum uint16  // 0x014E-0x014F, zero when the buffer stops at 0x014D

	// Decoded helpers (for logs and the UI)
	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
}

// Metadata is the subset of the header shown in ROM listings.
type Metadata struct {
	Title     string
	SizeBytes int
}

// ParseHeader decodes the cartridge header. It only fails when the buffer is
// too short to reach the header checksum byte; any other content yields a
// header, however meaningless.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < MinParseLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedBuffer, len(rom))
	}

	h := &Header{
		Title:          parseTitle(rom),
		CGBFlag:        rom[0x0143],
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[checksumAddr],
	}
	copy(h.EntryPoint[:], rom[headerStart:headerStart+4])
	if len(rom) > headerEnd {
		h.GlobalChecksum = binary.BigEndian.Uint16(rom[0x014E : headerEnd+1])
	}

	h.ROMSizeBytes, h.ROMBanks = decodeROMSize(h.ROMSizeCode)
	h.RAMSizeBytes = decodeRAMSize(h.CartType, h.RAMSizeCode)
	h.CartTypeStr = cartTypeString(h.CartType)

	return h, nil
}

// HasBattery reports whether the cartridge type declares battery-backed RAM.
func (h *Header) HasBattery() bool {
	return hasBattery(h.CartType)
}

// IsCGB reports whether the cartridge supports or requires Game Boy Color hardware.
func (h *Header) IsCGB() bool {
	return h.CGBFlag&0x80 != 0
}

// HeaderChecksum reproduces the boot ROM check over 0x0134-0x014C. Buffers
// shorter than the checksummed range are treated as zero-padded.
func HeaderChecksum(rom []byte) byte {
	var sum byte
	for addr := checksumStart; addr <= checksumEnd; addr++ {
		var b byte
		if addr < len(rom) {
			b = rom[addr]
		}
		sum = sum - b - 1
	}
	return sum
}

// IsValidCartridge is true for images of at least one 32 KiB bank whose
// header checksum matches.
func IsValidCartridge(rom []byte) bool {
	return Validate(rom) == nil
}

// Validate is IsValidCartridge with the reason for rejection.
func Validate(rom []byte) error {
	if len(rom) < MinImageLen {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidCartridge, len(rom), MinImageLen)
	}
	if got, want := HeaderChecksum(rom), rom[checksumAddr]; got != want {
		return fmt.Errorf("%w: header checksum %#02x, header says %#02x", ErrInvalidCartridge, got, want)
	}
	return nil
}

func ExtractMetadata(rom []byte) Metadata {
	return Metadata{Title: parseTitle(rom), SizeBytes: len(rom)}
}

// parseTitle reads at most 11 characters from the title field, stopping at
// the first NUL or non-printable byte.
func parseTitle(rom []byte) string {
	var sb strings.Builder
	for addr := titleStart; addr <= titleEnd && addr < len(rom); addr++ {
		c := rom[addr]
		if c < 0x20 || c > 0x7E {
			break
		}
		sb.WriteByte(c)
		if sb.Len() == titleMaxChars {
			break
		}
	}
	title := strings.TrimRight(sb.String(), " ")
	if title == "" {
		return UnknownTitle
	}
	return title
}

func decodeROMSize(code byte) (size, banks int) {
	switch code {
	case 0x00:
		return 32 * 1024, 2
	case 0x01:
		return 64 * 1024, 4
	case 0x02:
		return 128 * 1024, 8
	case 0x03:
		return 256 * 1024, 16
	case 0x04:
		return 512 * 1024, 32
	case 0x05:
		return 1 * 1024 * 1024, 64
	case 0x06:
		return 2 * 1024 * 1024, 128
	case 0x07:
		return 4 * 1024 * 1024, 256
	case 0x08:
		return 8 * 1024 * 1024, 512
	case 0x52:
		return 1152 * 1024, 72
	case 0x53:
		return 1280 * 1024, 80
	case 0x54:
		return 1536 * 1024, 96
	default:
		return 0, 0
	}
}

func decodeRAMSize(cartType, code byte) int {
	// MBC2 has 512 half-bytes built in and reports code 0
	if cartType == 0x05 || cartType == 0x06 {
		return 512
	}
	switch code {
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}

func hasBattery(code byte) bool {
	switch code {
	case 0x03, 0x06, 0x09, 0x0D, 0x0F, 0x10, 0x13, 0x1B, 0x1E, 0x22, 0xFF:
		return true
	}
	return false
}

func cartTypeString(code byte) string {
	switch code {
	case 0x00:
		return "ROM ONLY"
	case 0x01:
		return "MBC1"
	case 0x02:
		return "MBC1+RAM"
	case 0x03:
		return "MBC1+RAM+BATTERY"
	case 0x05:
		return "MBC2"
	case 0x06:
		return "MBC2+BATTERY"
	case 0x08:
		return "ROM+RAM"
	case 0x09:
		return "ROM+RAM+BATTERY"
	case 0x0B, 0x0C, 0x0D:
		return "MMM01 (variants)"
	case 0x0F:
		return "MBC3+TIMER+BATTERY"
	case 0x10:
		return "MBC3+TIMER+RAM+BATTERY"
	case 0x11:
		return "MBC3"
	case 0x12:
		return "MBC3+RAM"
	case 0x13:
		return "MBC3+RAM+BATTERY"
	case 0x19, 0x1A, 0x1C, 0x1D:
		return "MBC5 (variants)"
	case 0x1B:
		return "MBC5+RAM+BATTERY"
	case 0x1E:
		return "MBC5+RUMBLE+RAM+BATTERY"
	case 0x22:
		return "MBC7+SENSOR+RUMBLE+RAM+BATTERY"
	case 0xFC:
		return "POCKET CAMERA"
	case 0xFF:
		return "HuC1+RAM+BATTERY"
	default:
		return "Other/unknown"
	}
}
