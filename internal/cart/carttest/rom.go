// Package carttest builds synthetic cartridge images for tests.
package carttest

import "encoding/binary"

// BuildROM makes a zero-filled ROM of the given size with a valid header and
// checksums. size should match the ROM size code (e.g. 64*1024 for code 0x01)
// but nothing enforces it.
func BuildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)

	// entry point: NOP; JP $0150
	copy(rom[0x0100:], []byte{0x00, 0xC3, 0x50, 0x01})

	// title 0x0134-0x0143 (16 bytes max)
	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(rom[0x0134:0x0144], tbytes)

	rom[0x0144], rom[0x0145] = '0', '1' // new licensee ("01")
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014B] = 0x33 // old licensee (use new licensee)
	rom[0x014C] = 0x01 // mask ROM version

	Fix(rom)
	return rom
}

// Fix recomputes the header and global checksums after a test edits the
// header in place.
func Fix(rom []byte) {
	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum

	if len(rom) < 0x0150 {
		return
	}
	var gsum uint16
	for i := 0; i < len(rom); i++ {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)
}
