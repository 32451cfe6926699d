package exec

import (
	"github.com/tinypower/harvestsim/mem"
	"github.com/tinypower/harvestsim/simerr"
)

// readByte synthesizes a byte load from the word-aligned Memory
// interface: the effective address is floored to a 4-byte boundary,
// the word is read, and the target byte is extracted by right-shifting
// (addr mod 4)*8 bits and masking to 8 bits.
func readByte(m *mem.Memory, addr uint32) (uint8, error) {
	word, err := m.Load(addr &^ 3)
	if err != nil {
		return 0, err
	}
	shift := (addr % 4) * 8
	return uint8(word >> shift), nil
}

// writeByte synthesizes a byte store: the containing word is read, the
// target byte lane is cleared and the new byte inserted at
// (addr mod 4)*8, then the word is written back.
func writeByte(m *mem.Memory, addr uint32, v uint8) error {
	base := addr &^ 3
	word, err := m.Load(base)
	if err != nil {
		return err
	}
	shift := (addr % 4) * 8
	word = (word &^ (0xFF << shift)) | uint32(v)<<shift
	return m.Store(base, word)
}

// readHalf synthesizes a halfword load. addr must be 2-byte aligned;
// (addr mod 4) selects the upper or lower halfword of the containing
// word. An address with (addr mod 4) odd is a MemoryFault — the
// alignment-below-2 case the architecture leaves undefined is treated
// here as a fault rather than silently reading the lower halfword.
func readHalf(m *mem.Memory, addr uint32) (uint16, error) {
	if addr%2 != 0 {
		return 0, &simerr.MemoryFault{Addr: addr, Op: "load"}
	}
	word, err := m.Load(addr &^ 3)
	if err != nil {
		return 0, err
	}
	if addr%4&2 != 0 {
		return uint16(word >> 16), nil
	}
	return uint16(word), nil
}

// writeHalf synthesizes a halfword store, the mirror of readHalf.
func writeHalf(m *mem.Memory, addr uint32, v uint16) error {
	if addr%2 != 0 {
		return &simerr.MemoryFault{Addr: addr, Op: "store"}
	}
	base := addr &^ 3
	word, err := m.Load(base)
	if err != nil {
		return err
	}
	if addr%4&2 != 0 {
		word = (word &^ 0xFFFF0000) | uint32(v)<<16
	} else {
		word = (word &^ 0x0000FFFF) | uint32(v)
	}
	return m.Store(base, word)
}
