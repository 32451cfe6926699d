// Package mem provides the flat word-addressable memory image the core
// executes against: RAM regions (read/write) and ROM regions
// (read-only, initialized at load). All accesses at this package's
// boundary are 4-byte aligned; sub-word loads/stores are synthesized
// by execute units via read-modify-write over this interface.
package mem

import "github.com/tinypower/harvestsim/simerr"

type region struct {
	base     uint32
	size     uint32
	writable bool
	words    []uint32
}

func (r *region) contains(addr uint32) bool {
	return addr >= r.base && addr < r.base+r.size
}

// Memory is a flat collection of RAM/ROM regions. Regions are searched
// in the order they were mapped; where two overlap, the one mapped
// first serves the access.
type Memory struct {
	regions []*region
}

// NewMemory returns an empty memory image with no mapped regions.
func NewMemory() *Memory {
	return &Memory{}
}

// MapRAM maps a writable region of size bytes (rounded up to a word)
// starting at base, zero-initialized.
func (m *Memory) MapRAM(base, size uint32) {
	words := (size + 3) / 4
	m.regions = append(m.regions, &region{
		base:     base,
		size:     words * 4,
		writable: true,
		words:    make([]uint32, words),
	})
}

// MapROM maps a read-only region starting at base, initialized from
// data. data is padded with zero bytes up to the next word boundary.
func (m *Memory) MapROM(base uint32, data []byte) {
	words := (len(data) + 3) / 4
	buf := make([]uint32, words)
	for i := 0; i < len(data); i++ {
		shift := uint(i%4) * 8
		buf[i/4] |= uint32(data[i]) << shift
	}
	m.regions = append(m.regions, &region{
		base:     base,
		size:     uint32(words) * 4,
		writable: false,
		words:    buf,
	})
}

// MapRAMInitialized maps a writable region of size bytes (rounded up
// to a word), pre-filled with data and zero-padded beyond it — used
// for a loaded segment that is both writable and carries initial
// contents (a data segment, as opposed to BSS).
func (m *Memory) MapRAMInitialized(base uint32, data []byte, size uint32) {
	if uint32(len(data)) > size {
		size = uint32(len(data))
	}
	words := (size + 3) / 4
	buf := make([]uint32, words)
	for i := 0; i < len(data); i++ {
		shift := uint(i%4) * 8
		buf[i/4] |= uint32(data[i]) << shift
	}
	m.regions = append(m.regions, &region{
		base:     base,
		size:     words * 4,
		writable: true,
		words:    buf,
	})
}

func (m *Memory) find(addr uint32) *region {
	for _, r := range m.regions {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

// Load reads the word-aligned word at addr. addr must be a multiple of
// 4; an unmapped or misaligned address is a MemoryFault.
func (m *Memory) Load(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, &simerr.MemoryFault{Addr: addr, Op: "load"}
	}
	r := m.find(addr)
	if r == nil {
		return 0, &simerr.MemoryFault{Addr: addr, Op: "load"}
	}
	return r.words[(addr-r.base)/4], nil
}

// Store writes word to the word-aligned addr. A store to a ROM region,
// an unmapped address, or a misaligned address is a MemoryFault.
func (m *Memory) Store(addr, word uint32) error {
	if addr%4 != 0 {
		return &simerr.MemoryFault{Addr: addr, Op: "store"}
	}
	r := m.find(addr)
	if r == nil || !r.writable {
		return &simerr.MemoryFault{Addr: addr, Op: "store"}
	}
	r.words[(addr-r.base)/4] = word
	return nil
}
