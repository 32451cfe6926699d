// Package loader turns a program binary — either a flat image or an
// ELF file — into the segment list the driver maps into simulated
// memory.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/tinypower/harvestsim/mem"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultLoadAddress is the base address a flat binary is mapped at
// when no explicit base is given — the start of Cortex-M0+ flash.
const DefaultLoadAddress = 0x00000000

// DefaultRAMBase and DefaultRAMSize describe a RAM region large enough
// for a small bare-metal Thumb program's data, BSS, and stack when the
// binary itself doesn't specify one (a flat image carries no section
// headers to derive it from).
const (
	DefaultRAMBase = 0x20000000
	DefaultRAMSize = 0x8000
)

// Segment represents a loadable segment from a binary.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin. The
	// Thumb T-bit (bit 0) is stripped; callers set PC from this value
	// directly.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
	// InitialSP is the initial stack pointer value.
	InitialSP uint32
}

// LoadELF parses an ARMv6-M ELF binary and returns a Program ready for
// mapping into memory.
func LoadELF(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("not an ARM ELF file (machine type: %v)", f.Machine)
	}
	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry) &^ 1,
		InitialSP:  DefaultRAMBase + DefaultRAMSize,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}

// LoadFlat wraps a raw flat binary image as a single executable,
// read-write segment mapped at base, with execution beginning at the
// base address — the convention for a bare Thumb image with no ELF
// headers at all.
func LoadFlat(data []byte, base uint32) *Program {
	return &Program{
		EntryPoint: base,
		InitialSP:  DefaultRAMBase + DefaultRAMSize,
		Segments: []Segment{
			{
				VirtAddr: base,
				Data:     data,
				MemSize:  uint32(len(data)),
				Flags:    SegmentFlagExecute | SegmentFlagRead | SegmentFlagWrite,
			},
		},
	}
}

// MapInto installs every segment of p into m: writable segments
// (whether or not they carry initial contents) become RAM, read-only
// segments become ROM. A RAM region is always mapped at DefaultRAMBase
// for the stack and any BSS a flat image doesn't otherwise describe.
func (p *Program) MapInto(m *mem.Memory) {
	for _, seg := range p.Segments {
		if seg.Flags&SegmentFlagWrite != 0 {
			m.MapRAMInitialized(seg.VirtAddr, seg.Data, seg.MemSize)
		} else {
			m.MapROM(seg.VirtAddr, seg.Data)
		}
	}
	m.MapRAM(DefaultRAMBase, DefaultRAMSize)
}
