// Package cpu holds the architectural state of a single ARMv6-M
// (Thumb-only) core: the general register file, APSR condition flags,
// the IT-block state used for conditional execution, and the
// branch-taken signal execute units raise to tell the driver PC has
// already been updated non-sequentially.
package cpu

// Register indices. r13 is SP, r14 is LR, r15 is PC.
const (
	SP = 13
	LR = 14
	PC = 15
)

// APSR holds the four condition flags visible to Thumb conditional
// execution and data-processing instructions.
type APSR struct {
	N bool // negative
	Z bool // zero
	C bool // carry
	V bool // overflow
}

// ITState is the 8-bit ITSTATE register: the top nibble is the
// condition code that gates the current instruction, the bottom
// nibble is the shift-register mask that tracks how many more
// instructions the active IT block covers. A zero value means no IT
// block is active, matching the architectural reset value.
type ITState struct {
	state uint8
}

// Active reports whether an IT block is currently in effect.
func (it ITState) Active() bool {
	return it.state&0x0F != 0
}

// Cond returns the 4-bit condition code that gates the instruction
// about to execute. Only meaningful while Active().
func (it ITState) Cond() uint8 {
	return it.state >> 4
}

// Set starts a new IT block with the given first condition and mask,
// as decoded from an IT instruction's firstcond:mask fields.
func (it *ITState) Set(firstcond, mask uint8) {
	it.state = firstcond<<4 | mask
}

// Advance shifts the mask forward by one instruction slot, the way
// ITAdvance() does in the architecture reference: once only the
// block's terminating marker bit remains, the block ends; otherwise
// the low 5 bits (the next condition bit plus the remaining mask)
// shift left by one.
func (it *ITState) Advance() {
	if it.state&0x07 == 0 {
		it.state = 0
		return
	}
	it.state = (it.state &^ 0x1F) | ((it.state << 1) & 0x1F)
}

// CPU is the full architectural state threaded through decode and
// execute. It carries no behavior beyond small accessors so that two
// independent simulators can coexist in one process.
type CPU struct {
	R [16]uint32 // r0-r15; R[PC] is always even, T-bit stripped on write
	Flags APSR
	IT ITState

	// BranchTaken is set by an execute unit when it has already
	// updated R[PC] to a non-sequential target. The driver checks and
	// clears this after each committed instruction instead of adding
	// the instruction's size to PC.
	BranchTaken bool
}

// New returns a CPU with all registers zeroed.
func New() *CPU {
	return &CPU{}
}

// SetPC sets the program counter, stripping the Thumb T-bit (bit 0) as
// the architecture requires of any branch target.
func (c *CPU) SetPC(target uint32) {
	c.R[PC] = target &^ 1
	c.BranchTaken = true
}

// Branch is an alias for SetPC used by execute units that compute a
// branch target directly, kept distinct for readability at call sites.
func (c *CPU) Branch(target uint32) {
	c.SetPC(target)
}
