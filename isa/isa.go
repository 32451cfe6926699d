// Package isa defines the closed set of ARMv6-M (Thumb) opcode tags
// this simulator supports and decodes raw Thumb encodings into
// Instruction records.
package isa

// Op is a closed enumeration of the ARMv6-M Thumb instruction subset
// this simulator decodes and executes.
type Op uint8

// Opcode tags. Unrecognized encodings never produce one of these; they
// cause the decoder to signal a DecodeFault instead.
const (
	OpUnknown Op = iota

	// Data processing.
	OpAdd
	OpAddImm
	OpSub
	OpSubImm
	OpMov
	OpMovImm
	OpCmp
	OpCmpImm
	OpCmn
	OpAnd
	OpOrr
	OpEor
	OpMvn
	OpMul
	OpLsl
	OpLslImm
	OpLsr
	OpLsrImm
	OpAsr
	OpAsrImm
	OpRor
	OpAdc
	OpSbc
	OpBic
	OpTst
	OpNeg

	// Memory.
	OpLdrI
	OpLdrR
	OpLdrSP
	OpLdrLit
	OpLdrbI
	OpLdrbR
	OpLdrhI
	OpLdrhR
	OpLdrsb
	OpLdrsh
	OpStrI
	OpStrR
	OpStrSP
	OpStrbI
	OpStrbR
	OpStrhI
	OpStrhR

	// Multi-memory.
	OpLdm
	OpStm
	OpPush
	OpPop

	// Branches.
	OpB
	OpBCond
	OpBl
	OpBlx
	OpBx

	// Miscellaneous.
	OpNop
	OpSvc
	OpIt
	OpCps
	OpSev
	OpWfi
	OpWfe
	OpMrs
	OpMsr
	OpRev
	OpRev16
	OpRevsh
	OpSxtb
	OpSxth
	OpUxtb
	OpUxth
)

// Cond is a Thumb 4-bit branch condition code.
type Cond uint8

// Condition codes used by conditional branches.
const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondCS Cond = 0x2
	CondCC Cond = 0x3
	CondMI Cond = 0x4
	CondPL Cond = 0x5
	CondVS Cond = 0x6
	CondVC Cond = 0x7
	CondHI Cond = 0x8
	CondLS Cond = 0x9
	CondGE Cond = 0xA
	CondLT Cond = 0xB
	CondGT Cond = 0xC
	CondLE Cond = 0xD
	CondAL Cond = 0xE
)

// Instruction is a decoded record. It is produced once by the decoder,
// consumed once by the matching execute unit, and never persisted.
type Instruction struct {
	Op   Op
	Size uint8 // 2 or 4 bytes

	Rd, Rn, Rm uint8
	Imm        uint32
	Shift      uint8

	// RegList is the r0-r7 bitmap used by LDM/STM/PUSH/POP.
	RegList uint8
	// ExtraReg is true when PUSH also stores LR, or POP also loads PC.
	ExtraReg bool

	// SetFlags is true for the "S" forms that update APSR.
	SetFlags bool

	Cond Cond

	// BranchOffset is the signed, already-scaled byte offset for b/bl/bcond.
	BranchOffset int32
}
