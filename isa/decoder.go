package isa

import "github.com/tinypower/harvestsim/simerr"

// Decoder turns raw Thumb halfwords into Instruction records. It is
// table/pattern driven: the top bits of the halfword select a class,
// then class-specific bit fields extract operands.
type Decoder struct{}

// NewDecoder returns a ready-to-use Decoder. Decoder carries no state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// IsWide reports whether hw1 is the first halfword of a 32-bit
// encoding (BL, MRS, MSR), in which case the caller must fetch the
// following halfword before calling Decode.
func (d *Decoder) IsWide(hw1 uint16) bool {
	return hw1&0xF800 == 0xF000 || hw1&0xFFF8 == 0xF380 || hw1 == 0xF3EF
}

// Decode decodes a single instruction. hw2 is ignored unless IsWide(hw1)
// is true, in which case it must be the following halfword.
func (d *Decoder) Decode(pc uint32, hw1, hw2 uint16) (*Instruction, error) {
	switch {
	case d.IsWide(hw1):
		return d.decodeWide(pc, hw1, hw2)
	case isShiftImm(hw1):
		return decodeShiftImm(hw1), nil
	case isAddSubReg3(hw1):
		return decodeAddSubReg3(hw1), nil
	case isMovCmpAddSubImm8(hw1):
		return decodeMovCmpAddSubImm8(hw1), nil
	case isDPReg(hw1):
		return decodeDPReg(hw1), nil
	case isHiRegOp(hw1):
		return decodeHiRegOp(hw1), nil
	case isLdrLit(hw1):
		return decodeLdrLit(hw1), nil
	case isLoadStoreReg(hw1):
		return decodeLoadStoreReg(hw1), nil
	case isLoadStoreWordByteImm(hw1):
		return decodeLoadStoreWordByteImm(hw1), nil
	case isLoadStoreHalfImm(hw1):
		return decodeLoadStoreHalfImm(hw1), nil
	case isLoadStoreSP(hw1):
		return decodeLoadStoreSP(hw1), nil
	case isExtend(hw1):
		return decodeExtend(hw1), nil
	case isRev(hw1):
		return decodeRev(hw1), nil
	case isCps(hw1):
		return decodeCps(hw1), nil
	case isIt(hw1):
		return decodeIt(hw1), nil
	case isHint(hw1):
		return decodeHint(hw1), nil
	case isPush(hw1):
		return decodePush(hw1), nil
	case isPop(hw1):
		return decodePop(hw1), nil
	case isStm(hw1):
		return decodeStm(hw1), nil
	case isLdm(hw1):
		return decodeLdm(hw1), nil
	case isBCondOrSvc(hw1):
		return decodeBCondOrSvc(pc, hw1)
	case isB(hw1):
		return decodeB(hw1), nil
	default:
		return nil, &simerr.DecodeFault{PC: pc, Halfword: hw1}
	}
}

func bits(v uint16, hi, lo int) uint16 {
	mask := uint16((1 << (hi - lo + 1)) - 1)
	return (v >> lo) & mask
}

func signExtend32(v uint32, bitsN int) int32 {
	shift := 32 - bitsN
	return int32(v<<shift) >> shift
}

// --- shift (immediate): LSL/LSR/ASR Rd, Rm, #imm5; imm5==0 LSL is MOV ---

func isShiftImm(hw uint16) bool {
	return bits(hw, 15, 13) == 0b000 && bits(hw, 12, 11) != 0b11
}

func decodeShiftImm(hw uint16) *Instruction {
	op := bits(hw, 12, 11)
	imm5 := uint8(bits(hw, 10, 6))
	rm := uint8(bits(hw, 5, 3))
	rd := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rd, Rm: rm, Shift: imm5, SetFlags: true}
	switch op {
	case 0b00:
		inst.Op = OpLslImm
	case 0b01:
		inst.Op = OpLsrImm
	case 0b10:
		inst.Op = OpAsrImm
	}
	return inst
}

// --- add/sub register or 3-bit immediate: 0001 1 op1 op2 Rm/imm3 Rn Rd ---

func isAddSubReg3(hw uint16) bool {
	return bits(hw, 15, 9) == 0b0001100 ||
		bits(hw, 15, 9) == 0b0001101 ||
		bits(hw, 15, 9) == 0b0001110 ||
		bits(hw, 15, 9) == 0b0001111
}

func decodeAddSubReg3(hw uint16) *Instruction {
	class := bits(hw, 15, 9)
	rnm := uint8(bits(hw, 8, 6))
	rn := uint8(bits(hw, 5, 3))
	rd := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rd, Rn: rn, SetFlags: true}
	switch class {
	case 0b0001100:
		inst.Op, inst.Rm = OpAdd, rnm
	case 0b0001101:
		inst.Op, inst.Rm = OpSub, rnm
	case 0b0001110:
		inst.Op, inst.Imm = OpAddImm, uint32(rnm)
	case 0b0001111:
		inst.Op, inst.Imm = OpSubImm, uint32(rnm)
	}
	return inst
}

// --- mov/cmp/add/sub with 8-bit immediate: 001 op Rdn imm8 ---

func isMovCmpAddSubImm8(hw uint16) bool {
	return bits(hw, 15, 13) == 0b001
}

func decodeMovCmpAddSubImm8(hw uint16) *Instruction {
	op := bits(hw, 12, 11)
	rdn := uint8(bits(hw, 10, 8))
	imm8 := uint32(bits(hw, 7, 0))
	inst := &Instruction{Size: 2, Rd: rdn, Rn: rdn, Imm: imm8, SetFlags: true}
	switch op {
	case 0b00:
		inst.Op = OpMovImm
	case 0b01:
		inst.Op = OpCmpImm
	case 0b10:
		inst.Op = OpAddImm
	case 0b11:
		inst.Op = OpSubImm
	}
	return inst
}

// --- data-processing register ALU: 010000 op4 Rm Rdn ---

func isDPReg(hw uint16) bool {
	return bits(hw, 15, 10) == 0b010000
}

func decodeDPReg(hw uint16) *Instruction {
	op := bits(hw, 9, 6)
	rm := uint8(bits(hw, 5, 3))
	rdn := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rdn, Rn: rdn, Rm: rm, SetFlags: true}
	switch op {
	case 0b0000:
		inst.Op = OpAnd
	case 0b0001:
		inst.Op = OpEor
	case 0b0010:
		inst.Op = OpLsl
	case 0b0011:
		inst.Op = OpLsr
	case 0b0100:
		inst.Op = OpAsr
	case 0b0101:
		inst.Op = OpAdc
	case 0b0110:
		inst.Op = OpSbc
	case 0b0111:
		inst.Op = OpRor
	case 0b1000:
		inst.Op = OpTst
	case 0b1001:
		inst.Op = OpNeg
	case 0b1010:
		inst.Op = OpCmp
	case 0b1011:
		inst.Op = OpCmn
	case 0b1100:
		inst.Op = OpOrr
	case 0b1101:
		inst.Op = OpMul
		inst.SetFlags = false // MUL sets N,Z only; handled specially in execute
	case 0b1110:
		inst.Op = OpBic
	case 0b1111:
		inst.Op = OpMvn
	}
	return inst
}

// --- high-register operations: MOV/ADD/CMP across r0-r15, BX, BLX ---

func isHiRegOp(hw uint16) bool {
	return bits(hw, 15, 10) == 0b010001
}

func decodeHiRegOp(hw uint16) *Instruction {
	op := bits(hw, 9, 8)
	rmField := uint8(bits(hw, 6, 3))
	dBit := uint8(bits(hw, 7, 7))
	rdnField := uint8(bits(hw, 2, 0)) | dBit<<3

	switch op {
	case 0b00: // ADD Rdn, Rm (high registers); setflags=false
		return &Instruction{Size: 2, Op: OpAdd, Rd: rdnField, Rn: rdnField, Rm: rmField}
	case 0b01: // CMP Rn, Rm (high registers)
		return &Instruction{Size: 2, Op: OpCmp, Rn: rdnField, Rm: rmField, SetFlags: true}
	case 0b10: // MOV Rd, Rm (high registers)
		return &Instruction{Size: 2, Op: OpMov, Rd: rdnField, Rm: rmField}
	default: // BX / BLX Rm
		lBit := bits(hw, 7, 7)
		if lBit == 1 {
			return &Instruction{Size: 2, Op: OpBlx, Rm: rmField}
		}
		return &Instruction{Size: 2, Op: OpBx, Rm: rmField}
	}
}

// --- PC-relative literal load: 01001 Rt imm8 ---

func isLdrLit(hw uint16) bool {
	return bits(hw, 15, 11) == 0b01001
}

func decodeLdrLit(hw uint16) *Instruction {
	rt := uint8(bits(hw, 10, 8))
	imm8 := uint32(bits(hw, 7, 0))
	return &Instruction{Size: 2, Op: OpLdrLit, Rd: rt, Imm: imm8 * 4}
}

// --- register-offset load/store: 0101 op3 Rm Rn Rt ---

func isLoadStoreReg(hw uint16) bool {
	return bits(hw, 15, 12) == 0b0101
}

func decodeLoadStoreReg(hw uint16) *Instruction {
	op3 := bits(hw, 11, 9)
	rm := uint8(bits(hw, 8, 6))
	rn := uint8(bits(hw, 5, 3))
	rt := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rt, Rn: rn, Rm: rm}
	switch op3 {
	case 0b000:
		inst.Op = OpStrR
	case 0b001:
		inst.Op = OpStrhR
	case 0b010:
		inst.Op = OpStrbR
	case 0b011:
		inst.Op = OpLdrsb
	case 0b100:
		inst.Op = OpLdrR
	case 0b101:
		inst.Op = OpLdrhR
	case 0b110:
		inst.Op = OpLdrbR
	case 0b111:
		inst.Op = OpLdrsh
	}
	return inst
}

// --- word/byte immediate-offset load/store: 011 B L imm5 Rn Rt ---

func isLoadStoreWordByteImm(hw uint16) bool {
	return bits(hw, 15, 13) == 0b011
}

func decodeLoadStoreWordByteImm(hw uint16) *Instruction {
	isByte := bits(hw, 12, 12) == 1
	isLoad := bits(hw, 11, 11) == 1
	imm5 := uint32(bits(hw, 10, 6))
	rn := uint8(bits(hw, 5, 3))
	rt := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rt, Rn: rn}
	switch {
	case isByte && isLoad:
		inst.Op, inst.Imm = OpLdrbI, imm5
	case isByte && !isLoad:
		inst.Op, inst.Imm = OpStrbI, imm5
	case !isByte && isLoad:
		inst.Op, inst.Imm = OpLdrI, imm5*4
	default:
		inst.Op, inst.Imm = OpStrI, imm5*4
	}
	return inst
}

// --- halfword immediate-offset load/store: 1000 L imm5 Rn Rt ---

func isLoadStoreHalfImm(hw uint16) bool {
	return bits(hw, 15, 12) == 0b1000
}

func decodeLoadStoreHalfImm(hw uint16) *Instruction {
	isLoad := bits(hw, 11, 11) == 1
	imm5 := uint32(bits(hw, 10, 6))
	rn := uint8(bits(hw, 5, 3))
	rt := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rt, Rn: rn, Imm: imm5 * 2}
	if isLoad {
		inst.Op = OpLdrhI
	} else {
		inst.Op = OpStrhI
	}
	return inst
}

// --- SP-relative word load/store: 1001 L Rt imm8 ---

func isLoadStoreSP(hw uint16) bool {
	return bits(hw, 15, 12) == 0b1001
}

func decodeLoadStoreSP(hw uint16) *Instruction {
	isLoad := bits(hw, 11, 11) == 1
	rt := uint8(bits(hw, 10, 8))
	imm8 := uint32(bits(hw, 7, 0))
	inst := &Instruction{Size: 2, Rd: rt, Imm: imm8 * 4}
	if isLoad {
		inst.Op = OpLdrSP
	} else {
		inst.Op = OpStrSP
	}
	return inst
}

// --- sign/zero extend: 1011001 0 op2 Rm Rd ---

func isExtend(hw uint16) bool {
	return bits(hw, 15, 8) == 0b10110010
}

func decodeExtend(hw uint16) *Instruction {
	op2 := bits(hw, 7, 6)
	rm := uint8(bits(hw, 5, 3))
	rd := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rd, Rm: rm}
	switch op2 {
	case 0b00:
		inst.Op = OpSxth
	case 0b01:
		inst.Op = OpSxtb
	case 0b10:
		inst.Op = OpUxth
	case 0b11:
		inst.Op = OpUxtb
	}
	return inst
}

// --- byte/halfword reverse: 1011101 0 op2 Rm Rd ---

func isRev(hw uint16) bool {
	return bits(hw, 15, 8) == 0b10111010 && bits(hw, 7, 6) != 0b10
}

func decodeRev(hw uint16) *Instruction {
	op2 := bits(hw, 7, 6)
	rm := uint8(bits(hw, 5, 3))
	rd := uint8(bits(hw, 2, 0))
	inst := &Instruction{Size: 2, Rd: rd, Rm: rm}
	switch op2 {
	case 0b00:
		inst.Op = OpRev
	case 0b01:
		inst.Op = OpRev16
	case 0b11:
		inst.Op = OpRevsh
	default:
		inst.Op = OpUnknown
	}
	return inst
}

// --- change processor state: 10110110011 im SBZ(3) ---

func isCps(hw uint16) bool {
	return bits(hw, 15, 5) == 0b10110110011
}

func decodeCps(hw uint16) *Instruction {
	im := bits(hw, 4, 4)
	return &Instruction{Size: 2, Op: OpCps, Imm: uint32(im)}
}

// --- IT{x}{y}{z} <firstcond>: 10111111 firstcond mask4, mask != 0000 ---
//
// Shares the 10111111 prefix with the hint space below; bits(3:0)==0
// is a hint (the mask can never be all-zero for a real IT block), so
// that bit pattern alone distinguishes the two encodings.

func isIt(hw uint16) bool {
	return bits(hw, 15, 8) == 0b10111111 && bits(hw, 3, 0) != 0
}

func decodeIt(hw uint16) *Instruction {
	firstcond := uint8(bits(hw, 7, 4))
	mask := uint8(bits(hw, 3, 0))
	return &Instruction{Size: 2, Op: OpIt, Cond: Cond(firstcond), Imm: uint32(mask)}
}

// --- hints: NOP/YIELD/WFE/WFI/SEV: 10111111 op4 0000 ---

func isHint(hw uint16) bool {
	return bits(hw, 15, 8) == 0b10111111 && bits(hw, 3, 0) == 0
}

func decodeHint(hw uint16) *Instruction {
	op := bits(hw, 7, 4)
	inst := &Instruction{Size: 2}
	switch op {
	case 0b0000:
		inst.Op = OpNop
	case 0b0010:
		inst.Op = OpWfe
	case 0b0011:
		inst.Op = OpWfi
	case 0b0100:
		inst.Op = OpSev
	default:
		inst.Op = OpNop // reserved hints behave as NOP
	}
	return inst
}

// --- PUSH {reglist, LR if M}: 1011010 M reglist8 ---

func isPush(hw uint16) bool {
	return bits(hw, 15, 9) == 0b1011010
}

func decodePush(hw uint16) *Instruction {
	m := bits(hw, 8, 8) == 1
	reglist := uint8(bits(hw, 7, 0))
	return &Instruction{Size: 2, Op: OpPush, RegList: reglist, ExtraReg: m}
}

// --- POP {reglist, PC if P}: 1011110 P reglist8 ---

func isPop(hw uint16) bool {
	return bits(hw, 15, 9) == 0b1011110
}

func decodePop(hw uint16) *Instruction {
	p := bits(hw, 8, 8) == 1
	reglist := uint8(bits(hw, 7, 0))
	return &Instruction{Size: 2, Op: OpPop, RegList: reglist, ExtraReg: p}
}

// --- STM Rn!, {reglist}: 11000 Rn reglist8 ---

func isStm(hw uint16) bool {
	return bits(hw, 15, 11) == 0b11000
}

func decodeStm(hw uint16) *Instruction {
	rn := uint8(bits(hw, 10, 8))
	reglist := uint8(bits(hw, 7, 0))
	return &Instruction{Size: 2, Op: OpStm, Rn: rn, RegList: reglist}
}

// --- LDM Rn!, {reglist}: 11001 Rn reglist8 ---

func isLdm(hw uint16) bool {
	return bits(hw, 15, 11) == 0b11001
}

func decodeLdm(hw uint16) *Instruction {
	rn := uint8(bits(hw, 10, 8))
	reglist := uint8(bits(hw, 7, 0))
	return &Instruction{Size: 2, Op: OpLdm, Rn: rn, RegList: reglist}
}

// --- conditional branch or SVC: 1101 cond imm8 ---

func isBCondOrSvc(hw uint16) bool {
	return bits(hw, 15, 12) == 0b1101
}

func decodeBCondOrSvc(pc uint32, hw uint16) (*Instruction, error) {
	cond := Cond(bits(hw, 11, 8))
	imm8 := uint32(bits(hw, 7, 0))
	if cond == 0xF {
		return &Instruction{Size: 2, Op: OpSvc, Imm: imm8}, nil
	}
	if cond == 0xE {
		return nil, &simerr.DecodeFault{PC: pc, Halfword: hw}
	}
	offset := signExtend32(imm8, 8) * 2
	return &Instruction{Size: 2, Op: OpBCond, Cond: cond, BranchOffset: offset}, nil
}

// --- unconditional branch: 11100 imm11 ---

func isB(hw uint16) bool {
	return bits(hw, 15, 11) == 0b11100
}

func decodeB(hw uint16) *Instruction {
	imm11 := uint32(bits(hw, 10, 0))
	offset := signExtend32(imm11, 11) * 2
	return &Instruction{Size: 2, Op: OpB, BranchOffset: offset}
}

// --- 32-bit encodings: BL, MRS, MSR ---

func (d *Decoder) decodeWide(pc uint32, hw1, hw2 uint16) (*Instruction, error) {
	switch {
	case bits(hw1, 15, 11) == 0b11110 && bits(hw2, 15, 14) == 0b11:
		return decodeBL(hw1, hw2), nil
	case hw1 == 0xF3EF && bits(hw2, 15, 12) == 0b1000:
		rd := uint8(bits(hw2, 11, 8))
		sysm := uint8(bits(hw2, 7, 0))
		return &Instruction{Size: 4, Op: OpMrs, Rd: rd, Imm: uint32(sysm)}, nil
	case bits(hw1, 15, 3) == 0b1111001110000 && bits(hw2, 15, 12) == 0b1000:
		rn := uint8(bits(hw1, 3, 0))
		sysm := uint8(bits(hw2, 7, 0))
		return &Instruction{Size: 4, Op: OpMsr, Rn: rn, Imm: uint32(sysm)}, nil
	default:
		return nil, &simerr.DecodeFault{PC: pc, Halfword: hw1}
	}
}

func decodeBL(hw1, hw2 uint16) *Instruction {
	s := uint32(bits(hw1, 10, 10))
	imm10 := uint32(bits(hw1, 9, 0))
	j1 := uint32(bits(hw2, 13, 13))
	j2 := uint32(bits(hw2, 11, 11))
	imm11 := uint32(bits(hw2, 10, 0))

	i1 := 1 - (j1 ^ s)
	i2 := 1 - (j2 ^ s)

	imm := s<<23 | i1<<22 | i2<<21 | imm10<<11 | imm11
	offset := signExtend32(imm<<1, 25)
	return &Instruction{Size: 4, Op: OpBl, BranchOffset: offset}
}
