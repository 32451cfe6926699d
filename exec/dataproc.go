package exec

import "github.com/tinypower/harvestsim/isa"

func (u *Unit) executeDataProc(inst *isa.Instruction) (uint32, error) {
	r := &u.cpu.R
	switch inst.Op {
	case isa.OpMovImm:
		r[inst.Rd] = inst.Imm
		u.setNZ(inst.Imm)

	case isa.OpMov:
		r[inst.Rd] = r[inst.Rm]
		// high-register MOV does not set flags

	case isa.OpAddImm:
		op1 := r[inst.Rn]
		result := op1 + inst.Imm
		r[inst.Rd] = result
		if inst.SetFlags {
			u.setAddFlags(op1, inst.Imm, result)
		}

	case isa.OpAdd:
		op1 := r[inst.Rn]
		op2 := r[inst.Rm]
		result := op1 + op2
		r[inst.Rd] = result
		if inst.SetFlags {
			u.setAddFlags(op1, op2, result)
		}

	case isa.OpSubImm:
		op1 := r[inst.Rn]
		result := op1 - inst.Imm
		r[inst.Rd] = result
		if inst.SetFlags {
			u.setSubFlags(op1, inst.Imm, result)
		}

	case isa.OpSub:
		op1 := r[inst.Rn]
		op2 := r[inst.Rm]
		result := op1 - op2
		r[inst.Rd] = result
		if inst.SetFlags {
			u.setSubFlags(op1, op2, result)
		}

	case isa.OpCmpImm:
		op1 := r[inst.Rn]
		result := op1 - inst.Imm
		u.setSubFlags(op1, inst.Imm, result)

	case isa.OpCmp:
		op1 := r[inst.Rn]
		op2 := r[inst.Rm]
		result := op1 - op2
		u.setSubFlags(op1, op2, result)

	case isa.OpCmn:
		op1 := r[inst.Rn]
		op2 := r[inst.Rm]
		result := op1 + op2
		u.setAddFlags(op1, op2, result)

	case isa.OpAnd:
		result := r[inst.Rn] & r[inst.Rm]
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpOrr:
		result := r[inst.Rn] | r[inst.Rm]
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpEor:
		result := r[inst.Rn] ^ r[inst.Rm]
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpBic:
		result := r[inst.Rn] &^ r[inst.Rm]
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpTst:
		result := r[inst.Rn] & r[inst.Rm]
		u.setNZ(result)

	case isa.OpMvn:
		result := ^r[inst.Rm]
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpNeg:
		op2 := r[inst.Rm]
		result := uint32(0) - op2
		r[inst.Rd] = result
		u.setSubFlags(0, op2, result)

	case isa.OpMul:
		// MUL updates N and Z only; C and V are unaffected (Cortex-M0+).
		result := r[inst.Rn] * r[inst.Rm]
		r[inst.Rd] = result
		u.cpu.Flags.N = result>>31 == 1
		u.cpu.Flags.Z = result == 0

	case isa.OpLslImm:
		result := r[inst.Rm] << inst.Shift
		if inst.Shift > 0 {
			u.cpu.Flags.C = (r[inst.Rm]>>(32-inst.Shift))&1 == 1
		}
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpLsl:
		amount := r[inst.Rm] & 0xFF
		op1 := r[inst.Rn]
		var result uint32
		if amount == 0 {
			result = op1
		} else if amount < 32 {
			result = op1 << amount
			u.cpu.Flags.C = (op1>>(32-amount))&1 == 1
		} else if amount == 32 {
			result = 0
			u.cpu.Flags.C = op1&1 == 1
		} else {
			result = 0
			u.cpu.Flags.C = false
		}
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpLsrImm:
		shift := inst.Shift
		op1 := r[inst.Rm]
		var result uint32
		if shift == 0 {
			result = 0
			u.cpu.Flags.C = op1>>31 == 1
		} else {
			result = op1 >> shift
			u.cpu.Flags.C = (op1>>(shift-1))&1 == 1
		}
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpLsr:
		amount := r[inst.Rm] & 0xFF
		op1 := r[inst.Rn]
		var result uint32
		if amount == 0 {
			result = op1
		} else if amount < 32 {
			result = op1 >> amount
			u.cpu.Flags.C = (op1>>(amount-1))&1 == 1
		} else if amount == 32 {
			result = 0
			u.cpu.Flags.C = op1>>31 == 1
		} else {
			result = 0
			u.cpu.Flags.C = false
		}
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpAsrImm:
		shift := inst.Shift
		op1 := int32(r[inst.Rm])
		var result int32
		if shift == 0 {
			if op1 < 0 {
				result = -1
			} else {
				result = 0
			}
			u.cpu.Flags.C = op1 < 0
		} else {
			result = op1 >> shift
			u.cpu.Flags.C = (op1>>(shift-1))&1 == 1
		}
		r[inst.Rd] = uint32(result)
		u.setNZ(uint32(result))

	case isa.OpAsr:
		amount := r[inst.Rm] & 0xFF
		op1 := int32(r[inst.Rn])
		var result int32
		switch {
		case amount == 0:
			result = op1
		case amount < 32:
			result = op1 >> amount
			u.cpu.Flags.C = (op1>>(amount-1))&1 == 1
		default:
			if op1 < 0 {
				result = -1
				u.cpu.Flags.C = true
			} else {
				result = 0
				u.cpu.Flags.C = false
			}
		}
		r[inst.Rd] = uint32(result)
		u.setNZ(uint32(result))

	case isa.OpRor:
		amount := r[inst.Rm] & 0x1F
		op1 := r[inst.Rn]
		var result uint32
		if amount == 0 {
			result = op1
		} else {
			result = (op1 >> amount) | (op1 << (32 - amount))
			u.cpu.Flags.C = (op1>>(amount-1))&1 == 1
		}
		r[inst.Rd] = result
		u.setNZ(result)

	case isa.OpAdc:
		op1 := r[inst.Rn]
		op2 := r[inst.Rm]
		carry := uint32(0)
		if u.cpu.Flags.C {
			carry = 1
		}
		result := op1 + op2 + carry
		r[inst.Rd] = result
		u.setNZ(result)
		u.cpu.Flags.C = uint64(op1)+uint64(op2)+uint64(carry) > 0xFFFFFFFF
		u.cpu.Flags.V = (op1>>31 == op2>>31) && (op1>>31 != result>>31)

	case isa.OpSbc:
		op1 := r[inst.Rn]
		op2 := r[inst.Rm]
		borrow := uint32(1)
		if u.cpu.Flags.C {
			borrow = 0
		}
		result := op1 - op2 - borrow
		r[inst.Rd] = result
		u.setNZ(result)
		u.cpu.Flags.C = uint64(op1) >= uint64(op2)+uint64(borrow)
		u.cpu.Flags.V = (op1>>31 != op2>>31) && (op2>>31 == result>>31)
	}

	return cycleALU, nil
}

func (u *Unit) setNZ(result uint32) {
	u.cpu.Flags.N = result>>31 == 1
	u.cpu.Flags.Z = result == 0
}

func (u *Unit) setAddFlags(op1, op2, result uint32) {
	u.cpu.Flags.N = result>>31 == 1
	u.cpu.Flags.Z = result == 0
	u.cpu.Flags.C = uint64(op1)+uint64(op2) > 0xFFFFFFFF
	op1Sign, op2Sign, resultSign := op1>>31, op2>>31, result>>31
	u.cpu.Flags.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

func (u *Unit) setSubFlags(op1, op2, result uint32) {
	u.cpu.Flags.N = result>>31 == 1
	u.cpu.Flags.Z = result == 0
	u.cpu.Flags.C = op1 >= op2
	op1Sign, op2Sign, resultSign := op1>>31, op2>>31, result>>31
	u.cpu.Flags.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}
