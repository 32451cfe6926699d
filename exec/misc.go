package exec

import "github.com/tinypower/harvestsim/isa"

// sysAPSR is the only system register this simulator's MRS/MSR
// handlers model: the four condition flags packed as in APSR[31:28].
const sysAPSR = 0

func (u *Unit) executeMisc(pc uint32, inst *isa.Instruction) (uint32, error) {
	switch inst.Op {
	case isa.OpNop, isa.OpSev, isa.OpWfi, isa.OpWfe, isa.OpCps, isa.OpSvc:
		// SVC's termination check (sentinel number, exit code in r0) is
		// the driver's concern, not the execute unit's; WFI/WFE have no
		// peripheral model to actually wait on here.

	case isa.OpIt:
		u.cpu.IT.Set(uint8(inst.Cond), uint8(inst.Imm))

	case isa.OpMrs:
		if inst.Imm == sysAPSR {
			u.cpu.R[inst.Rd] = u.packAPSR()
		} else {
			u.cpu.R[inst.Rd] = 0
		}

	case isa.OpMsr:
		if inst.Imm == sysAPSR {
			u.unpackAPSR(u.cpu.R[inst.Rn])
		}

	case isa.OpRev:
		v := u.cpu.R[inst.Rm]
		u.cpu.R[inst.Rd] = (v>>24)&0xFF | (v>>8)&0xFF00 | (v<<8)&0xFF0000 | (v<<24)&0xFF000000

	case isa.OpRev16:
		v := u.cpu.R[inst.Rm]
		lo := (v & 0xFF00 >> 8) | (v&0xFF)<<8
		hi := (v & 0xFF000000 >> 8) | (v&0xFF0000)<<8
		u.cpu.R[inst.Rd] = lo | hi&0xFFFF0000

	case isa.OpRevsh:
		v := uint16(u.cpu.R[inst.Rm])
		swapped := v>>8 | v<<8
		u.cpu.R[inst.Rd] = uint32(int32(int16(swapped)))

	case isa.OpSxtb:
		u.cpu.R[inst.Rd] = uint32(int32(int8(u.cpu.R[inst.Rm])))

	case isa.OpSxth:
		u.cpu.R[inst.Rd] = uint32(int32(int16(u.cpu.R[inst.Rm])))

	case isa.OpUxtb:
		u.cpu.R[inst.Rd] = u.cpu.R[inst.Rm] & 0xFF

	case isa.OpUxth:
		u.cpu.R[inst.Rd] = u.cpu.R[inst.Rm] & 0xFFFF
	}

	return cycleALU, nil
}

func (u *Unit) packAPSR() uint32 {
	var v uint32
	if u.cpu.Flags.N {
		v |= 1 << 31
	}
	if u.cpu.Flags.Z {
		v |= 1 << 30
	}
	if u.cpu.Flags.C {
		v |= 1 << 29
	}
	if u.cpu.Flags.V {
		v |= 1 << 28
	}
	return v
}

func (u *Unit) unpackAPSR(v uint32) {
	u.cpu.Flags.N = v&(1<<31) != 0
	u.cpu.Flags.Z = v&(1<<30) != 0
	u.cpu.Flags.C = v&(1<<29) != 0
	u.cpu.Flags.V = v&(1<<28) != 0
}
