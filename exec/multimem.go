package exec

import (
	"math/bits"

	"github.com/tinypower/harvestsim/isa"
	"github.com/tinypower/harvestsim/simerr"
)

func (u *Unit) executeMultiMem(pc uint32, inst *isa.Instruction) (uint32, error) {
	switch inst.Op {
	case isa.OpLdm:
		return u.executeLdm(inst)
	case isa.OpStm:
		return u.executeStm(pc, inst)
	case isa.OpPush:
		return u.executePush(inst)
	case isa.OpPop:
		return u.executePop(inst)
	}
	return 0, nil
}

// executeLdm loads r0-r7 (per the register list) in ascending order
// from the base register. The base is written back to base+4*N unless
// the base register itself was in the load list, in which case it
// takes the loaded value and is not post-incremented.
func (u *Unit) executeLdm(inst *isa.Instruction) (uint32, error) {
	r := &u.cpu.R
	base := r[inst.Rn]
	addr := base
	n := 0
	baseInList := false

	for i := uint8(0); i < 8; i++ {
		if inst.RegList&(1<<i) == 0 {
			continue
		}
		word, err := u.mem.Load(addr)
		if err != nil {
			return 0, err
		}
		r[i] = word
		if i == inst.Rn {
			baseInList = true
		}
		addr += 4
		n++
	}

	if !baseInList {
		r[inst.Rn] = base + 4*uint32(n)
	}

	return uint32(1 + n), nil
}

// executeStm stores r0-r7 (per the register list) in ascending order
// to the base register, then writes the base back to base+4*N. If the
// base register is in the list and is not the lowest-numbered register
// stored, the instruction is malformed and the run faults.
func (u *Unit) executeStm(pc uint32, inst *isa.Instruction) (uint32, error) {
	r := &u.cpu.R
	base := r[inst.Rn]

	if inst.RegList&(1<<inst.Rn) != 0 {
		lowest := uint8(bits.TrailingZeros8(inst.RegList))
		if lowest != inst.Rn {
			return 0, &simerr.MalformedInstruction{
				PC:     pc,
				Reason: "STM base register is in the list but is not the first register stored",
			}
		}
	}

	addr := base
	n := 0
	for i := uint8(0); i < 8; i++ {
		if inst.RegList&(1<<i) == 0 {
			continue
		}
		if err := u.mem.Store(addr, r[i]); err != nil {
			return 0, err
		}
		addr += 4
		n++
	}

	r[inst.Rn] = base + 4*uint32(n)

	return uint32(1 + n), nil
}

// executePush stores LR (if present) above r7..r0, stored in
// descending-address order so the final memory image has low
// registers at low addresses and LR, if present, at the top.
func (u *Unit) executePush(inst *isa.Instruction) (uint32, error) {
	r := &u.cpu.R
	n := bits.OnesCount8(inst.RegList)
	if inst.ExtraReg {
		n++
	}
	newSP := r[13] - 4*uint32(n)

	addr := newSP
	for i := uint8(0); i < 8; i++ {
		if inst.RegList&(1<<i) == 0 {
			continue
		}
		if err := u.mem.Store(addr, r[i]); err != nil {
			return 0, err
		}
		addr += 4
	}
	if inst.ExtraReg {
		if err := u.mem.Store(addr, r[14]); err != nil {
			return 0, err
		}
	}

	r[13] = newSP
	return uint32(1 + n), nil
}

// executePop loads r0-r7 (per the register list) then, if ExtraReg is
// set, r15 (PC). Popping PC signals a taken branch and adds the
// PC-update cycle cost.
func (u *Unit) executePop(inst *isa.Instruction) (uint32, error) {
	r := &u.cpu.R
	addr := r[13]
	n := 0

	for i := uint8(0); i < 8; i++ {
		if inst.RegList&(1<<i) == 0 {
			continue
		}
		word, err := u.mem.Load(addr)
		if err != nil {
			return 0, err
		}
		r[i] = word
		addr += 4
		n++
	}

	branchTaken := false
	if inst.ExtraReg {
		target, err := u.mem.Load(addr)
		if err != nil {
			return 0, err
		}
		addr += 4
		n++
		u.cpu.SetPC(target)
		branchTaken = true
	}

	r[13] = addr

	cycles := uint32(1 + n)
	if branchTaken {
		cycles += cyclePCUpdate
	}
	return cycles, nil
}
