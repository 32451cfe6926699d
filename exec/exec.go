// Package exec provides one handler per ARMv6-M Thumb opcode tag. Each
// handler mutates the CPU and memory it is given and returns the
// instruction's cycle cost, following the Cortex-M0+ timing table.
package exec

import (
	"fmt"

	"github.com/tinypower/harvestsim/cpu"
	"github.com/tinypower/harvestsim/isa"
	"github.com/tinypower/harvestsim/mem"
)

// Unit dispatches decoded instructions to the handler for their opcode
// tag. It holds no state of its own beyond the CPU and memory it was
// constructed with.
type Unit struct {
	cpu *cpu.CPU
	mem *mem.Memory
}

// New returns a Unit bound to the given CPU and memory.
func New(c *cpu.CPU, m *mem.Memory) *Unit {
	return &Unit{cpu: c, mem: m}
}

// Execute runs inst, mutating cpu/memory, and returns its cycle cost.
// PC is not advanced here for non-branching instructions; the caller
// commits PC += inst.Size unless cpu.BranchTaken was set.
//
// If an IT block is active, inst is gated on the block's current
// condition: a failing condition skips the instruction's effects
// (it becomes architecturally a NOP) but still costs a cycle and
// still advances the block. SVC is exempted from gating so the
// driver's termination trap never silently disappears inside a
// conditional block — SVC always traps or always doesn't, regardless
// of IT state.
func (u *Unit) Execute(pc uint32, inst *isa.Instruction) (uint32, error) {
	active := u.cpu.IT.Active()
	gated := active && inst.Op != isa.OpSvc && !u.checkCondition(isa.Cond(u.cpu.IT.Cond()))

	var cycles uint32
	var err error
	if gated {
		cycles = cycleALU
	} else {
		cycles, err = u.dispatch(pc, inst)
	}

	if active {
		u.cpu.IT.Advance()
	}

	return cycles, err
}

func (u *Unit) dispatch(pc uint32, inst *isa.Instruction) (uint32, error) {
	switch inst.Op {
	case isa.OpAdd, isa.OpAddImm, isa.OpSub, isa.OpSubImm,
		isa.OpMov, isa.OpMovImm, isa.OpCmp, isa.OpCmpImm, isa.OpCmn,
		isa.OpAnd, isa.OpOrr, isa.OpEor, isa.OpMvn, isa.OpMul,
		isa.OpLsl, isa.OpLslImm, isa.OpLsr, isa.OpLsrImm,
		isa.OpAsr, isa.OpAsrImm, isa.OpRor, isa.OpAdc, isa.OpSbc,
		isa.OpBic, isa.OpTst, isa.OpNeg:
		cycles, err := u.executeDataProc(inst)
		if err == nil && inst.Rd == cpu.PC &&
			(inst.Op == isa.OpMov || inst.Op == isa.OpAdd || inst.Op == isa.OpMovImm) {
			u.cpu.SetPC(u.cpu.R[cpu.PC])
		}
		return cycles, err

	case isa.OpLdrI, isa.OpLdrR, isa.OpLdrSP, isa.OpLdrLit,
		isa.OpLdrbI, isa.OpLdrbR, isa.OpLdrhI, isa.OpLdrhR,
		isa.OpLdrsb, isa.OpLdrsh,
		isa.OpStrI, isa.OpStrR, isa.OpStrSP,
		isa.OpStrbI, isa.OpStrbR, isa.OpStrhI, isa.OpStrhR:
		return u.executeLoadStore(pc, inst)

	case isa.OpLdm, isa.OpStm, isa.OpPush, isa.OpPop:
		return u.executeMultiMem(pc, inst)

	case isa.OpB, isa.OpBCond, isa.OpBl, isa.OpBlx, isa.OpBx:
		return u.executeBranch(pc, inst)

	case isa.OpNop, isa.OpSvc, isa.OpIt, isa.OpCps, isa.OpSev, isa.OpWfi, isa.OpWfe,
		isa.OpMrs, isa.OpMsr, isa.OpRev, isa.OpRev16, isa.OpRevsh,
		isa.OpSxtb, isa.OpSxth, isa.OpUxtb, isa.OpUxth:
		return u.executeMisc(pc, inst)

	default:
		return 0, fmt.Errorf("exec: no handler for op %d at PC=0x%08X", inst.Op, pc)
	}
}

// Cortex-M0+ cycle costs, per the simulator's timing table.
const (
	cycleALU       = 1
	cycleMemSingle = 2
	cycleBranchMin = 2
	cycleBranchBl  = 3
	cyclePCUpdate  = 2
)
