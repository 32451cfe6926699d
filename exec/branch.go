package exec

import (
	"github.com/tinypower/harvestsim/cpu"
	"github.com/tinypower/harvestsim/isa"
)

func (u *Unit) executeBranch(pc uint32, inst *isa.Instruction) (uint32, error) {
	switch inst.Op {
	case isa.OpB:
		u.cpu.SetPC(uint32(int32(pc) + 4 + inst.BranchOffset))
		return cycleBranchMin, nil

	case isa.OpBCond:
		if !u.checkCondition(inst.Cond) {
			return cycleALU, nil
		}
		u.cpu.SetPC(uint32(int32(pc) + 4 + inst.BranchOffset))
		return cycleBranchMin, nil

	case isa.OpBl:
		u.cpu.R[cpu.LR] = pc + uint32(inst.Size)
		u.cpu.SetPC(uint32(int32(pc) + 4 + inst.BranchOffset))
		return cycleBranchBl, nil

	case isa.OpBlx:
		target := u.cpu.R[inst.Rm]
		u.cpu.R[cpu.LR] = pc + uint32(inst.Size)
		u.cpu.SetPC(target)
		return cycleBranchBl, nil

	case isa.OpBx:
		target := u.cpu.R[inst.Rm]
		u.cpu.SetPC(target)
		return cycleBranchMin, nil
	}
	return 0, nil
}

func (u *Unit) checkCondition(cond isa.Cond) bool {
	f := u.cpu.Flags
	switch cond {
	case isa.CondEQ:
		return f.Z
	case isa.CondNE:
		return !f.Z
	case isa.CondCS:
		return f.C
	case isa.CondCC:
		return !f.C
	case isa.CondMI:
		return f.N
	case isa.CondPL:
		return !f.N
	case isa.CondVS:
		return f.V
	case isa.CondVC:
		return !f.V
	case isa.CondHI:
		return f.C && !f.Z
	case isa.CondLS:
		return !f.C || f.Z
	case isa.CondGE:
		return f.N == f.V
	case isa.CondLT:
		return f.N != f.V
	case isa.CondGT:
		return !f.Z && f.N == f.V
	case isa.CondLE:
		return f.Z || f.N != f.V
	case isa.CondAL:
		return true
	default:
		return false
	}
}
