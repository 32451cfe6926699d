package exec

import "github.com/tinypower/harvestsim/isa"

func (u *Unit) executeLoadStore(pc uint32, inst *isa.Instruction) (uint32, error) {
	r := &u.cpu.R

	switch inst.Op {
	case isa.OpLdrI:
		addr := r[inst.Rn] + inst.Imm
		word, err := u.mem.Load(addr &^ 3)
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = word

	case isa.OpLdrR:
		addr := r[inst.Rn] + r[inst.Rm]
		word, err := u.mem.Load(addr &^ 3)
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = word

	case isa.OpLdrSP:
		addr := r[13] + inst.Imm
		word, err := u.mem.Load(addr &^ 3)
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = word

	case isa.OpLdrLit:
		addr := (pc &^ 3) + 4 + inst.Imm
		word, err := u.mem.Load(addr &^ 3)
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = word

	case isa.OpStrI:
		addr := r[inst.Rn] + inst.Imm
		if err := u.mem.Store(addr&^3, r[inst.Rd]); err != nil {
			return 0, err
		}

	case isa.OpStrR:
		addr := r[inst.Rn] + r[inst.Rm]
		if err := u.mem.Store(addr&^3, r[inst.Rd]); err != nil {
			return 0, err
		}

	case isa.OpStrSP:
		addr := r[13] + inst.Imm
		if err := u.mem.Store(addr&^3, r[inst.Rd]); err != nil {
			return 0, err
		}

	case isa.OpLdrbI:
		v, err := readByte(u.mem, r[inst.Rn]+inst.Imm)
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = uint32(v)

	case isa.OpLdrbR:
		v, err := readByte(u.mem, r[inst.Rn]+r[inst.Rm])
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = uint32(v)

	case isa.OpStrbI:
		if err := writeByte(u.mem, r[inst.Rn]+inst.Imm, uint8(r[inst.Rd])); err != nil {
			return 0, err
		}

	case isa.OpStrbR:
		if err := writeByte(u.mem, r[inst.Rn]+r[inst.Rm], uint8(r[inst.Rd])); err != nil {
			return 0, err
		}

	case isa.OpLdrsb:
		v, err := readByte(u.mem, r[inst.Rn]+r[inst.Rm])
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = uint32(int32(int8(v)))

	case isa.OpLdrhI:
		v, err := readHalf(u.mem, r[inst.Rn]+inst.Imm)
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = uint32(v)

	case isa.OpLdrhR:
		v, err := readHalf(u.mem, r[inst.Rn]+r[inst.Rm])
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = uint32(v)

	case isa.OpStrhI:
		if err := writeHalf(u.mem, r[inst.Rn]+inst.Imm, uint16(r[inst.Rd])); err != nil {
			return 0, err
		}

	case isa.OpStrhR:
		if err := writeHalf(u.mem, r[inst.Rn]+r[inst.Rm], uint16(r[inst.Rd])); err != nil {
			return 0, err
		}

	case isa.OpLdrsh:
		v, err := readHalf(u.mem, r[inst.Rn]+r[inst.Rm])
		if err != nil {
			return 0, err
		}
		r[inst.Rd] = uint32(int32(int16(v)))
	}

	return cycleMemSingle, nil
}
