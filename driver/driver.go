// Package driver implements the outer scheduling loop that couples
// the Thumb interpreter to a checkpoint/restore energy scheme: charge,
// check activity, fetch/decode/execute, debit, maybe back up — and,
// when the battery runs dry, the off sub-protocol that waits on the
// harvest trace for enough energy to restore and resume.
package driver

import (
	"errors"
	"fmt"

	"github.com/tinypower/harvestsim/cpu"
	"github.com/tinypower/harvestsim/exec"
	"github.com/tinypower/harvestsim/harvest"
	"github.com/tinypower/harvestsim/isa"
	"github.com/tinypower/harvestsim/mem"
	"github.com/tinypower/harvestsim/scheme"
	"github.com/tinypower/harvestsim/simerr"
	"github.com/tinypower/harvestsim/stats"
)

// SentinelSVC is the reserved SVC immediate that terminates a run
// cleanly; the value in r0 at the time of the call becomes the
// program's exit code.
const SentinelSVC = 0xAB

// OffStepSeconds bounds how finely the off sub-protocol samples the
// harvest trace while waiting to cross the restart threshold; small
// enough to follow a trace's step changes, large enough that a long
// stall doesn't require billions of iterations.
const OffStepSeconds = 1e-3

// RunResult summarizes how a run ended.
type RunResult struct {
	Status   simerr.Status
	ExitCode int64
	Err      error
}

// Driver owns the memory image, CPU state, and stats ledger, and
// drives them against a Scheme and a harvest Trace.
type Driver struct {
	mem *mem.Memory
	cpu *cpu.CPU
	dec *isa.Decoder
	ex  *exec.Unit

	scheme scheme.Scheme
	trace  *harvest.Trace
	stats  *stats.Ledger

	cycleLimit        uint64
	stallDeadlineSecs float64

	lastChargeTime float64
	offTime        float64
}

// New returns a Driver ready to run from entryPoint with the stack
// pointer set to initialSP. cycleLimit of 0 means unlimited.
func New(m *mem.Memory, entryPoint, initialSP uint32, sch scheme.Scheme, trace *harvest.Trace, ledger *stats.Ledger, cycleLimit uint64, stallDeadlineSecs float64) *Driver {
	c := cpu.New()
	c.R[cpu.SP] = initialSP
	c.SetPC(entryPoint)
	c.BranchTaken = false // the very first fetch is not a branch commit

	return &Driver{
		mem:               m,
		cpu:               c,
		dec:               isa.NewDecoder(),
		ex:                exec.New(c, m),
		scheme:            sch,
		trace:             trace,
		stats:             ledger,
		cycleLimit:        cycleLimit,
		stallDeadlineSecs: stallDeadlineSecs,
	}
}

// CPU exposes the underlying CPU state, used by callers that want to
// inspect registers after a run (e.g. tests checking r2's value).
func (d *Driver) CPU() *cpu.CPU { return d.cpu }

func (d *Driver) simTime() float64 {
	return float64(d.stats.TotalCycles)/d.scheme.ClockFrequency() + d.offTime
}

func (d *Driver) charge() {
	now := d.simTime()
	dt := now - d.lastChargeTime
	p := d.trace.PowerAt(now)
	d.scheme.Battery().Harvest(p, dt)
	d.stats.RecordHarvest(p * dt)
	d.lastChargeTime = now
}

// Run executes the on/off loop until termination and returns the
// outcome. It never calls os.Exit; callers map the result to a
// process exit code.
func (d *Driver) Run() RunResult {
	for {
		d.charge()

		if !d.scheme.IsActive() {
			if res, done := d.offSubProtocol(); done {
				return res
			}
			continue
		}

		hw1, err := d.fetchHalfword(d.cpu.R[cpu.PC])
		if err != nil {
			return d.fault(err)
		}

		var hw2 uint16
		if d.dec.IsWide(hw1) {
			hw2, err = d.fetchHalfword(d.cpu.R[cpu.PC] + 2)
			if err != nil {
				return d.fault(err)
			}
		}

		inst, err := d.dec.Decode(d.cpu.R[cpu.PC], hw1, hw2)
		if err != nil {
			return d.fault(err)
		}

		isSentinel := inst.Op == isa.OpSvc && uint32(inst.Imm) == SentinelSVC

		pcBefore := d.cpu.R[cpu.PC]
		d.cpu.BranchTaken = false
		k, err := d.ex.Execute(pcBefore, inst)
		if err != nil {
			return d.fault(err)
		}

		d.scheme.ExecuteInstruction(d.stats)
		d.stats.TotalCycles += uint64(k)

		if isSentinel {
			exitCode := int64(int32(d.cpu.R[0]))
			d.stats.Status = simerr.StatusSentinelExit.String()
			d.stats.ExitCode = exitCode
			return RunResult{Status: simerr.StatusSentinelExit, ExitCode: exitCode}
		}

		if !d.cpu.BranchTaken {
			d.cpu.R[cpu.PC] = pcBefore + uint32(inst.Size)
		}
		d.cpu.BranchTaken = false

		if d.scheme.WillBackup(d.stats) {
			bc := d.scheme.Backup(d.stats)
			d.stats.TotalCycles += bc
		}

		if d.cycleLimit != 0 && d.stats.TotalCycles >= d.cycleLimit {
			d.stats.Status = simerr.StatusCycleLimit.String()
			return RunResult{Status: simerr.StatusCycleLimit}
		}
	}
}

// offSubProtocol integrates harvested power forward until the
// scheme's restart threshold is reached or the stall deadline
// expires. Returns (result, true) if the run should terminate here.
func (d *Driver) offSubProtocol() (RunResult, bool) {
	threshold := d.scheme.RestartThreshold()

	for d.scheme.Battery().EnergyStored() < threshold {
		if d.stallDeadlineSecs > 0 && d.offTime >= d.stallDeadlineSecs {
			d.stats.Status = simerr.StatusStalled.String()
			return RunResult{Status: simerr.StatusStalled}, true
		}

		now := d.simTime()
		p := d.trace.PowerAt(now)
		d.scheme.Battery().Harvest(p, OffStepSeconds)
		d.stats.RecordHarvest(p * OffStepSeconds)
		d.offTime += OffStepSeconds
	}

	rc := d.scheme.Restore(d.stats)
	d.stats.TotalCycles += rc
	d.lastChargeTime = d.simTime()
	return RunResult{}, false
}

// fault records a fatal decode/memory/malformed-instruction error on
// the stats ledger and builds the corresponding RunResult. A
// MemoryFault is stamped with the PC of the faulting instruction.
func (d *Driver) fault(err error) RunResult {
	var mf *simerr.MemoryFault
	if errors.As(err, &mf) {
		mf.PC = d.cpu.R[cpu.PC]
	}
	d.stats.Status = simerr.StatusFault.String()
	return RunResult{Status: simerr.StatusFault, Err: err}
}

func (d *Driver) fetchHalfword(addr uint32) (uint16, error) {
	word, err := d.mem.Load(addr &^ 3)
	if err != nil {
		return 0, fmt.Errorf("fetch at PC=0x%08X: %w", addr, err)
	}
	if addr%4 == 0 {
		return uint16(word & 0xFFFF), nil
	}
	return uint16(word >> 16), nil
}
