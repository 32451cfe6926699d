package scheme

import (
	"github.com/tinypower/harvestsim/capacitor"
	"github.com/tinypower/harvestsim/stats"
)

// odab implements On-Demand All Backup: every architectural state is
// assumed non-volatile, so backup and restore are pure accounting
// events with fixed energy and cycle penalties. A backup is taken only
// when the battery is too low to guarantee another instruction plus a
// future backup — as late as possible, never early.
type odab struct {
	cfg     Config
	battery *capacitor.Capacitor

	// reserve is the energy that must remain after an instruction for
	// the scheme to still be able to afford a backup later.
	reserve float64
}

func newODAB(cfg Config, s *stats.Ledger) *odab {
	o := &odab{
		cfg:     cfg,
		battery: capacitor.New(cfg.Capacitor),
		reserve: cfg.InstructionEnergy + cfg.BackupEnergy,
	}
	s.OpenPeriod(0)
	return o
}

func (o *odab) Battery() *capacitor.Capacitor { return o.battery }

func (o *odab) ClockFrequency() float64 { return o.cfg.ClockHz }

func (o *odab) ExecuteInstruction(s *stats.Ledger) {
	o.battery.Consume(o.cfg.InstructionEnergy)
	s.RecordInstruction(o.cfg.InstructionEnergy)
}

func (o *odab) IsActive() bool {
	return o.battery.EnergyStored() >= o.reserve
}

func (o *odab) WillBackup(s *stats.Ledger) bool {
	return o.battery.EnergyStored() < o.reserve
}

func (o *odab) Backup(s *stats.Ledger) uint64 {
	o.battery.Consume(o.cfg.BackupEnergy)
	s.RecordBackup(s.TotalCycles, o.cfg.BackupEnergy)
	return o.cfg.BackupCycles
}

func (o *odab) Restore(s *stats.Ledger) uint64 {
	o.battery.Consume(o.cfg.RestoreEnergy)
	s.RecordRestoreEnergy(o.cfg.RestoreEnergy)
	s.OpenPeriod(s.TotalCycles)
	return o.cfg.RestoreCycles
}

// RestartThreshold is the energy offSubProtocol waits for before calling
// Restore. It must cover the restore itself plus whatever IsActive
// requires afterward, or the device restores only to immediately find
// itself inactive again and loop back into offSubProtocol without ever
// committing an instruction.
func (o *odab) RestartThreshold() float64 {
	return o.cfg.RestoreEnergy + o.reserve
}
