package scheme

import (
	"github.com/tinypower/harvestsim/capacitor"
	"github.com/tinypower/harvestsim/stats"
)

// periodic implements Periodic Backup: a checkpoint is taken every
// fixed number of committed instructions, independent of residual
// energy. is_active still requires enough energy for one instruction
// plus a backup reserve, since an unscheduled power-loss restore is
// still possible between checkpoints.
type periodic struct {
	cfg     Config
	battery *capacitor.Capacitor

	reserve         float64
	sinceLastBackup uint64
}

func newPeriodic(cfg Config, s *stats.Ledger) *periodic {
	p := &periodic{
		cfg:     cfg,
		battery: capacitor.New(cfg.Capacitor),
		reserve: cfg.InstructionEnergy + cfg.BackupEnergy,
	}
	s.OpenPeriod(0)
	return p
}

func (p *periodic) Battery() *capacitor.Capacitor { return p.battery }

func (p *periodic) ClockFrequency() float64 { return p.cfg.ClockHz }

func (p *periodic) ExecuteInstruction(s *stats.Ledger) {
	p.battery.Consume(p.cfg.InstructionEnergy)
	s.RecordInstruction(p.cfg.InstructionEnergy)
	p.sinceLastBackup++
}

func (p *periodic) IsActive() bool {
	return p.battery.EnergyStored() >= p.reserve
}

func (p *periodic) WillBackup(s *stats.Ledger) bool {
	if p.cfg.PeriodicInterval == 0 {
		return false
	}
	return p.sinceLastBackup >= p.cfg.PeriodicInterval
}

func (p *periodic) Backup(s *stats.Ledger) uint64 {
	p.battery.Consume(p.cfg.BackupEnergy)
	s.RecordBackup(s.TotalCycles, p.cfg.BackupEnergy)
	p.sinceLastBackup = 0
	return p.cfg.BackupCycles
}

func (p *periodic) Restore(s *stats.Ledger) uint64 {
	p.battery.Consume(p.cfg.RestoreEnergy)
	s.RecordRestoreEnergy(p.cfg.RestoreEnergy)
	s.OpenPeriod(s.TotalCycles)
	p.sinceLastBackup = 0
	return p.cfg.RestoreCycles
}

// RestartThreshold must cover the restore itself plus whatever IsActive
// requires afterward, or a restore can complete and immediately find the
// device inactive again, looping back into offSubProtocol forever.
func (p *periodic) RestartThreshold() float64 {
	return p.cfg.RestoreEnergy + p.reserve
}
