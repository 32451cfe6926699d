// Package scheme implements the pluggable energy-harvesting
// checkpoint/restore policies that decide when the simulated processor
// backs up non-volatile state, and own the capacitor that powers it.
package scheme

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tinypower/harvestsim/capacitor"
	"github.com/tinypower/harvestsim/stats"
)

// Scheme is the polymorphic policy interface the driver calls against.
// There is no virtual state in a base type; each concrete scheme holds
// whatever it needs privately.
type Scheme interface {
	// Battery returns the capacitor this scheme owns and the driver
	// charges.
	Battery() *capacitor.Capacitor

	// ClockFrequency returns the constant clock rate in Hz, used to
	// convert cycle counts to simulated time.
	ClockFrequency() float64

	// ExecuteInstruction debits one instruction's energy from the
	// battery and credits instruction-energy stats. Called exactly
	// once per committed instruction.
	ExecuteInstruction(s *stats.Ledger)

	// IsActive reports whether stored energy is enough to execute at
	// least one instruction plus any reserve this scheme needs.
	IsActive() bool

	// WillBackup decides, after the just-executed instruction, whether
	// a backup should be taken now.
	WillBackup(s *stats.Ledger) bool

	// Backup performs checkpoint work, debits backup energy, records
	// the backup interval, and returns the cycle cost.
	Backup(s *stats.Ledger) uint64

	// Restore performs restore work, debits restore energy, opens a
	// new active-period record, and returns the cycle cost.
	Restore(s *stats.Ledger) uint64

	// RestartThreshold returns the minimum stored energy, in joules,
	// the driver must observe before it is worth calling Restore — the
	// restore itself plus the reserve IsActive requires afterward.
	RestartThreshold() float64
}

// Config holds the parameters a concrete scheme needs: per-instruction
// energy, backup/restore energy and time, the clock, and the
// capacitor it powers. Values are drawn from the originating paper's
// reference hardware and are configurable per scheme instance.
type Config struct {
	// InstructionEnergy is the energy, in joules, debited per
	// committed instruction.
	InstructionEnergy float64 `json:"instruction_energy_joules"`

	// BackupEnergy is the energy, in joules, debited per backup.
	BackupEnergy float64 `json:"backup_energy_joules"`
	// BackupCycles is the cycle cost of a backup.
	BackupCycles uint64 `json:"backup_cycles"`

	// RestoreEnergy is the energy, in joules, debited per restore.
	RestoreEnergy float64 `json:"restore_energy_joules"`
	// RestoreCycles is the cycle cost of a restore.
	RestoreCycles uint64 `json:"restore_cycles"`

	// ClockHz is the constant clock frequency in Hz.
	ClockHz float64 `json:"clock_hz"`

	// PeriodicInterval is the number of committed instructions between
	// backups for the periodic-backup scheme; ignored by ODAB.
	PeriodicInterval uint64 `json:"periodic_interval_instructions"`

	// Capacitor holds the physical parameters of the battery this
	// scheme owns.
	Capacitor capacitor.Config `json:"capacitor"`
}

// DefaultConfig returns parameters representative of the small
// intermittently-powered sensor nodes these schemes target: a 3.3V
// MSP430-class core drawing on the order of nanojoules per
// instruction, with a backup/restore penalty several orders of
// magnitude larger than a single instruction.
func DefaultConfig() Config {
	return Config{
		InstructionEnergy: 2.5e-9,
		BackupEnergy:      15e-6,
		BackupCycles:      1200,
		RestoreEnergy:     12e-6,
		RestoreCycles:     900,
		ClockHz:           4e6,
		PeriodicInterval:  1000,
		Capacitor:         capacitor.DefaultConfig(),
	}
}

// LoadConfig loads a Config from a JSON file, starting from
// DefaultConfig so that a partial document only overrides the fields
// it names.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scheme config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scheme config: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize scheme config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scheme config file: %w", err)
	}

	return nil
}

// Validate checks that the configured parameters describe a physically
// sane scheme.
func (c *Config) Validate() error {
	if c.InstructionEnergy <= 0 {
		return fmt.Errorf("instruction_energy_joules must be > 0")
	}
	if c.BackupEnergy < 0 || c.RestoreEnergy < 0 {
		return fmt.Errorf("backup/restore energy must be >= 0")
	}
	if c.ClockHz <= 0 {
		return fmt.Errorf("clock_hz must be > 0")
	}
	if c.Capacitor.Capacitance <= 0 || c.Capacitor.VMax <= 0 {
		return fmt.Errorf("capacitor parameters must be > 0")
	}
	return nil
}

// Name is the closed set of scheme names the CLI accepts.
type Name string

const (
	NameODAB     Name = "odab"
	NamePeriodic Name = "periodic"
)

// New instantiates the scheme identified by name with the given
// configuration, charged to full and with an initial active period
// opened on s.
func New(name Name, cfg Config, s *stats.Ledger) (Scheme, error) {
	switch name {
	case NameODAB:
		return newODAB(cfg, s), nil
	case NamePeriodic:
		return newPeriodic(cfg, s), nil
	default:
		return nil, fmt.Errorf("unknown scheme %q", name)
	}
}
