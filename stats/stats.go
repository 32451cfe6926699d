// Package stats holds the per-active-period counters and the global
// energy ledger accumulated while the core runs, and serializes them
// to the JSON document the CLI writes with --stats-out.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ActivePeriod accumulates statistics for one contiguous span of
// execution between a restore and the next power-off (or the end of
// the run). BackupTimes holds the number of cycles elapsed since the
// previous backup (or since the start of the period) for each backup
// taken during it.
type ActivePeriod struct {
	InstructionEnergy float64  `json:"instruction_energy"`
	InstructionCount  uint64   `json:"instruction_count"`
	BackupTimes       []uint64 `json:"backup_times"`

	lastEventCycle uint64
}

// Ledger is the global statistics document: totals across the whole
// run plus the ordered list of active-period records.
type Ledger struct {
	Status       string          `json:"status"`
	ExitCode     int64           `json:"exit_code"`
	TotalCycles  uint64          `json:"total_cycles"`
	Instructions uint64          `json:"total_instructions"`

	EnergyHarvested float64 `json:"total_energy_harvested"`
	BackupEnergy    float64 `json:"total_backup_energy"`
	RestoreEnergy   float64 `json:"total_restore_energy"`

	Periods []*ActivePeriod `json:"active_periods"`
}

// New returns an empty Ledger with no open active period.
func New() *Ledger {
	return &Ledger{}
}

// OpenPeriod appends a new active-period record, opened at the given
// cycle count, and makes it current. Called exactly once per restore.
func (l *Ledger) OpenPeriod(cycleAtOpen uint64) *ActivePeriod {
	p := &ActivePeriod{lastEventCycle: cycleAtOpen}
	l.Periods = append(l.Periods, p)
	return p
}

// Current returns the currently open active period, or nil if none has
// been opened yet.
func (l *Ledger) Current() *ActivePeriod {
	if len(l.Periods) == 0 {
		return nil
	}
	return l.Periods[len(l.Periods)-1]
}

// RecordInstruction credits one committed instruction's energy to the
// current active period and the global totals. Must be called in
// instruction-then-backup-then-restore order within an iteration to
// keep floating point accumulation deterministic across platforms.
func (l *Ledger) RecordInstruction(energy float64) {
	p := l.Current()
	p.InstructionEnergy += energy
	p.InstructionCount++
	l.Instructions++
}

// RecordBackup records a backup taken at cycleAtBackup, with the
// interval measured from the previous backup or the start of the
// active period, and credits its energy to the global total.
func (l *Ledger) RecordBackup(cycleAtBackup uint64, energy float64) {
	p := l.Current()
	interval := cycleAtBackup - p.lastEventCycle
	p.BackupTimes = append(p.BackupTimes, interval)
	p.lastEventCycle = cycleAtBackup
	l.BackupEnergy += energy
}

// RecordRestoreEnergy credits a restore's energy to the global total.
func (l *Ledger) RecordRestoreEnergy(energy float64) {
	l.RestoreEnergy += energy
}

// RecordHarvest credits harvested energy to the global total.
func (l *Ledger) RecordHarvest(energy float64) {
	l.EnergyHarvested += energy
}

// WriteFile serializes the ledger as pretty-printed JSON to path. A
// ".zst" suffix writes the JSON through a zstd encoder instead of
// plain bytes, for compact storage of long multi-scheme sweep traces.
func (l *Ledger) WriteFile(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}

	if strings.HasSuffix(path, ".zst") {
		return writeZstd(path, data)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}

func writeZstd(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to write compressed stats: %w", err)
	}
	return enc.Close()
}

// LoadFile reads a JSON stats document previously written by
// WriteFile (uncompressed form), used by tests to verify round-trips.
func LoadFile(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}
	l := &Ledger{}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to parse stats file: %w", err)
	}
	return l, nil
}
