package scheme_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tinypower/harvestsim/scheme"
	"github.com/tinypower/harvestsim/stats"
)

func TestScheme(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scheme Suite")
}

var _ = Describe("ODAB", func() {
	var (
		s   *stats.Ledger
		cfg scheme.Config
		sch scheme.Scheme
	)

	BeforeEach(func() {
		s = stats.New()
		cfg = scheme.DefaultConfig()
		var err error
		sch, err = scheme.New(scheme.NameODAB, cfg, s)
		Expect(err).NotTo(HaveOccurred())
	})

	It("opens one active period on construction", func() {
		Expect(s.Periods).To(HaveLen(1))
	})

	It("is active while the battery holds a reserve", func() {
		Expect(sch.IsActive()).To(BeTrue())
	})

	It("reports inactive once energy drops below the backup reserve", func() {
		sch.Battery().Consume(sch.Battery().EnergyMax())
		Expect(sch.IsActive()).To(BeFalse())
	})

	It("charges instruction energy equally into stats and the battery", func() {
		before := sch.Battery().EnergyStored()
		sch.ExecuteInstruction(s)

		Expect(s.Periods[0].InstructionCount).To(Equal(uint64(1)))
		Expect(s.Periods[0].InstructionEnergy).To(Equal(cfg.InstructionEnergy))
		Expect(sch.Battery().EnergyStored()).To(BeNumerically("<", before))
	})

	It("decides to back up only once the battery nears exhaustion", func() {
		Expect(sch.WillBackup(s)).To(BeFalse())

		// Drain the battery down near the reserve threshold.
		sch.Battery().Consume(sch.Battery().EnergyMax() - cfg.InstructionEnergy - cfg.BackupEnergy/2)
		Expect(sch.WillBackup(s)).To(BeTrue())
	})

	It("sets a restart threshold that leaves the device active immediately after restoring", func() {
		// If RestartThreshold only covered the restore itself, a restore
		// could complete and leave less energy than IsActive requires,
		// sending the device straight back into the off sub-protocol
		// without ever running an instruction.
		sch.Battery().Consume(sch.Battery().EnergyStored())
		sch.Battery().Harvest(sch.RestartThreshold()/1e-3, 1e-3)
		Expect(sch.Battery().EnergyStored()).To(BeNumerically(">=", sch.RestartThreshold()))

		sch.Restore(s)
		Expect(sch.IsActive()).To(BeTrue())
	})

	It("records a backup interval and opens a new period on restore", func() {
		s.TotalCycles = 1000
		cycles := sch.Backup(s)
		Expect(cycles).To(Equal(cfg.BackupCycles))
		Expect(s.Periods[0].BackupTimes).To(Equal([]uint64{1000}))

		s.TotalCycles = 1000 + cfg.BackupCycles + cfg.RestoreCycles
		restoreCycles := sch.Restore(s)
		Expect(restoreCycles).To(Equal(cfg.RestoreCycles))
		Expect(s.Periods).To(HaveLen(2))
		Expect(s.RestoreEnergy).To(Equal(cfg.RestoreEnergy))
	})
})

var _ = Describe("Periodic", func() {
	var (
		s   *stats.Ledger
		cfg scheme.Config
		sch scheme.Scheme
	)

	BeforeEach(func() {
		s = stats.New()
		cfg = scheme.DefaultConfig()
		cfg.PeriodicInterval = 3
		var err error
		sch, err = scheme.New(scheme.NamePeriodic, cfg, s)
		Expect(err).NotTo(HaveOccurred())
	})

	It("backs up exactly every N instructions", func() {
		for i := 0; i < 2; i++ {
			sch.ExecuteInstruction(s)
			Expect(sch.WillBackup(s)).To(BeFalse())
		}
		sch.ExecuteInstruction(s)
		Expect(sch.WillBackup(s)).To(BeTrue())

		sch.Backup(s)
		Expect(sch.WillBackup(s)).To(BeFalse())
	})
})

var _ = Describe("New", func() {
	It("rejects an unknown scheme name", func() {
		_, err := scheme.New(scheme.Name("bogus"), scheme.DefaultConfig(), stats.New())
		Expect(err).To(HaveOccurred())
	})
})
