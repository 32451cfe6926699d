package stats_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tinypower/harvestsim/stats"
)

func TestStats(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Stats Suite")
}

var _ = Describe("Ledger", func() {
	var l *stats.Ledger

	BeforeEach(func() {
		l = stats.New()
	})

	It("accumulates instruction energy and count within a period", func() {
		l.OpenPeriod(0)
		l.RecordInstruction(1.5)
		l.RecordInstruction(1.5)

		p := l.Current()
		Expect(p.InstructionCount).To(Equal(uint64(2)))
		Expect(p.InstructionEnergy).To(Equal(3.0))
		Expect(l.Instructions).To(Equal(uint64(2)))
	})

	It("records a backup interval relative to the period's start", func() {
		l.OpenPeriod(100)
		l.RecordBackup(1100, 0.01)

		p := l.Current()
		Expect(p.BackupTimes).To(Equal([]uint64{1000}))
		Expect(l.BackupEnergy).To(Equal(0.01))
	})

	It("records successive backup intervals relative to each other", func() {
		l.OpenPeriod(0)
		l.RecordBackup(1000, 0.01)
		l.RecordBackup(1500, 0.01)

		p := l.Current()
		Expect(p.BackupTimes).To(Equal([]uint64{1000, 500}))
	})

	It("opens a new period on each restore", func() {
		l.OpenPeriod(0)
		l.RecordInstruction(1)
		l.OpenPeriod(500)
		l.RecordInstruction(1)

		Expect(l.Periods).To(HaveLen(2))
		Expect(l.Periods[0].InstructionCount).To(Equal(uint64(1)))
		Expect(l.Periods[1].InstructionCount).To(Equal(uint64(1)))
	})

	It("round-trips through WriteFile/LoadFile", func() {
		l.OpenPeriod(0)
		l.RecordInstruction(2.5)
		l.RecordBackup(1000, 0.05)
		l.Status = "sentinel"
		l.ExitCode = 0
		l.TotalCycles = 1000

		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "stats.json")
		Expect(l.WriteFile(path)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("\"instruction_energy\""))

		loaded, err := stats.LoadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Status).To(Equal("sentinel"))
		Expect(loaded.Periods).To(HaveLen(1))
		Expect(loaded.Periods[0].BackupTimes).To(Equal([]uint64{1000}))
	})

	It("writes a compressed document when the path ends in .zst", func() {
		l.OpenPeriod(0)
		l.RecordInstruction(1)

		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "stats.json.zst")
		Expect(l.WriteFile(path)).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size()).To(BeNumerically(">", 0))
	})
})
