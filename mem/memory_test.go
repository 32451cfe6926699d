package mem_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tinypower/harvestsim/mem"
)

func TestMem(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mem Suite")
}

var _ = Describe("Memory", func() {
	var m *mem.Memory

	BeforeEach(func() {
		m = mem.NewMemory()
	})

	Describe("RAM", func() {
		BeforeEach(func() {
			m.MapRAM(0x20000000, 0x1000)
		})

		It("reads back a stored word", func() {
			Expect(m.Store(0x20000000, 0xDEADBEEF)).To(Succeed())
			v, err := m.Load(0x20000000)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xDEADBEEF)))
		})

		It("is zero-initialized", func() {
			v, err := m.Load(0x20000004)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0)))
		})

		It("faults on misaligned load", func() {
			_, err := m.Load(0x20000001)
			Expect(err).To(HaveOccurred())
		})

		It("faults on misaligned store", func() {
			err := m.Store(0x20000002, 1)
			Expect(err).To(HaveOccurred())
		})

		It("faults on unmapped access", func() {
			_, err := m.Load(0x50000000)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("initialized RAM", func() {
		It("is writable and carries its initial contents beyond the data length", func() {
			m.MapRAMInitialized(0x20000000, []byte{0xEF, 0xBE, 0xAD, 0xDE}, 0x100)

			v, err := m.Load(0x20000000)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xDEADBEEF)))

			v, err = m.Load(0x20000004)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0)))

			Expect(m.Store(0x20000004, 0x12345678)).To(Succeed())
		})
	})

	Describe("ROM", func() {
		BeforeEach(func() {
			m.MapROM(0x00000000, []byte{0xEF, 0xBE, 0xAD, 0xDE})
		})

		It("is readable", func() {
			v, err := m.Load(0x00000000)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xDEADBEEF)))
		})

		It("faults on store", func() {
			err := m.Store(0x00000000, 0)
			Expect(err).To(HaveOccurred())
		})
	})
})
