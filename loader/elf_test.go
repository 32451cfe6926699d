package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tinypower/harvestsim/loader"
	"github.com/tinypower/harvestsim/mem"
)

func TestLoader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Loader Suite")
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("LoadELF", func() {
		Context("with a valid ARMv6-M ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				createMinimalARMELF(elfPath, 0x00000000, 0x00000001, []byte{
					0x03, 0x20, // movs r0, #3
					0xab, 0xdf, // svc 0xab
				})
			})

			It("loads without error", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("strips the Thumb bit from the entry point", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x00000000)))
			})

			It("loads segments", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).NotTo(BeEmpty())
			})

			It("sets up an initial stack pointer within the RAM region", func() {
				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.InitialSP).To(Equal(uint32(loader.DefaultRAMBase + loader.DefaultRAMSize)))
			})
		})

		Context("with an invalid file", func() {
			It("errors for a non-existent file", func() {
				_, err := loader.LoadELF("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("errors for a non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(notElfPath, []byte("not an elf file"), 0644)).To(Succeed())

				_, err := loader.LoadELF(notElfPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with a non-ARM ELF", func() {
			It("errors for an x86-64 ELF", func() {
				elfPath := filepath.Join(tempDir, "x86.elf")
				createMinimalX86ELF(elfPath)

				_, err := loader.LoadELF(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not an ARM"))
			})
		})

		Context("with BSS where Memsz > Filesz", func() {
			It("carries the reported memory size through to the segment", func() {
				elfPath := filepath.Join(tempDir, "bss.elf")
				initialData := []byte{0x01, 0x02, 0x03, 0x04}
				createBSSARMELF(elfPath, 0x20001000, 0x00000000, initialData, 1024)

				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())

				var seg *loader.Segment
				for i := range prog.Segments {
					if prog.Segments[i].VirtAddr == 0x20001000 {
						seg = &prog.Segments[i]
					}
				}
				Expect(seg).NotTo(BeNil())
				Expect(seg.Data).To(Equal(initialData))
				Expect(seg.MemSize).To(Equal(uint32(1024)))
			})
		})

		Context("mapping into memory", func() {
			It("maps read-only text as ROM and writable data as RAM", func() {
				elfPath := filepath.Join(tempDir, "multi.elf")
				code := []byte{0x03, 0x20, 0xab, 0xdf}
				createMultiSegmentARMELF(elfPath, 0x00000000, 0x00000000, code, 0x20010000, []byte{0x11, 0x22, 0x33, 0x44})

				prog, err := loader.LoadELF(elfPath)
				Expect(err).NotTo(HaveOccurred())

				m := mem.NewMemory()
				prog.MapInto(m)

				v, err := m.Load(0x00000000)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(uint32(0xdf_ab_20_03)))

				Expect(m.Store(0x00000000, 0)).To(HaveOccurred())

				v, err = m.Load(0x20010000)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(uint32(0x44332211)))

				Expect(m.Store(0x20010000, 0xFF)).To(Succeed())
			})
		})
	})

	Describe("LoadFlat", func() {
		It("maps the image as a single segment at the given base", func() {
			data := []byte{0x03, 0x20, 0xab, 0xdf}
			prog := loader.LoadFlat(data, 0x08000000)

			Expect(prog.EntryPoint).To(Equal(uint32(0x08000000)))
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].VirtAddr).To(Equal(uint32(0x08000000)))
			Expect(prog.Segments[0].Data).To(Equal(data))
		})

		It("is writable once mapped, so self-hosted stacks/BSS can share the image", func() {
			prog := loader.LoadFlat([]byte{0x00, 0x00, 0x00, 0x00}, 0x08000000)
			m := mem.NewMemory()
			prog.MapInto(m)

			Expect(m.Store(0x08000000, 0x1)).To(Succeed())
		})
	})
})

func createMinimalARMELF(path string, loadAddr, entryPoint uint32, code []byte) {
	elfHeader := make([]byte, 52)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1 // ELFCLASS32
	elfHeader[5] = 1 // little endian
	elfHeader[6] = 1
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)  // ET_EXEC
	binary.LittleEndian.PutUint16(elfHeader[18:20], 40) // EM_ARM
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)
	binary.LittleEndian.PutUint32(elfHeader[24:28], entryPoint)
	binary.LittleEndian.PutUint32(elfHeader[28:32], 52) // phoff
	binary.LittleEndian.PutUint32(elfHeader[32:36], 0)  // shoff
	binary.LittleEndian.PutUint32(elfHeader[36:40], 0)  // flags
	binary.LittleEndian.PutUint16(elfHeader[40:42], 52) // ehsize
	binary.LittleEndian.PutUint16(elfHeader[42:44], 32) // phentsize
	binary.LittleEndian.PutUint16(elfHeader[44:46], 1)  // phnum
	binary.LittleEndian.PutUint16(elfHeader[46:48], 0)  // shentsize
	binary.LittleEndian.PutUint16(elfHeader[48:50], 0)  // shnum
	binary.LittleEndian.PutUint16(elfHeader[50:52], 0)  // shstrndx

	progHeader := make([]byte, 32)
	binary.LittleEndian.PutUint32(progHeader[0:4], 1)                   // PT_LOAD
	binary.LittleEndian.PutUint32(progHeader[4:8], 84)                  // offset
	binary.LittleEndian.PutUint32(progHeader[8:12], loadAddr)           // vaddr
	binary.LittleEndian.PutUint32(progHeader[12:16], loadAddr)          // paddr
	binary.LittleEndian.PutUint32(progHeader[16:20], uint32(len(code))) // filesz
	binary.LittleEndian.PutUint32(progHeader[20:24], uint32(len(code))) // memsz
	binary.LittleEndian.PutUint32(progHeader[24:28], 0x5)               // PF_R|PF_X
	binary.LittleEndian.PutUint32(progHeader[28:32], 0x1000)            // align

	f, _ := os.Create(path)
	defer func() { _ = f.Close() }()
	_, _ = f.Write(elfHeader)
	_, _ = f.Write(progHeader)
	_, _ = f.Write(code)
}

func createMinimalX86ELF(path string) {
	elfHeader := make([]byte, 64)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 2 // 64-bit
	elfHeader[5] = 1
	elfHeader[6] = 1
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)
	binary.LittleEndian.PutUint16(elfHeader[18:20], 62) // EM_X86_64
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)
	binary.LittleEndian.PutUint16(elfHeader[52:54], 64)
	binary.LittleEndian.PutUint16(elfHeader[54:56], 56)
	binary.LittleEndian.PutUint16(elfHeader[56:58], 0)

	f, _ := os.Create(path)
	defer func() { _ = f.Close() }()
	_, _ = f.Write(elfHeader)
}

func createBSSARMELF(path string, segAddr, entryPoint uint32, data []byte, memSize uint32) {
	elfHeader := make([]byte, 52)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1
	elfHeader[5] = 1
	elfHeader[6] = 1
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)
	binary.LittleEndian.PutUint16(elfHeader[18:20], 40)
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)
	binary.LittleEndian.PutUint32(elfHeader[24:28], entryPoint)
	binary.LittleEndian.PutUint32(elfHeader[28:32], 52)
	binary.LittleEndian.PutUint16(elfHeader[40:42], 52)
	binary.LittleEndian.PutUint16(elfHeader[42:44], 32)
	binary.LittleEndian.PutUint16(elfHeader[44:46], 1)

	progHeader := make([]byte, 32)
	binary.LittleEndian.PutUint32(progHeader[0:4], 1)
	binary.LittleEndian.PutUint32(progHeader[4:8], 84)
	binary.LittleEndian.PutUint32(progHeader[8:12], segAddr)
	binary.LittleEndian.PutUint32(progHeader[12:16], segAddr)
	binary.LittleEndian.PutUint32(progHeader[16:20], uint32(len(data)))
	binary.LittleEndian.PutUint32(progHeader[20:24], memSize)
	binary.LittleEndian.PutUint32(progHeader[24:28], 0x6) // PF_R|PF_W
	binary.LittleEndian.PutUint32(progHeader[28:32], 0x1000)

	f, _ := os.Create(path)
	defer func() { _ = f.Close() }()
	_, _ = f.Write(elfHeader)
	_, _ = f.Write(progHeader)
	_, _ = f.Write(data)
}

func createMultiSegmentARMELF(path string, codeAddr, entryPoint uint32, code []byte, dataAddr uint32, data []byte) {
	elfHeader := make([]byte, 52)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1
	elfHeader[5] = 1
	elfHeader[6] = 1
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)
	binary.LittleEndian.PutUint16(elfHeader[18:20], 40)
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)
	binary.LittleEndian.PutUint32(elfHeader[24:28], entryPoint)
	binary.LittleEndian.PutUint32(elfHeader[28:32], 52)
	binary.LittleEndian.PutUint16(elfHeader[40:42], 52)
	binary.LittleEndian.PutUint16(elfHeader[42:44], 32)
	binary.LittleEndian.PutUint16(elfHeader[44:46], 2)

	ph1 := make([]byte, 32)
	binary.LittleEndian.PutUint32(ph1[0:4], 1)
	binary.LittleEndian.PutUint32(ph1[4:8], 52+32*2)
	binary.LittleEndian.PutUint32(ph1[8:12], codeAddr)
	binary.LittleEndian.PutUint32(ph1[12:16], codeAddr)
	binary.LittleEndian.PutUint32(ph1[16:20], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph1[20:24], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph1[24:28], 0x5)
	binary.LittleEndian.PutUint32(ph1[28:32], 0x1000)

	ph2 := make([]byte, 32)
	binary.LittleEndian.PutUint32(ph2[0:4], 1)
	binary.LittleEndian.PutUint32(ph2[4:8], 52+32*2+uint32(len(code)))
	binary.LittleEndian.PutUint32(ph2[8:12], dataAddr)
	binary.LittleEndian.PutUint32(ph2[12:16], dataAddr)
	binary.LittleEndian.PutUint32(ph2[16:20], uint32(len(data)))
	binary.LittleEndian.PutUint32(ph2[20:24], uint32(len(data)))
	binary.LittleEndian.PutUint32(ph2[24:28], 0x6)
	binary.LittleEndian.PutUint32(ph2[28:32], 0x1000)

	f, _ := os.Create(path)
	defer func() { _ = f.Close() }()
	_, _ = f.Write(elfHeader)
	_, _ = f.Write(ph1)
	_, _ = f.Write(ph2)
	_, _ = f.Write(code)
	_, _ = f.Write(data)
}
