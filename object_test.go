package tapec

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// parseObject serializes obj and reads it back through debug/elf, which is
// as close to a linker's view as the standard library gets.
func parseObject(obj *Object) (*elf.File, []elf.Symbol) {
	f, err := elf.NewFile(bytes.NewReader(obj.Bytes()))
	Expect(err).NotTo(HaveOccurred())
	syms, err := f.Symbols()
	Expect(err).NotTo(HaveOccurred())
	return f, syms
}

func findSymbol(syms []elf.Symbol, name string) (elf.Symbol, int) {
	for i, s := range syms {
		if s.Name == name {
			return s, i
		}
	}
	ginkgo.Fail("symbol " + name + " not found")
	return elf.Symbol{}, -1
}

type relaEntry struct {
	offset uint64
	symbol uint32
	typ    elf.R_X86_64
	addend int64
}

func readRelaText(f *elf.File) []relaEntry {
	sec := f.Section(".rela.text")
	Expect(sec).NotTo(BeNil())
	data, err := sec.Data()
	Expect(err).NotTo(HaveOccurred())
	Expect(len(data) % 24).To(BeZero())

	var out []relaEntry
	for i := 0; i < len(data); i += 24 {
		info := binary.LittleEndian.Uint64(data[i+8 : i+16])
		out = append(out, relaEntry{
			offset: binary.LittleEndian.Uint64(data[i : i+8]),
			symbol: uint32(info >> 32),
			typ:    elf.R_X86_64(info & 0xFFFFFFFF),
			addend: int64(binary.LittleEndian.Uint64(data[i+16 : i+24])),
		})
	}
	return out
}

var _ = ginkgo.Describe("CompileToObject", func() {
	newCompiler := func() *Compiler {
		return New(Settings{Bitness: 64, Convention: SystemVAMD64})
	}

	ginkgo.It("emits a well-formed x86-64 relocatable ELF", func() {
		obj, err := newCompiler().CompileToObject([]IrNode{{Op: Add, Arg: 1}}, "prog.bf")
		Expect(err).NotTo(HaveOccurred())

		f, syms := parseObject(obj)
		defer f.Close()

		Expect(f.Type).To(Equal(elf.ET_REL))
		Expect(f.Machine).To(Equal(elf.EM_X86_64))
		Expect(f.Data).To(Equal(elf.ELFDATA2LSB))
		Expect(f.Section(".text")).NotTo(BeNil())
		Expect(f.Section(".symtab")).NotTo(BeNil())

		file, _ := findSymbol(syms, "prog.bf")
		Expect(elf.ST_TYPE(file.Info)).To(Equal(elf.STT_FILE))
		Expect(elf.ST_BIND(file.Info)).To(Equal(elf.STB_LOCAL))
	})

	ginkgo.Context("with one external call", func() {
		var (
			obj  *Object
			f    *elf.File
			syms []elf.Symbol
		)

		ginkgo.BeforeEach(func() {
			var err error
			obj, err = newCompiler().CompileToObject([]IrNode{
				{Op: ExternalFunctionCall, Name: "host_fn"},
			}, "prog.bf")
			Expect(err).NotTo(HaveOccurred())
			f, syms = parseObject(obj)
		})

		ginkgo.AfterEach(func() {
			f.Close()
		})

		ginkgo.It("declares host_fn as an undefined global function symbol", func() {
			sym, _ := findSymbol(syms, "host_fn")
			Expect(sym.Section).To(Equal(elf.SectionIndex(elf.SHN_UNDEF)))
			Expect(elf.ST_BIND(sym.Info)).To(Equal(elf.STB_GLOBAL))
			Expect(elf.ST_TYPE(sym.Info)).To(Equal(elf.STT_FUNC))
		})

		ginkgo.It("records one PC-relative relocation just past the call opcode", func() {
			// _start body: push(2+2), lea(5+4), so the call sits at 13
			// and its operand at 14.
			relas := readRelaText(f)
			Expect(relas).To(HaveLen(1))

			_, pos := findSymbol(syms, "host_fn")
			Expect(relas[0].offset).To(Equal(uint64(14)))
			Expect(relas[0].typ).To(Equal(elf.R_X86_64_PC32))
			Expect(relas[0].addend).To(Equal(int64(-4)))
			// debug/elf drops the null entry, so table index is pos+1.
			Expect(relas[0].symbol).To(Equal(uint32(pos + 1)))
		})

		ginkgo.It("zeroes the call operand in the text section", func() {
			Expect(obj.Text[14:18]).To(Equal([]byte{0, 0, 0, 0}))
			// The opcode itself stays.
			Expect(obj.Text[13]).To(Equal(byte(0xE8)))
		})

		ginkgo.It("uses one undefined symbol for repeated calls to the same external", func() {
			obj2, err := newCompiler().CompileToObject([]IrNode{
				{Op: ExternalFunctionCall, Name: "host_fn"},
				{Op: ExternalFunctionCall, Name: "host_fn"},
			}, "prog.bf")
			Expect(err).NotTo(HaveOccurred())
			f2, syms2 := parseObject(obj2)
			defer f2.Close()

			count := 0
			for _, s := range syms2 {
				if s.Name == "host_fn" {
					count++
				}
			}
			Expect(count).To(Equal(1))
			Expect(readRelaText(f2)).To(HaveLen(2))
		})
	})

	ginkgo.Context("with declared functions", func() {
		ginkgo.It("exports top-level functions and the entry at resolved offsets", func() {
			obj, err := newCompiler().CompileToObject([]IrNode{
				{Op: Function, Name: "inc", Body: []IrNode{{Op: Add, Arg: 1}}},
				{Op: FunctionCall, Name: "inc"},
			}, "prog.bf")
			Expect(err).NotTo(HaveOccurred())
			f, syms := parseObject(obj)
			defer f.Close()

			inc, _ := findSymbol(syms, "inc")
			Expect(inc.Value).To(Equal(uint64(0)))
			Expect(inc.Section).To(Equal(elf.SectionIndex(shnText)))
			Expect(elf.ST_TYPE(inc.Info)).To(Equal(elf.STT_FUNC))

			start, _ := findSymbol(syms, EntryName)
			Expect(start.Value).To(Equal(uint64(5)))

			// inc: add + ret; _start: direct call back to offset 0, ret.
			Expect(obj.Text).To(Equal([]byte{
				0x41, 0x80, 0x00, 0x01, 0xC3,
				0xE8, 0xF6, 0xFF, 0xFF, 0xFF, 0xC3,
			}))
		})

		ginkgo.It("translates functions before the entry regardless of source order", func() {
			obj, err := newCompiler().CompileToObject([]IrNode{
				{Op: Add, Arg: 1},
				{Op: Function, Name: "f"},
			}, "prog.bf")
			Expect(err).NotTo(HaveOccurred())
			f, syms := parseObject(obj)
			defer f.Close()

			fn, _ := findSymbol(syms, "f")
			Expect(fn.Value).To(Equal(uint64(0)))
			start, _ := findSymbol(syms, EntryName)
			Expect(start.Value).To(Equal(uint64(1)))
		})

		ginkgo.It("does not export functions nested inside other functions", func() {
			obj, err := newCompiler().CompileToObject([]IrNode{
				{Op: Function, Name: "outer", Body: []IrNode{
					{Op: Function, Name: "inner"},
				}},
			}, "prog.bf")
			Expect(err).NotTo(HaveOccurred())
			f, syms := parseObject(obj)
			defer f.Close()

			findSymbol(syms, "outer")
			for _, s := range syms {
				Expect(s.Name).NotTo(Equal("inner"))
			}
		})
	})

	ginkgo.Describe("AddRelocation", func() {
		ginkgo.It("rejects offsets outside the text section", func() {
			obj := &Object{Text: make([]byte, 4)}
			id := obj.AddSymbol(Symbol{Name: "x", Global: true, Undefined: true})
			err := obj.AddRelocation(Relocation{Offset: 10, Symbol: id, Size: 32})

			var cerr *CompilerError
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Kind).To(Equal(ErrRelocation))
		})

		ginkgo.It("rejects unknown symbol handles", func() {
			obj := &Object{Text: make([]byte, 8)}
			err := obj.AddRelocation(Relocation{Offset: 0, Symbol: SymbolID(5), Size: 32})
			Expect(err).To(HaveOccurred())
		})
	})
})
