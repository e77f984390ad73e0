// elf.go - ELF64 relocatable-object serialization
package tapec

import (
	"debug/elf"
	"encoding/binary"
	"io"
)

// The artifact is the smallest object a linker accepts: NULL section,
// .text, .strtab, .symtab, .rela.text and .shstrtab, in that order, with
// the section header table at the end of the file.
const (
	elfHeaderSize  = 64
	sectionHdrSize = 64
	symbolSize     = 24
	relaSize       = 24

	shnText     = 1
	shnStrtab   = 2
	shnSymtab   = 3
	shnRelaText = 4
	shnShstrtab = 5
	shnCount    = 6
)

// elfBuffer is a little-endian byte accumulator.
type elfBuffer struct {
	buf []byte
}

func (b *elfBuffer) u8(v uint8)   { b.buf = append(b.buf, v) }
func (b *elfBuffer) u16(v uint16) { b.buf = binary.LittleEndian.AppendUint16(b.buf, v) }
func (b *elfBuffer) u32(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }
func (b *elfBuffer) u64(v uint64) { b.buf = binary.LittleEndian.AppendUint64(b.buf, v) }
func (b *elfBuffer) raw(v []byte) { b.buf = append(b.buf, v...) }

// strtab builds a string table, reusing offsets for repeated names.
type strtab struct {
	buf     []byte
	offsets map[string]uint32
}

func newStrtab() *strtab {
	return &strtab{buf: []byte{0}, offsets: make(map[string]uint32)}
}

func (t *strtab) add(s string) uint32 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := uint32(len(t.buf))
	t.buf = append(t.buf, s...)
	t.buf = append(t.buf, 0)
	t.offsets[s] = off
	return off
}

// Bytes serializes the object as an x86-64 little-endian ET_REL file.
func (o *Object) Bytes() []byte {
	names := newStrtab()

	// Locals come first in the symbol table; sh_info of .symtab is the
	// index of the first global. Index 0 is the mandatory null symbol.
	var order []SymbolID
	for i, s := range o.symbols {
		if !s.Global {
			order = append(order, SymbolID(i))
		}
	}
	localCount := uint32(len(order)) + 1
	for i, s := range o.symbols {
		if s.Global {
			order = append(order, SymbolID(i))
		}
	}
	finalIndex := make(map[SymbolID]uint32, len(order))
	for i, id := range order {
		finalIndex[id] = uint32(i) + 1
	}

	var symtab elfBuffer
	symtab.raw(make([]byte, symbolSize)) // null symbol
	for _, id := range order {
		s := o.symbols[id]
		bind := elf.STB_LOCAL
		if s.Global {
			bind = elf.STB_GLOBAL
		}
		shndx := uint16(shnText)
		switch {
		case s.Undefined:
			shndx = uint16(elf.SHN_UNDEF)
		case s.Type == elf.STT_FILE:
			shndx = uint16(elf.SHN_ABS)
		}
		symtab.u32(names.add(s.Name))
		symtab.u8(elf.ST_INFO(bind, s.Type))
		symtab.u8(uint8(elf.STV_DEFAULT))
		symtab.u16(shndx)
		symtab.u64(s.Value)
		symtab.u64(s.Size)
	}

	var rela elfBuffer
	for _, r := range o.relocations {
		rela.u64(r.Offset)
		rela.u64(elf.R_INFO(finalIndex[r.Symbol], uint32(r.Type)))
		rela.u64(uint64(r.Addend))
	}

	shstr := newStrtab()
	type sectionHdr struct {
		name      uint32
		typ       elf.SectionType
		flags     elf.SectionFlag
		offset    uint64
		size      uint64
		link      uint32
		info      uint32
		addralign uint64
		entsize   uint64
	}

	offset := uint64(elfHeaderSize)
	place := func(size int) uint64 {
		at := offset
		offset += uint64(size)
		return at
	}

	headers := []sectionHdr{
		{name: shstr.add("")},
		{
			name:      shstr.add(".text"),
			typ:       elf.SHT_PROGBITS,
			flags:     elf.SHF_ALLOC | elf.SHF_EXECINSTR,
			offset:    place(len(o.Text)),
			size:      uint64(len(o.Text)),
			addralign: 16,
		},
		{
			name:   shstr.add(".strtab"),
			typ:    elf.SHT_STRTAB,
			offset: place(len(names.buf)),
			size:   uint64(len(names.buf)),
		},
		{
			name:    shstr.add(".symtab"),
			typ:     elf.SHT_SYMTAB,
			offset:  place(len(symtab.buf)),
			size:    uint64(len(symtab.buf)),
			link:    shnStrtab,
			info:    localCount,
			entsize: symbolSize,
		},
		{
			name:    shstr.add(".rela.text"),
			typ:     elf.SHT_RELA,
			flags:   elf.SHF_INFO_LINK,
			offset:  place(len(rela.buf)),
			size:    uint64(len(rela.buf)),
			link:    shnSymtab,
			info:    shnText,
			entsize: relaSize,
		},
		{
			name: shstr.add(".shstrtab"),
			typ:  elf.SHT_STRTAB,
		},
	}
	headers[shnShstrtab].offset = place(len(shstr.buf))
	headers[shnShstrtab].size = uint64(len(shstr.buf))
	shoff := offset

	var out elfBuffer
	out.raw([]byte{0x7F, 'E', 'L', 'F'})
	out.u8(uint8(elf.ELFCLASS64))
	out.u8(uint8(elf.ELFDATA2LSB))
	out.u8(uint8(elf.EV_CURRENT))
	out.u8(uint8(elf.ELFOSABI_NONE))
	out.raw(make([]byte, 8)) // ABI version + padding
	out.u16(uint16(elf.ET_REL))
	out.u16(uint16(elf.EM_X86_64))
	out.u32(uint32(elf.EV_CURRENT))
	out.u64(0) // no entry point
	out.u64(0) // no program headers
	out.u64(shoff)
	out.u32(0) // no flags
	out.u16(elfHeaderSize)
	out.u16(0) // program header entry size
	out.u16(0) // program header count
	out.u16(sectionHdrSize)
	out.u16(shnCount)
	out.u16(shnShstrtab)

	out.raw(o.Text)
	out.raw(names.buf)
	out.raw(symtab.buf)
	out.raw(rela.buf)
	out.raw(shstr.buf)

	for _, h := range headers {
		out.u32(h.name)
		out.u32(uint32(h.typ))
		out.u64(uint64(h.flags))
		out.u64(0) // no memory address in a relocatable object
		out.u64(h.offset)
		out.u64(h.size)
		out.u32(h.link)
		out.u32(h.info)
		out.u64(h.addralign)
		out.u64(h.entsize)
	}

	return out.buf
}

// WriteTo writes the serialized object to w.
func (o *Object) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(o.Bytes())
	return int64(n), err
}
