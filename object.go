// object.go - relocatable object artifact: symbols, relocations, build pass
package tapec

import (
	"debug/elf"
	"fmt"
	"sort"
)

// EntryName is the synthesized function wrapping top-level non-function
// statements in an object artifact.
const EntryName = "_start"

// SymbolID identifies a symbol added to an Object.
type SymbolID int

// Symbol describes one entry of the object's symbol table.
type Symbol struct {
	Name      string
	Value     uint64
	Size      uint64
	Type      elf.SymType
	Global    bool
	Undefined bool // not defined here, to be resolved by the linker
}

// Relocation asks the linker to patch Size bits at Offset in the text
// section with the address of Symbol, adjusted by Addend.
type Relocation struct {
	Offset uint64
	Symbol SymbolID
	Type   elf.R_X86_64
	Size   int
	Addend int64
}

// Object is a single-section relocatable artifact: all code in .text, one
// symbol per top-level function, undefined symbols plus relocations for
// external calls. Serialization to ELF lives in elf.go.
type Object struct {
	SourceFile  string
	Text        []byte
	symbols     []Symbol
	relocations []Relocation
}

// AddSymbol appends a symbol and returns its handle.
func (o *Object) AddSymbol(s Symbol) SymbolID {
	o.symbols = append(o.symbols, s)
	return SymbolID(len(o.symbols) - 1)
}

// SetSymbolValue fixes the resolved address of an already-added symbol.
func (o *Object) SetSymbolValue(id SymbolID, value uint64) {
	o.symbols[id].Value = value
}

// AddRelocation records a relocation against a previously added symbol.
func (o *Object) AddRelocation(r Relocation) error {
	if int(r.Symbol) < 0 || int(r.Symbol) >= len(o.symbols) {
		return &CompilerError{
			Kind:    ErrRelocation,
			Message: fmt.Sprintf("unknown symbol id %d", r.Symbol),
		}
	}
	if r.Offset+uint64(r.Size/8) > uint64(len(o.Text)) {
		return &CompilerError{
			Kind:    ErrRelocation,
			Message: fmt.Sprintf("offset %#x outside text section of %d bytes", r.Offset, len(o.Text)),
		}
	}
	o.relocations = append(o.relocations, r)
	return nil
}

// CompileToObject translates ir into a relocatable object artifact.
//
// Top-level function declarations become exported symbols; all remaining
// top-level statements are wrapped into a synthesized entry function,
// translated last. External call operands are zeroed in the text and
// replaced by PC-relative relocations against undefined symbols.
func (c *Compiler) CompileToObject(ir []IrNode, filename string) (*Object, error) {
	if err := c.consume(); err != nil {
		return nil, err
	}

	obj := &Object{SourceFile: filename}
	obj.AddSymbol(Symbol{Name: filename, Type: elf.STT_FILE})

	// Partition the top level, pre-creating one exported symbol per
	// declared function before anything is translated.
	preSyms := make(map[string]SymbolID)
	var fns, stmts []IrNode
	for _, node := range ir {
		if node.Op == Function {
			preSyms[node.Name] = obj.AddSymbol(Symbol{
				Name:   node.Name,
				Type:   elf.STT_FUNC,
				Global: true,
			})
			fns = append(fns, node)
		} else {
			stmts = append(stmts, node)
		}
	}
	entrySym := obj.AddSymbol(Symbol{Name: EntryName, Type: elf.STT_FUNC, Global: true})
	fns = append(fns, IrNode{Op: Function, Name: EntryName, Body: stmts})

	// The object path always assembles at base 0 so label addresses are
	// section offsets.
	res, err := c.translate(fns, 0)
	if err != nil {
		return nil, err
	}

	// The assembler resolves every call operand eagerly, including calls
	// to externals (which point at themselves); those four bytes must be
	// neutralized before a relocation takes their place.
	for _, name := range c.externalNames() {
		for _, site := range c.externalCalls[name] {
			ip := mustLabelIP(res, site, name)
			for i := ip + 1; i < ip+5; i++ {
				res.Code[i] = 0
			}
		}
	}
	obj.Text = res.Code

	for _, name := range c.externalNames() {
		und := obj.AddSymbol(Symbol{
			Name:      name,
			Type:      elf.STT_FUNC,
			Global:    true,
			Undefined: true,
		})
		for _, site := range c.externalCalls[name] {
			ip := mustLabelIP(res, site, name)
			// The call opcode is one byte, so the linker patches the 32
			// bits at site+1; the -4 addend accounts for rel32 being
			// measured from the end of the instruction.
			err := obj.AddRelocation(Relocation{
				Offset: ip + 1,
				Symbol: und,
				Type:   elf.R_X86_64_PC32,
				Size:   32,
				Addend: -4,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	// Attach resolved offsets to the pre-created symbols. Only root-scope
	// functions are exposed; the registry filters nested ones out.
	for _, fn := range c.scopes.GlobalFunctions() {
		ip := mustLabelIP(res, fn.Label, fn.Name)
		if fn.Name == EntryName {
			obj.SetSymbolValue(entrySym, ip)
			continue
		}
		if id, ok := preSyms[fn.Name]; ok {
			obj.SetSymbolValue(id, ip)
		}
	}

	return obj, nil
}

// externalNames returns the distinct external function names in a stable
// order, so symbol and relocation emission is deterministic.
func (c *Compiler) externalNames() []string {
	names := make([]string, 0, len(c.externalCalls))
	for name := range c.externalCalls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mustLabelIP resolves a label that translation is known to have bound. A
// miss here is an internal translator/object-builder inconsistency, not a
// user error, so it panics.
func mustLabelIP(res *Result, l Label, name string) uint64 {
	ip, ok := res.LabelIP(l)
	if !ok {
		panic(fmt.Sprintf("tapec: internal: no address for label of %q after assembly", name))
	}
	return ip
}
