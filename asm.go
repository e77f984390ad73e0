// asm.go - symbolic x86-64 assembler: code buffer, labels, rel32 fixups
package tapec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Register encodings (low 3 bits go in ModR/M, bit 3 selects REX.B/R/X).
const (
	RegRAX = 0
	RegRCX = 1
	RegRDX = 2
	RegRBX = 3
	RegRSP = 4
	RegRBP = 5
	RegRSI = 6
	RegRDI = 7
	RegR8  = 8
	RegR9  = 9
	RegR10 = 10
	RegR11 = 11
	RegR12 = 12
	RegR13 = 13
	RegR14 = 14
	RegR15 = 15
)

var regNames = [16]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

// Label is an opaque handle for a code position. Labels are created before
// use, bound exactly once with SetLabel, and resolve to addresses only when
// the whole stream is assembled.
type Label int

const unboundLabel = int64(-1)

// fixup records a 4-byte rel32 operand at offset that must be patched to
// reach label. The displacement is measured from the end of the operand.
type fixup struct {
	offset int
	label  Label
}

// Assembler accumulates symbolic instructions for one compile request and
// resolves them in a single Assemble pass. Only 64-bit mode is supported.
type Assembler struct {
	code      []byte
	labels    []int64 // label -> bound offset, or unboundLabel
	fixups    []fixup
	assembled bool
}

// NewAssembler returns an assembler for the given bitness. Only 64 is a
// valid bitness for this backend.
func NewAssembler(bitness uint32) (*Assembler, error) {
	if bitness != 64 {
		return nil, fmt.Errorf("unsupported bitness %d, only 64 is available", bitness)
	}
	return &Assembler{}, nil
}

// CreateLabel returns a new, unbound label.
func (a *Assembler) CreateLabel() Label {
	a.labels = append(a.labels, unboundLabel)
	return Label(len(a.labels) - 1)
}

// SetLabel binds a label to the current emission point.
func (a *Assembler) SetLabel(l Label) error {
	if int(l) < 0 || int(l) >= len(a.labels) {
		return fmt.Errorf("unknown label %d", l)
	}
	if a.labels[l] != unboundLabel {
		return fmt.Errorf("label %d bound twice", l)
	}
	a.labels[l] = int64(len(a.code))
	return nil
}

func (a *Assembler) emitByte(b byte) {
	a.code = append(a.code, b)
}

func (a *Assembler) emitBytes(bs ...byte) {
	a.code = append(a.code, bs...)
}

func (a *Assembler) emitU32(v uint32) {
	a.code = binary.LittleEndian.AppendUint32(a.code, v)
}

func (a *Assembler) emitU64(v uint64) {
	a.code = binary.LittleEndian.AppendUint64(a.code, v)
}

// emitLabelRef emits a 4-byte placeholder operand referring to l and queues
// its fixup.
func (a *Assembler) emitLabelRef(l Label) {
	a.fixups = append(a.fixups, fixup{offset: len(a.code), label: l})
	a.emitU32(0)
}

// Result is the assembled output of one compile request: the final byte
// buffer and the resolved label addresses, relative to the base address the
// stream was assembled at.
type Result struct {
	Code []byte

	base   uint64
	labels []int64
}

// LabelIP returns the resolved address of a bound label.
func (r *Result) LabelIP(l Label) (uint64, bool) {
	if int(l) < 0 || int(l) >= len(r.labels) || r.labels[l] == unboundLabel {
		return 0, false
	}
	return r.base + uint64(r.labels[l]), true
}

// Assemble resolves every label reference and returns the finished byte
// buffer. It may run once; an assembler is not reusable across requests.
func (a *Assembler) Assemble(base uint64) (*Result, error) {
	if a.assembled {
		return nil, fmt.Errorf("assembler already consumed")
	}
	a.assembled = true

	for _, f := range a.fixups {
		target := a.labels[f.label]
		if target == unboundLabel {
			return nil, fmt.Errorf("label %d referenced but never bound", f.label)
		}
		// rel32 is measured from the end of the 4-byte operand.
		rel := target - int64(f.offset) - 4
		if rel < math.MinInt32 || rel > math.MaxInt32 {
			return nil, fmt.Errorf("jump distance %d out of rel32 range", rel)
		}
		binary.LittleEndian.PutUint32(a.code[f.offset:], uint32(int32(rel)))
	}

	return &Result{Code: a.code, base: base, labels: a.labels}, nil
}
