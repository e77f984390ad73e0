// mov.go - byte moves between the tape cell and the auxiliary stack
package tapec

import (
	"fmt"
	"os"
)

// The cell and the auxiliary stack are bridged through al; no other
// general-purpose register is touched by the translated program.

// MovCellToAL emits `mov al, byte [r8]`.
func (a *Assembler) MovCellToAL() {
	if Verbose {
		fmt.Fprintln(os.Stderr, "mov al, byte [r8]")
	}
	a.emitBytes(0x41, 0x8A, 0x00)
}

// MovALToCell emits `mov byte [r8], al`.
func (a *Assembler) MovALToCell() {
	if Verbose {
		fmt.Fprintln(os.Stderr, "mov byte [r8], al")
	}
	a.emitBytes(0x41, 0x88, 0x00)
}

// MovStackToAL emits `mov al, byte [r9]`.
func (a *Assembler) MovStackToAL() {
	if Verbose {
		fmt.Fprintln(os.Stderr, "mov al, byte [r9]")
	}
	a.emitBytes(0x41, 0x8A, 0x01)
}

// MovALToStack emits `mov byte [r9], al`.
func (a *Assembler) MovALToStack() {
	if Verbose {
		fmt.Fprintln(os.Stderr, "mov byte [r9], al")
	}
	a.emitBytes(0x41, 0x88, 0x01)
}

// MovRegImm64 emits `movabs reg, imm64` (REX.W + B8+rd + imm64).
func (a *Assembler) MovRegImm64(reg int, imm uint64) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "movabs %s, 0x%x\n", regNames[reg&15], imm)
	}
	rex := byte(0x48)
	if reg >= 8 {
		rex = 0x49
	}
	a.emitByte(rex)
	a.emitByte(byte(0xB8 + (reg & 7)))
	a.emitU64(imm)
}
