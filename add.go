// add.go - byte arithmetic on the current tape cell
package tapec

import (
	"fmt"
	"os"
)

// Cell arithmetic is always 8-bit through the data pointer, so wraparound
// at 256 comes from the hardware rather than explicit masking.

// AddCell emits `add byte [r8], imm8`.
func (a *Assembler) AddCell(imm uint8) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "add byte [r8], %d\n", imm)
	}
	// REX.B (base r8) + 80 /0 ib
	a.emitBytes(0x41, 0x80, 0x00, imm)
}

// SubCell emits `sub byte [r8], imm8`.
func (a *Assembler) SubCell(imm uint8) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "sub byte [r8], %d\n", imm)
	}
	// REX.B + 80 /5 ib
	a.emitBytes(0x41, 0x80, 0x28, imm)
}
