// lea.go - address computation (pointer moves and argument setup)
package tapec

import (
	"fmt"
	"os"
)

// LeaDisp emits `lea dst, [base + disp]` with automatic disp8/disp32
// selection. An rsp/r12 base gets its mandatory SIB byte; an rbp/r13 base
// with zero displacement is encoded as disp8 0 since mod=00 would mean
// rip-relative there.
func (a *Assembler) LeaDisp(dst, base int, disp int32) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "lea %s, [%s%+d]\n", regNames[dst&15], regNames[base&15], disp)
	}

	rex := byte(0x48)
	if dst >= 8 {
		rex |= 0x04 // REX.R
	}
	if base >= 8 {
		rex |= 0x01 // REX.B
	}
	a.emitBytes(rex, 0x8D)

	var mod byte
	switch {
	case disp == 0 && (base&7) != RegRBP:
		mod = 0x00
	case disp >= -128 && disp <= 127:
		mod = 0x40
	default:
		mod = 0x80
	}

	a.emitByte(mod | byte((dst&7)<<3) | byte(base&7))
	if (base & 7) == RegRSP {
		a.emitByte(0x24) // SIB: scale 1, no index, base in ModR/M
	}

	switch mod {
	case 0x40:
		a.emitByte(byte(disp))
	case 0x80:
		a.emitU32(uint32(disp))
	}
}
