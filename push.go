// push.go - native stack push/pop for the dedicated pointer registers
package tapec

import (
	"fmt"
	"os"
)

// PushReg emits `push reg` (REX.B prefix for r8-r15).
func (a *Assembler) PushReg(reg int) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "push %s\n", regNames[reg&15])
	}
	if reg >= 8 {
		a.emitBytes(0x41, byte(0x50+(reg&7)))
	} else {
		a.emitByte(byte(0x50 + reg))
	}
}

// PopReg emits `pop reg` (REX.B prefix for r8-r15).
func (a *Assembler) PopReg(reg int) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "pop %s\n", regNames[reg&15])
	}
	if reg >= 8 {
		a.emitBytes(0x41, byte(0x58+(reg&7)))
	} else {
		a.emitByte(byte(0x58 + reg))
	}
}
