// jmp.go - label-targeted jumps
package tapec

import (
	"fmt"
	"os"
)

// Jumps always use the rel32 forms so label resolution stays a single
// patch pass with no relaxation.

// Jmp emits `jmp rel32` targeting a label.
func (a *Assembler) Jmp(l Label) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "jmp L%d\n", l)
	}
	a.emitByte(0xE9)
	a.emitLabelRef(l)
}

// Je emits `je rel32` targeting a label.
func (a *Assembler) Je(l Label) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "je L%d\n", l)
	}
	a.emitBytes(0x0F, 0x84)
	a.emitLabelRef(l)
}
