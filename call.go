// call.go - direct calls and returns
package tapec

import (
	"fmt"
	"os"
)

// Call emits `call rel32` targeting a label. For external calls the label
// is bound at the call instruction itself; the object builder later zeroes
// the operand and replaces it with a relocation.
func (a *Assembler) Call(l Label) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "call L%d\n", l)
	}
	a.emitByte(0xE8)
	a.emitLabelRef(l)
}

// Ret emits `ret`.
func (a *Assembler) Ret() {
	if Verbose {
		fmt.Fprintln(os.Stderr, "ret")
	}
	a.emitByte(0xC3)
}
