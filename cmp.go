// cmp.go - tape cell comparison
package tapec

import (
	"fmt"
	"os"
)

// CmpCellZero emits `cmp byte [r8], 0`, the loop-head test.
func (a *Assembler) CmpCellZero() {
	if Verbose {
		fmt.Fprintln(os.Stderr, "cmp byte [r8], 0")
	}
	// REX.B + 80 /7 ib
	a.emitBytes(0x41, 0x80, 0x38, 0x00)
}
