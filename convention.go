// convention.go - calling-convention table for external calls
package tapec

// CallingConvention selects how external functions receive the tape cell
// address and the auxiliary stack top address (two pointer arguments, in
// that order).
type CallingConvention int

const (
	// SystemVAMD64 is the System V AMD64 ABI (Linux, macOS, BSD).
	SystemVAMD64 CallingConvention = iota
	// MicrosoftX64 is the Microsoft x64 ABI (Windows).
	MicrosoftX64
)

func (c CallingConvention) String() string {
	switch c {
	case SystemVAMD64:
		return "System V AMD64"
	case MicrosoftX64:
		return "Microsoft x64"
	default:
		return "unknown"
	}
}

// conventionInfo holds the first and second integer-argument registers of a
// modeled convention. A convention missing from the table cannot marshal an
// external call and is a configuration error.
type conventionInfo struct {
	arg0 int
	arg1 int
}

var conventions = map[CallingConvention]conventionInfo{
	SystemVAMD64: {arg0: RegRDI, arg1: RegRSI},
	MicrosoftX64: {arg0: RegRCX, arg1: RegRDX},
}

// emitExternalCall marshals an external call: both dedicated registers are
// pushed, the convention's argument registers receive the addresses of the
// two saved slots (so the callee can mutate cell and stack pointer through
// them), the call is emitted under a label bound at its own position, and
// the registers are restored afterwards.
func (c *Compiler) emitExternalCall(a *Assembler, name string, span Span) error {
	info, ok := conventions[c.settings.Convention]
	if !ok {
		s := span
		return &CompilerError{
			Kind:    ErrUnsupportedConvention,
			Message: c.settings.Convention.String(),
			Span:    &s,
		}
	}

	a.PushReg(RegR8)
	a.PushReg(RegR9)
	a.LeaDisp(info.arg0, RegRSP, 8) // address of saved r8 (cell pointer)
	a.LeaDisp(info.arg1, RegRSP, 0) // address of saved r9 (stack pointer)

	site := a.CreateLabel()
	if err := a.SetLabel(site); err != nil {
		return asmError(err, span)
	}
	c.externalCalls[name] = append(c.externalCalls[name], site)
	a.Call(site)

	a.PopReg(RegR9)
	a.PopReg(RegR8)
	return nil
}
