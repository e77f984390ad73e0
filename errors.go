// errors.go - structured compile errors with source attribution
package tapec

import "fmt"

// ErrorKind classifies a compile failure.
type ErrorKind int

const (
	// ErrAssembler wraps a failure reported by the assembler capability.
	ErrAssembler ErrorKind = iota
	// ErrMoveTooLarge reports a pointer displacement beyond the
	// representable range.
	ErrMoveTooLarge
	// ErrFunctionNotFound reports a call to a name absent from the
	// function registry at the time the call was translated.
	ErrFunctionNotFound
	// ErrUnsupportedOperation reports an IR node kind the translator has
	// no rule for.
	ErrUnsupportedOperation
	// ErrUnsupportedConvention reports a configured calling convention
	// with no modeled argument-marshaling strategy.
	ErrUnsupportedConvention
	// ErrRelocation reports a relocation record the object builder could
	// not accept.
	ErrRelocation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAssembler:
		return "assembler error"
	case ErrMoveTooLarge:
		return "displacement too large"
	case ErrFunctionNotFound:
		return "function not found"
	case ErrUnsupportedOperation:
		return "unsupported operation"
	case ErrUnsupportedConvention:
		return "unsupported calling convention"
	case ErrRelocation:
		return "relocation failed"
	default:
		return "unknown error"
	}
}

// CompilerError is the single error type returned by a compile request.
// The first failure aborts the request; there is no accumulation.
type CompilerError struct {
	Kind    ErrorKind
	Message string
	Span    *Span // nil when the failure has no source position
	Err     error // underlying error, set for wrapped assembler failures
}

func (e *CompilerError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Span != nil {
		return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *CompilerError) Unwrap() error {
	return e.Err
}

// asmError wraps a failure from the assembler capability, attaching the
// span of the IR node being translated.
func asmError(err error, span Span) *CompilerError {
	s := span
	return &CompilerError{Kind: ErrAssembler, Span: &s, Err: err}
}
