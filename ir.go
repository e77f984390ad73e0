// ir.go - the tape-machine intermediate representation consumed by the backend
package tapec

import "fmt"

// IrOp is the operation kind of an IR node. The vocabulary is closed: the
// translator handles every kind listed here and rejects anything else.
type IrOp int

const (
	// Add adds Arg to the byte at the data pointer, wrapping modulo 256.
	Add IrOp = iota
	// Subtract subtracts Arg from the byte at the data pointer.
	Subtract
	// MoveRight displaces the data pointer by +Arg bytes.
	MoveRight
	// MoveLeft displaces the data pointer by -Arg bytes.
	MoveLeft
	// StackPush copies the current cell onto the auxiliary byte stack.
	StackPush
	// StackPop copies the top of the auxiliary byte stack into the current cell.
	StackPop
	// Condition repeats Body while the current cell is non-zero.
	Condition
	// Function declares a callable unit named Name with Body as its code.
	Function
	// FunctionCall calls a previously declared function by Name.
	FunctionCall
	// ExternalFunctionCall calls a foreign native function by Name.
	ExternalFunctionCall
)

func (op IrOp) String() string {
	switch op {
	case Add:
		return "Add"
	case Subtract:
		return "Subtract"
	case MoveRight:
		return "MoveRight"
	case MoveLeft:
		return "MoveLeft"
	case StackPush:
		return "StackPush"
	case StackPop:
		return "StackPop"
	case Condition:
		return "Condition"
	case Function:
		return "Function"
	case FunctionCall:
		return "FunctionCall"
	case ExternalFunctionCall:
		return "ExternalFunctionCall"
	default:
		return fmt.Sprintf("IrOp(%d)", int(op))
	}
}

// Span locates an IR node in the original source text. It is carried through
// translation solely for error attribution.
type Span struct {
	Line   int
	Column int
	Length int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IrNode is one operation in the program tree. Which fields are meaningful
// depends on Op: Arg for the counted operations, Name for functions and
// calls, Body for functions and conditions.
type IrNode struct {
	Op   IrOp
	Arg  uint64
	Name string
	Body []IrNode
	Span Span
}
