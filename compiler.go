// compiler.go - depth-first IR translation to x86-64
package tapec

import (
	"errors"
	"fmt"
)

// maxMove is the largest pointer displacement a single lea can encode.
const maxMove = 0x7FFFFFFF

// Compiler translates one IR sequence into machine code. Two registers are
// reserved for the whole compile: r8 holds the address of the current tape
// cell, r9 the top of the auxiliary byte stack.
//
// A Compiler is single-use: the function registry and external-call table
// belong to one compile request, so create a new Compiler per request.
type Compiler struct {
	settings      Settings
	scopes        *scopeManager
	externalCalls map[string][]Label
	used          bool
}

// New returns a compiler for one compile request.
func New(settings Settings) *Compiler {
	return &Compiler{
		settings:      settings,
		scopes:        newScopeManager(),
		externalCalls: make(map[string][]Label),
	}
}

// CompileToBytecode translates ir into a raw instruction stream resolved
// against the configured base address. Internal control flow is final;
// external call operands are whatever the assembler computed and are only
// meaningful when the runtime places code at exactly that base.
//
// Function calls resolve in translation order: a function may call itself
// or any function declared before it, but not a sibling declared later.
func (c *Compiler) CompileToBytecode(ir []IrNode) ([]byte, error) {
	if err := c.consume(); err != nil {
		return nil, err
	}
	res, err := c.translate(ir, c.settings.BaseAddress)
	if err != nil {
		return nil, err
	}
	return res.Code, nil
}

// consume marks the compiler as used; a second compile request on the same
// value is refused instead of leaking registry state across requests.
func (c *Compiler) consume() error {
	if c.used {
		return errors.New("tapec: compiler already used, create a new one per compile request")
	}
	c.used = true
	return nil
}

// translate runs the whole translation pass: assembler construction, the
// depth-first node walk, and final assembly at base.
func (c *Compiler) translate(ir []IrNode, base uint64) (*Result, error) {
	a, err := NewAssembler(c.settings.Bitness)
	if err != nil {
		return nil, &CompilerError{Kind: ErrAssembler, Err: err}
	}
	for _, node := range ir {
		if err := c.translateNode(a, node); err != nil {
			return nil, err
		}
	}
	res, err := a.Assemble(base)
	if err != nil {
		return nil, &CompilerError{Kind: ErrAssembler, Err: err}
	}
	return res, nil
}

func (c *Compiler) translateNode(a *Assembler, node IrNode) error {
	switch node.Op {
	case Add:
		// One add holds at most 255, so larger amounts are emitted as
		// 255-chunks plus a remainder; modulo 256 the net effect is the
		// same as a single addition of Arg.
		rem := node.Arg
		for rem > 255 {
			rem -= 255
			a.AddCell(255)
		}
		a.AddCell(uint8(rem))

	case Subtract:
		// No chunking: only the low 8 bits of Arg can take effect anyway.
		a.SubCell(uint8(node.Arg))

	case MoveRight:
		if node.Arg > maxMove {
			return moveTooLarge(node)
		}
		a.LeaDisp(RegR8, RegR8, int32(node.Arg))

	case MoveLeft:
		if node.Arg > maxMove {
			return moveTooLarge(node)
		}
		a.LeaDisp(RegR8, RegR8, -int32(node.Arg))

	case StackPush:
		// Pre-increment push: bump the stack pointer, then copy the cell
		// to the new top.
		a.LeaDisp(RegR9, RegR9, 1)
		a.MovCellToAL()
		a.MovALToStack()

	case StackPop:
		// Post-decrement pop: copy the top into the cell, then drop it.
		a.MovStackToAL()
		a.MovALToCell()
		a.LeaDisp(RegR9, RegR9, -1)

	case Condition:
		return c.translateCondition(a, node)

	case Function:
		return c.translateFunction(a, node)

	case FunctionCall:
		label, ok := c.scopes.ResolveFunction(node.Name)
		if !ok {
			s := node.Span
			return &CompilerError{Kind: ErrFunctionNotFound, Message: node.Name, Span: &s}
		}
		a.Call(label)

	case ExternalFunctionCall:
		return c.emitExternalCall(a, node.Name, node.Span)

	default:
		s := node.Span
		return &CompilerError{
			Kind:    ErrUnsupportedOperation,
			Message: node.Op.String(),
			Span:    &s,
		}
	}
	return nil
}

// translateCondition emits the loop shape:
//
//	start:
//	    cmp byte [r8], 0
//	    je end
//	    ... body ...
//	    jmp start
//	end:
//
// The body runs zero or more times; the cell is retested at every re-entry
// to start.
func (c *Compiler) translateCondition(a *Assembler, node IrNode) error {
	start := a.CreateLabel()
	end := a.CreateLabel()

	if err := a.SetLabel(start); err != nil {
		return asmError(err, node.Span)
	}
	a.CmpCellZero()
	a.Je(end)

	c.scopes.PushAnonymousScope()
	for _, child := range node.Body {
		if err := c.translateNode(a, child); err != nil {
			return err
		}
	}
	c.scopes.PopScope()

	a.Jmp(start)
	if err := a.SetLabel(end); err != nil {
		return asmError(err, node.Span)
	}
	return nil
}

// translateFunction binds the entry label and registers the function before
// its body is translated, which is what makes self-recursion resolvable.
func (c *Compiler) translateFunction(a *Assembler, node IrNode) error {
	entry := a.CreateLabel()
	if err := a.SetLabel(entry); err != nil {
		return asmError(err, node.Span)
	}

	c.scopes.PushFunction(node.Name, entry)
	c.scopes.PushScope(node.Name)
	for _, child := range node.Body {
		if err := c.translateNode(a, child); err != nil {
			return err
		}
	}
	c.scopes.PopScope()

	a.Ret()
	return nil
}

func moveTooLarge(node IrNode) *CompilerError {
	s := node.Span
	return &CompilerError{
		Kind:    ErrMoveTooLarge,
		Message: fmt.Sprintf("%d exceeds 0x7FFFFFFF", node.Arg),
		Span:    &s,
	}
}
