// decode.go - minimal Brainfuck front end feeding the backend IR
package main

import (
	"fmt"

	"tapec"
)

// The externals the runtime must provide. Both receive the cell address
// and the auxiliary stack top address.
const (
	readFn  = "tape_read"
	writeFn = "tape_write"
)

// decode reads Brainfuck source into backend IR, coalescing runs of the
// counted commands. Loops become Condition bodies; unbalanced brackets are
// a front-end error, the backend never sees them. Every other byte is a
// comment.
func decode(src []byte) ([]tapec.IrNode, error) {
	root := []tapec.IrNode{}
	stack := []*[]tapec.IrNode{&root}
	openSpans := []tapec.Span{}

	line, col := 1, 0
	for _, c := range src {
		col++
		if c == '\n' {
			line++
			col = 0
			continue
		}

		span := tapec.Span{Line: line, Column: col, Length: 1}
		cur := stack[len(stack)-1]

		var op tapec.IrOp
		switch c {
		case '>':
			op = tapec.MoveRight
		case '<':
			op = tapec.MoveLeft
		case '+':
			op = tapec.Add
		case '-':
			op = tapec.Subtract
		case '.':
			*cur = append(*cur, tapec.IrNode{Op: tapec.ExternalFunctionCall, Name: writeFn, Span: span})
			continue
		case ',':
			*cur = append(*cur, tapec.IrNode{Op: tapec.ExternalFunctionCall, Name: readFn, Span: span})
			continue
		case '[':
			*cur = append(*cur, tapec.IrNode{Op: tapec.Condition, Span: span})
			stack = append(stack, &(*cur)[len(*cur)-1].Body)
			openSpans = append(openSpans, span)
			continue
		case ']':
			if len(stack) == 1 {
				return nil, fmt.Errorf("%s: unmatched ']'", span)
			}
			stack = stack[:len(stack)-1]
			openSpans = openSpans[:len(openSpans)-1]
			continue
		default:
			continue
		}

		// Coalesce repeated counted commands into one node.
		if n := len(*cur); n > 0 && (*cur)[n-1].Op == op {
			(*cur)[n-1].Arg++
			continue
		}
		*cur = append(*cur, tapec.IrNode{Op: op, Arg: 1, Span: span})
	}

	if len(stack) > 1 {
		return nil, fmt.Errorf("%s: unmatched '['", openSpans[len(openSpans)-1])
	}
	return root, nil
}
