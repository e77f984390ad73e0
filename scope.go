// scope.go - scope hierarchy and function registry for one compile request
package tapec

import "fmt"

// A scope is a node in the naming hierarchy. Scopes exist only to hand out
// names that are unique among siblings; this IR has no lexical variables.
// Each node carries its own counter for anonymous control blocks.
type scope struct {
	name     string
	parent   *scope
	nextAnon int
}

// GlobalFunction is a function declared at the root scope, paired with its
// entry label. Only these become public symbols in the object artifact.
type GlobalFunction struct {
	Name  string
	Label Label
}

// scopeManager tracks the stack of active scopes and the flat function map
// for a single compile request. It is created fresh per request and never
// reused.
type scopeManager struct {
	root    *scope
	stack   []*scope
	funcs   map[string]Label
	globals []GlobalFunction
}

func newScopeManager() *scopeManager {
	root := &scope{}
	return &scopeManager{
		root:  root,
		stack: []*scope{root},
		funcs: make(map[string]Label),
	}
}

func (m *scopeManager) current() *scope {
	return m.stack[len(m.stack)-1]
}

// PushFunction registers name -> label. It must run before the function
// body is translated so that the body can call itself.
func (m *scopeManager) PushFunction(name string, label Label) {
	m.funcs[name] = label
	if m.current() == m.root {
		m.globals = append(m.globals, GlobalFunction{Name: name, Label: label})
	}
}

// PushScope enters a named child scope of the current scope.
func (m *scopeManager) PushScope(name string) {
	m.stack = append(m.stack, &scope{name: name, parent: m.current()})
}

// PushAnonymousScope enters a child scope named from the enclosing scope's
// anonymous counter, used for control blocks without an explicit name.
func (m *scopeManager) PushAnonymousScope() {
	m.PushScope(fmt.Sprintf("#%d", m.NextAnonymousID()))
}

// PopScope leaves the current scope. Popping the root scope means the
// translator's traversal is unbalanced, which is a bug rather than bad
// input, so it panics.
func (m *scopeManager) PopScope() {
	if m.current() == m.root {
		panic("tapec: unbalanced scope pop")
	}
	m.stack = m.stack[:len(m.stack)-1]
}

// CurrentScopeName returns the innermost active scope name, or "" at root.
func (m *scopeManager) CurrentScopeName() string {
	return m.current().name
}

// NextAnonymousID returns a counter value unique within the current scope.
func (m *scopeManager) NextAnonymousID() int {
	s := m.current()
	id := s.nextAnon
	s.nextAnon++
	return id
}

// ResolveFunction looks up a function entry label by name. A function that
// has not started translating yet is not found; calls resolve only to the
// function itself or to functions translated earlier.
func (m *scopeManager) ResolveFunction(name string) (Label, bool) {
	label, ok := m.funcs[name]
	return label, ok
}

// GlobalFunctions returns the functions registered at the root scope, in
// registration order. Nested functions are not exposed.
func (m *scopeManager) GlobalFunctions() []GlobalFunction {
	return m.globals
}
