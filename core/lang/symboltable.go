// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Lang ▸ Symbol Table
// ----------------------------------------------------
//
// Grounded on `environ`/`env.add` in the Ivy compiler
// (other_examples/..._ivy-compile.go.go): a chained scope that rejects
// redeclaration in the same scope but shadows freely across a parent link.
// Roles are narrowed from Ivy's keyword/builtin/param/clause-param/value
// set down to the three binding kinds this language has: function
// parameters, locals and contract fields.
package lang

import "fmt"

// SymbolRole distinguishes how a name was bound.
type SymbolRole uint8

const (
	RoleParam SymbolRole = iota
	RoleLocal
	RoleField
)

// Symbol is one bound name with its declared type and binding role.
type Symbol struct {
	Name string
	Type *TypeExpr
	Role SymbolRole
	// Slot is initialised to -1 and nothing assigns it; flattened slots are
	// allocated separately by FlattenContext (flatten.go).
	Slot int
}

// Scope is one lexical scope, chained to its parent. The function body's
// top-level scope has the params scope as parent; nested if/for blocks
// chain to their enclosing scope.
type Scope struct {
	parent *Scope
	names  map[string]*Symbol
}

// NewScope constructs a scope chained to parent (nil for the outermost
// function-parameter scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]*Symbol)}
}

// Add binds name in this scope, failing if it is already bound here
// (shadowing an outer scope's binding is allowed; redeclaring within the
// same scope is not).
func (s *Scope) Add(name string, typ *TypeExpr, role SymbolRole) error {
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("%q already declared in this scope", name)
	}
	s.names[name] = &Symbol{Name: name, Type: typ, Role: role, Slot: -1}
	return nil
}

// Lookup resolves name against this scope and its ancestors.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// All returns every symbol bound directly in this scope.
func (s *Scope) All() []*Symbol {
	out := make([]*Symbol, 0, len(s.names))
	for _, sym := range s.names {
		out = append(out, sym)
	}
	return out
}
