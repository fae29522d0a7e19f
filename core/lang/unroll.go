// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Lang ▸ Loop Unrolling
// ---------------------------------------------------------
//
//   - spec.md §6 forbids any runtime-bounded loop in the emitted
//     instruction stream: a ForStmt's Low/High bounds are parsed as
//     literal constants (parser.go), so unrolling always terminates and
//     always produces a fixed, finite instruction count.
//
//   - Resolution of the "how does the induction variable get substituted"
//     open question: normalize every Ident referring to the loop variable
//     into a PlaceholderExpr first, then clone the body floor((High-Low)/Step) times,
//     substituting each clone's Placeholder with a fresh IntLit holding
//     that iteration's constant index. This is the one and only place a
//     Placeholder is ever created or resolved — emit.go treats a
//     Placeholder it encounters as a compiler bug, never a user error.
package lang

import "fmt"

// DefaultLoopUnrollingLimit bounds the total number of statements a single
// for-loop may expand to when no explicit limit is supplied. Callers
// driving compilation from pkg/config's Compiler.LoopUnrollingLimit should
// pass that value instead via UnrollProgramWithLimit.
const DefaultLoopUnrollingLimit = 4096

// idGen hands out fresh NodeIDs continuing from a parsed Program's
// high-water mark, so unrolled clones never collide with original nodes.
type idGen struct{ next NodeID }

func (g *idGen) id() NodeID {
	g.next++
	return g.next
}

// UnrollProgram rewrites every ForStmt in every contract/script method into
// its unrolled statement sequence, in place, using DefaultLoopUnrollingLimit.
func UnrollProgram(prog *Program) error {
	return UnrollProgramWithLimit(prog, DefaultLoopUnrollingLimit)
}

// UnrollProgramWithLimit is UnrollProgram with an explicit cap on the
// number of statements any single loop may expand to — a compile fails
// rather than ever emitting an unbounded instruction stream, per spec.md
// §4.6 step 4.
func UnrollProgramWithLimit(prog *Program, limit int) error {
	g := &idGen{next: prog.NextID}
	for _, c := range prog.Contracts {
		for _, m := range c.Methods {
			body, err := unrollBlock(m.Body, g, limit)
			if err != nil {
				return fmt.Errorf("contract %s, method %s: %w", c.Name, m.Name, err)
			}
			m.Body = body
		}
	}
	for _, s := range prog.Scripts {
		for _, m := range s.Methods {
			body, err := unrollBlock(m.Body, g, limit)
			if err != nil {
				return fmt.Errorf("script method %s: %w", m.Name, err)
			}
			m.Body = body
		}
	}
	return nil
}

func unrollBlock(stmts []Stmt, g *idGen, limit int) ([]Stmt, error) {
	var out []Stmt
	for _, s := range stmts {
		switch st := s.(type) {
		case *ForStmt:
			if err := rejectLoopBodyViolations(st.Body); err != nil {
				return nil, fmt.Errorf("for %s in %d..%d: %w", st.Var, st.Low, st.High, err)
			}
			unrolled, err := unrollFor(st, g, limit)
			if err != nil {
				return nil, err
			}
			out = append(out, unrolled...)

		case *IfStmt:
			then, err := unrollBlock(st.Then, g, limit)
			if err != nil {
				return nil, err
			}
			st.Then = then
			if st.Else != nil {
				els, err := unrollBlock(st.Else, g, limit)
				if err != nil {
					return nil, err
				}
				st.Else = els
			}
			out = append(out, st)

		default:
			out = append(out, st)
		}
	}
	return out, nil
}

// rejectLoopBodyViolations fails if stmts — a for-loop body, at any nesting
// depth reachable through an IfStmt's branches — contains a nested ForStmt,
// LetStmt (var definition), or ReturnStmt. spec.md §4.6 step 4 forbids all
// three inside a loop body; unrolling one that slipped past the parser
// would silently multiply its var bindings or early-returns across every
// unrolled copy.
func rejectLoopBodyViolations(stmts []Stmt) error {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ForStmt:
			return fmt.Errorf("nested for-loop is forbidden inside a loop body")
		case *LetStmt:
			return fmt.Errorf("var definition is forbidden inside a loop body")
		case *ReturnStmt:
			return fmt.Errorf("return statement is forbidden inside a loop body")
		case *IfStmt:
			if err := rejectLoopBodyViolations(st.Then); err != nil {
				return err
			}
			if err := rejectLoopBodyViolations(st.Else); err != nil {
				return err
			}
		}
	}
	return nil
}

// unrollFor replaces a single ForStmt with floor((High-Low)/Step) copies of
// its body, each with the induction variable substituted by that
// iteration's constant index — spec.md §4.6 step 4, literally: a zero or
// negative step fails compilation (the spec only describes ascending
// ranges), and an unrolled size exceeding limit fails compilation too.
func unrollFor(f *ForStmt, g *idGen, limit int) ([]Stmt, error) {
	if f.Step <= 0 {
		return nil, fmt.Errorf("for-loop step must be positive, got %d", f.Step)
	}
	count := 0
	if f.High > f.Low {
		count = int((f.High - f.Low) / f.Step)
	}
	unrolledSize := count * len(f.Body)
	if unrolledSize > limit {
		return nil, fmt.Errorf("loop unrolling limit exceeded: %d statements exceeds limit %d", unrolledSize, limit)
	}

	placeholderBody := substituteIdentWithPlaceholder(f.Body, f.Var)
	var out []Stmt
	for k := 0; k < count; k++ {
		i := f.Low + int64(k)*f.Step
		clone := cloneStmts(placeholderBody, g)
		resolvePlaceholders(clone, f.Var, i)
		out = append(out, clone...)
	}
	return out, nil
}

// substituteIdentWithPlaceholder returns a deep copy of stmts with every
// Ident named varName replaced by a PlaceholderExpr. Copying (rather than
// mutating) keeps the original ForStmt.Body inert in case it is ever
// inspected again (e.g. by a future optimization pass) before unrolling.
func substituteIdentWithPlaceholder(stmts []Stmt, varName string) []Stmt {
	return mapStmts(stmts, func(e Expr) Expr {
		if id, ok := e.(*Ident); ok && id.Name == varName {
			return &PlaceholderExpr{baseNode: id.baseNode, Var: varName}
		}
		return e
	})
}

func resolvePlaceholders(stmts []Stmt, varName string, value int64) {
	walkStmtsExprs(stmts, func(e Expr) Expr {
		if ph, ok := e.(*PlaceholderExpr); ok && ph.Var == varName {
			return &IntLit{baseNode: ph.baseNode, Value: value}
		}
		return e
	})
}
