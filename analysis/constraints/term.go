// Copyright The condep Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package constraints implements propositional constraints over input-aliasing hypotheses.
//
// An atom x_i = x_j states that the i-th and j-th inputs of a function refer to the same abstract
// location. A Constraint labels a points-to edge with a pair of formulas: the may-formula
// over-approximates the states in which the edge exists, the must-formula under-approximates them.
// Satisfiability queries go through the may-formula, validity and implication queries through the
// must-formula, which keeps the analysis conservative when the backend cannot answer.
package constraints

import (
	"fmt"
	"strings"
)

// FormulaOp is the node kind of a Formula.
type FormulaOp uint8

const (
	// OpFalse is the unsatisfiable formula.
	OpFalse FormulaOp = iota
	// OpTrue is the tautology.
	OpTrue
	// OpAtom is an equality x_i = x_j between two input location variables.
	OpAtom
	// OpNot negates its single subformula.
	OpNot
	// OpAnd is the conjunction of its subformulas.
	OpAnd
	// OpOr is the disjunction of its subformulas.
	OpOr
)

// Formula is a propositional formula over input-aliasing atoms. Formulas are immutable and may
// share structure.
type Formula struct {
	Op   FormulaOp
	I, J int // operands of an atom, I <= J
	Subs []*Formula
}

var (
	trueFormula  = &Formula{Op: OpTrue}
	falseFormula = &Formula{Op: OpFalse}
)

// True returns the tautology.
func True() *Formula { return trueFormula }

// False returns the unsatisfiable formula.
func False() *Formula { return falseFormula }

// Atom returns the formula x_i = x_j. Atom(i, i) folds to True.
func Atom(i, j int) *Formula {
	if i == j {
		return trueFormula
	}
	if i > j {
		i, j = j, i
	}
	return &Formula{Op: OpAtom, I: i, J: j}
}

// Not returns the negation of f, folding constants and double negations.
func Not(f *Formula) *Formula {
	switch f.Op {
	case OpTrue:
		return falseFormula
	case OpFalse:
		return trueFormula
	case OpNot:
		return f.Subs[0]
	default:
		return &Formula{Op: OpNot, Subs: []*Formula{f}}
	}
}

// And returns the conjunction of fs, folding constants.
func And(fs ...*Formula) *Formula {
	var subs []*Formula
	for _, f := range fs {
		switch f.Op {
		case OpFalse:
			return falseFormula
		case OpTrue:
			continue
		case OpAnd:
			subs = append(subs, f.Subs...)
		default:
			subs = append(subs, f)
		}
	}
	switch len(subs) {
	case 0:
		return trueFormula
	case 1:
		return subs[0]
	default:
		return &Formula{Op: OpAnd, Subs: subs}
	}
}

// Or returns the disjunction of fs, folding constants.
func Or(fs ...*Formula) *Formula {
	var subs []*Formula
	for _, f := range fs {
		switch f.Op {
		case OpTrue:
			return trueFormula
		case OpFalse:
			continue
		case OpOr:
			subs = append(subs, f.Subs...)
		default:
			subs = append(subs, f)
		}
	}
	switch len(subs) {
	case 0:
		return falseFormula
	case 1:
		return subs[0]
	default:
		return &Formula{Op: OpOr, Subs: subs}
	}
}

// Eval evaluates the formula under the model given by part, where part[i] == part[j] means inputs
// i and j share a location.
func (f *Formula) Eval(part []int) bool {
	switch f.Op {
	case OpTrue:
		return true
	case OpFalse:
		return false
	case OpAtom:
		return part[f.I] == part[f.J]
	case OpNot:
		return !f.Subs[0].Eval(part)
	case OpAnd:
		for _, s := range f.Subs {
			if !s.Eval(part) {
				return false
			}
		}
		return true
	case OpOr:
		for _, s := range f.Subs {
			if s.Eval(part) {
				return true
			}
		}
		return false
	}
	return false
}

// MaxVar returns the largest input index mentioned by the formula, or -1.
func (f *Formula) MaxVar() int {
	switch f.Op {
	case OpAtom:
		return f.J
	case OpNot, OpAnd, OpOr:
		max := -1
		for _, s := range f.Subs {
			if m := s.MaxVar(); m > max {
				max = m
			}
		}
		return max
	}
	return -1
}

func (f *Formula) String() string {
	switch f.Op {
	case OpTrue:
		return "true"
	case OpFalse:
		return "false"
	case OpAtom:
		return fmt.Sprintf("x%d = x%d", f.I, f.J)
	case OpNot:
		if f.Subs[0].Op == OpAtom {
			return fmt.Sprintf("x%d != x%d", f.Subs[0].I, f.Subs[0].J)
		}
		return "!(" + f.Subs[0].String() + ")"
	}
	sep := " & "
	if f.Op == OpOr {
		sep = " | "
	}
	parts := make([]string, len(f.Subs))
	for i, s := range f.Subs {
		if s.Op == OpAnd || s.Op == OpOr {
			parts[i] = "(" + s.String() + ")"
		} else {
			parts[i] = s.String()
		}
	}
	return strings.Join(parts, sep)
}

// constraintKind discriminates the three states of a Constraint.
type constraintKind uint8

const (
	kindBottom constraintKind = iota
	kindTop
	kindExpr
)

// Constraint is a three-state constraint: Bottom (infeasible), Top (always true) or a pair of
// formulas Expr{may, must} with must implying may. Constraints are immutable value objects.
type Constraint struct {
	kind constraintKind
	may  *Formula
	must *Formula
}

// Bottom returns the infeasible constraint.
func Bottom() Constraint { return Constraint{kind: kindBottom} }

// Top returns the always-true constraint.
func Top() Constraint { return Constraint{kind: kindTop} }

// NewExpr returns the constraint with the given may and must formulas, normalized: both constant
// false yields Bottom, both constant true yields Top.
func NewExpr(may, must *Formula) Constraint {
	if may.Op == OpFalse && must.Op == OpFalse {
		return Bottom()
	}
	if may.Op == OpTrue && must.Op == OpTrue {
		return Top()
	}
	return Constraint{kind: kindExpr, may: may, must: must}
}

// FromFormula returns the exact constraint whose may and must parts are both f.
func FromFormula(f *Formula) Constraint {
	return NewExpr(f, f)
}

// IsBottom reports whether the constraint is the infeasible literal.
func (c Constraint) IsBottom() bool { return c.kind == kindBottom }

// IsTop reports whether the constraint is the always-true literal.
func (c Constraint) IsTop() bool { return c.kind == kindTop }

// IsExpr reports whether the constraint is a formula pair.
func (c Constraint) IsExpr() bool { return c.kind == kindExpr }

// May returns the over-approximating formula of the constraint.
func (c Constraint) May() *Formula {
	switch c.kind {
	case kindBottom:
		return falseFormula
	case kindTop:
		return trueFormula
	default:
		return c.may
	}
}

// Must returns the under-approximating formula of the constraint.
func (c Constraint) Must() *Formula {
	switch c.kind {
	case kindBottom:
		return falseFormula
	case kindTop:
		return trueFormula
	default:
		return c.must
	}
}

// And returns the conjunction of two constraints.
func (c Constraint) And(o Constraint) Constraint {
	if c.kind == kindBottom || o.kind == kindBottom {
		return Bottom()
	}
	if c.kind == kindTop {
		return o
	}
	if o.kind == kindTop {
		return c
	}
	return NewExpr(And(c.may, o.may), And(c.must, o.must))
}

// Or returns the disjunction of two constraints.
func (c Constraint) Or(o Constraint) Constraint {
	if c.kind == kindTop || o.kind == kindTop {
		return Top()
	}
	if c.kind == kindBottom {
		return o
	}
	if o.kind == kindBottom {
		return c
	}
	return NewExpr(Or(c.may, o.may), Or(c.must, o.must))
}

// Not returns the negation of the constraint. The over-approximation of the negation is the
// negation of the under-approximation, and vice versa.
func (c Constraint) Not() Constraint {
	switch c.kind {
	case kindBottom:
		return Top()
	case kindTop:
		return Bottom()
	default:
		return NewExpr(Not(c.must), Not(c.may))
	}
}

// Weaken discards the must-part of the constraint, leaving only the over-approximation. Bottom
// stays Bottom.
func (c Constraint) Weaken() Constraint {
	if c.kind == kindBottom {
		return c
	}
	return NewExpr(c.May(), falseFormula)
}

func (c Constraint) String() string {
	switch c.kind {
	case kindBottom:
		return "false"
	case kindTop:
		return "true"
	default:
		if c.must.Op == OpFalse {
			return "~" + c.may.String()
		}
		return c.may.String()
	}
}
