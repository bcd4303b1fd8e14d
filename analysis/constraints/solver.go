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

package constraints

// Solver is the per-analysis-context facade over a Backend. It owns the input-alias rejection
// table and answers the four queries of the analysis. Backend failures degrade to the
// conservative answers: satisfiability defaults to true, validity, equivalence and implication
// to false.
type Solver struct {
	numInputs int
	rejected  []bool // symmetric n*n bit table, indexed i*n+j with i <= j
	backend   Backend

	// Fallbacks counts the queries answered conservatively because the backend failed.
	Fallbacks int
}

// NewSolver returns a solver session over numInputs input variables. If backend is nil, the
// enumeration backend is used with the given input cap.
func NewSolver(numInputs int, backend Backend, maxInputs int) *Solver {
	if backend == nil {
		backend = NewEnumBackend(numInputs, maxInputs)
	}
	return &Solver{
		numInputs: numInputs,
		rejected:  make([]bool, numInputs*numInputs),
		backend:   backend,
	}
}

// NumInputs returns the size of the input vector of the session.
func (s *Solver) NumInputs() int { return s.numInputs }

// Sat reports whether c could hold in some model.
func (s *Solver) Sat(c Constraint) bool {
	if c.IsBottom() {
		return false
	}
	if c.IsTop() {
		return true
	}
	ok, err := s.backend.Sat(c.May())
	if err != nil {
		s.Fallbacks++
		return true
	}
	return ok
}

// Valid reports whether c holds in every model.
func (s *Solver) Valid(c Constraint) bool {
	if c.IsBottom() {
		return false
	}
	if c.IsTop() {
		return true
	}
	ok, err := s.backend.Valid(c.Must())
	if err != nil {
		s.Fallbacks++
		return false
	}
	return ok
}

// Equiv reports whether c0 and c1 are equivalent, componentwise on the may and must parts. A
// literal is equivalent to an expression only when validity or unsatisfiability says so.
func (s *Solver) Equiv(c0, c1 Constraint) bool {
	switch {
	case c0.IsBottom():
		return c1.IsBottom() || !s.Sat(c1)
	case c0.IsTop():
		return c1.IsTop() || s.Valid(c1)
	case !c1.IsExpr():
		return s.Equiv(c1, c0)
	default:
		return s.equivFormula(c0.May(), c1.May()) && s.equivFormula(c0.Must(), c1.Must())
	}
}

// Implies reports whether c0 entails c1 in every model, using the must-form of both sides.
func (s *Solver) Implies(c0, c1 Constraint) bool {
	ok, err := s.backend.Valid(Or(Not(c0.Must()), c1.Must()))
	if err != nil {
		s.Fallbacks++
		return false
	}
	return ok
}

func (s *Solver) equivFormula(f0, f1 *Formula) bool {
	ok, err := s.backend.Valid(And(Or(Not(f0), f1), Or(Not(f1), f0)))
	if err != nil {
		s.Fallbacks++
		return false
	}
	return ok
}

// RejectAlias asserts that inputs i and j have distinct abstract locations. Idempotent; a
// self-rejection is ignored.
func (s *Solver) RejectAlias(i, j int) {
	if i == j {
		return
	}
	if i > j {
		i, j = j, i
	}
	if !s.rejected[i*s.numInputs+j] {
		s.rejected[i*s.numInputs+j] = true
		s.backend.AssertDistinct(i, j)
	}
}

// TestAlias reports whether aliasing between inputs i and j has not been rejected. Defaults to
// true.
func (s *Solver) TestAlias(i, j int) bool {
	if i == j {
		return true
	}
	if i > j {
		i, j = j, i
	}
	return !s.rejected[i*s.numInputs+j]
}

// MakeAliasConstraint returns the canonical witness that input i aliases input j, for j <= i:
// the conjunction of x_j = x_i with x_k != x_i for every k < j that could still alias i. Always
// picking the smallest-indexed representative keeps edge labels in canonical form. If aliasing
// between i and j has been rejected, the result is Bottom. For i == j only the inequalities for
// k < i are emitted.
func (s *Solver) MakeAliasConstraint(i, j int) Constraint {
	if !s.TestAlias(j, i) {
		return Bottom()
	}

	var conjuncts []*Formula
	for k := 0; k < j; k++ {
		if s.TestAlias(k, i) {
			conjuncts = append(conjuncts, Not(Atom(k, i)))
		}
	}
	if i != j {
		conjuncts = append(conjuncts, Atom(j, i))
	}
	if len(conjuncts) == 0 {
		return Top()
	}
	return FromFormula(And(conjuncts...))
}

// Simplify normalizes a constraint under the session: unsatisfiable expressions collapse to
// Bottom and valid expressions whose may-part is also valid collapse to Top.
func (s *Solver) Simplify(c Constraint) Constraint {
	if !c.IsExpr() {
		return c
	}
	if !s.Sat(c) {
		return Bottom()
	}
	mayValid, err0 := s.backend.Valid(c.May())
	mustValid, err1 := s.backend.Valid(c.Must())
	if err0 == nil && err1 == nil && mayValid && mustValid {
		return Top()
	}
	return c
}
