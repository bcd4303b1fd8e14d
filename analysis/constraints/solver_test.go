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

import (
	"errors"
	"testing"
)

func newTestSolver(n int) *Solver {
	return NewSolver(n, nil, 12)
}

func TestSatValidLiterals(t *testing.T) {
	s := newTestSolver(2)
	if s.Sat(Bottom()) {
		t.Errorf("bottom should not be satisfiable")
	}
	if !s.Sat(Top()) {
		t.Errorf("top should be satisfiable")
	}
	if s.Valid(Bottom()) {
		t.Errorf("bottom should not be valid")
	}
	if !s.Valid(Top()) {
		t.Errorf("top should be valid")
	}
}

func TestSatValidAtoms(t *testing.T) {
	s := newTestSolver(2)
	c := FromFormula(Atom(0, 1))
	if !s.Sat(c) {
		t.Errorf("x0 = x1 should be satisfiable")
	}
	if s.Valid(c) {
		t.Errorf("x0 = x1 should not be valid")
	}
	taut := FromFormula(Or(Atom(0, 1), Not(Atom(0, 1))))
	if !s.Valid(taut) {
		t.Errorf("x0 = x1 | x0 != x1 should be valid")
	}
}

func TestTransitivityOfAliasing(t *testing.T) {
	s := newTestSolver(3)
	premise := FromFormula(And(Atom(0, 1), Atom(1, 2)))
	conclusion := FromFormula(Atom(0, 2))
	if !s.Implies(premise, conclusion) {
		t.Errorf("x0 = x1 & x1 = x2 should imply x0 = x2")
	}
	if s.Implies(conclusion, premise) {
		t.Errorf("x0 = x2 should not imply x0 = x1 & x1 = x2")
	}
}

func TestRejectAlias(t *testing.T) {
	s := newTestSolver(3)
	if !s.TestAlias(0, 1) {
		t.Errorf("aliasing should be possible by default")
	}
	s.RejectAlias(0, 1)
	s.RejectAlias(1, 0) // idempotent, symmetric
	if s.TestAlias(0, 1) || s.TestAlias(1, 0) {
		t.Errorf("aliasing 0-1 should be rejected")
	}
	if s.Sat(FromFormula(Atom(0, 1))) {
		t.Errorf("x0 = x1 should be unsatisfiable after rejection")
	}
	if !s.Sat(FromFormula(Atom(0, 2))) {
		t.Errorf("x0 = x2 should still be satisfiable")
	}
	if !s.MakeAliasConstraint(1, 0).IsBottom() {
		t.Errorf("alias witness of a rejected pair should be bottom")
	}
}

func TestMakeAliasConstraint(t *testing.T) {
	s := newTestSolver(3)

	if c := s.MakeAliasConstraint(0, 0); !c.IsTop() {
		t.Errorf("witness of the first input aliasing itself should be top, got %s", c)
	}

	c := s.MakeAliasConstraint(1, 0)
	if !s.Implies(c, FromFormula(Atom(0, 1))) {
		t.Errorf("witness of 1 ~ 0 should imply x0 = x1, got %s", c)
	}

	// Self-witness of input 1 excludes aliasing with input 0.
	self := s.MakeAliasConstraint(1, 1)
	if !s.Implies(self, FromFormula(Not(Atom(0, 1)))) {
		t.Errorf("self witness of input 1 should imply x0 != x1, got %s", self)
	}

	// Witness of 2 ~ 1 names the smallest representative: it excludes aliasing with 0.
	c21 := s.MakeAliasConstraint(2, 1)
	if !s.Implies(c21, FromFormula(Atom(1, 2))) {
		t.Errorf("witness of 2 ~ 1 should imply x1 = x2, got %s", c21)
	}
	if !s.Implies(c21, FromFormula(Not(Atom(0, 2)))) {
		t.Errorf("witness of 2 ~ 1 should exclude aliasing with input 0, got %s", c21)
	}

	// The two distinct hypotheses for input 1 are mutually exclusive.
	if s.Sat(c.And(self)) {
		t.Errorf("1 ~ 0 and 1 alone should be unsatisfiable together")
	}
}

func TestMakeAliasConstraintSkipsRejected(t *testing.T) {
	s := newTestSolver(3)
	s.RejectAlias(0, 2)
	c := s.MakeAliasConstraint(2, 1)
	// No x0 != x2 conjunct is needed: input 0 can no longer alias input 2.
	if got, want := c.String(), "x1 = x2"; got != want {
		t.Errorf("got witness %q, want %q", got, want)
	}
}

func TestEquivLiterals(t *testing.T) {
	s := newTestSolver(2)
	taut := FromFormula(Or(Atom(0, 1), Not(Atom(0, 1))))
	unsat := FromFormula(And(Atom(0, 1), Not(Atom(0, 1))))
	if !s.Equiv(Top(), taut) || !s.Equiv(taut, Top()) {
		t.Errorf("a tautology should be equivalent to top")
	}
	if !s.Equiv(Bottom(), unsat) || !s.Equiv(unsat, Bottom()) {
		t.Errorf("an unsatisfiable expression should be equivalent to bottom")
	}
	if s.Equiv(Top(), Bottom()) {
		t.Errorf("top and bottom are not equivalent")
	}
	if s.Equiv(FromFormula(Atom(0, 1)), FromFormula(Atom(0, 1)).Weaken()) {
		t.Errorf("a constraint and its weakening differ on the must part")
	}
}

// failingBackend simulates an SMT engine that cannot answer.
type failingBackend struct{}

func (failingBackend) AssertDistinct(int, int) {}
func (failingBackend) Sat(*Formula) (bool, error) {
	return false, errors.New("unknown")
}
func (failingBackend) Valid(*Formula) (bool, error) {
	return false, errors.New("unknown")
}

func TestConservativeFallback(t *testing.T) {
	s := NewSolver(2, failingBackend{}, 12)
	c := FromFormula(Atom(0, 1))
	if !s.Sat(c) {
		t.Errorf("satisfiability should default to true on backend failure")
	}
	if s.Valid(c) {
		t.Errorf("validity should default to false on backend failure")
	}
	if s.Equiv(c, c) {
		t.Errorf("equivalence should default to false on backend failure")
	}
	if s.Implies(c, c) {
		t.Errorf("implication should default to false on backend failure")
	}
	if s.Fallbacks == 0 {
		t.Errorf("fallbacks should be counted")
	}
}

func TestEnumBackendTooLarge(t *testing.T) {
	b := NewEnumBackend(20, 12)
	if _, err := b.Sat(Atom(0, 19)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
