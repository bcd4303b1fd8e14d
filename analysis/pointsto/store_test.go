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

package pointsto

import (
	"go/token"
	"go/types"
	"testing"

	"github.com/mhlab/condep/analysis/constraints"
	"golang.org/x/tools/go/ssa"
)

// testValue is a minimal ssa.Value to build locations from in unit tests.
type testValue struct {
	name string
}

func (v *testValue) Name() string                  { return v.name }
func (v *testValue) String() string                { return v.name }
func (v *testValue) Type() types.Type              { return types.Typ[types.Int] }
func (v *testValue) Parent() *ssa.Function         { return nil }
func (v *testValue) Referrers() *[]ssa.Instruction { return nil }
func (v *testValue) Pos() token.Pos                { return token.NoPos }

func testLocations() (Location, Location, Location, Location) {
	p := &testValue{name: "p"}
	q := &testValue{name: "q"}
	return RuntimeLoc(p, 0), RuntimeLoc(q, 0), HeapLoc(&testValue{name: "h"}), StackLoc(&testValue{name: "s"})
}

func TestMergeCommutative(t *testing.T) {
	s := constraints.NewSolver(2, nil, 12)
	lp, lq, lh, ls := testLocations()

	a := Store{
		lp: PointToMap{lh: constraints.FromFormula(constraints.Atom(0, 1))},
	}
	b := Store{
		lp: PointToMap{lh: constraints.FromFormula(constraints.Not(constraints.Atom(0, 1)))},
		lq: PointToMap{ls: constraints.Top()},
	}

	ab := a.Copy()
	MergeStore(ab, b)
	ba := b.Copy()
	MergeStore(ba, a)

	if !EqualStore(s, ab, ba) {
		t.Errorf("merge should be commutative under store equality")
	}
	// The shared edge disjoins to a tautology.
	if !s.Equiv(ab[lp][lh], constraints.Top()) {
		t.Errorf("merged edge should be equivalent to top, got %s", ab[lp][lh])
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := constraints.NewSolver(2, nil, 12)
	lp, _, lh, _ := testLocations()

	a := Store{lp: PointToMap{lh: constraints.FromFormula(constraints.Atom(0, 1))}}
	aa := a.Copy()
	MergeStore(aa, a)

	if !EqualStore(s, aa, a) {
		t.Errorf("merge should be idempotent under store equality")
	}
}

func TestMergeKeepsOneSidedEntries(t *testing.T) {
	s := constraints.NewSolver(2, nil, 12)
	lp, lq, lh, ls := testLocations()

	a := Store{lp: PointToMap{lh: constraints.FromFormula(constraints.Atom(0, 1))}}
	b := Store{lq: PointToMap{ls: constraints.FromFormula(constraints.Atom(0, 1))}}

	merged := a.Copy()
	MergeStore(merged, b)

	// One-sided entries keep their constraint unchanged.
	if !s.Equiv(merged[lp][lh], constraints.FromFormula(constraints.Atom(0, 1))) {
		t.Errorf("one-sided entry changed: %s", merged[lp][lh])
	}
	if !s.Equiv(merged[lq][ls], constraints.FromFormula(constraints.Atom(0, 1))) {
		t.Errorf("one-sided entry changed: %s", merged[lq][ls])
	}
}

func TestNormalizeDropsUnsat(t *testing.T) {
	s := constraints.NewSolver(2, nil, 12)
	lp, _, lh, ls := testLocations()

	unsat := constraints.FromFormula(constraints.And(
		constraints.Atom(0, 1), constraints.Not(constraints.Atom(0, 1))))
	store := Store{
		lp: PointToMap{
			lh: unsat,
			ls: constraints.Top(),
		},
	}
	NormalizeStore(s, store)

	if _, ok := store[lp][lh]; ok {
		t.Errorf("unsatisfiable edge should be dropped")
	}
	if _, ok := store[lp][ls]; !ok {
		t.Errorf("satisfiable edge should be kept")
	}
}

func TestNormalizeRemovesEmptyKeys(t *testing.T) {
	s := constraints.NewSolver(2, nil, 12)
	lp, _, lh, _ := testLocations()

	store := Store{lp: PointToMap{lh: constraints.Bottom()}}
	NormalizeStore(s, store)
	if _, ok := store[lp]; ok {
		t.Errorf("a key with an empty points-to map should be removed")
	}
}

func TestEqualStoreMissingKeys(t *testing.T) {
	s := constraints.NewSolver(2, nil, 12)
	lp, _, lh, _ := testLocations()

	a := Store{lp: PointToMap{lh: constraints.Bottom()}}
	b := Store{}
	if !EqualStore(s, a, b) {
		t.Errorf("a store with only infeasible edges should equal the empty store")
	}

	a[lp][lh] = constraints.Top()
	if EqualStore(s, a, b) {
		t.Errorf("stores with different feasible edges should differ")
	}
}

func TestRegFileAliases(t *testing.T) {
	rf := NewRegFile()
	p := &testValue{name: "p"}
	cast := &testValue{name: "cast"}
	gep := &testValue{name: "gep"}

	rf.Set(p, PointToMap{HeapLoc(p): constraints.Top()})
	rf.AssignAlias(cast, p)
	rf.AssignAlias(gep, cast)

	if rf.TranslateAlias(gep) != p {
		t.Errorf("alias chains should resolve to the canonical register")
	}
	if rf.Get(gep) == nil {
		t.Errorf("lookups should be redirected through aliases")
	}
}
