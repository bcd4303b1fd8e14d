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
	"github.com/mhlab/condep/analysis/constraints"
	"github.com/mhlab/condep/internal/funcutil"
)

// PointToMap maps target locations to the constraint under which the owning location points to
// them. No two entries share a target; disjunction collapses duplicates.
type PointToMap map[Location]constraints.Constraint

// Copy returns a shallow copy of the map. Constraints are immutable, so sharing them is safe.
func (m PointToMap) Copy() PointToMap {
	out := make(PointToMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Conjoin returns a copy of the map with every constraint conjoined with c.
func (m PointToMap) Conjoin(c constraints.Constraint) PointToMap {
	out := make(PointToMap, len(m))
	for k, v := range m {
		out[k] = v.And(c)
	}
	return out
}

// MergePointToMap merges src into dst by pointwise disjunction. A target present on only one
// side keeps its constraint unchanged, which preserves path sensitivity.
func MergePointToMap(dst, src PointToMap) {
	funcutil.Merge(dst, src, func(a, b constraints.Constraint) constraints.Constraint {
		return a.Or(b)
	})
}

// Store maps non-register locations to their points-to maps. Register contents live in the
// register file, because registers are defined once per analysis run and do not merge at joins
// the way memory does.
type Store map[Location]PointToMap

// Copy returns a deep copy of the store.
func (s Store) Copy() Store {
	out := make(Store, len(s))
	for loc, m := range s {
		out[loc] = m.Copy()
	}
	return out
}

// MergeStore merges src into dst: pointwise union over keys, pointwise disjunction per target
// for keys present in both.
func MergeStore(dst, src Store) {
	for loc, m := range src {
		if cur, ok := dst[loc]; ok {
			MergePointToMap(cur, m)
		} else {
			dst[loc] = m.Copy()
		}
	}
}

// NormalizeStore simplifies every constraint of the store, drops the edges whose constraint is
// unsatisfiable, and removes the keys whose points-to map became empty.
func NormalizeStore(solver *constraints.Solver, s Store) {
	for loc, m := range s {
		for target, c := range m {
			c = solver.Simplify(c)
			if c.IsBottom() || !solver.Sat(c) {
				delete(m, target)
			} else {
				m[target] = c
			}
		}
		if len(m) == 0 {
			delete(s, loc)
		}
	}
}

// EqualPointToMap compares two points-to maps under the solver, treating a missing target as an
// unsatisfiable edge.
func EqualPointToMap(solver *constraints.Solver, a, b PointToMap) bool {
	for target, ca := range a {
		cb, ok := b[target]
		if !ok {
			cb = constraints.Bottom()
		}
		if !solver.Equiv(ca, cb) {
			return false
		}
	}
	for target, cb := range b {
		if _, ok := a[target]; !ok {
			if !solver.Equiv(cb, constraints.Bottom()) {
				return false
			}
		}
	}
	return true
}

// EqualStore compares two stores under the solver, treating a missing key as an empty points-to
// map.
func EqualStore(solver *constraints.Solver, a, b Store) bool {
	for loc, ma := range a {
		if !EqualPointToMap(solver, ma, b[loc]) {
			return false
		}
	}
	for loc, mb := range b {
		if _, ok := a[loc]; !ok {
			if !EqualPointToMap(solver, PointToMap{}, mb) {
				return false
			}
		}
	}
	return true
}
