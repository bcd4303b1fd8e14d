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
	"golang.org/x/tools/go/ssa"
)

// abstractExecution interprets the instructions of one block over a mutable store. Register
// effects go to the register file of the owning context.
type abstractExecution struct {
	ctx   *AnalysisContext
	store Store
}

// doAlloc allocates a fresh abstract cell for an allocation site. The defining register points
// to the cell unconditionally; the cell itself starts empty. Arrays and the make-family
// allocations are single cells: granularity is per site, not per element.
func (e *abstractExecution) doAlloc(inst ssa.Value, heap bool) {
	var cell Location
	if heap {
		cell = HeapLoc(inst)
	} else {
		cell = StackLoc(inst)
	}
	e.ctx.regfile.Set(inst, PointToMap{cell: constraints.Top()})
}

// doStore interprets store val, ptr. A singleton pointer points-to set whose constraint is valid
// performs a strong update that replaces the target cell's contents; any other shape merges the
// new contents disjunctively (weak update).
func (e *abstractExecution) doStore(val, ptr ssa.Value) {
	ptrMap := e.ctx.PointsTo(ptr)
	if len(ptrMap) == 0 {
		e.ctx.log.Tracef("%s: store through untracked pointer %s", e.ctx.summary.Fn, ptr.Name())
		return
	}
	valSet := e.ctx.valuePointsTo(val)
	e.ctx.recordWritten(ptrMap)

	if len(ptrMap) == 1 {
		for cell, cond := range ptrMap {
			if e.ctx.solver.Valid(cond) {
				e.store[cell] = valSet.Conjoin(cond)
				return
			}
		}
	}
	for cell, cond := range ptrMap {
		target, ok := e.store[cell]
		if !ok {
			target = PointToMap{}
			e.store[cell] = target
		}
		MergePointToMap(target, valSet.Conjoin(cond))
	}
}

// doLoad interprets dst = load ptr: the register of dst receives the union over the pointed
// cells of their contents, each edge conjoined with the condition the cell is pointed under.
func (e *abstractExecution) doLoad(inst ssa.Value, ptr ssa.Value) {
	res := PointToMap{}
	for cell, cond := range e.ctx.PointsTo(ptr) {
		for target, c := range e.store[cell] {
			combined := cond.And(c)
			if !e.ctx.solver.Sat(combined) {
				continue
			}
			if prev, ok := res[target]; ok {
				res[target] = prev.Or(combined)
			} else {
				res[target] = combined
			}
		}
	}
	e.ctx.regfile.Set(inst, res)
}

// doPhi merges the points-to sets of the incoming values into the defined register. Incoming
// constraints are taken as-is; path predicates are not tracked separately.
func (e *abstractExecution) doPhi(inst ssa.Value, incoming []ssa.Value) {
	res := PointToMap{}
	for _, v := range incoming {
		MergePointToMap(res, e.ctx.valuePointsTo(v))
	}
	e.ctx.regfile.Set(inst, res)
}

// doAssignValue tracks a scalar-producing instruction as an opaque program value.
func (e *abstractExecution) doAssignValue(inst ssa.Value) {
	e.ctx.regfile.Set(inst, PointToMap{ValueLoc(inst): constraints.Top().Weaken()})
}

// doExternalCall models a call whose callee body is unavailable: when points-to detail is enabled
// the call register points to an opaque value, otherwise it gets no entry; the store is left
// unchanged either way. This under-approximates the side effects of the callee and is a
// documented unsound simplification.
func (e *abstractExecution) doExternalCall(call *ssa.Call, callee *ssa.Function) {
	if !e.ctx.cfg.PointsToDetail {
		return
	}
	var tag ssa.Value = call
	if callee != nil {
		tag = callee
	}
	e.ctx.regfile.Set(call, PointToMap{ValueLoc(tag): constraints.Top().Weaken()})
}

// doInvoke instantiates the summary of an internal callee at a call site. The callee's
// runtime-memory locations are substituted with the caller's dereference sets of the actual
// arguments, the callee's alias hypotheses are renamed through the caller's own inputs, and the
// instantiated edges are merged into the caller's store. The set of written caller locations is
// recorded in the update history.
func (e *abstractExecution) doInvoke(call *ssa.Call, calleeSummary *FunctionSummary, actuals []ssa.Value) {
	inst := newInstantiation(e, calleeSummary, actuals)

	for loc, ptMap := range calleeSummary.Store {
		if loc.Tag() == TagRegister {
			continue
		}
		keys := inst.substitute(loc)
		if len(keys) == 0 {
			continue
		}
		for target, cond := range ptMap {
			targets := inst.substitute(target)
			if len(targets) == 0 {
				continue
			}
			renamed := inst.rename(cond)
			for keyLoc, keyCond := range keys {
				for targetLoc, targetCond := range targets {
					combined := renamed.And(keyCond).And(targetCond)
					if !e.ctx.solver.Sat(combined) {
						continue
					}
					cellMap, ok := e.store[keyLoc]
					if !ok {
						cellMap = PointToMap{}
						e.store[keyLoc] = cellMap
					}
					if prev, ok := cellMap[targetLoc]; ok {
						cellMap[targetLoc] = prev.Or(combined)
					} else {
						cellMap[targetLoc] = combined
					}
				}
			}
		}
	}

	// The substituted write set of the callee becomes the generalized-store record of this call
	// site.
	written := PointToMap{}
	for cell, cond := range calleeSummary.Written {
		renamed := inst.rename(cond)
		for keyLoc, keyCond := range inst.substitute(cell) {
			combined := renamed.And(keyCond)
			if !e.ctx.solver.Sat(combined) {
				continue
			}
			if prev, ok := written[keyLoc]; ok {
				written[keyLoc] = prev.Or(combined)
			} else {
				written[keyLoc] = combined
			}
		}
	}
	if len(written) > 0 {
		e.ctx.recordWritten(written)
		if prev, ok := e.ctx.updateHistory[call]; ok {
			MergePointToMap(prev, written)
		} else {
			e.ctx.updateHistory[call] = written
		}
	}

	// The call register inherits the instantiated points-to set of the callee's return value.
	if len(calleeSummary.ReturnPts) > 0 {
		res := PointToMap{}
		for target, cond := range calleeSummary.ReturnPts {
			renamed := inst.rename(cond)
			for targetLoc, targetCond := range inst.substitute(target) {
				combined := renamed.And(targetCond)
				if !e.ctx.solver.Sat(combined) {
					continue
				}
				if prev, ok := res[targetLoc]; ok {
					res[targetLoc] = prev.Or(combined)
				} else {
					res[targetLoc] = combined
				}
			}
		}
		e.ctx.regfile.Set(call, res)
	} else if e.ctx.cfg.PointsToDetail {
		e.doAssignValue(call)
	}
}

// instantiation carries the substitution of one call site: the caller-side dereference sets of
// each callee input and the renaming of callee input indices into caller input indices.
type instantiation struct {
	exec    *abstractExecution
	callee  *FunctionSummary
	actuals []ssa.Value

	// calleeInput maps a callee input value to its input position.
	calleeInput map[ssa.Value]int

	// inputMap maps callee input positions to caller input positions, -1 when the actual does
	// not resolve to a caller input.
	inputMap []int

	// derefs[i][k] is the caller-side points-to set of the k-th dereference of actual i,
	// computed on demand.
	derefs [][]PointToMap
}

func newInstantiation(e *abstractExecution, calleeSummary *FunctionSummary, actuals []ssa.Value) *instantiation {
	inst := &instantiation{
		exec:        e,
		callee:      calleeSummary,
		actuals:     actuals,
		calleeInput: make(map[ssa.Value]int, len(calleeSummary.Inputs)),
		inputMap:    make([]int, len(actuals)),
		derefs:      make([][]PointToMap, len(actuals)),
	}
	for i, in := range calleeSummary.Inputs {
		inst.calleeInput[in] = i
	}
	for i, actual := range actuals {
		if idx, ok := e.ctx.InputIndex(actual); ok {
			inst.inputMap[i] = idx
		} else {
			inst.inputMap[i] = -1
		}
	}
	return inst
}

// derefSet returns the caller-side points-to set of the k-th dereference of actual i: level 0 is
// what the actual's register points to, level k+1 follows the store one step from level k.
func (inst *instantiation) derefSet(i, k int) PointToMap {
	for len(inst.derefs[i]) <= k {
		level := len(inst.derefs[i])
		var next PointToMap
		if level == 0 {
			next = inst.exec.ctx.PointsTo(inst.actuals[i]).Copy()
		} else {
			next = PointToMap{}
			for cell, cond := range inst.derefs[i][level-1] {
				for target, c := range inst.exec.store[cell] {
					combined := cond.And(c)
					if prev, ok := next[target]; ok {
						next[target] = prev.Or(combined)
					} else {
						next[target] = combined
					}
				}
			}
		}
		inst.derefs[i] = append(inst.derefs[i], next)
	}
	return inst.derefs[i][k]
}

// substitute maps a callee location to the caller-side constrained location set. Allocation
// cells and opaque values of the callee are imported unchanged; runtime memory of a callee input
// becomes the corresponding dereference set of the actual; register locations do not
// participate.
func (inst *instantiation) substitute(loc Location) PointToMap {
	switch loc.Tag() {
	case TagRuntime:
		if i, ok := inst.calleeInput[loc.Value()]; ok && i < len(inst.actuals) {
			return inst.derefSet(i, loc.Deref())
		}
		return nil
	case TagStack, TagHeap, TagValue:
		return PointToMap{loc: constraints.Top()}
	default:
		return nil
	}
}

// rename maps a callee constraint into the caller's vocabulary. Atoms over callee inputs whose
// actuals both resolve to caller inputs are renamed exactly; an atom over two occurrences of the
// same actual is exactly true. Any other atom makes the renaming inexact, in which case the
// whole constraint is replaced by the weakened tautology (may true, must false). The result is
// weakened either way:
// callee-internal paths are not visible to the caller.
func (inst *instantiation) rename(c constraints.Constraint) constraints.Constraint {
	if !c.IsExpr() {
		return c.Weaken()
	}
	may, okMay := inst.renameFormula(c.May())
	must, okMust := inst.renameFormula(c.Must())
	if !okMay || !okMust {
		return constraints.NewExpr(constraints.True(), constraints.False())
	}
	return constraints.NewExpr(may, must).Weaken()
}

func (inst *instantiation) renameFormula(f *constraints.Formula) (*constraints.Formula, bool) {
	switch f.Op {
	case constraints.OpTrue, constraints.OpFalse:
		return f, true
	case constraints.OpAtom:
		if f.I >= len(inst.inputMap) || f.J >= len(inst.inputMap) {
			return nil, false
		}
		mi, mj := inst.inputMap[f.I], inst.inputMap[f.J]
		if mi >= 0 && mj >= 0 {
			return constraints.Atom(mi, mj), true
		}
		// Two occurrences of the same caller value alias exactly.
		ctx := inst.exec.ctx
		if ctx.regfile.TranslateAlias(inst.actuals[f.I]) == ctx.regfile.TranslateAlias(inst.actuals[f.J]) {
			return constraints.True(), true
		}
		return nil, false
	case constraints.OpNot:
		sub, ok := inst.renameFormula(f.Subs[0])
		if !ok {
			return nil, false
		}
		return constraints.Not(sub), true
	default:
		subs := make([]*constraints.Formula, len(f.Subs))
		for i, s := range f.Subs {
			sub, ok := inst.renameFormula(s)
			if !ok {
				return nil, false
			}
			subs[i] = sub
		}
		if f.Op == constraints.OpAnd {
			return constraints.And(subs...), true
		}
		return constraints.Or(subs...), true
	}
}
