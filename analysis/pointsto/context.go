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
	"go/types"

	"github.com/mhlab/condep/analysis/config"
	"github.com/mhlab/condep/analysis/constraints"
	"github.com/mhlab/condep/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// AnalysisContext holds the mutable state of one function analysis: the solver session, the
// register file, the per-block store cache and the update history of call sites. A context is
// acquired when the driver starts a pass over a function and owns its state exclusively.
type AnalysisContext struct {
	env     *SummaryEnvironment
	summary *FunctionSummary
	cfg     *config.Config
	log     *config.LogGroup

	solver  *constraints.Solver
	flow    *FlowInfo
	regfile *RegFile

	entryStore  Store
	blockStores map[*ssa.BasicBlock]Store

	// updateHistory records, per call site, the caller-side locations the call may have written,
	// under the constraint they were reached with. The dependence extraction treats these as
	// generalized stores.
	updateHistory map[ssa.CallInstruction]PointToMap

	// written accumulates the cells written by the function itself or its callees, in this
	// function's coordinates.
	written PointToMap

	resultStore Store

	inputIndex map[ssa.Value]int
	nestLevels []int
}

// NewAnalysisContext builds the context for one pass over the function of summary: it creates
// the solver session, seeds the initial alias rejections from the input types, and installs the
// entry points-to chains of the inputs.
func NewAnalysisContext(env *SummaryEnvironment, summary *FunctionSummary) *AnalysisContext {
	inputs := summary.Inputs
	ctx := &AnalysisContext{
		env:           env,
		summary:       summary,
		cfg:           env.cfg,
		log:           env.log,
		solver:        constraints.NewSolver(len(inputs), nil, env.cfg.MaxSolverInputs),
		flow:          NewFlowInfo(summary.Fn),
		regfile:       NewRegFile(),
		entryStore:    Store{},
		blockStores:   map[*ssa.BasicBlock]Store{},
		updateHistory: map[ssa.CallInstruction]PointToMap{},
		written:       PointToMap{},
		inputIndex:    map[ssa.Value]int{},
		nestLevels:    make([]int, len(inputs)),
	}
	for i, in := range inputs {
		ctx.inputIndex[in] = i
		ctx.nestLevels[i] = lang.PtrNestLevel(in.Type())
	}

	ctx.rejectInitialAliases()
	ctx.installEntryState()
	return ctx
}

// rejectInitialAliases rejects aliasing between input pairs that cannot refer to the same
// location: non-pointer inputs, inputs with different pointer nesting levels, two distinct
// globals. Inputs with different pointee types are also rejected, which is unsound under type
// punning but prunes most of the hypothesis space.
func (ctx *AnalysisContext) rejectInitialAliases() {
	inputs := ctx.summary.Inputs
	for i := 0; i < len(inputs); i++ {
		for j := 0; j < i; j++ {
			ti, tj := inputs[i].Type(), inputs[j].Type()
			switch {
			case !lang.IsPointerType(ti) || !lang.IsPointerType(tj):
				ctx.solver.RejectAlias(i, j)
			case ctx.nestLevels[i] != ctx.nestLevels[j]:
				ctx.solver.RejectAlias(i, j)
			case lang.IsGlobal(inputs[i]) && lang.IsGlobal(inputs[j]):
				ctx.solver.RejectAlias(i, j)
			case !types.Identical(lang.PointeeType(ti), lang.PointeeType(tj)):
				ctx.solver.RejectAlias(i, j)
			}
		}
	}
}

// installEntryState installs, for each pointer input of nesting level L, the dereference chain
// reg -> mem@0 -> ... -> mem@L-1, plus the aliased edges to the level-zero cells of earlier
// inputs under their canonical alias witness.
func (ctx *AnalysisContext) installEntryState() {
	inputs := ctx.summary.Inputs
	for i, in := range inputs {
		level := ctx.nestLevels[i]
		if level == 0 {
			if ctx.cfg.PointsToDetail {
				ctx.regfile.Set(in, PointToMap{ValueLoc(in): constraints.Top().Weaken()})
			}
			continue
		}

		regMap := PointToMap{RuntimeLoc(in, 0): ctx.solver.MakeAliasConstraint(i, i)}
		for j := 0; j < i; j++ {
			if ctx.nestLevels[j] > 0 && ctx.solver.TestAlias(i, j) {
				regMap[RuntimeLoc(inputs[j], 0)] = ctx.solver.MakeAliasConstraint(i, j)
			}
		}
		ctx.regfile.Set(in, regMap)

		for k := 0; k+1 < level; k++ {
			ctx.entryStore[RuntimeLoc(in, k)] = PointToMap{RuntimeLoc(in, k+1): constraints.Top()}
		}
	}
}

// Func returns the function under analysis.
func (ctx *AnalysisContext) Func() *ssa.Function { return ctx.summary.Fn }

// Summary returns the summary the context is computing.
func (ctx *AnalysisContext) Summary() *FunctionSummary { return ctx.summary }

// Solver returns the solver session of the context.
func (ctx *AnalysisContext) Solver() *constraints.Solver { return ctx.solver }

// Flow returns the control-flow information of the function.
func (ctx *AnalysisContext) Flow() *FlowInfo { return ctx.flow }

// ResultStore returns the result store built by the last pass.
func (ctx *AnalysisContext) ResultStore() Store { return ctx.resultStore }

// UpdateHistory returns the per-call-site write sets recorded during the pass.
func (ctx *AnalysisContext) UpdateHistory() map[ssa.CallInstruction]PointToMap {
	return ctx.updateHistory
}

// recordWritten accumulates cells written by a store or an instantiated call.
func (ctx *AnalysisContext) recordWritten(cells PointToMap) {
	for cell, cond := range cells {
		if prev, ok := ctx.written[cell]; ok {
			ctx.written[cell] = prev.Or(cond)
		} else {
			ctx.written[cell] = cond
		}
	}
}

// InputIndex returns the input position of v, resolving register aliases first.
func (ctx *AnalysisContext) InputIndex(v ssa.Value) (int, bool) {
	i, ok := ctx.inputIndex[ctx.regfile.TranslateAlias(v)]
	return i, ok
}

// PointsTo returns the points-to map of the canonical register of v, or nil when v is not a
// tracked pointer.
func (ctx *AnalysisContext) PointsTo(v ssa.Value) PointToMap {
	return ctx.regfile.Get(v)
}

// valuePointsTo returns the points-to contribution of a value used on the right-hand side of a
// store or a φ: the register map for tracked pointers, an opaque program value for scalars when
// points-to detail is enabled, and nothing otherwise.
func (ctx *AnalysisContext) valuePointsTo(v ssa.Value) PointToMap {
	if m := ctx.regfile.Get(v); m != nil {
		return m
	}
	if _, isConst := v.(*ssa.Const); isConst {
		if ctx.cfg.PointsToDetail {
			return PointToMap{ValueLoc(v): constraints.Top().Weaken()}
		}
		return nil
	}
	if !lang.IsPointerType(v.Type()) && ctx.cfg.PointsToDetail {
		return PointToMap{ValueLoc(v): constraints.Top().Weaken()}
	}
	return nil
}

// initializeExecution computes the input store of a block: the pointwise merge of the cached
// stores of its analyzed predecessors. Contributions of not-yet-analyzed back-edge predecessors
// are empty; a missing non-back-edge predecessor store is also treated as empty and is filled in
// when change propagation re-enqueues the block.
func (ctx *AnalysisContext) initializeExecution(bb *ssa.BasicBlock) Store {
	if len(ctx.summary.Fn.Blocks) > 0 && bb == ctx.summary.Fn.Blocks[0] {
		return ctx.entryStore.Copy()
	}
	merged := Store{}
	contributed := false
	for _, pred := range bb.Preds {
		if cached, ok := ctx.blockStores[pred]; ok {
			MergeStore(merged, cached)
			contributed = true
		} else if !ctx.flow.IsBackEdge(pred, bb) {
			ctx.log.Tracef("%s: predecessor %s of %s not yet analyzed", ctx.summary.Fn, pred, bb)
		}
	}
	if !contributed && len(bb.Preds) == 0 {
		return ctx.entryStore.Copy()
	}
	return merged
}

// commitExecution installs the output store of a block in the cache and reports whether the
// cached value changed. The new store is installed even when it is merely equivalent to the old
// one, so that no residue of unsimplified constraints accumulates.
func (ctx *AnalysisContext) commitExecution(bb *ssa.BasicBlock, out Store) bool {
	old, ok := ctx.blockStores[bb]
	if !ok {
		ctx.blockStores[bb] = out
		return true
	}
	changed := !EqualStore(ctx.solver, old, out)
	ctx.blockStores[bb] = out
	return changed
}

// buildResultStore merges the output stores of the return blocks, folds the register file in
// under register locations, and normalizes the result. Functions that never return fall back to
// the store of the last block.
func (ctx *AnalysisContext) buildResultStore() {
	result := Store{}
	found := false
	for _, block := range ctx.summary.Fn.Blocks {
		if lang.LastInstrIsReturn(block) {
			if cached, ok := ctx.blockStores[block]; ok {
				MergeStore(result, cached)
				found = true
			}
		}
	}
	if !found {
		if n := len(ctx.summary.Fn.Blocks); n > 0 {
			if cached, ok := ctx.blockStores[ctx.summary.Fn.Blocks[n-1]]; ok {
				result = cached.Copy()
			}
		}
	}

	for reg, m := range ctx.regfile.Registers() {
		result[RegisterLoc(reg)] = m.Copy()
	}
	NormalizeStore(ctx.solver, result)
	ctx.resultStore = result
}

// returnPointsTo extracts the points-to map of the returned value, with register locations
// resolved through the register file.
func (ctx *AnalysisContext) returnPointsTo() PointToMap {
	ret := ctx.summary.Return
	if ret == nil || len(ret.Results) == 0 {
		return nil
	}
	if m := ctx.regfile.Get(ret.Results[0]); m != nil {
		return m.Copy()
	}
	return nil
}
