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
	"github.com/mhlab/condep/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// analyzeBlock runs the abstract execution over one block: it merges the predecessor stores,
// interprets every instruction, and commits the output store. Returns true when the cached
// output of the block changed.
func analyzeBlock(ctx *AnalysisContext, bb *ssa.BasicBlock) bool {
	exec := &abstractExecution{ctx: ctx, store: ctx.initializeExecution(bb)}

	for _, instruction := range bb.Instrs {
		interpret(exec, instruction)
	}

	return ctx.commitExecution(bb, exec.store)
}

// interpret dispatches one instruction to its transfer function. Instruction shapes the analysis
// does not understand are no-ops for points-to purposes; the analysis continues.
func interpret(exec *abstractExecution, instruction ssa.Instruction) {
	ctx := exec.ctx

	if load, ok := lang.IsLoad(instruction); ok {
		exec.doLoad(load, load.X)
		return
	}
	if target, ok := lang.AliasedOperand(instruction); ok {
		ctx.regfile.AssignAlias(instruction.(ssa.Value), target)
		return
	}

	switch v := instruction.(type) {
	case *ssa.Alloc:
		exec.doAlloc(v, v.Heap)
	case *ssa.MakeSlice, *ssa.MakeMap, *ssa.MakeChan:
		exec.doAlloc(v.(ssa.Value), true)
	case *ssa.Store:
		exec.doStore(v.Val, v.Addr)
	case *ssa.Phi:
		exec.doPhi(v, v.Edges)
	case *ssa.Call:
		interpretCall(exec, v)
	case *ssa.If, *ssa.Jump, *ssa.Return, *ssa.Panic, *ssa.RunDefers:
		// Successor selection is the driver's business; no store effect.
	case *ssa.Go, *ssa.Defer:
		// Concurrency and defers are not modeled: the instruction is logged and has no effect on
		// the store or the register file.
		ctx.log.Debugf("%s: %T not modeled, effects ignored", ctx.summary.Fn, instruction)
	default:
		if value, ok := instruction.(ssa.Value); ok && ctx.cfg.PointsToDetail {
			exec.doAssignValue(value)
		}
	}
}

// interpretCall resolves the callee of a call instruction. Internal callees are instantiated
// from their summary; external declarations and unresolvable indirect calls fall back to weak
// tracking.
func interpretCall(exec *abstractExecution, call *ssa.Call) {
	ctx := exec.ctx
	callee := lang.CalledFunction(call)
	if lang.IsExternal(callee) {
		exec.doExternalCall(call, callee)
		return
	}

	calleeSummary := ctx.env.LookupSummary(callee)
	actuals := make([]ssa.Value, 0, len(calleeSummary.Inputs))
	actuals = append(actuals, call.Common().Args...)
	for _, g := range calleeSummary.Globals {
		actuals = append(actuals, g)
	}
	if len(actuals) != len(calleeSummary.Inputs) {
		ctx.log.Warnf("%s: call to %s passes %d inputs, summary has %d; treated as external",
			ctx.summary.Fn, callee, len(actuals), len(calleeSummary.Inputs))
		exec.doExternalCall(call, callee)
		return
	}
	exec.doInvoke(call, calleeSummary, actuals)
}

// runIntraProcedural runs the block worklist to a local fixed point: a FIFO of blocks seeded in
// CFG order, re-enqueueing the successors of every block whose output store changed.
// Termination follows from the monotonicity of the transfer functions and the finiteness of the
// per-function points-to lattice.
func runIntraProcedural(ctx *AnalysisContext) {
	fn := ctx.summary.Fn
	var worklist []*ssa.BasicBlock
	workset := map[*ssa.BasicBlock]bool{}
	for _, block := range fn.Blocks {
		worklist = append(worklist, block)
		workset[block] = true
	}

	for len(worklist) > 0 {
		bb := worklist[0]
		worklist = worklist[1:]
		delete(workset, bb)

		if analyzeBlock(ctx, bb) {
			for _, succ := range bb.Succs {
				if !workset[succ] {
					worklist = append(worklist, succ)
					workset[succ] = true
				}
			}
		}
	}
}
