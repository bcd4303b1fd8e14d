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

// Package rawdeps extracts Read-After-Write dependences from converged pointer analysis
// results: for every load, the stores, calls and function inputs that may supply its value,
// each edge labelled with the input-alias constraint under which the flow exists.
package rawdeps

import (
	"github.com/mhlab/condep/analysis/constraints"
	"github.com/mhlab/condep/analysis/lang"
	"github.com/mhlab/condep/analysis/pointsto"
	"golang.org/x/tools/go/ssa"
)

// SourceKind classifies the writer of a RAW edge.
type SourceKind uint8

const (
	// SourceStore is a store instruction.
	SourceStore SourceKind = iota
	// SourceCall is a call that may have written the cell, according to its summary.
	SourceCall
	// SourceArg is a function parameter whose entry value reaches the load.
	SourceArg
	// SourceGlobal is a global whose entry value reaches the load.
	SourceGlobal
)

func (k SourceKind) String() string {
	switch k {
	case SourceStore:
		return "store"
	case SourceCall:
		return "call"
	case SourceArg:
		return "arg"
	default:
		return "global"
	}
}

// Edge is one RAW dependence: the load may read a value written by Writer under Cond.
type Edge struct {
	Load   *ssa.UnOp
	Writer ssa.Node
	Kind   SourceKind
	Cond   constraints.Constraint
}

// writer is a candidate supplier of a cell's value. A nil at-instruction denotes the function
// entry pseudo-writer (the initial value of an input's memory). Weak writers over-approximate
// their effect and may be killed but never kill.
type writer struct {
	node ssa.Node
	at   ssa.Instruction
	weak bool
	ptr  pointsto.PointToMap
}

type edgeKey struct {
	load   *ssa.UnOp
	writer ssa.Node
}

// ComputeFunction derives the RAW edges of one function from its converged analysis context.
func ComputeFunction(ctx *pointsto.AnalysisContext) []Edge {
	fn := ctx.Func()
	solver := ctx.Solver()

	var loads []*ssa.UnOp
	var writers []writer
	lang.IterateInstructions(fn, func(_ int, instruction ssa.Instruction) {
		if load, ok := lang.IsLoad(instruction); ok {
			loads = append(loads, load)
		}
		if st, ok := instruction.(*ssa.Store); ok {
			writers = append(writers, writer{
				node: st,
				at:   st,
				ptr:  ctx.PointsTo(st.Addr),
			})
		}
		if call, ok := instruction.(ssa.CallInstruction); ok {
			if written, ok := ctx.UpdateHistory()[call]; ok {
				writers = append(writers, writer{
					node: call.(ssa.Node),
					at:   call,
					weak: true,
					ptr:  written,
				})
			}
		}
	})

	edges := map[edgeKey]constraints.Constraint{}
	var order []edgeKey

	for _, load := range loads {
		for cell, loadCond := range ctx.PointsTo(load.X) {
			deps := dependencySet(ctx, load, cell, writers)
			for _, dep := range deps {
				cond := loadCond.And(dep.cond)
				if !solver.Sat(cond) {
					continue
				}
				key := edgeKey{load, dep.w.node}
				if prev, ok := edges[key]; ok {
					edges[key] = prev.Or(cond)
				} else {
					edges[key] = cond
					order = append(order, key)
				}
			}
		}
	}

	out := make([]Edge, 0, len(order))
	for _, key := range order {
		cond := solver.Simplify(edges[key])
		if cond.IsBottom() {
			continue
		}
		out = append(out, Edge{Load: key.load, Writer: key.writer, Kind: writerKind(key.writer), Cond: cond})
	}
	return out
}

type dependency struct {
	w    writer
	cond constraints.Constraint
}

// dependencySet scans the candidate writers of one cell in instruction order and applies the
// kill sweep: a strong writer that must execute after an earlier dependency and covers its
// constraint removes it; a writer that is itself strongly overwritten is not inserted. The
// entry pseudo-writer seeds the set for runtime memory cells.
func dependencySet(ctx *pointsto.AnalysisContext, load *ssa.UnOp, cell pointsto.Location, writers []writer) []dependency {
	flow := ctx.Flow()
	solver := ctx.Solver()

	var deps []dependency
	if cell.Tag() == pointsto.TagRuntime {
		if _, ok := ctx.InputIndex(cell.Value()); ok {
			deps = append(deps, dependency{
				w:    writer{node: cell.Value().(ssa.Node)},
				cond: constraints.Top(),
			})
		}
	}

	for _, w := range writers {
		cond, ok := w.ptr[cell]
		if !ok {
			continue
		}
		if w.weak {
			cond = cond.Weaken()
		}
		// The load must be able to execute after the writer.
		if flow.ExecAfter(w.at, load) == pointsto.ExecNever {
			continue
		}
		if !solver.Sat(cond) {
			continue
		}

		overwritten := false
		kept := deps[:0]
		for _, dep := range deps {
			// w strongly overwrites dep: drop dep.
			if !w.weak && execAfterWriter(flow, dep.w, w.at) == pointsto.ExecMust &&
				solver.Implies(cond, dep.cond) {
				continue
			}
			// w is itself strongly overwritten by dep: do not insert w.
			if !dep.w.weak && dep.w.at != nil && flow.ExecAfter(w.at, dep.w.at) == pointsto.ExecMust &&
				solver.Implies(dep.cond, cond) {
				overwritten = true
			}
			kept = append(kept, dep)
		}
		deps = kept
		if !overwritten {
			deps = append(deps, dependency{w: w, cond: cond})
		}
	}
	return deps
}

// execAfterWriter answers whether the instruction at executes strictly after the writer w on
// every path. The entry pseudo-writer precedes everything, so the answer is Must exactly when
// at executes on every path: trivially within the entry block, and by the regular query from
// the first instruction otherwise.
func execAfterWriter(flow *pointsto.FlowInfo, w writer, at ssa.Instruction) pointsto.ExecCond {
	if w.at != nil {
		return flow.ExecAfter(w.at, at)
	}
	entry := at.Parent().Blocks[0]
	if at.Block() == entry {
		return pointsto.ExecMust
	}
	return flow.ExecAfter(entry.Instrs[0], at)
}

func writerKind(node ssa.Node) SourceKind {
	switch node.(type) {
	case *ssa.Store:
		return SourceStore
	case *ssa.Global:
		return SourceGlobal
	case *ssa.Parameter:
		return SourceArg
	default:
		return SourceCall
	}
}
