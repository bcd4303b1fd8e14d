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

// ExecCond is the three-valued answer to an execute-after query.
type ExecCond uint8

const (
	// ExecNever: the second instruction executes strictly after the first on no path.
	ExecNever ExecCond = iota
	// ExecMay: on some path.
	ExecMay
	// ExecMust: on every path.
	ExecMust
)

func (c ExecCond) String() string {
	switch c {
	case ExecNever:
		return "never"
	case ExecMay:
		return "may"
	default:
		return "must"
	}
}

type instrPair struct {
	a, b ssa.Instruction
}

// FlowInfo caches per-function control-flow facts: the loop-closing edges of the CFG and the
// pairwise execute-after relation consulted by the dependence extraction.
type FlowInfo struct {
	fn        *ssa.Function
	backEdges map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool
	inCycle   map[*ssa.BasicBlock]bool
	reachMem  map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool
	instrIdx  map[ssa.Instruction]int
	execAfter map[instrPair]ExecCond
}

// NewFlowInfo precomputes the control-flow information of the function.
func NewFlowInfo(fn *ssa.Function) *FlowInfo {
	info := &FlowInfo{
		fn:        fn,
		backEdges: lang.BackEdges(fn),
		inCycle:   map[*ssa.BasicBlock]bool{},
		reachMem:  map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool{},
		instrIdx:  map[ssa.Instruction]int{},
		execAfter: map[instrPair]ExecCond{},
	}
	for _, block := range fn.Blocks {
		for i, instruction := range block.Instrs {
			info.instrIdx[instruction] = i
		}
	}
	for _, block := range fn.Blocks {
		for _, succ := range block.Succs {
			if lang.HasPathTo(succ, block, info.reachMem) {
				info.inCycle[block] = true
				break
			}
		}
	}
	return info
}

// IsBackEdge reports whether from -> to is a loop-closing edge.
func (info *FlowInfo) IsBackEdge(from, to *ssa.BasicBlock) bool {
	return info.backEdges[from][to]
}

// ExecAfter answers whether b executes strictly after a on no, some or every path. Same-block
// queries are decided by instruction order, with loop-carried re-execution downgrading the
// answer to May. Cross-block queries use reachability for Never and a dominance plus
// post-dominance check for Must. Reachability includes loop-closing edges, so a writer later in
// a loop body is still visible to a read at the top of the next iteration.
func (info *FlowInfo) ExecAfter(a, b ssa.Instruction) ExecCond {
	key := instrPair{a, b}
	if c, ok := info.execAfter[key]; ok {
		return c
	}
	c := info.computeExecAfter(a, b)
	info.execAfter[key] = c
	return c
}

func (info *FlowInfo) computeExecAfter(a, b ssa.Instruction) ExecCond {
	blockA, blockB := a.Block(), b.Block()
	if blockA == blockB {
		if a != b && info.instrIdx[b] > info.instrIdx[a] {
			return ExecMust
		}
		if info.inCycle[blockA] {
			return ExecMay
		}
		return ExecNever
	}
	if !lang.HasPathTo(blockA, blockB, info.reachMem) {
		return ExecNever
	}
	if blockA.Dominates(blockB) && !lang.CanReachExitAvoiding(blockA, blockB) {
		return ExecMust
	}
	return ExecMay
}
