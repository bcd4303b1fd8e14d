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

package lang

import "golang.org/x/tools/go/ssa"

// HasPathTo returns true if there is a control-flow path from b1 to b2, including the trivial
// path when b1 == b2. Use mem to amortize cost across queries; if mem is nil the search runs
// without memoization.
func HasPathTo(b1 *ssa.BasicBlock, b2 *ssa.BasicBlock, mem map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool) bool {
	if mem != nil {
		if _, ok := mem[b1]; !ok {
			mem[b1] = map[*ssa.BasicBlock]bool{}
		}
		if val, ok := mem[b1][b2]; ok {
			return val
		}
	}
	visited := map[*ssa.BasicBlock]bool{}
	queue := []*ssa.BasicBlock{b1}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == b2 {
			if mem != nil {
				mem[b1][b2] = true
			}
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, nb := range cur.Succs {
			if !visited[nb] {
				queue = append(queue, nb)
			}
		}
	}
	if mem != nil {
		mem[b1][b2] = false
	}
	return false
}

// CanReachExitAvoiding reports whether some function exit (a block whose last instruction is a
// return or panic, or a block without successors) is reachable from "from" on a path that does
// not pass through "avoid". Used to decide post-dominance pairwise.
func CanReachExitAvoiding(from, avoid *ssa.BasicBlock) bool {
	if from == avoid {
		return false
	}
	visited := map[*ssa.BasicBlock]bool{avoid: true}
	queue := []*ssa.BasicBlock{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if len(cur.Succs) == 0 {
			return true
		}
		for _, nb := range cur.Succs {
			if !visited[nb] {
				queue = append(queue, nb)
			}
		}
	}
	return false
}

// LastInstrIsReturn returns true when the last instruction of the block is a return instruction.
func LastInstrIsReturn(block *ssa.BasicBlock) bool {
	n := len(block.Instrs)
	if n == 0 {
		return false
	}
	_, ok := block.Instrs[n-1].(*ssa.Return)
	return ok
}

// BackEdges returns the loop-closing edges of the function: the edges u -> v such that v is an
// ancestor of u in a depth-first traversal from the entry block.
func BackEdges(function *ssa.Function) map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool {
	edges := map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool{}
	if len(function.Blocks) == 0 {
		return edges
	}
	const (
		white = iota
		gray
		black
	)
	color := map[*ssa.BasicBlock]int{}
	var dfs func(b *ssa.BasicBlock)
	dfs = func(b *ssa.BasicBlock) {
		color[b] = gray
		for _, succ := range b.Succs {
			switch color[succ] {
			case white:
				dfs(succ)
			case gray:
				if edges[b] == nil {
					edges[b] = map[*ssa.BasicBlock]bool{}
				}
				edges[b][succ] = true
			}
		}
		color[b] = black
	}
	dfs(function.Blocks[0])
	return edges
}
