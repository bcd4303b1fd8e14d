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

// Package graphutil adapts the call graph of a program to the graph libraries used by the
// analyses.
package graphutil

import (
	"sort"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// CGraph is an abstraction over a callgraph to work with existing graph libraries. Node indices
// are dense, assigned in sorted callgraph-node-ID order, so results are deterministic across
// runs.
type CGraph struct {
	funcs []*ssa.Function
	index map[*ssa.Function]int
	edges []map[int]bool
}

// NewCGraph builds the adapter from a callgraph.
func NewCGraph(cg *callgraph.Graph) *CGraph {
	nodes := make([]*callgraph.Node, 0, len(cg.Nodes))
	for _, node := range cg.Nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	g := &CGraph{
		funcs: make([]*ssa.Function, len(nodes)),
		index: make(map[*ssa.Function]int, len(nodes)),
		edges: make([]map[int]bool, len(nodes)),
	}
	for i, node := range nodes {
		g.funcs[i] = node.Func
		g.index[node.Func] = i
		g.edges[i] = map[int]bool{}
	}
	for i, node := range nodes {
		for _, e := range node.Out {
			if e.Callee != nil {
				if j, ok := g.index[e.Callee.Func]; ok {
					g.edges[i][j] = true
				}
			}
		}
	}
	return g
}

// Order implements graph.Iterator.
func (g *CGraph) Order() int {
	return len(g.funcs)
}

// Visit implements graph.Iterator.
func (g *CGraph) Visit(v int, do func(w int, c int64) bool) bool {
	for w := range g.edges[v] {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// Func returns the function at node index v.
func (g *CGraph) Func(v int) *ssa.Function {
	return g.funcs[v]
}

// HasEdge reports whether the call graph has an edge from v to w.
func (g *CGraph) HasEdge(v, w int) bool {
	return g.edges[v][w]
}

// Index returns the node index of f, if f appears in the graph.
func (g *CGraph) Index(f *ssa.Function) (int, bool) {
	i, ok := g.index[f]
	return i, ok
}
