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

package graphutil

import (
	"github.com/yourbasic/graph"
	"golang.org/x/tools/go/ssa"
)

// NonRecursiveFunctions classifies the functions of the call graph: a function does not recurse
// when its strongly connected component is a singleton without a self-loop, i.e. the function is
// not part of any call cycle.
func NonRecursiveFunctions(g *CGraph) map[*ssa.Function]bool {
	out := make(map[*ssa.Function]bool, g.Order())
	for _, component := range graph.StrongComponents(g) {
		if len(component) == 1 {
			v := component[0]
			out[g.Func(v)] = !g.HasEdge(v, v)
		} else {
			for _, v := range component {
				out[g.Func(v)] = false
			}
		}
	}
	return out
}
