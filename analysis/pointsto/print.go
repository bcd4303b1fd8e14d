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
	"fmt"
	"io"
	"sort"
)

// WriteStore writes a readable rendering of the points-to graph reachable from the root
// locations, one location per paragraph. Locations are visited breadth-first so related cells
// stay close; output order is deterministic.
func WriteStore(w io.Writer, store Store, roots []Location) {
	known := map[Location]bool{}
	var queue []Location
	for _, loc := range roots {
		if !known[loc] {
			known[loc] = true
			queue = append(queue, loc)
		}
	}

	for len(queue) > 0 {
		loc := queue[0]
		queue = queue[1:]

		ptMap := store[loc]
		if len(ptMap) == 0 {
			continue
		}
		fmt.Fprintf(w, "| %s\n", loc)
		for _, target := range sortedTargets(ptMap) {
			fmt.Fprintf(w, "  -> %s ? %s\n", target, ptMap[target])
			if !known[target] {
				known[target] = true
				queue = append(queue, target)
			}
		}
	}
}

// WriteSummary renders the converged store of a summary rooted at its inputs and return value.
func WriteSummary(w io.Writer, summary *FunctionSummary) {
	var roots []Location
	for _, in := range summary.Inputs {
		roots = append(roots, RegisterLoc(in))
	}
	if summary.Return != nil && len(summary.Return.Results) > 0 {
		roots = append(roots, RegisterLoc(summary.Return.Results[0]))
	}
	fmt.Fprintf(w, "[store of %s]\n", summary.Fn)
	WriteStore(w, summary.Store, roots)
}

func sortedTargets(m PointToMap) []Location {
	targets := make([]Location, 0, len(m))
	for t := range m {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].String() < targets[j].String() })
	return targets
}
