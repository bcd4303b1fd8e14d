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

package rawdeps_test

import (
	"strings"
	"testing"

	"github.com/mhlab/condep/analysis/config"
	"github.com/mhlab/condep/analysis/lang"
	"github.com/mhlab/condep/analysis/pointsto"
	"github.com/mhlab/condep/analysis/rawdeps"
	"github.com/mhlab/condep/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

func computeEdges(t *testing.T, src, fnName string) ([]rawdeps.Edge, *ssa.Function) {
	t.Helper()
	pkg := analysistest.BuildSSA(t, src)
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	env := pointsto.NewSummaryEnvironment(pkg.Prog, cfg, config.NewLogGroup(cfg))
	fn := analysistest.Function(t, pkg, fnName)
	summary := env.AnalyzeFunction(fn)
	if !summary.Converged {
		t.Fatalf("summary of %s did not converge", fnName)
	}
	return rawdeps.ComputeFunction(summary.Context()), fn
}

func edgesOfKind(edges []rawdeps.Edge, kind rawdeps.SourceKind) []rawdeps.Edge {
	var out []rawdeps.Edge
	for _, e := range edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func storesOf(fn *ssa.Function) []*ssa.Store {
	var stores []*ssa.Store
	lang.IterateInstructions(fn, func(_ int, instruction ssa.Instruction) {
		if st, ok := instruction.(*ssa.Store); ok {
			stores = append(stores, st)
		}
	})
	return stores
}

// A load through a potentially aliased parameter depends on the store through the other
// parameter, under the hypothesis that both point to the same location.
func TestAliasedParameterPair(t *testing.T) {
	edges, _ := computeEdges(t, `
package p

func f(p *int, q *int) int {
	*p = 1
	return *q
}
`, "f")

	storeEdges := edgesOfKind(edges, rawdeps.SourceStore)
	if len(storeEdges) != 1 {
		t.Fatalf("expected 1 store edge, got %d", len(storeEdges))
	}
	if got := storeEdges[0].Cond.String(); got != "x0 = x1" {
		t.Errorf("store edge constraint: got %q, want %q", got, "x0 = x1")
	}

	// When p and q do not alias, the load still reads q's entry value.
	argEdges := edgesOfKind(edges, rawdeps.SourceArg)
	if len(argEdges) != 1 {
		t.Fatalf("expected 1 arg edge, got %d", len(argEdges))
	}
	if got := argEdges[0].Cond.String(); got != "x0 != x1" {
		t.Errorf("arg edge constraint: got %q, want %q", got, "x0 != x1")
	}
}

// A second store to the same unambiguous cell strongly overwrites the first.
func TestStrongUpdateKillsEarlierStore(t *testing.T) {
	edges, fn := computeEdges(t, `
package p

func g(p *int) int {
	*p = 1
	*p = 2
	return *p
}
`, "g")

	if len(edges) != 1 {
		t.Fatalf("expected exactly 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.Kind != rawdeps.SourceStore {
		t.Fatalf("expected a store edge, got %s", e.Kind)
	}
	if !e.Cond.IsTop() {
		t.Errorf("edge constraint should be true, got %s", e.Cond)
	}
	stores := storesOf(fn)
	if e.Writer != stores[1] {
		t.Errorf("the surviving writer should be the second store")
	}
}

// A store on a conditional path cannot strongly overwrite: both stores reach the load.
func TestBranchDependentKillIsWeak(t *testing.T) {
	edges, fn := computeEdges(t, `
package p

func h(p *int, c bool) int {
	if c {
		*p = 1
	}
	*p = 2
	return *p
}
`, "h")

	storeEdges := edgesOfKind(edges, rawdeps.SourceStore)
	if len(storeEdges) != 2 {
		t.Fatalf("expected 2 store edges, got %d", len(storeEdges))
	}
	// The entry value of p is overwritten on every path by the unconditional store.
	if argEdges := edgesOfKind(edges, rawdeps.SourceArg); len(argEdges) != 0 {
		t.Errorf("expected no arg edge, got %d", len(argEdges))
	}
	stores := storesOf(fn)
	if len(stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stores))
	}
}

// Distinct globals cannot alias: no cross edges between their cells.
func TestDisjointGlobals(t *testing.T) {
	edges, _ := computeEdges(t, `
package p

var g1, g2 int

func k() int {
	g1 = 1
	return g2
}
`, "k")

	if len(edges) != 1 {
		t.Fatalf("expected exactly 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.Kind != rawdeps.SourceGlobal {
		t.Errorf("the only edge should read the entry value of g2, got kind %s", e.Kind)
	}
	if !e.Cond.IsTop() {
		t.Errorf("edge constraint should be true, got %s", e.Cond)
	}
}

// A call to a bodyless function does not kill a store: the store edge survives.
func TestExternalCallDoesNotKill(t *testing.T) {
	edges, _ := computeEdges(t, `
package p

func ext(p *int)

func m(p *int) int {
	ext(p)
	*p = 1
	return *p
}
`, "m")

	if len(edges) != 1 {
		t.Fatalf("expected exactly 1 edge, got %d", len(edges))
	}
	if edges[0].Kind != rawdeps.SourceStore {
		t.Errorf("expected a store edge, got %s", edges[0].Kind)
	}
}

// A call whose callee writes through its argument is a generalized store: the load may read the
// callee's write, and the entry value still flows around it (weak writers cannot kill).
func TestCallIsGeneralizedStore(t *testing.T) {
	edges, _ := computeEdges(t, `
package p

func callee(p *int) {
	*p = 7
}

func caller(q *int) int {
	callee(q)
	return *q
}
`, "caller")

	callEdges := edgesOfKind(edges, rawdeps.SourceCall)
	if len(callEdges) != 1 {
		t.Fatalf("expected 1 call edge, got %d", len(callEdges))
	}
	if argEdges := edgesOfKind(edges, rawdeps.SourceArg); len(argEdges) != 1 {
		t.Errorf("the entry value should survive the weak call writer, got %d arg edges", len(argEdges))
	}
}

// Loop-carried flows are kept: a store later in the loop body reaches a load of the next
// iteration.
func TestLoopCarriedDependence(t *testing.T) {
	edges, _ := computeEdges(t, `
package p

func loop(p *int, n int) int {
	acc := 0
	for i := 0; i < n; i++ {
		acc += *p
		*p = acc
	}
	return acc
}
`, "loop")

	storeEdges := edgesOfKind(edges, rawdeps.SourceStore)
	if len(storeEdges) != 1 {
		t.Fatalf("expected the loop store to reach the load, got %d store edges", len(storeEdges))
	}
}

func TestReportRendering(t *testing.T) {
	edges, _ := computeEdges(t, `
package p

func f(p *int, q *int) int {
	*p = 1
	return *q
}
`, "f")
	report := rawdeps.NewReport(edges)

	if report.NumRawStore != 1 || report.NumRawArg != 1 || report.NumRawCall != 0 {
		t.Errorf("unexpected counters: store=%d call=%d arg=%d",
			report.NumRawStore, report.NumRawCall, report.NumRawArg)
	}

	var text strings.Builder
	report.WriteText(&text)
	if !strings.Contains(text.String(), "RAW deps") || !strings.Contains(text.String(), "x0 = x1") {
		t.Errorf("text report missing content:\n%s", text.String())
	}

	var dotOut strings.Builder
	if err := report.WriteDOT(&dotOut); err != nil {
		t.Fatalf("dot rendering failed: %v", err)
	}
	if !strings.Contains(dotOut.String(), "digraph PDG") || !strings.Contains(dotOut.String(), "label") {
		t.Errorf("dot report missing content:\n%s", dotOut.String())
	}
}
