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

package pointsto_test

import (
	"strings"
	"testing"

	"github.com/mhlab/condep/analysis/config"
	"github.com/mhlab/condep/analysis/constraints"
	"github.com/mhlab/condep/analysis/pointsto"
	"github.com/mhlab/condep/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

func analyzeSource(t *testing.T, src, fnName string) (*pointsto.SummaryEnvironment, *pointsto.FunctionSummary) {
	t.Helper()
	pkg := analysistest.BuildSSA(t, src)
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	env := pointsto.NewSummaryEnvironment(pkg.Prog, cfg, config.NewLogGroup(cfg))
	summary := env.AnalyzeFunction(analysistest.Function(t, pkg, fnName))
	if !summary.Converged {
		t.Fatalf("summary of %s did not converge", fnName)
	}
	return env, summary
}

func TestEntryAliasingChains(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func f(p *int, q *int) int {
	*p = 1
	return *q
}
`, "f")

	ctx := summary.Context()
	var p, q ssa.Value = summary.Fn.Params[0], summary.Fn.Params[1]

	ptsP := ctx.PointsTo(p)
	if len(ptsP) != 1 {
		t.Fatalf("p should point to its own cell only, got %d targets", len(ptsP))
	}
	if _, ok := ptsP[pointsto.RuntimeLoc(p, 0)]; !ok {
		t.Errorf("p should point to mem(p@0)")
	}

	ptsQ := ctx.PointsTo(q)
	if len(ptsQ) != 2 {
		t.Fatalf("q should point to its own cell and p's under aliasing, got %d targets", len(ptsQ))
	}
	aliased, ok := ptsQ[pointsto.RuntimeLoc(p, 0)]
	if !ok {
		t.Fatalf("q should conditionally point to mem(p@0)")
	}
	if got := aliased.String(); got != "x0 = x1" {
		t.Errorf("alias edge constraint: got %q, want %q", got, "x0 = x1")
	}
}

func TestNestedPointerChain(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func f(pp **int) int {
	return **pp
}
`, "f")

	ctx := summary.Context()
	pp := summary.Fn.Params[0]

	// reg(pp) -> mem(pp@0) -> mem(pp@1)
	if _, ok := ctx.PointsTo(pp)[pointsto.RuntimeLoc(pp, 0)]; !ok {
		t.Fatalf("pp should point to mem(pp@0)")
	}
	level0 := summary.Store[pointsto.RuntimeLoc(pp, 0)]
	if _, ok := level0[pointsto.RuntimeLoc(pp, 1)]; !ok {
		t.Errorf("mem(pp@0) should point to mem(pp@1)")
	}
}

func TestStoreInvariants(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func f(p *int, q *int, r **int) int {
	*r = p
	*p = 1
	return *q
}
`, "f")

	solver := summary.Context().Solver()
	for loc, ptMap := range summary.Store {
		for target, cond := range ptMap {
			if !solver.Sat(cond) {
				t.Errorf("edge %s -> %s has unsatisfiable constraint %s", loc, target, cond)
			}
			// must implies may on every surviving edge
			mayOnly := constraints.NewExpr(cond.May(), cond.May())
			if !solver.Implies(cond, mayOnly) {
				t.Errorf("edge %s -> %s: must does not imply may in %s", loc, target, cond)
			}
		}
	}
}

func TestPointerStoreUpdatesCell(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func f(r **int, p *int) {
	*r = p
}
`, "f")

	r := summary.Fn.Params[0]
	p := summary.Fn.Params[1]
	cell := summary.Store[pointsto.RuntimeLoc(r, 0)]
	if cell == nil {
		t.Fatalf("the cell of r should have contents after the store")
	}
	if _, ok := cell[pointsto.RuntimeLoc(p, 0)]; !ok {
		t.Errorf("mem(r@0) should point to mem(p@0) after *r = p")
	}
}

func TestRecursivePairConverges(t *testing.T) {
	env, summary := analyzeSource(t, `
package p

func r1(p *int, n int) {
	if n > 0 {
		r2(p, n-1)
	}
	*p = 1
}

func r2(p *int, n int) {
	r1(p, n)
}
`, "r1")

	if !summary.Converged {
		t.Errorf("r1 should converge")
	}
	for fn, s := range env.Summaries() {
		if !s.Converged {
			t.Errorf("summary of %s should converge", fn)
		}
	}
	// Both functions may write through their pointer input.
	if _, ok := summary.Written[pointsto.RuntimeLoc(summary.Fn.Params[0], 0)]; !ok {
		t.Errorf("r1 should record a write to mem(p@0)")
	}
}

func TestCalleeWriteVisibleToCaller(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func callee(p *int) {
	*p = 7
}

func caller(q *int) int {
	callee(q)
	return *q
}
`, "caller")

	ctx := summary.Context()
	q := summary.Fn.Params[0]

	if _, ok := summary.Written[pointsto.RuntimeLoc(q, 0)]; !ok {
		t.Errorf("caller should record the callee's write to mem(q@0)")
	}

	found := false
	for _, written := range ctx.UpdateHistory() {
		if _, ok := written[pointsto.RuntimeLoc(q, 0)]; ok {
			found = true
		}
	}
	if !found {
		t.Errorf("the call site should record mem(q@0) in the update history")
	}
}

func TestReanalysisIsIdempotent(t *testing.T) {
	src := `
package p

func f(p *int, q *int) *int {
	*p = 1
	if *q > 0 {
		return p
	}
	return q
}
`
	pkg := analysistest.BuildSSA(t, src)
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	fn := analysistest.Function(t, pkg, "f")

	env1 := pointsto.NewSummaryEnvironment(pkg.Prog, cfg, config.NewLogGroup(cfg))
	s1 := env1.AnalyzeFunction(fn)
	env2 := pointsto.NewSummaryEnvironment(pkg.Prog, cfg, config.NewLogGroup(cfg))
	s2 := env2.AnalyzeFunction(fn)

	if !pointsto.EqualStore(s1.Context().Solver(), s1.Store, s2.Store) {
		t.Errorf("re-running the analysis over a converged function should produce an equal store")
	}
}

func TestReturnPointsTo(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func f(p *int, q *int) *int {
	if *p > 0 {
		return p
	}
	return q
}
`, "f")

	if len(summary.ReturnPts) == 0 {
		t.Fatalf("the summary should carry the points-to set of the returned value")
	}
}

func TestWriteSummaryOutput(t *testing.T) {
	_, summary := analyzeSource(t, `
package p

func f(p *int) {
	*p = 1
}
`, "f")

	var sb strings.Builder
	pointsto.WriteSummary(&sb, summary)
	out := sb.String()
	if !strings.Contains(out, "mem(") {
		t.Errorf("summary rendering should mention runtime memory cells, got:\n%s", out)
	}
}
