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

package analysis

import (
	"sort"
	"strings"

	"github.com/mhlab/condep/analysis/config"
	"github.com/mhlab/condep/analysis/pointsto"
	"github.com/mhlab/condep/analysis/rawdeps"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// DependenceResult is the outcome of a whole-program dependence analysis.
type DependenceResult struct {
	// Env holds the converged function summaries.
	Env *pointsto.SummaryEnvironment

	// Report is the aggregated RAW dependence report.
	Report *rawdeps.Report
}

// RunDependenceAnalysis analyzes every source function of the program matching the package
// filter of the config, then extracts the RAW dependences of each converged summary.
func RunDependenceAnalysis(program LoadedProgram, cfg *config.Config, log *config.LogGroup) (DependenceResult, error) {
	env := pointsto.NewSummaryEnvironment(program.Program, cfg, log)

	functions := selectFunctions(program, cfg)
	log.Infof("analyzing %d functions", len(functions))

	var edges []rawdeps.Edge
	for _, fn := range functions {
		summary := env.AnalyzeFunction(fn)
		if !summary.Converged || summary.Context() == nil {
			log.Warnf("%s: summary did not converge, skipping dependence extraction", fn)
			continue
		}
		if log.Level >= config.TraceLevel {
			var sb strings.Builder
			pointsto.WriteSummary(&sb, summary)
			log.Tracef("%s", sb.String())
		}
		edges = append(edges, rawdeps.ComputeFunction(summary.Context())...)
	}

	return DependenceResult{Env: env, Report: rawdeps.NewReport(edges)}, nil
}

// selectFunctions returns the functions with a body whose package matches the filter, in a
// deterministic order. Without a filter, only the functions of the initial packages are
// selected, so a bare invocation does not crawl the whole dependency tree.
func selectFunctions(program LoadedProgram, cfg *config.Config) []*ssa.Function {
	initial := map[*ssa.Package]bool{}
	for _, pkg := range program.Packages {
		initial[pkg] = true
	}

	var out []*ssa.Function
	for fn := range ssautil.AllFunctions(program.Program) {
		if len(fn.Blocks) == 0 {
			continue
		}
		pkg := fn.Package()
		if pkg == nil {
			continue
		}
		if cfg.PkgFilter == "" {
			if !initial[pkg] {
				continue
			}
		} else if !cfg.MatchPkgFilter(pkg.Pkg.Path()) {
			continue
		}
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
