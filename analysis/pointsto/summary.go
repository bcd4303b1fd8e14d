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
	"github.com/mhlab/condep/analysis/config"
	"github.com/mhlab/condep/analysis/lang"
	"github.com/mhlab/condep/internal/graphutil"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/ssa"
)

// FunctionSummary is the fixed point of the abstract interpretation of one function,
// parameterized by input-alias hypotheses. The inputs are the parameters followed by the
// referenced globals; the store is the final abstract store with the register file folded in.
type FunctionSummary struct {
	// Fn is the summarized function.
	Fn *ssa.Function

	// Inputs are the parameters of Fn followed by its referenced globals.
	Inputs []ssa.Value

	// Globals are the globals referenced by Fn, directly or through its callees.
	Globals []*ssa.Global

	// CalledFunctions are the statically resolved callees of Fn that have a body.
	CalledFunctions []*ssa.Function

	// Store is the converged abstract store.
	Store Store

	// ReturnPts is the points-to map of the returned value, if any.
	ReturnPts PointToMap

	// Written maps the non-register cells the function may write, directly or through its
	// callees, to the constraint under which they are written. Callers substitute this map at
	// call sites to treat the call as a generalized store.
	Written PointToMap

	// Return is the terminating return instruction of Fn, or nil.
	Return *ssa.Return

	// Converged is true once the store is stable under re-analysis.
	Converged bool

	ctx *AnalysisContext
}

// Context returns the analysis context of the last pass over the function. Only meaningful once
// the summary has converged; the dependence extraction consumes it.
func (s *FunctionSummary) Context() *AnalysisContext {
	return s.ctx
}

// SummaryEnvironment owns the function summaries of a program. Summaries are created lazily on
// first reference and mutated only while their function is on the analysis stack.
type SummaryEnvironment struct {
	prog      *ssa.Program
	cfg       *config.Config
	log       *config.LogGroup
	summaries map[*ssa.Function]*FunctionSummary
	noRecurse map[*ssa.Function]bool
	globals   map[*ssa.Function][]*ssa.Global
}

// NewSummaryEnvironment builds the environment for a program. The call graph is resolved with
// class hierarchy analysis, from which the recursion classification of the driver is derived.
func NewSummaryEnvironment(prog *ssa.Program, cfg *config.Config, log *config.LogGroup) *SummaryEnvironment {
	cg := graphutil.NewCGraph(cha.CallGraph(prog))
	return &SummaryEnvironment{
		prog:      prog,
		cfg:       cfg,
		log:       log,
		summaries: map[*ssa.Function]*FunctionSummary{},
		noRecurse: graphutil.NonRecursiveFunctions(cg),
		globals:   map[*ssa.Function][]*ssa.Global{},
	}
}

// Config returns the configuration of the environment.
func (env *SummaryEnvironment) Config() *config.Config { return env.cfg }

// Logger returns the log group of the environment.
func (env *SummaryEnvironment) Logger() *config.LogGroup { return env.log }

// DoesNotRecurse reports whether fn is not part of any call cycle. Unknown functions are
// conservatively considered potentially recursive.
func (env *SummaryEnvironment) DoesNotRecurse(fn *ssa.Function) bool {
	return env.noRecurse[fn]
}

// Summaries returns the summaries created so far.
func (env *SummaryEnvironment) Summaries() map[*ssa.Function]*FunctionSummary {
	return env.summaries
}

// LookupSummary returns the summary of fn, creating an unconverged skeleton on first reference.
func (env *SummaryEnvironment) LookupSummary(fn *ssa.Function) *FunctionSummary {
	if s, ok := env.summaries[fn]; ok {
		return s
	}
	globals := env.transitiveGlobals(fn)
	inputs := make([]ssa.Value, 0, len(fn.Params)+len(globals))
	for _, p := range fn.Params {
		inputs = append(inputs, p)
	}
	for _, g := range globals {
		inputs = append(inputs, g)
	}
	s := &FunctionSummary{
		Fn:              fn,
		Inputs:          inputs,
		Globals:         globals,
		CalledFunctions: calledFunctions(fn),
		Return:          lang.ReturnInstruction(fn),
	}
	env.summaries[fn] = s
	return s
}

// transitiveGlobals collects the globals referenced by fn or any function reachable from it
// through statically resolved calls, so that a callee-global substitution at a call site always
// finds a caller-side input. The union over the reachable set is insensitive to call cycles.
func (env *SummaryEnvironment) transitiveGlobals(fn *ssa.Function) []*ssa.Global {
	if cached, ok := env.globals[fn]; ok {
		return cached
	}
	seenFn := map[*ssa.Function]bool{fn: true}
	stack := []*ssa.Function{fn}
	seen := map[*ssa.Global]bool{}
	var out []*ssa.Global
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, g := range lang.ReferencedGlobals(cur) {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
		for _, callee := range calledFunctions(cur) {
			if !seenFn[callee] {
				seenFn[callee] = true
				stack = append(stack, callee)
			}
		}
	}
	env.globals[fn] = out
	return out
}

func calledFunctions(fn *ssa.Function) []*ssa.Function {
	seen := map[*ssa.Function]bool{}
	var out []*ssa.Function
	lang.IterateInstructions(fn, func(_ int, instruction ssa.Instruction) {
		call, ok := instruction.(ssa.CallInstruction)
		if !ok {
			return
		}
		callee := lang.CalledFunction(call)
		if lang.IsExternal(callee) || seen[callee] {
			return
		}
		seen[callee] = true
		out = append(out, callee)
	})
	return out
}
