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

// Package lang provides helpers to work with the SSA representation of a program: instruction
// classification, iteration and block-level reachability.
package lang

import (
	"go/token"

	"golang.org/x/tools/go/ssa"
)

// IterateInstructions applies f to every instruction of the function, in block then instruction
// order. The index passed to f is the index of the block.
func IterateInstructions(function *ssa.Function, f func(index int, instruction ssa.Instruction)) {
	for _, block := range function.Blocks {
		for _, instruction := range block.Instrs {
			f(block.Index, instruction)
		}
	}
}

// IterateValues applies f to every value defined by an instruction of the function, and to every
// parameter and free variable.
func IterateValues(function *ssa.Function, f func(index int, value ssa.Value)) {
	for _, param := range function.Params {
		f(0, param)
	}
	for _, fv := range function.FreeVars {
		f(0, fv)
	}
	IterateInstructions(function, func(index int, instruction ssa.Instruction) {
		if v, ok := instruction.(ssa.Value); ok {
			f(index, v)
		}
	})
}

// IsLoad reports whether the instruction is a load, i.e. a pointer dereference.
func IsLoad(instruction ssa.Instruction) (*ssa.UnOp, bool) {
	load, ok := instruction.(*ssa.UnOp)
	if ok && load.Op == token.MUL {
		return load, true
	}
	return nil, false
}

// IsMallocCall reports whether the instruction allocates a fresh heap cell: a heap Alloc or one
// of the make-family instructions. The granularity of the analysis is per allocation site, so
// slices, maps and channels are single cells.
func IsMallocCall(instruction ssa.Instruction) bool {
	switch a := instruction.(type) {
	case *ssa.Alloc:
		return a.Heap
	case *ssa.MakeSlice, *ssa.MakeMap, *ssa.MakeChan:
		return true
	}
	return false
}

// AliasedOperand returns the pointer operand the instruction forwards unchanged, when the
// instruction preserves pointer identity (field or index address computation, slicing, pointer
// conversions). The returned value is the operand to record as the register alias of the
// instruction.
func AliasedOperand(instruction ssa.Instruction) (ssa.Value, bool) {
	switch v := instruction.(type) {
	case *ssa.FieldAddr:
		return v.X, true
	case *ssa.IndexAddr:
		return v.X, true
	case *ssa.Slice:
		return v.X, true
	case *ssa.ChangeType:
		if IsPointerType(v.X.Type()) {
			return v.X, true
		}
	case *ssa.Convert:
		if IsPointerType(v.X.Type()) && IsPointerType(v.Type()) {
			return v.X, true
		}
	case *ssa.MakeInterface:
		if IsPointerType(v.X.Type()) {
			return v.X, true
		}
	}
	return nil, false
}

// CalledFunction returns the statically resolved callee of a call instruction, or nil for
// indirect and builtin calls.
func CalledFunction(call ssa.CallInstruction) *ssa.Function {
	return call.Common().StaticCallee()
}

// IsExternal reports whether the function has no body available for analysis.
func IsExternal(function *ssa.Function) bool {
	return function == nil || len(function.Blocks) == 0
}

// ReturnInstruction returns the terminating return of the function, or nil. When the function has
// several return blocks, the last one in block order is returned, which matches the layout the
// SSA builder produces for functions with a single logical exit.
func ReturnInstruction(function *ssa.Function) *ssa.Return {
	var ret *ssa.Return
	for _, block := range function.Blocks {
		if n := len(block.Instrs); n > 0 {
			if r, ok := block.Instrs[n-1].(*ssa.Return); ok {
				ret = r
			}
		}
	}
	return ret
}
