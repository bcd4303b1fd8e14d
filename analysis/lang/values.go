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

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// IsPointerType reports whether the type is a pointer type.
func IsPointerType(t types.Type) bool {
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}

// PtrNestLevel returns the pointer nesting level of the type: 0 for non-pointers, 1 for *T with
// non-pointer T, and so on.
func PtrNestLevel(t types.Type) int {
	level := 0
	for {
		p, ok := t.Underlying().(*types.Pointer)
		if !ok {
			return level
		}
		level++
		t = p.Elem()
	}
}

// PointeeType returns the element type of a pointer type, or nil for non-pointers.
func PointeeType(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return nil
}

// IsGlobal reports whether the value is a global variable.
func IsGlobal(v ssa.Value) bool {
	_, ok := v.(*ssa.Global)
	return ok
}

// IsArgument reports whether the value is a function parameter.
func IsArgument(v ssa.Value) bool {
	_, ok := v.(*ssa.Parameter)
	return ok
}

// ReferencedGlobals returns the globals appearing as operands of the function's instructions, in
// first-use order.
func ReferencedGlobals(function *ssa.Function) []*ssa.Global {
	var globals []*ssa.Global
	seen := map[*ssa.Global]bool{}
	IterateInstructions(function, func(_ int, instruction ssa.Instruction) {
		var operands []*ssa.Value
		operands = instruction.Operands(operands)
		for _, operand := range operands {
			if g, ok := (*operand).(*ssa.Global); ok && !seen[g] {
				seen[g] = true
				globals = append(globals, g)
			}
		}
	})
	return globals
}

// ValueName returns a compact printable name for a value, qualified with its parent function for
// instruction-defined registers.
func ValueName(v ssa.Value) string {
	switch v.(type) {
	case *ssa.Global, *ssa.Function, *ssa.Const:
		return v.String()
	}
	if f := v.Parent(); f != nil {
		return f.Name() + "." + v.Name()
	}
	return v.Name()
}
