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

// Package pointsto implements a flow-sensitive, context-sensitive pointer analysis whose
// points-to edges are qualified by constraints over input-aliasing hypotheses. The analysis
// computes one summary per function, parameterized by which inputs may alias; callers
// instantiate summaries at call sites instead of re-analyzing callees per context.
package pointsto

import (
	"fmt"

	"github.com/mhlab/condep/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// LocationTag discriminates the kinds of abstract locations.
type LocationTag uint8

const (
	// TagRegister names an SSA register; its contents live in the register file.
	TagRegister LocationTag = iota
	// TagStack names the stack slot introduced by a stack allocation site.
	TagStack
	// TagHeap names the heap cell introduced by a heap allocation site.
	TagHeap
	// TagRuntime names the k-th dereference of an input, memory that existed at function entry.
	TagRuntime
	// TagValue is an opaque tag used to track scalar values when points-to detail is enabled.
	TagValue
)

// Location is an immutable symbolic name for a memory region. Equality and hashing are
// structural, so locations are usable as map keys.
type Location struct {
	tag   LocationTag
	value ssa.Value
	deref int // dereference depth, only meaningful under TagRuntime
}

// RegisterLoc names the SSA register v.
func RegisterLoc(v ssa.Value) Location { return Location{tag: TagRegister, value: v} }

// StackLoc names the stack slot allocated at v.
func StackLoc(v ssa.Value) Location { return Location{tag: TagStack, value: v} }

// HeapLoc names the heap cell allocated at v.
func HeapLoc(v ssa.Value) Location { return Location{tag: TagHeap, value: v} }

// RuntimeLoc names the k-th dereference of the input value v.
func RuntimeLoc(v ssa.Value, k int) Location { return Location{tag: TagRuntime, value: v, deref: k} }

// ValueLoc names the opaque scalar value v.
func ValueLoc(v ssa.Value) Location { return Location{tag: TagValue, value: v} }

// Tag returns the location kind.
func (l Location) Tag() LocationTag { return l.tag }

// Value returns the SSA value the location is built from.
func (l Location) Value() ssa.Value { return l.value }

// Deref returns the dereference depth of a runtime-memory location.
func (l Location) Deref() int { return l.deref }

func (l Location) String() string {
	name := "?"
	if l.value != nil {
		name = lang.ValueName(l.value)
	}
	switch l.tag {
	case TagRegister:
		return name
	case TagStack:
		return fmt.Sprintf("stack(%s)", name)
	case TagHeap:
		return fmt.Sprintf("heap(%s)", name)
	case TagRuntime:
		return fmt.Sprintf("mem(%s@%d)", name, l.deref)
	default:
		return fmt.Sprintf("val(%s)", name)
	}
}
