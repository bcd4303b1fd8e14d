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

import "golang.org/x/tools/go/ssa"

// RegFile holds the points-to maps of SSA registers, together with the register aliases
// introduced by pointer-preserving instructions. Aliases are an indexing rewrite, not a copy:
// the representative register holds the single points-to entry and lookups are transparently
// redirected through a union-find keyed on SSA values.
type RegFile struct {
	regs    map[ssa.Value]PointToMap
	aliases map[ssa.Value]ssa.Value
}

// NewRegFile returns an empty register file.
func NewRegFile() *RegFile {
	return &RegFile{
		regs:    map[ssa.Value]PointToMap{},
		aliases: map[ssa.Value]ssa.Value{},
	}
}

// TranslateAlias resolves a chain of register aliases back to the canonical register, with path
// compression.
func (rf *RegFile) TranslateAlias(v ssa.Value) ssa.Value {
	parent, ok := rf.aliases[v]
	if !ok {
		return v
	}
	root := rf.TranslateAlias(parent)
	rf.aliases[v] = root
	return root
}

// AssignAlias records that register v is an alias of target. No location is materialized for v.
func (rf *RegFile) AssignAlias(v, target ssa.Value) {
	root := rf.TranslateAlias(target)
	if root != v {
		rf.aliases[v] = root
	}
}

// Get returns the points-to map of the canonical register of v, or nil.
func (rf *RegFile) Get(v ssa.Value) PointToMap {
	return rf.regs[rf.TranslateAlias(v)]
}

// Set installs the points-to map of the canonical register of v.
func (rf *RegFile) Set(v ssa.Value, m PointToMap) {
	rf.regs[rf.TranslateAlias(v)] = m
}

// Registers returns the canonical registers with an entry in the file.
func (rf *RegFile) Registers() map[ssa.Value]PointToMap {
	return rf.regs
}
