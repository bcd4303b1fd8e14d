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

// Package analysistest compiles test programs to their SSA form in-process, so analysis tests
// can run over small source snippets without touching the filesystem.
package analysistest

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuildSSA parses and type checks the single-file package in src and builds its SSA form. The
// test fails on any compilation error.
func BuildSSA(t *testing.T, src string) *ssa.Package {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "input.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("failed to parse test source: %v", err)
	}

	pkg := types.NewPackage(file.Name.Name, "")
	conf := &types.Config{Importer: importer.Default()}
	mode := ssa.SanityCheckFunctions | ssa.InstantiateGenerics
	ssaPkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{file}, mode)
	if err != nil {
		t.Fatalf("failed to build SSA: %v", err)
	}
	return ssaPkg
}

// Function returns the named function of the package, failing the test when it is missing.
func Function(t *testing.T, pkg *ssa.Package, name string) *ssa.Function {
	t.Helper()
	fn := pkg.Func(name)
	if fn == nil {
		t.Fatalf("no function %q in test package", name)
	}
	return fn
}
