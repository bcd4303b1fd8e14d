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

// Package refactor rewrites analyzed sources. The annotation pass writes copies of the source
// files with a comment above every statement whose loads carry RAW dependences, naming the
// writers that may supply the loaded values.
package refactor

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"sort"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/mhlab/condep/analysis/rawdeps"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/packages"
)

// AnnotateSources writes annotated copies of the files of pkgs that contain RAW loads into
// outDir, one file per input file, flat. Files without annotations are skipped.
func AnnotateSources(pkgs []*packages.Package, report *rawdeps.Report, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("could not create annotation directory: %w", err)
	}

	// Group the edge texts by file and load position.
	type fileKey struct {
		file *token.File
		pkg  *packages.Package
	}
	notes := map[fileKey]map[token.Pos][]string{}
	for _, pkg := range pkgs {
		for _, e := range report.Edges {
			pos := e.Load.Pos()
			if !pos.IsValid() {
				continue
			}
			f := pkg.Fset.File(pos)
			if f == nil || !fileOfPackage(pkg, f.Name()) {
				continue
			}
			key := fileKey{f, pkg}
			if notes[key] == nil {
				notes[key] = map[token.Pos][]string{}
			}
			notes[key][pos] = append(notes[key][pos],
				fmt.Sprintf("%s ? %s", writerText(e), e.Cond))
		}
	}

	for key, perPos := range notes {
		if err := annotateFile(key.pkg, key.file, perPos, outDir); err != nil {
			return err
		}
	}
	return nil
}

func fileOfPackage(pkg *packages.Package, filename string) bool {
	for _, f := range pkg.CompiledGoFiles {
		if f == filename {
			return true
		}
	}
	return false
}

func writerText(e rawdeps.Edge) string {
	return fmt.Sprintf("%s %s", e.Kind, e.Writer)
}

// annotateFile decorates one ast file, attaches the annotation comments to the statements
// enclosing the load positions, and writes the result to outDir.
func annotateFile(pkg *packages.Package, f *token.File, perPos map[token.Pos][]string, outDir string) error {
	var astFile *ast.File
	for _, syn := range pkg.Syntax {
		if pkg.Fset.File(syn.Pos()) == f {
			astFile = syn
			break
		}
	}
	if astFile == nil {
		return nil
	}

	dec := decorator.NewDecorator(pkg.Fset)
	dstFile, err := dec.DecorateFile(astFile)
	if err != nil {
		return fmt.Errorf("could not decorate %s: %w", f.Name(), err)
	}

	positions := make([]token.Pos, 0, len(perPos))
	for pos := range perPos {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	for _, pos := range positions {
		stmt := enclosingStmt(astFile, pos)
		if stmt == nil {
			continue
		}
		dstNode := dec.Dst.Nodes[stmt]
		if dstNode == nil {
			continue
		}
		texts := dedupe(perPos[pos])
		sort.Strings(texts)
		decs := dstNode.Decorations()
		for _, text := range texts {
			decs.Start.Append("// condep: reads " + text)
		}
		if decs.Before == dst.None {
			decs.Before = dst.NewLine
		}
	}

	outPath := filepath.Join(outDir, filepath.Base(f.Name()))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", outPath, err)
	}
	defer out.Close()

	restorer := decorator.NewRestorer()
	if err := restorer.Fprint(out, dstFile); err != nil {
		return fmt.Errorf("could not write %s: %w", outPath, err)
	}
	return nil
}

// enclosingStmt returns the innermost statement enclosing pos.
func enclosingStmt(file *ast.File, pos token.Pos) ast.Stmt {
	path, _ := astutil.PathEnclosingInterval(file, pos, pos)
	for _, node := range path {
		if stmt, ok := node.(ast.Stmt); ok {
			return stmt
		}
	}
	return nil
}

// a statement may collect several identical notes through different cells; dedupe keeps the
// comment block short.
func dedupe(texts []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range texts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
