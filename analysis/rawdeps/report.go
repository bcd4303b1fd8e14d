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

package rawdeps

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/ssa"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// Report aggregates the RAW edges of an analysis run, with per-kind counters.
type Report struct {
	Edges []Edge

	NumRawStore int
	NumRawCall  int
	NumRawArg   int
}

// NewReport builds a report from edges, sorted by source position for deterministic output.
func NewReport(edges []Edge) *Report {
	r := &Report{Edges: slices.Clone(edges)}
	sort.SliceStable(r.Edges, func(i, j int) bool {
		ei, ej := r.Edges[i], r.Edges[j]
		if ei.Load.Pos() != ej.Load.Pos() {
			return ei.Load.Pos() < ej.Load.Pos()
		}
		return ei.Writer.Pos() < ej.Writer.Pos()
	})
	for _, e := range r.Edges {
		switch e.Kind {
		case SourceStore:
			r.NumRawStore++
		case SourceCall:
			r.NumRawCall++
		default:
			r.NumRawArg++
		}
	}
	return r
}

// nodeLabel renders a printable name for a load or writer node, qualified with its function.
func nodeLabel(node ssa.Node) string {
	switch n := node.(type) {
	case *ssa.Global:
		return n.String()
	case *ssa.Parameter:
		return fnName(n.Parent()) + "." + n.Name()
	case ssa.Value:
		return fnName(n.Parent()) + "." + n.Name() + " = " + n.String()
	case ssa.Instruction:
		return fnName(n.Parent()) + ": " + n.String()
	default:
		return node.String()
	}
}

func fnName(f *ssa.Function) string {
	if f == nil {
		return "?"
	}
	return f.Name()
}

// WriteText writes the report in the plain line format "(load -> source) ? constraint".
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "[RAW deps]:\n")
	for _, e := range r.Edges {
		fmt.Fprintf(w, " (%s -> %s) ? %s\n", nodeLabel(e.Load), nodeLabel(e.Writer), e.Cond)
	}
	fmt.Fprintf(w, "RAW load-store: %d, load-call: %d, load-arg: %d\n",
		r.NumRawStore, r.NumRawCall, r.NumRawArg)
}

// pdgNode is a node of the rendered dependence graph. The printable name goes through a label
// attribute so the encoder never has to quote identifiers.
type pdgNode struct {
	id    int64
	label string
}

func (n pdgNode) ID() int64 { return n.id }

// Attributes implements encoding.Attributer for dot rendering.
func (n pdgNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: strconv.Quote(n.label)}}
}

// pdgEdge is a writer -> load edge labelled with its constraint.
type pdgEdge struct {
	from, to pdgNode
	label    string
}

func (e pdgEdge) From() graph.Node         { return e.from }
func (e pdgEdge) To() graph.Node           { return e.to }
func (e pdgEdge) ReversedEdge() graph.Edge { return pdgEdge{from: e.to, to: e.from, label: e.label} }

// Attributes implements encoding.Attributer for dot rendering.
func (e pdgEdge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: strconv.Quote(e.label)}}
}

// WriteDOT writes the report as a graphviz digraph with writer -> load edges.
func (r *Report) WriteDOT(w io.Writer) error {
	g := simple.NewDirectedGraph()
	ids := map[ssa.Node]pdgNode{}
	next := int64(0)
	nodeOf := func(n ssa.Node) pdgNode {
		if existing, ok := ids[n]; ok {
			return existing
		}
		node := pdgNode{id: next, label: nodeLabel(n)}
		next++
		ids[n] = node
		g.AddNode(node)
		return node
	}

	for _, e := range r.Edges {
		from := nodeOf(e.Writer)
		to := nodeOf(e.Load)
		if from.id == to.id {
			continue
		}
		g.SetEdge(pdgEdge{from: from, to: to, label: e.Cond.String()})
	}

	out, err := dot.Marshal(g, "PDG", "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
