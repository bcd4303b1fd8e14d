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

// condep: constraint-qualified pointer analysis and read-after-write dependences for Go
// programs. For every load in the analyzed packages, condep reports the stores, calls and
// function inputs that may supply its value, under which input-aliasing hypothesis.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mhlab/condep/analysis"
	"github.com/mhlab/condep/analysis/config"
	"github.com/mhlab/condep/analysis/refactor"
	"github.com/mhlab/condep/internal/formatutil"
	"golang.org/x/tools/go/ssa"
)

var (
	configPath  = flag.String("config", "", "config file path")
	pkgFilter   = flag.String("filter", "", "regex filter on analyzed package paths")
	dotOutput   = flag.Bool("dot", false, "emit the dependence report as a graphviz digraph")
	detail      = flag.Bool("detail", false, "track scalar values as opaque program values")
	annotateDir = flag.String("annotate", "", "write annotated source copies into this directory")
	verbosity   = flag.Int("v", int(config.InfoLevel), "log level (1=error .. 5=trace)")
	buildmode   = ssa.BuilderMode(0)
)

func init() {
	flag.Var(&buildmode, "build", ssa.BuilderModeDoc)
}

const usage = ` Compute read-after-write dependences of your packages.
Usage:
    condep [options] <package path(s)>
Examples:
% condep -dot ./...
% condep -config config.yaml package...
`

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.NewDefault()
	if *configPath != "" {
		config.SetGlobalConfig(*configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load config %s: %v\n", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	// Flags override the config file.
	if *pkgFilter != "" {
		cfg.PkgFilter = *pkgFilter
	}
	if *detail {
		cfg.PointsToDetail = true
	}
	if *dotOutput {
		cfg.PresentationDot = true
	}
	if *annotateDir != "" {
		cfg.AnnotateDir = *annotateDir
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			cfg.LogLevel = *verbosity
		}
	})

	logger := config.NewLogGroup(cfg)
	logger.Infof(formatutil.Faint("Reading sources"))

	program, err := analysis.LoadProgram(nil, "", buildmode, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load program: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	result, err := analysis.RunDependenceAnalysis(program, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Analysis took %3.4f s", time.Since(start).Seconds())

	if cfg.PresentationDot {
		if err := result.Report.WriteDOT(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "could not render report: %v\n", err)
			os.Exit(1)
		}
	} else {
		result.Report.WriteText(os.Stdout)
	}

	if cfg.AnnotateDir != "" {
		if err := refactor.AnnotateSources(program.InitialPackages, result.Report, cfg.AnnotateDir); err != nil {
			fmt.Fprintf(os.Stderr, "annotation failed: %v\n", err)
			os.Exit(1)
		}
		logger.Infof("%s", formatutil.Green("annotated sources written to "+cfg.AnnotateDir))
	}
}
