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

// Package config implements the configuration of the analyses. A config file is a yaml file mapping
// directly onto the Config struct; every option can also be set programmatically by the drivers.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config holds the options of the pointer and dependence analyses.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// Private fields are not populated from a yaml file, but computed after initialization.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp
}

// Options groups the user-settable knobs of the analysis.
type Options struct {
	// LogLevel controls the verbosity of the analysis
	LogLevel int `yaml:"log-level"`

	// PkgFilter restricts summary construction to the functions whose package matches the filter
	PkgFilter string `yaml:"pkg-filter"`

	// PointsToDetail enables the tracking of scalar (non-pointer) values as opaque program values
	PointsToDetail bool `yaml:"pointsto-detail"`

	// PresentationDot switches the dependence report from plain text to graphviz dot
	PresentationDot bool `yaml:"presentation-dot"`

	// MaxSolverInputs bounds the number of input variables the shipped constraint backend will
	// enumerate models for. Queries over larger input vectors degrade to conservative answers.
	MaxSolverInputs int `yaml:"max-solver-inputs"`

	// AnnotateDir, when non-empty, is the directory where annotated copies of the analyzed
	// sources are written
	AnnotateDir string `yaml:"annotate-dir"`

	// ReportsDir is the directory where reports are stored when report options are set
	ReportsDir string `yaml:"reports-dir"`
}

// NewDefault returns a config with sensible defaults and no filters set.
func NewDefault() *Config {
	return &Config{
		Options: Options{
			LogLevel:        int(InfoLevel),
			MaxSolverInputs: 12,
		},
	}
}

// Load reads a Config from the yaml file at filename.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %q: %w", filename, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %q: %w", filename, err)
	}
	cfg.sourceFile = filename
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// compile precomputes the private fields of the config.
func (c *Config) compile() error {
	if c.PkgFilter != "" {
		r, err := regexp.Compile(c.PkgFilter)
		if err != nil {
			return fmt.Errorf("pkg-filter is not a valid regex: %w", err)
		}
		c.pkgFilterRegex = r
	}
	if c.MaxSolverInputs <= 0 {
		c.MaxSolverInputs = 12
	}
	return nil
}

// SourceFile returns the file the config was loaded from, if any.
func (c *Config) SourceFile() string {
	return c.sourceFile
}

// MatchPkgFilter returns true when pkgname matches the package filter of the config. An empty
// filter matches everything. A filter set or changed after loading is compiled on first use; if
// it is not a valid regex, only the identical package path matches.
func (c *Config) MatchPkgFilter(pkgname string) bool {
	if c.PkgFilter == "" {
		return true
	}
	if c.pkgFilterRegex == nil || c.pkgFilterRegex.String() != c.PkgFilter {
		r, err := regexp.Compile(c.PkgFilter)
		if err != nil {
			return pkgname == c.PkgFilter
		}
		c.pkgFilterRegex = r
	}
	return c.pkgFilterRegex.MatchString(pkgname)
}
