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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log-level: 4
pkg-filter: "^example.com/app"
pointsto-detail: true
presentation-dot: true
max-solver-inputs: 8
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("could not load config: %v", err)
	}
	want := Options{
		LogLevel:        int(DebugLevel),
		PkgFilter:       "^example.com/app",
		PointsToDetail:  true,
		PresentationDot: true,
		MaxSolverInputs: 8,
	}
	if diff := cmp.Diff(want, cfg.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if !cfg.MatchPkgFilter("example.com/app/internal/db") {
		t.Errorf("filter should match a package under the prefix")
	}
	if cfg.MatchPkgFilter("other.org/lib") {
		t.Errorf("filter should not match unrelated packages")
	}
	if cfg.SourceFile() != path {
		t.Errorf("source file not recorded")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("loading a missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pkg-filter: '['"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("an invalid filter regex should fail to compile")
	}
}

func TestDefaults(t *testing.T) {
	cfg := NewDefault()
	if cfg.LogLevel != int(InfoLevel) {
		t.Errorf("default log level should be info")
	}
	if cfg.MaxSolverInputs <= 0 {
		t.Errorf("default solver input cap should be positive")
	}
	if !cfg.MatchPkgFilter("anything") {
		t.Errorf("empty filter should match everything")
	}
}
