// Copyright The glowy Authors.
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

package glowyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ist199211-ist199311/glowy-langsec/internal/label"
)

func TestDefaultConfigIsInfoLevel(t *testing.T) {
	cfg := Default()
	if cfg.LogLevel != int(InfoLevel) {
		t.Errorf("Default().LogLevel = %d, want %d", cfg.LogLevel, InfoLevel)
	}
}

func TestTagUniverseFallsBackToObserved(t *testing.T) {
	cfg := Default()
	observed := []label.Tag{"secret", "public"}
	got := cfg.TagUniverse(observed)
	if len(got) != len(observed) {
		t.Fatalf("TagUniverse() = %v, want %v", got, observed)
	}
}

func TestTagUniversePrefersDeclaredAndSorts(t *testing.T) {
	cfg := &Config{Tags: []string{"zeta", "alpha"}}
	got := cfg.TagUniverse(nil)
	want := []label.Tag{"alpha", "zeta"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("TagUniverse() = %v, want %v", got, want)
	}
}

func TestLoadParsesYAMLPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := "tags: [secret, public]\nlog-level: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}
	if cfg.LogLevel != int(DebugLevel) {
		t.Errorf("LogLevel = %d, want %d", cfg.LogLevel, DebugLevel)
	}
	if len(cfg.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", cfg.Tags)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() on a missing file should return an error")
	}
}

func TestLogGroupGatesByLevel(t *testing.T) {
	g := NewLogGroup(&Config{LogLevel: int(WarnLevel)})
	if g.level != WarnLevel {
		t.Fatalf("level = %v, want %v", g.level, WarnLevel)
	}
	g.SetLevel(DebugLevel)
	if g.level != DebugLevel {
		t.Errorf("SetLevel did not take effect: level = %v", g.level)
	}
}
