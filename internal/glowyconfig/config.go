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

// Package glowyconfig loads the optional YAML policy file that declares the
// universe of known tags and default sink ceilings, and provides the
// level-gated logging the analyzer and CLI share.
package glowyconfig

import (
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/ist199211-ist199311/glowy-langsec/internal/label"
)

// Config is the optional `-policy` file contents: the universe of tags in
// scope, a default sink ceiling, the log level and a color override. The
// CLI and the analyzer core read only LogLevel; Tags, DefaultSinkLabel and
// Color are parsed and exposed for tooling built on top of this package.
// The analyzer's ⊤ is its own lattice element (rendered "<top>") and is not
// derived from Tags, and a sink written `{}` is always checked against ⊥.
type Config struct {
	// Tags is the declared universe of tags in scope. TagUniverse falls back
	// to a caller-supplied list of observed tags when this is empty.
	Tags []string `yaml:"tags"`

	// DefaultSinkLabel is a ceiling that tooling may assume for a sink
	// annotation that declares no tags beyond `{}`. Empty means ⊥.
	DefaultSinkLabel []string `yaml:"default-sink-label"`

	// LogLevel is an integer 1-5 (Err..Trace).
	LogLevel int `yaml:"log-level"`

	// Color is a requested ANSI color on/off override; nil means
	// "auto-detect via term.IsTerminal" (internal/render's default). The CLI
	// does not pass it to the renderer; only its -no-color flag does.
	Color *bool `yaml:"color"`
}

// Default returns a Config with no declared tag universe and Info-level
// logging, used when no `-policy` file is given.
func Default() *Config {
	return &Config{LogLevel: int(InfoLevel)}
}

// Load reads and parses a YAML policy file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TagUniverse returns the configured tag universe, falling back to observed
// when the policy file declares none.
func (c *Config) TagUniverse(observed []label.Tag) []label.Tag {
	if c == nil || len(c.Tags) == 0 {
		return observed
	}
	out := make([]label.Tag, len(c.Tags))
	for i, t := range c.Tags {
		out[i] = label.Tag(t)
	}
	slices.Sort(out)
	return out
}
