package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// StaticSource serves a fixed, in-memory list of voices.
type StaticSource struct {
	name   string
	voices []voice.CatalogVoice
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource returns a [StaticSource] named name.
func NewStaticSource(name string, voices ...voice.CatalogVoice) *StaticSource {
	return &StaticSource{name: name, voices: slices.Clone(voices)}
}

// Name implements [Source].
func (s *StaticSource) Name() string { return s.name }

// ListVoices implements [Source].
func (s *StaticSource) ListVoices(context.Context) ([]voice.CatalogVoice, error) {
	return slices.Clone(s.voices), nil
}

// RosterFile is the top-level structure of a catalog YAML file.
//
// Example:
//
//	voices:
//	  - id: "rachel"
//	    name: "Rachel"
//	    gender: female
//	    accent: American
//	    age_group: young
//	    tags: [audiobook, narrator]
//	    tone: [calm, warm]
//	    quality_tier: high
//	    provider_ref: "21m00Tcm4TlvDq8ikWAM"
type RosterFile struct {
	Voices []voice.CatalogVoice `yaml:"voices"`
}

// LoadRoster parses a catalog YAML document from r.
func LoadRoster(r io.Reader) (*RosterFile, error) {
	var rf RosterFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("catalog: decode roster yaml: %w", err)
	}
	for i, v := range rf.Voices {
		if v.ID == "" {
			return nil, fmt.Errorf("catalog: roster voice %d: id is required", i)
		}
	}
	return &rf, nil
}

// YAMLSource reads voices from a roster file on disk each time it is listed.
type YAMLSource struct {
	path string
}

var _ Source = (*YAMLSource)(nil)

// NewYAMLSource returns a [YAMLSource] for the file at path.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

// Name implements [Source].
func (s *YAMLSource) Name() string { return "yaml:" + s.path }

// ListVoices implements [Source].
func (s *YAMLSource) ListVoices(context.Context) ([]voice.CatalogVoice, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open roster %q: %w", s.path, err)
	}
	defer f.Close()

	rf, err := LoadRoster(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse roster %q: %w", s.path, err)
	}
	return rf.Voices, nil
}

//go:embed builtin.yaml
var builtinRoster []byte

// BuiltinSource returns the roster compiled into the binary.
func BuiltinSource() Source {
	rf, err := LoadRoster(bytes.NewReader(builtinRoster))
	if err != nil {
		panic("catalog: invalid builtin roster: " + err.Error())
	}
	return NewStaticSource("builtin", rf.Voices...)
}
