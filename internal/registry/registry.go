// Package registry models and persists the raw-source registry: the durable
// YAML configuration listing every raw table known to the pipeline, keyed by
// source name, plus the generated staging artifacts that reference it.
//
// The registry round-trips without loss: fields this version of the engine
// does not understand are carried through an update cycle unchanged, in
// their original order, so an older engine can safely rewrite a registry
// that newer tooling has annotated.
package registry

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one registered raw source. Name is the unique key; the rest
// identifies where the loaded table lives and where its CSV comes from.
type Source struct {
	Name      string
	ProjectID string
	DatasetID string
	TableID   string
	CSVPath   string

	// extra preserves unrecognized fields from the persisted record, in
	// order, so they survive an update cycle.
	extra []extraField
}

type extraField struct {
	key   *yaml.Node
	value *yaml.Node
}

// Known registry record keys, in canonical output order.
const (
	keyName      = "name"
	keyProjectID = "project_id"
	keyDatasetID = "dataset_id"
	keyTableID   = "table_id"
	keyCSVPath   = "csv_path"
)

// UnmarshalYAML decodes a registry record, keeping unknown fields aside.
func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("registry: source entry must be a mapping, got %s", nodeKind(node))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		switch k.Value {
		case keyName:
			s.Name = v.Value
		case keyProjectID:
			s.ProjectID = v.Value
		case keyDatasetID:
			s.DatasetID = v.Value
		case keyTableID:
			s.TableID = v.Value
		case keyCSVPath:
			s.CSVPath = v.Value
		default:
			s.extra = append(s.extra, extraField{key: k, value: v})
		}
	}
	return nil
}

// MarshalYAML encodes the record with known fields first, in canonical
// order, followed by any preserved unknown fields in their original order.
func (s Source) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key, val string) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val},
		)
	}
	add(keyName, s.Name)
	add(keyProjectID, s.ProjectID)
	add(keyDatasetID, s.DatasetID)
	add(keyTableID, s.TableID)
	add(keyCSVPath, s.CSVPath)
	for _, e := range s.extra {
		node.Content = append(node.Content, e.key, e.value)
	}
	return node, nil
}

// File is the full registry: an ordered sequence of sources, persisted as a
// whole YAML document.
type File struct {
	RawSources []*Source `yaml:"raw_sources"`
}

// Find returns the entry with the given name, or nil.
func (f *File) Find(name string) *Source {
	for _, s := range f.RawSources {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Upsert installs src into the registry. A new name is appended at the end;
// an existing name is replaced in place, keeping its position and carrying
// over any preserved unknown fields from the old record. It reports whether
// a new entry was created.
func (f *File) Upsert(src *Source) bool {
	for i, old := range f.RawSources {
		if old.Name == src.Name {
			src.extra = old.extra
			f.RawSources[i] = src
			return false
		}
	}
	f.RawSources = append(f.RawSources, src)
	return true
}

// Load reads the registry file at path. A missing file yields an empty
// registry rather than an error: first integration bootstraps the file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, &IOError{Op: "read registry", Path: path, Err: err}
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &IOError{Op: "parse registry", Path: path, Err: err}
	}
	return &f, nil
}

// Encode renders the registry in its canonical on-disk form: two-space
// indent, records in registry order. Encoding a freshly loaded canonical
// file reproduces it byte for byte.
func (f *File) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("registry: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("registry: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
