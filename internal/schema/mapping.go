package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/loadfile/internal/core"
)

// Mapping assigns roles to the columns of a delimited load file.
//
//	key: BEGBATES
//	parent: PARENT_BATES
//	children: ATTACH_BATES
//	representatives:
//	  - column: NATIVE_PATH
//	    type: native
//	  - column: TEXT_PATH
//	    type: text
type Mapping struct {
	HasHeader       *bool                   `yaml:"has_header,omitempty"`
	Key             string                  `yaml:"key"`
	Parent          string                  `yaml:"parent,omitempty"`
	Children        string                  `yaml:"children,omitempty"`
	ChildSeparator  string                  `yaml:"child_separator,omitempty"`
	PathSeparator   string                  `yaml:"path_separator,omitempty"`
	BaseDir         string                  `yaml:"base_dir,omitempty"`
	Representatives []RepresentativeMapping `yaml:"representatives,omitempty"`
}

// RepresentativeMapping ties a column to a representative type name.
type RepresentativeMapping struct {
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
}

// LoadMappingFile reads and validates a mapping file.
func LoadMappingFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}
	m, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseMapping parses YAML data into a Mapping and validates it.
func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that a key column is named and every representative entry
// is complete.
func (m *Mapping) Validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return &core.ConfigurationError{Field: "key", Message: "is required"}
	}
	for i, rm := range m.Representatives {
		if strings.TrimSpace(rm.Column) == "" {
			return &core.ConfigurationError{Field: fmt.Sprintf("representatives[%d].column", i), Message: "is required"}
		}
		if _, err := core.ParseRepresentativeType(rm.Type); err != nil {
			return fmt.Errorf("representatives[%d]: %w", i, err)
		}
	}
	return nil
}

// Apply copies the mapping onto opts. Settings the mapping leaves empty keep
// the values already in opts.
func (m *Mapping) Apply(opts *core.BuildOptions) error {
	if m.HasHeader != nil {
		opts.HasHeader = *m.HasHeader
	}
	opts.KeyColumn = m.Key
	if m.Parent != "" {
		opts.ParentColumn = m.Parent
	}
	if m.Children != "" {
		opts.ChildColumn = m.Children
	}
	if m.ChildSeparator != "" {
		opts.ChildSeparator = m.ChildSeparator
	}
	if m.PathSeparator != "" {
		opts.PathSeparator = m.PathSeparator
	}
	if m.BaseDir != "" {
		opts.BaseDir = m.BaseDir
	}

	if len(m.Representatives) == 0 {
		return nil
	}
	reps := make([]core.RepresentativeColumn, 0, len(m.Representatives))
	for _, rm := range m.Representatives {
		typ, err := core.ParseRepresentativeType(rm.Type)
		if err != nil {
			return err
		}
		reps = append(reps, core.RepresentativeColumn{Column: rm.Column, Type: typ})
	}
	opts.Representatives = reps
	return nil
}

// ParseRepresentativeSpecs reads COLUMN=TYPE pairs as given in the
// environment, e.g. "NATIVE_PATH=native".
func ParseRepresentativeSpecs(specs []string) ([]core.RepresentativeColumn, error) {
	cols := make([]core.RepresentativeColumn, 0, len(specs))
	for _, spec := range specs {
		col, typName, ok := strings.Cut(spec, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, &core.ConfigurationError{Field: "representative", Value: spec, Message: "must be COLUMN=TYPE"}
		}
		typ, err := core.ParseRepresentativeType(typName)
		if err != nil {
			return nil, err
		}
		cols = append(cols, core.RepresentativeColumn{Column: col, Type: typ})
	}
	return cols, nil
}
