package schema

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind distinguishes numeric pass-through features from encoded categoricals
type Kind string

const (
	KindContinuous  Kind = "continuous"
	KindCategorical Kind = "categorical"
)

// Category is one label -> code pair of a categorical encoding table
type Category struct {
	Label string `yaml:"label" json:"label"`
	Code  int    `yaml:"code" json:"code"`
}

// Entry declares a single feature of the model input
type Entry struct {
	Name        string     `yaml:"name" json:"name"`
	Label       string     `yaml:"label,omitempty" json:"label,omitempty"`
	Kind        Kind       `yaml:"kind" json:"kind"`
	Min         *float64   `yaml:"min,omitempty" json:"min,omitempty"`
	Max         *float64   `yaml:"max,omitempty" json:"max,omitempty"`
	NonNegative bool       `yaml:"non_negative,omitempty" json:"non_negative,omitempty"`
	Integer     bool       `yaml:"integer,omitempty" json:"integer,omitempty"`
	Aliases     []string   `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Categories  []Category `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// DisplayLabel falls back to the feature name when no label is declared
func (e Entry) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Name
}

// Labels returns the category labels in code-table order
func (e Entry) Labels() []string {
	labels := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		labels[i] = c.Label
	}
	return labels
}

// LowerBound returns the effective minimum, combining Min and NonNegative
func (e Entry) LowerBound() (float64, bool) {
	switch {
	case e.Min != nil && e.NonNegative:
		if *e.Min > 0 {
			return *e.Min, true
		}
		return 0, true
	case e.Min != nil:
		return *e.Min, true
	case e.NonNegative:
		return 0, true
	default:
		return 0, false
	}
}

// Schema is the ordered feature contract shared by the normalizer and the model.
// It is built once and must not be mutated afterwards.
type Schema struct {
	Version  string  `yaml:"version" json:"version"`
	Features []Entry `yaml:"features" json:"features"`

	index map[string]int
}

//go:embed loan_schema.yaml
var defaultSchemaYAML []byte

// Default returns the canonical eleven-field loan schema
func Default() *Schema {
	s, err := Parse(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded loan schema is invalid: %v", err))
	}
	return s
}

// Len returns the number of features
func (s *Schema) Len() int {
	return len(s.Features)
}

// Names returns the feature names in model order
func (s *Schema) Names() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Lookup resolves a feature name or alias to its entry and position
func (s *Schema) Lookup(key string) (Entry, int, bool) {
	pos, ok := s.index[normalizeKey(key)]
	if !ok {
		return Entry{}, -1, false
	}
	return s.Features[pos], pos, true
}

// Encode maps a categorical label to its trained code
func (s *Schema) Encode(field, label string) (int, error) {
	entry, _, ok := s.Lookup(field)
	if !ok {
		return 0, fmt.Errorf("unknown feature %q", field)
	}
	if entry.Kind != KindCategorical {
		return 0, fmt.Errorf("feature %q is not categorical", field)
	}
	for _, c := range entry.Categories {
		if c.Label == label {
			return c.Code, nil
		}
	}
	return 0, fmt.Errorf("feature %q has no category %q", field, label)
}

// Decode maps a trained code back to its categorical label
func (s *Schema) Decode(field string, code int) (string, error) {
	entry, _, ok := s.Lookup(field)
	if !ok {
		return "", fmt.Errorf("unknown feature %q", field)
	}
	if entry.Kind != KindCategorical {
		return "", fmt.Errorf("feature %q is not categorical", field)
	}
	for _, c := range entry.Categories {
		if c.Code == code {
			return c.Label, nil
		}
	}
	return "", fmt.Errorf("feature %q has no code %d", field, code)
}

// Fingerprint digests feature order, kinds and categorical codes.
// Two schemas with the same fingerprint feed a model identically.
func (s *Schema) Fingerprint() string {
	var b strings.Builder
	for _, f := range s.Features {
		b.WriteString(f.Name)
		b.WriteByte('|')
		b.WriteString(string(f.Kind))
		for _, c := range f.Categories {
			fmt.Fprintf(&b, "|%s=%d", c.Label, c.Code)
		}
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Validate checks the schema for internal consistency and builds the lookup index
func (s *Schema) Validate() error {
	if len(s.Features) == 0 {
		return fmt.Errorf("schema declares no features")
	}

	index := make(map[string]int, len(s.Features)*2)
	claim := func(key string, pos int) error {
		k := normalizeKey(key)
		if k == "" {
			return fmt.Errorf("feature %d: empty name or alias", pos)
		}
		if prev, ok := index[k]; ok {
			return fmt.Errorf("feature %q: name or alias %q already used by %q", s.Features[pos].Name, key, s.Features[prev].Name)
		}
		index[k] = pos
		return nil
	}

	for i, f := range s.Features {
		if err := claim(f.Name, i); err != nil {
			return err
		}
		for _, alias := range f.Aliases {
			if err := claim(alias, i); err != nil {
				return err
			}
		}

		switch f.Kind {
		case KindContinuous:
			if len(f.Categories) > 0 {
				return fmt.Errorf("feature %q: continuous feature declares categories", f.Name)
			}
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("feature %q: min %v exceeds max %v", f.Name, *f.Min, *f.Max)
			}
		case KindCategorical:
			if len(f.Categories) == 0 {
				return fmt.Errorf("feature %q: categorical feature has no categories", f.Name)
			}
			codes := map[int]bool{}
			labels := map[string]bool{}
			for _, c := range f.Categories {
				if strings.TrimSpace(c.Label) == "" {
					return fmt.Errorf("feature %q: empty category label", f.Name)
				}
				if codes[c.Code] {
					return fmt.Errorf("feature %q: duplicate code %d", f.Name, c.Code)
				}
				folded := FoldLabel(c.Label)
				if labels[folded] {
					return fmt.Errorf("feature %q: duplicate label %q", f.Name, c.Label)
				}
				codes[c.Code] = true
				labels[folded] = true
			}
		default:
			return fmt.Errorf("feature %q: unknown kind %q", f.Name, f.Kind)
		}
	}

	s.index = index
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
