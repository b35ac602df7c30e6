// Package taxonomy holds the reference tables that drive fact linking:
// care categories, support types, medical specialties, personnel roles,
// and facility kinds, each with its keyword set.
//
// Tables are slice-backed so iteration order is fixed. Scoring ties are
// broken by table order, never by map iteration.
package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity levels for care categories.
const (
	SeveritySevere   = "SEVERE"
	SeverityHigh     = "HIGH"
	SeverityModerate = "MODERATE"
)

// Category is one care category: a keyword set with a severity weight.
type Category struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Severity    string   `yaml:"severity" json:"severity"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Details     []string `yaml:"details,omitempty" json:"details,omitempty"`
}

// Support is one support type. Same shape as Category, no severity.
type Support struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Details     []string `yaml:"details,omitempty" json:"details,omitempty"`
}

// Specialty maps a medical specialty label to its keyword set.
type Specialty struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// PersonnelType maps a role label (Doctor, Nurse, ...) to role keywords.
type PersonnelType struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// FacilityType maps a facility kind (Hospital, School, ...) to keywords.
type FacilityType struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Taxonomy is the full, ordered rule set. It is an explicit value passed
// to the extractor and the store; nothing here is package-level mutable
// state.
type Taxonomy struct {
	Categories     []Category
	Supports       []Support
	Specialties    []Specialty
	PersonnelTypes []PersonnelType
	FacilityTypes  []FacilityType
}

// CategoryByName returns the category with the given name, if present.
func (t *Taxonomy) CategoryByName(name string) (*Category, bool) {
	for i := range t.Categories {
		if t.Categories[i].Name == name {
			return &t.Categories[i], true
		}
	}
	return nil, false
}

// SupportByName returns the support entry with the given name, if present.
func (t *Taxonomy) SupportByName(name string) (*Support, bool) {
	for i := range t.Supports {
		if t.Supports[i].Name == name {
			return &t.Supports[i], true
		}
	}
	return nil, false
}

// WithCategoryOverrides returns a copy of the taxonomy with the given
// categories layered on top of the built-in table. An override with a
// known name replaces that entry in place (keeping table order); an
// override with a new name is appended.
func (t *Taxonomy) WithCategoryOverrides(overrides []Category) *Taxonomy {
	if len(overrides) == 0 {
		return t
	}

	out := *t
	out.Categories = make([]Category, len(t.Categories))
	copy(out.Categories, t.Categories)

	for _, ov := range overrides {
		replaced := false
		for i := range out.Categories {
			if out.Categories[i].Name == ov.Name {
				out.Categories[i] = ov
				replaced = true
				break
			}
		}
		if !replaced {
			out.Categories = append(out.Categories, ov)
		}
	}
	return &out
}

// categoryOverrideFile is the YAML schema for user-edited categories.
type categoryOverrideFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadCategoryOverrides reads user-edited categories from a YAML file.
// A missing file is not an error; it means no overrides.
func LoadCategoryOverrides(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading override file: %w", err)
	}

	var f categoryOverrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing override file: %w", err)
	}

	for i := range f.Categories {
		if strings.TrimSpace(f.Categories[i].Name) == "" {
			return nil, fmt.Errorf("override %d: category name is required", i)
		}
	}
	return f.Categories, nil
}
