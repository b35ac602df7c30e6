// Package patient holds the fixed patient profile: identity, birth date,
// family roster, and the identifiers collected from documents over time.
//
// The family roster doubles as a deny list for personnel extraction:
// relatives with academic titles must never be stored as clinicians.
package patient

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FamilyMember is one entry in the patient's family roster.
type FamilyMember struct {
	Name     string `yaml:"name"`
	Relation string `yaml:"relation"`
	Notes    string `yaml:"notes,omitempty"`
}

// Profile is the single patient record. Identifiers is the only part
// that changes after construction, and only additively.
type Profile struct {
	Name          string            `yaml:"name"`
	BirthDate     string            `yaml:"birth_date"` // YYYY-MM-DD
	BirthLocation string            `yaml:"birth_location"`
	Family        []FamilyMember    `yaml:"family"`
	DenyList      []string          `yaml:"deny_list"`
	Identifiers   map[string]string `yaml:"identifiers,omitempty"`
}

// Default returns the built-in profile.
func Default() *Profile {
	return &Profile{
		Name:          "Gwendolyn (Gwen) Vials Moore",
		BirthDate:     "2014-08-22",
		BirthLocation: "Liverpool Women's Hospital",
		Family: []FamilyMember{
			{Name: "Adam Vials Moore", Relation: "Father", Notes: "Has a doctorate but is NOT a medical practitioner"},
			{Name: "Cora Vials Moore", Relation: "Mother"},
			{Name: "Isaac Vials Moore", Relation: "Brother (older)"},
		},
		DenyList: []string{
			"Adam Vials Moore",
			"Adam Vials",
			"Adam Moore",
			"Cora Vials Moore",
			"Cora Vials",
			"Cora Moore",
			"Isaac Vials Moore",
			"Isaac Vials",
			"Isaac Moore",
		},
		Identifiers: map[string]string{},
	}
}

// Load reads a profile from a YAML file. A missing file falls back to
// the built-in profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if p.Identifiers == nil {
		p.Identifiers = map[string]string{}
	}
	if _, err := time.Parse("2006-01-02", p.BirthDate); err != nil {
		return nil, fmt.Errorf("invalid birth_date %q: %w", p.BirthDate, err)
	}
	return p, nil
}

// IsFamilyMember reports whether a name matches the family deny list.
// Matching is case-insensitive substring in either direction, so both
// "Dr. Adam Vials Moore" and "Adam Moore" are caught.
func (p *Profile) IsFamilyMember(name string) bool {
	lower := strings.ToLower(name)
	for _, entry := range p.DenyList {
		if strings.Contains(lower, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}

// MergeIdentifiers adds identifier kinds that are not yet set.
// An existing value is never overwritten by a later match.
func (p *Profile) MergeIdentifiers(ids map[string]string) {
	for kind, value := range ids {
		if _, exists := p.Identifiers[kind]; !exists {
			p.Identifiers[kind] = value
		}
	}
}

// AgeAt computes the patient's age on the given YYYY-MM-DD date and
// formats it for display ("10 years, 4 months old"). Returns "" when
// either date fails to parse.
func (p *Profile) AgeAt(date string) string {
	dob, err := time.Parse("2006-01-02", p.BirthDate)
	if err != nil {
		return ""
	}
	at, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	if at.Before(dob) {
		return ""
	}

	years := at.Year() - dob.Year()
	months := int(at.Month()) - int(dob.Month())
	days := at.Day() - dob.Day()

	if days < 0 {
		months--
		// Borrow the length of the month before `at`.
		prev := at.AddDate(0, 0, -at.Day())
		days += prev.Day()
	}
	if months < 0 {
		years--
		months += 12
	}

	if years == 0 {
		if months == 0 {
			return fmt.Sprintf("%d days old", days)
		}
		return fmt.Sprintf("%d months, %d days old", months, days)
	}
	return fmt.Sprintf("%d years, %d months old", years, months)
}
