// Package journey derives the diagnostic journey from a chronological
// event list: the subsequence of events that first introduce a
// specialty or a diagnosis.
package journey

import (
	"strings"

	"github.com/hurttlocker/chronicle/internal/extract"
	"github.com/hurttlocker/chronicle/internal/patient"
	"github.com/hurttlocker/chronicle/internal/store"
)

// Entry is one step of the diagnostic journey.
type Entry struct {
	EventID          string   `json:"event_id"`
	Date             string   `json:"date"`
	Title            string   `json:"title"`
	Specialty        string   `json:"specialty"`
	Age              string   `json:"age,omitempty"`
	IsNewSpecialty   bool     `json:"is_new_specialty"`
	IsNewDiagnosis   bool     `json:"is_new_diagnosis"`
	Diagnoses        []string `json:"diagnoses,omitempty"`
	SpecialtiesSoFar []string `json:"specialties_so_far"`
}

// Derive walks events in the given order (callers pass the
// chronological list the store produces) and emits an entry for each
// event that introduces a new non-Unknown specialty or a new
// diagnosis. The running sets update on every event, included or not,
// so the first occurrence always wins even when the introducing event
// itself is excluded for other reasons.
func Derive(events []*store.Event, profile *patient.Profile) []Entry {
	specialtiesSeen := make(map[string]bool)
	diagnosesSeen := make(map[string]bool)
	var specialtyOrder []string

	var journey []Entry
	for _, ev := range events {
		newSpecialty := ev.Specialty != "" && ev.Specialty != "Unknown" && !specialtiesSeen[ev.Specialty]

		// Diagnoses lists every diagnosis of the event; only unseen
		// ones qualify the event for inclusion.
		var diagnoses []string
		anyNew := false
		for _, ce := range ev.ClinicalEvents {
			if ce.Type != extract.EventDiagnosis {
				continue
			}
			text := strings.TrimSpace(ce.Content)
			if text == "" {
				continue
			}
			diagnoses = append(diagnoses, text)
			if !diagnosesSeen[text] {
				anyNew = true
			}
		}

		if newSpecialty || anyNew {
			entry := Entry{
				EventID:        ev.ID,
				Date:           ev.Date,
				Title:          ev.Title,
				Specialty:      ev.Specialty,
				IsNewSpecialty: newSpecialty,
				IsNewDiagnosis: anyNew,
				Diagnoses:      diagnoses,
			}
			if profile != nil {
				entry.Age = profile.AgeAt(ev.Date)
			}
			if newSpecialty {
				entry.SpecialtiesSoFar = append(append([]string{}, specialtyOrder...), ev.Specialty)
			} else {
				entry.SpecialtiesSoFar = append([]string{}, specialtyOrder...)
			}
			journey = append(journey, entry)
		}

		// Sets update unconditionally, entry or not.
		if newSpecialty {
			specialtiesSeen[ev.Specialty] = true
			specialtyOrder = append(specialtyOrder, ev.Specialty)
		}
		for _, d := range diagnoses {
			diagnosesSeen[d] = true
		}
	}
	return journey
}
