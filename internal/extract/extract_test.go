package extract

import (
	"strings"
	"testing"

	"github.com/hurttlocker/chronicle/internal/patient"
	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(taxonomy.Default(), patient.Default())
}

func TestDetermineSpecialty(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"cardiology from title", "Cardiology Review", "Consultation at the clinic.", "Cardiology"},
		{"neurology keywords", "EEG results", "Seizure activity recorded on EEG, neurologist to review.", "Neurology"},
		{"orthopedics", "Surgery follow-up", "Osteotomy on the left knee, patella unstable.", "Orthopedics"},
		{"no match", "Shopping list", "Bananas and bread.", "Unknown"},
		{"empty", "", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.DetermineSpecialty(tt.title, tt.body)
			if got.Name != tt.want {
				t.Errorf("specialty = %q (%.1f), want %q", got.Name, got.Confidence, tt.want)
			}
			if got.Confidence < 0 || got.Confidence > 100 {
				t.Errorf("confidence %.1f out of range", got.Confidence)
			}
			if tt.want == "Unknown" && got.Confidence != 0 {
				t.Errorf("Unknown specialty should have confidence 0, got %.1f", got.Confidence)
			}
		})
	}
}

func TestDetermineSpecialtyDeterministic(t *testing.T) {
	e := newTestExtractor(t)

	first := e.DetermineSpecialty("Sleep study", "Apnoea overnight, oxygen saturation low.")
	for i := 0; i < 20; i++ {
		got := e.DetermineSpecialty("Sleep study", "Apnoea overnight, oxygen saturation low.")
		if got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestExtractPersonnel(t *testing.T) {
	e := newTestExtractor(t)

	text := "Seen by Dr. Jane Smith and Nurse Mary Jones. Dr Jane Smith will follow up."
	got := e.ExtractPersonnel(text)

	if len(got) != 2 {
		t.Fatalf("expected 2 personnel (deduplicated), got %d: %+v", len(got), got)
	}
	if got[0].Name != "Jane Smith" || got[0].Role != "Doctor" {
		t.Errorf("doctor entry = %+v", got[0])
	}
	if got[1].Name != "Mary Jones" || got[1].Role != "Nurse" {
		t.Errorf("nurse entry = %+v", got[1])
	}
}

func TestExtractPersonnelFamilyDenyList(t *testing.T) {
	e := newTestExtractor(t)

	got := e.ExtractPersonnel("Dr. Adam Vials Moore reviewed the chart")
	for _, p := range got {
		if strings.Contains(p.Name, "Adam") {
			t.Errorf("family member stored as personnel: %+v", p)
		}
	}
	if len(got) != 0 {
		t.Errorf("expected no personnel, got %+v", got)
	}
}

func TestExtractFacilities(t *testing.T) {
	e := newTestExtractor(t)

	got := e.ExtractFacilities("Transferred to Alder Hey Hospital. Ward: 4B for observation.")

	if len(got) != 2 {
		t.Fatalf("expected 2 facilities, got %d: %+v", len(got), got)
	}
	if got[0].Name != "Alder Hey Hospital" || got[0].Type != "Hospital" {
		t.Errorf("hospital entry = %+v", got[0])
	}
	if got[1].Name != "4B for observation" || got[1].Type != "Department" {
		t.Errorf("department entry = %+v", got[1])
	}
}

func TestExtractClinicalEventsTyped(t *testing.T) {
	e := newTestExtractor(t)

	text := "Diagnosis: mild arrhythmia. Plan: follow-up in 6 months. Medication: aspirin daily."
	got := e.ExtractClinicalEvents(text)

	want := map[string]string{
		EventDiagnosis:  "mild arrhythmia",
		EventPlan:       "follow-up in 6 months",
		EventMedication: "aspirin daily",
	}
	for typ, content := range want {
		found := false
		for _, ev := range got {
			if ev.Type == typ && ev.Content == content {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %s event %q in %+v", typ, content, got)
		}
	}
}

func TestExtractClinicalEventsFallbackChain(t *testing.T) {
	e := newTestExtractor(t)

	// No typed pattern, but "diagnosed" is a generic clinical keyword.
	got := e.ExtractClinicalEvents("She was diagnosed last week and is doing well")
	if len(got) == 0 {
		t.Fatal("expected at least one General event")
	}
	for _, ev := range got {
		if ev.Type != EventGeneral {
			t.Errorf("expected General events only, got %+v", ev)
		}
	}

	// Neither typed patterns nor generic keywords: exactly the sentinel.
	got = e.ExtractClinicalEvents("The weather was lovely and we had a picnic")
	if len(got) != 1 || got[0].Type != EventUnknown || got[0].Content != SentinelNoEvents {
		t.Errorf("expected sentinel, got %+v", got)
	}
}

func TestExtractIdentifiers(t *testing.T) {
	text := "NHS Number: 123 456 7890. Hospital Number: AH123456. Alder Hey ID: X99887"
	ids := ExtractIdentifiers(text)

	if ids["nhs_number"] != "1234567890" {
		t.Errorf("nhs_number = %q", ids["nhs_number"])
	}
	if ids["hospital_number"] != "AH123456" {
		t.Errorf("hospital_number = %q", ids["hospital_number"])
	}
	if ids["alder_hey_number"] != "X99887" {
		t.Errorf("alder_hey_number = %q", ids["alder_hey_number"])
	}

	if got := ExtractIdentifiers("nothing here"); len(got) != 0 {
		t.Errorf("expected no identifiers, got %v", got)
	}
}

func TestLinkCategories(t *testing.T) {
	e := newTestExtractor(t)

	events := []ClinicalEvent{
		{Type: EventDiagnosis, Content: "obstructive sleep apnoea, oxygen desaturation overnight"},
		{Type: EventPlan, Content: "repeat sleep study and review ventilation settings"},
	}
	links := e.LinkCategories(events)

	if len(links) == 0 {
		t.Fatal("expected category links")
	}
	if links[0].Category != "Respiratory" {
		t.Errorf("top link = %+v, want Respiratory", links[0])
	}
	if links[0].Severity != taxonomy.SeveritySevere {
		t.Errorf("severity = %q", links[0].Severity)
	}
	if len(links[0].MatchedKeywords) == 0 {
		t.Error("matched keywords missing")
	}

	// Dedup by category name across events.
	seen := map[string]int{}
	for _, l := range links {
		seen[l.Category]++
	}
	for name, n := range seen {
		if n > 1 {
			t.Errorf("category %q linked %d times", name, n)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dr. Jane Smith", "Jane Smith"},
		{"JANE   SMITH", "Jane Smith"},
		{"prof john  doe", "John Doe"},
		{"  Mrs  Ada Lovelace ", "Ada Lovelace"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractNeverErrorsOnGarbage(t *testing.T) {
	e := newTestExtractor(t)

	inputs := []struct{ title, body string }{
		{"", ""},
		{strings.Repeat("x", 10000), ""},
		{"\x00\x01", "\xff\xfe"},
		{"<b>html</b>", "unterminated (paren [bracket"},
	}
	for _, in := range inputs {
		facts := e.Extract(in.title, in.body)
		if facts.ClinicalEvents == nil {
			t.Errorf("Extract(%q, ...) returned nil clinical events", in.title)
		}
		if facts.Identifiers == nil {
			t.Errorf("Extract(%q, ...) returned nil identifiers", in.title)
		}
	}
}

func TestExtractEndToEndCardiology(t *testing.T) {
	e := newTestExtractor(t)

	title := "Cardiology Review"
	body := "Consultation with Dr. Jane Smith at Alder Hey Hospital. Diagnosis: mild arrhythmia. Plan: follow-up in 6 months."

	facts := e.Extract(title, body)

	if facts.Specialty.Name != "Cardiology" || facts.Specialty.Confidence <= 0 {
		t.Errorf("specialty = %+v", facts.Specialty)
	}

	foundDoctor := false
	for _, p := range facts.Personnel {
		if p.Name == "Jane Smith" && p.Role == "Doctor" {
			foundDoctor = true
		}
	}
	if !foundDoctor {
		t.Errorf("Jane Smith (Doctor) not extracted: %+v", facts.Personnel)
	}

	foundHospital := false
	for _, f := range facts.Facilities {
		if f.Name == "Alder Hey Hospital" {
			foundHospital = true
		}
	}
	if !foundHospital {
		t.Errorf("Alder Hey Hospital not extracted: %+v", facts.Facilities)
	}

	var haveDiagnosis, havePlan bool
	for _, ev := range facts.ClinicalEvents {
		if ev.Type == EventDiagnosis && ev.Content == "mild arrhythmia" {
			haveDiagnosis = true
		}
		if ev.Type == EventPlan && ev.Content == "follow-up in 6 months" {
			havePlan = true
		}
	}
	if !haveDiagnosis {
		t.Errorf("Diagnosis event missing: %+v", facts.ClinicalEvents)
	}
	if !havePlan {
		t.Errorf("Plan event missing: %+v", facts.ClinicalEvents)
	}
}
