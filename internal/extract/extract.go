// Package extract turns raw note text into structured medical facts:
// a specialty classification, personnel and facility mentions, typed
// clinical events, patient identifiers, and scored links into the care
// taxonomy.
//
// Extraction is deliberately heuristic pattern matching, not NLP. It
// never returns an error: malformed or empty input yields empty lists
// and sentinels, and the same input always yields the same output.
package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

// Clinical event types produced by the typed patterns, in the order the
// patterns are applied.
const (
	EventAppointment = "Appointment"
	EventMedication  = "Medication"
	EventProcedure   = "Procedure"
	EventDiagnosis   = "Diagnosis"
	EventSymptom     = "Symptom"
	EventResult      = "Result"
	EventPlan        = "Plan"
	EventGeneral     = "General"
	EventUnknown     = "Unknown"
)

// SentinelNoEvents is the content of the single Unknown event emitted
// when nothing at all could be extracted. Callers must treat it as "no
// information", not as a real clinical event.
const SentinelNoEvents = "No specific events extracted"

// SpecialtyResult is a specialty label with its confidence score (0-100).
type SpecialtyResult struct {
	Name       string  `json:"specialty"`
	Confidence float64 `json:"confidence"`
}

// PersonnelRef is one extracted clinician mention.
type PersonnelRef struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Specialty string `json:"specialty"`
}

// FacilityRef is one extracted facility mention.
type FacilityRef struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Specialty string `json:"specialty"`
}

// ClinicalEvent is one typed occurrence captured from the text.
type ClinicalEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// CategoryLink is a scored association between extracted events and one
// care category.
type CategoryLink struct {
	Category        string   `json:"category"`
	Severity        string   `json:"severity"`
	Description     string   `json:"description"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// SupportLink is the support-taxonomy counterpart of CategoryLink.
type SupportLink struct {
	Support         string   `json:"support"`
	Description     string   `json:"description"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// MedicalFacts is everything extracted from one (title, body) pair.
type MedicalFacts struct {
	Specialty      SpecialtyResult   `json:"specialty"`
	Personnel      []PersonnelRef    `json:"personnel"`
	Facilities     []FacilityRef     `json:"facilities"`
	ClinicalEvents []ClinicalEvent   `json:"clinical_events"`
	Identifiers    map[string]string `json:"identifiers"`
	CategoryLinks  []CategoryLink    `json:"category_links"`
	SupportLinks   []SupportLink     `json:"support_links"`
}

// DenyList filters out names that must never be stored as personnel
// (family members with academic titles).
type DenyList interface {
	IsFamilyMember(name string) bool
}

// Extractor applies the taxonomy's rule set to note text. Construct
// with NewExtractor; the zero value is not usable.
type Extractor struct {
	tax  *taxonomy.Taxonomy
	deny DenyList
}

// NewExtractor builds an Extractor over an explicit taxonomy value.
// deny may be nil, in which case no names are filtered.
func NewExtractor(tax *taxonomy.Taxonomy, deny DenyList) *Extractor {
	return &Extractor{tax: tax, deny: deny}
}

// Extract runs the full pipeline over one note. Specialty, personnel,
// facilities, and identifiers are drawn from title and body combined;
// clinical events from the body alone.
func (e *Extractor) Extract(title, body string) MedicalFacts {
	combined := title + " " + body

	events := e.ExtractClinicalEvents(body)

	return MedicalFacts{
		Specialty:      e.DetermineSpecialty(title, body),
		Personnel:      e.ExtractPersonnel(combined),
		Facilities:     e.ExtractFacilities(combined),
		ClinicalEvents: events,
		Identifiers:    ExtractIdentifiers(combined),
		CategoryLinks:  e.LinkCategories(events),
		SupportLinks:   e.LinkSupports(events),
	}
}

// DetermineSpecialty scores every specialty's keyword set against the
// lowercased title+body by substring occurrence:
//
//	confidence = min(100, matches/len(keywords) * 200)
//
// The highest-confidence specialty wins; ties go to the earlier table
// entry. No match at all yields {"Unknown", 0}.
func (e *Extractor) DetermineSpecialty(title, body string) SpecialtyResult {
	combined := strings.ToLower(title + " " + body)
	if strings.TrimSpace(combined) == "" {
		return SpecialtyResult{Name: "Unknown", Confidence: 0}
	}

	best := SpecialtyResult{Name: "Unknown", Confidence: 0}
	for _, sp := range e.tax.Specialties {
		matches := 0
		for _, kw := range sp.Keywords {
			if strings.Contains(combined, strings.ToLower(kw)) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := round1(math.Min(100, float64(matches)/float64(len(sp.Keywords))*200))
		if confidence > best.Confidence {
			best = SpecialtyResult{Name: sp.Name, Confidence: confidence}
		}
	}
	return best
}

// ExtractPersonnel finds clinician mentions via the three role-prefixed
// name patterns, normalizes and deduplicates the names, and drops any
// that match the family deny list.
func (e *Extractor) ExtractPersonnel(text string) []PersonnelRef {
	var out []PersonnelRef
	seen := map[string]bool{}

	families := []struct {
		pattern *regexp.Regexp
		context string
	}{
		{doctorPattern, "doctor"},
		{nursePattern, "nurse"},
		{therapistPattern, "therapist"},
	}

	for _, f := range families {
		for _, m := range f.pattern.FindAllStringSubmatch(text, -1) {
			name := NormalizeName(m[1])
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if e.deny != nil && e.deny.IsFamilyMember(name) {
				continue
			}
			role, specialty := e.categorizePersonnel(name, f.context)
			out = append(out, PersonnelRef{Name: name, Role: role, Specialty: specialty})
		}
	}
	return out
}

// categorizePersonnel assigns a role and a specialty by keyword-matching
// name+context against the taxonomy. Both use first-keyword-match in
// table order, not confidence ranking; this asymmetry with
// DetermineSpecialty is long-standing extraction behavior and changing
// it would reclassify existing archives.
func (e *Extractor) categorizePersonnel(name, context string) (role, specialty string) {
	combined := strings.ToLower(name + " " + context)

	role = "Unknown"
	for _, pt := range e.tax.PersonnelTypes {
		for _, kw := range pt.Keywords {
			if strings.Contains(combined, kw) {
				role = pt.Name
				break
			}
		}
		if role != "Unknown" {
			break
		}
	}

	specialty = firstCategoryMatch(e.tax, combined)
	return role, specialty
}

// ExtractFacilities finds facility mentions: capitalized phrases ending
// in a facility keyword ("Alder Hey Hospital") plus labeled department
// phrases ("Ward: 4B").
func (e *Extractor) ExtractFacilities(text string) []FacilityRef {
	var out []FacilityRef

	for _, m := range hospitalPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		out = append(out, FacilityRef{
			Name:      name,
			Type:      e.categorizeFacility(name),
			Specialty: firstCategoryMatch(e.tax, strings.ToLower(name)),
		})
	}

	for _, m := range departmentPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		out = append(out, FacilityRef{
			Name:      name,
			Type:      "Department",
			Specialty: firstCategoryMatch(e.tax, strings.ToLower(name)),
		})
	}
	return out
}

// categorizeFacility picks the facility type by first keyword match in
// table order.
func (e *Extractor) categorizeFacility(name string) string {
	lower := strings.ToLower(name)
	for _, ft := range e.tax.FacilityTypes {
		for _, kw := range ft.Keywords {
			if strings.Contains(lower, kw) {
				return ft.Name
			}
		}
	}
	return "Unknown"
}

// ExtractClinicalEvents applies the seven typed patterns in fixed order.
// If none match it falls back to keeping sentences that contain a
// generic clinical keyword, tagged General. If that finds nothing
// either, it emits the single sentinel Unknown event.
func (e *Extractor) ExtractClinicalEvents(text string) []ClinicalEvent {
	if strings.TrimSpace(text) == "" {
		return []ClinicalEvent{{Type: EventUnknown, Content: SentinelNoEvents}}
	}

	var events []ClinicalEvent
	for _, tp := range typedPatterns {
		for _, m := range tp.pattern.FindAllStringSubmatch(text, -1) {
			content := strings.TrimSpace(m[1])
			if content == "" {
				continue
			}
			events = append(events, ClinicalEvent{Type: tp.eventType, Content: content})
		}
	}
	if len(events) > 0 {
		return events
	}

	for _, sentence := range sentenceSplit.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, kw := range genericClinicalKeywords {
			if strings.Contains(lower, kw) {
				events = append(events, ClinicalEvent{Type: EventGeneral, Content: sentence})
				break
			}
		}
	}
	if len(events) > 0 {
		return events
	}

	return []ClinicalEvent{{Type: EventUnknown, Content: SentinelNoEvents}}
}

// ExtractIdentifiers pulls patient identifiers out of free text. Each
// identifier kind keeps only its first match.
func ExtractIdentifiers(text string) map[string]string {
	ids := map[string]string{}

	if m := nhsNumberPattern.FindStringSubmatch(text); m != nil {
		ids["nhs_number"] = strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
	}
	if m := hospitalNumberPattern.FindStringSubmatch(text); m != nil {
		ids["hospital_number"] = strings.TrimSpace(m[1])
	}
	if m := alderHeyNumberPattern.FindStringSubmatch(text); m != nil {
		ids["alder_hey_number"] = strings.TrimSpace(m[1])
	}
	return ids
}

// LinkCategories scores every clinical event's content against the care
// categories. Per event the matches are ordered by confidence (ties keep
// table order); across events they are deduplicated by category name,
// first occurrence wins.
func (e *Extractor) LinkCategories(events []ClinicalEvent) []CategoryLink {
	var out []CategoryLink
	seen := map[string]bool{}

	for _, ev := range events {
		for _, link := range e.scoreCategories(ev.Content) {
			if seen[link.Category] {
				continue
			}
			seen[link.Category] = true
			out = append(out, link)
		}
	}
	return out
}

func (e *Extractor) scoreCategories(text string) []CategoryLink {
	lower := strings.ToLower(text)
	var links []CategoryLink

	for _, cat := range e.tax.Categories {
		var matched []string
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		links = append(links, CategoryLink{
			Category:        cat.Name,
			Severity:        cat.Severity,
			Description:     cat.Description,
			Confidence:      round1(math.Min(100, float64(len(matched))/float64(len(cat.Keywords))*200)),
			MatchedKeywords: matched,
		})
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Confidence > links[j].Confidence })
	return links
}

// LinkSupports is LinkCategories against the support taxonomy.
func (e *Extractor) LinkSupports(events []ClinicalEvent) []SupportLink {
	var out []SupportLink
	seen := map[string]bool{}

	for _, ev := range events {
		for _, link := range e.scoreSupports(ev.Content) {
			if seen[link.Support] {
				continue
			}
			seen[link.Support] = true
			out = append(out, link)
		}
	}
	return out
}

func (e *Extractor) scoreSupports(text string) []SupportLink {
	lower := strings.ToLower(text)
	var links []SupportLink

	for _, sup := range e.tax.Supports {
		var matched []string
		for _, kw := range sup.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		links = append(links, SupportLink{
			Support:         sup.Name,
			Description:     sup.Description,
			Confidence:      round1(math.Min(100, float64(len(matched))/float64(len(sup.Keywords))*200)),
			MatchedKeywords: matched,
		})
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Confidence > links[j].Confidence })
	return links
}

// firstCategoryMatch returns the first care category (table order) with
// a keyword appearing in the lowercased text, or "Unknown".
func firstCategoryMatch(tax *taxonomy.Taxonomy, lower string) string {
	for _, cat := range tax.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return cat.Name
			}
		}
	}
	return "Unknown"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
