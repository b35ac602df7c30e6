package extract

import "regexp"

// Role-prefixed name patterns. Each captures a capitalized 1-3 word name
// following a role keyword.
var (
	doctorPattern = regexp.MustCompile(
		`(?:Dr\.?|Doctor|Prof\.?|Professor|Mr\.?|Mrs\.?|Ms\.?|Miss|Consultant|Specialist|Surgeon|Physician)\s+` +
			`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?(?:\s+[A-Z][a-z]+)?)`)
	nursePattern = regexp.MustCompile(
		`(?:Nurse|Sister|Matron|RN|Staff Nurse|Nursing)\s+` +
			`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?(?:\s+[A-Z][a-z]+)?)`)
	therapistPattern = regexp.MustCompile(
		`(?:Therapist|Physiotherapist|Physio|OT|Occupational Therapist|Speech|SALT|SLT|Psychologist)\s+` +
			`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?(?:\s+[A-Z][a-z]+)?)`)
)

// Facility patterns. hospitalPattern captures a capitalized phrase
// ending in a facility keyword ("Alder Hey Hospital"); departmentPattern
// captures the phrase after a department-style label ("Ward: 4B").
var (
	hospitalPattern = regexp.MustCompile(
		`((?:[A-Z][A-Za-z'&-]*\s+)+` +
			`(?:Hospital|Medical Centre|Medical Center|Health Centre|Health Center|Clinic|Infirmary|NHS Trust|Foundation Trust))`)
	departmentPattern = regexp.MustCompile(
		`(?:Department|Dept|Ward|Unit|Service|Team)(?:[:\s]+)([A-Z0-9][A-Za-z0-9\s'&-]*)`)
)

// Typed clinical-event patterns, applied in this order. Each captures
// everything up to the next sentence terminator. Matching is
// case-sensitive: the labels appear capitalized in real notes, and a
// case-insensitive "treatment" would fire on nearly every sentence.
var typedPatterns = []struct {
	eventType string
	pattern   *regexp.Regexp
}{
	{EventAppointment, regexp.MustCompile(
		`(?:Appointment|Visit|Consultation|Follow-up|Review|Assessment|Evaluation|Examination|Check-up|Checkup)` +
			`(?:\s+with|\s+at|\s+on|\s+for)?(?:[:\s]+)([^.]+)`)},
	{EventMedication, regexp.MustCompile(
		`(?:Medication|Prescribed|Taking|Drug|Therapy|Treatment|Dose|Dosage)(?:[:\s]+)([^.]+)`)},
	{EventProcedure, regexp.MustCompile(
		`(?:Procedure|Surgery|Operation|Intervention|Treatment)(?:[:\s]+)([^.]+)`)},
	{EventDiagnosis, regexp.MustCompile(
		`(?:Diagnosis|Diagnosed with|Assessment|Condition|Problem|Issue|Concern)(?:[:\s]+)([^.]+)`)},
	{EventSymptom, regexp.MustCompile(
		`(?:Symptom|Presenting with|Complaining of|Reporting|Experiencing)(?:[:\s]+)([^.]+)`)},
	{EventResult, regexp.MustCompile(
		`(?:Result|Finding|Outcome|Report|Test|Investigation|Scan|X-ray|MRI|CT|Ultrasound)(?:[:\s]+)([^.]+)`)},
	{EventPlan, regexp.MustCompile(
		`(?:Plan|Recommendation|Advised|Suggested|Proposed|Next steps|Follow-up|Review)(?:[:\s]+)([^.]+)`)},
}

// Patient identifier patterns. Each identifier kind keeps only its first
// match.
var (
	nhsNumberPattern = regexp.MustCompile(
		`(?:NHS Number|NHS No|NHS #|National Health Service|NHS)(?:[:\s]+)([0-9][0-9\s]{9,11})`)
	hospitalNumberPattern = regexp.MustCompile(
		`(?:Hospital Number|Hospital No|Hospital #|Patient Number|Patient ID|MRN|Medical Record Number)(?:[:\s]+)([A-Z0-9][A-Z0-9\s]{4,11})`)
	alderHeyNumberPattern = regexp.MustCompile(
		`(?:Alder Hey Number|Alder Hey ID|Alder Hey)(?:[:\s]+)([A-Z0-9][A-Z0-9\s]{4,11})`)
)

// sentenceSplit breaks text for the General fallback scan.
var sentenceSplit = regexp.MustCompile(`[.!?]`)

// genericClinicalKeywords drive the General fallback: a sentence
// mentioning any of these is kept when no typed pattern fires.
var genericClinicalKeywords = []string{
	"diagnosis", "diagnosed", "surgery", "operation", "procedure",
	"admitted", "admission", "discharged", "discharge", "emergency",
	"treatment", "therapy", "medication", "prescribed", "test results",
	"scan", "mri", "ct", "x-ray", "ultrasound", "blood test",
	"appointment", "consultation", "follow-up", "review", "referral",
	"assessment", "evaluation", "examination", "check-up", "checkup",
	"symptoms", "pain", "discomfort", "difficulty", "problem",
	"improvement", "deterioration", "change", "progress", "regress",
	"complication", "side effect", "reaction", "response", "outcome",
}
