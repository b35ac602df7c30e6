package taxonomy

// Default returns the built-in rule set. Callers that need user edits
// layer them on with WithCategoryOverrides; the built-ins themselves are
// never mutated.
func Default() *Taxonomy {
	return &Taxonomy{
		Categories:     defaultCategories(),
		Supports:       defaultSupports(),
		Specialties:    defaultSpecialties(),
		PersonnelTypes: defaultPersonnelTypes(),
		FacilityTypes:  defaultFacilityTypes(),
	}
}

func defaultCategories() []Category {
	return []Category{
		{
			Name:        "Respiratory",
			Description: "Severe, frequent, hard-to-predict apnoea not related to seizures",
			Severity:    SeveritySevere,
			Details: []string{
				"Central and obstructive sleep apnoea",
				"Ventilation and respiratory arrests",
				"Under specialist respiratory and sleep teams",
				"Requested sleep study due to deterioration",
			},
			Keywords: []string{
				"apnoea", "apnea", "sleep", "respiratory", "breathing", "ventilation", "oxygen",
				"airway", "breath", "lung", "pulmonary", "chest", "inhale", "exhale", "suffocate",
				"choke", "arrest", "cyanosis", "blue", "saturation", "sats", "desaturation", "cpap",
				"bipap", "sleep study", "polysomnography", "snore", "obstruction", "central", "hypoxia",
			},
		},
		{
			Name:        "Nutrition",
			Description: "Problems with intake of food and drink",
			Severity:    SeverityHigh,
			Details: []string{
				"Vomiting and reflux due to gastric issues including GERD",
				"May need tube feeding or thickeners",
				"Prefers drinking through a straw to reduce choking risk",
				"Dietary and behavioral complexities including food obsession and PICA",
				"Obesity requiring specialist input",
			},
			Keywords: []string{
				"food", "drink", "vomit", "reflux", "gastric", "GERD", "tube", "feed", "thickener",
				"straw", "chok", "diet", "PICA", "obesity", "weight", "nutrition", "eat", "swallow",
				"dysphagia", "aspiration", "calorie", "meal", "appetite", "hungry", "thirst", "digest",
				"stomach", "intestine", "bowel", "gastro", "nausea", "regurgitate", "gag", "chew",
			},
		},
		{
			Name:        "Mobility",
			Description: "Mobility impairments",
			Severity:    SeverityHigh,
			Details: []string{
				"Multiple major orthopaedic surgeries (osteotomy and patella stabilization)",
				"Atypical anatomy (flat bones, partial kneecap, leg length discrepancy)",
				"Lower-limb instability and severe pain",
				"Pending further specialist surgery on both legs",
				"Requires 2:1 assistance for transfers/positioning",
				"Uses bespoke NHS wheelchair",
				"Significant changes between head and neck joints",
			},
			Keywords: []string{
				"mobility", "orthopaedic", "orthopedic", "surgery", "knee", "leg", "bone", "pain",
				"transfer", "wheelchair", "osteotomy", "patella", "joint", "walk", "stand", "sit",
				"move", "limp", "gait", "posture", "balance", "stability", "unstable", "fall", "trip",
				"dislocation", "subluxation", "fracture", "break", "sprain", "strain", "physio",
				"physiotherapy", "physical therapy", "rehab", "rehabilitation", "crutch", "walker",
				"frame", "mobility aid", "transfer", "lift", "carry", "position", "reposition",
			},
		},
		{
			Name:        "Continence",
			Description: "Continence & toileting needs",
			Severity:    SeverityHigh,
			Details: []string{
				"Cannot wipe or clean independently",
				"Regular accidents",
				"Under care of continence team and urology nurses",
				"Recurrent UTIs",
				"PDA-related avoidance behaviors",
				"Gynae infections",
				"Monthly bleeds since age 7",
				"No capacity to change pads or manage personal hygiene",
			},
			Keywords: []string{
				"continence", "toilet", "wipe", "clean", "accident", "UTI", "urinary", "urology",
				"gynae", "bleed", "pad", "hygiene", "wet", "soil", "diaper", "nappy", "catheter",
				"bladder", "kidney", "renal", "infection", "bacteria", "menstrual", "period", "sanitary",
				"incontinence", "leak", "dribble", "frequency", "urgency", "retention", "constipation",
				"diarrhea", "bowel", "stool", "feces", "urine", "pee", "poo",
			},
		},
		{
			Name:        "Skin",
			Description: "Skin integrity & wound management",
			Severity:    SeverityHigh,
			Details: []string{
				"Eczema",
				"Allergies to plaster/dressings",
				"Reopens wounds",
				"Slow/failed healing",
				"Requires specialist dressing regimes",
				"Under skin viability and wound care teams",
				"History of removing plaster casts prematurely",
				"Broke four different types of braces (even titanium)",
			},
			Keywords: []string{
				"skin", "eczema", "allergy", "wound", "heal", "dressing", "plaster", "cast", "brace",
				"sore", "ulcer", "pressure", "rash", "irritation", "itch", "scratch", "dermatitis",
				"dermatology", "bandage", "gauze", "tape", "adhesive", "suture", "stitch", "staple",
				"incision", "cut", "abrasion", "laceration", "scar", "tissue", "viability", "integrity",
				"barrier", "protection", "moisture", "dry", "crack", "blister", "callus",
			},
		},
		{
			Name:        "Communication",
			Description: "Communication difficulties",
			Severity:    SeverityModerate,
			Details: []string{
				"Difficulty communicating emotions and needs",
				"Requires visual or tactile aids",
				"Speech understandable only to familiar adults",
				"Communication deteriorates when anxious, tired, or in unfamiliar surroundings",
				"Needs structured, low-demand approach",
				"Uses sign-based and visual supports",
			},
			Keywords: []string{
				"communication", "speech", "language", "sign", "visual", "aid", "makaton", "signalong",
				"talk", "speak", "verbal", "nonverbal", "express", "understand", "comprehend", "interpret",
				"gesture", "point", "picture", "symbol", "pecs", "board", "device", "app", "vocabulary",
				"word", "sentence", "phrase", "articulation", "pronunciation", "stutter", "stammer",
				"fluency", "clarity", "salt", "speech therapy", "speech and language",
			},
		},
		{
			Name:        "Medication",
			Description: "Drug therapies and medication",
			Severity:    SeveritySevere,
			Details: []string{
				"Requires daily management by registered nurse",
				"Regular medical practitioner oversight",
				"Unstable gastro conditions",
				"Intense pain from orthopaedic complications",
				"Disrupted/painful nights",
				"Constant monitoring for respiratory status, reflux, and pain",
			},
			Keywords: []string{
				"medication", "drug", "therapy", "pain", "gastro", "nurse", "monitor", "dose", "tablet",
				"pill", "capsule", "liquid", "injection", "infusion", "prescription", "prescribe",
				"administer", "dispense", "pharmacy", "pharmacist", "side effect", "reaction", "allergy",
				"contraindication", "interaction", "therapeutic", "treatment", "regime", "schedule",
				"compliance", "adherence", "titration", "wean", "increase", "decrease", "adjust",
			},
		},
		{
			Name:        "Psychological",
			Description: "Psychological & emotional vulnerability",
			Severity:    SeverityHigh,
			Details: []string{
				"Acute and prolonged emotional dysregulation",
				"Severe anxiety",
				"Poor impulse control",
				"ASD/PDA diagnosis",
				"Down Syndrome",
			},
			Keywords: []string{
				"psychological", "emotional", "anxiety", "impulse", "ASD", "PDA", "autism", "down syndrome",
				"downs", "mental health", "behavior", "behaviour", "mood", "affect", "regulation",
				"dysregulation", "control", "impulsive", "compulsive", "obsessive", "rigid", "routine",
				"transition", "change", "stress", "distress", "upset", "calm", "agitated", "frustrated",
				"angry", "sad", "happy", "emotion", "feeling", "sensory", "overstimulation", "meltdown",
				"shutdown", "overwhelm", "demand", "avoidance", "pathological", "resistance",
			},
		},
		{
			Name:        "Seizures",
			Description: "Seizure activity",
			Severity:    SeverityModerate,
			Details: []string{
				"Ongoing concerns about absence seizures",
				"Recorded episodes in clinical settings",
				"Occur several times a day",
				"Does not routinely require rescue medication",
				"Constant supervision essential",
			},
			Keywords: []string{
				"seizure", "epilepsy", "absence", "episode", "fit", "convulsion", "spasm", "jerk",
				"twitch", "shake", "tremor", "vacant", "stare", "unresponsive", "unconscious", "aware",
				"aura", "postictal", "ictal", "tonic", "clonic", "tonic-clonic", "grand mal", "petit mal",
				"focal", "generalized", "status", "eeg", "electroencephalogram", "anticonvulsant",
				"antiepileptic", "rescue", "emergency", "diazepam", "midazolam", "buccal",
			},
		},
		{
			Name:        "Behavioral",
			Description: "Behavioral challenges",
			Severity:    SeveritySevere,
			Details: []string{
				"Intense, severe behaviors threatening safety",
				"Complex combination of DS/ASD/PDA",
				"Frequent high-risk behaviors",
				"Meltdowns in public places",
				"Refusals to move from roads",
				"Impulsive acts endangering herself and others",
				"Requires constant supervision and structured approach",
			},
			Keywords: []string{
				"behavior", "behaviour", "meltdown", "risk", "impulsive", "supervision", "safety",
				"danger", "hazard", "threat", "harm", "injury", "accident", "incident", "challenge",
				"difficult", "problematic", "disruptive", "aggressive", "violent", "destructive",
				"self-harm", "self-injurious", "hit", "kick", "bite", "scratch", "throw", "break",
				"run", "elope", "wander", "escape", "hide", "refuse", "resist", "comply", "cooperate",
				"transition", "change", "routine", "structure", "boundary", "limit", "rule",
			},
		},
	}
}

func defaultSupports() []Support {
	return []Support{
		{
			Name:        "Personal Assistant",
			Description: "Personal Assistant (PA) for 1:1 or 2:1 Support Outside of School",
			Details: []string{
				"Constant supervision for safety",
				"2:1 care for toileting, transfers, mobility",
				"Behavioral redirection due to PDA",
				"Trained PA who understands medical conditions, sensory needs, and communication",
				"25 hours/week of outside-of-school support",
			},
			Keywords: []string{
				"assistant", "PA", "support", "supervision", "care", "carer", "caregiver", "aide",
				"helper", "staff", "worker", "professional", "specialist", "trained", "qualified",
				"experienced", "knowledgeable", "familiar", "consistent", "regular", "reliable",
				"trustworthy", "responsible", "attentive", "vigilant", "observant", "responsive",
			},
		},
		{
			Name:        "Hippotherapy",
			Description: "Therapeutic Horse Riding (Hippotherapy)",
			Details: []string{
				"Improves core strength, balance, lower-limb stability, and sensory integration",
				"Aids posture and muscle tone management",
				"Reduces injury risk",
				"Educational dimension: learning about animals, routines, communication/social skills",
				"Regular specialist-led sessions",
			},
			Keywords: []string{
				"horse", "riding", "hippotherapy", "therapy", "core", "balance", "posture", "equine",
				"equestrian", "mount", "dismount", "saddle", "bridle", "reins", "stable", "barn",
				"arena", "paddock", "field", "trot", "walk", "canter", "gait", "rhythm", "movement",
				"sensory", "integration", "proprioception", "vestibular", "coordination", "strength",
				"muscle", "tone", "stability", "control", "confidence", "independence", "achievement",
			},
		},
		{
			Name:        "Swimming",
			Description: "Specialist 1:1 Swimming/Hydrotherapy Sessions",
			Details: []string{
				"Improves muscle tone, range of motion, and cardio-respiratory health",
				"Limited awareness of danger",
				"Cannot concentrate or behave safely in group lessons",
				"Educational benefits through structured instruction",
				"Twice-weekly 1:1 sessions",
			},
			Keywords: []string{
				"swim", "hydrotherapy", "pool", "water", "muscle", "tone", "float", "aquatic", "aqua",
				"bath", "shower", "splash", "wet", "buoyancy", "resistance", "pressure", "temperature",
				"warm", "hot", "cold", "therapy", "exercise", "movement", "range", "motion", "flexibility",
				"stretch", "strengthen", "relax", "calm", "soothe", "comfort", "enjoy", "fun", "pleasure",
				"recreation", "leisure", "activity", "skill", "technique", "stroke", "kick", "arm", "leg",
			},
		},
		{
			Name:        "Respite",
			Description: "Respite: Support & Short-Stay Accommodation/Holiday",
			Details: []string{
				"Continuous supervision needs",
				"Short breaks reduce caregiver burnout",
				"Maintain stable home environment",
				"Claire House has been positive",
				"Success depends on familiar staff and sensory-friendly environment",
				"Short-stay breaks in specialized setting",
			},
			Keywords: []string{
				"respite", "break", "holiday", "accommodation", "claire house", "caregiver", "burnout",
				"rest", "relief", "support", "help", "assist", "aid", "service", "provision", "facility",
				"center", "centre", "hospice", "home", "house", "residence", "stay", "visit", "overnight",
				"weekend", "week", "day", "hour", "short", "brief", "temporary", "occasional", "regular",
				"planned", "emergency", "crisis", "stress", "strain", "pressure", "demand", "need",
			},
		},
		{
			Name:        "Technology",
			Description: "Assistive/Interactive Technology (iPad Pro & Apple Pencil)",
			Details: []string{
				"Visual and hearing impairments",
				"Previously used Makaton/Signalong",
				"Needs large print (18pt+) and accessible apps",
				"iPad Pro with Apple Pencil for specialized communication software",
				"Supports fine motor development and independent learning",
			},
			Keywords: []string{
				"technology", "ipad", "apple", "pencil", "app", "communication", "software", "visual",
				"hearing", "tablet", "device", "screen", "touch", "digital", "electronic", "computer",
				"laptop", "desktop", "mobile", "portable", "handheld", "wireless", "bluetooth", "wifi",
				"internet", "online", "download", "upload", "install", "update", "program", "application",
				"game", "play", "learn", "education", "skill", "development", "progress", "achievement",
			},
		},
	}
}

func defaultSpecialties() []Specialty {
	return []Specialty{
		{Name: "Neurology", Keywords: []string{"neuro", "brain", "seizure", "epilepsy", "neurologist", "eeg", "mri brain"}},
		{Name: "Cardiology", Keywords: []string{"heart", "cardiac", "cardio", "cardiologist", "ecg", "echo"}},
		{Name: "Pulmonology", Keywords: []string{"lung", "pulmonary", "respiratory", "breathing", "pulmonologist", "apnea", "apnoea", "sleep study", "ventilation", "oxygen"}},
		{Name: "Gastroenterology", Keywords: []string{"stomach", "intestine", "gastro", "gi", "gastroenterologist", "reflux", "gerd", "feeding", "tube", "peg"}},
		{Name: "Orthopedics", Keywords: []string{"bone", "joint", "fracture", "ortho", "orthopedist", "orthopedic", "orthopaedic", "knee", "leg", "hip", "osteotomy", "patella"}},
		{Name: "Endocrinology", Keywords: []string{"hormone", "thyroid", "diabetes", "endocrine", "endocrinologist", "growth", "obesity"}},
		{Name: "Ophthalmology", Keywords: []string{"eye", "vision", "ophthalmologist", "glasses", "sight"}},
		{Name: "ENT", Keywords: []string{"ear", "nose", "throat", "ent", "hearing", "audiology"}},
		{Name: "Dermatology", Keywords: []string{"skin", "rash", "dermatologist", "eczema", "allergy"}},
		{Name: "Hematology", Keywords: []string{"blood", "anemia", "hematologist"}},
		{Name: "Oncology", Keywords: []string{"cancer", "tumor", "oncologist"}},
		{Name: "Nephrology", Keywords: []string{"kidney", "renal", "nephrologist", "urinary", "urology", "bladder"}},
		{Name: "Urology", Keywords: []string{"bladder", "urinary", "urologist", "catheter", "continence"}},
		{Name: "Rheumatology", Keywords: []string{"arthritis", "rheumatoid", "rheumatologist", "joint pain"}},
		{Name: "Immunology", Keywords: []string{"immune", "allergy", "immunologist", "allergic"}},
		{Name: "Psychiatry", Keywords: []string{"mental", "psychiatric", "psychiatrist", "behavior", "behaviour", "asd", "autism", "pda"}},
		{Name: "Pediatrics", Keywords: []string{"pediatric", "pediatrician", "child", "children", "paediatric", "paediatrician"}},
		{Name: "General", Keywords: []string{"doctor", "physician", "gp", "general practitioner", "check-up", "checkup", "appointment"}},
		{Name: "Therapy", Keywords: []string{"therapy", "therapist", "physiotherapy", "physio", "occupational therapy", "ot", "speech", "language"}},
		{Name: "Surgery", Keywords: []string{"surgery", "surgical", "operation", "procedure", "pre-op", "post-op"}},
	}
}

func defaultPersonnelTypes() []PersonnelType {
	return []PersonnelType{
		{Name: "Doctor", Keywords: []string{"dr", "doctor", "consultant", "physician", "surgeon", "specialist", "registrar", "fellow", "attending"}},
		{Name: "Nurse", Keywords: []string{"nurse", "sister", "matron", "rn", "lpn", "cn", "nursing", "staff nurse"}},
		{Name: "Therapist", Keywords: []string{"therapist", "physiotherapist", "physio", "occupational therapist", "ot", "speech therapist",
			"speech and language therapist", "salt", "slp", "psychologist", "counselor", "counsellor"}},
		{Name: "Specialist", Keywords: []string{"specialist", "technician", "technologist", "audiologist", "optometrist", "optician",
			"dietitian", "nutritionist", "pharmacist", "social worker", "case manager", "coordinator"}},
		{Name: "Support", Keywords: []string{"assistant", "aide", "helper", "support worker", "care worker", "carer", "pa", "personal assistant"}},
	}
}

func defaultFacilityTypes() []FacilityType {
	return []FacilityType{
		{Name: "Hospital", Keywords: []string{"hospital", "medical center", "medical centre", "infirmary", "clinic", "health center",
			"health centre", "healthcare facility", "nhs trust", "foundation trust"}},
		{Name: "Specialty Center", Keywords: []string{"children's hospital", "pediatric hospital", "paediatric hospital", "specialty hospital",
			"specialist hospital", "rehabilitation center", "rehabilitation centre", "rehab"}},
		{Name: "Therapy Center", Keywords: []string{"therapy center", "therapy centre", "rehabilitation center", "rehabilitation centre",
			"physical therapy", "occupational therapy", "speech therapy", "behavioral therapy",
			"behavioural therapy", "mental health center", "mental health centre"}},
		{Name: "Community", Keywords: []string{"community center", "community centre", "day center", "day centre", "respite center",
			"respite centre", "hospice", "nursing home", "care home", "group home", "residential facility"}},
		{Name: "School", Keywords: []string{"school", "special school", "educational facility", "learning center", "learning centre",
			"academy", "college", "university", "institute"}},
	}
}
