package format

import (
	"regexp"
	"strings"
)

// Canonical report sections in their fixed order. A report never moves
// backwards through this order; a paragraph classified behind the furthest
// section already seen is coerced to the previous paragraph's section.
const (
	SectionClinicalHistory = "CLINICAL HISTORY"
	SectionProcedure       = "PROCEDURE"
	SectionFindings        = "FINDINGS"
	SectionConclusion      = "CONCLUSION"
)

var sectionOrder = map[string]int{
	SectionClinicalHistory: 0,
	SectionProcedure:       1,
	SectionFindings:        2,
	SectionConclusion:      3,
}

// scoringOrder fixes the tie-break when keyword scores are equal.
var scoringOrder = []string{
	SectionClinicalHistory,
	SectionProcedure,
	SectionFindings,
	SectionConclusion,
}

type sectionMarker struct {
	re      *regexp.Regexp
	section string
}

// Explicit spoken section markers. The matched marker (including trailing
// "is"/"are"/":") is stripped so the heading is not duplicated in the body.
// Longer patterns first to avoid partial matches.
var spokenSectionMarkers = []sectionMarker{
	{regexp.MustCompile(`(?i)^(?:the\s+)?clinical\s+(?:history|indication|details)\s*(?:is|are|:)?\s*`), SectionClinicalHistory},
	{regexp.MustCompile(`(?i)^(?:the\s+)?clinical\s+(?:history|indication|details)\b`), SectionClinicalHistory},
	{regexp.MustCompile(`(?i)^(?:the\s+)?history\b`), SectionClinicalHistory},
	{regexp.MustCompile(`(?i)^(?:the\s+)?indication\b`), SectionClinicalHistory},
	{regexp.MustCompile(`(?i)^(?:the\s+)?procedure\s+(?:is|was|:)\s*`), SectionProcedure},
	{regexp.MustCompile(`(?i)^(?:the\s+)?procedure\b`), SectionProcedure},
	{regexp.MustCompile(`(?i)^(?:the\s+)?technique\s*(?:is|was|:)?\s*`), SectionProcedure},
	{regexp.MustCompile(`(?i)^(?:the\s+)?findings?\s+are\s*,?\s*`), SectionFindings},
	{regexp.MustCompile(`(?i)^(?:the\s+)?findings?\s*(?::|,)\s*`), SectionFindings},
	{regexp.MustCompile(`(?i)^(?:the\s+)?findings?\b`), SectionFindings},
	{regexp.MustCompile(`(?i)^(?:the\s+)?report\b`), SectionFindings},
	{regexp.MustCompile(`(?i)^(?:the\s+)?conclusion\s*(?:is|are|:)?\s*`), SectionConclusion},
	{regexp.MustCompile(`(?i)^(?:the\s+)?impression\s*(?:is|are|:)?\s*`), SectionConclusion},
	{regexp.MustCompile(`(?i)^(?:the\s+)?comment\b`), SectionConclusion},
	{regexp.MustCompile(`(?i)^(?:the\s+)?opinion\b`), SectionConclusion},
	{regexp.MustCompile(`(?i)^(?:the\s+)?summary\b`), SectionConclusion},
	{regexp.MustCompile(`(?i)^in\s+(?:conclusion|summary)\b`), SectionConclusion},
}

var clinicalHistoryKeywords = keywordSet(
	"pain", "history", "chronic", "injury", "trauma", "complaint",
	"presenting", "referred", "referral", "symptoms", "worsening", "follow-up",
	"follow up", "known", "previous", "prior", "suspected", "query", "exclude",
	"rule out", "assess", "assessment", "investigate",
	"oa", "fracture", "bursitis", "dating scan",
)

var procedureKeywords = keywordSet(
	"contrast", "non-contrast", "noncontrast", "post-contrast", "pre-contrast",
	"scan", "protocol", "technique", "sterile", "prep", "consent", "informed",
	"needle", "gauge", "injection", "injected", "administered", "sedation",
	"anaesthetic", "anesthetic", "lignocaine", "lidocaine",
	"euflexxa", "cortisone", "aseptic",
)

var findingsKeywords = keywordSet(
	"there", "normal", "seen", "focal", "soft tissue", "echotexture", "architecture",
	"contour", "smooth", "unremarkable", "bilateral", "measures",
	"dimensions", "demonstrates", "shows", "reveals", "noted",
	"identified", "visualised", "visualized", "appear", "appears",
	"no evidence", "no significant", "no acute", "intact",
	"degenerative", "effusion", "calcification", "opacity",
	"attenuation", "enhancement", "parenchyma", "cortex",
	"liver", "kidney", "spleen", "pancreas", "gallbladder",
	"aorta", "vertebral", "disc", "joint", "tendon", "ligament",
	"transabdominal", "transvaginal", "uterus", "ovary",
	"bmd", "t-score", "z-score",
	"lungs", "pleural", "clear", "costophrenic",
	"symmetric", "non tender",
)

var conclusionKeywords = keywordSet(
	"major abnormality", "no major", "no significant abnormality",
	"unremarkable", "otherwise unremarkable",
	"could", "would", "should", "may", "suggest", "recommend",
	"clinical correlation", "correlate clinically",
	"consider", "advised", "advise", "if clinically",
	"further", "follow-up", "follow up", "review",
	"ongoing", "responds", "respond", "amenable",
	"bursitis", "tendinopathy", "impingement",
	"in keeping with", "consistent with", "suspicious",
	"no dvt", "no svt", "no fracture seen",
	"uncomplicated", "osteopaenia", "osteoporosis",
	"fatty liver", "prostatomegaly",
	"type 1 normal", "world health organization",
	"low-risk", "may respond",
)

func keywordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Opening phrases that strongly identify a section. Procedure openers are
// checked before conclusion openers before findings openers.
var findingsOpeners = compileAll(
	`^(?:the\s+)?liver\s+(?:echotexture|architecture|is)`,
	`^(?:the\s+)?liver\s+is\s+(?:echogenic|normal)`,
	`^(?:the\s+)?kidneys?\s+(?:are|is)`,
	`^(?:the\s+)?kidneys?\s+(?:are|is)\s+(?:symmetric|normal)`,
	`^there\s+(?:is|are)\s+(?:no|a|an|the|mild|moderate|severe)`,
	`^(?:the\s+)?(?:ac|glenohumeral|hip|knee|ankle|elbow|wrist)\s+joint`,
	`^transabdominal\b`,
	`^transvaginal\b`,
	`^(?:i\s+)?(?:do\s+not|don't)\s+see\b`,
	`^i\s+do\s+not\s+see\s+any`,
	`^at\s+the\s+(?:region|level|site)\b`,
	`^(?:the\s+)?(?:right|left|bilateral)\s+(?:kidney|ovary|breast|lung|hip|knee|shoulder|elbow|wrist|ankle)`,
	`^bmd\b`,
	`^ultrasound\b`,
	`^(?:the\s+)?uterus\b`,
	`^(?:the\s+)?uterus\s+is\s+anteverted`,
	`^there\s+(?:is|are)\s+(?:five|four|six|seven)\s+lumbar`,
	`^(?:five|six|seven)\s+lumbar\s+type`,
	`^(?:five|six|seven)\s+cervical\s+type`,
	`^lungs?\s+and\s+pleural`,
	`^(?:the\s+)?lungs?\s+(?:and\s+pleural|are)`,
	`^(?:the\s+)?(?:ac\s+joint|glenohumeral)\s+is`,
	`^(?:the\s+)?(?:subacromial|subdeltoid)\s+bursa\b`,
	`^(?:the\s+)?(?:biceps|triceps)\s+(?:tendon|insertion)`,
	`^(?:the\s+)?(?:common\s+)?(?:flexor|extensor)\s+(?:origin|tendon)`,
	`^(?:the\s+)?carotid\s+artery`,
	`^(?:the\s+)?(?:rotator\s+cuff|cuff)\s+(?:is|tendinopathy)`,
	`^(?:the\s+)?patient\s+is\s+tender`,
	`^(?:the\s+)?region\s+of\s+interest`,
	`^(?:the\s+)?thyroid\b`,
	`^(?:the\s+)?gallbladder\b`,
	`^(?:the\s+)?spleen\b`,
	`^(?:the\s+)?pancreas\b`,
	`^(?:the\s+)?aorta\b`,
	`^no\s+(?:pneumothorax|fracture|pleural)`,
	`^(?:the\s+)?(?:endometri\w+|myometri\w+)\b`,
	`^(?:the\s+)?(?:ovaries|adnexa)\b`,
	`^(?:the\s+)?nerve\s+appears\b`,
	`^(?:there\s+(?:is|are)\s+)?(?:\d+|five|four|six|seven)\s+lumbar`,
	`^(?:the\s+)?cardiomediastin\w+\b`,
	`^single\s+live\s+intrauterine`,
	`^both\s+ovaries\s+are`,
	`^(?:the\s+)?deep\s+venous\s+system`,
	`^alignment\s+is\s+anatomic`,
	`^(?:the\s+)?tendons?\s+(?:are|is)`,
	`^(?:the\s+)?sacroiliac\s+joints?`,
	`^there\s+is\s+(?:no\s+)?(?:intracranial|axillary)`,
	`^there\s+is\s+(?:diffuse\s+)?sinonasal`,
	`^liver,\s+spleen,?\s+(?:adrenal|and)`,
	`^(?:the\s+)?patient'?s?\s+calcium\s+score`,
)

var conclusionOpeners = compileAll(
	`^no\s+(?:major|significant)\s+(?:abnormality|finding|pathology)`,
	`^(?:subacromial|trochanteric|olecranon|subdeltoid)\s+bursitis`,
	`^degenerative\s+change`,
	`^uncomplicated\b`,
	`^(?:fatty|echogenic)\s+liver\b`,
	`^(?:no\s+)?(?:dvt|svt|pe)\b`,
	`^(?:prostatomegaly|hepatomegaly|splenomegaly)\b`,
	`^(?:common\s+extensor|rotator\s+cuff)\s+tendinopathy`,
	`^osteo(?:paenia|porosis)\b`,
	`^type\s+1\s+normal\s+hips?\b`,
	`^mild\s+(?:common\s+)?(?:extensor|flexor)\s+tendinopathy`,
	`^(?:no\s+significant\s+abnormality|nonspecific)\b`,
	`^possible\s+(?:ulnar|carpal|radial)\b`,
	`^(?:cuff|rotator)\s+(?:tendinopathy|tear)\b`,
	`^(?:an?\s+)?(?:x-ray|mri|ct|ultrasound)\s+should\b`,
	`^(?:an?\s+)?steroid\s+injection\b`,
	`^if\s+(?:this\s+is\s+)?clinically\b`,
	`^no\s+(?:other\s+)?(?:fracture|abnormality|pathology)\b`,
	`^exact\s+cause\s+of\s+symptoms`,
	`^(?:single\s+live\s+)?intrauterine\s+(?:gestation|pregnancy)`,
	`^unremarkable\b`,
	`^(?:subacromial\s+)?bursitis\s+and\s+impingement`,
	`^no\s+(?:major\s+)?abnormality\s+(?:is\s+)?seen`,
	`^no\s+abnormality\s+seen`,
	`^trochanteric\s+bursitis\s+(?:might|may|could)`,
	`^no\s+morphologic(?:al)?\s+abnormality`,
	`^no\s+morphologic\b`,
	`^(?:uncomplicated\s+)?(?:ct\s+guided|ultrasound\s+guided)`,
	`^there\s+is\s+no\s+(?:major|significant)\s+intracranial`,
	`^degenerative\s+changes?\s+(?:are\s+)?seen`,
	`^multilevel\s+(?:severe\s+)?degenerative`,
	`^no\s+(?:convincing|significant)\s+(?:fracture|intracranial)`,
	`^intermediate-?risk\s+superficial\s+vein`,
	`^(?:an?\s+)?isolated\s+superficial\s+vein`,
)

var procedureOpeners = compileAll(
	`^(?:non[- ]?contrast|post[- ]?contrast|pre[- ]?contrast)\b`,
	`^(?:sterile\s+prep)\b`,
	`^(?:the\s+)?scan\s+(?:was|is)\b`,
	`^informed\s+consent\s+(?:was\s+)?obtained`,
	`^under\s+(?:ultrasound|ct)\s+guidance\s+and\s+aseptic`,
	`^under\s+(?:ultrasound|ct)\s+guidance`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Spine level sub-headings ("L4/5:", "C2/3:") are sub-headings within
// FINDINGS and never open a new top-level section.
var spineLevelSubheading = regexp.MustCompile(`(?i)^[LCST]\d(?:/[LCST]?\d)?:\s*`)

var wordToken = regexp.MustCompile(`[a-z]+(?:-[a-z]+)*`)

// classifyParagraph assigns a paragraph to a report section. It returns an
// empty section when uncertain so the caller can inherit from context. When
// a spoken marker is matched the marker text is stripped from the returned
// paragraph.
func classifyParagraph(text string) (section, cleaned string) {
	stripped := strings.TrimSpace(text)

	if spineLevelSubheading.MatchString(stripped) {
		return "", stripped
	}

	for _, m := range spokenSectionMarkers {
		loc := m.re.FindStringIndex(stripped)
		if loc == nil {
			continue
		}
		remainder := strings.TrimLeft(stripped[loc[1]:], " ,.:;-\n")
		return m.section, capitalizeFirst(remainder)
	}

	for _, re := range procedureOpeners {
		if re.MatchString(stripped) {
			return SectionProcedure, stripped
		}
	}
	for _, re := range conclusionOpeners {
		if re.MatchString(stripped) {
			return SectionConclusion, stripped
		}
	}
	for _, re := range findingsOpeners {
		if re.MatchString(stripped) {
			return SectionFindings, stripped
		}
	}

	// Keyword-bag scoring over single words and bigrams.
	lower := strings.ToLower(stripped)
	tokens := map[string]bool{}
	for _, w := range wordToken.FindAllString(lower, -1) {
		tokens[w] = true
	}
	fields := strings.Fields(lower)
	for i := 0; i+1 < len(fields); i++ {
		tokens[fields[i]+" "+fields[i+1]] = true
	}

	scores := map[string]int{
		SectionClinicalHistory: countKeywords(tokens, clinicalHistoryKeywords),
		SectionProcedure:       countKeywords(tokens, procedureKeywords),
		SectionFindings:        countKeywords(tokens, findingsKeywords),
		SectionConclusion:      countKeywords(tokens, conclusionKeywords),
	}

	best, bestScore := "", 0
	for _, s := range scoringOrder {
		if scores[s] > bestScore {
			best, bestScore = s, scores[s]
		}
	}
	if bestScore >= 2 {
		return best, stripped
	}
	return "", stripped
}

func countKeywords(tokens map[string]bool, keywords map[string]bool) int {
	n := 0
	for kw := range keywords {
		if tokens[kw] {
			n++
		}
	}
	return n
}

// Inline section cues spoken mid-sentence ("... done. The findings are
// there is ...") become paragraph breaks so the classifier can see the
// transition.
var inlineSectionBreaks = []rule{
	{re: regexp.MustCompile(`(?i)[.]\s*(?:the\s+)?findings?\s+are\s*[,.]?\s*`), repl: ".\n\n"},
	{re: regexp.MustCompile(`(?i)[.]\s*(?:the\s+)?procedure\s+(?:is|was)\s*[,.]?\s*`), repl: ".\n\n"},
	{re: regexp.MustCompile(`(?i)[.]\s*(?:the\s+)?conclusion\s*(?:is|:)\s*`), repl: ".\n\n"},
	{re: regexp.MustCompile(`(?i)[.]\s*(?:the\s+)?impression\s*(?:is|:)\s*`), repl: ".\n\n"},
	{re: regexp.MustCompile(`(?i)[.]\s*(?:the\s+)?comment\s*(?:is|:)\s*`), repl: ".\n\n"},
}
