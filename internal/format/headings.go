package format

import (
	"regexp"
	"strings"

	"github.com/crowdit/radscribe/internal/models"
)

// Standard heading sequences per modality, from retrospective report
// analysis. CR reports rarely carry a CONCLUSION; CT and MR usually include
// a PROCEDURE block.
var modalityHeadings = map[string][]string{
	"CR":  {SectionClinicalHistory, SectionFindings, SectionConclusion},
	"CT":  {SectionClinicalHistory, SectionProcedure, SectionFindings, SectionConclusion},
	"US":  {SectionClinicalHistory, SectionFindings, SectionConclusion},
	"MR":  {SectionClinicalHistory, SectionProcedure, SectionFindings, SectionConclusion},
	"MG":  {SectionClinicalHistory, SectionFindings, SectionConclusion},
	"NM":  {SectionClinicalHistory, SectionProcedure, SectionFindings, SectionConclusion},
	"BMD": {SectionClinicalHistory, SectionFindings, SectionConclusion},
	"DSA": {SectionClinicalHistory, SectionProcedure, SectionFindings, SectionConclusion},
}

var defaultHeadings = []string{SectionClinicalHistory, SectionFindings, SectionConclusion}

// Modality abbreviations and full names expand to every spoken form so a
// dictated "Ultrasound of the abdomen" matches a procedure titled
// "US ABDOMEN".
var modalityExpansions = map[string]string{
	"us":          "ultrasound|us",
	"ultrasound":  "ultrasound|us",
	"ct":          "computed tomography|ct|cat scan",
	"mr":          "magnetic resonance|mri|mr",
	"mri":         "magnetic resonance|mri|mr",
	"cr":          "x-ray|x ray|x-rays|radiograph|plain film|cr",
	"x-ray":       "x-ray|x ray|x-rays|radiograph|plain film|cr",
	"x-rays":      "x-ray|x ray|x-rays|radiograph|plain film|cr",
	"mg":          "mammography|mammogram|mg",
	"mammography": "mammography|mammogram|mg",
	"nm":          "nuclear medicine|nm",
	"bmd":         "bone densitometry|dexa|dxa|bone density|bmd",
	"dsa":         "angiography|angiogram|dsa",
}

// stripProcedureEcho removes the procedure description from the start of the
// transcript body. Dictators commonly open with "Ultrasound of the abdomen",
// which duplicates the procedure title emitted as a heading.
func stripProcedureEcho(text, procedureDescription string) string {
	procLower := strings.ToLower(strings.TrimSpace(procedureDescription))
	if procLower == "" {
		return text
	}
	trimmed := strings.TrimLeft(text, " \t\n")

	if strings.HasPrefix(strings.ToLower(trimmed), procLower) {
		remainder := strings.TrimLeft(trimmed[len(procLower):], " ,.\n")
		return capitalizeFirst(remainder)
	}

	procWords := strings.Fields(procLower)
	if len(procWords) < 2 {
		return text
	}

	// Flexible match with the modality abbreviation expanded and optional
	// articles between words.
	if alt, ok := modalityExpansions[procWords[0]]; ok {
		var b strings.Builder
		b.WriteString(`^\s*(?:` + alt + `)\s+(?:of\s+)?(?:the\s+)?`)
		for i, w := range procWords[1:] {
			if i > 0 {
				b.WriteString(`\s+(?:of\s+)?(?:the\s+)?`)
			}
			b.WriteString(regexp.QuoteMeta(w))
		}
		b.WriteString(`[,.\s]*`)
		if re, err := regexp.Compile(`(?i)` + b.String()); err == nil {
			if loc := re.FindStringIndex(trimmed); loc != nil && loc[0] == 0 {
				return capitalizeFirst(strings.TrimLeft(trimmed[loc[1]:], " \t\n"))
			}
		}
	}

	// Flexible match with the original words, any article matching any other.
	var b strings.Builder
	b.WriteString(`^\s*`)
	for i, w := range procWords {
		if i > 0 {
			b.WriteString(`\s+`)
		}
		switch w {
		case "the", "a", "an", "of":
			b.WriteString(`(?:the|a|an|of)`)
		default:
			b.WriteString(regexp.QuoteMeta(w))
		}
	}
	b.WriteString(`[,.\s]*`)
	if re, err := regexp.Compile(`(?i)` + b.String()); err == nil {
		if loc := re.FindStringIndex(trimmed); loc != nil && loc[0] == 0 {
			return capitalizeFirst(strings.TrimLeft(trimmed[loc[1]:], " \t\n"))
		}
	}

	return text
}

type classifiedParagraph struct {
	section string
	text    string
}

var paragraphSplit = regexp.MustCompile(`\n\n+`)

// assembleReport classifies paragraphs and emits the sectioned report:
// optional uppercased procedure title, optional externally supplied clinical
// history block, then each paragraph grouped under a heading inserted only
// at section transitions.
func assembleReport(text, modalityCode, procedureDescription, clinicalHistory string, mp *models.ModalityProfile) string {
	availableHeadings := doctorHeadings(mp)
	if availableHeadings == nil {
		if h, ok := modalityHeadings[modalityCode]; ok {
			availableHeadings = h
		} else {
			availableHeadings = defaultHeadings
		}
	}
	headingMap := doctorHeadingMap(mp)

	var lines []string
	if procedureDescription != "" {
		lines = append(lines, strings.ToUpper(procedureDescription), "")
	}
	if clinicalHistory != "" {
		lines = append(lines, SectionClinicalHistory, "", strings.TrimSpace(clinicalHistory), "")
	}

	if procedureDescription != "" {
		text = stripProcedureEcho(text, procedureDescription)
	}

	// A paragraph that is only a heading ("CLINICAL HISTORY" on its own line,
	// as in already-formatted text) contributes its section to the next
	// paragraph instead of a body line of its own.
	var classified []classifiedParagraph
	pendingSection := ""
	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		section, cleaned := classifyParagraph(para)
		if cleaned == "" {
			if section != "" {
				pendingSection = section
			}
			continue
		}
		if section == "" && pendingSection != "" {
			section = pendingSection
		}
		pendingSection = ""
		classified = append(classified, classifiedParagraph{section, cleaned})
	}

	if len(classified) == 0 {
		if len(lines) > 0 {
			return strings.TrimSpace(strings.Join(lines, "\n"))
		}
		return text
	}

	// Unclassified paragraphs inherit from the previous paragraph with
	// FINDINGS as the default; classified paragraphs may never reopen a
	// section earlier in the fixed order than the furthest seen.
	highestSeen := -1
	for i := range classified {
		if classified[i].section == "" {
			if i > 0 && classified[i-1].section != "" {
				classified[i].section = classified[i-1].section
			} else {
				classified[i].section = SectionFindings
			}
			continue
		}
		order, ok := sectionOrder[classified[i].section]
		if !ok {
			order = sectionOrder[SectionFindings]
		}
		if order < highestSeen {
			if i > 0 {
				classified[i].section = classified[i-1].section
			} else {
				classified[i].section = SectionFindings
			}
		} else if order > highestSeen {
			highestSeen = order
		}
	}

	hasClinicalHistory := clinicalHistory != ""
	sawConclusion := false
	for _, cp := range classified {
		switch cp.section {
		case SectionClinicalHistory:
			hasClinicalHistory = true
		case SectionConclusion:
			sawConclusion = true
		}
	}

	// CONCLUSION inclusion: author preference first, then the modality
	// heuristic (CR almost never carries one).
	includeConclusion := modalityCode != "CR" || sawConclusion
	if uses := doctorUsesConclusion(mp); uses != nil {
		if *uses {
			includeConclusion = true
		} else {
			includeConclusion = sawConclusion
		}
	}

	currentSection := ""
	historyHeadingEmitted := clinicalHistory != ""
	for _, cp := range classified {
		section := cp.section
		if !containsHeading(availableHeadings, section) {
			if section == SectionProcedure {
				section = SectionFindings
			} else if section == SectionClinicalHistory && !hasClinicalHistory {
				section = SectionFindings
			}
		}
		if section == SectionConclusion && !includeConclusion {
			section = SectionFindings
		}

		if section != currentSection {
			if section == SectionClinicalHistory && historyHeadingEmitted {
				// externally supplied history already carries the heading
			} else {
				display := section
				if headingMap != nil {
					if renamed, ok := headingMap[section]; ok {
						display = renamed
					}
				}
				lines = append(lines, display, "")
			}
			currentSection = section
		}

		// Suppress classifier-tagged history paragraphs when the referral
		// already supplied the history block.
		if section == SectionClinicalHistory && clinicalHistory != "" {
			continue
		}

		lines = append(lines, capitalizeFirst(cp.text), "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func containsHeading(headings []string, section string) bool {
	for _, h := range headings {
		if h == section {
			return true
		}
	}
	return false
}
