package transcribe

import "strings"

// maxKeyterms caps the vocabulary list sent with one transcription call; the
// service rejects larger payloads.
const maxKeyterms = 100

// baseTerms are included regardless of modality.
var baseTerms = []string{
	"radiology", "radiologist", "impression", "findings", "conclusion",
	"clinical history", "comparison", "technique", "indication",
	"unremarkable", "within normal limits", "no acute abnormality",
	"no significant abnormality", "stable", "unchanged", "interval",
	"bilateral", "unilateral", "ipsilateral", "contralateral",
	"anterior", "posterior", "superior", "inferior", "lateral", "medial",
	"proximal", "distal", "periosteal", "parenchymal", "subchondral",
	"degenerative", "atherosclerotic", "calcification", "effusion",
	"consolidation", "atelectasis", "opacity", "lucency",
	"lymphadenopathy", "hepatomegaly", "splenomegaly",
	"cardiomegaly", "pneumothorax", "pleural effusion",
	"no drainable collection", "correlate clinically",
}

var modalityTerms = map[string][]string{
	"US": {
		"ultrasound", "sonographic", "echogenicity", "anechoic", "hyperechoic",
		"hypoechoic", "isoechoic", "heterogeneous", "homogeneous",
		"Doppler", "colour Doppler", "spectral Doppler", "resistive index",
		"transducer", "acoustic shadowing", "posterior enhancement",
		"gallbladder", "common bile duct", "intrahepatic ducts",
		"portal vein", "hepatic vein", "aorta", "IVC",
		"hydronephrosis", "renal cortex", "thyroid nodule", "TIRADS",
	},
	"CT": {
		"computed tomography", "Hounsfield units", "contrast enhancement",
		"arterial phase", "portal venous phase", "delayed phase",
		"non-contrast", "post-contrast", "axial", "coronal", "sagittal",
		"multiplanar reconstruction", "pulmonary embolism",
		"ground glass opacity", "tree-in-bud", "mosaic attenuation",
		"herniation", "stenosis", "aneurysm", "dissection",
		"appendicitis", "diverticulitis", "bowel obstruction",
		"hepatic steatosis", "adrenal adenoma",
	},
	"MR": {
		"magnetic resonance", "T1-weighted", "T2-weighted", "FLAIR",
		"diffusion-weighted", "ADC map", "post-gadolinium",
		"disc desiccation", "disc protrusion", "disc extrusion",
		"annular fissure", "neural foraminal stenosis", "spinal stenosis",
		"ligamentum flavum", "meniscal tear", "cruciate ligament",
		"rotator cuff", "labral tear", "bone marrow oedema",
		"chondromalacia", "synovitis", "tendinopathy",
		"signal abnormality", "enhancement pattern",
	},
	"CR": {
		"radiograph", "X-ray", "radiolucent", "radiopaque",
		"cortical", "trabecular", "joint space", "osteophyte",
		"fracture", "dislocation", "subluxation", "alignment",
		"cardiomediastinal silhouette", "costophrenic angle",
		"lung fields", "hilar", "mediastinal", "trachea",
		"soft tissues", "prosthesis", "hardware",
	},
	"MG": {
		"mammography", "mammographic", "BI-RADS", "breast density",
		"microcalcifications", "architectural distortion", "mass",
		"asymmetry", "skin thickening", "axillary lymph node",
		"craniocaudal", "mediolateral oblique", "spot compression",
		"tomosynthesis", "screening", "diagnostic",
	},
	"NM": {
		"nuclear medicine", "scintigraphy", "radiotracer", "uptake",
		"photopenia", "hot spot", "cold spot", "biodistribution",
		"bone scan", "thyroid scan", "renal scan", "DTPA", "MAG3",
		"DMSA", "ventilation perfusion", "V/Q scan",
	},
	"BMD": {
		"bone densitometry", "DEXA", "DXA", "T-score", "Z-score",
		"osteoporosis", "osteopenia", "bone mineral density",
		"lumbar spine", "femoral neck", "total hip",
		"fracture risk", "FRAX",
	},
	"SCR": {
		"screening", "mammographic screening", "BI-RADS",
		"recall", "interval cancer",
	},
	"DSA": {
		"digital subtraction angiography", "angiogram", "catheter",
		"stenosis", "occlusion", "collateral", "embolisation",
		"fluoroscopy", "contrast injection",
	},
	"CONS": {
		"consultation", "multidisciplinary", "clinical correlation",
		"recommend", "suggest", "advise",
	},
}

// procedureStopwords are skipped when mining procedure text for keyterms.
var procedureStopwords = map[string]bool{
	"with": true, "without": true, "left": true, "right": true, "both": true,
}

// KeytermInput carries the per-study context a keyterm list is built from.
type KeytermInput struct {
	ModalityCode         string
	PatientNameParts     []string
	DoctorName           string
	ReferrerName         string
	ProcedureDescription string
}

// BuildKeyterms assembles the boosted vocabulary for one study: base clinical
// terms, modality-specific terms, then salient context tokens. Deduplicated
// case-insensitively preserving first occurrence, hard-capped at 100.
func BuildKeyterms(in KeytermInput) []string {
	terms := make([]string, 0, maxKeyterms)
	terms = append(terms, baseTerms...)

	if mt, ok := modalityTerms[in.ModalityCode]; ok {
		terms = append(terms, mt...)
	}

	for _, p := range in.PatientNameParts {
		if len(p) > 2 {
			terms = append(terms, p)
		}
	}
	if in.DoctorName != "" {
		terms = append(terms, in.DoctorName)
	}
	if in.ReferrerName != "" {
		terms = append(terms, in.ReferrerName)
	}
	for _, word := range strings.Fields(in.ProcedureDescription) {
		if len(word) > 3 && !procedureStopwords[strings.ToLower(word)] {
			terms = append(terms, word)
		}
	}

	seen := make(map[string]bool, len(terms))
	unique := make([]string, 0, len(terms))
	for _, t := range terms {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, t)
		if len(unique) == maxKeyterms {
			break
		}
	}
	return unique
}
