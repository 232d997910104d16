package format

import (
	"regexp"
	"strings"
)

// Medical term corrections learned from retrospective transcript/report
// comparison. Ordered: measurement formatting, then multi-word mishears
// before single-word ones, then regional spelling, contractions and plural
// normalization. Context-guarded entries capture the following word so a
// substitution only fires where the mishear actually occurs.
var medicalCorrections = []rule{
	// Measurement formatting
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+millimeters?\b`), repl: "${1}mm"},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+centimeters?\b`), repl: "${1}cm"},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+millimetres?\b`), repl: "${1}mm"},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+centimetres?\b`), repl: "${1}cm"},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+milliliters?\b`), repl: "${1}ml"},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+millilitres?\b`), repl: "${1}ml"},
	// Dimensions: "5 by 3" -> "5 x 3"
	{re: regexp.MustCompile(`(?i)(\d+)\s*(?:mm|cm)?\s+by\s+(\d+)`), repl: "$1 x $2"},
	{re: regexp.MustCompile(`(?i)\bcc['’]?s\b`), repl: "cc"},
	{re: regexp.MustCompile(`(?i)\bbeats\s+per\s+minute\b`), repl: "bpm"},

	// Ordinals
	{re: regexp.MustCompile(`(?i)\bfirst\b`), repl: "1st"},
	{re: regexp.MustCompile(`(?i)\bsecond\b`), repl: "2nd"},
	{re: regexp.MustCompile(`(?i)\bthird\b`), repl: "3rd"},
	{re: regexp.MustCompile(`(?i)\bfourth\b`), repl: "4th"},
	{re: regexp.MustCompile(`(?i)\bfifth\b`), repl: "5th"},

	// Vertebral level compaction: "L 5" -> "L5", "L4 / 5" -> "L4/5"
	{re: regexp.MustCompile(`\b([LCST])\s+(\d)\b`), repl: "$1$2"},
	{re: regexp.MustCompile(`\b([LCST])(\d)\s*/\s*(\d)\b`), repl: "$1$2/$3"},
	{re: regexp.MustCompile(`\b([LCST])(\d)\s*/\s*([LCST])(\d)\b`), repl: "$1$2/$3$4"},

	// Hyphenated compound terms
	{re: regexp.MustCompile(`(?i)\bground\s+glass\b`), repl: "ground-glass"},
	{re: regexp.MustCompile(`(?i)\bx\s+rays?\b`), fn: func(m string) string {
		return strings.ReplaceAll(m, " ", "-")
	}},
	{re: regexp.MustCompile(`(?i)\bcross\s+sectional\b`), repl: "cross-sectional"},
	{re: regexp.MustCompile(`(?i)\bpostmenopausal\b`), repl: "post-menopausal"},
	{re: regexp.MustCompile(`(?i)\bpost\s+menopausal\b`), repl: "post-menopausal"},
	{re: regexp.MustCompile(`(?i)\bnon\s+contrast\b`), repl: "non-contrast"},

	// Multi-word pronunciation mishears
	{re: regexp.MustCompile(`(?i)\bnear fusion\b`), repl: "knee effusion"},
	{re: regexp.MustCompile(`(?i)\b(small|moderate|large|mild|minimal|trace)\s+fusion\b`), repl: "$1 effusion"},
	{re: regexp.MustCompile(`(?i)\b(joint|knee|pleural|pericardial|hip|shoulder|ankle|elbow|glenohumeral)\s+fusion\b`), repl: "$1 effusion"},
	{re: regexp.MustCompile(`(?i)\bno\s+fusion(\s+(?:is|on|seen|noted|identified))\b`), repl: "no effusion$1"},
	{re: regexp.MustCompile(`(?i)\bsun and nasal\b`), repl: "sinonasal"},
	{re: regexp.MustCompile(`(?i)\bbunch of bone\b`), repl: "bunching on"},
	{re: regexp.MustCompile(`(?i)\bin plate\b`), repl: "endplate"},
	{re: regexp.MustCompile(`(?i)\bcollateral lymph\b`), repl: "collateral ligament"},
	{re: regexp.MustCompile(`(?i)\bannular plate\b`), repl: "volar plate"},
	{re: regexp.MustCompile(`(?i)\bballoon effusion\b`), repl: "glenohumeral effusion"},
	{re: regexp.MustCompile(`(?i)\bincompetent subunit\b`), repl: "incompetence"},
	{re: regexp.MustCompile(`(?i)\bcardio mediastinum\b`), repl: "cardiomediastinum"},
	{re: regexp.MustCompile(`(?i)\bnormal stomach on\b`), repl: "normal"},
	{re: regexp.MustCompile(`(?i)\bsingle\s+live\s+intruder\s+on\b`), repl: "single live intrauterine"},
	{re: regexp.MustCompile(`(?i)\bcell\s*stone\b`), repl: "Celestone"},
	{re: regexp.MustCompile(`(?i)\bcommon\s+sense(\s+(?:origin|tendon))\b`), repl: "common extensor$1"},
	{re: regexp.MustCompile(`(?i)\bsemi\s+common\b`), repl: "common"},
	{re: regexp.MustCompile(`(?i)\bsign\s+of\s+it\b`), repl: "synovitis"},
	{re: regexp.MustCompile(`(?i)\bby\s+by\s+millimeters?\b`), repl: "mm"},
	{re: regexp.MustCompile(`(?i)\bslightly\s+thick\b`), repl: "slightly thickened"},
	{re: regexp.MustCompile(`(?i)\bendocrine(\s+(?:is|thickness|measures|mm|cm|\d))`), repl: "endometrium$1"},

	// Single-word mishears
	{re: regexp.MustCompile(`(?i)\bretrotter\b`), repl: "rotator"},
	{re: regexp.MustCompile(`(?i)\bretrotiga\b`), repl: "rotator"},
	{re: regexp.MustCompile(`(?i)\bsubgranial\b`), repl: "subacromial"},
	{re: regexp.MustCompile(`(?i)\bserogranular\b`), repl: "subacromial"},
	{re: regexp.MustCompile(`(?i)\bsubcontour\b`), repl: "contour"},
	{re: regexp.MustCompile(`(?i)\bcontrary(\s+(?:is|are|smooth))\b`), repl: "contour$1"},
	{re: regexp.MustCompile(`(?i)\bgeneration\b`), repl: "degeneration"},
	{re: regexp.MustCompile(`(?i)\bgenerations\b`), repl: "degeneration"},
	{re: regexp.MustCompile(`(?i)\btriscaphy\b`), repl: "triscaphe"},
	{re: regexp.MustCompile(`(?i)\bantralsthesis\b`), repl: "anterolisthesis"},
	{re: regexp.MustCompile(`(?i)\bthorogolumbar\b`), repl: "thoracolumbar"},
	{re: regexp.MustCompile(`(?i)\bsubchronic\b`), repl: "subchorionic"},
	{re: regexp.MustCompile(`(?i)\bicosus\b`), repl: "echoes"},
	{re: regexp.MustCompile(`(?i)\bintegrate(\s+(?:flow|from))\b`), repl: "antegrade$1"},
	{re: regexp.MustCompile(`(?i)\binflamum\b`), repl: "infraspinatus"},
	{re: regexp.MustCompile(`(?i)\bpterygoid(\s+ganglion)`), repl: "paralabral$1"},
	{re: regexp.MustCompile(`(?i)\bpropria\b`), repl: "omental"},
	{re: regexp.MustCompile(`(?i)\bglenium\b`), repl: "glenohumeral"},
	{re: regexp.MustCompile(`(?i)\bbarotral\b`), repl: "bilateral"},
	{re: regexp.MustCompile(`(?i)\bphony\b`), repl: "bony"},
	{re: regexp.MustCompile(`(?i)\bperjury(\s+(?:is|at|of|and|facet))\b`), repl: "hypertrophy$1"},
	{re: regexp.MustCompile(`(?i)\bactually(\s+(?:normal|symmetric|thickened|enlarged|seen))\b`), repl: "bilaterally$1"},
	{re: regexp.MustCompile(`(?i)\bfusion(\s+(?:is|on|of|in|at|seen|noted))\b`), repl: "effusion$1"},
	{re: regexp.MustCompile(`(?i)\bin\s+inclusion\b`), repl: "in conclusion"},
	{re: regexp.MustCompile(`(?i)\binclusion(\s*[,.:;]|\s+(?:is|are|was|being)\b)`), repl: "conclusion$1"},
	{re: regexp.MustCompile(`(?i)\bangular(\s+(?:tear|fissure|bulge|disc|protrusion|rupture))\b`), repl: "annular$1"},
	{re: regexp.MustCompile(`(?i)\bforamen(\s+(?:stenosis|narrowing|encroachment|compromise))\b`), repl: "foraminal$1"},
	{re: regexp.MustCompile(`(?i)\bbasilar(\s+(?:insufficiency|circulation))\b`), repl: "vertebrobasilar$1"},
	{re: regexp.MustCompile(`(?i)\bbugling\b`), repl: "bulging"},
	{re: regexp.MustCompile(`(?i)\bfracturing\b`), repl: "fracture"},
	pluralRule("impingements", "impingement"),
	// "mils": ml when an injectable follows, otherwise a dimension in mm
	{re: regexp.MustCompile(`(?i)\b(\d+)\s*mils?(\s+(?:of\s+)?(?:celestone|lignocaine|lidocaine|cortisone|marcaine|xylocaine|saline|contrast|local))\b`), repl: "${1}ml$2"},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s*mils?\b`), repl: "${1}mm"},

	// Australian English spelling
	{re: regexp.MustCompile(`(?i)\bhyperemia\b`), repl: "hyperaemia"},
	{re: regexp.MustCompile(`(?i)\banemia\b`), repl: "anaemia"},
	{re: regexp.MustCompile(`(?i)\bischemia\b`), repl: "ischaemia"},
	{re: regexp.MustCompile(`(?i)\bischemic\b`), repl: "ischaemic"},
	{re: regexp.MustCompile(`(?i)\bleukemia\b`), repl: "leukaemia"},
	{re: regexp.MustCompile(`(?i)\bedema\b`), repl: "oedema"},
	{re: regexp.MustCompile(`(?i)\bledema\b`), repl: "oedema"},
	{re: regexp.MustCompile(`(?i)\besophagus\b`), repl: "oesophagus"},
	{re: regexp.MustCompile(`(?i)\besophageal\b`), repl: "oesophageal"},
	{re: regexp.MustCompile(`(?i)\besophagitis\b`), repl: "oesophagitis"},
	{re: regexp.MustCompile(`(?i)\bhemorrhage\b`), repl: "haemorrhage"},
	{re: regexp.MustCompile(`(?i)\bhemorrhagic\b`), repl: "haemorrhagic"},
	{re: regexp.MustCompile(`(?i)\bhemoglobin\b`), repl: "haemoglobin"},
	{re: regexp.MustCompile(`(?i)\bhemodynamic(\w*)\b`), repl: "haemodynamic$1"},
	{re: regexp.MustCompile(`(?i)\bfetus\b`), repl: "foetus"},
	{re: regexp.MustCompile(`(?i)\bfetal\b`), repl: "foetal"},
	{re: regexp.MustCompile(`(?i)\bpediatric\b`), repl: "paediatric"},
	{re: regexp.MustCompile(`(?i)\bcecum\b`), repl: "caecum"},
	{re: regexp.MustCompile(`(?i)\bmaneuver\b`), repl: "manoeuvre"},
	{re: regexp.MustCompile(`(?i)\bgynecolog`), repl: "gynaecolog"},
	{re: regexp.MustCompile(`(?i)\borthopedic\b`), repl: "orthopaedic"},
	{re: regexp.MustCompile(`(?i)\banesthetic\b`), repl: "anaesthetic"},
	{re: regexp.MustCompile(`(?i)\banesthesia\b`), repl: "anaesthesia"},
	{re: regexp.MustCompile(`(?i)\bdemineralization\b`), repl: "demineralisation"},
	{re: regexp.MustCompile(`(?i)\bmineralization\b`), repl: "mineralisation"},
	{re: regexp.MustCompile(`(?i)\bcharacterization\b`), repl: "characterisation"},
	{re: regexp.MustCompile(`(?i)\bvisualized\b`), repl: "visualised"},
	{re: regexp.MustCompile(`(?i)\bcharacterized\b`), repl: "characterised"},
	{re: regexp.MustCompile(`(?i)\blocalized\b`), repl: "localised"},
	{re: regexp.MustCompile(`(?i)\brecognized\b`), repl: "recognised"},
	{re: regexp.MustCompile(`(?i)\borganized\b`), repl: "organised"},
	{re: regexp.MustCompile(`(?i)\bgray\b`), repl: "grey"},
	{re: regexp.MustCompile(`(?i)\btumor\b`), repl: "tumour"},
	{re: regexp.MustCompile(`(?i)\btumors\b`), repl: "tumours"},
	{re: regexp.MustCompile(`(?i)\bfiber\b`), repl: "fibre"},
	{re: regexp.MustCompile(`(?i)\bfibers\b`), repl: "fibres"},
	{re: regexp.MustCompile(`(?i)\bfecal\b`), repl: "faecal"},
	{re: regexp.MustCompile(`(?i)\bhematoma\b`), repl: "haematoma"},
	{re: regexp.MustCompile(`(?i)\bhematomas\b`), repl: "haematomas"},
	{re: regexp.MustCompile(`(?i)\bosteopenia\b`), repl: "osteopaenia"},
	{re: regexp.MustCompile(`(?i)\bosteopenic\b`), repl: "osteopaenic"},
	{re: regexp.MustCompile(`(?i)\blidocaine\b`), repl: "lignocaine"},

	// Hyphenation
	{re: regexp.MustCompile(`(?i)\bnonspecific\b`), repl: "non-specific"},
	{re: regexp.MustCompile(`(?i)\bnontender\b`), repl: "non-tender"},
	{re: regexp.MustCompile(`(?i)\bintraarticular\b`), repl: "intra-articular"},
	{re: regexp.MustCompile(`(?i)\bperiarticular\b`), repl: "peri-articular"},

	// Contraction expansion
	{re: regexp.MustCompile(`(?i)\bdon\s*'?\s*t\b`), repl: "do not"},
	{re: regexp.MustCompile(`(?i)\bcan\s*'?\s*t\b`), repl: "cannot"},
	{re: regexp.MustCompile(`(?i)\bwon\s*'?\s*t\b`), repl: "will not"},
	{re: regexp.MustCompile(`(?i)\bisn\s*'?\s*t\b`), repl: "is not"},
	{re: regexp.MustCompile(`(?i)\baren\s*'?\s*t\b`), repl: "are not"},
	{re: regexp.MustCompile(`(?i)\bwasn\s*'?\s*t\b`), repl: "was not"},
	{re: regexp.MustCompile(`(?i)\bweren\s*'?\s*t\b`), repl: "were not"},
	{re: regexp.MustCompile(`(?i)\bdoesn\s*'?\s*t\b`), repl: "does not"},
	{re: regexp.MustCompile(`(?i)\bdidn\s*'?\s*t\b`), repl: "did not"},
	{re: regexp.MustCompile(`(?i)\bthere\s*'?\s*s\b`), repl: "there is"},
	{re: regexp.MustCompile(`(?i)\bit\s*'\s*s\b`), repl: "it is"},
	{re: regexp.MustCompile(`(?i)\bhe\s*'?\s*s\b`), repl: "he is"},
	{re: regexp.MustCompile(`(?i)\bshe\s*'?\s*s\b`), repl: "she is"},
	{re: regexp.MustCompile(`(?i)\bwe\s*'\s*re\b`), repl: "we are"},
	{re: regexp.MustCompile(`(?i)\byou\s*'?\s*re\b`), repl: "you are"},
	{re: regexp.MustCompile(`(?i)\bi\s*'\s*m\b`), repl: "I am"},

	// Plural -> singular normalization; a preceding numeral or quantifier
	// word suppresses it ("three fractures" stays plural).
	pluralRule("abnormalities", "abnormality"),
	pluralRule("effusions", "effusion"),
	{re: regexp.MustCompile(`(?i)\bfree\s+fluids\b`), repl: "free fluid"},
	pluralRule("concerns", "concern"),
	pluralRule("lesions", "lesion"),
	pluralRule("tears", "tear"),
	pluralRule("fragments", "fragment"),
	pluralRule("ribs", "rib"),
	pluralRule("fractures", "fracture"),
	{re: regexp.MustCompile(`(?i)\bpleural\s+fluids\b`), repl: "pleural fluid"},

	// Spoken "comma" the dictation engine left as a word
	{re: regexp.MustCompile(`(?i)\bcomma\b`), repl: ","},
}

// Filler and dictation-artifact removal. Only fires on sentence-boundary
// anchored standalone tokens so legitimate clinical words survive
// ("correct position" is untouched, a standalone "Correct." is not).
var fillerPatterns = []rule{
	{re: regexp.MustCompile(`(?i)\.\s*sorry[,.]?\s*`), repl: ". "},
	{re: regexp.MustCompile(`(?i)^\s*sorry[,.]?\s*`), repl: ""},
	{re: regexp.MustCompile(`(?i)\bsorry\s+(?:and\s+)?`), repl: ""},
	// Trailing "me" artifacts from "stop"/"let me"/"excuse me"
	{re: regexp.MustCompile(`\.\s*[Mm]e\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`,\s*[Mm]e\.?\s+`), repl: ". "},
	{re: regexp.MustCompile(`(?i),?\s*stopped\b\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`\.\s*[Ll]et me[,.]?\s*$`), repl: "."},
	{re: regexp.MustCompile(`(?i)\.\s*excuse me[,.]?\s*`), repl: ". "},
	{re: regexp.MustCompile(`(?i)\.\s*good\.?\s+`), repl: ". "},
	{re: regexp.MustCompile(`(?im)^\s*good\.?\s+`), repl: ""},
	{re: regexp.MustCompile(`(?i)\.\s*okay\.?\s+`), repl: ". "},
	{re: regexp.MustCompile(`(?im)^\s*okay\.?\s+`), repl: ""},
	{re: regexp.MustCompile(`(?m)(?:^|\.\s*)[Yy](?:eah|ep)\.?\s*`), repl: ""},
	// "Heading" spoken to the dictation system
	{re: regexp.MustCompile(`(?i)\bheading\s+`), repl: ""},
	{re: regexp.MustCompile(`(?i)\.\s*copy(?:\s+that)?\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`(?i)\bputting\b`), repl: ""},
	{re: regexp.MustCompile(`(?i)\bquestion\s+mark\b`), repl: "?"},
	{re: regexp.MustCompile(`(?i)\.\s*pause\.?\s*`), repl: ". "},
	// Sentence-opener fillers
	{re: regexp.MustCompile(`\.\s+[Ss]o,?\s+`), repl: ". "},
	{re: regexp.MustCompile(`(?m)^[Ss]o,?\s+`), repl: ""},
	{re: regexp.MustCompile(`\.\s+[Aa]gain,?\s+`), repl: ". "},
	{re: regexp.MustCompile(`(?m)^[Aa]gain,?\s+`), repl: ""},
	// End-of-dictation commands
	{re: regexp.MustCompile(`\.?\s*[Ss]igning\s+(?:off|out)\.?\s*$`), repl: "."},
	{re: regexp.MustCompile(`(?i)\.?\s*signing\s+(?:off|out)\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`\.?\s*[Ss]end\s+report\.?\s*$`), repl: "."},
	{re: regexp.MustCompile(`(?i)\.?\s*send\s+report\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`\.\s*[Cc]orrect\.(?:\s+|$)`), repl: ". "},
	{re: regexp.MustCompile(`(?m)^\s*[Cc]orrect\.\s*`), repl: ""},
	{re: regexp.MustCompile(`\.?\s*[Tt]hank\s+you\.?\s*$`), repl: "."},
	{re: regexp.MustCompile(`(?i)\.\s*thank\s+you\.?\s+`), repl: ". "},
	{re: regexp.MustCompile(`(?i)\bstopping\b\.?\s*`), repl: ". "},
	// Operator talking to the system
	{re: regexp.MustCompile(`(?i)\.?\s*refer\s+to\s+combined\s+report\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`(?i)\.?\s*i\s+can'?t\s+edit\s+this\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`(?i)\.?\s*send\s+it\s+through\s+for\s+signing\.?\s*`), repl: "."},
	// "template" triggers a canned template in the dictation client
	{re: regexp.MustCompile(`(?i)\.\s*template\.?\s*`), repl: ". "},
	{re: regexp.MustCompile(`(?im)^\s*template\.?\s*`), repl: ""},
	{re: regexp.MustCompile(`(?i),?\s*template\b\.?\s*`), repl: ". "},
}

// ApplyCorrections runs the medical correction table and then the filler
// removal pass.
func ApplyCorrections(text string) string {
	text = applyRules(text, medicalCorrections)
	text = applyRules(text, fillerPatterns)
	return trimReport(text)
}
