package format

import (
	"context"
	"log/slog"
	"regexp"
)

// Input carries the record metadata that steers formatting: which modality
// heading set applies, what procedure title to emit and strip from the body,
// the referral's clinical history, and the author whose learned profile may
// override the defaults.
type Input struct {
	ModalityCode         string
	ProcedureDescription string
	ClinicalHistory      string
	DoctorID             string
}

// Formatter rewrites raw transcripts into sectioned clinical reports. It
// never fails: a rule that cannot apply is a no-op, and the worst case is
// returning the input text lightly cleaned.
type Formatter struct {
	profiles *Cache
	logger   *slog.Logger
}

func NewFormatter(profiles *Cache, logger *slog.Logger) *Formatter {
	return &Formatter{profiles: profiles, logger: logger}
}

var (
	finalOrphanPeriods = regexp.MustCompile(`\.\s+\.`)
	finalDoubleSpaces  = regexp.MustCompile(`[ \t]{2,}`)
	finalAfterPeriod   = regexp.MustCompile(`\.\s+[a-z]`)
	finalAfterNewline  = regexp.MustCompile(`\n[a-z]`)
)

// Format runs the full pipeline: spoken commands, correction tables,
// author-specific overrides, inline section breaks, section classification
// and heading assembly, then a final cleanup pass.
func (f *Formatter) Format(ctx context.Context, text string, in Input) string {
	text = ApplySpokenCommands(text)
	text = ApplyCorrections(text)

	mp := f.profiles.Modality(ctx, in.DoctorID, in.ModalityCode)
	text = applyRules(text, doctorWordCorrections(mp))
	text = applyRules(text, inlineSectionBreaks)
	text = assembleReport(text, in.ModalityCode, in.ProcedureDescription, in.ClinicalHistory, mp)

	text = finalAfterPeriod.ReplaceAllStringFunc(text, upperLast)
	text = finalAfterNewline.ReplaceAllStringFunc(text, upperLast)
	text = finalOrphanPeriods.ReplaceAllString(text, ".")
	text = finalDoubleSpaces.ReplaceAllString(text, " ")
	return text
}
