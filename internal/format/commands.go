package format

import "regexp"

// Spoken command tokens dictated by radiologists that the transcription
// engine's dictation mode can miss. Order matters: multi-word commands run
// before their single-word prefixes ("stop me" before "stop"), and word
// commands run before the escaped line-break tokens.
var spokenCommands = []rule{
	{re: regexp.MustCompile(`(?i)\bfull\s+stop\b\.?[^\S\n]*`), repl: ". "},
	// "stop me": dictator says "stop", the next word starts with an "me"
	// sound and gets captured with it.
	{re: regexp.MustCompile(`(?i)(\w)[^\S\n]*[,.]?[^\S\n]*\bstop\s+me\b[^\S\n]*\.?[^\S\n]*`), repl: "${1}. "},
	{re: regexp.MustCompile(`(?i)(\w)[^\S\n]*[,.]?[^\S\n]*\bstop\b[^\S\n]*\.?[^\S\n]*`), repl: "${1}. "},
	{re: regexp.MustCompile(`(?i)\b(?:new|next)\s+line\b\.?[^\S\n]*`), repl: "\n"},
	{re: regexp.MustCompile(`(?i)\b(?:new|next)\s+paragraph\b\.?[^\S\n]*`), repl: "\n\n"},
	{re: regexp.MustCompile(`(?i)\bopen\s+(?:bracket|parenthesis)\b`), repl: "("},
	{re: regexp.MustCompile(`(?i)\bclose\s+(?:bracket|parenthesis)\b`), repl: ")"},
	{re: regexp.MustCompile(`(?i)\bsemicolon\b`), repl: ";"},
	{re: regexp.MustCompile(`(?i)\b(?:hyphen|dash)\b`), repl: "-"},
	{re: regexp.MustCompile(`(?i)\bforward\s+slash\b`), repl: "/"},
	// "colon" is a command unless followed by an anatomical or pathological
	// qualifier ("colon cancer" stays as dictated).
	{
		re: regexp.MustCompile(`(?i)\bcolon\b(\s+(?:cancer|polyp|mass|lesion|biopsy))?`),
		fn: func(m string) string {
			if len(m) > len("colon") {
				return m
			}
			return ":"
		},
	},
	// Escaped line-break tokens emitted by the dictation engine.
	{re: regexp.MustCompile(`[^\S\n]*<\\n>[^\S\n]*<\\n>[^\S\n]*`), repl: "\n\n"},
	{re: regexp.MustCompile(`[^\S\n]*<\\n>[^\S\n]*`), repl: "\n"},
}

// Cleanup pass run after command substitution: repair punctuation damage,
// collapse whitespace, restore capitalisation at boundaries.
var commandCleanup = []rule{
	// Orphaned "New" from a partially recognised "new line" command.
	{re: regexp.MustCompile(`\bNew\s+([A-Z])`), repl: "\n$1"},
	{re: regexp.MustCompile(`\.{2,}`), repl: "."},
	{re: regexp.MustCompile(`\.\s+\.`), repl: "."},
	{re: regexp.MustCompile(`\s+([.,;:!?])`), repl: "$1"},
	{re: regexp.MustCompile(`[ \t]{2,}`), repl: " "},
	{re: regexp.MustCompile(`\n{3,}`), repl: "\n\n"},
	{re: regexp.MustCompile(`[ \t]+\n`), repl: "\n"},
	{re: regexp.MustCompile(`\n[ \t]+`), repl: "\n"},
	{re: regexp.MustCompile(`\.\s+[a-z]`), fn: upperLast},
	{re: regexp.MustCompile(`\n[a-z]`), fn: upperLast},
	{re: regexp.MustCompile(`\.[ \t]*\n`), repl: ".\n"},
}

// ApplySpokenCommands converts dictated commands into punctuation and layout,
// then repairs the surrounding text.
func ApplySpokenCommands(text string) string {
	text = applyRules(text, spokenCommands)
	text = applyRules(text, commandCleanup)
	return trimReport(text)
}
