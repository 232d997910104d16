package format

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/crowdit/radscribe/internal/models"
)

// ProfileLookup fetches learned per-doctor formatting profiles. Absence is
// normal: most authors have no profile and the formatter falls back to
// modality defaults.
type ProfileLookup interface {
	DoctorProfile(ctx context.Context, doctorID string) (*models.DoctorProfile, error)
}

// Cache memoizes profile lookups for the lifetime of the process. The
// profile learner repopulates the backing table out of band; Reload drops
// the memoized state so the next lookup sees fresh data.
type Cache struct {
	mu       sync.RWMutex
	lookup   ProfileLookup
	profiles map[string]*models.DoctorProfile
	logger   *slog.Logger
}

func NewCache(lookup ProfileLookup, logger *slog.Logger) *Cache {
	return &Cache{
		lookup:   lookup,
		profiles: make(map[string]*models.DoctorProfile),
		logger:   logger,
	}
}

// Modality returns the modality-specific profile data for a doctor, or nil
// when no profile exists. Lookup failures are treated as absence and cached
// until the next Reload.
func (c *Cache) Modality(ctx context.Context, doctorID, modalityCode string) *models.ModalityProfile {
	if c == nil || doctorID == "" {
		return nil
	}

	c.mu.RLock()
	profile, ok := c.profiles[doctorID]
	c.mu.RUnlock()

	if !ok {
		var err error
		profile, err = c.lookup.DoctorProfile(ctx, doctorID)
		if err != nil {
			c.logger.Debug("doctor profile unavailable", "doctor_id", doctorID, "error", err)
			profile = nil
		}
		c.mu.Lock()
		c.profiles[doctorID] = profile
		c.mu.Unlock()
	}

	if profile == nil {
		return nil
	}
	return profile.Modality(modalityCode)
}

// Reload discards all memoized profiles.
func (c *Cache) Reload() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.profiles = make(map[string]*models.DoctorProfile)
	c.mu.Unlock()
}

const minProfileSamples = 5

// doctorHeadings derives the doctor's preferred heading sequence from the
// most common section structure in their profile. Returns nil when the
// sample is too small to trust.
func doctorHeadings(mp *models.ModalityProfile) []string {
	if mp == nil || mp.Count < minProfileSamples || len(mp.SectionStructure) == 0 {
		return nil
	}
	var bestSeq string
	bestCount := -1
	keys := make([]string, 0, len(mp.SectionStructure))
	for k := range mp.SectionStructure {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, seq := range keys {
		if n := mp.SectionStructure[seq]; n > bestCount {
			bestSeq, bestCount = seq, n
		}
	}
	seen := map[string]bool{}
	var headings []string
	for _, h := range strings.Split(bestSeq, ">") {
		h = strings.TrimSpace(h)
		if h != "" && !seen[h] {
			seen[h] = true
			headings = append(headings, h)
		}
	}
	return headings
}

// doctorHeadingMap returns per-doctor heading renames, e.g. FINDINGS ->
// REPORT for authors whose historical reports prefer that label.
func doctorHeadingMap(mp *models.ModalityProfile) map[string]string {
	if mp == nil || len(mp.SectionStructure) == 0 {
		return nil
	}
	total, reportCount, findingsCount := 0, 0, 0
	for seq, n := range mp.SectionStructure {
		total += n
		if strings.Contains(seq, "REPORT") && !strings.Contains(seq, "FINDINGS") {
			reportCount += n
		}
		if strings.Contains(seq, "FINDINGS") {
			findingsCount += n
		}
	}
	if total > 0 && reportCount > findingsCount {
		return map[string]string{SectionFindings: "REPORT"}
	}
	return nil
}

// doctorUsesConclusion reports whether the author typically includes a
// CONCLUSION section, with a 30% presence threshold. nil means unknown.
func doctorUsesConclusion(mp *models.ModalityProfile) *bool {
	if mp == nil || mp.Count < minProfileSamples {
		return nil
	}
	pct, ok := mp.SectionPresencePct[SectionConclusion]
	if !ok {
		return nil
	}
	uses := pct >= 30.0
	return &uses
}

// Function-word corrections are noise, not real corrections.
var correctionStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "in": true, "at": true, "of": true, "for": true, "to": true,
	"and": true, "or": true, "on": true, "with": true, "as": true, "by": true,
	"it": true, "this": true, "that": true,
}

// doctorWordCorrections compiles the high-confidence subset of an author's
// learned word corrections: 2+ occurrences, no function words, no case-only
// differences, no single-character tokens.
func doctorWordCorrections(mp *models.ModalityProfile) []rule {
	if mp == nil {
		return nil
	}
	var rules []rule
	for _, wc := range mp.WordCorrections {
		if wc.Count < 2 {
			continue
		}
		wrongLower := strings.ToLower(wc.Wrong)
		rightLower := strings.ToLower(wc.Right)
		if correctionStopwords[wrongLower] || correctionStopwords[rightLower] {
			continue
		}
		if wrongLower == rightLower {
			continue
		}
		if len(wc.Wrong) <= 1 || len(wc.Right) <= 1 {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(wc.Wrong) + `\b`)
		if err != nil {
			continue
		}
		right := wc.Right
		rules = append(rules, rule{re: re, fn: func(string) string { return right }})
	}
	return rules
}
