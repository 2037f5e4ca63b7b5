package usecase

import (
	"sort"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

const defaultFingerprintLen = 96

// mergeEvidence deduplicates raw partition output, ranks it and truncates to
// topK. Idempotent and order-independent: any permutation of the same raw
// input yields the same merged set.
//
// Two passes: exact id dedupe keeping the higher score, then a near-duplicate
// pass keyed on a normalized text-prefix fingerprint. The fingerprint is an
// approximate heuristic; it can over-merge claims sharing a long prefix and
// under-merge paraphrases (tracked for tuning, deliberately not changed).
func mergeEvidence(raw []domain.EvidenceUnit, topK, fingerprintLen int) []domain.EvidenceUnit {
	if topK <= 0 {
		topK = len(raw)
	}
	if fingerprintLen <= 0 {
		fingerprintLen = defaultFingerprintLen
	}

	byID := make(map[string]domain.EvidenceUnit, len(raw))
	for _, unit := range raw {
		if unit.ID == "" {
			continue
		}
		current, ok := byID[unit.ID]
		if !ok || unit.Score > current.Score {
			byID[unit.ID] = unit
		}
	}

	byFingerprint := make(map[string]domain.EvidenceUnit, len(byID))
	for _, unit := range byID {
		fp := contentFingerprint(unit.Text, fingerprintLen)
		current, ok := byFingerprint[fp]
		if !ok || betterUnit(unit, current) {
			byFingerprint[fp] = unit
		}
	}

	merged := make([]domain.EvidenceUnit, 0, len(byFingerprint))
	for _, unit := range byFingerprint {
		merged = append(merged, unit)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// yearHistogram counts partitions over the final truncated set, so the
// histogram reflects what is actually passed downstream.
func yearHistogram(evidence []domain.EvidenceUnit) map[int]int {
	hist := make(map[int]int, 8)
	for _, unit := range evidence {
		hist[unit.Year]++
	}
	return hist
}

func betterUnit(a, b domain.EvidenceUnit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

func contentFingerprint(text string, length int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	runes := []rune(normalized)
	if len(runes) > length {
		runes = runes[:length]
	}
	return string(runes)
}
